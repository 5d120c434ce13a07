package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newLoginCmd(c *cli) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and keep the session for later commands",
		Long: `Log in to the land API. The session token is written to --session-file
with mode 0600. The password may also be given in LANDPLOT_PASSWORD.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("LANDPLOT_PASSWORD")
			}
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password are required")
			}
			ctx, cancel := c.context(cmd)
			defer cancel()

			client := c.client()
			user, err := client.Login(ctx, email, password)
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			if err := c.saveSession(client.Session()); err != nil {
				return fmt.Errorf("save session: %w", err)
			}
			fmt.Fprintf(c.out, "logged in as %s\n", user.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	return cmd
}

func newLogoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()

			err := c.client().Logout(ctx)
			if rmErr := c.clearSession(); rmErr != nil {
				return rmErr
			}
			if err != nil {
				return fmt.Errorf("logout: %w", err)
			}
			fmt.Fprintln(c.out, "logged out")
			return nil
		},
	}
}

func newWhoamiCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()

			user, err := c.client().Profile(ctx)
			if err != nil {
				return fmt.Errorf("profile: %w", err)
			}
			fmt.Fprintf(c.out, "%s (%s, id %d)\n", user.Email, user.Type, user.ID)
			return nil
		},
	}
}
