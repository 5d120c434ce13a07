// Command landctl manages land records and edits their polygons from a
// terminal. Polygon edits go through the same editor state machine as the
// map UI, driven by a headless map surface.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"

	"github.com/samirrijal/landplot/internal/adapters/landapi"
	"github.com/samirrijal/landplot/internal/pkg/config"
	"github.com/samirrijal/landplot/internal/pkg/logging"
)

const sessionEnv = "LANDPLOT_SESSION"

// cli carries what every command needs. Tests swap dial and the writers.
type cli struct {
	cfg         *config.Config
	out         io.Writer
	errOut      io.Writer
	dial        fasthttp.DialFunc
	apiURL      string
	sessionFile string
	timeout     time.Duration
	logLevel    string
}

func main() {
	c := &cli{out: os.Stdout, errOut: os.Stderr}
	if err := newRootCmd(c).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "landctl",
		Short:         "Manage land records and their polygons",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load("landctl")
			if err != nil {
				return err
			}
			c.cfg = cfg
			if c.apiURL == "" {
				c.apiURL = cfg.Client.BaseURL
			}
			if c.timeout <= 0 {
				c.timeout = cfg.Client.Timeout
			}
			slog.SetDefault(logging.New(c.errOut, c.logLevel, "text"))
			return nil
		},
	}
	root.SetOut(c.out)
	root.SetErr(c.errOut)

	root.PersistentFlags().StringVar(&c.apiURL, "api", "", "Land API base URL (default from client.base_url)")
	root.PersistentFlags().StringVar(&c.sessionFile, "session-file", defaultSessionFile(), "Where the login session is kept")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 0, "Request timeout (default from client.timeout)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	root.AddCommand(
		newLoginCmd(c),
		newLogoutCmd(c),
		newWhoamiCmd(c),
		newListCmd(c),
		newGetCmd(c),
		newCreateCmd(c),
		newUpdateCmd(c),
		newDeleteCmd(c),
		newHistoryCmd(c),
		newPolygonsCmd(c),
		newLocateCmd(c),
	)
	return root
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".landctl-session"
	}
	return filepath.Join(dir, "landplot", "session")
}

// client builds an API client carrying the stored session, if any.
func (c *cli) client() *landapi.Client {
	opts := []landapi.Option{landapi.WithTimeout(c.timeout)}
	if c.dial != nil {
		opts = append(opts, landapi.WithDial(c.dial))
	}
	if token := c.loadSession(); token != "" {
		opts = append(opts, landapi.WithSession(c.cfg.Auth.CookieName, token))
	}
	return landapi.New(strings.TrimRight(c.apiURL, "/"), opts...)
}

func (c *cli) loadSession() string {
	if token := os.Getenv(sessionEnv); token != "" {
		return token
	}
	data, err := os.ReadFile(c.sessionFile)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (c *cli) saveSession(token string) error {
	if err := os.MkdirAll(filepath.Dir(c.sessionFile), 0o700); err != nil {
		return err
	}
	return os.WriteFile(c.sessionFile, []byte(token+"\n"), 0o600)
}

func (c *cli) clearSession() error {
	err := os.Remove(c.sessionFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (c *cli) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), 4*c.timeout)
}
