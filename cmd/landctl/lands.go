package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/samirrijal/landplot/internal/core/domain"
)

func newListCmd(c *cli) *cobra.Command {
	var f domain.LandFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Search land records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()

			lands, total, err := c.client().ListLands(ctx, f)
			if err != nil {
				return fmt.Errorf("list lands: %w", err)
			}
			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tOWNER\tTYPE\tVALUE\tSIZE\tPOLYGONS")
			for _, l := range lands {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%d\n",
					l.ID, l.Title, l.Owner, l.LandType, l.MarketValue, l.Size, len(l.Polygons))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "%d of %d\n", len(lands), total)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.Query, "query", "q", "", "Substring of title or name")
	fl.StringVar(&f.Owner, "owner", "", "Exact owner")
	fl.StringVar(&f.LandType, "type", "", "Exact land type")
	fl.Int64Var(&f.MinPrice, "min-price", 0, "Minimum market value")
	fl.Int64Var(&f.MaxPrice, "max-price", 0, "Maximum market value (0 = no bound)")
	fl.Int64Var(&f.MinSize, "min-size", 0, "Minimum size")
	fl.Int64Var(&f.MaxSize, "max-size", 0, "Maximum size (0 = no bound)")
	fl.IntVar(&f.Offset, "offset", 0, "Records to skip")
	fl.IntVar(&f.Limit, "limit", 50, "Page size (max 200)")
	return cmd
}

func newGetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Print a land record as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseLandID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := c.context(cmd)
			defer cancel()

			land, err := c.client().GetLand(ctx, id)
			if err != nil {
				return fmt.Errorf("get land %d: %w", id, err)
			}
			return c.printJSON(land)
		},
	}
}

// landFields binds the free-text attributes of a record to flags.
type landFields struct {
	title, name, location, size, owner, landType, value, notes string
}

func (lf *landFields) bind(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&lf.title, "title", "", "Title")
	fl.StringVar(&lf.name, "name", "", "Name")
	fl.StringVar(&lf.location, "location", "", "Location")
	fl.StringVar(&lf.size, "size", "", "Size")
	fl.StringVar(&lf.owner, "owner", "", "Owner")
	fl.StringVar(&lf.landType, "type", "", "Land type")
	fl.StringVar(&lf.value, "value", "", "Market value")
	fl.StringVar(&lf.notes, "notes", "", "Notes")
}

// patch includes only the flags given on the command line.
func (lf *landFields) patch(cmd *cobra.Command) domain.LandPatch {
	var p domain.LandPatch
	pick := func(flag string, v *string, dst **string) {
		if cmd.Flags().Changed(flag) {
			*dst = v
		}
	}
	pick("title", &lf.title, &p.Title)
	pick("name", &lf.name, &p.Name)
	pick("location", &lf.location, &p.Location)
	pick("size", &lf.size, &p.Size)
	pick("owner", &lf.owner, &p.Owner)
	pick("type", &lf.landType, &p.LandType)
	pick("value", &lf.value, &p.MarketValue)
	pick("notes", &lf.notes, &p.Notes)
	return p
}

func newCreateCmd(c *cli) *cobra.Command {
	var lf landFields
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a land record without polygons",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()

			land := &domain.Land{
				Title: lf.title, Name: lf.name, Location: lf.location, Size: lf.size,
				Owner: lf.owner, LandType: lf.landType, MarketValue: lf.value, Notes: lf.notes,
			}
			created, err := c.client().CreateLand(ctx, land)
			if err != nil {
				return fmt.Errorf("create land: %w", err)
			}
			fmt.Fprintf(c.out, "created land %d\n", created.ID)
			return nil
		},
	}
	lf.bind(cmd)
	return cmd
}

func newUpdateCmd(c *cli) *cobra.Command {
	var lf landFields
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change attributes of a land record",
		Long:  "Only the flags given are sent; polygons are untouched.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseLandID(args[0])
			if err != nil {
				return err
			}
			p := lf.patch(cmd)
			if p.Empty() {
				return fmt.Errorf("nothing to update")
			}
			ctx, cancel := c.context(cmd)
			defer cancel()

			if _, err := c.client().UpdateLand(ctx, id, p); err != nil {
				return fmt.Errorf("update land %d: %w", id, err)
			}
			fmt.Fprintf(c.out, "updated land %d\n", id)
			return nil
		},
	}
	lf.bind(cmd)
	return cmd
}

func newDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a land record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseLandID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := c.context(cmd)
			defer cancel()

			if err := c.client().DeleteLand(ctx, id); err != nil {
				return fmt.Errorf("delete land %d: %w", id, err)
			}
			fmt.Fprintf(c.out, "deleted land %d\n", id)
			return nil
		},
	}
}

func newHistoryCmd(c *cli) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history ID",
		Short: "Show the change history of a land record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseLandID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := c.context(cmd)
			defer cancel()

			events, err := c.client().LandEvents(ctx, id, limit)
			if err != nil {
				return fmt.Errorf("history of land %d: %w", id, err)
			}
			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tEVENT\tPOLYGONS")
			for _, e := range events {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", e.Time.Format(time.RFC3339), e.Type, e.PolygonCount)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of events")
	return cmd
}

func parseLandID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid land id %q", s)
	}
	return id, nil
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
