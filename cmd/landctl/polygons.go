package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/samirrijal/landplot/internal/adapters/headless"
	"github.com/samirrijal/landplot/internal/core/domain"
	"github.com/samirrijal/landplot/internal/core/usecases"
	"github.com/samirrijal/landplot/internal/pkg/geospatial"
)

func newPolygonsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "polygons",
		Short: "Inspect and edit the polygons of a land record",
		Long: `Inspect and edit the polygons of a land record.

Polygons are addressed by their position in the collection, starting at 0.
Every command loads the record, applies one edit and writes the complete
collection back.`,
	}
	cmd.AddCommand(
		newPolygonsShowCmd(c),
		newPolygonsImportCmd(c),
		newPolygonsExportCmd(c),
		newPolygonsRemoveCmd(c),
		newVertexCmd(c, "add-vertex", "Append a vertex to a polygon", (*usecases.MapEditor).AddVertex),
		newVertexCmd(c, "remove-vertex", "Remove a vertex from a polygon", (*usecases.MapEditor).RemoveVertex),
	)
	return cmd
}

// openEditor loads a record into an editor backed by a headless surface.
func (c *cli) openEditor(ctx context.Context, landID int64, opts ...headless.Option) (*usecases.MapEditor, *headless.Surface, error) {
	surface := headless.New(opts...)
	ed := usecases.NewMapEditor(landID, c.client(), surface,
		usecases.WithNotifier(termNotifier{w: c.errOut}),
		usecases.WithDefaultCenter(domain.Coordinate{Lat: c.cfg.Client.CenterLat, Lng: c.cfg.Client.CenterLng}),
	)
	if err := ed.Load(ctx); err != nil {
		ed.Close()
		return nil, nil, err
	}
	return ed, surface, nil
}

func newPolygonsShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "List polygons with vertex count, area and perimeter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseLandID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := c.context(cmd)
			defer cancel()

			ed, _, err := c.openEditor(ctx, id)
			if err != nil {
				return err
			}
			defer ed.Close()

			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "INDEX\tVERTICES\tAREA_M2\tPERIMETER_M")
			for i, e := range ed.Polygons() {
				fmt.Fprintf(tw, "%d\t%d\t%.1f\t%.1f\n", i, len(e.Path), geospatial.Area(e.Path), geospatial.Perimeter(e.Path))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "total area %.1f m2\n", ed.TotalArea())
			return nil
		},
	}
}

func newPolygonsImportCmd(c *cli) *cobra.Command {
	var replace bool
	cmd := &cobra.Command{
		Use:   "import ID FILE",
		Short: "Add the polygons of a GeoJSON file",
		Long: `Add every Polygon and MultiPolygon of a GeoJSON file (FeatureCollection,
Feature or bare geometry) to a land record. Use - to read stdin.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseLandID(args[0])
			if err != nil {
				return err
			}
			var data []byte
			if args[1] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[1])
			}
			if err != nil {
				return err
			}
			polys, err := geospatial.ParsePolygons(data)
			if err != nil {
				return err
			}
			if len(polys) == 0 {
				return fmt.Errorf("%s contains no polygons", args[1])
			}
			for i, p := range polys {
				for _, pt := range p {
					if !pt.Valid() {
						return fmt.Errorf("polygon %d: coordinate %v out of range", i, pt)
					}
				}
			}

			ctx, cancel := c.context(cmd)
			defer cancel()
			ed, surface, err := c.openEditor(ctx, id)
			if err != nil {
				return err
			}
			defer ed.Close()

			if replace {
				for _, e := range ed.Polygons() {
					if err := ed.DeletePolygon(ctx, e.ID); err != nil {
						return err
					}
				}
			}

			if _, err := ed.ToggleEdit(); err != nil {
				return err
			}
			for _, p := range polys {
				if _, err := ed.DrawComplete(surface.Draw(p)); err != nil {
					return err
				}
			}
			if _, err := ed.ToggleEdit(); err != nil {
				return err
			}
			if err := ed.Save(ctx); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "land %d now has %d polygon(s)\n", id, len(ed.Polygons()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "Delete the existing polygons first")
	return cmd
}

func newPolygonsExportCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "export ID",
		Short: "Print the polygons as a GeoJSON FeatureCollection",
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
			data, err := geospatial.FeatureCollection(land).MarshalJSON()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.out, string(data))
			return err
		},
	}
}

func newPolygonsRemoveCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "remove ID INDEX",
		Short: "Delete one polygon",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseLandID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := c.context(cmd)
			defer cancel()

			ed, _, err := c.openEditor(ctx, id)
			if err != nil {
				return err
			}
			defer ed.Close()

			pid, err := polygonAt(ed, args[1])
			if err != nil {
				return err
			}
			return ed.DeletePolygon(ctx, pid)
		},
	}
}

func newVertexCmd(c *cli, use, short string, edit func(*usecases.MapEditor, domain.Coordinate) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID INDEX LAT,LNG",
		Short: short,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseLandID(args[0])
			if err != nil {
				return err
			}
			pt, err := parseCoordinate(args[2])
			if err != nil {
				return err
			}
			ctx, cancel := c.context(cmd)
			defer cancel()

			ed, _, err := c.openEditor(ctx, id)
			if err != nil {
				return err
			}
			defer ed.Close()

			pid, err := polygonAt(ed, args[1])
			if err != nil {
				return err
			}
			if _, err := ed.ToggleEdit(); err != nil {
				return err
			}
			if err := ed.Select(pid); err != nil {
				return err
			}
			if err := edit(ed, pt); err != nil {
				return err
			}
			if _, err := ed.ToggleEdit(); err != nil {
				return err
			}
			return ed.Save(ctx)
		},
	}
}

func newLocateCmd(c *cli) *cobra.Command {
	var lat, lng float64
	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Show where the map would be centred",
		Long: `Show where the map would be centred. With --lat and --lng the device
position is simulated; without them geolocation fails and the configured
default centre is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []headless.Option
			if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng") {
				pos := domain.Coordinate{Lat: lat, Lng: lng}
				if !pos.Valid() {
					return fmt.Errorf("position %v is out of range", pos)
				}
				opts = append(opts, headless.WithPosition(pos))
			}
			surface := headless.New(opts...)
			ed := usecases.NewMapEditor(0, nil, surface,
				usecases.WithDefaultCenter(domain.Coordinate{Lat: c.cfg.Client.CenterLat, Lng: c.cfg.Client.CenterLng}),
			)
			defer ed.Close()

			ed.Recenter()
			center, _ := surface.Center()
			source := "default"
			if _, ok := ed.CurrentLocation(); ok {
				source = "device"
			}
			fmt.Fprintf(c.out, "%.6f,%.6f (%s)\n", center.Lat, center.Lng, source)
			return nil
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "Simulated device latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "Simulated device longitude")
	return cmd
}

func polygonAt(ed *usecases.MapEditor, arg string) (usecases.PolygonID, error) {
	entries := ed.Polygons()
	i, err := strconv.Atoi(arg)
	if err != nil || i < 0 || i >= len(entries) {
		return "", fmt.Errorf("polygon index %q out of range (land has %d)", arg, len(entries))
	}
	return entries[i].ID, nil
}

func parseCoordinate(s string) (domain.Coordinate, error) {
	latS, lngS, ok := strings.Cut(s, ",")
	if !ok {
		return domain.Coordinate{}, fmt.Errorf("coordinate %q must be LAT,LNG", s)
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(latS), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(lngS), 64)
	c := domain.Coordinate{Lat: lat, Lng: lng}
	if err1 != nil || err2 != nil || !c.Valid() {
		return domain.Coordinate{}, fmt.Errorf("invalid coordinate %q", s)
	}
	return c, nil
}
