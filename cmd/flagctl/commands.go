package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/flaggrid/internal/config"
	"github.com/banshee-data/flaggrid/internal/flusher"
	"github.com/banshee-data/flaggrid/internal/grid"
	"github.com/banshee-data/flaggrid/internal/metrics"
	"github.com/banshee-data/flaggrid/internal/overlay"
	"github.com/banshee-data/flaggrid/internal/render"
	"github.com/banshee-data/flaggrid/internal/storage/sqlite"
	"github.com/banshee-data/flaggrid/internal/validate"
	"github.com/banshee-data/flaggrid/internal/version"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the SQLite schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.GetStore() != config.StoreSQLite {
				fmt.Fprintf(cmd.OutOrStdout(), "store %s has no schema\n", a.cfg.GetStore())
				return nil
			}
			s, err := sqlite.Open(a.cfg.GetDBPath())
			if err != nil {
				return err
			}
			defer s.Close()
			v, dirty, err := s.MigrateVersion()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t) at %s\n", v, dirty, a.cfg.GetDBPath())
			return nil
		},
	}
}

func newSeedCmd(a *app) *cobra.Command {
	var (
		name   string
		lenses []string
		opName string
		mask   string
		tag    string
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a grid, apply lens operations and save a snapshot",
		Example: `  flagctl seed --name lanes --lens diagonal --lens "band(1)"
  flagctl seed --name tri --lens "submatrix(0,0:3,3)" --mask upper`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			op, err := grid.ParseOp(opName)
			if err != nil {
				return err
			}
			rules, err := validate.Compile(a.cfg.Validation)
			if err != nil {
				return err
			}

			store, closer, err := a.openStore()
			if err != nil {
				return err
			}
			defer closer.Close()

			m := metrics.New(prometheus.NewRegistry())
			opts := []grid.Option{grid.WithValidator(rules), grid.WithMetrics(m)}
			if tag != "" {
				db, ok := store.(*sqlite.Store)
				if !ok {
					return fmt.Errorf("--tag needs the %s store", config.StoreSQLite)
				}
				opts = append(opts, grid.WithTags(db.Tags(name)))
			}
			g, err := grid.New(a.cfg.GetRows(), a.cfg.GetCols(), opts...)
			if err != nil {
				return err
			}
			set := true
			for _, s := range lenses {
				l, err := grid.ParseLens(s)
				if err != nil {
					return err
				}
				operand := &set
				if op == grid.OpNot {
					operand = nil
				}
				if err := g.ApplyLens(l, op, operand); err != nil {
					return fmt.Errorf("%s %s: %w", op, l, err)
				}
				if tag != "" {
					if err := g.Tag(l, []byte(tag)); err != nil {
						return err
					}
				}
			}
			if mask != "" {
				l, err := grid.ParseLens(mask)
				if err != nil {
					return err
				}
				if err := g.Mask(l); err != nil {
					return fmt.Errorf("mask %s: %w", l, err)
				}
			}

			f := flusher.New(flusher.Config{
				Name:    name,
				Source:  flusher.GridSource(g),
				Store:   store,
				Metrics: m,
			})
			if err := f.FlushNow(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s: %dx%d, %d set\n", name, g.Rows(), g.Cols(), g.Count())
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "snapshot name")
	cmd.Flags().StringArrayVar(&lenses, "lens", nil, `lens to apply, e.g. "row(2)", "band(1)", "diagonal" (repeatable)`)
	cmd.Flags().StringVar(&opName, "op", "set", "operation applied through each lens: set, and, or, xor or not")
	cmd.Flags().StringVar(&mask, "mask", "", "lens to mask with after applying, e.g. upper")
	cmd.Flags().StringVar(&tag, "tag", "", "payload to tag every applied lens with (sqlite store only)")
	return cmd
}

func newInspectCmd(a *app) *cobra.Command {
	var (
		name, id string
		list     bool
		show     bool
	)
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Describe a saved snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, closer, err := a.openStore()
			if err != nil {
				return err
			}
			defer closer.Close()
			out := cmd.OutOrStdout()

			if list {
				snaps, err := store.List(ctx, name)
				if err != nil {
					return err
				}
				for _, s := range snaps {
					fmt.Fprintf(out, "%s  %s  %dx%d  set=%d  %s\n", s.ID,
						time.Unix(0, s.TakenUnixNanos).UTC().Format(time.RFC3339), s.Rows, s.Cols, s.SetCount, s.Reason)
				}
				return nil
			}

			snap, err := loadSnapshot(ctx, store, name, id)
			if err != nil {
				return err
			}
			g, err := snap.Layout.Grid()
			if err != nil {
				return err
			}
			o, err := overlay.Restore[struct{}](g, nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "id:     %s\nname:   %s\nshape:  %dx%d\nset:    %d\n", snap.ID, snap.Name, g.Rows(), g.Cols(), g.Count())
			if mean, ok := o.Mean(); ok {
				fmt.Fprintf(out, "mean:   %.4f\n", mean)
			}
			fmt.Fprintf(out, "reason: %s\n", snap.Reason)
			if db, ok := store.(*sqlite.Store); ok {
				if err := printTags(out, db.Tags(snap.Name)); err != nil {
					return err
				}
			}
			if show {
				fmt.Fprintln(out, g.String())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "snapshot name (latest is used)")
	cmd.Flags().StringVar(&id, "id", "", "snapshot id")
	cmd.Flags().BoolVar(&list, "list", false, "list every snapshot of --name")
	cmd.Flags().BoolVar(&show, "show", false, "print the grid")
	return cmd
}

func newRenderCmd(a *app) *cobra.Command {
	var (
		name, id, format, out string
		sizeInches            float64
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a saved snapshot as an HTML or PNG heatmap",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if out == "" {
				return fmt.Errorf("--out is required")
			}
			format = strings.ToLower(format)
			if format != "html" && format != "png" {
				return fmt.Errorf("unknown format %q: want html or png", format)
			}
			store, closer, err := a.openStore()
			if err != nil {
				return err
			}
			defer closer.Close()

			snap, err := loadSnapshot(cmd.Context(), store, name, id)
			if err != nil {
				return err
			}
			g, err := snap.Layout.Grid()
			if err != nil {
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			title := fmt.Sprintf("%s (%s)", snap.Name, snap.ID)
			if format == "html" {
				err = render.HeatmapHTML(f, g, title)
			} else {
				err = render.HeatmapPNG(f, g, title, vg.Length(sizeInches)*vg.Inch)
			}
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "snapshot name (latest is used)")
	cmd.Flags().StringVar(&id, "id", "", "snapshot id")
	cmd.Flags().StringVar(&format, "format", "html", "html or png")
	cmd.Flags().StringVar(&out, "out", "", "output file")
	cmd.Flags().Float64Var(&sizeInches, "size", 6, "PNG side length in inches")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return nil
		},
	}
}

func printTags(w io.Writer, t *sqlite.TagTable) error {
	keys, err := t.Keys()
	if err != nil {
		return err
	}
	for _, k := range keys {
		payload, _, err := t.Get(k)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "tag:    %s = %s\n", k, payload)
	}
	return nil
}
