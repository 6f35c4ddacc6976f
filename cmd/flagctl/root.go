package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/banshee-data/flaggrid/internal/config"
	"github.com/banshee-data/flaggrid/internal/monitoring"
	"github.com/banshee-data/flaggrid/internal/storage"
	"github.com/banshee-data/flaggrid/internal/storage/kv"
	"github.com/banshee-data/flaggrid/internal/storage/sqlite"
)

// app holds state shared by every subcommand.
type app struct {
	configPath string
	store      string
	dbPath     string
	verbose    bool

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "flagctl",
		Short:         "Manage persisted boolean flag grids",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !a.verbose {
				monitoring.SetLogger(nil)
			}
			return a.loadConfig()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (.json, .yaml or .yml)")
	root.PersistentFlags().StringVar(&a.store, "store", "", `snapshot store: "sqlite" or "badger" (overrides config)`)
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "SQLite path or Badger directory (overrides config)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log store and flusher activity")

	root.AddCommand(
		newMigrateCmd(a),
		newSeedCmd(a),
		newInspectCmd(a),
		newRenderCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) loadConfig() error {
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.Load(a.configPath)
	} else {
		cfg, err = config.FromEnv()
	}
	if err != nil {
		return err
	}
	if a.store != "" {
		cfg.Store = &a.store
	}
	if a.dbPath != "" {
		if cfg.GetStore() == config.StoreBadger {
			cfg.BadgerDir = &a.dbPath
		} else {
			cfg.DBPath = &a.dbPath
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg
	return nil
}

// openStore opens the configured snapshot store. The caller closes it.
func (a *app) openStore() (storage.SnapshotStore, io.Closer, error) {
	switch a.cfg.GetStore() {
	case config.StoreBadger:
		s, err := kv.Open(kv.Config{Path: a.cfg.GetBadgerDir()})
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		s, err := sqlite.Open(a.cfg.GetDBPath())
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	}
}

// loadSnapshot returns the snapshot with id, or the latest one of name.
func loadSnapshot(ctx context.Context, store storage.SnapshotStore, name, id string) (storage.Snapshot, error) {
	if id != "" {
		return store.Get(ctx, id)
	}
	if name == "" {
		return storage.Snapshot{}, fmt.Errorf("one of --name or --id is required")
	}
	return store.Latest(ctx, name)
}
