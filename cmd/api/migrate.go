package main

import (
	"fmt"

	"github.com/ntentasd/fitmetrics-api/internal/config"
	"github.com/ntentasd/fitmetrics-api/internal/db"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the keyspace and tables",
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().Int("scylla-replication", 1, "replication factor for a newly created keyspace")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)

	if err := db.CreateKeyspace(cfg.ScyllaNodes, cfg.ScyllaKeyspace, cfg.ScyllaReplication); err != nil {
		return fmt.Errorf("creating keyspace %s: %w", cfg.ScyllaKeyspace, err)
	}

	store, err := db.Connect(cfg.ScyllaNodes, cfg.ScyllaKeyspace)
	if err != nil {
		return fmt.Errorf("connecting to scylla: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(cmd.Context()); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}

	logger.Info().Str("keyspace", cfg.ScyllaKeyspace).Msg("schema up to date")
	return nil
}
