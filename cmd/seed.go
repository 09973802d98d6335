package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"support-agent/dao"
	"support-agent/internal/database"
	"support-agent/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed <file>",
	Short: "Load businesses and their knowledge from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE:  runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	file, err := seed.Load(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	db, err := database.Open(ctx, cfg.Database.Driver, cfg.DatabaseURL(), 1, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := database.Prepare(ctx, cfg.Database.Driver, db, log); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	loader := seed.NewLoader(dao.NewBusinessStore(db), dao.NewKnowledgeStore(db), log)
	res, err := loader.Apply(ctx, file)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "businesses: %d created, %d existing; knowledge items: %d\n",
		res.Created, res.Existing, res.Items)
	return nil
}
