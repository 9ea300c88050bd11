package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/codevoice/internal/adapters/repository"
	"github.com/okian/codevoice/internal/config"
	"github.com/okian/codevoice/internal/domain/questions"
	"github.com/okian/codevoice/pkg/logger"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the MySQL schema and seed the question bank",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd.Context(), cmd)
		},
	}
}

func runMigrate(ctx context.Context, cmd *cobra.Command) error {
	cfg, log, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	if cfg.StoreDriver != config.DriverMySQL {
		fmt.Fprintf(cmd.OutOrStdout(), "store_driver is %s; nothing to migrate\n", cfg.StoreDriver)
		return nil
	}

	db, err := repository.OpenMySQL(cfg.DBDSN)
	if err != nil {
		return err
	}
	store := repository.NewGormStore(db, repository.WithLogger(log.Named("store")))
	defer func() { _ = store.Close() }()

	if err := store.Migrate(ctx); err != nil {
		return err
	}
	log.Info(ctx, "schema migrated")

	if cfg.QuestionsFile == "" {
		return nil
	}
	n, err := questions.New(store, questions.WithLogger(log.Named("questions"))).Seed(ctx, cfg.QuestionsFile)
	if err != nil {
		return err
	}
	log.Info(ctx, "seed complete", logger.Int("added", n))
	fmt.Fprintf(cmd.OutOrStdout(), "migrated; %d questions added\n", n)
	return nil
}
