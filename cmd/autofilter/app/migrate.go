package app

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/autofilter/internal/db/postgres"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tool",
		Long:  `Database migration tool for the record store schema. Use with 'up' or 'down' subcommands.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Usage()
		},
	}
	cmd.PersistentFlags().BoolP("yes", "y", false, "Answer yes to all questions")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Create the record store schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd, "up", postgres.MigrateUp)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Drop the record store schema",
		Long: `Drop every table of the record store schema.
WARNING: This operation destroys all records. Use with caution.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := confirmMigrateDown(cmd); err != nil {
				return err
			}
			return runMigrate(cmd, "down", postgres.MigrateDown)
		},
	})
	return cmd
}

func runMigrate(cmd *cobra.Command, direction string, migrate func(context.Context, postgres.Execer) error) error {
	cfg, env, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(env, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	pool, err := openDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := migrate(ctx, pool); err != nil {
		return fmt.Errorf("migrate %s: %w", direction, err)
	}
	logger.Info("Migration applied", zap.String("direction", direction))
	return nil
}

func confirmMigrateDown(cmd *cobra.Command) error {
	yes, err := cmd.Flags().GetBool("yes")
	if err != nil {
		return fmt.Errorf("failed to get yes flag: %w", err)
	}
	if yes {
		return nil
	}

	fmt.Fprint(cmd.OutOrStdout(), "WARNING: This will drop all record tables. Continue? [y/N] ")
	answer, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && answer == "" {
		return fmt.Errorf("read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return nil
	default:
		return fmt.Errorf("migration cancelled")
	}
}
