package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	recordrepo "github.com/kailas-cloud/autofilter/internal/repository/record"
)

func newWarmCacheCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "warm-cache",
		Short: "Reload the field autocomplete candidate cache",
		Long: `Replace the cached candidate list with the distinct values of the configured
source column.`,
		RunE: runWarmCache,
	}
}

func runWarmCache(cmd *cobra.Command, _ []string) error {
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

	store, err := openCache(ctx, cfg.Cache, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	pool, err := openDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	collections, err := buildCollections(cfg.Admin.Collections)
	if err != nil {
		return err
	}
	candidates, err := newCandidateRepo(store, recordrepo.New(pool), cfg, collections, logger)
	if err != nil {
		return err
	}

	n, err := candidates.Warm(ctx)
	if err != nil {
		return fmt.Errorf("warm candidates: %w", err)
	}
	logger.Info("Candidate cache warmed", zap.String("key", cfg.Cache.Candidates.Key), zap.Int("candidates", n))
	fmt.Fprintf(cmd.OutOrStdout(), "cached %d candidates under %s\n", n, cfg.Cache.Candidates.Key)
	return nil
}
