package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/autofilter/internal/config"
	"github.com/kailas-cloud/autofilter/internal/db"
	"github.com/kailas-cloud/autofilter/internal/db/postgres"
	dbRedis "github.com/kailas-cloud/autofilter/internal/db/redis"
	"github.com/kailas-cloud/autofilter/internal/domain/collection"
	"github.com/kailas-cloud/autofilter/internal/domain/field"
	"github.com/kailas-cloud/autofilter/internal/domain/filter"
	"github.com/kailas-cloud/autofilter/internal/domain/principal"
	logpkg "github.com/kailas-cloud/autofilter/internal/logger"
	"github.com/kailas-cloud/autofilter/internal/metrics"
	candidaterepo "github.com/kailas-cloud/autofilter/internal/repository/candidate"
	recordrepo "github.com/kailas-cloud/autofilter/internal/repository/record"
	autocompleteuc "github.com/kailas-cloud/autofilter/internal/usecase/autocomplete"
)

// loadConfig reads --config when given, else config/<ENV>.yaml.
func loadConfig(cmd *cobra.Command) (config.Config, string, error) {
	env := config.GetEnv()
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, "", fmt.Errorf("failed to get config flag: %w", err)
	}
	var cfg config.Config
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return config.Config{}, "", fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, env, nil
}

// buildCollections turns the admin collection config into domain collections.
func buildCollections(cfgs []config.CollectionConfig) ([]collection.Collection, error) {
	out := make([]collection.Collection, 0, len(cfgs))
	for _, cc := range cfgs {
		filters := make([]filter.Definition, 0, len(cc.Filters))
		for _, fc := range cc.Filters {
			d, err := filter.NewDefinition(filter.Options{
				Title:       fc.Title,
				FieldPath:   fc.Field,
				Column:      fc.Column,
				Variant:     filter.Variant(fc.Variant),
				Target:      fc.Target,
				TargetField: fc.TargetField,
				Kind:        field.Kind(fc.Kind),
			})
			if err != nil {
				return nil, fmt.Errorf("collection %s: %w", cc.Name, err)
			}
			filters = append(filters, d)
		}
		c, err := collection.New(collection.Options{
			Name:        cc.Name,
			Table:       cc.Table,
			PK:          cc.PK,
			PKKind:      field.Kind(cc.PKKind),
			Label:       cc.Label,
			Search:      cc.Search,
			CreateField: cc.CreateField,
			Columns:     cc.Columns,
			Filters:     filters,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// buildEndpoints creates one store-backed autocomplete endpoint per collection.
func buildEndpoints(cfgs []config.CollectionConfig, cols []collection.Collection) map[string]autocompleteuc.Endpoint {
	out := make(map[string]autocompleteuc.Endpoint, len(cols))
	for i, c := range cols {
		ci := false
		if p := cfgs[i].CaseInsensitive; p != nil {
			ci = *p
		}
		out[c.Name()] = autocompleteuc.Endpoint{
			Name:            c.Name(),
			Source:          autocompleteuc.SourceStore,
			Target:          c,
			PageSize:        cfgs[i].PageSize,
			CaseInsensitive: ci,
		}
	}
	return out
}

// buildFieldEndpoint creates the cache-backed field endpoint over the source
// collection. Values are created there when its create field is the source
// column, so a created value shows up once the cache reloads.
func buildFieldEndpoint(cfg config.FieldEndpointConfig, cols []collection.Collection) (autocompleteuc.Endpoint, error) {
	source, ok := findCollection(cols, cfg.SourceCollection)
	if !ok {
		return autocompleteuc.Endpoint{}, fmt.Errorf("unknown source collection %q", cfg.SourceCollection)
	}
	if cf := source.CreateField(); cf != "" && cf != cfg.SourceColumn {
		return autocompleteuc.Endpoint{}, fmt.Errorf("field endpoint: %s creates %q, not the source column %q",
			source.Name(), cf, cfg.SourceColumn)
	}
	return autocompleteuc.Endpoint{
		Name:            "field",
		Source:          autocompleteuc.SourceCache,
		Target:          source,
		PageSize:        cfg.PageSize,
		CaseInsensitive: cfg.CaseInsensitive,
	}, nil
}

func findCollection(cols []collection.Collection, name string) (collection.Collection, bool) {
	for _, c := range cols {
		if c.Name() == name {
			return c, true
		}
	}
	return collection.Collection{}, false
}

func buildPrincipals(cfgs []config.PrincipalConfig) map[string]principal.Principal {
	out := make(map[string]principal.Principal, len(cfgs))
	for _, pc := range cfgs {
		out[pc.Key] = principal.Principal{
			ID:          pc.Subject,
			Superuser:   pc.Superuser,
			Permissions: pc.Permissions,
		}
	}
	return out
}

// readPolicies returns the policy file contents, or nil for the built-in policies.
func readPolicies(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return b, nil
}

// openCache connects to Valkey or Redis and waits until it answers.
func openCache(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger) (db.Store, error) {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:          cfg.Addrs,
		Username:       cfg.Username,
		Password:       cfg.Password,
		DB:             cfg.DB,
		ClientCacheTTL: time.Duration(cfg.ClientCacheSec) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s store: %w", cfg.Driver, err)
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("%s not ready: %w", cfg.Driver, err)
	}
	logger.Info("Connected to cache", zap.String("driver", cfg.Driver), zap.Strings("addrs", cfg.Addrs))
	return store, nil
}

// openDatabase creates the record store pool and waits until it answers.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*pgxpool.Pool, error) {
	pool, err := postgres.NewPool(ctx, postgres.Config{
		DSN:             cfg.DSN,
		MaxConns:        cfg.MaxConns,
		MinConns:        cfg.MinConns,
		ConnMaxLifetime: time.Duration(cfg.ConnMaxLifetimeSec) * time.Second,
	})
	if err != nil {
		return nil, err
	}
	if err := postgres.WaitForReady(ctx, pool, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("Connected to database")
	return pool, nil
}

// newCandidateRepo builds the candidate cache filled from the distinct values
// of the configured source column.
func newCandidateRepo(
	store db.KVStore, records *recordrepo.Repo, cfg config.Config, cols []collection.Collection, logger *zap.Logger,
) (*candidaterepo.Repo, error) {
	fc := cfg.Autocomplete.Field
	source, ok := findCollection(cols, fc.SourceCollection)
	if !ok {
		return nil, fmt.Errorf("unknown source collection %q", fc.SourceCollection)
	}
	valueField := cfg.Cache.Candidates.Field
	load := func(ctx context.Context) ([]map[string]string, error) {
		values, err := records.Distinct(ctx, source, fc.SourceColumn)
		if err != nil {
			return nil, err
		}
		rows := make([]map[string]string, 0, len(values))
		for _, v := range values {
			rows = append(rows, map[string]string{valueField: v})
		}
		return rows, nil
	}
	return candidaterepo.New(store, candidaterepo.Options{
		Key:   cfg.Cache.Candidates.Key,
		Field: valueField,
		TTL:   cfg.Cache.CandidateTTL(),
	}, load, metrics.CandidateCacheTotal, logger), nil
}

func newLogger(env string, cfg config.Config) (*zap.Logger, error) {
	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}
