package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/autofilter/internal/authz"
	"github.com/kailas-cloud/autofilter/internal/i18n"
	"github.com/kailas-cloud/autofilter/internal/metrics"
	recordrepo "github.com/kailas-cloud/autofilter/internal/repository/record"
	"github.com/kailas-cloud/autofilter/internal/routing"
	chiTransport "github.com/kailas-cloud/autofilter/internal/transport/chi"
	autocompleteuc "github.com/kailas-cloud/autofilter/internal/usecase/autocomplete"
	changelistuc "github.com/kailas-cloud/autofilter/internal/usecase/changelist"
	healthuc "github.com/kailas-cloud/autofilter/internal/usecase/health"
	"github.com/kailas-cloud/autofilter/internal/version"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server: autocomplete endpoints and changelists for every
configured admin site, plus /health and /metrics.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, env, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(env, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting autofilter API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("cache_driver", cfg.Cache.Driver),
	)

	ctx := context.Background()

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

	// Register autocomplete metrics explicitly (no init())
	metrics.RegisterAutocompleteMetrics()

	collections, err := buildCollections(cfg.Admin.Collections)
	if err != nil {
		return err
	}

	policies, err := readPolicies(cfg.Auth.PolicyFile)
	if err != nil {
		return err
	}
	authorizer, err := authz.NewCedarAuthorizer(policies)
	if err != nil {
		return err
	}

	records := recordrepo.New(pool)
	candidates, err := newCandidateRepo(store, records, cfg, collections, logger)
	if err != nil {
		return err
	}

	pageSizes := make(map[string]int, len(collections))
	for _, c := range collections {
		pageSizes[c.Name()] = cfg.Admin.PageSize
	}

	routes := routing.NewRegistry()
	autocompleteSvc := autocompleteuc.New(records, candidates, authorizer, i18n.New(), autocompleteuc.Metrics{
		CreateOptions:  metrics.CreateOptionsTotal,
		RecordsCreated: metrics.RecordsCreatedTotal,
	})
	changelistSvc := changelistuc.New(records, routes, collections, pageSizes)
	healthSvc := healthuc.New(store, pool)

	server := chiTransport.NewServer(autocompleteSvc, changelistSvc, healthSvc, routes)

	sites := make([]chiTransport.Site, 0, len(cfg.Admin.Sites))
	for _, s := range cfg.Admin.Sites {
		sites = append(sites, chiTransport.Site{Namespace: s.Namespace, Prefix: s.Prefix})
	}
	fieldEndpoint, err := buildFieldEndpoint(cfg.Autocomplete.Field, collections)
	if err != nil {
		return err
	}

	handler, err := chiTransport.NewRouter(server, chiTransport.RouterOptions{
		Sites:       sites,
		Collections: buildEndpoints(cfg.Admin.Collections, collections),
		Field:       &fieldEndpoint,
		Principals:  buildPrincipals(cfg.Auth.Principals),
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}
	logger.Info("Routes registered", zap.Strings("routes", routes.Names()))

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case <-quit:
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}
