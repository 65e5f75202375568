package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/vinodismyname/salespulse/config"
	"github.com/vinodismyname/salespulse/internal/analytics"
	"github.com/vinodismyname/salespulse/internal/datasets"
	"github.com/vinodismyname/salespulse/internal/registry"
	"github.com/vinodismyname/salespulse/internal/runtime"
	"github.com/vinodismyname/salespulse/internal/security"
	"github.com/vinodismyname/salespulse/internal/sources"
	"github.com/vinodismyname/salespulse/internal/telemetry"
	"github.com/vinodismyname/salespulse/pkg/version"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	decimal.MarshalJSONWithoutQuotes = true

	var (
		useStdio        bool
		shutdownTimeout time.Duration
		maxRequests     int
		maxDatasets     int
		datasetTTL      time.Duration
	)
	flag.BoolVar(&useStdio, "stdio", false, "Run server over stdio transport")
	flag.DurationVar(&shutdownTimeout, "shutdown-timeout", 5*time.Second, "Graceful shutdown timeout")
	flag.IntVar(&maxRequests, "max-requests", config.DefaultMaxConcurrentRequests, "Maximum concurrent tool calls")
	flag.IntVar(&maxDatasets, "max-datasets", config.DefaultMaxOpenDatasets, "Maximum cached datasets")
	flag.DurationVar(&datasetTTL, "dataset-ttl", config.DefaultDatasetIdleTTL, "Idle time before a dataset is evicted")
	flag.Parse()

	logger := zlog.With().Str("service", "salespulse-server").Logger()
	ctx := logger.WithContext(context.Background())

	secMgr, err := security.NewManagerFromEnv()
	if err != nil {
		logger.Error().Err(err).Msg("security: failed to initialize manager from env")
		fmt.Fprintln(os.Stderr, "invalid security configuration; set "+config.EnvAllowedDirs)
		os.Exit(1)
	}
	if err := secMgr.ValidateConfig(); err != nil {
		logger.Error().Err(err).Msg("security: invalid allow-list configuration")
		fmt.Fprintln(os.Stderr, "no allowed directories configured; set "+config.EnvAllowedDirs)
		os.Exit(1)
	}
	logger.Info().Strs("allowed_dirs", secMgr.AllowedDirectories()).Msg("security allow-list configured")

	opts, err := analytics.OptionsFromEnv()
	if err != nil {
		logger.Error().Err(err).Msg("invalid pipeline options")
		os.Exit(1)
	}

	limits := runtime.NewLimits(maxRequests, maxDatasets)
	controller := runtime.NewController(limits)
	runtimeMW := runtime.NewMiddleware(controller)

	dsMgr := datasets.NewManager(datasetTTL, config.DefaultDatasetCleanupPeriod, controller, time.Now).
		WithPathValidator(secMgr).
		WithMaxRows(limits.MaxRows)
	dsMgr.Start(ctx)
	defer func() {
		sctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		if err := dsMgr.Close(sctx); err != nil {
			logger.Warn().Err(err).Msg("dataset manager shutdown")
		}
	}()

	var db *sql.DB
	if dsn := os.Getenv(config.EnvDatabaseURL); dsn != "" {
		pctx, cancel := context.WithTimeout(ctx, limits.OperationTimeout)
		db, err = sources.OpenPostgres(pctx, dsn)
		cancel()
		if err != nil {
			logger.Error().Err(err).Msg("database unavailable; table sources disabled")
		} else {
			defer db.Close()
		}
	}

	exportFilter := registry.NewExportToolFilterFromEnv()
	toolRegistry := registry.New()

	srv := server.NewMCPServer(
		"Sales Analytics Server",
		version.Version(),
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithHooks(telemetry.NewServerHooks(logger)),
		server.WithToolHandlerMiddleware(runtimeMW.ToolMiddleware),
		server.WithToolFilter(exportFilter.FilterTools),
	)

	deps := registry.Deps{Limits: limits, Datasets: dsMgr, Exports: secMgr, Options: opts}
	if db != nil {
		deps.DB = db
	}
	registry.RegisterDatasetTools(srv, toolRegistry, deps)
	registry.RegisterAnalyticsTools(srv, toolRegistry, deps)

	logger.Info().
		Ctx(ctx).
		Str("version", version.Version()).
		Int("max_concurrent_requests", limits.MaxConcurrentRequests).
		Int("max_open_datasets", limits.MaxOpenDatasets).
		Int("model_context_size", toolRegistry.ModelContextSize(config.DefaultSummaryModel)).
		Str("sign_policy", string(opts.Sign)).
		Bool("fill_gaps", opts.FillGaps).
		Bool("database", db != nil).
		Bool("export_enabled", registry.ExportEnabled()).
		Bool("stdio", useStdio).
		Msg("server bootstrap configured")

	if !useStdio {
		fmt.Fprintln(os.Stderr, "no transport selected; use --stdio to run over stdio")
		os.Exit(2)
	}
	if err := server.ServeStdio(srv); err != nil {
		// stderr keeps the stdio channel clean for the client
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
