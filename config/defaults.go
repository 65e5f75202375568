package config

import "time"

// Default runtime limits and pipeline settings for salespulse.
// Operators override a subset through the environment variables below;
// the rest are referenced directly by internal/runtime and internal/analytics.

const (
	// Concurrency
	DefaultMaxConcurrentRequests = 10
	DefaultMaxOpenDatasets       = 8

	// Row limits
	DefaultMaxRows         = 1_000_000
	DefaultPreviewRowLimit = 10 // First 10 rows by default
	DefaultTopN            = 10
)

const (
	// ABC tier upper bounds on cumulative percentage.
	DefaultABCThresholdA = 80.0
	DefaultABCThresholdB = 95.0
)

const (
	// Timeouts and TTLs
	DefaultOperationTimeout      = 30 * time.Second
	DefaultAcquireRequestTimeout = 2 * time.Second
	DefaultDatasetIdleTTL        = 30 * time.Minute
	DefaultDatasetCleanupPeriod  = time.Minute
)

const (
	// Text summaries attached to tool results are trimmed to this many tokens.
	DefaultSummaryModel       = "gpt-4o"
	DefaultSummaryTokenBudget = 512
)

// Environment variables read at startup.
const (
	EnvAllowedDirs  = "SALESPULSE_ALLOWED_DIRS"
	EnvDatabaseURL  = "SALESPULSE_DATABASE_URL"
	EnvEnableExport = "SALESPULSE_ENABLE_EXPORT"
	EnvSignPolicy   = "SALESPULSE_SIGN_POLICY"
	EnvFillMonths   = "SALESPULSE_FILL_MONTHS"
)
