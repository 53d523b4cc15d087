package config

import "time"

// Default runtime limits and guardrails for the enrolsight server. These values are
// conservative and can be overridden via config file, environment, or CLI flags.
// They are referenced by internal/runtime.

const (
	// Concurrency
	DefaultMaxConcurrentRequests = 10
	DefaultMaxOpenDatasets       = 4

	// Row bounds
	DefaultPreviewRowLimit = 10
	DefaultMaxPreviewRows  = 1000
	DefaultDistrictTopN    = 50
)

const (
	// Timeouts
	DefaultOperationTimeout      = 30 * time.Second
	DefaultAcquireRequestTimeout = 2 * time.Second

	// Dataset handle lifecycle
	DefaultDatasetIdleTTL       = 15 * time.Minute
	DefaultDatasetCleanupPeriod = time.Minute
)

const (
	// Export
	DefaultExportPrefix = "aadhaar_analysis"
)
