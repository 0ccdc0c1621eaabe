package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// ScanHistoryRetentionConfig holds configuration for pruning old ScanLogs
// (and, by cascade, their ScanEntries, Snapshots, SnapshotDefinitions and
// DetectedChanges) so the analytical schema does not grow without bound.
type ScanHistoryRetentionConfig struct {
	// RetentionDays is the retention period for Completed scan logs with no
	// errors (in days). Scan logs older than this are eligible for deletion.
	// Default: 30, Range: 1-365
	RetentionDays int

	// RetentionCriticalDays is the retention period for scan logs that
	// recorded errors (CompletedWithErrors or Failed). Kept longer than
	// regular scan logs for error-pattern analysis. Must be >= RetentionDays.
	// Default: 90, Range: 1-730
	RetentionCriticalDays int

	// GlobalLimitScanLogs is the maximum total number of ScanLog rows to
	// keep, a safety limit independent of age. Default: 100000, Range:
	// 1000-1000000
	GlobalLimitScanLogs int

	// CleanupIntervalHours is how often the retention loop runs (in hours).
	// Default: 24, Range: 1-168 (1 week)
	CleanupIntervalHours int

	// CleanupBatchSize is the maximum number of ScanLog rows deleted per
	// prune pass. Larger batches clear backlog faster but hold locks
	// longer. Default: 1000, Range: 100-10000
	CleanupBatchSize int

	// CleanupEnabled controls whether the retention loop runs at all.
	// Default: true
	CleanupEnabled bool

	// CleanupStrategy determines which scan logs are pruned first.
	// Options: "oldest_first" (age alone, ignoring error status) or
	// "oldest_non_critical" (never prune a critical scan log before its
	// RetentionCriticalDays window even if it is older than a newer,
	// non-critical one). Default: "oldest_non_critical"
	CleanupStrategy string

	// CleanupVacuum controls whether the sqlite backend runs VACUUM after
	// a prune pass that deleted at least one row. Reclaims disk space but
	// locks the database; has no effect on the postgres backend. Default:
	// false
	CleanupVacuum bool
}

// DefaultScanHistoryRetentionConfig returns the default retention
// configuration: 30 days of clean scan history, 90 days of scan history
// that recorded errors, capped at 100k ScanLog rows overall, pruned daily.
func DefaultScanHistoryRetentionConfig() ScanHistoryRetentionConfig {
	return ScanHistoryRetentionConfig{
		RetentionDays:         30,
		RetentionCriticalDays: 90,
		GlobalLimitScanLogs:   100000,
		CleanupIntervalHours:  24,
		CleanupBatchSize:      1000,
		CleanupEnabled:        true,
		CleanupStrategy:       "oldest_non_critical",
		CleanupVacuum:         false,
	}
}

// Validate checks if the configuration has valid values.
func (c ScanHistoryRetentionConfig) Validate() error {
	if c.RetentionDays < 1 || c.RetentionDays > 365 {
		return fmt.Errorf("retention_days must be between 1 and 365 (got %d)", c.RetentionDays)
	}
	if c.RetentionCriticalDays < 1 || c.RetentionCriticalDays > 730 {
		return fmt.Errorf("retention_critical_days must be between 1 and 730 (got %d)", c.RetentionCriticalDays)
	}
	if c.RetentionCriticalDays < c.RetentionDays {
		return fmt.Errorf("retention_critical_days (%d) must be >= retention_days (%d)",
			c.RetentionCriticalDays, c.RetentionDays)
	}
	if c.GlobalLimitScanLogs < 1000 {
		return fmt.Errorf("global_limit_scan_logs must be at least 1000 (got %d)", c.GlobalLimitScanLogs)
	}
	if c.GlobalLimitScanLogs > 1000000 {
		return fmt.Errorf("global_limit_scan_logs too large (got %d, max 1000000)", c.GlobalLimitScanLogs)
	}
	if c.CleanupIntervalHours < 1 || c.CleanupIntervalHours > 168 {
		return fmt.Errorf("cleanup_interval_hours must be between 1 and 168 (got %d)", c.CleanupIntervalHours)
	}
	if c.CleanupBatchSize < 100 || c.CleanupBatchSize > 10000 {
		return fmt.Errorf("cleanup_batch_size must be between 100 and 10000 (got %d)", c.CleanupBatchSize)
	}
	if c.CleanupStrategy != "oldest_first" && c.CleanupStrategy != "oldest_non_critical" {
		return fmt.Errorf("cleanup_strategy must be 'oldest_first' or 'oldest_non_critical' (got %q)", c.CleanupStrategy)
	}
	return nil
}

// String returns a human-readable representation of the config.
func (c ScanHistoryRetentionConfig) String() string {
	return fmt.Sprintf(
		"ScanHistoryRetentionConfig{RetentionDays: %d, RetentionCriticalDays: %d, "+
			"GlobalLimit: %d, CleanupInterval: %dh, BatchSize: %d, Enabled: %t, "+
			"Strategy: %s, Vacuum: %t}",
		c.RetentionDays, c.RetentionCriticalDays, c.GlobalLimitScanLogs,
		c.CleanupIntervalHours, c.CleanupBatchSize, c.CleanupEnabled,
		c.CleanupStrategy, c.CleanupVacuum,
	)
}

// Interval returns CleanupIntervalHours as a time.Duration.
func (c ScanHistoryRetentionConfig) Interval() time.Duration {
	return time.Duration(c.CleanupIntervalHours) * time.Hour
}

// RegularCutoff returns the timestamp before which a non-critical
// (Completed) ScanLog is eligible for deletion.
func (c ScanHistoryRetentionConfig) RegularCutoff(now time.Time) time.Time {
	return now.AddDate(0, 0, -c.RetentionDays)
}

// CriticalCutoff returns the timestamp before which a critical
// (CompletedWithErrors or Failed) ScanLog is eligible for deletion.
func (c ScanHistoryRetentionConfig) CriticalCutoff(now time.Time) time.Time {
	return now.AddDate(0, 0, -c.RetentionCriticalDays)
}

// ScanHistoryRetentionConfigFromEnv creates a ScanHistoryRetentionConfig
// from environment variables, falling back to defaults.
//
// Environment variables:
//   - SENTINEL_RETENTION_DAYS: retention period for clean scan logs in days (default: 30)
//   - SENTINEL_RETENTION_CRITICAL_DAYS: retention period for scan logs with errors in days (default: 90)
//   - SENTINEL_RETENTION_GLOBAL_LIMIT: maximum total ScanLog rows (default: 100000)
//   - SENTINEL_RETENTION_CLEANUP_INTERVAL_HOURS: how often to run pruning in hours (default: 24)
//   - SENTINEL_RETENTION_CLEANUP_BATCH_SIZE: ScanLog rows deleted per pass (default: 1000)
//   - SENTINEL_RETENTION_CLEANUP_ENABLED: enable automatic pruning (default: true)
//   - SENTINEL_RETENTION_CLEANUP_STRATEGY: which scan logs to prune first (default: oldest_non_critical)
//   - SENTINEL_RETENTION_CLEANUP_VACUUM: run VACUUM after pruning, sqlite only (default: false)
//
// Returns an error if any environment variable has an invalid value.
func ScanHistoryRetentionConfigFromEnv() (ScanHistoryRetentionConfig, error) {
	cfg := DefaultScanHistoryRetentionConfig()

	if err := parseEnvInt("SENTINEL_RETENTION_DAYS", &cfg.RetentionDays); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("SENTINEL_RETENTION_CRITICAL_DAYS", &cfg.RetentionCriticalDays); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("SENTINEL_RETENTION_GLOBAL_LIMIT", &cfg.GlobalLimitScanLogs); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("SENTINEL_RETENTION_CLEANUP_INTERVAL_HOURS", &cfg.CleanupIntervalHours); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("SENTINEL_RETENTION_CLEANUP_BATCH_SIZE", &cfg.CleanupBatchSize); err != nil {
		return cfg, err
	}
	if err := parseEnvBool("SENTINEL_RETENTION_CLEANUP_ENABLED", &cfg.CleanupEnabled); err != nil {
		return cfg, err
	}
	if err := parseEnvString("SENTINEL_RETENTION_CLEANUP_STRATEGY", &cfg.CleanupStrategy); err != nil {
		return cfg, err
	}
	if err := parseEnvBool("SENTINEL_RETENTION_CLEANUP_VACUUM", &cfg.CleanupVacuum); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid scan history retention configuration from environment: %w", err)
	}
	return cfg, nil
}

// parseEnvInt parses an int from an environment variable, leaving dest
// unchanged if the variable is unset.
func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvBool parses a bool from an environment variable, leaving dest
// unchanged if the variable is unset.
func parseEnvBool(key string, dest *bool) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvString reads a string from an environment variable, leaving dest
// unchanged if the variable is unset.
func parseEnvString(key string, dest *string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	*dest = value
	return nil
}
