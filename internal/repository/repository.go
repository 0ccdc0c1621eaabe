// Package repository is the Central Repository: durable storage and
// retrieval for ScanLogs, Snapshots, DetectedChanges and Baselines. It is
// the sole owner of the persisted analytical schema.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/sentineldb/sentinel/internal/repository/postgres"
	"github.com/sentineldb/sentinel/internal/repository/sqlite"
	"github.com/sentineldb/sentinel/internal/types"
)

// Repository is the Central Repository's storage contract. Implementations
// (postgres, sqlite) are safe to call concurrently from different targets;
// within one target, callers must bracket writes in a single logical
// operation so the implementation can use one transport-level transaction.
type Repository interface {
	// EnsureSchema creates storage structures if absent. Idempotent.
	EnsureSchema(ctx context.Context) error

	CreateScanLog(ctx context.Context, log *types.ScanLog) (int64, error)
	UpdateScanLog(ctx context.Context, log *types.ScanLog) error
	GetScanLog(ctx context.Context, id int64) (*types.ScanLog, error)
	ListRecentScanLogs(ctx context.Context, limit int) ([]types.ScanLog, error)

	// PruneScanLogs deletes terminal ScanLogs (and, by cascade, their
	// ScanEntries, Snapshots, SnapshotDefinitions and DetectedChanges)
	// older than regularCutoff (status Completed) or criticalCutoff
	// (status CompletedWithErrors or Failed), up to batchSize rows per
	// call. Running ScanLogs are never pruned. Returns the number of
	// ScanLogs deleted.
	PruneScanLogs(ctx context.Context, regularCutoff, criticalCutoff time.Time, batchSize int) (int, error)
	// CountScanLogs returns the total number of ScanLog rows, used to
	// enforce ScanHistoryRetentionConfig.GlobalLimitScanLogs.
	CountScanLogs(ctx context.Context) (int, error)
	// PruneOldestScanLogs deletes the oldest ScanLogs (regardless of
	// status) down to keep rows remaining, up to batchSize rows per call.
	// Returns the number of ScanLogs deleted.
	PruneOldestScanLogs(ctx context.Context, keep, batchSize int) (int, error)
	// Vacuum reclaims disk space after a prune pass. A no-op on backends
	// where it offers no benefit or carries too high a lock cost to run
	// inline (e.g. PostgreSQL, where autovacuum already handles this).
	Vacuum(ctx context.Context) error

	CreateScanEntry(ctx context.Context, entry *types.ScanLogEntry) (int64, error)
	UpdateScanEntry(ctx context.Context, entry *types.ScanLogEntry) error
	ListScanEntries(ctx context.Context, scanLogID int64) ([]types.ScanLogEntry, error)

	// BulkInsertSnapshots inserts snapshots and their definitions as one
	// logical operation. snapshots and definitions MUST have equal length;
	// the i-th definition belongs to the i-th snapshot. Returns the
	// snapshots with their assigned IDs (identity join performed by the
	// implementation, e.g. a scoped re-query by (scanLogId, tenantId,
	// environment) paired by fullName).
	BulkInsertSnapshots(ctx context.Context, snapshots []types.Snapshot, definitions []string) ([]types.Snapshot, error)

	// LatestSnapshots returns, for each fullName, the Snapshot row with the
	// greatest snapshotDate for (tenantID, environment).
	LatestSnapshots(ctx context.Context, tenantID int, environment types.Environment) ([]types.Snapshot, error)
	GetSnapshotDefinition(ctx context.Context, snapshotID int64) (string, error)

	BulkInsertChanges(ctx context.Context, changes []types.DetectedChange) error
	PendingNotifications(ctx context.Context) ([]types.DetectedChange, error)
	MarkNotificationSent(ctx context.Context, ids []int64) error

	CreateBaseline(ctx context.Context, baseline *types.Baseline) (int64, error)
	// FreezeBaselineFromLatest clones the non-custom latest snapshots of
	// (tenantID, environment) into the baseline's object tables and updates
	// TotalObjects. Returns the number of objects frozen.
	FreezeBaselineFromLatest(ctx context.Context, baselineID int64, tenantID int, environment types.Environment) (int, error)
	ListBaselines(ctx context.Context) ([]types.Baseline, error)
	GetBaseline(ctx context.Context, id int64) (*types.Baseline, error)
	DeleteBaseline(ctx context.Context, id int64) error
	ListBaselineObjects(ctx context.Context, baselineID int64) ([]types.BaselineObject, error)
	GetBaselineObjectDefinition(ctx context.Context, objectID int64) (string, error)
	LoadBaselineWithDefinitions(ctx context.Context, baselineID int64) (map[string]types.BaselineEntry, error)

	// Orchestrator instance tracking, used by the Scanner/Orchestrator for
	// multi-instance heartbeat coordination. CleanupStaleInstances marks
	// running instances whose heartbeat went stale as stopped;
	// DeleteOldStoppedInstances then removes stopped rows older than
	// olderThan, always keeping the maxToKeep most recent as history.
	RegisterInstance(ctx context.Context, instanceID, hostname string, pid int, version string) error
	UpdateHeartbeat(ctx context.Context, instanceID string) error
	GetActiveInstances(ctx context.Context) ([]types.InstanceInfo, error)
	CleanupStaleInstances(ctx context.Context, staleThreshold time.Duration) (int, error)
	DeleteOldStoppedInstances(ctx context.Context, olderThan time.Duration, maxToKeep int) (int, error)

	Close() error
}

// Config selects and parameterizes a storage backend.
type Config struct {
	Backend string // "sqlite" or "postgres"

	// SQLite
	Path string

	// PostgreSQL
	Host            string
	Port            int
	Database        string
	User            string
	Password        string
	SSLMode         string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	HealthCheck     time.Duration
}

// DefaultConfig returns a config defaulting to the sqlite backend, suitable
// for local development and tests.
func DefaultConfig() *Config {
	return &Config{
		Backend:         "sqlite",
		Path:            "sentinel.db",
		Host:            "localhost",
		Port:            5432,
		Database:        "sentinel",
		User:            "sentinel",
		SSLMode:         "prefer",
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 1 * time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
		HealthCheck:     1 * time.Minute,
	}
}

// New creates a new Repository backend based on cfg.Backend.
//
// Note: there is a known API asymmetry between the backend constructors —
// sqlite.New(path) does not accept a context, postgres.New(ctx, cfg) does —
// so SQLite initialization cannot respect context cancellation while
// PostgreSQL can. ctx is only honored for the postgres backend.
func New(ctx context.Context, cfg *Config) (Repository, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Backend == "" {
		cfg.Backend = "sqlite"
	}

	switch cfg.Backend {
	case "sqlite":
		if cfg.Path == "" {
			return nil, fmt.Errorf("%w: sqlite backend requires Path to be set", types.ErrConfiguration)
		}
		return sqlite.New(cfg.Path)

	case "postgres":
		if cfg.Host == "" {
			return nil, fmt.Errorf("%w: postgres backend requires Host to be set", types.ErrConfiguration)
		}
		if cfg.Port == 0 {
			return nil, fmt.Errorf("%w: postgres backend requires Port to be set", types.ErrConfiguration)
		}
		if cfg.Database == "" {
			return nil, fmt.Errorf("%w: postgres backend requires Database to be set", types.ErrConfiguration)
		}
		if cfg.User == "" {
			return nil, fmt.Errorf("%w: postgres backend requires User to be set", types.ErrConfiguration)
		}

		pgCfg := postgres.DefaultConfig()
		pgCfg.Host = cfg.Host
		pgCfg.Port = cfg.Port
		pgCfg.Database = cfg.Database
		pgCfg.User = cfg.User
		pgCfg.Password = cfg.Password
		if cfg.SSLMode != "" {
			pgCfg.SSLMode = cfg.SSLMode
		}
		if cfg.MaxConns != 0 {
			pgCfg.MaxConns = cfg.MaxConns
		}
		if cfg.MinConns != 0 {
			pgCfg.MinConns = cfg.MinConns
		}
		if cfg.MaxConnLifetime != 0 {
			pgCfg.MaxConnLifetime = cfg.MaxConnLifetime
		}
		if cfg.MaxConnIdleTime != 0 {
			pgCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
		}
		if cfg.HealthCheck != 0 {
			pgCfg.HealthCheck = cfg.HealthCheck
		}
		return postgres.New(ctx, pgCfg)

	default:
		return nil, fmt.Errorf("%w: unsupported backend %q (must be \"sqlite\" or \"postgres\")", types.ErrConfiguration, cfg.Backend)
	}
}
