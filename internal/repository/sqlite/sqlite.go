// Package sqlite implements the Central Repository's Storage contract on
// top of SQLite via the pure-Go ncruces/go-sqlite3 driver, used for local
// development and the test suite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/sentineldb/sentinel/internal/types"
)

// SQLiteStorage implements the repository.Repository interface using
// SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// New opens (creating if absent) a SQLite database at path and ensures the
// analytical schema exists.
func New(path string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create database directory: %v", types.ErrConfiguration, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", types.ErrConfiguration, err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("%w: ping database: %v", types.ErrConnect, err)
	}

	s := &SQLiteStorage{db: db}
	if err := s.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates all tables, indexes and views if they don't exist.
// Idempotent.
func (s *SQLiteStorage) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%w: execute schema: %v", types.ErrInvariant, err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreateScanLog inserts a new ScanLog in Running state and returns its ID.
func (s *SQLiteStorage) CreateScanLog(ctx context.Context, log *types.ScanLog) (int64, error) {
	if log.Status == "" {
		log.Status = types.ScanStatusRunning
	}
	if log.StartedAt.IsZero() {
		log.StartedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO scan_logs (started_at, status, trigger_type, triggered_by,
			total_tenants, total_environments, total_objects_scanned, total_changes_detected, total_errors, error_summary)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, log.StartedAt, log.Status, log.Trigger, log.TriggeredBy,
		log.TotalTenants, log.TotalEnvironments, log.TotalObjectsScanned, log.TotalChangesDetected, log.TotalErrors, log.ErrorSummary)
	if err != nil {
		return 0, fmt.Errorf("%w: create scan log: %v", types.ErrPersistence, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: scan log id: %v", types.ErrPersistence, err)
	}
	log.ID = id
	return id, nil
}

// UpdateScanLog updates a ScanLog to its (typically terminal) state. Called
// exactly once per ScanLog.
func (s *SQLiteStorage) UpdateScanLog(ctx context.Context, log *types.ScanLog) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE scan_logs SET completed_at=?, status=?, total_tenants=?, total_environments=?,
			total_objects_scanned=?, total_changes_detected=?, total_errors=?, error_summary=?
		WHERE id=?
	`, log.CompletedAt, log.Status, log.TotalTenants, log.TotalEnvironments,
		log.TotalObjectsScanned, log.TotalChangesDetected, log.TotalErrors, log.ErrorSummary, log.ID)
	if err != nil {
		return fmt.Errorf("%w: update scan log %d: %v", types.ErrPersistence, log.ID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLogRow(row rowScanner) (*types.ScanLog, error) {
	var l types.ScanLog
	err := row.Scan(&l.ID, &l.StartedAt, &l.CompletedAt, &l.Status, &l.Trigger, &l.TriggeredBy,
		&l.TotalTenants, &l.TotalEnvironments, &l.TotalObjectsScanned, &l.TotalChangesDetected, &l.TotalErrors, &l.ErrorSummary)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: scan scan log row: %v", types.ErrPersistence, err)
	}
	return &l, nil
}

// GetScanLog retrieves a ScanLog by id, returning (nil, nil) if absent.
func (s *SQLiteStorage) GetScanLog(ctx context.Context, id int64) (*types.ScanLog, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, completed_at, status, trigger_type, triggered_by,
			total_tenants, total_environments, total_objects_scanned, total_changes_detected, total_errors, error_summary
		FROM scan_logs WHERE id=?
	`, id)
	return scanLogRow(row)
}

// ListRecentScanLogs returns the most recent scan logs, newest first.
func (s *SQLiteStorage) ListRecentScanLogs(ctx context.Context, limit int) ([]types.ScanLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, completed_at, status, trigger_type, triggered_by,
			total_tenants, total_environments, total_objects_scanned, total_changes_detected, total_errors, error_summary
		FROM scan_logs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list scan logs: %v", types.ErrPersistence, err)
	}
	defer rows.Close()

	var result []types.ScanLog
	for rows.Next() {
		l, err := scanLogRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *l)
	}
	return result, rows.Err()
}

// PruneScanLogs deletes terminal ScanLogs older than their applicable
// cutoff, up to batchSize rows, cascading to ScanEntries, Snapshots,
// SnapshotDefinitions and DetectedChanges via the schema's ON DELETE
// CASCADE foreign keys.
func (s *SQLiteStorage) PruneScanLogs(ctx context.Context, regularCutoff, criticalCutoff time.Time, batchSize int) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM scan_logs WHERE id IN (
			SELECT id FROM scan_logs
			WHERE (status = 'Completed' AND started_at < ?)
			   OR (status IN ('CompletedWithErrors', 'Failed') AND started_at < ?)
			LIMIT ?
		)
	`, regularCutoff, criticalCutoff, batchSize)
	if err != nil {
		return 0, fmt.Errorf("%w: prune scan logs: %v", types.ErrPersistence, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: prune scan logs rows affected: %v", types.ErrPersistence, err)
	}
	return int(affected), nil
}

// CountScanLogs returns the total number of ScanLog rows.
func (s *SQLiteStorage) CountScanLogs(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scan_logs`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count scan logs: %v", types.ErrPersistence, err)
	}
	return count, nil
}

// PruneOldestScanLogs deletes the oldest ScanLogs, regardless of status,
// down to keep rows remaining, up to batchSize rows per call.
func (s *SQLiteStorage) PruneOldestScanLogs(ctx context.Context, keep, batchSize int) (int, error) {
	total, err := s.CountScanLogs(ctx)
	if err != nil {
		return 0, err
	}
	if total <= keep {
		return 0, nil
	}
	excess := total - keep
	if excess > batchSize {
		excess = batchSize
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM scan_logs WHERE id IN (
			SELECT id FROM scan_logs ORDER BY started_at ASC LIMIT ?
		)
	`, excess)
	if err != nil {
		return 0, fmt.Errorf("%w: prune oldest scan logs: %v", types.ErrPersistence, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: prune oldest scan logs rows affected: %v", types.ErrPersistence, err)
	}
	return int(affected), nil
}

// Vacuum reclaims space freed by prior deletes. SQLite's VACUUM rewrites
// the entire database file, so callers should only run it after a prune
// pass that actually deleted rows.
func (s *SQLiteStorage) Vacuum(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `VACUUM`); err != nil {
		return fmt.Errorf("%w: vacuum: %v", types.ErrPersistence, err)
	}
	return nil
}

// CreateScanEntry inserts a new ScanLogEntry in its Running state.
func (s *SQLiteStorage) CreateScanEntry(ctx context.Context, entry *types.ScanLogEntry) (int64, error) {
	if entry.StartedAt.IsZero() {
		entry.StartedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO scan_entries (scan_log_id, tenant_id, tenant_code, environment, started_at, success,
			objects_found, objects_new, objects_modified, objects_deleted, error_message, duration_seconds)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ScanLogID, entry.Target.TenantID, entry.Target.TenantCode, entry.Target.Environment, entry.StartedAt, entry.Success,
		entry.ObjectsFound, entry.ObjectsNew, entry.ObjectsModified, entry.ObjectsDeleted, entry.ErrorMessage, entry.DurationSeconds)
	if err != nil {
		return 0, fmt.Errorf("%w: create scan entry: %v", types.ErrPersistence, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: scan entry id: %v", types.ErrPersistence, err)
	}
	entry.ID = id
	return id, nil
}

// UpdateScanEntry updates a ScanLogEntry to its terminal state. Called
// exactly once per entry.
func (s *SQLiteStorage) UpdateScanEntry(ctx context.Context, entry *types.ScanLogEntry) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE scan_entries SET completed_at=?, success=?, objects_found=?, objects_new=?,
			objects_modified=?, objects_deleted=?, error_message=?, duration_seconds=?
		WHERE id=?
	`, entry.CompletedAt, entry.Success, entry.ObjectsFound, entry.ObjectsNew,
		entry.ObjectsModified, entry.ObjectsDeleted, entry.ErrorMessage, entry.DurationSeconds, entry.ID)
	if err != nil {
		return fmt.Errorf("%w: update scan entry %d: %v", types.ErrPersistence, entry.ID, err)
	}
	return nil
}

// ListScanEntries returns every ScanLogEntry belonging to a ScanLog.
func (s *SQLiteStorage) ListScanEntries(ctx context.Context, scanLogID int64) ([]types.ScanLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scan_log_id, tenant_id, tenant_code, environment, started_at, completed_at, success,
			objects_found, objects_new, objects_modified, objects_deleted, error_message, duration_seconds
		FROM scan_entries WHERE scan_log_id=? ORDER BY id
	`, scanLogID)
	if err != nil {
		return nil, fmt.Errorf("%w: list scan entries: %v", types.ErrPersistence, err)
	}
	defer rows.Close()

	var result []types.ScanLogEntry
	for rows.Next() {
		var e types.ScanLogEntry
		if err := rows.Scan(&e.ID, &e.ScanLogID, &e.Target.TenantID, &e.Target.TenantCode, &e.Target.Environment,
			&e.StartedAt, &e.CompletedAt, &e.Success, &e.ObjectsFound, &e.ObjectsNew, &e.ObjectsModified, &e.ObjectsDeleted,
			&e.ErrorMessage, &e.DurationSeconds); err != nil {
			return nil, fmt.Errorf("%w: scan entry row: %v", types.ErrPersistence, err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// BulkInsertSnapshots inserts snapshots and definitions as one transaction,
// capturing each generated id via LastInsertId immediately after its insert
// (the "skip the re-query" identity-join strategy).
func (s *SQLiteStorage) BulkInsertSnapshots(ctx context.Context, snapshots []types.Snapshot, definitions []string) ([]types.Snapshot, error) {
	if len(snapshots) != len(definitions) {
		return nil, fmt.Errorf("%w: %d snapshots but %d definitions", types.ErrInvariant, len(snapshots), len(definitions))
	}
	if len(snapshots) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin transaction: %v", types.ErrPersistence, err)
	}
	defer tx.Rollback()

	out := make([]types.Snapshot, len(snapshots))
	for i, snap := range snapshots {
		if snap.SnapshotDate.IsZero() {
			snap.SnapshotDate = time.Now().UTC()
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO object_snapshots (scan_log_id, tenant_id, tenant_name, tenant_code, environment,
				full_name, schema_name, object_name, kind, definition_hash, object_last_modified, snapshot_date, is_custom)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, snap.ScanLogID, snap.Target.TenantID, snap.TenantName, snap.Target.TenantCode, snap.Target.Environment,
			snap.FullName, snap.Schema, snap.Name, snap.Kind, snap.DefinitionHash, snap.ObjectLastModified, snap.SnapshotDate, snap.IsCustom)
		if err != nil {
			return nil, fmt.Errorf("%w: insert snapshot %s: %v", types.ErrPersistence, snap.FullName, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("%w: snapshot id: %v", types.ErrPersistence, err)
		}
		snap.ID = id
		out[i] = snap

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO object_snapshot_definitions (snapshot_id, definition) VALUES (?, ?)
		`, id, definitions[i]); err != nil {
			return nil, fmt.Errorf("%w: insert snapshot definition for %s: %v", types.ErrPersistence, snap.FullName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit snapshot batch: %v", types.ErrPersistence, err)
	}
	return out, nil
}

// LatestSnapshots returns, for each fullName, the Snapshot with the greatest
// snapshotDate for (tenantID, environment).
func (s *SQLiteStorage) LatestSnapshots(ctx context.Context, tenantID int, environment types.Environment) ([]types.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scan_log_id, tenant_id, tenant_name, tenant_code, environment,
			full_name, schema_name, object_name, kind, definition_hash, object_last_modified, snapshot_date, is_custom
		FROM latest_snapshots WHERE tenant_id=? AND environment=?
	`, tenantID, environment)
	if err != nil {
		return nil, fmt.Errorf("%w: latest snapshots: %v", types.ErrPersistence, err)
	}
	defer rows.Close()

	var result []types.Snapshot
	for rows.Next() {
		var snap types.Snapshot
		if err := rows.Scan(&snap.ID, &snap.ScanLogID, &snap.Target.TenantID, &snap.TenantName, &snap.Target.TenantCode, &snap.Target.Environment,
			&snap.FullName, &snap.Schema, &snap.Name, &snap.Kind, &snap.DefinitionHash, &snap.ObjectLastModified, &snap.SnapshotDate, &snap.IsCustom); err != nil {
			return nil, fmt.Errorf("%w: latest snapshot row: %v", types.ErrPersistence, err)
		}
		result = append(result, snap)
	}
	return result, rows.Err()
}

// GetSnapshotDefinition returns the definition text for a snapshot id.
func (s *SQLiteStorage) GetSnapshotDefinition(ctx context.Context, snapshotID int64) (string, error) {
	var def string
	err := s.db.QueryRowContext(ctx, `SELECT definition FROM object_snapshot_definitions WHERE snapshot_id=?`, snapshotID).Scan(&def)
	if errors.Is(err, sql.ErrNoRows) {
		return "", types.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: get snapshot definition: %v", types.ErrPersistence, err)
	}
	return def, nil
}

// BulkInsertChanges inserts DetectedChanges, tolerating (scanLogId, target,
// fullName) duplicates by leaving the first row in place.
func (s *SQLiteStorage) BulkInsertChanges(ctx context.Context, changes []types.DetectedChange) error {
	if len(changes) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", types.ErrPersistence, err)
	}
	defer tx.Rollback()

	for _, c := range changes {
		if c.DetectedAt.IsZero() {
			c.DetectedAt = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO detected_changes (scan_log_id, tenant_id, tenant_code, environment, full_name, kind,
				change_type, previous_hash, current_hash, detected_at, notification_sent)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
			ON CONFLICT (scan_log_id, tenant_id, environment, full_name) DO NOTHING
		`, c.ScanLogID, c.Target.TenantID, c.Target.TenantCode, c.Target.Environment, c.FullName, c.Kind,
			c.ChangeType, c.PreviousHash, c.CurrentHash, c.DetectedAt); err != nil {
			return fmt.Errorf("%w: insert detected change for %s: %v", types.ErrPersistence, c.FullName, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit change batch: %v", types.ErrPersistence, err)
	}
	return nil
}

// PendingNotifications returns every DetectedChange not yet notified.
func (s *SQLiteStorage) PendingNotifications(ctx context.Context) ([]types.DetectedChange, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scan_log_id, tenant_id, tenant_code, environment, full_name, kind, change_type,
			previous_hash, current_hash, detected_at, notification_sent
		FROM detected_changes WHERE notification_sent = 0 ORDER BY detected_at
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: pending notifications: %v", types.ErrPersistence, err)
	}
	defer rows.Close()

	var result []types.DetectedChange
	for rows.Next() {
		var c types.DetectedChange
		if err := rows.Scan(&c.ID, &c.ScanLogID, &c.Target.TenantID, &c.Target.TenantCode, &c.Target.Environment,
			&c.FullName, &c.Kind, &c.ChangeType, &c.PreviousHash, &c.CurrentHash, &c.DetectedAt, &c.NotificationSent); err != nil {
			return nil, fmt.Errorf("%w: detected change row: %v", types.ErrPersistence, err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// maxBatchSize bounds how many ids are substituted into one IN (...) clause.
const maxBatchSize = 1000

// MarkNotificationSent marks the given DetectedChange ids as notified, in
// batches of at most maxBatchSize.
func (s *SQLiteStorage) MarkNotificationSent(ctx context.Context, ids []int64) error {
	for start := 0; start < len(ids); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(batch)), ",")
		args := make([]interface{}, len(batch))
		for i, id := range batch {
			args[i] = id
		}
		query := fmt.Sprintf(`UPDATE detected_changes SET notification_sent = 1 WHERE id IN (%s)`, placeholders)
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("%w: mark notification sent: %v", types.ErrPersistence, err)
		}
	}
	return nil
}

// CreateBaseline inserts a new Baseline row; name uniqueness is enforced
// case-insensitively via the name_ci column.
func (s *SQLiteStorage) CreateBaseline(ctx context.Context, b *types.Baseline) (int64, error) {
	if err := b.Validate(); err != nil {
		return 0, err
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO baselines (name, name_ci, description, source_tenant_id, source_tenant_name, source_tenant_code,
			source_environment, total_objects, created_at, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
	`, b.Name, strings.ToLower(b.Name), b.Description, b.Source.TenantID, b.SourceTenantName, b.Source.TenantCode,
		b.Source.Environment, b.CreatedAt, b.CreatedBy)
	if isUniqueViolation(err) {
		return 0, fmt.Errorf("%w: baseline name %q already exists", types.ErrInvariant, b.Name)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: create baseline: %v", types.ErrPersistence, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: baseline id: %v", types.ErrPersistence, err)
	}
	b.ID = id
	return id, nil
}

// FreezeBaselineFromLatest clones the non-custom latest snapshots of
// (tenantID, environment) into the baseline's object tables.
func (s *SQLiteStorage) FreezeBaselineFromLatest(ctx context.Context, baselineID int64, tenantID int, environment types.Environment) (int, error) {
	latest, err := s.LatestSnapshots(ctx, tenantID, environment)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin transaction: %v", types.ErrPersistence, err)
	}
	defer tx.Rollback()

	count := 0
	for _, snap := range latest {
		if snap.IsCustom {
			continue
		}
		def, err := s.GetSnapshotDefinition(ctx, snap.ID)
		if err != nil {
			return 0, err
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO baseline_objects (baseline_id, full_name, schema_name, object_name, kind, definition_hash, source_snapshot_id)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, baselineID, snap.FullName, snap.Schema, snap.Name, snap.Kind, snap.DefinitionHash, snap.ID)
		if err != nil {
			return 0, fmt.Errorf("%w: insert baseline object %s: %v", types.ErrPersistence, snap.FullName, err)
		}
		objectID, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("%w: baseline object id: %v", types.ErrPersistence, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO baseline_object_definitions (baseline_object_id, definition) VALUES (?, ?)
		`, objectID, def); err != nil {
			return 0, fmt.Errorf("%w: insert baseline object definition for %s: %v", types.ErrPersistence, snap.FullName, err)
		}
		count++
	}

	if _, err := tx.ExecContext(ctx, `UPDATE baselines SET total_objects=? WHERE id=?`, count, baselineID); err != nil {
		return 0, fmt.Errorf("%w: update baseline total objects: %v", types.ErrPersistence, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit baseline freeze: %v", types.ErrPersistence, err)
	}
	return count, nil
}

func baselineRow(row rowScanner) (*types.Baseline, error) {
	var b types.Baseline
	err := row.Scan(&b.ID, &b.Name, &b.Description, &b.Source.TenantID, &b.SourceTenantName, &b.Source.TenantCode,
		&b.Source.Environment, &b.TotalObjects, &b.CreatedAt, &b.CreatedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: scan baseline row: %v", types.ErrPersistence, err)
	}
	return &b, nil
}

// ListBaselines returns every Baseline, newest first.
func (s *SQLiteStorage) ListBaselines(ctx context.Context) ([]types.Baseline, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, source_tenant_id, source_tenant_name, source_tenant_code, source_environment,
			total_objects, created_at, created_by
		FROM baselines ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: list baselines: %v", types.ErrPersistence, err)
	}
	defer rows.Close()

	var result []types.Baseline
	for rows.Next() {
		b, err := baselineRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}
	return result, rows.Err()
}

// GetBaseline retrieves a Baseline by id, returning (nil, nil) if absent.
func (s *SQLiteStorage) GetBaseline(ctx context.Context, id int64) (*types.Baseline, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, source_tenant_id, source_tenant_name, source_tenant_code, source_environment,
			total_objects, created_at, created_by
		FROM baselines WHERE id=?
	`, id)
	return baselineRow(row)
}

// DeleteBaseline deletes a Baseline; its objects and definitions cascade.
func (s *SQLiteStorage) DeleteBaseline(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM baselines WHERE id=?`, id); err != nil {
		return fmt.Errorf("%w: delete baseline %d: %v", types.ErrPersistence, id, err)
	}
	return nil
}

// ListBaselineObjects returns every BaselineObject belonging to a Baseline.
func (s *SQLiteStorage) ListBaselineObjects(ctx context.Context, baselineID int64) ([]types.BaselineObject, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, baseline_id, full_name, schema_name, object_name, kind, definition_hash, source_snapshot_id
		FROM baseline_objects WHERE baseline_id=? ORDER BY full_name
	`, baselineID)
	if err != nil {
		return nil, fmt.Errorf("%w: list baseline objects: %v", types.ErrPersistence, err)
	}
	defer rows.Close()

	var result []types.BaselineObject
	for rows.Next() {
		var o types.BaselineObject
		if err := rows.Scan(&o.ID, &o.BaselineID, &o.FullName, &o.Schema, &o.Name, &o.Kind, &o.DefinitionHash, &o.SourceSnapshotID); err != nil {
			return nil, fmt.Errorf("%w: baseline object row: %v", types.ErrPersistence, err)
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

// GetBaselineObjectDefinition returns the definition text for a baseline
// object id.
func (s *SQLiteStorage) GetBaselineObjectDefinition(ctx context.Context, objectID int64) (string, error) {
	var def string
	err := s.db.QueryRowContext(ctx, `SELECT definition FROM baseline_object_definitions WHERE baseline_object_id=?`, objectID).Scan(&def)
	if errors.Is(err, sql.ErrNoRows) {
		return "", types.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: get baseline object definition: %v", types.ErrPersistence, err)
	}
	return def, nil
}

// LoadBaselineWithDefinitions returns every object of a baseline keyed by
// fullName, with its hash and definition text attached, for the
// Comparator's CompareDictionaries.
func (s *SQLiteStorage) LoadBaselineWithDefinitions(ctx context.Context, baselineID int64) (map[string]types.BaselineEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT bo.full_name, bo.kind, bo.definition_hash, bod.definition
		FROM baseline_objects bo
		JOIN baseline_object_definitions bod ON bod.baseline_object_id = bo.id
		WHERE bo.baseline_id=?
	`, baselineID)
	if err != nil {
		return nil, fmt.Errorf("%w: load baseline with definitions: %v", types.ErrPersistence, err)
	}
	defer rows.Close()

	result := make(map[string]types.BaselineEntry)
	for rows.Next() {
		var e types.BaselineEntry
		if err := rows.Scan(&e.FullName, &e.Kind, &e.DefinitionHash, &e.Definition); err != nil {
			return nil, fmt.Errorf("%w: baseline entry row: %v", types.ErrPersistence, err)
		}
		result[types.NormalizeKey(e.FullName)] = e
	}
	return result, rows.Err()
}

// RegisterInstance registers a running orchestrator process for heartbeat
// coordination. Timestamps are written from Go so age comparisons in the
// cleanup queries bind consistently.
func (s *SQLiteStorage) RegisterInstance(ctx context.Context, instanceID, hostname string, pid int, version string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO orchestrator_instances (instance_id, hostname, pid, status, version, started_at, last_heartbeat)
		VALUES (?, ?, ?, 'running', ?, ?, ?)
		ON CONFLICT (instance_id) DO UPDATE SET hostname=excluded.hostname, pid=excluded.pid,
			status='running', version=excluded.version, last_heartbeat=excluded.last_heartbeat
	`, instanceID, hostname, pid, version, now, now)
	if err != nil {
		return fmt.Errorf("%w: register instance: %v", types.ErrPersistence, err)
	}
	return nil
}

// UpdateHeartbeat refreshes an instance's last_heartbeat timestamp.
func (s *SQLiteStorage) UpdateHeartbeat(ctx context.Context, instanceID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE orchestrator_instances SET last_heartbeat=? WHERE instance_id=?`, time.Now().UTC(), instanceID)
	if err != nil {
		return fmt.Errorf("%w: update heartbeat: %v", types.ErrPersistence, err)
	}
	return nil
}

// GetActiveInstances returns every instance currently marked running.
func (s *SQLiteStorage) GetActiveInstances(ctx context.Context) ([]types.InstanceInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT instance_id, hostname, pid, status, started_at, last_heartbeat, version
		FROM orchestrator_instances WHERE status='running' ORDER BY started_at
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: get active instances: %v", types.ErrPersistence, err)
	}
	defer rows.Close()

	var result []types.InstanceInfo
	for rows.Next() {
		var i types.InstanceInfo
		if err := rows.Scan(&i.InstanceID, &i.Hostname, &i.PID, &i.Status, &i.StartedAt, &i.LastHeartbeat, &i.Version); err != nil {
			return nil, fmt.Errorf("%w: instance row: %v", types.ErrPersistence, err)
		}
		result = append(result, i)
	}
	return result, rows.Err()
}

// CleanupStaleInstances marks instances whose heartbeat is older than
// staleThreshold as stopped, returning the count affected.
func (s *SQLiteStorage) CleanupStaleInstances(ctx context.Context, staleThreshold time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-staleThreshold)
	res, err := s.db.ExecContext(ctx, `
		UPDATE orchestrator_instances SET status='stopped' WHERE status='running' AND last_heartbeat < ?
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: cleanup stale instances: %v", types.ErrPersistence, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: cleanup stale instances rows affected: %v", types.ErrPersistence, err)
	}
	return int(affected), nil
}

// DeleteOldStoppedInstances removes stopped instances older than olderThan,
// always keeping the maxToKeep most recent stopped rows as history. With
// maxToKeep=0 every stopped row past the cutoff is deleted.
func (s *SQLiteStorage) DeleteOldStoppedInstances(ctx context.Context, olderThan time.Duration, maxToKeep int) (int, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("%w: olderThan must be positive (got %s)", types.ErrInvariant, olderThan)
	}
	if maxToKeep < 0 {
		return 0, fmt.Errorf("%w: maxToKeep must be non-negative (got %d)", types.ErrInvariant, maxToKeep)
	}
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM orchestrator_instances
		WHERE status = 'stopped'
		  AND started_at < ?
		  AND instance_id NOT IN (
		      SELECT instance_id FROM orchestrator_instances
		      WHERE status = 'stopped'
		      ORDER BY started_at DESC
		      LIMIT ?
		  )
	`, cutoff, maxToKeep)
	if err != nil {
		return 0, fmt.Errorf("%w: delete old stopped instances: %v", types.ErrPersistence, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: delete old stopped instances rows affected: %v", types.ErrPersistence, err)
	}
	return int(affected), nil
}
