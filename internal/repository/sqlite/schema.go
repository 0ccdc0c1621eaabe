package sqlite

// schema is the SQLite analytical schema, structurally equivalent to the
// PostgreSQL schema but expressed in SQLite's type affinities: booleans as
// INTEGER 0/1, identities as INTEGER PRIMARY KEY AUTOINCREMENT, and the
// latest-snapshot view built with ROW_NUMBER() instead of DISTINCT ON.
const schema = `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS scan_logs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    completed_at DATETIME,
    status TEXT NOT NULL DEFAULT 'Running' CHECK(status IN ('Running', 'Completed', 'CompletedWithErrors', 'Failed')),
    trigger_type TEXT NOT NULL CHECK(trigger_type IN ('Scheduled', 'Manual', 'OnDemand', 'Compare')),
    triggered_by TEXT,
    total_tenants INTEGER NOT NULL DEFAULT 0,
    total_environments INTEGER NOT NULL DEFAULT 0,
    total_objects_scanned INTEGER NOT NULL DEFAULT 0,
    total_changes_detected INTEGER NOT NULL DEFAULT 0,
    total_errors INTEGER NOT NULL DEFAULT 0,
    error_summary TEXT
);

CREATE INDEX IF NOT EXISTS idx_scan_logs_started_at ON scan_logs(started_at DESC);

CREATE TABLE IF NOT EXISTS scan_entries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    scan_log_id INTEGER NOT NULL REFERENCES scan_logs(id) ON DELETE CASCADE,
    tenant_id INTEGER NOT NULL,
    tenant_code TEXT NOT NULL,
    environment TEXT NOT NULL CHECK(environment IN ('Development', 'Staging', 'Production')),
    started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    completed_at DATETIME,
    success INTEGER NOT NULL DEFAULT 0,
    objects_found INTEGER NOT NULL DEFAULT 0,
    objects_new INTEGER NOT NULL DEFAULT 0,
    objects_modified INTEGER NOT NULL DEFAULT 0,
    objects_deleted INTEGER NOT NULL DEFAULT 0,
    error_message TEXT,
    duration_seconds REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_scan_entries_scan_log ON scan_entries(scan_log_id);
CREATE INDEX IF NOT EXISTS idx_scan_entries_target ON scan_entries(tenant_id, environment);

CREATE TABLE IF NOT EXISTS object_snapshots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    scan_log_id INTEGER NOT NULL REFERENCES scan_logs(id) ON DELETE CASCADE,
    tenant_id INTEGER NOT NULL,
    tenant_name TEXT NOT NULL DEFAULT '',
    tenant_code TEXT NOT NULL,
    environment TEXT NOT NULL CHECK(environment IN ('Development', 'Staging', 'Production')),
    full_name TEXT NOT NULL,
    schema_name TEXT NOT NULL,
    object_name TEXT NOT NULL,
    kind TEXT NOT NULL CHECK(kind IN ('P', 'V', 'FN', 'TF', 'IF')),
    definition_hash TEXT NOT NULL,
    object_last_modified DATETIME,
    snapshot_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    is_custom INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_snapshots_latest ON object_snapshots(tenant_id, environment, snapshot_date DESC);
CREATE INDEX IF NOT EXISTS idx_snapshots_fullname ON object_snapshots(full_name, tenant_id, environment, snapshot_date DESC);
CREATE INDEX IF NOT EXISTS idx_snapshots_scan_log ON object_snapshots(scan_log_id);
CREATE INDEX IF NOT EXISTS idx_snapshots_hash ON object_snapshots(definition_hash);

CREATE TABLE IF NOT EXISTS object_snapshot_definitions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    snapshot_id INTEGER NOT NULL UNIQUE REFERENCES object_snapshots(id) ON DELETE CASCADE,
    definition TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS detected_changes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    scan_log_id INTEGER NOT NULL REFERENCES scan_logs(id) ON DELETE CASCADE,
    tenant_id INTEGER NOT NULL,
    tenant_code TEXT NOT NULL,
    environment TEXT NOT NULL CHECK(environment IN ('Development', 'Staging', 'Production')),
    full_name TEXT NOT NULL,
    kind TEXT NOT NULL CHECK(kind IN ('P', 'V', 'FN', 'TF', 'IF')),
    change_type TEXT NOT NULL CHECK(change_type IN ('Created', 'Modified', 'Deleted')),
    previous_hash TEXT,
    current_hash TEXT,
    detected_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    notification_sent INTEGER NOT NULL DEFAULT 0,
    UNIQUE (scan_log_id, tenant_id, environment, full_name)
);

CREATE INDEX IF NOT EXISTS idx_changes_pending ON detected_changes(notification_sent);
CREATE INDEX IF NOT EXISTS idx_changes_scan_log ON detected_changes(scan_log_id);

CREATE TABLE IF NOT EXISTS baselines (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    name_ci TEXT NOT NULL UNIQUE,
    description TEXT,
    source_tenant_id INTEGER NOT NULL,
    source_tenant_name TEXT NOT NULL DEFAULT '',
    source_tenant_code TEXT NOT NULL,
    source_environment TEXT NOT NULL CHECK(source_environment IN ('Development', 'Staging', 'Production')),
    total_objects INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    created_by TEXT
);

CREATE TABLE IF NOT EXISTS baseline_objects (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    baseline_id INTEGER NOT NULL REFERENCES baselines(id) ON DELETE CASCADE,
    full_name TEXT NOT NULL,
    schema_name TEXT NOT NULL,
    object_name TEXT NOT NULL,
    kind TEXT NOT NULL CHECK(kind IN ('P', 'V', 'FN', 'TF', 'IF')),
    definition_hash TEXT NOT NULL,
    source_snapshot_id INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_baseline_objects_baseline ON baseline_objects(baseline_id);

CREATE TABLE IF NOT EXISTS baseline_object_definitions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    baseline_object_id INTEGER NOT NULL UNIQUE REFERENCES baseline_objects(id) ON DELETE CASCADE,
    definition TEXT NOT NULL DEFAULT ''
);

CREATE VIEW IF NOT EXISTS latest_snapshots AS
SELECT id, scan_log_id, tenant_id, tenant_name, tenant_code, environment, full_name, schema_name,
       object_name, kind, definition_hash, object_last_modified, snapshot_date, is_custom
FROM (
    SELECT *, ROW_NUMBER() OVER (
        PARTITION BY tenant_id, environment, full_name
        ORDER BY snapshot_date DESC, id DESC
    ) AS rn
    FROM object_snapshots
)
WHERE rn = 1;

CREATE TABLE IF NOT EXISTS orchestrator_instances (
    instance_id TEXT PRIMARY KEY,
    hostname TEXT NOT NULL,
    pid INTEGER NOT NULL,
    status TEXT NOT NULL DEFAULT 'running' CHECK(status IN ('running', 'stopped')),
    started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    last_heartbeat DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    version TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_orchestrator_instances_status ON orchestrator_instances(status);
CREATE INDEX IF NOT EXISTS idx_orchestrator_instances_heartbeat ON orchestrator_instances(last_heartbeat);
`
