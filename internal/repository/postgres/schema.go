package postgres

// schema is the analytical schema owned by the Central Repository. It is
// applied idempotently on every startup via EnsureSchema.
const schema = `
CREATE TABLE IF NOT EXISTS scan_logs (
    id BIGSERIAL PRIMARY KEY,
    started_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    completed_at TIMESTAMPTZ,
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
    id BIGSERIAL PRIMARY KEY,
    scan_log_id BIGINT NOT NULL REFERENCES scan_logs(id) ON DELETE CASCADE,
    tenant_id INTEGER NOT NULL,
    tenant_code TEXT NOT NULL,
    environment TEXT NOT NULL CHECK(environment IN ('Development', 'Staging', 'Production')),
    started_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    completed_at TIMESTAMPTZ,
    success BOOLEAN NOT NULL DEFAULT FALSE,
    objects_found INTEGER NOT NULL DEFAULT 0,
    objects_new INTEGER NOT NULL DEFAULT 0,
    objects_modified INTEGER NOT NULL DEFAULT 0,
    objects_deleted INTEGER NOT NULL DEFAULT 0,
    error_message TEXT,
    duration_seconds DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_scan_entries_scan_log ON scan_entries(scan_log_id);
CREATE INDEX IF NOT EXISTS idx_scan_entries_target ON scan_entries(tenant_id, environment);

CREATE TABLE IF NOT EXISTS object_snapshots (
    id BIGSERIAL PRIMARY KEY,
    scan_log_id BIGINT NOT NULL REFERENCES scan_logs(id) ON DELETE CASCADE,
    tenant_id INTEGER NOT NULL,
    tenant_name TEXT NOT NULL DEFAULT '',
    tenant_code TEXT NOT NULL,
    environment TEXT NOT NULL CHECK(environment IN ('Development', 'Staging', 'Production')),
    full_name TEXT NOT NULL,
    schema_name TEXT NOT NULL,
    object_name TEXT NOT NULL,
    kind TEXT NOT NULL CHECK(kind IN ('P', 'V', 'FN', 'TF', 'IF')),
    definition_hash TEXT NOT NULL,
    object_last_modified TIMESTAMPTZ,
    snapshot_date TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    is_custom BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_snapshots_latest ON object_snapshots(tenant_id, environment, snapshot_date DESC);
CREATE INDEX IF NOT EXISTS idx_snapshots_fullname ON object_snapshots(full_name, tenant_id, environment, snapshot_date DESC);
CREATE INDEX IF NOT EXISTS idx_snapshots_scan_log ON object_snapshots(scan_log_id);
CREATE INDEX IF NOT EXISTS idx_snapshots_hash ON object_snapshots(definition_hash);

CREATE TABLE IF NOT EXISTS object_snapshot_definitions (
    id BIGSERIAL PRIMARY KEY,
    snapshot_id BIGINT NOT NULL UNIQUE REFERENCES object_snapshots(id) ON DELETE CASCADE,
    definition TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS detected_changes (
    id BIGSERIAL PRIMARY KEY,
    scan_log_id BIGINT NOT NULL REFERENCES scan_logs(id) ON DELETE CASCADE,
    tenant_id INTEGER NOT NULL,
    tenant_code TEXT NOT NULL,
    environment TEXT NOT NULL CHECK(environment IN ('Development', 'Staging', 'Production')),
    full_name TEXT NOT NULL,
    kind TEXT NOT NULL CHECK(kind IN ('P', 'V', 'FN', 'TF', 'IF')),
    change_type TEXT NOT NULL CHECK(change_type IN ('Created', 'Modified', 'Deleted')),
    previous_hash TEXT,
    current_hash TEXT,
    detected_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    notification_sent BOOLEAN NOT NULL DEFAULT FALSE,
    UNIQUE (scan_log_id, tenant_id, environment, full_name)
);

CREATE INDEX IF NOT EXISTS idx_changes_pending ON detected_changes(notification_sent) WHERE notification_sent = FALSE;
CREATE INDEX IF NOT EXISTS idx_changes_scan_log ON detected_changes(scan_log_id);

CREATE TABLE IF NOT EXISTS baselines (
    id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL,
    name_ci TEXT NOT NULL UNIQUE,
    description TEXT,
    source_tenant_id INTEGER NOT NULL,
    source_tenant_name TEXT NOT NULL DEFAULT '',
    source_tenant_code TEXT NOT NULL,
    source_environment TEXT NOT NULL CHECK(source_environment IN ('Development', 'Staging', 'Production')),
    total_objects INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    created_by TEXT
);

CREATE TABLE IF NOT EXISTS baseline_objects (
    id BIGSERIAL PRIMARY KEY,
    baseline_id BIGINT NOT NULL REFERENCES baselines(id) ON DELETE CASCADE,
    full_name TEXT NOT NULL,
    schema_name TEXT NOT NULL,
    object_name TEXT NOT NULL,
    kind TEXT NOT NULL CHECK(kind IN ('P', 'V', 'FN', 'TF', 'IF')),
    definition_hash TEXT NOT NULL,
    source_snapshot_id BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_baseline_objects_baseline ON baseline_objects(baseline_id);

CREATE TABLE IF NOT EXISTS baseline_object_definitions (
    id BIGSERIAL PRIMARY KEY,
    baseline_object_id BIGINT NOT NULL UNIQUE REFERENCES baseline_objects(id) ON DELETE CASCADE,
    definition TEXT NOT NULL DEFAULT ''
);

-- LatestSnapshots: for each (tenant_id, environment, full_name) the snapshot
-- row with the greatest snapshot_date. DISTINCT ON relies on the ordering
-- columns matching the partition key exactly.
CREATE OR REPLACE VIEW latest_snapshots AS
SELECT DISTINCT ON (tenant_id, environment, full_name) *
FROM object_snapshots
ORDER BY tenant_id, environment, full_name, snapshot_date DESC, id DESC;

-- Orchestrator instance tracking, for multi-instance heartbeat coordination.
CREATE TABLE IF NOT EXISTS orchestrator_instances (
    instance_id TEXT PRIMARY KEY,
    hostname TEXT NOT NULL,
    pid INTEGER NOT NULL,
    status TEXT NOT NULL DEFAULT 'running' CHECK(status IN ('running', 'stopped')),
    started_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    last_heartbeat TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    version TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_orchestrator_instances_status ON orchestrator_instances(status);
CREATE INDEX IF NOT EXISTS idx_orchestrator_instances_heartbeat ON orchestrator_instances(last_heartbeat);
`
