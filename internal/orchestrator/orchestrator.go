// Package orchestrator drives full and partial scans across (tenant ×
// environment) targets with bounded concurrency, per-target deadlines, and
// scan accounting.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/sentineldb/sentinel/internal/comparator"
	"github.com/sentineldb/sentinel/internal/config"
	"github.com/sentineldb/sentinel/internal/contracts"
	"github.com/sentineldb/sentinel/internal/detector"
	"github.com/sentineldb/sentinel/internal/extractor"
	"github.com/sentineldb/sentinel/internal/queue"
	"github.com/sentineldb/sentinel/internal/repository"
	"github.com/sentineldb/sentinel/internal/types"
)

// Config holds the orchestrator's tunables, combining the scheduler, queue
// and custom-detection configuration surfaces with process identity.
type Config struct {
	Scheduler       config.SchedulerConfig
	Queue           config.QueueConfig
	CustomDetection config.CustomDetectionConfig
	InstanceCleanup config.InstanceCleanupConfig
	Retention       config.ScanHistoryRetentionConfig
	HeartbeatPeriod time.Duration
	Version         string
}

// DefaultConfig returns the orchestrator defaults.
func DefaultConfig() Config {
	return Config{
		Scheduler:       config.DefaultSchedulerConfig(),
		Queue:           config.DefaultQueueConfig(),
		CustomDetection: config.DefaultCustomDetectionConfig(),
		InstanceCleanup: config.DefaultInstanceCleanupConfig(),
		Retention:       config.DefaultScanHistoryRetentionConfig(),
		HeartbeatPeriod: 30 * time.Second,
		Version:         "dev",
	}
}

// Validate checks every sub-configuration.
func (c Config) Validate() error {
	if err := c.Scheduler.Validate(); err != nil {
		return err
	}
	if err := c.Queue.Validate(); err != nil {
		return err
	}
	if err := c.InstanceCleanup.Validate(); err != nil {
		return err
	}
	if err := c.Retention.Validate(); err != nil {
		return err
	}
	return nil
}

// Orchestrator is the Scanner/Orchestrator component.
type Orchestrator struct {
	repo       repository.Repository
	extractor  extractor.Extractor
	notifier   contracts.Notifier
	decryptor  contracts.Decryptor
	targets    TargetProvider
	tracked    KeyRegistry
	customRegs KeyRegistry

	cfg        Config
	instanceID string
	hostname   string
	pid        int

	queue *queue.Queue

	mu      sync.Mutex
	running bool

	stopCh          chan struct{}
	doneCh          chan struct{}
	workerCancel    context.CancelFunc
	workerDoneCh    chan struct{}
	heartbeatStopCh chan struct{}
	heartbeatDoneCh chan struct{}
	retentionStopCh chan struct{}
	retentionDoneCh chan struct{}
}

// New builds an Orchestrator. notifier and decryptor may be
// contracts.NoopNotifier{} and a pass-through Decryptor respectively when
// those collaborators are not wired.
func New(repo repository.Repository, ext extractor.Extractor, notifier contracts.Notifier, decryptor contracts.Decryptor,
	targets TargetProvider, tracked, customRegs KeyRegistry, cfg Config) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	hostname, _ := os.Hostname()
	return &Orchestrator{
		repo: repo, extractor: ext, notifier: notifier, decryptor: decryptor,
		targets: targets, tracked: tracked, customRegs: customRegs,
		cfg:        cfg,
		instanceID: uuid.NewString(),
		hostname:   hostname,
		pid:        os.Getpid(),
		queue:      queue.New(cfg.Queue.Capacity),
	}, nil
}

// Queue exposes the Scan Queue so callers (e.g. a CLI or API handler) can
// enqueue user-triggered scan requests.
func (o *Orchestrator) Queue() *queue.Queue { return o.queue }

// Start registers this instance, cleans up stale instances, and launches
// the scheduler thread, the queue worker and the heartbeat loop.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return fmt.Errorf("orchestrator is already running")
	}
	o.running = true
	o.stopCh = make(chan struct{})
	o.doneCh = make(chan struct{})
	o.workerDoneCh = make(chan struct{})
	o.heartbeatStopCh = make(chan struct{})
	o.heartbeatDoneCh = make(chan struct{})
	o.retentionStopCh = make(chan struct{})
	o.retentionDoneCh = make(chan struct{})
	workerCtx, workerCancel := context.WithCancel(ctx)
	o.workerCancel = workerCancel
	o.mu.Unlock()

	if err := o.repo.RegisterInstance(ctx, o.instanceID, o.hostname, o.pid, o.cfg.Version); err != nil {
		workerCancel()
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
		return fmt.Errorf("register orchestrator instance: %w", err)
	}

	if cleaned, err := o.repo.CleanupStaleInstances(ctx, staleInstanceThreshold); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to cleanup stale instances on startup: %v\n", err)
	} else if cleaned > 0 {
		fmt.Printf("cleanup: marked %d stale orchestrator instance(s) as stopped\n", cleaned)
	}

	if age := o.cfg.InstanceCleanup.CleanupAge(); age > 0 {
		if deleted, err := o.repo.DeleteOldStoppedInstances(ctx, age, o.cfg.InstanceCleanup.CleanupKeep); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to delete old stopped instances on startup: %v\n", err)
		} else if deleted > 0 {
			fmt.Printf("cleanup: deleted %d old stopped orchestrator instance(s) (older than %s, keeping %d most recent)\n",
				deleted, age, o.cfg.InstanceCleanup.CleanupKeep)
		}
	}

	go o.schedulerLoop(ctx)
	go o.queueWorkerLoop(workerCtx)
	go o.heartbeatLoop(ctx)
	go o.retentionLoop(ctx)

	return nil
}

// Stop signals every loop to exit and waits for them to finish.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return fmt.Errorf("orchestrator is not running")
	}
	o.running = false
	o.mu.Unlock()

	close(o.stopCh)
	o.workerCancel()
	close(o.heartbeatStopCh)
	close(o.retentionStopCh)

	mainDone, workerDone, heartbeatDone, retentionDone := false, false, false, false
	for !mainDone || !workerDone || !heartbeatDone || !retentionDone {
		select {
		case <-o.doneCh:
			mainDone = true
		case <-o.workerDoneCh:
			workerDone = true
		case <-o.heartbeatDoneCh:
			heartbeatDone = true
		case <-o.retentionDoneCh:
			retentionDone = true
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (o *Orchestrator) heartbeatLoop(ctx context.Context) {
	defer close(o.heartbeatDoneCh)
	ticker := time.NewTicker(o.cfg.HeartbeatPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.heartbeatStopCh:
			return
		case <-ticker.C:
			if err := o.repo.UpdateHeartbeat(ctx, o.instanceID); err != nil {
				fmt.Fprintf(os.Stderr, "heartbeat update failed: %v\n", err)
			}
		}
	}
}

// retentionLoop periodically prunes terminal ScanLogs (and, by cascade,
// their Snapshots and DetectedChanges) older than the configured retention
// windows, in batches bounded by cfg.Retention.CleanupBatchSize.
func (o *Orchestrator) retentionLoop(ctx context.Context) {
	defer close(o.retentionDoneCh)
	if !o.cfg.Retention.CleanupEnabled {
		return
	}

	ticker := time.NewTicker(o.cfg.Retention.Interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.retentionStopCh:
			return
		case <-ticker.C:
			o.pruneScanHistory(ctx)
		}
	}
}

func (o *Orchestrator) pruneScanHistory(ctx context.Context) {
	now := time.Now().UTC()
	regularCutoff := o.cfg.Retention.RegularCutoff(now)
	criticalCutoff := o.cfg.Retention.CriticalCutoff(now)
	if o.cfg.Retention.CleanupStrategy == "oldest_first" {
		// Age alone decides; errored scans get no extra grace period.
		criticalCutoff = regularCutoff
	}

	total := 0
	deleted, err := o.repo.PruneScanLogs(ctx, regularCutoff, criticalCutoff, o.cfg.Retention.CleanupBatchSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: scan history retention pass failed: %v\n", err)
		return
	}
	total += deleted

	if o.cfg.Retention.GlobalLimitScanLogs > 0 {
		if count, err := o.repo.CountScanLogs(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "warning: scan history count failed: %v\n", err)
		} else if count > o.cfg.Retention.GlobalLimitScanLogs {
			excess, err := o.repo.PruneOldestScanLogs(ctx, o.cfg.Retention.GlobalLimitScanLogs, o.cfg.Retention.CleanupBatchSize)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: scan history global-limit prune failed: %v\n", err)
			} else {
				total += excess
			}
		}
	}

	if total == 0 {
		return
	}
	fmt.Printf("retention: pruned %d stale scan log(s)\n", total)

	if o.cfg.Retention.CleanupVacuum {
		if err := o.repo.Vacuum(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "warning: scan history vacuum failed: %v\n", err)
		}
	}
}

func (o *Orchestrator) schedulerLoop(ctx context.Context) {
	defer close(o.doneCh)

	if o.cfg.Scheduler.RunOnStartup {
		if _, err := o.RunFullScan(ctx, types.TriggerScheduled, nil, o.cfg.Scheduler.MaxParallelTenants, false); err != nil {
			fmt.Fprintf(os.Stderr, "startup scan failed: %v\n", err)
		}
	}

	ticker := time.NewTicker(o.cfg.Scheduler.Interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.stopCh:
			return
		case <-ticker.C:
			if _, err := o.RunFullScan(ctx, types.TriggerScheduled, nil, o.cfg.Scheduler.MaxParallelTenants, false); err != nil {
				fmt.Fprintf(os.Stderr, "scheduled scan failed: %v\n", err)
			}
		}
	}
}

func (o *Orchestrator) queueWorkerLoop(ctx context.Context) {
	defer close(o.workerDoneCh)
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.stopCh:
			return
		default:
		}

		req, err := o.queue.Dequeue(ctx)
		if err != nil {
			return
		}

		var triggeredBy *string
		if req.TriggeredBy != nil {
			triggeredBy = req.TriggeredBy
		}

		if req.TenantID == nil {
			if _, err := o.RunFullScan(ctx, types.TriggerManual, triggeredBy, o.cfg.Scheduler.MaxParallelTenants, req.ScanAll); err != nil {
				fmt.Fprintf(os.Stderr, "queued full scan failed: %v\n", err)
			}
			continue
		}
		if _, err := o.RunSingleScan(ctx, *req.TenantID, req.Environment, types.TriggerOnDemand, triggeredBy, req.ScanAll); err != nil {
			fmt.Fprintf(os.Stderr, "queued single scan failed: %v\n", err)
		}
	}
}

// scanUnit is one (tenant, environment) pair to scan.
type scanUnit struct {
	target types.Target
}

// RunFullScan scans every target returned by the TargetProvider, with up to
// maxParallelTenants tenants running concurrently and each tenant's
// environments run sequentially.
func (o *Orchestrator) RunFullScan(ctx context.Context, trigger types.ScanTrigger, triggeredBy *string, maxParallelTenants int, scanAll bool) (*types.ScanLog, error) {
	targets, err := o.targets.Targets(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list targets: %v", types.ErrConfiguration, err)
	}
	return o.runScan(ctx, trigger, triggeredBy, maxParallelTenants, scanAll, targets)
}

// RunSingleScan scans one tenant, optionally restricted to one environment.
func (o *Orchestrator) RunSingleScan(ctx context.Context, tenantID int, environment *types.Environment, trigger types.ScanTrigger, triggeredBy *string, scanAll bool) (*types.ScanLog, error) {
	all, err := o.targets.Targets(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list targets: %v", types.ErrConfiguration, err)
	}
	var filtered []types.Target
	for _, t := range all {
		if t.TenantID != tenantID {
			continue
		}
		if environment != nil && t.Environment != *environment {
			continue
		}
		filtered = append(filtered, t)
	}
	return o.runScan(ctx, trigger, triggeredBy, 1, scanAll, filtered)
}

// runScan is the shared scatter-gather behind RunFullScan/RunSingleScan.
func (o *Orchestrator) runScan(ctx context.Context, trigger types.ScanTrigger, triggeredBy *string, maxParallelTenants int, scanAll bool, targets []types.Target) (*types.ScanLog, error) {
	if maxParallelTenants < 1 {
		maxParallelTenants = 1
	}

	// Scan bookkeeping writes survive cancellation: a cancelled scan still
	// records a terminal Failed ScanLog.
	persistCtx := context.WithoutCancel(ctx)

	log := &types.ScanLog{
		Status:      types.ScanStatusRunning,
		Trigger:     trigger,
		TriggeredBy: triggeredBy,
		StartedAt:   time.Now().UTC(),
	}
	logID, err := o.repo.CreateScanLog(persistCtx, log)
	if err != nil {
		return nil, fmt.Errorf("%w: create scan log: %v", types.ErrPersistence, err)
	}
	log.ID = logID

	byTenant := make(map[int][]types.Target)
	tenantOrder := make([]int, 0)
	for _, t := range targets {
		if _, ok := byTenant[t.TenantID]; !ok {
			tenantOrder = append(tenantOrder, t.TenantID)
		}
		byTenant[t.TenantID] = append(byTenant[t.TenantID], t)
	}

	var (
		totalObjectsScanned  atomic.Int64
		totalChangesDetected atomic.Int64
		totalErrors          atomic.Int64
		totalEnvironments    atomic.Int64
		errMu                sync.Mutex
	)
	appendError := func(line string) {
		errMu.Lock()
		defer errMu.Unlock()
		log.AppendError(line)
	}

	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := semaphore.NewWeighted(int64(maxParallelTenants))
	g, gctx := errgroup.WithContext(scanCtx)

	for _, tenantID := range tenantOrder {
		tenantTargets := byTenant[tenantID]
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return nil
			}
			defer sem.Release(1)

			for _, target := range tenantTargets {
				if gctx.Err() != nil {
					return nil
				}
				entry, err := o.scanOneTarget(gctx, logID, target, scanAll)
				if err != nil {
					appendError(fmt.Sprintf("%s/%s: %v", target.TenantCode, target.Environment, err))
					totalErrors.Add(1)
					continue
				}
				totalEnvironments.Add(1)
				totalObjectsScanned.Add(int64(entry.ObjectsFound))
				totalChangesDetected.Add(int64(entry.ObjectsNew + entry.ObjectsModified + entry.ObjectsDeleted))
				if !entry.Success {
					totalErrors.Add(1)
					if entry.ErrorMessage != nil {
						appendError(fmt.Sprintf("%s/%s: %s", target.TenantCode, target.Environment, *entry.ErrorMessage))
					}
				}
			}
			return nil
		})
	}

	groupErr := g.Wait()

	log.CompletedAt = ptrTime(time.Now().UTC())
	log.TotalTenants = len(tenantOrder)
	log.TotalEnvironments = int(totalEnvironments.Load())
	log.TotalObjectsScanned = int(totalObjectsScanned.Load())
	log.TotalChangesDetected = int(totalChangesDetected.Load())
	log.TotalErrors = int(totalErrors.Load())

	switch {
	case ctx.Err() != nil:
		log.Status = types.ScanStatusFailed
		errMu.Lock()
		cancelled := "Cancelled"
		log.ErrorSummary = &cancelled
		errMu.Unlock()
	case groupErr != nil:
		log.Status = types.ScanStatusFailed
		msg := groupErr.Error()
		log.ErrorSummary = &msg
	case log.TotalErrors == 0:
		log.Status = types.ScanStatusCompleted
	default:
		log.Status = types.ScanStatusCompletedWithErrors
	}

	if err := o.repo.UpdateScanLog(persistCtx, log); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to persist final scan log %d state: %v\n", log.ID, err)
	}

	o.deliverNotification(persistCtx, log)

	return log, nil
}

// scanOneTarget runs the per-target procedure: open the entry, connect,
// extract, read previous latest, bulk-insert, detect changes, close the
// entry with counts.
func (o *Orchestrator) scanOneTarget(ctx context.Context, scanLogID int64, target types.Target, scanAll bool) (*types.ScanLogEntry, error) {
	// Entry lifecycle writes survive cancellation so in-flight entries are
	// closed with an error message rather than left Running.
	persistCtx := context.WithoutCancel(ctx)

	entry := &types.ScanLogEntry{
		ScanLogID: scanLogID,
		Target:    target,
		StartedAt: time.Now().UTC(),
	}
	entryID, err := o.repo.CreateScanEntry(persistCtx, entry)
	if err != nil {
		return nil, fmt.Errorf("%w: create scan entry: %v", types.ErrPersistence, err)
	}
	entry.ID = entryID

	// One deadline over connect, extract and repository writes for this
	// target.
	targetCtx, cancel := context.WithTimeout(ctx, o.cfg.Scheduler.TargetDeadline())
	defer cancel()

	start := time.Now()
	finish := func(success bool, errMsg *string, found, newC, modC, delC int) (*types.ScanLogEntry, error) {
		entry.CompletedAt = ptrTime(time.Now().UTC())
		entry.Success = success
		entry.ErrorMessage = errMsg
		entry.ObjectsFound = found
		entry.ObjectsNew = newC
		entry.ObjectsModified = modC
		entry.ObjectsDeleted = delC
		entry.DurationSeconds = time.Since(start).Seconds()
		if updErr := o.repo.UpdateScanEntry(persistCtx, entry); updErr != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to persist scan entry %d: %v\n", entry.ID, updErr)
		}
		return entry, nil
	}

	rawConn, err := o.targets.ConnectionConfig(targetCtx, target)
	if err != nil {
		msg := fmt.Sprintf("configuration error: %v", err)
		return finish(false, &msg, 0, 0, 0, 0)
	}
	password, err := o.decryptor.Decrypt(targetCtx, rawConn.EncryptedPassword)
	if err != nil {
		msg := fmt.Sprintf("configuration error: decrypt credential: %v", err)
		return finish(false, &msg, 0, 0, 0, 0)
	}
	conn := contracts.ConnectionDescriptor{
		Target: target, Host: rawConn.Host, Port: rawConn.Port,
		Database: rawConn.Database, Username: rawConn.Username, Password: password,
	}

	connCtx, connCancel := context.WithTimeout(targetCtx, o.cfg.Scheduler.ConnectionTimeout())
	if _, err := o.extractor.TestConnection(connCtx, conn); err != nil {
		msg := targetErrorMessage(connCtx, err)
		connCancel()
		return finish(false, &msg, 0, 0, 0, 0)
	}
	connCancel()

	filter, err := buildInclusionFilter(targetCtx, o.tracked, target.TenantID, scanAll)
	if err != nil {
		msg := fmt.Sprintf("invariant error: build inclusion filter: %v", err)
		return finish(false, &msg, 0, 0, 0, 0)
	}
	customSet, err := customEntrySet(targetCtx, o.customRegs, target.TenantID)
	if err != nil {
		msg := fmt.Sprintf("invariant error: load custom registry: %v", err)
		return finish(false, &msg, 0, 0, 0, 0)
	}

	objects, err := o.extractor.ExtractAll(targetCtx, conn)
	if err != nil {
		msg := targetErrorMessage(targetCtx, err)
		return finish(false, &msg, 0, 0, 0, 0)
	}

	var includedObjects []types.ProgrammableObject
	isCustomByFullName := make(map[string]bool)
	for _, obj := range objects {
		custom := isCustomObject(customSet, obj.FullName(), obj.Name, target.TenantCode, o.cfg.CustomDetection.ByConvention)
		if !included(filter, obj.FullName(), custom) {
			continue
		}
		isCustomByFullName[types.NormalizeKey(obj.FullName())] = custom
		includedObjects = append(includedObjects, obj)
	}

	// Previous latest MUST be read before the bulk insert below; inserting
	// first would make the "latest" view contain the current scan and change
	// detection would never fire.
	previous, err := o.repo.LatestSnapshots(targetCtx, target.TenantID, target.Environment)
	if err != nil {
		msg := targetErrorMessage(targetCtx, fmt.Errorf("load previous snapshots: %w", err))
		return finish(false, &msg, len(includedObjects), 0, 0, 0)
	}

	now := time.Now().UTC()
	snapshots := make([]types.Snapshot, len(includedObjects))
	definitions := make([]string, len(includedObjects))
	for i, obj := range includedObjects {
		snapshots[i] = types.Snapshot{
			ScanLogID: scanLogID, Target: target, TenantName: target.TenantCode,
			Schema: obj.Schema, Name: obj.Name, FullName: obj.FullName(), Kind: obj.Kind,
			DefinitionHash: obj.DefinitionHash(), ObjectLastModified: obj.LastModified,
			SnapshotDate: now, IsCustom: isCustomByFullName[types.NormalizeKey(obj.FullName())],
		}
		definitions[i] = obj.Definition
	}

	inserted, err := o.repo.BulkInsertSnapshots(targetCtx, snapshots, definitions)
	if err != nil {
		msg := targetErrorMessage(targetCtx, fmt.Errorf("bulk insert snapshots: %w", err))
		return finish(false, &msg, len(includedObjects), 0, 0, 0)
	}

	previousNonCustom := filterNonCustom(previous)
	currentNonCustom := filterNonCustom(inserted)
	changes := detector.Detect(scanLogID, target, previousNonCustom, currentNonCustom, now)

	if len(changes) > 0 {
		if err := o.repo.BulkInsertChanges(targetCtx, changes); err != nil {
			msg := targetErrorMessage(targetCtx, fmt.Errorf("bulk insert changes: %w", err))
			return finish(false, &msg, len(includedObjects), 0, 0, 0)
		}
	}

	newC, modC, delC := 0, 0, 0
	for _, c := range changes {
		switch c.ChangeType {
		case types.ChangeCreated:
			newC++
		case types.ChangeModified:
			modC++
		case types.ChangeDeleted:
			delC++
		}
	}

	return finish(true, nil, len(includedObjects), newC, modC, delC)
}

func filterNonCustom(snapshots []types.Snapshot) []types.Snapshot {
	out := make([]types.Snapshot, 0, len(snapshots))
	for _, s := range snapshots {
		if !s.IsCustom {
			out = append(out, s)
		}
	}
	return out
}

// targetErrorMessage prefixes err with "Timeout" when the target's 90s
// deadline elapsed, or "Cancelled" when the whole scan was cancelled.
func targetErrorMessage(ctx context.Context, err error) string {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Sprintf("Timeout: %v", err)
	case ctx.Err() != nil:
		return fmt.Sprintf("Cancelled: %v", err)
	}
	return err.Error()
}

func ptrTime(t time.Time) *time.Time { return &t }

func (o *Orchestrator) deliverNotification(ctx context.Context, log *types.ScanLog) {
	entries, err := o.repo.ListScanEntries(ctx, log.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to load scan entries for notification: %v\n", err)
		return
	}
	pending, err := o.repo.PendingNotifications(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to load pending notifications: %v\n", err)
		return
	}
	if err := o.notifier.Notify(ctx, *log, entries, pending); err != nil {
		fmt.Fprintf(os.Stderr, "warning: notification delivery failed: %v\n", err)
		return
	}
	ids := make([]int64, len(pending))
	for i, c := range pending {
		ids[i] = c.ID
	}
	if len(ids) > 0 {
		if err := o.repo.MarkNotificationSent(ctx, ids); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to mark notifications sent: %v\n", err)
		}
	}
}

// compareDeadline bounds inline user-initiated comparison queries.
const compareDeadline = 20 * time.Second

// staleInstanceThreshold is how long an instance may miss heartbeats before
// another process marks it stopped; deletion of stopped rows is governed
// separately by InstanceCleanupConfig.
const staleInstanceThreshold = 5 * time.Minute

// CompareLive is the Comparator's Compare operation: diffs the latest
// snapshots of two targets. kindFilter, if non-empty, restricts emitted
// items to one kind code.
func (o *Orchestrator) CompareLive(ctx context.Context, a, b types.Target, kindFilter types.Kind) ([]comparator.ComparisonEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, compareDeadline)
	defer cancel()

	latestA, err := o.repo.LatestSnapshots(ctx, a.TenantID, a.Environment)
	if err != nil {
		return nil, err
	}
	latestB, err := o.repo.LatestSnapshots(ctx, b.TenantID, b.Environment)
	if err != nil {
		return nil, err
	}

	defsA, err := o.loadDefinitions(ctx, latestA)
	if err != nil {
		return nil, err
	}
	defsB, err := o.loadDefinitions(ctx, latestB)
	if err != nil {
		return nil, err
	}

	results := comparator.CompareDictionaries(comparator.ToDictionary(latestA, defsA), comparator.ToDictionary(latestB, defsB), nil, "")
	return filterByKind(results, kindFilter), nil
}

// CompareBaseline diffs a frozen baseline against the live latest snapshots
// of a target. The live side's custom objects are excluded, since a
// baseline holds only non-custom objects and they would otherwise all be
// reported as extra.
func (o *Orchestrator) CompareBaseline(ctx context.Context, baselineID int64, live types.Target, kindFilter types.Kind) ([]comparator.ComparisonEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, compareDeadline)
	defer cancel()

	baselineDict, err := o.repo.LoadBaselineWithDefinitions(ctx, baselineID)
	if err != nil {
		return nil, err
	}
	if len(baselineDict) == 0 {
		return nil, fmt.Errorf("%w: baseline %d has no objects", types.ErrNotFound, baselineID)
	}

	latest, err := o.repo.LatestSnapshots(ctx, live.TenantID, live.Environment)
	if err != nil {
		return nil, err
	}
	defs, err := o.loadDefinitions(ctx, latest)
	if err != nil {
		return nil, err
	}

	customSet, err := customEntrySet(ctx, o.customRegs, live.TenantID)
	if err != nil {
		return nil, err
	}
	tenantCode := ""
	if o.cfg.CustomDetection.ByConvention {
		tenantCode = live.TenantCode
	}

	results := comparator.CompareDictionaries(comparator.Dictionary(baselineDict), comparator.ToDictionary(latest, defs), customSet, tenantCode)
	return filterByKind(results, kindFilter), nil
}

func filterByKind(results []comparator.ComparisonEntry, kindFilter types.Kind) []comparator.ComparisonEntry {
	if kindFilter == "" {
		return results
	}
	filtered := make([]comparator.ComparisonEntry, 0, len(results))
	for _, r := range results {
		if r.Kind == kindFilter {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// DiffSnapshots renders a line diff between two stored snapshot
// definitions.
func (o *Orchestrator) DiffSnapshots(ctx context.Context, snapshotIDA, snapshotIDB int64) (comparator.DiffResult, error) {
	ctx, cancel := context.WithTimeout(ctx, compareDeadline)
	defer cancel()

	defA, err := o.repo.GetSnapshotDefinition(ctx, snapshotIDA)
	if err != nil {
		return comparator.DiffResult{}, fmt.Errorf("load snapshot %d definition: %w", snapshotIDA, err)
	}
	defB, err := o.repo.GetSnapshotDefinition(ctx, snapshotIDB)
	if err != nil {
		return comparator.DiffResult{}, fmt.Errorf("load snapshot %d definition: %w", snapshotIDB, err)
	}
	return comparator.Diff(fmt.Sprintf("snapshot-%d", snapshotIDA), fmt.Sprintf("snapshot-%d", snapshotIDB), defA, defB), nil
}

func (o *Orchestrator) loadDefinitions(ctx context.Context, snapshots []types.Snapshot) (map[int64]string, error) {
	defs := make(map[int64]string, len(snapshots))
	for _, s := range snapshots {
		def, err := o.repo.GetSnapshotDefinition(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		defs[s.ID] = def
	}
	return defs, nil
}
