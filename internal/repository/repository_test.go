package repository_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentineldb/sentinel/internal/repository"
	"github.com/sentineldb/sentinel/internal/types"
)

func newTestRepo(t *testing.T) repository.Repository {
	t.Helper()
	cfg := repository.DefaultConfig()
	cfg.Path = filepath.Join(t.TempDir(), "sentinel-test.db")
	repo, err := repository.New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestBulkInsertSnapshotsLatestMonotonicity(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	logID, err := repo.CreateScanLog(ctx, &types.ScanLog{Trigger: types.TriggerManual})
	require.NoError(t, err)

	target := types.Target{TenantID: 1, TenantCode: "T1", Environment: types.EnvironmentDevelopment}
	snapshots := []types.Snapshot{
		{ScanLogID: logID, Target: target, FullName: "dbo.GetUser", Schema: "dbo", Name: "GetUser", Kind: types.KindProcedure, DefinitionHash: "h1", SnapshotDate: time.Now().UTC()},
	}
	out, err := repo.BulkInsertSnapshots(ctx, snapshots, []string{"CREATE PROC dbo.GetUser AS SELECT 1"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.NotZero(t, out[0].ID)

	latest, err := repo.LatestSnapshots(ctx, 1, types.EnvironmentDevelopment)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "dbo.GetUser", latest[0].FullName)

	def, err := repo.GetSnapshotDefinition(ctx, latest[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "CREATE PROC dbo.GetUser AS SELECT 1", def)
}

func TestBulkInsertSnapshotsMismatchedLengthsIsInvariantError(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	_, err := repo.BulkInsertSnapshots(ctx, []types.Snapshot{{}}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInvariant)
}

func TestCreateBaselineDuplicateNameCaseInsensitiveRejected(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	source := types.Target{TenantID: 1, TenantCode: "T1", Environment: types.EnvironmentProduction}

	_, err := repo.CreateBaseline(ctx, &types.Baseline{Name: "Release-1", Source: source})
	require.NoError(t, err)

	_, err = repo.CreateBaseline(ctx, &types.Baseline{Name: "release-1", Source: source})
	require.Error(t, err)
}

func TestFreezeBaselineFromLatestExcludesCustomObjects(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	logID, err := repo.CreateScanLog(ctx, &types.ScanLog{Trigger: types.TriggerManual})
	require.NoError(t, err)

	target := types.Target{TenantID: 2, TenantCode: "T2", Environment: types.EnvironmentProduction}
	snapshots := []types.Snapshot{
		{ScanLogID: logID, Target: target, FullName: "dbo.Shared", Schema: "dbo", Name: "Shared", Kind: types.KindView, DefinitionHash: "h1", SnapshotDate: time.Now().UTC(), IsCustom: false},
		{ScanLogID: logID, Target: target, FullName: "dbo.T2Custom", Schema: "dbo", Name: "T2Custom", Kind: types.KindView, DefinitionHash: "h2", SnapshotDate: time.Now().UTC(), IsCustom: true},
	}
	_, err = repo.BulkInsertSnapshots(ctx, snapshots, []string{"def1", "def2"})
	require.NoError(t, err)

	baselineID, err := repo.CreateBaseline(ctx, &types.Baseline{Name: "V1", Source: target})
	require.NoError(t, err)

	count, err := repo.FreezeBaselineFromLatest(ctx, baselineID, target.TenantID, target.Environment)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	objects, err := repo.ListBaselineObjects(ctx, baselineID)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "dbo.Shared", objects[0].FullName)

	def, err := repo.GetBaselineObjectDefinition(ctx, objects[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "def1", def)
}

func TestMarkNotificationSentClearsPending(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	logID, err := repo.CreateScanLog(ctx, &types.ScanLog{Trigger: types.TriggerManual})
	require.NoError(t, err)

	target := types.Target{TenantID: 3, TenantCode: "T3", Environment: types.EnvironmentStaging}
	require.NoError(t, repo.BulkInsertChanges(ctx, []types.DetectedChange{
		{ScanLogID: logID, Target: target, FullName: "dbo.New", Kind: types.KindProcedure, ChangeType: types.ChangeCreated, DetectedAt: time.Now().UTC()},
	}))

	pending, err := repo.PendingNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, repo.MarkNotificationSent(ctx, []int64{pending[0].ID}))

	pending, err = repo.PendingNotifications(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestPruneScanLogsRespectsStatusCutoffs(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	oldCompleted, err := repo.CreateScanLog(ctx, &types.ScanLog{
		StartedAt: now.Add(-60 * 24 * time.Hour), Status: types.ScanStatusCompleted, Trigger: types.TriggerManual,
	})
	require.NoError(t, err)

	oldFailed, err := repo.CreateScanLog(ctx, &types.ScanLog{
		StartedAt: now.Add(-60 * 24 * time.Hour), Status: types.ScanStatusFailed, Trigger: types.TriggerManual,
	})
	require.NoError(t, err)

	recentCompleted, err := repo.CreateScanLog(ctx, &types.ScanLog{
		StartedAt: now.Add(-1 * time.Hour), Status: types.ScanStatusCompleted, Trigger: types.TriggerManual,
	})
	require.NoError(t, err)

	// regularCutoff of 30 days catches oldCompleted but not oldFailed, whose
	// criticalCutoff grace period of 120 days hasn't elapsed yet.
	deleted, err := repo.PruneScanLogs(ctx, now.Add(-30*24*time.Hour), now.Add(-120*24*time.Hour), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	gone, err := repo.GetScanLog(ctx, oldCompleted)
	require.NoError(t, err)
	assert.Nil(t, gone)
	kept, err := repo.GetScanLog(ctx, oldFailed)
	require.NoError(t, err)
	assert.NotNil(t, kept)
	kept, err = repo.GetScanLog(ctx, recentCompleted)
	require.NoError(t, err)
	assert.NotNil(t, kept)
}

func TestPruneOldestScanLogsEnforcesGlobalLimit(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	var ids []int64
	for i := 0; i < 5; i++ {
		id, err := repo.CreateScanLog(ctx, &types.ScanLog{
			StartedAt: now.Add(time.Duration(i) * time.Hour), Status: types.ScanStatusCompleted, Trigger: types.TriggerManual,
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	count, err := repo.CountScanLogs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	deleted, err := repo.PruneOldestScanLogs(ctx, 3, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	count, err = repo.CountScanLogs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	gone, err := repo.GetScanLog(ctx, ids[0])
	require.NoError(t, err)
	assert.Nil(t, gone)
	gone, err = repo.GetScanLog(ctx, ids[1])
	require.NoError(t, err)
	assert.Nil(t, gone)
	kept, err := repo.GetScanLog(ctx, ids[4])
	require.NoError(t, err)
	assert.NotNil(t, kept)

	require.NoError(t, repo.Vacuum(ctx))
}

func TestInstanceCleanupMarksStaleThenDeletesWithKeepFloor(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.RegisterInstance(ctx, "inst-a", "host1", 100, "dev"))
	require.NoError(t, repo.RegisterInstance(ctx, "inst-b", "host1", 101, "dev"))
	require.NoError(t, repo.RegisterInstance(ctx, "inst-c", "host2", 102, "dev"))

	time.Sleep(50 * time.Millisecond)

	marked, err := repo.CleanupStaleInstances(ctx, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 3, marked)

	require.NoError(t, repo.RegisterInstance(ctx, "inst-live", "host3", 103, "dev"))

	deleted, err := repo.DeleteOldStoppedInstances(ctx, 10*time.Millisecond, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	active, err := repo.GetActiveInstances(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "inst-live", active[0].InstanceID)
}

func TestDeleteOldStoppedInstancesRejectsBadArguments(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.DeleteOldStoppedInstances(ctx, 0, 10)
	assert.ErrorIs(t, err, types.ErrInvariant)

	_, err = repo.DeleteOldStoppedInstances(ctx, time.Hour, -1)
	assert.ErrorIs(t, err, types.ErrInvariant)
}
