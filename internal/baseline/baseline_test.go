package baseline_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentineldb/sentinel/internal/baseline"
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

func TestCreateFailsWithNoScanYet(t *testing.T) {
	repo := newTestRepo(t)
	mgr := baseline.New(repo)

	target := types.Target{TenantID: 1, TenantCode: "T1", Environment: types.EnvironmentProduction}
	_, _, err := mgr.Create(context.Background(), types.Baseline{Name: "Empty", Source: target})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInvariant)

	list, err := mgr.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateFreezesLatestSnapshots(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	target := types.Target{TenantID: 1, TenantCode: "T1", Environment: types.EnvironmentProduction}

	logID, err := repo.CreateScanLog(ctx, &types.ScanLog{Trigger: types.TriggerManual})
	require.NoError(t, err)
	_, err = repo.BulkInsertSnapshots(ctx, []types.Snapshot{
		{ScanLogID: logID, Target: target, FullName: "dbo.A", Schema: "dbo", Name: "A", Kind: types.KindView, DefinitionHash: "h1", SnapshotDate: time.Now().UTC()},
	}, []string{"def-a"})
	require.NoError(t, err)

	mgr := baseline.New(repo)
	b, count, err := mgr.Create(ctx, types.Baseline{Name: "V1", Source: target})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.NotZero(t, b.ID)

	dict, err := mgr.Dictionary(ctx, b.ID)
	require.NoError(t, err)
	require.Contains(t, dict, "dbo.a")
}
