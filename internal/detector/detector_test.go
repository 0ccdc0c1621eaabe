package detector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentineldb/sentinel/internal/types"
)

var target = types.Target{TenantID: 1, TenantCode: "ACME", Environment: types.EnvironmentProduction}

func snap(fullName, hash string) types.Snapshot {
	return types.Snapshot{FullName: fullName, DefinitionHash: hash, Kind: types.KindProcedure}
}

func TestDetectBaselineScanRuleEmptyPrevious(t *testing.T) {
	current := []types.Snapshot{snap("dbo.A", "h1"), snap("dbo.B", "h2")}
	changes := Detect(1, target, nil, current, time.Now())
	assert.Empty(t, changes, "baseline scan (empty previous) must never emit changes")
}

func TestDetectCreatedAndModified(t *testing.T) {
	previous := []types.Snapshot{snap("dbo.A", "h1"), snap("dbo.B", "h2")}
	current := []types.Snapshot{snap("dbo.A", "h1"), snap("dbo.B", "h3"), snap("dbo.C", "h4")}

	changes := Detect(1, target, previous, current, time.Now())
	require.Len(t, changes, 2)

	byName := map[string]types.DetectedChange{}
	for _, c := range changes {
		byName[c.FullName] = c
	}

	modified, ok := byName["dbo.B"]
	require.True(t, ok)
	assert.Equal(t, types.ChangeModified, modified.ChangeType)
	require.NotNil(t, modified.PreviousHash)
	require.NotNil(t, modified.CurrentHash)
	assert.Equal(t, "h2", *modified.PreviousHash)
	assert.Equal(t, "h3", *modified.CurrentHash)

	created, ok := byName["dbo.C"]
	require.True(t, ok)
	assert.Equal(t, types.ChangeCreated, created.ChangeType)
	assert.Nil(t, created.PreviousHash)
	require.NotNil(t, created.CurrentHash)
	assert.Equal(t, "h4", *created.CurrentHash)

	_, stillPresent := byName["dbo.A"]
	assert.False(t, stillPresent, "unchanged object must not produce a DetectedChange")
}

func TestDetectDeleted(t *testing.T) {
	previous := []types.Snapshot{snap("dbo.A", "h1")}
	current := []types.Snapshot{}

	changes := Detect(1, target, previous, current, time.Now())
	require.Len(t, changes, 1)
	assert.Equal(t, types.ChangeDeleted, changes[0].ChangeType)
	assert.Equal(t, "dbo.A", changes[0].FullName)
	require.NotNil(t, changes[0].PreviousHash)
	assert.Equal(t, "h1", *changes[0].PreviousHash)
	assert.Nil(t, changes[0].CurrentHash)
}

func TestDetectCaseInsensitiveKeyFirstSeenCasePreserved(t *testing.T) {
	previous := []types.Snapshot{snap("dbo.GetUser", "h1")}
	current := []types.Snapshot{snap("DBO.GETUSER", "h2")}

	changes := Detect(1, target, previous, current, time.Now())
	require.Len(t, changes, 1)
	assert.Equal(t, types.ChangeModified, changes[0].ChangeType)
	assert.Equal(t, "dbo.GetUser", changes[0].FullName, "first-seen (previous) case must be preserved")
}

func TestDetectIdempotentOrderIndependent(t *testing.T) {
	previous := []types.Snapshot{snap("dbo.A", "h1"), snap("dbo.B", "h2")}
	current := []types.Snapshot{snap("dbo.B", "h3"), snap("dbo.C", "h4")}

	first := Detect(1, target, previous, current, time.Now())
	second := Detect(1, target, previous, current, time.Now())
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].FullName, second[i].FullName)
		assert.Equal(t, first[i].ChangeType, second[i].ChangeType)
	}
}
