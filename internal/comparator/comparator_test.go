package comparator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentineldb/sentinel/internal/types"
)

func TestCompareDictionariesIdenticalDiffersOnlyLeftOnlyRight(t *testing.T) {
	left := Dictionary{
		"dbo.getuser":  {FullName: "dbo.GetUser", Kind: types.KindProcedure, DefinitionHash: "h1"},
		"dbo.getorder": {FullName: "dbo.GetOrder", Kind: types.KindProcedure, DefinitionHash: "h2"},
		"dbo.oldproc":  {FullName: "dbo.OldProc", Kind: types.KindProcedure, DefinitionHash: "h3"},
	}
	right := Dictionary{
		"dbo.getuser":  {FullName: "dbo.GetUser", Kind: types.KindProcedure, DefinitionHash: "h1"},
		"dbo.getorder": {FullName: "dbo.GetOrder", Kind: types.KindProcedure, DefinitionHash: "h2-changed"},
		"dbo.newproc":  {FullName: "dbo.NewProc", Kind: types.KindProcedure, DefinitionHash: "h4"},
	}

	results := CompareDictionaries(left, right, nil, "")
	require.Len(t, results, 4)

	byName := make(map[string]ComparisonEntry)
	for _, r := range results {
		byName[r.FullName] = r
	}

	assert.Equal(t, StatusIdentical, byName["dbo.GetUser"].Status)
	assert.Equal(t, StatusDiffers, byName["dbo.GetOrder"].Status)
	assert.Equal(t, StatusOnlyLeft, byName["dbo.OldProc"].Status)
	assert.Equal(t, StatusOnlyRight, byName["dbo.NewProc"].Status)
}

func TestCompareDictionariesSortedByStatusThenFullName(t *testing.T) {
	left := Dictionary{
		"dbo.zz": {FullName: "dbo.zz", DefinitionHash: "a"},
		"dbo.aa": {FullName: "dbo.aa", DefinitionHash: "b"},
	}
	results := CompareDictionaries(left, Dictionary{}, nil, "")
	require.Len(t, results, 2)
	assert.Equal(t, "dbo.aa", results[0].FullName)
	assert.Equal(t, "dbo.zz", results[1].FullName)

	mixed := CompareDictionaries(
		Dictionary{
			"dbo.same":    {FullName: "dbo.Same", DefinitionHash: "h1"},
			"dbo.changed": {FullName: "dbo.Changed", DefinitionHash: "h2"},
			"dbo.gone":    {FullName: "dbo.Gone", DefinitionHash: "h3"},
		},
		Dictionary{
			"dbo.same":    {FullName: "dbo.Same", DefinitionHash: "h1"},
			"dbo.changed": {FullName: "dbo.Changed", DefinitionHash: "h2x"},
		},
		nil, "")
	require.Len(t, mixed, 3)
	assert.Equal(t, StatusOnlyLeft, mixed[0].Status)
	assert.Equal(t, StatusDiffers, mixed[1].Status)
	assert.Equal(t, StatusIdentical, mixed[2].Status)
}

func TestCompareDictionariesExcludesCustomObjects(t *testing.T) {
	baseline := Dictionary{
		"dbo.shared": {FullName: "dbo.Shared", DefinitionHash: "h1"},
	}
	live := Dictionary{
		"dbo.shared":       {FullName: "dbo.Shared", DefinitionHash: "h1"},
		"dbo.acme_report":  {FullName: "dbo.ACME_Report", DefinitionHash: "h2"},
		"dbo.registered":   {FullName: "dbo.Registered", DefinitionHash: "h3"},
		"dbo.trulyshared2": {FullName: "dbo.TrulyShared2", DefinitionHash: "h4"},
	}

	results := CompareDictionaries(baseline, live, map[string]bool{"dbo.registered": true}, "ACME")
	require.Len(t, results, 2)

	byName := make(map[string]ComparisonEntry)
	for _, r := range results {
		byName[r.FullName] = r
	}
	assert.Equal(t, StatusIdentical, byName["dbo.Shared"].Status)
	assert.Equal(t, StatusOnlyRight, byName["dbo.TrulyShared2"].Status)
}

func TestDiffCountsAddedAndRemovedLines(t *testing.T) {
	left := "CREATE PROCEDURE dbo.GetUser\nAS\nSELECT 1\n"
	right := "CREATE PROCEDURE dbo.GetUser\nAS\nSELECT 2\nRETURN\n"
	res := Diff("baseline", "current", left, right)
	assert.Equal(t, 2, res.AddedLines)
	assert.Equal(t, 1, res.RemovedLines)
	assert.Contains(t, res.Unified, "-SELECT 1")
	assert.Contains(t, res.Unified, "+SELECT 2")
}

func TestDiffNormalizesBeforeComparing(t *testing.T) {
	left := "CREATE VIEW dbo.V AS\r\nSELECT 1   \r\n\r\n"
	right := "CREATE VIEW dbo.V AS\nSELECT 1\n"
	res := Diff("a", "b", left, right)
	assert.Zero(t, res.AddedLines)
	assert.Zero(t, res.RemovedLines)
	assert.NotContains(t, res.Unified, "@@")
}
