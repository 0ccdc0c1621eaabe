// Package comparator compares programmable object definitions, either two
// live targets against each other or a target against a frozen baseline,
// and renders unified diffs for objects that differ.
package comparator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"

	"github.com/sentineldb/sentinel/internal/types"
)

// EntryStatus is the outcome of comparing one fullName across two
// dictionaries.
type EntryStatus string

const (
	StatusIdentical EntryStatus = "Identical"
	StatusDiffers   EntryStatus = "Differs"
	StatusOnlyLeft  EntryStatus = "OnlyInLeft"
	StatusOnlyRight EntryStatus = "OnlyInRight"
)

// ComparisonEntry is one row of a comparison result.
type ComparisonEntry struct {
	FullName  string
	Kind      types.Kind
	Status    EntryStatus
	LeftHash  string
	RightHash string
}

// Dictionary maps a normalized fullName to its hash/kind/definition, the
// shape both LatestSnapshots-derived and baseline-derived inputs are
// reduced to before comparison.
type Dictionary map[string]types.BaselineEntry

// CompareDictionaries compares two dictionaries entry by entry, keyed by
// case-insensitive fullName, and returns one ComparisonEntry per distinct
// key present in either side, sorted by (status, fullName).
//
// customSet and tenantCode exclude tenant-custom objects from the result,
// for baseline-vs-live comparisons where the left side (a frozen baseline)
// holds only non-custom objects and the live side would otherwise report
// every custom object as OnlyInRight. Pass nil and "" to compare the
// dictionaries as-is.
func CompareDictionaries(left, right Dictionary, customSet map[string]bool, tenantCode string) []ComparisonEntry {
	seen := make(map[string]bool, len(left)+len(right))
	var results []ComparisonEntry

	for key, l := range left {
		if isCustomKey(key, customSet, tenantCode) {
			continue
		}
		seen[key] = true
		r, ok := right[key]
		entry := ComparisonEntry{FullName: l.FullName, Kind: l.Kind, LeftHash: l.DefinitionHash}
		if !ok {
			entry.Status = StatusOnlyLeft
		} else {
			entry.RightHash = r.DefinitionHash
			if l.DefinitionHash == r.DefinitionHash {
				entry.Status = StatusIdentical
			} else {
				entry.Status = StatusDiffers
			}
		}
		results = append(results, entry)
	}

	for key, r := range right {
		if seen[key] || isCustomKey(key, customSet, tenantCode) {
			continue
		}
		results = append(results, ComparisonEntry{
			FullName:  r.FullName,
			Kind:      r.Kind,
			Status:    StatusOnlyRight,
			RightHash: r.DefinitionHash,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Status != results[j].Status {
			return statusRank[results[i].Status] < statusRank[results[j].Status]
		}
		return types.NormalizeKey(results[i].FullName) < types.NormalizeKey(results[j].FullName)
	})
	return results
}

// statusRank fixes the status component of the (status, fullName) result
// ordering; the literal status strings do not sort usefully on their own.
var statusRank = map[EntryStatus]int{
	StatusOnlyLeft:  0,
	StatusOnlyRight: 1,
	StatusDiffers:   2,
	StatusIdentical: 3,
}

// isCustomKey reports whether a normalized dictionary key refers to a
// tenant-custom object: listed in customSet, or (when tenantCode is
// non-empty) its unqualified name contains the tenant code.
func isCustomKey(key string, customSet map[string]bool, tenantCode string) bool {
	if customSet[key] {
		return true
	}
	if tenantCode == "" {
		return false
	}
	name := key
	if i := strings.LastIndex(key, "."); i >= 0 {
		name = key[i+1:]
	}
	return strings.Contains(name, strings.ToLower(tenantCode))
}

// DiffResult is the outcome of a line diff between two definitions: the
// added/removed line counts and the unified-diff text as the renderable
// artifact.
type DiffResult struct {
	AddedLines   int
	RemovedLines int
	Unified      string
}

// Diff normalizes both definition texts, computes a Myers line diff and
// returns the added/removed line counts together with the rendered unified
// diff, labeled with the two target/baseline descriptions supplied by the
// caller.
func Diff(leftLabel, rightLabel, leftText, rightText string) DiffResult {
	left := types.NormalizeDefinition(leftText)
	right := types.NormalizeDefinition(rightText)
	if left != "" {
		left += "\n"
	}
	if right != "" {
		right += "\n"
	}

	edits := myers.ComputeEdits(span.URIFromPath(leftLabel), left, right)
	unified := gotextdiff.ToUnified(leftLabel, rightLabel, left, edits)

	var added, removed int
	for _, hunk := range unified.Hunks {
		for _, line := range hunk.Lines {
			switch line.Kind {
			case gotextdiff.Insert:
				added++
			case gotextdiff.Delete:
				removed++
			}
		}
	}
	return DiffResult{AddedLines: added, RemovedLines: removed, Unified: fmt.Sprint(unified)}
}

// ToDictionary reduces a slice of Snapshots (with their definitions already
// loaded) into a Dictionary keyed by normalized fullName.
func ToDictionary(snapshots []types.Snapshot, definitions map[int64]string) Dictionary {
	d := make(Dictionary, len(snapshots))
	for _, snap := range snapshots {
		d[types.NormalizeKey(snap.FullName)] = types.BaselineEntry{
			FullName:       snap.FullName,
			Kind:           snap.Kind,
			DefinitionHash: snap.DefinitionHash,
			Definition:     definitions[snap.ID],
		}
	}
	return d
}
