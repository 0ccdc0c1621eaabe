// Package detector implements the Change Detector: a pure function that
// diffs a target's previous and current snapshot sets and reports created,
// modified and deleted objects.
package detector

import (
	"sort"
	"time"

	"github.com/sentineldb/sentinel/internal/types"
)

// Detect compares previous and current snapshot sets for one target, keyed
// case-insensitively by fullName, and returns the DetectedChange set.
//
// If previous is empty, Detect returns no changes: a baseline scan
// establishes history, it never emits changes. The first-seen case of each
// fullName is preserved in the emitted DetectedChange.
func Detect(scanLogID int64, target types.Target, previous, current []types.Snapshot, at time.Time) []types.DetectedChange {
	if len(previous) == 0 {
		return nil
	}

	prevByKey := make(map[string]types.Snapshot, len(previous))
	for _, s := range previous {
		prevByKey[types.NormalizeKey(s.FullName)] = s
	}
	currByKey := make(map[string]types.Snapshot, len(current))
	for _, s := range current {
		currByKey[types.NormalizeKey(s.FullName)] = s
	}

	var changes []types.DetectedChange

	for key, curr := range currByKey {
		prev, existed := prevByKey[key]
		if !existed {
			changes = append(changes, types.DetectedChange{
				ScanLogID:    scanLogID,
				Target:       target,
				FullName:     curr.FullName,
				Kind:         curr.Kind,
				ChangeType:   types.ChangeCreated,
				PreviousHash: nil,
				CurrentHash:  strPtr(curr.DefinitionHash),
				DetectedAt:   at,
			})
			continue
		}
		if prev.DefinitionHash != curr.DefinitionHash {
			changes = append(changes, types.DetectedChange{
				ScanLogID:    scanLogID,
				Target:       target,
				FullName:     prev.FullName,
				Kind:         curr.Kind,
				ChangeType:   types.ChangeModified,
				PreviousHash: strPtr(prev.DefinitionHash),
				CurrentHash:  strPtr(curr.DefinitionHash),
				DetectedAt:   at,
			})
		}
	}

	for key, prev := range prevByKey {
		if _, stillPresent := currByKey[key]; stillPresent {
			continue
		}
		changes = append(changes, types.DetectedChange{
			ScanLogID:    scanLogID,
			Target:       target,
			FullName:     prev.FullName,
			Kind:         prev.Kind,
			ChangeType:   types.ChangeDeleted,
			PreviousHash: strPtr(prev.DefinitionHash),
			CurrentHash:  nil,
			DetectedAt:   at,
		})
	}

	sort.Slice(changes, func(i, j int) bool {
		return types.NormalizeKey(changes[i].FullName) < types.NormalizeKey(changes[j].FullName)
	})

	return changes
}

func strPtr(s string) *string {
	return &s
}
