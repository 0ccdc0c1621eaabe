package orchestrator

import (
	"context"
	"strings"

	"github.com/sentineldb/sentinel/internal/types"
)

// buildInclusionFilter returns the per-tenant base-object filter: nil means
// "scan everything" (empty global registry, or scanAll requested).
// Otherwise the filter is the union of global entries (TenantID == nil) and
// entries scoped to tenantID, keyed case-insensitively.
func buildInclusionFilter(ctx context.Context, registry KeyRegistry, tenantID int, scanAll bool) (map[string]bool, error) {
	if scanAll || registry == nil {
		return nil, nil
	}

	entries, err := registry.Entries(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	// A populated registry with no entries for this tenant yields an empty
	// (non-nil) filter: only custom objects are admitted, not everything.
	filter := make(map[string]bool)
	for _, e := range entries {
		if e.TenantID == nil || *e.TenantID == tenantID {
			filter[types.NormalizeKey(e.FullName)] = true
		}
	}
	return filter, nil
}

// included reports whether obj passes the inclusion filter: every object
// passes a nil filter; a non-nil filter additionally always admits custom
// objects regardless of membership.
func included(filter map[string]bool, fullName string, isCustom bool) bool {
	if filter == nil || isCustom {
		return true
	}
	return filter[types.NormalizeKey(fullName)]
}

// isCustomObject implements the custom-by-convention rule: an object is
// custom if its fullName is in the tenant's custom registry, or (when
// byConvention is enabled) its unqualified name contains the tenant's short
// code, case-insensitive. A short or common tenant code will over-match;
// this is documented source behavior, not a defect to silently work around.
func isCustomObject(customEntries map[string]bool, fullName, objectName, tenantCode string, byConvention bool) bool {
	if customEntries[types.NormalizeKey(fullName)] {
		return true
	}
	if byConvention && tenantCode != "" {
		return strings.Contains(strings.ToLower(objectName), strings.ToLower(tenantCode))
	}
	return false
}

// customEntrySet reduces a KeyRegistry into the fast-lookup set
// isCustomObject expects, scoped to one tenant (global + tenant-specific
// entries).
func customEntrySet(ctx context.Context, registry KeyRegistry, tenantID int) (map[string]bool, error) {
	if registry == nil {
		return nil, nil
	}
	entries, err := registry.Entries(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.TenantID == nil || *e.TenantID == tenantID {
			set[types.NormalizeKey(e.FullName)] = true
		}
	}
	return set, nil
}
