// Package baseline manages named, immutable frozen copies of a target's
// latest non-custom snapshots.
package baseline

import (
	"context"
	"fmt"

	"github.com/sentineldb/sentinel/internal/repository"
	"github.com/sentineldb/sentinel/internal/types"
)

// Manager wraps the repository's baseline operations with the create
// sequence's "no snapshots yet" rollback policy.
type Manager struct {
	repo repository.Repository
}

// New builds a Manager over the given repository.
func New(repo repository.Repository) *Manager {
	return &Manager{repo: repo}
}

// Create inserts a Baseline and freezes it from meta.Source's latest
// snapshots. If the target has no snapshots yet (objectCount == 0), the
// just-created Baseline is deleted and an error is returned instructing the
// caller to scan first.
func (m *Manager) Create(ctx context.Context, meta types.Baseline) (*types.Baseline, int, error) {
	id, err := m.repo.CreateBaseline(ctx, &meta)
	if err != nil {
		return nil, 0, err
	}

	count, err := m.repo.FreezeBaselineFromLatest(ctx, id, meta.Source.TenantID, meta.Source.Environment)
	if err != nil {
		return nil, 0, err
	}

	if count == 0 {
		if delErr := m.repo.DeleteBaseline(ctx, id); delErr != nil {
			return nil, 0, fmt.Errorf("%w: rollback empty baseline %d: %v", types.ErrPersistence, id, delErr)
		}
		return nil, 0, fmt.Errorf("%w: no snapshots for tenant %d/%s; run a scan first", types.ErrInvariant, meta.Source.TenantID, meta.Source.Environment)
	}

	meta.ID = id
	meta.TotalObjects = count
	return &meta, count, nil
}

// List returns every Baseline, newest first.
func (m *Manager) List(ctx context.Context) ([]types.Baseline, error) {
	return m.repo.ListBaselines(ctx)
}

// Get returns a Baseline by id.
func (m *Manager) Get(ctx context.Context, id int64) (*types.Baseline, error) {
	b, err := m.repo.GetBaseline(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("%w: baseline %d", types.ErrNotFound, id)
	}
	return b, nil
}

// Delete removes a Baseline and cascades to its objects and definitions.
func (m *Manager) Delete(ctx context.Context, id int64) error {
	return m.repo.DeleteBaseline(ctx, id)
}

// Dictionary loads a baseline's objects keyed for comparator.CompareDictionaries.
func (m *Manager) Dictionary(ctx context.Context, id int64) (map[string]types.BaselineEntry, error) {
	return m.repo.LoadBaselineWithDefinitions(ctx, id)
}
