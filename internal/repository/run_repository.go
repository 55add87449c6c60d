package repository

import (
	"context"
	"sync"

	"github.com/iconidentify/tokgrabba/internal/domain"
)

// DefaultCapacity is the number of runs kept when no capacity is given.
const DefaultCapacity = 500

// InMemoryRunRepository implements RunRepository using in-memory storage.
// Runs are copied on the way in and out so callers never share state.
// Once more than capacity runs are stored the oldest finished ones are dropped.
type InMemoryRunRepository struct {
	mu       sync.RWMutex
	runs     map[domain.RunID]*domain.Run
	order    []domain.RunID // oldest first
	capacity int
	evicted  int
}

// NewInMemoryRunRepository creates a new in-memory run repository.
func NewInMemoryRunRepository(capacity int) *InMemoryRunRepository {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &InMemoryRunRepository{
		runs:     make(map[domain.RunID]*domain.Run),
		order:    make([]domain.RunID, 0),
		capacity: capacity,
	}
}

// Create stores a new run.
func (r *InMemoryRunRepository) Create(ctx context.Context, run *domain.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runs[run.ID]; !ok {
		r.order = append(r.order, run.ID)
	}
	r.runs[run.ID] = clone(run)
	r.evictLocked()

	return nil
}

// Update replaces the stored state of an existing run.
func (r *InMemoryRunRepository) Update(ctx context.Context, run *domain.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runs[run.ID]; !ok {
		return domain.ErrRunNotFound
	}

	r.runs[run.ID] = clone(run)
	r.evictLocked()

	return nil
}

// Get retrieves a run by ID.
func (r *InMemoryRunRepository) Get(ctx context.Context, id domain.RunID) (*domain.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[id]
	if !ok {
		return nil, domain.ErrRunNotFound
	}

	return clone(run), nil
}

// List returns up to limit runs, most recently started first, optionally
// filtered by status. A limit <= 0 returns every match.
func (r *InMemoryRunRepository) List(ctx context.Context, status *domain.RunStatus, limit int) ([]*domain.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Run, 0)
	for i := len(r.order) - 1; i >= 0; i-- {
		run := r.runs[r.order[i]]
		if status != nil && run.Status != *status {
			continue
		}
		result = append(result, clone(run))
		if limit > 0 && len(result) == limit {
			break
		}
	}

	return result, nil
}

// Stats returns counts per run status.
func (r *InMemoryRunRepository) Stats(ctx context.Context) (*RunStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &RunStats{Evicted: r.evicted}
	for _, run := range r.runs {
		switch run.Status {
		case domain.RunStatusRunning:
			stats.Running++
		case domain.RunStatusDelivered:
			stats.Delivered++
		case domain.RunStatusRejected:
			stats.Rejected++
		case domain.RunStatusFailed:
			stats.Failed++
		case domain.RunStatusAborted:
			stats.Aborted++
		}
	}

	return stats, nil
}

// Clear removes all runs (useful for testing).
func (r *InMemoryRunRepository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.runs = make(map[domain.RunID]*domain.Run)
	r.order = make([]domain.RunID, 0)
	r.evicted = 0
}

// evictLocked drops the oldest finished runs while over capacity. Running
// runs are never dropped.
func (r *InMemoryRunRepository) evictLocked() {
	excess := len(r.order) - r.capacity
	if excess <= 0 {
		return
	}

	kept := r.order[:0]
	for _, id := range r.order {
		if excess > 0 && r.runs[id].Done() {
			delete(r.runs, id)
			r.evicted++
			excess--
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
}

func clone(run *domain.Run) *domain.Run {
	c := *run
	if run.FinishedAt != nil {
		t := *run.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}
