package repository

import (
	"context"

	"github.com/iconidentify/tokgrabba/internal/domain"
)

// RunRepository records pipeline runs for the ops API.
type RunRepository interface {
	// Create stores a new run.
	Create(ctx context.Context, run *domain.Run) error

	// Update replaces the stored state of an existing run.
	Update(ctx context.Context, run *domain.Run) error

	// Get retrieves a run by ID.
	Get(ctx context.Context, id domain.RunID) (*domain.Run, error)

	// List returns up to limit runs, most recently started first.
	List(ctx context.Context, status *domain.RunStatus, limit int) ([]*domain.Run, error)

	// Stats returns counts per run status.
	Stats(ctx context.Context) (*RunStats, error)
}

// RunStats contains run counts.
type RunStats struct {
	Running   int `json:"running"`
	Delivered int `json:"delivered"`
	Rejected  int `json:"rejected"`
	Failed    int `json:"failed"`
	Aborted   int `json:"aborted"`
	// Evicted counts finished runs dropped to honor the capacity.
	Evicted int `json:"evicted"`
}
