package handler

import (
	"context"

	"github.com/iconidentify/tokgrabba/internal/domain"
	"github.com/iconidentify/tokgrabba/internal/repository"
)

// mockRunRepository is a test implementation of repository.RunRepository.
type mockRunRepository struct {
	stats    *repository.RunStats
	statsErr error
	runs     []*domain.Run
	listErr  error

	lastStatus *domain.RunStatus
	lastLimit  int
}

func newMockRunRepository() *mockRunRepository {
	return &mockRunRepository{stats: &repository.RunStats{}}
}

func (m *mockRunRepository) Create(ctx context.Context, run *domain.Run) error {
	m.runs = append(m.runs, run)
	return nil
}

func (m *mockRunRepository) Update(ctx context.Context, run *domain.Run) error {
	return nil
}

func (m *mockRunRepository) Get(ctx context.Context, id domain.RunID) (*domain.Run, error) {
	for _, r := range m.runs {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, domain.ErrRunNotFound
}

func (m *mockRunRepository) List(ctx context.Context, status *domain.RunStatus, limit int) ([]*domain.Run, error) {
	m.lastStatus = status
	m.lastLimit = limit
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.runs, nil
}

func (m *mockRunRepository) Stats(ctx context.Context) (*repository.RunStats, error) {
	if m.statsErr != nil {
		return nil, m.statsErr
	}
	return m.stats, nil
}

type fakeTasks struct {
	active, failed int
}

func (f fakeTasks) Active() int { return f.active }
func (f fakeTasks) Failed() int { return f.failed }
