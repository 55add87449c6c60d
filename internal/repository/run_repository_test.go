package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/iconidentify/tokgrabba/internal/domain"
)

func newRun(id string) *domain.Run {
	return domain.NewRun(domain.RunID(id), domain.Link{
		URL:       "https://www.tiktok.com/t/" + id + "/",
		MessageID: domain.MessageID("msg-" + id),
		ChannelID: "chan",
	})
}

func TestInMemoryRunRepository_CreateGet(t *testing.T) {
	repo := NewInMemoryRunRepository(10)
	ctx := context.Background()

	run := newRun("a")
	if err := repo.Create(ctx, run); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.MessageID != "msg-a" || got.Status != domain.RunStatusRunning {
		t.Errorf("unexpected run: %+v", got)
	}

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, domain.ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestInMemoryRunRepository_CopiesState(t *testing.T) {
	repo := NewInMemoryRunRepository(10)
	ctx := context.Background()

	run := newRun("a")
	repo.Create(ctx, run)

	run.Finish(domain.Delivered())
	got, _ := repo.Get(ctx, "a")
	if got.Status != domain.RunStatusRunning {
		t.Error("mutating the caller's run must not change the stored copy")
	}

	got.Status = domain.RunStatusFailed
	again, _ := repo.Get(ctx, "a")
	if again.Status != domain.RunStatusRunning {
		t.Error("mutating a returned run must not change the stored copy")
	}
}

func TestInMemoryRunRepository_Update(t *testing.T) {
	repo := NewInMemoryRunRepository(10)
	ctx := context.Background()

	run := newRun("a")
	repo.Create(ctx, run)

	run.Finish(domain.TooLarge())
	if err := repo.Update(ctx, run); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, _ := repo.Get(ctx, "a")
	if got.Status != domain.RunStatusRejected {
		t.Errorf("Status = %s, want rejected", got.Status)
	}
	if got.FinishedAt == nil {
		t.Error("FinishedAt should be set")
	}

	if err := repo.Update(ctx, newRun("ghost")); !errors.Is(err, domain.ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestInMemoryRunRepository_List(t *testing.T) {
	repo := NewInMemoryRunRepository(10)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		repo.Create(ctx, newRun(id))
	}
	b, _ := repo.Get(ctx, "b")
	b.Finish(domain.Delivered())
	repo.Update(ctx, b)

	all, err := repo.List(ctx, nil, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 || all[0].ID != "c" || all[2].ID != "a" {
		t.Errorf("expected newest first [c b a], got %v", ids(all))
	}

	limited, _ := repo.List(ctx, nil, 2)
	if len(limited) != 2 {
		t.Errorf("len = %d, want 2", len(limited))
	}

	status := domain.RunStatusDelivered
	delivered, _ := repo.List(ctx, &status, 0)
	if len(delivered) != 1 || delivered[0].ID != "b" {
		t.Errorf("filtered list = %v, want [b]", ids(delivered))
	}
}

func TestInMemoryRunRepository_Stats(t *testing.T) {
	repo := NewInMemoryRunRepository(10)
	ctx := context.Background()

	outcomes := map[string]func(*domain.Run){
		"d": func(r *domain.Run) { r.Finish(domain.Delivered()) },
		"r": func(r *domain.Run) { r.Finish(domain.TooLarge()) },
		"f": func(r *domain.Run) { r.Finish(domain.Failed(domain.ErrNotFound)) },
		"x": func(r *domain.Run) { r.Abort(domain.ErrFetchFailed) },
		"p": func(r *domain.Run) {},
	}
	for id, apply := range outcomes {
		run := newRun(id)
		repo.Create(ctx, run)
		apply(run)
		repo.Update(ctx, run)
	}

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Running != 1 || stats.Delivered != 1 || stats.Rejected != 1 || stats.Failed != 1 || stats.Aborted != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestInMemoryRunRepository_EvictsOldestFinished(t *testing.T) {
	repo := NewInMemoryRunRepository(3)
	ctx := context.Background()

	// "a" stays running and must survive eviction.
	repo.Create(ctx, newRun("a"))
	for i := 0; i < 4; i++ {
		run := newRun(fmt.Sprintf("done%d", i))
		run.Finish(domain.Delivered())
		repo.Create(ctx, run)
	}

	all, _ := repo.List(ctx, nil, 0)
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3: %v", len(all), ids(all))
	}
	if _, err := repo.Get(ctx, "a"); err != nil {
		t.Error("running run should not be evicted")
	}
	if _, err := repo.Get(ctx, "done0"); !errors.Is(err, domain.ErrRunNotFound) {
		t.Error("oldest finished run should be evicted")
	}

	stats, _ := repo.Stats(ctx)
	if stats.Evicted != 2 {
		t.Errorf("Evicted = %d, want 2", stats.Evicted)
	}
}

func TestInMemoryRunRepository_Clear(t *testing.T) {
	repo := NewInMemoryRunRepository(0)
	ctx := context.Background()

	repo.Create(ctx, newRun("a"))
	repo.Clear()

	all, _ := repo.List(ctx, nil, 0)
	if len(all) != 0 {
		t.Errorf("expected empty repository, got %v", ids(all))
	}
}

func ids(runs []*domain.Run) []domain.RunID {
	out := make([]domain.RunID, len(runs))
	for i, r := range runs {
		out[i] = r.ID
	}
	return out
}
