package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashureev/edupath/internal/domain"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return repo
}

func testProcess(id, userID string) *domain.ProcessInstance {
	now := time.Now().Truncate(time.Second)
	return &domain.ProcessInstance{
		ID:          id,
		UserID:      userID,
		Topic:       "loops",
		ProcessType: domain.ProcessFundamentalExplanation,
		Steps: []domain.StepType{
			domain.StepExplain, domain.StepExample, domain.StepExercise,
			domain.StepEvaluate, domain.StepFeedback,
		},
		History:   []domain.StepResult{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreateAndGetProcess(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	p := testProcess("p1", "u1")
	if err := repo.CreateProcess(ctx, p); err != nil {
		t.Fatalf("CreateProcess failed: %v", err)
	}
	if p.Version != 1 {
		t.Errorf("Expected version 1 after create, got %d", p.Version)
	}

	got, err := repo.GetProcess(ctx, "p1")
	if err != nil {
		t.Fatalf("GetProcess failed: %v", err)
	}
	if got.UserID != "u1" || got.Topic != "loops" {
		t.Errorf("Unexpected process: %+v", got)
	}
	if got.ProcessType != domain.ProcessFundamentalExplanation {
		t.Errorf("Expected process type preserved, got %q", got.ProcessType)
	}
	if len(got.Steps) != 5 {
		t.Fatalf("Expected 5 steps, got %d", len(got.Steps))
	}
	for i, s := range p.Steps {
		if got.Steps[i] != s {
			t.Errorf("Steps[%d] = %q, want %q", i, got.Steps[i], s)
		}
	}
	if got.CurrentIndex != 0 {
		t.Errorf("Expected current index 0, got %d", got.CurrentIndex)
	}
	if len(got.History) != 0 {
		t.Errorf("Expected empty history, got %d entries", len(got.History))
	}
}

func TestGetProcessNotFound(t *testing.T) {
	repo := newTestStore(t)

	_, err := repo.GetProcess(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestUpdateProcessPreservesHistoryOrder(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	p := testProcess("p1", "u1")
	if err := repo.CreateProcess(ctx, p); err != nil {
		t.Fatalf("CreateProcess failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		p.AppendResult(domain.StepResult{
			Step:      p.Steps[i],
			Content:   "c",
			Context:   map[string]any{"user_input": ""},
			CreatedAt: time.Now(),
		})
	}
	if err := repo.UpdateProcess(ctx, p); err != nil {
		t.Fatalf("UpdateProcess failed: %v", err)
	}

	got, err := repo.GetProcess(ctx, "p1")
	if err != nil {
		t.Fatalf("GetProcess failed: %v", err)
	}
	if got.CurrentIndex != 3 {
		t.Errorf("Expected current index 3, got %d", got.CurrentIndex)
	}
	if len(got.History) != 3 {
		t.Fatalf("Expected 3 history entries, got %d", len(got.History))
	}
	for i := 0; i < 3; i++ {
		if got.History[i].Step != p.Steps[i] {
			t.Errorf("History[%d].Step = %q, want %q", i, got.History[i].Step, p.Steps[i])
		}
	}
}

func TestUpdateProcessVersionConflict(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	p := testProcess("p1", "u1")
	if err := repo.CreateProcess(ctx, p); err != nil {
		t.Fatalf("CreateProcess failed: %v", err)
	}

	// Two readers pick up version 1.
	a, err := repo.GetProcess(ctx, "p1")
	if err != nil {
		t.Fatalf("GetProcess failed: %v", err)
	}
	b, err := repo.GetProcess(ctx, "p1")
	if err != nil {
		t.Fatalf("GetProcess failed: %v", err)
	}

	a.Topic = "maps"
	if err := repo.UpdateProcess(ctx, a); err != nil {
		t.Fatalf("First update failed: %v", err)
	}

	b.Topic = "slices"
	err = repo.UpdateProcess(ctx, b)
	if !errors.Is(err, ErrConflict) {
		t.Errorf("Expected ErrConflict for stale writer, got %v", err)
	}

	got, _ := repo.GetProcess(ctx, "p1")
	if got.Topic != "maps" {
		t.Errorf("Expected first committed write to win, got topic %q", got.Topic)
	}
}

func TestUpdateProcessNotFound(t *testing.T) {
	repo := newTestStore(t)

	p := testProcess("ghost", "u1")
	p.Version = 1
	err := repo.UpdateProcess(context.Background(), p)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestListProcesses(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	for _, tc := range []struct{ id, user string }{
		{"p1", "u1"}, {"p2", "u1"}, {"p3", "u2"},
	} {
		if err := repo.CreateProcess(ctx, testProcess(tc.id, tc.user)); err != nil {
			t.Fatalf("CreateProcess(%s) failed: %v", tc.id, err)
		}
	}

	all, err := repo.ListProcesses(ctx, "", 0)
	if err != nil {
		t.Fatalf("ListProcesses failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected 3 processes, got %d", len(all))
	}

	u1, err := repo.ListProcesses(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("ListProcesses failed: %v", err)
	}
	if len(u1) != 2 {
		t.Errorf("Expected 2 processes for u1, got %d", len(u1))
	}

	limited, err := repo.ListProcesses(ctx, "", 1)
	if err != nil {
		t.Fatalf("ListProcesses failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("Expected 1 process with limit 1, got %d", len(limited))
	}
}
