package services

import (
	"context"
	"testing"
	"time"

	"financebro/internal/core"
	"financebro/internal/recurrence"
	"financebro/internal/storage"

	"github.com/google/uuid"
)

func seedTemplate(t *testing.T, repo *storage.SQLiteRepository, ownerID string, freq core.Frequency, anchor core.Date) core.Transaction {
	t.Helper()
	tpl := core.Transaction{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Amount:      core.Money{Cents: 1599},
		Direction:   core.Outgoing,
		Description: "subscription",
		Date:        anchor,
		IsTemplate:  true,
		Frequency:   freq,
		CreatedAt:   time.Now().UTC(),
	}
	if err := repo.CreateTransaction(context.Background(), tpl); err != nil {
		t.Fatalf("seed template: %v", err)
	}
	return tpl
}

func clockAt(year, month, day int) recurrence.Clock {
	return recurrence.FixedClock{Instant: time.Date(year, time.Month(month), day, 12, 0, 0, 0, time.UTC)}
}

func TestProcessOwnerGeneratesDueInstance(t *testing.T) {
	repo := newTestStorage(t)
	proc := NewRecurringProcessor(repo, nil, clockAt(2025, 2, 3))
	ctx := context.Background()

	tpl := seedTemplate(t, repo, "user-1", core.Monthly, core.NewDate(2025, 1, 1))

	stored, err := proc.ProcessOwner(ctx, "user-1")
	if err != nil {
		t.Fatalf("ProcessOwner() error: %v", err)
	}
	if stored != 1 {
		t.Fatalf("stored = %d, want 1", stored)
	}

	instances, err := repo.ListTransactions(ctx, "user-1", 2025, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(instances) != 1 {
		t.Fatalf("got %d instances, want 1", len(instances))
	}
	inst := instances[0]
	if inst.ParentTemplateID != tpl.ID {
		t.Errorf("ParentTemplateID = %q, want %q", inst.ParentTemplateID, tpl.ID)
	}
	if !inst.Date.Equal(core.NewDate(2025, 2, 1).Time) {
		t.Errorf("instance dated %v, want 2025-02-01", inst.Date.Time)
	}

	// The template advanced and a repeat run at the same instant is a no-op.
	stored, err = proc.ProcessOwner(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if stored != 0 {
		t.Errorf("repeat run stored %d instances, want 0", stored)
	}
}

func TestProcessOwnerNoTemplates(t *testing.T) {
	proc := NewRecurringProcessor(newTestStorage(t), nil, clockAt(2025, 2, 3))

	stored, err := proc.ProcessOwner(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ProcessOwner() error: %v", err)
	}
	if stored != 0 {
		t.Errorf("stored = %d, want 0", stored)
	}
}

func TestProcessAllCoversEveryOwner(t *testing.T) {
	repo := newTestStorage(t)
	proc := NewRecurringProcessor(repo, nil, clockAt(2025, 1, 10))
	ctx := context.Background()

	seedTemplate(t, repo, "user-1", core.Weekly, core.NewDate(2025, 1, 1))
	seedTemplate(t, repo, "user-2", core.Weekly, core.NewDate(2025, 1, 2))
	seedTemplate(t, repo, "user-3", core.Weekly, core.NewDate(2025, 1, 9)) // not due yet

	total, err := proc.ProcessAll(ctx)
	if err != nil {
		t.Fatalf("ProcessAll() error: %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}
}

// Draining a three-week backlog takes three runs, one occurrence each.
func TestProcessOwnerDrainsBacklogOneStepAtATime(t *testing.T) {
	repo := newTestStorage(t)
	proc := NewRecurringProcessor(repo, nil, clockAt(2025, 1, 22))
	ctx := context.Background()

	seedTemplate(t, repo, "user-1", core.Weekly, core.NewDate(2025, 1, 1))

	for run := 1; run <= 3; run++ {
		stored, err := proc.ProcessOwner(ctx, "user-1")
		if err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
		if stored != 1 {
			t.Fatalf("run %d stored %d, want 1", run, stored)
		}
	}

	stored, err := proc.ProcessOwner(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if stored != 0 {
		t.Errorf("drained backlog still produced %d instances", stored)
	}

	instances, err := repo.ListTransactions(ctx, "user-1", 2025, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(instances) != 3 {
		t.Errorf("got %d instances, want 3", len(instances))
	}
}
