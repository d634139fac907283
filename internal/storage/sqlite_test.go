package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"neuronbudget/internal/core"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "neuronbudget.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTransactionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := core.Transaction{
		Type:        core.Expense,
		Amount:      decimal.RequireFromString("120.50"),
		Category:    "Food",
		Description: "groceries",
		Date:        core.NewDate(2024, time.January, 10),
	}
	id, err := s.CreateTransaction(ctx, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.Transactions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	tx := got[0]
	if tx.ID != id || tx.Type != core.Expense || tx.Category != "Food" || tx.Description != "groceries" {
		t.Fatalf("unexpected record: %+v", tx)
	}
	if !tx.Amount.Equal(decimal.RequireFromString("120.50")) {
		t.Fatalf("amount = %s, want 120.50", tx.Amount)
	}
	if tx.Date.String() != "2024-01-10" {
		t.Fatalf("date = %s, want 2024-01-10", tx.Date)
	}
	if tx.CreatedAt.IsZero() {
		t.Fatal("createdAt not populated")
	}
}

func TestIDsAreDistinctAndMonotonic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var prev string
	for i := 0; i < 5; i++ {
		id, err := s.CreateTransaction(ctx, core.Transaction{
			Type:     core.Income,
			Amount:   decimal.NewFromInt(1),
			Category: "Salary",
			Date:     core.NewDate(2024, time.January, 1),
		})
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if id == prev {
			t.Fatalf("duplicate id %q", id)
		}
		prev = id
	}
}

func TestReopenPreservesRecords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "neuronbudget.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if _, err := s.CreateBudget(ctx, core.Budget{Category: "Food", Limit: decimal.NewFromInt(100), Period: core.Monthly}); err != nil {
		t.Fatalf("create budget: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Re-opening runs migrations again; records survive and nothing duplicates.
	s, err = NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer s.Close()

	budgets, err := s.Budgets(ctx)
	if err != nil {
		t.Fatalf("list budgets: %v", err)
	}
	if len(budgets) != 1 {
		t.Fatalf("expected 1 budget after reopen, got %d", len(budgets))
	}
}

func TestDeleteMissingSignalsNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.DeleteTransaction(ctx, "123"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteBudget(ctx, "123"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteGoal(ctx, "123"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGoalReadModifyWrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateGoal(ctx, core.Goal{
		Name:     "Vacation",
		Target:   decimal.NewFromInt(1000),
		Current:  decimal.NewFromInt(400),
		Deadline: core.NewDate(2025, time.June, 1),
	})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}

	g, err := s.Goal(ctx, id)
	if err != nil {
		t.Fatalf("get goal: %v", err)
	}
	g.Current = g.Current.Add(decimal.NewFromInt(100))
	if err := s.UpdateGoal(ctx, g); err != nil {
		t.Fatalf("update goal: %v", err)
	}

	got, err := s.Goal(ctx, id)
	if err != nil {
		t.Fatalf("get goal: %v", err)
	}
	if !got.Current.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("current = %s, want 500", got.Current)
	}

	if _, err := s.Goal(ctx, "999"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListingIsInsertionOrdered(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, desc := range []string{"first", "second", "third"} {
		if _, err := s.CreateTransaction(ctx, core.Transaction{
			Type:        core.Expense,
			Amount:      decimal.NewFromInt(1),
			Category:    "Food",
			Description: desc,
			Date:        core.NewDate(2024, time.January, 10),
		}); err != nil {
			t.Fatalf("create %s: %v", desc, err)
		}
	}

	got, err := s.Transactions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 || got[0].Description != "first" || got[2].Description != "third" {
		t.Fatalf("unexpected order: %+v", got)
	}
}
