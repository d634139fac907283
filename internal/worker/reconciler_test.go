package worker

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"neuronbudget/internal/amqp"
	"neuronbudget/internal/core"
	"neuronbudget/internal/store"
)

type fakeBalanceStore struct {
	transactions []core.Transaction
	stored       decimal.Decimal
	setCalls     int
}

func (f *fakeBalanceStore) Transactions(_ context.Context) ([]core.Transaction, error) {
	return f.transactions, nil
}

func (f *fakeBalanceStore) StoredBalance(_ context.Context) (decimal.Decimal, error) {
	return f.stored, nil
}

func (f *fakeBalanceStore) SetStoredBalance(_ context.Context, balance decimal.Decimal) error {
	f.stored = balance
	f.setCalls++
	return nil
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestHandleRepairsDrift(t *testing.T) {
	fake := &fakeBalanceStore{
		transactions: []core.Transaction{
			{Type: core.Income, Amount: d("500"), Category: "Salary", Date: core.NewDate(2026, time.May, 1)},
			{Type: core.Expense, Amount: d("120"), Category: "Food", Date: core.NewDate(2026, time.May, 2)},
		},
		stored: d("999"), // drifted
	}
	r := NewReconciler(func(string) UserBalanceStore { return fake })

	msg := amqp.NewRecordChangeMessage(store.Transactions, "t1", "alice", amqp.OpCreate)
	if err := r.Handle(context.Background(), msg); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if fake.setCalls != 1 {
		t.Fatalf("expected one repair write, got %d", fake.setCalls)
	}
	if !fake.stored.Equal(d("380")) {
		t.Fatalf("stored = %s, want 380", fake.stored)
	}
}

func TestHandleSkipsConsistentBalance(t *testing.T) {
	fake := &fakeBalanceStore{
		transactions: []core.Transaction{
			{Type: core.Income, Amount: d("100"), Category: "Salary", Date: core.NewDate(2026, time.May, 1)},
		},
		stored: d("100"),
	}
	r := NewReconciler(func(string) UserBalanceStore { return fake })

	msg := amqp.NewRecordChangeMessage(store.Transactions, "t1", "alice", amqp.OpDelete)
	if err := r.Handle(context.Background(), msg); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if fake.setCalls != 0 {
		t.Fatalf("consistent balance must not be rewritten, got %d writes", fake.setCalls)
	}
}

func TestHandleIgnoresIrrelevantEvents(t *testing.T) {
	r := NewReconciler(func(string) UserBalanceStore {
		t.Fatal("resolver must not be called for skipped events")
		return nil
	})

	cases := []*amqp.RecordChangeMessage{
		amqp.NewRecordChangeMessage(store.Budgets, "b1", "alice", amqp.OpCreate),
		amqp.NewRecordChangeMessage(store.Goals, "g1", "alice", amqp.OpUpdate),
		amqp.NewRecordChangeMessage(store.Transactions, "t1", "", amqp.OpCreate), // local change
	}
	for _, msg := range cases {
		if err := r.Handle(context.Background(), msg); err != nil {
			t.Fatalf("Handle(%s): %v", msg.Collection, err)
		}
	}
}
