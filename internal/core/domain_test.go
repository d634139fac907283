package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func validTransaction() Transaction {
	return Transaction{
		Type:     Expense,
		Amount:   decimal.NewFromInt(1200),
		Category: "Food",
		Date:     NewDate(2024, time.January, 10),
	}
}

func TestTransactionValidate(t *testing.T) {
	if err := validTransaction().Validate(); err != nil {
		t.Fatalf("valid transaction rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Transaction)
	}{
		{"unknown type", func(tx *Transaction) { tx.Type = "transfer" }},
		{"zero amount", func(tx *Transaction) { tx.Amount = decimal.Zero }},
		{"negative amount", func(tx *Transaction) { tx.Amount = decimal.NewFromInt(-5) }},
		{"empty category", func(tx *Transaction) { tx.Category = "  " }},
		{"missing date", func(tx *Transaction) { tx.Date = Date{} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx := validTransaction()
			tc.mutate(&tx)
			err := tx.Validate()
			if !errors.Is(err, ErrInvalidRecord) {
				t.Fatalf("expected ErrInvalidRecord, got %v", err)
			}
		})
	}
}

func TestBudgetValidate(t *testing.T) {
	b := Budget{Category: "Food", Limit: decimal.NewFromInt(10000), Period: Monthly}
	if err := b.Validate(); err != nil {
		t.Fatalf("valid budget rejected: %v", err)
	}

	b.Period = "yearly"
	if err := b.Validate(); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord for bad period, got %v", err)
	}

	b = Budget{Category: "Food", Limit: decimal.Zero, Period: Weekly}
	if err := b.Validate(); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord for zero limit, got %v", err)
	}
}

func TestGoalValidate(t *testing.T) {
	g := Goal{
		Name:     "Vacation",
		Target:   decimal.NewFromInt(1000),
		Current:  decimal.NewFromInt(400),
		Deadline: NewDate(2025, time.June, 1),
	}
	if err := g.Validate(); err != nil {
		t.Fatalf("valid goal rejected: %v", err)
	}

	g.Current = decimal.NewFromInt(-1)
	if err := g.Validate(); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord for negative current, got %v", err)
	}

	// Overshoot is tolerated, not rejected.
	g.Current = decimal.NewFromInt(1500)
	if err := g.Validate(); err != nil {
		t.Fatalf("goal above target should validate, got %v", err)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-01-05")
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	if d.String() != "2024-01-05" {
		t.Fatalf("unexpected date: %s", d)
	}

	if _, err := ParseDate("05.01.2024"); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
}

func TestSigned(t *testing.T) {
	income := Transaction{Type: Income, Amount: decimal.NewFromInt(50)}
	expense := Transaction{Type: Expense, Amount: decimal.NewFromInt(30)}
	if !income.Signed().Equal(decimal.NewFromInt(50)) {
		t.Fatalf("income should keep its sign: %s", income.Signed())
	}
	if !expense.Signed().Equal(decimal.NewFromInt(-30)) {
		t.Fatalf("expense should be negated: %s", expense.Signed())
	}
}
