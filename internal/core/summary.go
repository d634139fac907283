package core

import (
	"time"

	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// BudgetStatus is a budget together with the spending observed in its
// current period window.
type BudgetStatus struct {
	Budget
	Spent     decimal.Decimal `json:"spent"`
	Percent   int             `json:"percent"`
	OverLimit bool            `json:"overLimit"`
}

// GoalStatus is a goal with its derived progress. Percent is clamped to 100
// even when Current overshoots Target.
type GoalStatus struct {
	Goal
	Percent int `json:"percent"`
}

// periodContains reports whether date falls inside the budget period window
// anchored at now: the same calendar month for monthly budgets, the same
// ISO week for weekly ones.
func periodContains(period BudgetPeriod, now time.Time, date Date) bool {
	switch period {
	case Weekly:
		y1, w1 := now.ISOWeek()
		y2, w2 := date.ISOWeek()
		return y1 == y2 && w1 == w2
	default:
		return now.Year() == date.Year() && now.Month() == date.Month()
	}
}

// StatusOf derives the budget's spending for the period containing now from
// the expense transactions in its category.
func (b Budget) StatusOf(transactions []Transaction, now time.Time) BudgetStatus {
	spent := decimal.Zero
	for _, t := range transactions {
		if t.Type != Expense || t.Category != b.Category {
			continue
		}
		if !periodContains(b.Period, now, t.Date) {
			continue
		}
		spent = spent.Add(t.Amount)
	}

	percent := 0
	if b.Limit.IsPositive() {
		percent = int(spent.Mul(oneHundred).Div(b.Limit).Round(0).IntPart())
	}
	return BudgetStatus{
		Budget:    b,
		Spent:     spent,
		Percent:   percent,
		OverLimit: spent.GreaterThan(b.Limit),
	}
}

// BudgetStatuses derives the spending status of every budget.
func BudgetStatuses(budgets []Budget, transactions []Transaction, now time.Time) []BudgetStatus {
	out := make([]BudgetStatus, len(budgets))
	for i, b := range budgets {
		out[i] = b.StatusOf(transactions, now)
	}
	return out
}

// StatusOf derives the goal's progress percentage.
func (g Goal) StatusOf() GoalStatus {
	percent := 0
	if g.Target.IsPositive() {
		percent = int(g.Current.Mul(oneHundred).Div(g.Target).Round(0).IntPart())
		if percent > 100 {
			percent = 100
		}
	}
	return GoalStatus{Goal: g, Percent: percent}
}

// GoalStatuses derives the progress of every goal.
func GoalStatuses(goals []Goal) []GoalStatus {
	out := make([]GoalStatus, len(goals))
	for i, g := range goals {
		out[i] = g.StatusOf()
	}
	return out
}
