package core

import (
	"sort"
	"time"
)

// TransactionFilter narrows a transaction list by exact match. Zero-valued
// fields are ignored. Month filtering is by calendar month and requires Year.
type TransactionFilter struct {
	Type     TransactionType
	Category string
	Year     int
	Month    time.Month
}

// Matches reports whether t passes every non-zero criterion.
func (f TransactionFilter) Matches(t Transaction) bool {
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.Year != 0 {
		if t.Date.Year() != f.Year {
			return false
		}
		if f.Month != 0 && t.Date.Month() != f.Month {
			return false
		}
	}
	return true
}

// FilterTransactions returns the subset of transactions matching f,
// preserving input order.
func FilterTransactions(transactions []Transaction, f TransactionFilter) []Transaction {
	out := make([]Transaction, 0, len(transactions))
	for _, t := range transactions {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}

// SortByDateDesc orders transactions newest-first. The sort is stable so
// same-day records keep their insertion order, which is identical for every
// backend because adapters list in creation order.
func SortByDateDesc(transactions []Transaction) {
	sort.SliceStable(transactions, func(i, j int) bool {
		return transactions[i].Date.After(transactions[j].Date.Time)
	})
}
