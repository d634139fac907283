package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"

	Monthly BudgetPeriod = "monthly"
	Weekly  BudgetPeriod = "weekly"
)

type (
	TransactionType string

	BudgetPeriod string

	// Date is a calendar date; the time-of-day portion is always midnight UTC.
	Date struct {
		time.Time
	}

	// Transaction is a single income or expense record. Amount is always
	// strictly positive; direction is carried by Type.
	Transaction struct {
		ID          string          `json:"id"`
		Type        TransactionType `json:"type"`
		Amount      decimal.Decimal `json:"amount"`
		Category    string          `json:"category"`
		Description string          `json:"description,omitempty"`
		Date        Date            `json:"date"`
		CreatedAt   time.Time       `json:"createdAt"`
	}

	// Budget is a spending limit for one expense category.
	Budget struct {
		ID       string          `json:"id"`
		Category string          `json:"category"`
		Limit    decimal.Decimal `json:"limit"`
		Period   BudgetPeriod    `json:"period"`
	}

	// Goal is a savings target. Current may exceed Target; the overshoot is
	// tolerated and only clamped in derived progress views.
	Goal struct {
		ID       string          `json:"id"`
		Name     string          `json:"name"`
		Target   decimal.Decimal `json:"target"`
		Current  decimal.Decimal `json:"current"`
		Deadline Date            `json:"deadline"`
	}
)

// Error kinds surfaced by the repository and adapters. Validation errors are
// raised before any backend call; backend errors propagate unmodified.
var (
	ErrNotFound           = errors.New("record not found")
	ErrStorageUnavailable = errors.New("local storage unavailable")
	ErrRemoteUnavailable  = errors.New("remote storage unavailable")
	ErrInvalidRecord      = errors.New("invalid record")
	ErrInvalidAmount      = errors.New("invalid amount")
)

// Category vocabularies mirror the fixed select lists of the UI. Budgets are
// only ever created against the expense vocabulary.
var (
	ExpenseCategories = []string{"Food", "Transport", "Housing", "Health", "Entertainment", "Shopping", "Other"}
	IncomeCategories  = []string{"Salary", "Freelance", "Investments", "Gifts", "Other"}
)

// IsExpenseCategory reports whether name belongs to the expense vocabulary.
func IsExpenseCategory(name string) bool {
	for _, c := range ExpenseCategories {
		if c == name {
			return true
		}
	}
	return false
}

// NewDate creates a Date from year, month, day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: date %q: must be YYYY-MM-DD", ErrInvalidRecord, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be empty", ErrInvalidRecord)
	}
	return nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (tt TransactionType) Validate() error {
	switch tt {
	case Income, Expense:
		return nil
	default:
		return fmt.Errorf("%w: type %q: must be income or expense", ErrInvalidRecord, tt)
	}
}

func (bp BudgetPeriod) Validate() error {
	switch bp {
	case Monthly, Weekly:
		return nil
	default:
		return fmt.Errorf("%w: period %q: must be monthly or weekly", ErrInvalidRecord, bp)
	}
}

func (t Transaction) Validate() error {
	if err := t.Type.Validate(); err != nil {
		return err
	}
	if !t.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidRecord)
	}
	if strings.TrimSpace(t.Category) == "" {
		return fmt.Errorf("%w: empty category", ErrInvalidRecord)
	}
	if len(t.Description) > 200 {
		return fmt.Errorf("%w: description too long (max 200 characters)", ErrInvalidRecord)
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return fmt.Errorf("%w: empty category", ErrInvalidRecord)
	}
	if !b.Limit.IsPositive() {
		return fmt.Errorf("%w: limit must be positive", ErrInvalidRecord)
	}
	if err := b.Period.Validate(); err != nil {
		return err
	}
	return nil
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidRecord)
	}
	if !g.Target.IsPositive() {
		return fmt.Errorf("%w: target must be positive", ErrInvalidRecord)
	}
	if g.Current.IsNegative() {
		return fmt.Errorf("%w: current cannot be negative", ErrInvalidRecord)
	}
	if err := g.Deadline.Validate(); err != nil {
		return err
	}
	return nil
}

// Signed returns the transaction amount with its direction applied:
// positive for income, negative for expense.
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// BalanceOf computes the running balance of a transaction set:
// sum of income amounts minus sum of expense amounts.
func BalanceOf(transactions []Transaction) decimal.Decimal {
	balance := decimal.Zero
	for _, t := range transactions {
		balance = balance.Add(t.Signed())
	}
	return balance
}
