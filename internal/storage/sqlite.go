// Package storage implements the local store adapter on an embedded SQLite
// database. Each collection is a table with an auto-incrementing integer
// primary key; ids are exposed to callers as their decimal string form.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"neuronbudget/internal/core"
	"neuronbudget/internal/store"
)

type SQLiteStore struct {
	db *sql.DB
}

var _ store.Adapter = (*SQLiteStore)(nil)

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("%w: create db directory: %v", core.ErrStorageUnavailable, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite database: %v", core.ErrStorageUnavailable, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping database: %v", core.ErrStorageUnavailable, err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", core.ErrStorageUnavailable, err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// storageErr wraps a driver failure so callers can match ErrStorageUnavailable.
func storageErr(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	return fmt.Errorf("%w: %s: %v", core.ErrStorageUnavailable, op, err)
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse stored amount %q: %w", s, err)
	}
	return d, nil
}

func (s *SQLiteStore) CreateTransaction(ctx context.Context, t core.Transaction) (string, error) {
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (type, amount, category, description, tx_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		string(t.Type), t.Amount.String(), t.Category, t.Description,
		t.Date.String(), createdAt.Format(time.RFC3339Nano))
	if err != nil {
		return "", storageErr("insert transaction", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", storageErr("transaction id", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", id,
		"type", t.Type,
		"amount", t.Amount.String(),
		"category", t.Category)

	return formatID(id), nil
}

func (s *SQLiteStore) Transactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, amount, category, description, tx_date, created_at
		 FROM transactions ORDER BY id`)
	if err != nil {
		return nil, storageErr("list transactions", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, storageErr("scan transaction", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list transactions", err)
	}
	return out, nil
}

func (s *SQLiteStore) Transaction(ctx context.Context, id string) (core.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, type, amount, category, description, tx_date, created_at
		 FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if err != nil {
		return core.Transaction{}, storageErr("get transaction", err)
	}
	return t, nil
}

func (s *SQLiteStore) DeleteTransaction(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "transactions", id)
}

func (s *SQLiteStore) CreateBudget(ctx context.Context, b core.Budget) (string, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO budgets (category, limit_amount, period) VALUES (?, ?, ?)`,
		b.Category, b.Limit.String(), string(b.Period))
	if err != nil {
		return "", storageErr("insert budget", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", storageErr("budget id", err)
	}
	return formatID(id), nil
}

func (s *SQLiteStore) Budgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, category, limit_amount, period FROM budgets ORDER BY id`)
	if err != nil {
		return nil, storageErr("list budgets", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		var (
			id       int64
			category string
			limit    string
			period   string
		)
		if err := rows.Scan(&id, &category, &limit, &period); err != nil {
			return nil, storageErr("scan budget", err)
		}
		limitDec, err := parseAmount(limit)
		if err != nil {
			return nil, storageErr("scan budget", err)
		}
		out = append(out, core.Budget{
			ID:       formatID(id),
			Category: category,
			Limit:    limitDec,
			Period:   core.BudgetPeriod(period),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list budgets", err)
	}
	return out, nil
}

func (s *SQLiteStore) DeleteBudget(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "budgets", id)
}

func (s *SQLiteStore) CreateGoal(ctx context.Context, g core.Goal) (string, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO goals (name, target, current, deadline) VALUES (?, ?, ?, ?)`,
		g.Name, g.Target.String(), g.Current.String(), g.Deadline.String())
	if err != nil {
		return "", storageErr("insert goal", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", storageErr("goal id", err)
	}
	return formatID(id), nil
}

func (s *SQLiteStore) Goals(ctx context.Context) ([]core.Goal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, target, current, deadline FROM goals ORDER BY id`)
	if err != nil {
		return nil, storageErr("list goals", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, storageErr("scan goal", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list goals", err)
	}
	return out, nil
}

func (s *SQLiteStore) Goal(ctx context.Context, id string) (core.Goal, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, target, current, deadline FROM goals WHERE id = ?`, id)
	g, err := scanGoal(row)
	if err != nil {
		return core.Goal{}, storageErr("get goal", err)
	}
	return g, nil
}

// UpdateGoal persists the full goal record (read-modify-write at the caller,
// last writer wins).
func (s *SQLiteStore) UpdateGoal(ctx context.Context, g core.Goal) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE goals SET name = ?, target = ?, current = ?, deadline = ? WHERE id = ?`,
		g.Name, g.Target.String(), g.Current.String(), g.Deadline.String(), g.ID)
	if err != nil {
		return storageErr("update goal", err)
	}
	return affectedOrNotFound(res)
}

func (s *SQLiteStore) DeleteGoal(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "goals", id)
}

func (s *SQLiteStore) deleteByID(ctx context.Context, table, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return storageErr("delete from "+table, err)
	}
	return affectedOrNotFound(res)
}

func affectedOrNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("rows affected", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		id          int64
		typ         string
		amount      string
		category    string
		description string
		txDate      string
		createdAt   string
	)
	if err := row.Scan(&id, &typ, &amount, &category, &description, &txDate, &createdAt); err != nil {
		return core.Transaction{}, err
	}

	amountDec, err := parseAmount(amount)
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := core.ParseDate(txDate)
	if err != nil {
		return core.Transaction{}, err
	}
	created, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}

	return core.Transaction{
		ID:          formatID(id),
		Type:        core.TransactionType(typ),
		Amount:      amountDec,
		Category:    category,
		Description: description,
		Date:        date,
		CreatedAt:   created,
	}, nil
}

func scanGoal(row rowScanner) (core.Goal, error) {
	var (
		id       int64
		name     string
		target   string
		current  string
		deadline string
	)
	if err := row.Scan(&id, &name, &target, &current, &deadline); err != nil {
		return core.Goal{}, err
	}

	targetDec, err := parseAmount(target)
	if err != nil {
		return core.Goal{}, err
	}
	currentDec, err := parseAmount(current)
	if err != nil {
		return core.Goal{}, err
	}
	deadlineDate, err := core.ParseDate(deadline)
	if err != nil {
		return core.Goal{}, err
	}

	return core.Goal{
		ID:       formatID(id),
		Name:     name,
		Target:   targetDec,
		Current:  currentDec,
		Deadline: deadlineDate,
	}, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
