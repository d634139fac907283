// Package repository exposes backend-agnostic operations over the three
// record collections. Every operation validates first, resolves its backend
// through the selector, and post-processes results identically regardless of
// which backend served them.
package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"neuronbudget/internal/amqp"
	"neuronbudget/internal/backend"
	"neuronbudget/internal/cache"
	"neuronbudget/internal/core"
	applog "neuronbudget/internal/log"
	"neuronbudget/internal/store"
)

const (
	defaultOpTimeout = 10 * time.Second

	balanceCacheSize = 128
	balanceCacheTTL  = 5 * time.Minute
)

// Notifier publishes record-change events so dependent consumers (views,
// the reconciler) can react. *amqp.Client satisfies it.
type Notifier interface {
	PublishRecordChange(ctx context.Context, collection, recordID, userID, op string) error
}

type Repository struct {
	selector  *backend.Selector
	notifier  Notifier // optional
	balances  *cache.LRUCache[decimal.Decimal]
	opTimeout time.Duration
	now       func() time.Time
}

// New creates a repository. notifier may be nil; change events are then
// skipped. opTimeout bounds every backend call, zero means the default.
func New(selector *backend.Selector, notifier Notifier, opTimeout time.Duration) *Repository {
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}
	return &Repository{
		selector:  selector,
		notifier:  notifier,
		balances:  cache.NewLRUCache[decimal.Decimal](balanceCacheSize, balanceCacheTTL),
		opTimeout: opTimeout,
		now:       time.Now,
	}
}

func (r *Repository) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.opTimeout)
}

// notify publishes a change event. Publish failures are logged, not
// propagated: the mutation already succeeded against its backend.
func (r *Repository) notify(ctx context.Context, collection, recordID string, sess backend.Session, op string) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.PublishRecordChange(ctx, collection, recordID, sess.UserID, op); err != nil {
		slog.ErrorContext(ctx, "Failed to publish record change",
			applog.FieldCollection, collection,
			applog.FieldRecordID, recordID,
			applog.FieldOperation, op,
			applog.FieldBackend, r.selector.Key(sess),
			applog.FieldError, err.Error())
	}
}

// invalidateBalance drops the cached balance for the session's backend.
// Called on every transaction mutation.
func (r *Repository) invalidateBalance(sess backend.Session) {
	r.balances.Delete(r.selector.Key(sess))
}

// AddTransaction validates and persists a transaction, returning its
// backend-assigned id.
func (r *Repository) AddTransaction(ctx context.Context, sess backend.Session, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	adapter, err := r.selector.Select(sess)
	if err != nil {
		return "", err
	}

	cctx, cancel := r.opCtx(ctx)
	defer cancel()
	id, err := adapter.CreateTransaction(cctx, t)
	if err != nil {
		return "", fmt.Errorf("add transaction: %w", err)
	}

	r.invalidateBalance(sess)
	r.notify(ctx, store.Transactions, id, sess, amqp.OpCreate)
	return id, nil
}

// Transactions lists the active backend's transactions, filtered and ordered
// newest-first with ties kept in insertion order.
func (r *Repository) Transactions(ctx context.Context, sess backend.Session, filter core.TransactionFilter) ([]core.Transaction, error) {
	adapter, err := r.selector.Select(sess)
	if err != nil {
		return nil, err
	}

	cctx, cancel := r.opCtx(ctx)
	defer cancel()
	transactions, err := adapter.Transactions(cctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	transactions = core.FilterTransactions(transactions, filter)
	core.SortByDateDesc(transactions)
	return transactions, nil
}

// DeleteTransaction removes a transaction; a missing id is an error, never a
// silent no-op.
func (r *Repository) DeleteTransaction(ctx context.Context, sess backend.Session, id string) error {
	adapter, err := r.selector.Select(sess)
	if err != nil {
		return err
	}

	cctx, cancel := r.opCtx(ctx)
	defer cancel()
	if err := adapter.DeleteTransaction(cctx, id); err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}

	r.invalidateBalance(sess)
	r.notify(ctx, store.Transactions, id, sess, amqp.OpDelete)
	return nil
}

// AddBudget validates and persists a budget. The category must belong to the
// expense vocabulary and carry no existing budget in the active backend.
func (r *Repository) AddBudget(ctx context.Context, sess backend.Session, b core.Budget) (string, error) {
	if err := b.Validate(); err != nil {
		return "", err
	}
	if !core.IsExpenseCategory(b.Category) {
		return "", fmt.Errorf("%w: %q is not an expense category", core.ErrInvalidRecord, b.Category)
	}
	adapter, err := r.selector.Select(sess)
	if err != nil {
		return "", err
	}

	cctx, cancel := r.opCtx(ctx)
	defer cancel()
	existing, err := adapter.Budgets(cctx)
	if err != nil {
		return "", fmt.Errorf("check existing budgets: %w", err)
	}
	for _, e := range existing {
		if e.Category == b.Category {
			return "", fmt.Errorf("%w: budget for category %q already exists", core.ErrInvalidRecord, b.Category)
		}
	}

	id, err := adapter.CreateBudget(cctx, b)
	if err != nil {
		return "", fmt.Errorf("add budget: %w", err)
	}

	r.notify(ctx, store.Budgets, id, sess, amqp.OpCreate)
	return id, nil
}

// Budgets lists the active backend's budgets.
func (r *Repository) Budgets(ctx context.Context, sess backend.Session) ([]core.Budget, error) {
	adapter, err := r.selector.Select(sess)
	if err != nil {
		return nil, err
	}

	cctx, cancel := r.opCtx(ctx)
	defer cancel()
	budgets, err := adapter.Budgets(cctx)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return budgets, nil
}

// DeleteBudget removes a budget.
func (r *Repository) DeleteBudget(ctx context.Context, sess backend.Session, id string) error {
	adapter, err := r.selector.Select(sess)
	if err != nil {
		return err
	}

	cctx, cancel := r.opCtx(ctx)
	defer cancel()
	if err := adapter.DeleteBudget(cctx, id); err != nil {
		return fmt.Errorf("delete budget %s: %w", id, err)
	}

	r.notify(ctx, store.Budgets, id, sess, amqp.OpDelete)
	return nil
}

// AddGoal validates and persists a savings goal.
func (r *Repository) AddGoal(ctx context.Context, sess backend.Session, g core.Goal) (string, error) {
	if err := g.Validate(); err != nil {
		return "", err
	}
	adapter, err := r.selector.Select(sess)
	if err != nil {
		return "", err
	}

	cctx, cancel := r.opCtx(ctx)
	defer cancel()
	id, err := adapter.CreateGoal(cctx, g)
	if err != nil {
		return "", fmt.Errorf("add goal: %w", err)
	}

	r.notify(ctx, store.Goals, id, sess, amqp.OpCreate)
	return id, nil
}

// Goals lists the active backend's goals.
func (r *Repository) Goals(ctx context.Context, sess backend.Session) ([]core.Goal, error) {
	adapter, err := r.selector.Select(sess)
	if err != nil {
		return nil, err
	}

	cctx, cancel := r.opCtx(ctx)
	defer cancel()
	goals, err := adapter.Goals(cctx)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return goals, nil
}

// DeleteGoal removes a goal.
func (r *Repository) DeleteGoal(ctx context.Context, sess backend.Session, id string) error {
	adapter, err := r.selector.Select(sess)
	if err != nil {
		return err
	}

	cctx, cancel := r.opCtx(ctx)
	defer cancel()
	if err := adapter.DeleteGoal(cctx, id); err != nil {
		return fmt.Errorf("delete goal %s: %w", id, err)
	}

	r.notify(ctx, store.Goals, id, sess, amqp.OpDelete)
	return nil
}

// UpdateGoalProgress adds delta to the goal's current amount. The delta must
// be positive. Read-modify-write, last writer wins; overshoot past the
// target is kept and only clamped in derived views.
func (r *Repository) UpdateGoalProgress(ctx context.Context, sess backend.Session, id string, delta decimal.Decimal) error {
	if !delta.IsPositive() {
		return fmt.Errorf("%w: progress delta must be positive", core.ErrInvalidAmount)
	}
	adapter, err := r.selector.Select(sess)
	if err != nil {
		return err
	}

	cctx, cancel := r.opCtx(ctx)
	defer cancel()
	goal, err := adapter.Goal(cctx, id)
	if err != nil {
		return fmt.Errorf("read goal %s: %w", id, err)
	}
	goal.Current = goal.Current.Add(delta)
	if err := adapter.UpdateGoal(cctx, goal); err != nil {
		return fmt.Errorf("update goal %s: %w", id, err)
	}

	r.notify(ctx, store.Goals, id, sess, amqp.OpUpdate)
	return nil
}

// Balance returns income minus expenses for the active backend. Backends
// that maintain a stored aggregate serve it directly; others are scanned.
// The derived value is cached per backend and invalidated on every mutation.
func (r *Repository) Balance(ctx context.Context, sess backend.Session) (decimal.Decimal, error) {
	key := r.selector.Key(sess)
	if cached, ok := r.balances.Get(key); ok {
		return cached, nil
	}

	adapter, err := r.selector.Select(sess)
	if err != nil {
		return decimal.Zero, err
	}

	cctx, cancel := r.opCtx(ctx)
	defer cancel()

	var balance decimal.Decimal
	if agg, ok := adapter.(store.BalanceStore); ok {
		balance, err = agg.StoredBalance(cctx)
	} else {
		var transactions []core.Transaction
		transactions, err = adapter.Transactions(cctx)
		balance = core.BalanceOf(transactions)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("read balance: %w", err)
	}

	r.balances.Set(key, balance)
	return balance, nil
}

// Overview is the full dashboard read: ordered transactions, budget spending
// statuses, goal progress, and totals derived from one consistent snapshot.
type Overview struct {
	Balance      decimal.Decimal     `json:"balance"`
	TotalIncome  decimal.Decimal     `json:"totalIncome"`
	TotalExpense decimal.Decimal     `json:"totalExpense"`
	Transactions []core.Transaction  `json:"transactions"`
	Budgets      []core.BudgetStatus `json:"budgets"`
	Goals        []core.GoalStatus   `json:"goals"`
}

// Overview fetches the three collections concurrently and derives the
// aggregate views from the transaction snapshot it fetched, so the numbers
// shown together are always mutually consistent.
func (r *Repository) Overview(ctx context.Context, sess backend.Session) (Overview, error) {
	adapter, err := r.selector.Select(sess)
	if err != nil {
		return Overview{}, err
	}

	cctx, cancel := r.opCtx(ctx)
	defer cancel()

	var (
		transactions []core.Transaction
		budgets      []core.Budget
		goals        []core.Goal
	)
	g, gctx := errgroup.WithContext(cctx)
	g.Go(func() error {
		var err error
		transactions, err = adapter.Transactions(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		budgets, err = adapter.Budgets(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		goals, err = adapter.Goals(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Overview{}, fmt.Errorf("load overview: %w", err)
	}

	income := decimal.Zero
	expense := decimal.Zero
	for _, t := range transactions {
		if t.Type == core.Income {
			income = income.Add(t.Amount)
		} else {
			expense = expense.Add(t.Amount)
		}
	}

	core.SortByDateDesc(transactions)

	return Overview{
		Balance:      income.Sub(expense),
		TotalIncome:  income,
		TotalExpense: expense,
		Transactions: transactions,
		Budgets:      core.BudgetStatuses(budgets, transactions, r.now()),
		Goals:        core.GoalStatuses(goals),
	}, nil
}
