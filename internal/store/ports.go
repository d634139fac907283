package store

import (
	"context"

	"github.com/shopspring/decimal"

	"neuronbudget/internal/core"
)

// Collection names shared by every backend.
const (
	Transactions = "transactions"
	Budgets      = "budgets"
	Goals        = "goals"
)

// Adapter is the storage capability every backend provides. Ids are assigned
// by the backend on create and are opaque strings: the local store formats
// its integer rowids, the remote store returns document ids. Listing is in
// creation order so date sorting downstream stays stable across backends.
//
// Adapters report a missing id as core.ErrNotFound and an unreachable store
// as core.ErrStorageUnavailable or core.ErrRemoteUnavailable; they never
// swallow failures.
type Adapter interface {
	CreateTransaction(ctx context.Context, t core.Transaction) (id string, err error)
	Transactions(ctx context.Context) ([]core.Transaction, error)
	Transaction(ctx context.Context, id string) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error

	CreateBudget(ctx context.Context, b core.Budget) (id string, err error)
	Budgets(ctx context.Context) ([]core.Budget, error)
	DeleteBudget(ctx context.Context, id string) error

	CreateGoal(ctx context.Context, g core.Goal) (id string, err error)
	Goals(ctx context.Context) ([]core.Goal, error)
	Goal(ctx context.Context, id string) (core.Goal, error)
	UpdateGoal(ctx context.Context, g core.Goal) error
	DeleteGoal(ctx context.Context, id string) error
}

// BalanceStore is the optional capability of backends that maintain a stored
// aggregate balance alongside the transaction log. The repository reads the
// aggregate instead of scanning when the active adapter provides it.
type BalanceStore interface {
	StoredBalance(ctx context.Context) (decimal.Decimal, error)
}
