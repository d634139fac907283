// Package worker contains the balance reconciler: a background consumer of
// record-change events that repairs drift between a user's stored balance
// aggregate and the balance implied by their transaction log. Drift appears
// when concurrent writers race on the aggregate document; the per-write
// transaction keeps each write atomic, the reconciler converges the rest.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"neuronbudget/internal/amqp"
	"neuronbudget/internal/core"
	applog "neuronbudget/internal/log"
	"neuronbudget/internal/store"
)

// UserBalanceStore is the slice of the remote per-user store the reconciler
// needs. *remote.UserStore satisfies it.
type UserBalanceStore interface {
	Transactions(ctx context.Context) ([]core.Transaction, error)
	StoredBalance(ctx context.Context) (decimal.Decimal, error)
	SetStoredBalance(ctx context.Context, balance decimal.Decimal) error
}

// StoreResolver returns the store holding the given user's records.
type StoreResolver func(userID string) UserBalanceStore

// Consumer delivers record-change messages to a handler. *amqp.Client
// satisfies it.
type Consumer interface {
	ConsumeRecordChanges(ctx context.Context, handler func(*amqp.RecordChangeMessage) error) error
}

type Reconciler struct {
	stores StoreResolver
}

func NewReconciler(stores StoreResolver) *Reconciler {
	return &Reconciler{stores: stores}
}

// Run consumes record-change messages until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context, consumer Consumer) error {
	slog.InfoContext(ctx, "Starting balance reconciler")
	return consumer.ConsumeRecordChanges(ctx, func(msg *amqp.RecordChangeMessage) error {
		return r.Handle(ctx, msg)
	})
}

// Handle reconciles one change event. Only transaction changes from
// signed-in users carry a balance aggregate; everything else is skipped.
// A returned error requeues the message.
func (r *Reconciler) Handle(ctx context.Context, msg *amqp.RecordChangeMessage) error {
	if msg.Collection != store.Transactions || msg.UserID == "" {
		return nil
	}

	userStore := r.stores(msg.UserID)

	transactions, err := userStore.Transactions(ctx)
	if err != nil {
		return fmt.Errorf("load transactions for %s: %w", msg.UserID, err)
	}
	computed := core.BalanceOf(transactions)

	stored, err := userStore.StoredBalance(ctx)
	if err != nil {
		return fmt.Errorf("read stored balance for %s: %w", msg.UserID, err)
	}
	if stored.Equal(computed) {
		return nil
	}

	if err := userStore.SetStoredBalance(ctx, computed); err != nil {
		return fmt.Errorf("repair balance for %s: %w", msg.UserID, err)
	}
	slog.InfoContext(ctx, "Repaired balance drift",
		applog.FieldUserID, msg.UserID,
		"stored", stored.String(),
		applog.FieldBalance, computed.String())
	return nil
}
