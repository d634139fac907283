// Package remote implements the store adapter on Cloud Firestore. Records
// live under users/{uid}/<collection>; a separate top-level balances/{uid}
// document holds the stored aggregate balance for that user.
//
// The aggregate is never allowed to drift from the log by construction:
// transaction creates and deletes run the log write and the aggregate
// read-modify-write inside a single Firestore transaction, so either both
// apply or neither does.
package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"neuronbudget/internal/core"
	"neuronbudget/internal/store"
)

const defaultCallTimeout = 10 * time.Second

type Client struct {
	fs      *firestore.Client
	timeout time.Duration
}

// New connects to Firestore for the given project. credentialsFile may be
// empty, in which case application default credentials are used.
func New(ctx context.Context, projectID, credentialsFile string, timeout time.Duration) (*Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("%w: missing Firestore project id", core.ErrRemoteUnavailable)
	}
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	fs, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: connect firestore: %v", core.ErrRemoteUnavailable, err)
	}

	return &Client{fs: fs, timeout: timeout}, nil
}

func (c *Client) Close() error {
	return c.fs.Close()
}

// ForUser returns the adapter view of one user's namespace.
func (c *Client) ForUser(uid string) *UserStore {
	return &UserStore{c: c, uid: uid}
}

// UserStore is the per-user namespaced adapter.
type UserStore struct {
	c   *Client
	uid string
}

var (
	_ store.Adapter      = (*UserStore)(nil)
	_ store.BalanceStore = (*UserStore)(nil)
)

type transactionDoc struct {
	Type        string    `firestore:"type"`
	Amount      string    `firestore:"amount"`
	Category    string    `firestore:"category"`
	Description string    `firestore:"description"`
	Date        string    `firestore:"date"`
	CreatedAt   time.Time `firestore:"createdAt"`
}

type budgetDoc struct {
	Category  string    `firestore:"category"`
	Limit     string    `firestore:"limit"`
	Period    string    `firestore:"period"`
	CreatedAt time.Time `firestore:"createdAt"`
}

type goalDoc struct {
	Name      string    `firestore:"name"`
	Target    string    `firestore:"target"`
	Current   string    `firestore:"current"`
	Deadline  string    `firestore:"deadline"`
	CreatedAt time.Time `firestore:"createdAt"`
}

type balanceDoc struct {
	Balance   string    `firestore:"balance"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func (u *UserStore) col(name string) *firestore.CollectionRef {
	return u.c.fs.Collection("users").Doc(u.uid).Collection(name)
}

func (u *UserStore) balanceRef() *firestore.DocumentRef {
	return u.c.fs.Collection("balances").Doc(u.uid)
}

// call runs fn with a bounded timeout and a single retry for transient
// transport failures, mapping the final error to the repository's kinds.
func (u *UserStore) call(ctx context.Context, op string, fn func(context.Context) error) error {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		cctx, cancel := context.WithTimeout(ctx, u.c.timeout)
		err = fn(cctx)
		cancel()
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			break
		}
		slog.WarnContext(ctx, "Transient remote failure, retrying",
			"operation", op,
			"user_id", u.uid,
			"error", err)
	}
	return remoteErr(op, err)
}

func isTransient(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded:
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func remoteErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, core.ErrNotFound) || status.Code(err) == codes.NotFound {
		return core.ErrNotFound
	}
	return fmt.Errorf("%w: %s: %v", core.ErrRemoteUnavailable, op, err)
}

func readBalance(tx *firestore.Transaction, ref *firestore.DocumentRef) (decimal.Decimal, error) {
	snap, err := tx.Get(ref)
	if status.Code(err) == codes.NotFound {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	var doc balanceDoc
	if err := snap.DataTo(&doc); err != nil {
		return decimal.Zero, fmt.Errorf("decode balance doc: %w", err)
	}
	return decimal.NewFromString(doc.Balance)
}

// CreateTransaction appends the transaction document and applies its signed
// amount to the aggregate balance, both inside one Firestore transaction.
func (u *UserStore) CreateTransaction(ctx context.Context, t core.Transaction) (string, error) {
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	ref := u.col(store.Transactions).NewDoc()
	doc := transactionDoc{
		Type:        string(t.Type),
		Amount:      t.Amount.String(),
		Category:    t.Category,
		Description: t.Description,
		Date:        t.Date.String(),
		CreatedAt:   createdAt,
	}

	err := u.call(ctx, "create transaction", func(ctx context.Context) error {
		return u.c.fs.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
			balance, err := readBalance(tx, u.balanceRef())
			if err != nil {
				return err
			}
			if err := tx.Create(ref, doc); err != nil {
				return err
			}
			return tx.Set(u.balanceRef(), balanceDoc{
				Balance:   balance.Add(t.Signed()).String(),
				UpdatedAt: time.Now().UTC(),
			})
		})
	})
	if err != nil {
		return "", err
	}

	slog.InfoContext(ctx, "Transaction saved to Firestore",
		"id", ref.ID,
		"user_id", u.uid,
		"type", t.Type,
		"amount", t.Amount.String())

	return ref.ID, nil
}

func (u *UserStore) Transactions(ctx context.Context) ([]core.Transaction, error) {
	var out []core.Transaction
	err := u.call(ctx, "list transactions", func(ctx context.Context) error {
		out = out[:0]
		// createdAt ordering keeps listing in insertion order, matching the
		// local backend's rowid ordering.
		it := u.col(store.Transactions).OrderBy("createdAt", firestore.Asc).Documents(ctx)
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err == iterator.Done {
				return nil
			}
			if err != nil {
				return err
			}
			t, err := decodeTransaction(snap)
			if err != nil {
				return err
			}
			out = append(out, t)
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (u *UserStore) Transaction(ctx context.Context, id string) (core.Transaction, error) {
	var out core.Transaction
	err := u.call(ctx, "get transaction", func(ctx context.Context) error {
		snap, err := u.col(store.Transactions).Doc(id).Get(ctx)
		if err != nil {
			return err
		}
		out, err = decodeTransaction(snap)
		return err
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return out, nil
}

// DeleteTransaction removes the document and subtracts its signed amount
// from the aggregate balance atomically.
func (u *UserStore) DeleteTransaction(ctx context.Context, id string) error {
	ref := u.col(store.Transactions).Doc(id)
	return u.call(ctx, "delete transaction", func(ctx context.Context) error {
		return u.c.fs.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
			snap, err := tx.Get(ref)
			if status.Code(err) == codes.NotFound {
				return core.ErrNotFound
			}
			if err != nil {
				return err
			}
			t, err := decodeTransaction(snap)
			if err != nil {
				return err
			}
			balance, err := readBalance(tx, u.balanceRef())
			if err != nil {
				return err
			}
			if err := tx.Delete(ref); err != nil {
				return err
			}
			return tx.Set(u.balanceRef(), balanceDoc{
				Balance:   balance.Sub(t.Signed()).String(),
				UpdatedAt: time.Now().UTC(),
			})
		})
	})
}

func (u *UserStore) CreateBudget(ctx context.Context, b core.Budget) (string, error) {
	doc := budgetDoc{
		Category:  b.Category,
		Limit:     b.Limit.String(),
		Period:    string(b.Period),
		CreatedAt: time.Now().UTC(),
	}
	var id string
	err := u.call(ctx, "create budget", func(ctx context.Context) error {
		ref, _, err := u.col(store.Budgets).Add(ctx, doc)
		if err != nil {
			return err
		}
		id = ref.ID
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (u *UserStore) Budgets(ctx context.Context) ([]core.Budget, error) {
	var out []core.Budget
	err := u.call(ctx, "list budgets", func(ctx context.Context) error {
		out = out[:0]
		it := u.col(store.Budgets).OrderBy("createdAt", firestore.Asc).Documents(ctx)
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err == iterator.Done {
				return nil
			}
			if err != nil {
				return err
			}
			b, err := decodeBudget(snap)
			if err != nil {
				return err
			}
			out = append(out, b)
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (u *UserStore) DeleteBudget(ctx context.Context, id string) error {
	return u.deleteExisting(ctx, "delete budget", u.col(store.Budgets).Doc(id))
}

func (u *UserStore) CreateGoal(ctx context.Context, g core.Goal) (string, error) {
	doc := goalDoc{
		Name:      g.Name,
		Target:    g.Target.String(),
		Current:   g.Current.String(),
		Deadline:  g.Deadline.String(),
		CreatedAt: time.Now().UTC(),
	}
	var id string
	err := u.call(ctx, "create goal", func(ctx context.Context) error {
		ref, _, err := u.col(store.Goals).Add(ctx, doc)
		if err != nil {
			return err
		}
		id = ref.ID
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (u *UserStore) Goals(ctx context.Context) ([]core.Goal, error) {
	var out []core.Goal
	err := u.call(ctx, "list goals", func(ctx context.Context) error {
		out = out[:0]
		it := u.col(store.Goals).OrderBy("createdAt", firestore.Asc).Documents(ctx)
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err == iterator.Done {
				return nil
			}
			if err != nil {
				return err
			}
			g, err := decodeGoal(snap)
			if err != nil {
				return err
			}
			out = append(out, g)
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (u *UserStore) Goal(ctx context.Context, id string) (core.Goal, error) {
	var out core.Goal
	err := u.call(ctx, "get goal", func(ctx context.Context) error {
		snap, err := u.col(store.Goals).Doc(id).Get(ctx)
		if err != nil {
			return err
		}
		out, err = decodeGoal(snap)
		return err
	})
	if err != nil {
		return core.Goal{}, err
	}
	return out, nil
}

func (u *UserStore) UpdateGoal(ctx context.Context, g core.Goal) error {
	// Update fails with NotFound for a missing document, unlike Set.
	return u.call(ctx, "update goal", func(ctx context.Context) error {
		_, err := u.col(store.Goals).Doc(g.ID).Update(ctx, []firestore.Update{
			{Path: "name", Value: g.Name},
			{Path: "target", Value: g.Target.String()},
			{Path: "current", Value: g.Current.String()},
			{Path: "deadline", Value: g.Deadline.String()},
		})
		return err
	})
}

func (u *UserStore) DeleteGoal(ctx context.Context, id string) error {
	return u.deleteExisting(ctx, "delete goal", u.col(store.Goals).Doc(id))
}

// deleteExisting deletes the document only if it exists, so missing ids
// surface as NotFound instead of a silent no-op.
func (u *UserStore) deleteExisting(ctx context.Context, op string, ref *firestore.DocumentRef) error {
	return u.call(ctx, op, func(ctx context.Context) error {
		return u.c.fs.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
			if _, err := tx.Get(ref); err != nil {
				if status.Code(err) == codes.NotFound {
					return core.ErrNotFound
				}
				return err
			}
			return tx.Delete(ref)
		})
	})
}

// StoredBalance reads the aggregate balance document. A missing document
// means no transactions were ever written and reads as zero.
func (u *UserStore) StoredBalance(ctx context.Context) (decimal.Decimal, error) {
	var out decimal.Decimal
	err := u.call(ctx, "read stored balance", func(ctx context.Context) error {
		snap, err := u.balanceRef().Get(ctx)
		if status.Code(err) == codes.NotFound {
			out = decimal.Zero
			return nil
		}
		if err != nil {
			return err
		}
		var doc balanceDoc
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode balance doc: %w", err)
		}
		out, err = decimal.NewFromString(doc.Balance)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	return out, nil
}

// SetStoredBalance overwrites the aggregate balance document. Used by the
// reconciler to repair drift caused by concurrent writers.
func (u *UserStore) SetStoredBalance(ctx context.Context, balance decimal.Decimal) error {
	return u.call(ctx, "write stored balance", func(ctx context.Context) error {
		_, err := u.balanceRef().Set(ctx, balanceDoc{
			Balance:   balance.String(),
			UpdatedAt: time.Now().UTC(),
		})
		return err
	})
}

func decodeTransaction(snap *firestore.DocumentSnapshot) (core.Transaction, error) {
	var doc transactionDoc
	if err := snap.DataTo(&doc); err != nil {
		return core.Transaction{}, fmt.Errorf("decode transaction %s: %w", snap.Ref.ID, err)
	}
	amount, err := decimal.NewFromString(doc.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s amount: %w", snap.Ref.ID, err)
	}
	date, err := core.ParseDate(doc.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s date: %w", snap.Ref.ID, err)
	}
	return core.Transaction{
		ID:          snap.Ref.ID,
		Type:        core.TransactionType(doc.Type),
		Amount:      amount,
		Category:    doc.Category,
		Description: doc.Description,
		Date:        date,
		CreatedAt:   doc.CreatedAt,
	}, nil
}

func decodeBudget(snap *firestore.DocumentSnapshot) (core.Budget, error) {
	var doc budgetDoc
	if err := snap.DataTo(&doc); err != nil {
		return core.Budget{}, fmt.Errorf("decode budget %s: %w", snap.Ref.ID, err)
	}
	limit, err := decimal.NewFromString(doc.Limit)
	if err != nil {
		return core.Budget{}, fmt.Errorf("budget %s limit: %w", snap.Ref.ID, err)
	}
	return core.Budget{
		ID:       snap.Ref.ID,
		Category: doc.Category,
		Limit:    limit,
		Period:   core.BudgetPeriod(doc.Period),
	}, nil
}

func decodeGoal(snap *firestore.DocumentSnapshot) (core.Goal, error) {
	var doc goalDoc
	if err := snap.DataTo(&doc); err != nil {
		return core.Goal{}, fmt.Errorf("decode goal %s: %w", snap.Ref.ID, err)
	}
	target, err := decimal.NewFromString(doc.Target)
	if err != nil {
		return core.Goal{}, fmt.Errorf("goal %s target: %w", snap.Ref.ID, err)
	}
	current, err := decimal.NewFromString(doc.Current)
	if err != nil {
		return core.Goal{}, fmt.Errorf("goal %s current: %w", snap.Ref.ID, err)
	}
	deadline, err := core.ParseDate(doc.Deadline)
	if err != nil {
		return core.Goal{}, fmt.Errorf("goal %s deadline: %w", snap.Ref.ID, err)
	}
	return core.Goal{
		ID:       snap.Ref.ID,
		Name:     doc.Name,
		Target:   target,
		Current:  current,
		Deadline: deadline,
	}, nil
}
