package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fambudget/internal/core"
)

// Engine validates requested money movements and applies or reverses them
// atomically against the store. It is the only code path that mutates
// account balances, goal progress, and debtor payoff progress.
type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Store exposes the engine's store for collaborators that only read.
func (e *Engine) Store() Store {
	return e.store
}

// Apply validates a transaction intent and, in one atomic unit, persists
// the row and applies exactly the balance deltas its shape implies.
//
// Validation runs in a fixed order and the first failure wins: kind,
// amount, date, reference shape, then per-reference guards inside the
// atomic unit. On any failure nothing is persisted.
func (e *Engine) Apply(ctx context.Context, scope core.Scope, intent core.TransactionIntent) (core.Transaction, error) {
	if !core.KnownKind(intent.Kind) {
		return core.Transaction{}, fmt.Errorf("apply: kind %q: %w", intent.Kind, core.ErrInvalidKind)
	}

	if intent.Amount.IsZero() {
		return core.Transaction{}, fmt.Errorf("apply: %w", core.ErrInvalidAmount)
	}

	happenedAt := intent.HappenedAt
	if happenedAt.IsZero() {
		happenedAt = time.Now().UTC()
	}

	shape, err := core.ResolveShape(intent.Kind, intent.Refs)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("apply: %w", err)
	}

	t := core.Transaction{
		ID:          uuid.New(),
		WorkspaceID: scope.WorkspaceID,
		Kind:        intent.Kind,
		Shape:       shape,
		Amount:      intent.Amount,
		HappenedAt:  happenedAt,
		Note:        intent.Note,
		Refs:        intent.Refs,
		DebtIssue:   intent.DebtIssue,
		CreatedAt:   time.Now().UTC(),
	}

	err = e.store.RunAtomic(ctx, func(tx Tx) error {
		if err := e.guardReferences(ctx, tx, scope, &t); err != nil {
			return err
		}
		if err := tx.InsertTransaction(ctx, t); err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		return applyDeltas(ctx, tx, scope.WorkspaceID, deltasFor(t, +1))
	})
	if err != nil {
		return core.Transaction{}, err
	}

	// Display names are response sugar, not ledger state; resolving them
	// outside the atomic unit keeps the unit minimal.
	if err := e.store.ResolveNames(ctx, &t); err != nil {
		slog.WarnContext(ctx, "Failed to resolve transaction display names",
			"transaction_id", t.ID, "error", err)
	}
	return t, nil
}

// Reverse deletes a transaction and restores every balance it had touched
// to its pre-apply value, in one atomic unit.
//
// Deltas are derived from the stored kind, shape, and references only.
// Current category/goal/debtor state is deliberately not consulted: a goal
// completed since the original apply must still be reversible.
func (e *Engine) Reverse(ctx context.Context, scope core.Scope, id uuid.UUID) error {
	return e.store.RunAtomic(ctx, func(tx Tx) error {
		t, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return fmt.Errorf("reverse: %w", err)
		}
		if t.WorkspaceID != scope.WorkspaceID {
			// A transaction in another workspace is indistinguishable from
			// a missing one for this caller.
			return fmt.Errorf("reverse: %w", core.ErrNotFound)
		}
		if err := t.CheckStoredShape(); err != nil {
			return fmt.Errorf("reverse %s: %w", t.ID, err)
		}
		if err := tx.DeleteTransaction(ctx, scope.WorkspaceID, id); err != nil {
			return fmt.Errorf("delete transaction: %w", err)
		}
		return applyDeltas(ctx, tx, scope.WorkspaceID, deltasFor(t, -1))
	})
}

// GetTransaction returns a single transaction scoped to the caller.
func (e *Engine) GetTransaction(ctx context.Context, scope core.Scope, id uuid.UUID) (core.Transaction, error) {
	t, err := e.store.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if t.WorkspaceID != scope.WorkspaceID {
		return core.Transaction{}, core.ErrNotFound
	}
	if err := e.store.ResolveNames(ctx, &t); err != nil {
		slog.WarnContext(ctx, "Failed to resolve transaction display names",
			"transaction_id", t.ID, "error", err)
	}
	return t, nil
}

// ListTransactions lists the caller's transactions with display names.
func (e *Engine) ListTransactions(ctx context.Context, scope core.Scope, filter core.TransactionFilter) ([]core.Transaction, error) {
	txs, err := e.store.ListTransactions(ctx, scope.WorkspaceID, filter)
	if err != nil {
		return nil, err
	}
	for i := range txs {
		if err := e.store.ResolveNames(ctx, &txs[i]); err != nil {
			slog.WarnContext(ctx, "Failed to resolve transaction display names",
				"transaction_id", txs[i].ID, "error", err)
		}
	}
	return txs, nil
}

// deltaTarget says which balance column a delta lands on.
type deltaTarget int

const (
	targetAccount deltaTarget = iota
	targetGoal
	targetDebtor
)

// balanceDelta is one signed mutation of a running balance.
type balanceDelta struct {
	target deltaTarget
	id     uuid.UUID
	cents  int64
}

// deltasFor enumerates the balance mutations implied by a transaction.
// sign is +1 for apply and -1 for reversal. The enumeration is total over
// the shape set; callers validate the shape before asking.
func deltasFor(t core.Transaction, sign int64) []balanceDelta {
	amount := sign * t.Amount.Cents()
	switch t.Shape {
	case core.ShapeIncome:
		return []balanceDelta{
			{targetAccount, *t.Refs.AccountID, amount},
		}
	case core.ShapeExpense:
		return []balanceDelta{
			{targetAccount, *t.Refs.AccountID, -amount},
		}
	case core.ShapeTransferAccount:
		return []balanceDelta{
			{targetAccount, *t.Refs.FromAccountID, -amount},
			{targetAccount, *t.Refs.ToAccountID, amount},
		}
	case core.ShapeTransferGoal:
		return []balanceDelta{
			{targetAccount, *t.Refs.FromAccountID, -amount},
			{targetGoal, *t.Refs.GoalID, amount},
		}
	case core.ShapeDebtMovement:
		// Repaying a receivable credits the account; repaying a payable
		// debits it. Issuing the principal is the exact opposite. The
		// direction snapshot on the row keeps this derivable without
		// re-reading debtor state.
		outgoing := t.DebtIssue
		if t.DebtDirection == core.DebtPayable {
			outgoing = !outgoing
		}
		accountDelta := amount
		if outgoing {
			accountDelta = -amount
		}
		deltas := []balanceDelta{
			{targetAccount, *t.Refs.AccountID, accountDelta},
		}
		if !t.DebtIssue {
			deltas = append(deltas, balanceDelta{targetDebtor, *t.Refs.DebtorID, amount})
		}
		return deltas
	}
	return nil
}

func applyDeltas(ctx context.Context, tx Tx, workspaceID uuid.UUID, deltas []balanceDelta) error {
	for _, d := range deltas {
		var err error
		switch d.target {
		case targetAccount:
			err = tx.AdjustAccountBalance(ctx, workspaceID, d.id, d.cents)
		case targetGoal:
			err = tx.AdjustGoalProgress(ctx, workspaceID, d.id, d.cents)
		case targetDebtor:
			err = tx.AdjustDebtorPaid(ctx, workspaceID, d.id, d.cents)
		}
		if err != nil {
			return fmt.Errorf("apply balance delta: %w", err)
		}
	}
	return nil
}
