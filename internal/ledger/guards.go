package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"fambudget/internal/core"
)

// guardReferences runs the referential and cross-field checks for a
// transaction about to be applied. It must run inside the same atomic unit
// as the insert so a referenced row cannot disappear in between.
//
// For debt movements it also snapshots the debtor's direction onto the row.
func (e *Engine) guardReferences(ctx context.Context, r Reader, scope core.Scope, t *core.Transaction) error {
	refs := t.Refs

	for _, ref := range []struct {
		id    *uuid.UUID
		field string
	}{
		{refs.AccountID, "accountId"},
		{refs.FromAccountID, "fromAccountId"},
		{refs.ToAccountID, "toAccountId"},
	} {
		if ref.id == nil {
			continue
		}
		account, err := e.accountRef(ctx, r, scope, *ref.id)
		if err != nil {
			return fmt.Errorf("%s: %w", ref.field, err)
		}
		if account.Archived {
			return fmt.Errorf("%s: archived account: %w", ref.field, core.ErrInvalidReferences)
		}
	}

	if refs.CategoryID != nil {
		category, err := r.GetCategory(ctx, *refs.CategoryID)
		if err := checkRef(err, category.WorkspaceID, scope); err != nil {
			return fmt.Errorf("categoryId: %w", err)
		}
	}

	if refs.IncomeSourceID != nil {
		source, err := r.GetIncomeSource(ctx, *refs.IncomeSourceID)
		if err := checkRef(err, source.WorkspaceID, scope); err != nil {
			return fmt.Errorf("incomeSourceId: %w", err)
		}
	}

	if refs.GoalID != nil {
		goal, err := r.GetGoal(ctx, *refs.GoalID)
		if err := checkRef(err, goal.WorkspaceID, scope); err != nil {
			return fmt.Errorf("goalId: %w", err)
		}
		if goal.Status != core.GoalActive {
			return fmt.Errorf("goalId: goal not active: %w", core.ErrInvalidReferences)
		}
	}

	if refs.DebtorID != nil {
		debtor, err := r.GetDebtor(ctx, *refs.DebtorID)
		if err := checkRef(err, debtor.WorkspaceID, scope); err != nil {
			return fmt.Errorf("debtorId: %w", err)
		}
		if debtor.Status != core.DebtorActive {
			return fmt.Errorf("debtorId: debtor not active: %w", core.ErrInvalidReferences)
		}
		t.DebtDirection = debtor.Direction
	}

	return nil
}

// accountRef resolves an account reference under the caller's scope.
func (e *Engine) accountRef(ctx context.Context, r Reader, scope core.Scope, id uuid.UUID) (core.Account, error) {
	account, err := r.GetAccount(ctx, id)
	if err := checkRef(err, account.WorkspaceID, scope); err != nil {
		return core.Account{}, err
	}
	return account, nil
}

// checkRef classifies a reference lookup: a dangling id is a caller
// mistake, a row in another workspace is a tenancy violation. The two are
// distinct on purpose; the latter is security-relevant.
func checkRef(err error, rowWorkspace uuid.UUID, scope core.Scope) error {
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.ErrInvalidReferences
		}
		return err
	}
	if rowWorkspace != scope.WorkspaceID {
		return core.ErrForbiddenReference
	}
	return nil
}

// guardNameFree enforces case-insensitive name uniqueness before a create
// or rename. The check-then-insert window stays open here; the store's
// unique index on the folded name is the final authority and its violation
// is translated to core.ErrDuplicateName by the store.
func guardNameFree(ctx context.Context, taken func(context.Context, uuid.UUID, string) (bool, error), workspaceID uuid.UUID, name string) error {
	exists, err := taken(ctx, workspaceID, core.FoldName(name))
	if err != nil {
		return err
	}
	if exists {
		return core.ErrDuplicateName
	}
	return nil
}

// guardNotInUse blocks deletion of an entity still referenced by
// transactions. Referential integrity in the store backs this up with
// RESTRICT foreign keys.
func guardNotInUse(ctx context.Context, count func(context.Context, uuid.UUID, uuid.UUID) (int64, error), workspaceID, id uuid.UUID) error {
	n, err := count(ctx, workspaceID, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%d referencing transactions: %w", n, core.ErrEntityInUse)
	}
	return nil
}
