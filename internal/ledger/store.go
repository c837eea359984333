// Package ledger implements the invariant-preserving core of the budget:
// applying and reversing monetary movements atomically, and the integrity
// guards every mutation runs through.
package ledger

import (
	"context"

	"github.com/google/uuid"

	"fambudget/internal/core"
)

// Reader is the read surface the engine uses both inside and outside an
// atomic unit.
//
// Get* methods look up by id alone and return the row's true workspace; the
// engine's referential guard is the single place that decides whether a
// cross-workspace row is "forbidden" or "not found". List* and Count*
// methods are workspace-scoped at the query level.
type Reader interface {
	GetAccount(ctx context.Context, id uuid.UUID) (core.Account, error)
	GetCategory(ctx context.Context, id uuid.UUID) (core.Category, error)
	GetIncomeSource(ctx context.Context, id uuid.UUID) (core.IncomeSource, error)
	GetGoal(ctx context.Context, id uuid.UUID) (core.Goal, error)
	GetDebtor(ctx context.Context, id uuid.UUID) (core.Debtor, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (core.Transaction, error)

	ListAccounts(ctx context.Context, workspaceID uuid.UUID, includeArchived bool) ([]core.Account, error)
	ListCategories(ctx context.Context, workspaceID uuid.UUID) ([]core.Category, error)
	ListIncomeSources(ctx context.Context, workspaceID uuid.UUID) ([]core.IncomeSource, error)
	ListGoals(ctx context.Context, workspaceID uuid.UUID) ([]core.Goal, error)
	ListDebtors(ctx context.Context, workspaceID uuid.UUID) ([]core.Debtor, error)
	ListTransactions(ctx context.Context, workspaceID uuid.UUID, filter core.TransactionFilter) ([]core.Transaction, error)

	// CategoryNameTaken and IncomeSourceNameTaken answer the case-folded
	// uniqueness pre-check. The unique index remains the final authority.
	CategoryNameTaken(ctx context.Context, workspaceID uuid.UUID, folded string) (bool, error)
	IncomeSourceNameTaken(ctx context.Context, workspaceID uuid.UUID, folded string) (bool, error)

	// Reference counts backing the in-use guard.
	CountTransactionsByAccount(ctx context.Context, workspaceID, accountID uuid.UUID) (int64, error)
	CountTransactionsByCategory(ctx context.Context, workspaceID, categoryID uuid.UUID) (int64, error)
	CountTransactionsByIncomeSource(ctx context.Context, workspaceID, incomeSourceID uuid.UUID) (int64, error)
	CountTransactionsByGoal(ctx context.Context, workspaceID, goalID uuid.UUID) (int64, error)
	CountTransactionsByDebtor(ctx context.Context, workspaceID, debtorID uuid.UUID) (int64, error)
}

// Tx is the mutation surface available inside one atomic unit. All writes
// made through a Tx become visible together or not at all.
//
// AdjustAccountBalance and friends are atomic increments executed by the
// store ("balance = balance + delta"), never read-modify-write at this
// layer; that is what keeps concurrent applies on one account from losing
// updates.
type Tx interface {
	Reader

	InsertTransaction(ctx context.Context, t core.Transaction) error
	DeleteTransaction(ctx context.Context, workspaceID, id uuid.UUID) error

	AdjustAccountBalance(ctx context.Context, workspaceID, accountID uuid.UUID, deltaCents int64) error
	// AdjustGoalProgress moves currentAmount and recomputes the goal's
	// completed/active status inside the same statement set.
	AdjustGoalProgress(ctx context.Context, workspaceID, goalID uuid.UUID, deltaCents int64) error
	// AdjustDebtorPaid moves the paid progress and recomputes the debtor's
	// status against its payoff target.
	AdjustDebtorPaid(ctx context.Context, workspaceID, debtorID uuid.UUID, deltaCents int64) error
}

// Store is the durable ledger record. RunAtomic serializes conflicting
// writes; a store that cannot begin or commit reports core.ErrStoreBusy and
// guarantees none of the unit's writes are visible.
type Store interface {
	Reader

	RunAtomic(ctx context.Context, fn func(tx Tx) error) error

	CreateAccount(ctx context.Context, a core.Account) error
	ArchiveAccount(ctx context.Context, workspaceID, id uuid.UUID, archived bool) error
	DeleteAccount(ctx context.Context, workspaceID, id uuid.UUID) error

	// CreateCategory and CreateIncomeSource translate a uniqueness
	// constraint violation into core.ErrDuplicateName.
	CreateCategory(ctx context.Context, c core.Category) error
	DeleteCategory(ctx context.Context, workspaceID, id uuid.UUID) error
	CreateIncomeSource(ctx context.Context, s core.IncomeSource) error
	DeleteIncomeSource(ctx context.Context, workspaceID, id uuid.UUID) error

	CreateGoal(ctx context.Context, g core.Goal) error
	DeleteGoal(ctx context.Context, workspaceID, id uuid.UUID) error
	CreateDebtor(ctx context.Context, d core.Debtor) error
	DeleteDebtor(ctx context.Context, workspaceID, id uuid.UUID) error

	// ResolveNames fills display names for a transaction's references.
	ResolveNames(ctx context.Context, t *core.Transaction) error
}
