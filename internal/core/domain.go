package core

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// FoldName normalizes an entity name for case-insensitive uniqueness.
// strings.ToLower handles non-ASCII alphabets, which SQLite's NOCASE does
// not, so the folded form is computed here and persisted alongside the name.
func FoldName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// WorkspaceType distinguishes the implicit personal workspace from shared
// family workspaces.
type WorkspaceType string

const (
	WorkspacePersonal WorkspaceType = "personal"
	WorkspaceFamily   WorkspaceType = "family"
)

// Role is a member's role within a workspace.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
)

// CategoryKind splits categories between the income and expense sides.
type CategoryKind string

const (
	CategoryIncome  CategoryKind = "income"
	CategoryExpense CategoryKind = "expense"
)

// GoalStatus tracks whether a savings goal is still being funded.
type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
)

// DebtorStatus tracks whether a debt is still open.
type DebtorStatus string

const (
	DebtorActive    DebtorStatus = "active"
	DebtorCompleted DebtorStatus = "completed"
)

// DebtDirection says which way the money flowed when the debt was issued.
// A receivable is money the workspace lent out; a payable is money it owes.
type DebtDirection string

const (
	DebtReceivable DebtDirection = "receivable"
	DebtPayable    DebtDirection = "payable"
)

// TransactionKind is the caller-facing classification of a ledger entry.
type TransactionKind string

const (
	KindIncome   TransactionKind = "income"
	KindExpense  TransactionKind = "expense"
	KindTransfer TransactionKind = "transfer"
)

// KnownKind reports whether k is an accepted transaction kind.
func KnownKind(k TransactionKind) bool {
	switch k {
	case KindIncome, KindExpense, KindTransfer:
		return true
	}
	return false
}

// TransactionShape is the resolved reference layout of a transaction.
// It is validated at apply time and persisted with the row so the reversal
// path never has to guess which balances were touched.
type TransactionShape string

const (
	ShapeIncome          TransactionShape = "income"
	ShapeExpense         TransactionShape = "expense"
	ShapeTransferAccount TransactionShape = "transfer_account"
	ShapeTransferGoal    TransactionShape = "transfer_goal"
	ShapeDebtMovement    TransactionShape = "debt_movement"
)

// Scope is the tenancy pair every ledger operation executes under. It is
// resolved per request and passed explicitly; no engine operation derives
// it from ambient state.
type Scope struct {
	UserID      uuid.UUID
	WorkspaceID uuid.UUID
}

// User is an authenticated Telegram identity.
type User struct {
	ID                uuid.UUID
	TelegramID        int64
	FirstName         string
	Username          string
	ActiveWorkspaceID *uuid.UUID
	CreatedAt         time.Time
}

// Workspace is the tenancy boundary. Every other entity belongs to exactly
// one workspace and is never visible outside it.
type Workspace struct {
	ID              uuid.UUID
	Type            WorkspaceType
	Name            string
	CreatedByUserID uuid.UUID
	CreatedAt       time.Time
}

// WorkspaceMember links a user to a workspace. One row per (workspace, user).
type WorkspaceMember struct {
	WorkspaceID uuid.UUID
	UserID      uuid.UUID
	Role        Role
	JoinedAt    time.Time
}

// Account holds a running balance. The balance is denormalized and mutated
// only by the ledger engine's apply and reversal paths.
type Account struct {
	ID          uuid.UUID
	WorkspaceID uuid.UUID
	Name        string
	Type        string
	Currency    string
	// BalanceCents is the raw signed running balance. It is not an Amount
	// because balances legitimately go negative.
	BalanceCents int64
	Archived     bool
	CreatedAt    time.Time
}

// Category labels income or expense transactions. Names are unique per
// workspace, case-insensitively, across both kinds.
type Category struct {
	ID          uuid.UUID
	WorkspaceID uuid.UUID
	Name        string
	Kind        CategoryKind
	Icon        string
	BudgetCents *int64
	CreatedAt   time.Time
}

// IncomeSource labels where income came from. Names are unique per
// workspace, case-insensitively.
type IncomeSource struct {
	ID          uuid.UUID
	WorkspaceID uuid.UUID
	Name        string
	CreatedAt   time.Time
}

// Goal is a savings target funded by goal-contribution transfers.
// CurrentCents moves only through the ledger engine.
type Goal struct {
	ID           uuid.UUID
	WorkspaceID  uuid.UUID
	Name         string
	Icon         string
	TargetCents  int64
	CurrentCents int64
	Status       GoalStatus
	CompletedAt  *time.Time
	CreatedAt    time.Time
}

// Debtor is an open debt, either direction. PaidCents moves only through
// debt-movement transactions.
type Debtor struct {
	ID             uuid.UUID
	WorkspaceID    uuid.UUID
	Name           string
	Icon           string
	Direction      DebtDirection
	IssuedAt       time.Time
	PrincipalCents int64
	PaidCents      int64
	DueAt          *time.Time
	PayoffCents    *int64
	Status         DebtorStatus
	CreatedAt      time.Time
}

// PayoffTarget is the amount that closes the debt: the explicit payoff
// amount when set, the principal otherwise.
func (d Debtor) PayoffTarget() int64 {
	if d.PayoffCents != nil {
		return *d.PayoffCents
	}
	return d.PrincipalCents
}

// TransactionRefs are the optional foreign references a transaction may
// carry. Which of them must be set is dictated by the shape.
type TransactionRefs struct {
	AccountID      *uuid.UUID
	CategoryID     *uuid.UUID
	IncomeSourceID *uuid.UUID
	FromAccountID  *uuid.UUID
	ToAccountID    *uuid.UUID
	GoalID         *uuid.UUID
	DebtorID       *uuid.UUID
}

// TransactionIntent is a requested money movement, before validation.
type TransactionIntent struct {
	Kind       TransactionKind
	Amount     Amount
	HappenedAt time.Time
	Note       string
	Refs       TransactionRefs
	// DebtIssue marks a debt movement as the principal hand-over rather
	// than a repayment; it inverts the account-side delta.
	DebtIssue bool
}

// Transaction is a persisted ledger entry. Immutable once created; the only
// mutation exposed is deletion through the reversal path.
type Transaction struct {
	ID          uuid.UUID
	WorkspaceID uuid.UUID
	Kind        TransactionKind
	Shape       TransactionShape
	Amount      Amount
	HappenedAt  time.Time
	Note        string
	Refs        TransactionRefs
	DebtIssue   bool
	// DebtDirection snapshots the debtor's direction at apply time so the
	// reversal path never re-reads debtor state to pick the balance sign.
	// Empty unless Shape is ShapeDebtMovement.
	DebtDirection DebtDirection
	CreatedAt     time.Time

	// Display names resolved for responses; not part of the ledger state.
	Names TransactionNames
}

// TransactionNames carries denormalized display names for responses.
type TransactionNames struct {
	Account      string `json:"account,omitempty"`
	Category     string `json:"category,omitempty"`
	IncomeSource string `json:"incomeSource,omitempty"`
	FromAccount  string `json:"fromAccount,omitempty"`
	ToAccount    string `json:"toAccount,omitempty"`
	Goal         string `json:"goal,omitempty"`
	Debtor       string `json:"debtor,omitempty"`
}

// TransactionFilter narrows transaction listings. Zero values mean "any".
type TransactionFilter struct {
	Year      int
	Month     int
	AccountID *uuid.UUID
	Kind      TransactionKind
	Limit     int
}

// ResolveShape maps (kind, refs) to exactly one shape, or fails with
// ErrInvalidKind / ErrInvalidReferences. Each shape requires its references
// present and every reference foreign to it absent, so a transaction's
// monetary direction is never ambiguous.
func ResolveShape(kind TransactionKind, refs TransactionRefs) (TransactionShape, error) {
	switch kind {
	case KindIncome:
		if refs.AccountID == nil ||
			refs.FromAccountID != nil || refs.ToAccountID != nil ||
			refs.GoalID != nil || refs.DebtorID != nil {
			return "", ErrInvalidReferences
		}
		return ShapeIncome, nil

	case KindExpense:
		if refs.AccountID == nil ||
			refs.FromAccountID != nil || refs.ToAccountID != nil ||
			refs.GoalID != nil || refs.DebtorID != nil {
			return "", ErrInvalidReferences
		}
		// Income sources never accompany expenses.
		if refs.IncomeSourceID != nil {
			return "", ErrInvalidReferences
		}
		return ShapeExpense, nil

	case KindTransfer:
		if refs.CategoryID != nil || refs.IncomeSourceID != nil {
			return "", ErrInvalidReferences
		}
		switch {
		case refs.FromAccountID != nil && refs.ToAccountID != nil &&
			refs.GoalID == nil && refs.DebtorID == nil && refs.AccountID == nil:
			if *refs.FromAccountID == *refs.ToAccountID {
				return "", ErrInvalidReferences
			}
			return ShapeTransferAccount, nil
		case refs.FromAccountID != nil && refs.GoalID != nil &&
			refs.ToAccountID == nil && refs.DebtorID == nil && refs.AccountID == nil:
			return ShapeTransferGoal, nil
		case refs.AccountID != nil && refs.DebtorID != nil &&
			refs.FromAccountID == nil && refs.ToAccountID == nil && refs.GoalID == nil:
			return ShapeDebtMovement, nil
		default:
			return "", ErrInvalidReferences
		}

	default:
		return "", ErrInvalidKind
	}
}

// CheckStoredShape verifies a persisted transaction still satisfies its
// stored shape. A mismatch is a data-integrity fault, not a caller error.
func (t Transaction) CheckStoredShape() error {
	shape, err := ResolveShape(t.Kind, t.Refs)
	if err != nil || shape != t.Shape {
		return ErrCorruptTransaction
	}
	if t.Shape == ShapeDebtMovement &&
		t.DebtDirection != DebtReceivable && t.DebtDirection != DebtPayable {
		return ErrCorruptTransaction
	}
	return nil
}
