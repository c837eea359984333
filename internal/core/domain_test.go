package core

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestFoldName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Groceries", "groceries"},
		{"  Rent  ", "rent"},
		{"ЕДА", "еда"},
		{"Еда", "еда"},
	}
	for _, tt := range tests {
		if got := FoldName(tt.input); got != tt.want {
			t.Errorf("FoldName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestResolveShape(t *testing.T) {
	id1 := uuid.New()
	id2 := uuid.New()

	tests := []struct {
		name      string
		kind      TransactionKind
		refs      TransactionRefs
		wantShape TransactionShape
		wantErr   error
	}{
		{
			name:      "income with account",
			kind:      KindIncome,
			refs:      TransactionRefs{AccountID: &id1},
			wantShape: ShapeIncome,
		},
		{
			name:      "income with source and category",
			kind:      KindIncome,
			refs:      TransactionRefs{AccountID: &id1, IncomeSourceID: &id2, CategoryID: &id2},
			wantShape: ShapeIncome,
		},
		{
			name:    "income without account",
			kind:    KindIncome,
			refs:    TransactionRefs{},
			wantErr: ErrInvalidReferences,
		},
		{
			name:    "income with goal ref",
			kind:    KindIncome,
			refs:    TransactionRefs{AccountID: &id1, GoalID: &id2},
			wantErr: ErrInvalidReferences,
		},
		{
			name:      "expense with account and category",
			kind:      KindExpense,
			refs:      TransactionRefs{AccountID: &id1, CategoryID: &id2},
			wantShape: ShapeExpense,
		},
		{
			name:    "expense with income source",
			kind:    KindExpense,
			refs:    TransactionRefs{AccountID: &id1, IncomeSourceID: &id2},
			wantErr: ErrInvalidReferences,
		},
		{
			name:    "expense with debtor ref",
			kind:    KindExpense,
			refs:    TransactionRefs{AccountID: &id1, DebtorID: &id2},
			wantErr: ErrInvalidReferences,
		},
		{
			name:      "account transfer",
			kind:      KindTransfer,
			refs:      TransactionRefs{FromAccountID: &id1, ToAccountID: &id2},
			wantShape: ShapeTransferAccount,
		},
		{
			name:    "transfer to same account",
			kind:    KindTransfer,
			refs:    TransactionRefs{FromAccountID: &id1, ToAccountID: &id1},
			wantErr: ErrInvalidReferences,
		},
		{
			name:      "goal transfer",
			kind:      KindTransfer,
			refs:      TransactionRefs{FromAccountID: &id1, GoalID: &id2},
			wantShape: ShapeTransferGoal,
		},
		{
			name:      "debt movement",
			kind:      KindTransfer,
			refs:      TransactionRefs{AccountID: &id1, DebtorID: &id2},
			wantShape: ShapeDebtMovement,
		},
		{
			name:    "transfer with category",
			kind:    KindTransfer,
			refs:    TransactionRefs{FromAccountID: &id1, ToAccountID: &id2, CategoryID: &id2},
			wantErr: ErrInvalidReferences,
		},
		{
			name:    "transfer with goal and debtor",
			kind:    KindTransfer,
			refs:    TransactionRefs{FromAccountID: &id1, GoalID: &id2, DebtorID: &id2},
			wantErr: ErrInvalidReferences,
		},
		{
			name:    "transfer with nothing",
			kind:    KindTransfer,
			refs:    TransactionRefs{},
			wantErr: ErrInvalidReferences,
		},
		{
			name:    "unknown kind",
			kind:    TransactionKind("refund"),
			refs:    TransactionRefs{AccountID: &id1},
			wantErr: ErrInvalidKind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shape, err := ResolveShape(tt.kind, tt.refs)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ResolveShape() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveShape() unexpected error: %v", err)
			}
			if shape != tt.wantShape {
				t.Errorf("ResolveShape() = %v, want %v", shape, tt.wantShape)
			}
		})
	}
}

func TestCheckStoredShape(t *testing.T) {
	accountID := uuid.New()
	debtorID := uuid.New()
	amount, _ := ParseAmount("10")

	valid := Transaction{
		Kind:   KindIncome,
		Shape:  ShapeIncome,
		Amount: amount,
		Refs:   TransactionRefs{AccountID: &accountID},
	}
	if err := valid.CheckStoredShape(); err != nil {
		t.Errorf("CheckStoredShape() on valid row = %v, want nil", err)
	}

	mismatched := valid
	mismatched.Shape = ShapeExpense
	if err := mismatched.CheckStoredShape(); !errors.Is(err, ErrCorruptTransaction) {
		t.Errorf("CheckStoredShape() with mismatched shape = %v, want ErrCorruptTransaction", err)
	}

	missingRef := valid
	missingRef.Refs = TransactionRefs{}
	if err := missingRef.CheckStoredShape(); !errors.Is(err, ErrCorruptTransaction) {
		t.Errorf("CheckStoredShape() with missing refs = %v, want ErrCorruptTransaction", err)
	}

	debtWithoutDirection := Transaction{
		Kind:   KindTransfer,
		Shape:  ShapeDebtMovement,
		Amount: amount,
		Refs:   TransactionRefs{AccountID: &accountID, DebtorID: &debtorID},
	}
	if err := debtWithoutDirection.CheckStoredShape(); !errors.Is(err, ErrCorruptTransaction) {
		t.Errorf("CheckStoredShape() without direction snapshot = %v, want ErrCorruptTransaction", err)
	}
	debtWithoutDirection.DebtDirection = DebtReceivable
	if err := debtWithoutDirection.CheckStoredShape(); err != nil {
		t.Errorf("CheckStoredShape() with direction snapshot = %v, want nil", err)
	}
}

func TestErrorClassification(t *testing.T) {
	if !IsClientError(ErrInvalidAmount) || !IsClientError(ErrInvalidReferences) {
		t.Error("validation sentinels should classify as client errors")
	}
	if !IsTenancyViolation(ErrForbiddenReference) || !IsTenancyViolation(ErrNoActiveWorkspace) {
		t.Error("tenancy sentinels should classify as tenancy violations")
	}
	if !IsConflict(ErrDuplicateName) || !IsConflict(ErrEntityInUse) {
		t.Error("conflict sentinels should classify as conflicts")
	}
	if !IsRetryable(ErrStoreBusy) {
		t.Error("ErrStoreBusy should classify as retryable")
	}
	if !IsNotFound(ErrNotFound) {
		t.Error("ErrNotFound should classify as not found")
	}
	if IsClientError(ErrNotFound) || IsConflict(ErrStoreBusy) || IsTenancyViolation(ErrDuplicateName) {
		t.Error("classifications must not overlap")
	}
}

func TestKnownKind(t *testing.T) {
	for _, k := range []TransactionKind{KindIncome, KindExpense, KindTransfer} {
		if !KnownKind(k) {
			t.Errorf("KnownKind(%q) = false, want true", k)
		}
	}
	for _, k := range []TransactionKind{"", "refund", "INCOME"} {
		if KnownKind(k) {
			t.Errorf("KnownKind(%q) = true, want false", k)
		}
	}
}
