package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"fambudget/internal/core"
	"fambudget/internal/ledger"
	"fambudget/internal/storage"
)

func newTestEngine(t *testing.T) (*ledger.Engine, core.Scope) {
	t.Helper()
	engine := ledger.NewEngine(storage.NewMemoryStore())
	scope := core.Scope{UserID: uuid.New(), WorkspaceID: uuid.New()}
	return engine, scope
}

func amount(t *testing.T, s string) core.Amount {
	t.Helper()
	a, err := core.ParseAmount(s)
	require.NoError(t, err)
	return a
}

func openAccount(t *testing.T, engine *ledger.Engine, scope core.Scope, name string) core.Account {
	t.Helper()
	account, err := engine.CreateAccount(context.Background(), scope, ledger.CreateAccountParams{Name: name})
	require.NoError(t, err)
	return account
}

func deposit(t *testing.T, engine *ledger.Engine, scope core.Scope, accountID uuid.UUID, amt string) core.Transaction {
	t.Helper()
	tx, err := engine.Apply(context.Background(), scope, core.TransactionIntent{
		Kind:   core.KindIncome,
		Amount: amount(t, amt),
		Refs:   core.TransactionRefs{AccountID: &accountID},
	})
	require.NoError(t, err)
	return tx
}

func balance(t *testing.T, engine *ledger.Engine, accountID uuid.UUID) int64 {
	t.Helper()
	account, err := engine.Store().GetAccount(context.Background(), accountID)
	require.NoError(t, err)
	return account.BalanceCents
}

func TestApplyIncome(t *testing.T) {
	engine, scope := newTestEngine(t)
	account := openAccount(t, engine, scope, "Checking")

	tx := deposit(t, engine, scope, account.ID, "1000")

	require.Equal(t, core.ShapeIncome, tx.Shape)
	require.Equal(t, scope.WorkspaceID, tx.WorkspaceID)
	require.False(t, tx.HappenedAt.IsZero())
	require.EqualValues(t, 100000, balance(t, engine, account.ID))
}

func TestApplyExpense(t *testing.T) {
	engine, scope := newTestEngine(t)
	account := openAccount(t, engine, scope, "Checking")
	deposit(t, engine, scope, account.ID, "1000")

	_, err := engine.Apply(context.Background(), scope, core.TransactionIntent{
		Kind:   core.KindExpense,
		Amount: amount(t, "400"),
		Refs:   core.TransactionRefs{AccountID: &account.ID},
	})
	require.NoError(t, err)
	require.EqualValues(t, 60000, balance(t, engine, account.ID))
}

func TestApplyTransferBetweenAccounts(t *testing.T) {
	engine, scope := newTestEngine(t)
	from := openAccount(t, engine, scope, "Checking")
	to := openAccount(t, engine, scope, "Savings")
	deposit(t, engine, scope, from.ID, "500")
	deposit(t, engine, scope, to.ID, "100")

	tx, err := engine.Apply(context.Background(), scope, core.TransactionIntent{
		Kind:   core.KindTransfer,
		Amount: amount(t, "250"),
		Refs:   core.TransactionRefs{FromAccountID: &from.ID, ToAccountID: &to.ID},
	})
	require.NoError(t, err)
	require.Equal(t, core.ShapeTransferAccount, tx.Shape)
	require.EqualValues(t, 25000, balance(t, engine, from.ID))
	require.EqualValues(t, 35000, balance(t, engine, to.ID))
}

func TestReverseRestoresBalances(t *testing.T) {
	engine, scope := newTestEngine(t)
	account := openAccount(t, engine, scope, "Checking")
	deposit(t, engine, scope, account.ID, "1000")

	expense, err := engine.Apply(context.Background(), scope, core.TransactionIntent{
		Kind:   core.KindExpense,
		Amount: amount(t, "400"),
		Refs:   core.TransactionRefs{AccountID: &account.ID},
	})
	require.NoError(t, err)
	require.EqualValues(t, 60000, balance(t, engine, account.ID))

	require.NoError(t, engine.Reverse(context.Background(), scope, expense.ID))
	require.EqualValues(t, 100000, balance(t, engine, account.ID))

	_, err = engine.GetTransaction(context.Background(), scope, expense.ID)
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestApplyValidation(t *testing.T) {
	engine, scope := newTestEngine(t)
	account := openAccount(t, engine, scope, "Checking")

	tests := []struct {
		name    string
		intent  core.TransactionIntent
		wantErr error
	}{
		{
			name: "unknown kind",
			intent: core.TransactionIntent{
				Kind:   core.TransactionKind("refund"),
				Amount: amount(t, "10"),
				Refs:   core.TransactionRefs{AccountID: &account.ID},
			},
			wantErr: core.ErrInvalidKind,
		},
		{
			name: "zero amount",
			intent: core.TransactionIntent{
				Kind: core.KindIncome,
				Refs: core.TransactionRefs{AccountID: &account.ID},
			},
			wantErr: core.ErrInvalidAmount,
		},
		{
			name: "income without account",
			intent: core.TransactionIntent{
				Kind:   core.KindIncome,
				Amount: amount(t, "10"),
			},
			wantErr: core.ErrInvalidReferences,
		},
		{
			name: "unknown account reference",
			intent: core.TransactionIntent{
				Kind:   core.KindIncome,
				Amount: amount(t, "10"),
				Refs:   core.TransactionRefs{AccountID: ptr(uuid.New())},
			},
			wantErr: core.ErrInvalidReferences,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Apply(context.Background(), scope, tt.intent)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	// Nothing was persisted along the way.
	txs, err := engine.ListTransactions(context.Background(), scope, core.TransactionFilter{})
	require.NoError(t, err)
	require.Empty(t, txs)
	require.EqualValues(t, 0, balance(t, engine, account.ID))
}

func TestApplyRejectsArchivedAccount(t *testing.T) {
	engine, scope := newTestEngine(t)
	account := openAccount(t, engine, scope, "Old wallet")
	require.NoError(t, engine.SetAccountArchived(context.Background(), scope, account.ID, true))

	_, err := engine.Apply(context.Background(), scope, core.TransactionIntent{
		Kind:   core.KindIncome,
		Amount: amount(t, "10"),
		Refs:   core.TransactionRefs{AccountID: &account.ID},
	})
	require.ErrorIs(t, err, core.ErrInvalidReferences)
}

func TestApplyForeignAccountForbidden(t *testing.T) {
	engine, scope := newTestEngine(t)
	other := core.Scope{UserID: uuid.New(), WorkspaceID: uuid.New()}
	foreign := openAccount(t, engine, other, "Their account")

	_, err := engine.Apply(context.Background(), scope, core.TransactionIntent{
		Kind:   core.KindIncome,
		Amount: amount(t, "10"),
		Refs:   core.TransactionRefs{AccountID: &foreign.ID},
	})
	require.ErrorIs(t, err, core.ErrForbiddenReference)
	require.EqualValues(t, 0, balance(t, engine, foreign.ID))
}

func TestTenancyIsolation(t *testing.T) {
	engine, scope := newTestEngine(t)
	other := core.Scope{UserID: uuid.New(), WorkspaceID: uuid.New()}
	account := openAccount(t, engine, scope, "Checking")
	tx := deposit(t, engine, scope, account.ID, "100")

	// A transaction in another workspace looks missing, not forbidden.
	_, err := engine.GetTransaction(context.Background(), other, tx.ID)
	require.ErrorIs(t, err, core.ErrNotFound)

	err = engine.Reverse(context.Background(), other, tx.ID)
	require.ErrorIs(t, err, core.ErrNotFound)
	require.EqualValues(t, 10000, balance(t, engine, account.ID))

	txs, err := engine.ListTransactions(context.Background(), other, core.TransactionFilter{})
	require.NoError(t, err)
	require.Empty(t, txs)
}

func TestGoalContributionAndCompletion(t *testing.T) {
	ctx := context.Background()
	engine, scope := newTestEngine(t)
	account := openAccount(t, engine, scope, "Checking")
	deposit(t, engine, scope, account.ID, "1000")

	goal, err := engine.CreateGoal(ctx, scope, ledger.CreateGoalParams{
		Name:   "Vacation",
		Target: amount(t, "300"),
	})
	require.NoError(t, err)

	goal, err = engine.ContributeToGoal(ctx, scope, goal.ID, account.ID, amount(t, "100"), time.Time{})
	require.NoError(t, err)
	require.EqualValues(t, 10000, goal.CurrentCents)
	require.Equal(t, core.GoalActive, goal.Status)

	goal, err = engine.ContributeToGoal(ctx, scope, goal.ID, account.ID, amount(t, "200"), time.Time{})
	require.NoError(t, err)
	require.EqualValues(t, 30000, goal.CurrentCents)
	require.Equal(t, core.GoalCompleted, goal.Status)
	require.NotNil(t, goal.CompletedAt)
	require.EqualValues(t, 70000, balance(t, engine, account.ID))

	// Reversing the completing contribution reopens the goal.
	txs, err := engine.ListTransactions(ctx, scope, core.TransactionFilter{Kind: core.KindTransfer})
	require.NoError(t, err)
	require.Len(t, txs, 2)
	completing := txs[0]
	if completing.Amount.Cents() != 20000 {
		completing = txs[1]
	}
	require.Equal(t, core.ShapeTransferGoal, completing.Shape)

	require.NoError(t, engine.Reverse(ctx, scope, completing.ID))
	goal, err = engine.Store().GetGoal(ctx, goal.ID)
	require.NoError(t, err)
	require.EqualValues(t, 10000, goal.CurrentCents)
	require.Equal(t, core.GoalActive, goal.Status)
	require.Nil(t, goal.CompletedAt)
	require.EqualValues(t, 90000, balance(t, engine, account.ID))
}

func TestDebtReceivableLifecycle(t *testing.T) {
	ctx := context.Background()
	engine, scope := newTestEngine(t)
	account := openAccount(t, engine, scope, "Checking")
	deposit(t, engine, scope, account.ID, "1000")

	// Lending 500 moves the principal out of the account.
	debtor, err := engine.CreateDebtor(ctx, scope, ledger.CreateDebtorParams{
		Name:      "Alice",
		Direction: core.DebtReceivable,
		Principal: amount(t, "500"),
		AccountID: &account.ID,
	})
	require.NoError(t, err)
	require.EqualValues(t, 50000, balance(t, engine, account.ID))
	require.EqualValues(t, 0, debtor.PaidCents)
	require.Equal(t, core.DebtorActive, debtor.Status)

	// Repayments come back in and advance payoff progress.
	debtor, err = engine.RecordDebtPayment(ctx, scope, debtor.ID, account.ID, amount(t, "200"), time.Time{})
	require.NoError(t, err)
	require.EqualValues(t, 70000, balance(t, engine, account.ID))
	require.EqualValues(t, 20000, debtor.PaidCents)
	require.Equal(t, core.DebtorActive, debtor.Status)

	debtor, err = engine.RecordDebtPayment(ctx, scope, debtor.ID, account.ID, amount(t, "300"), time.Time{})
	require.NoError(t, err)
	require.EqualValues(t, 100000, balance(t, engine, account.ID))
	require.EqualValues(t, 50000, debtor.PaidCents)
	require.Equal(t, core.DebtorCompleted, debtor.Status)
}

func TestDebtPayableLifecycle(t *testing.T) {
	ctx := context.Background()
	engine, scope := newTestEngine(t)
	account := openAccount(t, engine, scope, "Checking")

	// Borrowing 500 moves the principal into the account.
	debtor, err := engine.CreateDebtor(ctx, scope, ledger.CreateDebtorParams{
		Name:      "Bank",
		Direction: core.DebtPayable,
		Principal: amount(t, "500"),
		AccountID: &account.ID,
	})
	require.NoError(t, err)
	require.EqualValues(t, 50000, balance(t, engine, account.ID))

	// Paying it back moves money out.
	debtor, err = engine.RecordDebtPayment(ctx, scope, debtor.ID, account.ID, amount(t, "500"), time.Time{})
	require.NoError(t, err)
	require.EqualValues(t, 0, balance(t, engine, account.ID))
	require.EqualValues(t, 50000, debtor.PaidCents)
	require.Equal(t, core.DebtorCompleted, debtor.Status)
}

func TestReverseDebtPayment(t *testing.T) {
	ctx := context.Background()
	engine, scope := newTestEngine(t)
	account := openAccount(t, engine, scope, "Checking")
	deposit(t, engine, scope, account.ID, "100")

	debtor, err := engine.CreateDebtor(ctx, scope, ledger.CreateDebtorParams{
		Name:      "Alice",
		Direction: core.DebtReceivable,
		Principal: amount(t, "300"),
	})
	require.NoError(t, err)

	debtor, err = engine.RecordDebtPayment(ctx, scope, debtor.ID, account.ID, amount(t, "300"), time.Time{})
	require.NoError(t, err)
	require.Equal(t, core.DebtorCompleted, debtor.Status)

	txs, err := engine.ListTransactions(ctx, scope, core.TransactionFilter{Kind: core.KindTransfer})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.Equal(t, core.DebtReceivable, txs[0].DebtDirection)

	require.NoError(t, engine.Reverse(ctx, scope, txs[0].ID))
	debtor, err = engine.Store().GetDebtor(ctx, debtor.ID)
	require.NoError(t, err)
	require.EqualValues(t, 0, debtor.PaidCents)
	require.Equal(t, core.DebtorActive, debtor.Status)
	require.EqualValues(t, 10000, balance(t, engine, account.ID))
}

func TestDuplicateNamesCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	engine, scope := newTestEngine(t)

	_, err := engine.CreateCategory(ctx, scope, ledger.CreateCategoryParams{Name: "Еда", Kind: core.CategoryExpense})
	require.NoError(t, err)
	_, err = engine.CreateCategory(ctx, scope, ledger.CreateCategoryParams{Name: "ЕДА", Kind: core.CategoryIncome})
	require.ErrorIs(t, err, core.ErrDuplicateName)

	// A different workspace is free to reuse the name.
	other := core.Scope{UserID: uuid.New(), WorkspaceID: uuid.New()}
	_, err = engine.CreateCategory(ctx, other, ledger.CreateCategoryParams{Name: "еда", Kind: core.CategoryExpense})
	require.NoError(t, err)

	_, err = engine.CreateIncomeSource(ctx, scope, "Salary")
	require.NoError(t, err)
	_, err = engine.CreateIncomeSource(ctx, scope, "SALARY")
	require.ErrorIs(t, err, core.ErrDuplicateName)
}

func TestDeleteGuardsEntitiesInUse(t *testing.T) {
	ctx := context.Background()
	engine, scope := newTestEngine(t)
	account := openAccount(t, engine, scope, "Checking")
	category, err := engine.CreateCategory(ctx, scope, ledger.CreateCategoryParams{Name: "Groceries", Kind: core.CategoryExpense})
	require.NoError(t, err)
	deposit(t, engine, scope, account.ID, "100")

	expense, err := engine.Apply(ctx, scope, core.TransactionIntent{
		Kind:   core.KindExpense,
		Amount: amount(t, "20"),
		Refs:   core.TransactionRefs{AccountID: &account.ID, CategoryID: &category.ID},
	})
	require.NoError(t, err)

	require.ErrorIs(t, engine.DeleteCategory(ctx, scope, category.ID), core.ErrEntityInUse)
	require.ErrorIs(t, engine.DeleteAccount(ctx, scope, account.ID), core.ErrEntityInUse)

	// Once the history is reversed the entities are free again.
	require.NoError(t, engine.Reverse(ctx, scope, expense.ID))
	require.NoError(t, engine.DeleteCategory(ctx, scope, category.ID))
}

func TestListTransactionsFilter(t *testing.T) {
	ctx := context.Background()
	engine, scope := newTestEngine(t)
	account := openAccount(t, engine, scope, "Checking")
	other := openAccount(t, engine, scope, "Savings")

	jan := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC)

	_, err := engine.Apply(ctx, scope, core.TransactionIntent{
		Kind: core.KindIncome, Amount: amount(t, "100"), HappenedAt: jan,
		Refs: core.TransactionRefs{AccountID: &account.ID},
	})
	require.NoError(t, err)
	_, err = engine.Apply(ctx, scope, core.TransactionIntent{
		Kind: core.KindExpense, Amount: amount(t, "30"), HappenedAt: feb,
		Refs: core.TransactionRefs{AccountID: &account.ID},
	})
	require.NoError(t, err)
	_, err = engine.Apply(ctx, scope, core.TransactionIntent{
		Kind: core.KindIncome, Amount: amount(t, "50"), HappenedAt: feb,
		Refs: core.TransactionRefs{AccountID: &other.ID},
	})
	require.NoError(t, err)

	txs, err := engine.ListTransactions(ctx, scope, core.TransactionFilter{Year: 2026, Month: 1})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.Equal(t, core.KindIncome, txs[0].Kind)

	txs, err = engine.ListTransactions(ctx, scope, core.TransactionFilter{AccountID: &other.ID})
	require.NoError(t, err)
	require.Len(t, txs, 1)

	txs, err = engine.ListTransactions(ctx, scope, core.TransactionFilter{Kind: core.KindExpense})
	require.NoError(t, err)
	require.Len(t, txs, 1)

	txs, err = engine.ListTransactions(ctx, scope, core.TransactionFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, txs, 2)
}

func TestOverviewSkipsArchivedAccounts(t *testing.T) {
	ctx := context.Background()
	engine, scope := newTestEngine(t)
	active := openAccount(t, engine, scope, "Checking")
	archived := openAccount(t, engine, scope, "Old wallet")
	require.NoError(t, engine.SetAccountArchived(ctx, scope, archived.ID, true))

	overview, err := engine.Overview(ctx, scope)
	require.NoError(t, err)
	require.Len(t, overview.Accounts, 1)
	require.Equal(t, active.ID, overview.Accounts[0].ID)
}

func ptr[T any](v T) *T { return &v }
