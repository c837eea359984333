package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"fambudget/internal/core"
)

// CreateAccountParams are the caller-supplied fields for a new account.
// Balances always start at zero; there is no way to seed one.
type CreateAccountParams struct {
	Name     string
	Type     string
	Currency string
}

func (e *Engine) CreateAccount(ctx context.Context, scope core.Scope, p CreateAccountParams) (core.Account, error) {
	if strings.TrimSpace(p.Name) == "" {
		return core.Account{}, fmt.Errorf("account name: %w", core.ErrInvalidReferences)
	}
	account := core.Account{
		ID:          uuid.New(),
		WorkspaceID: scope.WorkspaceID,
		Name:        p.Name,
		Type:        defaultStr(p.Type, "cash"),
		Currency:    defaultStr(p.Currency, "EUR"),
		CreatedAt:   time.Now().UTC(),
	}
	if err := e.store.CreateAccount(ctx, account); err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	return account, nil
}

func (e *Engine) ListAccounts(ctx context.Context, scope core.Scope, includeArchived bool) ([]core.Account, error) {
	return e.store.ListAccounts(ctx, scope.WorkspaceID, includeArchived)
}

func (e *Engine) SetAccountArchived(ctx context.Context, scope core.Scope, id uuid.UUID, archived bool) error {
	if _, err := e.requireAccount(ctx, scope, id); err != nil {
		return err
	}
	return e.store.ArchiveAccount(ctx, scope.WorkspaceID, id, archived)
}

// DeleteAccount removes an account that no transaction references.
func (e *Engine) DeleteAccount(ctx context.Context, scope core.Scope, id uuid.UUID) error {
	if _, err := e.requireAccount(ctx, scope, id); err != nil {
		return err
	}
	if err := guardNotInUse(ctx, e.store.CountTransactionsByAccount, scope.WorkspaceID, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return e.store.DeleteAccount(ctx, scope.WorkspaceID, id)
}

// CreateCategoryParams are the caller-supplied fields for a new category.
type CreateCategoryParams struct {
	Name   string
	Kind   core.CategoryKind
	Icon   string
	Budget *core.Amount
}

func (e *Engine) CreateCategory(ctx context.Context, scope core.Scope, p CreateCategoryParams) (core.Category, error) {
	if strings.TrimSpace(p.Name) == "" {
		return core.Category{}, fmt.Errorf("category name: %w", core.ErrInvalidReferences)
	}
	if p.Kind != core.CategoryIncome && p.Kind != core.CategoryExpense {
		return core.Category{}, fmt.Errorf("category kind %q: %w", p.Kind, core.ErrInvalidKind)
	}
	if err := guardNameFree(ctx, e.store.CategoryNameTaken, scope.WorkspaceID, p.Name); err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	category := core.Category{
		ID:          uuid.New(),
		WorkspaceID: scope.WorkspaceID,
		Name:        p.Name,
		Kind:        p.Kind,
		Icon:        p.Icon,
		CreatedAt:   time.Now().UTC(),
	}
	if p.Budget != nil {
		cents := p.Budget.Cents()
		category.BudgetCents = &cents
	}
	if err := e.store.CreateCategory(ctx, category); err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return category, nil
}

func (e *Engine) ListCategories(ctx context.Context, scope core.Scope) ([]core.Category, error) {
	return e.store.ListCategories(ctx, scope.WorkspaceID)
}

func (e *Engine) DeleteCategory(ctx context.Context, scope core.Scope, id uuid.UUID) error {
	category, err := e.store.GetCategory(ctx, id)
	if err != nil {
		return err
	}
	if category.WorkspaceID != scope.WorkspaceID {
		return core.ErrNotFound
	}
	if err := guardNotInUse(ctx, e.store.CountTransactionsByCategory, scope.WorkspaceID, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return e.store.DeleteCategory(ctx, scope.WorkspaceID, id)
}

func (e *Engine) CreateIncomeSource(ctx context.Context, scope core.Scope, name string) (core.IncomeSource, error) {
	if strings.TrimSpace(name) == "" {
		return core.IncomeSource{}, fmt.Errorf("income source name: %w", core.ErrInvalidReferences)
	}
	if err := guardNameFree(ctx, e.store.IncomeSourceNameTaken, scope.WorkspaceID, name); err != nil {
		return core.IncomeSource{}, fmt.Errorf("create income source: %w", err)
	}
	source := core.IncomeSource{
		ID:          uuid.New(),
		WorkspaceID: scope.WorkspaceID,
		Name:        name,
		CreatedAt:   time.Now().UTC(),
	}
	if err := e.store.CreateIncomeSource(ctx, source); err != nil {
		return core.IncomeSource{}, fmt.Errorf("create income source: %w", err)
	}
	return source, nil
}

func (e *Engine) ListIncomeSources(ctx context.Context, scope core.Scope) ([]core.IncomeSource, error) {
	return e.store.ListIncomeSources(ctx, scope.WorkspaceID)
}

func (e *Engine) DeleteIncomeSource(ctx context.Context, scope core.Scope, id uuid.UUID) error {
	source, err := e.store.GetIncomeSource(ctx, id)
	if err != nil {
		return err
	}
	if source.WorkspaceID != scope.WorkspaceID {
		return core.ErrNotFound
	}
	if err := guardNotInUse(ctx, e.store.CountTransactionsByIncomeSource, scope.WorkspaceID, id); err != nil {
		return fmt.Errorf("delete income source: %w", err)
	}
	return e.store.DeleteIncomeSource(ctx, scope.WorkspaceID, id)
}

// CreateGoalParams are the caller-supplied fields for a new savings goal.
type CreateGoalParams struct {
	Name   string
	Icon   string
	Target core.Amount
}

func (e *Engine) CreateGoal(ctx context.Context, scope core.Scope, p CreateGoalParams) (core.Goal, error) {
	if strings.TrimSpace(p.Name) == "" {
		return core.Goal{}, fmt.Errorf("goal name: %w", core.ErrInvalidReferences)
	}
	if p.Target.IsZero() {
		return core.Goal{}, fmt.Errorf("goal target: %w", core.ErrInvalidAmount)
	}
	goal := core.Goal{
		ID:          uuid.New(),
		WorkspaceID: scope.WorkspaceID,
		Name:        p.Name,
		Icon:        p.Icon,
		TargetCents: p.Target.Cents(),
		Status:      core.GoalActive,
		CreatedAt:   time.Now().UTC(),
	}
	if err := e.store.CreateGoal(ctx, goal); err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", err)
	}
	return goal, nil
}

func (e *Engine) ListGoals(ctx context.Context, scope core.Scope) ([]core.Goal, error) {
	return e.store.ListGoals(ctx, scope.WorkspaceID)
}

// ContributeToGoal moves money from an account into a goal. It is sugar
// over Apply with a goal-transfer shape, so every invariant of the apply
// path holds.
func (e *Engine) ContributeToGoal(ctx context.Context, scope core.Scope, goalID, accountID uuid.UUID, amount core.Amount, happenedAt time.Time) (core.Goal, error) {
	goal, err := e.store.GetGoal(ctx, goalID)
	if err != nil {
		return core.Goal{}, err
	}
	if goal.WorkspaceID != scope.WorkspaceID {
		return core.Goal{}, core.ErrNotFound
	}

	_, err = e.Apply(ctx, scope, core.TransactionIntent{
		Kind:       core.KindTransfer,
		Amount:     amount,
		HappenedAt: happenedAt,
		Refs: core.TransactionRefs{
			FromAccountID: &accountID,
			GoalID:        &goalID,
		},
	})
	if err != nil {
		return core.Goal{}, err
	}
	return e.store.GetGoal(ctx, goalID)
}

// DeleteGoal removes a goal nothing contributes to.
func (e *Engine) DeleteGoal(ctx context.Context, scope core.Scope, id uuid.UUID) error {
	goal, err := e.store.GetGoal(ctx, id)
	if err != nil {
		return err
	}
	if goal.WorkspaceID != scope.WorkspaceID {
		return core.ErrNotFound
	}
	if err := guardNotInUse(ctx, e.store.CountTransactionsByGoal, scope.WorkspaceID, id); err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return e.store.DeleteGoal(ctx, scope.WorkspaceID, id)
}

// CreateDebtorParams are the caller-supplied fields for a new debt record.
type CreateDebtorParams struct {
	Name      string
	Icon      string
	Direction core.DebtDirection
	Principal core.Amount
	IssuedAt  time.Time
	DueAt     *time.Time
	Payoff    *core.Amount
	// AccountID, when set, records the principal hand-over as a debt
	// movement against that account.
	AccountID *uuid.UUID
}

// CreateDebtor registers a debt and optionally moves the principal through
// an account. The account reference is validated before the debtor row is
// created; if the movement still fails the debtor row is compensated away.
func (e *Engine) CreateDebtor(ctx context.Context, scope core.Scope, p CreateDebtorParams) (core.Debtor, error) {
	if strings.TrimSpace(p.Name) == "" {
		return core.Debtor{}, fmt.Errorf("debtor name: %w", core.ErrInvalidReferences)
	}
	if p.Direction != core.DebtReceivable && p.Direction != core.DebtPayable {
		return core.Debtor{}, fmt.Errorf("debt direction %q: %w", p.Direction, core.ErrInvalidKind)
	}
	if p.Principal.IsZero() {
		return core.Debtor{}, fmt.Errorf("debt principal: %w", core.ErrInvalidAmount)
	}
	if p.AccountID != nil {
		if _, err := e.requireAccount(ctx, scope, *p.AccountID); err != nil {
			return core.Debtor{}, err
		}
	}

	issuedAt := p.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now().UTC()
	}
	debtor := core.Debtor{
		ID:             uuid.New(),
		WorkspaceID:    scope.WorkspaceID,
		Name:           p.Name,
		Icon:           p.Icon,
		Direction:      p.Direction,
		IssuedAt:       issuedAt,
		PrincipalCents: p.Principal.Cents(),
		DueAt:          p.DueAt,
		Status:         core.DebtorActive,
		CreatedAt:      time.Now().UTC(),
	}
	if p.Payoff != nil {
		cents := p.Payoff.Cents()
		debtor.PayoffCents = &cents
	}
	if err := e.store.CreateDebtor(ctx, debtor); err != nil {
		return core.Debtor{}, fmt.Errorf("create debtor: %w", err)
	}

	if p.AccountID != nil {
		_, err := e.Apply(ctx, scope, core.TransactionIntent{
			Kind:       core.KindTransfer,
			Amount:     p.Principal,
			HappenedAt: issuedAt,
			Refs: core.TransactionRefs{
				AccountID: p.AccountID,
				DebtorID:  &debtor.ID,
			},
			DebtIssue: true,
		})
		if err != nil {
			if delErr := e.store.DeleteDebtor(ctx, scope.WorkspaceID, debtor.ID); delErr != nil {
				slog.ErrorContext(ctx, "Failed to compensate debtor after issue movement failure",
					"debtor_id", debtor.ID, "error", delErr)
			}
			return core.Debtor{}, fmt.Errorf("record debt issue: %w", err)
		}
	}
	return e.store.GetDebtor(ctx, debtor.ID)
}

func (e *Engine) ListDebtors(ctx context.Context, scope core.Scope) ([]core.Debtor, error) {
	return e.store.ListDebtors(ctx, scope.WorkspaceID)
}

// RecordDebtPayment moves a repayment through an account and advances the
// debtor's payoff progress. Sugar over Apply, same as goal contributions.
func (e *Engine) RecordDebtPayment(ctx context.Context, scope core.Scope, debtorID, accountID uuid.UUID, amount core.Amount, happenedAt time.Time) (core.Debtor, error) {
	debtor, err := e.store.GetDebtor(ctx, debtorID)
	if err != nil {
		return core.Debtor{}, err
	}
	if debtor.WorkspaceID != scope.WorkspaceID {
		return core.Debtor{}, core.ErrNotFound
	}

	_, err = e.Apply(ctx, scope, core.TransactionIntent{
		Kind:       core.KindTransfer,
		Amount:     amount,
		HappenedAt: happenedAt,
		Refs: core.TransactionRefs{
			AccountID: &accountID,
			DebtorID:  &debtorID,
		},
	})
	if err != nil {
		return core.Debtor{}, err
	}
	return e.store.GetDebtor(ctx, debtorID)
}

// DeleteDebtor removes a debt record with no ledger history.
func (e *Engine) DeleteDebtor(ctx context.Context, scope core.Scope, id uuid.UUID) error {
	debtor, err := e.store.GetDebtor(ctx, id)
	if err != nil {
		return err
	}
	if debtor.WorkspaceID != scope.WorkspaceID {
		return core.ErrNotFound
	}
	if err := guardNotInUse(ctx, e.store.CountTransactionsByDebtor, scope.WorkspaceID, id); err != nil {
		return fmt.Errorf("delete debtor: %w", err)
	}
	return e.store.DeleteDebtor(ctx, scope.WorkspaceID, id)
}

// Overview is a read-only snapshot of a workspace's balances and progress.
type Overview struct {
	Accounts []core.Account
	Goals    []core.Goal
	Debtors  []core.Debtor
}

func (e *Engine) Overview(ctx context.Context, scope core.Scope) (Overview, error) {
	accounts, err := e.store.ListAccounts(ctx, scope.WorkspaceID, false)
	if err != nil {
		return Overview{}, err
	}
	goals, err := e.store.ListGoals(ctx, scope.WorkspaceID)
	if err != nil {
		return Overview{}, err
	}
	debtors, err := e.store.ListDebtors(ctx, scope.WorkspaceID)
	if err != nil {
		return Overview{}, err
	}
	return Overview{Accounts: accounts, Goals: goals, Debtors: debtors}, nil
}

func (e *Engine) requireAccount(ctx context.Context, scope core.Scope, id uuid.UUID) (core.Account, error) {
	account, err := e.store.GetAccount(ctx, id)
	if err != nil {
		return core.Account{}, err
	}
	if account.WorkspaceID != scope.WorkspaceID {
		return core.Account{}, core.ErrNotFound
	}
	return account, nil
}

func defaultStr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
