package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fambudget/internal/core"
)

type scanner interface {
	Scan(dest ...any) error
}

// --- accounts ---

const accountColumns = "id, workspace_id, name, type, currency, balance_cents, archived, created_at"

func scanAccount(s scanner) (core.Account, error) {
	var (
		a        core.Account
		id, ws   string
		archived int64
	)
	if err := s.Scan(&id, &ws, &a.Name, &a.Type, &a.Currency, &a.BalanceCents, &archived, &a.CreatedAt); err != nil {
		return core.Account{}, err
	}
	var err error
	if a.ID, err = toUUID(id); err != nil {
		return core.Account{}, err
	}
	if a.WorkspaceID, err = toUUID(ws); err != nil {
		return core.Account{}, err
	}
	a.Archived = archived != 0
	return a, nil
}

func (s queries) GetAccount(ctx context.Context, id uuid.UUID) (core.Account, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id = ?", id.String())
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, fmt.Errorf("account %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Account{}, wrapDBErr(fmt.Errorf("get account: %w", err))
	}
	return a, nil
}

func (s queries) ListAccounts(ctx context.Context, workspaceID uuid.UUID, includeArchived bool) ([]core.Account, error) {
	query := "SELECT " + accountColumns + " FROM accounts WHERE workspace_id = ?"
	if !includeArchived {
		query += " AND archived = 0"
	}
	query += " ORDER BY created_at"
	rows, err := s.q.QueryContext(ctx, query, workspaceID.String())
	if err != nil {
		return nil, wrapDBErr(fmt.Errorf("list accounts: %w", err))
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s queries) CreateAccount(ctx context.Context, a core.Account) error {
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO accounts (id, workspace_id, name, type, currency, balance_cents, archived, created_at) VALUES (?, ?, ?, ?, ?, 0, ?, ?)",
		a.ID.String(), a.WorkspaceID.String(), a.Name, a.Type, a.Currency, boolArg(a.Archived), a.CreatedAt)
	return wrapDBErr(err)
}

func (s queries) ArchiveAccount(ctx context.Context, workspaceID, id uuid.UUID, archived bool) error {
	res, err := s.q.ExecContext(ctx,
		"UPDATE accounts SET archived = ? WHERE id = ? AND workspace_id = ?",
		boolArg(archived), id.String(), workspaceID.String())
	if err != nil {
		return wrapDBErr(err)
	}
	return requireRow(res, "account")
}

func (s queries) DeleteAccount(ctx context.Context, workspaceID, id uuid.UUID) error {
	res, err := s.q.ExecContext(ctx,
		"DELETE FROM accounts WHERE id = ? AND workspace_id = ?", id.String(), workspaceID.String())
	if isForeignKeyViolation(err) {
		return fmt.Errorf("account %s: %w", id, core.ErrEntityInUse)
	}
	if err != nil {
		return wrapDBErr(err)
	}
	return requireRow(res, "account")
}

// AdjustAccountBalance applies a signed delta as a single atomic increment.
// The read-modify-write happens inside SQLite, never in Go.
func (s queries) AdjustAccountBalance(ctx context.Context, workspaceID, accountID uuid.UUID, deltaCents int64) error {
	res, err := s.q.ExecContext(ctx,
		"UPDATE accounts SET balance_cents = balance_cents + ? WHERE id = ? AND workspace_id = ?",
		deltaCents, accountID.String(), workspaceID.String())
	if err != nil {
		return wrapDBErr(err)
	}
	return requireRow(res, "account")
}

// --- categories ---

const categoryColumns = "id, workspace_id, name, kind, icon, budget_cents, created_at"

func scanCategory(s scanner) (core.Category, error) {
	var (
		c      core.Category
		id, ws string
		budget sql.NullInt64
	)
	if err := s.Scan(&id, &ws, &c.Name, &c.Kind, &c.Icon, &budget, &c.CreatedAt); err != nil {
		return core.Category{}, err
	}
	var err error
	if c.ID, err = toUUID(id); err != nil {
		return core.Category{}, err
	}
	if c.WorkspaceID, err = toUUID(ws); err != nil {
		return core.Category{}, err
	}
	if budget.Valid {
		c.BudgetCents = &budget.Int64
	}
	return c, nil
}

func (s queries) GetCategory(ctx context.Context, id uuid.UUID) (core.Category, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+categoryColumns+" FROM categories WHERE id = ?", id.String())
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, wrapDBErr(fmt.Errorf("get category: %w", err))
	}
	return c, nil
}

func (s queries) ListCategories(ctx context.Context, workspaceID uuid.UUID) ([]core.Category, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE workspace_id = ? ORDER BY name_folded", workspaceID.String())
	if err != nil {
		return nil, wrapDBErr(fmt.Errorf("list categories: %w", err))
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s queries) CategoryNameTaken(ctx context.Context, workspaceID uuid.UUID, folded string) (bool, error) {
	var n int64
	err := s.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM categories WHERE workspace_id = ? AND name_folded = ?",
		workspaceID.String(), folded).Scan(&n)
	if err != nil {
		return false, wrapDBErr(fmt.Errorf("category name check: %w", err))
	}
	return n > 0, nil
}

func (s queries) CreateCategory(ctx context.Context, c core.Category) error {
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO categories (id, workspace_id, name, name_folded, kind, icon, budget_cents, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		c.ID.String(), c.WorkspaceID.String(), c.Name, core.FoldName(c.Name), c.Kind, c.Icon, intPtrArg(c.BudgetCents), c.CreatedAt)
	if isUniqueViolation(err) {
		// The index closes the check-then-insert race; surface it as the
		// same conflict the pre-check reports.
		return fmt.Errorf("category %q: %w", c.Name, core.ErrDuplicateName)
	}
	return wrapDBErr(err)
}

func (s queries) DeleteCategory(ctx context.Context, workspaceID, id uuid.UUID) error {
	res, err := s.q.ExecContext(ctx,
		"DELETE FROM categories WHERE id = ? AND workspace_id = ?", id.String(), workspaceID.String())
	if isForeignKeyViolation(err) {
		return fmt.Errorf("category %s: %w", id, core.ErrEntityInUse)
	}
	if err != nil {
		return wrapDBErr(err)
	}
	return requireRow(res, "category")
}

// --- income sources ---

func scanIncomeSource(s scanner) (core.IncomeSource, error) {
	var (
		src    core.IncomeSource
		id, ws string
	)
	if err := s.Scan(&id, &ws, &src.Name, &src.CreatedAt); err != nil {
		return core.IncomeSource{}, err
	}
	var err error
	if src.ID, err = toUUID(id); err != nil {
		return core.IncomeSource{}, err
	}
	if src.WorkspaceID, err = toUUID(ws); err != nil {
		return core.IncomeSource{}, err
	}
	return src, nil
}

func (s queries) GetIncomeSource(ctx context.Context, id uuid.UUID) (core.IncomeSource, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT id, workspace_id, name, created_at FROM income_sources WHERE id = ?", id.String())
	src, err := scanIncomeSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.IncomeSource{}, fmt.Errorf("income source %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.IncomeSource{}, wrapDBErr(fmt.Errorf("get income source: %w", err))
	}
	return src, nil
}

func (s queries) ListIncomeSources(ctx context.Context, workspaceID uuid.UUID) ([]core.IncomeSource, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT id, workspace_id, name, created_at FROM income_sources WHERE workspace_id = ? ORDER BY name_folded",
		workspaceID.String())
	if err != nil {
		return nil, wrapDBErr(fmt.Errorf("list income sources: %w", err))
	}
	defer rows.Close()

	var sources []core.IncomeSource
	for rows.Next() {
		src, err := scanIncomeSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan income source: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

func (s queries) IncomeSourceNameTaken(ctx context.Context, workspaceID uuid.UUID, folded string) (bool, error) {
	var n int64
	err := s.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM income_sources WHERE workspace_id = ? AND name_folded = ?",
		workspaceID.String(), folded).Scan(&n)
	if err != nil {
		return false, wrapDBErr(fmt.Errorf("income source name check: %w", err))
	}
	return n > 0, nil
}

func (s queries) CreateIncomeSource(ctx context.Context, src core.IncomeSource) error {
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO income_sources (id, workspace_id, name, name_folded, created_at) VALUES (?, ?, ?, ?, ?)",
		src.ID.String(), src.WorkspaceID.String(), src.Name, core.FoldName(src.Name), src.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("income source %q: %w", src.Name, core.ErrDuplicateName)
	}
	return wrapDBErr(err)
}

func (s queries) DeleteIncomeSource(ctx context.Context, workspaceID, id uuid.UUID) error {
	res, err := s.q.ExecContext(ctx,
		"DELETE FROM income_sources WHERE id = ? AND workspace_id = ?", id.String(), workspaceID.String())
	if isForeignKeyViolation(err) {
		return fmt.Errorf("income source %s: %w", id, core.ErrEntityInUse)
	}
	if err != nil {
		return wrapDBErr(err)
	}
	return requireRow(res, "income source")
}

// --- goals ---

const goalColumns = "id, workspace_id, name, icon, target_cents, current_cents, status, completed_at, created_at"

func scanGoal(s scanner) (core.Goal, error) {
	var (
		g         core.Goal
		id, ws    string
		completed sql.NullTime
	)
	if err := s.Scan(&id, &ws, &g.Name, &g.Icon, &g.TargetCents, &g.CurrentCents, &g.Status, &completed, &g.CreatedAt); err != nil {
		return core.Goal{}, err
	}
	var err error
	if g.ID, err = toUUID(id); err != nil {
		return core.Goal{}, err
	}
	if g.WorkspaceID, err = toUUID(ws); err != nil {
		return core.Goal{}, err
	}
	if completed.Valid {
		g.CompletedAt = &completed.Time
	}
	return g, nil
}

func (s queries) GetGoal(ctx context.Context, id uuid.UUID) (core.Goal, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+goalColumns+" FROM goals WHERE id = ?", id.String())
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Goal{}, fmt.Errorf("goal %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Goal{}, wrapDBErr(fmt.Errorf("get goal: %w", err))
	}
	return g, nil
}

func (s queries) ListGoals(ctx context.Context, workspaceID uuid.UUID) ([]core.Goal, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT "+goalColumns+" FROM goals WHERE workspace_id = ? ORDER BY created_at", workspaceID.String())
	if err != nil {
		return nil, wrapDBErr(fmt.Errorf("list goals: %w", err))
	}
	defer rows.Close()

	var goals []core.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func (s queries) CreateGoal(ctx context.Context, g core.Goal) error {
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO goals (id, workspace_id, name, icon, target_cents, current_cents, status, created_at) VALUES (?, ?, ?, ?, ?, 0, 'active', ?)",
		g.ID.String(), g.WorkspaceID.String(), g.Name, g.Icon, g.TargetCents, g.CreatedAt)
	return wrapDBErr(err)
}

func (s queries) DeleteGoal(ctx context.Context, workspaceID, id uuid.UUID) error {
	res, err := s.q.ExecContext(ctx,
		"DELETE FROM goals WHERE id = ? AND workspace_id = ?", id.String(), workspaceID.String())
	if isForeignKeyViolation(err) {
		return fmt.Errorf("goal %s: %w", id, core.ErrEntityInUse)
	}
	if err != nil {
		return wrapDBErr(err)
	}
	return requireRow(res, "goal")
}

// AdjustGoalProgress moves currentAmount and recomputes status in the same
// statement, so completion can never drift from the stored progress.
func (s queries) AdjustGoalProgress(ctx context.Context, workspaceID, goalID uuid.UUID, deltaCents int64) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE goals SET
			current_cents = current_cents + ?1,
			status = CASE WHEN current_cents + ?1 >= target_cents THEN 'completed' ELSE 'active' END,
			completed_at = CASE WHEN current_cents + ?1 >= target_cents THEN COALESCE(completed_at, CURRENT_TIMESTAMP) ELSE NULL END
		WHERE id = ?2 AND workspace_id = ?3`,
		deltaCents, goalID.String(), workspaceID.String())
	if err != nil {
		return wrapDBErr(err)
	}
	return requireRow(res, "goal")
}

// --- debtors ---

const debtorColumns = "id, workspace_id, name, icon, direction, issued_at, principal_cents, paid_cents, due_at, payoff_cents, status, created_at"

func scanDebtor(s scanner) (core.Debtor, error) {
	var (
		d      core.Debtor
		id, ws string
		due    sql.NullTime
		payoff sql.NullInt64
	)
	if err := s.Scan(&id, &ws, &d.Name, &d.Icon, &d.Direction, &d.IssuedAt, &d.PrincipalCents, &d.PaidCents, &due, &payoff, &d.Status, &d.CreatedAt); err != nil {
		return core.Debtor{}, err
	}
	var err error
	if d.ID, err = toUUID(id); err != nil {
		return core.Debtor{}, err
	}
	if d.WorkspaceID, err = toUUID(ws); err != nil {
		return core.Debtor{}, err
	}
	if due.Valid {
		d.DueAt = &due.Time
	}
	if payoff.Valid {
		d.PayoffCents = &payoff.Int64
	}
	return d, nil
}

func (s queries) GetDebtor(ctx context.Context, id uuid.UUID) (core.Debtor, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+debtorColumns+" FROM debtors WHERE id = ?", id.String())
	d, err := scanDebtor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Debtor{}, fmt.Errorf("debtor %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Debtor{}, wrapDBErr(fmt.Errorf("get debtor: %w", err))
	}
	return d, nil
}

func (s queries) ListDebtors(ctx context.Context, workspaceID uuid.UUID) ([]core.Debtor, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT "+debtorColumns+" FROM debtors WHERE workspace_id = ? ORDER BY issued_at", workspaceID.String())
	if err != nil {
		return nil, wrapDBErr(fmt.Errorf("list debtors: %w", err))
	}
	defer rows.Close()

	var debtors []core.Debtor
	for rows.Next() {
		d, err := scanDebtor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan debtor: %w", err)
		}
		debtors = append(debtors, d)
	}
	return debtors, rows.Err()
}

func (s queries) CreateDebtor(ctx context.Context, d core.Debtor) error {
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO debtors (id, workspace_id, name, icon, direction, issued_at, principal_cents, paid_cents, due_at, payoff_cents, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?, 'active', ?)",
		d.ID.String(), d.WorkspaceID.String(), d.Name, d.Icon, d.Direction, d.IssuedAt, d.PrincipalCents, timePtrArg(d.DueAt), intPtrArg(d.PayoffCents), d.CreatedAt)
	return wrapDBErr(err)
}

func (s queries) DeleteDebtor(ctx context.Context, workspaceID, id uuid.UUID) error {
	res, err := s.q.ExecContext(ctx,
		"DELETE FROM debtors WHERE id = ? AND workspace_id = ?", id.String(), workspaceID.String())
	if isForeignKeyViolation(err) {
		return fmt.Errorf("debtor %s: %w", id, core.ErrEntityInUse)
	}
	if err != nil {
		return wrapDBErr(err)
	}
	return requireRow(res, "debtor")
}

// AdjustDebtorPaid moves repayment progress and recomputes status against
// the payoff target (explicit payoff amount, else the principal).
func (s queries) AdjustDebtorPaid(ctx context.Context, workspaceID, debtorID uuid.UUID, deltaCents int64) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE debtors SET
			paid_cents = paid_cents + ?1,
			status = CASE WHEN paid_cents + ?1 >= COALESCE(payoff_cents, principal_cents) THEN 'completed' ELSE 'active' END
		WHERE id = ?2 AND workspace_id = ?3`,
		deltaCents, debtorID.String(), workspaceID.String())
	if err != nil {
		return wrapDBErr(err)
	}
	return requireRow(res, "debtor")
}

// --- transactions ---

const transactionColumns = "id, workspace_id, kind, shape, amount_cents, happened_at, note, account_id, category_id, income_source_id, from_account_id, to_account_id, goal_id, debtor_id, debt_issue, debt_direction, created_at"

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t                                   core.Transaction
		id, ws                              string
		amountCents                         int64
		account, category, source, from, to sql.NullString
		goal, debtor                        sql.NullString
		debtIssue                           int64
	)
	if err := s.Scan(&id, &ws, &t.Kind, &t.Shape, &amountCents, &t.HappenedAt, &t.Note,
		&account, &category, &source, &from, &to, &goal, &debtor,
		&debtIssue, &t.DebtDirection, &t.CreatedAt); err != nil {
		return core.Transaction{}, err
	}
	var err error
	if t.ID, err = toUUID(id); err != nil {
		return core.Transaction{}, err
	}
	if t.WorkspaceID, err = toUUID(ws); err != nil {
		return core.Transaction{}, err
	}
	t.Amount = core.AmountFromCents(amountCents)
	t.DebtIssue = debtIssue != 0

	refs := &t.Refs
	for _, p := range []struct {
		ns  sql.NullString
		dst **uuid.UUID
	}{
		{account, &refs.AccountID},
		{category, &refs.CategoryID},
		{source, &refs.IncomeSourceID},
		{from, &refs.FromAccountID},
		{to, &refs.ToAccountID},
		{goal, &refs.GoalID},
		{debtor, &refs.DebtorID},
	} {
		ptr, err := toUUIDPtr(p.ns)
		if err != nil {
			return core.Transaction{}, err
		}
		*p.dst = ptr
	}
	return t, nil
}

func (s queries) GetTransaction(ctx context.Context, id uuid.UUID) (core.Transaction, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id.String())
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, wrapDBErr(fmt.Errorf("get transaction: %w", err))
	}
	return t, nil
}

func (s queries) ListTransactions(ctx context.Context, workspaceID uuid.UUID, filter core.TransactionFilter) ([]core.Transaction, error) {
	query := "SELECT " + transactionColumns + " FROM transactions WHERE workspace_id = ?"
	args := []any{workspaceID.String()}

	if filter.Year != 0 && filter.Month != 0 {
		start := time.Date(filter.Year, time.Month(filter.Month), 1, 0, 0, 0, 0, time.UTC)
		query += " AND happened_at >= ? AND happened_at < ?"
		args = append(args, start, start.AddDate(0, 1, 0))
	}
	if filter.AccountID != nil {
		aid := filter.AccountID.String()
		query += " AND (account_id = ? OR from_account_id = ? OR to_account_id = ?)"
		args = append(args, aid, aid, aid)
	}
	if filter.Kind != "" {
		query += " AND kind = ?"
		args = append(args, filter.Kind)
	}
	query += " ORDER BY happened_at DESC, created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBErr(fmt.Errorf("list transactions: %w", err))
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (s queries) InsertTransaction(ctx context.Context, t core.Transaction) error {
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO transactions ("+transactionColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		t.ID.String(), t.WorkspaceID.String(), t.Kind, t.Shape, t.Amount.Cents(), t.HappenedAt, t.Note,
		uuidArg(t.Refs.AccountID), uuidArg(t.Refs.CategoryID), uuidArg(t.Refs.IncomeSourceID),
		uuidArg(t.Refs.FromAccountID), uuidArg(t.Refs.ToAccountID), uuidArg(t.Refs.GoalID), uuidArg(t.Refs.DebtorID),
		boolArg(t.DebtIssue), string(t.DebtDirection), t.CreatedAt)
	return wrapDBErr(err)
}

func (s queries) DeleteTransaction(ctx context.Context, workspaceID, id uuid.UUID) error {
	res, err := s.q.ExecContext(ctx,
		"DELETE FROM transactions WHERE id = ? AND workspace_id = ?", id.String(), workspaceID.String())
	if err != nil {
		return wrapDBErr(err)
	}
	return requireRow(res, "transaction")
}

func (s queries) CountTransactionsByAccount(ctx context.Context, workspaceID, accountID uuid.UUID) (int64, error) {
	return s.countTransactions(ctx,
		"SELECT COUNT(*) FROM transactions WHERE workspace_id = ? AND (account_id = ? OR from_account_id = ? OR to_account_id = ?)",
		workspaceID.String(), accountID.String(), accountID.String(), accountID.String())
}

func (s queries) CountTransactionsByCategory(ctx context.Context, workspaceID, categoryID uuid.UUID) (int64, error) {
	return s.countTransactions(ctx,
		"SELECT COUNT(*) FROM transactions WHERE workspace_id = ? AND category_id = ?",
		workspaceID.String(), categoryID.String())
}

func (s queries) CountTransactionsByIncomeSource(ctx context.Context, workspaceID, incomeSourceID uuid.UUID) (int64, error) {
	return s.countTransactions(ctx,
		"SELECT COUNT(*) FROM transactions WHERE workspace_id = ? AND income_source_id = ?",
		workspaceID.String(), incomeSourceID.String())
}

func (s queries) CountTransactionsByGoal(ctx context.Context, workspaceID, goalID uuid.UUID) (int64, error) {
	return s.countTransactions(ctx,
		"SELECT COUNT(*) FROM transactions WHERE workspace_id = ? AND goal_id = ?",
		workspaceID.String(), goalID.String())
}

func (s queries) CountTransactionsByDebtor(ctx context.Context, workspaceID, debtorID uuid.UUID) (int64, error) {
	return s.countTransactions(ctx,
		"SELECT COUNT(*) FROM transactions WHERE workspace_id = ? AND debtor_id = ?",
		workspaceID.String(), debtorID.String())
}

func (s queries) countTransactions(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := s.q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, wrapDBErr(fmt.Errorf("count transactions: %w", err))
	}
	return n, nil
}

// ResolveNames fills display names for whichever references are set.
func (s queries) ResolveNames(ctx context.Context, t *core.Transaction) error {
	for _, p := range []struct {
		id    *uuid.UUID
		table string
		dst   *string
	}{
		{t.Refs.AccountID, "accounts", &t.Names.Account},
		{t.Refs.CategoryID, "categories", &t.Names.Category},
		{t.Refs.IncomeSourceID, "income_sources", &t.Names.IncomeSource},
		{t.Refs.FromAccountID, "accounts", &t.Names.FromAccount},
		{t.Refs.ToAccountID, "accounts", &t.Names.ToAccount},
		{t.Refs.GoalID, "goals", &t.Names.Goal},
		{t.Refs.DebtorID, "debtors", &t.Names.Debtor},
	} {
		if p.id == nil {
			continue
		}
		var name string
		err := s.q.QueryRowContext(ctx, "SELECT name FROM "+p.table+" WHERE id = ?", p.id.String()).Scan(&name)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return wrapDBErr(fmt.Errorf("resolve name from %s: %w", p.table, err))
		}
		*p.dst = name
	}
	return nil
}

// --- small argument/result helpers ---

func requireRow(res sql.Result, entity string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", entity, core.ErrNotFound)
	}
	return nil
}

func boolArg(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func intPtrArg(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func timePtrArg(p *time.Time) any {
	if p == nil {
		return nil
	}
	return *p
}
