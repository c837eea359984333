package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"fambudget/internal/core"
	"fambudget/internal/ledger"
)

// MemoryStore implements the same interfaces as SQLiteRepository against
// plain maps. It backs the engine and handler tests and the "memory"
// backend used for local development.
//
// RunAtomic stages every mutation on a copy of the state and swaps it in
// on success, so a failing unit leaves nothing behind, matching the
// guarantee the SQLite transaction gives.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
}

type memberKey struct {
	workspaceID uuid.UUID
	userID      uuid.UUID
}

type memState struct {
	users         map[uuid.UUID]core.User
	workspaces    map[uuid.UUID]core.Workspace
	members       map[memberKey]core.WorkspaceMember
	accounts      map[uuid.UUID]core.Account
	categories    map[uuid.UUID]core.Category
	incomeSources map[uuid.UUID]core.IncomeSource
	goals         map[uuid.UUID]core.Goal
	debtors       map[uuid.UUID]core.Debtor
	transactions  map[uuid.UUID]core.Transaction
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memState{
		users:         make(map[uuid.UUID]core.User),
		workspaces:    make(map[uuid.UUID]core.Workspace),
		members:       make(map[memberKey]core.WorkspaceMember),
		accounts:      make(map[uuid.UUID]core.Account),
		categories:    make(map[uuid.UUID]core.Category),
		incomeSources: make(map[uuid.UUID]core.IncomeSource),
		goals:         make(map[uuid.UUID]core.Goal),
		debtors:       make(map[uuid.UUID]core.Debtor),
		transactions:  make(map[uuid.UUID]core.Transaction),
	}}
}

func (m *MemoryStore) Close() error { return nil }

// clone copies every map. Entity structs are copied by value and never
// mutated through their pointer fields, so a per-map shallow copy is a
// correct snapshot.
func (st *memState) clone() *memState {
	c := &memState{
		users:         make(map[uuid.UUID]core.User, len(st.users)),
		workspaces:    make(map[uuid.UUID]core.Workspace, len(st.workspaces)),
		members:       make(map[memberKey]core.WorkspaceMember, len(st.members)),
		accounts:      make(map[uuid.UUID]core.Account, len(st.accounts)),
		categories:    make(map[uuid.UUID]core.Category, len(st.categories)),
		incomeSources: make(map[uuid.UUID]core.IncomeSource, len(st.incomeSources)),
		goals:         make(map[uuid.UUID]core.Goal, len(st.goals)),
		debtors:       make(map[uuid.UUID]core.Debtor, len(st.debtors)),
		transactions:  make(map[uuid.UUID]core.Transaction, len(st.transactions)),
	}
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.workspaces {
		c.workspaces[k] = v
	}
	for k, v := range st.members {
		c.members[k] = v
	}
	for k, v := range st.accounts {
		c.accounts[k] = v
	}
	for k, v := range st.categories {
		c.categories[k] = v
	}
	for k, v := range st.incomeSources {
		c.incomeSources[k] = v
	}
	for k, v := range st.goals {
		c.goals[k] = v
	}
	for k, v := range st.debtors {
		c.debtors[k] = v
	}
	for k, v := range st.transactions {
		c.transactions[k] = v
	}
	return c
}

// RunAtomic serializes all writers behind one mutex and commits by pointer
// swap. fn gets a staged copy; an error discards it entirely.
func (m *MemoryStore) RunAtomic(ctx context.Context, fn func(tx ledger.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%v: %w", err, core.ErrStoreBusy)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	staged := m.state.clone()
	if err := fn(&memTx{st: staged}); err != nil {
		return err
	}
	m.state = staged
	return nil
}

// memTx operates on the staged state. The parent holds the lock for the
// whole unit, so no further synchronization is needed here.
type memTx struct {
	st *memState
}

// --- reads shared between store and tx ---

func (st *memState) getAccount(id uuid.UUID) (core.Account, error) {
	a, ok := st.accounts[id]
	if !ok {
		return core.Account{}, fmt.Errorf("account %s: %w", id, core.ErrNotFound)
	}
	return a, nil
}

func (st *memState) getCategory(id uuid.UUID) (core.Category, error) {
	c, ok := st.categories[id]
	if !ok {
		return core.Category{}, fmt.Errorf("category %s: %w", id, core.ErrNotFound)
	}
	return c, nil
}

func (st *memState) getIncomeSource(id uuid.UUID) (core.IncomeSource, error) {
	s, ok := st.incomeSources[id]
	if !ok {
		return core.IncomeSource{}, fmt.Errorf("income source %s: %w", id, core.ErrNotFound)
	}
	return s, nil
}

func (st *memState) getGoal(id uuid.UUID) (core.Goal, error) {
	g, ok := st.goals[id]
	if !ok {
		return core.Goal{}, fmt.Errorf("goal %s: %w", id, core.ErrNotFound)
	}
	return g, nil
}

func (st *memState) getDebtor(id uuid.UUID) (core.Debtor, error) {
	d, ok := st.debtors[id]
	if !ok {
		return core.Debtor{}, fmt.Errorf("debtor %s: %w", id, core.ErrNotFound)
	}
	return d, nil
}

func (st *memState) getTransaction(id uuid.UUID) (core.Transaction, error) {
	t, ok := st.transactions[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	return t, nil
}

func (st *memState) listAccounts(workspaceID uuid.UUID, includeArchived bool) []core.Account {
	var out []core.Account
	for _, a := range st.accounts {
		if a.WorkspaceID == workspaceID && (includeArchived || !a.Archived) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (st *memState) listCategories(workspaceID uuid.UUID) []core.Category {
	var out []core.Category
	for _, c := range st.categories {
		if c.WorkspaceID == workspaceID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return core.FoldName(out[i].Name) < core.FoldName(out[j].Name)
	})
	return out
}

func (st *memState) listIncomeSources(workspaceID uuid.UUID) []core.IncomeSource {
	var out []core.IncomeSource
	for _, s := range st.incomeSources {
		if s.WorkspaceID == workspaceID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return core.FoldName(out[i].Name) < core.FoldName(out[j].Name)
	})
	return out
}

func (st *memState) listGoals(workspaceID uuid.UUID) []core.Goal {
	var out []core.Goal
	for _, g := range st.goals {
		if g.WorkspaceID == workspaceID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (st *memState) listDebtors(workspaceID uuid.UUID) []core.Debtor {
	var out []core.Debtor
	for _, d := range st.debtors {
		if d.WorkspaceID == workspaceID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.Before(out[j].IssuedAt) })
	return out
}

func (st *memState) listTransactions(workspaceID uuid.UUID, filter core.TransactionFilter) []core.Transaction {
	var out []core.Transaction
	for _, t := range st.transactions {
		if t.WorkspaceID != workspaceID {
			continue
		}
		if filter.Year != 0 && filter.Month != 0 {
			start := time.Date(filter.Year, time.Month(filter.Month), 1, 0, 0, 0, 0, time.UTC)
			if t.HappenedAt.Before(start) || !t.HappenedAt.Before(start.AddDate(0, 1, 0)) {
				continue
			}
		}
		if filter.AccountID != nil && !touchesAccount(t, *filter.AccountID) {
			continue
		}
		if filter.Kind != "" && t.Kind != filter.Kind {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HappenedAt.After(out[j].HappenedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out
}

func touchesAccount(t core.Transaction, id uuid.UUID) bool {
	for _, ref := range []*uuid.UUID{t.Refs.AccountID, t.Refs.FromAccountID, t.Refs.ToAccountID} {
		if ref != nil && *ref == id {
			return true
		}
	}
	return false
}

func (st *memState) countByRef(workspaceID uuid.UUID, match func(core.Transaction) bool) int64 {
	var n int64
	for _, t := range st.transactions {
		if t.WorkspaceID == workspaceID && match(t) {
			n++
		}
	}
	return n
}

// --- ledger.Reader on MemoryStore (locked) and memTx (staged) ---

func (m *MemoryStore) withLock(fn func(st *memState) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.state)
}

func (m *MemoryStore) GetAccount(ctx context.Context, id uuid.UUID) (a core.Account, err error) {
	err = m.withLock(func(st *memState) error { a, err = st.getAccount(id); return err })
	return a, err
}

func (m *MemoryStore) GetCategory(ctx context.Context, id uuid.UUID) (c core.Category, err error) {
	err = m.withLock(func(st *memState) error { c, err = st.getCategory(id); return err })
	return c, err
}

func (m *MemoryStore) GetIncomeSource(ctx context.Context, id uuid.UUID) (s core.IncomeSource, err error) {
	err = m.withLock(func(st *memState) error { s, err = st.getIncomeSource(id); return err })
	return s, err
}

func (m *MemoryStore) GetGoal(ctx context.Context, id uuid.UUID) (g core.Goal, err error) {
	err = m.withLock(func(st *memState) error { g, err = st.getGoal(id); return err })
	return g, err
}

func (m *MemoryStore) GetDebtor(ctx context.Context, id uuid.UUID) (d core.Debtor, err error) {
	err = m.withLock(func(st *memState) error { d, err = st.getDebtor(id); return err })
	return d, err
}

func (m *MemoryStore) GetTransaction(ctx context.Context, id uuid.UUID) (t core.Transaction, err error) {
	err = m.withLock(func(st *memState) error { t, err = st.getTransaction(id); return err })
	return t, err
}

func (m *MemoryStore) ListAccounts(ctx context.Context, workspaceID uuid.UUID, includeArchived bool) (out []core.Account, err error) {
	err = m.withLock(func(st *memState) error { out = st.listAccounts(workspaceID, includeArchived); return nil })
	return out, err
}

func (m *MemoryStore) ListCategories(ctx context.Context, workspaceID uuid.UUID) (out []core.Category, err error) {
	err = m.withLock(func(st *memState) error { out = st.listCategories(workspaceID); return nil })
	return out, err
}

func (m *MemoryStore) ListIncomeSources(ctx context.Context, workspaceID uuid.UUID) (out []core.IncomeSource, err error) {
	err = m.withLock(func(st *memState) error { out = st.listIncomeSources(workspaceID); return nil })
	return out, err
}

func (m *MemoryStore) ListGoals(ctx context.Context, workspaceID uuid.UUID) (out []core.Goal, err error) {
	err = m.withLock(func(st *memState) error { out = st.listGoals(workspaceID); return nil })
	return out, err
}

func (m *MemoryStore) ListDebtors(ctx context.Context, workspaceID uuid.UUID) (out []core.Debtor, err error) {
	err = m.withLock(func(st *memState) error { out = st.listDebtors(workspaceID); return nil })
	return out, err
}

func (m *MemoryStore) ListTransactions(ctx context.Context, workspaceID uuid.UUID, filter core.TransactionFilter) (out []core.Transaction, err error) {
	err = m.withLock(func(st *memState) error { out = st.listTransactions(workspaceID, filter); return nil })
	return out, err
}

func (m *MemoryStore) CategoryNameTaken(ctx context.Context, workspaceID uuid.UUID, folded string) (taken bool, err error) {
	err = m.withLock(func(st *memState) error {
		taken = st.categoryNameTaken(workspaceID, folded, uuid.Nil)
		return nil
	})
	return taken, err
}

func (m *MemoryStore) IncomeSourceNameTaken(ctx context.Context, workspaceID uuid.UUID, folded string) (taken bool, err error) {
	err = m.withLock(func(st *memState) error {
		taken = st.incomeSourceNameTaken(workspaceID, folded, uuid.Nil)
		return nil
	})
	return taken, err
}

func (st *memState) categoryNameTaken(workspaceID uuid.UUID, folded string, exclude uuid.UUID) bool {
	for _, c := range st.categories {
		if c.WorkspaceID == workspaceID && c.ID != exclude && core.FoldName(c.Name) == folded {
			return true
		}
	}
	return false
}

func (st *memState) incomeSourceNameTaken(workspaceID uuid.UUID, folded string, exclude uuid.UUID) bool {
	for _, s := range st.incomeSources {
		if s.WorkspaceID == workspaceID && s.ID != exclude && core.FoldName(s.Name) == folded {
			return true
		}
	}
	return false
}

func (m *MemoryStore) CountTransactionsByAccount(ctx context.Context, workspaceID, accountID uuid.UUID) (n int64, err error) {
	err = m.withLock(func(st *memState) error {
		n = st.countByRef(workspaceID, func(t core.Transaction) bool { return touchesAccount(t, accountID) })
		return nil
	})
	return n, err
}

func (m *MemoryStore) CountTransactionsByCategory(ctx context.Context, workspaceID, categoryID uuid.UUID) (n int64, err error) {
	err = m.withLock(func(st *memState) error {
		n = st.countByRef(workspaceID, func(t core.Transaction) bool {
			return t.Refs.CategoryID != nil && *t.Refs.CategoryID == categoryID
		})
		return nil
	})
	return n, err
}

func (m *MemoryStore) CountTransactionsByIncomeSource(ctx context.Context, workspaceID, incomeSourceID uuid.UUID) (n int64, err error) {
	err = m.withLock(func(st *memState) error {
		n = st.countByRef(workspaceID, func(t core.Transaction) bool {
			return t.Refs.IncomeSourceID != nil && *t.Refs.IncomeSourceID == incomeSourceID
		})
		return nil
	})
	return n, err
}

func (m *MemoryStore) CountTransactionsByGoal(ctx context.Context, workspaceID, goalID uuid.UUID) (n int64, err error) {
	err = m.withLock(func(st *memState) error {
		n = st.countByRef(workspaceID, func(t core.Transaction) bool {
			return t.Refs.GoalID != nil && *t.Refs.GoalID == goalID
		})
		return nil
	})
	return n, err
}

func (m *MemoryStore) CountTransactionsByDebtor(ctx context.Context, workspaceID, debtorID uuid.UUID) (n int64, err error) {
	err = m.withLock(func(st *memState) error {
		n = st.countByRef(workspaceID, func(t core.Transaction) bool {
			return t.Refs.DebtorID != nil && *t.Refs.DebtorID == debtorID
		})
		return nil
	})
	return n, err
}

// --- ledger.Store writes ---

func (m *MemoryStore) CreateAccount(ctx context.Context, a core.Account) error {
	return m.withLock(func(st *memState) error {
		a.BalanceCents = 0
		st.accounts[a.ID] = a
		return nil
	})
}

func (m *MemoryStore) ArchiveAccount(ctx context.Context, workspaceID, id uuid.UUID, archived bool) error {
	return m.withLock(func(st *memState) error {
		a, ok := st.accounts[id]
		if !ok || a.WorkspaceID != workspaceID {
			return fmt.Errorf("account: %w", core.ErrNotFound)
		}
		a.Archived = archived
		st.accounts[id] = a
		return nil
	})
}

func (m *MemoryStore) DeleteAccount(ctx context.Context, workspaceID, id uuid.UUID) error {
	return m.withLock(func(st *memState) error {
		a, ok := st.accounts[id]
		if !ok || a.WorkspaceID != workspaceID {
			return fmt.Errorf("account: %w", core.ErrNotFound)
		}
		if st.countByRef(workspaceID, func(t core.Transaction) bool { return touchesAccount(t, id) }) > 0 {
			return fmt.Errorf("account %s: %w", id, core.ErrEntityInUse)
		}
		delete(st.accounts, id)
		return nil
	})
}

func (m *MemoryStore) CreateCategory(ctx context.Context, c core.Category) error {
	return m.withLock(func(st *memState) error {
		if st.categoryNameTaken(c.WorkspaceID, core.FoldName(c.Name), c.ID) {
			return fmt.Errorf("category %q: %w", c.Name, core.ErrDuplicateName)
		}
		st.categories[c.ID] = c
		return nil
	})
}

func (m *MemoryStore) DeleteCategory(ctx context.Context, workspaceID, id uuid.UUID) error {
	return m.withLock(func(st *memState) error {
		c, ok := st.categories[id]
		if !ok || c.WorkspaceID != workspaceID {
			return fmt.Errorf("category: %w", core.ErrNotFound)
		}
		inUse := st.countByRef(workspaceID, func(t core.Transaction) bool {
			return t.Refs.CategoryID != nil && *t.Refs.CategoryID == id
		})
		if inUse > 0 {
			return fmt.Errorf("category %s: %w", id, core.ErrEntityInUse)
		}
		delete(st.categories, id)
		return nil
	})
}

func (m *MemoryStore) CreateIncomeSource(ctx context.Context, s core.IncomeSource) error {
	return m.withLock(func(st *memState) error {
		if st.incomeSourceNameTaken(s.WorkspaceID, core.FoldName(s.Name), s.ID) {
			return fmt.Errorf("income source %q: %w", s.Name, core.ErrDuplicateName)
		}
		st.incomeSources[s.ID] = s
		return nil
	})
}

func (m *MemoryStore) DeleteIncomeSource(ctx context.Context, workspaceID, id uuid.UUID) error {
	return m.withLock(func(st *memState) error {
		s, ok := st.incomeSources[id]
		if !ok || s.WorkspaceID != workspaceID {
			return fmt.Errorf("income source: %w", core.ErrNotFound)
		}
		inUse := st.countByRef(workspaceID, func(t core.Transaction) bool {
			return t.Refs.IncomeSourceID != nil && *t.Refs.IncomeSourceID == id
		})
		if inUse > 0 {
			return fmt.Errorf("income source %s: %w", id, core.ErrEntityInUse)
		}
		delete(st.incomeSources, id)
		return nil
	})
}

func (m *MemoryStore) CreateGoal(ctx context.Context, g core.Goal) error {
	return m.withLock(func(st *memState) error {
		g.CurrentCents = 0
		g.Status = core.GoalActive
		st.goals[g.ID] = g
		return nil
	})
}

func (m *MemoryStore) DeleteGoal(ctx context.Context, workspaceID, id uuid.UUID) error {
	return m.withLock(func(st *memState) error {
		g, ok := st.goals[id]
		if !ok || g.WorkspaceID != workspaceID {
			return fmt.Errorf("goal: %w", core.ErrNotFound)
		}
		inUse := st.countByRef(workspaceID, func(t core.Transaction) bool {
			return t.Refs.GoalID != nil && *t.Refs.GoalID == id
		})
		if inUse > 0 {
			return fmt.Errorf("goal %s: %w", id, core.ErrEntityInUse)
		}
		delete(st.goals, id)
		return nil
	})
}

func (m *MemoryStore) CreateDebtor(ctx context.Context, d core.Debtor) error {
	return m.withLock(func(st *memState) error {
		d.PaidCents = 0
		d.Status = core.DebtorActive
		st.debtors[d.ID] = d
		return nil
	})
}

func (m *MemoryStore) DeleteDebtor(ctx context.Context, workspaceID, id uuid.UUID) error {
	return m.withLock(func(st *memState) error {
		d, ok := st.debtors[id]
		if !ok || d.WorkspaceID != workspaceID {
			return fmt.Errorf("debtor: %w", core.ErrNotFound)
		}
		inUse := st.countByRef(workspaceID, func(t core.Transaction) bool {
			return t.Refs.DebtorID != nil && *t.Refs.DebtorID == id
		})
		if inUse > 0 {
			return fmt.Errorf("debtor %s: %w", id, core.ErrEntityInUse)
		}
		delete(st.debtors, id)
		return nil
	})
}

func (m *MemoryStore) ResolveNames(ctx context.Context, t *core.Transaction) error {
	return m.withLock(func(st *memState) error {
		st.resolveNames(t)
		return nil
	})
}

func (st *memState) resolveNames(t *core.Transaction) {
	if t.Refs.AccountID != nil {
		if a, ok := st.accounts[*t.Refs.AccountID]; ok {
			t.Names.Account = a.Name
		}
	}
	if t.Refs.CategoryID != nil {
		if c, ok := st.categories[*t.Refs.CategoryID]; ok {
			t.Names.Category = c.Name
		}
	}
	if t.Refs.IncomeSourceID != nil {
		if s, ok := st.incomeSources[*t.Refs.IncomeSourceID]; ok {
			t.Names.IncomeSource = s.Name
		}
	}
	if t.Refs.FromAccountID != nil {
		if a, ok := st.accounts[*t.Refs.FromAccountID]; ok {
			t.Names.FromAccount = a.Name
		}
	}
	if t.Refs.ToAccountID != nil {
		if a, ok := st.accounts[*t.Refs.ToAccountID]; ok {
			t.Names.ToAccount = a.Name
		}
	}
	if t.Refs.GoalID != nil {
		if g, ok := st.goals[*t.Refs.GoalID]; ok {
			t.Names.Goal = g.Name
		}
	}
	if t.Refs.DebtorID != nil {
		if d, ok := st.debtors[*t.Refs.DebtorID]; ok {
			t.Names.Debtor = d.Name
		}
	}
}

// --- memTx: ledger.Tx against the staged state ---

func (tx *memTx) GetAccount(ctx context.Context, id uuid.UUID) (core.Account, error) {
	return tx.st.getAccount(id)
}

func (tx *memTx) GetCategory(ctx context.Context, id uuid.UUID) (core.Category, error) {
	return tx.st.getCategory(id)
}

func (tx *memTx) GetIncomeSource(ctx context.Context, id uuid.UUID) (core.IncomeSource, error) {
	return tx.st.getIncomeSource(id)
}

func (tx *memTx) GetGoal(ctx context.Context, id uuid.UUID) (core.Goal, error) {
	return tx.st.getGoal(id)
}

func (tx *memTx) GetDebtor(ctx context.Context, id uuid.UUID) (core.Debtor, error) {
	return tx.st.getDebtor(id)
}

func (tx *memTx) GetTransaction(ctx context.Context, id uuid.UUID) (core.Transaction, error) {
	return tx.st.getTransaction(id)
}

func (tx *memTx) ListAccounts(ctx context.Context, workspaceID uuid.UUID, includeArchived bool) ([]core.Account, error) {
	return tx.st.listAccounts(workspaceID, includeArchived), nil
}

func (tx *memTx) ListCategories(ctx context.Context, workspaceID uuid.UUID) ([]core.Category, error) {
	return tx.st.listCategories(workspaceID), nil
}

func (tx *memTx) ListIncomeSources(ctx context.Context, workspaceID uuid.UUID) ([]core.IncomeSource, error) {
	return tx.st.listIncomeSources(workspaceID), nil
}

func (tx *memTx) ListGoals(ctx context.Context, workspaceID uuid.UUID) ([]core.Goal, error) {
	return tx.st.listGoals(workspaceID), nil
}

func (tx *memTx) ListDebtors(ctx context.Context, workspaceID uuid.UUID) ([]core.Debtor, error) {
	return tx.st.listDebtors(workspaceID), nil
}

func (tx *memTx) ListTransactions(ctx context.Context, workspaceID uuid.UUID, filter core.TransactionFilter) ([]core.Transaction, error) {
	return tx.st.listTransactions(workspaceID, filter), nil
}

func (tx *memTx) CategoryNameTaken(ctx context.Context, workspaceID uuid.UUID, folded string) (bool, error) {
	return tx.st.categoryNameTaken(workspaceID, folded, uuid.Nil), nil
}

func (tx *memTx) IncomeSourceNameTaken(ctx context.Context, workspaceID uuid.UUID, folded string) (bool, error) {
	return tx.st.incomeSourceNameTaken(workspaceID, folded, uuid.Nil), nil
}

func (tx *memTx) CountTransactionsByAccount(ctx context.Context, workspaceID, accountID uuid.UUID) (int64, error) {
	return tx.st.countByRef(workspaceID, func(t core.Transaction) bool { return touchesAccount(t, accountID) }), nil
}

func (tx *memTx) CountTransactionsByCategory(ctx context.Context, workspaceID, categoryID uuid.UUID) (int64, error) {
	return tx.st.countByRef(workspaceID, func(t core.Transaction) bool {
		return t.Refs.CategoryID != nil && *t.Refs.CategoryID == categoryID
	}), nil
}

func (tx *memTx) CountTransactionsByIncomeSource(ctx context.Context, workspaceID, incomeSourceID uuid.UUID) (int64, error) {
	return tx.st.countByRef(workspaceID, func(t core.Transaction) bool {
		return t.Refs.IncomeSourceID != nil && *t.Refs.IncomeSourceID == incomeSourceID
	}), nil
}

func (tx *memTx) CountTransactionsByGoal(ctx context.Context, workspaceID, goalID uuid.UUID) (int64, error) {
	return tx.st.countByRef(workspaceID, func(t core.Transaction) bool {
		return t.Refs.GoalID != nil && *t.Refs.GoalID == goalID
	}), nil
}

func (tx *memTx) CountTransactionsByDebtor(ctx context.Context, workspaceID, debtorID uuid.UUID) (int64, error) {
	return tx.st.countByRef(workspaceID, func(t core.Transaction) bool {
		return t.Refs.DebtorID != nil && *t.Refs.DebtorID == debtorID
	}), nil
}

func (tx *memTx) InsertTransaction(ctx context.Context, t core.Transaction) error {
	tx.st.transactions[t.ID] = t
	return nil
}

func (tx *memTx) DeleteTransaction(ctx context.Context, workspaceID, id uuid.UUID) error {
	t, ok := tx.st.transactions[id]
	if !ok || t.WorkspaceID != workspaceID {
		return fmt.Errorf("transaction: %w", core.ErrNotFound)
	}
	delete(tx.st.transactions, id)
	return nil
}

func (tx *memTx) AdjustAccountBalance(ctx context.Context, workspaceID, accountID uuid.UUID, deltaCents int64) error {
	a, ok := tx.st.accounts[accountID]
	if !ok || a.WorkspaceID != workspaceID {
		return fmt.Errorf("account: %w", core.ErrNotFound)
	}
	a.BalanceCents += deltaCents
	tx.st.accounts[accountID] = a
	return nil
}

func (tx *memTx) AdjustGoalProgress(ctx context.Context, workspaceID, goalID uuid.UUID, deltaCents int64) error {
	g, ok := tx.st.goals[goalID]
	if !ok || g.WorkspaceID != workspaceID {
		return fmt.Errorf("goal: %w", core.ErrNotFound)
	}
	g.CurrentCents += deltaCents
	if g.CurrentCents >= g.TargetCents {
		g.Status = core.GoalCompleted
		if g.CompletedAt == nil {
			now := time.Now().UTC()
			g.CompletedAt = &now
		}
	} else {
		g.Status = core.GoalActive
		g.CompletedAt = nil
	}
	tx.st.goals[goalID] = g
	return nil
}

func (tx *memTx) AdjustDebtorPaid(ctx context.Context, workspaceID, debtorID uuid.UUID, deltaCents int64) error {
	d, ok := tx.st.debtors[debtorID]
	if !ok || d.WorkspaceID != workspaceID {
		return fmt.Errorf("debtor: %w", core.ErrNotFound)
	}
	d.PaidCents += deltaCents
	if d.PaidCents >= d.PayoffTarget() {
		d.Status = core.DebtorCompleted
	} else {
		d.Status = core.DebtorActive
	}
	tx.st.debtors[debtorID] = d
	return nil
}

// --- tenancy directory ---

func (m *MemoryStore) GetUser(ctx context.Context, id uuid.UUID) (u core.User, err error) {
	err = m.withLock(func(st *memState) error {
		var ok bool
		if u, ok = st.users[id]; !ok {
			return fmt.Errorf("user %s: %w", id, core.ErrNotFound)
		}
		return nil
	})
	return u, err
}

func (m *MemoryStore) GetUserByTelegramID(ctx context.Context, telegramID int64) (u core.User, err error) {
	err = m.withLock(func(st *memState) error {
		for _, candidate := range st.users {
			if candidate.TelegramID == telegramID {
				u = candidate
				return nil
			}
		}
		return fmt.Errorf("telegram user %d: %w", telegramID, core.ErrNotFound)
	})
	return u, err
}

func (m *MemoryStore) UpdateUserProfile(ctx context.Context, id uuid.UUID, firstName, username string) error {
	return m.withLock(func(st *memState) error {
		u, ok := st.users[id]
		if !ok {
			return fmt.Errorf("user: %w", core.ErrNotFound)
		}
		u.FirstName = firstName
		u.Username = username
		st.users[id] = u
		return nil
	})
}

func (m *MemoryStore) SetActiveWorkspace(ctx context.Context, userID, workspaceID uuid.UUID) error {
	return m.withLock(func(st *memState) error {
		u, ok := st.users[userID]
		if !ok {
			return fmt.Errorf("user: %w", core.ErrNotFound)
		}
		ws := workspaceID
		u.ActiveWorkspaceID = &ws
		st.users[userID] = u
		return nil
	})
}

func (m *MemoryStore) GetWorkspace(ctx context.Context, id uuid.UUID) (w core.Workspace, err error) {
	err = m.withLock(func(st *memState) error {
		var ok bool
		if w, ok = st.workspaces[id]; !ok {
			return fmt.Errorf("workspace %s: %w", id, core.ErrNotFound)
		}
		return nil
	})
	return w, err
}

func (m *MemoryStore) CreateWorkspace(ctx context.Context, w core.Workspace) error {
	return m.withLock(func(st *memState) error {
		st.workspaces[w.ID] = w
		return nil
	})
}

func (m *MemoryStore) AddMember(ctx context.Context, member core.WorkspaceMember) error {
	return m.withLock(func(st *memState) error {
		key := memberKey{member.WorkspaceID, member.UserID}
		if _, exists := st.members[key]; exists {
			return fmt.Errorf("membership: %w", core.ErrDuplicateName)
		}
		st.members[key] = member
		return nil
	})
}

func (m *MemoryStore) GetMember(ctx context.Context, workspaceID, userID uuid.UUID) (member core.WorkspaceMember, err error) {
	err = m.withLock(func(st *memState) error {
		var ok bool
		if member, ok = st.members[memberKey{workspaceID, userID}]; !ok {
			return fmt.Errorf("membership: %w", core.ErrNotFound)
		}
		return nil
	})
	return member, err
}

func (m *MemoryStore) ListWorkspacesForUser(ctx context.Context, userID uuid.UUID) (out []core.Workspace, err error) {
	err = m.withLock(func(st *memState) error {
		for key, member := range st.members {
			if member.UserID != userID {
				continue
			}
			if w, ok := st.workspaces[key.workspaceID]; ok {
				out = append(out, w)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
		return nil
	})
	return out, err
}

func (m *MemoryStore) CreateUserWithWorkspace(ctx context.Context, u core.User, w core.Workspace) error {
	return m.withLock(func(st *memState) error {
		st.users[u.ID] = u
		st.workspaces[w.ID] = w
		st.members[memberKey{w.ID, u.ID}] = core.WorkspaceMember{
			WorkspaceID: w.ID,
			UserID:      u.ID,
			Role:        core.RoleOwner,
			JoinedAt:    u.CreatedAt,
		}
		user := st.users[u.ID]
		ws := w.ID
		user.ActiveWorkspaceID = &ws
		st.users[u.ID] = user
		return nil
	})
}
