package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"fambudget/internal/amqp"
	"fambudget/internal/core"
	"fambudget/internal/ledger"
)

// AuditWorker verifies that denormalized balances still equal the sum of
// the deltas implied by the stored transactions. Drift cannot happen while
// the engine is the only writer; the auditor exists to catch it loudly if
// it ever does.
type AuditWorker struct {
	store ledger.Store

	// Workspaces seen in ledger events, re-swept periodically.
	mu       sync.Mutex
	recent   map[uuid.UUID]struct{}
	maxSweep int
}

func NewAuditWorker(store ledger.Store, maxSweep int) *AuditWorker {
	return &AuditWorker{
		store:    store,
		recent:   make(map[uuid.UUID]struct{}),
		maxSweep: maxSweep,
	}
}

// HandleLedgerEvent audits the workspace a ledger event points at and
// remembers it for the next periodic sweep.
func (w *AuditWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	w.mu.Lock()
	w.recent[msg.WorkspaceID] = struct{}{}
	w.mu.Unlock()

	slog.InfoContext(ctx, "Auditing workspace after ledger event",
		"op", msg.Op,
		"transaction_id", msg.TransactionID,
		"workspace_id", msg.WorkspaceID)

	return w.AuditWorkspace(ctx, msg.WorkspaceID)
}

// RunPeriodicSweep re-audits recently active workspaces. Called on a
// ticker by the worker main; a single failing workspace does not stop the
// sweep.
func (w *AuditWorker) RunPeriodicSweep(ctx context.Context) error {
	w.mu.Lock()
	ids := make([]uuid.UUID, 0, len(w.recent))
	for id := range w.recent {
		ids = append(ids, id)
		if len(ids) >= w.maxSweep {
			break
		}
	}
	w.mu.Unlock()

	if len(ids) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Starting periodic drift sweep", "workspaces", len(ids))

	var failed int
	for _, id := range ids {
		if err := w.AuditWorkspace(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Workspace audit failed",
				"workspace_id", id, "error", err)
			failed++
		}
	}

	slog.InfoContext(ctx, "Periodic drift sweep completed",
		"workspaces", len(ids), "failed", failed)
	return nil
}

// AuditWorkspace recomputes every account balance, goal progress, and
// debtor paid amount in a workspace from its transactions and compares
// them against the stored values. Drift is logged at error level; the
// audit itself never mutates anything.
func (w *AuditWorker) AuditWorkspace(ctx context.Context, workspaceID uuid.UUID) error {
	txs, err := w.store.ListTransactions(ctx, workspaceID, core.TransactionFilter{})
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}

	expectedAccounts := make(map[uuid.UUID]int64)
	expectedGoals := make(map[uuid.UUID]int64)
	expectedDebtors := make(map[uuid.UUID]int64)

	for _, t := range txs {
		if err := t.CheckStoredShape(); err != nil {
			slog.ErrorContext(ctx, "Corrupt transaction found during audit",
				"transaction_id", t.ID,
				"workspace_id", workspaceID,
				"error", err)
			continue
		}
		accounts, goals, debtors := ledger.StoredDeltas(t)
		for id, cents := range accounts {
			expectedAccounts[id] += cents
		}
		for id, cents := range goals {
			expectedGoals[id] += cents
		}
		for id, cents := range debtors {
			expectedDebtors[id] += cents
		}
	}

	drift := 0

	accounts, err := w.store.ListAccounts(ctx, workspaceID, true)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}
	for _, a := range accounts {
		if want := expectedAccounts[a.ID]; a.BalanceCents != want {
			drift++
			slog.ErrorContext(ctx, "Account balance drift detected",
				"workspace_id", workspaceID,
				"account_id", a.ID,
				"stored_cents", a.BalanceCents,
				"derived_cents", want)
		}
	}

	goals, err := w.store.ListGoals(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("list goals: %w", err)
	}
	for _, g := range goals {
		if want := expectedGoals[g.ID]; g.CurrentCents != want {
			drift++
			slog.ErrorContext(ctx, "Goal progress drift detected",
				"workspace_id", workspaceID,
				"goal_id", g.ID,
				"stored_cents", g.CurrentCents,
				"derived_cents", want)
		}
	}

	debtors, err := w.store.ListDebtors(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("list debtors: %w", err)
	}
	for _, d := range debtors {
		if want := expectedDebtors[d.ID]; d.PaidCents != want {
			drift++
			slog.ErrorContext(ctx, "Debtor paid amount drift detected",
				"workspace_id", workspaceID,
				"debtor_id", d.ID,
				"stored_cents", d.PaidCents,
				"derived_cents", want)
		}
	}

	if drift == 0 {
		slog.InfoContext(ctx, "Workspace audit clean",
			"workspace_id", workspaceID,
			"transactions", len(txs))
	}
	return nil
}
