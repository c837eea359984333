package worker

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"fambudget/internal/amqp"
	"fambudget/internal/core"
	"fambudget/internal/ledger"
	"fambudget/internal/storage"
)

// captureLogs routes the default logger into a buffer for the duration of
// the test so drift reports can be asserted on.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func seedLedger(t *testing.T) (*storage.MemoryStore, core.Scope) {
	t.Helper()
	store := storage.NewMemoryStore()
	engine := ledger.NewEngine(store)
	scope := core.Scope{UserID: uuid.New(), WorkspaceID: uuid.New()}
	ctx := context.Background()

	account, err := engine.CreateAccount(ctx, scope, ledger.CreateAccountParams{Name: "Checking"})
	require.NoError(t, err)

	amount, err := core.ParseAmount("100")
	require.NoError(t, err)
	_, err = engine.Apply(ctx, scope, core.TransactionIntent{
		Kind:   core.KindIncome,
		Amount: amount,
		Refs:   core.TransactionRefs{AccountID: &account.ID},
	})
	require.NoError(t, err)
	return store, scope
}

func TestAuditWorkspaceClean(t *testing.T) {
	store, scope := seedLedger(t)
	logs := captureLogs(t)

	auditor := NewAuditWorker(store, 10)
	require.NoError(t, auditor.AuditWorkspace(context.Background(), scope.WorkspaceID))
	require.Contains(t, logs.String(), "Workspace audit clean")
	require.NotContains(t, logs.String(), "drift detected")
}

func TestAuditWorkspaceDetectsDrift(t *testing.T) {
	store, scope := seedLedger(t)
	logs := captureLogs(t)

	// Nudge a balance behind the engine's back.
	accounts, err := store.ListAccounts(context.Background(), scope.WorkspaceID, true)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	require.NoError(t, store.RunAtomic(context.Background(), func(tx ledger.Tx) error {
		return tx.AdjustAccountBalance(context.Background(), scope.WorkspaceID, accounts[0].ID, 1)
	}))

	auditor := NewAuditWorker(store, 10)
	require.NoError(t, auditor.AuditWorkspace(context.Background(), scope.WorkspaceID))
	require.Contains(t, logs.String(), "Account balance drift detected")
}

func TestHandleLedgerEventTracksWorkspace(t *testing.T) {
	store, scope := seedLedger(t)
	captureLogs(t)

	auditor := NewAuditWorker(store, 10)
	msg := amqp.NewLedgerEventMessage(amqp.OpApplied, uuid.New(), scope.WorkspaceID, nil)
	require.NoError(t, auditor.HandleLedgerEvent(context.Background(), msg))

	auditor.mu.Lock()
	_, tracked := auditor.recent[scope.WorkspaceID]
	auditor.mu.Unlock()
	require.True(t, tracked)

	// The sweep revisits the tracked workspace without error.
	require.NoError(t, auditor.RunPeriodicSweep(context.Background()))
}
