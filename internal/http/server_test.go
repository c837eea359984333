package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"fambudget/internal/ledger"
	"fambudget/internal/storage"
	"fambudget/internal/tenancy"
)

const testBotToken = "123456:test-bot-token"

type testServer struct {
	srv   *Server
	token string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := storage.NewMemoryStore()
	srv := NewServer(ledger.NewEngine(store), tenancy.NewResolver(store), Options{
		Addr:           ":0",
		BotToken:       testBotToken,
		Sessions:       tenancy.NewSessions("0123456789abcdef0123456789abcdef", time.Hour),
		Directory:      store,
		RequestsPerMin: 100000,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return &testServer{srv: srv}
}

// login exchanges signed init data for a session token and stores it for
// subsequent requests.
func (ts *testServer) login(t *testing.T, telegramID int64, firstName string) loginResponse {
	t.Helper()
	initData := tenancy.SignInitData(tenancy.TelegramUser{ID: telegramID, FirstName: firstName}, testBotToken, time.Now())
	rec := ts.do(t, http.MethodPost, "/api/auth/telegram", map[string]string{"initData": initData})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	ts.token = resp.Token
	return resp
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if ts.token != "" {
		req.Header.Set("Authorization", "Bearer "+ts.token)
	}
	rec := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestTelegramLogin(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.login(t, 42, "Ada")
	require.NotEmpty(t, resp.Token)
	require.Equal(t, "Ada", resp.FirstName)
	require.Equal(t, "personal", string(resp.Workspace.Type))

	// Forged init data is rejected before any user lookup.
	forged := tenancy.SignInitData(tenancy.TelegramUser{ID: 42}, "999:wrong-token", time.Now())
	rec := ts.do(t, http.MethodPost, "/api/auth/telegram", map[string]string{"initData": forged})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/auth/telegram", map[string]string{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/accounts", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	ts.token = "garbage"
	rec = ts.do(t, http.MethodGet, "/api/accounts", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/workspaces", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAccountLifecycle(t *testing.T) {
	ts := newTestServer(t)
	ts.login(t, 42, "Ada")

	rec := ts.do(t, http.MethodPost, "/api/accounts", map[string]string{"name": "Checking"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	account := decode[accountDTO](t, rec)
	require.Equal(t, "Checking", account.Name)
	require.Equal(t, "0.00", account.Balance)
	require.Equal(t, "cash", account.Type)
	require.Equal(t, "EUR", account.Currency)

	rec = ts.do(t, http.MethodGet, "/api/accounts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]accountDTO](t, rec), 1)

	rec = ts.do(t, http.MethodPatch, "/api/accounts/"+account.ID.String()+"/archive", map[string]bool{"archived": true})
	require.Equal(t, http.StatusNoContent, rec.Code)

	// Archived accounts only show up when asked for.
	rec = ts.do(t, http.MethodGet, "/api/accounts", nil)
	require.Empty(t, decode[[]accountDTO](t, rec))
	rec = ts.do(t, http.MethodGet, "/api/accounts?includeArchived=true", nil)
	require.Len(t, decode[[]accountDTO](t, rec), 1)

	rec = ts.do(t, http.MethodDelete, "/api/accounts/"+account.ID.String(), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestTransactionFlow(t *testing.T) {
	ts := newTestServer(t)
	ts.login(t, 42, "Ada")

	rec := ts.do(t, http.MethodPost, "/api/accounts", map[string]string{"name": "Checking"})
	account := decode[accountDTO](t, rec)

	rec = ts.do(t, http.MethodPost, "/api/transactions", map[string]any{
		"kind":      "income",
		"amount":    "1000",
		"accountId": account.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	income := decode[transactionDTO](t, rec)
	require.Equal(t, "income", string(income.Shape))

	rec = ts.do(t, http.MethodGet, "/api/overview", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	overview := decode[overviewDTO](t, rec)
	require.Len(t, overview.Accounts, 1)
	require.Equal(t, "1000.00", overview.Accounts[0].Balance)

	rec = ts.do(t, http.MethodGet, "/api/transactions/"+income.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Deleting the transaction reverses it, and the cached overview must
	// not survive the mutation.
	rec = ts.do(t, http.MethodDelete, "/api/transactions/"+income.ID.String(), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/overview", nil)
	overview = decode[overviewDTO](t, rec)
	require.Equal(t, "0.00", overview.Accounts[0].Balance)

	rec = ts.do(t, http.MethodGet, "/api/transactions/"+income.ID.String(), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestErrorStatusMapping(t *testing.T) {
	ts := newTestServer(t)
	ts.login(t, 42, "Ada")

	// Well-formed but invalid ledger input reads as 422.
	rec := ts.do(t, http.MethodPost, "/api/transactions", map[string]any{
		"kind":   "refund",
		"amount": "10",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "invalid_input", decode[errorResponse](t, rec).Code)

	// Malformed parameters read as 400.
	rec = ts.do(t, http.MethodGet, "/api/transactions?month=13", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Duplicate names read as 409.
	rec = ts.do(t, http.MethodPost, "/api/categories", map[string]string{"name": "Еда", "kind": "expense"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = ts.do(t, http.MethodPost, "/api/categories", map[string]string{"name": "ЕДА", "kind": "expense"})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "conflict", decode[errorResponse](t, rec).Code)

	// Missing resources read as 404.
	rec = ts.do(t, http.MethodDelete, "/api/goals/"+uuid.NewString(), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTransactionDateParsing(t *testing.T) {
	ts := newTestServer(t)
	ts.login(t, 42, "Ada")

	rec := ts.do(t, http.MethodPost, "/api/accounts", map[string]string{"name": "Cash"})
	require.Equal(t, http.StatusCreated, rec.Code)
	account := decode[accountDTO](t, rec)

	// An unparseable date is a validation error on the named field, not a
	// malformed request.
	rec = ts.do(t, http.MethodPost, "/api/transactions", map[string]any{
		"kind":       "income",
		"amount":     "10",
		"happenedAt": "not-a-date",
		"accountId":  account.ID,
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	body := decode[errorResponse](t, rec)
	require.Equal(t, "invalid_input", body.Code)
	require.Contains(t, body.Error, "happenedAt")

	// Plain dates and RFC 3339 timestamps both parse.
	for _, date := range []string{"2026-08-31", "2026-08-31T12:30:00Z"} {
		rec = ts.do(t, http.MethodPost, "/api/transactions", map[string]any{
			"kind":       "income",
			"amount":     "10",
			"happenedAt": date,
			"accountId":  account.ID,
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	// Debtor creation holds the same contract for its date fields.
	rec = ts.do(t, http.MethodPost, "/api/debtors", map[string]any{
		"name":      "Bob",
		"direction": "receivable",
		"principal": "50",
		"issuedAt":  "31/08/2026",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, decode[errorResponse](t, rec).Error, "issuedAt")
}

func TestValidationReportsKindFirst(t *testing.T) {
	ts := newTestServer(t)
	ts.login(t, 42, "Ada")

	// A request that is wrong in several ways reports the kind problem.
	rec := ts.do(t, http.MethodPost, "/api/transactions", map[string]any{
		"kind":       "refund",
		"amount":     "abc",
		"happenedAt": "not-a-date",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode[errorResponse](t, rec)
	require.Equal(t, "invalid_input", body.Code)
	require.Contains(t, body.Error, "kind")

	// With a valid kind the amount failure is reported next.
	rec = ts.do(t, http.MethodPost, "/api/transactions", map[string]any{
		"kind":       "income",
		"amount":     "abc",
		"happenedAt": "not-a-date",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, decode[errorResponse](t, rec).Error, "amount")
}

func TestWorkspaceIsolationOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	ts.login(t, 1, "Ada")

	rec := ts.do(t, http.MethodPost, "/api/accounts", map[string]string{"name": "Checking"})
	account := decode[accountDTO](t, rec)
	rec = ts.do(t, http.MethodPost, "/api/transactions", map[string]any{
		"kind": "income", "amount": "50", "accountId": account.ID,
	})
	tx := decode[transactionDTO](t, rec)

	// A different user sees none of it.
	ts.login(t, 2, "Eve")
	rec = ts.do(t, http.MethodGet, "/api/accounts", nil)
	require.Empty(t, decode[[]accountDTO](t, rec))

	rec = ts.do(t, http.MethodGet, "/api/transactions/"+tx.ID.String(), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	// Referencing the foreign account is a tenancy violation, not a 404.
	rec = ts.do(t, http.MethodPost, "/api/transactions", map[string]any{
		"kind": "income", "amount": "50", "accountId": account.ID,
	})
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "forbidden", decode[errorResponse](t, rec).Code)
}

func TestWorkspaceManagement(t *testing.T) {
	ts := newTestServer(t)
	owner := ts.login(t, 1, "Ada")

	rec := ts.do(t, http.MethodPost, "/api/workspaces", map[string]string{"name": "Family"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	family := decode[workspaceDTO](t, rec)
	require.Equal(t, "family", string(family.Type))

	rec = ts.do(t, http.MethodGet, "/api/workspaces", nil)
	require.Len(t, decode[[]workspaceDTO](t, rec), 2)

	// The guest joins and sees the family ledger, not their own.
	guest := ts.login(t, 2, "Eve")
	ts.token = owner.Token
	rec = ts.do(t, http.MethodPost, "/api/workspaces/"+family.ID.String()+"/members", map[string]string{"userId": guest.UserID})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	ts.token = guest.Token
	rec = ts.do(t, http.MethodPost, "/api/workspaces/"+family.ID.String()+"/switch", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	ts.token = owner.Token
	rec = ts.do(t, http.MethodPost, "/api/workspaces/"+family.ID.String()+"/switch", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = ts.do(t, http.MethodPost, "/api/accounts", map[string]string{"name": "Household"})
	require.Equal(t, http.StatusCreated, rec.Code)

	ts.token = guest.Token
	rec = ts.do(t, http.MethodGet, "/api/accounts", nil)
	require.Len(t, decode[[]accountDTO](t, rec), 1)
}

func TestGoalAndDebtEndpoints(t *testing.T) {
	ts := newTestServer(t)
	ts.login(t, 42, "Ada")

	rec := ts.do(t, http.MethodPost, "/api/accounts", map[string]string{"name": "Checking"})
	account := decode[accountDTO](t, rec)
	ts.do(t, http.MethodPost, "/api/transactions", map[string]any{
		"kind": "income", "amount": "1000", "accountId": account.ID,
	})

	rec = ts.do(t, http.MethodPost, "/api/goals", map[string]string{"name": "Vacation", "target": "300"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	goal := decode[goalDTO](t, rec)

	rec = ts.do(t, http.MethodPost, "/api/goals/"+goal.ID.String()+"/contributions", map[string]any{
		"accountId": account.ID, "amount": "300",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	goal = decode[goalDTO](t, rec)
	require.Equal(t, "300.00", goal.Current)
	require.Equal(t, "completed", string(goal.Status))

	rec = ts.do(t, http.MethodPost, "/api/debtors", map[string]any{
		"name": "Alice", "direction": "receivable", "principal": "200", "accountId": account.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	debtor := decode[debtorDTO](t, rec)

	rec = ts.do(t, http.MethodPost, "/api/debtors/"+debtor.ID.String()+"/payments", map[string]any{
		"accountId": account.ID, "amount": "200",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	debtor = decode[debtorDTO](t, rec)
	require.Equal(t, "200.00", debtor.Paid)
	require.Equal(t, "completed", string(debtor.Status))

	// 1000 - 300 (goal) - 200 (lent) + 200 (repaid)
	rec = ts.do(t, http.MethodGet, "/api/overview", nil)
	overview := decode[overviewDTO](t, rec)
	require.Equal(t, "700.00", overview.Accounts[0].Balance)
}
