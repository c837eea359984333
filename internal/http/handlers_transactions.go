package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"fambudget/internal/core"
)

type createTransactionRequest struct {
	Kind       string `json:"kind"`
	Amount     string `json:"amount"`
	HappenedAt string `json:"happenedAt"`
	Note       string `json:"note"`
	DebtIssue  bool   `json:"debtIssue"`

	AccountID      *uuid.UUID `json:"accountId"`
	CategoryID     *uuid.UUID `json:"categoryId"`
	IncomeSourceID *uuid.UUID `json:"incomeSourceId"`
	FromAccountID  *uuid.UUID `json:"fromAccountId"`
	ToAccountID    *uuid.UUID `json:"toAccountId"`
	GoalID         *uuid.UUID `json:"goalId"`
	DebtorID       *uuid.UUID `json:"debtorId"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	scope := scopeFrom(r.Context())

	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	// Field validation mirrors the engine's order so the first failure
	// reported here is the same one the engine would report: kind, then
	// amount, then date.
	kind := core.TransactionKind(req.Kind)
	if !core.KnownKind(kind) {
		writeError(w, r, fmt.Errorf("kind %q: %w", req.Kind, core.ErrInvalidKind))
		return
	}
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	happenedAt, err := parseDate("happenedAt", req.HappenedAt)
	if err != nil {
		writeError(w, r, err)
		return
	}

	intent := core.TransactionIntent{
		Kind:      kind,
		Amount:    amount,
		Note:      req.Note,
		DebtIssue: req.DebtIssue,
		Refs: core.TransactionRefs{
			AccountID:      req.AccountID,
			CategoryID:     req.CategoryID,
			IncomeSourceID: req.IncomeSourceID,
			FromAccountID:  req.FromAccountID,
			ToAccountID:    req.ToAccountID,
			GoalID:         req.GoalID,
			DebtorID:       req.DebtorID,
		},
	}
	intent.HappenedAt = happenedAt

	t, err := s.engine.Apply(r.Context(), scope, intent)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.logs.LogTransactionApplied(r.Context(), t.ID.String(), string(t.Kind), string(t.Shape), t.Amount.Cents(), t.WorkspaceID.String())
	s.invalidateOverview(scope.WorkspaceID.String())
	s.publishApplied(r.Context(), t)
	writeJSON(w, http.StatusCreated, toTransactionDTO(t))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	scope := scopeFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid transaction id")
		return
	}

	t, err := s.engine.GetTransaction(r.Context(), scope, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(t))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	scope := scopeFrom(r.Context())

	filter, err := transactionFilter(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	txs, err := s.engine.ListTransactions(r.Context(), scope, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]transactionDTO, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionDTO(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	scope := scopeFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid transaction id")
		return
	}

	// Fetched before the reversal so the outbound event can still name the
	// accounts it touched.
	t, err := s.engine.GetTransaction(r.Context(), scope, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.engine.Reverse(r.Context(), scope, id); err != nil {
		writeError(w, r, err)
		return
	}

	s.logs.LogTransactionReversed(r.Context(), t.ID.String(), t.WorkspaceID.String())
	s.invalidateOverview(scope.WorkspaceID.String())
	s.publishReversed(r.Context(), t)
	writeJSON(w, http.StatusNoContent, nil)
}

func transactionFilter(r *http.Request) (core.TransactionFilter, error) {
	var filter core.TransactionFilter
	q := r.URL.Query()

	if v := q.Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			return filter, errBadParam("year")
		}
		filter.Year = year
	}
	if v := q.Get("month"); v != "" {
		month, err := strconv.Atoi(v)
		if err != nil || month < 1 || month > 12 {
			return filter, errBadParam("month")
		}
		filter.Month = month
	}
	if v := q.Get("accountId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filter, errBadParam("accountId")
		}
		filter.AccountID = &id
	}
	if v := q.Get("kind"); v != "" {
		filter.Kind = core.TransactionKind(v)
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return filter, errBadParam("limit")
		}
		filter.Limit = limit
	}
	return filter, nil
}

type paramError string

func (e paramError) Error() string { return "invalid parameter: " + string(e) }

func errBadParam(name string) error { return paramError(name) }
