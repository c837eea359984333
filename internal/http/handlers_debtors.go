package http

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"fambudget/internal/core"
	"fambudget/internal/ledger"
)

type createDebtorRequest struct {
	Name      string     `json:"name"`
	Icon      string     `json:"icon"`
	Direction string     `json:"direction"`
	Principal string     `json:"principal"`
	Payoff    string     `json:"payoff"`
	IssuedAt  string     `json:"issuedAt"`
	DueAt     string     `json:"dueAt"`
	AccountID *uuid.UUID `json:"accountId"`
}

func (s *Server) handleListDebtors(w http.ResponseWriter, r *http.Request) {
	scope := scopeFrom(r.Context())

	debtors, err := s.engine.ListDebtors(r.Context(), scope)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]debtorDTO, 0, len(debtors))
	for _, d := range debtors {
		out = append(out, toDebtorDTO(d))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateDebtor(w http.ResponseWriter, r *http.Request) {
	scope := scopeFrom(r.Context())

	var req createDebtorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	principal, err := core.ParseAmount(req.Principal)
	if err != nil {
		writeError(w, r, err)
		return
	}

	issuedAt, err := parseDate("issuedAt", req.IssuedAt)
	if err != nil {
		writeError(w, r, err)
		return
	}

	params := ledger.CreateDebtorParams{
		Name:      req.Name,
		Icon:      req.Icon,
		Direction: core.DebtDirection(req.Direction),
		Principal: principal,
		IssuedAt:  issuedAt,
		AccountID: req.AccountID,
	}
	if req.DueAt != "" {
		dueAt, err := parseDate("dueAt", req.DueAt)
		if err != nil {
			writeError(w, r, err)
			return
		}
		params.DueAt = &dueAt
	}
	if req.Payoff != "" {
		payoff, err := core.ParseAmount(req.Payoff)
		if err != nil {
			writeError(w, r, err)
			return
		}
		params.Payoff = &payoff
	}

	debtor, err := s.engine.CreateDebtor(r.Context(), scope, params)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateOverview(scope.WorkspaceID.String())
	writeJSON(w, http.StatusCreated, toDebtorDTO(debtor))
}

type debtPaymentRequest struct {
	AccountID  uuid.UUID `json:"accountId"`
	Amount     string    `json:"amount"`
	HappenedAt string    `json:"happenedAt"`
}

func (s *Server) handleRecordDebtPayment(w http.ResponseWriter, r *http.Request) {
	scope := scopeFrom(r.Context())
	debtorID, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid debtor id")
		return
	}

	var req debtPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
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

	debtor, err := s.engine.RecordDebtPayment(r.Context(), scope, debtorID, req.AccountID, amount, happenedAt)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateOverview(scope.WorkspaceID.String())
	writeJSON(w, http.StatusOK, toDebtorDTO(debtor))
}

func (s *Server) handleDeleteDebtor(w http.ResponseWriter, r *http.Request) {
	scope := scopeFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid debtor id")
		return
	}

	if err := s.engine.DeleteDebtor(r.Context(), scope, id); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateOverview(scope.WorkspaceID.String())
	writeJSON(w, http.StatusNoContent, nil)
}
