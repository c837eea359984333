package http

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"fambudget/internal/core"
	"fambudget/internal/ledger"
)

type createGoalRequest struct {
	Name   string `json:"name"`
	Icon   string `json:"icon"`
	Target string `json:"target"`
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	scope := scopeFrom(r.Context())

	goals, err := s.engine.ListGoals(r.Context(), scope)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]goalDTO, 0, len(goals))
	for _, g := range goals {
		out = append(out, toGoalDTO(g))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	scope := scopeFrom(r.Context())

	var req createGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	target, err := core.ParseAmount(req.Target)
	if err != nil {
		writeError(w, r, err)
		return
	}

	goal, err := s.engine.CreateGoal(r.Context(), scope, ledger.CreateGoalParams{
		Name:   req.Name,
		Icon:   req.Icon,
		Target: target,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateOverview(scope.WorkspaceID.String())
	writeJSON(w, http.StatusCreated, toGoalDTO(goal))
}

type contributionRequest struct {
	AccountID  uuid.UUID `json:"accountId"`
	Amount     string    `json:"amount"`
	HappenedAt string    `json:"happenedAt"`
}

func (s *Server) handleContributeToGoal(w http.ResponseWriter, r *http.Request) {
	scope := scopeFrom(r.Context())
	goalID, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid goal id")
		return
	}

	var req contributionRequest
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

	goal, err := s.engine.ContributeToGoal(r.Context(), scope, goalID, req.AccountID, amount, happenedAt)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateOverview(scope.WorkspaceID.String())
	writeJSON(w, http.StatusOK, toGoalDTO(goal))
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	scope := scopeFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid goal id")
		return
	}

	if err := s.engine.DeleteGoal(r.Context(), scope, id); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateOverview(scope.WorkspaceID.String())
	writeJSON(w, http.StatusNoContent, nil)
}
