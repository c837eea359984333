package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"fambudget/internal/ledger"
)

type createAccountRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Currency string `json:"currency"`
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	scope := scopeFrom(r.Context())
	includeArchived := r.URL.Query().Get("includeArchived") == "true"

	accounts, err := s.engine.ListAccounts(r.Context(), scope, includeArchived)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]accountDTO, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountDTO(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	scope := scopeFrom(r.Context())

	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	account, err := s.engine.CreateAccount(r.Context(), scope, ledger.CreateAccountParams{
		Name:     req.Name,
		Type:     req.Type,
		Currency: req.Currency,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateOverview(scope.WorkspaceID.String())
	writeJSON(w, http.StatusCreated, toAccountDTO(account))
}

type archiveAccountRequest struct {
	Archived bool `json:"archived"`
}

func (s *Server) handleArchiveAccount(w http.ResponseWriter, r *http.Request) {
	scope := scopeFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid account id")
		return
	}

	var req archiveAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	if err := s.engine.SetAccountArchived(r.Context(), scope, id, req.Archived); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateOverview(scope.WorkspaceID.String())
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	scope := scopeFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid account id")
		return
	}

	if err := s.engine.DeleteAccount(r.Context(), scope, id); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateOverview(scope.WorkspaceID.String())
	writeJSON(w, http.StatusNoContent, nil)
}

// pathID parses the {id} URL parameter.
func pathID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}
