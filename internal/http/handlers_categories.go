package http

import (
	"encoding/json"
	"net/http"

	"fambudget/internal/core"
	"fambudget/internal/ledger"
)

type createCategoryRequest struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Icon   string `json:"icon"`
	Budget string `json:"budget"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	scope := scopeFrom(r.Context())

	categories, err := s.engine.ListCategories(r.Context(), scope)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]categoryDTO, 0, len(categories))
	for _, c := range categories {
		out = append(out, toCategoryDTO(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	scope := scopeFrom(r.Context())

	var req createCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	params := ledger.CreateCategoryParams{
		Name: req.Name,
		Kind: core.CategoryKind(req.Kind),
		Icon: req.Icon,
	}
	if req.Budget != "" {
		budget, err := core.ParseAmount(req.Budget)
		if err != nil {
			writeError(w, r, err)
			return
		}
		params.Budget = &budget
	}

	category, err := s.engine.CreateCategory(r.Context(), scope, params)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryDTO(category))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	scope := scopeFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid category id")
		return
	}

	if err := s.engine.DeleteCategory(r.Context(), scope, id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type createIncomeSourceRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleListIncomeSources(w http.ResponseWriter, r *http.Request) {
	scope := scopeFrom(r.Context())

	sources, err := s.engine.ListIncomeSources(r.Context(), scope)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]incomeSourceDTO, 0, len(sources))
	for _, src := range sources {
		out = append(out, toIncomeSourceDTO(src))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateIncomeSource(w http.ResponseWriter, r *http.Request) {
	scope := scopeFrom(r.Context())

	var req createIncomeSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	source, err := s.engine.CreateIncomeSource(r.Context(), scope, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toIncomeSourceDTO(source))
}

func (s *Server) handleDeleteIncomeSource(w http.ResponseWriter, r *http.Request) {
	scope := scopeFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid income source id")
		return
	}

	if err := s.engine.DeleteIncomeSource(r.Context(), scope, id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
