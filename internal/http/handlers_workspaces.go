package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"fambudget/internal/core"
)

func (s *Server) handleListWorkspaces(w http.ResponseWriter, r *http.Request) {
	scope := scopeFrom(r.Context())

	workspaces, err := s.resolver.ListWorkspaces(r.Context(), scope.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]workspaceDTO, 0, len(workspaces))
	for _, ws := range workspaces {
		out = append(out, toWorkspaceDTO(ws))
	}
	writeJSON(w, http.StatusOK, out)
}

type createWorkspaceRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func (s *Server) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	scope := scopeFrom(r.Context())

	var req createWorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		badRequest(w, "workspace name is required")
		return
	}

	workspace, err := s.resolver.CreateWorkspace(r.Context(), scope.UserID, req.Name, core.WorkspaceType(req.Type))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWorkspaceDTO(workspace))
}

func (s *Server) handleSwitchWorkspace(w http.ResponseWriter, r *http.Request) {
	scope := scopeFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid workspace id")
		return
	}

	if err := s.resolver.SwitchWorkspace(r.Context(), scope.UserID, id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type inviteMemberRequest struct {
	UserID uuid.UUID `json:"userId"`
}

func (s *Server) handleInviteMember(w http.ResponseWriter, r *http.Request) {
	scope := scopeFrom(r.Context())
	workspaceID, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid workspace id")
		return
	}

	var req inviteMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == uuid.Nil {
		badRequest(w, "userId is required")
		return
	}

	if err := s.resolver.InviteMember(r.Context(), scope.UserID, workspaceID, req.UserID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// handleOverview serves the workspace snapshot, cached per workspace and
// invalidated by every ledger mutation.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	scope := scopeFrom(r.Context())
	key := scope.WorkspaceID.String()

	if cached, found := s.overviewCache.Get(key); found {
		slog.DebugContext(r.Context(), "Overview cache hit", "workspace_id", key)
		writeJSON(w, http.StatusOK, toOverviewDTO(cached))
		return
	}

	overview, err := s.engine.Overview(r.Context(), scope)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.overviewCache.Set(key, overview)
	writeJSON(w, http.StatusOK, toOverviewDTO(overview))
}
