package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"fambudget/internal/core"
	"fambudget/internal/tenancy"
)

type contextKey string

const scopeContextKey contextKey = "scope"

// scopeFrom returns the workspace scope the auth middleware resolved for
// this request.
func scopeFrom(ctx context.Context) core.Scope {
	scope, _ := ctx.Value(scopeContextKey).(core.Scope)
	return scope
}

type loginRequest struct {
	InitData string `json:"initData"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	UserID    string       `json:"userId"`
	FirstName string       `json:"firstName"`
	Workspace workspaceDTO `json:"workspace"`
}

// handleTelegramLogin exchanges verified Telegram Mini App init data for a
// session token. First-time callers get a personal workspace as part of
// the exchange.
func (s *Server) handleTelegramLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.InitData == "" {
		badRequest(w, "initData is required")
		return
	}

	tgUser, err := tenancy.VerifyInitData(req.InitData, s.botToken, time.Now())
	if err != nil {
		slog.WarnContext(r.Context(), "Telegram init data rejected", "error", err)
		unauthorized(w, "telegram authentication failed")
		return
	}

	user, err := s.resolver.Login(r.Context(), tgUser)
	if err != nil {
		writeError(w, r, err)
		return
	}

	scope, err := s.resolver.Resolve(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	workspace, err := s.directory.GetWorkspace(r.Context(), scope.WorkspaceID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	token, err := s.sessions.Issue(user.ID, time.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		UserID:    user.ID.String(),
		FirstName: user.FirstName,
		Workspace: toWorkspaceDTO(workspace),
	})
}

// withSession authenticates the bearer token and resolves the caller's
// workspace scope. Handlers below this middleware can rely on a valid
// scope being present in the context.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			unauthorized(w, "missing bearer token")
			return
		}
		userID, err := s.sessions.Verify(token)
		if err != nil {
			unauthorized(w, "invalid session token")
			return
		}
		scope, err := s.resolver.Resolve(r.Context(), userID)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				unauthorized(w, "unknown user")
				return
			}
			writeError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), scopeContextKey, scope)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withUser is like withSession but skips workspace resolution. Workspace
// management endpoints use it so a user whose active workspace vanished
// can still switch to another one.
func (s *Server) withUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			unauthorized(w, "missing bearer token")
			return
		}
		userID, err := s.sessions.Verify(token)
		if err != nil {
			unauthorized(w, "invalid session token")
			return
		}
		ctx := context.WithValue(r.Context(), scopeContextKey, core.Scope{UserID: userID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
