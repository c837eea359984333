package tenancy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fambudget/internal/core"
)

// Resolver turns authenticated Telegram identities into users and users
// into workspace scopes.
type Resolver struct {
	dir Directory
}

func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

// Login finds or bootstraps the user behind a verified Telegram identity.
// A first-time login creates the user together with their personal
// workspace so they can record transactions immediately.
func (r *Resolver) Login(ctx context.Context, tg TelegramUser) (core.User, error) {
	user, err := r.dir.GetUserByTelegramID(ctx, tg.ID)
	if err == nil {
		if user.FirstName != tg.FirstName || user.Username != tg.Username {
			if err := r.dir.UpdateUserProfile(ctx, user.ID, tg.FirstName, tg.Username); err != nil {
				slog.WarnContext(ctx, "Failed to refresh user profile",
					"user_id", user.ID, "error", err)
			} else {
				user.FirstName = tg.FirstName
				user.Username = tg.Username
			}
		}
		return user, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return core.User{}, fmt.Errorf("lookup telegram user: %w", err)
	}

	now := time.Now().UTC()
	user = core.User{
		ID:         uuid.New(),
		TelegramID: tg.ID,
		FirstName:  tg.FirstName,
		Username:   tg.Username,
		CreatedAt:  now,
	}
	workspace := core.Workspace{
		ID:              uuid.New(),
		Type:            core.WorkspacePersonal,
		Name:            personalWorkspaceName(tg),
		CreatedByUserID: user.ID,
		CreatedAt:       now,
	}
	if err := r.dir.CreateUserWithWorkspace(ctx, user, workspace); err != nil {
		return core.User{}, fmt.Errorf("bootstrap user: %w", err)
	}
	user.ActiveWorkspaceID = &workspace.ID

	slog.InfoContext(ctx, "Bootstrapped new user",
		"user_id", user.ID, "workspace_id", workspace.ID)
	return user, nil
}

func personalWorkspaceName(tg TelegramUser) string {
	if tg.FirstName != "" {
		return tg.FirstName
	}
	if tg.Username != "" {
		return tg.Username
	}
	return "Personal"
}

// Resolve produces the scope every ledger operation runs under. A user
// without an active workspace, or whose active workspace they are no
// longer a member of, cannot operate on the ledger.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID) (core.Scope, error) {
	user, err := r.dir.GetUser(ctx, userID)
	if err != nil {
		return core.Scope{}, fmt.Errorf("resolve user: %w", err)
	}
	if user.ActiveWorkspaceID == nil {
		return core.Scope{}, fmt.Errorf("user %s: %w", userID, core.ErrNoActiveWorkspace)
	}
	if _, err := r.dir.GetMember(ctx, *user.ActiveWorkspaceID, userID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Scope{}, fmt.Errorf("user %s: stale active workspace: %w", userID, core.ErrNoActiveWorkspace)
		}
		return core.Scope{}, fmt.Errorf("resolve membership: %w", err)
	}
	return core.Scope{UserID: userID, WorkspaceID: *user.ActiveWorkspaceID}, nil
}

// CreateWorkspace creates a shared workspace owned by the caller and makes
// it their active one.
func (r *Resolver) CreateWorkspace(ctx context.Context, userID uuid.UUID, name string, wsType core.WorkspaceType) (core.Workspace, error) {
	if wsType == "" {
		wsType = core.WorkspaceFamily
	}
	now := time.Now().UTC()
	w := core.Workspace{
		ID:              uuid.New(),
		Type:            wsType,
		Name:            name,
		CreatedByUserID: userID,
		CreatedAt:       now,
	}
	if err := r.dir.CreateWorkspace(ctx, w); err != nil {
		return core.Workspace{}, fmt.Errorf("create workspace: %w", err)
	}
	if err := r.dir.AddMember(ctx, core.WorkspaceMember{
		WorkspaceID: w.ID,
		UserID:      userID,
		Role:        core.RoleOwner,
		JoinedAt:    now,
	}); err != nil {
		return core.Workspace{}, fmt.Errorf("add owner membership: %w", err)
	}
	if err := r.dir.SetActiveWorkspace(ctx, userID, w.ID); err != nil {
		return core.Workspace{}, fmt.Errorf("activate workspace: %w", err)
	}
	return w, nil
}

// SwitchWorkspace changes the caller's active workspace. Membership is
// required; a workspace the caller does not belong to reads as missing.
func (r *Resolver) SwitchWorkspace(ctx context.Context, userID, workspaceID uuid.UUID) error {
	if _, err := r.dir.GetWorkspace(ctx, workspaceID); err != nil {
		return fmt.Errorf("switch workspace: %w", err)
	}
	if _, err := r.dir.GetMember(ctx, workspaceID, userID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("switch workspace: %w", core.ErrNotFound)
		}
		return fmt.Errorf("switch workspace membership: %w", err)
	}
	return r.dir.SetActiveWorkspace(ctx, userID, workspaceID)
}

// InviteMember adds another user to a workspace the caller owns.
func (r *Resolver) InviteMember(ctx context.Context, ownerID, workspaceID, userID uuid.UUID) error {
	member, err := r.dir.GetMember(ctx, workspaceID, ownerID)
	if err != nil {
		return fmt.Errorf("invite: %w", err)
	}
	if member.Role != core.RoleOwner {
		return fmt.Errorf("invite: only owners can invite: %w", core.ErrForbiddenReference)
	}
	if _, err := r.dir.GetUser(ctx, userID); err != nil {
		return fmt.Errorf("invite: %w", err)
	}
	return r.dir.AddMember(ctx, core.WorkspaceMember{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Role:        core.RoleMember,
		JoinedAt:    time.Now().UTC(),
	})
}

// ListWorkspaces lists the workspaces the user belongs to.
func (r *Resolver) ListWorkspaces(ctx context.Context, userID uuid.UUID) ([]core.Workspace, error) {
	return r.dir.ListWorkspacesForUser(ctx, userID)
}
