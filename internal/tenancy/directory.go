// Package tenancy resolves authenticated principals to a workspace scope
// and manages workspace membership. Every ledger operation runs under a
// core.Scope produced here.
package tenancy

import (
	"context"

	"github.com/google/uuid"

	"fambudget/internal/core"
)

// Directory is the identity and workspace surface the resolver needs from
// the store. Both the SQLite repository and the memory store satisfy it.
type Directory interface {
	GetUser(ctx context.Context, id uuid.UUID) (core.User, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (core.User, error)
	UpdateUserProfile(ctx context.Context, id uuid.UUID, firstName, username string) error
	SetActiveWorkspace(ctx context.Context, userID, workspaceID uuid.UUID) error

	GetWorkspace(ctx context.Context, id uuid.UUID) (core.Workspace, error)
	CreateWorkspace(ctx context.Context, w core.Workspace) error
	AddMember(ctx context.Context, m core.WorkspaceMember) error
	GetMember(ctx context.Context, workspaceID, userID uuid.UUID) (core.WorkspaceMember, error)
	ListWorkspacesForUser(ctx context.Context, userID uuid.UUID) ([]core.Workspace, error)

	// CreateUserWithWorkspace runs the first-login bootstrap in one
	// transaction: user, personal workspace, owner membership, active
	// binding.
	CreateUserWithWorkspace(ctx context.Context, u core.User, w core.Workspace) error
}
