package tenancy_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"fambudget/internal/core"
	"fambudget/internal/storage"
	"fambudget/internal/tenancy"
)

func newTestResolver() *tenancy.Resolver {
	return tenancy.NewResolver(storage.NewMemoryStore())
}

func TestLoginBootstrapsPersonalWorkspace(t *testing.T) {
	ctx := context.Background()
	resolver := newTestResolver()

	user, err := resolver.Login(ctx, tenancy.TelegramUser{ID: 42, FirstName: "Ada", Username: "ada"})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, user.ID)
	require.EqualValues(t, 42, user.TelegramID)
	require.NotNil(t, user.ActiveWorkspaceID)

	scope, err := resolver.Resolve(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, user.ID, scope.UserID)
	require.Equal(t, *user.ActiveWorkspaceID, scope.WorkspaceID)

	workspaces, err := resolver.ListWorkspaces(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, workspaces, 1)
	require.Equal(t, core.WorkspacePersonal, workspaces[0].Type)
	require.Equal(t, "Ada", workspaces[0].Name)
}

func TestLoginReturnsExistingUser(t *testing.T) {
	ctx := context.Background()
	resolver := newTestResolver()

	first, err := resolver.Login(ctx, tenancy.TelegramUser{ID: 42, FirstName: "Ada"})
	require.NoError(t, err)

	// Same Telegram identity with a renamed profile resolves to the same
	// user with the profile refreshed.
	second, err := resolver.Login(ctx, tenancy.TelegramUser{ID: 42, FirstName: "Adaline", Username: "ada"})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "Adaline", second.FirstName)
	require.Equal(t, "ada", second.Username)
}

func TestCreateAndSwitchWorkspace(t *testing.T) {
	ctx := context.Background()
	resolver := newTestResolver()

	user, err := resolver.Login(ctx, tenancy.TelegramUser{ID: 42, FirstName: "Ada"})
	require.NoError(t, err)
	personalID := *user.ActiveWorkspaceID

	family, err := resolver.CreateWorkspace(ctx, user.ID, "Family", "")
	require.NoError(t, err)
	require.Equal(t, core.WorkspaceFamily, family.Type)

	// Creating a workspace makes it active.
	scope, err := resolver.Resolve(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, family.ID, scope.WorkspaceID)

	require.NoError(t, resolver.SwitchWorkspace(ctx, user.ID, personalID))
	scope, err = resolver.Resolve(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, personalID, scope.WorkspaceID)

	workspaces, err := resolver.ListWorkspaces(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, workspaces, 2)
}

func TestSwitchWorkspaceRequiresMembership(t *testing.T) {
	ctx := context.Background()
	resolver := newTestResolver()

	ada, err := resolver.Login(ctx, tenancy.TelegramUser{ID: 1, FirstName: "Ada"})
	require.NoError(t, err)
	eve, err := resolver.Login(ctx, tenancy.TelegramUser{ID: 2, FirstName: "Eve"})
	require.NoError(t, err)

	err = resolver.SwitchWorkspace(ctx, eve.ID, *ada.ActiveWorkspaceID)
	require.ErrorIs(t, err, core.ErrNotFound)

	err = resolver.SwitchWorkspace(ctx, ada.ID, uuid.New())
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestInviteMember(t *testing.T) {
	ctx := context.Background()
	resolver := newTestResolver()

	owner, err := resolver.Login(ctx, tenancy.TelegramUser{ID: 1, FirstName: "Ada"})
	require.NoError(t, err)
	guest, err := resolver.Login(ctx, tenancy.TelegramUser{ID: 2, FirstName: "Eve"})
	require.NoError(t, err)

	family, err := resolver.CreateWorkspace(ctx, owner.ID, "Family", core.WorkspaceFamily)
	require.NoError(t, err)

	require.NoError(t, resolver.InviteMember(ctx, owner.ID, family.ID, guest.ID))
	require.NoError(t, resolver.SwitchWorkspace(ctx, guest.ID, family.ID))

	scope, err := resolver.Resolve(ctx, guest.ID)
	require.NoError(t, err)
	require.Equal(t, family.ID, scope.WorkspaceID)

	// Plain members cannot invite.
	third, err := resolver.Login(ctx, tenancy.TelegramUser{ID: 3, FirstName: "Bob"})
	require.NoError(t, err)
	err = resolver.InviteMember(ctx, guest.ID, family.ID, third.ID)
	require.ErrorIs(t, err, core.ErrForbiddenReference)

	// Inviting the same user twice conflicts.
	err = resolver.InviteMember(ctx, owner.ID, family.ID, guest.ID)
	require.ErrorIs(t, err, core.ErrDuplicateName)
}
