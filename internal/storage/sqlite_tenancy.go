package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"fambudget/internal/core"
)

func scanUser(s scanner) (core.User, error) {
	var (
		u      core.User
		id     string
		active sql.NullString
	)
	if err := s.Scan(&id, &u.TelegramID, &u.FirstName, &u.Username, &active, &u.CreatedAt); err != nil {
		return core.User{}, err
	}
	var err error
	if u.ID, err = toUUID(id); err != nil {
		return core.User{}, err
	}
	if u.ActiveWorkspaceID, err = toUUIDPtr(active); err != nil {
		return core.User{}, err
	}
	return u, nil
}

const userColumns = "id, telegram_id, first_name, username, active_workspace_id, created_at"

func (s queries) GetUser(ctx context.Context, id uuid.UUID) (core.User, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id.String())
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, fmt.Errorf("user %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.User{}, wrapDBErr(fmt.Errorf("get user: %w", err))
	}
	return u, nil
}

func (s queries) GetUserByTelegramID(ctx context.Context, telegramID int64) (core.User, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE telegram_id = ?", telegramID)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, fmt.Errorf("telegram user %d: %w", telegramID, core.ErrNotFound)
	}
	if err != nil {
		return core.User{}, wrapDBErr(fmt.Errorf("get user by telegram id: %w", err))
	}
	return u, nil
}

func (s queries) UpdateUserProfile(ctx context.Context, id uuid.UUID, firstName, username string) error {
	res, err := s.q.ExecContext(ctx,
		"UPDATE users SET first_name = ?, username = ? WHERE id = ?",
		firstName, username, id.String())
	if err != nil {
		return wrapDBErr(err)
	}
	return requireRow(res, "user")
}

func (s queries) SetActiveWorkspace(ctx context.Context, userID, workspaceID uuid.UUID) error {
	res, err := s.q.ExecContext(ctx,
		"UPDATE users SET active_workspace_id = ? WHERE id = ?",
		workspaceID.String(), userID.String())
	if err != nil {
		return wrapDBErr(err)
	}
	return requireRow(res, "user")
}

func scanWorkspace(s scanner) (core.Workspace, error) {
	var (
		w           core.Workspace
		id, creator string
	)
	if err := s.Scan(&id, &w.Type, &w.Name, &creator, &w.CreatedAt); err != nil {
		return core.Workspace{}, err
	}
	var err error
	if w.ID, err = toUUID(id); err != nil {
		return core.Workspace{}, err
	}
	if w.CreatedByUserID, err = toUUID(creator); err != nil {
		return core.Workspace{}, err
	}
	return w, nil
}

const workspaceColumns = "id, type, name, created_by_user_id, created_at"

func (s queries) GetWorkspace(ctx context.Context, id uuid.UUID) (core.Workspace, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+workspaceColumns+" FROM workspaces WHERE id = ?", id.String())
	w, err := scanWorkspace(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Workspace{}, fmt.Errorf("workspace %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Workspace{}, wrapDBErr(fmt.Errorf("get workspace: %w", err))
	}
	return w, nil
}

func (s queries) CreateWorkspace(ctx context.Context, w core.Workspace) error {
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO workspaces (id, type, name, created_by_user_id, created_at) VALUES (?, ?, ?, ?, ?)",
		w.ID.String(), w.Type, w.Name, w.CreatedByUserID.String(), w.CreatedAt)
	return wrapDBErr(err)
}

func (s queries) AddMember(ctx context.Context, m core.WorkspaceMember) error {
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO workspace_members (workspace_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)",
		m.WorkspaceID.String(), m.UserID.String(), m.Role, m.JoinedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("membership: %w", core.ErrDuplicateName)
	}
	return wrapDBErr(err)
}

func (s queries) GetMember(ctx context.Context, workspaceID, userID uuid.UUID) (core.WorkspaceMember, error) {
	var m core.WorkspaceMember
	var ws, uid string
	err := s.q.QueryRowContext(ctx,
		"SELECT workspace_id, user_id, role, joined_at FROM workspace_members WHERE workspace_id = ? AND user_id = ?",
		workspaceID.String(), userID.String()).Scan(&ws, &uid, &m.Role, &m.JoinedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.WorkspaceMember{}, fmt.Errorf("membership: %w", core.ErrNotFound)
	}
	if err != nil {
		return core.WorkspaceMember{}, wrapDBErr(fmt.Errorf("get member: %w", err))
	}
	if m.WorkspaceID, err = toUUID(ws); err != nil {
		return core.WorkspaceMember{}, err
	}
	if m.UserID, err = toUUID(uid); err != nil {
		return core.WorkspaceMember{}, err
	}
	return m, nil
}

func (s queries) ListWorkspacesForUser(ctx context.Context, userID uuid.UUID) ([]core.Workspace, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT w.id, w.type, w.name, w.created_by_user_id, w.created_at
		FROM workspaces w
		JOIN workspace_members m ON m.workspace_id = w.id
		WHERE m.user_id = ?
		ORDER BY w.created_at`, userID.String())
	if err != nil {
		return nil, wrapDBErr(fmt.Errorf("list workspaces: %w", err))
	}
	defer rows.Close()

	var workspaces []core.Workspace
	for rows.Next() {
		w, err := scanWorkspace(rows)
		if err != nil {
			return nil, fmt.Errorf("scan workspace: %w", err)
		}
		workspaces = append(workspaces, w)
	}
	return workspaces, rows.Err()
}

// CreateUserWithWorkspace bootstraps a first-time Telegram user: the user
// row, their personal workspace, the owner membership, and the active
// workspace binding land in one transaction.
func (r *SQLiteRepository) CreateUserWithWorkspace(ctx context.Context, u core.User, w core.Workspace) error {
	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapDBErr(fmt.Errorf("begin bootstrap: %w", err))
	}
	defer dbtx.Rollback()

	q := queries{q: dbtx}
	if _, err := dbtx.ExecContext(ctx,
		"INSERT INTO users (id, telegram_id, first_name, username, created_at) VALUES (?, ?, ?, ?, ?)",
		u.ID.String(), u.TelegramID, u.FirstName, u.Username, u.CreatedAt); err != nil {
		return wrapDBErr(fmt.Errorf("insert user: %w", err))
	}
	if err := q.CreateWorkspace(ctx, w); err != nil {
		return fmt.Errorf("insert workspace: %w", err)
	}
	if err := q.AddMember(ctx, core.WorkspaceMember{
		WorkspaceID: w.ID,
		UserID:      u.ID,
		Role:        core.RoleOwner,
		JoinedAt:    u.CreatedAt,
	}); err != nil {
		return fmt.Errorf("insert membership: %w", err)
	}
	if err := q.SetActiveWorkspace(ctx, u.ID, w.ID); err != nil {
		return fmt.Errorf("bind active workspace: %w", err)
	}
	return wrapDBErr(dbtx.Commit())
}
