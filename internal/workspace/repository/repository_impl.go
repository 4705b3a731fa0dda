package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/postloom/postloom/internal/workspace/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, ws *domain.Workspace) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO workspaces (id, owner, name, created_at) VALUES (?, ?, ?, ?)`,
		ws.ID,
		ws.Owner,
		ws.Name,
		ws.CreatedAt,
	).Error
}

func (r *repo) InsertMember(ctx context.Context, db *gorm.DB, m *domain.Member) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO workspace_members (workspace_id, user_id, role) VALUES (?, ?, ?)`,
		m.WorkspaceID,
		m.UserID,
		m.Role,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Workspace, error) {
	var ws domain.Workspace
	err := db.WithContext(ctx).Raw(
		`SELECT id, owner, name, created_at FROM workspaces WHERE id = ?`,
		id,
	).Scan(&ws).Error
	if err != nil {
		return nil, err
	}
	if ws.ID == 0 {
		return nil, nil
	}
	return &ws, nil
}

func (r *repo) FindByOwner(ctx context.Context, db *gorm.DB, owner snowflake.ID) (*domain.Workspace, error) {
	var ws domain.Workspace
	err := db.WithContext(ctx).Raw(
		`SELECT id, owner, name, created_at FROM workspaces WHERE owner = ? ORDER BY created_at ASC LIMIT 1`,
		owner,
	).Scan(&ws).Error
	if err != nil {
		return nil, err
	}
	if ws.ID == 0 {
		return nil, nil
	}
	return &ws, nil
}

func (r *repo) CountByOwner(ctx context.Context, db *gorm.DB, owner snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM workspaces WHERE owner = ?`,
		owner,
	).Scan(&count).Error
	return count, err
}

func (r *repo) HasAccess(ctx context.Context, db *gorm.DB, id, userID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM workspaces w
		 LEFT JOIN workspace_members m ON m.workspace_id = w.id AND m.user_id = ?
		 WHERE w.id = ? AND (w.owner = ? OR m.user_id IS NOT NULL)`,
		userID,
		id,
		userID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
