package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/postloom/postloom/internal/content/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) CountPostsSince(ctx context.Context, db *gorm.DB, workspaceID snowflake.ID, since time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM generated_posts WHERE workspace_id = ? AND created_at >= ?`,
		workspaceID,
		since,
	).Scan(&count).Error
	return count, err
}

func (r *repo) CountProfiles(ctx context.Context, db *gorm.DB, workspaceID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM voice_profiles WHERE workspace_id = ?`,
		workspaceID,
	).Scan(&count).Error
	return count, err
}
