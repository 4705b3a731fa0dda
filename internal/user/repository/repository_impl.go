package repository

import (
	"context"

	"github.com/postloom/postloom/internal/user/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO users (id, clerk_id, email, created_at) VALUES (?, ?, ?, ?)`,
		user.ID,
		user.ClerkID,
		user.Email,
		user.CreatedAt,
	).Error
}

func (r *repo) FindByClerkID(ctx context.Context, db *gorm.DB, clerkID string) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).Raw(
		`SELECT id, clerk_id, email, created_at FROM users WHERE clerk_id = ?`,
		clerkID,
	).Scan(&u).Error
	if err != nil {
		return nil, err
	}
	if u.ID == 0 {
		return nil, nil
	}
	return &u, nil
}

func (r *repo) UpdateEmailByClerkID(ctx context.Context, db *gorm.DB, clerkID, email string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE users SET email = ? WHERE clerk_id = ?`,
		email,
		clerkID,
	).Error
}

func (r *repo) DeleteByClerkID(ctx context.Context, db *gorm.DB, clerkID string) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM users WHERE clerk_id = ?`,
		clerkID,
	).Error
}
