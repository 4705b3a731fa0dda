// Package domain contains the mirrored identity rows owned by Clerk.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// User mirrors an identity-provider account into the application store.
type User struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	ClerkID   string       `gorm:"type:text;not null;uniqueIndex"`
	Email     string       `gorm:"type:text;not null"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, user *User) error
	FindByClerkID(ctx context.Context, db *gorm.DB, clerkID string) (*User, error)
	UpdateEmailByClerkID(ctx context.Context, db *gorm.DB, clerkID, email string) error
	DeleteByClerkID(ctx context.Context, db *gorm.DB, clerkID string) error
}

var (
	ErrNotFound = errors.New("user_not_found")
)
