// Package domain contains tenancy models: workspaces and their members.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// MemberRole is the access level of a workspace member.
type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleAdmin  MemberRole = "admin"
	RoleMember MemberRole = "member"
)

// Workspace is the tenant unit owning billing state, members and content.
type Workspace struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	Owner     snowflake.ID `gorm:"not null;index"`
	Name      string       `gorm:"type:text;not null"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Workspace) TableName() string { return "workspaces" }

// Member associates users to workspaces. The owner always has a member row
// with RoleOwner alongside Workspace.Owner.
type Member struct {
	WorkspaceID snowflake.ID `gorm:"primaryKey"`
	UserID      snowflake.ID `gorm:"primaryKey"`
	Role        MemberRole   `gorm:"type:text;not null"`
}

// TableName sets the database table name.
func (Member) TableName() string { return "workspace_members" }

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, ws *Workspace) error
	InsertMember(ctx context.Context, db *gorm.DB, m *Member) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Workspace, error)
	FindByOwner(ctx context.Context, db *gorm.DB, owner snowflake.ID) (*Workspace, error)
	CountByOwner(ctx context.Context, db *gorm.DB, owner snowflake.ID) (int64, error)
	HasAccess(ctx context.Context, db *gorm.DB, id, userID snowflake.ID) (bool, error)
}

type CreateRequest struct {
	Name string `json:"name"`
}

type Response struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
}

var (
	ErrInvalidName       = errors.New("invalid_name")
	ErrNotFound          = errors.New("workspace_not_found")
	ErrLimitReached      = errors.New("workspace_limit_reached")
	ErrUserNotFound      = errors.New("user_not_found")
	ErrNotAuthenticated  = errors.New("not_authenticated")
)
