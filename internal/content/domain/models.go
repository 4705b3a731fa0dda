// Package domain contains generated-content models. Rows are written by the
// generation pipeline; this service only reads them for usage metering.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PostPlatform is the destination network of a generated post.
type PostPlatform string

const (
	PlatformX          PostPlatform = "x"
	PlatformLinkedIn   PostPlatform = "linkedin"
	PlatformInstagram  PostPlatform = "instagram"
	PlatformThreads    PostPlatform = "threads"
	PlatformBluesky    PostPlatform = "bluesky"
	PlatformTikTok     PostPlatform = "tiktok"
	PlatformNewsletter PostPlatform = "newsletter"
)

// PostStatus is the lifecycle state of a generated post.
type PostStatus string

const (
	StatusDraft     PostStatus = "draft"
	StatusScheduled PostStatus = "scheduled"
	StatusPosted    PostStatus = "posted"
	StatusFailed    PostStatus = "failed"
)

// GeneratedPost is one unit of generated content, counted against the
// monthly generation ceiling.
type GeneratedPost struct {
	ID          snowflake.ID      `gorm:"primaryKey"`
	WorkspaceID snowflake.ID      `gorm:"not null;index"`
	Platform    PostPlatform      `gorm:"type:text;not null"`
	Content     datatypes.JSONMap `gorm:"type:jsonb"`
	Status      PostStatus        `gorm:"type:text;not null;default:draft"`
	ScheduledAt *time.Time        `gorm:""`
	PostedAt    *time.Time        `gorm:""`
	Meta        datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (GeneratedPost) TableName() string { return "generated_posts" }

// VoiceProfile is a trained writing-style profile, counted against the
// profile ceiling.
type VoiceProfile struct {
	ID          snowflake.ID      `gorm:"primaryKey"`
	WorkspaceID snowflake.ID      `gorm:"not null;index"`
	Notes       datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (VoiceProfile) TableName() string { return "voice_profiles" }

type Repository interface {
	CountPostsSince(ctx context.Context, db *gorm.DB, workspaceID snowflake.ID, since time.Time) (int64, error)
	CountProfiles(ctx context.Context, db *gorm.DB, workspaceID snowflake.ID) (int64, error)
}
