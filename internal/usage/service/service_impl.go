package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/postloom/postloom/internal/clock"
	contentdomain "github.com/postloom/postloom/internal/content/domain"
	"github.com/postloom/postloom/internal/usage/domain"
	workspacedomain "github.com/postloom/postloom/internal/workspace/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Clock         clock.Clock
	ContentRepo   contentdomain.Repository
	WorkspaceRepo workspacedomain.Repository
}

type counter struct {
	db            *gorm.DB
	clock         clock.Clock
	contentRepo   contentdomain.Repository
	workspaceRepo workspacedomain.Repository
}

func New(p Params) domain.Counter {
	return &counter{
		db:            p.DB,
		clock:         p.Clock,
		contentRepo:   p.ContentRepo,
		workspaceRepo: p.WorkspaceRepo,
	}
}

func (c *counter) Count(ctx context.Context, action domain.Action, subjectID snowflake.ID) (int64, error) {
	switch action {
	case domain.ActionGeneration:
		return c.contentRepo.CountPostsSince(ctx, c.db, subjectID, StartOfMonth(c.clock.Now()))
	case domain.ActionProfile:
		return c.contentRepo.CountProfiles(ctx, c.db, subjectID)
	case domain.ActionWorkspace:
		// subjectID is a user ID here, counting workspaces the user owns.
		return c.workspaceRepo.CountByOwner(ctx, c.db, subjectID)
	}
	return 0, domain.ErrUnknownAction
}

// StartOfMonth returns the first instant of t's calendar month in t's location.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
