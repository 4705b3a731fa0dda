package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/postloom/postloom/internal/authctx"
	billingdomain "github.com/postloom/postloom/internal/billing/domain"
	userdomain "github.com/postloom/postloom/internal/user/domain"
	usagedomain "github.com/postloom/postloom/internal/usage/domain"
	"github.com/postloom/postloom/internal/workspace/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	UserRepo   userdomain.Repository
	BillingSvc billingdomain.Service
}

type service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	userRepo   userdomain.Repository
	billingSvc billingdomain.Service
}

func New(p Params) domain.Service {
	return &service{
		db:         p.DB,
		log:        p.Log.Named("workspace"),
		genID:      p.GenID,
		repo:       p.Repo,
		userRepo:   p.UserRepo,
		billingSvc: p.BillingSvc,
	}
}

func (s *service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	clerkUserID := authctx.ClerkUserID(ctx)
	if clerkUserID == "" {
		return nil, domain.ErrNotAuthenticated
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	owner, err := s.userRepo.FindByClerkID(ctx, s.db, clerkUserID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, domain.ErrUserNotFound
	}

	check := s.billingSvc.CheckUsageLimit(ctx, owner.ID, usagedomain.ActionWorkspace)
	if !check.Allowed {
		s.log.Info("workspace creation denied",
			zap.String("user_id", owner.ID.String()),
			zap.String("reason", check.Reason),
		)
		return nil, domain.ErrLimitReached
	}

	ws := &domain.Workspace{
		ID:    s.genID.Generate(),
		Owner: owner.ID,
		Name:  name,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if ws.CreatedAt.IsZero() {
			ws.CreatedAt = tx.NowFunc()
		}
		if err := s.repo.Insert(ctx, tx, ws); err != nil {
			return err
		}
		return s.repo.InsertMember(ctx, tx, &domain.Member{
			WorkspaceID: ws.ID,
			UserID:      owner.ID,
			Role:        domain.RoleOwner,
		})
	})
	if err != nil {
		return nil, err
	}

	return &domain.Response{
		ID:        ws.ID.String(),
		Owner:     ws.Owner.String(),
		Name:      ws.Name,
		CreatedAt: ws.CreatedAt,
	}, nil
}
