package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/postloom/postloom/internal/identity/domain"
	userdomain "github.com/postloom/postloom/internal/user/domain"
	"github.com/postloom/postloom/pkg/db"
	"github.com/postloom/postloom/pkg/log/ctxlogger"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	UserRepo userdomain.Repository
}

type service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	userRepo userdomain.Repository
}

func New(p Params) domain.Service {
	return &service{
		db:       p.DB,
		log:      p.Log.Named("identity"),
		genID:    p.GenID,
		userRepo: p.UserRepo,
	}
}

// Reconcile applies one verified identity event to the user table. Every
// branch requires the subject id before touching the store, and replayed
// deliveries leave the table unchanged.
func (s *service) Reconcile(ctx context.Context, event domain.Event) error {
	log := ctxlogger.WithContext(ctx, s.log)

	switch event.Type {
	case domain.EventUserCreated:
		if event.Data.ID == "" {
			return domain.ErrMissingUserID
		}
		return s.applyCreated(ctx, log, event)
	case domain.EventUserUpdated:
		if event.Data.ID == "" {
			return domain.ErrMissingUserID
		}
		err := s.userRepo.UpdateEmailByClerkID(ctx, s.db, event.Data.ID, event.PrimaryEmail())
		if err != nil {
			return err
		}
		log.Info("user updated", zap.String("clerk_id", event.Data.ID))
		return nil
	case domain.EventUserDeleted:
		if event.Data.ID == "" {
			return domain.ErrMissingUserID
		}
		if err := s.userRepo.DeleteByClerkID(ctx, s.db, event.Data.ID); err != nil {
			return err
		}
		log.Info("user removed", zap.String("clerk_id", event.Data.ID))
		return nil
	default:
		log.Debug("ignoring identity event", zap.String("type", event.Type))
		return nil
	}
}

func (s *service) applyCreated(ctx context.Context, log *zap.Logger, event domain.Event) error {
	user := &userdomain.User{
		ID:        s.genID.Generate(),
		ClerkID:   event.Data.ID,
		Email:     event.PrimaryEmail(),
		CreatedAt: s.db.NowFunc(),
	}
	if err := s.userRepo.Insert(ctx, s.db, user); err != nil {
		if db.IsDuplicateKeyErr(err) {
			log.Info("user already provisioned", zap.String("clerk_id", event.Data.ID))
			return nil
		}
		return err
	}

	log.Info("user provisioned",
		zap.String("clerk_id", event.Data.ID),
		zap.String("user_id", user.ID.String()),
	)
	return nil
}
