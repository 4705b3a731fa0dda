// Package checkout opens hosted checkout and billing portal sessions.
package checkout

import (
	"context"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/postloom/postloom/internal/authctx"
	billingdomain "github.com/postloom/postloom/internal/billing/domain"
	"github.com/postloom/postloom/internal/config"
	"github.com/postloom/postloom/internal/payment/domain"
	"github.com/postloom/postloom/internal/plan"
	userdomain "github.com/postloom/postloom/internal/user/domain"
	workspacedomain "github.com/postloom/postloom/internal/workspace/domain"
	"github.com/postloom/postloom/pkg/log/ctxlogger"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	Cfg           config.Config
	Prices        *config.PriceConfigHolder
	UserRepo      userdomain.Repository
	WorkspaceRepo workspacedomain.Repository
	BillingRepo   billingdomain.Repository
	Client        domain.Client
}

type service struct {
	db            *gorm.DB
	log           *zap.Logger
	cfg           config.Config
	prices        *config.PriceConfigHolder
	userRepo      userdomain.Repository
	workspaceRepo workspacedomain.Repository
	billingRepo   billingdomain.Repository
	client        domain.Client
}

func New(p Params) domain.CheckoutService {
	return &service{
		db:            p.DB,
		log:           p.Log.Named("payment.checkout"),
		cfg:           p.Cfg,
		prices:        p.Prices,
		userRepo:      p.UserRepo,
		workspaceRepo: p.WorkspaceRepo,
		billingRepo:   p.BillingRepo,
		client:        p.Client,
	}
}

func (s *service) CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (*domain.SessionResponse, error) {
	log := ctxlogger.WithContext(ctx, s.log)

	target, err := purchasablePlan(req.Plan)
	if err != nil {
		return nil, err
	}
	interval, ok := config.ParseInterval(req.Interval)
	if !ok {
		return nil, domain.ErrInvalidInterval
	}

	owner, ws, err := s.callerWorkspace(ctx)
	if err != nil {
		return nil, err
	}

	customerID, err := s.ensureCustomer(ctx, owner, ws)
	if err != nil {
		return nil, err
	}

	priceID, err := s.prices.Resolve(string(target), interval)
	if err != nil {
		return nil, err
	}

	url, err := s.client.CreateCheckoutSession(ctx, domain.CheckoutParams{
		CustomerID:  customerID,
		PriceID:     priceID,
		WorkspaceID: ws.ID,
		SuccessURL:  s.cfg.AppURL + "/billing/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:   s.cfg.AppURL + "/billing",
	})
	if err != nil {
		return nil, err
	}

	log.Info("checkout session created",
		zap.String("workspace_id", ws.ID.String()),
		zap.String("plan", string(target)),
		zap.String("interval", string(interval)),
	)
	return &domain.SessionResponse{URL: url}, nil
}

func (s *service) CreatePortalSession(ctx context.Context) (*domain.SessionResponse, error) {
	log := ctxlogger.WithContext(ctx, s.log)

	_, ws, err := s.callerWorkspace(ctx)
	if err != nil {
		return nil, err
	}

	bc, err := s.billingRepo.FindByWorkspaceID(ctx, s.db, ws.ID)
	if err != nil {
		return nil, err
	}
	if bc == nil || bc.StripeCustomerID == "" {
		return nil, domain.ErrNoBillingAccount
	}

	url, err := s.client.CreatePortalSession(ctx, bc.StripeCustomerID, s.cfg.AppURL+"/billing")
	if err != nil {
		return nil, err
	}

	log.Info("portal session created", zap.String("workspace_id", ws.ID.String()))
	return &domain.SessionResponse{URL: url}, nil
}

// callerWorkspace resolves the authenticated caller and the workspace they
// own. Billing is owner-scoped; members manage their own workspaces.
func (s *service) callerWorkspace(ctx context.Context) (*userdomain.User, *workspacedomain.Workspace, error) {
	clerkUserID := authctx.ClerkUserID(ctx)
	if clerkUserID == "" {
		return nil, nil, domain.ErrNotAuthenticated
	}

	owner, err := s.userRepo.FindByClerkID(ctx, s.db, clerkUserID)
	if err != nil {
		return nil, nil, err
	}
	if owner == nil {
		return nil, nil, domain.ErrUserNotFound
	}

	ws, err := s.workspaceRepo.FindByOwner(ctx, s.db, owner.ID)
	if err != nil {
		return nil, nil, err
	}
	if ws == nil {
		return nil, nil, domain.ErrNoWorkspace
	}
	return owner, ws, nil
}

// ensureCustomer returns the provider customer for the workspace, creating
// it and a pending billing row on first checkout.
func (s *service) ensureCustomer(ctx context.Context, owner *userdomain.User, ws *workspacedomain.Workspace) (string, error) {
	bc, err := s.billingRepo.FindByWorkspaceID(ctx, s.db, ws.ID)
	if err != nil {
		return "", err
	}
	if bc != nil && bc.StripeCustomerID != "" {
		return bc.StripeCustomerID, nil
	}

	customerID, err := s.client.CreateCustomer(ctx, owner.Email, ws.ID)
	if err != nil {
		return "", err
	}

	now := s.db.NowFunc()
	err = s.billingRepo.Upsert(ctx, s.db, &billingdomain.BillingCustomer{
		WorkspaceID:      ws.ID,
		StripeCustomerID: customerID,
		Plan:             plan.PlanFree,
		Status:           billingdomain.StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	if err != nil {
		return "", err
	}
	return customerID, nil
}

// purchasablePlan accepts the paid tiers only. The free tier is the default
// state and never goes through checkout.
func purchasablePlan(raw string) (plan.Plan, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	switch plan.Plan(name) {
	case plan.PlanSolo, plan.PlanPro, plan.PlanGrowth:
		return plan.Plan(name), nil
	default:
		return "", domain.ErrInvalidPlan
	}
}
