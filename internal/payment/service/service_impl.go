package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stripe/stripe-go/v82"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	billingdomain "github.com/postloom/postloom/internal/billing/domain"
	"github.com/postloom/postloom/internal/payment/domain"
	"github.com/postloom/postloom/internal/plan"
	"github.com/postloom/postloom/pkg/log/ctxlogger"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	BillingRepo billingdomain.Repository
	Retriever   domain.SubscriptionRetriever
}

type service struct {
	db          *gorm.DB
	log         *zap.Logger
	billingRepo billingdomain.Repository
	retriever   domain.SubscriptionRetriever
}

func New(p Params) domain.Service {
	return &service{
		db:          p.DB,
		log:         p.Log.Named("payment"),
		billingRepo: p.BillingRepo,
		retriever:   p.Retriever,
	}
}

// Local views of the provider payloads. Only the fields the reconciler
// branches on are decoded; everything else in the raw event is ignored.
type checkoutSessionPayload struct {
	Customer     string            `json:"customer"`
	Subscription string            `json:"subscription"`
	Metadata     map[string]string `json:"metadata"`
}

type subscriptionPayload struct {
	ID               string `json:"id"`
	Customer         string `json:"customer"`
	Status           string `json:"status"`
	CurrentPeriodEnd int64  `json:"current_period_end"`
	Items            struct {
		Data []struct {
			CurrentPeriodEnd int64 `json:"current_period_end"`
			Price            struct {
				Metadata map[string]string `json:"metadata"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

type invoicePayload struct {
	Customer     string `json:"customer"`
	Subscription string `json:"subscription"`
	Parent       struct {
		SubscriptionDetails struct {
			Subscription string `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
}

func (p subscriptionPayload) plan() plan.Plan {
	if len(p.Items.Data) == 0 {
		return plan.PlanFree
	}
	return plan.Parse(p.Items.Data[0].Price.Metadata["plan"])
}

// periodEnd prefers the top-level timestamp and falls back to the first
// subscription item, which is where newer provider API versions moved it.
func (p subscriptionPayload) periodEnd() *time.Time {
	ts := p.CurrentPeriodEnd
	if ts == 0 && len(p.Items.Data) > 0 {
		ts = p.Items.Data[0].CurrentPeriodEnd
	}
	return unixOrNil(ts)
}

func unixOrNil(ts int64) *time.Time {
	if ts == 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}

// Reconcile applies one verified provider event to the billing store. A nil
// return acknowledges the delivery; an error asks the provider to retry.
func (s *service) Reconcile(ctx context.Context, event stripe.Event) error {
	log := ctxlogger.WithContext(ctx, s.log).With(
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
	)

	switch event.Type {
	case "checkout.session.completed":
		return s.applyCheckoutCompleted(ctx, log, event)
	case "customer.subscription.updated":
		return s.applySubscriptionUpdated(ctx, log, event)
	case "customer.subscription.deleted":
		return s.applySubscriptionDeleted(ctx, log, event)
	case "invoice.payment_succeeded":
		return s.applyPaymentSucceeded(ctx, log, event)
	case "invoice.payment_failed":
		return s.applyPaymentFailed(ctx, log, event)
	default:
		log.Debug("ignoring provider event")
		return nil
	}
}

func (s *service) applyCheckoutCompleted(ctx context.Context, log *zap.Logger, event stripe.Event) error {
	var session checkoutSessionPayload
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return err
	}

	// A session without the workspace reference cannot be attributed.
	// Retrying will not fix it, so acknowledge and drop.
	raw, ok := session.Metadata["workspace_id"]
	if !ok || raw == "" {
		log.Error("checkout session has no workspace_id metadata")
		return nil
	}
	workspaceID, err := snowflake.ParseString(raw)
	if err != nil {
		log.Error("checkout session workspace_id is malformed", zap.String("workspace_id", raw))
		return nil
	}
	if session.Subscription == "" {
		log.Error("checkout session has no subscription reference")
		return nil
	}

	sub, err := s.retriever.Subscription(ctx, session.Subscription)
	if err != nil {
		return err
	}

	bc := &billingdomain.BillingCustomer{
		WorkspaceID:      workspaceID,
		StripeCustomerID: session.Customer,
		Plan:             sub.Plan,
		Status:           sub.Status,
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
	}
	if err := s.billingRepo.Upsert(ctx, s.db, bc); err != nil {
		return err
	}

	log.Info("checkout completed",
		zap.String("workspace_id", workspaceID.String()),
		zap.String("plan", string(sub.Plan)),
		zap.String("status", sub.Status),
	)
	return nil
}

func (s *service) applySubscriptionUpdated(ctx context.Context, log *zap.Logger, event stripe.Event) error {
	var payload subscriptionPayload
	if err := json.Unmarshal(event.Data.Raw, &payload); err != nil {
		return err
	}

	bc, err := s.billingRepo.FindByStripeCustomerID(ctx, s.db, payload.Customer)
	if err != nil {
		return err
	}
	if bc == nil {
		log.Warn("subscription update for unknown customer", zap.String("customer_id", payload.Customer))
		return nil
	}

	sub := billingdomain.Subscription{
		Plan:             payload.plan(),
		Status:           payload.Status,
		CurrentPeriodEnd: payload.periodEnd(),
	}
	if err := s.billingRepo.UpdateSubscriptionByWorkspaceID(ctx, s.db, bc.WorkspaceID, sub); err != nil {
		return err
	}

	log.Info("subscription updated",
		zap.String("workspace_id", bc.WorkspaceID.String()),
		zap.String("plan", string(sub.Plan)),
		zap.String("status", sub.Status),
	)
	return nil
}

func (s *service) applySubscriptionDeleted(ctx context.Context, log *zap.Logger, event stripe.Event) error {
	var payload subscriptionPayload
	if err := json.Unmarshal(event.Data.Raw, &payload); err != nil {
		return err
	}

	bc, err := s.billingRepo.FindByStripeCustomerID(ctx, s.db, payload.Customer)
	if err != nil {
		return err
	}
	if bc == nil {
		log.Warn("subscription deletion for unknown customer", zap.String("customer_id", payload.Customer))
		return nil
	}

	// Cancellation always lands the workspace back on the free tier.
	sub := billingdomain.Subscription{
		Plan:             plan.PlanFree,
		Status:           billingdomain.StatusCanceled,
		CurrentPeriodEnd: nil,
	}
	if err := s.billingRepo.UpdateSubscriptionByWorkspaceID(ctx, s.db, bc.WorkspaceID, sub); err != nil {
		return err
	}

	log.Info("subscription canceled", zap.String("workspace_id", bc.WorkspaceID.String()))
	return nil
}

func (s *service) applyPaymentSucceeded(ctx context.Context, log *zap.Logger, event stripe.Event) error {
	var payload invoicePayload
	if err := json.Unmarshal(event.Data.Raw, &payload); err != nil {
		return err
	}
	if payload.Customer == "" {
		log.Warn("invoice has no customer reference")
		return nil
	}

	subID := payload.Subscription
	if subID == "" {
		subID = payload.Parent.SubscriptionDetails.Subscription
	}
	if subID == "" {
		// One-off invoice with no subscription attached. It says nothing
		// about the subscription state, so leave the account alone.
		log.Debug("invoice has no subscription reference", zap.String("customer_id", payload.Customer))
		return nil
	}

	sub, err := s.retriever.Subscription(ctx, subID)
	if err != nil {
		return err
	}
	if err := s.billingRepo.UpdateStatusPeriodByCustomerID(ctx, s.db, payload.Customer, sub.Status, sub.CurrentPeriodEnd); err != nil {
		return err
	}

	log.Info("payment succeeded",
		zap.String("customer_id", payload.Customer),
		zap.String("status", sub.Status),
	)
	return nil
}

func (s *service) applyPaymentFailed(ctx context.Context, log *zap.Logger, event stripe.Event) error {
	var payload invoicePayload
	if err := json.Unmarshal(event.Data.Raw, &payload); err != nil {
		return err
	}
	if payload.Customer == "" {
		log.Warn("invoice has no customer reference")
		return nil
	}

	if err := s.billingRepo.UpdateStatusByCustomerID(ctx, s.db, payload.Customer, billingdomain.StatusPastDue); err != nil {
		return err
	}

	log.Warn("payment failed, account marked past due", zap.String("customer_id", payload.Customer))
	return nil
}
