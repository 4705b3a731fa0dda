package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/postloom/postloom/internal/authctx"
	"github.com/postloom/postloom/internal/billing/domain"
	"github.com/postloom/postloom/internal/plan"
	usagedomain "github.com/postloom/postloom/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	reasonNotAuthenticated = "User not authenticated"
	reasonInactive         = "Subscription is not active"
	reasonPlanCheckError   = "Error checking plan"
	reasonUsageCheckError  = "Error checking usage"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Repo    domain.Repository
	Counter usagedomain.Counter
}

type service struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    domain.Repository
	counter usagedomain.Counter
}

func New(p Params) domain.Service {
	return &service{
		db:      p.DB,
		log:     p.Log.Named("billing.entitlement"),
		repo:    p.Repo,
		counter: p.Counter,
	}
}

// effectiveState is the always-defined billing state of a workspace: a
// missing row resolves to the free tier with an inactive subscription.
type effectiveState struct {
	Plan   plan.Plan
	Status string
}

func (s *service) resolveState(ctx context.Context, workspaceID snowflake.ID) (effectiveState, error) {
	bc, err := s.repo.FindByWorkspaceID(ctx, s.db, workspaceID)
	if err != nil {
		return effectiveState{}, err
	}
	if bc == nil {
		return effectiveState{Plan: plan.PlanFree, Status: domain.StatusInactive}, nil
	}
	status := bc.Status
	if status == "" {
		status = domain.StatusInactive
	}
	return effectiveState{Plan: plan.Parse(string(bc.Plan)), Status: status}, nil
}

func (s *service) CheckPlanFeature(ctx context.Context, workspaceID snowflake.ID, feature plan.Feature) domain.CheckResult {
	if authctx.ClerkUserID(ctx) == "" {
		return deny(plan.PlanFree, reasonNotAuthenticated)
	}

	state, err := s.resolveState(ctx, workspaceID)
	if err != nil {
		s.log.Error("plan feature check failed",
			zap.String("workspace_id", workspaceID.String()),
			zap.Error(err),
		)
		return deny(plan.PlanFree, reasonPlanCheckError)
	}

	if state.Status != domain.StatusActive && state.Status != domain.StatusTrialing {
		return deny(state.Plan, reasonInactive)
	}

	limits := plan.LimitsFor(state.Plan)
	enabled, isBool, ceiling := limits.FeatureValue(feature)

	if isBool {
		result := domain.CheckResult{Allowed: enabled, Plan: state.Plan, Limits: limits}
		if !enabled {
			result.Reason = fmt.Sprintf("Feature not available on %s plan", state.Plan)
		}
		return result
	}

	allowed := ceiling == nil || *ceiling > 0
	result := domain.CheckResult{Allowed: allowed, Plan: state.Plan, Limits: limits}
	if !allowed {
		result.Reason = fmt.Sprintf("Limit reached for %s plan", state.Plan)
	}
	return result
}

func (s *service) CheckUsageLimit(ctx context.Context, subjectID snowflake.ID, action usagedomain.Action) domain.UsageResult {
	if authctx.ClerkUserID(ctx) == "" {
		return denyUsage(plan.PlanFree, reasonNotAuthenticated)
	}

	state, err := s.resolveState(ctx, subjectID)
	if err != nil {
		s.log.Error("usage limit check failed",
			zap.String("subject_id", subjectID.String()),
			zap.String("action", string(action)),
			zap.Error(err),
		)
		return denyUsage(plan.PlanFree, reasonUsageCheckError)
	}
	limits := plan.LimitsFor(state.Plan)

	limit := limitFor(limits, action)

	current, err := s.counter.Count(ctx, action, subjectID)
	if err != nil {
		s.log.Error("usage count failed",
			zap.String("subject_id", subjectID.String()),
			zap.String("action", string(action)),
			zap.Error(err),
		)
		return denyUsage(plan.PlanFree, reasonUsageCheckError)
	}

	allowed := limit == nil || current < *limit
	result := domain.UsageResult{
		CheckResult:  domain.CheckResult{Allowed: allowed, Plan: state.Plan, Limits: limits},
		CurrentUsage: current,
		Limit:        limit,
	}
	if !allowed {
		result.Reason = fmt.Sprintf("%s limit reached (%d/%d)", action, current, *limit)
	}
	return result
}

func limitFor(limits plan.Limits, action usagedomain.Action) *int64 {
	switch action {
	case usagedomain.ActionGeneration:
		if limits.GenerationsPerMonth == nil {
			return nil
		}
		return int64Ptr(int64(*limits.GenerationsPerMonth))
	case usagedomain.ActionProfile:
		return int64Ptr(int64(limits.Profiles))
	case usagedomain.ActionWorkspace:
		return int64Ptr(int64(limits.Workspaces))
	}
	return int64Ptr(0)
}

func deny(p plan.Plan, reason string) domain.CheckResult {
	return domain.CheckResult{
		Allowed: false,
		Plan:    p,
		Limits:  plan.LimitsFor(p),
		Reason:  reason,
	}
}

func denyUsage(p plan.Plan, reason string) domain.UsageResult {
	return domain.UsageResult{
		CheckResult:  deny(p, reason),
		CurrentUsage: 0,
		Limit:        int64Ptr(0),
	}
}

func int64Ptr(v int64) *int64 { return &v }
