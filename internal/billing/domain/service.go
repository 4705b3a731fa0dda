package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/postloom/postloom/internal/plan"
	usagedomain "github.com/postloom/postloom/internal/usage/domain"
)

// CheckResult is an entitlement decision. Evaluation is fail-closed: the
// methods never return an error, any internal fault becomes a deny.
type CheckResult struct {
	Allowed bool        `json:"allowed"`
	Plan    plan.Plan   `json:"plan"`
	Limits  plan.Limits `json:"limits"`
	Reason  string      `json:"reason,omitempty"`
}

// UsageResult extends CheckResult with the numbers behind a metered decision.
// A nil Limit means unlimited.
type UsageResult struct {
	CheckResult
	CurrentUsage int64  `json:"current_usage"`
	Limit        *int64 `json:"limit"`
}

// Service evaluates plan entitlements for the authenticated caller. The
// caller identity comes from the context; an unauthenticated context denies
// before any store access.
type Service interface {
	// CheckPlanFeature decides whether the workspace's plan grants a feature.
	CheckPlanFeature(ctx context.Context, workspaceID snowflake.ID, feature plan.Feature) CheckResult

	// CheckUsageLimit decides whether a metered action is still within the
	// plan ceiling. The subject is a workspace ID for generation/profile and
	// a user ID for the workspace action.
	CheckUsageLimit(ctx context.Context, subjectID snowflake.ID, action usagedomain.Action) UsageResult
}
