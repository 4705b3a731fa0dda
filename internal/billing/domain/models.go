// Package domain contains billing state mirrored from the payment provider
// and the entitlement evaluation contract.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/postloom/postloom/internal/plan"
	"gorm.io/gorm"
)

// Subscription status values mirrored from the payment provider. Status is
// free text on the wire; these are the values this service branches on.
const (
	StatusActive   = "active"
	StatusTrialing = "trialing"
	StatusPastDue  = "past_due"
	StatusCanceled = "canceled"
	StatusPending  = "pending"
	StatusInactive = "inactive"
)

// BillingCustomer holds the billing state of a workspace. At most one row
// per workspace; absence means the workspace is on the free tier.
type BillingCustomer struct {
	WorkspaceID      snowflake.ID `gorm:"primaryKey"`
	StripeCustomerID string       `gorm:"type:text;not null;index"`
	Plan             plan.Plan    `gorm:"type:text;not null;default:free"`
	Status           string       `gorm:"type:text;not null;default:pending"`
	CurrentPeriodEnd *time.Time   `gorm:""`
	CreatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (BillingCustomer) TableName() string { return "billing_customers" }

// Subscription is the provider-derived state the reconciler writes.
type Subscription struct {
	Plan             plan.Plan
	Status           string
	CurrentPeriodEnd *time.Time
}

type Repository interface {
	FindByWorkspaceID(ctx context.Context, db *gorm.DB, workspaceID snowflake.ID) (*BillingCustomer, error)
	FindByStripeCustomerID(ctx context.Context, db *gorm.DB, customerID string) (*BillingCustomer, error)
	Insert(ctx context.Context, db *gorm.DB, bc *BillingCustomer) error
	Upsert(ctx context.Context, db *gorm.DB, bc *BillingCustomer) error
	UpdateSubscriptionByWorkspaceID(ctx context.Context, db *gorm.DB, workspaceID snowflake.ID, sub Subscription) error
	UpdateStatusPeriodByCustomerID(ctx context.Context, db *gorm.DB, customerID, status string, periodEnd *time.Time) error
	UpdateStatusByCustomerID(ctx context.Context, db *gorm.DB, customerID, status string) error
}
