package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/postloom/postloom/internal/billing/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByWorkspaceID(ctx context.Context, db *gorm.DB, workspaceID snowflake.ID) (*domain.BillingCustomer, error) {
	var bc domain.BillingCustomer
	err := db.WithContext(ctx).Raw(
		`SELECT workspace_id, stripe_customer_id, plan, status, current_period_end, created_at, updated_at
		 FROM billing_customers WHERE workspace_id = ?`,
		workspaceID,
	).Scan(&bc).Error
	if err != nil {
		return nil, err
	}
	if bc.WorkspaceID == 0 {
		return nil, nil
	}
	return &bc, nil
}

func (r *repo) FindByStripeCustomerID(ctx context.Context, db *gorm.DB, customerID string) (*domain.BillingCustomer, error) {
	var bc domain.BillingCustomer
	err := db.WithContext(ctx).Raw(
		`SELECT workspace_id, stripe_customer_id, plan, status, current_period_end, created_at, updated_at
		 FROM billing_customers WHERE stripe_customer_id = ?`,
		customerID,
	).Scan(&bc).Error
	if err != nil {
		return nil, err
	}
	if bc.WorkspaceID == 0 {
		return nil, nil
	}
	return &bc, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, bc *domain.BillingCustomer) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO billing_customers (workspace_id, stripe_customer_id, plan, status, current_period_end, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		bc.WorkspaceID,
		bc.StripeCustomerID,
		bc.Plan,
		bc.Status,
		bc.CurrentPeriodEnd,
		bc.CreatedAt,
		bc.UpdatedAt,
	).Error
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, bc *domain.BillingCustomer) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO billing_customers (workspace_id, stripe_customer_id, plan, status, current_period_end, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (workspace_id) DO UPDATE SET
		   stripe_customer_id = excluded.stripe_customer_id,
		   plan = excluded.plan,
		   status = excluded.status,
		   current_period_end = excluded.current_period_end,
		   updated_at = excluded.updated_at`,
		bc.WorkspaceID,
		bc.StripeCustomerID,
		bc.Plan,
		bc.Status,
		bc.CurrentPeriodEnd,
		bc.CreatedAt,
		bc.UpdatedAt,
	).Error
}

func (r *repo) UpdateSubscriptionByWorkspaceID(ctx context.Context, db *gorm.DB, workspaceID snowflake.ID, sub domain.Subscription) error {
	return db.WithContext(ctx).Exec(
		`UPDATE billing_customers
		 SET plan = ?, status = ?, current_period_end = ?, updated_at = ?
		 WHERE workspace_id = ?`,
		sub.Plan,
		sub.Status,
		sub.CurrentPeriodEnd,
		db.NowFunc(),
		workspaceID,
	).Error
}

func (r *repo) UpdateStatusPeriodByCustomerID(ctx context.Context, db *gorm.DB, customerID, status string, periodEnd *time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE billing_customers
		 SET status = ?, current_period_end = ?, updated_at = ?
		 WHERE stripe_customer_id = ?`,
		status,
		periodEnd,
		db.NowFunc(),
		customerID,
	).Error
}

func (r *repo) UpdateStatusByCustomerID(ctx context.Context, db *gorm.DB, customerID, status string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE billing_customers SET status = ?, updated_at = ? WHERE stripe_customer_id = ?`,
		status,
		db.NowFunc(),
		customerID,
	).Error
}
