package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	billingdomain "github.com/postloom/postloom/internal/billing/domain"
	billingrepo "github.com/postloom/postloom/internal/billing/repository"
	"github.com/postloom/postloom/internal/payment/domain"
	"github.com/postloom/postloom/internal/plan"
)

type retrieverStub struct {
	mu    sync.Mutex
	calls int
	sub   *domain.ProviderSubscription
	err   error
}

func (r *retrieverStub) Subscription(ctx context.Context, id string) (*domain.ProviderSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.sub, nil
}

func (r *retrieverStub) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestReconcileCheckoutCompleted(t *testing.T) {
	db := setupDB(t)
	workspaceID := mustNode(t).Generate()
	periodEnd := time.Date(2026, time.September, 29, 0, 0, 0, 0, time.UTC)

	retriever := &retrieverStub{sub: &domain.ProviderSubscription{
		ID:               "sub_1",
		CustomerID:       "cus_1",
		Status:           billingdomain.StatusActive,
		Plan:             plan.PlanPro,
		CurrentPeriodEnd: &periodEnd,
	}}
	svc := newService(t, db, retriever)

	event := makeEvent(t, "checkout.session.completed", map[string]any{
		"customer":     "cus_1",
		"subscription": "sub_1",
		"metadata":     map[string]string{"workspace_id": workspaceID.String()},
	})
	if err := svc.Reconcile(context.Background(), event); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	bc := findCustomer(t, db, workspaceID)
	if bc == nil {
		t.Fatal("expected billing row")
	}
	if bc.StripeCustomerID != "cus_1" || bc.Plan != plan.PlanPro || bc.Status != billingdomain.StatusActive {
		t.Fatalf("unexpected billing row: %+v", bc)
	}
	if bc.CurrentPeriodEnd == nil || !bc.CurrentPeriodEnd.Equal(periodEnd) {
		t.Fatalf("unexpected period end: %v", bc.CurrentPeriodEnd)
	}
}

func TestReconcileCheckoutCompletedIsIdempotent(t *testing.T) {
	db := setupDB(t)
	workspaceID := mustNode(t).Generate()

	retriever := &retrieverStub{sub: &domain.ProviderSubscription{
		ID:         "sub_1",
		CustomerID: "cus_1",
		Status:     billingdomain.StatusActive,
		Plan:       plan.PlanSolo,
	}}
	svc := newService(t, db, retriever)

	event := makeEvent(t, "checkout.session.completed", map[string]any{
		"customer":     "cus_1",
		"subscription": "sub_1",
		"metadata":     map[string]string{"workspace_id": workspaceID.String()},
	})
	for i := 0; i < 2; i++ {
		if err := svc.Reconcile(context.Background(), event); err != nil {
			t.Fatalf("reconcile #%d: %v", i+1, err)
		}
	}

	if got := countCustomers(t, db); got != 1 {
		t.Fatalf("expected redelivery to keep a single row, got %d", got)
	}
}

func TestReconcileCheckoutCompletedDropsWithoutWorkspaceMetadata(t *testing.T) {
	db := setupDB(t)
	retriever := &retrieverStub{}
	svc := newService(t, db, retriever)

	for _, metadata := range []map[string]string{
		nil,
		{},
		{"workspace_id": ""},
		{"workspace_id": "not-a-number"},
	} {
		event := makeEvent(t, "checkout.session.completed", map[string]any{
			"customer":     "cus_1",
			"subscription": "sub_1",
			"metadata":     metadata,
		})
		if err := svc.Reconcile(context.Background(), event); err != nil {
			t.Fatalf("metadata %v: expected drop with nil error, got %v", metadata, err)
		}
	}

	if got := countCustomers(t, db); got != 0 {
		t.Fatalf("expected no rows, got %d", got)
	}
	if retriever.callCount() != 0 {
		t.Fatalf("expected no provider calls, got %d", retriever.callCount())
	}
}

func TestReconcileCheckoutCompletedRetriesOnProviderError(t *testing.T) {
	db := setupDB(t)
	workspaceID := mustNode(t).Generate()
	retriever := &retrieverStub{err: fmt.Errorf("provider down")}
	svc := newService(t, db, retriever)

	event := makeEvent(t, "checkout.session.completed", map[string]any{
		"customer":     "cus_1",
		"subscription": "sub_1",
		"metadata":     map[string]string{"workspace_id": workspaceID.String()},
	})
	if err := svc.Reconcile(context.Background(), event); err == nil {
		t.Fatal("expected error so the provider redelivers")
	}
	if got := countCustomers(t, db); got != 0 {
		t.Fatalf("expected no rows, got %d", got)
	}
}

func TestReconcileSubscriptionUpdated(t *testing.T) {
	db := setupDB(t)
	workspaceID := mustNode(t).Generate()
	seedCustomer(t, db, workspaceID, "cus_1", plan.PlanSolo, billingdomain.StatusActive)

	svc := newService(t, db, &retrieverStub{})

	periodEnd := time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)
	event := makeEvent(t, "customer.subscription.updated", map[string]any{
		"id":       "sub_1",
		"customer": "cus_1",
		"status":   "active",
		"items": map[string]any{
			"data": []map[string]any{{
				"current_period_end": periodEnd.Unix(),
				"price":              map[string]any{"metadata": map[string]string{"plan": "growth"}},
			}},
		},
	})
	if err := svc.Reconcile(context.Background(), event); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	bc := findCustomer(t, db, workspaceID)
	if bc.Plan != plan.PlanGrowth || bc.Status != billingdomain.StatusActive {
		t.Fatalf("unexpected billing row: %+v", bc)
	}
	if bc.CurrentPeriodEnd == nil || !bc.CurrentPeriodEnd.Equal(periodEnd) {
		t.Fatalf("unexpected period end: %v", bc.CurrentPeriodEnd)
	}
}

func TestReconcileSubscriptionUpdatedTopLevelPeriodWins(t *testing.T) {
	db := setupDB(t)
	workspaceID := mustNode(t).Generate()
	seedCustomer(t, db, workspaceID, "cus_1", plan.PlanPro, billingdomain.StatusActive)

	svc := newService(t, db, &retrieverStub{})

	topLevel := time.Date(2026, time.November, 1, 0, 0, 0, 0, time.UTC)
	event := makeEvent(t, "customer.subscription.updated", map[string]any{
		"id":                 "sub_1",
		"customer":           "cus_1",
		"status":             "active",
		"current_period_end": topLevel.Unix(),
		"items": map[string]any{
			"data": []map[string]any{{
				"current_period_end": topLevel.AddDate(0, 1, 0).Unix(),
				"price":              map[string]any{"metadata": map[string]string{"plan": "pro"}},
			}},
		},
	})
	if err := svc.Reconcile(context.Background(), event); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	bc := findCustomer(t, db, workspaceID)
	if bc.CurrentPeriodEnd == nil || !bc.CurrentPeriodEnd.Equal(topLevel) {
		t.Fatalf("expected top-level period end, got %v", bc.CurrentPeriodEnd)
	}
}

func TestReconcileSubscriptionUpdatedUnknownCustomerIsNoop(t *testing.T) {
	db := setupDB(t)
	svc := newService(t, db, &retrieverStub{})

	event := makeEvent(t, "customer.subscription.updated", map[string]any{
		"id":       "sub_1",
		"customer": "cus_missing",
		"status":   "active",
	})
	if err := svc.Reconcile(context.Background(), event); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if got := countCustomers(t, db); got != 0 {
		t.Fatalf("expected no rows, got %d", got)
	}
}

func TestReconcileSubscriptionDeleted(t *testing.T) {
	db := setupDB(t)
	workspaceID := mustNode(t).Generate()
	seedCustomer(t, db, workspaceID, "cus_1", plan.PlanGrowth, billingdomain.StatusActive)
	if err := db.Exec(
		`UPDATE billing_customers SET current_period_end = ? WHERE workspace_id = ?`,
		time.Now().AddDate(0, 1, 0), workspaceID,
	).Error; err != nil {
		t.Fatalf("set period end: %v", err)
	}

	svc := newService(t, db, &retrieverStub{})

	event := makeEvent(t, "customer.subscription.deleted", map[string]any{
		"id":       "sub_1",
		"customer": "cus_1",
		"status":   "canceled",
	})
	if err := svc.Reconcile(context.Background(), event); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	bc := findCustomer(t, db, workspaceID)
	if bc.Plan != plan.PlanFree {
		t.Fatalf("expected free plan after cancellation, got %s", bc.Plan)
	}
	if bc.Status != billingdomain.StatusCanceled {
		t.Fatalf("expected canceled status, got %s", bc.Status)
	}
	if bc.CurrentPeriodEnd != nil {
		t.Fatalf("expected cleared period end, got %v", bc.CurrentPeriodEnd)
	}
}

func TestReconcilePaymentSucceededRefreshesFromProvider(t *testing.T) {
	db := setupDB(t)
	workspaceID := mustNode(t).Generate()
	seedCustomer(t, db, workspaceID, "cus_1", plan.PlanPro, billingdomain.StatusPastDue)

	periodEnd := time.Date(2026, time.September, 29, 0, 0, 0, 0, time.UTC)
	retriever := &retrieverStub{sub: &domain.ProviderSubscription{
		ID:               "sub_1",
		CustomerID:       "cus_1",
		Status:           billingdomain.StatusActive,
		Plan:             plan.PlanPro,
		CurrentPeriodEnd: &periodEnd,
	}}
	svc := newService(t, db, retriever)

	event := makeEvent(t, "invoice.payment_succeeded", map[string]any{
		"customer":     "cus_1",
		"subscription": "sub_1",
	})
	if err := svc.Reconcile(context.Background(), event); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	bc := findCustomer(t, db, workspaceID)
	if bc.Status != billingdomain.StatusActive {
		t.Fatalf("expected active status, got %s", bc.Status)
	}
	if bc.CurrentPeriodEnd == nil || !bc.CurrentPeriodEnd.Equal(periodEnd) {
		t.Fatalf("unexpected period end: %v", bc.CurrentPeriodEnd)
	}
	if retriever.callCount() != 1 {
		t.Fatalf("expected 1 provider call, got %d", retriever.callCount())
	}
}

func TestReconcilePaymentSucceededSubscriptionUnderParent(t *testing.T) {
	db := setupDB(t)
	workspaceID := mustNode(t).Generate()
	seedCustomer(t, db, workspaceID, "cus_1", plan.PlanPro, billingdomain.StatusPastDue)

	retriever := &retrieverStub{sub: &domain.ProviderSubscription{
		ID:         "sub_1",
		CustomerID: "cus_1",
		Status:     billingdomain.StatusActive,
		Plan:       plan.PlanPro,
	}}
	svc := newService(t, db, retriever)

	event := makeEvent(t, "invoice.payment_succeeded", map[string]any{
		"customer": "cus_1",
		"parent": map[string]any{
			"subscription_details": map[string]any{"subscription": "sub_1"},
		},
	})
	if err := svc.Reconcile(context.Background(), event); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	if findCustomer(t, db, workspaceID).Status != billingdomain.StatusActive {
		t.Fatal("expected active status")
	}
	if retriever.callCount() != 1 {
		t.Fatalf("expected 1 provider call, got %d", retriever.callCount())
	}
}

func TestReconcilePaymentSucceededWithoutSubscriptionIsNoop(t *testing.T) {
	db := setupDB(t)
	workspaceID := mustNode(t).Generate()
	seedCustomer(t, db, workspaceID, "cus_1", plan.PlanFree, billingdomain.StatusCanceled)

	retriever := &retrieverStub{}
	svc := newService(t, db, retriever)

	// A one-off invoice carries no subscription reference and must not
	// reactivate a canceled account.
	event := makeEvent(t, "invoice.payment_succeeded", map[string]any{
		"customer": "cus_1",
	})
	if err := svc.Reconcile(context.Background(), event); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	bc := findCustomer(t, db, workspaceID)
	if bc.Status != billingdomain.StatusCanceled {
		t.Fatalf("expected status untouched, got %s", bc.Status)
	}
	if retriever.callCount() != 0 {
		t.Fatalf("expected no provider calls, got %d", retriever.callCount())
	}
}

func TestReconcilePaymentFailedMarksPastDue(t *testing.T) {
	db := setupDB(t)
	workspaceID := mustNode(t).Generate()
	seedCustomer(t, db, workspaceID, "cus_1", plan.PlanPro, billingdomain.StatusActive)

	retriever := &retrieverStub{}
	svc := newService(t, db, retriever)

	event := makeEvent(t, "invoice.payment_failed", map[string]any{
		"customer": "cus_1",
	})
	if err := svc.Reconcile(context.Background(), event); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	bc := findCustomer(t, db, workspaceID)
	if bc.Status != billingdomain.StatusPastDue {
		t.Fatalf("expected past_due status, got %s", bc.Status)
	}
	if bc.Plan != plan.PlanPro {
		t.Fatalf("expected plan untouched, got %s", bc.Plan)
	}
	if retriever.callCount() != 0 {
		t.Fatalf("expected no provider calls, got %d", retriever.callCount())
	}
}

func TestReconcileIgnoresUnknownEventTypes(t *testing.T) {
	db := setupDB(t)
	svc := newService(t, db, &retrieverStub{})

	event := makeEvent(t, "charge.refunded", map[string]any{"customer": "cus_1"})
	if err := svc.Reconcile(context.Background(), event); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if got := countCustomers(t, db); got != 0 {
		t.Fatalf("expected no rows, got %d", got)
	}
}

func makeEvent(t *testing.T, eventType string, object map[string]any) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(object)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return stripe.Event{
		ID:   "evt_test",
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: raw},
	}
}

func newService(t *testing.T, db *gorm.DB, retriever domain.SubscriptionRetriever) domain.Service {
	t.Helper()
	return New(Params{
		DB:          db,
		Log:         zap.NewNop(),
		BillingRepo: billingrepo.Provide(),
		Retriever:   retriever,
	})
}

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&mode=memory"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.Exec(`CREATE TABLE billing_customers (
		workspace_id BIGINT PRIMARY KEY,
		stripe_customer_id TEXT NOT NULL,
		plan TEXT NOT NULL DEFAULT 'free',
		status TEXT NOT NULL DEFAULT 'pending',
		current_period_end DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

func seedCustomer(t *testing.T, db *gorm.DB, workspaceID snowflake.ID, customerID string, p plan.Plan, status string) {
	t.Helper()
	if err := db.Exec(
		`INSERT INTO billing_customers (workspace_id, stripe_customer_id, plan, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		workspaceID, customerID, p, status, time.Now(), time.Now(),
	).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}
}

func findCustomer(t *testing.T, db *gorm.DB, workspaceID snowflake.ID) *billingdomain.BillingCustomer {
	t.Helper()
	bc, err := billingrepo.Provide().FindByWorkspaceID(context.Background(), db, workspaceID)
	if err != nil {
		t.Fatalf("find customer: %v", err)
	}
	return bc
}

func countCustomers(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := db.Raw(`SELECT COUNT(*) FROM billing_customers`).Scan(&n).Error; err != nil {
		t.Fatalf("count customers: %v", err)
	}
	return n
}

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return node
}
