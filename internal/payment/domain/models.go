// Package domain contains the payment-provider reconciliation and checkout
// contracts.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/postloom/postloom/internal/plan"
	"github.com/stripe/stripe-go/v82"
)

// ProviderSubscription is the slice of a provider subscription the
// reconciler cares about. Plan comes from the price metadata of the first
// subscription item, falling back to free when unset.
type ProviderSubscription struct {
	ID               string
	CustomerID       string
	Status           string
	Plan             plan.Plan
	CurrentPeriodEnd *time.Time
}

// SubscriptionRetriever fetches the authoritative subscription state from
// the provider. Webhook payloads carry enough for most transitions; invoice
// events only carry a reference, so those re-read the subscription.
type SubscriptionRetriever interface {
	Subscription(ctx context.Context, id string) (*ProviderSubscription, error)
}

// CheckoutParams describes one hosted checkout session.
type CheckoutParams struct {
	CustomerID  string
	PriceID     string
	WorkspaceID snowflake.ID
	SuccessURL  string
	CancelURL   string
}

// Client is the outbound provider API surface used by checkout and
// reconciliation.
type Client interface {
	SubscriptionRetriever

	// CreateCustomer provisions a provider customer and returns its id.
	CreateCustomer(ctx context.Context, email string, workspaceID snowflake.ID) (string, error)

	// CreateCheckoutSession opens a hosted subscription checkout and
	// returns its redirect URL.
	CreateCheckoutSession(ctx context.Context, p CheckoutParams) (string, error)

	// CreatePortalSession opens a hosted billing portal session and
	// returns its redirect URL.
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}

// Service applies verified provider events to the billing store.
type Service interface {
	Reconcile(ctx context.Context, event stripe.Event) error
}

// CheckoutRequest asks for a hosted checkout session for the caller's
// workspace.
type CheckoutRequest struct {
	Plan     string `json:"plan"`
	Interval string `json:"interval"`
}

// SessionResponse carries a hosted session redirect URL.
type SessionResponse struct {
	URL string `json:"url"`
}

// CheckoutService opens hosted checkout and billing portal sessions for the
// authenticated caller.
type CheckoutService interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*SessionResponse, error)
	CreatePortalSession(ctx context.Context) (*SessionResponse, error)
}

var (
	ErrNotAuthenticated = errors.New("not_authenticated")
	ErrUserNotFound     = errors.New("user_not_found")
	ErrNoWorkspace      = errors.New("workspace_not_found")
	ErrNoBillingAccount = errors.New("billing_account_not_found")
	ErrInvalidPlan      = errors.New("invalid_plan")
	ErrInvalidInterval  = errors.New("invalid_billing_interval")
)
