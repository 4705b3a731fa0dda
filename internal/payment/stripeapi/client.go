// Package stripeapi implements the outbound provider API port on the
// official client.
package stripeapi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stripe/stripe-go/v82"
	portalsession "github.com/stripe/stripe-go/v82/billingportal/session"
	stripesession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/subscription"

	"github.com/postloom/postloom/internal/config"
	"github.com/postloom/postloom/internal/payment/domain"
	"github.com/postloom/postloom/internal/plan"
)

type client struct{}

// New configures the global provider client key and returns the API port.
func New(cfg config.Config) domain.Client {
	stripe.Key = strings.TrimSpace(cfg.StripeSecretKey)
	return &client{}
}

func (c *client) Subscription(ctx context.Context, id string) (*domain.ProviderSubscription, error) {
	sub, err := subscription.Get(id, &stripe.SubscriptionParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve subscription %s: %w", id, err)
	}
	return fromStripeSubscription(sub), nil
}

// fromStripeSubscription maps the provider object to the reconciler's view.
// The plan name and period end live on the first subscription item.
func fromStripeSubscription(sub *stripe.Subscription) *domain.ProviderSubscription {
	out := &domain.ProviderSubscription{
		ID:     sub.ID,
		Status: string(sub.Status),
		Plan:   plan.PlanFree,
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		if item.Price != nil {
			out.Plan = plan.Parse(item.Price.Metadata["plan"])
		}
		if item.CurrentPeriodEnd > 0 {
			end := time.Unix(item.CurrentPeriodEnd, 0).UTC()
			out.CurrentPeriodEnd = &end
		}
	}
	return out
}

func (c *client) CreateCustomer(ctx context.Context, email string, workspaceID snowflake.ID) (string, error) {
	cust, err := customer.New(&stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
		Email:  stripe.String(email),
		Metadata: map[string]string{
			"workspace_id": workspaceID.String(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}
	return cust.ID, nil
}

func (c *client) CreateCheckoutSession(ctx context.Context, p domain.CheckoutParams) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Params:     stripe.Params{Context: ctx},
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:   stripe.String(p.CustomerID),
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			"workspace_id": p.WorkspaceID.String(),
		},
	}
	session, err := stripesession.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	if session == nil || strings.TrimSpace(session.URL) == "" {
		return "", fmt.Errorf("provider returned empty checkout URL")
	}
	return strings.TrimSpace(session.URL), nil
}

func (c *client) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	session, err := portalsession.New(&stripe.BillingPortalSessionParams{
		Params:    stripe.Params{Context: ctx},
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	})
	if err != nil {
		return "", fmt.Errorf("create portal session: %w", err)
	}
	if session == nil || strings.TrimSpace(session.URL) == "" {
		return "", fmt.Errorf("provider returned empty portal URL")
	}
	return strings.TrimSpace(session.URL), nil
}
