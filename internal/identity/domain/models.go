// Package domain contains identity-provider lifecycle events mirrored into
// the user table.
package domain

import (
	"context"
	"errors"
)

// Event types delivered by the identity provider.
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// EmailAddress is one address attached to an identity-provider account.
type EmailAddress struct {
	EmailAddress string `json:"email_address"`
}

// EventData is the subject of a lifecycle event.
type EventData struct {
	ID             string         `json:"id"`
	EmailAddresses []EmailAddress `json:"email_addresses"`
}

// Event is a verified identity lifecycle event.
type Event struct {
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

// PrimaryEmail returns the first listed address or "".
func (e Event) PrimaryEmail() string {
	if len(e.Data.EmailAddresses) == 0 {
		return ""
	}
	return e.Data.EmailAddresses[0].EmailAddress
}

// Service applies lifecycle events to the user table. Reconciliation is
// idempotent: redelivered events must not duplicate or corrupt state.
type Service interface {
	Reconcile(ctx context.Context, event Event) error
}

var (
	ErrMissingHeaders   = errors.New("missing_webhook_headers")
	ErrInvalidSignature = errors.New("invalid_webhook_signature")
	ErrStaleTimestamp   = errors.New("stale_webhook_timestamp")
	ErrInvalidPayload   = errors.New("invalid_webhook_payload")
	ErrMissingUserID    = errors.New("missing_user_id")
)
