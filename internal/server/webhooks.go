package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"

	identitydomain "github.com/postloom/postloom/internal/identity/domain"
)

// HandleClerkWebhook verifies and applies one identity-provider delivery.
// Verification failures are terminal 400s; store failures return 500 so the
// provider redelivers.
func (s *Server) HandleClerkWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.verifier.Verify(payload, c.Request.Header); err != nil {
		s.log.Warn("identity webhook rejected", zap.Error(err))
		AbortWithError(c, err)
		return
	}

	var event identitydomain.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		AbortWithError(c, identitydomain.ErrInvalidPayload)
		return
	}

	if err := s.identitySvc.Reconcile(c.Request.Context(), event); err != nil {
		switch err {
		case identitydomain.ErrMissingUserID:
			AbortWithError(c, err)
		default:
			s.log.Error("identity reconcile failed", zap.Error(err))
			AbortWithError(c, ErrInternal)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleStripeWebhook verifies and applies one payment-provider delivery.
func (s *Server) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		c.GetHeader("Stripe-Signature"),
		s.cfg.StripeWebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		s.log.Warn("payment webhook rejected", zap.Error(err))
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.paymentSvc.Reconcile(c.Request.Context(), event); err != nil {
		s.log.Error("payment reconcile failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err),
		)
		AbortWithError(c, ErrInternal)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
