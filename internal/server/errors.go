package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/postloom/postloom/internal/config"
	identitydomain "github.com/postloom/postloom/internal/identity/domain"
	paymentdomain "github.com/postloom/postloom/internal/payment/domain"
	workspacedomain "github.com/postloom/postloom/internal/workspace/domain"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrInternal       = errors.New("internal_error")
)

// ErrorHandlingMiddleware renders the last collected error once the handler
// chain finishes without writing a body.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	var missingKey config.MissingKeyError
	if errors.As(err, &missingKey) {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, workspacedomain.ErrInvalidName),
		errors.Is(err, paymentdomain.ErrInvalidPlan),
		errors.Is(err, paymentdomain.ErrInvalidInterval),
		errors.Is(err, identitydomain.ErrMissingHeaders),
		errors.Is(err, identitydomain.ErrInvalidSignature),
		errors.Is(err, identitydomain.ErrStaleTimestamp),
		errors.Is(err, identitydomain.ErrInvalidPayload),
		errors.Is(err, identitydomain.ErrMissingUserID):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: "invalid request",
		}
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, workspacedomain.ErrNotAuthenticated),
		errors.Is(err, paymentdomain.ErrNotAuthenticated):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, workspacedomain.ErrLimitReached):
		return http.StatusForbidden, errorPayload{
			Type:    "limit_reached",
			Message: "plan limit reached",
		}
	case errors.Is(err, ErrNotFound),
		errors.Is(err, workspacedomain.ErrNotFound),
		errors.Is(err, workspacedomain.ErrUserNotFound),
		errors.Is(err, paymentdomain.ErrUserNotFound),
		errors.Is(err, paymentdomain.ErrNoWorkspace),
		errors.Is(err, paymentdomain.ErrNoBillingAccount),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}
