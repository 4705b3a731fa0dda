package server

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/postloom/postloom/internal/authctx"
	"github.com/postloom/postloom/pkg/correlation"
	"github.com/postloom/postloom/pkg/log/ctxlogger"
)

const authLeeway = 30 * time.Second

// RequestLogger tags each request with a correlation id and logs one line
// when it finishes.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()

		ctx, _ := correlation.EnsureCorrelationID(c.Request.Context())
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", route),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		}
		if lastErr := c.Errors.Last(); lastErr != nil {
			fields = append(fields, zap.Error(lastErr.Err))
		}

		ctxlogger.WithContext(c.Request.Context(), log).Info("request", fields...)
	}
}

// AuthRequired validates the bearer token and stashes the subject in the
// request context. Tokens are HS256 session tokens minted by the identity
// provider integration.
func (s *Server) AuthRequired() gin.HandlerFunc {
	parser := jwt.NewParser(
		jwt.WithLeeway(authLeeway),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
	)
	secret := []byte(s.cfg.AuthJWTSecret)

	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

		token, err := parser.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			return secret, nil
		})
		if err != nil || !token.Valid {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		subject, err := token.Claims.GetSubject()
		if err != nil || subject == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := authctx.WithClerkUserID(c.Request.Context(), subject)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
