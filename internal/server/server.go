// Package server wires the HTTP surface: webhooks, entitlement checks and
// billing session endpoints.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/postloom/postloom/internal/billing"
	billingdomain "github.com/postloom/postloom/internal/billing/domain"
	"github.com/postloom/postloom/internal/config"
	"github.com/postloom/postloom/internal/content"
	"github.com/postloom/postloom/internal/identity"
	identitydomain "github.com/postloom/postloom/internal/identity/domain"
	identitywebhook "github.com/postloom/postloom/internal/identity/webhook"
	"github.com/postloom/postloom/internal/payment"
	paymentdomain "github.com/postloom/postloom/internal/payment/domain"
	"github.com/postloom/postloom/internal/usage"
	"github.com/postloom/postloom/internal/user"
	userdomain "github.com/postloom/postloom/internal/user/domain"
	"github.com/postloom/postloom/internal/workspace"
	workspacedomain "github.com/postloom/postloom/internal/workspace/domain"
)

var Module = fx.Module("http.server",
	fx.Provide(NewHTTPMetrics),
	fx.Provide(NewEngine),
	user.Module,
	workspace.Module,
	content.Module,
	usage.Module,
	billing.Module,
	identity.Module,
	payment.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, metrics *HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(MetricsMiddleware(metrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, log *zap.Logger, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	db            *gorm.DB
	log           *zap.Logger
	verifier      *identitywebhook.Verifier
	identitySvc   identitydomain.Service
	paymentSvc    paymentdomain.Service
	checkoutSvc   paymentdomain.CheckoutService
	billingSvc    billingdomain.Service
	workspaceSvc  workspacedomain.Service
	workspaceRepo workspacedomain.Repository
	userRepo      userdomain.Repository
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	DB            *gorm.DB
	Log           *zap.Logger
	Verifier      *identitywebhook.Verifier
	IdentitySvc   identitydomain.Service
	PaymentSvc    paymentdomain.Service
	CheckoutSvc   paymentdomain.CheckoutService
	BillingSvc    billingdomain.Service
	WorkspaceSvc  workspacedomain.Service
	WorkspaceRepo workspacedomain.Repository
	UserRepo      userdomain.Repository
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		log:           p.Log.Named("server"),
		verifier:      p.Verifier,
		identitySvc:   p.IdentitySvc,
		paymentSvc:    p.PaymentSvc,
		checkoutSvc:   p.CheckoutSvc,
		billingSvc:    p.BillingSvc,
		workspaceSvc:  p.WorkspaceSvc,
		workspaceRepo: p.WorkspaceRepo,
		userRepo:      p.UserRepo,
	}

	s.registerWebhookRoutes()
	s.registerAPIRoutes()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerWebhookRoutes() {
	hooks := s.engine.Group("/webhooks")

	hooks.POST("/clerk", s.HandleClerkWebhook)
	hooks.POST("/stripe", s.HandleStripeWebhook)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/v1", s.AuthRequired())

	api.POST("/workspaces", s.CreateWorkspace)
	api.GET("/workspaces/:id/features/:feature", s.CheckFeature)
	api.GET("/workspaces/:id/usage/:action", s.CheckUsage)
	api.POST("/billing/checkout", s.CreateCheckoutSession)
	api.POST("/billing/portal", s.CreatePortalSession)
}
