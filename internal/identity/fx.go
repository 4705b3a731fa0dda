package identity

import (
	"github.com/postloom/postloom/internal/config"
	"github.com/postloom/postloom/internal/identity/service"
	"github.com/postloom/postloom/internal/identity/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("identity",
	fx.Provide(func(cfg config.Config) (*webhook.Verifier, error) {
		return webhook.NewVerifier(cfg.ClerkWebhookSecret)
	}),
	fx.Provide(service.New),
)
