package payment

import (
	"github.com/postloom/postloom/internal/payment/checkout"
	"github.com/postloom/postloom/internal/payment/domain"
	"github.com/postloom/postloom/internal/payment/service"
	"github.com/postloom/postloom/internal/payment/stripeapi"
	"go.uber.org/fx"
)

var Module = fx.Module("payment",
	fx.Provide(stripeapi.New),
	fx.Provide(func(c domain.Client) domain.SubscriptionRetriever { return c }),
	fx.Provide(service.New),
	fx.Provide(checkout.New),
)
