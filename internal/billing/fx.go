package billing

import (
	"github.com/postloom/postloom/internal/billing/repository"
	"github.com/postloom/postloom/internal/billing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billing",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
