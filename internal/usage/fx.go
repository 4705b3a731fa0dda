package usage

import (
	"github.com/postloom/postloom/internal/usage/service"
	"go.uber.org/fx"
)

var Module = fx.Module("usage",
	fx.Provide(service.New),
)
