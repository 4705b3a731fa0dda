package workspace

import (
	"github.com/postloom/postloom/internal/workspace/repository"
	"github.com/postloom/postloom/internal/workspace/service"
	"go.uber.org/fx"
)

var Module = fx.Module("workspace",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
