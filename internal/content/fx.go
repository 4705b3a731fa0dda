package content

import (
	"github.com/postloom/postloom/internal/content/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("content",
	fx.Provide(repository.Provide),
)
