package gcc

import (
	"github.com/smallbiznis/gascustody/internal/gcc/repository"
	"github.com/smallbiznis/gascustody/internal/gcc/service"
	"go.uber.org/fx"
)

var Module = fx.Module("gcc.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
