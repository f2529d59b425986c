package lettertemplate

import (
	"github.com/smallbiznis/gascustody/internal/lettertemplate/repository"
	"github.com/smallbiznis/gascustody/internal/lettertemplate/service"
	"go.uber.org/fx"
)

var Module = fx.Module("lettertemplate.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
