package ngmlaccount

import (
	"github.com/smallbiznis/gascustody/internal/ngmlaccount/repository"
	"github.com/smallbiznis/gascustody/internal/ngmlaccount/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ngmlaccount.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
