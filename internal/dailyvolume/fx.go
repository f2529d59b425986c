package dailyvolume

import (
	"github.com/smallbiznis/gascustody/internal/dailyvolume/repository"
	"github.com/smallbiznis/gascustody/internal/dailyvolume/service"
	"go.uber.org/fx"
)

var Module = fx.Module("dailyvolume.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
