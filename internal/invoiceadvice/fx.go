package invoiceadvice

import (
	"github.com/smallbiznis/gascustody/internal/invoiceadvice/repository"
	"github.com/smallbiznis/gascustody/internal/invoiceadvice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoiceadvice.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
