package providers

import (
	"github.com/smallbiznis/gascustody/internal/providers/email"
	"github.com/smallbiznis/gascustody/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	pdf.Module,
)
