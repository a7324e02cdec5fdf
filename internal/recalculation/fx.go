package recalculation

import (
	"github.com/smallbiznis/landedcost/internal/recalculation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("recalculation.service",
	fx.Provide(service.NewService),
)
