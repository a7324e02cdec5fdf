package landedcost

import (
	"github.com/smallbiznis/landedcost/internal/landedcost/service"
	"go.uber.org/fx"
)

var Module = fx.Module("landedcost.service",
	fx.Provide(service.NewService),
)
