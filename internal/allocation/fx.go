package allocation

import (
	"github.com/smallbiznis/landedcost/internal/allocation/repository"
	"github.com/smallbiznis/landedcost/internal/allocation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("allocation.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
