package shipment

import (
	"github.com/smallbiznis/landedcost/internal/shipment/repository"
	"github.com/smallbiznis/landedcost/internal/shipment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("shipment.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
