package tariff

import (
	"github.com/smallbiznis/landedcost/internal/tariff/repository"
	"github.com/smallbiznis/landedcost/internal/tariff/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tariff.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewResolver),
	fx.Provide(service.NewCatalogService),
	fx.Provide(service.NewAccumulator),
)
