package service

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	allocationdomain "github.com/smallbiznis/landedcost/internal/allocation/domain"
	allocationrepository "github.com/smallbiznis/landedcost/internal/allocation/repository"
	allocationservice "github.com/smallbiznis/landedcost/internal/allocation/service"
	"github.com/smallbiznis/landedcost/internal/clock"
	"github.com/smallbiznis/landedcost/internal/config"
	"github.com/smallbiznis/landedcost/internal/dbtest"
	"github.com/smallbiznis/landedcost/internal/lock"
	shipmentdomain "github.com/smallbiznis/landedcost/internal/shipment/domain"
	shipmentrepository "github.com/smallbiznis/landedcost/internal/shipment/repository"
	tariffdomain "github.com/smallbiznis/landedcost/internal/tariff/domain"
	"github.com/smallbiznis/landedcost/internal/tariff/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db           *gorm.DB
	seed         *dbtest.Seeder
	repo         tariffdomain.Repository
	shipmentRepo shipmentdomain.Repository
	resolver     tariffdomain.RateResolver
	catalog      tariffdomain.CatalogService
	allocation   allocationdomain.Service
	accumulator  tariffdomain.Accumulator
}

func newFixture(t *testing.T, policy config.TariffPolicy) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	repo := repository.NewRepository(db)
	shipmentRepo := shipmentrepository.NewRepository(db)
	resolver := NewResolver(ResolverParam{Log: log, Repo: repo, ShipmentRepo: shipmentRepo})
	allocation := allocationservice.NewService(allocationservice.ServiceParam{
		DB:           db,
		Log:          log,
		GenID:        node,
		Clock:        clk,
		Repo:         allocationrepository.NewRepository(),
		ShipmentRepo: shipmentRepo,
		Locker:       lock.NewKeyedMutex(),
	})

	return &fixture{
		db:           db,
		seed:         dbtest.NewSeeder(t, db, node),
		repo:         repo,
		shipmentRepo: shipmentRepo,
		resolver:     resolver,
		catalog:      NewCatalogService(CatalogParam{Log: log, GenID: node, Clock: clk, Repo: repo}),
		allocation:   allocation,
		accumulator: NewAccumulator(AccumulatorParam{
			Log:          log,
			ShipmentRepo: shipmentRepo,
			Resolver:     resolver,
			Allocation:   allocation,
			Policy:       config.NewStaticTariffPolicyHolder(policy),
		}),
	}
}
