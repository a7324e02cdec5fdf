package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	allocationdomain "github.com/smallbiznis/landedcost/internal/allocation/domain"
	allocationrepository "github.com/smallbiznis/landedcost/internal/allocation/repository"
	allocationservice "github.com/smallbiznis/landedcost/internal/allocation/service"
	"github.com/smallbiznis/landedcost/internal/clock"
	"github.com/smallbiznis/landedcost/internal/config"
	"github.com/smallbiznis/landedcost/internal/dbtest"
	"github.com/smallbiznis/landedcost/internal/lock"
	shipmentdomain "github.com/smallbiznis/landedcost/internal/shipment/domain"
	shipmentrepository "github.com/smallbiznis/landedcost/internal/shipment/repository"
	tariffrepository "github.com/smallbiznis/landedcost/internal/tariff/repository"
	tariffservice "github.com/smallbiznis/landedcost/internal/tariff/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRecalculateAll(t *testing.T) {
	db := dbtest.Open(t)
	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	log := zap.NewNop()
	seed := dbtest.NewSeeder(t, db, node)

	shipmentRepo := shipmentrepository.NewRepository(db)
	allocation := allocationservice.NewService(allocationservice.ServiceParam{
		DB:           db,
		Log:          log,
		GenID:        node,
		Clock:        clock.NewFakeClock(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)),
		Repo:         allocationrepository.NewRepository(),
		ShipmentRepo: shipmentRepo,
		Locker:       lock.NewKeyedMutex(),
	})
	resolver := tariffservice.NewResolver(tariffservice.ResolverParam{
		Log:          log,
		Repo:         tariffrepository.NewRepository(db),
		ShipmentRepo: shipmentRepo,
	})
	accumulator := tariffservice.NewAccumulator(tariffservice.AccumulatorParam{
		Log:          log,
		ShipmentRepo: shipmentRepo,
		Resolver:     resolver,
		Allocation:   allocation,
		Policy:       config.NewStaticTariffPolicyHolder(config.DefaultTariffPolicy()),
	})
	svc := NewService(ServiceParam{
		Log:          log,
		ShipmentRepo: shipmentRepo,
		Allocation:   allocation,
		Accumulator:  accumulator,
	})

	sku := seed.SKU("SKU-1", func(s *shipmentdomain.SKU) { s.RateOverridePct = dbtest.Pct("10") })
	inv1 := seed.Invoice("INV-1")
	inv2 := seed.Invoice("INV-2")
	seed.Line(inv1, sku, 1, "100", 0)

	pool, err := allocation.CreatePool(context.Background(), allocationdomain.CreatePoolRequest{
		Name: "Broker", Scope: "GLOBAL", Method: "BY_QUANTITY", AmountTotal: decimal.NewFromInt(30),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, pool.Allocated)

	// lines added after the pool was allocated
	seed.Line(inv2, sku, 2, "50", 0)

	summary, err := svc.RecalculateAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.PoolsReallocated)
	assert.Equal(t, 2, summary.InvoicesProcessed)

	refreshed, err := allocation.GetPool(context.Background(), pool.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, refreshed.Allocated)

	for _, inv := range []*shipmentdomain.Invoice{inv1, inv2} {
		tariff, err := allocation.FindSystemPool(context.Background(), allocationdomain.PoolKindTariff, inv.ID.String())
		require.NoError(t, err)
		assert.Equal(t, "10.00", tariff.AmountTotal.StringFixed(2))
	}

	// running again changes nothing
	again, err := svc.RecalculateAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, summary.PoolsReallocated, again.PoolsReallocated)

	var pools int64
	require.NoError(t, db.Model(&allocationdomain.CostPool{}).Count(&pools).Error)
	assert.EqualValues(t, 3, pools)
}

func TestRecalculateAll_Cancelled(t *testing.T) {
	db := dbtest.Open(t)
	node, err := snowflake.NewNode(5)
	require.NoError(t, err)
	seed := dbtest.NewSeeder(t, db, node)
	seed.Invoice("INV-1")

	shipmentRepo := shipmentrepository.NewRepository(db)
	allocation := allocationservice.NewService(allocationservice.ServiceParam{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        clock.NewSystemClock(),
		Repo:         allocationrepository.NewRepository(),
		ShipmentRepo: shipmentRepo,
		Locker:       lock.NewKeyedMutex(),
	})
	svc := NewService(ServiceParam{Log: zap.NewNop(), ShipmentRepo: shipmentRepo, Allocation: allocation})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.RecalculateAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
