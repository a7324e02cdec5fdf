package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	allocationdomain "github.com/smallbiznis/landedcost/internal/allocation/domain"
	"github.com/smallbiznis/landedcost/internal/allocation/repository"
	"github.com/smallbiznis/landedcost/internal/clock"
	"github.com/smallbiznis/landedcost/internal/dbtest"
	"github.com/smallbiznis/landedcost/internal/lock"
	shipmentrepository "github.com/smallbiznis/landedcost/internal/shipment/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestSystemPool_ConcurrentUpsertsKeepOnePool(t *testing.T) {
	f := newFixture(t)
	sku := f.seed.SKU("SKU-1")
	inv := f.seed.Invoice("INV-1")
	f.seed.Line(inv, sku, 1, "30", 0)
	f.seed.Line(inv, sku, 1, "10", 0)

	const writers = 8
	ids := make([]string, writers)
	errs := make([]error, writers)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := f.svc.UpsertSystemPool(context.Background(), allocationdomain.SystemPoolRequest{
				Kind:      allocationdomain.PoolKindTariff,
				InvoiceID: inv.ID.String(),
				Name:      "Tariff",
				Amount:    decimal.NewFromInt(4),
			})
			errs[i] = err
			if resp != nil {
				ids[i] = resp.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < writers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}

	var pools int64
	require.NoError(t, f.db.Model(&allocationdomain.CostPool{}).Count(&pools).Error)
	assert.EqualValues(t, 1, pools)

	var allocations []allocationdomain.Allocation
	require.NoError(t, f.db.Order("amount DESC").Find(&allocations).Error)
	require.Len(t, allocations, 2)
	assert.Equal(t, "3.00", allocations[0].Amount.StringFixed(2))
	assert.Equal(t, "1.00", allocations[1].Amount.StringFixed(2))
}

// rivalRepository inserts a competing pool for the first system key lookup
// that finds nothing, as a writer without the shared lock would.
type rivalRepository struct {
	allocationdomain.Repository
	node      *snowflake.Node
	invoiceID snowflake.ID
	rival     *allocationdomain.CostPool
}

func (r *rivalRepository) FindBySystemKey(ctx context.Context, db *gorm.DB, key string) (*allocationdomain.CostPool, error) {
	pool, err := r.Repository.FindBySystemKey(ctx, db, key)
	if err != nil || pool != nil || r.rival != nil {
		return pool, err
	}

	now := time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC)
	systemKey := key
	rival := &allocationdomain.CostPool{
		ID:          r.node.Generate(),
		Name:        "Tariff",
		Kind:        allocationdomain.PoolKindTariff,
		Method:      allocationdomain.MethodByPrice,
		AmountTotal: decimal.NewFromInt(1),
		AutoCompute: true,
		SystemKey:   &systemKey,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	rival.SetScope(allocationdomain.PerInvoice{InvoiceID: r.invoiceID})
	if err := r.Repository.Insert(ctx, db, rival); err != nil {
		return nil, err
	}
	r.rival = rival
	return nil, nil
}

func TestSystemPool_DuplicateInsertUpdatesWinner(t *testing.T) {
	db := dbtest.Open(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	seed := dbtest.NewSeeder(t, db, node)

	repo := &rivalRepository{Repository: repository.NewRepository(), node: node}
	svc := NewService(ServiceParam{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        clock.NewFakeClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)),
		Repo:         repo,
		ShipmentRepo: shipmentrepository.NewRepository(db),
		Locker:       lock.NewKeyedMutex(),
	})

	sku := seed.SKU("SKU-1")
	inv := seed.Invoice("INV-1")
	seed.Line(inv, sku, 1, "30", 0)
	seed.Line(inv, sku, 1, "10", 0)
	repo.invoiceID = inv.ID

	resp, err := svc.UpsertSystemPool(context.Background(), allocationdomain.SystemPoolRequest{
		Kind:      allocationdomain.PoolKindTariff,
		InvoiceID: inv.ID.String(),
		Name:      "Tariff",
		Amount:    decimal.NewFromInt(8),
	})
	require.NoError(t, err)
	require.NotNil(t, repo.rival)
	assert.Equal(t, repo.rival.ID.String(), resp.ID)
	assert.Equal(t, "8.00", resp.AmountTotal.StringFixed(2))

	var pools int64
	require.NoError(t, db.Model(&allocationdomain.CostPool{}).Count(&pools).Error)
	assert.EqualValues(t, 1, pools)

	var allocations []allocationdomain.Allocation
	require.NoError(t, db.Where("cost_pool_id = ?", repo.rival.ID).Order("amount DESC").Find(&allocations).Error)
	require.Len(t, allocations, 2)
	assert.Equal(t, "6.00", allocations[0].Amount.StringFixed(2))
	assert.Equal(t, "2.00", allocations[1].Amount.StringFixed(2))
}
