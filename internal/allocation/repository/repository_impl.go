package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	allocationdomain "github.com/smallbiznis/landedcost/internal/allocation/domain"
	"github.com/smallbiznis/landedcost/pkg/db/option"
	"gorm.io/gorm"
)

const allocationBatchSize = 500

type repo struct{}

func NewRepository() allocationdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, pool *allocationdomain.CostPool) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO cost_pools (
			id, name, kind, scope_type, method, amount_total, invoice_id, container_id,
			auto_compute, system_key, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pool.ID,
		pool.Name,
		pool.Kind,
		pool.ScopeType,
		pool.Method,
		pool.AmountTotal,
		pool.InvoiceID,
		pool.ContainerID,
		pool.AutoCompute,
		pool.SystemKey,
		pool.CreatedAt,
		pool.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, pool *allocationdomain.CostPool) error {
	return db.WithContext(ctx).Exec(
		`UPDATE cost_pools
		SET name = ?, method = ?, amount_total = ?, updated_at = ?
		WHERE id = ?`,
		pool.Name,
		pool.Method,
		pool.AmountTotal,
		pool.UpdatedAt,
		pool.ID,
	).Error
}

// Delete removes a pool together with its allocations.
func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	if err := db.WithContext(ctx).Exec(`DELETE FROM allocations WHERE cost_pool_id = ?`, id).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).Exec(`DELETE FROM cost_pools WHERE id = ?`, id).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*allocationdomain.CostPool, error) {
	return r.findOne(ctx, db, "id = ?", id)
}

func (r *repo) FindBySystemKey(ctx context.Context, db *gorm.DB, key string) (*allocationdomain.CostPool, error) {
	return r.findOne(ctx, db, "system_key = ?", key)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, arg any) (*allocationdomain.CostPool, error) {
	var pool allocationdomain.CostPool
	err := db.WithContext(ctx).Where(query, arg).First(&pool).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &pool, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter allocationdomain.ListPoolFilter) ([]allocationdomain.CostPool, error) {
	var items []allocationdomain.CostPool
	stmt := db.WithContext(ctx).Model(&allocationdomain.CostPool{})

	opts := []option.QueryOption{}
	if filter.Kind != nil {
		opts = append(opts, option.ApplyOperator(option.Condition{Field: "kind", Operator: option.EQ, Value: *filter.Kind}))
	}
	if filter.InvoiceID != nil {
		opts = append(opts, option.ApplyOperator(option.Condition{Field: "invoice_id", Operator: option.EQ, Value: *filter.InvoiceID}))
	}
	if filter.ContainerID != nil {
		opts = append(opts, option.ApplyOperator(option.Condition{Field: "container_id", Operator: option.EQ, Value: *filter.ContainerID}))
	}
	if filter.AutoCompute != nil {
		opts = append(opts, option.ApplyOperator(option.Condition{Field: "auto_compute", Operator: option.EQ, Value: *filter.AutoCompute}))
	}
	opts = append(opts, option.WithSortBy(option.WithQuerySortBy(filter.SortBy, filter.OrderBy, map[string]bool{
		"name":         true,
		"kind":         true,
		"amount_total": true,
		"created_at":   true,
	})))

	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ReplaceAllocations(ctx context.Context, db *gorm.DB, poolID snowflake.ID, items []allocationdomain.Allocation) error {
	if err := db.WithContext(ctx).Exec(`DELETE FROM allocations WHERE cost_pool_id = ?`, poolID).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(&items, allocationBatchSize).Error
}

func (r *repo) ListAllocations(ctx context.Context, db *gorm.DB, poolID snowflake.ID) ([]allocationdomain.Allocation, error) {
	var items []allocationdomain.Allocation
	err := db.WithContext(ctx).
		Where("cost_pool_id = ?", poolID).
		Order("invoice_line_id ASC").
		Find(&items).Error
	return items, err
}

func (r *repo) ListAllocationsForLines(ctx context.Context, db *gorm.DB, lineIDs []snowflake.ID) ([]allocationdomain.LineAllocation, error) {
	var items []allocationdomain.LineAllocation
	if len(lineIDs) == 0 {
		return items, nil
	}
	err := db.WithContext(ctx).
		Table("allocations").
		Select(`allocations.invoice_line_id AS invoice_line_id,
			allocations.cost_pool_id AS cost_pool_id,
			cost_pools.kind AS pool_kind,
			cost_pools.name AS pool_name,
			allocations.amount AS amount`).
		Joins("JOIN cost_pools ON cost_pools.id = allocations.cost_pool_id").
		Where("allocations.invoice_line_id IN ?", lineIDs).
		Order("allocations.invoice_line_id ASC").
		Order("allocations.cost_pool_id ASC").
		Scan(&items).Error
	return items, err
}
