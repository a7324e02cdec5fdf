package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository write methods take db so callers can run them inside a
// transaction.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, pool *CostPool) error
	Update(ctx context.Context, db *gorm.DB, pool *CostPool) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*CostPool, error)
	FindBySystemKey(ctx context.Context, db *gorm.DB, key string) (*CostPool, error)
	List(ctx context.Context, db *gorm.DB, filter ListPoolFilter) ([]CostPool, error)

	// ReplaceAllocations deletes the existing allocations of poolID and
	// inserts items.
	ReplaceAllocations(ctx context.Context, db *gorm.DB, poolID snowflake.ID, items []Allocation) error
	ListAllocations(ctx context.Context, db *gorm.DB, poolID snowflake.ID) ([]Allocation, error)
	ListAllocationsForLines(ctx context.Context, db *gorm.DB, lineIDs []snowflake.ID) ([]LineAllocation, error)
}

type ListPoolFilter struct {
	Kind        *PoolKind
	InvoiceID   *snowflake.ID
	ContainerID *snowflake.ID
	// AutoCompute nil returns both user and automatic pools.
	AutoCompute *bool
	SortBy      string
	OrderBy     string
}
