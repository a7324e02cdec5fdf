package repository

import (
	"context"

	"github.com/smallbiznis/landedcost/pkg/db/option"
)

// Repository is a thin generic gorm store for simple catalog tables.
// Lookups return nil, nil when nothing matches.
type Repository[T any] interface {
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	// FindByIDs returns matches ordered by id.
	FindByIDs(ctx context.Context, ids any) ([]*T, error)
	Create(ctx context.Context, resource *T) error
}
