package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Service interface {
	CreatePool(ctx context.Context, req CreatePoolRequest) (*PoolResponse, error)
	UpdatePool(ctx context.Context, id string, req UpdatePoolRequest) (*PoolResponse, error)
	DeletePool(ctx context.Context, id string) error
	GetPool(ctx context.Context, id string) (*PoolResponse, error)
	ListPools(ctx context.Context, req ListPoolsRequest) ([]PoolResponse, error)
	ListAllocations(ctx context.Context, poolID string) ([]AllocationResponse, error)
	// Allocate recomputes and replaces the allocations of a pool.
	Allocate(ctx context.Context, poolID string) (*PoolResponse, error)

	// UpsertSystemPool creates or updates the automatic pool of req.Kind for
	// an invoice and reallocates it.
	UpsertSystemPool(ctx context.Context, req SystemPoolRequest) (*PoolResponse, error)
	FindSystemPool(ctx context.Context, kind PoolKind, invoiceID string) (*PoolResponse, error)
	// RemoveSystemPool reports whether a pool existed.
	RemoveSystemPool(ctx context.Context, kind PoolKind, invoiceID string) (bool, error)
	// ListUserPools returns every pool that is not automatically computed,
	// ordered by id.
	ListUserPools(ctx context.Context) ([]PoolResponse, error)
}

type CreatePoolRequest struct {
	Name        string          `json:"name"`
	Kind        string          `json:"kind"`
	Scope       string          `json:"scope"`
	Method      string          `json:"method"`
	AmountTotal decimal.Decimal `json:"amount_total"`
	InvoiceID   *string         `json:"invoice_id"`
	ContainerID *string         `json:"container_id"`
}

type UpdatePoolRequest struct {
	Name        *string          `json:"name"`
	Method      *string          `json:"method"`
	AmountTotal *decimal.Decimal `json:"amount_total"`
}

type ListPoolsRequest struct {
	Kind        string
	InvoiceID   string
	ContainerID string
	SortBy      string
	OrderBy     string
}

type SystemPoolRequest struct {
	Kind      PoolKind
	InvoiceID string
	Name      string
	Amount    decimal.Decimal
}

type PoolResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Kind        PoolKind        `json:"kind"`
	Scope       ScopeType       `json:"scope"`
	Method      MethodCode      `json:"method"`
	AmountTotal decimal.Decimal `json:"amount_total"`
	InvoiceID   *string         `json:"invoice_id,omitempty"`
	ContainerID *string         `json:"container_id,omitempty"`
	AutoCompute bool            `json:"auto_compute"`
	// Allocated is the number of lines the pool was spread over.
	Allocated int       `json:"allocated"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type AllocationResponse struct {
	ID            string          `json:"id"`
	CostPoolID    string          `json:"cost_pool_id"`
	InvoiceLineID string          `json:"invoice_line_id"`
	Amount        decimal.Decimal `json:"amount"`
}
