package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertContainer(ctx context.Context, container *Container) error
	FindContainerByID(ctx context.Context, id snowflake.ID) (*Container, error)
	FindContainerByNumber(ctx context.Context, number string) (*Container, error)

	InsertInvoice(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	InsertLines(ctx context.Context, db *gorm.DB, lines []InvoiceLine) error
	UpdateInvoice(ctx context.Context, invoice *Invoice) error
	FindInvoiceByID(ctx context.Context, id snowflake.ID) (*Invoice, error)
	FindInvoicesByIDs(ctx context.Context, ids []snowflake.ID) ([]Invoice, error)
	ListInvoiceIDs(ctx context.Context) ([]snowflake.ID, error)

	UpsertSKU(ctx context.Context, sku *SKU) (*SKU, error)
	// UpsertSKUIfAbsent inserts sku unless its code exists and returns the
	// stored row either way.
	UpsertSKUIfAbsent(ctx context.Context, sku *SKU) (*SKU, error)
	FindSKUByID(ctx context.Context, id snowflake.ID) (*SKU, error)
	FindSKUsByIDs(ctx context.Context, ids []snowflake.ID) ([]SKU, error)

	// ListLines returns lines ordered by id.
	ListLines(ctx context.Context, filter LineFilter) ([]InvoiceLine, error)
	FindLineByID(ctx context.Context, id snowflake.ID) (*InvoiceLine, error)
}
