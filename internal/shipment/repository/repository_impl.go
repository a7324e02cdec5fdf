package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	shipmentdomain "github.com/smallbiznis/landedcost/internal/shipment/domain"
	"github.com/smallbiznis/landedcost/pkg/db/option"
	"github.com/smallbiznis/landedcost/pkg/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct {
	db         *gorm.DB
	containers repository.Repository[shipmentdomain.Container]
	skus       repository.Repository[shipmentdomain.SKU]
}

func NewRepository(db *gorm.DB) shipmentdomain.Repository {
	return &repo{
		db:         db,
		containers: repository.ProvideStore[shipmentdomain.Container](db),
		skus:       repository.ProvideStore[shipmentdomain.SKU](db),
	}
}

func (r *repo) InsertContainer(ctx context.Context, container *shipmentdomain.Container) error {
	return r.containers.Create(ctx, container)
}

func (r *repo) FindContainerByID(ctx context.Context, id snowflake.ID) (*shipmentdomain.Container, error) {
	return r.containers.FindOne(ctx, &shipmentdomain.Container{ID: id})
}

func (r *repo) FindContainerByNumber(ctx context.Context, number string) (*shipmentdomain.Container, error) {
	return r.containers.FindOne(ctx, &shipmentdomain.Container{ContainerNumber: number})
}

func (r *repo) InsertInvoice(ctx context.Context, db *gorm.DB, invoice *shipmentdomain.Invoice) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO invoices (
			id, invoice_number, invoice_date, container_id, po_number, currency,
			apply_db_rate, manual_rate_pct, country_of_origin, claimed_program, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		invoice.ID,
		invoice.InvoiceNumber,
		invoice.InvoiceDate,
		invoice.ContainerID,
		invoice.PONumber,
		invoice.Currency,
		invoice.ApplyDBRate,
		invoice.ManualRatePct,
		invoice.CountryOfOrigin,
		invoice.ClaimedProgram,
		invoice.CreatedAt,
		invoice.UpdatedAt,
	).Error
}

func (r *repo) InsertLines(ctx context.Context, db *gorm.DB, lines []shipmentdomain.InvoiceLine) error {
	if len(lines) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&lines).Error
}

func (r *repo) UpdateInvoice(ctx context.Context, invoice *shipmentdomain.Invoice) error {
	return r.db.WithContext(ctx).
		Model(&shipmentdomain.Invoice{}).
		Where("id = ?", invoice.ID).
		Updates(map[string]any{
			"invoice_date":      invoice.InvoiceDate,
			"po_number":         invoice.PONumber,
			"apply_db_rate":     invoice.ApplyDBRate,
			"manual_rate_pct":   invoice.ManualRatePct,
			"country_of_origin": invoice.CountryOfOrigin,
			"claimed_program":   invoice.ClaimedProgram,
			"updated_at":        invoice.UpdatedAt,
		}).Error
}

func (r *repo) FindInvoiceByID(ctx context.Context, id snowflake.ID) (*shipmentdomain.Invoice, error) {
	var invoice shipmentdomain.Invoice
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) FindInvoicesByIDs(ctx context.Context, ids []snowflake.ID) ([]shipmentdomain.Invoice, error) {
	var items []shipmentdomain.Invoice
	if len(ids) == 0 {
		return items, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&items).Error
	return items, err
}

func (r *repo) ListInvoiceIDs(ctx context.Context) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := r.db.WithContext(ctx).
		Model(&shipmentdomain.Invoice{}).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

// UpsertSKU inserts a SKU or refreshes the mutable columns of an existing
// one with the same code.
func (r *repo) UpsertSKU(ctx context.Context, sku *shipmentdomain.SKU) (*shipmentdomain.SKU, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"description", "tariff_code_id", "rate_override_pct", "updated_at"}),
	}).Create(sku).Error
	if err != nil {
		return nil, err
	}
	return r.skus.FindOne(ctx, &shipmentdomain.SKU{Code: sku.Code})
}

func (r *repo) UpsertSKUIfAbsent(ctx context.Context, sku *shipmentdomain.SKU) (*shipmentdomain.SKU, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoNothing: true,
	}).Create(sku).Error
	if err != nil {
		return nil, err
	}
	return r.skus.FindOne(ctx, &shipmentdomain.SKU{Code: sku.Code})
}

func (r *repo) FindSKUByID(ctx context.Context, id snowflake.ID) (*shipmentdomain.SKU, error) {
	return r.skus.FindOne(ctx, &shipmentdomain.SKU{ID: id})
}

func (r *repo) FindSKUsByIDs(ctx context.Context, ids []snowflake.ID) ([]shipmentdomain.SKU, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	found, err := r.skus.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	items := make([]shipmentdomain.SKU, 0, len(found))
	for _, sku := range found {
		items = append(items, *sku)
	}
	return items, nil
}

func (r *repo) ListLines(ctx context.Context, filter shipmentdomain.LineFilter) ([]shipmentdomain.InvoiceLine, error) {
	var lines []shipmentdomain.InvoiceLine
	stmt := r.db.WithContext(ctx).
		Model(&shipmentdomain.InvoiceLine{}).
		Select("invoice_lines.*")

	if filter.ContainerID != nil || filter.InvoiceDate != nil {
		stmt = stmt.Joins("JOIN invoices ON invoices.id = invoice_lines.invoice_id")
	}

	opts := []option.QueryOption{}
	if filter.InvoiceID != nil {
		opts = append(opts, option.ApplyOperator(option.Condition{
			Field:    "invoice_lines.invoice_id",
			Operator: option.EQ,
			Value:    *filter.InvoiceID,
		}))
	}
	if filter.ContainerID != nil {
		opts = append(opts, option.ApplyOperator(option.Condition{
			Field:    "invoices.container_id",
			Operator: option.EQ,
			Value:    *filter.ContainerID,
		}))
	}
	if filter.InvoiceDate != nil {
		opts = append(opts, option.ApplyOperator(option.Condition{
			Field:    "invoices.invoice_date",
			Operator: option.EQ,
			Value:    *filter.InvoiceDate,
		}))
	}
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}

	if err := stmt.Order("invoice_lines.id ASC").Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repo) FindLineByID(ctx context.Context, id snowflake.ID) (*shipmentdomain.InvoiceLine, error) {
	var line shipmentdomain.InvoiceLine
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&line).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &line, nil
}
