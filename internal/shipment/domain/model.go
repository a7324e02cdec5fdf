package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Container groups the invoices shipped together.
type Container struct {
	ID              snowflake.ID `gorm:"primaryKey"`
	ContainerNumber string       `gorm:"column:container_number;type:varchar(64);not null;uniqueIndex"`
	Notes           *string      `gorm:"type:text"`
	CreatedAt       time.Time    `gorm:"not null"`
	UpdatedAt       time.Time    `gorm:"not null"`
}

func (Container) TableName() string { return "containers" }

// SKU carries the product attributes the tariff resolver needs.
type SKU struct {
	ID           snowflake.ID  `gorm:"primaryKey"`
	Code         string        `gorm:"type:varchar(64);not null;uniqueIndex"`
	Description  *string       `gorm:"type:text"`
	TariffCodeID *snowflake.ID `gorm:"column:tariff_code_id;index"`
	// RateOverridePct replaces the catalog rate for this SKU, in percent.
	RateOverridePct *decimal.Decimal `gorm:"column:rate_override_pct;type:numeric(9,4)"`
	CreatedAt       time.Time        `gorm:"not null"`
	UpdatedAt       time.Time        `gorm:"not null"`
}

func (SKU) TableName() string { return "skus" }

type Invoice struct {
	ID            snowflake.ID  `gorm:"primaryKey"`
	InvoiceNumber string        `gorm:"column:invoice_number;type:varchar(64);not null;index"`
	InvoiceDate   *time.Time    `gorm:"column:invoice_date"`
	ContainerID   *snowflake.ID `gorm:"column:container_id;index"`
	PONumber      *string       `gorm:"column:po_number;type:varchar(64)"`
	Currency      string        `gorm:"type:varchar(3);not null"`
	// ApplyDBRate disables the catalog chain in favour of ManualRatePct when
	// false. Defaults to true at creation.
	ApplyDBRate     bool             `gorm:"column:apply_db_rate;not null"`
	ManualRatePct   *decimal.Decimal `gorm:"column:manual_rate_pct;type:numeric(9,4)"`
	CountryOfOrigin *string          `gorm:"column:country_of_origin;type:varchar(2)"`
	ClaimedProgram  *string          `gorm:"column:claimed_program;type:varchar(16)"`
	CreatedAt       time.Time        `gorm:"not null"`
	UpdatedAt       time.Time        `gorm:"not null"`
}

func (Invoice) TableName() string { return "invoices" }

// Country returns the normalized country of origin, or "" when unknown.
func (i *Invoice) Country() string {
	if i == nil || i.CountryOfOrigin == nil {
		return ""
	}
	return *i.CountryOfOrigin
}

// Program returns the claimed preference program, or "" when none.
func (i *Invoice) Program() string {
	if i == nil || i.ClaimedProgram == nil {
		return ""
	}
	return *i.ClaimedProgram
}

// InvoiceLine is read-only input to the allocation engine.
type InvoiceLine struct {
	ID        snowflake.ID    `gorm:"primaryKey"`
	InvoiceID snowflake.ID    `gorm:"column:invoice_id;not null;index"`
	SKUID     snowflake.ID    `gorm:"column:sku_id;not null;index"`
	Quantity  int64           `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(18,4);not null"`
	// UnitVolumeCC is the volume of one unit in cubic centimetres.
	UnitVolumeCC float64   `gorm:"column:unit_volume_cc;not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (InvoiceLine) TableName() string { return "invoice_lines" }

// VendorTotal is the extended vendor price of the line.
func (l InvoiceLine) VendorTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
}

// LineFilter narrows line queries. Zero values mean no restriction.
type LineFilter struct {
	InvoiceID   *snowflake.ID
	ContainerID *snowflake.ID
	InvoiceDate *time.Time
}
