package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Service interface {
	CreateContainer(ctx context.Context, req CreateContainerRequest) (*ContainerResponse, error)
	CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*InvoiceResponse, error)
	GetInvoice(ctx context.Context, id string) (*InvoiceResponse, error)
	UpdateInvoice(ctx context.Context, id string, req UpdateInvoiceRequest) (*InvoiceResponse, error)
	UpsertSKU(ctx context.Context, req UpsertSKURequest) (*SKUResponse, error)
}

type CreateContainerRequest struct {
	ContainerNumber string  `json:"container_number"`
	Notes           *string `json:"notes"`
}

type ContainerResponse struct {
	ID              string    `json:"id"`
	ContainerNumber string    `json:"container_number"`
	Notes           *string   `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type CreateInvoiceRequest struct {
	InvoiceNumber   string              `json:"invoice_number"`
	InvoiceDate     *string             `json:"invoice_date"`
	ContainerNumber *string             `json:"container_number"`
	PONumber        *string             `json:"po_number"`
	Currency        string              `json:"currency"`
	ApplyDBRate     *bool               `json:"apply_db_rate"`
	ManualRatePct   *decimal.Decimal    `json:"manual_rate_pct"`
	CountryOfOrigin *string             `json:"country_of_origin"`
	ClaimedProgram  *string             `json:"claimed_program"`
	Lines           []CreateLineRequest `json:"lines"`
}

// UpdateInvoiceRequest changes the header of an invoice. Nil fields are left
// untouched and an empty string clears an optional field.
type UpdateInvoiceRequest struct {
	InvoiceDate     *string          `json:"invoice_date"`
	PONumber        *string          `json:"po_number"`
	ApplyDBRate     *bool            `json:"apply_db_rate"`
	ManualRatePct   *decimal.Decimal `json:"manual_rate_pct"`
	ClearManualRate bool             `json:"clear_manual_rate"`
	CountryOfOrigin *string          `json:"country_of_origin"`
	ClaimedProgram  *string          `json:"claimed_program"`
}

type CreateLineRequest struct {
	SKUCode      string          `json:"sku_code"`
	Quantity     int64           `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	UnitVolumeCC float64         `json:"unit_volume_cc"`
}

type InvoiceResponse struct {
	ID              string           `json:"id"`
	InvoiceNumber   string           `json:"invoice_number"`
	InvoiceDate     *string          `json:"invoice_date,omitempty"`
	ContainerID     *string          `json:"container_id,omitempty"`
	PONumber        *string          `json:"po_number,omitempty"`
	Currency        string           `json:"currency"`
	ApplyDBRate     bool             `json:"apply_db_rate"`
	ManualRatePct   *decimal.Decimal `json:"manual_rate_pct,omitempty"`
	CountryOfOrigin *string          `json:"country_of_origin,omitempty"`
	ClaimedProgram  *string          `json:"claimed_program,omitempty"`
	VendorTotal     decimal.Decimal  `json:"vendor_total"`
	Lines           []LineResponse   `json:"lines"`
	CreatedAt       time.Time        `json:"created_at"`
}

type LineResponse struct {
	ID           string          `json:"id"`
	SKUID        string          `json:"sku_id"`
	Quantity     int64           `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	UnitVolumeCC float64         `json:"unit_volume_cc"`
	VendorTotal  decimal.Decimal `json:"vendor_total"`
}

type UpsertSKURequest struct {
	Code            string           `json:"code"`
	Description     *string          `json:"description"`
	TariffCode      *string          `json:"tariff_code"`
	RateOverridePct *decimal.Decimal `json:"rate_override_pct"`
}

type SKUResponse struct {
	ID              string           `json:"id"`
	Code            string           `json:"code"`
	Description     *string          `json:"description,omitempty"`
	TariffCodeID    *string          `json:"tariff_code_id,omitempty"`
	RateOverridePct *decimal.Decimal `json:"rate_override_pct,omitempty"`
}

func IDString(id *snowflake.ID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
