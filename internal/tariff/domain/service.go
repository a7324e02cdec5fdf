package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	allocationdomain "github.com/smallbiznis/landedcost/internal/allocation/domain"
	shipmentdomain "github.com/smallbiznis/landedcost/internal/shipment/domain"
)

// RateResolver picks the ad valorem percentage for one invoice line.
type RateResolver interface {
	Resolve(ctx context.Context, invoice *shipmentdomain.Invoice, line *shipmentdomain.InvoiceLine) (ResolvedRate, error)
}

// Accumulator maintains the per-invoice automatic duty pools.
type Accumulator interface {
	ComputeTariffPool(ctx context.Context, invoiceID string) (*allocationdomain.PoolResponse, error)
	ToggleTariff(ctx context.Context, invoiceID string) (*ToggleResponse, error)
	// RefreshTariffPool recomputes the tariff pool of an invoice unless tariff
	// has been toggled off, in which case it returns nil.
	RefreshTariffPool(ctx context.Context, invoiceID string) (*allocationdomain.PoolResponse, error)
	ResolveLineRate(ctx context.Context, invoiceID, lineID string) (*ResolvedRate, error)
}

type CatalogService interface {
	UpsertCode(ctx context.Context, req UpsertCodeRequest) (*CodeResponse, error)
	ListCodes(ctx context.Context, req ListCodesRequest) ([]CodeResponse, error)
	AddRateDetail(ctx context.Context, req AddRateDetailRequest) (*RateDetailResponse, error)
	ListRateDetails(ctx context.Context, code string) ([]RateDetailResponse, error)
}

type ToggleResponse struct {
	InvoiceID string                         `json:"invoice_id"`
	Enabled   bool                           `json:"enabled"`
	Pool      *allocationdomain.PoolResponse `json:"pool,omitempty"`
}

type UpsertCodeRequest struct {
	Code            string           `json:"code"`
	Description     *string          `json:"description"`
	RatePct         *decimal.Decimal `json:"rate_pct"`
	HasComplexRates bool             `json:"has_complex_rates"`
}

type ListCodesRequest struct {
	Code    string
	SortBy  string
	OrderBy string
}

type CodeResponse struct {
	ID              string           `json:"id"`
	Code            string           `json:"code"`
	Description     *string          `json:"description,omitempty"`
	RatePct         *decimal.Decimal `json:"rate_pct,omitempty"`
	HasComplexRates bool             `json:"has_complex_rates"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

type AddRateDetailRequest struct {
	Code          string           `json:"code"`
	CountryCode   string           `json:"country_code"`
	Program       string           `json:"program"`
	AdValoremPct  *decimal.Decimal `json:"ad_valorem_pct"`
	EffectiveFrom string           `json:"effective_from"`
	EffectiveTo   *string          `json:"effective_to"`
}

type RateDetailResponse struct {
	ID            string           `json:"id"`
	TariffCodeID  string           `json:"tariff_code_id"`
	CountryCode   string           `json:"country_code"`
	Program       string           `json:"program"`
	AdValoremPct  *decimal.Decimal `json:"ad_valorem_pct,omitempty"`
	EffectiveFrom string           `json:"effective_from"`
	EffectiveTo   *string          `json:"effective_to,omitempty"`
}
