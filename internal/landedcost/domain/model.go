package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidID   = errors.New("invalid_id")
	ErrInvalidDate = errors.New("invalid_invoice_date")
)

// CostBucket is the landed cost column an allocation contributes to.
type CostBucket string

const (
	BucketFreight CostBucket = "freight"
	BucketTariff  CostBucket = "tariff"
	BucketOther   CostBucket = "other"
)

// LineCost is the landed cost breakdown of one invoice line.
type LineCost struct {
	LineID         string          `json:"line_id"`
	InvoiceID      string          `json:"invoice_id"`
	InvoiceNumber  string          `json:"invoice_number"`
	SKUID          string          `json:"sku_id"`
	SKUCode        string          `json:"sku_code"`
	Quantity       int64           `json:"quantity"`
	VendorCost     decimal.Decimal `json:"vendor_cost"`
	Freight        decimal.Decimal `json:"freight"`
	Tariff         decimal.Decimal `json:"tariff"`
	Other          decimal.Decimal `json:"other"`
	Total          decimal.Decimal `json:"total"`
	UnitLandedCost decimal.Decimal `json:"unit_landed_cost"`
}

type SKUCost struct {
	SKUID          string          `json:"sku_id"`
	SKUCode        string          `json:"sku_code"`
	Quantity       int64           `json:"quantity"`
	Total          decimal.Decimal `json:"total"`
	UnitLandedCost decimal.Decimal `json:"unit_landed_cost"`
}

// Filter narrows the lines reported. Empty fields apply no restriction.
type Filter struct {
	InvoiceID   string
	ContainerID string
	// InvoiceDate is formatted 2006-01-02.
	InvoiceDate string
}
