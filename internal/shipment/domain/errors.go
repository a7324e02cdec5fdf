package domain

import "errors"

var (
	ErrInvalidID              = errors.New("invalid_id")
	ErrNotFound               = errors.New("not_found")
	ErrInvalidContainerNumber = errors.New("invalid_container_number")
	ErrDuplicateContainer     = errors.New("duplicate_container")
	ErrInvalidInvoiceNumber   = errors.New("invalid_invoice_number")
	ErrInvalidInvoiceDate     = errors.New("invalid_invoice_date")
	ErrInvalidCurrency        = errors.New("invalid_currency")
	ErrInvalidManualRate      = errors.New("invalid_manual_rate")
	ErrInvalidLines           = errors.New("invalid_lines")
	ErrInvalidQuantity        = errors.New("invalid_quantity")
	ErrInvalidUnitPrice       = errors.New("invalid_unit_price")
	ErrInvalidVolume          = errors.New("invalid_volume")
	ErrInvalidSKUCode         = errors.New("invalid_sku_code")
	ErrInvalidRateOverride    = errors.New("invalid_rate_override")
	ErrSKUNotFound            = errors.New("sku_not_found")
	ErrContainerNotFound      = errors.New("container_not_found")
)
