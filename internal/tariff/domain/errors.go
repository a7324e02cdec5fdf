package domain

import "errors"

var (
	ErrInvalidID             = errors.New("invalid_id")
	ErrInvalidCode           = errors.New("invalid_tariff_code")
	ErrInvalidRate           = errors.New("invalid_rate")
	ErrInvalidCountry        = errors.New("invalid_country")
	ErrInvalidEffectiveDate  = errors.New("invalid_effective_date")
	ErrInvalidEffectiveRange = errors.New("invalid_effective_range")
	ErrCodeNotFound          = errors.New("tariff_code_not_found")
	ErrInvoiceNotFound       = errors.New("invoice_not_found")
	ErrLineNotFound          = errors.New("invoice_line_not_found")
)
