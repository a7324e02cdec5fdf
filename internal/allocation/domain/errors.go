package domain

import "errors"

var (
	ErrInvalidID              = errors.New("invalid_id")
	ErrNotFound               = errors.New("cost_pool_not_found")
	ErrInvalidName            = errors.New("invalid_pool_name")
	ErrInvalidKind            = errors.New("invalid_pool_kind")
	ErrInvalidMethod          = errors.New("invalid_allocation_method")
	ErrInvalidScope           = errors.New("invalid_allocation_scope")
	ErrInvalidAmount          = errors.New("invalid_pool_amount")
	ErrScopeReferenceRequired = errors.New("scope_reference_required")
	ErrSystemPoolReadOnly     = errors.New("system_pool_read_only")
	ErrInvoiceNotFound        = errors.New("invoice_not_found")
	ErrContainerNotFound      = errors.New("container_not_found")
)
