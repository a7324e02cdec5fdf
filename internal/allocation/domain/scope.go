package domain

import (
	"strings"

	"github.com/bwmarrin/snowflake"
)

type ScopeType string

const (
	ScopePerInvoice   ScopeType = "PER_INVOICE"
	ScopePerContainer ScopeType = "PER_CONTAINER"
	ScopeGlobal       ScopeType = "GLOBAL"
)

func ParseScopeType(value string) (ScopeType, error) {
	switch ScopeType(strings.ToUpper(strings.TrimSpace(value))) {
	case ScopePerInvoice:
		return ScopePerInvoice, nil
	case ScopePerContainer:
		return ScopePerContainer, nil
	case ScopeGlobal:
		return ScopeGlobal, nil
	default:
		return "", ErrInvalidScope
	}
}

// Scope selects the invoice lines a pool is spread over.
type Scope interface {
	Type() ScopeType
	isScope()
}

type PerInvoice struct {
	InvoiceID snowflake.ID
}

type PerContainer struct {
	ContainerID snowflake.ID
}

type Global struct{}

func (PerInvoice) Type() ScopeType   { return ScopePerInvoice }
func (PerContainer) Type() ScopeType { return ScopePerContainer }
func (Global) Type() ScopeType       { return ScopeGlobal }

func (PerInvoice) isScope()   {}
func (PerContainer) isScope() {}
func (Global) isScope()       {}

// NewScope validates that the reference required by t is present.
func NewScope(t ScopeType, invoiceID, containerID *snowflake.ID) (Scope, error) {
	switch t {
	case ScopePerInvoice:
		if invoiceID == nil || *invoiceID == 0 {
			return nil, ErrScopeReferenceRequired
		}
		return PerInvoice{InvoiceID: *invoiceID}, nil
	case ScopePerContainer:
		if containerID == nil || *containerID == 0 {
			return nil, ErrScopeReferenceRequired
		}
		return PerContainer{ContainerID: *containerID}, nil
	case ScopeGlobal:
		return Global{}, nil
	default:
		return nil, ErrInvalidScope
	}
}
