package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type PoolKind string

const (
	PoolKindCustom  PoolKind = "custom"
	PoolKindFreight PoolKind = "freight"
	PoolKindTariff  PoolKind = "tariff"
	PoolKindSurtax  PoolKind = "surtax"
)

// ParsePoolKind accepts the kinds a user may create directly.
func ParsePoolKind(value string) (PoolKind, error) {
	switch PoolKind(strings.ToLower(strings.TrimSpace(value))) {
	case "", PoolKindCustom:
		return PoolKindCustom, nil
	case PoolKindFreight:
		return PoolKindFreight, nil
	default:
		return "", ErrInvalidKind
	}
}

// IsSystem reports whether pools of this kind are maintained automatically.
func (k PoolKind) IsSystem() bool {
	return k == PoolKindTariff || k == PoolKindSurtax
}

// CostPool is a shared cost to be split across invoice lines.
type CostPool struct {
	ID          snowflake.ID    `gorm:"primaryKey"`
	Name        string          `gorm:"type:varchar(128);not null"`
	Kind        PoolKind        `gorm:"type:varchar(16);not null;index"`
	ScopeType   ScopeType       `gorm:"column:scope_type;type:varchar(16);not null"`
	Method      MethodCode      `gorm:"type:varchar(32);not null"`
	AmountTotal decimal.Decimal `gorm:"column:amount_total;type:numeric(18,2);not null"`
	InvoiceID   *snowflake.ID   `gorm:"column:invoice_id;index"`
	ContainerID *snowflake.ID   `gorm:"column:container_id;index"`
	AutoCompute bool            `gorm:"column:auto_compute;not null"`
	// SystemKey identifies automatic pools, one per kind and invoice.
	SystemKey *string   `gorm:"column:system_key;type:varchar(64);uniqueIndex"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (CostPool) TableName() string { return "cost_pools" }

// Scope rebuilds the typed scope from the stored columns.
func (p *CostPool) Scope() (Scope, error) {
	return NewScope(p.ScopeType, p.InvoiceID, p.ContainerID)
}

// SetScope stores the scope and clears the reference it does not use.
func (p *CostPool) SetScope(scope Scope) {
	p.ScopeType = scope.Type()
	p.InvoiceID = nil
	p.ContainerID = nil
	switch s := scope.(type) {
	case PerInvoice:
		id := s.InvoiceID
		p.InvoiceID = &id
	case PerContainer:
		id := s.ContainerID
		p.ContainerID = &id
	}
}

// Allocation is the share of a pool assigned to one invoice line.
type Allocation struct {
	ID            snowflake.ID    `gorm:"primaryKey"`
	CostPoolID    snowflake.ID    `gorm:"column:cost_pool_id;not null;index"`
	InvoiceLineID snowflake.ID    `gorm:"column:invoice_line_id;not null;index"`
	Amount        decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	CreatedAt     time.Time       `gorm:"not null"`
}

func (Allocation) TableName() string { return "allocations" }

// LineAllocation is an allocated amount joined with the kind and name of its
// pool.
type LineAllocation struct {
	InvoiceLineID snowflake.ID
	CostPoolID    snowflake.ID
	PoolKind      PoolKind
	PoolName      string
	Amount        decimal.Decimal
}

// SystemKey builds the unique key of an automatic pool.
func SystemKey(kind PoolKind, invoiceID snowflake.ID) string {
	return string(kind) + ":" + invoiceID.String()
}
