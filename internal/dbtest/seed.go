package dbtest

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	shipmentdomain "github.com/smallbiznis/landedcost/internal/shipment/domain"
	tariffdomain "github.com/smallbiznis/landedcost/internal/tariff/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Seeder inserts fixture rows directly, bypassing services.
type Seeder struct {
	t    testing.TB
	db   *gorm.DB
	node *snowflake.Node
	now  time.Time
}

func NewSeeder(t testing.TB, db *gorm.DB, node *snowflake.Node) *Seeder {
	return &Seeder{t: t, db: db, node: node, now: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
}

func (s *Seeder) create(v any) {
	s.t.Helper()
	require.NoError(s.t, s.db.Create(v).Error)
}

func (s *Seeder) Container(number string) *shipmentdomain.Container {
	c := &shipmentdomain.Container{ID: s.node.Generate(), ContainerNumber: number, CreatedAt: s.now, UpdatedAt: s.now}
	s.create(c)
	return c
}

// Invoice inserts an invoice with ApplyDBRate set. mutate may adjust it
// before insert.
func (s *Seeder) Invoice(number string, mutate ...func(*shipmentdomain.Invoice)) *shipmentdomain.Invoice {
	inv := &shipmentdomain.Invoice{
		ID:            s.node.Generate(),
		InvoiceNumber: number,
		Currency:      "USD",
		ApplyDBRate:   true,
		CreatedAt:     s.now,
		UpdatedAt:     s.now,
	}
	for _, fn := range mutate {
		fn(inv)
	}
	s.create(inv)
	return inv
}

func (s *Seeder) SKU(code string, mutate ...func(*shipmentdomain.SKU)) *shipmentdomain.SKU {
	sku := &shipmentdomain.SKU{ID: s.node.Generate(), Code: code, CreatedAt: s.now, UpdatedAt: s.now}
	for _, fn := range mutate {
		fn(sku)
	}
	s.create(sku)
	return sku
}

func (s *Seeder) Line(invoice *shipmentdomain.Invoice, sku *shipmentdomain.SKU, qty int64, price string, volumeCC float64) *shipmentdomain.InvoiceLine {
	line := &shipmentdomain.InvoiceLine{
		ID:           s.node.Generate(),
		InvoiceID:    invoice.ID,
		SKUID:        sku.ID,
		Quantity:     qty,
		UnitPrice:    decimal.RequireFromString(price),
		UnitVolumeCC: volumeCC,
		CreatedAt:    s.now,
	}
	s.create(line)
	return line
}

func (s *Seeder) TariffCode(code string, ratePct *decimal.Decimal, complex bool) *tariffdomain.TariffCode {
	tc := &tariffdomain.TariffCode{
		ID:              s.node.Generate(),
		Code:            code,
		RatePct:         ratePct,
		HasComplexRates: complex,
		CreatedAt:       s.now,
		UpdatedAt:       s.now,
	}
	s.create(tc)
	return tc
}

func (s *Seeder) RateDetail(code *tariffdomain.TariffCode, country, program string, pct *decimal.Decimal, from time.Time, to *time.Time) *tariffdomain.RateDetail {
	d := &tariffdomain.RateDetail{
		ID:            s.node.Generate(),
		TariffCodeID:  code.ID,
		CountryCode:   country,
		Program:       program,
		AdValoremPct:  pct,
		EffectiveFrom: from,
		EffectiveTo:   to,
		CreatedAt:     s.now,
	}
	s.create(d)
	return d
}

// Pct parses a percentage literal.
func Pct(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func Date(v string) time.Time {
	t, err := time.ParseInLocation("2006-01-02", v, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}
