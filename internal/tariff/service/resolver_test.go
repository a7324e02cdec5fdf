package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/landedcost/internal/config"
	"github.com/smallbiznis/landedcost/internal/dbtest"
	shipmentdomain "github.com/smallbiznis/landedcost/internal/shipment/domain"
	tariffdomain "github.com/smallbiznis/landedcost/internal/tariff/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_FallbackChain(t *testing.T) {
	cases := []struct {
		name       string
		override   *decimal.Decimal
		applyDB    bool
		manual     *decimal.Decimal
		wantTariff string
		wantSource tariffdomain.RateSource
	}{
		{name: "flat code rate", applyDB: true, wantTariff: "50.00", wantSource: tariffdomain.RateSourceCodeFlat},
		{name: "sku override", override: dbtest.Pct("7.5"), applyDB: true, wantTariff: "75.00", wantSource: tariffdomain.RateSourceSKUOverride},
		{name: "manual rate", override: dbtest.Pct("7.5"), applyDB: false, manual: dbtest.Pct("10"), wantTariff: "100.00", wantSource: tariffdomain.RateSourceManual},
		{name: "manual rate missing", override: dbtest.Pct("7.5"), applyDB: false, wantTariff: "75.00", wantSource: tariffdomain.RateSourceSKUOverride},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, config.DefaultTariffPolicy())
			code := f.seed.TariffCode("8471.30.0100", dbtest.Pct("5"), false)
			sku := f.seed.SKU("SKU-1", func(s *shipmentdomain.SKU) {
				s.TariffCodeID = &code.ID
				s.RateOverridePct = tc.override
			})
			inv := f.seed.Invoice("INV-1", func(i *shipmentdomain.Invoice) {
				i.ApplyDBRate = tc.applyDB
				i.ManualRatePct = tc.manual
			})
			line := f.seed.Line(inv, sku, 10, "100", 0)

			rate, err := f.resolver.Resolve(context.Background(), inv, line)
			require.NoError(t, err)
			assert.Equal(t, tc.wantSource, rate.Source)

			pool, err := f.accumulator.ComputeTariffPool(context.Background(), inv.ID.String())
			require.NoError(t, err)
			assert.Equal(t, tc.wantTariff, pool.AmountTotal.StringFixed(2))
		})
	}
}

func TestResolve_NoSKUCodeOrRate(t *testing.T) {
	f := newFixture(t, config.DefaultTariffPolicy())
	inv := f.seed.Invoice("INV-1")

	bare := f.seed.SKU("SKU-BARE")
	rate, err := f.resolver.Resolve(context.Background(), inv, f.seed.Line(inv, bare, 1, "10", 0))
	require.NoError(t, err)
	assert.Equal(t, tariffdomain.RateSourceNone, rate.Source)
	assert.True(t, rate.Pct.IsZero())

	code := f.seed.TariffCode("9999.00", nil, false)
	linked := f.seed.SKU("SKU-NULL-RATE", func(s *shipmentdomain.SKU) { s.TariffCodeID = &code.ID })
	rate, err = f.resolver.Resolve(context.Background(), inv, f.seed.Line(inv, linked, 1, "10", 0))
	require.NoError(t, err)
	assert.Equal(t, tariffdomain.RateSourceCodeFlat, rate.Source)
	assert.True(t, rate.Pct.IsZero())

	orphan := &shipmentdomain.InvoiceLine{ID: 1, InvoiceID: inv.ID, SKUID: 12345, Quantity: 1, UnitPrice: decimal.NewFromInt(1)}
	rate, err = f.resolver.Resolve(context.Background(), inv, orphan)
	require.NoError(t, err)
	assert.Equal(t, tariffdomain.RateSourceNone, rate.Source)
}

func TestResolve_RateDetails(t *testing.T) {
	f := newFixture(t, config.DefaultTariffPolicy())
	code := f.seed.TariffCode("6109.10.0012", dbtest.Pct("16.5"), true)
	sku := f.seed.SKU("TSHIRT", func(s *shipmentdomain.SKU) { s.TariffCodeID = &code.ID })

	f.seed.RateDetail(code, "", "", dbtest.Pct("12"), dbtest.Date("2023-01-01"), nil)
	f.seed.RateDetail(code, "CN", "", dbtest.Pct("20"), dbtest.Date("2023-01-01"), nil)
	f.seed.RateDetail(code, "CN", "", dbtest.Pct("25"), dbtest.Date("2024-01-01"), nil)
	expired := dbtest.Date("2023-12-31")
	f.seed.RateDetail(code, "VN", "", dbtest.Pct("8"), dbtest.Date("2023-01-01"), &expired)
	f.seed.RateDetail(code, "MX", "", dbtest.Pct("4"), dbtest.Date("2023-01-01"), nil)
	f.seed.RateDetail(code, "MX", "S", dbtest.Pct("0"), dbtest.Date("2023-01-01"), nil)
	f.seed.RateDetail(code, "KR", "", nil, dbtest.Date("2023-01-01"), nil)

	invoice := func(country, program, date string) *shipmentdomain.Invoice {
		return f.seed.Invoice("INV-"+country+program+date, func(i *shipmentdomain.Invoice) {
			if country != "" {
				i.CountryOfOrigin = &country
			}
			if program != "" {
				i.ClaimedProgram = &program
			}
			if date != "" {
				d := dbtest.Date(date)
				i.InvoiceDate = &d
			}
		})
	}

	cases := []struct {
		name       string
		invoice    *shipmentdomain.Invoice
		wantPct    string
		wantSource tariffdomain.RateSource
	}{
		{"latest country rate", invoice("CN", "", "2024-06-01"), "25", tariffdomain.RateSourceRateDetail},
		{"older country rate", invoice("CN", "", "2023-06-01"), "20", tariffdomain.RateSourceRateDetail},
		{"effective_to is inclusive", invoice("VN", "", "2023-12-31"), "8", tariffdomain.RateSourceRateDetail},
		{"expired falls back to blank country", invoice("VN", "", "2024-01-01"), "12", tariffdomain.RateSourceRateDetail},
		{"blank country for other origins", invoice("DE", "", "2024-01-01"), "12", tariffdomain.RateSourceRateDetail},
		{"program preferred", invoice("MX", "S", "2024-01-01"), "0", tariffdomain.RateSourceRateDetail},
		{"no program claimed", invoice("MX", "", "2024-01-01"), "4", tariffdomain.RateSourceRateDetail},
		{"unrelated program ignored", invoice("MX", "A", "2024-01-01"), "4", tariffdomain.RateSourceRateDetail},
		{"null detail pct is zero", invoice("KR", "", "2024-01-01"), "0", tariffdomain.RateSourceRateDetail},
		{"before any detail", invoice("CN", "", "2022-06-01"), "16.5", tariffdomain.RateSourceCodeFlat},
		{"no date uses flat rate", invoice("CN", "", ""), "16.5", tariffdomain.RateSourceCodeFlat},
		{"no country uses flat rate", invoice("", "", "2024-06-01"), "16.5", tariffdomain.RateSourceCodeFlat},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			line := &shipmentdomain.InvoiceLine{ID: 1, InvoiceID: tc.invoice.ID, SKUID: sku.ID, Quantity: 1, UnitPrice: decimal.NewFromInt(100)}
			rate, err := f.resolver.Resolve(context.Background(), tc.invoice, line)
			require.NoError(t, err)
			assert.Equal(t, tc.wantSource, rate.Source)
			assert.True(t, rate.Pct.Equal(decimal.RequireFromString(tc.wantPct)), "got %s", rate.Pct)
			assert.Equal(t, code.Code, rate.TariffCode)
		})
	}
}
