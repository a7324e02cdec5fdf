package engine

import (
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	allocationdomain "github.com/smallbiznis/landedcost/internal/allocation/domain"
	shipmentdomain "github.com/smallbiznis/landedcost/internal/shipment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(id int64, qty int64, price string, volume float64) shipmentdomain.InvoiceLine {
	return shipmentdomain.InvoiceLine{
		ID:           snowflake.ID(id),
		Quantity:     qty,
		UnitPrice:    decimal.RequireFromString(price),
		UnitVolumeCC: volume,
	}
}

func amounts(shares []Share) []string {
	out := make([]string, len(shares))
	for i, s := range shares {
		out[i] = s.Amount.StringFixed(2)
	}
	return out
}

func sum(shares []Share) decimal.Decimal {
	total := decimal.Zero
	for _, s := range shares {
		total = total.Add(s.Amount)
	}
	return total
}

func TestNormalize(t *testing.T) {
	lines := []shipmentdomain.InvoiceLine{
		line(1, 2, "10.50", 1000.5),
		line(2, 3, "4", 250),
	}

	cases := []struct {
		method allocationdomain.Method
		want   string
	}{
		{allocationdomain.ByPrice{}, "33"},
		{allocationdomain.ByPriceTimesQuantity{}, "33"},
		{allocationdomain.ByVolume{}, "2751"},
		{allocationdomain.ByQuantity{}, "5"},
		{allocationdomain.Equally{}, "0"},
	}
	for _, tc := range cases {
		t.Run(string(tc.method.Code()), func(t *testing.T) {
			got := Normalize(tc.method, lines)
			assert.True(t, got.Equal(decimal.RequireFromString(tc.want)), "got %s", got)
		})
	}
}

func TestAllocate_SingleLineTakesWholePool(t *testing.T) {
	res := Allocate(decimal.RequireFromString("123.45"), allocationdomain.ByPrice{}, []shipmentdomain.InvoiceLine{
		line(7, 3, "9.99", 10),
	})
	require.Len(t, res.Shares, 1)
	assert.Equal(t, snowflake.ID(7), res.Shares[0].LineID)
	assert.Equal(t, "123.45", res.Shares[0].Amount.StringFixed(2))
	assert.False(t, res.PennyAdjusted())
}

func TestAllocate_ByPriceIsProportional(t *testing.T) {
	res := Allocate(decimal.NewFromInt(300), allocationdomain.ByPrice{}, []shipmentdomain.InvoiceLine{
		line(1, 1, "100", 0),
		line(2, 1, "200", 0),
	})
	assert.Equal(t, []string{"100.00", "200.00"}, amounts(res.Shares))
}

func TestAllocate_ByPriceEqualLines(t *testing.T) {
	res := Allocate(decimal.NewFromInt(50), allocationdomain.ByPrice{}, []shipmentdomain.InvoiceLine{
		line(1, 1, "10", 0),
		line(2, 1, "10", 0),
	})
	assert.Equal(t, []string{"25.00", "25.00"}, amounts(res.Shares))
}

func TestAllocate_ByVolume(t *testing.T) {
	res := Allocate(decimal.NewFromInt(100), allocationdomain.ByVolume{}, []shipmentdomain.InvoiceLine{
		line(1, 1, "50", 1000),
		line(2, 1, "50", 3000),
	})
	assert.Equal(t, []string{"25.00", "75.00"}, amounts(res.Shares))
}

func TestAllocate_ByQuantity(t *testing.T) {
	res := Allocate(decimal.NewFromInt(80), allocationdomain.ByQuantity{}, []shipmentdomain.InvoiceLine{
		line(1, 1, "500", 0),
		line(2, 3, "1", 0),
	})
	assert.Equal(t, []string{"20.00", "60.00"}, amounts(res.Shares))
}

func TestAllocate_EqualSplitOnZeroWeights(t *testing.T) {
	lines := []shipmentdomain.InvoiceLine{
		line(1, 0, "0", 0),
		line(2, 0, "0", 0),
		line(3, 0, "0", 0),
	}

	for _, method := range []allocationdomain.Method{allocationdomain.ByPrice{}, allocationdomain.Equally{}} {
		t.Run(string(method.Code()), func(t *testing.T) {
			res := Allocate(decimal.NewFromInt(100), method, lines)
			assert.True(t, res.Normalizer.IsZero())
			assert.Equal(t, []string{"33.34", "33.33", "33.33"}, amounts(res.Shares))
			assert.True(t, res.PennyAdjusted())
		})
	}
}

func TestAllocate_PennyGoesToLargestShare(t *testing.T) {
	res := Allocate(decimal.NewFromInt(1), allocationdomain.ByQuantity{}, []shipmentdomain.InvoiceLine{
		line(1, 1, "1", 0),
		line(2, 1, "1", 0),
		line(3, 4, "1", 0),
	})
	assert.Equal(t, []string{"0.17", "0.17", "0.66"}, amounts(res.Shares))
	assert.Equal(t, "-0.01", res.PennyAdjustment.String())
}

func TestAllocate_TieBreaksOnLowestLineID(t *testing.T) {
	res := Allocate(decimal.NewFromInt(10), allocationdomain.ByQuantity{}, []shipmentdomain.InvoiceLine{
		line(30, 1, "1", 0),
		line(10, 1, "1", 0),
		line(20, 1, "1", 0),
	})
	require.Len(t, res.Shares, 3)
	assert.Equal(t, snowflake.ID(10), res.Shares[0].LineID)
	assert.Equal(t, []string{"3.34", "3.33", "3.33"}, amounts(res.Shares))
}

func TestAllocate_UsesBankersRounding(t *testing.T) {
	res := Allocate(decimal.RequireFromString("0.05"), allocationdomain.ByQuantity{}, []shipmentdomain.InvoiceLine{
		line(1, 1, "1", 0),
		line(2, 1, "1", 0),
	})
	// 0.025 rounds half to even, leaving a cent for the first line
	assert.Equal(t, []string{"0.03", "0.02"}, amounts(res.Shares))
}

func TestAllocate_NegativeTotal(t *testing.T) {
	res := Allocate(decimal.NewFromInt(-10), allocationdomain.ByQuantity{}, []shipmentdomain.InvoiceLine{
		line(1, 1, "1", 0),
		line(2, 1, "1", 0),
		line(3, 1, "1", 0),
	})
	assert.Equal(t, []string{"-3.34", "-3.33", "-3.33"}, amounts(res.Shares))
	assert.True(t, sum(res.Shares).Equal(decimal.NewFromInt(-10)))

	// the cent lands on the largest signed share, not the largest magnitude
	res = Allocate(decimal.NewFromInt(-1), allocationdomain.ByQuantity{}, []shipmentdomain.InvoiceLine{
		line(1, 1, "1", 0),
		line(2, 1, "1", 0),
		line(3, 4, "1", 0),
	})
	assert.Equal(t, []string{"-0.16", "-0.17", "-0.67"}, amounts(res.Shares))
	assert.True(t, res.PennyAdjustment.Equal(decimal.RequireFromString("0.01")))
	assert.True(t, sum(res.Shares).Equal(decimal.NewFromInt(-1)))
}

func TestAllocate_EmptyLineSet(t *testing.T) {
	res := Allocate(decimal.NewFromInt(100), allocationdomain.ByPrice{}, nil)
	assert.Empty(t, res.Shares)
	assert.False(t, res.PennyAdjusted())
}

func TestAllocate_SumMatchesTotal(t *testing.T) {
	methods := []allocationdomain.Method{
		allocationdomain.ByPrice{},
		allocationdomain.ByVolume{},
		allocationdomain.ByQuantity{},
		allocationdomain.ByPriceTimesQuantity{},
		allocationdomain.Equally{},
	}
	totals := []string{"0.01", "1", "99.99", "1000.03", "12345.67", "-45.11"}

	for n := 1; n <= 7; n++ {
		lines := make([]shipmentdomain.InvoiceLine, n)
		for i := 0; i < n; i++ {
			lines[i] = line(int64(i+1), int64(i*3+1), fmt.Sprintf("%d.%02d", i*7+1, (i*13)%100), float64(i*11+3)/3)
		}
		for _, method := range methods {
			for _, total := range totals {
				want := decimal.RequireFromString(total)
				res := Allocate(want, method, lines)
				require.Len(t, res.Shares, n)
				assert.True(t, sum(res.Shares).Equal(want), "%s n=%d total=%s got %s", method.Code(), n, total, sum(res.Shares))
				for _, s := range res.Shares {
					assert.True(t, s.Amount.Equal(s.Amount.Round(2)))
				}
			}
		}
	}
}

func TestAllocate_DoesNotMutateInput(t *testing.T) {
	lines := []shipmentdomain.InvoiceLine{line(2, 1, "1", 0), line(1, 1, "1", 0)}
	Allocate(decimal.NewFromInt(2), allocationdomain.ByQuantity{}, lines)
	assert.Equal(t, snowflake.ID(2), lines[0].ID)
}
