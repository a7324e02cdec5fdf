// Package engine splits a pool amount across invoice lines.
//
// Each line receives total × weight / normalizer, where the normalizer is the
// sum of line weights for the pool method. Shares are rounded to cents and the
// rounding remainder is added to the largest share so the shares always sum
// to the pool total.
package engine

import (
	"sort"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	allocationdomain "github.com/smallbiznis/landedcost/internal/allocation/domain"
	shipmentdomain "github.com/smallbiznis/landedcost/internal/shipment/domain"
)

const centPlaces = 2

// Share is the amount assigned to one line.
type Share struct {
	LineID snowflake.ID
	Amount decimal.Decimal
}

type Result struct {
	Shares     []Share
	Normalizer decimal.Decimal
	// PennyAdjustment is what was added to the largest share after rounding.
	PennyAdjustment decimal.Decimal
}

func (r Result) PennyAdjusted() bool {
	return !r.PennyAdjustment.IsZero()
}

// Normalize sums the method weights of lines. It does not round.
func Normalize(method allocationdomain.Method, lines []shipmentdomain.InvoiceLine) decimal.Decimal {
	sum := decimal.Zero
	for _, line := range lines {
		sum = sum.Add(method.Weight(line))
	}
	return sum
}

// Allocate spreads total over lines. Lines are processed in id order and the
// returned shares follow that order. An empty line set yields no shares.
func Allocate(total decimal.Decimal, method allocationdomain.Method, lines []shipmentdomain.InvoiceLine) Result {
	ordered := make([]shipmentdomain.InvoiceLine, len(lines))
	copy(ordered, lines)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	normalizer := Normalize(method, ordered)
	result := Result{Normalizer: normalizer}
	if len(ordered) == 0 {
		return result
	}

	shares := make([]Share, len(ordered))
	if normalizer.IsZero() {
		each := total.Div(decimal.NewFromInt(int64(len(ordered))))
		for i, line := range ordered {
			shares[i] = Share{LineID: line.ID, Amount: each}
		}
	} else {
		for i, line := range ordered {
			// multiply before dividing to keep precision
			amount := total.Mul(method.Weight(line)).Div(normalizer)
			shares[i] = Share{LineID: line.ID, Amount: amount}
		}
	}

	result.PennyAdjustment = FixPennies(total, shares)
	result.Shares = shares
	return result
}

// FixPennies rounds every share to cents with banker's rounding and adds the
// remainder to the largest share by signed amount, the lowest line id
// winning ties. Shares must be ordered by line id. It returns the remainder.
func FixPennies(total decimal.Decimal, shares []Share) decimal.Decimal {
	if len(shares) == 0 {
		return decimal.Zero
	}

	sum := decimal.Zero
	for i := range shares {
		shares[i].Amount = shares[i].Amount.RoundBank(centPlaces)
		sum = sum.Add(shares[i].Amount)
	}

	diff := total.RoundBank(centPlaces).Sub(sum)
	if diff.IsZero() {
		return decimal.Zero
	}

	largest := 0
	for i := 1; i < len(shares); i++ {
		if shares[i].Amount.GreaterThan(shares[largest].Amount) {
			largest = i
		}
	}
	shares[largest].Amount = shares[largest].Amount.Add(diff)
	return diff
}
