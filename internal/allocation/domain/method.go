package domain

import (
	"strings"

	"github.com/shopspring/decimal"
	shipmentdomain "github.com/smallbiznis/landedcost/internal/shipment/domain"
)

type MethodCode string

const (
	MethodByPrice              MethodCode = "BY_PRICE"
	MethodByVolume             MethodCode = "BY_VOLUME"
	MethodByQuantity           MethodCode = "BY_QUANTITY"
	MethodByPriceTimesQuantity MethodCode = "BY_PRICE_TIMES_QUANTITY"
	MethodEqually              MethodCode = "EQUALLY"
)

// Method weighs a line for proportional allocation.
type Method interface {
	Code() MethodCode
	Weight(line shipmentdomain.InvoiceLine) decimal.Decimal
}

// ByPrice weighs a line by its extended vendor price.
type ByPrice struct{}

// ByPriceTimesQuantity is stored separately from ByPrice but weighs lines the
// same way, since the vendor price is already per unit.
type ByPriceTimesQuantity struct{}

type ByVolume struct{}

type ByQuantity struct{}

// Equally gives every line zero weight so the pool is split evenly.
type Equally struct{}

func (ByPrice) Code() MethodCode              { return MethodByPrice }
func (ByPriceTimesQuantity) Code() MethodCode { return MethodByPriceTimesQuantity }
func (ByVolume) Code() MethodCode             { return MethodByVolume }
func (ByQuantity) Code() MethodCode           { return MethodByQuantity }
func (Equally) Code() MethodCode              { return MethodEqually }

func (ByPrice) Weight(line shipmentdomain.InvoiceLine) decimal.Decimal {
	return line.VendorTotal()
}

func (ByPriceTimesQuantity) Weight(line shipmentdomain.InvoiceLine) decimal.Decimal {
	return line.VendorTotal()
}

func (ByVolume) Weight(line shipmentdomain.InvoiceLine) decimal.Decimal {
	return decimal.NewFromFloat(line.UnitVolumeCC).Mul(decimal.NewFromInt(line.Quantity))
}

func (ByQuantity) Weight(line shipmentdomain.InvoiceLine) decimal.Decimal {
	return decimal.NewFromInt(line.Quantity)
}

func (Equally) Weight(shipmentdomain.InvoiceLine) decimal.Decimal {
	return decimal.Zero
}

func ParseMethod(value string) (Method, error) {
	return MethodFor(MethodCode(strings.ToUpper(strings.TrimSpace(value))))
}

func MethodFor(code MethodCode) (Method, error) {
	switch code {
	case MethodByPrice:
		return ByPrice{}, nil
	case MethodByPriceTimesQuantity:
		return ByPriceTimesQuantity{}, nil
	case MethodByVolume:
		return ByVolume{}, nil
	case MethodByQuantity:
		return ByQuantity{}, nil
	case MethodEqually:
		return Equally{}, nil
	default:
		return nil, ErrInvalidMethod
	}
}
