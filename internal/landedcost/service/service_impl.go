package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	allocationdomain "github.com/smallbiznis/landedcost/internal/allocation/domain"
	"github.com/smallbiznis/landedcost/internal/config"
	landedcostdomain "github.com/smallbiznis/landedcost/internal/landedcost/domain"
	shipmentdomain "github.com/smallbiznis/landedcost/internal/shipment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	ShipmentRepo   shipmentdomain.Repository
	AllocationRepo allocationdomain.Repository
	Policy         *config.TariffPolicyHolder
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	shipmentRepo   shipmentdomain.Repository
	allocationRepo allocationdomain.Repository
	policy         *config.TariffPolicyHolder
}

func NewService(p ServiceParam) landedcostdomain.Service {
	policy := p.Policy
	if policy == nil {
		policy = config.NewStaticTariffPolicyHolder(config.DefaultTariffPolicy())
	}
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("landedcost.service"),
		shipmentRepo:   p.ShipmentRepo,
		allocationRepo: p.AllocationRepo,
		policy:         policy,
	}
}

// LineCosts reports vendor cost plus allocated freight, tariff and other
// costs per line, in line id order.
func (s *Service) LineCosts(ctx context.Context, filter landedcostdomain.Filter) ([]landedcostdomain.LineCost, error) {
	lineFilter, err := toLineFilter(filter)
	if err != nil {
		return nil, err
	}
	lines, err := s.shipmentRepo.ListLines(ctx, lineFilter)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return []landedcostdomain.LineCost{}, nil
	}

	lineIDs := make([]snowflake.ID, 0, len(lines))
	invoiceIDs := make([]snowflake.ID, 0)
	skuIDs := make([]snowflake.ID, 0)
	seenInvoice := map[snowflake.ID]bool{}
	seenSKU := map[snowflake.ID]bool{}
	for _, line := range lines {
		lineIDs = append(lineIDs, line.ID)
		if !seenInvoice[line.InvoiceID] {
			seenInvoice[line.InvoiceID] = true
			invoiceIDs = append(invoiceIDs, line.InvoiceID)
		}
		if !seenSKU[line.SKUID] {
			seenSKU[line.SKUID] = true
			skuIDs = append(skuIDs, line.SKUID)
		}
	}

	invoices, err := s.shipmentRepo.FindInvoicesByIDs(ctx, invoiceIDs)
	if err != nil {
		return nil, err
	}
	invoiceNumbers := make(map[snowflake.ID]string, len(invoices))
	for _, inv := range invoices {
		invoiceNumbers[inv.ID] = inv.InvoiceNumber
	}

	skus, err := s.shipmentRepo.FindSKUsByIDs(ctx, skuIDs)
	if err != nil {
		return nil, err
	}
	skuCodes := make(map[snowflake.ID]string, len(skus))
	for _, sku := range skus {
		skuCodes[sku.ID] = sku.Code
	}

	allocations, err := s.allocationRepo.ListAllocationsForLines(ctx, s.db, lineIDs)
	if err != nil {
		return nil, err
	}

	policy := s.policy.Get()
	type buckets struct{ freight, tariff, other decimal.Decimal }
	byLine := make(map[snowflake.ID]*buckets, len(lines))
	for _, a := range allocations {
		b := byLine[a.InvoiceLineID]
		if b == nil {
			b = &buckets{}
			byLine[a.InvoiceLineID] = b
		}
		switch Classify(policy, a.PoolKind, a.PoolName) {
		case landedcostdomain.BucketFreight:
			b.freight = b.freight.Add(a.Amount)
		case landedcostdomain.BucketTariff:
			b.tariff = b.tariff.Add(a.Amount)
		default:
			b.other = b.other.Add(a.Amount)
		}
	}

	out := make([]landedcostdomain.LineCost, 0, len(lines))
	for _, line := range lines {
		b := byLine[line.ID]
		if b == nil {
			b = &buckets{}
		}
		vendor := line.VendorTotal()
		total := vendor.Add(b.freight).Add(b.tariff).Add(b.other)
		out = append(out, landedcostdomain.LineCost{
			LineID:         line.ID.String(),
			InvoiceID:      line.InvoiceID.String(),
			InvoiceNumber:  invoiceNumbers[line.InvoiceID],
			SKUID:          line.SKUID.String(),
			SKUCode:        skuCodes[line.SKUID],
			Quantity:       line.Quantity,
			VendorCost:     vendor,
			Freight:        b.freight,
			Tariff:         b.tariff,
			Other:          b.other,
			Total:          total,
			UnitLandedCost: unitCost(total, line.Quantity),
		})
	}
	return out, nil
}

// SKUCosts rolls line costs up per SKU, ordered by SKU code.
func (s *Service) SKUCosts(ctx context.Context, filter landedcostdomain.Filter) ([]landedcostdomain.SKUCost, error) {
	lines, err := s.LineCosts(ctx, filter)
	if err != nil {
		return nil, err
	}

	index := map[string]int{}
	out := []landedcostdomain.SKUCost{}
	for _, line := range lines {
		i, ok := index[line.SKUID]
		if !ok {
			i = len(out)
			index[line.SKUID] = i
			out = append(out, landedcostdomain.SKUCost{SKUID: line.SKUID, SKUCode: line.SKUCode})
		}
		out[i].Quantity += line.Quantity
		out[i].Total = out[i].Total.Add(line.Total)
	}
	for i := range out {
		out[i].UnitLandedCost = unitCost(out[i].Total, out[i].Quantity)
	}

	sortSKUCosts(out)
	return out, nil
}

// Classify maps a pool to the landed cost column its allocations count
// toward. Custom pools carrying the reserved freight name count as freight.
func Classify(policy config.TariffPolicy, kind allocationdomain.PoolKind, name string) landedcostdomain.CostBucket {
	switch kind {
	case allocationdomain.PoolKindFreight:
		return landedcostdomain.BucketFreight
	case allocationdomain.PoolKindTariff, allocationdomain.PoolKindSurtax:
		return landedcostdomain.BucketTariff
	}
	if policy.IsFreightPool(name) {
		return landedcostdomain.BucketFreight
	}
	return landedcostdomain.BucketOther
}

func unitCost(total decimal.Decimal, qty int64) decimal.Decimal {
	if qty == 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(qty)).RoundBank(2)
}

func toLineFilter(filter landedcostdomain.Filter) (shipmentdomain.LineFilter, error) {
	out := shipmentdomain.LineFilter{}
	if v := strings.TrimSpace(filter.InvoiceID); v != "" {
		id, err := snowflake.ParseString(v)
		if err != nil {
			return out, landedcostdomain.ErrInvalidID
		}
		out.InvoiceID = &id
	}
	if v := strings.TrimSpace(filter.ContainerID); v != "" {
		id, err := snowflake.ParseString(v)
		if err != nil {
			return out, landedcostdomain.ErrInvalidID
		}
		out.ContainerID = &id
	}
	if v := strings.TrimSpace(filter.InvoiceDate); v != "" {
		date, err := time.ParseInLocation("2006-01-02", v, time.UTC)
		if err != nil {
			return out, landedcostdomain.ErrInvalidDate
		}
		out.InvoiceDate = &date
	}
	return out, nil
}
