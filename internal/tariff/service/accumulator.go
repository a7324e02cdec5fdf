package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	allocationdomain "github.com/smallbiznis/landedcost/internal/allocation/domain"
	"github.com/smallbiznis/landedcost/internal/config"
	"github.com/smallbiznis/landedcost/internal/observability/tracing"
	shipmentdomain "github.com/smallbiznis/landedcost/internal/shipment/domain"
	tariffdomain "github.com/smallbiznis/landedcost/internal/tariff/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	tariffPoolName = "Tariff"
	surtaxPoolName = "Surtax"
)

var hundred = decimal.NewFromInt(100)

type AccumulatorParam struct {
	fx.In

	Log          *zap.Logger
	ShipmentRepo shipmentdomain.Repository
	Resolver     tariffdomain.RateResolver
	Allocation   allocationdomain.Service
	Policy       *config.TariffPolicyHolder
}

type Accumulator struct {
	log          *zap.Logger
	shipmentRepo shipmentdomain.Repository
	resolver     tariffdomain.RateResolver
	allocation   allocationdomain.Service
	policy       *config.TariffPolicyHolder
}

func NewAccumulator(p AccumulatorParam) tariffdomain.Accumulator {
	policy := p.Policy
	if policy == nil {
		policy = config.NewStaticTariffPolicyHolder(config.DefaultTariffPolicy())
	}
	return &Accumulator{
		log:          p.Log.Named("tariff.service"),
		shipmentRepo: p.ShipmentRepo,
		resolver:     p.Resolver,
		allocation:   p.Allocation,
		policy:       policy,
	}
}

// ComputeTariffPool sums the duty of every line of the invoice into its
// tariff pool and allocates it by price. A configured country surtax is kept
// in a sibling pool.
func (s *Accumulator) ComputeTariffPool(ctx context.Context, invoiceID string) (pool *allocationdomain.PoolResponse, err error) {
	ctx, span := tracing.StartSpan(ctx, "tariff.compute_pool", attribute.String("invoice.id", invoiceID))
	defer func() { tracing.EndSpan(span, err) }()

	invoice, err := s.loadInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	id := invoice.ID
	lines, err := s.shipmentRepo.ListLines(ctx, shipmentdomain.LineFilter{InvoiceID: &id})
	if err != nil {
		return nil, err
	}

	tariffTotal := decimal.Zero
	vendorTotal := decimal.Zero
	for i := range lines {
		line := &lines[i]
		rate, err := s.resolver.Resolve(ctx, invoice, line)
		if err != nil {
			return nil, err
		}
		vendor := line.VendorTotal()
		vendorTotal = vendorTotal.Add(vendor)
		tariffTotal = tariffTotal.Add(vendor.Mul(rate.Pct).Div(hundred))

		s.log.Debug("line rate resolved",
			zap.String("invoice_id", invoice.ID.String()),
			zap.String("line_id", line.ID.String()),
			zap.String("pct", rate.Pct.String()),
			zap.String("source", string(rate.Source)),
		)
	}
	tariffTotal = tariffTotal.RoundBank(2)

	pool, err = s.allocation.UpsertSystemPool(ctx, allocationdomain.SystemPoolRequest{
		Kind:      allocationdomain.PoolKindTariff,
		InvoiceID: invoice.ID.String(),
		Name:      tariffPoolName,
		Amount:    tariffTotal,
	})
	if err != nil {
		return nil, err
	}

	if err := s.syncSurtax(ctx, invoice, vendorTotal); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("tariff.total", tariffTotal.String()), attribute.Int("tariff.lines", len(lines)))
	s.log.Info("tariff pool computed",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("total", tariffTotal.String()),
		zap.Int("lines", len(lines)),
	)
	return pool, nil
}

func (s *Accumulator) syncSurtax(ctx context.Context, invoice *shipmentdomain.Invoice, vendorTotal decimal.Decimal) error {
	pct, ok := s.policy.Get().SurtaxFor(invoice.Country())
	if !ok {
		_, err := s.allocation.RemoveSystemPool(ctx, allocationdomain.PoolKindSurtax, invoice.ID.String())
		return err
	}

	amount := vendorTotal.Mul(pct).Div(hundred).RoundBank(2)
	_, err := s.allocation.UpsertSystemPool(ctx, allocationdomain.SystemPoolRequest{
		Kind:      allocationdomain.PoolKindSurtax,
		InvoiceID: invoice.ID.String(),
		Name:      surtaxPoolName + " " + invoice.Country(),
		Amount:    amount,
	})
	return err
}

// ToggleTariff removes the tariff pool of an invoice when present and
// computes it otherwise.
func (s *Accumulator) ToggleTariff(ctx context.Context, invoiceID string) (*tariffdomain.ToggleResponse, error) {
	invoice, err := s.loadInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	id := invoice.ID.String()

	removed, err := s.allocation.RemoveSystemPool(ctx, allocationdomain.PoolKindTariff, id)
	if err != nil {
		return nil, err
	}
	if removed {
		if _, err := s.allocation.RemoveSystemPool(ctx, allocationdomain.PoolKindSurtax, id); err != nil {
			return nil, err
		}
		s.log.Info("tariff disabled", zap.String("invoice_id", id))
		return &tariffdomain.ToggleResponse{InvoiceID: id, Enabled: false}, nil
	}

	pool, err := s.ComputeTariffPool(ctx, id)
	if err != nil {
		return nil, err
	}
	return &tariffdomain.ToggleResponse{InvoiceID: id, Enabled: true, Pool: pool}, nil
}

func (s *Accumulator) RefreshTariffPool(ctx context.Context, invoiceID string) (*allocationdomain.PoolResponse, error) {
	invoice, err := s.loadInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	id := invoice.ID.String()

	_, err = s.allocation.FindSystemPool(ctx, allocationdomain.PoolKindTariff, id)
	if errors.Is(err, allocationdomain.ErrNotFound) {
		s.log.Debug("tariff disabled, refresh skipped", zap.String("invoice_id", id))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.ComputeTariffPool(ctx, id)
}

func (s *Accumulator) ResolveLineRate(ctx context.Context, invoiceID, lineID string) (*tariffdomain.ResolvedRate, error) {
	invoice, err := s.loadInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	id, err := parseID(lineID)
	if err != nil {
		return nil, err
	}
	line, err := s.shipmentRepo.FindLineByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if line == nil || line.InvoiceID != invoice.ID {
		return nil, tariffdomain.ErrLineNotFound
	}

	rate, err := s.resolver.Resolve(ctx, invoice, line)
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

func (s *Accumulator) loadInvoice(ctx context.Context, invoiceID string) (*shipmentdomain.Invoice, error) {
	id, err := parseID(invoiceID)
	if err != nil {
		return nil, err
	}
	invoice, err := s.shipmentRepo.FindInvoiceByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, tariffdomain.ErrInvoiceNotFound
	}
	return invoice, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, tariffdomain.ErrInvalidID
	}
	return id, nil
}
