package service

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/landedcost/internal/observability/metrics"
	shipmentdomain "github.com/smallbiznis/landedcost/internal/shipment/domain"
	tariffdomain "github.com/smallbiznis/landedcost/internal/tariff/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ResolverParam struct {
	fx.In

	Log          *zap.Logger
	Repo         tariffdomain.Repository
	ShipmentRepo shipmentdomain.Repository
	Metrics      *metrics.AllocationMetrics `optional:"true"`
}

type Resolver struct {
	log          *zap.Logger
	repo         tariffdomain.Repository
	shipmentRepo shipmentdomain.Repository
	metrics      *metrics.AllocationMetrics
}

func NewResolver(p ResolverParam) tariffdomain.RateResolver {
	return &Resolver{
		log:          p.Log.Named("tariff.resolver"),
		repo:         p.Repo,
		shipmentRepo: p.ShipmentRepo,
		metrics:      p.Metrics,
	}
}

// Resolve walks the chain manual rate, SKU override, dated rate detail, flat
// code rate. Missing SKUs, codes or details fall through to the next layer;
// only repository errors are returned.
func (r *Resolver) Resolve(ctx context.Context, invoice *shipmentdomain.Invoice, line *shipmentdomain.InvoiceLine) (tariffdomain.ResolvedRate, error) {
	rate, err := r.resolve(ctx, invoice, line)
	if err != nil {
		return tariffdomain.ResolvedRate{}, err
	}
	r.metrics.IncRateResolution(string(rate.Source))
	return rate, nil
}

func (r *Resolver) resolve(ctx context.Context, invoice *shipmentdomain.Invoice, line *shipmentdomain.InvoiceLine) (tariffdomain.ResolvedRate, error) {
	if !invoice.ApplyDBRate && invoice.ManualRatePct != nil {
		return tariffdomain.ResolvedRate{Pct: *invoice.ManualRatePct, Source: tariffdomain.RateSourceManual}, nil
	}

	sku, err := r.shipmentRepo.FindSKUByID(ctx, line.SKUID)
	if err != nil {
		return tariffdomain.ResolvedRate{}, err
	}
	if sku == nil {
		r.log.Warn("sku missing for invoice line", zap.String("line_id", line.ID.String()), zap.String("sku_id", line.SKUID.String()))
		return noRate(), nil
	}
	if sku.RateOverridePct != nil {
		return tariffdomain.ResolvedRate{Pct: *sku.RateOverridePct, Source: tariffdomain.RateSourceSKUOverride}, nil
	}
	if sku.TariffCodeID == nil {
		return noRate(), nil
	}

	code, err := r.repo.FindCodeByID(ctx, *sku.TariffCodeID)
	if err != nil {
		return tariffdomain.ResolvedRate{}, err
	}
	if code == nil {
		return noRate(), nil
	}

	if code.HasComplexRates && invoice.Country() != "" && invoice.InvoiceDate != nil {
		detail, err := r.repo.FindEffectiveRate(ctx, tariffdomain.RateQuery{
			TariffCodeID: code.ID,
			Country:      invoice.Country(),
			Program:      invoice.Program(),
			At:           *invoice.InvoiceDate,
		})
		if err != nil {
			return tariffdomain.ResolvedRate{}, err
		}
		if detail != nil {
			return tariffdomain.ResolvedRate{
				Pct:        pctOrZero(detail.AdValoremPct),
				Source:     tariffdomain.RateSourceRateDetail,
				TariffCode: code.Code,
			}, nil
		}
	}

	return tariffdomain.ResolvedRate{
		Pct:        pctOrZero(code.RatePct),
		Source:     tariffdomain.RateSourceCodeFlat,
		TariffCode: code.Code,
	}, nil
}

func noRate() tariffdomain.ResolvedRate {
	return tariffdomain.ResolvedRate{Pct: decimal.Zero, Source: tariffdomain.RateSourceNone}
}

func pctOrZero(v *decimal.Decimal) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return *v
}
