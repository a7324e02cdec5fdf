package service

import (
	"context"
	"fmt"
	"time"

	allocationdomain "github.com/smallbiznis/landedcost/internal/allocation/domain"
	"github.com/smallbiznis/landedcost/internal/observability/metrics"
	"github.com/smallbiznis/landedcost/internal/observability/tracing"
	recalculationdomain "github.com/smallbiznis/landedcost/internal/recalculation/domain"
	shipmentdomain "github.com/smallbiznis/landedcost/internal/shipment/domain"
	tariffdomain "github.com/smallbiznis/landedcost/internal/tariff/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServiceParam struct {
	fx.In

	Log          *zap.Logger
	ShipmentRepo shipmentdomain.Repository
	Allocation   allocationdomain.Service
	Accumulator  tariffdomain.Accumulator
	Metrics      *metrics.AllocationMetrics `optional:"true"`
}

type Service struct {
	log          *zap.Logger
	shipmentRepo shipmentdomain.Repository
	allocation   allocationdomain.Service
	accumulator  tariffdomain.Accumulator
	metrics      *metrics.AllocationMetrics
}

func NewService(p ServiceParam) recalculationdomain.Service {
	return &Service{
		log:          p.Log.Named("recalculation.service"),
		shipmentRepo: p.ShipmentRepo,
		allocation:   p.Allocation,
		accumulator:  p.Accumulator,
		metrics:      p.Metrics,
	}
}

func (s *Service) RecalculateAll(ctx context.Context) (summary *recalculationdomain.Summary, err error) {
	ctx, span := tracing.StartSpan(ctx, "recalculation.all")
	start := time.Now()
	defer func() {
		s.metrics.IncRecalculation(err)
		tracing.EndSpan(span, err)
	}()

	summary = &recalculationdomain.Summary{}

	pools, err := s.allocation.ListUserPools(ctx)
	if err != nil {
		return nil, err
	}
	for _, pool := range pools {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := s.allocation.Allocate(ctx, pool.ID); err != nil {
			return nil, fmt.Errorf("reallocate pool %s: %w", pool.ID, err)
		}
		summary.PoolsReallocated++
	}

	invoiceIDs, err := s.shipmentRepo.ListInvoiceIDs(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range invoiceIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := s.accumulator.ComputeTariffPool(ctx, id.String()); err != nil {
			return nil, fmt.Errorf("compute tariff for invoice %s: %w", id, err)
		}
		summary.InvoicesProcessed++
	}

	summary.Duration = time.Since(start)
	span.SetAttributes(
		attribute.Int("recalculation.pools", summary.PoolsReallocated),
		attribute.Int("recalculation.invoices", summary.InvoicesProcessed),
	)
	s.log.Info("recalculation finished",
		zap.Int("pools", summary.PoolsReallocated),
		zap.Int("invoices", summary.InvoicesProcessed),
		zap.Duration("duration", summary.Duration),
	)
	return summary, nil
}
