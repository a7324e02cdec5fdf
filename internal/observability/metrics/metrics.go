package metrics

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// Config labels every collector with the service identity.
type Config struct {
	ServiceName string
	Environment string
}

const (
	ReasonDeadlineExceeded     = "deadline_exceeded"
	ReasonDBLockTimeout        = "db_lock_timeout"
	ReasonSerializationFailure = "serialization_failure"
	ReasonUniqueViolation      = "unique_violation"
	ReasonNotFound             = "not_found"
	ReasonDB                   = "db"
	ReasonUnknown              = "unknown"
)

// AllocationMetrics captures allocation engine and tariff resolver activity.
type AllocationMetrics struct {
	runs             *prometheus.CounterVec
	pennyAdjustments *prometheus.CounterVec
	duration         *prometheus.HistogramVec
	errors           *prometheus.CounterVec
	resolutions      *prometheus.CounterVec
	recalculations   *prometheus.CounterVec
}

// NewAllocationMetrics registers the allocation collectors on the default registry.
func NewAllocationMetrics(cfg Config) (*AllocationMetrics, error) {
	return newAllocationMetrics(prometheus.DefaultRegisterer, cfg)
}

func newAllocationMetrics(registerer prometheus.Registerer, cfg Config) (*AllocationMetrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	constLabels := serviceLabels(cfg)

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "landedcost_allocation_runs_total",
		Help:        "Cost pool allocations by pool kind and method.",
		ConstLabels: constLabels,
	}, []string{"kind", "method"})
	pennyAdjustments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "landedcost_allocation_penny_adjustments_total",
		Help:        "Allocations where a rounding remainder was pushed onto the largest line.",
		ConstLabels: constLabels,
	}, []string{"kind"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "landedcost_allocation_duration_seconds",
		Help:        "Time spent selecting lines, computing and persisting one pool allocation.",
		Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		ConstLabels: constLabels,
	}, []string{"kind"})
	allocationErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "landedcost_allocation_errors_total",
		Help:        "Failed allocations by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"kind", "reason"})
	resolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "landedcost_tariff_rate_resolutions_total",
		Help:        "Tariff rate resolutions by the layer that supplied the rate.",
		ConstLabels: constLabels,
	}, []string{"source"})
	recalculations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "landedcost_recalculations_total",
		Help:        "Bulk recalculation runs by outcome.",
		ConstLabels: constLabels,
	}, []string{"outcome"})

	for _, c := range []prometheus.Collector{runs, pennyAdjustments, duration, allocationErrors, resolutions, recalculations} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}

	return &AllocationMetrics{
		runs:             runs,
		pennyAdjustments: pennyAdjustments,
		duration:         duration,
		errors:           allocationErrors,
		resolutions:      resolutions,
		recalculations:   recalculations,
	}, nil
}

// ObserveAllocation records one successful pool allocation.
func (m *AllocationMetrics) ObserveAllocation(kind, method string, pennyAdjusted bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(kind, method).Inc()
	m.duration.WithLabelValues(kind).Observe(elapsed.Seconds())
	if pennyAdjusted {
		m.pennyAdjustments.WithLabelValues(kind).Inc()
	}
}

func (m *AllocationMetrics) IncAllocationError(kind string, err error) {
	if m == nil || err == nil {
		return
	}
	m.errors.WithLabelValues(kind, ClassifyReason(err)).Inc()
}

func (m *AllocationMetrics) IncRateResolution(source string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(source).Inc()
}

func (m *AllocationMetrics) IncRecalculation(err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.recalculations.WithLabelValues(outcome).Inc()
}

// ClassifyReason maps an error to a low-cardinality label value.
func ClassifyReason(err error) string {
	switch {
	case err == nil:
		return ReasonUnknown
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ReasonDeadlineExceeded
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ReasonNotFound
	case hasPGCode(err, "55P03"):
		return ReasonDBLockTimeout
	case hasPGCode(err, "40001"):
		return ReasonSerializationFailure
	case errors.Is(err, gorm.ErrDuplicatedKey), hasPGCode(err, "23505"):
		return ReasonUniqueViolation
	case isDBError(err):
		return ReasonDB
	default:
		return ReasonUnknown
	}
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

func isDBError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return true
	}
	return errors.Is(err, gorm.ErrInvalidDB) ||
		errors.Is(err, gorm.ErrInvalidTransaction) ||
		errors.Is(err, gorm.ErrInvalidField) ||
		errors.Is(err, gorm.ErrInvalidData) ||
		errors.Is(err, gorm.ErrMissingWhereClause) ||
		errors.Is(err, gorm.ErrInvalidValue)
}

func serviceLabels(cfg Config) prometheus.Labels {
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "landedcost"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	return prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}
}
