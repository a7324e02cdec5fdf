package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestAllocationMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := newAllocationMetrics(reg, Config{ServiceName: "landedcost", Environment: "test"})
	require.NoError(t, err)

	m.ObserveAllocation("freight", "BY_VOLUME", true, 10*time.Millisecond)
	m.ObserveAllocation("freight", "BY_VOLUME", false, 5*time.Millisecond)
	m.ObserveAllocation("tariff", "BY_PRICE", false, time.Millisecond)
	m.IncAllocationError("custom", gorm.ErrRecordNotFound)
	m.IncAllocationError("custom", nil)
	m.IncRateResolution("code_flat")
	m.IncRateResolution("code_flat")
	m.IncRecalculation(nil)
	m.IncRecalculation(errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.runs.WithLabelValues("freight", "BY_VOLUME")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("tariff", "BY_PRICE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pennyAdjustments.WithLabelValues("freight")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("custom", ReasonNotFound)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.resolutions.WithLabelValues("code_flat")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recalculations.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recalculations.WithLabelValues("failure")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.duration))
}

func TestAllocationMetricsNilSafe(t *testing.T) {
	var m *AllocationMetrics
	assert.NotPanics(t, func() {
		m.ObserveAllocation("custom", "EQUALLY", true, time.Second)
		m.IncAllocationError("custom", errors.New("boom"))
		m.IncRateResolution("none")
		m.IncRecalculation(nil)
	})
}

func TestAllocationMetricsRejectsDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := newAllocationMetrics(reg, Config{})
	require.NoError(t, err)
	_, err = newAllocationMetrics(reg, Config{})
	assert.Error(t, err)
}

func TestClassifyReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ReasonUnknown},
		{name: "deadline", err: context.DeadlineExceeded, want: ReasonDeadlineExceeded},
		{name: "canceled wrapped", err: fmt.Errorf("allocate: %w", context.Canceled), want: ReasonDeadlineExceeded},
		{name: "not found", err: gorm.ErrRecordNotFound, want: ReasonNotFound},
		{name: "lock timeout", err: &pgconn.PgError{Code: "55P03"}, want: ReasonDBLockTimeout},
		{name: "serialization", err: &pgconn.PgError{Code: "40001"}, want: ReasonSerializationFailure},
		{name: "unique pg", err: &pgconn.PgError{Code: "23505"}, want: ReasonUniqueViolation},
		{name: "unique gorm", err: gorm.ErrDuplicatedKey, want: ReasonUniqueViolation},
		{name: "other pg", err: &pgconn.PgError{Code: "42P01"}, want: ReasonDB},
		{name: "gorm invalid", err: gorm.ErrInvalidTransaction, want: ReasonDB},
		{name: "unknown", err: errors.New("boom"), want: ReasonUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyReason(tt.err))
		})
	}
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m, err := newHTTPMetrics(reg, Config{})
	require.NoError(t, err)

	r := gin.New()
	r.Use(GinMiddleware(m))
	r.GET("/api/cost-pools/:id", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for _, path := range []string{"/api/cost-pools/1", "/api/cost-pools/2", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/api/cost-pools/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "unmatched", "404")))
}

func TestHTTPMetricsMiddlewareNil(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware(nil))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
