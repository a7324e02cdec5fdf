package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	allocationdomain "github.com/smallbiznis/landedcost/internal/allocation/domain"
	"github.com/smallbiznis/landedcost/internal/config"
	landedcostdomain "github.com/smallbiznis/landedcost/internal/landedcost/domain"
	"github.com/smallbiznis/landedcost/internal/observability"
	obsmiddleware "github.com/smallbiznis/landedcost/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/landedcost/internal/observability/metrics"
	obstracing "github.com/smallbiznis/landedcost/internal/observability/tracing"
	"github.com/smallbiznis/landedcost/internal/ratelimit"
	recalculationdomain "github.com/smallbiznis/landedcost/internal/recalculation/domain"
	shipmentdomain "github.com/smallbiznis/landedcost/internal/shipment/domain"
	tariffdomain "github.com/smallbiznis/landedcost/internal/tariff/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(log, obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(log, obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine           *gin.Engine
	shipmentSvc      shipmentdomain.Service
	catalogSvc       tariffdomain.CatalogService
	accumulator      tariffdomain.Accumulator
	allocationSvc    allocationdomain.Service
	landedCostSvc    landedcostdomain.Service
	recalculationSvc recalculationdomain.Service
	recalcLimiter    *ratelimit.RecalculationLimiter
}

type ServerParams struct {
	fx.In

	Gin              *gin.Engine
	ShipmentSvc      shipmentdomain.Service
	CatalogSvc       tariffdomain.CatalogService
	Accumulator      tariffdomain.Accumulator
	AllocationSvc    allocationdomain.Service
	LandedCostSvc    landedcostdomain.Service
	RecalculationSvc recalculationdomain.Service
	RecalcLimiter    *ratelimit.RecalculationLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:           p.Gin,
		shipmentSvc:      p.ShipmentSvc,
		catalogSvc:       p.CatalogSvc,
		accumulator:      p.Accumulator,
		allocationSvc:    p.AllocationSvc,
		landedCostSvc:    p.LandedCostSvc,
		recalculationSvc: p.RecalculationSvc,
		recalcLimiter:    p.RecalcLimiter,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.POST("/containers", s.CreateContainer)
	api.POST("/skus", s.UpsertSKU)

	api.POST("/invoices", s.CreateInvoice)
	api.GET("/invoices/:id", s.GetInvoice)
	api.PATCH("/invoices/:id", s.UpdateInvoice)
	api.POST("/invoices/:id/tariff", s.ComputeTariff)
	api.POST("/invoices/:id/tariff/toggle", s.ToggleTariff)
	api.GET("/invoices/:id/lines/:lineID/rate", s.GetLineRate)

	api.GET("/tariff-codes", s.ListTariffCodes)
	api.POST("/tariff-codes", s.UpsertTariffCode)
	api.GET("/tariff-codes/:code/rates", s.ListRateDetails)
	api.POST("/tariff-codes/:code/rates", s.AddRateDetail)

	api.GET("/cost-pools", s.ListCostPools)
	api.POST("/cost-pools", s.CreateCostPool)
	api.GET("/cost-pools/:id", s.GetCostPool)
	api.PATCH("/cost-pools/:id", s.UpdateCostPool)
	api.DELETE("/cost-pools/:id", s.DeleteCostPool)
	api.GET("/cost-pools/:id/allocations", s.ListCostPoolAllocations)
	api.POST("/cost-pools/:id/allocate", s.AllocateCostPool)

	api.POST("/recalculate", s.RecalculateRateLimit(), s.Recalculate)

	api.GET("/landed-costs", s.ListLandedCosts)
	api.GET("/landed-costs/skus", s.ListSKULandedCosts)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
