package observability

import (
	"github.com/smallbiznis/landedcost/internal/observability/logger"
	"github.com/smallbiznis/landedcost/internal/observability/metrics"
	"github.com/smallbiznis/landedcost/internal/observability/tracing"
	"github.com/smallbiznis/landedcost/pkg/db"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		provideLoggerConfig,
		logger.New,
		provideTracingConfig,
		tracing.NewProvider,
		provideMetricsConfig,
		metrics.NewAllocationMetrics,
		metrics.NewHTTPMetrics,
		provideGormLogger,
		fx.Annotate(provideTracingGormPlugin, fx.ResultTags(`group:"gorm_plugins"`)),
		fx.Annotate(provideMetricsGormPlugin, fx.ResultTags(`group:"gorm_plugins"`)),
	),
	fx.Invoke(ensureTracingProvider),
)

func ensureTracingProvider(_ *sdktrace.TracerProvider) {}

func provideLoggerConfig(cfg Config) logger.Config {
	return logger.Config{
		ServiceName:         cfg.ServiceName,
		Environment:         cfg.Environment,
		Version:             cfg.Version,
		Level:               cfg.LogLevel,
		Format:              cfg.LogFormat,
		IncludeCaller:       true,
		IncludeStackOnError: cfg.Debug(),
	}
}

func provideTracingConfig(cfg Config) tracing.Config {
	return tracing.Config{
		Enabled:          cfg.OtelEnabled,
		ServiceName:      cfg.ServiceName,
		ServiceVersion:   cfg.Version,
		Environment:      cfg.Environment,
		ExporterEndpoint: cfg.OtelExporterEndpoint,
		SamplingRatio:    cfg.OtelSamplingRatio,
	}
}

func provideMetricsConfig(cfg Config) metrics.Config {
	return metrics.Config{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
	}
}

func provideGormLogger(cfg Config, log *zap.Logger) gormlogger.Interface {
	return logger.NewGormLogger(log, logger.DefaultGormLoggerConfig(cfg.Debug()))
}

func provideTracingGormPlugin(cfg Config, dbCfg db.Config) gorm.Plugin {
	if !cfg.OtelEnabled {
		return nil
	}
	return tracing.NewGormPlugin(dbCfg.Name)
}

func provideMetricsGormPlugin(cfg Config, dbCfg db.Config) gorm.Plugin {
	if !cfg.DBMetricsEnabled {
		return nil
	}
	return metrics.NewGormPlugin(provideMetricsConfig(cfg), dbCfg.Name)
}
