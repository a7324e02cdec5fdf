package tracing

import (
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/gorm"
)

// NewGormPlugin creates client spans for every gorm statement without bound
// values.
func NewGormPlugin(dbName string) gorm.Plugin {
	return otelgorm.NewPlugin(
		otelgorm.WithDBName(dbName),
		otelgorm.WithoutQueryVariables(),
		otelgorm.WithoutMetrics(),
	)
}
