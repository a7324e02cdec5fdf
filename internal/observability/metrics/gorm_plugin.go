package metrics

import (
	"gorm.io/gorm"
	gormprometheus "gorm.io/plugin/prometheus"
)

// NewGormPlugin exports connection pool statistics for the primary database.
func NewGormPlugin(cfg Config, dbName string) gorm.Plugin {
	return gormprometheus.New(gormprometheus.Config{
		DBName:          dbName,
		RefreshInterval: 15,
		StartServer:     false,
		Labels:          serviceLabels(cfg),
	})
}
