// Package app assembles the fx modules shared by the landedcost commands.
package app

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/landedcost/internal/allocation"
	"github.com/smallbiznis/landedcost/internal/clock"
	"github.com/smallbiznis/landedcost/internal/config"
	"github.com/smallbiznis/landedcost/internal/landedcost"
	"github.com/smallbiznis/landedcost/internal/lock"
	"github.com/smallbiznis/landedcost/internal/migration"
	"github.com/smallbiznis/landedcost/internal/observability"
	"github.com/smallbiznis/landedcost/internal/ratelimit"
	"github.com/smallbiznis/landedcost/internal/recalculation"
	"github.com/smallbiznis/landedcost/internal/server"
	"github.com/smallbiznis/landedcost/internal/shipment"
	"github.com/smallbiznis/landedcost/internal/tariff"
	"github.com/smallbiznis/landedcost/pkg/db"
	"go.uber.org/fx"
)

// Infrastructure opens the database and applies the schema.
func Infrastructure() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		fx.Provide(NewSnowflakeNode),
		db.Module,
		clock.Module,
		migration.Module,
	)
}

// Domains provides every domain service.
func Domains() fx.Option {
	return fx.Options(
		lock.Module,
		shipment.Module,
		tariff.Module,
		allocation.Module,
		landedcost.Module,
		recalculation.Module,
	)
}

func Server() fx.Option {
	return fx.Options(
		Infrastructure(),
		Domains(),
		ratelimit.Module,
		server.Module,
	)
}

func NewSnowflakeNode(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
