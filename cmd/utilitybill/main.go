package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/utilitybill/internal/clock"
	"github.com/smallbiznis/utilitybill/internal/config"
	"github.com/smallbiznis/utilitybill/internal/migration"
	"github.com/smallbiznis/utilitybill/internal/observability"
	"github.com/smallbiznis/utilitybill/internal/scheduler"
	"github.com/smallbiznis/utilitybill/internal/server"
	"github.com/smallbiznis/utilitybill/pkg/db"
	"go.uber.org/fx"
)

// utilitybill runs the API, the console and the scheduler in one process.
func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,

		server.DomainModule,
		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
