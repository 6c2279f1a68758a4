package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/utilitybill/internal/clock"
	"github.com/smallbiznis/utilitybill/internal/config"
	"github.com/smallbiznis/utilitybill/internal/metricspush"
	"github.com/smallbiznis/utilitybill/internal/observability"
	"github.com/smallbiznis/utilitybill/internal/scheduler"
	"github.com/smallbiznis/utilitybill/internal/server"
	"github.com/smallbiznis/utilitybill/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Domain services required by scheduler jobs. No HTTP server.
		server.DomainModule,
		scheduler.Module,
		// No /metrics endpoint here, so job metrics are pushed.
		metricspush.Module,
	)
	app.Run()
}

// Run the scheduler with a SNOWFLAKE_NODE_ID distinct from the API process.
func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
