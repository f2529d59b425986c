package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gascustody/internal/clock"
	"github.com/smallbiznis/gascustody/internal/config"
	"github.com/smallbiznis/gascustody/internal/observability"
	"github.com/smallbiznis/gascustody/internal/scheduler"
	"github.com/smallbiznis/gascustody/internal/server"
	"github.com/smallbiznis/gascustody/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Domain services required by the GCC_DUE job
		server.Services,

		// No server module!
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(3)
	if err != nil {
		panic(err)
	}
	return node
}
