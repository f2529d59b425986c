package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gascustody/internal/clock"
	"github.com/smallbiznis/gascustody/internal/config"
	"github.com/smallbiznis/gascustody/internal/migration"
	"github.com/smallbiznis/gascustody/internal/observability"
	"github.com/smallbiznis/gascustody/internal/scheduler"
	"github.com/smallbiznis/gascustody/internal/server"
	"github.com/smallbiznis/gascustody/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Functional Domains
		server.Services,
		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
