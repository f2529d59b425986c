package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"

	_ "github.com/lib/pq"
	"github.com/smallbiznis/gascustody/internal/config"
	"github.com/smallbiznis/gascustody/internal/migration"
	"github.com/smallbiznis/gascustody/pkg/db"
	"go.uber.org/zap"
)

func main() {
	rollback := flag.Int("rollback", 0, "revert the given number of migrations instead of applying")
	flag.Parse()

	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	cfg := config.Load()
	if cfg.DBType != "postgres" {
		log.Fatal("sql migrations only target postgres; other databases are migrated on startup", zap.String("db_type", cfg.DBType))
	}

	conn, err := sql.Open("postgres", db.PostgresDSN(cfg))
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer conn.Close()

	if *rollback > 0 {
		if err := migration.Rollback(conn, *rollback); err != nil {
			log.Fatal("rollback failed", zap.Error(err))
		}
		log.Info("migrations rolled back", zap.Int("steps", *rollback))
		return
	}

	if err := migration.RunMigrations(conn); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}
	log.Info("migrations applied")
}
