package main

import (
	"database/sql"
	"flag"
	"os"

	_ "github.com/ClickHouse/clickhouse-go/v2" // ClickHouse driver

	"github.com/navid-fn/marketarchive/configs"
	"github.com/navid-fn/marketarchive/internal/crawler"
	"github.com/navid-fn/marketarchive/internal/migrations"
)

func main() {
	status := flag.Bool("status", false, "Print migration status instead of migrating")
	flag.Parse()

	cfg := configs.AppLoad()
	logger := crawler.NewLogger(cfg.LogLevel)

	db, err := sql.Open("clickhouse", cfg.DBDSN)
	if err != nil {
		logger.Errorf("Failed to connect to database: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Errorf("Failed to ping database: %v", err)
		os.Exit(1)
	}

	if *status {
		if err := migrations.Status(db); err != nil {
			logger.Errorf("Goose status failed: %v", err)
			os.Exit(1)
		}
		return
	}

	logger.Info("Running database migrations...")
	if err := migrations.Up(db); err != nil {
		logger.Errorf("Goose migration failed: %v", err)
		os.Exit(1)
	}

	logger.Info("Migrations completed successfully")
}
