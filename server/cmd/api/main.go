package main

import (
	"fmt"
	"os"

	"github.com/navid-fn/marketarchive/configs"
	"github.com/navid-fn/marketarchive/internal/catalog"
	"github.com/navid-fn/marketarchive/internal/crawler"
	"github.com/navid-fn/marketarchive/internal/loader"
	"github.com/navid-fn/marketarchive/internal/storage"
	"github.com/navid-fn/marketarchive/server/internal/handler"
	"github.com/navid-fn/marketarchive/server/internal/router"
	"github.com/navid-fn/marketarchive/server/internal/service"
)

func main() {
	cfg := configs.AppLoad()
	logger := crawler.NewLogger(cfg.LogLevel)

	store := storage.NewDayStore(cfg.DataDir)
	archiveService := service.NewArchiveService(catalog.New(store), loader.NewLoader(store, logger))
	archiveHandler := handler.NewArchiveHandler(archiveService, logger)

	routerConfig := &router.Config{
		ArchiveHandler: archiveHandler,
	}

	router := router.NewRouter(routerConfig)

	logger.Infof("Serving %s on :%s", cfg.DataDir, cfg.ServerPort)
	if err := router.Run(fmt.Sprintf(":%s", cfg.ServerPort)); err != nil {
		logger.Errorf("Server stopped: %v", err)
		os.Exit(1)
	}
}
