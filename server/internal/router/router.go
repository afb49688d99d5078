package router

import (
	"github.com/gin-gonic/gin"

	"github.com/navid-fn/marketarchive/server/internal/handler"
)

type Config struct {
	ArchiveHandler *handler.ArchiveHandler
}

func NewRouter(cfg *Config) *gin.Engine {
	router := gin.Default()

	api := router.Group("/v1/")
	registerArchiveRoutes(api, cfg.ArchiveHandler)

	return router
}
