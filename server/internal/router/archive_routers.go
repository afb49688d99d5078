package router

import (
	"github.com/gin-gonic/gin"

	"github.com/navid-fn/marketarchive/server/internal/handler"
)

func registerArchiveRoutes(router *gin.RouterGroup, archiveHandler *handler.ArchiveHandler) {
	router.GET("/catalog", archiveHandler.GetCatalog)
	router.GET("/candles", archiveHandler.GetCandles)
}
