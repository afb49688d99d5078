package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/navid-fn/marketarchive/internal/models"
	"github.com/navid-fn/marketarchive/server/internal/model"
	"github.com/navid-fn/marketarchive/server/internal/service"
)

type ArchiveHandler struct {
	archiveService *service.ArchiveService
	logger         logrus.FieldLogger
}

func NewArchiveHandler(service *service.ArchiveService, logger logrus.FieldLogger) *ArchiveHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ArchiveHandler{
		archiveService: service,
		logger:         logger,
	}
}

func (h *ArchiveHandler) GetCatalog(c *gin.Context) {
	entries, err := h.archiveService.Catalog()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *ArchiveHandler) GetCandles(c *gin.Context) {
	series, err := h.archiveService.Candles(service.CandleQuery{
		Namespace: c.Query("namespace"),
		Market:    c.Query("market"),
		From:      c.Query("from"),
		To:        c.Query("to"),
		Timeframe: c.DefaultQuery("timeframe", "1m"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, series)
}

func (h *ArchiveHandler) fail(c *gin.Context, err error) {
	var qe *service.QueryError
	switch {
	case errors.As(err, &qe):
		c.JSON(http.StatusBadRequest, model.Error{Error: qe.Error()})
	case models.IsNotFound(err):
		c.JSON(http.StatusNotFound, model.Error{Error: err.Error()})
	default:
		h.logger.WithField("path", c.Request.URL.Path).Errorf("Request failed: %v", err)
		c.JSON(http.StatusInternalServerError, model.Error{Error: "internal error"})
	}
}
