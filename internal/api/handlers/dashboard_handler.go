package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/salesbot/internal/domain"
	"github.com/andresuchdata/salesbot/internal/service"
)

type DashboardHandler struct {
	dashService *service.DashboardService
}

func NewDashboardHandler(dashService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashService: dashService}
}

// GetPredictions returns the current per-item prediction table.
func (h *DashboardHandler) GetPredictions(c *gin.Context) {
	rows, err := h.dashService.Predictions(c.Request.Context())
	if err != nil {
		respondDataError(c, err, "failed to load predictions")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":       len(rows),
		"predictions": rows,
	})
}

// GetOrderHistory returns every recorded dispatch row.
func (h *DashboardHandler) GetOrderHistory(c *gin.Context) {
	rows, err := h.dashService.History(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to load order history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load order history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":  len(rows),
		"orders": rows,
	})
}

// GetOrderSummary returns aggregate order statistics.
func (h *DashboardHandler) GetOrderSummary(c *gin.Context) {
	summary, err := h.dashService.Summary(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to summarize order history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to summarize order history"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetModels lists the model artifacts available in object storage.
func (h *DashboardHandler) GetModels(c *gin.Context) {
	objects, err := h.dashService.Models(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list model artifacts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list model artifacts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":  len(objects),
		"models": objects,
	})
}

// DescribeData profiles the raw inventory dataset.
func (h *DashboardHandler) DescribeData(c *gin.Context) {
	summary, err := h.dashService.DescribeData(c.Request.Context())
	if err != nil {
		respondDataError(c, err, "failed to describe dataset")
		return
	}

	c.JSON(http.StatusOK, summary)
}

// respondDataError maps missing or unrepairable input files to 404 and
// everything else to 500.
func respondDataError(c *gin.Context, err error, message string) {
	var dataErr *domain.DataError
	if errors.As(err, &dataErr) {
		c.JSON(http.StatusNotFound, gin.H{"error": dataErr.Error()})
		return
	}
	log.Error().Err(err).Msg(message)
	c.JSON(http.StatusInternalServerError, gin.H{"error": message})
}
