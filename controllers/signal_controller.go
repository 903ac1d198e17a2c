package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/kmoganti/stock-trading-system-sub001/models"
	"github.com/kmoganti/stock-trading-system-sub001/services/scanner"

	"github.com/gin-gonic/gin"
)

// SignalReader is satisfied by both the Postgres and SQLite stores.
type SignalReader interface {
	RecentSignals(ctx context.Context, category string, limit int) ([]models.Signal, error)
}

// SignalController serves persisted scan signals.
type SignalController struct {
	store SignalReader
}

func NewSignalController(store SignalReader) *SignalController {
	return &SignalController{store: store}
}

// GetRecentSignals returns the newest signals, optionally filtered by
// category.
// GET /api/v1/signals?category=day_trading&limit=50
func (sc *SignalController) GetRecentSignals(c *gin.Context) {
	category := c.Query("category")
	if category != "" {
		if _, err := scanner.ParseCategory(category); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
			return
		}
		limit = n
	}

	signals, err := sc.store.RecentSignals(c.Request.Context(), category, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load signals"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": signals, "count": len(signals)})
}
