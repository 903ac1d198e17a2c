package controllers

import (
	"errors"
	"net/http"

	"github.com/kmoganti/stock-trading-system-sub001/scheduler"
	"github.com/kmoganti/stock-trading-system-sub001/services/scanner"
	"github.com/kmoganti/stock-trading-system-sub001/services/stream"

	"github.com/gin-gonic/gin"
)

// ScannerController exposes the scan engine to the dashboard.
type ScannerController struct {
	coordinator *scanner.UnifiedScanCoordinator
	cache       *scanner.SymbolDataCache
	stats       *scanner.StatsTracker
	registry    *scanner.CategoryRegistry
	schedules   *scheduler.ScheduleRegistry
	hub         *stream.Hub
}

// NewScannerController wires the controller over the scan engine pieces.
func NewScannerController(coordinator *scanner.UnifiedScanCoordinator, cache *scanner.SymbolDataCache,
	stats *scanner.StatsTracker, registry *scanner.CategoryRegistry,
	schedules *scheduler.ScheduleRegistry, hub *stream.Hub) *ScannerController {
	return &ScannerController{
		coordinator: coordinator,
		cache:       cache,
		stats:       stats,
		registry:    registry,
		schedules:   schedules,
		hub:         hub,
	}
}

// GetStatus returns the scanner's full state.
// GET /api/v1/scanner/status
func (sc *ScannerController) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"running":         sc.coordinator.Running(),
		"scheduler_on":    sc.schedules.Started(),
		"last_scan":       sc.coordinator.LastResult(),
		"cache_stats":     sc.cache.Stats(),
		"execution_stats": sc.stats.Snapshot(),
		"scheduled_jobs":  sc.schedules.Jobs(),
		"ws_clients":      sc.hub.ClientCount(),
	})
}

// triggerScanRequest is the body of a manual scan trigger.
type triggerScanRequest struct {
	Categories []string `json:"categories"`
}

// TriggerScan starts a scan in the background. Returns 409 when a scan is
// already running.
// POST /api/v1/scanner/scan
func (sc *ScannerController) TriggerScan(c *gin.Context) {
	var req triggerScanRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	categories := make([]scanner.Category, 0, len(req.Categories))
	for _, raw := range req.Categories {
		category, err := scanner.ParseCategory(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		categories = append(categories, category)
	}
	if len(categories) == 0 {
		categories = scanner.AllCategories()
	}

	if err := sc.coordinator.TriggerScan(categories); err != nil {
		if errors.Is(err, scanner.ErrScanInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": "already running"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "categories": categories})
}

// ClearCache drops every cached dataset, forcing fresh fetches on the
// next scan.
// POST /api/v1/scanner/cache/clear
func (sc *ScannerController) ClearCache(c *gin.Context) {
	cleared := sc.cache.Clear()
	c.JSON(http.StatusOK, gin.H{"cleared": cleared})
}

// GetCategories returns the configured symbol universe.
// GET /api/v1/scanner/categories
func (sc *ScannerController) GetCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": sc.registry.Profiles()})
}

// GetJobs returns every scheduled job's state.
// GET /api/v1/scanner/jobs
func (sc *ScannerController) GetJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": sc.schedules.Jobs()})
}

// RunJob fires one job outside its schedule.
// POST /api/v1/scanner/jobs/:id/run
func (sc *ScannerController) RunJob(c *gin.Context) {
	id := c.Param("id")
	if err := sc.schedules.RunJobNow(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "job": id})
}

// Start begins firing scheduled jobs.
// POST /api/v1/scanner/start
func (sc *ScannerController) Start(c *gin.Context) {
	sc.schedules.Start()
	c.JSON(http.StatusOK, gin.H{"status": "started"})
}

// Stop halts the schedule triggers. A scan already in flight finishes
// under its own timeout.
// POST /api/v1/scanner/stop
func (sc *ScannerController) Stop(c *gin.Context) {
	sc.schedules.Stop()
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

// StreamEvents upgrades to a websocket delivering scan events.
// GET /api/v1/scanner/ws
func (sc *ScannerController) StreamEvents(c *gin.Context) {
	sc.hub.Serve(c.Writer, c.Request)
}
