package routes

import (
	"net/http"

	"github.com/kmoganti/stock-trading-system-sub001/controllers"
	"github.com/kmoganti/stock-trading-system-sub001/middleware"

	"github.com/gin-gonic/gin"
)

// Controllers bundles everything the router needs.
type Controllers struct {
	Scanner *controllers.ScannerController
	Signals *controllers.SignalController
	Auth    *controllers.AuthController
}

// SetupRoutes wires all API routes. When no auth controller is
// configured the mutating scanner endpoints are left open, which is
// only meant for local development.
func SetupRoutes(router *gin.Engine, ctrl Controllers, jwtSecret string, limiter *middleware.LoginRateLimiter) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")

	if ctrl.Auth != nil {
		auth := api.Group("/auth")
		auth.POST("/login", middleware.LoginRateLimitMiddleware(limiter), ctrl.Auth.Login)
	}

	if ctrl.Signals != nil {
		api.GET("/signals", ctrl.Signals.GetRecentSignals)
	}

	scan := api.Group("/scanner")
	{
		scan.GET("/status", ctrl.Scanner.GetStatus)
		scan.GET("/categories", ctrl.Scanner.GetCategories)
		scan.GET("/jobs", ctrl.Scanner.GetJobs)
		scan.GET("/ws", ctrl.Scanner.StreamEvents)

		mutating := scan.Group("")
		if ctrl.Auth != nil && jwtSecret != "" {
			mutating.Use(middleware.JWTAuthMiddleware(jwtSecret))
		}
		mutating.POST("/scan", ctrl.Scanner.TriggerScan)
		mutating.POST("/cache/clear", ctrl.Scanner.ClearCache)
		mutating.POST("/start", ctrl.Scanner.Start)
		mutating.POST("/stop", ctrl.Scanner.Stop)
		mutating.POST("/jobs/:id/run", ctrl.Scanner.RunJob)
	}
}
