package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, handler *Handler) {
	// Apply global middleware
	r.Use(CORSMiddleware())
	r.Use(RequestTimeMiddleware())
	r.Use(RecoveryMiddleware())

	// API routes
	api := r.Group("/api")
	{
		// Position routes
		position := api.Group("/position")
		{
			position.GET("/current", handler.GetCurrentPosition)
			position.GET("/saved", handler.GetSavedPosition)
			position.POST("/save", handler.SavePosition)
		}
		api.DELETE("/position", handler.ClearPosition)

		// Watch routes
		watch := api.Group("/watch")
		{
			watch.POST("/start", handler.StartWatch)
			watch.POST("/stop", handler.StopWatch)
			watch.GET("/status", handler.WatchStatus)
		}

		// Wayfare routes
		wayfare := api.Group("/wayfare")
		{
			wayfare.POST("/start", handler.StartWayfare)
			wayfare.POST("/stop", handler.StopWayfare)
			wayfare.GET("/track", handler.GetWayfareTrack)
			wayfare.GET("/summary", handler.GetWayfareSummary)
		}
		api.DELETE("/wayfare", handler.ClearWayfare)

		// CSV export routes
		export := api.Group("/export")
		{
			export.POST("/csv", handler.ExportCSV)
			export.GET("/preview", handler.PreviewCSV)
		}
		api.DELETE("/export", handler.ClearExport)

		// Live track routes
		liveTrack := api.Group("/live-track")
		{
			liveTrack.POST("/ensure", handler.EnsureLiveTrack)
			liveTrack.POST("/end", handler.EndLiveTrack)
		}
		api.GET("/live-track", handler.GetLiveTrack)

		// Catch submission
		api.POST("/catches", handler.CreateCatch)
		api.GET("/web-create-url", handler.WebCreateURL)

		// Token management
		api.PUT("/token", handler.SetToken)
		api.DELETE("/token", handler.ClearToken)

		// Settings
		api.GET("/settings", handler.GetSettings)
		api.PUT("/settings", handler.UpdateSettings)

		// Health check
		api.GET("/health", handler.Health)
	}
}
