// Package handlers exposes the cost analytics service over HTTP.
//
// Handlers are split by domain:
//   - health_handlers.go: health check and system status
//   - import_handlers.go: uploads, bucket imports and import management
//   - dataset_handlers.go: per import analytics, forecast, anomalies and chat
//   - multicloud_handlers.go: cross provider views
//   - schedule_handlers.go: scheduler, job runs and cache maintenance
package handlers

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts every API route under api
func (h *HandlerService) RegisterRoutes(api *gin.RouterGroup) {
	system := api.Group("/system")
	{
		system.GET("/status", h.GetStatus)
	}

	imports := api.Group("/imports")
	{
		imports.POST("", h.CreateImport)
		imports.GET("", h.ListImports)
		imports.GET("/:id", h.GetImport)
		imports.DELETE("/:id", h.DeleteImport)
	}
	api.POST("/objectstore/import", h.ImportFromBucket)

	datasets := api.Group("/datasets/:id")
	{
		datasets.GET("", h.GetDataset)
		datasets.GET("/summary", h.GetSummary)
		datasets.GET("/rankings", h.GetRankings)
		datasets.GET("/percentages", h.GetPercentages)
		datasets.GET("/monthly", h.GetMonthly)
		datasets.GET("/statistics", h.GetStatistics)
		datasets.GET("/forecast", h.GetForecast)
		datasets.GET("/anomalies", h.GetAnomalies)
		datasets.GET("/recommendations", h.GetRecommendations)
		datasets.GET("/insights", h.GetInsights)
		datasets.POST("/chat", h.Chat)
	}

	multicloud := api.Group("/multicloud")
	{
		multicloud.GET("/kpis", h.GetMultiCloudKPIs)
		multicloud.GET("/trend", h.GetMultiCloudTrend)
		multicloud.GET("/share", h.GetMultiCloudShares)
		multicloud.GET("/anomalies", h.GetMultiCloudAnomalies)
		multicloud.GET("/insights", h.GetMultiCloudInsights)
		multicloud.GET("/treemap", h.GetMultiCloudTreemap)
		multicloud.GET("/matrix", h.GetMultiCloudMatrix)
		multicloud.GET("/stacked", h.GetMultiCloudStacked)
		multicloud.GET("/warehouse", h.GetWarehouseTotals)
	}

	sched := api.Group("/scheduler")
	{
		sched.GET("/status", h.GetSchedulerStatus)
		sched.GET("/jobs", h.GetScheduledJobs)
		sched.POST("/jobs", h.CreateScheduledJob)
		sched.GET("/jobs/:id", h.GetScheduledJob)
		sched.DELETE("/jobs/:id", h.DeleteScheduledJob)
		sched.POST("/jobs/:id/trigger", h.TriggerScheduledJob)
		sched.GET("/runs", h.GetJobRuns)
	}

	cache := api.Group("/cache")
	{
		cache.GET("/stats", h.GetCacheStats)
		cache.DELETE("", h.ClearCache)
	}
}
