package handlers

import (
	"github.com/gin-gonic/gin"

	"costlens/pkg/models"
	"costlens/pkg/response"
	"costlens/pkg/service"
)

// view resolves the multicloud query of the request. It writes the error
// response itself and returns false on failure.
func (h *HandlerService) view(c *gin.Context) (*service.MultiCloudView, bool) {
	q, err := multiCloudQuery(c)
	if err != nil {
		HandleError(c, err)
		return nil, false
	}
	v, err := h.svc.MultiCloud(c.Request.Context(), q)
	if err != nil {
		HandleError(c, err)
		return nil, false
	}
	return v, true
}

// GetMultiCloudKPIs returns the headline numbers across providers
// @Summary Multicloud KPIs
// @Description Period is one of all, 3m, 6m, 12m, ytd or custom (with start and end). Relative periods are anchored on the latest usage date.
// @Tags MultiCloud
// @Produce json
// @Param ids query string false "Comma separated import IDs (default all)"
// @Param period query string false "Period" Enums(all, 3m, 6m, 12m, ytd, custom)
// @Param start query string false "Custom start"
// @Param end query string false "Custom end"
// @Success 200 {object} models.MultiCloudKPIResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse "No imports"
// @Router /multicloud/kpis [get]
func (h *HandlerService) GetMultiCloudKPIs(c *gin.Context) {
	v, ok := h.view(c)
	if !ok {
		return
	}
	response.OK(c, models.MultiCloudKPIResponse{KPIs: v.KPIs(), Window: v.Window})
}

// GetMultiCloudTrend returns monthly cost per provider
// @Summary Multicloud monthly trend
// @Tags MultiCloud
// @Produce json
// @Param ids query string false "Comma separated import IDs"
// @Param period query string false "Period"
// @Param top query int false "Number of top services" default(10)
// @Success 200 {object} models.TrendResponse
// @Router /multicloud/trend [get]
func (h *HandlerService) GetMultiCloudTrend(c *gin.Context) {
	top, err := intParam(c, "top", h.svc.Settings().TopN)
	if err != nil {
		HandleError(c, err)
		return
	}
	v, ok := h.view(c)
	if !ok {
		return
	}
	response.OK(c, models.TrendResponse{Trend: v.Trend(), TopServices: v.TopServices(top)})
}

// GetMultiCloudShares returns each provider's share of the total
// @Summary Provider shares
// @Tags MultiCloud
// @Produce json
// @Param ids query string false "Comma separated import IDs"
// @Param period query string false "Period"
// @Success 200 {array} analysis.CloudShare
// @Router /multicloud/share [get]
func (h *HandlerService) GetMultiCloudShares(c *gin.Context) {
	v, ok := h.view(c)
	if !ok {
		return
	}
	shares := v.Shares()
	response.List(c, shares, len(shares))
}

// GetMultiCloudAnomalies returns month-over-month spikes
// @Summary Month-over-month spikes
// @Tags MultiCloud
// @Produce json
// @Param ids query string false "Comma separated import IDs"
// @Param period query string false "Period"
// @Success 200 {array} anomaly.MoMRecord
// @Router /multicloud/anomalies [get]
func (h *HandlerService) GetMultiCloudAnomalies(c *gin.Context) {
	q, err := multiCloudQuery(c)
	if err != nil {
		HandleError(c, err)
		return
	}
	spikes, err := h.svc.MultiCloudAnomalies(c.Request.Context(), q)
	if err != nil {
		HandleError(c, err)
		return
	}
	response.List(c, spikes, len(spikes))
}

// GetMultiCloudInsights returns five insight sentences
// @Summary Multicloud insights
// @Tags MultiCloud
// @Produce json
// @Param ids query string false "Comma separated import IDs"
// @Param period query string false "Period"
// @Success 200 {array} string
// @Router /multicloud/insights [get]
func (h *HandlerService) GetMultiCloudInsights(c *gin.Context) {
	q, err := multiCloudQuery(c)
	if err != nil {
		HandleError(c, err)
		return
	}
	insights, err := h.svc.MultiCloudInsights(c.Request.Context(), q)
	if err != nil {
		HandleError(c, err)
		return
	}
	response.List(c, insights, len(insights))
}

// GetMultiCloudTreemap returns the provider, category and service hierarchy
// @Summary Cost treemap
// @Description Services beyond the top K of each provider are folded into an Others node
// @Tags MultiCloud
// @Produce json
// @Param ids query string false "Comma separated import IDs"
// @Param period query string false "Period"
// @Param top_k query int false "Services kept per provider" default(30)
// @Success 200 {array} analysis.TreemapNode
// @Router /multicloud/treemap [get]
func (h *HandlerService) GetMultiCloudTreemap(c *gin.Context) {
	topK, err := intParam(c, "top_k", h.svc.Settings().TreemapTopK)
	if err != nil {
		HandleError(c, err)
		return
	}
	v, ok := h.view(c)
	if !ok {
		return
	}
	nodes := v.Treemap(topK)
	response.List(c, nodes, len(nodes))
}

// GetMultiCloudMatrix returns cost per category and provider
// @Summary Category by provider matrix
// @Tags MultiCloud
// @Produce json
// @Param ids query string false "Comma separated import IDs"
// @Param period query string false "Period"
// @Success 200 {array} analysis.MatrixRow
// @Router /multicloud/matrix [get]
func (h *HandlerService) GetMultiCloudMatrix(c *gin.Context) {
	v, ok := h.view(c)
	if !ok {
		return
	}
	rows := v.Matrix()
	response.List(c, rows, len(rows))
}

// GetMultiCloudStacked splits every month by cloud or category
// @Summary Stacked monthly costs
// @Tags MultiCloud
// @Produce json
// @Param ids query string false "Comma separated import IDs"
// @Param period query string false "Period"
// @Param by query string false "Stack dimension" Enums(cloud, category)
// @Success 200 {array} analysis.StackedRow
// @Router /multicloud/stacked [get]
func (h *HandlerService) GetMultiCloudStacked(c *gin.Context) {
	v, ok := h.view(c)
	if !ok {
		return
	}
	rows := v.Stacked(c.Query("by"))
	response.List(c, rows, len(rows))
}

// GetWarehouseTotals reads monthly totals from the ClickHouse mirror
// @Summary Warehouse monthly totals
// @Tags MultiCloud
// @Produce json
// @Param ids query string false "Comma separated import IDs"
// @Success 200 {array} clickhouse.MonthlyTotal
// @Failure 503 {object} models.ErrorResponse "ClickHouse disabled"
// @Router /multicloud/warehouse [get]
func (h *HandlerService) GetWarehouseTotals(c *gin.Context) {
	q, err := multiCloudQuery(c)
	if err != nil {
		HandleError(c, err)
		return
	}
	totals, err := h.svc.WarehouseTotals(c.Request.Context(), q.IDs)
	if err != nil {
		HandleError(c, err)
		return
	}
	response.List(c, totals, len(totals))
}
