package handlers

import (
	"github.com/gin-gonic/gin"

	"costlens/pkg/dataset"
	"costlens/pkg/models"
	"costlens/pkg/response"
	"costlens/pkg/service"
)

// datasetRequest parses the id and the common filters of dataset endpoints
func datasetRequest(c *gin.Context) (uint, service.Query, bool) {
	id, err := pathID(c)
	if err != nil {
		HandleError(c, err)
		return 0, service.Query{}, false
	}
	q, err := datasetQuery(c)
	if err != nil {
		HandleError(c, err)
		return 0, service.Query{}, false
	}
	return id, q, true
}

func datasetView(id uint, ds *dataset.CostDataset) models.DatasetView {
	view := models.DatasetView{
		ID:       id,
		Name:     ds.Name,
		Provider: ds.Provider.String(),
		Shape:    string(ds.Shape),
		Mapping:  ds.Mapping,
		Services: ds.ServiceColumns(),
		Rows:     []models.DatasetRow{},
		Records:  len(ds.Records),
	}
	if ds.Wide == nil {
		return view
	}
	for _, row := range ds.Wide.Rows {
		values := make(map[string]float64, len(ds.Wide.Services))
		for i, svc := range ds.Wide.Services {
			values[svc] = row.Values[i]
		}
		view.Rows = append(view.Rows, models.DatasetRow{Date: row.Date, Values: values, Total: row.Total})
	}
	return view
}

// GetDataset returns the wide table of an import
// @Summary Get dataset
// @Description Returns the wide table (one column per service) after the date and service filters
// @Tags Datasets
// @Produce json
// @Param id path int true "Import ID"
// @Param start query string false "Start date (inclusive)"
// @Param end query string false "End date (inclusive)"
// @Param services query string false "Comma separated services"
// @Success 200 {object} models.DatasetView
// @Failure 404 {object} models.ErrorResponse
// @Router /datasets/{id} [get]
func (h *HandlerService) GetDataset(c *gin.Context) {
	id, q, ok := datasetRequest(c)
	if !ok {
		return
	}
	ds, err := h.svc.Dataset(c.Request.Context(), id, q)
	if err != nil {
		HandleError(c, err)
		return
	}
	response.OK(c, datasetView(id, ds))
}

// GetSummary returns the KPI summary of a dataset
// @Summary Dataset KPIs
// @Tags Datasets
// @Produce json
// @Param id path int true "Import ID"
// @Param start query string false "Start date"
// @Param end query string false "End date"
// @Param services query string false "Comma separated services"
// @Success 200 {object} models.SummaryResponse
// @Router /datasets/{id}/summary [get]
func (h *HandlerService) GetSummary(c *gin.Context) {
	id, q, ok := datasetRequest(c)
	if !ok {
		return
	}
	summary, err := h.svc.Summary(c.Request.Context(), id, q)
	if err != nil {
		HandleError(c, err)
		return
	}
	response.OK(c, summary)
}

// GetRankings returns the top services by total cost
// @Summary Service rankings
// @Tags Datasets
// @Produce json
// @Param id path int true "Import ID"
// @Param top query int false "Number of services" default(10)
// @Success 200 {array} analysis.ServiceTotal
// @Router /datasets/{id}/rankings [get]
func (h *HandlerService) GetRankings(c *gin.Context) {
	id, q, ok := datasetRequest(c)
	if !ok {
		return
	}
	top, err := intParam(c, "top", h.svc.Settings().TopN)
	if err != nil {
		HandleError(c, err)
		return
	}
	rankings, err := h.svc.Rankings(c.Request.Context(), id, q, top)
	if err != nil {
		HandleError(c, err)
		return
	}
	response.List(c, rankings, len(rankings))
}

// GetPercentages returns each service's share of the total
// @Summary Service shares
// @Tags Datasets
// @Produce json
// @Param id path int true "Import ID"
// @Success 200 {array} analysis.ServicePercentage
// @Router /datasets/{id}/percentages [get]
func (h *HandlerService) GetPercentages(c *gin.Context) {
	id, q, ok := datasetRequest(c)
	if !ok {
		return
	}
	shares, err := h.svc.Percentages(c.Request.Context(), id, q)
	if err != nil {
		HandleError(c, err)
		return
	}
	response.List(c, shares, len(shares))
}

// GetMonthly returns monthly totals
// @Summary Monthly totals
// @Tags Datasets
// @Produce json
// @Param id path int true "Import ID"
// @Success 200 {array} analysis.MonthlyAggregate
// @Router /datasets/{id}/monthly [get]
func (h *HandlerService) GetMonthly(c *gin.Context) {
	id, q, ok := datasetRequest(c)
	if !ok {
		return
	}
	monthly, err := h.svc.Monthly(c.Request.Context(), id, q)
	if err != nil {
		HandleError(c, err)
		return
	}
	response.List(c, monthly, len(monthly))
}

// GetStatistics returns descriptive statistics per service
// @Summary Service statistics
// @Tags Datasets
// @Produce json
// @Param id path int true "Import ID"
// @Success 200 {array} analysis.ServiceStat
// @Router /datasets/{id}/statistics [get]
func (h *HandlerService) GetStatistics(c *gin.Context) {
	id, q, ok := datasetRequest(c)
	if !ok {
		return
	}
	stats, err := h.svc.Statistics(c.Request.Context(), id, q)
	if err != nil {
		HandleError(c, err)
		return
	}
	response.List(c, stats, len(stats))
}

// GetForecast projects monthly costs
// @Summary Forecast
// @Description Fits a linear trend on monthly totals. Fewer than three months of history yields an empty forecast.
// @Tags Datasets
// @Produce json
// @Param id path int true "Import ID"
// @Param horizon query int false "Months to project"
// @Param service query string false "Forecast a single service"
// @Success 200 {object} models.ForecastResponse
// @Router /datasets/{id}/forecast [get]
func (h *HandlerService) GetForecast(c *gin.Context) {
	id, q, ok := datasetRequest(c)
	if !ok {
		return
	}
	horizon, err := intParam(c, "horizon", 0)
	if err != nil {
		HandleError(c, err)
		return
	}
	result, err := h.svc.Forecast(c.Request.Context(), id, q, horizon, c.Query("service"))
	if err != nil {
		HandleError(c, err)
		return
	}
	response.OK(c, result)
}

// GetAnomalies flags unusual months per service
// @Summary Anomalies
// @Tags Datasets
// @Produce json
// @Param id path int true "Import ID"
// @Param strategy query string false "Detection strategy" Enums(zscore, isolation_forest)
// @Param threshold query number false "Z-score threshold"
// @Param explain query bool false "Attach explanations"
// @Success 200 {object} models.AnomalyListResponse
// @Router /datasets/{id}/anomalies [get]
func (h *HandlerService) GetAnomalies(c *gin.Context) {
	id, q, ok := datasetRequest(c)
	if !ok {
		return
	}
	threshold, err := floatParam(c, "threshold")
	if err != nil {
		HandleError(c, err)
		return
	}
	explain, err := boolParam(c, "explain")
	if err != nil {
		HandleError(c, err)
		return
	}

	aq := service.AnomalyQuery{Strategy: c.Query("strategy"), Threshold: threshold, Explain: explain}
	records, err := h.svc.Anomalies(c.Request.Context(), id, q, aq)
	if err != nil {
		HandleError(c, err)
		return
	}
	response.List(c, records, len(records))
}

// GetRecommendations returns cost optimization recommendations
// @Summary Recommendations
// @Tags Datasets
// @Produce json
// @Param id path int true "Import ID"
// @Success 200 {object} models.RecommendationListResponse
// @Router /datasets/{id}/recommendations [get]
func (h *HandlerService) GetRecommendations(c *gin.Context) {
	id, q, ok := datasetRequest(c)
	if !ok {
		return
	}
	recs, err := h.svc.Recommendations(c.Request.Context(), id, q)
	if err != nil {
		HandleError(c, err)
		return
	}
	response.List(c, recs, len(recs))
}

// GetInsights returns a short narrative of the dataset
// @Summary Insights
// @Tags Datasets
// @Produce json
// @Param id path int true "Import ID"
// @Success 200 {object} models.InsightsResponse
// @Router /datasets/{id}/insights [get]
func (h *HandlerService) GetInsights(c *gin.Context) {
	id, q, ok := datasetRequest(c)
	if !ok {
		return
	}
	text, err := h.svc.Insights(c.Request.Context(), id, q)
	if err != nil {
		HandleError(c, err)
		return
	}
	response.OK(c, models.InsightsResponse{Insights: text})
}

// Chat answers a natural language question about a dataset
// @Summary Ask a question
// @Description Structured questions (totals, rankings, frequency) are answered directly; anything else goes to the language model when configured.
// @Tags Datasets
// @Accept json
// @Produce json
// @Param id path int true "Import ID"
// @Param request body models.ChatRequest true "Question"
// @Success 200 {object} models.ChatResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /datasets/{id}/chat [post]
func (h *HandlerService) Chat(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		HandleError(c, err)
		return
	}
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleError(c, NewBadRequestError("Question is required", err))
		return
	}
	answer, err := h.svc.Chat(c.Request.Context(), id, req.Question)
	if err != nil {
		HandleError(c, err)
		return
	}
	response.OK(c, answer)
}
