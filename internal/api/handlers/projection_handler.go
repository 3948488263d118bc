package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ukryl/stock-projection-app/backend-go/internal/config"
	"github.com/ukryl/stock-projection-app/backend-go/internal/domain"
	"github.com/ukryl/stock-projection-app/backend-go/internal/ingest"
	"github.com/ukryl/stock-projection-app/backend-go/internal/service"
)

type ProjectionHandler struct {
	service *service.ProjectionService
	cfg     config.ProjectionConfig
}

func NewProjectionHandler(service *service.ProjectionService, cfg config.ProjectionConfig) *ProjectionHandler {
	return &ProjectionHandler{service: service, cfg: cfg}
}

func (h *ProjectionHandler) parseFilter(c *gin.Context) domain.ProjectionFilter {
	filter := domain.ProjectionFilter{}

	if runID, err := strconv.ParseInt(c.DefaultQuery("run_id", "0"), 10, 64); err == nil && runID > 0 {
		filter.RunID = runID
	}

	if priority := strings.ToLower(strings.TrimSpace(c.Query("priority"))); priority != "" {
		filter.Priority = domain.Priority(priority)
	}

	// Support both repeated params and comma-separated lists:
	//   ?group_keys=A&group_keys=B
	//   ?group_keys=A,B
	rawKeys := c.QueryArray("group_keys")
	if len(rawKeys) == 0 {
		if single := strings.TrimSpace(c.Query("group_key")); single != "" {
			rawKeys = []string{single}
		}
	}
	for _, v := range rawKeys {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				filter.GroupKeys = append(filter.GroupKeys, part)
			}
		}
	}

	return filter
}

// GetFlows returns the group stock trajectories of a stored run.
func (h *ProjectionHandler) GetFlows(c *gin.Context) {
	filter := h.parseFilter(c)
	groups, err := h.service.GetGroupFlows(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if groups == nil {
		groups = make([]domain.GroupFlow, 0)
	}
	c.JSON(http.StatusOK, gin.H{"data": groups, "count": len(groups)})
}

// GetRecommendations returns the winding worklist of a stored run.
func (h *ProjectionHandler) GetRecommendations(c *gin.Context) {
	filter := h.parseFilter(c)
	if filter.Priority != "" {
		switch filter.Priority {
		case domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "priority must be high, medium or low"})
			return
		}
	}

	recs, err := h.service.GetRecommendations(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if recs == nil {
		recs = make([]domain.Recommendation, 0)
	}
	c.JSON(http.StatusOK, gin.H{"data": recs, "count": len(recs)})
}

// GetKPIs returns the KPI summary of a stored run.
func (h *ProjectionHandler) GetKPIs(c *gin.Context) {
	filter := h.parseFilter(c)
	summary, err := h.service.GetKPIs(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": summary})
}

// GetGroups lists the group keys available in a stored run.
func (h *ProjectionHandler) GetGroups(c *gin.Context) {
	filter := h.parseFilter(c)
	keys, err := h.service.GetGroupKeys(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if keys == nil {
		keys = make([]string, 0)
	}
	c.JSON(http.StatusOK, gin.H{"data": keys, "count": len(keys)})
}

// GetLatestRun returns the most recent completed run record.
func (h *ProjectionHandler) GetLatestRun(c *gin.Context) {
	run, err := h.service.LatestRun(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no completed projection run available"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": run})
}

// Run loads the current snapshot directory and executes a projection run.
// Query params override the configured run defaults.
func (h *ProjectionHandler) Run(c *gin.Context) {
	params, err := h.parseRunParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snap, err := ingest.LoadDir(h.cfg.DataDir)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Run(c.Request.Context(), snap, params)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"params":          result.Params,
			"groups":          len(result.Groups),
			"recommendations": len(result.Recommendations),
			"kpis":            result.KPIs,
			"degraded":        result.Degraded,
			"generated_at":    result.GeneratedAt,
		},
	})
}

func (h *ProjectionHandler) parseRunParams(c *gin.Context) (domain.RunParams, error) {
	params := domain.RunParams{
		Start:             domain.PeriodOf(time.Now()).Next(),
		HorizonMonths:     h.cfg.HorizonMonths,
		SafetyStockKg:     h.cfg.SafetyStockKg,
		SafetyStockPolicy: domain.SafetyStockPolicy(h.cfg.SafetyStockPolicy),
		WindingRateKgDay:  h.cfg.WindingRateKgDay,
		Grouping:          domain.GroupingLevel(h.cfg.Grouping),
	}

	if start := strings.TrimSpace(c.Query("start")); start != "" {
		period, err := domain.ParsePeriod(start)
		if err != nil {
			return params, err
		}
		params.Start = period
	}
	if horizon := strings.TrimSpace(c.Query("horizon")); horizon != "" {
		n, err := strconv.Atoi(horizon)
		if err != nil {
			return params, err
		}
		params.HorizonMonths = n
	}
	if safety := strings.TrimSpace(c.Query("safety_stock")); safety != "" {
		v, err := strconv.ParseFloat(safety, 64)
		if err != nil {
			return params, err
		}
		params.SafetyStockKg = v
	}
	if policy := strings.TrimSpace(c.Query("safety_stock_policy")); policy != "" {
		params.SafetyStockPolicy = domain.SafetyStockPolicy(policy)
	}
	if grouping := strings.ToLower(strings.TrimSpace(c.Query("grouping"))); grouping != "" {
		params.Grouping = domain.GroupingLevel(grouping)
	}

	return params, nil
}
