package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shenikar/pothole_tracker/internal/query"
	"github.com/shenikar/pothole_tracker/internal/stats"
)

const (
	dashboardRecentLimit = 10
	maxTimelineDays      = 365
)

// @Summary Operator dashboard
// @Description Summary statistics, newest incidents and incidents assigned to the caller
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} DashboardResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /dashboard [get]
func (h *Handler) dashboard(c *gin.Context) {
	log := h.logger.WithField("method", "dashboard")
	principal := currentPrincipal(c)

	incidents, err := h.incidentService.ListIncidents(c.Request.Context(), query.Filter{})
	if err != nil {
		respondError(c, log, err, "incident")
		return
	}

	mine := query.Apply(incidents, query.Filter{AssignedTo: principal.ID})
	query.SortForOperators(mine)

	c.JSON(http.StatusOK, DashboardResponse{
		Stats:           stats.Summary(incidents, h.now(), h.cfg.RecentWindow()),
		UserStats:       stats.ForUser(incidents, principal.ID),
		RecentIncidents: ModelsToIncidentResponses(query.Newest(incidents, dashboardRecentLimit)),
		MyIncidents:     ModelsToIncidentResponses(mine),
	})
}

// @Summary Dashboard statistics
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} stats.SummaryStats
// @Router /dashboard/stats [get]
func (h *Handler) dashboardStats(c *gin.Context) {
	log := h.logger.WithField("method", "dashboardStats")

	incidents, err := h.incidentService.ListIncidents(c.Request.Context(), query.Filter{})
	if err != nil {
		respondError(c, log, err, "incident")
		return
	}
	c.JSON(http.StatusOK, stats.Summary(incidents, h.now(), h.cfg.RecentWindow()))
}

// @Summary Daily timeline
// @Description Incidents created per day over the last N days, one entry per day including today
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Param days query int false "Window in days" default(30)
// @Success 200 {object} stats.Series
// @Failure 400 {object} map[string]string "Invalid days"
// @Router /dashboard/timeline [get]
func (h *Handler) dashboardTimeline(c *gin.Context) {
	log := h.logger.WithField("method", "dashboardTimeline")

	days := h.cfg.TimelineDays
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxTimelineDays {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be between 1 and 365"})
			return
		}
		days = parsed
	}

	incidents, err := h.incidentService.ListIncidents(c.Request.Context(), query.Filter{})
	if err != nil {
		respondError(c, log, err, "incident")
		return
	}
	c.JSON(http.StatusOK, stats.AsSeries(stats.DailyTimeline(incidents, days, h.now())))
}

// @Summary Analytics
// @Description Monthly trend with severity and status distributions
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} stats.AnalyticsData
// @Router /dashboard/analytics [get]
func (h *Handler) dashboardAnalytics(c *gin.Context) {
	log := h.logger.WithField("method", "dashboardAnalytics")

	incidents, err := h.incidentService.ListIncidents(c.Request.Context(), query.Filter{})
	if err != nil {
		respondError(c, log, err, "incident")
		return
	}
	c.JSON(http.StatusOK, stats.Analytics(incidents))
}

// @Summary Current user profile
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ProfileResponse
// @Router /dashboard/profile [get]
func (h *Handler) profile(c *gin.Context) {
	principal := currentPrincipal(c)
	log := h.logger.WithField("method", "profile").WithField("user_id", principal.ID)

	user, err := h.userService.GetUser(c.Request.Context(), principal.ID)
	if err != nil {
		respondError(c, log, err, "user")
		return
	}
	incidents, err := h.incidentService.ListIncidents(c.Request.Context(), query.Filter{AssignedTo: principal.ID})
	if err != nil {
		respondError(c, log, err, "incident")
		return
	}
	c.JSON(http.StatusOK, ProfileResponse{
		User:  ModelToUserResponse(user),
		Stats: stats.ForUser(incidents, principal.ID),
	})
}
