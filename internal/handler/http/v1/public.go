package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shenikar/pothole_tracker/internal/query"
	"github.com/shenikar/pothole_tracker/internal/stats"
)

// @Summary Report a pothole
// @Description Anonymous report from the public form. Rate limited per client IP.
// @Tags Public
// @Accept json
// @Produce json
// @Param report body ReportIncidentRequest true "Report"
// @Success 201 {object} PublicIncidentResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 429 {object} map[string]string "Too many reports"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /public/reports [post]
func (h *Handler) reportIncident(c *gin.Context) {
	var input ReportIncidentRequest
	log := h.logger.WithField("method", "reportIncident").WithField("client_ip", c.ClientIP())

	if !h.bindAndValidate(c, log, &input) {
		return
	}

	incident, err := h.incidentService.ReportIncident(c.Request.Context(), DTOToIncidentInput(input))
	if err != nil {
		respondError(c, log, err, "incident")
		return
	}
	c.JSON(http.StatusCreated, ModelToPublicResponse(incident))
}

// @Summary Get a public report
// @Description Anonymized view of a single report
// @Tags Public
// @Produce json
// @Param id path string true "Incident ID"
// @Success 200 {object} PublicIncidentResponse
// @Failure 400 {object} map[string]string "Invalid incident ID"
// @Failure 404 {object} map[string]string "Incident not found"
// @Router /public/reports/{id} [get]
func (h *Handler) getPublicReport(c *gin.Context) {
	id, ok := incidentID(c, c.Param("id"))
	if !ok {
		return
	}
	log := h.logger.WithField("method", "getPublicReport").WithField("id", id)

	incident, err := h.incidentService.GetIncident(c.Request.Context(), id)
	if err != nil {
		respondError(c, log, err, "incident")
		return
	}
	c.JSON(http.StatusOK, ModelToPublicResponse(incident))
}

// @Summary List public incidents
// @Description All incidents, anonymized, newest first
// @Tags Public
// @Produce json
// @Success 200 {array} PublicIncidentResponse
// @Router /public/incidents [get]
func (h *Handler) listPublicIncidents(c *gin.Context) {
	log := h.logger.WithField("method", "listPublicIncidents")

	incidents, err := h.incidentService.ListIncidents(c.Request.Context(), query.Filter{})
	if err != nil {
		respondError(c, log, err, "incident")
		return
	}
	query.SortByNewest(incidents)
	c.JSON(http.StatusOK, ModelsToPublicResponses(incidents))
}

// @Summary Public feed
// @Description Newest anonymized reports with headline totals
// @Tags Public
// @Produce json
// @Success 200 {object} PublicFeedResponse
// @Router /public/feed [get]
func (h *Handler) publicFeed(c *gin.Context) {
	log := h.logger.WithField("method", "publicFeed")

	incidents, err := h.incidentService.ListIncidents(c.Request.Context(), query.Filter{})
	if err != nil {
		respondError(c, log, err, "incident")
		return
	}
	c.JSON(http.StatusOK, PublicFeedResponse{
		Incidents: ModelsToPublicResponses(query.Newest(incidents, h.cfg.PublicFeedLimit)),
		Stats:     stats.Public(incidents),
	})
}

// @Summary Public map
// @Description Anonymized incidents that carry coordinates
// @Tags Public
// @Produce json
// @Success 200 {array} PublicIncidentResponse
// @Router /public/map [get]
func (h *Handler) publicMap(c *gin.Context) {
	log := h.logger.WithField("method", "publicMap")

	incidents, err := h.incidentService.ListIncidents(c.Request.Context(), query.Filter{})
	if err != nil {
		respondError(c, log, err, "incident")
		return
	}
	c.JSON(http.StatusOK, ModelsToPublicResponses(query.WithCoordinates(incidents)))
}

// @Summary Public statistics
// @Tags Public
// @Produce json
// @Success 200 {object} PublicStatsResponse
// @Router /public/stats [get]
func (h *Handler) publicStats(c *gin.Context) {
	log := h.logger.WithField("method", "publicStats")

	incidents, err := h.incidentService.ListIncidents(c.Request.Context(), query.Filter{})
	if err != nil {
		respondError(c, log, err, "incident")
		return
	}
	c.JSON(http.StatusOK, PublicStatsResponse{
		Totals:   stats.Public(incidents),
		Status:   stats.StatusDistribution(incidents),
		Severity: stats.SeverityDistribution(incidents),
	})
}
