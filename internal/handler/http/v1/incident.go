package v1

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shenikar/pothole_tracker/internal/models"
	"github.com/shenikar/pothole_tracker/internal/query"
	"github.com/sirupsen/logrus"
)

// @Summary Create a new incident
// @Description Create an incident on behalf of the signed-in operator
// @Tags Incidents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param incident body ReportIncidentRequest true "Incident creation request"
// @Success 201 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents [post]
func (h *Handler) createIncident(c *gin.Context) {
	var input ReportIncidentRequest
	log := h.logger.WithField("method", "createIncident")

	if !h.bindAndValidate(c, log, &input) {
		return
	}

	incident, err := h.incidentService.CreateIncident(c.Request.Context(), currentPrincipal(c), DTOToIncidentInput(input))
	if err != nil {
		respondError(c, log, err, "incident")
		return
	}
	c.JSON(http.StatusCreated, ModelToIncidentResponse(incident))
}

// @Summary Get a list of incidents
// @Description Filtered incidents, most severe first and newest first within a severity
// @Tags Incidents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param severity query string false "critical | major | moderate | minor"
// @Param status query string false "reported | in-progress | resolved"
// @Param location query string false "Case-insensitive substring of the location"
// @Param assigned query string false "me | unassigned | user ID"
// @Success 200 {array} IncidentResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents [get]
func (h *Handler) listIncidents(c *gin.Context) {
	log := h.logger.WithField("method", "listIncidents")

	filter := query.Filter{
		Severity: models.Severity(strings.TrimSpace(c.Query("severity"))),
		Status:   models.Status(strings.TrimSpace(c.Query("status"))),
		Location: strings.TrimSpace(c.Query("location")),
	}
	switch assigned := strings.TrimSpace(c.Query("assigned")); assigned {
	case "":
	case "me":
		filter.AssignedTo = currentPrincipal(c).ID
	default:
		filter.AssignedTo = assigned
	}

	incidents, err := h.incidentService.ListIncidents(c.Request.Context(), filter)
	if err != nil {
		respondError(c, log, err, "incident")
		return
	}
	query.SortForOperators(incidents)

	c.JSON(http.StatusOK, ModelsToIncidentResponses(incidents))
}

// @Summary Get incident by ID
// @Description Get a single incident by its ID
// @Tags Incidents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Incident ID"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid incident ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/{id} [get]
func (h *Handler) getIncident(c *gin.Context) {
	id, ok := incidentID(c, c.Param("id"))
	if !ok {
		return
	}
	log := h.logger.WithField("method", "getIncident").WithField("id", id)

	incident, err := h.incidentService.GetIncident(c.Request.Context(), id)
	if err != nil {
		respondError(c, log, err, "incident")
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary Update an existing incident
// @Description Partially update an incident. Omitted fields are kept; an empty assigned_to clears the assignment.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Incident ID"
// @Param incident body UpdateIncidentRequest true "Incident update request"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid incident ID or request body"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/{id} [put]
func (h *Handler) updateIncident(c *gin.Context) {
	id, ok := incidentID(c, c.Param("id"))
	if !ok {
		return
	}
	log := h.logger.WithField("method", "updateIncident").WithField("id", id)

	var input UpdateIncidentRequest
	if !h.bindAndValidate(c, log, &input) {
		return
	}

	update := DTOToIncidentUpdate(input)
	if update.IsEmpty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
		return
	}

	incident, err := h.incidentService.UpdateIncident(c.Request.Context(), currentPrincipal(c), id, update)
	if err != nil {
		respondError(c, log, err, "incident")
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary Delete an incident
// @Description Permanently delete an incident. Admin only.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Incident ID"
// @Success 204 "No Content"
// @Failure 400 {object} map[string]string "Invalid incident ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/{id} [delete]
func (h *Handler) deleteIncident(c *gin.Context) {
	id, ok := incidentID(c, c.Param("id"))
	if !ok {
		return
	}
	log := h.logger.WithField("method", "deleteIncident").WithField("id", id)

	if err := h.incidentService.DeleteIncident(c.Request.Context(), currentPrincipal(c), id); err != nil {
		respondError(c, log, err, "incident")
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary Assign an incident
// @Description Assign an incident to a user (the caller when user_id is empty) and move it to in-progress
// @Tags Incidents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Incident ID"
// @Param assignment body AssignIncidentRequest false "Assignee"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid incident ID"
// @Failure 404 {object} map[string]string "Incident not found"
// @Router /incidents/{id}/assign [post]
func (h *Handler) assignIncident(c *gin.Context) {
	id, ok := incidentID(c, c.Param("id"))
	if !ok {
		return
	}
	log := h.logger.WithField("method", "assignIncident").WithField("id", id)

	var input AssignIncidentRequest
	// тело необязательно
	if c.Request.ContentLength > 0 && !h.bindAndValidate(c, log, &input) {
		return
	}
	h.assign(c, log.WithField("user_id", input.UserID), id, input.UserID)
}

// @Summary Assign an incident (legacy form)
// @Description Same as POST /incidents/{id}/assign with the incident ID in the body
// @Tags Dashboard
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param assignment body LegacyAssignRequest true "Assignment"
// @Success 200 {object} IncidentResponse
// @Router /dashboard/assign [post]
func (h *Handler) legacyAssign(c *gin.Context) {
	var input LegacyAssignRequest
	log := h.logger.WithField("method", "legacyAssign")

	if !h.bindAndValidate(c, log, &input) {
		return
	}
	id, ok := incidentID(c, input.IncidentID)
	if !ok {
		return
	}
	h.assign(c, log.WithField("id", id), id, input.UserID)
}

func (h *Handler) assign(c *gin.Context, log *logrus.Entry, id, userID string) {
	incident, err := h.incidentService.AssignIncident(c.Request.Context(), currentPrincipal(c), id, userID)
	if err != nil {
		respondError(c, log, err, "incident")
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary Change incident status
// @Tags Incidents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Incident ID"
// @Param status body UpdateStatusRequest true "New status"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid incident ID or status"
// @Failure 404 {object} map[string]string "Incident not found"
// @Router /incidents/{id}/status [post]
func (h *Handler) updateStatus(c *gin.Context) {
	id, ok := incidentID(c, c.Param("id"))
	if !ok {
		return
	}
	log := h.logger.WithField("method", "updateStatus").WithField("id", id)

	var input UpdateStatusRequest
	if !h.bindAndValidate(c, log, &input) {
		return
	}
	h.setStatus(c, log, id, models.Status(input.Status))
}

// @Summary Change incident status (legacy form)
// @Tags Dashboard
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param status body LegacyStatusRequest true "Incident ID and new status"
// @Success 200 {object} IncidentResponse
// @Router /dashboard/update-status [post]
func (h *Handler) legacyUpdateStatus(c *gin.Context) {
	var input LegacyStatusRequest
	log := h.logger.WithField("method", "legacyUpdateStatus")

	if !h.bindAndValidate(c, log, &input) {
		return
	}
	id, ok := incidentID(c, input.IncidentID)
	if !ok {
		return
	}
	h.setStatus(c, log.WithField("id", id), id, models.Status(input.Status))
}

func (h *Handler) setStatus(c *gin.Context, log *logrus.Entry, id string, status models.Status) {
	incident, err := h.incidentService.UpdateStatus(c.Request.Context(), currentPrincipal(c), id, status)
	if err != nil {
		respondError(c, log, err, "incident")
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary Comment on an incident
// @Tags Incidents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Incident ID"
// @Param comment body CommentRequest true "Comment"
// @Success 201 {object} CommentResponse
// @Failure 400 {object} map[string]string "Invalid incident ID or empty comment"
// @Failure 404 {object} map[string]string "Incident not found"
// @Router /incidents/{id}/comments [post]
func (h *Handler) addComment(c *gin.Context) {
	id, ok := incidentID(c, c.Param("id"))
	if !ok {
		return
	}
	log := h.logger.WithField("method", "addComment").WithField("id", id)

	var input CommentRequest
	if !h.bindAndValidate(c, log, &input) {
		return
	}

	comment, err := h.incidentService.AddComment(c.Request.Context(), currentPrincipal(c), id, input.Text)
	if err != nil {
		respondError(c, log, err, "incident")
		return
	}
	c.JSON(http.StatusCreated, ModelToCommentResponse(comment))
}
