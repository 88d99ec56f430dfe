package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shenikar/pothole_tracker/internal/models"
	"github.com/shenikar/pothole_tracker/internal/query"
	"github.com/shenikar/pothole_tracker/internal/stats"
)

// @Summary List users
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} UserResponse
// @Failure 403 {object} map[string]string "Forbidden"
// @Router /admin/users [get]
func (h *Handler) listUsers(c *gin.Context) {
	log := h.logger.WithField("method", "listUsers")

	users, err := h.userService.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, log, err, "user")
		return
	}
	c.JSON(http.StatusOK, ModelsToUserResponses(users))
}

// @Summary Create a user
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param user body CreateUserRequest true "User"
// @Success 201 {object} UserResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 409 {object} map[string]string "Username or email taken"
// @Router /admin/users [post]
func (h *Handler) createUser(c *gin.Context) {
	var input CreateUserRequest
	log := h.logger.WithField("method", "createUser")

	if !h.bindAndValidate(c, log, &input) {
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), models.NewUserInput{
		Username: input.Username,
		Email:    input.Email,
		Password: input.Password,
		Role:     models.Role(input.Role),
	})
	if err != nil {
		respondError(c, log, err, "user")
		return
	}
	c.JSON(http.StatusCreated, ModelToUserResponse(user))
}

// @Summary Get a user
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} UserResponse
// @Failure 404 {object} map[string]string "User not found"
// @Router /admin/users/{id} [get]
func (h *Handler) getUser(c *gin.Context) {
	id := c.Param("id")
	log := h.logger.WithField("method", "getUser").WithField("id", id)

	user, err := h.userService.GetUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, log, err, "user")
		return
	}
	c.JSON(http.StatusOK, ModelToUserResponse(user))
}

// @Summary Update a user
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param user body UpdateUserRequest true "Changes"
// @Success 200 {object} UserResponse
// @Failure 403 {object} map[string]string "Cannot demote or deactivate own account"
// @Failure 404 {object} map[string]string "User not found"
// @Router /admin/users/{id} [put]
func (h *Handler) updateUser(c *gin.Context) {
	id := c.Param("id")
	log := h.logger.WithField("method", "updateUser").WithField("id", id)

	var input UpdateUserRequest
	if !h.bindAndValidate(c, log, &input) {
		return
	}

	user, err := h.userService.UpdateUser(c.Request.Context(), currentPrincipal(c), id, DTOToUserUpdate(input))
	if err != nil {
		respondError(c, log, err, "user")
		return
	}
	c.JSON(http.StatusOK, ModelToUserResponse(user))
}

// @Summary Delete a user
// @Tags Admin
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 204 "No Content"
// @Failure 403 {object} map[string]string "Cannot delete own account"
// @Failure 404 {object} map[string]string "User not found"
// @Router /admin/users/{id} [delete]
func (h *Handler) deleteUser(c *gin.Context) {
	id := c.Param("id")
	log := h.logger.WithField("method", "deleteUser").WithField("id", id)

	if err := h.userService.DeleteUser(c.Request.Context(), currentPrincipal(c), id); err != nil {
		respondError(c, log, err, "user")
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary System information
// @Description Version and which integrations are configured
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} SystemInfoResponse
// @Router /admin/system [get]
func (h *Handler) systemInfo(c *gin.Context) {
	c.JSON(http.StatusOK, SystemInfoResponse{
		Version:          h.cfg.Version,
		StorageDriver:    h.cfg.StorageDriver,
		RedisEnabled:     h.cfg.RedisEnabled(),
		WebhooksEnabled:  h.cfg.RedisEnabled() && h.cfg.WebhookURL != "",
		MapboxConfigured: h.cfg.MapboxAccessToken != "",
		SMTPConfigured:   h.cfg.SMTPServer != "",
		TimelineDays:     h.cfg.TimelineDays,
		RecentWindowDays: h.cfg.RecentWindowDays,
		ReportRateLimit:  h.cfg.ReportRateLimit,
	})
}

// @Summary Get admin statistics
// @Description Incident summary plus user account counts
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} AdminStatsResponse
// @Router /admin/stats [get]
func (h *Handler) adminStats(c *gin.Context) {
	log := h.logger.WithField("method", "adminStats")

	incidents, err := h.incidentService.ListIncidents(c.Request.Context(), query.Filter{})
	if err != nil {
		respondError(c, log, err, "incident")
		return
	}
	users, err := h.userService.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, log, err, "user")
		return
	}

	counts := UserCounts{Total: len(users)}
	for _, u := range users {
		if u.IsActive {
			counts.Active++
		}
		if u.Role == models.RoleAdmin {
			counts.Admins++
		}
	}

	c.JSON(http.StatusOK, AdminStatsResponse{
		Incidents: stats.Summary(incidents, h.now(), h.cfg.RecentWindow()),
		Users:     counts,
	})
}
