package v1

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shenikar/pothole_tracker/internal/config"
	"github.com/shenikar/pothole_tracker/internal/service"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	incidentService service.IncidentService
	authService     service.AuthService
	userService     service.UserService
	logger          *logrus.Logger
	validate        *validator.Validate
	cfg             *config.Config
	reportLimiter   gin.HandlerFunc
	now             func() time.Time
}

func NewHandler(
	incidentService service.IncidentService,
	authService service.AuthService,
	userService service.UserService,
	logger *logrus.Logger,
	cfg *config.Config,
) *Handler {
	return &Handler{
		incidentService: incidentService,
		authService:     authService,
		userService:     userService,
		logger:          logger,
		validate:        validator.New(),
		cfg:             cfg,
		reportLimiter:   ReportRateLimiter(cfg.ReportRateLimit, logger),
		now:             time.Now,
	}
}

// bindAndValidate разбирает JSON тела и проверяет теги validate; при ошибке ответ уже записан
func (h *Handler) bindAndValidate(c *gin.Context, log *logrus.Entry, input any) bool {
	if err := c.ShouldBindJSON(input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// incidentID проверяет, что параметр пути - UUID
func incidentID(c *gin.Context, raw string) (string, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return "", false
	}
	return id.String(), true
}

// respondError переводит ошибки сервиса в HTTP-статусы
func respondError(c *gin.Context, log *logrus.Entry, err error, entity string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		log.WithError(err).Warn("Rejected by validation")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		log.WithError(err).Warn("Entity not found")
		c.JSON(http.StatusNotFound, gin.H{"error": entity + " not found"})
	case errors.Is(err, service.ErrForbidden):
		log.WithError(err).Warn("Operation forbidden")
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	case errors.Is(err, service.ErrUserExists):
		c.JSON(http.StatusConflict, gin.H{"error": "user already exists"})
	default:
		log.WithError(err).Error("Service call failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// @Summary Get application health status
// @Description Get health status of the application
// @Tags System
// @Accept json
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: h.now().UTC().Format(time.RFC3339),
		Version:   h.cfg.Version,
	})
}
