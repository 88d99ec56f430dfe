package v1

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shenikar/pothole_tracker/internal/models"
	"github.com/shenikar/pothole_tracker/internal/service"
	"github.com/sirupsen/logrus"
)

const principalKey = "principal"

// AuthMiddleware - middleware для аутентификации по токену сессии (Authorization: Bearer)
func AuthMiddleware(auth service.AuthService, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(authHeader, "Bearer ")
		token = strings.TrimSpace(token)
		if !found || token == "" {
			log.WithField("path", c.FullPath()).Warn("Token missing from request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		principal, err := auth.ParseToken(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, service.ErrInvalidCredentials) {
				log.WithError(err).Error("Failed to verify token")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
				return
			}
			log.WithError(err).Warn("Invalid token provided")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(principalKey, *principal)
		c.Next()
	}
}

// RequireRole пропускает только пользователей с указанной ролью
func RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentPrincipal(c).Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// currentPrincipal возвращает пользователя, положенного в контекст AuthMiddleware
func currentPrincipal(c *gin.Context) models.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(models.Principal); ok {
			return p
		}
	}
	return models.Principal{}
}

// @Summary Log in
// @Description Exchange username (or email) and password for a bearer token
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "Credentials"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 401 {object} map[string]string "Invalid credentials"
// @Router /auth/login [post]
func (h *Handler) login(c *gin.Context) {
	var input LoginRequest
	log := h.logger.WithField("method", "login")

	if !h.bindAndValidate(c, log, &input) {
		return
	}

	user, token, err := h.authService.Login(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		respondError(c, log, err, "user")
		return
	}
	c.JSON(http.StatusOK, LoginResponse{Token: token, User: ModelToUserResponse(user)})
}
