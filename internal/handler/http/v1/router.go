package v1

import (
	"net/http"
	"slices"
	"strconv"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shenikar/pothole_tracker/internal/models"
	"github.com/sirupsen/logrus"
)

// RegisterRoutes регистрирует все маршруты API v1
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	// Маршрут Health-check
	api.GET("/system/health", h.healthCheck)
	api.POST("/auth/login", h.login)

	// Публичные страницы, без аутентификации
	public := api.Group("/public")
	{
		public.POST("/reports", h.reportLimiter, h.reportIncident)
		public.GET("/reports/:id", h.getPublicReport)
		public.GET("/incidents", h.listPublicIncidents)
		public.GET("/feed", h.publicFeed)
		public.GET("/map", h.publicMap)
		public.GET("/stats", h.publicStats)
	}

	authorized := api.Group("", AuthMiddleware(h.authService, h.logger))

	dashboard := authorized.Group("/dashboard")
	{
		dashboard.GET("", h.dashboard)
		dashboard.GET("/stats", h.dashboardStats)
		dashboard.GET("/timeline", h.dashboardTimeline)
		dashboard.GET("/analytics", h.dashboardAnalytics)
		dashboard.GET("/profile", h.profile)
		dashboard.POST("/assign", h.legacyAssign)
		dashboard.POST("/update-status", h.legacyUpdateStatus)
	}

	// Маршруты для управления инцидентами (CRUD)
	incidents := authorized.Group("/incidents")
	{
		incidents.POST("", h.createIncident)
		incidents.GET("", h.listIncidents)
		incidents.GET("/:id", h.getIncident)
		incidents.PUT("/:id", h.updateIncident)
		incidents.DELETE("/:id", RequireRole(models.RoleAdmin), h.deleteIncident)
		incidents.POST("/:id/assign", h.assignIncident)
		incidents.POST("/:id/status", h.updateStatus)
		incidents.POST("/:id/comments", h.addComment)
	}

	admin := authorized.Group("/admin", RequireRole(models.RoleAdmin))
	{
		admin.GET("/users", h.listUsers)
		admin.POST("/users", h.createUser)
		admin.GET("/users/:id", h.getUser)
		admin.PUT("/users/:id", h.updateUser)
		admin.DELETE("/users/:id", h.deleteUser)
		admin.GET("/system", h.systemInfo)
		admin.GET("/stats", h.adminStats)
	}
}

// ReportRateLimiter ограничивает число публичных сообщений в минуту с одного IP; limit <= 0 отключает ограничение
func ReportRateLimiter(limit int, log *logrus.Logger) gin.HandlerFunc {
	if limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	store := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Minute,
		Limit: uint(limit),
	})
	return ratelimit.RateLimiter(store, &ratelimit.Options{
		ErrorHandler: func(c *gin.Context, info ratelimit.Info) {
			log.WithField("client_ip", c.ClientIP()).Warn("Report rate limit exceeded")
			retryAfter := int(time.Until(info.ResetTime).Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many reports, try again later"})
		},
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	})
}

// CORSMiddleware разрешает запросы публичной карты с указанных источников; "*" - с любых
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders: []string{"Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = allowedOrigins
	}
	return cors.New(cfg)
}
