package v1

import (
	"github.com/shenikar/pothole_tracker/internal/models"
	"github.com/shenikar/pothole_tracker/internal/stats"
)

// ReportIncidentRequest DTO для сообщения о яме (публичная форма и панель оператора)
// @Description DTO для сообщения о яме
type ReportIncidentRequest struct {
	Location    string   `json:"location" validate:"required,max=500"`
	Severity    string   `json:"severity,omitempty" validate:"omitempty,oneof=critical major moderate minor"`
	Description string   `json:"description,omitempty" validate:"max=2000"`
	Latitude    *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude   *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
}

// UpdateIncidentRequest DTO для частичного обновления инцидента; отсутствующие поля не меняются.
// Пустой assigned_to снимает назначение, clear_coordinates убирает точку с карты.
// @Description DTO для обновления инцидента
type UpdateIncidentRequest struct {
	Location    *string  `json:"location,omitempty" validate:"omitempty,max=500"`
	Severity    *string  `json:"severity,omitempty" validate:"omitempty,oneof=critical major moderate minor"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=2000"`
	Latitude    *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude   *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
	Status      *string  `json:"status,omitempty" validate:"omitempty,oneof=reported in-progress resolved"`
	Priority    *string  `json:"priority,omitempty" validate:"omitempty,oneof=high medium low"`
	AssignedTo  *string  `json:"assigned_to,omitempty"`

	ClearCoordinates bool `json:"clear_coordinates,omitempty" validate:"excluded_with=Latitude Longitude"`
}

// UpdateStatusRequest DTO для смены статуса
// @Description DTO для смены статуса
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=reported in-progress resolved"`
}

// AssignIncidentRequest DTO для назначения; пустой user_id - назначить на себя
// @Description DTO для назначения исполнителя
type AssignIncidentRequest struct {
	UserID string `json:"user_id,omitempty"`
}

// LegacyAssignRequest DTO формата старой панели, ID инцидента в теле запроса
type LegacyAssignRequest struct {
	IncidentID string `json:"incident_id" validate:"required"`
	UserID     string `json:"user_id,omitempty"`
}

// LegacyStatusRequest DTO формата старой панели, ID инцидента в теле запроса
type LegacyStatusRequest struct {
	IncidentID string `json:"incident_id" validate:"required"`
	Status     string `json:"status" validate:"required,oneof=reported in-progress resolved"`
}

// CommentRequest DTO для комментария
type CommentRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

// CommentResponse DTO комментария
type CommentResponse struct {
	ID        int              `json:"id"`
	Text      string           `json:"text"`
	Author    string           `json:"author"`
	AuthorID  string           `json:"author_id"`
	CreatedAt models.Timestamp `json:"created_at"`
}

// IncidentResponse DTO для ответа с информацией об инциденте
// @Description DTO для ответа с информацией об инциденте
type IncidentResponse struct {
	ID          string             `json:"id"`
	Location    string             `json:"location"`
	Severity    string             `json:"severity"`
	Description string             `json:"description"`
	Latitude    *float64           `json:"latitude"`
	Longitude   *float64           `json:"longitude"`
	Status      string             `json:"status"`
	Priority    string             `json:"priority"`
	CreatedAt   models.Timestamp   `json:"created_at"`
	UpdatedAt   models.Timestamp   `json:"updated_at"`
	CreatedBy   *string            `json:"created_by,omitempty"`
	AssignedTo  *string            `json:"assigned_to"`
	Comments    []*CommentResponse `json:"comments"`
}

// PublicIncidentResponse - обезличенный инцидент для публичных страниц
type PublicIncidentResponse struct {
	ID        string           `json:"id"`
	Location  string           `json:"location"`
	Severity  string           `json:"severity"`
	Status    string           `json:"status"`
	Latitude  *float64         `json:"latitude"`
	Longitude *float64         `json:"longitude"`
	CreatedAt models.Timestamp `json:"created_at"`
}

// PublicFeedResponse - лента последних сообщений с агрегатами
type PublicFeedResponse struct {
	Incidents []*PublicIncidentResponse `json:"incidents"`
	Stats     stats.PublicStats         `json:"stats"`
}

// PublicStatsResponse - публичные итоги по статусам и уровням серьезности
type PublicStatsResponse struct {
	Totals   stats.PublicStats    `json:"totals"`
	Status   stats.StatusCounts   `json:"status"`
	Severity stats.SeverityCounts `json:"severity"`
}

// DashboardResponse - данные главной страницы оператора
type DashboardResponse struct {
	Stats           stats.SummaryStats  `json:"stats"`
	UserStats       stats.UserStats     `json:"user_stats"`
	RecentIncidents []*IncidentResponse `json:"recent_incidents"`
	MyIncidents     []*IncidentResponse `json:"my_incidents"`
}

// ProfileResponse - профиль текущего пользователя
type ProfileResponse struct {
	User  *UserResponse   `json:"user"`
	Stats stats.UserStats `json:"stats"`
}

// LoginRequest DTO для входа; username принимает и email
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse DTO с токеном сессии
type LoginResponse struct {
	Token string        `json:"token"`
	User  *UserResponse `json:"user"`
}

// CreateUserRequest DTO для создания пользователя
type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role,omitempty" validate:"omitempty,oneof=admin operator"`
}

// UpdateUserRequest DTO для изменения пользователя
type UpdateUserRequest struct {
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=6"`
	Role     *string `json:"role,omitempty" validate:"omitempty,oneof=admin operator"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// UserResponse DTO пользователя без хэша пароля
type UserResponse struct {
	ID        string           `json:"id"`
	Username  string           `json:"username"`
	Email     string           `json:"email"`
	Role      string           `json:"role"`
	CreatedAt models.Timestamp `json:"created_at"`
	IsActive  bool             `json:"is_active"`
}

// HealthResponse DTO проверки состояния
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// SystemInfoResponse - какие интеграции настроены
type SystemInfoResponse struct {
	Version          string `json:"version"`
	StorageDriver    string `json:"storage_driver"`
	RedisEnabled     bool   `json:"redis_enabled"`
	WebhooksEnabled  bool   `json:"webhooks_enabled"`
	MapboxConfigured bool   `json:"mapbox_configured"`
	SMTPConfigured   bool   `json:"smtp_configured"`
	TimelineDays     int    `json:"timeline_days"`
	RecentWindowDays int    `json:"recent_window_days"`
	ReportRateLimit  int    `json:"report_rate_limit"`
}

// UserCounts - количество учетных записей
type UserCounts struct {
	Total  int `json:"total"`
	Active int `json:"active"`
	Admins int `json:"admins"`
}

// AdminStatsResponse DTO для ответа со статистикой администратора
type AdminStatsResponse struct {
	Incidents stats.SummaryStats `json:"incidents"`
	Users     UserCounts         `json:"users"`
}
