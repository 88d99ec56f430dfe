package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shenikar/pothole_tracker/internal/config"
	"github.com/shenikar/pothole_tracker/internal/models"
	"github.com/shenikar/pothole_tracker/internal/repository"
	"github.com/shenikar/pothole_tracker/internal/service"
	"github.com/shenikar/pothole_tracker/internal/service/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"
)

// newUserStoreRouter собирает роутер на настоящих хранилище пользователей, UserService и AuthService
func newUserStoreRouter(t *testing.T) (*repository.FileUserRepository, *gin.Engine) {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	users := repository.NewFileUserRepository(t.TempDir(), logger)
	authSvc := service.NewAuthService(users, "test-secret", time.Hour, logger)
	userSvc := service.NewUserService(users, logger)
	incidents := mocks.NewMockIncidentService(gomock.NewController(t))
	incidents.EXPECT().ListIncidents(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()

	cfg := &config.Config{Version: "test", StorageDriver: config.StorageFile, TimelineDays: 30}
	handler := NewHandler(incidents, authSvc, userSvc, logger, cfg)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler.RegisterRoutes(router.Group("/api/v1"))
	return users, router
}

func storeUser(t *testing.T, users *repository.FileUserRepository, username string, role models.Role) *models.User {
	hash, err := bcrypt.GenerateFromPassword([]byte("pw-"+username), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{Username: username, PasswordHash: string(hash), Role: role, IsActive: true}
	require.NoError(t, users.Create(context.Background(), user))
	return user
}

func loginAs(t *testing.T, router *gin.Engine, username string) map[string]string {
	w := makeRequest(router, http.MethodPost, "/api/v1/auth/login",
		jsonBody(t, LoginRequest{Username: username, Password: "pw-" + username}))
	require.Equal(t, http.StatusOK, w.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return map[string]string{"Authorization": "Bearer " + resp.Token}
}

func TestAuthMiddleware_DemotedAdminLosesAccess(t *testing.T) {
	// Подготовка
	users, router := newUserStoreRouter(t)
	storeUser(t, users, "root", models.RoleAdmin)
	boss := storeUser(t, users, "boss", models.RoleAdmin)
	rootToken := loginAs(t, router, "root")
	bossToken := loginAs(t, router, "boss")
	require.Equal(t, http.StatusOK, makeRequest(router, http.MethodGet, "/api/v1/admin/users", nil, bossToken).Code)

	// Действие
	w := makeRequest(router, http.MethodPut, "/api/v1/admin/users/"+boss.ID,
		jsonBody(t, UpdateUserRequest{Role: ptr("operator")}), rootToken)
	require.Equal(t, http.StatusOK, w.Code)

	// Проверки: старый токен больше не дает прав администратора
	assert.Equal(t, http.StatusForbidden, makeRequest(router, http.MethodGet, "/api/v1/admin/users", nil, bossToken).Code)
	assert.Equal(t, http.StatusOK, makeRequest(router, http.MethodGet, "/api/v1/dashboard/profile", nil, bossToken).Code)
}

func TestAuthMiddleware_DeactivatedUserRejected(t *testing.T) {
	// Подготовка
	users, router := newUserStoreRouter(t)
	storeUser(t, users, "root", models.RoleAdmin)
	boss := storeUser(t, users, "boss", models.RoleAdmin)
	rootToken := loginAs(t, router, "root")
	bossToken := loginAs(t, router, "boss")

	// Действие
	w := makeRequest(router, http.MethodPut, "/api/v1/admin/users/"+boss.ID,
		jsonBody(t, UpdateUserRequest{IsActive: ptr(false)}), rootToken)
	require.Equal(t, http.StatusOK, w.Code)

	// Проверки
	assert.Equal(t, http.StatusUnauthorized, makeRequest(router, http.MethodGet, "/api/v1/admin/users", nil, bossToken).Code)
	assert.Equal(t, http.StatusUnauthorized, makeRequest(router, http.MethodGet, "/api/v1/dashboard/profile", nil, bossToken).Code)
}

func TestAuthMiddleware_DeletedUserCannotCreateAdmins(t *testing.T) {
	// Подготовка
	users, router := newUserStoreRouter(t)
	storeUser(t, users, "root", models.RoleAdmin)
	boss := storeUser(t, users, "boss", models.RoleAdmin)
	rootToken := loginAs(t, router, "root")
	bossToken := loginAs(t, router, "boss")

	// Действие
	w := makeRequest(router, http.MethodDelete, "/api/v1/admin/users/"+boss.ID, nil, rootToken)
	require.Equal(t, http.StatusNoContent, w.Code)

	// Проверки
	w = makeRequest(router, http.MethodPost, "/api/v1/admin/users",
		jsonBody(t, CreateUserRequest{Username: "mallory", Password: "hunter22", Role: "admin"}), bossToken)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	mallory, err := users.GetByLogin(context.Background(), "mallory")
	require.NoError(t, err)
	assert.Nil(t, mallory)
}

func TestAdminUpdateUser_CannotDemoteSelf(t *testing.T) {
	users, router := newUserStoreRouter(t)
	root := storeUser(t, users, "root", models.RoleAdmin)
	rootToken := loginAs(t, router, "root")

	w := makeRequest(router, http.MethodPut, "/api/v1/admin/users/"+root.ID,
		jsonBody(t, UpdateUserRequest{Role: ptr("operator")}), rootToken)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, http.StatusOK, makeRequest(router, http.MethodGet, "/api/v1/admin/users", nil, rootToken).Code)
}
