package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shenikar/pothole_tracker/internal/models"
	"github.com/shenikar/pothole_tracker/internal/service/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

func newTestAuthService(t *testing.T) (*authService, *mocks.MockUserRepository) {
	ctrl := gomock.NewController(t)
	repoMock := mocks.NewMockUserRepository(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	svc := NewAuthService(repoMock, testSecret, time.Hour, logger).(*authService)
	svc.now = func() time.Time { return testNow }
	return svc, repoMock
}

func hashedUser(t *testing.T, password string) *models.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           "op-1",
		Username:     "olga",
		Email:        "olga@potholes.ai",
		PasswordHash: string(hash),
		Role:         models.RoleOperator,
		IsActive:     true,
	}
}

func TestLogin_IssuesTokenThatParsesBack(t *testing.T) {
	// Подготовка
	svc, repoMock := newTestAuthService(t)
	ctx := context.Background()
	user := hashedUser(t, "s3cret")

	// Ожидания
	repoMock.EXPECT().GetByLogin(ctx, "olga@potholes.ai").Return(user, nil).Times(1)
	repoMock.EXPECT().GetByID(ctx, "op-1").Return(user, nil).Times(1)

	// Действие
	got, token, err := svc.Login(ctx, "olga@potholes.ai", "s3cret")

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, user, got)
	require.NotEmpty(t, token)

	principal, err := svc.ParseToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, models.Principal{ID: "op-1", Username: "olga", Role: models.RoleOperator}, *principal)
}

func TestLogin_WrongPassword(t *testing.T) {
	// Подготовка
	svc, repoMock := newTestAuthService(t)
	ctx := context.Background()

	// Ожидания
	repoMock.EXPECT().GetByLogin(ctx, "olga").Return(hashedUser(t, "s3cret"), nil).Times(1)

	// Действие
	_, token, err := svc.Login(ctx, "olga", "wrong")

	// Проверки
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Empty(t, token)
}

func TestLogin_UnknownUser(t *testing.T) {
	// Подготовка
	svc, repoMock := newTestAuthService(t)
	ctx := context.Background()

	// Ожидания
	repoMock.EXPECT().GetByLogin(ctx, "nobody").Return(nil, nil).Times(1)

	// Действие
	_, _, err := svc.Login(ctx, "nobody", "x")

	// Проверки
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_InactiveUser(t *testing.T) {
	// Подготовка
	svc, repoMock := newTestAuthService(t)
	ctx := context.Background()
	user := hashedUser(t, "s3cret")
	user.IsActive = false

	// Ожидания
	repoMock.EXPECT().GetByLogin(ctx, "olga").Return(user, nil).Times(1)

	// Действие
	_, _, err := svc.Login(ctx, "olga", "s3cret")

	// Проверки
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestParseToken_Expired(t *testing.T) {
	// Подготовка
	svc, _ := newTestAuthService(t)
	token, err := svc.issue(hashedUser(t, "x"))
	require.NoError(t, err)

	// Действие
	svc.now = func() time.Time { return testNow.Add(2 * time.Hour) }
	principal, err := svc.ParseToken(context.Background(), token)

	// Проверки
	assert.Nil(t, principal)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestParseToken_WrongSecret(t *testing.T) {
	// Подготовка
	svc, _ := newTestAuthService(t)
	claims := Claims{
		UserID: "op-1",
		Role:   models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour)),
		},
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other"))
	require.NoError(t, err)

	// Действие
	principal, err := svc.ParseToken(context.Background(), forged)

	// Проверки
	assert.Nil(t, principal)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestParseToken_Garbage(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.ParseToken(context.Background(), "not-a-jwt")

	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestParseToken_DeletedUser(t *testing.T) {
	// Подготовка
	svc, repoMock := newTestAuthService(t)
	ctx := context.Background()
	token, err := svc.issue(hashedUser(t, "x"))
	require.NoError(t, err)

	// Ожидания
	repoMock.EXPECT().GetByID(ctx, "op-1").Return(nil, nil).Times(1)

	// Действие
	principal, err := svc.ParseToken(ctx, token)

	// Проверки
	assert.Nil(t, principal)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestParseToken_DeactivatedUser(t *testing.T) {
	// Подготовка
	svc, repoMock := newTestAuthService(t)
	ctx := context.Background()
	user := hashedUser(t, "x")
	token, err := svc.issue(user)
	require.NoError(t, err)
	deactivated := *user
	deactivated.IsActive = false

	// Ожидания
	repoMock.EXPECT().GetByID(ctx, "op-1").Return(&deactivated, nil).Times(1)

	// Действие
	principal, err := svc.ParseToken(ctx, token)

	// Проверки
	assert.Nil(t, principal)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestParseToken_RoleComesFromStore(t *testing.T) {
	// Подготовка
	svc, repoMock := newTestAuthService(t)
	ctx := context.Background()
	user := hashedUser(t, "x")
	user.Role = models.RoleAdmin
	token, err := svc.issue(user)
	require.NoError(t, err)
	demoted := *user
	demoted.Role = models.RoleOperator

	// Ожидания
	repoMock.EXPECT().GetByID(ctx, "op-1").Return(&demoted, nil).Times(1)

	// Действие
	principal, err := svc.ParseToken(ctx, token)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, models.RoleOperator, principal.Role)
}

func TestParseToken_StoreError(t *testing.T) {
	// Подготовка
	svc, repoMock := newTestAuthService(t)
	ctx := context.Background()
	token, err := svc.issue(hashedUser(t, "x"))
	require.NoError(t, err)

	// Ожидания
	repoMock.EXPECT().GetByID(ctx, "op-1").Return(nil, errors.New("disk failure")).Times(1)

	// Действие
	principal, err := svc.ParseToken(ctx, token)

	// Проверки
	assert.Nil(t, principal)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}
