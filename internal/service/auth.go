package service

//go:generate mockgen -source=auth.go -destination=mocks/auth_mock.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shenikar/pothole_tracker/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// AuthService определяет контракт входа в панель управления
type AuthService interface {
	Login(ctx context.Context, login, password string) (*models.User, string, error)
	ParseToken(ctx context.Context, token string) (*models.Principal, error)
}

// Claims - полезная нагрузка токена сессии
type Claims struct {
	UserID   string      `json:"uid"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
	jwt.RegisteredClaims
}

type authService struct {
	users  UserRepository
	secret []byte
	ttl    time.Duration
	logger *logrus.Logger
	now    func() time.Time
}

func NewAuthService(users UserRepository, secret string, ttl time.Duration, logger *logrus.Logger) AuthService {
	return &authService{
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Login проверяет пароль по имени или email и выдает подписанный токен
func (s *authService) Login(ctx context.Context, login, password string) (*models.User, string, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "auth",
		"method":  "Login",
		"login":   login,
	})

	user, err := s.users.GetByLogin(ctx, login)
	if err != nil {
		log.WithError(err).Error("Failed to look up user")
		return nil, "", fmt.Errorf("service: could not look up user: %w", err)
	}
	// одинаковый ответ для неизвестного логина, неверного пароля и отключенной учетной записи
	if user == nil || !user.IsActive {
		log.Warn("Login rejected")
		return nil, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		log.Warn("Login rejected: wrong password")
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.issue(user)
	if err != nil {
		log.WithError(err).Error("Failed to sign token")
		return nil, "", fmt.Errorf("service: could not sign token: %w", err)
	}

	log.WithField("user_id", user.ID).Info("User logged in")
	return user, token, nil
}

func (s *authService) issue(user *models.User) (string, error) {
	now := s.now()
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ParseToken проверяет подпись и срок действия токена и заново читает пользователя:
// удаленная или отключенная учетная запись отклоняется, роль берется из хранилища
func (s *authService) ParseToken(ctx context.Context, token string) (*models.Principal, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	if !parsed.Valid || claims.UserID == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("service: could not load token owner: %w", err)
	}
	if user == nil || !user.IsActive {
		s.logger.WithFields(logrus.Fields{
			"service": "auth",
			"method":  "ParseToken",
			"user_id": claims.UserID,
		}).Warn("Token owner is deleted or deactivated")
		return nil, ErrInvalidCredentials
	}

	principal := user.Principal()
	return &principal, nil
}
