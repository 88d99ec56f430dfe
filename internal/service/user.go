package service

//go:generate mockgen -source=user.go -destination=mocks/user_mock.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shenikar/pothole_tracker/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository определяет контракт хранилища пользователей.
// Отсутствие записи не ошибка: GetByID/GetByLogin возвращают nil, Update/Delete - false.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByLogin(ctx context.Context, login string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// UserService определяет контракт администрирования пользователей
type UserService interface {
	ListUsers(ctx context.Context) ([]*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	CreateUser(ctx context.Context, input models.NewUserInput) (*models.User, error)
	UpdateUser(ctx context.Context, principal models.Principal, id string, update models.UserUpdate) (*models.User, error)
	DeleteUser(ctx context.Context, principal models.Principal, id string) error
}

type userService struct {
	repo   UserRepository
	logger *logrus.Logger
	now    func() time.Time
}

func NewUserService(repo UserRepository, logger *logrus.Logger) UserService {
	return &userService{repo: repo, logger: logger, now: time.Now}
}

func (s *userService) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: could not list users: %w", err)
	}
	return users, nil
}

func (s *userService) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: could not get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("service: user %s: %w", id, ErrNotFound)
	}
	return user, nil
}

// CreateUser создает активную учетную запись; роль по умолчанию - operator
func (s *userService) CreateUser(ctx context.Context, input models.NewUserInput) (*models.User, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":  "user",
		"method":   "CreateUser",
		"username": input.Username,
	})

	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrValidation)
	}
	role := input.Role
	if role == "" {
		role = models.RoleOperator
	}
	if !validRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("service: could not hash password: %w", err)
	}
	user := &models.User{
		Username:     username,
		Email:        strings.TrimSpace(input.Email),
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    models.NewTimestamp(s.now()),
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, ErrUserExists) {
			log.Warn("User already exists")
			return nil, err
		}
		log.WithError(err).Error("Failed to create user in repository")
		return nil, fmt.Errorf("service: could not create user: %w", err)
	}

	log.WithField("user_id", user.ID).Info("User created")
	return user, nil
}

// UpdateUser меняет учетную запись; снять с себя роль admin или отключить себя нельзя
func (s *userService) UpdateUser(ctx context.Context, principal models.Principal, id string, update models.UserUpdate) (*models.User, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "user",
		"method":  "UpdateUser",
		"user_id": id,
	})

	if principal.ID == id {
		demote := update.Role != nil && *update.Role != principal.Role
		deactivate := update.IsActive != nil && !*update.IsActive
		if demote || deactivate {
			log.Warn("Admin attempted to demote or deactivate own account")
			return nil, fmt.Errorf("service: cannot demote or deactivate own account: %w", ErrForbidden)
		}
	}

	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Email != nil {
		user.Email = strings.TrimSpace(*update.Email)
	}
	if update.Role != nil {
		if !validRole(*update.Role) {
			return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, *update.Role)
		}
		user.Role = *update.Role
	}
	if update.IsActive != nil {
		user.IsActive = *update.IsActive
	}
	if update.Password != nil {
		if *update.Password == "" {
			return nil, fmt.Errorf("%w: password cannot be empty", ErrValidation)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*update.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("service: could not hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}

	found, err := s.repo.Update(ctx, user)
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			return nil, err
		}
		log.WithError(err).Error("Failed to update user in repository")
		return nil, fmt.Errorf("service: could not update user: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("service: user %s: %w", id, ErrNotFound)
	}

	log.Info("User updated")
	return user, nil
}

// DeleteUser удаляет учетную запись; удалить самого себя нельзя
func (s *userService) DeleteUser(ctx context.Context, principal models.Principal, id string) error {
	log := s.logger.WithFields(logrus.Fields{
		"service": "user",
		"method":  "DeleteUser",
		"user_id": id,
	})

	if principal.ID == id {
		log.Warn("Admin attempted to delete own account")
		return fmt.Errorf("service: cannot delete own account: %w", ErrForbidden)
	}
	found, err := s.repo.Delete(ctx, id)
	if err != nil {
		log.WithError(err).Error("Failed to delete user in repository")
		return fmt.Errorf("service: could not delete user: %w", err)
	}
	if !found {
		return fmt.Errorf("service: user %s: %w", id, ErrNotFound)
	}

	log.Info("User deleted")
	return nil
}

func validRole(role models.Role) bool {
	return role == models.RoleAdmin || role == models.RoleOperator
}
