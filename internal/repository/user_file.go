package repository

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/pothole_tracker/internal/models"
	"github.com/shenikar/pothole_tracker/internal/service"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

const (
	usersFile            = "users.json"
	defaultAdminID       = "admin"
	defaultAdminUsername = "admin"
	defaultAdminEmail    = "admin@potholes.ai"
)

// FileUserRepository хранит пользователей документом users.json, ключ - id
type FileUserRepository struct {
	users  *Collection[*models.User]
	logger *logrus.Logger
	now    func() time.Time
}

func NewFileUserRepository(dataDir string, logger *logrus.Logger) *FileUserRepository {
	return &FileUserRepository{
		users:  NewCollection[*models.User](dataDir, usersFile, logger),
		logger: logger,
		now:    time.Now,
	}
}

var _ service.UserRepository = (*FileUserRepository)(nil)

// EnsureDefaultAdmin создает администратора по умолчанию, если файла пользователей еще нет
func (r *FileUserRepository) EnsureDefaultAdmin(ctx context.Context, password string) error {
	if r.users.Exists() {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash default admin password: %w", err)
	}
	admin := &models.User{
		ID:           defaultAdminID,
		Username:     defaultAdminUsername,
		Email:        defaultAdminEmail,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		CreatedAt:    models.NewTimestamp(r.now()),
		IsActive:     true,
	}
	if err := r.Create(ctx, admin); err != nil {
		return err
	}
	r.logger.WithField("username", admin.Username).Warn("Created default admin user, change its password")
	return nil
}

type usersFileSeed struct {
	Users []struct {
		Username string      `yaml:"username"`
		Email    string      `yaml:"email"`
		Password string      `yaml:"password"`
		Role     models.Role `yaml:"role"`
	} `yaml:"users"`
}

// SeedFromFile добавляет пользователей из YAML-файла; уже существующие логины пропускаются
func (r *FileUserRepository) SeedFromFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read users seed file: %w", err)
	}
	var seed usersFileSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to parse users seed file: %w", err)
	}

	for _, u := range seed.Users {
		if u.Username == "" || u.Password == "" {
			continue
		}
		existing, err := r.GetByLogin(ctx, u.Username)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		role := u.Role
		if role == "" {
			role = models.RoleOperator
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password for %s: %w", u.Username, err)
		}
		user := &models.User{
			Username:     u.Username,
			Email:        u.Email,
			PasswordHash: string(hash),
			Role:         role,
			IsActive:     true,
		}
		if err := r.Create(ctx, user); err != nil {
			return err
		}
	}
	return nil
}

// GetByID возвращает пользователя или nil, если его нет
func (r *FileUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := r.users.Load()[id]
	if !ok || user == nil {
		return nil, nil
	}
	user.ID = id
	return user, nil
}

// GetByLogin ищет пользователя по имени или email без учета регистра
func (r *FileUserRepository) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return nil, nil
	}
	for id, user := range r.users.Load() {
		if user == nil {
			continue
		}
		if strings.EqualFold(user.Username, login) || (user.Email != "" && strings.EqualFold(user.Email, login)) {
			user.ID = id
			return user, nil
		}
	}
	return nil, nil
}

// List возвращает пользователей, отсортированных по имени
func (r *FileUserRepository) List(ctx context.Context) ([]*models.User, error) {
	docs := r.users.Load()
	users := make([]*models.User, 0, len(docs))
	for id, user := range docs {
		if user == nil {
			continue
		}
		user.ID = id
		users = append(users, user)
	}
	sort.Slice(users, func(a, b int) bool { return users[a].Username < users[b].Username })
	return users, nil
}

// Create сохраняет нового пользователя; имя и email должны быть уникальны
func (r *FileUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = models.NewTimestamp(r.now())
	}
	return r.users.Mutate(func(docs map[string]*models.User) (bool, error) {
		if _, ok := docs[user.ID]; ok {
			return false, service.ErrUserExists
		}
		if conflict(docs, user) {
			return false, service.ErrUserExists
		}
		stored := *user
		docs[user.ID] = &stored
		return true, nil
	})
}

// Update перезаписывает пользователя целиком; false - пользователя нет
func (r *FileUserRepository) Update(ctx context.Context, user *models.User) (bool, error) {
	found := false
	err := r.users.Mutate(func(docs map[string]*models.User) (bool, error) {
		if existing, ok := docs[user.ID]; !ok || existing == nil {
			return false, nil
		}
		found = true
		if conflict(docs, user) {
			return false, service.ErrUserExists
		}
		stored := *user
		docs[user.ID] = &stored
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// Delete удаляет пользователя; false - пользователя нет
func (r *FileUserRepository) Delete(ctx context.Context, id string) (bool, error) {
	found := false
	err := r.users.Mutate(func(docs map[string]*models.User) (bool, error) {
		if _, ok := docs[id]; !ok {
			return false, nil
		}
		found = true
		delete(docs, id)
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// conflict ищет другого пользователя с тем же именем или email
func conflict(docs map[string]*models.User, user *models.User) bool {
	for id, other := range docs {
		if other == nil || id == user.ID {
			continue
		}
		if strings.EqualFold(other.Username, user.Username) {
			return true
		}
		if user.Email != "" && strings.EqualFold(other.Email, user.Email) {
			return true
		}
	}
	return false
}
