package models

// Role - роль пользователя панели управления
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Role         Role      `json:"role"`
	CreatedAt    Timestamp `json:"created_at"`
	IsActive     bool      `json:"is_active"`
}

// Principal - аутентифицированный пользователь, от имени которого выполняется операция
type Principal struct {
	ID       string
	Username string
	Role     Role
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Principal возвращает представление пользователя для бизнес-логики
func (u *User) Principal() Principal {
	return Principal{ID: u.ID, Username: u.Username, Role: u.Role}
}

// NewUserInput - данные для создания учетной записи
type NewUserInput struct {
	Username string
	Email    string
	Password string
	Role     Role
}

// UserUpdate - частичное обновление учетной записи; nil - поле не меняется
type UserUpdate struct {
	Email    *string
	Password *string
	Role     *Role
	IsActive *bool
}
