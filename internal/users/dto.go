package users

import (
	"time"

	"github.com/orthodoxmetrics/om-backend/pkg/db/models"
	"github.com/orthodoxmetrics/om-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID          uint       `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Role        enums.Role `json:"role"`
	ChurchID    *uint      `json:"church_id,omitempty"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         enums.Role
	ChurchID     *uint
	IsActive     *bool
}

// CreateUserInput is the admin request for a new account.
type CreateUserInput struct {
	Email     string     `json:"email" validate:"required,email,max=255"`
	FirstName string     `json:"first_name" validate:"required,max=100"`
	LastName  string     `json:"last_name" validate:"required,max=100"`
	Role      enums.Role `json:"role" validate:"required,role"`
	ChurchID  *uint      `json:"church_id"`
}

// UpdateUserInput is a partial admin edit. A role or church change ends the
// user's sessions.
type UpdateUserInput struct {
	Email     *string     `json:"email" validate:"omitempty,email,max=255"`
	FirstName *string     `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName  *string     `json:"last_name" validate:"omitempty,min=1,max=100"`
	Role      *enums.Role `json:"role" validate:"omitempty,role"`
	ChurchID  *uint       `json:"church_id"`
}

// CreatedUser pairs the new account with its one-time password.
type CreatedUser struct {
	User              *UserDTO `json:"user"`
	TemporaryPassword string   `json:"temporary_password"`
}

// FromModel maps a user row; the stored role is normalised so legacy names
// surface as canonical roles.
func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Role:        enums.NormalizeRole(u.Role),
		ChurchID:    u.ChurchID,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	isActive := true
	if c.IsActive != nil {
		isActive = *c.IsActive
	}
	role := c.Role
	if role == "" {
		role = enums.RoleViewer
	}

	return &models.User{
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		Role:         string(role),
		ChurchID:     c.ChurchID,
		IsActive:     isActive,
	}
}
