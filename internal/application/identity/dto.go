package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/identity"
)

// LoginInput contains the input for user login
type LoginInput struct {
	Email    string
	Password string
	IP       string // Client IP for login tracking
}

// RegisterInput contains the input for customer sign-up
type RegisterInput struct {
	TenantID uuid.UUID
	Email    string
	Username string
	Password string
	IP       string
}

// LoginResult contains the result of a successful login or sign-up
type LoginResult struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
	User                  UserDTO   `json:"user"`
}

// RefreshTokenResult contains the result of a token refresh
type RefreshTokenResult struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
}

// LogoutInput contains the input for user logout
type LogoutInput struct {
	UserID   uuid.UUID
	TokenJTI string
	// TokenTTL is the remaining lifetime of the access token
	TokenTTL time.Duration
}

// ChangePasswordInput contains the input for password change
type ChangePasswordInput struct {
	UserID      uuid.UUID
	OldPassword string
	NewPassword string
}

// UpdateProfileInput contains the editable profile fields
type UpdateProfileInput struct {
	UserID   uuid.UUID
	Username string
	Avatar   string
	Locale   string
}

// UserDTO is the public view of a user
type UserDTO struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	Email       string     `json:"email"`
	Username    string     `json:"username"`
	Avatar      string     `json:"avatar,omitempty"`
	Locale      string     `json:"locale,omitempty"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ToUserDTO converts a domain user
func ToUserDTO(u *identity.User) UserDTO {
	return UserDTO{
		ID:          u.ID,
		TenantID:    u.TenantID,
		Email:       u.Email,
		Username:    u.Username,
		Avatar:      u.Avatar,
		Locale:      u.Locale,
		Role:        string(u.Role),
		Status:      string(u.Status),
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// ToUserDTOs converts a slice of domain users
func ToUserDTOs(users []*identity.User) []UserDTO {
	dtos := make([]UserDTO, len(users))
	for i, u := range users {
		dtos[i] = ToUserDTO(u)
	}
	return dtos
}

// RegisterTenantInput creates a store together with its first admin
type RegisterTenantInput struct {
	Slug          string
	Name          string
	ContactEmail  string
	Domain        string
	AdminEmail    string
	AdminUsername string
	AdminPassword string
}

// RegisterTenantResult is the new store and its admin
type RegisterTenantResult struct {
	Tenant TenantDTO `json:"tenant"`
	Admin  UserDTO   `json:"admin"`
}

// UpdateTenantInput contains the fields a store admin may change. Nil
// fields are left untouched.
type UpdateTenantInput struct {
	ID       uuid.UUID
	Name     *string
	Domain   *string
	Currency *string
	Locale   *string
}

// TenantDTO is the public view of a store
type TenantDTO struct {
	ID           uuid.UUID               `json:"id"`
	Slug         string                  `json:"slug"`
	Name         string                  `json:"name"`
	Domain       string                  `json:"domain,omitempty"`
	Status       string                  `json:"status"`
	Plan         string                  `json:"plan"`
	ContactEmail string                  `json:"contact_email,omitempty"`
	Settings     identity.TenantSettings `json:"settings"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
	// UserCount is filled on single-store views
	UserCount *int64 `json:"user_count,omitempty"`
}

// ToTenantDTO converts a domain tenant
func ToTenantDTO(t *identity.Tenant) TenantDTO {
	return TenantDTO{
		ID:           t.ID,
		Slug:         t.Slug,
		Name:         t.Name,
		Domain:       t.Domain,
		Status:       string(t.Status),
		Plan:         string(t.Plan),
		ContactEmail: t.ContactEmail,
		Settings:     t.Settings,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}
