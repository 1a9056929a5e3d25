package models

import (
	"time"

	"github.com/jiffoo/mall/internal/domain/identity"
)

// TenantModel is the persistence model for the Tenant domain entity.
// Stores are platform records and carry no tenant_id of their own.
type TenantModel struct {
	BaseModel
	Slug         string                  `gorm:"type:varchar(63);not null;uniqueIndex"`
	Name         string                  `gorm:"type:varchar(200);not null"`
	Domain       *string                 `gorm:"type:varchar(255);uniqueIndex"`
	Status       identity.TenantStatus   `gorm:"type:varchar(20);not null;default:'active'"`
	Plan         identity.TenantPlan     `gorm:"type:varchar(20);not null;default:'free'"`
	ContactEmail string                  `gorm:"type:varchar(200)"`
	Settings     identity.TenantSettings `gorm:"type:jsonb;serializer:json"`
}

// TableName returns the table name for GORM
func (TenantModel) TableName() string {
	return "tenants"
}

// ToDomain converts the persistence model to a domain Tenant entity.
func (m *TenantModel) ToDomain() *identity.Tenant {
	t := &identity.Tenant{
		BaseEntity:   m.BaseModel.ToDomain(),
		Slug:         m.Slug,
		Name:         m.Name,
		Status:       m.Status,
		Plan:         m.Plan,
		ContactEmail: m.ContactEmail,
		Settings:     m.Settings,
	}
	if m.Domain != nil {
		t.Domain = *m.Domain
	}
	return t
}

// FromDomain populates the persistence model from a domain Tenant entity.
func (m *TenantModel) FromDomain(t *identity.Tenant) {
	m.FromDomainBaseEntity(t.BaseEntity)
	m.Slug = t.Slug
	m.Name = t.Name
	m.Domain = nil
	if t.Domain != "" {
		d := t.Domain
		m.Domain = &d
	}
	m.Status = t.Status
	m.Plan = t.Plan
	m.ContactEmail = t.ContactEmail
	m.Settings = t.Settings
}

// TenantModelFromDomain creates a new persistence model from a domain Tenant entity.
func TenantModelFromDomain(t *identity.Tenant) *TenantModel {
	m := &TenantModel{}
	m.FromDomain(t)
	return m
}

// UserModel is the persistence model for the User domain entity.
type UserModel struct {
	TenantScopedModel
	Email             string              `gorm:"type:varchar(200);not null;index"`
	Username          string              `gorm:"type:varchar(100);not null"`
	PasswordHash      string              `gorm:"type:varchar(255);not null"`
	Avatar            string              `gorm:"type:varchar(500)"`
	Locale            string              `gorm:"type:varchar(10)"`
	Role              identity.Role       `gorm:"type:varchar(20);not null;default:'customer'"`
	Status            identity.UserStatus `gorm:"type:varchar(20);not null;default:'active'"`
	FailedAttempts    int                 `gorm:"not null;default:0"`
	LockedUntil       *time.Time
	LastLoginAt       *time.Time `gorm:"index"`
	LastLoginIP       string     `gorm:"type:varchar(45)"`
	PasswordChangedAt *time.Time
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User entity.
func (m *UserModel) ToDomain() *identity.User {
	return &identity.User{
		TenantEntity:      m.ToTenantEntity(),
		Email:             m.Email,
		Username:          m.Username,
		PasswordHash:      m.PasswordHash,
		Avatar:            m.Avatar,
		Locale:            m.Locale,
		Role:              m.Role,
		Status:            m.Status,
		FailedAttempts:    m.FailedAttempts,
		LockedUntil:       m.LockedUntil,
		LastLoginAt:       m.LastLoginAt,
		LastLoginIP:       m.LastLoginIP,
		PasswordChangedAt: m.PasswordChangedAt,
	}
}

// FromDomain populates the persistence model from a domain User entity.
func (m *UserModel) FromDomain(u *identity.User) {
	m.FromDomainTenantEntity(u.TenantEntity)
	m.Email = u.Email
	m.Username = u.Username
	m.PasswordHash = u.PasswordHash
	m.Avatar = u.Avatar
	m.Locale = u.Locale
	m.Role = u.Role
	m.Status = u.Status
	m.FailedAttempts = u.FailedAttempts
	m.LockedUntil = u.LockedUntil
	m.LastLoginAt = u.LastLoginAt
	m.LastLoginIP = u.LastLoginIP
	m.PasswordChangedAt = u.PasswordChangedAt
}

// UserModelFromDomain creates a new persistence model from a domain User entity.
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{}
	m.FromDomain(u)
	return m
}
