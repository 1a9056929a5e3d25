// Package tenant provides multi-tenant database scoping for GORM.
//
// Callbacks registered by Register read the tenant ID placed on the request
// context by the tenant middleware and add WHERE tenant_id = ? to every
// read, update and delete on models that carry a tenant_id column. Creates
// get their tenant_id stamped from the same context.
//
// Usage:
//
//	tenant.Register(db, tenant.DefaultConfig())
//	db.WithContext(ctx).Find(&products) // WHERE products.tenant_id = 'xxx'
//	db.WithContext(tenant.WithoutScope(ctx)).Find(&orders) // all tenants
package tenant

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrTenantIDRequired is returned when tenant_id is required but not found
var ErrTenantIDRequired = errors.New("tenant_id is required but not found in context")

// ErrInvalidTenantID is returned when tenant_id format is invalid
var ErrInvalidTenantID = errors.New("invalid tenant_id format")

// ErrCrossTenantWrite is returned when a create carries a tenant_id other
// than the one on the context
var ErrCrossTenantWrite = errors.New("record tenant_id does not match context tenant")

type bypassKey struct{}

// WithoutScope marks ctx so statements run with it skip tenant filtering.
// Reserved for platform administration and system jobs.
func WithoutScope(ctx context.Context) context.Context {
	return context.WithValue(ctx, bypassKey{}, true)
}

// IsUnscoped reports whether ctx carries the WithoutScope marker
func IsUnscoped(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	v, _ := ctx.Value(bypassKey{}).(bool)
	return v
}

// TenantScope applies tenant filtering to GORM queries
func TenantScope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", tenantID)
	}
}

// Config holds configuration for the tenant callbacks
type Config struct {
	// TenantColumn is the name of the tenant ID column (default: "tenant_id")
	TenantColumn string
	// Required determines if tenant_id is mandatory (default: true)
	Required bool
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		TenantColumn: "tenant_id",
		Required:     true,
	}
}
