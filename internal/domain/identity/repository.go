package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/shared"
)

// TenantRepository persists stores. Tenants are platform-level records and
// are never tenant-scoped.
type TenantRepository interface {
	Create(ctx context.Context, tenant *Tenant) error
	Update(ctx context.Context, tenant *Tenant) error
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	FindBySlug(ctx context.Context, slug string) (*Tenant, error)
	FindByDomain(ctx context.Context, domain string) (*Tenant, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]*Tenant, int64, error)
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
}

// UserRepository persists users of the tenant carried by ctx
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]*User, int64, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// CountInTenant counts the users of the named store, whatever store the
	// context is bound to
	CountInTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)
}
