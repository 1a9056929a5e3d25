package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/identity"
	"github.com/jiffoo/mall/internal/domain/shared"
	"github.com/jiffoo/mall/internal/infrastructure/cache"
	"github.com/jiffoo/mall/internal/infrastructure/logger"
	"github.com/jiffoo/mall/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// TenantService handles store registration, platform administration and
// tenant lookups for request resolution
type TenantService struct {
	tenantRepo identity.TenantRepository
	userRepo   identity.UserRepository
	tx         shared.Transactor
	cache      *cache.TenantCache
	logger     *zap.Logger
}

// NewTenantService creates a new tenant service. cache may be nil.
func NewTenantService(
	tenantRepo identity.TenantRepository,
	userRepo identity.UserRepository,
	tx shared.Transactor,
	tenantCache *cache.TenantCache,
	logger *zap.Logger,
) *TenantService {
	return &TenantService{
		tenantRepo: tenantRepo,
		userRepo:   userRepo,
		tx:         tx,
		cache:      tenantCache,
		logger:     logger,
	}
}

// Register creates an active store and its first admin user in one
// transaction
func (s *TenantService) Register(ctx context.Context, input RegisterTenantInput) (result *RegisterTenantResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "TenantService", "Register")
	defer func() { telemetry.EndSpan(span, err) }()

	tenant, err := identity.NewTenant(input.Slug, input.Name, input.ContactEmail)
	if err != nil {
		return nil, err
	}
	if err := tenant.SetDomain(input.Domain); err != nil {
		return nil, err
	}
	admin, err := identity.NewUser(tenant.ID, input.AdminEmail, input.AdminUsername, input.AdminPassword, identity.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if tenant.ContactEmail == "" {
		tenant.ContactEmail = admin.Email
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		exists, err := s.tenantRepo.ExistsBySlug(ctx, tenant.Slug)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewDomainError("ALREADY_EXISTS", "Store slug is already taken")
		}
		if err := s.ensureDomainFree(ctx, tenant.Domain, uuid.Nil); err != nil {
			return err
		}
		if err := s.tenantRepo.Create(ctx, tenant); err != nil {
			return err
		}
		// The admin row is scoped to the store being created
		return s.userRepo.Create(logger.ContextWithTenantID(ctx, tenant.ID.String()), admin)
	})
	if err != nil {
		return nil, err
	}

	logger.L(ctx).Info("Tenant registered",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("slug", tenant.Slug))
	return &RegisterTenantResult{Tenant: ToTenantDTO(tenant), Admin: ToUserDTO(admin)}, nil
}

// List returns a page of stores
func (s *TenantService) List(ctx context.Context, filter shared.Filter) (shared.Paginated[TenantDTO], error) {
	filter = filter.Normalize()
	tenants, total, err := s.tenantRepo.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[TenantDTO]{}, err
	}
	items := make([]TenantDTO, len(tenants))
	for i, t := range tenants {
		items[i] = ToTenantDTO(t)
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// Get returns one store with its user count
func (s *TenantService) Get(ctx context.Context, id uuid.UUID) (*TenantDTO, error) {
	t, err := s.tenantRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	users, err := s.userRepo.CountInTenant(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	dto := ToTenantDTO(t)
	dto.UserCount = &users
	return &dto, nil
}

// Suspend takes a store offline
func (s *TenantService) Suspend(ctx context.Context, id uuid.UUID) (*TenantDTO, error) {
	return s.mutate(ctx, id, "Tenant suspended", func(t *identity.Tenant) error {
		return t.Suspend()
	})
}

// Activate puts a store back online
func (s *TenantService) Activate(ctx context.Context, id uuid.UUID) (*TenantDTO, error) {
	return s.mutate(ctx, id, "Tenant activated", func(t *identity.Tenant) error {
		return t.Activate()
	})
}

// Update changes a store's name, custom domain and settings
func (s *TenantService) Update(ctx context.Context, input UpdateTenantInput) (*TenantDTO, error) {
	return s.mutate(ctx, input.ID, "Tenant updated", func(t *identity.Tenant) error {
		if input.Name != nil {
			if err := t.Rename(*input.Name); err != nil {
				return err
			}
		}
		if input.Domain != nil && !strings.EqualFold(*input.Domain, t.Domain) {
			if err := t.SetDomain(*input.Domain); err != nil {
				return err
			}
			if err := s.ensureDomainFree(ctx, t.Domain, t.ID); err != nil {
				return err
			}
		}
		if input.Currency != nil || input.Locale != nil {
			settings := t.Settings
			if input.Currency != nil {
				settings.Currency = *input.Currency
			}
			if input.Locale != nil {
				settings.Locale = *input.Locale
			}
			t.UpdateSettings(settings)
		}
		return nil
	})
}

func (s *TenantService) mutate(ctx context.Context, id uuid.UUID, msg string, fn func(t *identity.Tenant) error) (*TenantDTO, error) {
	t, err := s.tenantRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previousDomain := t.Domain
	if err := fn(t); err != nil {
		return nil, err
	}
	if err := s.tenantRepo.Update(ctx, t); err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, t, previousDomain)
	}

	logger.L(ctx).Info(msg, zap.String("tenant_id", t.ID.String()), zap.String("status", string(t.Status)))
	dto := ToTenantDTO(t)
	return &dto, nil
}

func (s *TenantService) ensureDomainFree(ctx context.Context, domain string, owner uuid.UUID) error {
	if domain == "" {
		return nil
	}
	existing, err := s.tenantRepo.FindByDomain(ctx, domain)
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != owner {
		return shared.NewDomainError("ALREADY_EXISTS", "Domain is already in use by another store")
	}
	return nil
}

// ResolveByID looks a tenant up for request resolution
func (s *TenantService) ResolveByID(ctx context.Context, id uuid.UUID) (*identity.Tenant, error) {
	if s.cache != nil {
		if t, ok := s.cache.GetByID(ctx, id); ok {
			return t, nil
		}
	}
	t, err := s.tenantRepo.FindByID(ctx, id)
	return s.remember(ctx, t, err)
}

// ResolveBySlug looks a tenant up by subdomain label or header slug
func (s *TenantService) ResolveBySlug(ctx context.Context, slug string) (*identity.Tenant, error) {
	slug = strings.ToLower(slug)
	if s.cache != nil {
		if t, ok := s.cache.GetBySlug(ctx, slug); ok {
			return t, nil
		}
	}
	t, err := s.tenantRepo.FindBySlug(ctx, slug)
	return s.remember(ctx, t, err)
}

// ResolveByDomain looks a tenant up by custom host
func (s *TenantService) ResolveByDomain(ctx context.Context, host string) (*identity.Tenant, error) {
	host = strings.ToLower(host)
	if s.cache != nil {
		if t, ok := s.cache.GetByDomain(ctx, host); ok {
			return t, nil
		}
	}
	t, err := s.tenantRepo.FindByDomain(ctx, host)
	return s.remember(ctx, t, err)
}

// remember caches a successful repository lookup
func (s *TenantService) remember(ctx context.Context, t *identity.Tenant, err error) (*identity.Tenant, error) {
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Put(ctx, t)
	}
	return t, nil
}
