package persistence

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/identity"
	"github.com/jiffoo/mall/internal/domain/shared"
	"github.com/jiffoo/mall/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormTenantRepository implements identity.TenantRepository using GORM.
// The tenants table has no tenant_id column, so the tenant callbacks leave
// these statements untouched.
type GormTenantRepository struct {
	db *gorm.DB
}

// NewGormTenantRepository creates a new GormTenantRepository
func NewGormTenantRepository(db *gorm.DB) *GormTenantRepository {
	return &GormTenantRepository{db: db}
}

// Create inserts a new tenant
func (r *GormTenantRepository) Create(ctx context.Context, t *identity.Tenant) error {
	return translateError(conn(ctx, r.db).Create(models.TenantModelFromDomain(t)).Error)
}

// Update saves changes to an existing tenant
func (r *GormTenantRepository) Update(ctx context.Context, t *identity.Tenant) error {
	model := models.TenantModelFromDomain(t)
	result := conn(ctx, r.db).Model(model).Select("*").Omit(updateColumnsOmitted...).Updates(model)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID finds a tenant by its ID
func (r *GormTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Tenant, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindBySlug finds a tenant by its slug
func (r *GormTenantRepository) FindBySlug(ctx context.Context, slug string) (*identity.Tenant, error) {
	return r.findOne(ctx, "slug = ?", strings.ToLower(slug))
}

// FindByDomain finds a tenant by its custom domain
func (r *GormTenantRepository) FindByDomain(ctx context.Context, domain string) (*identity.Tenant, error) {
	if domain == "" {
		return nil, shared.ErrNotFound
	}
	return r.findOne(ctx, "LOWER(domain) = ?", strings.ToLower(domain))
}

func (r *GormTenantRepository) findOne(ctx context.Context, query string, args ...any) (*identity.Tenant, error) {
	var model models.TenantModel
	if err := conn(ctx, r.db).Where(query, args...).First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll finds all tenants matching the filter
func (r *GormTenantRepository) FindAll(ctx context.Context, filter shared.Filter) ([]*identity.Tenant, int64, error) {
	query := conn(ctx, r.db).Model(&models.TenantModel{})
	query = applySearch(query, filter.Search, "name", "slug")
	if status, ok := filter.Filters["status"].(string); ok && status != "" {
		query = query.Where("status = ?", status)
	}

	query, total, err := paginate(query, filter, TenantSortFields)
	if err != nil {
		return nil, 0, err
	}

	var tenantModels []models.TenantModel
	if err := query.Find(&tenantModels).Error; err != nil {
		return nil, 0, err
	}
	tenants := make([]*identity.Tenant, len(tenantModels))
	for i := range tenantModels {
		tenants[i] = tenantModels[i].ToDomain()
	}
	return tenants, total, nil
}

// ExistsBySlug checks if a tenant with the given slug exists
func (r *GormTenantRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	var count int64
	if err := conn(ctx, r.db).Model(&models.TenantModel{}).
		Where("slug = ?", strings.ToLower(slug)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
