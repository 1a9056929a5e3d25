package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/plugin"
	"github.com/jiffoo/mall/internal/domain/shared"
	"github.com/jiffoo/mall/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPluginInstanceRepository implements plugin.InstanceRepository using GORM
type GormPluginInstanceRepository struct {
	db *gorm.DB
}

// NewGormPluginInstanceRepository creates a new GormPluginInstanceRepository
func NewGormPluginInstanceRepository(db *gorm.DB) *GormPluginInstanceRepository {
	return &GormPluginInstanceRepository{db: db}
}

// Create installs a plugin for the current tenant
func (r *GormPluginInstanceRepository) Create(ctx context.Context, inst *plugin.Instance) error {
	return translateError(conn(ctx, r.db).Create(models.PluginInstanceModelFromDomain(inst)).Error)
}

// Update saves instance changes
func (r *GormPluginInstanceRepository) Update(ctx context.Context, inst *plugin.Instance) error {
	model := models.PluginInstanceModelFromDomain(inst)
	result := conn(ctx, r.db).Model(model).Select("*").Omit(updateColumnsOmitted...).Updates(model)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete uninstalls a plugin
func (r *GormPluginInstanceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := conn(ctx, r.db).Where("id = ?", id).Delete(&models.PluginInstanceModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindBySlug finds the current tenant's instance of a plugin
func (r *GormPluginInstanceRepository) FindBySlug(ctx context.Context, slug string) (*plugin.Instance, error) {
	var model models.PluginInstanceModel
	if err := conn(ctx, r.db).Where("slug = ?", slug).First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll lists the current tenant's installed plugins
func (r *GormPluginInstanceRepository) FindAll(ctx context.Context) ([]*plugin.Instance, error) {
	var instModels []models.PluginInstanceModel
	if err := conn(ctx, r.db).Order("slug ASC").Find(&instModels).Error; err != nil {
		return nil, err
	}
	instances := make([]*plugin.Instance, len(instModels))
	for i := range instModels {
		instances[i] = instModels[i].ToDomain()
	}
	return instances, nil
}
