package models

import (
	"time"

	"github.com/jiffoo/mall/internal/domain/plugin"
)

// PluginInstanceModel is the persistence model for an installed plugin.
type PluginInstanceModel struct {
	TenantScopedModel
	Slug        string            `gorm:"type:varchar(50);not null;index"`
	Enabled     bool              `gorm:"not null;default:true"`
	Config      map[string]string `gorm:"type:jsonb;serializer:json"`
	LicenseKey  string            `gorm:"type:text"`
	InstalledAt time.Time         `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PluginInstanceModel) TableName() string {
	return "plugin_instances"
}

// ToDomain converts the persistence model to a domain plugin Instance.
func (m *PluginInstanceModel) ToDomain() *plugin.Instance {
	cfg := m.Config
	if cfg == nil {
		cfg = map[string]string{}
	}
	return &plugin.Instance{
		TenantEntity: m.ToTenantEntity(),
		Slug:         m.Slug,
		Enabled:      m.Enabled,
		Config:       cfg,
		LicenseKey:   m.LicenseKey,
		InstalledAt:  m.InstalledAt,
	}
}

// PluginInstanceModelFromDomain creates a new persistence model from a domain Instance.
func PluginInstanceModelFromDomain(inst *plugin.Instance) *PluginInstanceModel {
	m := &PluginInstanceModel{
		Slug:        inst.Slug,
		Enabled:     inst.Enabled,
		Config:      inst.Config,
		LicenseKey:  inst.LicenseKey,
		InstalledAt: inst.InstalledAt,
	}
	m.FromDomainTenantEntity(inst.TenantEntity)
	return m
}

// All returns every model managed by the schema, in dependency order.
// Used by AutoMigrate in development and tests.
func All() []any {
	return []any{
		&TenantModel{},
		&UserModel{},
		&ProductModel{},
		&CartModel{},
		&CartItemModel{},
		&OrderModel{},
		&OrderItemModel{},
		&PluginInstanceModel{},
	}
}
