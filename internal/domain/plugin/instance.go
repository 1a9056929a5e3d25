package plugin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/shared"
)

// Instance is a plugin installed in one store
type Instance struct {
	shared.TenantEntity
	Slug        string
	Enabled     bool
	Config      map[string]string
	LicenseKey  string
	InstalledAt time.Time
}

// NewInstance installs def for a tenant. The instance starts enabled.
func NewInstance(tenantID uuid.UUID, def Definition, config map[string]string, licenseKey string) (*Instance, error) {
	if err := ValidateConfig(def, config); err != nil {
		return nil, err
	}
	if config == nil {
		config = make(map[string]string)
	}
	return &Instance{
		TenantEntity: shared.NewTenantEntity(tenantID),
		Slug:         def.Slug,
		Enabled:      true,
		Config:       config,
		LicenseKey:   strings.TrimSpace(licenseKey),
		InstalledAt:  time.Now(),
	}, nil
}

// Configure replaces the config after validating it against def
func (i *Instance) Configure(def Definition, config map[string]string) error {
	if err := ValidateConfig(def, config); err != nil {
		return err
	}
	i.Config = config
	i.Touch()
	return nil
}

// SetLicenseKey replaces the license key
func (i *Instance) SetLicenseKey(key string) {
	i.LicenseKey = strings.TrimSpace(key)
	i.Touch()
}

// Enable turns the plugin on
func (i *Instance) Enable() {
	i.Enabled = true
	i.Touch()
}

// Disable turns the plugin off without uninstalling it
func (i *Instance) Disable() {
	i.Enabled = false
	i.Touch()
}

// ValidateConfig checks that every required key is present and non-empty
func ValidateConfig(def Definition, config map[string]string) error {
	var missing []string
	for _, key := range def.RequiredKeys() {
		if strings.TrimSpace(config[key]) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return shared.NewDomainError("VALIDATION_ERROR",
			fmt.Sprintf("Missing required config for %s: %s", def.Slug, strings.Join(missing, ", ")))
	}
	return nil
}

// InstanceRepository persists plugin instances of the tenant carried by ctx
type InstanceRepository interface {
	Create(ctx context.Context, inst *Instance) error
	Update(ctx context.Context, inst *Instance) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindBySlug(ctx context.Context, slug string) (*Instance, error)
	FindAll(ctx context.Context) ([]*Instance, error)
}

// LicenseChecker verifies commercial plugin licenses
type LicenseChecker interface {
	Verify(licenseKey, pluginSlug string, tenantID uuid.UUID) error
}
