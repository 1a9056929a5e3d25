package plugin

import (
	"time"

	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/plugin"
)

// InstallRequest installs a catalogue plugin in the current store
type InstallRequest struct {
	Slug       string            `json:"slug" binding:"required,min=1,max=64"`
	Config     map[string]string `json:"config"`
	LicenseKey string            `json:"license_key" binding:"max=4096"`
}

// ConfigureRequest replaces a plugin's configuration
type ConfigureRequest struct {
	Config map[string]string `json:"config" binding:"required"`
}

// EnableRequest optionally supplies a new license key when enabling
type EnableRequest struct {
	LicenseKey string `json:"license_key" binding:"max=4096"`
}

// InstanceResponse is an installed plugin. Secret config values are masked.
type InstanceResponse struct {
	ID          uuid.UUID         `json:"id"`
	Slug        string            `json:"slug"`
	Name        string            `json:"name"`
	Category    string            `json:"category"`
	Version     string            `json:"version"`
	Commercial  bool              `json:"commercial"`
	Enabled     bool              `json:"enabled"`
	Config      map[string]string `json:"config"`
	HasLicense  bool              `json:"has_license"`
	InstalledAt time.Time         `json:"installed_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

const secretMask = "********"

// ToInstanceResponse combines an instance with its catalogue definition
func ToInstanceResponse(inst *plugin.Instance, def plugin.Definition) InstanceResponse {
	secret := make(map[string]bool, len(def.Config))
	for _, f := range def.Config {
		secret[f.Key] = f.Secret
	}
	config := make(map[string]string, len(inst.Config))
	for k, v := range inst.Config {
		if secret[k] && v != "" {
			v = secretMask
		}
		config[k] = v
	}

	name := def.Name
	if name == "" {
		name = inst.Slug
	}
	return InstanceResponse{
		ID:          inst.ID,
		Slug:        inst.Slug,
		Name:        name,
		Category:    string(def.Category),
		Version:     def.Version,
		Commercial:  def.Commercial,
		Enabled:     inst.Enabled,
		Config:      config,
		HasLicense:  inst.LicenseKey != "",
		InstalledAt: inst.InstalledAt,
		UpdatedAt:   inst.UpdatedAt,
	}
}
