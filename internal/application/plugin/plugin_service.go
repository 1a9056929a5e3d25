// Package plugin manages the plugins installed in each store and hands
// configured providers to the rest of the application.
package plugin

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/plugin"
	"github.com/jiffoo/mall/internal/domain/shared"
	"github.com/jiffoo/mall/internal/infrastructure/logger"
	pluginreg "github.com/jiffoo/mall/internal/infrastructure/plugin"
	"go.uber.org/zap"
)

// Service installs, configures and gates plugins per store
type Service struct {
	registry  *pluginreg.Registry
	instances plugin.InstanceRepository
	licenses  plugin.LicenseChecker
}

// NewService creates a plugin service
func NewService(registry *pluginreg.Registry, instances plugin.InstanceRepository, licenses plugin.LicenseChecker) *Service {
	return &Service{
		registry:  registry,
		instances: instances,
		licenses:  licenses,
	}
}

func errPluginDisabled(slug string) error {
	return shared.NewDomainError("PLUGIN_DISABLED", fmt.Sprintf("Plugin %s is not enabled for this store", slug))
}

// Catalog lists every available plugin
func (s *Service) Catalog() []plugin.Definition {
	return s.registry.Catalog()
}

// List returns the store's installed plugins
func (s *Service) List(ctx context.Context) ([]InstanceResponse, error) {
	instances, err := s.instances.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]InstanceResponse, 0, len(instances))
	for _, inst := range instances {
		// A definition can disappear when a plugin is retired; keep listing
		// the instance so it can still be uninstalled.
		def, _ := s.registry.Definition(inst.Slug)
		out = append(out, ToInstanceResponse(inst, def))
	}
	return out, nil
}

// Install adds a plugin to the store. Commercial plugins need a valid
// license key.
func (s *Service) Install(ctx context.Context, tenantID uuid.UUID, req InstallRequest) (*InstanceResponse, error) {
	def, err := s.registry.Definition(req.Slug)
	if err != nil {
		return nil, err
	}

	_, err = s.instances.FindBySlug(ctx, def.Slug)
	switch {
	case err == nil:
		return nil, shared.NewDomainError("ALREADY_EXISTS", fmt.Sprintf("Plugin %s is already installed", def.Slug))
	case !errors.Is(err, shared.ErrNotFound):
		return nil, err
	}

	if def.Commercial {
		if err := s.licenses.Verify(req.LicenseKey, def.Slug, tenantID); err != nil {
			return nil, err
		}
	}

	inst, err := plugin.NewInstance(tenantID, def, req.Config, req.LicenseKey)
	if err != nil {
		return nil, err
	}
	if err := s.instances.Create(ctx, inst); err != nil {
		return nil, err
	}

	logger.L(ctx).Info("Plugin installed", zap.String("plugin", def.Slug))
	resp := ToInstanceResponse(inst, def)
	return &resp, nil
}

// Configure replaces a plugin's configuration
func (s *Service) Configure(ctx context.Context, slug string, req ConfigureRequest) (*InstanceResponse, error) {
	inst, def, err := s.load(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := inst.Configure(def, req.Config); err != nil {
		return nil, err
	}
	if err := s.instances.Update(ctx, inst); err != nil {
		return nil, err
	}
	logger.L(ctx).Info("Plugin configured", zap.String("plugin", slug))
	resp := ToInstanceResponse(inst, def)
	return &resp, nil
}

// Enable turns a plugin on, re-checking the license of commercial plugins
func (s *Service) Enable(ctx context.Context, tenantID uuid.UUID, slug string, req EnableRequest) (*InstanceResponse, error) {
	inst, def, err := s.load(ctx, slug)
	if err != nil {
		return nil, err
	}
	if req.LicenseKey != "" {
		inst.SetLicenseKey(req.LicenseKey)
	}
	if def.Commercial {
		if err := s.licenses.Verify(inst.LicenseKey, def.Slug, tenantID); err != nil {
			return nil, err
		}
	}
	inst.Enable()
	if err := s.instances.Update(ctx, inst); err != nil {
		return nil, err
	}
	logger.L(ctx).Info("Plugin enabled", zap.String("plugin", slug))
	resp := ToInstanceResponse(inst, def)
	return &resp, nil
}

// Disable turns a plugin off without losing its configuration
func (s *Service) Disable(ctx context.Context, slug string) (*InstanceResponse, error) {
	inst, def, err := s.load(ctx, slug)
	if err != nil {
		return nil, err
	}
	inst.Disable()
	if err := s.instances.Update(ctx, inst); err != nil {
		return nil, err
	}
	logger.L(ctx).Info("Plugin disabled", zap.String("plugin", slug))
	resp := ToInstanceResponse(inst, def)
	return &resp, nil
}

// Uninstall removes a plugin and its configuration
func (s *Service) Uninstall(ctx context.Context, slug string) error {
	inst, err := s.instances.FindBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if err := s.instances.Delete(ctx, inst.ID); err != nil {
		return err
	}
	logger.L(ctx).Info("Plugin uninstalled", zap.String("plugin", slug))
	return nil
}

// Payment returns a payment provider the store may charge through, with the
// store's configuration for it
func (s *Service) Payment(ctx context.Context, tenantID uuid.UUID, slug string) (plugin.PaymentProvider, map[string]string, error) {
	provider, err := s.registry.Payment(slug)
	if err != nil {
		return nil, nil, err
	}
	inst, err := s.active(ctx, tenantID, slug)
	if err != nil {
		return nil, nil, err
	}
	return provider, inst.Config, nil
}

// Notifier returns the store's notification plugin. ok is false when no
// notification plugin is installed and enabled.
func (s *Service) Notifier(ctx context.Context, tenantID uuid.UUID) (provider plugin.NotificationProvider, config map[string]string, ok bool) {
	provider, err := s.registry.Notifier(pluginreg.SlugNewsletter)
	if err != nil {
		return nil, nil, false
	}
	inst, err := s.active(ctx, tenantID, pluginreg.SlugNewsletter)
	if err != nil {
		logger.L(ctx).Debug("No notification plugin for store", zap.Error(err))
		return nil, nil, false
	}
	return provider, inst.Config, true
}

// AuthorizeURL builds the third-party sign-in redirect for an auth plugin
func (s *Service) AuthorizeURL(ctx context.Context, tenantID uuid.UUID, slug, state string) (string, error) {
	provider, err := s.registry.Login(slug)
	if err != nil {
		return "", err
	}
	inst, err := s.active(ctx, tenantID, slug)
	if err != nil {
		return "", err
	}
	return provider.AuthorizeURL(inst.Config, state)
}

// active loads an installed, enabled and licensed instance
func (s *Service) active(ctx context.Context, tenantID uuid.UUID, slug string) (*plugin.Instance, error) {
	inst, def, err := s.load(ctx, slug)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, errPluginDisabled(slug)
		}
		return nil, err
	}
	if !inst.Enabled {
		return nil, errPluginDisabled(slug)
	}
	if def.Commercial {
		if err := s.licenses.Verify(inst.LicenseKey, slug, tenantID); err != nil {
			return nil, err
		}
	}
	return inst, nil
}

func (s *Service) load(ctx context.Context, slug string) (*plugin.Instance, plugin.Definition, error) {
	def, err := s.registry.Definition(slug)
	if err != nil {
		return nil, plugin.Definition{}, err
	}
	inst, err := s.instances.FindBySlug(ctx, slug)
	if err != nil {
		return nil, plugin.Definition{}, err
	}
	return inst, def, nil
}
