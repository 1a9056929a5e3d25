// Package plugin holds the plugin catalogue: definitions read from the
// embedded YAML manifests, each bound to a compiled-in provider.
package plugin

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"sync"

	"github.com/jiffoo/mall/internal/domain/plugin"
	"github.com/jiffoo/mall/internal/domain/shared"
	"gopkg.in/yaml.v3"
)

//go:embed manifests/*.yaml
var manifestFS embed.FS

// Registry maps plugin slugs to definitions and providers
type Registry struct {
	mu          sync.RWMutex
	definitions map[string]plugin.Definition
	providers   map[string]plugin.Provider
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		definitions: make(map[string]plugin.Definition),
		providers:   make(map[string]plugin.Provider),
	}
}

// Register binds a definition to its provider
func (r *Registry) Register(def plugin.Definition, provider plugin.Provider) error {
	if provider == nil {
		return fmt.Errorf("%w: plugin %q has no provider", shared.ErrInvalidInput, def.Slug)
	}
	if def.Slug == "" || def.Slug != provider.Slug() {
		return fmt.Errorf("%w: manifest slug %q does not match provider %q",
			shared.ErrInvalidInput, def.Slug, provider.Slug())
	}
	if err := checkCategory(def, provider); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.definitions[def.Slug]; exists {
		return fmt.Errorf("%w: plugin '%s' already registered", shared.ErrAlreadyExists, def.Slug)
	}
	r.definitions[def.Slug] = def
	r.providers[def.Slug] = provider
	return nil
}

// checkCategory rejects providers that cannot serve their category
func checkCategory(def plugin.Definition, provider plugin.Provider) error {
	var ok bool
	switch def.Category {
	case plugin.CategoryPayment:
		_, ok = provider.(plugin.PaymentProvider)
	case plugin.CategoryAuth:
		_, ok = provider.(plugin.LoginProvider)
	case plugin.CategoryMarketing:
		_, ok = provider.(plugin.NotificationProvider)
	}
	if !ok {
		return fmt.Errorf("%w: provider %q cannot serve category %q",
			shared.ErrInvalidInput, def.Slug, def.Category)
	}
	return nil
}

// Definition returns the catalogue entry for slug
func (r *Registry) Definition(slug string) (plugin.Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.definitions[slug]
	if !ok {
		return plugin.Definition{}, fmt.Errorf("%w: plugin '%s' not found", shared.ErrNotFound, slug)
	}
	return def, nil
}

// Catalog returns every definition sorted by slug
func (r *Registry) Catalog() []plugin.Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]plugin.Definition, 0, len(r.definitions))
	for _, d := range r.definitions {
		defs = append(defs, d)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Slug < defs[j].Slug })
	return defs
}

// Payment returns the payment provider for slug
func (r *Registry) Payment(slug string) (plugin.PaymentProvider, error) {
	p, err := r.provider(slug)
	if err != nil {
		return nil, err
	}
	pp, ok := p.(plugin.PaymentProvider)
	if !ok {
		return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Plugin %s is not a payment provider", slug))
	}
	return pp, nil
}

// Notifier returns the notification provider for slug
func (r *Registry) Notifier(slug string) (plugin.NotificationProvider, error) {
	p, err := r.provider(slug)
	if err != nil {
		return nil, err
	}
	np, ok := p.(plugin.NotificationProvider)
	if !ok {
		return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Plugin %s does not send notifications", slug))
	}
	return np, nil
}

// Login returns the sign-in provider for slug
func (r *Registry) Login(slug string) (plugin.LoginProvider, error) {
	p, err := r.provider(slug)
	if err != nil {
		return nil, err
	}
	lp, ok := p.(plugin.LoginProvider)
	if !ok {
		return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Plugin %s is not a sign-in provider", slug))
	}
	return lp, nil
}

func (r *Registry) provider(slug string) (plugin.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[slug]
	if !ok {
		return nil, fmt.Errorf("%w: plugin '%s' not found", shared.ErrNotFound, slug)
	}
	return p, nil
}

// LoadManifests decodes every *.yaml file in dir of fsys
func LoadManifests(fsys fs.FS, dir string) ([]plugin.Definition, error) {
	names, err := fs.Glob(fsys, path.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	defs := make([]plugin.Definition, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read manifest %s: %w", name, err)
		}
		var def plugin.Definition
		if err := yaml.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("parse manifest %s: %w", name, err)
		}
		if def.Slug == "" || def.Name == "" {
			return nil, fmt.Errorf("manifest %s: slug and name are required", name)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// Load registers each manifest in fsys with the provider of the same slug.
// Every manifest needs a provider and every provider a manifest.
func Load(fsys fs.FS, dir string, providers ...plugin.Provider) (*Registry, error) {
	defs, err := LoadManifests(fsys, dir)
	if err != nil {
		return nil, err
	}

	bySlug := make(map[string]plugin.Provider, len(providers))
	for _, p := range providers {
		bySlug[p.Slug()] = p
	}

	r := NewRegistry()
	for _, def := range defs {
		p, ok := bySlug[def.Slug]
		if !ok {
			return nil, fmt.Errorf("manifest %q has no compiled-in provider", def.Slug)
		}
		if err := r.Register(def, p); err != nil {
			return nil, err
		}
		delete(bySlug, def.Slug)
	}
	for slug := range bySlug {
		return nil, fmt.Errorf("provider %q has no manifest", slug)
	}
	return r, nil
}
