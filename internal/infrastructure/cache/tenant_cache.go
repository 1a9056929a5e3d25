package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/identity"
	"github.com/jiffoo/mall/internal/domain/shared"
	"go.uber.org/zap"
)

// TenantKeyPrefix namespaces tenant entries in Redis
const TenantKeyPrefix = "mall:tenant:"

type tenantSnapshot struct {
	ID           uuid.UUID               `json:"id"`
	Slug         string                  `json:"slug"`
	Name         string                  `json:"name"`
	Domain       string                  `json:"domain,omitempty"`
	Status       identity.TenantStatus   `json:"status"`
	Plan         identity.TenantPlan     `json:"plan"`
	ContactEmail string                  `json:"contact_email,omitempty"`
	Settings     identity.TenantSettings `json:"settings"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
}

// TenantCache caches tenant lookups by id, slug and custom domain. Store
// failures degrade to cache misses; they never fail the lookup.
type TenantCache struct {
	store  Store
	ttl    time.Duration
	logger *zap.Logger
}

// NewTenantCache creates a tenant cache over store
func NewTenantCache(store Store, ttl time.Duration, logger *zap.Logger) *TenantCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &TenantCache{store: store, ttl: ttl, logger: logger}
}

func idKey(id uuid.UUID) string      { return "id:" + id.String() }
func slugKey(slug string) string     { return "slug:" + strings.ToLower(slug) }
func domainKey(domain string) string { return "domain:" + strings.ToLower(domain) }

// GetByID returns a cached tenant
func (c *TenantCache) GetByID(ctx context.Context, id uuid.UUID) (*identity.Tenant, bool) {
	return c.get(ctx, idKey(id))
}

// GetBySlug returns a cached tenant
func (c *TenantCache) GetBySlug(ctx context.Context, slug string) (*identity.Tenant, bool) {
	return c.get(ctx, slugKey(slug))
}

// GetByDomain returns a cached tenant
func (c *TenantCache) GetByDomain(ctx context.Context, domain string) (*identity.Tenant, bool) {
	return c.get(ctx, domainKey(domain))
}

// Put stores t under each of its lookup keys
func (c *TenantCache) Put(ctx context.Context, t *identity.Tenant) {
	data, err := json.Marshal(tenantSnapshot{
		ID:           t.ID,
		Slug:         t.Slug,
		Name:         t.Name,
		Domain:       t.Domain,
		Status:       t.Status,
		Plan:         t.Plan,
		ContactEmail: t.ContactEmail,
		Settings:     t.Settings,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	})
	if err != nil {
		c.logger.Warn("Failed to encode tenant for cache", zap.Error(err))
		return
	}
	for _, key := range keysFor(t) {
		if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
			c.logger.Warn("Failed to cache tenant", zap.String("key", key), zap.Error(err))
		}
	}
}

// Invalidate drops every key t is cached under. Pass the previous domain
// as well when it changed so the stale entry goes too.
func (c *TenantCache) Invalidate(ctx context.Context, t *identity.Tenant, previousDomains ...string) {
	keys := keysFor(t)
	for _, d := range previousDomains {
		if d != "" {
			keys = append(keys, domainKey(d))
		}
	}
	if err := c.store.Delete(ctx, keys...); err != nil {
		c.logger.Warn("Failed to invalidate tenant cache",
			zap.String("tenant_id", t.ID.String()), zap.Error(err))
	}
}

func keysFor(t *identity.Tenant) []string {
	keys := []string{idKey(t.ID), slugKey(t.Slug)}
	if t.Domain != "" {
		keys = append(keys, domainKey(t.Domain))
	}
	return keys
}

func (c *TenantCache) get(ctx context.Context, key string) (*identity.Tenant, bool) {
	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("Tenant cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var snap tenantSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		c.logger.Warn("Dropping undecodable tenant cache entry", zap.String("key", key), zap.Error(err))
		_ = c.store.Delete(ctx, key)
		return nil, false
	}
	return &identity.Tenant{
		BaseEntity: shared.BaseEntity{
			ID:        snap.ID,
			CreatedAt: snap.CreatedAt,
			UpdatedAt: snap.UpdatedAt,
		},
		Slug:         snap.Slug,
		Name:         snap.Name,
		Domain:       snap.Domain,
		Status:       snap.Status,
		Plan:         snap.Plan,
		ContactEmail: snap.ContactEmail,
		Settings:     snap.Settings,
	}, true
}
