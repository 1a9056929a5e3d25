package identity

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/shared"
)

// TenantStatus represents the lifecycle state of a store
type TenantStatus string

const (
	TenantStatusPending   TenantStatus = "pending"
	TenantStatusActive    TenantStatus = "active"
	TenantStatusSuspended TenantStatus = "suspended"
)

// TenantPlan represents the subscription plan of a store
type TenantPlan string

const (
	TenantPlanFree       TenantPlan = "free"
	TenantPlanPro        TenantPlan = "pro"
	TenantPlanEnterprise TenantPlan = "enterprise"
)

// PlatformTenantID is the reserved store that owns super admin accounts.
// It is created by the schema migrations and never serves storefront
// traffic.
var PlatformTenantID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

var slugPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// reservedSlugs cannot be claimed by stores because they collide with
// platform hostnames.
var reservedSlugs = map[string]struct{}{
	"www": {}, "api": {}, "admin": {}, "platform": {}, "static": {}, "mail": {},
}

// TenantSettings holds per-store presentation defaults
type TenantSettings struct {
	Currency string `json:"currency"`
	Locale   string `json:"locale"`
}

// DefaultTenantSettings returns the settings a new store starts with
func DefaultTenantSettings() TenantSettings {
	return TenantSettings{Currency: "USD", Locale: "en"}
}

// Tenant is a store on the platform. Every tenant-owned record points at one.
type Tenant struct {
	shared.BaseEntity
	Slug         string
	Name         string
	Domain       string
	Status       TenantStatus
	Plan         TenantPlan
	ContactEmail string
	Settings     TenantSettings
}

// NewTenant creates an active store on the free plan
func NewTenant(slug, name, contactEmail string) (*Tenant, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if err := ValidateSlug(slug); err != nil {
		return nil, err
	}
	if err := validateTenantName(name); err != nil {
		return nil, err
	}
	if contactEmail != "" {
		if err := validateEmail(contactEmail); err != nil {
			return nil, err
		}
	}

	return &Tenant{
		BaseEntity:   shared.NewBaseEntity(),
		Slug:         slug,
		Name:         strings.TrimSpace(name),
		Status:       TenantStatusActive,
		Plan:         TenantPlanFree,
		ContactEmail: strings.ToLower(strings.TrimSpace(contactEmail)),
		Settings:     DefaultTenantSettings(),
	}, nil
}

// Rename changes the display name
func (t *Tenant) Rename(name string) error {
	if err := validateTenantName(name); err != nil {
		return err
	}
	t.Name = strings.TrimSpace(name)
	t.Touch()
	return nil
}

// SetDomain sets or clears the custom domain
func (t *Tenant) SetDomain(domain string) error {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if len(domain) > 253 {
		return shared.NewDomainError("INVALID_DOMAIN", "Domain cannot exceed 253 characters")
	}
	if domain != "" && !strings.Contains(domain, ".") {
		return shared.NewDomainError("INVALID_DOMAIN", "Domain must be a fully qualified host name")
	}
	t.Domain = domain
	t.Touch()
	return nil
}

// UpdateSettings replaces the store settings, keeping defaults for blanks
func (t *Tenant) UpdateSettings(settings TenantSettings) {
	defaults := DefaultTenantSettings()
	if settings.Currency == "" {
		settings.Currency = defaults.Currency
	}
	if settings.Locale == "" {
		settings.Locale = defaults.Locale
	}
	settings.Currency = strings.ToUpper(settings.Currency)
	t.Settings = settings
	t.Touch()
}

// SetPlan changes the subscription plan
func (t *Tenant) SetPlan(plan TenantPlan) error {
	switch plan {
	case TenantPlanFree, TenantPlanPro, TenantPlanEnterprise:
	default:
		return shared.NewDomainError("INVALID_PLAN", "Unknown tenant plan")
	}
	t.Plan = plan
	t.Touch()
	return nil
}

// Activate puts the store online
func (t *Tenant) Activate() error {
	if t.Status == TenantStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Tenant is already active")
	}
	t.Status = TenantStatusActive
	t.Touch()
	return nil
}

// Suspend takes the store offline; requests against it are rejected
func (t *Tenant) Suspend() error {
	if t.Status == TenantStatusSuspended {
		return shared.NewDomainError("ALREADY_SUSPENDED", "Tenant is already suspended")
	}
	t.Status = TenantStatusSuspended
	t.Touch()
	return nil
}

// IsActive returns true if the store accepts requests
func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}

// ValidateSlug checks that slug can be used as a subdomain label
func ValidateSlug(slug string) error {
	if len(slug) < 3 || len(slug) > 63 {
		return shared.NewDomainError("INVALID_SLUG", "Slug must be between 3 and 63 characters")
	}
	if !slugPattern.MatchString(slug) {
		return shared.NewDomainError("INVALID_SLUG", "Slug can only contain lowercase letters, numbers and hyphens")
	}
	if _, ok := reservedSlugs[slug]; ok {
		return shared.NewDomainError("INVALID_SLUG", "Slug is reserved")
	}
	return nil
}

func validateTenantName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Tenant name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Tenant name cannot exceed 200 characters")
	}
	return nil
}
