package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/shared"
	"github.com/jiffoo/mall/internal/infrastructure/config"
)

// License modes
const (
	LicenseModeStub = "stub"
	LicenseModeJWT  = "jwt"
)

// AnyTenant in a license's tenant_id claim makes the key valid for every store
const AnyTenant = "*"

// LicenseClaims are the claims of a commercial plugin license key
type LicenseClaims struct {
	jwt.RegisteredClaims
	Plugin   string `json:"plugin"`
	TenantID string `json:"tenant_id"`
}

// LicenseVerifier checks commercial plugin license keys. In stub mode any
// non-empty key passes.
type LicenseVerifier struct {
	mode   string
	secret []byte
}

// NewLicenseVerifier creates a license verifier
func NewLicenseVerifier(cfg config.LicenseConfig) *LicenseVerifier {
	mode := cfg.Mode
	if mode == "" {
		mode = LicenseModeStub
	}
	return &LicenseVerifier{mode: mode, secret: []byte(cfg.Secret)}
}

// Mode returns the active verification mode
func (v *LicenseVerifier) Mode() string {
	return v.mode
}

func licenseError(msg string) error {
	return shared.NewDomainError(shared.ErrLicenseInvalid.Code, msg)
}

// Verify implements plugin.LicenseChecker
func (v *LicenseVerifier) Verify(licenseKey, pluginSlug string, tenantID uuid.UUID) error {
	licenseKey = strings.TrimSpace(licenseKey)
	if licenseKey == "" {
		return licenseError("A license key is required for this plugin")
	}
	if v.mode == LicenseModeStub {
		return nil
	}

	claims := &LicenseClaims{}
	if err := parseHS256(licenseKey, v.secret, claims); err != nil {
		if errors.Is(err, ErrExpiredToken) {
			return licenseError("License key has expired")
		}
		return licenseError("License key is invalid")
	}
	if claims.Plugin != pluginSlug {
		return licenseError(fmt.Sprintf("License key is not valid for plugin %s", pluginSlug))
	}
	if claims.TenantID != AnyTenant && claims.TenantID != tenantID.String() {
		return licenseError("License key was issued to another store")
	}
	return nil
}

// Issue signs a license key for plugin. tenant is a tenant UUID or AnyTenant.
// A zero ttl issues a perpetual key.
func (v *LicenseVerifier) Issue(pluginSlug, tenant string, ttl time.Duration) (string, error) {
	if len(v.secret) == 0 {
		return "", errors.New("license secret is not configured")
	}
	if pluginSlug == "" {
		return "", errors.New("plugin is required")
	}
	if tenant != AnyTenant {
		if _, err := uuid.Parse(tenant); err != nil {
			return "", fmt.Errorf("tenant must be a UUID or %q", AnyTenant)
		}
	}

	now := time.Now()
	claims := &LicenseClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.New().String(),
			Issuer:   "jiffoo-licensing",
			IssuedAt: jwt.NewNumericDate(now),
		},
		Plugin:   pluginSlug,
		TenantID: tenant,
	}
	if ttl != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
