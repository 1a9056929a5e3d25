package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/shared"
	"github.com/jiffoo/mall/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testLicenseSecret = "license-secret-key-at-least-32-chars"

func TestLicenseVerifier_StubMode(t *testing.T) {
	v := NewLicenseVerifier(config.LicenseConfig{})
	assert.Equal(t, LicenseModeStub, v.Mode())

	assert.NoError(t, v.Verify("anything", "stripe", uuid.New()))
	err := v.Verify("  ", "stripe", uuid.New())
	assert.ErrorIs(t, err, shared.ErrLicenseInvalid)
}

func TestLicenseVerifier_JWTMode(t *testing.T) {
	v := NewLicenseVerifier(config.LicenseConfig{Mode: LicenseModeJWT, Secret: testLicenseSecret})
	tenantID := uuid.New()

	forTenant, err := v.Issue("stripe", tenantID.String(), time.Hour)
	require.NoError(t, err)
	wildcard, err := v.Issue("stripe", AnyTenant, 0)
	require.NoError(t, err)
	expired, err := v.Issue("stripe", AnyTenant, -time.Hour)
	require.NoError(t, err)
	foreign, err := NewLicenseVerifier(config.LicenseConfig{Mode: LicenseModeJWT, Secret: "some-other-secret-at-least-32-chars"}).
		Issue("stripe", AnyTenant, 0)
	require.NoError(t, err)

	tests := []struct {
		name    string
		key     string
		plugin  string
		tenant  uuid.UUID
		wantErr bool
	}{
		{"tenant key", forTenant, "stripe", tenantID, false},
		{"wildcard key", wildcard, "stripe", uuid.New(), false},
		{"other tenant", forTenant, "stripe", uuid.New(), true},
		{"other plugin", forTenant, "google-oauth", tenantID, true},
		{"expired", expired, "stripe", tenantID, true},
		{"wrong signature", foreign, "stripe", tenantID, true},
		{"not a jwt", "stub-key", "stripe", tenantID, true},
		{"empty", "", "stripe", tenantID, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Verify(tt.key, tt.plugin, tt.tenant)
			if tt.wantErr {
				assert.ErrorIs(t, err, shared.ErrLicenseInvalid)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLicenseVerifier_IssueValidation(t *testing.T) {
	_, err := NewLicenseVerifier(config.LicenseConfig{}).Issue("stripe", AnyTenant, 0)
	assert.Error(t, err)

	v := NewLicenseVerifier(config.LicenseConfig{Mode: LicenseModeJWT, Secret: testLicenseSecret})
	_, err = v.Issue("", AnyTenant, 0)
	assert.Error(t, err)
	_, err = v.Issue("stripe", "acme", 0)
	assert.Error(t, err)
}
