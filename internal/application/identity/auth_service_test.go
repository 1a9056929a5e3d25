package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/identity"
	"github.com/jiffoo/mall/internal/domain/shared"
	"github.com/jiffoo/mall/internal/infrastructure/auth"
	"github.com/jiffoo/mall/internal/infrastructure/config"
	"github.com/jiffoo/mall/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testPassword = "Password123"

func createTestUser(t *testing.T, tenantID uuid.UUID) *identity.User {
	t.Helper()
	user, err := identity.NewUser(tenantID, "shopper@example.com", "shopper", testPassword, identity.RoleCustomer)
	require.NoError(t, err)
	return user
}

func newJWTService(maxRefresh int) *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-32-characters-long",
		RefreshSecret:          "test-refresh-secret-32-characters",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "test-issuer",
		MaxRefreshCount:        maxRefresh,
	})
}

func createAuthService(userRepo *MockUserRepository, blacklist auth.TokenBlacklist) (*AuthService, *auth.JWTService) {
	jwtService := newJWTService(3)
	return NewAuthService(userRepo, jwtService, blacklist, DefaultAuthServiceConfig(), zap.NewNop()), jwtService
}

func domainCode(t *testing.T, err error) string {
	t.Helper()
	var domainErr *shared.DomainError
	require.True(t, errors.As(err, &domainErr), "expected a domain error, got %v", err)
	return domainErr.Code
}

func TestAuthService_Login_Success(t *testing.T) {
	tenantID := uuid.New()
	user := createTestUser(t, tenantID)
	userRepo := new(MockUserRepository)
	userRepo.On("FindByEmail", mock.Anything, "shopper@example.com").Return(user, nil)
	userRepo.On("Update", mock.Anything, user).Return(nil)

	svc, jwtService := createAuthService(userRepo, auth.NewInMemoryTokenBlacklist())
	result, err := svc.Login(context.Background(), LoginInput{
		Email:    "shopper@example.com",
		Password: testPassword,
		IP:       "127.0.0.1",
	})

	require.NoError(t, err)
	assert.Equal(t, "Bearer", result.TokenType)
	assert.Equal(t, tenantID, result.User.TenantID)
	assert.Equal(t, "customer", result.User.Role)
	assert.NotNil(t, user.LastLoginAt)
	assert.Equal(t, "127.0.0.1", user.LastLoginIP)

	claims, err := jwtService.ValidateAccessToken(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, tenantID.String(), claims.TenantID)
	assert.Equal(t, "customer", claims.Role)
	userRepo.AssertExpectations(t)
}

func TestAuthService_Login_Failures(t *testing.T) {
	tenantID := uuid.New()

	tests := []struct {
		name     string
		setup    func(repo *MockUserRepository)
		password string
		wantCode string
	}{
		{
			name: "unknown email",
			setup: func(repo *MockUserRepository) {
				repo.On("FindByEmail", mock.Anything, mock.Anything).Return(nil, shared.ErrNotFound)
			},
			password: testPassword,
			wantCode: "INVALID_CREDENTIALS",
		},
		{
			name: "wrong password",
			setup: func(repo *MockUserRepository) {
				repo.On("FindByEmail", mock.Anything, mock.Anything).Return(createTestUser(t, tenantID), nil)
				repo.On("Update", mock.Anything, mock.Anything).Return(nil)
			},
			password: "wrong-password1",
			wantCode: "INVALID_CREDENTIALS",
		},
		{
			name: "disabled account",
			setup: func(repo *MockUserRepository) {
				user := createTestUser(t, tenantID)
				require.NoError(t, user.Disable())
				repo.On("FindByEmail", mock.Anything, mock.Anything).Return(user, nil)
			},
			password: testPassword,
			wantCode: "ACCOUNT_DISABLED",
		},
		{
			name: "locked account",
			setup: func(repo *MockUserRepository) {
				user := createTestUser(t, tenantID)
				until := time.Now().Add(time.Minute)
				user.LockedUntil = &until
				repo.On("FindByEmail", mock.Anything, mock.Anything).Return(user, nil)
			},
			password: testPassword,
			wantCode: "ACCOUNT_LOCKED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockUserRepository)
			tt.setup(repo)
			svc, _ := createAuthService(repo, auth.NewInMemoryTokenBlacklist())

			result, err := svc.Login(context.Background(), LoginInput{Email: "shopper@example.com", Password: tt.password})
			require.Error(t, err)
			assert.Nil(t, result)
			assert.Equal(t, tt.wantCode, domainCode(t, err))
		})
	}
}

func TestAuthService_Login_LocksAfterMaxAttempts(t *testing.T) {
	user := createTestUser(t, uuid.New())
	repo := new(MockUserRepository)
	repo.On("FindByEmail", mock.Anything, mock.Anything).Return(user, nil)
	repo.On("Update", mock.Anything, user).Return(nil)
	svc, _ := createAuthService(repo, auth.NewInMemoryTokenBlacklist())

	var err error
	for i := 0; i < 5; i++ {
		_, err = svc.Login(context.Background(), LoginInput{Email: user.Email, Password: "not-it-123"})
	}
	assert.Equal(t, "ACCOUNT_LOCKED", domainCode(t, err))
	assert.True(t, user.IsLocked())

	// The right password does not help while locked
	_, err = svc.Login(context.Background(), LoginInput{Email: user.Email, Password: testPassword})
	assert.Equal(t, "ACCOUNT_LOCKED", domainCode(t, err))
}

func TestAuthService_Register(t *testing.T) {
	tenantID := uuid.New()

	t.Run("creates customer", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("ExistsByEmail", mock.Anything, "new@example.com").Return(false, nil)
		repo.On("Create", mock.Anything, mock.MatchedBy(func(u *identity.User) bool {
			return u.Role == identity.RoleCustomer && u.TenantID == tenantID
		})).Return(nil)

		svc, _ := createAuthService(repo, auth.NewInMemoryTokenBlacklist())
		result, err := svc.Register(context.Background(), RegisterInput{
			TenantID: tenantID,
			Email:    "new@example.com",
			Password: testPassword,
		})
		require.NoError(t, err)
		assert.Equal(t, "new", result.User.Username)
		assert.NotEmpty(t, result.AccessToken)
		repo.AssertExpectations(t)
	})

	t.Run("duplicate email", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("ExistsByEmail", mock.Anything, "new@example.com").Return(true, nil)

		svc, _ := createAuthService(repo, auth.NewInMemoryTokenBlacklist())
		_, err := svc.Register(context.Background(), RegisterInput{TenantID: tenantID, Email: "new@example.com", Password: testPassword})
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestAuthService_RefreshToken_Rotates(t *testing.T) {
	tenantID := uuid.New()
	user := createTestUser(t, tenantID)
	repo := new(MockUserRepository)
	repo.On("FindByID", mock.MatchedBy(func(ctx context.Context) bool {
		return logger.GetTenantID(ctx) == tenantID.String()
	}), user.ID).Return(user, nil)

	blacklist := auth.NewInMemoryTokenBlacklist()
	svc, jwtService := createAuthService(repo, blacklist)
	pair, err := jwtService.GenerateTokenPair(tokenInput(user))
	require.NoError(t, err)

	rotated, err := svc.RefreshToken(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	claims, err := jwtService.ValidateRefreshToken(rotated.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, 1, claims.RefreshCount)

	// The used refresh token cannot be replayed
	_, err = svc.RefreshToken(context.Background(), pair.RefreshToken)
	assert.Equal(t, "TOKEN_REVOKED", domainCode(t, err))
}

func TestAuthService_RefreshToken_Errors(t *testing.T) {
	user := createTestUser(t, uuid.New())
	jwtService := newJWTService(1)
	pair, err := jwtService.GenerateTokenPair(tokenInput(user))
	require.NoError(t, err)
	first, err := jwtService.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	exhausted, err := jwtService.RefreshTokenPair(first, tokenInput(user))
	require.NoError(t, err)

	tests := []struct {
		name     string
		token    string
		wantCode string
	}{
		{"garbage", "not-a-jwt", "INVALID_TOKEN"},
		{"access token used as refresh", pair.AccessToken, "INVALID_TOKEN"},
		{"refresh limit reached", exhausted.RefreshToken, "REFRESH_LIMIT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockUserRepository)
			repo.On("FindByID", mock.Anything, user.ID).Return(user, nil)
			svc := NewAuthService(repo, jwtService, auth.NewInMemoryTokenBlacklist(), DefaultAuthServiceConfig(), zap.NewNop())

			_, err := svc.RefreshToken(context.Background(), tt.token)
			assert.Equal(t, tt.wantCode, domainCode(t, err))
		})
	}
}

func TestAuthService_Logout_RevokesAccessToken(t *testing.T) {
	blacklist := auth.NewInMemoryTokenBlacklist()
	svc, _ := createAuthService(new(MockUserRepository), blacklist)

	require.NoError(t, svc.Logout(context.Background(), LogoutInput{
		UserID:   uuid.New(),
		TokenJTI: "jti-1",
		TokenTTL: time.Minute,
	}))

	revoked, err := blacklist.IsBlacklisted(context.Background(), "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestAuthService_ChangePassword(t *testing.T) {
	user := createTestUser(t, uuid.New())
	repo := new(MockUserRepository)
	repo.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	repo.On("Update", mock.Anything, user).Return(nil)
	blacklist := auth.NewInMemoryTokenBlacklist()
	svc, _ := createAuthService(repo, blacklist)

	err := svc.ChangePassword(context.Background(), ChangePasswordInput{
		UserID:      user.ID,
		OldPassword: "wrong-password1",
		NewPassword: "NewPassword456",
	})
	assert.Equal(t, "INVALID_PASSWORD", domainCode(t, err))

	require.NoError(t, svc.ChangePassword(context.Background(), ChangePasswordInput{
		UserID:      user.ID,
		OldPassword: testPassword,
		NewPassword: "NewPassword456",
	}))
	assert.True(t, user.VerifyPassword("NewPassword456"))

	invalidated, err := blacklist.IsUserTokenInvalidated(context.Background(), user.ID.String(), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.True(t, invalidated)
}

func TestMapTokenError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{auth.ErrExpiredToken, "TOKEN_EXPIRED"},
		{auth.ErrInvalidTokenType, "INVALID_TOKEN_TYPE"},
		{auth.ErrMaxRefreshExceeded, "REFRESH_LIMIT"},
		{auth.ErrTokenBlacklisted, "TOKEN_REVOKED"},
		{auth.ErrInvalidToken, "INVALID_TOKEN"},
		{auth.ErrMissingTenantID, "INVALID_TOKEN"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, domainCode(t, MapTokenError(tt.err)), tt.err.Error())
	}
}
