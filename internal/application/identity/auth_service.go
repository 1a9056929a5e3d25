package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/identity"
	"github.com/jiffoo/mall/internal/domain/shared"
	"github.com/jiffoo/mall/internal/infrastructure/auth"
	"github.com/jiffoo/mall/internal/infrastructure/logger"
	"github.com/jiffoo/mall/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// AuthServiceConfig contains configuration for the auth service
type AuthServiceConfig struct {
	MaxLoginAttempts int           // Maximum failed login attempts before lock
	LockDuration     time.Duration // How long to lock account after max attempts
}

// DefaultAuthServiceConfig returns default configuration
func DefaultAuthServiceConfig() AuthServiceConfig {
	return AuthServiceConfig{
		MaxLoginAttempts: 5,
		LockDuration:     15 * time.Minute,
	}
}

var (
	errInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
	errAccountDisabled    = shared.NewDomainError("ACCOUNT_DISABLED", "Account has been disabled")
	errTokenRevoked       = shared.NewDomainError("TOKEN_REVOKED", "Token has been revoked")
)

// AuthService handles authentication operations
type AuthService struct {
	userRepo   identity.UserRepository
	jwtService *auth.JWTService
	blacklist  auth.TokenBlacklist
	config     AuthServiceConfig
	logger     *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo identity.UserRepository,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	config AuthServiceConfig,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		jwtService: jwtService,
		blacklist:  blacklist,
		config:     config,
		logger:     logger,
	}
}

// Login authenticates a user of the tenant carried by ctx and returns tokens
func (s *AuthService) Login(ctx context.Context, input LoginInput) (result *LoginResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "AuthService", "Login")
	defer func() { telemetry.EndSpan(span, err) }()

	log := logger.L(ctx).With(zap.String("email", input.Email))

	user, err := s.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			log.Warn("Login attempt for unknown email")
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	if user.IsLocked() {
		log.Warn("Login attempt for locked account")
		return nil, shared.NewDomainError("ACCOUNT_LOCKED", "Account is locked. Please try again later")
	}
	if user.Status != identity.UserStatusActive {
		log.Warn("Login attempt for disabled account")
		return nil, errAccountDisabled
	}

	if !user.VerifyPassword(input.Password) {
		locked := user.RecordLoginFailure(s.config.MaxLoginAttempts, s.config.LockDuration)
		if err := s.userRepo.Update(ctx, user); err != nil {
			log.Error("Failed to update user after login failure", zap.Error(err))
		}
		if locked {
			log.Warn("Account locked after too many failed attempts",
				zap.Int("attempts", s.config.MaxLoginAttempts))
			return nil, shared.NewDomainError("ACCOUNT_LOCKED", "Too many failed login attempts. Account has been locked")
		}
		log.Warn("Invalid password attempt", zap.Int("failed_attempts", user.FailedAttempts))
		return nil, errInvalidCredentials
	}

	pair, err := s.jwtService.GenerateTokenPair(tokenInput(user))
	if err != nil {
		log.Error("Failed to generate token pair", zap.Error(err))
		return nil, err
	}

	user.RecordLoginSuccess(input.IP)
	if err := s.userRepo.Update(ctx, user); err != nil {
		// Don't fail the login - just log the error
		log.Error("Failed to update user after successful login", zap.Error(err))
	}

	span.SetAttributes(attribute.String("user.id", user.ID.String()))
	log.Info("User logged in", zap.String("user_id", user.ID.String()))
	return loginResult(pair, user), nil
}

// Register creates a customer account in the tenant and logs it in
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (result *LoginResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "AuthService", "Register")
	defer func() { telemetry.EndSpan(span, err) }()

	exists, err := s.userRepo.ExistsByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Email is already registered")
	}

	user, err := identity.NewUser(input.TenantID, input.Email, input.Username, input.Password, identity.RoleCustomer)
	if err != nil {
		return nil, err
	}
	user.RecordLoginSuccess(input.IP)
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	pair, err := s.jwtService.GenerateTokenPair(tokenInput(user))
	if err != nil {
		return nil, err
	}

	logger.L(ctx).Info("Customer registered", zap.String("user_id", user.ID.String()))
	return loginResult(pair, user), nil
}

// RefreshToken rotates a refresh token into a new token pair. The used
// refresh token is revoked so it cannot be replayed.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (result *RefreshTokenResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "AuthService", "RefreshToken")
	defer func() { telemetry.EndSpan(span, err) }()

	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		logger.L(ctx).Warn("Refresh token validation failed", zap.Error(err))
		return nil, MapTokenError(err)
	}

	revoked, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, errTokenRevoked
	}

	userID, err := claims.GetUserUUID()
	if err != nil {
		return nil, MapTokenError(auth.ErrInvalidClaims)
	}

	// The refresh route is public, so the token decides which store to read
	ctx = logger.ContextWithTenantID(ctx, claims.TenantID)

	invalidated, err := s.blacklist.IsUserTokenInvalidated(ctx, userID.String(), claims.GetIssuedAtTime())
	if err != nil {
		return nil, err
	}
	if invalidated {
		return nil, errTokenRevoked
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, MapTokenError(auth.ErrInvalidClaims)
		}
		return nil, err
	}
	if !user.CanLogin() {
		return nil, errAccountDisabled
	}

	pair, err := s.jwtService.RefreshTokenPair(claims, tokenInput(user))
	if err != nil {
		logger.L(ctx).Warn("Token refresh failed", zap.Error(err))
		return nil, MapTokenError(err)
	}

	if err := s.blacklist.AddToBlacklist(ctx, claims.ID, claims.GetRemainingTTL()); err != nil {
		logger.L(ctx).Error("Failed to revoke rotated refresh token", zap.Error(err))
	}

	return &RefreshTokenResult{
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
		TokenType:             pair.TokenType,
	}, nil
}

// Logout revokes the access token until it would have expired
func (s *AuthService) Logout(ctx context.Context, input LogoutInput) error {
	if input.TokenJTI == "" {
		return nil
	}
	if err := s.blacklist.AddToBlacklist(ctx, input.TokenJTI, input.TokenTTL); err != nil {
		return err
	}
	logger.L(ctx).Info("User logged out", zap.String("user_id", input.UserID.String()))
	return nil
}

// Me returns the authenticated user
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	dto := ToUserDTO(user)
	return &dto, nil
}

// ChangePassword changes a user's password and revokes every token issued
// before the change
func (s *AuthService) ChangePassword(ctx context.Context, input ChangePasswordInput) (err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "AuthService", "ChangePassword")
	defer func() { telemetry.EndSpan(span, err) }()

	user, err := s.userRepo.FindByID(ctx, input.UserID)
	if err != nil {
		return err
	}
	if err := user.ChangePassword(input.OldPassword, input.NewPassword); err != nil {
		return err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}

	if err := s.blacklist.AddUserTokensToBlacklist(ctx, user.ID.String(), s.jwtService.GetRefreshTokenExpiration()); err != nil {
		logger.L(ctx).Error("Failed to invalidate tokens after password change", zap.Error(err))
		return err
	}

	logger.L(ctx).Info("User password changed", zap.String("user_id", user.ID.String()))
	return nil
}

// MapTokenError converts JWT validation errors into domain errors
func MapTokenError(err error) error {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return shared.NewDomainError("TOKEN_EXPIRED", "Token has expired")
	case errors.Is(err, auth.ErrInvalidTokenType):
		return shared.NewDomainError("INVALID_TOKEN_TYPE", "Unexpected token type")
	case errors.Is(err, auth.ErrMaxRefreshExceeded):
		return shared.NewDomainError("REFRESH_LIMIT", "Maximum token refresh count exceeded. Please log in again")
	case errors.Is(err, auth.ErrTokenBlacklisted):
		return errTokenRevoked
	default:
		return shared.NewDomainError("INVALID_TOKEN", "Invalid token")
	}
}

func tokenInput(user *identity.User) auth.GenerateTokenInput {
	return auth.GenerateTokenInput{
		TenantID: user.TenantID,
		UserID:   user.ID,
		Email:    user.Email,
		Role:     string(user.Role),
	}
}

func loginResult(pair *auth.TokenPair, user *identity.User) *LoginResult {
	return &LoginResult{
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
		TokenType:             pair.TokenType,
		User:                  ToUserDTO(user),
	}
}
