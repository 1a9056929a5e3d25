package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/identity"
	"github.com/jiffoo/mall/internal/domain/shared"
	"github.com/jiffoo/mall/internal/infrastructure/auth"
	"github.com/jiffoo/mall/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// UserService handles account self-service and store user administration
type UserService struct {
	userRepo  identity.UserRepository
	blacklist auth.TokenBlacklist
	// tokenTTL bounds how long a user-wide revocation must be remembered
	tokenTTL time.Duration
	logger   *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(userRepo identity.UserRepository, blacklist auth.TokenBlacklist, tokenTTL time.Duration, logger *zap.Logger) *UserService {
	return &UserService{
		userRepo:  userRepo,
		blacklist: blacklist,
		tokenTTL:  tokenTTL,
		logger:    logger,
	}
}

// GetProfile returns the caller's profile
func (s *UserService) GetProfile(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	return s.Get(ctx, userID)
}

// UpdateProfile changes username, avatar and locale
func (s *UserService) UpdateProfile(ctx context.Context, input UpdateProfileInput) (*UserDTO, error) {
	user, err := s.userRepo.FindByID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if err := user.UpdateProfile(input.Username, input.Avatar, input.Locale); err != nil {
		return nil, err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	dto := ToUserDTO(user)
	return &dto, nil
}

// List returns a page of the store's users
func (s *UserService) List(ctx context.Context, filter shared.Filter) (shared.Paginated[UserDTO], error) {
	filter = filter.Normalize()
	users, total, err := s.userRepo.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[UserDTO]{}, err
	}
	return shared.NewPaginated(ToUserDTOs(users), total, filter.Page, filter.PageSize), nil
}

// Get returns one user of the store
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := ToUserDTO(user)
	return &dto, nil
}

// ChangeRole assigns a role. Only a super admin can grant super_admin and
// nobody can change their own role.
func (s *UserService) ChangeRole(ctx context.Context, actorID uuid.UUID, actorRole identity.Role, id uuid.UUID, role identity.Role) (*UserDTO, error) {
	if actorID == id {
		return nil, shared.NewDomainError("FORBIDDEN", "You cannot change your own role")
	}
	if role == identity.RoleSuperAdmin && actorRole != identity.RoleSuperAdmin {
		return nil, shared.NewDomainError("FORBIDDEN", "Only a super admin can grant super_admin")
	}

	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role == identity.RoleSuperAdmin && actorRole != identity.RoleSuperAdmin {
		return nil, shared.NewDomainError("FORBIDDEN", "Only a super admin can change a super admin")
	}
	if err := user.AssignRole(role); err != nil {
		return nil, err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	// Issued tokens still carry the old role
	s.revokeTokens(ctx, user)

	logger.L(ctx).Info("User role changed",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(role)))
	dto := ToUserDTO(user)
	return &dto, nil
}

// Disable blocks a user and revokes their tokens
func (s *UserService) Disable(ctx context.Context, actorID, id uuid.UUID) (*UserDTO, error) {
	if actorID == id {
		return nil, shared.NewDomainError("FORBIDDEN", "You cannot disable your own account")
	}
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := user.Disable(); err != nil {
		return nil, err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	s.revokeTokens(ctx, user)

	logger.L(ctx).Info("User disabled", zap.String("user_id", user.ID.String()))
	dto := ToUserDTO(user)
	return &dto, nil
}

// Enable re-allows a user to log in and clears any lockout
func (s *UserService) Enable(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := user.Enable(); err != nil {
		return nil, err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	logger.L(ctx).Info("User enabled", zap.String("user_id", user.ID.String()))
	dto := ToUserDTO(user)
	return &dto, nil
}

func (s *UserService) revokeTokens(ctx context.Context, user *identity.User) {
	if s.blacklist == nil {
		return
	}
	if err := s.blacklist.AddUserTokensToBlacklist(ctx, user.ID.String(), s.tokenTTL); err != nil {
		logger.L(ctx).Warn("Failed to revoke user tokens",
			zap.String("user_id", user.ID.String()), zap.Error(err))
	}
}
