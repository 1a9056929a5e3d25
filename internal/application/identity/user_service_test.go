package identity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/identity"
	"github.com/jiffoo/mall/internal/domain/shared"
	"github.com/jiffoo/mall/internal/infrastructure/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newUserService(repo *MockUserRepository, blacklist auth.TokenBlacklist) *UserService {
	return NewUserService(repo, blacklist, time.Hour, zap.NewNop())
}

func TestUserService_UpdateProfile(t *testing.T) {
	user := createTestUser(t, uuid.New())
	repo := new(MockUserRepository)
	repo.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	repo.On("Update", mock.Anything, user).Return(nil)

	dto, err := newUserService(repo, nil).UpdateProfile(context.Background(), UpdateProfileInput{
		UserID:   user.ID,
		Username: "renamed",
		Locale:   "zh-Hans",
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", dto.Username)
	assert.Equal(t, "zh-Hans", dto.Locale)
}

func TestUserService_ChangeRole(t *testing.T) {
	actor := uuid.New()

	tests := []struct {
		name      string
		actorID   uuid.UUID
		actorRole identity.Role
		target    identity.Role
		role      identity.Role
		wantErr   error
	}{
		{"admin promotes customer", actor, identity.RoleAdmin, identity.RoleCustomer, identity.RoleAdmin, nil},
		{"admin cannot grant super_admin", actor, identity.RoleAdmin, identity.RoleCustomer, identity.RoleSuperAdmin, shared.ErrForbidden},
		{"admin cannot demote super_admin", actor, identity.RoleAdmin, identity.RoleSuperAdmin, identity.RoleCustomer, shared.ErrForbidden},
		{"super_admin grants super_admin", actor, identity.RoleSuperAdmin, identity.RoleAdmin, identity.RoleSuperAdmin, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := createTestUser(t, uuid.New())
			user.Role = tt.target
			repo := new(MockUserRepository)
			repo.On("FindByID", mock.Anything, user.ID).Return(user, nil)
			repo.On("Update", mock.Anything, user).Return(nil)
			blacklist := auth.NewInMemoryTokenBlacklist()

			dto, err := newUserService(repo, blacklist).ChangeRole(context.Background(), tt.actorID, tt.actorRole, user.ID, tt.role)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, string(tt.role), dto.Role)

			revoked, err := blacklist.IsUserTokenInvalidated(context.Background(), user.ID.String(), time.Now().Add(-time.Minute))
			require.NoError(t, err)
			assert.True(t, revoked, "tokens carrying the old role must be revoked")
		})
	}

	t.Run("own role", func(t *testing.T) {
		_, err := newUserService(new(MockUserRepository), nil).ChangeRole(context.Background(), actor, identity.RoleSuperAdmin, actor, identity.RoleCustomer)
		assert.ErrorIs(t, err, shared.ErrForbidden)
	})
}

func TestUserService_DisableEnable(t *testing.T) {
	user := createTestUser(t, uuid.New())
	repo := new(MockUserRepository)
	repo.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	repo.On("Update", mock.Anything, user).Return(nil)
	svc := newUserService(repo, auth.NewInMemoryTokenBlacklist())

	_, err := svc.Disable(context.Background(), user.ID, user.ID)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	dto, err := svc.Disable(context.Background(), uuid.New(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "disabled", dto.Status)

	_, err = svc.Disable(context.Background(), uuid.New(), user.ID)
	assert.Equal(t, "ALREADY_DISABLED", domainCode(t, err))

	dto, err = svc.Enable(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "active", dto.Status)
}

func TestUserService_List(t *testing.T) {
	tenantID := uuid.New()
	repo := new(MockUserRepository)
	repo.On("FindAll", mock.Anything, mock.MatchedBy(func(f shared.Filter) bool {
		return f.Search == "shop" && f.PageSize == 100
	})).Return([]*identity.User{createTestUser(t, tenantID)}, int64(101), nil)

	page, err := newUserService(repo, nil).List(context.Background(), shared.Filter{Search: "shop", PageSize: 500})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.TotalPages)
}
