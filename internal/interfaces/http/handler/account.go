package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/jiffoo/mall/internal/application/identity"
)

// AccountHandler serves the caller's own profile and password
type AccountHandler struct {
	BaseHandler
	users *identity.UserService
	auth  *identity.AuthService
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(users *identity.UserService, auth *identity.AuthService) *AccountHandler {
	return &AccountHandler{users: users, auth: auth}
}

// GetProfile godoc
// @ID           getAccountProfile
// @Summary      Get own profile
// @Tags         account
// @Produce      json
// @Success      200 {object} APIResponse[identity.UserDTO]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /account/profile [get]
func (h *AccountHandler) GetProfile(c *gin.Context) {
	userID, ok := h.UserID(c)
	if !ok {
		return
	}
	user, err := h.users.GetProfile(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// UpdateProfile godoc
// @ID           updateAccountProfile
// @Summary      Update own profile
// @Description  Change username, avatar URL and preferred locale. Empty fields are left untouched.
// @Tags         account
// @Accept       json
// @Produce      json
// @Param        request body UpdateProfileRequest true "Profile fields"
// @Success      200 {object} APIResponse[identity.UserDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /account/profile [put]
func (h *AccountHandler) UpdateProfile(c *gin.Context) {
	userID, ok := h.UserID(c)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if !h.BindJSON(c, &req) {
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), identity.UpdateProfileInput{
		UserID:   userID,
		Username: req.Username,
		Avatar:   req.Avatar,
		Locale:   req.Locale,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// ChangePassword godoc
// @ID           changeAccountPassword
// @Summary      Change password
// @Description  Every token issued before the change is revoked
// @Tags         account
// @Accept       json
// @Produce      json
// @Param        request body ChangePasswordRequest true "Old and new password"
// @Success      200 {object} APIResponse[MessageData]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /account/password [put]
func (h *AccountHandler) ChangePassword(c *gin.Context) {
	userID, ok := h.UserID(c)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.auth.ChangePassword(c.Request.Context(), identity.ChangePasswordInput{
		UserID:      userID,
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	}); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, MessageData{Message: "Password changed. Please log in again"})
}
