package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/jiffoo/mall/internal/application/identity"
	domain "github.com/jiffoo/mall/internal/domain/identity"
	"github.com/jiffoo/mall/internal/interfaces/http/dto"
	"github.com/jiffoo/mall/internal/interfaces/http/middleware"
)

// ChangeRoleRequest assigns a role to a user
type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=customer admin super_admin" example:"admin"`
}

// UserHandler handles store user administration
type UserHandler struct {
	BaseHandler
	users *identity.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(users *identity.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// List godoc
// @ID           listAdminUsers
// @Summary      List store users
// @Tags         admin-users
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        search query string false "Email or username"
// @Param        sort_by query string false "Sort field" Enums(created_at, email, username, last_login_at)
// @Param        sort_order query string false "Sort order" Enums(asc, desc)
// @Success      200 {object} APIResponse[[]identity.UserDTO]
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/users [get]
func (h *UserHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if !h.BindQuery(c, &req) {
		return
	}
	page, err := h.users.List(c.Request.Context(), listFilter(req))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(&h.BaseHandler, c, page)
}

// Get godoc
// @ID           getAdminUser
// @Summary      Get a store user
// @Tags         admin-users
// @Produce      json
// @Param        id path string true "User ID" format(uuid)
// @Success      200 {object} APIResponse[identity.UserDTO]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	user, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// ChangeRole godoc
// @ID           changeAdminUserRole
// @Summary      Change a user's role
// @Description  Only a super admin may grant super_admin. Nobody can change their own role.
// @Tags         admin-users
// @Accept       json
// @Produce      json
// @Param        id path string true "User ID" format(uuid)
// @Param        request body ChangeRoleRequest true "New role"
// @Success      200 {object} APIResponse[identity.UserDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/users/{id}/role [put]
func (h *UserHandler) ChangeRole(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	actorID, ok := h.UserID(c)
	if !ok {
		return
	}
	var req ChangeRoleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	user, err := h.users.ChangeRole(c.Request.Context(), actorID, domain.Role(middleware.GetRole(c)), id, domain.Role(req.Role))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// Disable godoc
// @ID           disableAdminUser
// @Summary      Disable a user
// @Description  A disabled user cannot log in and their tokens are revoked
// @Tags         admin-users
// @Produce      json
// @Param        id path string true "User ID" format(uuid)
// @Success      200 {object} APIResponse[identity.UserDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/users/{id}/disable [post]
func (h *UserHandler) Disable(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	actorID, ok := h.UserID(c)
	if !ok {
		return
	}
	user, err := h.users.Disable(c.Request.Context(), actorID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// Enable godoc
// @ID           enableAdminUser
// @Summary      Enable a user
// @Description  Re-allow login and clear any lockout
// @Tags         admin-users
// @Produce      json
// @Param        id path string true "User ID" format(uuid)
// @Success      200 {object} APIResponse[identity.UserDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/users/{id}/enable [post]
func (h *UserHandler) Enable(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	user, err := h.users.Enable(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}
