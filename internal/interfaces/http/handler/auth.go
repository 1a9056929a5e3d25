package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/application/identity"
	pluginapp "github.com/jiffoo/mall/internal/application/plugin"
	"github.com/jiffoo/mall/internal/interfaces/http/middleware"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	BaseHandler
	authService *identity.AuthService
	plugins     *pluginapp.Service
}

// NewAuthHandler creates a new auth handler. plugins backs third-party
// sign-in and may be nil.
func NewAuthHandler(authService *identity.AuthService, plugins *pluginapp.Service) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		plugins:     plugins,
	}
}

// Register godoc
// @ID           registerAuth
// @Summary      Customer sign-up
// @Description  Create a customer account in the current store and log it in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Store ID or slug"
// @Param        request body RegisterRequest true "Account details"
// @Success      201 {object} APIResponse[identity.LoginResult]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	var req RegisterRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.authService.Register(c.Request.Context(), identity.RegisterInput{
		TenantID: tenantID,
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
		IP:       c.ClientIP(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Login godoc
// @ID           loginAuth
// @Summary      User login
// @Description  Authenticate a user of the current store with email and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Store ID or slug"
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} APIResponse[identity.LoginResult]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	if _, ok := h.TenantID(c); !ok {
		return
	}
	var req LoginRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.authService.Login(c.Request.Context(), identity.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		IP:       c.ClientIP(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// RefreshToken godoc
// @ID           refreshAuthToken
// @Summary      Refresh access token
// @Description  Rotate a refresh token into a new token pair. The used refresh token is revoked.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RefreshTokenRequest true "Refresh token"
// @Success      200 {object} APIResponse[identity.RefreshTokenResult]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Router       /auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.authService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Logout godoc
// @ID           logoutAuth
// @Summary      User logout
// @Description  Revoke the presented access token
// @Tags         auth
// @Produce      json
// @Success      200 {object} APIResponse[MessageData]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	userID, err := claims.GetUserUUID()
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	if err := h.authService.Logout(c.Request.Context(), identity.LogoutInput{
		UserID:   userID,
		TokenJTI: claims.ID,
		TokenTTL: claims.GetRemainingTTL(),
	}); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, MessageData{Message: "Logged out successfully"})
}

// Me godoc
// @ID           getAuthMe
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Success      200 {object} APIResponse[identity.UserDTO]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := h.UserID(c)
	if !ok {
		return
	}
	user, err := h.authService.Me(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// OAuthAuthorize godoc
// @ID           authorizeAuthOAuth
// @Summary      Third-party sign-in redirect
// @Description  Build the consent URL of an installed auth plugin such as google-oauth
// @Tags         auth
// @Produce      json
// @Param        slug path string true "Auth plugin slug"
// @Success      200 {object} APIResponse[OAuthAuthorizeResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /auth/oauth/{slug}/authorize [get]
func (h *AuthHandler) OAuthAuthorize(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	if h.plugins == nil {
		h.NotFound(c, "Third-party sign-in is not available")
		return
	}

	state := uuid.NewString()
	url, err := h.plugins.AuthorizeURL(c.Request.Context(), tenantID, c.Param("slug"), state)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, OAuthAuthorizeResponse{URL: url, State: state})
}
