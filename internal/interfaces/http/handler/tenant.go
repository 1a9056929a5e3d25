package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/jiffoo/mall/internal/application/identity"
	"github.com/jiffoo/mall/internal/interfaces/http/dto"
)

// TenantHandler handles store registration and platform administration
type TenantHandler struct {
	BaseHandler
	tenants *identity.TenantService
}

// NewTenantHandler creates a new tenant handler
func NewTenantHandler(tenants *identity.TenantService) *TenantHandler {
	return &TenantHandler{tenants: tenants}
}

// Register godoc
// @ID           registerTenant
// @Summary      Open a store
// @Description  Create an active store and its first admin user
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Param        request body RegisterTenantRequest true "Store and admin details"
// @Success      201 {object} APIResponse[identity.RegisterTenantResult]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /tenants [post]
func (h *TenantHandler) Register(c *gin.Context) {
	var req RegisterTenantRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.tenants.Register(c.Request.Context(), identity.RegisterTenantInput{
		Slug:          req.Slug,
		Name:          req.Name,
		ContactEmail:  req.ContactEmail,
		Domain:        req.Domain,
		AdminEmail:    req.AdminEmail,
		AdminUsername: req.AdminUsername,
		AdminPassword: req.AdminPassword,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// List godoc
// @ID           listPlatformTenants
// @Summary      List stores
// @Tags         platform
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        search query string false "Slug or name"
// @Param        sort_by query string false "Sort field" Enums(created_at, slug, name, status)
// @Param        sort_order query string false "Sort order" Enums(asc, desc)
// @Success      200 {object} APIResponse[[]identity.TenantDTO]
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /platform/tenants [get]
func (h *TenantHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if !h.BindQuery(c, &req) {
		return
	}
	page, err := h.tenants.List(c.Request.Context(), listFilter(req))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(&h.BaseHandler, c, page)
}

// Get godoc
// @ID           getPlatformTenant
// @Summary      Get a store
// @Tags         platform
// @Produce      json
// @Param        id path string true "Tenant ID" format(uuid)
// @Success      200 {object} APIResponse[identity.TenantDTO]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /platform/tenants/{id} [get]
func (h *TenantHandler) Get(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	tenant, err := h.tenants.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tenant)
}

// Suspend godoc
// @ID           suspendPlatformTenant
// @Summary      Suspend a store
// @Description  Requests addressed to a suspended store are answered 403 TENANT_INACTIVE
// @Tags         platform
// @Produce      json
// @Param        id path string true "Tenant ID" format(uuid)
// @Success      200 {object} APIResponse[identity.TenantDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /platform/tenants/{id}/suspend [post]
func (h *TenantHandler) Suspend(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	tenant, err := h.tenants.Suspend(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tenant)
}

// Activate godoc
// @ID           activatePlatformTenant
// @Summary      Activate a store
// @Tags         platform
// @Produce      json
// @Param        id path string true "Tenant ID" format(uuid)
// @Success      200 {object} APIResponse[identity.TenantDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /platform/tenants/{id}/activate [post]
func (h *TenantHandler) Activate(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	tenant, err := h.tenants.Activate(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tenant)
}

// Current godoc
// @ID           getAdminTenant
// @Summary      Get the current store
// @Tags         admin-store
// @Produce      json
// @Success      200 {object} APIResponse[identity.TenantDTO]
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/tenant [get]
func (h *TenantHandler) Current(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	tenant, err := h.tenants.Get(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tenant)
}

// UpdateCurrent godoc
// @ID           updateAdminTenant
// @Summary      Update the current store
// @Description  Change name, custom domain, currency and locale
// @Tags         admin-store
// @Accept       json
// @Produce      json
// @Param        request body UpdateTenantRequest true "Store fields"
// @Success      200 {object} APIResponse[identity.TenantDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/tenant [put]
func (h *TenantHandler) UpdateCurrent(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	var req UpdateTenantRequest
	if !h.BindJSON(c, &req) {
		return
	}

	tenant, err := h.tenants.Update(c.Request.Context(), identity.UpdateTenantInput{
		ID:       tenantID,
		Name:     req.Name,
		Domain:   req.Domain,
		Currency: req.Currency,
		Locale:   req.Locale,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tenant)
}
