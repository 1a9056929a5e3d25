package handler

import (
	"github.com/gin-gonic/gin"
	pluginapp "github.com/jiffoo/mall/internal/application/plugin"
)

// PluginHandler handles the plugin catalogue and store plugin administration
type PluginHandler struct {
	BaseHandler
	plugins *pluginapp.Service
}

// NewPluginHandler creates a new plugin handler
func NewPluginHandler(plugins *pluginapp.Service) *PluginHandler {
	return &PluginHandler{plugins: plugins}
}

// Catalog godoc
// @ID           listPluginCatalog
// @Summary      Plugin catalogue
// @Description  Every plugin a store can install, with its configuration schema
// @Tags         plugins
// @Produce      json
// @Success      200 {object} APIResponse[[]plugin.Definition]
// @Router       /plugins/catalog [get]
func (h *PluginHandler) Catalog(c *gin.Context) {
	h.Success(c, h.plugins.Catalog())
}

// List godoc
// @ID           listAdminPlugins
// @Summary      List installed plugins
// @Description  Secret configuration values are masked
// @Tags         admin-plugins
// @Produce      json
// @Success      200 {object} APIResponse[[]pluginapp.InstanceResponse]
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/plugins [get]
func (h *PluginHandler) List(c *gin.Context) {
	instances, err := h.plugins.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, instances)
}

// Install godoc
// @ID           installAdminPlugin
// @Summary      Install a plugin
// @Description  Commercial plugins need a license key
// @Tags         admin-plugins
// @Accept       json
// @Produce      json
// @Param        request body pluginapp.InstallRequest true "Plugin, configuration and license"
// @Success      201 {object} APIResponse[pluginapp.InstanceResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse "LICENSE_INVALID"
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/plugins [post]
func (h *PluginHandler) Install(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	var req pluginapp.InstallRequest
	if !h.BindJSON(c, &req) {
		return
	}
	inst, err := h.plugins.Install(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, inst)
}

// Configure godoc
// @ID           configureAdminPlugin
// @Summary      Replace a plugin's configuration
// @Tags         admin-plugins
// @Accept       json
// @Produce      json
// @Param        slug path string true "Plugin slug"
// @Param        request body pluginapp.ConfigureRequest true "Configuration"
// @Success      200 {object} APIResponse[pluginapp.InstanceResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/plugins/{slug}/config [put]
func (h *PluginHandler) Configure(c *gin.Context) {
	var req pluginapp.ConfigureRequest
	if !h.BindJSON(c, &req) {
		return
	}
	inst, err := h.plugins.Configure(c.Request.Context(), c.Param("slug"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inst)
}

// Enable godoc
// @ID           enableAdminPlugin
// @Summary      Enable a plugin
// @Description  The body is optional and may carry a new license key
// @Tags         admin-plugins
// @Accept       json
// @Produce      json
// @Param        slug path string true "Plugin slug"
// @Param        request body pluginapp.EnableRequest false "License key"
// @Success      200 {object} APIResponse[pluginapp.InstanceResponse]
// @Failure      403 {object} ErrorResponse "LICENSE_INVALID"
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/plugins/{slug}/enable [post]
func (h *PluginHandler) Enable(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	var req pluginapp.EnableRequest
	if c.Request.ContentLength > 0 && !h.BindJSON(c, &req) {
		return
	}
	inst, err := h.plugins.Enable(c.Request.Context(), tenantID, c.Param("slug"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inst)
}

// Disable godoc
// @ID           disableAdminPlugin
// @Summary      Disable a plugin
// @Tags         admin-plugins
// @Produce      json
// @Param        slug path string true "Plugin slug"
// @Success      200 {object} APIResponse[pluginapp.InstanceResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/plugins/{slug}/disable [post]
func (h *PluginHandler) Disable(c *gin.Context) {
	inst, err := h.plugins.Disable(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inst)
}

// Uninstall godoc
// @ID           uninstallAdminPlugin
// @Summary      Uninstall a plugin
// @Tags         admin-plugins
// @Param        slug path string true "Plugin slug"
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/plugins/{slug} [delete]
func (h *PluginHandler) Uninstall(c *gin.Context) {
	if err := h.plugins.Uninstall(c.Request.Context(), c.Param("slug")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
