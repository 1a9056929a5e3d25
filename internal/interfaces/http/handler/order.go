package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	tradeapp "github.com/jiffoo/mall/internal/application/trade"
)

// OrderHandler handles checkout, the customer's orders and order
// administration
type OrderHandler struct {
	BaseHandler
	orders *tradeapp.OrderService
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders *tradeapp.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// Place godoc
// @ID           placeOrder
// @Summary      Check out the cart
// @Description  Take stock, create the order and clear the cart in one transaction
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        request body tradeapp.PlaceOrderRequest true "Shipping address and note"
// @Success      201 {object} APIResponse[tradeapp.OrderResponse]
// @Failure      400 {object} ErrorResponse "CART_EMPTY, INSUFFICIENT_STOCK or PRODUCT_UNAVAILABLE"
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders [post]
func (h *OrderHandler) Place(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	userID, ok := h.UserID(c)
	if !ok {
		return
	}
	var req tradeapp.PlaceOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}
	order, err := h.orders.PlaceOrder(c.Request.Context(), tenantID, userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, order)
}

// List godoc
// @ID           listOrders
// @Summary      List own orders
// @Tags         orders
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        status query string false "Status" Enums(pending, paid, shipped, delivered, cancelled, refunded)
// @Param        sort_by query string false "Sort field" Enums(created_at, total_amount, status)
// @Param        sort_order query string false "Sort order" Enums(asc, desc)
// @Success      200 {object} APIResponse[[]tradeapp.OrderResponse]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders [get]
func (h *OrderHandler) List(c *gin.Context) {
	userID, ok := h.UserID(c)
	if !ok {
		return
	}
	var query tradeapp.OrderListQuery
	if !h.BindQuery(c, &query) {
		return
	}
	page, err := h.orders.List(c.Request.Context(), userID, query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(&h.BaseHandler, c, page)
}

// Get godoc
// @ID           getOrder
// @Summary      Get an own order
// @Description  Another user's order is reported as not found
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[tradeapp.OrderResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id} [get]
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	userID, ok := h.UserID(c)
	if !ok {
		return
	}
	order, err := h.orders.Get(c.Request.Context(), userID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Cancel godoc
// @ID           cancelOrder
// @Summary      Cancel an own order
// @Description  Only pending orders can be cancelled by their owner. Stock is restored.
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[tradeapp.OrderResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/cancel [post]
func (h *OrderHandler) Cancel(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	userID, ok := h.UserID(c)
	if !ok {
		return
	}
	order, err := h.orders.Cancel(c.Request.Context(), userID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Pay godoc
// @ID           payOrder
// @Summary      Pay an own order
// @Description  Charge through an installed and enabled payment plugin
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body tradeapp.PayOrderRequest true "Payment plugin"
// @Success      200 {object} APIResponse[tradeapp.PaymentResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse "PLUGIN_DISABLED or LICENSE_INVALID"
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/pay [post]
func (h *OrderHandler) Pay(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	userID, ok := h.UserID(c)
	if !ok {
		return
	}
	var req tradeapp.PayOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}
	payment, err := h.orders.Pay(c.Request.Context(), tenantID, userID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payment)
}

// Invoice godoc
// @ID           getOrderInvoice
// @Summary      Download an invoice
// @Tags         orders
// @Produce      html
// @Produce      application/pdf
// @Param        id path string true "Order ID" format(uuid)
// @Param        format query string false "Document format" Enums(html, pdf) default(html)
// @Success      200 {file} file
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/invoice [get]
func (h *OrderHandler) Invoice(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	userID, ok := h.UserID(c)
	if !ok {
		return
	}
	doc, err := h.orders.Invoice(c.Request.Context(), tenantID, userID, id, c.Query("format"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", doc.Filename))
	c.Data(http.StatusOK, doc.ContentType, doc.Body)
}

// AdminList godoc
// @ID           listAdminOrders
// @Summary      List the store's orders
// @Tags         admin-orders
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        search query string false "Order number"
// @Param        status query string false "Status" Enums(pending, paid, shipped, delivered, cancelled, refunded)
// @Param        sort_by query string false "Sort field" Enums(created_at, total_amount, status)
// @Param        sort_order query string false "Sort order" Enums(asc, desc)
// @Success      200 {object} APIResponse[[]tradeapp.OrderResponse]
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/orders [get]
func (h *OrderHandler) AdminList(c *gin.Context) {
	var query tradeapp.OrderListQuery
	if !h.BindQuery(c, &query) {
		return
	}
	page, err := h.orders.AdminList(c.Request.Context(), query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(&h.BaseHandler, c, page)
}

// AdminGet godoc
// @ID           getAdminOrder
// @Summary      Get any order of the store
// @Tags         admin-orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[tradeapp.OrderResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/orders/{id} [get]
func (h *OrderHandler) AdminGet(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	order, err := h.orders.AdminGet(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// UpdateStatus godoc
// @ID           updateAdminOrderStatus
// @Summary      Move an order through its lifecycle
// @Description  pending→paid→shipped→delivered; pending|paid→cancelled; paid|shipped|delivered→refunded
// @Tags         admin-orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body tradeapp.OrderStatusRequest true "Target status"
// @Success      200 {object} APIResponse[tradeapp.OrderResponse]
// @Failure      400 {object} ErrorResponse "INVALID_STATE"
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/orders/{id}/status [put]
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req tradeapp.OrderStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}
	order, err := h.orders.UpdateStatus(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// InternalUpdateStatus godoc
// @ID           updateInternalOrderStatus
// @Summary      Relay a payment webhook status
// @Description  Called by trusted services holding a token with the orders:write scope
// @Tags         internal
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Store ID when the token is not bound to one"
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body tradeapp.InternalOrderStatusRequest true "Target status and payment reference"
// @Success      200 {object} APIResponse[tradeapp.OrderResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     ServiceToken
// @Router       /internal/orders/{id}/status [put]
func (h *OrderHandler) InternalUpdateStatus(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	if _, ok := h.TenantID(c); !ok {
		return
	}
	var req tradeapp.InternalOrderStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}
	order, err := h.orders.InternalUpdateStatus(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}
