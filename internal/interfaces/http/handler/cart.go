package handler

import (
	"github.com/gin-gonic/gin"
	tradeapp "github.com/jiffoo/mall/internal/application/trade"
)

// CartHandler serves the caller's shopping cart
type CartHandler struct {
	BaseHandler
	carts *tradeapp.CartService
}

// NewCartHandler creates a new cart handler
func NewCartHandler(carts *tradeapp.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

// Get godoc
// @ID           getCart
// @Summary      Get the cart
// @Tags         cart
// @Produce      json
// @Success      200 {object} APIResponse[tradeapp.CartResponse]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /cart [get]
func (h *CartHandler) Get(c *gin.Context) {
	userID, ok := h.UserID(c)
	if !ok {
		return
	}
	cart, err := h.carts.Get(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cart)
}

// AddItem godoc
// @ID           addCartItem
// @Summary      Add a product to the cart
// @Description  Adding a product already in the cart merges the quantities
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        request body tradeapp.AddCartItemRequest true "Product and quantity"
// @Success      200 {object} APIResponse[tradeapp.CartResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /cart/items [post]
func (h *CartHandler) AddItem(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	userID, ok := h.UserID(c)
	if !ok {
		return
	}
	var req tradeapp.AddCartItemRequest
	if !h.BindJSON(c, &req) {
		return
	}
	cart, err := h.carts.AddItem(c.Request.Context(), tenantID, userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cart)
}

// UpdateItem godoc
// @ID           updateCartItem
// @Summary      Set a cart line's quantity
// @Description  A quantity of zero removes the line
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        productId path string true "Product ID" format(uuid)
// @Param        request body tradeapp.UpdateCartItemRequest true "Quantity"
// @Success      200 {object} APIResponse[tradeapp.CartResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /cart/items/{productId} [put]
func (h *CartHandler) UpdateItem(c *gin.Context) {
	productID, ok := h.ParamUUID(c, "productId")
	if !ok {
		return
	}
	userID, ok := h.UserID(c)
	if !ok {
		return
	}
	var req tradeapp.UpdateCartItemRequest
	if !h.BindJSON(c, &req) {
		return
	}
	cart, err := h.carts.SetQuantity(c.Request.Context(), userID, productID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cart)
}

// RemoveItem godoc
// @ID           removeCartItem
// @Summary      Remove a product from the cart
// @Tags         cart
// @Produce      json
// @Param        productId path string true "Product ID" format(uuid)
// @Success      200 {object} APIResponse[tradeapp.CartResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /cart/items/{productId} [delete]
func (h *CartHandler) RemoveItem(c *gin.Context) {
	productID, ok := h.ParamUUID(c, "productId")
	if !ok {
		return
	}
	userID, ok := h.UserID(c)
	if !ok {
		return
	}
	cart, err := h.carts.RemoveItem(c.Request.Context(), userID, productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cart)
}

// Clear godoc
// @ID           clearCart
// @Summary      Empty the cart
// @Tags         cart
// @Success      204
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /cart [delete]
func (h *CartHandler) Clear(c *gin.Context) {
	userID, ok := h.UserID(c)
	if !ok {
		return
	}
	if err := h.carts.Clear(c.Request.Context(), userID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
