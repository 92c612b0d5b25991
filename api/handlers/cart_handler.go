package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-inventory/internal/models"
	"go-inventory/internal/services"
)

type CartHandler struct {
	cartService *services.CartService
}

func NewCartHandler(cartService *services.CartService) *CartHandler {
	return &CartHandler{cartService: cartService}
}

// POST /api/add-to-cart
// Quantity defaults to 1 when omitted
func (h *CartHandler) AddToCart(c *gin.Context) {
	var req models.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	res, err := h.cartService.AddToCart(c.Request.Context(), req.UserID, req.ItemID, quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Item added to cart", res)
}

// DELETE /api/remove-from-cart
func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	var req models.RemoveFromCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	if err := h.cartService.RemoveFromCart(c.Request.Context(), req.UserID, req.ItemID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Item removed from cart"})
}

// GET /api/cart/:user_id
func (h *CartHandler) ViewCart(c *gin.Context) {
	view, err := h.cartService.ViewCart(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", view)
}
