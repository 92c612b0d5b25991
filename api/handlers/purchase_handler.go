package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-inventory/internal/models"
	"go-inventory/internal/services"
)

const IdempotencyKeyHeader = "Idempotency-Key"

type PurchaseHandler struct {
	checkoutService *services.CheckoutService
	itemService     *services.ItemService
}

func NewPurchaseHandler(checkoutService *services.CheckoutService, itemService *services.ItemService) *PurchaseHandler {
	return &PurchaseHandler{
		checkoutService: checkoutService,
		itemService:     itemService,
	}
}

// POST /api/purchase
// Strict checkout: 409 with the drift list if anything changed since add
func (h *PurchaseHandler) Purchase(c *gin.Context) {
	var req models.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	res, err := h.checkoutService.Purchase(c.Request.Context(), req.UserID, c.GetHeader(IdempotencyKeyHeader))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Purchase completed", res)
}

// POST /api/confirm-purchase
// Settles whatever is still available at current prices
func (h *PurchaseHandler) ConfirmPurchase(c *gin.Context) {
	var req models.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	res, err := h.checkoutService.ConfirmPurchase(c.Request.Context(), req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	message := "Purchase completed with updated items"
	if len(res.Warnings) == 0 {
		message = "Purchase completed"
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  message,
		"data":     res,
		"warnings": res.Warnings,
	})
}

// GET /api/purchases/:user_id
func (h *PurchaseHandler) ListPurchases(c *gin.Context) {
	entries, err := h.itemService.ListPurchases(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", entries)
}
