package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Cart struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// CartLine is one item in a cart. PriceAtAddition is the item price captured
// when the line was created or last topped up.
type CartLine struct {
	ID              int64           `json:"id"`
	CartID          int64           `json:"cart_id"`
	ItemID          int64           `json:"item_id"`
	Quantity        int             `json:"quantity"`
	PriceAtAddition decimal.Decimal `json:"price_at_addition"`
}

type AddToCartRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	ItemID   int64  `json:"item_id" binding:"required,gt=0"`
	Quantity *int   `json:"quantity"`
}

type RemoveFromCartRequest struct {
	UserID string `json:"user_id" binding:"required"`
	ItemID int64  `json:"item_id" binding:"required,gt=0"`
}

// LineResult is returned by add-to-cart.
type LineResult struct {
	ItemID          int64           `json:"item_id"`
	ItemName        string          `json:"item_name"`
	Quantity        int             `json:"quantity"`
	PriceAtAddition decimal.Decimal `json:"price_at_addition"`
	ItemTotal       decimal.Decimal `json:"item_total"`
	CartTotal       decimal.Decimal `json:"cart_total"`
	CartItemsCount  int             `json:"cart_items_count"`
	RemainingStock  int             `json:"remaining_stock"`
}

type CartViewLine struct {
	LineID          int64           `json:"id"`
	Item            Item            `json:"item"`
	Quantity        int             `json:"quantity"`
	PriceAtAddition decimal.Decimal `json:"price_at_addition"`
	LineTotal       decimal.Decimal `json:"line_total"`
	IsOutOfStock    bool            `json:"is_out_of_stock"`
	Warnings        []string        `json:"warnings"`
}

type CartTotals struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	CurrentTotal decimal.Decimal `json:"current_total"`
	ItemsCount   int             `json:"items_count"`
}

// CartView combines the cart snapshot with live item state. Subtotal is
// computed from snapshot prices, CurrentTotal from live prices.
type CartView struct {
	CartID     int64          `json:"id"`
	UserID     string         `json:"user_id"`
	IsActive   bool           `json:"is_active"`
	CreatedAt  time.Time      `json:"created_at"`
	Items      []CartViewLine `json:"items"`
	Totals     CartTotals     `json:"totals"`
	HasChanges bool           `json:"has_changes"`
}
