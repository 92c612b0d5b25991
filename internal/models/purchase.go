package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ChangeType string

const (
	ChangePrice ChangeType = "price_change"
	ChangeStock ChangeType = "stock_change"
)

type WarningType string

const (
	WarningQuantityAdjusted WarningType = "quantity_adjusted"
	WarningItemRemoved      WarningType = "item_removed"
)

// DeletedItemName is shown for ledger entries whose item no longer exists.
const DeletedItemName = "(deleted item)"

// PurchaseLogEntry is an append-only ledger record. ItemID is cleared when the
// item is deleted; the entry itself survives.
type PurchaseLogEntry struct {
	ID            int64           `json:"id"`
	UserID        string          `json:"user_id"`
	ItemID        *int64          `json:"item_id"`
	ItemName      string          `json:"item_name"`
	Quantity      int             `json:"quantity"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	PurchasedAt   time.Time       `json:"purchased_at"`
}

// Change is a drift record between a cart line snapshot and the live item.
// Price fields are set for price_change, quantity fields for stock_change.
type Change struct {
	Type              ChangeType       `json:"type"`
	ItemID            int64            `json:"item_id"`
	ItemName          string           `json:"item_name"`
	OldPrice          *decimal.Decimal `json:"old_price,omitempty"`
	NewPrice          *decimal.Decimal `json:"new_price,omitempty"`
	PriceDifference   *decimal.Decimal `json:"price_difference,omitempty"`
	RequestedQuantity int              `json:"requested_quantity,omitempty"`
	AvailableQuantity *int             `json:"available_quantity,omitempty"`
	Shortfall         int              `json:"shortfall,omitempty"`
}

type Warning struct {
	Type       WarningType `json:"type"`
	ItemID     int64       `json:"item_id"`
	ItemName   string      `json:"item_name"`
	Requested  int         `json:"requested"`
	AdjustedTo int         `json:"adjusted_to"`
	Reason     string      `json:"reason,omitempty"`
}

type PurchasedLine struct {
	ItemID    int64           `json:"item_id"`
	ItemName  string          `json:"item_name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type PurchaseResult struct {
	CartID         int64           `json:"cart_id"`
	PurchasedItems []PurchasedLine `json:"purchased_items"`
	PurchaseTotal  decimal.Decimal `json:"purchase_total"`
	Warnings       []Warning       `json:"warnings,omitempty"`
}

type PurchaseRequest struct {
	UserID string `json:"user_id" binding:"required"`
}
