// Package events publishes purchase notifications after a checkout commits.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"go-inventory/internal/models"
)

type Mode string

const (
	ModeStrict  Mode = "strict"
	ModeConfirm Mode = "confirm"
)

// PurchaseCompleted is emitted once per committed purchase.
type PurchaseCompleted struct {
	EventID    string                 `json:"event_id"`
	UserID     string                 `json:"user_id"`
	CartID     int64                  `json:"cart_id"`
	Mode       Mode                   `json:"mode"`
	Items      []models.PurchasedLine `json:"items"`
	Total      decimal.Decimal        `json:"total"`
	Warnings   []models.Warning       `json:"warnings,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// NewPurchaseCompleted builds the event for a settled purchase.
func NewPurchaseCompleted(userID string, mode Mode, res *models.PurchaseResult, at time.Time) PurchaseCompleted {
	return PurchaseCompleted{
		EventID:    uuid.NewString(),
		UserID:     userID,
		CartID:     res.CartID,
		Mode:       mode,
		Items:      res.PurchasedItems,
		Total:      res.PurchaseTotal,
		Warnings:   res.Warnings,
		OccurredAt: at.UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, ev PurchaseCompleted) error
	Close() error
}

// NopPublisher discards events. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, PurchaseCompleted) error { return nil }
func (NopPublisher) Close() error                                     { return nil }
