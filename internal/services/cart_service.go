package services

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"go-inventory/internal/models"
	"go-inventory/internal/store"
)

type CartService struct {
	repo   store.Repository
	logger *zap.Logger
	tracer trace.Tracer
}

func NewCartService(repo store.Repository, logger *zap.Logger) *CartService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartService{repo: repo, logger: logger, tracer: otel.Tracer(tracerName)}
}

// AddToCart adds quantity units of an item to the user's active cart, creating
// the cart and line as needed. The item row stays locked for the whole
// transaction, so the stock check and the line write see the same stock.
// Topping up an existing line refreshes its snapshot price.
func (s *CartService) AddToCart(ctx context.Context, userID string, itemID int64, quantity int) (*models.LineResult, error) {
	ctx, span := s.tracer.Start(ctx, "cart.add", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.Int64("item.id", itemID),
		attribute.Int("quantity", quantity),
	))
	defer span.End()

	if strings.TrimSpace(userID) == "" {
		return nil, fail(s.logger, span, "add to cart", models.BadRequestf("user_id is required"))
	}
	if quantity < 1 {
		return nil, fail(s.logger, span, "add to cart", models.BadRequestf("Quantity must be at least 1"))
	}

	var result *models.LineResult
	err := s.repo.WithTx(ctx, func(tx store.Tx) error {
		item, err := tx.LockItem(ctx, itemID)
		if err != nil {
			return domainErr(err, itemNotFound)
		}
		if quantity > item.Quantity {
			return models.InsufficientStock(item.Quantity, quantity)
		}

		cart, err := tx.GetOrCreateActiveCart(ctx, userID)
		if err != nil {
			return err
		}

		line, err := tx.Line(ctx, cart.ID, item.ID)
		switch {
		case errors.Is(err, models.ErrRecordNotFound):
			line, err = tx.InsertLine(ctx, models.CartLine{
				CartID:          cart.ID,
				ItemID:          item.ID,
				Quantity:        quantity,
				PriceAtAddition: item.Price,
			})
			if err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			newQuantity := line.Quantity + quantity
			if newQuantity > item.Quantity {
				return models.InsufficientStock(item.Quantity, newQuantity)
			}
			if err := tx.UpdateLine(ctx, line.ID, newQuantity, item.Price); err != nil {
				return err
			}
			line.Quantity = newQuantity
			line.PriceAtAddition = item.Price
		}

		lines, err := tx.Lines(ctx, cart.ID)
		if err != nil {
			return err
		}

		result = &models.LineResult{
			ItemID:          item.ID,
			ItemName:        item.Name,
			Quantity:        line.Quantity,
			PriceAtAddition: line.PriceAtAddition,
			ItemTotal:       models.LineTotal(line.PriceAtAddition, line.Quantity),
			CartTotal:       Subtotal(lines),
			CartItemsCount:  len(lines),
			RemainingStock:  item.Quantity,
		}
		return nil
	})
	if err != nil {
		return nil, fail(s.logger, span, "add to cart", domainErr(err, nil))
	}

	s.logger.Info("item added to cart",
		zap.String("user_id", userID),
		zap.Int64("item_id", itemID),
		zap.Int("quantity", result.Quantity),
	)
	return result, nil
}

// RemoveFromCart deletes the line for itemID. Stock is untouched because
// adding to a cart never reserved it.
func (s *CartService) RemoveFromCart(ctx context.Context, userID string, itemID int64) error {
	ctx, span := s.tracer.Start(ctx, "cart.remove", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.Int64("item.id", itemID),
	))
	defer span.End()

	err := s.repo.WithTx(ctx, func(tx store.Tx) error {
		cart, err := tx.ActiveCart(ctx, userID)
		if err != nil {
			return domainErr(err, cartNotFound)
		}
		line, err := tx.Line(ctx, cart.ID, itemID)
		if err != nil {
			return domainErr(err, lineNotFound)
		}
		return tx.DeleteLine(ctx, line.ID)
	})
	if err != nil {
		return fail(s.logger, span, "remove from cart", domainErr(err, nil))
	}
	return nil
}

// ViewCart projects the active cart against live item state. It never writes.
func (s *CartService) ViewCart(ctx context.Context, userID string) (*models.CartView, error) {
	ctx, span := s.tracer.Start(ctx, "cart.view", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	snap, err := s.repo.CartSnapshot(ctx, userID)
	if err != nil {
		return nil, fail(s.logger, span, "view cart", domainErr(err, cartNotFound))
	}

	view := &models.CartView{
		CartID:    snap.Cart.ID,
		UserID:    snap.Cart.UserID,
		IsActive:  snap.Cart.IsActive,
		CreatedAt: snap.Cart.CreatedAt,
		Items:     make([]models.CartViewLine, 0, len(snap.Lines)),
		Totals: models.CartTotals{
			Subtotal:   Subtotal(snap.Lines),
			ItemsCount: len(snap.Lines),
		},
	}

	current := decimal.Zero
	for _, line := range snap.Lines {
		item := snap.Items[line.ItemID]
		warnings := viewWarnings(line, item)
		if len(warnings) > 0 {
			view.HasChanges = true
		}
		current = current.Add(models.LineTotal(item.Price, line.Quantity))

		view.Items = append(view.Items, models.CartViewLine{
			LineID:          line.ID,
			Item:            item,
			Quantity:        line.Quantity,
			PriceAtAddition: line.PriceAtAddition,
			LineTotal:       models.LineTotal(line.PriceAtAddition, line.Quantity),
			IsOutOfStock:    item.Quantity < 1,
			Warnings:        warnings,
		})
	}
	view.Totals.CurrentTotal = current

	return view, nil
}
