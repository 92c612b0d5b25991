package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"go-inventory/internal/events"
	"go-inventory/internal/idempotency"
	"go-inventory/internal/models"
	"go-inventory/internal/store"
)

const tracerName = "go-inventory/services"

// CheckoutService settles active carts, either rejecting on drift (Purchase)
// or adjusting quantities to what is available (ConfirmPurchase).
type CheckoutService struct {
	repo      store.Repository
	guard     idempotency.Guard
	publisher events.Publisher
	logger    *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewCheckoutService wires the checkout engine. A nil guard falls back to an
// in-memory guard and a nil publisher discards events.
func NewCheckoutService(repo store.Repository, guard idempotency.Guard, publisher events.Publisher, logger *zap.Logger) *CheckoutService {
	if guard == nil {
		guard = idempotency.NewMemoryGuard(idempotency.Options{})
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutService{
		repo:      repo,
		guard:     guard,
		publisher: publisher,
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
		now:       time.Now,
	}
}

// Purchase settles the user's active cart at the snapshot prices. If any line
// drifted from the live catalog it returns *models.ConflictError and changes
// nothing.
//
// A non-empty idempotencyKey is claimed before the transaction. It is
// committed on success and released on any failure so the client may retry.
func (s *CheckoutService) Purchase(ctx context.Context, userID, idempotencyKey string) (_ *models.PurchaseResult, err error) {
	ctx, span := s.tracer.Start(ctx, "checkout.purchase",
		trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	if idempotencyKey != "" {
		span.SetAttributes(attribute.String("idempotency.key", idempotencyKey))
		state, gerr := s.guard.Begin(ctx, idempotencyKey)
		if gerr != nil {
			return nil, fail(s.logger, span, "purchase", models.Internal(gerr))
		}
		switch state {
		case idempotency.StateCommitted:
			return nil, fail(s.logger, span, "purchase", models.Duplicate(idempotencyKey))
		case idempotency.StatePending:
			return nil, fail(s.logger, span, "purchase", models.InProgress(idempotencyKey))
		}
		defer s.settleKey(ctx, idempotencyKey, &err)
	}

	var result *models.PurchaseResult
	err = s.repo.WithTx(ctx, func(tx store.Tx) error {
		cart, lines, items, err := s.lockCart(ctx, tx, userID)
		if err != nil {
			return err
		}

		if changes := Reconcile(lines, items); len(changes) > 0 {
			return &models.ConflictError{Changes: changes, Subtotal: Subtotal(lines)}
		}

		result = &models.PurchaseResult{
			CartID:         cart.ID,
			PurchasedItems: []models.PurchasedLine{},
			PurchaseTotal:  decimal.Zero,
		}
		for _, line := range lines {
			pl, err := settleLine(ctx, tx, userID, items[line.ItemID], line.Quantity, line.PriceAtAddition)
			if err != nil {
				return err
			}
			result.PurchasedItems = append(result.PurchasedItems, pl)
			result.PurchaseTotal = result.PurchaseTotal.Add(pl.LineTotal)
		}

		return tx.DeactivateCart(ctx, cart.ID)
	})
	if err != nil {
		err = domainErr(err, cartNotFound)
		return nil, fail(s.logger, span, "purchase", err)
	}

	s.completed(ctx, span, userID, events.ModeStrict, result)
	return result, nil
}

// ConfirmPurchase settles the user's active cart at live prices. Lines with
// too little stock are clamped, lines with none are removed, and each
// adjustment is reported as a warning. It never reports a conflict.
func (s *CheckoutService) ConfirmPurchase(ctx context.Context, userID string) (*models.PurchaseResult, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.confirm",
		trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	var result *models.PurchaseResult
	err := s.repo.WithTx(ctx, func(tx store.Tx) error {
		cart, lines, items, err := s.lockCart(ctx, tx, userID)
		if err != nil {
			return err
		}

		result = &models.PurchaseResult{
			CartID:         cart.ID,
			PurchasedItems: []models.PurchasedLine{},
			PurchaseTotal:  decimal.Zero,
			Warnings:       []models.Warning{},
		}
		for _, line := range lines {
			item := items[line.ItemID]
			quantity := line.Quantity

			switch {
			case item.Quantity <= 0:
				if err := tx.DeleteLine(ctx, line.ID); err != nil {
					return err
				}
				result.Warnings = append(result.Warnings, models.Warning{
					Type:      models.WarningItemRemoved,
					ItemID:    item.ID,
					ItemName:  item.Name,
					Requested: line.Quantity,
					Reason:    "out of stock",
				})
				continue
			case item.Quantity < line.Quantity:
				quantity = item.Quantity
				if err := tx.UpdateLine(ctx, line.ID, quantity, line.PriceAtAddition); err != nil {
					return err
				}
				result.Warnings = append(result.Warnings, models.Warning{
					Type:       models.WarningQuantityAdjusted,
					ItemID:     item.ID,
					ItemName:   item.Name,
					Requested:  line.Quantity,
					AdjustedTo: quantity,
				})
			}

			pl, err := settleLine(ctx, tx, userID, item, quantity, item.Price)
			if err != nil {
				return err
			}
			result.PurchasedItems = append(result.PurchasedItems, pl)
			result.PurchaseTotal = result.PurchaseTotal.Add(pl.LineTotal)
		}

		return tx.DeactivateCart(ctx, cart.ID)
	})
	if err != nil {
		err = domainErr(err, cartNotFound)
		return nil, fail(s.logger, span, "confirm purchase", err)
	}

	span.SetAttributes(attribute.Int("checkout.warnings", len(result.Warnings)))
	s.completed(ctx, span, userID, events.ModeConfirm, result)
	return result, nil
}

// lockCart loads the active cart and its lines, then locks every referenced
// item in ascending id order so concurrent checkouts cannot deadlock.
func (s *CheckoutService) lockCart(ctx context.Context, tx store.Tx, userID string) (*models.Cart, []models.CartLine, map[int64]models.Item, error) {
	cart, err := tx.ActiveCart(ctx, userID)
	if err != nil {
		return nil, nil, nil, domainErr(err, cartNotFound)
	}

	lines, err := tx.Lines(ctx, cart.ID)
	if err != nil {
		return nil, nil, nil, err
	}

	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ItemID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	items := make(map[int64]models.Item, len(ids))
	for _, id := range ids {
		item, err := tx.LockItem(ctx, id)
		if err != nil {
			// Lines cascade with their item, so a missing row is a store fault.
			return nil, nil, nil, models.Internal(fmt.Errorf("lock item %d: %w", id, err))
		}
		items[id] = *item
	}
	return cart, lines, items, nil
}

// settleLine decrements stock and appends one ledger entry at unitPrice.
func settleLine(ctx context.Context, tx store.Tx, userID string, item models.Item, quantity int, unitPrice decimal.Decimal) (models.PurchasedLine, error) {
	if err := tx.DecrementStock(ctx, item.ID, quantity); err != nil {
		return models.PurchasedLine{}, err
	}

	itemID := item.ID
	if _, err := tx.AppendPurchase(ctx, models.PurchaseLogEntry{
		UserID:        userID,
		ItemID:        &itemID,
		Quantity:      quantity,
		PurchasePrice: unitPrice,
	}); err != nil {
		return models.PurchasedLine{}, err
	}

	return models.PurchasedLine{
		ItemID:    item.ID,
		ItemName:  item.Name,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		LineTotal: models.LineTotal(unitPrice, quantity),
	}, nil
}

// settleKey commits the idempotency key when *errp is nil and releases it
// otherwise. Guard failures are logged; they do not change the outcome.
func (s *CheckoutService) settleKey(ctx context.Context, key string, errp *error) {
	ctx = context.WithoutCancel(ctx)
	if *errp == nil {
		if err := s.guard.Commit(ctx, key); err != nil {
			s.logger.Error("idempotency commit failed", zap.String("idempotency_key", key), zap.Error(err))
		}
		return
	}
	if err := s.guard.Release(ctx, key); err != nil {
		s.logger.Error("idempotency release failed", zap.String("idempotency_key", key), zap.Error(err))
	}
}

func (s *CheckoutService) completed(ctx context.Context, span trace.Span, userID string, mode events.Mode, res *models.PurchaseResult) {
	span.SetAttributes(
		attribute.Int64("cart.id", res.CartID),
		attribute.Int("checkout.lines", len(res.PurchasedItems)),
		attribute.String("checkout.total", res.PurchaseTotal.StringFixed(models.MoneyPlaces)),
	)
	s.logger.Info("purchase completed",
		zap.String("user_id", userID),
		zap.Int64("cart_id", res.CartID),
		zap.String("mode", string(mode)),
		zap.Int("lines", len(res.PurchasedItems)),
		zap.String("total", res.PurchaseTotal.StringFixed(models.MoneyPlaces)),
	)

	if err := s.publisher.Publish(ctx, events.NewPurchaseCompleted(userID, mode, res, s.now())); err != nil {
		s.logger.Warn("failed to publish purchase event",
			zap.String("user_id", userID),
			zap.Int64("cart_id", res.CartID),
			zap.Error(err),
		)
	}
}
