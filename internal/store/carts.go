package store

import (
	"context"
	"database/sql"
	"fmt"

	"go-inventory/internal/models"
)

// CartSnapshot reads the active cart with its lines and items inside one
// transaction so the view is consistent.
func (s *Store) CartSnapshot(ctx context.Context, userID string) (*CartSnapshot, error) {
	var snap *CartSnapshot
	err := s.inTx(ctx, func(t *tx) error {
		cart, err := t.ActiveCart(ctx, userID)
		if err != nil {
			return err
		}

		lines, err := t.Lines(ctx, cart.ID)
		if err != nil {
			return err
		}

		items, err := t.lineItems(ctx, cart.ID)
		if err != nil {
			return err
		}

		snap = &CartSnapshot{Cart: *cart, Lines: lines, Items: items}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (t *tx) lineItems(ctx context.Context, cartID int64) (map[int64]models.Item, error) {
	rows, err := t.tx.QueryContext(ctx, t.dialect.rebind(`
		SELECT i.id, i.name, i.price, i.quantity
		FROM items i
		JOIN cart_lines l ON l.item_id = i.id
		WHERE l.cart_id = ?
	`), cartID)
	if err != nil {
		return nil, fmt.Errorf("cart items: %w", err)
	}
	defer rows.Close()

	items := make(map[int64]models.Item)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("cart items: scan: %w", err)
		}
		items[it.ID] = it
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cart items: %w", err)
	}
	return items, nil
}

// ListPurchases returns the user's ledger entries, oldest first. Entries
// whose item was deleted carry models.DeletedItemName.
func (s *Store) ListPurchases(ctx context.Context, userID string) ([]models.PurchaseLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(`
		SELECT p.id, p.user_id, p.item_id, i.name, p.quantity, p.purchase_price, p.purchased_at
		FROM purchase_log p
		LEFT JOIN items i ON i.id = p.item_id
		WHERE p.user_id = ?
		ORDER BY p.id
	`), userID)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()

	entries := []models.PurchaseLogEntry{}
	for rows.Next() {
		var (
			e      models.PurchaseLogEntry
			itemID sql.NullInt64
			name   sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.UserID, &itemID, &name, &e.Quantity, &e.PurchasePrice, &e.PurchasedAt); err != nil {
			return nil, fmt.Errorf("list purchases: scan: %w", err)
		}
		if itemID.Valid {
			id := itemID.Int64
			e.ItemID = &id
		}
		e.ItemName = models.DeletedItemName
		if name.Valid {
			e.ItemName = name.String
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	return entries, nil
}
