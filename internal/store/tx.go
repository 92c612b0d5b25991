package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"go-inventory/internal/models"
)

// ErrStockUnderflow is returned when a decrement would make stock negative.
var ErrStockUnderflow = errors.New("stock would become negative")

const (
	cartColumns = "id, user_id, is_active, created_at"
	lineColumns = "id, cart_id, item_id, quantity, price_at_addition"
)

type tx struct {
	tx      *sql.Tx
	dialect dialect
	now     func() time.Time
}

func (t *tx) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, t.dialect.rebind(query), args...)
}

func (t *tx) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, t.dialect.rebind(query), args...)
}

func (t *tx) LockItem(ctx context.Context, id int64) (*models.Item, error) {
	it, err := scanItem(t.queryRow(ctx,
		"SELECT "+itemColumns+" FROM items WHERE id = ?"+t.dialect.forUpdate, id))
	if err != nil {
		return nil, notFound("lock item", err)
	}
	return &it, nil
}

// DecrementStock subtracts quantity from the item's stock. It refuses to go
// below zero.
func (t *tx) DecrementStock(ctx context.Context, itemID int64, quantity int) error {
	res, err := t.exec(ctx,
		"UPDATE items SET quantity = quantity - ? WHERE id = ? AND quantity >= ?",
		quantity, itemID, quantity)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("decrement stock: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("decrement stock: item %d: %w", itemID, ErrStockUnderflow)
	}
	return nil
}

func scanCart(row rowScanner) (models.Cart, error) {
	var c models.Cart
	err := row.Scan(&c.ID, &c.UserID, &c.IsActive, &c.CreatedAt)
	return c, err
}

func (t *tx) ActiveCart(ctx context.Context, userID string) (*models.Cart, error) {
	c, err := scanCart(t.queryRow(ctx,
		"SELECT "+cartColumns+" FROM carts WHERE user_id = ? AND is_active = ?", userID, true))
	if err != nil {
		return nil, notFound("active cart", err)
	}
	return &c, nil
}

// GetOrCreateActiveCart returns the user's active cart, creating it if
// needed. The one-active-cart index makes concurrent creates converge on a
// single row.
func (t *tx) GetOrCreateActiveCart(ctx context.Context, userID string) (*models.Cart, error) {
	c, err := t.ActiveCart(ctx, userID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, models.ErrRecordNotFound) {
		return nil, err
	}

	_, err = t.exec(ctx, `
		INSERT INTO carts (user_id, is_active, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) WHERE is_active = TRUE DO NOTHING
	`, userID, true, t.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}
	return t.ActiveCart(ctx, userID)
}

func (t *tx) DeactivateCart(ctx context.Context, cartID int64) error {
	res, err := t.exec(ctx,
		"UPDATE carts SET is_active = ? WHERE id = ? AND is_active = ?", false, cartID, true)
	if err != nil {
		return fmt.Errorf("deactivate cart: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate cart: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("deactivate cart %d: %w", cartID, models.ErrRecordNotFound)
	}
	return nil
}

func scanLine(row rowScanner) (models.CartLine, error) {
	var l models.CartLine
	err := row.Scan(&l.ID, &l.CartID, &l.ItemID, &l.Quantity, &l.PriceAtAddition)
	return l, err
}

// Lines returns the cart's lines in insertion order.
func (t *tx) Lines(ctx context.Context, cartID int64) ([]models.CartLine, error) {
	return queryLines(ctx, t.tx, t.dialect, cartID)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryLines(ctx context.Context, q queryer, d dialect, cartID int64) ([]models.CartLine, error) {
	rows, err := q.QueryContext(ctx,
		d.rebind("SELECT "+lineColumns+" FROM cart_lines WHERE cart_id = ? ORDER BY id"), cartID)
	if err != nil {
		return nil, fmt.Errorf("cart lines: %w", err)
	}
	defer rows.Close()

	lines := []models.CartLine{}
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, fmt.Errorf("cart lines: scan: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cart lines: %w", err)
	}
	return lines, nil
}

func (t *tx) Line(ctx context.Context, cartID, itemID int64) (*models.CartLine, error) {
	l, err := scanLine(t.queryRow(ctx,
		"SELECT "+lineColumns+" FROM cart_lines WHERE cart_id = ? AND item_id = ?", cartID, itemID))
	if err != nil {
		return nil, notFound("cart line", err)
	}
	return &l, nil
}

func (t *tx) InsertLine(ctx context.Context, line models.CartLine) (*models.CartLine, error) {
	line.PriceAtAddition = line.PriceAtAddition.Round(models.MoneyPlaces)
	err := t.queryRow(ctx, `
		INSERT INTO cart_lines (cart_id, item_id, quantity, price_at_addition)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`, line.CartID, line.ItemID, line.Quantity, line.PriceAtAddition.StringFixed(models.MoneyPlaces)).Scan(&line.ID)
	if err != nil {
		return nil, fmt.Errorf("insert cart line: %w", err)
	}
	return &line, nil
}

func (t *tx) UpdateLine(ctx context.Context, lineID int64, quantity int, price decimal.Decimal) error {
	res, err := t.exec(ctx,
		"UPDATE cart_lines SET quantity = ?, price_at_addition = ? WHERE id = ?",
		quantity, price.StringFixed(models.MoneyPlaces), lineID)
	if err != nil {
		return fmt.Errorf("update cart line: %w", err)
	}
	return requireRow("update cart line", res)
}

func (t *tx) DeleteLine(ctx context.Context, lineID int64) error {
	res, err := t.exec(ctx, "DELETE FROM cart_lines WHERE id = ?", lineID)
	if err != nil {
		return fmt.Errorf("delete cart line: %w", err)
	}
	return requireRow("delete cart line", res)
}

// AppendPurchase writes a ledger entry. PurchasedAt is set by the store.
func (t *tx) AppendPurchase(ctx context.Context, entry models.PurchaseLogEntry) (*models.PurchaseLogEntry, error) {
	entry.PurchasedAt = t.now().UTC()
	entry.PurchasePrice = entry.PurchasePrice.Round(models.MoneyPlaces)
	err := t.queryRow(ctx, `
		INSERT INTO purchase_log (user_id, item_id, quantity, purchase_price, purchased_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`, entry.UserID, entry.ItemID, entry.Quantity,
		entry.PurchasePrice.StringFixed(models.MoneyPlaces), entry.PurchasedAt,
	).Scan(&entry.ID)
	if err != nil {
		return nil, fmt.Errorf("append purchase: %w", err)
	}
	return &entry, nil
}

func requireRow(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrRecordNotFound)
	}
	return nil
}
