package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"go-inventory/internal/models"
)

const itemColumns = "id, name, price, quantity"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (models.Item, error) {
	var it models.Item
	err := row.Scan(&it.ID, &it.Name, &it.Price, &it.Quantity)
	return it, err
}

// ListAvailableItems returns items with stock, ordered by id.
func (s *Store) ListAvailableItems(ctx context.Context) ([]models.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+itemColumns+" FROM items WHERE quantity > 0 ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("list items: scan: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

func (s *Store) GetItem(ctx context.Context, id int64) (*models.Item, error) {
	it, err := scanItem(s.db.QueryRowContext(ctx,
		s.dialect.rebind("SELECT "+itemColumns+" FROM items WHERE id = ?"), id))
	if err != nil {
		return nil, notFound("get item", err)
	}
	return &it, nil
}

func (s *Store) CreateItem(ctx context.Context, item models.Item) (*models.Item, error) {
	err := s.db.QueryRowContext(ctx,
		s.dialect.rebind("INSERT INTO items (name, price, quantity) VALUES (?, ?, ?) RETURNING id"),
		item.Name, item.Price.StringFixed(models.MoneyPlaces), item.Quantity,
	).Scan(&item.ID)
	if err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	item.Price = item.Price.Round(models.MoneyPlaces)
	return &item, nil
}

// UpdateItem changes the price and/or quantity of an item. Nil arguments are
// left unchanged.
func (s *Store) UpdateItem(ctx context.Context, id int64, price *decimal.Decimal, quantity *int) (*models.Item, error) {
	var sets []string
	var args []any
	if price != nil {
		sets = append(sets, "price = ?")
		args = append(args, price.StringFixed(models.MoneyPlaces))
	}
	if quantity != nil {
		sets = append(sets, "quantity = ?")
		args = append(args, *quantity)
	}
	if len(sets) == 0 {
		return s.GetItem(ctx, id)
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		s.dialect.rebind("UPDATE items SET "+strings.Join(sets, ", ")+" WHERE id = ?"), args...)
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("update item: rows affected: %w", err)
	} else if n == 0 {
		return nil, fmt.Errorf("update item: %w", models.ErrRecordNotFound)
	}
	return s.GetItem(ctx, id)
}

// DeleteItem removes an item. Cart lines referencing it are deleted; ledger
// entries keep their row with item_id cleared.
func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.dialect.rebind("DELETE FROM items WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete item: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete item: %w", models.ErrRecordNotFound)
	}
	return nil
}

// LoadItems inserts items in one transaction and returns how many were
// written.
func (s *Store) LoadItems(ctx context.Context, items []models.Item) (int, error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("load items: begin tx: %w", err)
	}
	defer sqlTx.Rollback()

	stmt, err := sqlTx.PrepareContext(ctx,
		s.dialect.rebind("INSERT INTO items (name, price, quantity) VALUES (?, ?, ?)"))
	if err != nil {
		return 0, fmt.Errorf("load items: prepare: %w", err)
	}
	defer stmt.Close()

	for i, it := range items {
		if _, err := stmt.ExecContext(ctx, it.Name, it.Price.StringFixed(models.MoneyPlaces), it.Quantity); err != nil {
			return 0, fmt.Errorf("load items: item %d: %w", i, err)
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return 0, fmt.Errorf("load items: commit: %w", err)
	}
	return len(items), nil
}
