package store

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-inventory/internal/models"
)

func TestListAvailableItems_FiltersAndOrders(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	b := createTestItem(t, s, "B", "5.50", 3)
	createTestItem(t, s, "Sold out", "1.00", 0)
	c := createTestItem(t, s, "C", "7.25", 1)

	items, err := s.ListAvailableItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, b.ID, items[0].ID)
	assert.Equal(t, c.ID, items[1].ID)
	assert.True(t, items[0].Price.Equal(decimal.RequireFromString("5.50")))
}

func TestListAvailableItems_Empty(t *testing.T) {
	s := createTestStore(t)

	items, err := s.ListAvailableItems(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestGetItem_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.GetItem(context.Background(), 42)
	assert.ErrorIs(t, err, models.ErrRecordNotFound)
}

func TestUpdateItem(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	it := createTestItem(t, s, "A", "10.99", 5)

	price := decimal.RequireFromString("12.99")
	got, err := s.UpdateItem(ctx, it.ID, &price, nil)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(price))
	assert.Equal(t, 5, got.Quantity)

	qty := 1
	got, err = s.UpdateItem(ctx, it.ID, nil, &qty)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(price))
	assert.Equal(t, 1, got.Quantity)

	_, err = s.UpdateItem(ctx, 999, nil, &qty)
	assert.ErrorIs(t, err, models.ErrRecordNotFound)
}

func TestDeleteItem_KeepsLedgerEntry(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	it := createTestItem(t, s, "A", "10.99", 5)

	err := s.WithTx(ctx, func(tx Tx) error {
		_, err := tx.AppendPurchase(ctx, models.PurchaseLogEntry{
			UserID:        "u1",
			ItemID:        &it.ID,
			Quantity:      2,
			PurchasePrice: it.Price,
		})
		return err
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteItem(ctx, it.ID))
	assert.ErrorIs(t, s.DeleteItem(ctx, it.ID), models.ErrRecordNotFound)

	entries, err := s.ListPurchases(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].ItemID)
	assert.Equal(t, models.DeletedItemName, entries[0].ItemName)
	assert.Equal(t, 2, entries[0].Quantity)
	assert.True(t, entries[0].PurchasePrice.Equal(decimal.RequireFromString("10.99")))
}

func TestLoadItems(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	n, err := s.LoadItems(ctx, []models.Item{
		{Name: "Widget", Price: decimal.RequireFromString("3.10"), Quantity: 4},
		{Name: "Gadget", Price: decimal.RequireFromString("9.99"), Quantity: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	items, err := s.ListAvailableItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Widget", items[0].Name)
}
