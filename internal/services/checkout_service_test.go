package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-inventory/internal/events"
	"go-inventory/internal/idempotency"
	"go-inventory/internal/models"
)

func TestPurchase_SettlesAtSnapshotPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.seedItem(t, "Item A", "10.99", 5)

	added := f.add(t, "u1", a.ID, 2)
	assert.Equal(t, 2, added.Quantity)
	assert.True(t, added.PriceAtAddition.Equal(dec("10.99")))

	res, err := f.checkout.Purchase(ctx, "u1", "")
	require.NoError(t, err)

	assert.Equal(t, "21.98", res.PurchaseTotal.StringFixed(2))
	require.Len(t, res.PurchasedItems, 1)
	assert.Equal(t, models.PurchasedLine{
		ItemID:    a.ID,
		ItemName:  "Item A",
		Quantity:  2,
		UnitPrice: res.PurchasedItems[0].UnitPrice,
		LineTotal: res.PurchasedItems[0].LineTotal,
	}, res.PurchasedItems[0])
	assert.True(t, res.PurchasedItems[0].UnitPrice.Equal(dec("10.99")))
	assert.True(t, res.PurchasedItems[0].LineTotal.Equal(dec("21.98")))
	assert.Equal(t, 3, f.stock(t, a.ID))

	ledger, err := f.items.ListPurchases(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, ledger, 1)
	assert.Equal(t, 2, ledger[0].Quantity)
	assert.True(t, ledger[0].PurchasePrice.Equal(dec("10.99")))
	assert.True(t, ledger[0].PurchasedAt.Equal(testNow))

	_, err = f.carts.ViewCart(ctx, "u1")
	requireDomainErr(t, err, models.KindNotFound, models.CodeCartNotFound)

	_, err = f.checkout.Purchase(ctx, "u1", "")
	requireDomainErr(t, err, models.KindNotFound, models.CodeCartNotFound)
}

func TestPurchase_MultipleLines(t *testing.T) {
	f := newFixture(t)
	a := f.seedItem(t, "A", "1.10", 10)
	b := f.seedItem(t, "B", "2.25", 10)
	f.add(t, "u1", b.ID, 3)
	f.add(t, "u1", a.ID, 4)

	res, err := f.checkout.Purchase(context.Background(), "u1", "")
	require.NoError(t, err)

	require.Len(t, res.PurchasedItems, 2)
	assert.Equal(t, b.ID, res.PurchasedItems[0].ItemID, "lines settle in insertion order")
	assert.Equal(t, "11.15", res.PurchaseTotal.StringFixed(2))
	assert.Equal(t, 6, f.stock(t, a.ID))
	assert.Equal(t, 7, f.stock(t, b.ID))
}

func TestPurchase_DriftIsConflictWithoutMutation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.seedItem(t, "Item A", "10.99", 5)
	f.add(t, "u1", a.ID, 2)
	f.setItem(t, a.ID, "12.99", 1)

	before := f.dumpTables(t)
	_, err := f.checkout.Purchase(ctx, "u1", "")

	var conflict *models.ConflictError
	require.True(t, errors.As(err, &conflict), "got %v", err)
	assert.Equal(t, models.KindConflict, models.KindOf(err))
	assert.Equal(t, "21.98", conflict.Subtotal.StringFixed(2))
	require.Len(t, conflict.Changes, 2)

	assert.Equal(t, models.ChangePrice, conflict.Changes[0].Type)
	assert.True(t, conflict.Changes[0].OldPrice.Equal(dec("10.99")))
	assert.True(t, conflict.Changes[0].NewPrice.Equal(dec("12.99")))

	assert.Equal(t, models.ChangeStock, conflict.Changes[1].Type)
	assert.Equal(t, 2, conflict.Changes[1].RequestedQuantity)
	assert.Equal(t, 1, *conflict.Changes[1].AvailableQuantity)

	assert.Equal(t, before, f.dumpTables(t))
	assert.Empty(t, f.pub.published())

	// Confirm afterwards: clamps 2 -> 1 and settles at the live price.
	res, err := f.checkout.ConfirmPurchase(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, models.Warning{
		Type:       models.WarningQuantityAdjusted,
		ItemID:     a.ID,
		ItemName:   "Item A",
		Requested:  2,
		AdjustedTo: 1,
	}, res.Warnings[0])
	assert.Equal(t, "12.99", res.PurchaseTotal.StringFixed(2))
	assert.Equal(t, 0, f.stock(t, a.ID))

	ledger, err := f.items.ListPurchases(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, ledger, 1)
	assert.Equal(t, 1, ledger[0].Quantity)
	assert.True(t, ledger[0].PurchasePrice.Equal(dec("12.99")))
}

func TestPurchase_PriceOnlyDrift(t *testing.T) {
	f := newFixture(t)
	a := f.seedItem(t, "A", "5.00", 5)
	f.add(t, "u1", a.ID, 1)
	f.setItem(t, a.ID, "4.99", 5)

	_, err := f.checkout.Purchase(context.Background(), "u1", "")
	var conflict *models.ConflictError
	require.True(t, errors.As(err, &conflict))
	require.Len(t, conflict.Changes, 1)
	assert.True(t, conflict.Changes[0].PriceDifference.Equal(dec("-0.01")))
}

func TestPurchase_NoActiveCart(t *testing.T) {
	f := newFixture(t)
	_, err := f.checkout.Purchase(context.Background(), "nobody", "")
	requireDomainErr(t, err, models.KindNotFound, models.CodeCartNotFound)
}

func TestPurchase_EmptyCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.seedItem(t, "A", "1.00", 1)
	f.add(t, "u1", a.ID, 1)
	require.NoError(t, f.carts.RemoveFromCart(ctx, "u1", a.ID))

	res, err := f.checkout.Purchase(ctx, "u1", "")
	require.NoError(t, err)
	assert.Empty(t, res.PurchasedItems)
	assert.True(t, res.PurchaseTotal.IsZero())

	_, err = f.carts.ViewCart(ctx, "u1")
	requireDomainErr(t, err, models.KindNotFound, models.CodeCartNotFound)
}

func TestPurchase_IdempotencyKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.seedItem(t, "A", "2.00", 10)
	f.add(t, "u1", a.ID, 1)

	_, err := f.checkout.Purchase(ctx, "u1", "key-1")
	require.NoError(t, err)

	f.add(t, "u1", a.ID, 1)
	_, err = f.checkout.Purchase(ctx, "u1", "key-1")
	de := requireDomainErr(t, err, models.KindConflict, models.CodeDuplicateRequest)
	assert.Equal(t, "key-1", de.Details["idempotency_key"])

	assert.Equal(t, 9, f.stock(t, a.ID), "duplicate must not touch inventory")

	state, err := f.guard.Begin(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, idempotency.StateCommitted, state)
}

func TestPurchase_FailureReleasesKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.checkout.Purchase(ctx, "u1", "retry-me")
	requireDomainErr(t, err, models.KindNotFound, models.CodeCartNotFound)

	a := f.seedItem(t, "A", "2.00", 10)
	f.add(t, "u1", a.ID, 2)

	res, err := f.checkout.Purchase(ctx, "u1", "retry-me")
	require.NoError(t, err)
	assert.Equal(t, "4.00", res.PurchaseTotal.StringFixed(2))
}

func TestPurchase_ConflictReleasesKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.seedItem(t, "A", "2.00", 10)
	f.add(t, "u1", a.ID, 2)
	f.setItem(t, a.ID, "3.00", 10)

	_, err := f.checkout.Purchase(ctx, "u1", "k")
	assert.Equal(t, models.KindConflict, models.KindOf(err))

	state, err := f.guard.Begin(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, idempotency.StateNew, state, "a failed purchase leaves the key reusable")
}

func TestPurchase_KeyInProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.seedItem(t, "A", "2.00", 10)
	f.add(t, "u1", a.ID, 1)

	_, err := f.guard.Begin(ctx, "busy")
	require.NoError(t, err)

	_, err = f.checkout.Purchase(ctx, "u1", "busy")
	requireDomainErr(t, err, models.KindConflict, models.CodeRequestInProgress)
	assert.Equal(t, 10, f.stock(t, a.ID))

	state, err := f.guard.Begin(ctx, "busy")
	require.NoError(t, err)
	assert.Equal(t, idempotency.StatePending, state, "the owner's token is left alone")
}

func TestPurchase_PublishesEvent(t *testing.T) {
	f := newFixture(t)
	a := f.seedItem(t, "A", "2.50", 10)
	f.add(t, "u1", a.ID, 2)

	res, err := f.checkout.Purchase(context.Background(), "u1", "")
	require.NoError(t, err)

	evs := f.pub.published()
	require.Len(t, evs, 1)
	assert.Equal(t, "u1", evs[0].UserID)
	assert.Equal(t, res.CartID, evs[0].CartID)
	assert.Equal(t, events.ModeStrict, evs[0].Mode)
	assert.True(t, evs[0].Total.Equal(dec("5.00")))
	assert.True(t, evs[0].OccurredAt.Equal(testNow))
	assert.NotEmpty(t, evs[0].EventID)
}

func TestPurchase_PublishFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.New("broker unavailable")
	a := f.seedItem(t, "A", "2.50", 10)
	f.add(t, "u1", a.ID, 1)

	_, err := f.checkout.Purchase(context.Background(), "u1", "")
	require.NoError(t, err)
	assert.Equal(t, 9, f.stock(t, a.ID))
}

func TestConfirmPurchase_RemovesOutOfStockLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.seedItem(t, "A", "1.00", 5)
	b := f.seedItem(t, "B", "3.00", 5)
	f.add(t, "u1", a.ID, 2)
	f.add(t, "u1", b.ID, 1)
	f.setItem(t, a.ID, "1.00", 0)
	f.setItem(t, b.ID, "3.50", 5)

	res, err := f.checkout.ConfirmPurchase(ctx, "u1")
	require.NoError(t, err)

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, models.WarningItemRemoved, res.Warnings[0].Type)
	assert.Equal(t, a.ID, res.Warnings[0].ItemID)
	assert.Equal(t, 2, res.Warnings[0].Requested)
	assert.Equal(t, "out of stock", res.Warnings[0].Reason)

	require.Len(t, res.PurchasedItems, 1)
	assert.Equal(t, b.ID, res.PurchasedItems[0].ItemID)
	assert.Equal(t, "3.50", res.PurchaseTotal.StringFixed(2))

	ledger, err := f.items.ListPurchases(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, ledger, 1)
	assert.Equal(t, b.ID, *ledger[0].ItemID)
	assert.Equal(t, 0, f.stock(t, a.ID))
	assert.Equal(t, 4, f.stock(t, b.ID))

	evs := f.pub.published()
	require.Len(t, evs, 1)
	assert.Equal(t, events.ModeConfirm, evs[0].Mode)
	assert.Len(t, evs[0].Warnings, 1)
}

func TestConfirmPurchase_NoDrift(t *testing.T) {
	f := newFixture(t)
	a := f.seedItem(t, "A", "4.00", 5)
	f.add(t, "u1", a.ID, 2)

	res, err := f.checkout.ConfirmPurchase(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotNil(t, res.Warnings)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, "8.00", res.PurchaseTotal.StringFixed(2))
	assert.Equal(t, 3, f.stock(t, a.ID))
}

func TestConfirmPurchase_EverythingGone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.seedItem(t, "A", "4.00", 5)
	f.add(t, "u1", a.ID, 2)
	f.setItem(t, a.ID, "4.00", 0)

	res, err := f.checkout.ConfirmPurchase(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, res.PurchasedItems)
	assert.True(t, res.PurchaseTotal.IsZero())

	_, err = f.checkout.ConfirmPurchase(ctx, "u1")
	requireDomainErr(t, err, models.KindNotFound, models.CodeCartNotFound)
}

func TestConfirmPurchase_NoActiveCart(t *testing.T) {
	f := newFixture(t)
	_, err := f.checkout.ConfirmPurchase(context.Background(), "ghost")
	requireDomainErr(t, err, models.KindNotFound, models.CodeCartNotFound)
}

func TestPurchase_ConcurrentLastUnit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.seedItem(t, "Last one", "9.99", 1)
	f.add(t, "u1", a.ID, 1)
	f.add(t, "u2", a.ID, 1)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, user := range []string{"u1", "u2"} {
		wg.Add(1)
		go func(i int, user string) {
			defer wg.Done()
			_, errs[i] = f.checkout.Purchase(ctx, user, "")
		}(i, user)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.Equal(t, models.KindConflict, models.KindOf(err))
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 0, f.stock(t, a.ID))
}
