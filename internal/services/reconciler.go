package services

import (
	"github.com/shopspring/decimal"

	"go-inventory/internal/models"
)

// Cart view warnings.
const (
	WarnPriceChanged      = "price_changed"
	WarnInsufficientStock = "insufficient_stock"
	WarnOutOfStock        = "out_of_stock"
)

// Reconcile compares each line's snapshot with the live item and returns the
// drift records in line order, price before stock within a line. Lines whose
// item is absent from items are skipped.
func Reconcile(lines []models.CartLine, items map[int64]models.Item) []models.Change {
	changes := []models.Change{}
	for _, line := range lines {
		item, ok := items[line.ItemID]
		if !ok {
			continue
		}

		if !line.PriceAtAddition.Equal(item.Price) {
			oldPrice, newPrice := line.PriceAtAddition, item.Price
			diff := newPrice.Sub(oldPrice)
			changes = append(changes, models.Change{
				Type:            models.ChangePrice,
				ItemID:          item.ID,
				ItemName:        item.Name,
				OldPrice:        &oldPrice,
				NewPrice:        &newPrice,
				PriceDifference: &diff,
			})
		}

		if item.Quantity < line.Quantity {
			available := item.Quantity
			changes = append(changes, models.Change{
				Type:              models.ChangeStock,
				ItemID:            item.ID,
				ItemName:          item.Name,
				RequestedQuantity: line.Quantity,
				AvailableQuantity: &available,
				Shortfall:         available - line.Quantity,
			})
		}
	}
	return changes
}

// Subtotal sums the snapshot line totals, each rounded to cents first.
func Subtotal(lines []models.CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(models.LineTotal(l.PriceAtAddition, l.Quantity))
	}
	return total
}

// viewWarnings runs the same comparisons as Reconcile for a single line and
// reports them as cart view flags.
func viewWarnings(line models.CartLine, item models.Item) []string {
	warnings := []string{}
	if !line.PriceAtAddition.Equal(item.Price) {
		warnings = append(warnings, WarnPriceChanged)
	}
	switch {
	case item.Quantity < 1:
		warnings = append(warnings, WarnOutOfStock)
	case item.Quantity < line.Quantity:
		warnings = append(warnings, WarnInsufficientStock)
	}
	return warnings
}
