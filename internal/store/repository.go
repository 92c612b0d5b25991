package store

import (
	"context"

	"github.com/shopspring/decimal"

	"go-inventory/internal/models"
)

// Repository is the persistence contract used by the services.
// Missing rows are reported as models.ErrRecordNotFound.
type Repository interface {
	ListAvailableItems(ctx context.Context) ([]models.Item, error)
	GetItem(ctx context.Context, id int64) (*models.Item, error)
	CreateItem(ctx context.Context, item models.Item) (*models.Item, error)
	UpdateItem(ctx context.Context, id int64, price *decimal.Decimal, quantity *int) (*models.Item, error)
	DeleteItem(ctx context.Context, id int64) error
	LoadItems(ctx context.Context, items []models.Item) (int, error)

	ListPurchases(ctx context.Context, userID string) ([]models.PurchaseLogEntry, error)

	// CartSnapshot reads the user's active cart, its lines and the live items
	// they reference in one consistent read.
	CartSnapshot(ctx context.Context, userID string) (*CartSnapshot, error)

	// WithTx runs fn as a single all-or-nothing unit.
	WithTx(ctx context.Context, fn func(Tx) error) error
}

// Tx is the set of operations available inside a transaction.
type Tx interface {
	// LockItem reads an item under an exclusive lock held until the
	// transaction ends.
	LockItem(ctx context.Context, id int64) (*models.Item, error)
	DecrementStock(ctx context.Context, itemID int64, quantity int) error

	ActiveCart(ctx context.Context, userID string) (*models.Cart, error)
	GetOrCreateActiveCart(ctx context.Context, userID string) (*models.Cart, error)
	DeactivateCart(ctx context.Context, cartID int64) error

	Lines(ctx context.Context, cartID int64) ([]models.CartLine, error)
	Line(ctx context.Context, cartID, itemID int64) (*models.CartLine, error)
	InsertLine(ctx context.Context, line models.CartLine) (*models.CartLine, error)
	UpdateLine(ctx context.Context, lineID int64, quantity int, price decimal.Decimal) error
	DeleteLine(ctx context.Context, lineID int64) error

	AppendPurchase(ctx context.Context, entry models.PurchaseLogEntry) (*models.PurchaseLogEntry, error)
}

type CartSnapshot struct {
	Cart  models.Cart
	Lines []models.CartLine
	Items map[int64]models.Item
}

var _ Repository = (*Store)(nil)
var _ Tx = (*tx)(nil)
