package services

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"go.uber.org/zap"

	"go-inventory/internal/models"
	"go-inventory/internal/store"
)

// ItemService exposes the live catalog and the purchase ledger.
type ItemService struct {
	repo   store.Repository
	logger *zap.Logger
}

func NewItemService(repo store.Repository, logger *zap.Logger) *ItemService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ItemService{repo: repo, logger: logger}
}

// ListAvailableItems returns items with stock, ordered by id.
func (s *ItemService) ListAvailableItems(ctx context.Context) ([]models.Item, error) {
	items, err := s.repo.ListAvailableItems(ctx)
	if err != nil {
		return nil, domainErr(err, nil)
	}
	return items, nil
}

func (s *ItemService) GetItem(ctx context.Context, id int64) (*models.Item, error) {
	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return nil, domainErr(err, itemNotFound)
	}
	return item, nil
}

func (s *ItemService) CreateItem(ctx context.Context, req models.CreateItemRequest) (*models.Item, error) {
	if err := validateNewItem(req); err != nil {
		return nil, err
	}

	item, err := s.repo.CreateItem(ctx, models.Item{
		Name:     strings.TrimSpace(req.Name),
		Price:    req.Price,
		Quantity: req.Quantity,
	})
	if err != nil {
		return nil, domainErr(err, nil)
	}

	s.logger.Info("item created", zap.Int64("item_id", item.ID), zap.String("name", item.Name))
	return item, nil
}

// UpdateItem changes price and/or stock. Carts are not touched; drift is
// detected at checkout.
func (s *ItemService) UpdateItem(ctx context.Context, id int64, req models.UpdateItemRequest) (*models.Item, error) {
	if req.Price != nil && !models.ValidPrice(*req.Price) {
		return nil, models.BadRequestf("price must be positive with at most two decimals")
	}
	if req.Quantity != nil && *req.Quantity < 0 {
		return nil, models.BadRequestf("quantity must not be negative")
	}

	item, err := s.repo.UpdateItem(ctx, id, req.Price, req.Quantity)
	if err != nil {
		return nil, domainErr(err, itemNotFound)
	}

	s.logger.Info("item updated",
		zap.Int64("item_id", item.ID),
		zap.String("price", item.Price.StringFixed(models.MoneyPlaces)),
		zap.Int("quantity", item.Quantity),
	)
	return item, nil
}

// DeleteItem removes an item together with any cart lines holding it.
// Ledger entries survive with their item reference cleared.
func (s *ItemService) DeleteItem(ctx context.Context, id int64) error {
	if err := s.repo.DeleteItem(ctx, id); err != nil {
		return domainErr(err, itemNotFound)
	}
	s.logger.Info("item deleted", zap.Int64("item_id", id))
	return nil
}

// LoadItems reads a JSON array of {name, price, quantity} objects and inserts
// them in one transaction. Nothing is written if any entry is invalid.
func (s *ItemService) LoadItems(ctx context.Context, r io.Reader) (int, error) {
	var reqs []models.CreateItemRequest
	if err := json.NewDecoder(r).Decode(&reqs); err != nil {
		return 0, models.BadRequestf("invalid items file: %v", err)
	}

	items := make([]models.Item, 0, len(reqs))
	for i, req := range reqs {
		if err := validateNewItem(req); err != nil {
			return 0, models.BadRequestf("item %d: %v", i, err)
		}
		items = append(items, models.Item{
			Name:     strings.TrimSpace(req.Name),
			Price:    req.Price,
			Quantity: req.Quantity,
		})
	}

	n, err := s.repo.LoadItems(ctx, items)
	if err != nil {
		return 0, domainErr(err, nil)
	}

	s.logger.Info("items loaded", zap.Int("count", n))
	return n, nil
}

// ListPurchases returns the user's ledger, oldest first.
func (s *ItemService) ListPurchases(ctx context.Context, userID string) ([]models.PurchaseLogEntry, error) {
	entries, err := s.repo.ListPurchases(ctx, userID)
	if err != nil {
		return nil, domainErr(err, nil)
	}
	return entries, nil
}

func validateNewItem(req models.CreateItemRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return models.BadRequestf("name is required")
	}
	if !models.ValidPrice(req.Price) {
		return models.BadRequestf("price must be positive with at most two decimals")
	}
	if req.Quantity < 0 {
		return models.BadRequestf("quantity must not be negative")
	}
	return nil
}
