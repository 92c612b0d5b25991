package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"go-inventory/internal/models"
)

var testNow = time.Date(2025, 7, 11, 10, 24, 0, 0, time.UTC)

// createTestStore creates a fresh SQLite store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open("sqlite", path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	s.SetClock(func() time.Time { return testNow })
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestItem(t *testing.T, s *Store, name, price string, qty int) *models.Item {
	t.Helper()
	it, err := s.CreateItem(context.Background(), models.Item{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Quantity: qty,
	})
	if err != nil {
		t.Fatalf("CreateItem() failed: %v", err)
	}
	return it
}
