package cli

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-inventory/api/handlers"
	"go-inventory/internal/config"
	"go-inventory/internal/events"
	"go-inventory/internal/idempotency"
	"go-inventory/internal/services"
	"go-inventory/internal/store"
)

// app is the wired service graph shared by the commands.
type app struct {
	store     *store.Store
	guard     idempotency.Guard
	publisher events.Publisher

	items    *services.ItemService
	carts    *services.CartService
	checkout *services.CheckoutService
	logger   *zap.Logger

	closers []func() error
}

func openStore(cfg config.DatabaseConfig) (*store.Store, error) {
	st, err := store.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
	}
	return st, nil
}

func newApp(cfg config.Config, logger *zap.Logger) (*app, error) {
	st, err := openStore(cfg.Database)
	if err != nil {
		return nil, err
	}
	a := &app{store: st, logger: logger}
	a.closers = append(a.closers, st.Close)

	opts := idempotency.Options{TTL: cfg.Idempotency.TTL, PendingTTL: cfg.Idempotency.PendingTTL}
	switch cfg.Idempotency.Backend {
	case "redis":
		rg, err := idempotency.NewRedisGuard(cfg.Idempotency.RedisURL, opts)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.guard = rg
		a.closers = append(a.closers, rg.Close)
	default:
		a.guard = idempotency.NewMemoryGuard(opts)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		a.publisher = kp
		a.closers = append(a.closers, kp.Close)
	} else {
		a.publisher = events.NopPublisher{}
	}

	a.items = services.NewItemService(st, logger)
	a.carts = services.NewCartService(st, logger)
	a.checkout = services.NewCheckoutService(st, a.guard, a.publisher, logger)

	logger.Info("application wired",
		zap.String("database", cfg.Database.Driver),
		zap.String("idempotency", cfg.Idempotency.Backend),
		zap.Int("kafka_brokers", len(cfg.Kafka.Brokers)),
	)
	return a, nil
}

func (a *app) router() *gin.Engine {
	return handlers.NewRouter(handlers.RouterConfig{
		Items:    a.items,
		Carts:    a.carts,
		Checkout: a.checkout,
		DB:       a.store.DB(),
		Logger:   a.logger,
	})
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
