package worker

import (
	"context"
	"log"
	"time"

	"commerce-cms/internal/broker"
	"commerce-cms/internal/models"
	"commerce-cms/internal/redisclient"
	"commerce-cms/internal/service"
	"commerce-cms/internal/store"
)

const eventLockTTL = 30 * time.Second

// CatalogSyncWorker keeps the public read cache consistent with catalog
// mutations: when an order's paid transition decrements stock, the cached
// product payload is dropped so public reads see the new stock. Events are
// processed at most once via the processed_events table.
type CatalogSyncWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	catalog      *service.CatalogService
	store        *store.Store
	locks        *redisclient.Client
}

// NewCatalogSyncWorker creates a new catalog sync worker
func NewCatalogSyncWorker(
	consumer *broker.Consumer,
	catalog *service.CatalogService,
	st *store.Store,
	locks *redisclient.Client,
) *CatalogSyncWorker {
	w := &CatalogSyncWorker{
		consumer: consumer,
		catalog:  catalog,
		store:    st,
		locks:    locks,
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnStockDecremented(w.handleStockDecremented)
	eventHandler.OnOrderStatusChanged(w.handleOrderStatusChanged)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *CatalogSyncWorker) Start(ctx context.Context) error {
	log.Println("Starting catalog sync worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *CatalogSyncWorker) Stop() error {
	log.Println("Stopping catalog sync worker...")
	return w.consumer.Close()
}

func (w *CatalogSyncWorker) handleStockDecremented(ctx context.Context, event *models.StockDecrementedEvent) error {
	// Short lock so concurrent consumers in the same group don't race on one
	// event; processed_events stays the durable idempotency record.
	acquired, err := w.locks.AcquireLock(ctx, "event:"+event.EventID, eventLockTTL)
	if err != nil {
		log.Printf("Failed to acquire event lock for %s: %v", event.EventID, err)
	} else if !acquired {
		return nil
	} else {
		defer func() {
			if err := w.locks.ReleaseLock(ctx, "event:"+event.EventID); err != nil {
				log.Printf("Failed to release event lock for %s: %v", event.EventID, err)
			}
		}()
	}

	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return err
	}
	if processed {
		return nil
	}

	if err := w.catalog.InvalidateProductByID(ctx, event.ProductID); err != nil {
		log.Printf("Failed to invalidate product %d: %v", event.ProductID, err)
		return err
	}

	return w.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
}

func (w *CatalogSyncWorker) handleOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return err
	}
	if processed {
		return nil
	}

	log.Printf("Order %s status changed: %s -> %s", event.OrderNumber, event.From, event.To)
	return w.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
}
