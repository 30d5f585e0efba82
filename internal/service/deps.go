package service

import (
	"context"
	"time"

	"commerce-cms/internal/models"
	"commerce-cms/internal/store"
)

// CatalogStore is the catalog collaborator: trusted product lookups plus the
// per-product transactional stock mutation. *store.Store satisfies it.
type CatalogStore interface {
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	ApplyStockDecrements(ctx context.Context, productID int64, decs []store.StockDecrement) ([]store.AppliedDecrement, error)
}

// OrderStore persists orders, items and status history.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	UpdateOrder(ctx context.Context, order *models.Order, replaceItems bool, history *models.StatusHistoryEntry) error
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	DeleteOrder(ctx context.Context, id int64) error
	ListOrdersByPhone(ctx context.Context, phone string, limit int) ([]models.Order, error)
}

// ContentStore serves public content reads and catalog writes.
type ContentStore interface {
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	GetProductBySlug(ctx context.Context, slug string, publishedOnly bool) (*models.Product, error)
	ListProducts(ctx context.Context, publishedOnly bool, limit int) ([]models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, product *models.Product) error
	GetPostBySlug(ctx context.Context, slug string, publishedOnly bool) (*models.Post, error)
	ListPosts(ctx context.Context, publishedOnly bool, limit int) ([]models.Post, error)
	CreatePost(ctx context.Context, post *models.Post) error
	GetSeoDefaults(ctx context.Context) (*models.SeoDefaults, error)
}

// EventPublisher publishes domain events. Failures are logged, never fatal
// to the originating request.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
	PublishStockDecremented(ctx context.Context, event *models.StockDecrementedEvent) error
}

// Cache is a best-effort JSON read cache. Errors degrade to a store read.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
