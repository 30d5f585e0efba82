package service

import (
	"context"
	"fmt"
	"sync"

	"commerce-cms/internal/models"
	"commerce-cms/internal/store"
)

// fakeCatalog is an in-memory CatalogStore.
type fakeCatalog struct {
	mu       sync.Mutex
	products map[int64]*models.Product

	applyCalls []applyCall
	lookupErr  error
	applyErr   error
}

type applyCall struct {
	productID int64
	decs      []store.StockDecrement
}

func newFakeCatalog(products ...*models.Product) *fakeCatalog {
	m := make(map[int64]*models.Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return &fakeCatalog{products: m}
}

func (f *fakeCatalog) GetProductByID(_ context.Context, id int64) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	p, ok := f.products[id]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, store.ErrNotFound)
	}
	return p, nil
}

func (f *fakeCatalog) ApplyStockDecrements(_ context.Context, productID int64, decs []store.StockDecrement) ([]store.AppliedDecrement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.applyCalls = append(f.applyCalls, applyCall{productID: productID, decs: decs})

	if f.applyErr != nil {
		return nil, f.applyErr
	}

	product, ok := f.products[productID]
	if !ok {
		return nil, fmt.Errorf("product not found: %d", productID)
	}

	// Validate everything first so a failing call leaves stock untouched,
	// matching the real store's per-product transaction.
	for _, dec := range decs {
		variant := findVariantBySKU(product, dec.VariantSKU)
		if variant == nil || variant.Stock == nil || *variant.Stock < dec.Quantity {
			available := 0
			if variant != nil && variant.Stock != nil {
				available = *variant.Stock
			}
			return nil, &store.StockConflictError{
				ProductID:  productID,
				VariantSKU: dec.VariantSKU,
				Available:  available,
				Requested:  dec.Quantity,
			}
		}
	}

	applied := make([]store.AppliedDecrement, 0, len(decs))
	for _, dec := range decs {
		variant := findVariantBySKU(product, dec.VariantSKU)
		*variant.Stock -= dec.Quantity
		applied = append(applied, store.AppliedDecrement{
			ProductID:  productID,
			VariantSKU: dec.VariantSKU,
			Quantity:   dec.Quantity,
			Remaining:  *variant.Stock,
		})
	}
	return applied, nil
}

func (f *fakeCatalog) stockOf(productID int64, sku string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	variant := findVariantBySKU(f.products[productID], sku)
	if variant == nil || variant.Stock == nil {
		return -1
	}
	return *variant.Stock
}

// fakeOrders is an in-memory OrderStore.
type fakeOrders struct {
	mu     sync.Mutex
	orders map[int64]*models.Order
	nextID int64

	updateCalls int
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{orders: make(map[int64]*models.Order)}
}

func (f *fakeOrders) CreateOrder(_ context.Context, order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	order.ID = f.nextID
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}
	f.orders[order.ID] = cloneOrder(order)
	return nil
}

func (f *fakeOrders) UpdateOrder(_ context.Context, order *models.Order, replaceItems bool, history *models.StatusHistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++

	stored, ok := f.orders[order.ID]
	if !ok {
		return fmt.Errorf("order not found: %d", order.ID)
	}

	next := cloneOrder(order)
	next.StatusHistory = stored.StatusHistory
	if !replaceItems {
		next.Items = stored.Items
	}
	if history != nil {
		entry := *history
		entry.OrderID = order.ID
		next.StatusHistory = append(next.StatusHistory, entry)
	}
	f.orders[order.ID] = next
	return nil
}

func (f *fakeOrders) GetOrderByID(_ context.Context, id int64) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, fmt.Errorf("order not found: %d", id)
	}
	return cloneOrder(order), nil
}

func (f *fakeOrders) GetOrderByNumber(_ context.Context, orderNumber string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, order := range f.orders {
		if order.OrderNumber == orderNumber {
			return cloneOrder(order), nil
		}
	}
	return nil, nil
}

func (f *fakeOrders) DeleteOrder(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.orders[id]; !ok {
		return fmt.Errorf("order not found: %d", id)
	}
	delete(f.orders, id)
	return nil
}

func (f *fakeOrders) ListOrdersByPhone(_ context.Context, phone string, _ int) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Order
	for _, order := range f.orders {
		if order.CustomerPhone == phone {
			out = append(out, *cloneOrder(order))
		}
	}
	return out, nil
}

func cloneOrder(order *models.Order) *models.Order {
	clone := *order
	clone.Items = append([]models.OrderItem(nil), order.Items...)
	clone.StatusHistory = append([]models.StatusHistoryEntry(nil), order.StatusHistory...)
	return &clone
}

// fakePublisher counts published events by type.
type fakePublisher struct {
	mu     sync.Mutex
	events []string
}

func (f *fakePublisher) record(eventType string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, eventType)
}

func (f *fakePublisher) count(eventType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e == eventType {
			n++
		}
	}
	return n
}

func (f *fakePublisher) PublishOrderCreated(_ context.Context, _ *models.OrderCreatedEvent) error {
	f.record(models.EventTypeOrderCreated)
	return nil
}

func (f *fakePublisher) PublishOrderStatusChanged(_ context.Context, _ *models.OrderStatusChangedEvent) error {
	f.record(models.EventTypeOrderStatusChanged)
	return nil
}

func (f *fakePublisher) PublishStockDecremented(_ context.Context, _ *models.StockDecrementedEvent) error {
	f.record(models.EventTypeStockDecremented)
	return nil
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }
func strPtr(v string) *string { return &v }
