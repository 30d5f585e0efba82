package models

import "time"

// Event types
const (
	EventTypeOrderCreated       = "ORDER_CREATED"
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
	EventTypeStockDecremented   = "STOCK_DECREMENTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent published when an order is created
type OrderCreatedEvent struct {
	BaseEvent
	OrderID     int64           `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	Status      string          `json:"status"`
	Total       int64           `json:"total"`
	Items       []OrderItemData `json:"items"`
}

// OrderStatusChangedEvent published when an order status actually changes
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID     int64  `json:"order_id"`
	OrderNumber string `json:"order_number"`
	From        string `json:"from"`
	To          string `json:"to"`
	ChangedBy   *int64 `json:"changed_by,omitempty"`
}

// StockDecrementedEvent published after variant stock was decremented for a
// paid transition. Carries one product's applied decrements.
type StockDecrementedEvent struct {
	BaseEvent
	OrderID   int64                `json:"order_id"`
	ProductID int64                `json:"product_id"`
	Applied   []StockDecrementData `json:"applied"`
}

// StockDecrementData is one applied variant decrement.
type StockDecrementData struct {
	VariantSKU string `json:"variant_sku"`
	Quantity   int    `json:"quantity"`
	Remaining  int    `json:"remaining"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ProductID  int64  `json:"product_id"`
	VariantSKU string `json:"variant_sku,omitempty"`
	Quantity   int    `json:"quantity"`
	UnitPrice  int64  `json:"unit_price"`
}
