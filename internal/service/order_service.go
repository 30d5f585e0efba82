package service

import (
	"context"
	"fmt"
	"time"

	"commerce-cms/internal/access"
	"commerce-cms/internal/models"
	"commerce-cms/internal/store"
	"commerce-cms/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService owns the order lifecycle: normalization, the paid-transition
// stock decrement, and status-history bookkeeping.
type OrderService struct {
	orders    OrderStore
	catalog   CatalogStore
	stock     *StockEngine
	publisher EventPublisher
	policy    *access.Policy
	logger    *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(
	orders OrderStore,
	catalog CatalogStore,
	stock *StockEngine,
	publisher EventPublisher,
	policy *access.Policy,
) *OrderService {
	return &OrderService{
		orders:    orders,
		catalog:   catalog,
		stock:     stock,
		publisher: publisher,
		policy:    policy,
		logger:    util.GetLogger(),
	}
}

// CreateOrderInput is the order-creation payload.
type CreateOrderInput struct {
	OrderNumber string           `json:"order_number,omitempty"`
	Status      string           `json:"status,omitempty"`
	Customer    models.Customer  `json:"customer" binding:"required"`
	Items       []OrderItemInput `json:"items" binding:"required,min=1,dive"`
	Notes       string           `json:"notes,omitempty"`
}

// OrderItemInput is one requested order line. Snapshot fields left empty
// are filled from the catalog by the normalizer.
type OrderItemInput struct {
	ProductID         int64  `json:"product" binding:"required"`
	VariantSKU        string `json:"variant_sku,omitempty"`
	Quantity          int    `json:"quantity" binding:"required,min=1"`
	UnitPrice         *int64 `json:"unit_price,omitempty"`
	TitleSnapshot     string `json:"title_snapshot,omitempty"`
	AttributesSummary string `json:"attributes_summary,omitempty"`
}

// UpdateOrderInput is a partial order patch. Nil fields are left unchanged;
// a non-nil Items slice replaces the stored items.
type UpdateOrderInput struct {
	Status   *string          `json:"status,omitempty"`
	Customer *models.Customer `json:"customer,omitempty"`
	Items    []OrderItemInput `json:"items,omitempty" binding:"omitempty,dive"`
	Notes    *string          `json:"notes,omitempty"`
}

// CreateOrder creates an order for the acting user, subject to the access
// policy (any authenticated identity may create).
func (s *OrderService) CreateOrder(ctx context.Context, input *CreateOrderInput, actor *access.Identity) (*models.Order, error) {
	if !s.policy.CanCreateOrder(actor) {
		return nil, ErrForbidden
	}
	return s.createOrder(ctx, input, actor)
}

// CreateOrderTrusted creates an order bypassing the access policy. Used by
// the public endpoint, where the shared secret header is the gate.
func (s *OrderService) CreateOrderTrusted(ctx context.Context, input *CreateOrderInput) (*models.Order, error) {
	return s.createOrder(ctx, input, nil)
}

func (s *OrderService) createOrder(ctx context.Context, input *CreateOrderInput, actor *access.Identity) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	if len(input.Items) == 0 {
		util.OrdersFailedTotal.WithLabelValues("invalid_items").Inc()
		return nil, errItemsRequired()
	}
	if err := validateItemInputs(input.Items); err != nil {
		util.OrdersFailedTotal.WithLabelValues("invalid_items").Inc()
		return nil, err
	}
	if err := validateCustomer(input.Customer); err != nil {
		util.OrdersFailedTotal.WithLabelValues("invalid_customer").Inc()
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = models.OrderStatusPending
	}
	if !models.ValidOrderStatus(status) {
		return nil, errInvalidStatus(status)
	}

	order := &models.Order{
		OrderNumber: input.OrderNumber,
		Status:      status,
		Notes:       input.Notes,
		Items:       buildOrderItems(input.Items),
	}
	applyCustomer(order, input.Customer)

	s.normalizeOrder(ctx, order)

	// An order created directly as paid behaves like a pending→paid
	// transition: stock is decremented before the order is persisted.
	if order.Status == models.OrderStatusPaid {
		applied, err := s.stock.DecrementForPaidTransition(ctx, 0, order.Items)
		if err != nil {
			return nil, err
		}
		defer s.publishStockDecremented(ctx, order, applied)
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	util.OrdersCreatedTotal.Inc()
	if order.Status == models.OrderStatusPaid {
		util.OrdersPaidTotal.Inc()
	}
	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("status", order.Status))

	event := &models.OrderCreatedEvent{
		BaseEvent:   newBaseEvent(models.EventTypeOrderCreated),
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		Total:       order.Total,
		Items:       toItemData(order.Items),
	}
	if err := s.publisher.PublishOrderCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
	}

	return order, nil
}

// UpdateOrder applies a partial patch to an order. Every mutation passes
// through the normalizer; a transition into paid additionally passes through
// the stock engine, and any actual status change is appended to the history.
func (s *OrderService) UpdateOrder(ctx context.Context, orderID int64, input *UpdateOrderInput, actor *access.Identity) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateOrder")
	defer span.End()

	if !s.policy.CanWriteOrders(actor) {
		return nil, ErrForbidden
	}

	prior, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	next := *prior
	next.Items = append([]models.OrderItem(nil), prior.Items...)

	if input.Status != nil {
		if !models.ValidOrderStatus(*input.Status) {
			return nil, errInvalidStatus(*input.Status)
		}
		next.Status = *input.Status
	}
	if input.Customer != nil {
		if err := validateCustomer(*input.Customer); err != nil {
			return nil, err
		}
		applyCustomer(&next, *input.Customer)
	}
	replaceItems := input.Items != nil
	if replaceItems {
		if len(input.Items) == 0 {
			return nil, errItemsRequired()
		}
		if err := validateItemInputs(input.Items); err != nil {
			return nil, err
		}
		next.Items = buildOrderItems(input.Items)
	}
	if input.Notes != nil {
		next.Notes = *input.Notes
	}

	// orderNumber is immutable once set.
	next.OrderNumber = prior.OrderNumber

	s.normalizeOrder(ctx, &next)

	var actorID *int64
	if actor != nil {
		actorID = &actor.UserID
	}
	history := RecordStatusChange(prior.Status, next.Status, time.Now().UTC(), actorID)

	transitionToPaid := next.Status == models.OrderStatusPaid && prior.Status != models.OrderStatusPaid
	if transitionToPaid {
		applied, err := s.stock.DecrementForPaidTransition(ctx, next.ID, next.Items)
		if err != nil {
			util.OrdersFailedTotal.WithLabelValues("stock_decrement").Inc()
			return nil, err
		}
		defer s.publishStockDecremented(ctx, &next, applied)
	}

	if err := s.orders.UpdateOrder(ctx, &next, replaceItems, history); err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	if history != nil {
		next.StatusHistory = append(next.StatusHistory, *history)
		if transitionToPaid {
			util.OrdersPaidTotal.Inc()
		}

		event := &models.OrderStatusChangedEvent{
			BaseEvent:   newBaseEvent(models.EventTypeOrderStatusChanged),
			OrderID:     next.ID,
			OrderNumber: next.OrderNumber,
			From:        history.From,
			To:          history.To,
			ChangedBy:   history.By,
		}
		if err := s.publisher.PublishOrderStatusChanged(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
		}
	}

	return &next, nil
}

// GetOrder retrieves an order for the acting user.
func (s *OrderService) GetOrder(ctx context.Context, orderID int64, actor *access.Identity) (*models.Order, error) {
	if !s.policy.CanReadOrders(actor) {
		return nil, ErrForbidden
	}
	return s.orders.GetOrderByID(ctx, orderID)
}

// GetOrderByNumber retrieves an order by its unique order number. Returns
// nil when no such order exists.
func (s *OrderService) GetOrderByNumber(ctx context.Context, orderNumber string, actor *access.Identity) (*models.Order, error) {
	if !s.policy.CanReadOrders(actor) {
		return nil, ErrForbidden
	}
	return s.orders.GetOrderByNumber(ctx, orderNumber)
}

// DeleteOrder removes an order together with its items and history.
func (s *OrderService) DeleteOrder(ctx context.Context, orderID int64, actor *access.Identity) error {
	if !s.policy.CanDeleteOrders(actor) {
		return ErrForbidden
	}
	if err := s.orders.DeleteOrder(ctx, orderID); err != nil {
		return err
	}
	s.logger.Info("Order deleted", zap.Int64("order_id", orderID))
	return nil
}

// ListOrdersByPhone filters orders on the denormalized phone mirror.
func (s *OrderService) ListOrdersByPhone(ctx context.Context, phone string, actor *access.Identity) ([]models.Order, error) {
	if !s.policy.CanReadOrders(actor) {
		return nil, ErrForbidden
	}
	return s.orders.ListOrdersByPhone(ctx, phone, 100)
}

func (s *OrderService) publishStockDecremented(ctx context.Context, order *models.Order, applied []store.AppliedDecrement) {
	byProduct := make(map[int64][]models.StockDecrementData)
	var productOrder []int64
	for _, dec := range applied {
		if _, ok := byProduct[dec.ProductID]; !ok {
			productOrder = append(productOrder, dec.ProductID)
		}
		byProduct[dec.ProductID] = append(byProduct[dec.ProductID], models.StockDecrementData{
			VariantSKU: dec.VariantSKU,
			Quantity:   dec.Quantity,
			Remaining:  dec.Remaining,
		})
	}

	for _, productID := range productOrder {
		event := &models.StockDecrementedEvent{
			BaseEvent: newBaseEvent(models.EventTypeStockDecremented),
			OrderID:   order.ID,
			ProductID: productID,
			Applied:   byProduct[productID],
		}
		if err := s.publisher.PublishStockDecremented(ctx, event); err != nil {
			s.logger.Error("Failed to publish StockDecremented event",
				zap.Int64("product_id", productID),
				zap.Error(err))
		}
	}
}

// validateItemInputs rejects item payloads that could corrupt the catalog:
// a non-positive quantity would turn the guarded stock decrement into an
// increment, and a negative unit price would produce a negative total. This
// runs on the trusted path too, which never passes request binding.
func validateItemInputs(inputs []OrderItemInput) error {
	for _, in := range inputs {
		if in.Quantity < 1 {
			return errInvalidQuantity()
		}
		if in.UnitPrice != nil && *in.UnitPrice < 0 {
			return errInvalidUnitPrice()
		}
	}
	return nil
}

// validateCustomer enforces the mandatory contact fields regardless of how
// the payload reached the service.
func validateCustomer(customer models.Customer) error {
	if customer.Name == "" || customer.Phone == "" {
		return errCustomerRequired()
	}
	return nil
}

func buildOrderItems(inputs []OrderItemInput) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(inputs))
	for _, in := range inputs {
		items = append(items, models.OrderItem{
			ProductID:         in.ProductID,
			VariantSKU:        in.VariantSKU,
			Quantity:          in.Quantity,
			UnitPrice:         in.UnitPrice,
			TitleSnapshot:     in.TitleSnapshot,
			AttributesSummary: in.AttributesSummary,
		})
	}
	return items
}

func toItemData(items []models.OrderItem) []models.OrderItemData {
	data := make([]models.OrderItemData, 0, len(items))
	for _, item := range items {
		var unitPrice int64
		if item.UnitPrice != nil {
			unitPrice = *item.UnitPrice
		}
		data = append(data, models.OrderItemData{
			ProductID:  item.ProductID,
			VariantSKU: item.VariantSKU,
			Quantity:   item.Quantity,
			UnitPrice:  unitPrice,
		})
	}
	return data
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}
