package store

import (
	"context"
	"database/sql"
	"fmt"

	"commerce-cms/internal/models"
)

// CreateOrder inserts an order with its items in one transaction.
// No history entry is written at creation; history records changes only.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (order_number, status, customer_name, customer_phone, customer_email, subtotal, total, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	if err := tx.GetContext(ctx, order, query,
		order.OrderNumber, order.Status, order.CustomerName, order.CustomerPhone,
		order.CustomerEmail, order.Subtotal, order.Total, order.Notes); err != nil {
		return err
	}

	if err := insertOrderItems(ctx, tx, order); err != nil {
		return err
	}

	return tx.Commit()
}

// UpdateOrder updates an order, optionally replaces its items, and appends
// a status-history entry when one is provided, all in one transaction.
func (s *Store) UpdateOrder(ctx context.Context, order *models.Order, replaceItems bool, history *models.StatusHistoryEntry) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, customer_name = $2, customer_phone = $3, customer_email = $4,
		    subtotal = $5, total = $6, notes = $7, updated_at = NOW()
		WHERE id = $8`,
		order.Status, order.CustomerName, order.CustomerPhone, order.CustomerEmail,
		order.Subtotal, order.Total, order.Notes, order.ID)
	if err != nil {
		return err
	}

	if replaceItems {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM order_items WHERE order_id = $1", order.ID); err != nil {
			return err
		}
		if err := insertOrderItems(ctx, tx, order); err != nil {
			return err
		}
	}

	if history != nil {
		if err := tx.GetContext(ctx, &history.ID, `
			INSERT INTO order_status_history (order_id, from_status, to_status, changed_at, changed_by)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			order.ID, history.From, history.To, history.At, history.By); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func insertOrderItems(ctx context.Context, tx interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}, order *models.Order) error {
	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		if err := tx.GetContext(ctx, &item.ID, `
			INSERT INTO order_items (order_id, product_id, variant_sku, quantity, unit_price, title_snapshot, attributes_summary)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
			item.OrderID, item.ProductID, item.VariantSKU, item.Quantity,
			item.UnitPrice, item.TitleSnapshot, item.AttributesSummary); err != nil {
			return err
		}
	}
	return nil
}

// GetOrderByID retrieves an order with its items and status history
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order not found: %d", id)
	}
	if err != nil {
		return nil, err
	}

	items := []models.OrderItem{}
	if err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", id); err != nil {
		return nil, err
	}
	order.Items = items

	history := []models.StatusHistoryEntry{}
	if err := s.db.SelectContext(ctx, &history,
		"SELECT * FROM order_status_history WHERE order_id = $1 ORDER BY id", id); err != nil {
		return nil, err
	}
	order.StatusHistory = history

	return &order, nil
}

// GetOrderByNumber retrieves an order by its unique order number
func (s *Store) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE order_number = $1", orderNumber)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.GetOrderByID(ctx, order.ID)
}

// DeleteOrder removes an order; items and history go with it via cascade
func (s *Store) DeleteOrder(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM orders WHERE id = $1", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("order not found: %d", id)
	}
	return nil
}

// ListOrdersByPhone filters orders on the denormalized customer phone mirror
func (s *Store) ListOrdersByPhone(ctx context.Context, phone string, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE customer_phone = $1 ORDER BY created_at DESC LIMIT $2",
		phone, limit)
	return orders, err
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
