package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Product is a catalog product. Prices are integer minor units.
type Product struct {
	ID               int64     `db:"id" json:"id"`
	Title            string    `db:"title" json:"title"`
	Slug             string    `db:"slug" json:"slug"`
	SKU              string    `db:"sku" json:"sku,omitempty"`
	ShortDescription string    `db:"short_description" json:"short_description,omitempty"`
	BasePrice        int64     `db:"base_price" json:"base_price"`
	SalePrice        *int64    `db:"sale_price" json:"sale_price,omitempty"`
	Status           string    `db:"status" json:"status"`
	SEO              SEO       `db:"seo" json:"seo"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`

	// Loaded separately; not a column.
	Variants []ProductVariant `db:"-" json:"variants"`
}

// ProductVariant is one sellable variation of a product.
// Stock is nil when the variant is not stock-tracked.
type ProductVariant struct {
	ID                int64  `db:"id" json:"id"`
	ProductID         int64  `db:"product_id" json:"product_id"`
	SKU               string `db:"sku" json:"sku"`
	Price             int64  `db:"price" json:"price"`
	Stock             *int   `db:"stock" json:"stock,omitempty"`
	AttributesSummary string `db:"attributes_summary" json:"attributes_summary,omitempty"`
}

// Post is a content document exposed through the public delivery API.
type Post struct {
	ID          int64      `db:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Slug        string     `db:"slug" json:"slug"`
	Excerpt     string     `db:"excerpt" json:"excerpt,omitempty"`
	Status      string     `db:"status" json:"status"`
	SEO         SEO        `db:"seo" json:"seo"`
	PublishedAt *time.Time `db:"published_at" json:"published_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Publish statuses for content documents.
const (
	PublishStatusDraft     = "draft"
	PublishStatusPublished = "published"
)

// SEO holds per-document SEO overrides, stored as a JSONB column.
type SEO struct {
	MetaTitle       string `json:"meta_title,omitempty"`
	MetaDescription string `json:"meta_description,omitempty"`
	CanonicalURL    string `json:"canonical_url,omitempty"`
	NoIndex         *bool  `json:"no_index,omitempty"`
	NoFollow        *bool  `json:"no_follow,omitempty"`
	OGTitle         string `json:"og_title,omitempty"`
	OGDescription   string `json:"og_description,omitempty"`
	OGImageURL      string `json:"og_image_url,omitempty"`
	TwitterTitle    string `json:"twitter_title,omitempty"`
	TwitterCard     string `json:"twitter_card,omitempty"`
	TwitterImageURL string `json:"twitter_image_url,omitempty"`
}

// Scan implements sql.Scanner for the JSONB seo column.
func (s *SEO) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*s = SEO{}
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("unsupported seo column type %T", src)
	}
}

// Value implements driver.Valuer for the JSONB seo column.
func (s SEO) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// SeoDefaults is the site-wide SEO defaults singleton.
type SeoDefaults struct {
	DefaultTitle           string `db:"default_title" json:"default_title,omitempty"`
	TitleTemplate          string `db:"title_template" json:"title_template,omitempty"`
	DefaultMetaDescription string `db:"default_meta_description" json:"default_meta_description,omitempty"`
	DefaultOGImageURL      string `db:"default_og_image_url" json:"default_og_image_url,omitempty"`
	RobotsNoIndex          bool   `db:"robots_no_index" json:"robots_no_index"`
	RobotsNoFollow         bool   `db:"robots_no_follow" json:"robots_no_follow"`
}

// Customer is the order's customer group as submitted by clients.
type Customer struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone" binding:"required"`
	Email string `json:"email,omitempty"`
}

// Order is a customer order. customer_phone/customer_email are denormalized
// mirrors of the customer group, kept for indexed filtering and recomputed
// on every normalize.
type Order struct {
	ID            int64     `db:"id" json:"id"`
	OrderNumber   string    `db:"order_number" json:"order_number"`
	Status        string    `db:"status" json:"status"`
	CustomerName  string    `db:"customer_name" json:"-"`
	CustomerPhone string    `db:"customer_phone" json:"customer_phone"`
	CustomerEmail string    `db:"customer_email" json:"customer_email,omitempty"`
	Subtotal      int64     `db:"subtotal" json:"subtotal"`
	Total         int64     `db:"total" json:"total"`
	Notes         string    `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`

	// Loaded separately; not columns.
	Items         []OrderItem          `db:"-" json:"items"`
	StatusHistory []StatusHistoryEntry `db:"-" json:"status_history,omitempty"`
}

// Customer reassembles the customer group from the stored columns.
func (o *Order) Customer() Customer {
	return Customer{Name: o.CustomerName, Phone: o.CustomerPhone, Email: o.CustomerEmail}
}

// OrderItem is one order line. titleSnapshot, unitPrice and attributesSummary
// are snapshots taken from the catalog at order time, never re-resolved later.
type OrderItem struct {
	ID                int64  `db:"id" json:"id"`
	OrderID           int64  `db:"order_id" json:"order_id"`
	ProductID         int64  `db:"product_id" json:"product_id"`
	VariantSKU        string `db:"variant_sku" json:"variant_sku,omitempty"`
	Quantity          int    `db:"quantity" json:"quantity"`
	UnitPrice         *int64 `db:"unit_price" json:"unit_price,omitempty"`
	TitleSnapshot     string `db:"title_snapshot" json:"title_snapshot,omitempty"`
	AttributesSummary string `db:"attributes_summary" json:"attributes_summary,omitempty"`
}

// StatusHistoryEntry is one append-only audit record of a status change.
type StatusHistoryEntry struct {
	ID      int64     `db:"id" json:"-"`
	OrderID int64     `db:"order_id" json:"-"`
	From    string    `db:"from_status" json:"from"`
	To      string    `db:"to_status" json:"to"`
	At      time.Time `db:"changed_at" json:"at"`
	By      *int64    `db:"changed_by" json:"by,omitempty"`
}

// Order statuses. The schema allows any transition; only a transition into
// paid triggers the stock decrement.
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusCancelled = "cancelled"
	OrderStatusFulfilled = "fulfilled"
)

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusCancelled, OrderStatusFulfilled:
		return true
	}
	return false
}

// ProcessedEvent for consumer idempotency.
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
