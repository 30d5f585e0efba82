package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"commerce-cms/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

//go:embed schema.sql
var schemaSQL string

// ErrNotFound marks lookups whose subject does not exist, so callers can
// tell a missing row apart from an infrastructure failure.
var ErrNotFound = errors.New("not found")

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Migrate applies the embedded schema. All statements are idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// GetProductByID retrieves a product with its variants
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if err := s.loadVariants(ctx, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductBySlug retrieves a product by slug, optionally published-only
func (s *Store) GetProductBySlug(ctx context.Context, slug string, publishedOnly bool) (*models.Product, error) {
	query := "SELECT * FROM products WHERE slug = $1"
	if publishedOnly {
		query += " AND status = 'published'"
	}

	var product models.Product
	err := s.db.GetContext(ctx, &product, query, slug)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := s.loadVariants(ctx, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// ListProducts retrieves products, optionally published-only
func (s *Store) ListProducts(ctx context.Context, publishedOnly bool, limit int) ([]models.Product, error) {
	query := "SELECT * FROM products"
	if publishedOnly {
		query += " WHERE status = 'published'"
	}
	query += " ORDER BY created_at DESC LIMIT $1"

	var products []models.Product
	if err := s.db.SelectContext(ctx, &products, query, limit); err != nil {
		return nil, err
	}
	for i := range products {
		if err := s.loadVariants(ctx, &products[i]); err != nil {
			return nil, err
		}
	}
	return products, nil
}

func (s *Store) loadVariants(ctx context.Context, product *models.Product) error {
	variants := []models.ProductVariant{}
	err := s.db.SelectContext(ctx, &variants,
		"SELECT * FROM product_variants WHERE product_id = $1 ORDER BY id", product.ID)
	if err != nil {
		return err
	}
	product.Variants = variants
	return nil
}

// CreateProduct inserts a product together with its variants
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO products (title, slug, sku, short_description, base_price, sale_price, status, seo)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	if err := tx.GetContext(ctx, product, query,
		product.Title, product.Slug, product.SKU, product.ShortDescription,
		product.BasePrice, product.SalePrice, product.Status, product.SEO); err != nil {
		return err
	}

	for i := range product.Variants {
		v := &product.Variants[i]
		v.ProductID = product.ID
		if err := tx.GetContext(ctx, &v.ID, `
			INSERT INTO product_variants (product_id, sku, price, stock, attributes_summary)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			v.ProductID, v.SKU, v.Price, v.Stock, v.AttributesSummary); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// UpdateProduct updates product fields and replaces its variants
func (s *Store) UpdateProduct(ctx context.Context, product *models.Product) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE products
		SET title = $1, slug = $2, sku = $3, short_description = $4,
		    base_price = $5, sale_price = $6, status = $7, seo = $8, updated_at = NOW()
		WHERE id = $9`,
		product.Title, product.Slug, product.SKU, product.ShortDescription,
		product.BasePrice, product.SalePrice, product.Status, product.SEO, product.ID)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM product_variants WHERE product_id = $1", product.ID); err != nil {
		return err
	}
	for i := range product.Variants {
		v := &product.Variants[i]
		v.ProductID = product.ID
		if err := tx.GetContext(ctx, &v.ID, `
			INSERT INTO product_variants (product_id, sku, price, stock, attributes_summary)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			v.ProductID, v.SKU, v.Price, v.Stock, v.AttributesSummary); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// StockDecrement is one requested variant decrement.
type StockDecrement struct {
	VariantSKU string
	Quantity   int
}

// AppliedDecrement records a decrement that was committed.
type AppliedDecrement struct {
	ProductID  int64
	VariantSKU string
	Quantity   int
	Remaining  int
}

// StockConflictError is returned when a guarded decrement finds less stock
// than requested at commit time (e.g. a concurrent paid transition won the
// race after the caller's read).
type StockConflictError struct {
	ProductID  int64
	VariantSKU string
	Available  int
	Requested  int
}

func (e *StockConflictError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d sku %q: available=%d, requested=%d",
		e.ProductID, e.VariantSKU, e.Available, e.Requested)
}

// ApplyStockDecrements applies all decrements for one product in a single
// transaction. Each UPDATE is guarded by `stock >= quantity`, so tracked
// stock can never go negative even under concurrent paid transitions; if
// the guard fails the whole product transaction rolls back and a
// StockConflictError is returned.
func (s *Store) ApplyStockDecrements(ctx context.Context, productID int64, decs []StockDecrement) ([]AppliedDecrement, error) {
	if len(decs) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	applied := make([]AppliedDecrement, 0, len(decs))
	for _, dec := range decs {
		var remaining int
		err := tx.GetContext(ctx, &remaining, `
			UPDATE product_variants
			SET stock = stock - $1
			WHERE product_id = $2 AND sku = $3 AND stock IS NOT NULL AND stock >= $1
			RETURNING stock`,
			dec.Quantity, productID, dec.VariantSKU)
		if err == sql.ErrNoRows {
			var available sql.NullInt64
			if err := tx.GetContext(ctx, &available,
				"SELECT stock FROM product_variants WHERE product_id = $1 AND sku = $2",
				productID, dec.VariantSKU); err != nil && err != sql.ErrNoRows {
				return nil, err
			}
			return nil, &StockConflictError{
				ProductID:  productID,
				VariantSKU: dec.VariantSKU,
				Available:  int(available.Int64),
				Requested:  dec.Quantity,
			}
		}
		if err != nil {
			return nil, err
		}

		applied = append(applied, AppliedDecrement{
			ProductID:  productID,
			VariantSKU: dec.VariantSKU,
			Quantity:   dec.Quantity,
			Remaining:  remaining,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return applied, nil
}
