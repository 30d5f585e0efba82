package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"commerce-cms/internal/access"
	"commerce-cms/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrderService(catalog *fakeCatalog) (*OrderService, *fakeOrders, *fakePublisher) {
	orders := newFakeOrders()
	publisher := &fakePublisher{}
	policy := access.NewPolicy(access.Config{Env: "test"})
	engine := NewStockEngine(catalog)
	return NewOrderService(orders, catalog, engine, publisher, policy), orders, publisher
}

func teeShirtProduct() *models.Product {
	sale := int64(80)
	return &models.Product{
		ID:        1,
		Title:     "Basic Tee",
		BasePrice: 100,
		SalePrice: &sale,
		Variants: []models.ProductVariant{
			{ID: 11, ProductID: 1, SKU: "TEE-S", Price: 90, Stock: intPtr(5), AttributesSummary: "Size: S"},
			{ID: 12, ProductID: 1, SKU: "TEE-M", Price: 95, Stock: intPtr(3), AttributesSummary: "Size: M"},
			{ID: 13, ProductID: 1, SKU: "TEE-U", Price: 85, Stock: nil, AttributesSummary: "Size: U"},
		},
	}
}

func giftCardProduct() *models.Product {
	// No variants: not stock-tracked.
	return &models.Product{
		ID:        2,
		Title:     "Gift Card",
		BasePrice: 500,
	}
}

func TestGenerateOrderNumberPattern(t *testing.T) {
	pattern := regexp.MustCompile(`^ORD-\d{8}-[A-Z0-9]{6}$`)
	for i := 0; i < 50; i++ {
		number := GenerateOrderNumber(time.Now())
		assert.Regexp(t, pattern, number)
	}

	fixed := time.Date(2026, 3, 7, 23, 59, 0, 0, time.UTC)
	assert.Contains(t, GenerateOrderNumber(fixed), "ORD-20260307-")
}

func TestNormalizeGeneratesOrderNumberOnlyWhenEmpty(t *testing.T) {
	svc, _, _ := newTestOrderService(newFakeCatalog(teeShirtProduct()))

	order := &models.Order{Items: []models.OrderItem{}}
	svc.normalizeOrder(context.Background(), order)
	require.NotEmpty(t, order.OrderNumber)

	existing := order.OrderNumber
	svc.normalizeOrder(context.Background(), order)
	assert.Equal(t, existing, order.OrderNumber)

	preset := &models.Order{OrderNumber: "ORD-20250101-ABCDEF"}
	svc.normalizeOrder(context.Background(), preset)
	assert.Equal(t, "ORD-20250101-ABCDEF", preset.OrderNumber)
}

func TestNormalizeFillsSnapshotsFromVariant(t *testing.T) {
	svc, _, _ := newTestOrderService(newFakeCatalog(teeShirtProduct()))

	order := &models.Order{
		Items: []models.OrderItem{
			{ProductID: 1, VariantSKU: "TEE-M", Quantity: 2},
		},
	}
	svc.normalizeOrder(context.Background(), order)

	item := order.Items[0]
	assert.Equal(t, "Basic Tee", item.TitleSnapshot)
	require.NotNil(t, item.UnitPrice)
	assert.Equal(t, int64(95), *item.UnitPrice)
	assert.Equal(t, "Size: M", item.AttributesSummary)
	assert.Equal(t, int64(190), order.Subtotal)
	assert.Equal(t, int64(190), order.Total)
}

func TestNormalizeUnitPriceFallsBackToSaleThenBase(t *testing.T) {
	withSale := teeShirtProduct()
	noSale := giftCardProduct()
	svc, _, _ := newTestOrderService(newFakeCatalog(withSale, noSale))

	order := &models.Order{
		Items: []models.OrderItem{
			{ProductID: 1, Quantity: 1},                     // no variant: sale price
			{ProductID: 2, Quantity: 1},                     // no sale price: base price
			{ProductID: 1, VariantSKU: "NOPE", Quantity: 1}, // unknown SKU: sale price
		},
	}
	svc.normalizeOrder(context.Background(), order)

	require.NotNil(t, order.Items[0].UnitPrice)
	assert.Equal(t, int64(80), *order.Items[0].UnitPrice)
	require.NotNil(t, order.Items[1].UnitPrice)
	assert.Equal(t, int64(500), *order.Items[1].UnitPrice)
	require.NotNil(t, order.Items[2].UnitPrice)
	assert.Equal(t, int64(80), *order.Items[2].UnitPrice)
}

func TestNormalizeNeverOverwritesSnapshots(t *testing.T) {
	svc, _, _ := newTestOrderService(newFakeCatalog(teeShirtProduct()))

	order := &models.Order{
		Items: []models.OrderItem{
			{
				ProductID:         1,
				VariantSKU:        "TEE-S",
				Quantity:          1,
				UnitPrice:         int64Ptr(42),
				TitleSnapshot:     "Old Title",
				AttributesSummary: "Custom",
			},
		},
	}
	svc.normalizeOrder(context.Background(), order)

	item := order.Items[0]
	assert.Equal(t, "Old Title", item.TitleSnapshot)
	assert.Equal(t, int64(42), *item.UnitPrice)
	assert.Equal(t, "Custom", item.AttributesSummary)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	svc, _, _ := newTestOrderService(newFakeCatalog(teeShirtProduct()))

	order := &models.Order{
		OrderNumber: "ORD-20250101-XYZ123",
		Items: []models.OrderItem{
			{ProductID: 1, VariantSKU: "TEE-S", Quantity: 2},
		},
	}
	applyCustomer(order, models.Customer{Name: "Sara", Phone: "0912", Email: "s@example.com"})

	svc.normalizeOrder(context.Background(), order)
	first := *cloneOrder(order)

	svc.normalizeOrder(context.Background(), order)
	assert.Equal(t, first, *cloneOrder(order))
}

func TestNormalizeSwallowsLookupFailures(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.lookupErr = errors.New("store unavailable")
	svc, _, _ := newTestOrderService(catalog)

	order := &models.Order{
		Items: []models.OrderItem{
			{ProductID: 99, Quantity: 1},
		},
	}
	svc.normalizeOrder(context.Background(), order)

	assert.Empty(t, order.Items[0].TitleSnapshot)
	assert.Nil(t, order.Items[0].UnitPrice)
	assert.Equal(t, int64(0), order.Total)
}

func TestComputeSubtotalSkipsInvalidItems(t *testing.T) {
	items := []models.OrderItem{
		{Quantity: 2, UnitPrice: int64Ptr(10)},  // 20
		{Quantity: 0, UnitPrice: int64Ptr(100)}, // skipped
		{Quantity: -3, UnitPrice: int64Ptr(10)}, // skipped
		{Quantity: 1, UnitPrice: int64Ptr(-5)},  // skipped
		{Quantity: 4, UnitPrice: nil},           // skipped
		{Quantity: 3, UnitPrice: int64Ptr(0)},   // 0, valid
	}
	assert.Equal(t, int64(20), computeSubtotal(items))
	assert.Equal(t, int64(0), computeSubtotal(nil))
}

func TestApplyCustomerRecomputesMirrors(t *testing.T) {
	order := &models.Order{CustomerPhone: "old", CustomerEmail: "old@example.com"}
	applyCustomer(order, models.Customer{Name: "Ali", Phone: "0935", Email: "ali@example.com"})

	assert.Equal(t, "Ali", order.CustomerName)
	assert.Equal(t, "0935", order.CustomerPhone)
	assert.Equal(t, "ali@example.com", order.CustomerEmail)
}
