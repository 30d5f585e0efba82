package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"commerce-cms/internal/models"

	"go.uber.org/zap"
)

const orderNumberAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateOrderNumber produces ORD-YYYYMMDD-XXXXXX (UTC date, 6 random
// base36 uppercase characters).
func GenerateOrderNumber(now time.Time) string {
	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = orderNumberAlphabet[rand.Intn(len(orderNumberAlphabet))]
	}
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), suffix)
}

// normalizeOrder derives generated and snapshot fields in place:
//   - orderNumber is generated only when empty, never regenerated
//   - item snapshots (title, unit price, attributes summary) are filled from
//     the catalog when unset; lookup failures are logged and swallowed so
//     downstream required-field validation can reject still-missing fields
//   - subtotal/total are recomputed from the items, never trusted from input
//
// Running it twice on the same data yields the same result.
func (s *OrderService) normalizeOrder(ctx context.Context, order *models.Order) {
	if order.OrderNumber == "" {
		order.OrderNumber = GenerateOrderNumber(time.Now())
	}

	for i := range order.Items {
		item := &order.Items[i]
		if item.TitleSnapshot != "" && item.UnitPrice != nil && item.AttributesSummary != "" {
			continue
		}

		product, err := s.catalog.GetProductByID(ctx, item.ProductID)
		if err != nil || product == nil {
			s.logger.Warn("product lookup failed during order normalization",
				zap.Int64("product_id", item.ProductID),
				zap.Error(err))
			continue
		}

		variant := findVariantBySKU(product, item.VariantSKU)

		if item.TitleSnapshot == "" {
			item.TitleSnapshot = product.Title
		}
		if item.UnitPrice == nil {
			price := resolveUnitPrice(product, variant)
			item.UnitPrice = &price
		}
		if item.AttributesSummary == "" && variant != nil {
			item.AttributesSummary = variant.AttributesSummary
		}
	}

	subtotal := computeSubtotal(order.Items)
	order.Subtotal = subtotal
	order.Total = subtotal
}

// resolveUnitPrice: matched variant price, else sale price, else base price.
func resolveUnitPrice(product *models.Product, variant *models.ProductVariant) int64 {
	if variant != nil {
		return variant.Price
	}
	if product.SalePrice != nil {
		return *product.SalePrice
	}
	return product.BasePrice
}

func findVariantBySKU(product *models.Product, sku string) *models.ProductVariant {
	if sku == "" {
		return nil
	}
	for i := range product.Variants {
		if product.Variants[i].SKU == sku {
			return &product.Variants[i]
		}
	}
	return nil
}

// computeSubtotal sums quantity*unitPrice over structurally valid items.
// Items with a non-positive quantity, a missing unit price, or a negative
// unit price contribute zero; they are skipped, not rejected.
func computeSubtotal(items []models.OrderItem) int64 {
	var sum int64
	for _, item := range items {
		if item.Quantity <= 0 || item.UnitPrice == nil || *item.UnitPrice < 0 {
			continue
		}
		sum += int64(item.Quantity) * *item.UnitPrice
	}
	return sum
}

// applyCustomer writes the customer group into the order, recomputing the
// denormalized phone/email mirror columns.
func applyCustomer(order *models.Order, customer models.Customer) {
	order.CustomerName = customer.Name
	order.CustomerPhone = customer.Phone
	order.CustomerEmail = customer.Email
}
