package service

import (
	"context"
	"errors"

	"commerce-cms/internal/models"
	"commerce-cms/internal/store"
	"commerce-cms/internal/util"

	"go.uber.org/zap"
)

// StockEngine decrements catalog stock for a paid transition. It is invoked
// exactly once per transition into paid; the caller owns that gating.
type StockEngine struct {
	catalog CatalogStore
	logger  *zap.Logger

	// OnPartialApply is invoked when one product's decrements were already
	// committed and a later product in the same order fails. The order save
	// is aborted, but committed decrements are not reversed; this hook is
	// the compensation point for callers that want to restock.
	OnPartialApply func(ctx context.Context, applied []store.AppliedDecrement, cause error)
}

// NewStockEngine creates a stock engine
func NewStockEngine(catalog CatalogStore) *StockEngine {
	return &StockEngine{
		catalog: catalog,
		logger:  util.GetLogger(),
	}
}

// productRequest is the aggregated demand of one order against one product:
// total requested quantity per variant SKU. The empty SKU key means the
// item carried no variant.
type productRequest struct {
	productID int64
	perSKU    map[string]int
	skuOrder  []string
}

// aggregateItems groups items by product and sums quantities per variant
// SKU, so two lines referencing the same SKU decrement once by the sum.
// First-seen ordering keeps the decrement sequence deterministic.
func aggregateItems(items []models.OrderItem) []*productRequest {
	var requests []*productRequest
	byProduct := make(map[int64]*productRequest)

	for _, item := range items {
		req, ok := byProduct[item.ProductID]
		if !ok {
			req = &productRequest{productID: item.ProductID, perSKU: make(map[string]int)}
			byProduct[item.ProductID] = req
			requests = append(requests, req)
		}
		if _, seen := req.perSKU[item.VariantSKU]; !seen {
			req.skuOrder = append(req.skuOrder, item.VariantSKU)
		}
		req.perSKU[item.VariantSKU] += item.Quantity
	}

	return requests
}

// DecrementForPaidTransition validates and applies stock decrements for all
// items of an order transitioning into paid. Per product, all decrements
// are committed in one transaction; across products there is no shared
// transaction, so a failure on a later product leaves earlier products
// decremented (surfaced through OnPartialApply).
func (e *StockEngine) DecrementForPaidTransition(ctx context.Context, orderID int64, items []models.OrderItem) ([]store.AppliedDecrement, error) {
	ctx, span := util.StartSpan(ctx, "StockEngine.DecrementForPaidTransition")
	defer span.End()

	var applied []store.AppliedDecrement

	for _, req := range aggregateItems(items) {
		product, err := e.catalog.GetProductByID(ctx, req.productID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			// Only a confirmed missing row is user-correctable; anything
			// else is an infrastructure failure and propagates as such.
			util.StockDecrementsFailedTotal.WithLabelValues("store_error").Inc()
			return applied, e.fail(ctx, applied, err)
		}
		if err != nil || product == nil {
			util.StockDecrementsFailedTotal.WithLabelValues("product_not_found").Inc()
			return applied, e.fail(ctx, applied, errProductNotFound(req.productID))
		}

		// Products without variants are not stock-tracked.
		if len(product.Variants) == 0 {
			continue
		}

		plan := make([]store.StockDecrement, 0, len(req.skuOrder))
		for _, sku := range req.skuOrder {
			quantity := req.perSKU[sku]

			// A non-positive quantity would invert the guarded decrement
			// into an increment; refuse it before touching the store.
			if quantity < 1 {
				util.StockDecrementsFailedTotal.WithLabelValues("invalid_quantity").Inc()
				return applied, e.fail(ctx, applied, errInvalidQuantity())
			}

			if sku == "" {
				util.StockDecrementsFailedTotal.WithLabelValues("variant_required").Inc()
				return applied, e.fail(ctx, applied, errVariantRequired(product.Title))
			}

			variant := findVariantBySKU(product, sku)
			if variant == nil {
				util.StockDecrementsFailedTotal.WithLabelValues("variant_not_found").Inc()
				return applied, e.fail(ctx, applied, errVariantNotFound(product.Title, sku))
			}

			// Untracked stock: nothing to decrement, not an error.
			if variant.Stock == nil {
				continue
			}

			if *variant.Stock < quantity {
				util.StockDecrementsFailedTotal.WithLabelValues("insufficient_stock").Inc()
				return applied, e.fail(ctx, applied, &InsufficientStockError{
					ProductID:  product.ID,
					VariantSKU: sku,
					Available:  *variant.Stock,
					Required:   quantity,
				})
			}

			plan = append(plan, store.StockDecrement{VariantSKU: sku, Quantity: quantity})
		}

		if len(plan) == 0 {
			continue
		}

		committed, err := e.catalog.ApplyStockDecrements(ctx, product.ID, plan)
		if err != nil {
			// A concurrent paid transition may have consumed the stock we
			// validated against; the guarded UPDATE rolled the product back.
			var conflict *store.StockConflictError
			if errors.As(err, &conflict) {
				util.StockDecrementsFailedTotal.WithLabelValues("insufficient_stock").Inc()
				return applied, e.fail(ctx, applied, &InsufficientStockError{
					ProductID:  conflict.ProductID,
					VariantSKU: conflict.VariantSKU,
					Available:  conflict.Available,
					Required:   conflict.Requested,
				})
			}
			util.StockDecrementsFailedTotal.WithLabelValues("store_error").Inc()
			return applied, e.fail(ctx, applied, err)
		}

		applied = append(applied, committed...)
		util.StockDecrementsTotal.Add(float64(len(committed)))

		e.logger.Info("Stock decremented",
			zap.Int64("order_id", orderID),
			zap.Int64("product_id", product.ID),
			zap.Int("variants", len(committed)))
	}

	return applied, nil
}

// fail reports a partial application when earlier products were already
// committed, then returns the causing error unchanged.
func (e *StockEngine) fail(ctx context.Context, applied []store.AppliedDecrement, cause error) error {
	if len(applied) > 0 {
		util.StockPartialApplicationsTotal.Inc()
		e.logger.Warn("Stock decrement aborted after partial application",
			zap.Int("applied_decrements", len(applied)),
			zap.Error(cause))
		if e.OnPartialApply != nil {
			e.OnPartialApply(ctx, applied, cause)
		}
	}
	return cause
}
