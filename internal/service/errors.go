package service

import (
	"errors"
	"fmt"

	"commerce-cms/internal/i18n"
)

// ErrForbidden is returned when the access policy rejects the acting user.
var ErrForbidden = errors.New("forbidden")

// LocalizedError is implemented by user-correctable errors that carry a
// bilingual message for the API surface.
type LocalizedError interface {
	error
	Localized(loc i18n.Locale) string
}

// Validation error codes.
const (
	CodeInvalidStatus    = "invalid_status"
	CodeItemsRequired    = "items_required"
	CodeInvalidQuantity  = "invalid_quantity"
	CodeInvalidUnitPrice = "invalid_unit_price"
	CodeCustomerRequired = "customer_required"
	CodeVariantRequired  = "variant_sku_required"
	CodeVariantNotFound  = "variant_not_found"
	CodeProductNotFound  = "product_not_found"
	CodeSalePriceTooHigh = "sale_price_above_base"
	CodeNegativeStock    = "negative_stock"
)

// ValidationError is a user-correctable input error.
type ValidationError struct {
	Code    string
	Message i18n.Text
}

func (e *ValidationError) Error() string {
	return e.Message.EN
}

func (e *ValidationError) Localized(loc i18n.Locale) string {
	return e.Message.In(loc)
}

func newValidationError(code string, msg i18n.Text) *ValidationError {
	return &ValidationError{Code: code, Message: msg}
}

func errInvalidStatus(status string) *ValidationError {
	return newValidationError(CodeInvalidStatus, i18n.Tr(
		fmt.Sprintf("invalid order status %q", status),
		fmt.Sprintf("وضعیت سفارش %q نامعتبر است", status),
	))
}

func errItemsRequired() *ValidationError {
	return newValidationError(CodeItemsRequired, i18n.Tr(
		"an order requires at least one item",
		"سفارش باید حداقل یک قلم داشته باشد",
	))
}

func errInvalidQuantity() *ValidationError {
	return newValidationError(CodeInvalidQuantity, i18n.Tr(
		"item quantity must be at least 1",
		"تعداد هر قلم باید حداقل ۱ باشد",
	))
}

func errInvalidUnitPrice() *ValidationError {
	return newValidationError(CodeInvalidUnitPrice, i18n.Tr(
		"item unit price cannot be negative",
		"قیمت واحد قلم نمی‌تواند منفی باشد",
	))
}

func errCustomerRequired() *ValidationError {
	return newValidationError(CodeCustomerRequired, i18n.Tr(
		"customer name and phone are required",
		"نام و شماره تلفن مشتری الزامی است",
	))
}

func errVariantRequired(productTitle string) *ValidationError {
	return newValidationError(CodeVariantRequired, i18n.Tr(
		fmt.Sprintf("variant SKU is required for paid orders on %q", productTitle),
		fmt.Sprintf("برای پرداخت سفارش محصول «%s» انتخاب تنوع (SKU) الزامی است", productTitle),
	))
}

func errVariantNotFound(productTitle, sku string) *ValidationError {
	return newValidationError(CodeVariantNotFound, i18n.Tr(
		fmt.Sprintf("variant %q not found on product %q", sku, productTitle),
		fmt.Sprintf("تنوع «%s» در محصول «%s» یافت نشد", sku, productTitle),
	))
}

func errProductNotFound(productID int64) *ValidationError {
	return newValidationError(CodeProductNotFound, i18n.Tr(
		fmt.Sprintf("product %d not found", productID),
		fmt.Sprintf("محصول %d یافت نشد", productID),
	))
}

func errSalePriceAboveBase() *ValidationError {
	return newValidationError(CodeSalePriceTooHigh, i18n.Tr(
		"salePrice must be less than or equal to basePrice",
		"قیمت فروش باید کمتر یا مساوی قیمت پایه باشد",
	))
}

func errNegativeStock() *ValidationError {
	return newValidationError(CodeNegativeStock, i18n.Tr(
		"stock cannot be negative",
		"موجودی نمی‌تواند منفی باشد",
	))
}

// InsufficientStockError reports a decrement that exceeds available stock.
type InsufficientStockError struct {
	ProductID  int64
	VariantSKU string
	Available  int
	Required   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for variant %q: available=%d, required=%d",
		e.VariantSKU, e.Available, e.Required)
}

func (e *InsufficientStockError) Localized(loc i18n.Locale) string {
	if loc == i18n.LocaleFA {
		return fmt.Sprintf("موجودی تنوع «%s» کافی نیست: موجودی %d، موردنیاز %d",
			e.VariantSKU, e.Available, e.Required)
	}
	return e.Error()
}
