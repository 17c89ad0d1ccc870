package handlers

import (
	"fmt"
	"math"

	"storefront/internal/models"
)

func isProductOnSale(price float64, saleEnabled bool, salePrice float64) bool {
	return saleEnabled && salePrice > 0 && salePrice < price
}

func effectiveProductPrice(price float64, saleEnabled bool, salePrice float64) float64 {
	if isProductOnSale(price, saleEnabled, salePrice) {
		return salePrice
	}
	return price
}

// resolveUnitPrice returns the authoritative unit price for a line: the
// variant price when a variant is attached, otherwise the product's
// sale-aware base price.
func resolveUnitPrice(product models.Product, variant *models.ProductVariant) float64 {
	if variant != nil {
		return variant.Price
	}
	return effectiveProductPrice(product.Price, product.SaleEnabled, product.SalePrice)
}

// roundCurrency keeps totals at two decimal places so per-line float sums
// cannot drift past currency precision.
func roundCurrency(value float64) float64 {
	return math.Round(value*100) / 100
}

func computeOrderTotal(items []models.OrderItem) float64 {
	total := 0.0
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}
	return roundCurrency(total)
}

func validateSaleFields(price float64, saleEnabled bool, salePrice float64) error {
	if !saleEnabled {
		return nil
	}
	if salePrice <= 0 {
		return fmt.Errorf("salePrice must be greater than 0")
	}
	if salePrice >= price {
		return fmt.Errorf("salePrice must be less than price")
	}
	return nil
}
