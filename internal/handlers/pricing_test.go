package handlers

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

func TestEffectiveProductPriceUsesSalePriceWhenOnSale(t *testing.T) {
	if got := effectiveProductPrice(100, true, 75); got != 75 {
		t.Fatalf("expected sale price 75, got %v", got)
	}
	if got := effectiveProductPrice(100, false, 75); got != 100 {
		t.Fatalf("expected regular price 100 when sale disabled, got %v", got)
	}
	if got := effectiveProductPrice(100, true, 120); got != 100 {
		t.Fatalf("expected regular price 100 when sale price exceeds price, got %v", got)
	}
}

func TestResolveUnitPriceVariantOverridesBasePrice(t *testing.T) {
	product := models.Product{Price: 49.90}
	variant := models.ProductVariant{ID: primitive.NewObjectID(), Price: 59.90}

	if got := resolveUnitPrice(product, &variant); got != 59.90 {
		t.Fatalf("expected variant price 59.90, got %v", got)
	}
	if got := resolveUnitPrice(product, nil); got != 49.90 {
		t.Fatalf("expected base price 49.90, got %v", got)
	}
}

func TestResolveUnitPriceWithoutVariantIsSaleAware(t *testing.T) {
	product := models.Product{Price: 100, SaleEnabled: true, SalePrice: 80}

	if got := resolveUnitPrice(product, nil); got != 80 {
		t.Fatalf("expected sale price 80, got %v", got)
	}
}

func TestComputeOrderTotal(t *testing.T) {
	items := []models.OrderItem{
		{Price: 89.90, Quantity: 2},
	}
	if got := computeOrderTotal(items); got != 179.80 {
		t.Fatalf("expected total 179.80, got %v", got)
	}

	items = append(items, models.OrderItem{Price: 0.10, Quantity: 3})
	if got := computeOrderTotal(items); got != 180.10 {
		t.Fatalf("expected total 180.10, got %v", got)
	}
}

func TestComputeOrderTotalEmpty(t *testing.T) {
	if got := computeOrderTotal(nil); got != 0 {
		t.Fatalf("expected zero total for no items, got %v", got)
	}
}

func TestValidateSaleFields(t *testing.T) {
	if err := validateSaleFields(100, false, 0); err != nil {
		t.Fatalf("expected no error when sale disabled, got %v", err)
	}
	if err := validateSaleFields(100, true, 0); err == nil {
		t.Fatal("expected error for missing sale price")
	}
	if err := validateSaleFields(100, true, 100); err == nil {
		t.Fatal("expected error for salePrice >= price")
	}
	if err := validateSaleFields(100, true, 80); err != nil {
		t.Fatalf("expected no error for valid sale, got %v", err)
	}
}
