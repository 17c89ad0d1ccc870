package handlers

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

func TestMergeCartLineMergesSamePair(t *testing.T) {
	productID := primitive.NewObjectID()
	variantID := primitive.NewObjectID()

	items, total := mergeCartLine(nil, productID, &variantID, 2)
	if len(items) != 1 || total != 2 {
		t.Fatalf("expected one line with quantity 2, got %d lines, total %d", len(items), total)
	}

	items, total = mergeCartLine(items, productID, &variantID, 3)
	if len(items) != 1 {
		t.Fatalf("expected merge into a single line, got %d lines", len(items))
	}
	if total != 5 || items[0].Quantity != 5 {
		t.Fatalf("expected merged quantity 5, got line %d total %d", items[0].Quantity, total)
	}
}

func TestMergeCartLineKeepsDistinctVariantsApart(t *testing.T) {
	productID := primitive.NewObjectID()
	red := primitive.NewObjectID()
	blue := primitive.NewObjectID()

	items, _ := mergeCartLine(nil, productID, &red, 1)
	items, _ = mergeCartLine(items, productID, &blue, 1)
	items, _ = mergeCartLine(items, productID, nil, 1)

	if len(items) != 3 {
		t.Fatalf("expected three distinct lines, got %d", len(items))
	}
}

func TestMergeCartLineMergesNilVariantPairs(t *testing.T) {
	productID := primitive.NewObjectID()

	items, _ := mergeCartLine(nil, productID, nil, 1)
	items, total := mergeCartLine(items, productID, nil, 4)

	if len(items) != 1 || total != 5 {
		t.Fatalf("expected one variant-less line with quantity 5, got %d lines, total %d", len(items), total)
	}
}

func TestResolveCartVariantRequiredWhenProductHasVariants(t *testing.T) {
	product := models.Product{
		Name: "Shirt",
		Variants: []models.ProductVariant{
			{ID: primitive.NewObjectID(), Stock: 5, Price: 10},
			{ID: primitive.NewObjectID(), Stock: 5, Price: 10},
		},
	}

	_, err := resolveCartVariant(product, nil, 1)
	var required variantRequiredError
	if !errors.As(err, &required) {
		t.Fatalf("expected variantRequiredError, got %v", err)
	}
	if required.ProductName != "Shirt" {
		t.Fatalf("expected error to name the product, got %q", required.ProductName)
	}
}

func TestResolveCartVariantNoVariantsUnconstrained(t *testing.T) {
	product := models.Product{Name: "Rice"}

	variant, err := resolveCartVariant(product, nil, 1000)
	if err != nil {
		t.Fatalf("expected no error for variant-less product, got %v", err)
	}
	if variant != nil {
		t.Fatal("expected nil variant for variant-less product")
	}
}

func TestResolveCartVariantInsufficientStock(t *testing.T) {
	variantID := primitive.NewObjectID()
	product := models.Product{
		Name: "Sneaker",
		Variants: []models.ProductVariant{
			{ID: variantID, Stock: 3, Price: 10},
		},
	}

	_, err := resolveCartVariant(product, &variantID, 5)
	var stockErr insufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected insufficientStockError, got %v", err)
	}
	if stockErr.ProductName != "Sneaker" || stockErr.Available != 3 || stockErr.Requested != 5 {
		t.Fatalf("unexpected error detail: %+v", stockErr)
	}

	if _, err := resolveCartVariant(product, &variantID, 3); err != nil {
		t.Fatalf("expected quantity equal to stock to pass, got %v", err)
	}
}

func TestResolveCartVariantUnknownVariant(t *testing.T) {
	product := models.Product{
		ID:   primitive.NewObjectID(),
		Name: "Sneaker",
		Variants: []models.ProductVariant{
			{ID: primitive.NewObjectID(), Stock: 3, Price: 10},
		},
	}
	other := primitive.NewObjectID()

	_, err := resolveCartVariant(product, &other, 1)
	var notFound variantNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected variantNotFoundError, got %v", err)
	}
}

func TestCartFindLineMatchesVariantPair(t *testing.T) {
	productID := primitive.NewObjectID()
	variantID := primitive.NewObjectID()
	cart := models.Cart{
		Items: []models.CartItem{
			{ID: primitive.NewObjectID(), ProductID: productID, VariantID: &variantID, Quantity: 1},
		},
	}

	if cart.FindLine(productID, &variantID) == nil {
		t.Fatal("expected line for matching (product, variant) pair")
	}
	if cart.FindLine(productID, nil) != nil {
		t.Fatal("expected no line when variant differs")
	}
	other := primitive.NewObjectID()
	if cart.FindLine(productID, &other) != nil {
		t.Fatal("expected no line for unknown variant")
	}
}
