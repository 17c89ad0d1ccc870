package handlers

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Domain errors crossing the checkout transaction boundary. Handlers match
// them with errors.As and map them onto the response envelope.

type productNotFoundError struct {
	ProductID primitive.ObjectID
}

func (e productNotFoundError) Error() string {
	return fmt.Sprintf("product not found: %s", e.ProductID.Hex())
}

type variantNotFoundError struct {
	ProductID primitive.ObjectID
	VariantID primitive.ObjectID
}

func (e variantNotFoundError) Error() string {
	return fmt.Sprintf("variant %s not found on product %s", e.VariantID.Hex(), e.ProductID.Hex())
}

// insufficientStockError always carries the product name so the response can
// tell the shopper which line failed.
type insufficientStockError struct {
	ProductName string
	Available   int
	Requested   int
}

func (e insufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: %d available, %d requested", e.ProductName, e.Available, e.Requested)
}

type variantRequiredError struct {
	ProductName string
}

func (e variantRequiredError) Error() string {
	return fmt.Sprintf("a variant must be selected for %q", e.ProductName)
}

type emptyCartError struct{}

func (e emptyCartError) Error() string {
	return "cart is empty"
}
