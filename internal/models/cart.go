package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CartItem is one (product, optional variant, quantity) line in a cart.
// A cart holds at most one item per (productId, variantId) pair; adding the
// same pair again merges into the existing line.
type CartItem struct {
	ID        primitive.ObjectID  `bson:"id" json:"id"`
	ProductID primitive.ObjectID  `bson:"productId" json:"productId"`
	VariantID *primitive.ObjectID `bson:"variantId,omitempty" json:"variantId,omitempty"`
	Quantity  int                 `bson:"quantity" json:"quantity"`
}

// Cart is the single pending cart document for a user, created lazily on
// first access.
type Cart struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Items     []CartItem         `bson:"items" json:"items"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ItemByID finds a cart line, nil when the id is not in this cart.
func (c *Cart) ItemByID(id primitive.ObjectID) *CartItem {
	for i := range c.Items {
		if c.Items[i].ID == id {
			return &c.Items[i]
		}
	}
	return nil
}

// FindLine returns the line matching the (product, variant) pair, nil when no
// such line exists.
func (c *Cart) FindLine(productID primitive.ObjectID, variantID *primitive.ObjectID) *CartItem {
	for i := range c.Items {
		item := &c.Items[i]
		if item.ProductID != productID {
			continue
		}
		if sameVariant(item.VariantID, variantID) {
			return item
		}
	}
	return nil
}

func sameVariant(a, b *primitive.ObjectID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
