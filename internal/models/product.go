package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProductVariant is a purchasable configuration of a product (e.g. color/size).
// When a product has variants, one of them must be chosen to buy the product,
// and the variant price overrides the product price.
type ProductVariant struct {
	ID         primitive.ObjectID `bson:"id" json:"id"`
	Attributes map[string]string  `bson:"attributes" json:"attributes"`
	Price      float64            `bson:"price" json:"price"`
	Stock      int                `bson:"stock" json:"stock"`
}

type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Price       float64            `bson:"price" json:"price"`
	SaleEnabled bool               `bson:"saleEnabled" json:"saleEnabled"`
	SalePrice   float64            `bson:"salePrice" json:"salePrice"`
	IsOnSale    bool               `bson:"-" json:"isOnSale"`
	Category    []string           `bson:"category" json:"category"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Brand       string             `bson:"brand,omitempty" json:"brand,omitempty"`
	Variants    []ProductVariant   `bson:"variants" json:"variants"`
	IsActive    bool               `bson:"isActive" json:"isActive"`
	IsDeleted   bool               `bson:"isDeleted" json:"isDeleted,omitempty"`
	DeletedAt   *time.Time         `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}

// VariantByID finds an embedded variant, nil when the id is not on this product.
func (p *Product) VariantByID(id primitive.ObjectID) *ProductVariant {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i]
		}
	}
	return nil
}
