package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order statuses. Every order starts as PENDING; later transitions are
// admin-driven and intentionally unrestricted.
const (
	OrderStatusPending    = "PENDING"
	OrderStatusProcessing = "PROCESSING"
	OrderStatusSent       = "SENT"
	OrderStatusDelivered  = "DELIVERED"
	OrderStatusCancelled  = "CANCELLED"
)

var orderStatuses = map[string]struct{}{
	OrderStatusPending:    {},
	OrderStatusProcessing: {},
	OrderStatusSent:       {},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

// ParseOrderStatus normalizes and validates a status value.
func ParseOrderStatus(value string) (string, error) {
	status := strings.ToUpper(strings.TrimSpace(value))
	if _, ok := orderStatuses[status]; !ok {
		return "", fmt.Errorf("invalid order status: %q", value)
	}
	return status, nil
}

// OrderItem is a frozen snapshot of a cart line at checkout time. Price and
// quantity never change after the order is written, regardless of later
// product or variant edits.
type OrderItem struct {
	ProductID primitive.ObjectID  `bson:"productId" json:"productId"`
	VariantID *primitive.ObjectID `bson:"variantId,omitempty" json:"variantId,omitempty"`
	Name      string              `bson:"name" json:"name"`
	Price     float64             `bson:"price" json:"price"`
	Quantity  int                 `bson:"quantity" json:"quantity"`
}

// Order defines the persisted order document. Header fields are immutable
// after insert except Status.
type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID          primitive.ObjectID `bson:"userId" json:"userId"`
	Items           []OrderItem        `bson:"items" json:"items"`
	TotalPrice      float64            `bson:"totalPrice" json:"totalPrice"`
	ShippingName    string             `bson:"shippingName" json:"shippingName"`
	ShippingAddress string             `bson:"shippingAddress" json:"shippingAddress"`
	ShippingPhone   string             `bson:"shippingPhone,omitempty" json:"shippingPhone,omitempty"`
	Status          string             `bson:"status" json:"status"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
}
