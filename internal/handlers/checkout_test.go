package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

func TestOrderItemPriceFrozenAgainstLaterEdits(t *testing.T) {
	product := models.Product{
		ID:    primitive.NewObjectID(),
		Name:  "Olive Oil",
		Price: 89.90,
	}

	item := models.OrderItem{
		ProductID: product.ID,
		Name:      product.Name,
		Price:     resolveUnitPrice(product, nil),
		Quantity:  2,
	}

	product.Price = 129.90
	product.SaleEnabled = true
	product.SalePrice = 50

	if item.Price != 89.90 {
		t.Fatalf("expected frozen price 89.90, got %v", item.Price)
	}
	if got := computeOrderTotal([]models.OrderItem{item}); got != 179.80 {
		t.Fatalf("expected total 179.80, got %v", got)
	}
}

func TestOrderItemFreezesVariantPrice(t *testing.T) {
	variant := models.ProductVariant{ID: primitive.NewObjectID(), Price: 24.50, Stock: 10}
	product := models.Product{
		ID:       primitive.NewObjectID(),
		Name:     "Shirt",
		Price:    19.90,
		Variants: []models.ProductVariant{variant},
	}

	item := models.OrderItem{
		ProductID: product.ID,
		VariantID: &variant.ID,
		Name:      product.Name,
		Price:     resolveUnitPrice(product, &variant),
		Quantity:  3,
	}

	product.Variants[0].Price = 99.99

	if item.Price != 24.50 {
		t.Fatalf("expected frozen variant price 24.50, got %v", item.Price)
	}
}

func TestInsufficientStockErrorNamesProduct(t *testing.T) {
	err := insufficientStockError{ProductName: "Sneaker", Available: 3, Requested: 5}
	if !strings.Contains(err.Error(), "Sneaker") {
		t.Fatalf("expected error to name the product, got %q", err.Error())
	}
}

func TestEmptyCartErrorMessage(t *testing.T) {
	if got := (emptyCartError{}).Error(); got != "cart is empty" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestVariantStockDecrementShape(t *testing.T) {
	productID := primitive.NewObjectID()
	variantID := primitive.NewObjectID()

	filter, update := variantStockDecrement(productID, variantID, 4)

	if filter["_id"] != productID {
		t.Fatalf("expected filter on product %s, got %v", productID.Hex(), filter["_id"])
	}
	notDeleted, ok := filter["isDeleted"].(bson.M)
	if !ok || notDeleted["$ne"] != true {
		t.Fatalf("expected isDeleted $ne true, got %v", filter["isDeleted"])
	}
	elemMatch, ok := filter["variants"].(bson.M)["$elemMatch"].(bson.M)
	if !ok {
		t.Fatalf("expected $elemMatch on variants, got %v", filter["variants"])
	}
	if elemMatch["id"] != variantID {
		t.Fatalf("expected variant id %s, got %v", variantID.Hex(), elemMatch["id"])
	}
	stock, ok := elemMatch["stock"].(bson.M)
	if !ok || stock["$gte"] != 4 {
		t.Fatalf("expected stock $gte 4, got %v", elemMatch["stock"])
	}

	inc, ok := update["$inc"].(bson.M)
	if !ok || inc["variants.$.stock"] != -4 {
		t.Fatalf("expected positional $inc of -4, got %v", update["$inc"])
	}
}

func TestRemoveCartLinesPullsOnlyGivenLines(t *testing.T) {
	lineIDs := []primitive.ObjectID{primitive.NewObjectID(), primitive.NewObjectID()}

	update := removeCartLines(lineIDs)

	pull, ok := update["$pull"].(bson.M)
	if !ok {
		t.Fatalf("expected $pull update, got %v", update)
	}
	in, ok := pull["items"].(bson.M)["id"].(bson.M)["$in"].([]primitive.ObjectID)
	if !ok || len(in) != 2 || in[0] != lineIDs[0] || in[1] != lineIDs[1] {
		t.Fatalf("expected $pull limited to line ids %v, got %v", lineIDs, pull)
	}
	set, ok := update["$set"].(bson.M)
	if !ok {
		t.Fatalf("expected $set update, got %v", update)
	}
	if _, ok := set["updatedAt"]; !ok {
		t.Fatalf("expected updatedAt to be refreshed, got %v", set)
	}
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	var body struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
	return body.Status, body.Message
}

func TestRespondCheckoutErrorStatusMapping(t *testing.T) {
	productID := primitive.NewObjectID()
	variantID := primitive.NewObjectID()

	cases := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "empty cart",
			err:         emptyCartError{},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "cart is empty",
		},
		{
			name:        "insufficient stock names product",
			err:         insufficientStockError{ProductName: "Sneaker", Available: 1, Requested: 3},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Sneaker",
		},
		{
			name:        "variant required",
			err:         variantRequiredError{ProductName: "Shirt"},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Shirt",
		},
		{
			name:        "product gone",
			err:         productNotFoundError{ProductID: productID},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "no longer available",
		},
		{
			name:        "variant gone",
			err:         variantNotFoundError{ProductID: productID, VariantID: variantID},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "no longer available",
		},
		{
			name:        "deadline exceeded is retryable",
			err:         context.DeadlineExceeded,
			wantStatus:  http.StatusServiceUnavailable,
			wantMessage: "retry",
		},
		{
			name:        "unknown errors stay opaque",
			err:         errors.New("connection reset"),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "db error",
		},
	}

	gin.SetMode(gin.TestMode)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/orders", nil)

			respondCheckoutError(c, nil, "ORDER", tc.err)

			if w.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, w.Code)
			}
			status, message := decodeEnvelope(t, w)
			if status != "error" {
				t.Fatalf("expected error envelope, got status %q", status)
			}
			if !strings.Contains(message, tc.wantMessage) {
				t.Fatalf("expected message containing %q, got %q", tc.wantMessage, message)
			}
		})
	}
}
