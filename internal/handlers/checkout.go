package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/metrics"
	"storefront/internal/models"
)

type createOrderRequest struct {
	ShippingName    string `json:"shippingName" binding:"required"`
	ShippingAddress string `json:"shippingAddress" binding:"required"`
	ShippingPhone   string `json:"shippingPhone"`
}

// variantStockDecrement builds the conditional update for one line: the
// $elemMatch guard on (variant id, enough stock) and the $inc run as a single
// read-modify-write, so two concurrent checkouts can never both pass for the
// last units.
func variantStockDecrement(productID, variantID primitive.ObjectID, quantity int) (bson.M, bson.M) {
	filter := bson.M{
		"_id":       productID,
		"isDeleted": bson.M{"$ne": true},
		"variants": bson.M{
			"$elemMatch": bson.M{
				"id":    variantID,
				"stock": bson.M{"$gte": quantity},
			},
		},
	}
	update := bson.M{"$inc": bson.M{"variants.$.stock": -quantity}}
	return filter, update
}

// decrementVariantStock applies the conditional decrement. A matched count of
// zero after the variant was already resolved means the stock moved under us.
func decrementVariantStock(ctx context.Context, db *mongo.Database, productID, variantID primitive.ObjectID, quantity int) (bool, error) {
	filter, update := variantStockDecrement(productID, variantID, quantity)

	res, err := db.Collection("products").UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// removeCartLines builds the update that deletes exactly the ordered lines
// from a cart. Pulling by id instead of overwriting the array means a line
// the user adds while the checkout commits survives.
func removeCartLines(itemIDs []primitive.ObjectID) bson.M {
	return bson.M{
		"$pull": bson.M{"items": bson.M{"id": bson.M{"$in": itemIDs}}},
		"$set":  bson.M{"updatedAt": time.Now()},
	}
}

// materializeOrder turns the user's cart into a persisted order. It runs
// inside a session transaction: the cart read, price resolution, conditional
// stock decrements, the order insert and the removal of the ordered cart
// lines all commit or roll back together.
func materializeOrder(sessCtx mongo.SessionContext, db *mongo.Database, userID primitive.ObjectID, order models.Order) (primitive.ObjectID, error) {
	var cart models.Cart
	err := db.Collection("carts").FindOne(sessCtx, bson.M{"userId": userID}).Decode(&cart)
	if err == mongo.ErrNoDocuments {
		return primitive.NilObjectID, emptyCartError{}
	}
	if err != nil {
		return primitive.NilObjectID, err
	}
	if len(cart.Items) == 0 {
		return primitive.NilObjectID, emptyCartError{}
	}

	items := make([]models.OrderItem, 0, len(cart.Items))
	lineIDs := make([]primitive.ObjectID, 0, len(cart.Items))

	for _, line := range cart.Items {
		product, err := findActiveProduct(sessCtx, db, line.ProductID)
		if err != nil {
			return primitive.NilObjectID, err
		}

		var variant *models.ProductVariant
		if line.VariantID != nil {
			variant = product.VariantByID(*line.VariantID)
			if variant == nil {
				return primitive.NilObjectID, variantNotFoundError{
					ProductID: product.ID,
					VariantID: *line.VariantID,
				}
			}

			ok, err := decrementVariantStock(sessCtx, db, product.ID, *line.VariantID, line.Quantity)
			if err != nil {
				return primitive.NilObjectID, err
			}
			if !ok {
				return primitive.NilObjectID, insufficientStockError{
					ProductName: product.Name,
					Available:   variant.Stock,
					Requested:   line.Quantity,
				}
			}
		} else if len(product.Variants) > 0 {
			return primitive.NilObjectID, variantRequiredError{ProductName: product.Name}
		}

		items = append(items, models.OrderItem{
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Name:      product.Name,
			Price:     resolveUnitPrice(product, variant),
			Quantity:  line.Quantity,
		})
		lineIDs = append(lineIDs, line.ID)
	}

	order.Items = items
	order.TotalPrice = computeOrderTotal(items)

	res, err := db.Collection("orders").InsertOne(sessCtx, order)
	if err != nil {
		return primitive.NilObjectID, err
	}
	orderID, _ := res.InsertedID.(primitive.ObjectID)

	if _, err := db.Collection("carts").UpdateByID(sessCtx, cart.ID, removeCartLines(lineIDs)); err != nil {
		return primitive.NilObjectID, err
	}

	return orderID, nil
}

// POST /orders
func CreateOrder(db *mongo.Database, m *metrics.ServerMetrics, checkoutTimeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders"
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		userID := c.MustGet("userId").(primitive.ObjectID)

		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			m.ObserveCheckout(metrics.CheckoutInvalid)
			respondValidationError(c, route, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), checkoutTimeout)
		defer cancel()

		order := models.Order{
			UserID:          userID,
			ShippingName:    strings.TrimSpace(req.ShippingName),
			ShippingAddress: strings.TrimSpace(req.ShippingAddress),
			ShippingPhone:   strings.TrimSpace(req.ShippingPhone),
			Status:          models.OrderStatusPending,
			CreatedAt:       time.Now(),
		}

		session, err := db.Client().StartSession()
		if err != nil {
			m.ObserveCheckout(metrics.CheckoutError)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer session.EndSession(ctx)

		var orderID primitive.ObjectID
		_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
			id, err := materializeOrder(sessCtx, db, userID, order)
			if err != nil {
				return nil, err
			}
			orderID = id
			return nil, nil
		})
		if err != nil {
			respondCheckoutError(c, m, route, err)
			return
		}

		var created models.Order
		if err := db.Collection("orders").FindOne(ctx, bson.M{"_id": orderID}).Decode(&created); err != nil {
			log.Println("[ORDER] [ERROR] created order re-read failed:", err)
			m.ObserveCheckout(metrics.CheckoutError)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		m.ObserveCheckout(metrics.CheckoutCreated)
		log.Println("[ORDER] [INFO] order created:", created.ID.Hex(), "user:", userID.Hex())
		respondCreated(c, created)
	}
}

func respondCheckoutError(c *gin.Context, m *metrics.ServerMetrics, route string, err error) {
	var emptyCart emptyCartError
	if errors.As(err, &emptyCart) {
		m.ObserveCheckout(metrics.CheckoutEmptyCart)
		respondError(c, http.StatusBadRequest, route, emptyCart.Error())
		return
	}
	var stockErr insufficientStockError
	if errors.As(err, &stockErr) {
		m.ObserveCheckout(metrics.CheckoutInsufficientStock)
		respondError(c, http.StatusBadRequest, route, stockErr.Error())
		return
	}
	var variantReq variantRequiredError
	if errors.As(err, &variantReq) {
		m.ObserveCheckout(metrics.CheckoutInvalid)
		respondError(c, http.StatusBadRequest, route, variantReq.Error())
		return
	}
	var notFound productNotFoundError
	if errors.As(err, &notFound) {
		m.ObserveCheckout(metrics.CheckoutInvalid)
		respondError(c, http.StatusBadRequest, route, "a cart product is no longer available")
		return
	}
	var variantNotFound variantNotFoundError
	if errors.As(err, &variantNotFound) {
		m.ObserveCheckout(metrics.CheckoutInvalid)
		respondError(c, http.StatusBadRequest, route, "a cart variant is no longer available")
		return
	}

	// A transaction that could not commit within the checkout budget is
	// retryable from the client's point of view.
	if errors.Is(err, context.DeadlineExceeded) {
		log.Println("[ORDER] [ERROR] checkout timed out:", err)
		m.ObserveCheckout(metrics.CheckoutError)
		respondError(c, http.StatusServiceUnavailable, route, "checkout timed out, please retry")
		return
	}

	log.Println("[ORDER] [ERROR] checkout transaction failed:", err)
	m.ObserveCheckout(metrics.CheckoutError)
	respondError(c, http.StatusInternalServerError, route, "db error")
}
