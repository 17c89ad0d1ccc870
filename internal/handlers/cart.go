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

	"storefront/internal/models"
)

type addCartItemRequest struct {
	ProductID        string `json:"productId" binding:"required"`
	ProductVariantID string `json:"productVariantId"`
	Quantity         int    `json:"quantity" binding:"required,min=1"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

type cartLineView struct {
	ID         string            `json:"id"`
	ProductID  string            `json:"productId"`
	VariantID  string            `json:"variantId,omitempty"`
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes,omitempty"`
	UnitPrice  float64           `json:"unitPrice"`
	Quantity   int               `json:"quantity"`
	Subtotal   float64           `json:"subtotal"`
}

type cartView struct {
	ID    string         `json:"id"`
	Items []cartLineView `json:"items"`
	Total float64        `json:"total"`
}

// getOrCreateCart returns the user's cart, lazily persisting an empty one on
// first access. The unique userId index turns a concurrent double-create into
// a duplicate-key error, which falls back to re-reading the winner.
func getOrCreateCart(ctx context.Context, db *mongo.Database, userID primitive.ObjectID) (models.Cart, error) {
	carts := db.Collection("carts")

	var cart models.Cart
	err := carts.FindOne(ctx, bson.M{"userId": userID}).Decode(&cart)
	if err == nil {
		return cart, nil
	}
	if err != mongo.ErrNoDocuments {
		return models.Cart{}, err
	}

	now := time.Now()
	cart = models.Cart{
		UserID:    userID,
		Items:     []models.CartItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	res, err := carts.InsertOne(ctx, cart)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			err = carts.FindOne(ctx, bson.M{"userId": userID}).Decode(&cart)
			return cart, err
		}
		return models.Cart{}, err
	}

	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		cart.ID = id
	}
	return cart, nil
}

func saveCartItems(ctx context.Context, db *mongo.Database, cartID primitive.ObjectID, items []models.CartItem) error {
	_, err := db.Collection("carts").UpdateByID(ctx, cartID, bson.M{
		"$set": bson.M{
			"items":     items,
			"updatedAt": time.Now(),
		},
	})
	return err
}

// resolveCartVariant validates the (product, variant) choice for a requested
// quantity. A variant is mandatory whenever the product has any; stock is
// checked against the requested total quantity for the line.
func resolveCartVariant(product models.Product, variantID *primitive.ObjectID, quantity int) (*models.ProductVariant, error) {
	if variantID == nil {
		if len(product.Variants) > 0 {
			return nil, variantRequiredError{ProductName: product.Name}
		}
		return nil, nil
	}

	variant := product.VariantByID(*variantID)
	if variant == nil {
		return nil, variantNotFoundError{ProductID: product.ID, VariantID: *variantID}
	}

	if variant.Stock < quantity {
		return nil, insufficientStockError{
			ProductName: product.Name,
			Available:   variant.Stock,
			Requested:   quantity,
		}
	}

	return variant, nil
}

// mergeCartLine adds quantity to an existing (product, variant) line or
// appends a new one, returning the resulting items and the line's total
// quantity after the merge.
func mergeCartLine(items []models.CartItem, productID primitive.ObjectID, variantID *primitive.ObjectID, quantity int) ([]models.CartItem, int) {
	for i := range items {
		if items[i].ProductID != productID {
			continue
		}
		if !sameVariantID(items[i].VariantID, variantID) {
			continue
		}
		items[i].Quantity += quantity
		return items, items[i].Quantity
	}

	items = append(items, models.CartItem{
		ID:        primitive.NewObjectID(),
		ProductID: productID,
		VariantID: variantID,
		Quantity:  quantity,
	})
	return items, quantity
}

func sameVariantID(a, b *primitive.ObjectID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func findActiveProduct(ctx context.Context, db *mongo.Database, productID primitive.ObjectID) (models.Product, error) {
	var product models.Product
	err := db.Collection("products").FindOne(ctx, bson.M{
		"_id":       productID,
		"isDeleted": bson.M{"$ne": true},
	}).Decode(&product)
	if err == mongo.ErrNoDocuments {
		return models.Product{}, productNotFoundError{ProductID: productID}
	}
	return product, err
}

// buildCartView joins cart lines with their products and resolves prices.
// Lines whose product has been deleted since being added are shown with a
// zero price rather than dropped, so the shopper can still remove them.
func buildCartView(ctx context.Context, db *mongo.Database, cart models.Cart) (cartView, error) {
	view := cartView{
		ID:    cart.ID.Hex(),
		Items: make([]cartLineView, 0, len(cart.Items)),
	}
	if len(cart.Items) == 0 {
		return view, nil
	}

	ids := make([]primitive.ObjectID, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ProductID)
	}

	cursor, err := db.Collection("products").Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return cartView{}, err
	}
	defer cursor.Close(ctx)

	var products []models.Product
	if err := cursor.All(ctx, &products); err != nil {
		return cartView{}, err
	}

	productByID := make(map[primitive.ObjectID]models.Product, len(products))
	for _, product := range products {
		productByID[product.ID] = product
	}

	total := 0.0
	for _, item := range cart.Items {
		line := cartLineView{
			ID:        item.ID.Hex(),
			ProductID: item.ProductID.Hex(),
			Quantity:  item.Quantity,
		}
		if item.VariantID != nil {
			line.VariantID = item.VariantID.Hex()
		}

		if product, ok := productByID[item.ProductID]; ok && !product.IsDeleted {
			line.Name = product.Name
			var variant *models.ProductVariant
			if item.VariantID != nil {
				variant = product.VariantByID(*item.VariantID)
			}
			if variant != nil {
				line.Attributes = variant.Attributes
			}
			line.UnitPrice = resolveUnitPrice(product, variant)
			line.Subtotal = roundCurrency(line.UnitPrice * float64(item.Quantity))
		}

		total += line.Subtotal
		view.Items = append(view.Items, line)
	}

	view.Total = roundCurrency(total)
	return view, nil
}

func respondCartView(ctx context.Context, c *gin.Context, db *mongo.Database, route string, cart models.Cart) {
	view, err := buildCartView(ctx, db, cart)
	if err != nil {
		log.Printf("[%s] cart view build failed: %v", route, err)
		respondError(c, http.StatusInternalServerError, route, "db error")
		return
	}
	respondOK(c, view)
}

// GET /cart
func GetCart(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /cart"
		defer handlePanic(c, route)

		userID := c.MustGet("userId").(primitive.ObjectID)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cart, err := getOrCreateCart(ctx, db, userID)
		if err != nil {
			log.Println("[CART] [ERROR] get or create cart failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		respondCartView(ctx, c, db, route, cart)
	}
}

// POST /cart/items
func AddCartItem(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /cart/items"
		defer handlePanic(c, route)

		userID := c.MustGet("userId").(primitive.ObjectID)

		var req addCartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		productID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.ProductID))
		if err != nil {
			respondError(c, http.StatusBadRequest, route, "invalid productId")
			return
		}

		var variantID *primitive.ObjectID
		if raw := strings.TrimSpace(req.ProductVariantID); raw != "" {
			id, err := primitive.ObjectIDFromHex(raw)
			if err != nil {
				respondError(c, http.StatusBadRequest, route, "invalid productVariantId")
				return
			}
			variantID = &id
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		product, err := findActiveProduct(ctx, db, productID)
		if err != nil {
			var notFound productNotFoundError
			if errors.As(err, &notFound) {
				respondError(c, http.StatusNotFound, route, "product not found")
				return
			}
			log.Println("[CART] [ERROR] product lookup failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		cart, err := getOrCreateCart(ctx, db, userID)
		if err != nil {
			log.Println("[CART] [ERROR] get or create cart failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		// Stock is validated against the line's quantity after the merge, so
		// repeated adds cannot creep past the variant's stock.
		requested := req.Quantity
		if existing := cart.FindLine(productID, variantID); existing != nil {
			requested += existing.Quantity
		}

		if _, err := resolveCartVariant(product, variantID, requested); err != nil {
			respondCartError(c, route, err)
			return
		}

		items, _ := mergeCartLine(cart.Items, productID, variantID, req.Quantity)
		if err := saveCartItems(ctx, db, cart.ID, items); err != nil {
			log.Println("[CART] [ERROR] save cart failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		cart.Items = items
		log.Println("[CART] [INFO] line added for user:", userID.Hex())
		respondCartView(ctx, c, db, route, cart)
	}
}

// PUT /cart/items/:itemId
func UpdateCartItem(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /cart/items/:itemId"
		defer handlePanic(c, route)

		userID := c.MustGet("userId").(primitive.ObjectID)

		itemID, err := primitive.ObjectIDFromHex(strings.TrimSpace(c.Param("itemId")))
		if err != nil {
			respondError(c, http.StatusBadRequest, route, "invalid item id")
			return
		}

		var req updateCartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cart, err := getOrCreateCart(ctx, db, userID)
		if err != nil {
			log.Println("[CART] [ERROR] get or create cart failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		item := cart.ItemByID(itemID)
		if item == nil {
			respondError(c, http.StatusNotFound, route, "cart item not found")
			return
		}

		if item.VariantID != nil {
			product, err := findActiveProduct(ctx, db, item.ProductID)
			if err != nil {
				var notFound productNotFoundError
				if errors.As(err, &notFound) {
					respondError(c, http.StatusNotFound, route, "product not found")
					return
				}
				log.Println("[CART] [ERROR] product lookup failed:", err)
				respondError(c, http.StatusInternalServerError, route, "db error")
				return
			}
			if _, err := resolveCartVariant(product, item.VariantID, req.Quantity); err != nil {
				respondCartError(c, route, err)
				return
			}
		}

		item.Quantity = req.Quantity
		if err := saveCartItems(ctx, db, cart.ID, cart.Items); err != nil {
			log.Println("[CART] [ERROR] save cart failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		respondCartView(ctx, c, db, route, cart)
	}
}

// DELETE /cart/items/:itemId
func RemoveCartItem(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /cart/items/:itemId"
		defer handlePanic(c, route)

		userID := c.MustGet("userId").(primitive.ObjectID)

		itemID, err := primitive.ObjectIDFromHex(strings.TrimSpace(c.Param("itemId")))
		if err != nil {
			respondError(c, http.StatusBadRequest, route, "invalid item id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cart, err := getOrCreateCart(ctx, db, userID)
		if err != nil {
			log.Println("[CART] [ERROR] get or create cart failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		remaining := make([]models.CartItem, 0, len(cart.Items))
		found := false
		for _, item := range cart.Items {
			if item.ID == itemID {
				found = true
				continue
			}
			remaining = append(remaining, item)
		}
		if !found {
			respondError(c, http.StatusNotFound, route, "cart item not found")
			return
		}

		if err := saveCartItems(ctx, db, cart.ID, remaining); err != nil {
			log.Println("[CART] [ERROR] save cart failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		cart.Items = remaining
		respondCartView(ctx, c, db, route, cart)
	}
}

// DELETE /cart — idempotent: clearing an empty or missing cart succeeds.
func ClearCart(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /cart"
		defer handlePanic(c, route)

		userID := c.MustGet("userId").(primitive.ObjectID)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		_, err := db.Collection("carts").UpdateOne(ctx, bson.M{"userId": userID}, bson.M{
			"$set": bson.M{
				"items":     []models.CartItem{},
				"updatedAt": time.Now(),
			},
		})
		if err != nil {
			log.Println("[CART] [ERROR] clear cart failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		log.Println("[CART] [INFO] cart cleared for user:", userID.Hex())
		respondMessage(c, "cart cleared")
	}
}

func respondCartError(c *gin.Context, route string, err error) {
	var stockErr insufficientStockError
	if errors.As(err, &stockErr) {
		respondError(c, http.StatusBadRequest, route, stockErr.Error())
		return
	}
	var variantReq variantRequiredError
	if errors.As(err, &variantReq) {
		respondError(c, http.StatusBadRequest, route, variantReq.Error())
		return
	}
	var variantNotFound variantNotFoundError
	if errors.As(err, &variantNotFound) {
		respondError(c, http.StatusNotFound, route, "variant not found")
		return
	}
	respondError(c, http.StatusInternalServerError, route, "db error")
}
