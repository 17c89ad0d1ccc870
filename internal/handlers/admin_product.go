package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/models"
)

type productVariantRequest struct {
	Attributes map[string]string `json:"attributes" binding:"required"`
	Price      float64           `json:"price" binding:"required,gt=0"`
	Stock      int               `json:"stock" binding:"min=0"`
}

type createProductRequest struct {
	Name        string                  `json:"name" binding:"required"`
	Price       float64                 `json:"price" binding:"required,gt=0"`
	SaleEnabled bool                    `json:"saleEnabled"`
	SalePrice   float64                 `json:"salePrice"`
	Category    []string                `json:"category" binding:"required,min=1"`
	Description string                  `json:"description"`
	Brand       string                  `json:"brand"`
	Variants    []productVariantRequest `json:"variants"`
	IsActive    *bool                   `json:"isActive"`
}

type updateProductRequest struct {
	Name        *string                  `json:"name"`
	Price       *float64                 `json:"price"`
	SaleEnabled *bool                    `json:"saleEnabled"`
	SalePrice   *float64                 `json:"salePrice"`
	Category    *[]string                `json:"category"`
	Description *string                  `json:"description"`
	Brand       *string                  `json:"brand"`
	Variants    *[]productVariantRequest `json:"variants"`
	IsActive    *bool                    `json:"isActive"`
}

// validateVariantAttributes enforces the typed attribute map contract at the
// write boundary: at least one pair, no blank keys or values.
func validateVariantAttributes(attributes map[string]string) error {
	if len(attributes) == 0 {
		return fmt.Errorf("variant attributes are required")
	}
	for key, value := range attributes {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("variant attribute keys must not be blank")
		}
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("variant attribute %q must not be blank", key)
		}
	}
	return nil
}

func buildVariants(reqs []productVariantRequest) ([]models.ProductVariant, error) {
	variants := make([]models.ProductVariant, 0, len(reqs))
	for _, req := range reqs {
		if err := validateVariantAttributes(req.Attributes); err != nil {
			return nil, err
		}
		if req.Price <= 0 {
			return nil, fmt.Errorf("variant price must be greater than 0")
		}
		if req.Stock < 0 {
			return nil, fmt.Errorf("variant stock must not be negative")
		}
		variants = append(variants, models.ProductVariant{
			ID:         primitive.NewObjectID(),
			Attributes: req.Attributes,
			Price:      req.Price,
			Stock:      req.Stock,
		})
	}
	return variants, nil
}

func normalizeCategories(values []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0)

	for _, v := range values {
		name := strings.TrimSpace(v)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// GET /admin/api/products — includes inactive and deleted entries.
func GetAllProducts(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/products"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
		cursor, err := db.Collection("products").Find(ctx, bson.M{}, findOptions)
		if err != nil {
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		products := make([]models.Product, 0)
		if err := cursor.All(ctx, &products); err != nil {
			respondError(c, http.StatusInternalServerError, route, "decode error")
			return
		}
		markSaleFlags(products)

		respondOK(c, products)
	}
}

// POST /admin/api/products
func CreateProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/products"
		defer handlePanic(c, route)

		var req createProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		if err := validateSaleFields(req.Price, req.SaleEnabled, req.SalePrice); err != nil {
			respondError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		variants, err := buildVariants(req.Variants)
		if err != nil {
			respondError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		category := normalizeCategories(req.Category)
		if len(category) == 0 {
			respondError(c, http.StatusBadRequest, route, "category is required")
			return
		}

		isActive := true
		if req.IsActive != nil {
			isActive = *req.IsActive
		}

		product := models.Product{
			Name:        strings.TrimSpace(req.Name),
			Price:       req.Price,
			SaleEnabled: req.SaleEnabled,
			SalePrice:   req.SalePrice,
			Category:    category,
			Description: strings.TrimSpace(req.Description),
			Brand:       strings.TrimSpace(req.Brand),
			Variants:    variants,
			IsActive:    isActive,
			CreatedAt:   time.Now(),
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("products").InsertOne(ctx, product)
		if err != nil {
			log.Println("[PRODUCT] [ERROR] insert failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		product.ID, _ = res.InsertedID.(primitive.ObjectID)
		log.Println("[PRODUCT] [INFO] product created:", product.ID.Hex())
		respondCreated(c, product)
	}
}

// PUT /admin/api/products/:id — partial update; variants, when provided,
// replace the whole embedded list.
func UpdateProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /admin/api/products/:id"
		defer handlePanic(c, route)

		productID, err := primitive.ObjectIDFromHex(strings.TrimSpace(c.Param("id")))
		if err != nil {
			respondError(c, http.StatusBadRequest, route, "invalid product id")
			return
		}

		var req updateProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var existing models.Product
		err = db.Collection("products").FindOne(ctx, bson.M{
			"_id":       productID,
			"isDeleted": bson.M{"$ne": true},
		}).Decode(&existing)
		if err != nil {
			if err == mongo.ErrNoDocuments {
				respondError(c, http.StatusNotFound, route, "product not found")
				return
			}
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		set := bson.M{}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				respondError(c, http.StatusBadRequest, route, "name must not be blank")
				return
			}
			set["name"] = name
		}

		price := existing.Price
		if req.Price != nil {
			if *req.Price <= 0 {
				respondError(c, http.StatusBadRequest, route, "price must be greater than 0")
				return
			}
			price = *req.Price
			set["price"] = price
		}

		saleEnabled := existing.SaleEnabled
		if req.SaleEnabled != nil {
			saleEnabled = *req.SaleEnabled
			set["saleEnabled"] = saleEnabled
			if !saleEnabled {
				set["salePrice"] = 0.0
			}
		}
		salePrice := existing.SalePrice
		if req.SalePrice != nil {
			salePrice = *req.SalePrice
			set["salePrice"] = salePrice
		}
		if err := validateSaleFields(price, saleEnabled, salePrice); err != nil {
			respondError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		if req.Category != nil {
			category := normalizeCategories(*req.Category)
			if len(category) == 0 {
				respondError(c, http.StatusBadRequest, route, "category is required")
				return
			}
			set["category"] = category
		}

		if req.Description != nil {
			set["description"] = strings.TrimSpace(*req.Description)
		}
		if req.Brand != nil {
			set["brand"] = strings.TrimSpace(*req.Brand)
		}
		if req.IsActive != nil {
			set["isActive"] = *req.IsActive
		}

		if req.Variants != nil {
			variants, err := buildVariants(*req.Variants)
			if err != nil {
				respondError(c, http.StatusBadRequest, route, err.Error())
				return
			}
			set["variants"] = variants
		}

		if len(set) == 0 {
			respondError(c, http.StatusBadRequest, route, "nothing to update")
			return
		}

		after := options.After
		var updated models.Product
		err = db.Collection("products").FindOneAndUpdate(
			ctx,
			bson.M{"_id": productID},
			bson.M{"$set": set},
			options.FindOneAndUpdate().SetReturnDocument(after),
		).Decode(&updated)
		if err != nil {
			log.Println("[PRODUCT] [ERROR] update failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		updated.IsOnSale = isProductOnSale(updated.Price, updated.SaleEnabled, updated.SalePrice)
		log.Println("[PRODUCT] [INFO] product updated:", productID.Hex())
		respondOK(c, updated)
	}
}

// DELETE /admin/api/products/:id — soft delete so existing order items keep a
// resolvable product reference.
func DeleteProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /admin/api/products/:id"
		defer handlePanic(c, route)

		productID, err := primitive.ObjectIDFromHex(strings.TrimSpace(c.Param("id")))
		if err != nil {
			respondError(c, http.StatusBadRequest, route, "invalid product id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		now := time.Now()
		res, err := db.Collection("products").UpdateOne(ctx, bson.M{
			"_id":       productID,
			"isDeleted": bson.M{"$ne": true},
		}, bson.M{
			"$set": bson.M{
				"isDeleted": true,
				"isActive":  false,
				"deletedAt": now,
			},
		})
		if err != nil {
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if res.MatchedCount == 0 {
			respondError(c, http.StatusNotFound, route, "product not found")
			return
		}

		log.Println("[PRODUCT] [INFO] product deleted:", productID.Hex())
		respondMessage(c, "product deleted")
	}
}
