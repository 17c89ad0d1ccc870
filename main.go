package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handlers"
	"storefront/internal/metrics"
	"storefront/internal/middleware"
)

func main() {
	config.Load()

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(config.AppEnv.DBName)

	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureProductIndexes(db); err != nil {
		log.Printf("product index warning: %v", err)
	}
	if err := database.EnsureUserIndexes(db); err != nil {
		log.Printf("user index warning: %v", err)
	}
	if err := database.EnsureCartIndexes(db); err != nil {
		log.Printf("cart index warning: %v", err)
	}
	if err := database.EnsureOrderIndexes(db); err != nil {
		log.Printf("order index warning: %v", err)
	}

	m := metrics.NewServerMetrics()

	r := gin.Default()
	r.Use(middleware.RequestID())
	r.Use(m.Middleware())

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.POST("/auth/register", handlers.Register(db, config.AppEnv.JWTSecret, config.AppEnv.AccessTokenTTL))
	r.POST("/auth/login", handlers.Login(db, config.AppEnv.JWTSecret, config.AppEnv.AccessTokenTTL))
	r.GET("/auth/me", middleware.UserAuth(config.AppEnv.JWTSecret), handlers.GetMe(db))

	r.GET("/products", handlers.GetProducts(db))
	r.GET("/products/:id", handlers.GetProduct(db))

	user := r.Group("/")
	user.Use(middleware.UserAuth(config.AppEnv.JWTSecret))
	{
		user.GET("/cart", handlers.GetCart(db))
		user.POST("/cart/items", handlers.AddCartItem(db))
		user.PUT("/cart/items/:itemId", handlers.UpdateCartItem(db))
		user.DELETE("/cart/items/:itemId", handlers.RemoveCartItem(db))
		user.DELETE("/cart", handlers.ClearCart(db))

		user.POST("/orders", handlers.CreateOrder(db, m, config.AppEnv.CheckoutTimeout))
		user.GET("/orders/my-orders", handlers.GetMyOrders(db))
		user.GET("/orders/:id", handlers.GetOrder(db))
	}

	admin := r.Group("/")
	admin.Use(middleware.AdminAuth(config.AppEnv.JWTSecret))
	{
		admin.GET("/orders", handlers.GetAllOrders(db))
		admin.PUT("/orders/:id/status", handlers.UpdateOrderStatus(db))

		admin.GET("/admin/api/products", handlers.GetAllProducts(db))
		admin.POST("/admin/api/products", handlers.CreateProduct(db))
		admin.PUT("/admin/api/products/:id", handlers.UpdateProduct(db))
		admin.DELETE("/admin/api/products/:id", handlers.DeleteProduct(db))
	}

	srv := &http.Server{
		Addr:    ":" + config.AppEnv.Port,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Println("listening on", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Println("server shutdown error:", err)
	}
	if err := client.Disconnect(shutdownCtx); err != nil {
		log.Println("mongo disconnect error:", err)
	}
}
