package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"veltra-system/config"
	"veltra-system/internal/adapter/storage"
	"veltra-system/internal/adapter/upstream"
	"veltra-system/internal/database"
	"veltra-system/internal/events"
	"veltra-system/internal/gateway/handlers"
	"veltra-system/internal/gateway/middleware"
	"veltra-system/internal/port"
	"veltra-system/internal/service"
)

func main() {
	cfg := config.LoadConfig()

	db, err := database.NewConnection(cfg.DB.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	rdb := config.NewRedisClient(cfg.Redis)

	// Stock lives upstream when a base URL is configured, otherwise in the
	// local database.
	var (
		locations port.LocationDirectory
		store     port.InventoryStore
	)
	if cfg.Upstream.BaseURL != "" {
		client := upstream.NewClient(cfg.Upstream.BaseURL, time.Duration(cfg.Upstream.TimeoutSeconds)*time.Second)
		locations = upstream.NewLocationDirectory(client, rdb)
		store = upstream.NewInventoryStore(client)
		log.Printf("Using upstream inventory API at %s", cfg.Upstream.BaseURL)
	} else {
		locations = storage.NewLocationDirectory(db, rdb)
		store = storage.NewInventoryStore(db)
		log.Println("Using local database for inventory")
	}

	recipes := storage.NewRecipeCatalog(db, rdb)
	records := storage.NewConversionRecords(db)

	bus := events.NewBus()
	bus.Subscribe(events.HandlerFunc(logEvent),
		events.TypeInventoryProvisioned,
		events.TypeConversionCompleted,
		events.TypeConversionCancelled,
	)

	provisioning := service.NewProvisioningService(locations, store, bus, cfg.Server.WorkerLimit)
	workflow := service.NewConversionWorkflow(store, recipes, records, bus)

	provisioningHandler := handlers.NewProvisioningHTTPHandler(provisioning)
	conversionHandler := handlers.NewConversionHTTPHandler(workflow)

	r := gin.Default()
	r.Use(middleware.CORS())
	r.Use(middleware.RateLimit(cfg.Server.RateLimit))

	api := r.Group("/api/v1")
	{
		provisioningGroup := api.Group("/provisioning")
		{
			provisioningGroup.POST("/:productID/initialize", provisioningHandler.Initialize)
			provisioningGroup.GET("/:productID/status", provisioningHandler.CheckStatus)
		}

		conversions := api.Group("/conversions")
		{
			conversions.POST("/validate", conversionHandler.Validate)
			conversions.POST("", conversionHandler.Initiate)
			conversions.GET("", conversionHandler.List)
			conversions.GET("/:id", conversionHandler.Get)
			conversions.POST("/:id/complete", conversionHandler.Complete)
			conversions.POST("/:id/cancel", conversionHandler.Cancel)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})

	server := &http.Server{
		Addr:    cfg.Server.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	if err := rdb.Close(); err != nil {
		log.Printf("Redis close error: %v", err)
	}
	log.Println("server stopped")
}

func logEvent(event events.Event) {
	switch e := event.(type) {
	case events.InventoryProvisioned:
		log.Printf("event %s: product %d provisioned at %d locations (partial=%v)", e.ID(), e.ProductID, len(e.LocationIDs), e.Partial)
	case events.ConversionCompleted:
		log.Printf("event %s: conversion %d completed (flagged=%v)", e.ID(), e.RecordID, e.VarianceFlagged)
	case events.ConversionCancelled:
		log.Printf("event %s: conversion %d cancelled: %s", e.ID(), e.RecordID, e.Reason)
	}
}
