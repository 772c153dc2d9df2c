package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/DikshantJangra/hoperxpharma-sub019/internal/dispense/events"
	dispensehandler "github.com/DikshantJangra/hoperxpharma-sub019/internal/dispense/handler"
	dispenserepo "github.com/DikshantJangra/hoperxpharma-sub019/internal/dispense/repository"
	dispenseservice "github.com/DikshantJangra/hoperxpharma-sub019/internal/dispense/service"
	invhandler "github.com/DikshantJangra/hoperxpharma-sub019/internal/inventory/handler"
	invrepo "github.com/DikshantJangra/hoperxpharma-sub019/internal/inventory/repository"
	invservice "github.com/DikshantJangra/hoperxpharma-sub019/internal/inventory/service"
	rxconsumers "github.com/DikshantJangra/hoperxpharma-sub019/internal/prescription/consumers"
	rxhandler "github.com/DikshantJangra/hoperxpharma-sub019/internal/prescription/handler"
	rxrepo "github.com/DikshantJangra/hoperxpharma-sub019/internal/prescription/repository"
	rxservice "github.com/DikshantJangra/hoperxpharma-sub019/internal/prescription/service"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/config"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/database"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/httputil"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/logger"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/messaging"
)

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("dispense-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("dispense-service", cfg.Server.Environment)
	log.Info().Msg("starting Dispense Service")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	if err := rmq.DeclareTopology("dispense-service"); err != nil {
		log.Fatal().Err(err).Msg("failed to declare messaging topology")
	}

	// Initialize event publisher
	publisher, err := events.NewDispenseEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Initialize repositories
	drugRepo := invrepo.NewDrugRepository(db)
	batchRepo := invrepo.NewBatchRepository(db)
	conversionRepo := invrepo.NewConversionRepository(db)
	prescriptionRepo := rxrepo.NewPrescriptionRepository(db)
	refillRepo := rxrepo.NewRefillRepository(db)
	dispenseRepo := dispenserepo.NewDispenseRepository(db)
	deviationRepo := dispenserepo.NewDeviationRepository(db)

	// Initialize services
	inventoryService := invservice.NewInventoryService(batchRepo, drugRepo, log)
	conversionService := invservice.NewConversionService(
		drugRepo, conversionRepo, cfg.Dispense.StrictControlledConversion, log)
	statusEngine := rxservice.NewStatusEngine(prescriptionRepo, refillRepo, log)
	prescriptionService := rxservice.NewPrescriptionService(db, prescriptionRepo, refillRepo, statusEngine, conversionService, log)
	dispenseService := dispenseservice.NewDispenseService(
		db, dispenseRepo, deviationRepo, prescriptionRepo, refillRepo,
		batchRepo, conversionService, statusEngine, publisher,
		cfg.Dispense.DeviationAlertThreshold, log)

	// Initialize handlers
	batchHandler := invhandler.NewBatchHandler(inventoryService, cfg.Dispense.ExpiryWarningDays, log)
	fefoHandler := invhandler.NewFEFOHandler(inventoryService, log)
	prescriptionHandler := rxhandler.NewPrescriptionHandler(prescriptionService, log)
	dispenseHandler := dispensehandler.NewDispenseHandler(dispenseService, log)

	// Start prescription intake consumer
	intakeConsumer, err := rxconsumers.NewIntakeConsumer(rmq, prescriptionService, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create intake consumer")
	}

	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	defer consumerCancel()

	if err := intakeConsumer.Start(consumerCtx); err != nil {
		log.Fatal().Err(err).Msg("failed to start intake consumer")
	}

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", "X-Store-ID", "X-Actor-ID", "X-Actor-Name", "X-Actor-Role"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(httputil.ActorMiddleware)
	r.Use(httputil.StoreMiddleware)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "dispense-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/batches", func(r chi.Router) {
			r.Post("/", batchHandler.Receive)
			r.Get("/expiring", batchHandler.Expiring)
			r.Get("/{id}", batchHandler.Get)
			r.Put("/{id}/status", batchHandler.ChangeStatus)
		})
		r.Get("/drugs/{drugId}/batches", batchHandler.ListByDrug)
		r.Get("/fefo/recommend", fefoHandler.Recommend)

		r.Route("/prescriptions", func(r chi.Router) {
			r.Post("/", prescriptionHandler.Create)
			r.Get("/{id}", prescriptionHandler.Get)
			r.Post("/{id}/verify", prescriptionHandler.Verify)
			r.Post("/{id}/hold", prescriptionHandler.Hold)
			r.Post("/{id}/resume", prescriptionHandler.Resume)
			r.Post("/{id}/cancel", prescriptionHandler.Cancel)
		})

		r.Route("/dispense", func(r chi.Router) {
			r.Post("/", dispenseHandler.Create)
			r.Get("/workbench", dispenseHandler.Workbench)
			r.Get("/deviations/stats", dispenseHandler.DeviationStats)
			r.Get("/{id}", dispenseHandler.Get)
			r.Post("/{id}/scan", dispenseHandler.Scan)
			r.Post("/{id}/release", dispenseHandler.Release)
			r.Post("/{id}/complete", dispenseHandler.Complete)
			r.Post("/{id}/cancel", dispenseHandler.Cancel)
		})
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Cancel context to stop consumers
	consumerCancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
