package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/developerakkoo/Porttivo-API/internal/clock"
	"github.com/developerakkoo/Porttivo-API/internal/config"
	"github.com/developerakkoo/Porttivo-API/internal/database"
	"github.com/developerakkoo/Porttivo-API/internal/events"
	"github.com/developerakkoo/Porttivo-API/internal/fuel/qrtoken"
	fuelrouter "github.com/developerakkoo/Porttivo-API/internal/fuel/router"
	fuelservice "github.com/developerakkoo/Porttivo-API/internal/fuel/service"
	"github.com/developerakkoo/Porttivo-API/internal/media"
	"github.com/developerakkoo/Porttivo-API/internal/middleware"
	triprouter "github.com/developerakkoo/Porttivo-API/internal/trip/router"
	tripservice "github.com/developerakkoo/Porttivo-API/internal/trip/service"
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	slog.Info("configuration loaded successfully",
		"db_host", cfg.Database.Host,
		"db_port", cfg.Database.Port,
		"db_name", cfg.Database.Name,
		"db_sslmode", cfg.Database.SSLMode,
	)

	slog.Info("server configuration",
		"port", cfg.Server.Port,
		"storage", cfg.Storage.Type,
		"realtime", cfg.Realtime.Enabled,
	)

	// Initialize database connection
	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	if err := database.HealthCheck(db); err != nil {
		log.Fatalf("database health check failed: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}

	ctx := context.Background()

	// Photo storage
	storageDriver, err := media.NewStorageFromConfig(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("failed to initialize photo storage: %v", err)
	}
	mediaSvc := media.NewService(storageDriver)

	// Realtime fanout
	var sink events.Sink = events.NopSink{}
	var hub *events.Hub
	if cfg.Realtime.Enabled {
		hub = events.NewHub(&cfg.Realtime)
		sink = hub
	}

	clk := clock.System{}

	// Trip services
	tripRepo := tripservice.NewGormTripRepository(db)
	fleetRepo := tripservice.NewGormFleetRepository(db)
	queueSvc := tripservice.NewQueueService(tripRepo, sink, clk)
	tripSvc := tripservice.NewTripService(tripRepo, fleetRepo, queueSvc, sink, clk,
		time.Duration(cfg.QR.ShareLinkHours)*time.Hour)
	availabilitySvc := tripservice.NewAvailabilityService(tripRepo)

	// Fuel services
	txnRepo := fuelservice.NewGormTransactionRepository(db)
	cardRepo := fuelservice.NewGormCardRepository(db)
	partyRepo := fuelservice.NewGormPartyRepository(db)
	fraudEngine := fuelservice.NewFraudEngine(txnRepo, clk)
	codec := qrtoken.NewCodec(cfg.QR.SecretKey, time.Duration(cfg.QR.ValidityHours)*time.Hour, clk)
	fuelSvc := fuelservice.NewFuelService(txnRepo, cardRepo, partyRepo, fraudEngine, codec, sink, clk)

	// Set up HTTP routes
	mux := http.NewServeMux()
	triprouter.NewTripRouter(tripSvc, queueSvc, availabilitySvc, mediaSvc).Register(mux)
	fuelrouter.NewFuelRouter(fuelSvc, mediaSvc).Register(mux)
	mux.HandleFunc("GET /api/media/{category}/{file}", func(w http.ResponseWriter, r *http.Request) {
		key := r.PathValue("category") + "/" + r.PathValue("file")
		reader, contentType, err := mediaSvc.Open(r.Context(), key)
		if err != nil {
			http.Error(w, "photo not found", http.StatusNotFound)
			return
		}
		defer reader.Close()
		w.Header().Set("Content-Type", contentType)
		if _, err := io.Copy(w, reader); err != nil {
			slog.Warn("failed to stream photo", "key", key, "error", err)
		}
	})
	if hub != nil {
		mux.Handle("GET /ws", hub)
	}

	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)

	// Wrap handler with identity and CORS middleware
	handler := middleware.Actor()(mux)
	handler = middleware.CORS(&cfg.CORS)(handler)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: handler,
	}

	// Channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Start server in a goroutine
	go func() {
		slog.Info("starting server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			quit <- syscall.SIGTERM
		}
	}()

	// Wait for interrupt signal
	<-quit
	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	} else {
		slog.Info("server gracefully stopped")
	}

	slog.Info("server stopped")
}
