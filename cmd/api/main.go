package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/nats-io/nats.go"

	"geoscout/internal/adapters/http"
	natsadapter "geoscout/internal/adapters/nats"
	"geoscout/internal/adapters/nominatim"
	"geoscout/internal/adapters/overpass"
	"geoscout/internal/adapters/valkey"
	"geoscout/internal/core/ports"
	"geoscout/internal/core/usecases"
	"geoscout/internal/pkg/config"
	"geoscout/internal/pkg/logging"
	"geoscout/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("geoscout-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Endpoint)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Cache (optional)
	var cache *valkey.Cache
	if cfg.Valkey.Enabled {
		cache, err = valkey.New(cfg.Valkey.Addr)
		if err != nil {
			slog.Warn("valkey unavailable, running without cache", "error", err)
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	// Event publisher and raw connection for the WebSocket relay (optional)
	var events *natsadapter.Publisher
	var natsConn *nats.Conn
	if cfg.NATS.Enabled {
		events, err = natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable, running without events", "error", err)
			events = nil
		} else {
			defer events.Close()
		}

		natsConn, err = natsadapter.RawConn(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats ws conn unavailable", "error", err)
			natsConn = nil
		}
	}

	// Collaborators
	geocoder := nominatim.New(
		cfg.Geocoder.Endpoint,
		cfg.Geocoder.UserAgent,
		time.Duration(cfg.Geocoder.TimeoutSeconds)*time.Second,
	)
	features := overpass.New(cfg.Geodata.Endpoint, cfg.Geodata.MaxParallel, cfg.Geodata.TimeoutSeconds)

	// A nil *valkey.Cache must not reach the service as a non-nil interface.
	var cacheSvc ports.CacheService
	if cache != nil {
		cacheSvc = cache
	}
	var eventsSvc ports.EventPublisher
	if events != nil {
		eventsSvc = events
	}
	search := usecases.NewSearchService(geocoder, features, cacheSvc, eventsSvc)

	deps := &http.Dependencies{
		Search:           search,
		NATS:             natsConn,
		Cache:            cache,
		GeocoderEndpoint: cfg.Geocoder.Endpoint,
		GeodataEndpoint:  cfg.Geodata.Endpoint,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "GeoScout API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
