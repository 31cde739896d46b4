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

	"github.com/osoko/wayfind/internal/adapters/genai"
	"github.com/osoko/wayfind/internal/adapters/http"
	"github.com/osoko/wayfind/internal/adapters/memory"
	natsadapter "github.com/osoko/wayfind/internal/adapters/nats"
	"github.com/osoko/wayfind/internal/adapters/osrm"
	"github.com/osoko/wayfind/internal/adapters/postgres"
	"github.com/osoko/wayfind/internal/adapters/tts"
	"github.com/osoko/wayfind/internal/adapters/valkey"
	"github.com/osoko/wayfind/internal/core/ports"
	"github.com/osoko/wayfind/internal/core/usecases"
	"github.com/osoko/wayfind/internal/pkg/config"
	"github.com/osoko/wayfind/internal/pkg/logging"
	"github.com/osoko/wayfind/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("wayfind-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup("wayfind-api", logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database (optional: tracks and snapshots degrade to memory-only)
	var db *postgres.DB
	var tracks ports.TrackRepository
	var places ports.PlaceRepository
	db, err = postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		slog.Warn("database unavailable, tracks kept in memory only", "error", err)
		db = nil
	} else {
		defer db.Close()
		tracks = postgres.NewTrackRepo(db)
		places = postgres.NewPlaceRepo(db)
	}

	// Cache
	var cache ports.CacheService
	if cfg.Valkey.Enabled {
		vk, err := valkey.New(cfg.Valkey.Addr)
		if err != nil {
			slog.Warn("valkey unavailable, using in-process cache", "error", err)
			cache = memory.New()
		} else {
			defer vk.Close()
			cache = vk
		}
	} else {
		cache = memory.New()
	}

	// NATS
	var events ports.EventPublisher
	var stream ports.LocationStream
	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, events disabled", "error", err)
	} else {
		defer publisher.Close()
		events = publisher
		stream = natsadapter.NewLocationStream(publisher.Conn())
	}

	// External providers
	discovery := genai.New(cfg.Discovery.BaseURL, cfg.Discovery.APIKey, cfg.Discovery.Model,
		time.Duration(cfg.Discovery.Timeout)*time.Second)
	routes := osrm.New(cfg.Routing.BaseURL, time.Duration(cfg.Routing.Timeout)*time.Second)
	announcer := tts.New(cfg.Speech.BaseURL, cfg.Speech.Voice, cfg.Speech.Enabled,
		time.Duration(cfg.Speech.Timeout)*time.Second, events)

	sessions := usecases.NewSessionService(usecases.SessionDeps{
		Discovery: discovery,
		Routes:    routes,
		Cache:     cache,
		Tracks:    tracks,
		Places:    places,
		Events:    events,
		Announcer: announcer,
		Stream:    stream,
	}, usecases.SessionOptions{
		CachePrecision:     cfg.Session.CachePrecision,
		DisplacementMeters: cfg.Session.DisplacementMeters,
		ArrivalMeters:      cfg.Session.ArrivalMeters,
		CoverMeters:        cfg.Session.CoverMeters,
		FollowRouteOnStart: cfg.Session.FollowRouteOnStart,
	})

	deps := &http.Dependencies{
		Sessions: sessions,
		Tracks:   tracks,
		DB:       db,
		Cache:    cache,
	}
	if publisher != nil {
		deps.NATS = publisher.Conn()
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "Wayfind API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
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

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
