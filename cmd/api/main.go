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
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/nats-io/nats.go"
	"go.temporal.io/sdk/client"

	"github.com/samirrijal/landplot/internal/adapters/http"
	"github.com/samirrijal/landplot/internal/adapters/memory"
	natsadapter "github.com/samirrijal/landplot/internal/adapters/nats"
	"github.com/samirrijal/landplot/internal/adapters/postgres"
	"github.com/samirrijal/landplot/internal/adapters/valkey"
	"github.com/samirrijal/landplot/internal/core/ports"
	"github.com/samirrijal/landplot/internal/core/usecases"
	"github.com/samirrijal/landplot/internal/pkg/config"
	"github.com/samirrijal/landplot/internal/pkg/logging"
	"github.com/samirrijal/landplot/internal/pkg/telemetry"
	"github.com/samirrijal/landplot/internal/workflows"
)

func main() {
	cfg, err := config.Load("landplot-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go db.ReportPoolMetrics(ctx, 15*time.Second)

	// Cache and sessions. Without valkey, sessions live in process memory
	// and do not survive a restart.
	var (
		cache    ports.CacheService
		vc       *valkey.Cache
		sessions ports.SessionStore = memory.NewSessionStore()
	)
	if cfg.Valkey.Enabled {
		if vc, err = valkey.New(cfg.Valkey.Addr); err != nil {
			slog.Warn("valkey unavailable, using in-memory sessions", "error", err)
			vc = nil
		} else {
			defer vc.Close()
			cache = vc
			sessions = valkey.NewSessionStore(vc)
		}
	}

	// NATS
	var (
		events ports.EventPublisher
		wsConn *nats.Conn
	)
	if cfg.NATS.Enabled {
		if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
			slog.Warn("nats unavailable", "error", err)
		} else {
			defer pub.Close()
			events = pub
			wsConn = pub.Conn()
		}
	}

	deps := &http.Dependencies{
		Lands:   usecases.NewLandService(postgres.NewLandRepo(db), cache, events),
		Auth:    usecases.NewAuthService(postgres.NewUserRepo(db), sessions, cfg.Auth.SessionTTL),
		History: usecases.NewHistoryService(postgres.NewEventRepo(db)),
		AuthConfig: http.AuthSettings{
			Required:     cfg.Auth.Required,
			CookieName:   cfg.Auth.CookieName,
			CookieSecure: cfg.Auth.CookieSecure,
			SessionTTL:   cfg.Auth.SessionTTL,
		},
		NATS:  wsConn,
		DB:    db,
		Cache: vc,
	}

	// Bulk deletes run on Temporal when it is configured, inline otherwise.
	if cfg.Temporal.Enabled {
		tc, err := client.Dial(client.Options{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
			Logger:    slog.Default(),
		})
		if err != nil {
			slog.Warn("temporal unavailable, bulk deletes run inline", "error", err)
		} else {
			defer tc.Close()
			deps.BulkDeleter = workflows.NewStarter(tc, cfg.Temporal.TaskQueue)
		}
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    4 * 1024 * 1024, // polygon collections can be large
		AppName:      "Landplot API",
	})
	app.Use(recover.New())

	http.SetupRoutes(app, deps, http.RouteOptions{
		CORSOrigins: cfg.Server.CORSOrigins,
		RateLimit:   cfg.Server.RateLimit,
	})

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "auth_required", cfg.Auth.Required)
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
