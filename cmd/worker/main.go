package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/landplot/internal/adapters/nats"
	"github.com/samirrijal/landplot/internal/adapters/postgres"
	"github.com/samirrijal/landplot/internal/adapters/valkey"
	"github.com/samirrijal/landplot/internal/core/domain"
	"github.com/samirrijal/landplot/internal/core/ports"
	"github.com/samirrijal/landplot/internal/core/usecases"
	"github.com/samirrijal/landplot/internal/pkg/config"
	"github.com/samirrijal/landplot/internal/pkg/logging"
	"github.com/samirrijal/landplot/internal/pkg/metrics"
	"github.com/samirrijal/landplot/internal/pkg/telemetry"
	"github.com/samirrijal/landplot/internal/workflows"
)

// The worker runs bulk delete workflows and keeps the land change history
// from the event stream.
func main() {
	cfg, err := config.Load("landplot-worker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go db.ReportPoolMetrics(ctx, 15*time.Second)

	// Deletes issued by workflows go through the same service as the API so
	// caches are invalidated and events published.
	var (
		cache  ports.CacheService
		events ports.EventPublisher
	)
	if cfg.Valkey.Enabled {
		if vc, err := valkey.New(cfg.Valkey.Addr); err != nil {
			slog.Warn("valkey unavailable", "error", err)
		} else {
			defer vc.Close()
			cache = vc
		}
	}
	if cfg.NATS.Enabled {
		if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
			slog.Warn("nats publisher unavailable", "error", err)
		} else {
			defer pub.Close()
			events = pub
		}
	}
	lands := usecases.NewLandService(postgres.NewLandRepo(db), cache, events)

	if !cfg.NATS.Enabled && !cfg.Temporal.Enabled {
		log.Fatal("nothing to do: enable nats and/or temporal")
	}

	if cfg.NATS.Enabled {
		history := usecases.NewHistoryService(postgres.NewEventRepo(db))
		sub, err := natsadapter.NewSubscriber(cfg.NATS.URL, cfg.Worker.Durable)
		if err != nil {
			log.Fatalf("nats subscriber: %v", err)
		}
		defer sub.Close()

		err = sub.SubscribeLandEvents(ctx, func(ctx context.Context, e *domain.LandEvent) error {
			err := history.Record(ctx, e)
			if errors.Is(err, domain.ErrInvalidInput) {
				// Redelivery cannot fix a malformed event.
				slog.Warn("dropping land event", "land_id", e.LandID, "type", e.Type, "error", err)
				return nil
			}
			if err != nil {
				slog.Error("record land event", "land_id", e.LandID, "type", e.Type, "error", err)
			}
			return err
		})
		if err != nil {
			log.Fatalf("subscribe land events: %v", err)
		}
		slog.Info("land history consumer started", "durable", cfg.Worker.Durable)
	}

	if cfg.Worker.MetricsPort > 0 {
		app := fiber.New(fiber.Config{DisableStartupMessage: true, AppName: "Landplot worker"})
		app.Get("/metrics", metrics.Handler())
		app.Get("/health", func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"status": "ok"})
		})
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Worker.MetricsPort)
			if err := app.Listen(addr); err != nil {
				slog.Error("metrics listener stopped", "addr", addr, "error", err)
			}
		}()
		defer app.Shutdown()
	}

	if !cfg.Temporal.Enabled {
		slog.Info("temporal disabled, consuming events only")
		<-worker.InterruptCh()
		slog.Info("worker stopped")
		return
	}

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    slog.Default(),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.BulkDeleteWorkflow)
	w.RegisterActivity(&workflows.BulkDeleteActivities{Lands: lands})

	slog.Info("bulk delete worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
	slog.Info("worker stopped")
}
