package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/samirrijal/landplot/internal/adapters/postgres"
	"github.com/samirrijal/landplot/internal/ingest"
	"github.com/samirrijal/landplot/internal/pkg/config"
	"github.com/samirrijal/landplot/internal/pkg/logging"
	"github.com/samirrijal/landplot/internal/pkg/metrics"
)

const batchSize = 500

// ingestor bulk-loads land records from one or more CSV files:
//
//	ingestor lands-2024.csv [more.csv ...]
func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: ingestor FILE.csv [FILE.csv ...]")
	}

	cfg, err := config.Load("landplot-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(ctx, cfg.Database.DSN(), 4)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()
	repo := postgres.NewLandRepo(db)

	var total, failedFiles int
	for _, path := range os.Args[1:] {
		n, err := ingestFile(ctx, repo, path)
		total += n
		if err != nil {
			failedFiles++
			slog.Error("ingest failed", "file", path, "written", n, "error", err)
		}
	}

	slog.Info("ingestion complete", "lands", total, "failed_files", failedFiles)
	if failedFiles > 0 {
		os.Exit(1)
	}
}

func ingestFile(ctx context.Context, repo *postgres.LandRepo, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	lands, skipped, err := ingest.ReadLands(f)
	if err != nil {
		return 0, err
	}
	for _, s := range skipped {
		slog.Warn("row skipped", "file", path, "line", s.Line, "error", s.Err)
	}

	n, err := repo.CreateBatch(ctx, lands, batchSize)
	metrics.LandsCreated.Add(float64(n))
	slog.Info("file ingested", "file", path, "lands", n, "skipped", len(skipped))
	return n, err
}
