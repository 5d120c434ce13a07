package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/samirrijal/landplot/internal/adapters/postgres"
	"github.com/samirrijal/landplot/internal/pkg/config"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down>")
	}

	cfg, err := config.Load("landplot-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.DSN(), 2)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	var pattern string
	switch os.Args[1] {
	case "up":
		pattern = "[0-9][0-9][0-9]_*.sql"
	case "down":
		pattern = "down.sql"
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}

	applied, err := db.ApplySQLFiles(ctx, cfg.Database.MigrationsDir, pattern)
	if err != nil {
		log.Fatalf("migrate %s: %v", os.Args[1], err)
	}
	for _, f := range applied {
		fmt.Printf("OK  %s\n", f)
	}
	log.Printf("%d migration file(s) applied", len(applied))
}
