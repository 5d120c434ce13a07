//go:build integration
// +build integration

package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/landplot/internal/adapters/http"
	"github.com/samirrijal/landplot/internal/adapters/memory"
	"github.com/samirrijal/landplot/internal/adapters/postgres"
	"github.com/samirrijal/landplot/internal/core/domain"
	"github.com/samirrijal/landplot/internal/core/usecases"
	"github.com/samirrijal/landplot/internal/pkg/config"
)

// setupTestDB connects to the database named by the LANDPLOT_DATABASE_*
// environment and applies the migrations.
func setupTestDB(t *testing.T) *postgres.DB {
	t.Helper()
	cfg, err := config.Load("landplot-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN(), 4)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(db.Close)

	if _, err := db.ApplySQLFiles(ctx, "../../../migrations", "[0-9][0-9][0-9]_*.sql"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func setupTestDeps(db *postgres.DB) *handler.Dependencies {
	return &handler.Dependencies{
		Lands: usecases.NewLandService(postgres.NewLandRepo(db), nil, nil),
		Auth:  usecases.NewAuthService(postgres.NewUserRepo(db), memory.NewSessionStore(), time.Hour),
		DB:    db,
	}
}

func TestIntegration_LandLifecycle(t *testing.T) {
	db := setupTestDB(t)
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, setupTestDeps(db))

	title := fmt.Sprintf("itest-%d", time.Now().UnixNano())
	req := httptest.NewRequest("POST", "/lands", strings.NewReader(`{"title":"`+title+`","owner":"itest"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 201 {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}
	var created domain.Land
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	path := fmt.Sprintf("/lands/%d", created.ID)
	t.Cleanup(func() {
		_, _ = db.Pool.Exec(context.Background(), `DELETE FROM lands WHERE id = $1`, created.ID)
	})

	body := `{"polygons":[[{"lat":43,"lng":-2},{"lat":43,"lng":-1.99},{"lat":43.01,"lng":-1.99}]]}`
	req = httptest.NewRequest("PUT", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if resp, err = app.Test(req, -1); err != nil || resp.StatusCode != 200 {
		t.Fatalf("update polygons: status %v err %v", resp.StatusCode, err)
	}

	resp, err = app.Test(httptest.NewRequest("GET", path, nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	var got domain.Land
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Title != title || len(got.Polygons) != 1 || len(got.Polygons[0]) != 3 {
		t.Errorf("unexpected stored land %+v", got)
	}

	resp, err = app.Test(httptest.NewRequest("DELETE", path, nil), -1)
	if err != nil || resp.StatusCode != 204 {
		t.Fatalf("delete: status %v err %v", resp.StatusCode, err)
	}
	resp, _ = app.Test(httptest.NewRequest("GET", path, nil), -1)
	if resp.StatusCode != 404 {
		t.Errorf("expected 404 after delete, got %d", resp.StatusCode)
	}
}

func TestIntegration_Ready(t *testing.T) {
	db := setupTestDB(t)
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, setupTestDeps(db))

	resp, err := app.Test(httptest.NewRequest("GET", "/ready", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}
