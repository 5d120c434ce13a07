package http

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/samirrijal/landplot/internal/adapters/postgres"
	"github.com/samirrijal/landplot/internal/adapters/valkey"
	"github.com/samirrijal/landplot/internal/core/usecases"
)

// BulkDeleter runs a bulk delete out of band and returns a tracking ID.
type BulkDeleter interface {
	StartBulkDelete(ctx context.Context, ids []int64) (string, error)
}

// AuthSettings controls session cookies and whether land routes need a login.
type AuthSettings struct {
	Required     bool
	CookieName   string
	CookieSecure bool
	SessionTTL   time.Duration
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Lands       *usecases.LandService
	Auth        *usecases.AuthService
	History     *usecases.HistoryService // nil when the event log is not kept
	BulkDeleter BulkDeleter // nil runs bulk deletes inline
	AuthConfig  AuthSettings
	NATS        *nats.Conn
	DB          *postgres.DB
	Cache       *valkey.Cache
}

func (d *Dependencies) cookieName() string {
	if d.AuthConfig.CookieName == "" {
		return "landplot_session"
	}
	return d.AuthConfig.CookieName
}
