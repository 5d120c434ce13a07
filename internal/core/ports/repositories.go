package ports

import (
	"context"

	"github.com/samirrijal/landplot/internal/core/domain"
)

// LandRepository persists land records.
type LandRepository interface {
	Create(ctx context.Context, land *domain.Land) error
	GetByID(ctx context.Context, id int64) (*domain.Land, error)
	List(ctx context.Context) ([]domain.Land, error)
	Update(ctx context.Context, land *domain.Land) error
	UpdatePolygons(ctx context.Context, id int64, polygons []domain.Polygon) error
	Delete(ctx context.Context, id int64) error
}

// UserRepository persists user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// LandEventLog keeps the change history of land records. Appending an event
// that is already stored is a no-op so redelivered messages are harmless.
type LandEventLog interface {
	Append(ctx context.Context, event *domain.LandEvent) error
	ListByLand(ctx context.Context, landID int64, limit int) ([]domain.LandEvent, error)
}
