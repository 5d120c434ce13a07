package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/landplot/internal/core/domain"
)

const landColumns = `id, title, name, location, size, owner, land_type, market_value, notes, polygons, created_at, updated_at`

// LandRepo implements ports.LandRepository. Polygons are stored as a JSONB
// array in the same wire shape the API exchanges.
type LandRepo struct {
	db *DB
}

func NewLandRepo(db *DB) *LandRepo {
	return &LandRepo{db: db}
}

func (r *LandRepo) Create(ctx context.Context, l *domain.Land) error {
	polys, err := encodePolygons(l.Polygons)
	if err != nil {
		return err
	}
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO lands (title, name, location, size, owner, land_type, market_value, notes, polygons)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`, l.Title, l.Name, l.Location, l.Size, l.Owner, l.LandType, l.MarketValue, l.Notes, polys).
		Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
}

// CreateBatch inserts lands in batches of batchSize statements and returns
// the number of rows written. IDs are not reported back.
func (r *LandRepo) CreateBatch(ctx context.Context, lands []domain.Land, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 500
	}
	batch := &pgx.Batch{}
	written := 0
	for i := range lands {
		l := &lands[i]
		polys, err := encodePolygons(l.Polygons)
		if err != nil {
			return written, err
		}
		batch.Queue(`
			INSERT INTO lands (title, name, location, size, owner, land_type, market_value, notes, polygons)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, l.Title, l.Name, l.Location, l.Size, l.Owner, l.LandType, l.MarketValue, l.Notes, polys)

		if batch.Len() >= batchSize {
			if err := r.flush(ctx, batch); err != nil {
				return written, err
			}
			written += batch.Len()
			batch = &pgx.Batch{}
		}
	}
	if batch.Len() > 0 {
		if err := r.flush(ctx, batch); err != nil {
			return written, err
		}
		written += batch.Len()
	}
	return written, nil
}

func (r *LandRepo) flush(ctx context.Context, batch *pgx.Batch) error {
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch item %d: %w", i, err)
		}
	}
	return nil
}

func (r *LandRepo) GetByID(ctx context.Context, id int64) (*domain.Land, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+landColumns+` FROM lands WHERE id = $1`, id)
	l, err := scanLand(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return l, err
}

func (r *LandRepo) List(ctx context.Context) ([]domain.Land, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+landColumns+` FROM lands ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lands := []domain.Land{}
	for rows.Next() {
		l, err := scanLand(rows)
		if err != nil {
			return nil, err
		}
		lands = append(lands, *l)
	}
	return lands, rows.Err()
}

func (r *LandRepo) Update(ctx context.Context, l *domain.Land) error {
	polys, err := encodePolygons(l.Polygons)
	if err != nil {
		return err
	}
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE lands SET title = $2, name = $3, location = $4, size = $5, owner = $6,
			land_type = $7, market_value = $8, notes = $9, polygons = $10, updated_at = now()
		WHERE id = $1
	`, l.ID, l.Title, l.Name, l.Location, l.Size, l.Owner, l.LandType, l.MarketValue, l.Notes, polys)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *LandRepo) UpdatePolygons(ctx context.Context, id int64, polygons []domain.Polygon) error {
	polys, err := encodePolygons(polygons)
	if err != nil {
		return err
	}
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE lands SET polygons = $2, updated_at = now() WHERE id = $1
	`, id, polys)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *LandRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM lands WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanLand(row pgx.Row) (*domain.Land, error) {
	var (
		l     domain.Land
		polys []byte
	)
	if err := row.Scan(&l.ID, &l.Title, &l.Name, &l.Location, &l.Size, &l.Owner,
		&l.LandType, &l.MarketValue, &l.Notes, &polys, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	l.Polygons = []domain.Polygon{}
	if len(polys) > 0 {
		if err := json.Unmarshal(polys, &l.Polygons); err != nil {
			return nil, fmt.Errorf("decode polygons of land %d: %w", l.ID, err)
		}
	}
	return &l, nil
}

func encodePolygons(polys []domain.Polygon) ([]byte, error) {
	data, err := json.Marshal(domain.ClonePolygons(polys))
	if err != nil {
		return nil, fmt.Errorf("encode polygons: %w", err)
	}
	return data, nil
}
