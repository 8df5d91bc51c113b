package catalog

import (
	"context"
	"database/sql"
	"errors"
)

var ErrNotFound = errors.New("catalog: not found")

// Repository is the persistence contract for the catalog service.
type Repository interface {
	ListCafeterias(ctx context.Context) ([]Cafeteria, error)
	ListStalls(ctx context.Context, cafeteriaID int64) ([]Stall, error)
	CreateCafeteria(ctx context.Context, c Cafeteria) (int64, error)
}

// PGRepo reads and writes the catalog tables in Postgres.
//
// Assumed schema:
//
//	CREATE TABLE cafeterias (
//	    id         BIGSERIAL PRIMARY KEY,
//	    name       TEXT NOT NULL,
//	    location   TEXT NOT NULL,
//	    open_hours TEXT NOT NULL DEFAULT '',
//	    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
//	CREATE TABLE stalls (
//	    id           BIGSERIAL PRIMARY KEY,
//	    cafeteria_id BIGINT NOT NULL REFERENCES cafeterias (id),
//	    name         TEXT NOT NULL,
//	    cuisine      TEXT NOT NULL DEFAULT '',
//	    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type PGRepo struct {
	db *sql.DB
}

func NewPGRepo(db *sql.DB) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) ListCafeterias(ctx context.Context) ([]Cafeteria, error) {
	const q = `
SELECT id, name, location, open_hours, created_at
FROM cafeterias
ORDER BY name
`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Cafeteria
	for rows.Next() {
		var c Cafeteria
		if err := rows.Scan(&c.ID, &c.Name, &c.Location, &c.OpenHours, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PGRepo) ListStalls(ctx context.Context, cafeteriaID int64) ([]Stall, error) {
	const q = `
SELECT id, cafeteria_id, name, cuisine, created_at
FROM stalls
WHERE cafeteria_id = $1
ORDER BY name
`
	rows, err := r.db.QueryContext(ctx, q, cafeteriaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Stall
	for rows.Next() {
		var s Stall
		if err := rows.Scan(&s.ID, &s.CafeteriaID, &s.Name, &s.Cuisine, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PGRepo) CreateCafeteria(ctx context.Context, c Cafeteria) (int64, error) {
	const q = `
INSERT INTO cafeterias (name, location, open_hours)
VALUES ($1, $2, $3)
RETURNING id
`
	var id int64
	if err := r.db.QueryRowContext(ctx, q, c.Name, c.Location, c.OpenHours).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}
