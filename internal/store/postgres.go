package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bobmatnyc/ai-commander-sub001/internal/model"
)

// PostgresProjectStore is an optional, Postgres-backed alternative to
// StateStore's project persistence, for deployments that already run a
// Postgres instance and want projects queryable outside this process.
// Events and work items stay file-backed via StateStore; only the
// project roster — the entity an operator actually inspects with SQL
// ("which projects are stuck in error?") — gets a second backend.
//
// Grounded on the teacher's internal/store/pg connection-pool and
// upsert conventions, generalized from its multi-tenant teams/sessions
// schema to this module's single Project entity.
type PostgresProjectStore struct {
	pool *pgxpool.Pool
}

// NewPostgresProjectStore connects to dsn and ensures the projects table
// exists.
func NewPostgresProjectStore(ctx context.Context, dsn string) (*PostgresProjectStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	s := &PostgresProjectStore{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresProjectStore) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS projects (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	data       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`)
	return err
}

// SaveProject upserts p by ID, storing its full JSON representation in
// the data column so the schema doesn't need to track every field.
func (s *PostgresProjectStore) SaveProject(ctx context.Context, p *model.Project) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO projects (id, name, data, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (id) DO UPDATE SET name = $2, data = $3, updated_at = now()`,
		p.ID, p.Name, data)
	return err
}

// LoadProject fetches a project by ID, or model.ErrNotFound if it
// doesn't exist.
func (s *PostgresProjectStore) LoadProject(ctx context.Context, id string) (*model.Project, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM projects WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &model.NotFoundError{Kind: "project", ID: id}
	}
	if err != nil {
		return nil, err
	}
	var p model.Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteProject removes a project by ID. Deleting an unknown ID is not
// an error.
func (s *PostgresProjectStore) DeleteProject(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	return err
}

// ListAllProjects returns every stored project. onSkip is invoked for
// any row whose JSON fails to decode, mirroring StateStore's
// skip-on-parse-error listing instead of failing the whole call.
func (s *PostgresProjectStore) ListAllProjects(ctx context.Context, onSkip func(id string, err error)) ([]*model.Project, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, data FROM projects ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Project
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			if onSkip != nil {
				onSkip(id, err)
			}
			continue
		}
		var p model.Project
		if err := json.Unmarshal(data, &p); err != nil {
			if onSkip != nil {
				onSkip(id, err)
			}
			continue
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// Close releases the connection pool.
func (s *PostgresProjectStore) Close() {
	s.pool.Close()
}
