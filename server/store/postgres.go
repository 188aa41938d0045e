package store

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"spotforge/server/spot"
)

//go:embed schema.sql sqlite.sql
var schema embed.FS

// Postgres keeps one JSONB document per spot.
type Postgres struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func OpenPostgres(ctx context.Context, dsn string, log *zap.Logger) (*Postgres, error) {
	if log == nil {
		log = zap.NewNop()
	}
	p, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open postgres: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("store: ping postgres: %w", err)
	}
	log.Info("postgres store ready")
	return &Postgres{pool: p, log: log}, nil
}

func (db *Postgres) Close() error {
	db.pool.Close()
	return nil
}

func (db *Postgres) Migrate(ctx context.Context) error {
	sqlBytes, err := schema.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	if _, err := db.pool.Exec(ctx, string(sqlBytes)); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

func (db *Postgres) List(ctx context.Context) ([]*spot.Spot, error) {
	rows, err := db.pool.Query(ctx, `SELECT id, doc FROM spots ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()
	out := []*spot.Spot{}
	for rows.Next() {
		var doc []byte
		var id string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("store: list: %w", err)
		}
		out = append(out, decodeDoc(id, doc))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	return out, nil
}

func (db *Postgres) Get(ctx context.Context, id string) (*spot.Spot, error) {
	var doc []byte
	err := db.pool.QueryRow(ctx, `SELECT doc FROM spots WHERE id = $1`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", id, err)
	}
	return decodeDoc(id, doc), nil
}

// Replace upserts every spot in one transaction.
func (db *Postgres) Replace(ctx context.Context, spots []*spot.Spot) error {
	if _, err := byID(spots); err != nil {
		return err
	}
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, s := range spots {
		if s == nil {
			continue
		}
		doc, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("store: encode %s: %w", s.ID, err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO spots(id, doc) VALUES ($1, $2::jsonb)
			ON CONFLICT (id) DO UPDATE
			   SET doc = EXCLUDED.doc,
			       updated_at = now()
		`, s.ID, string(doc)); err != nil {
			return fmt.Errorf("store: upsert %s: %w", s.ID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	db.log.Debug("spots upserted", zap.Int("count", len(spots)))
	return nil
}

func (db *Postgres) RecordRun(ctx context.Context, r Run) error {
	failures, err := json.Marshal(nonNilFailures(r.Failures))
	if err != nil {
		return fmt.Errorf("store: encode failures: %w", err)
	}
	created := r.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err = db.pool.Exec(ctx, `
		INSERT INTO validation_runs(id, total, ok, bad, failures, created_at)
		VALUES ($1::uuid, $2, $3, $4, $5::jsonb, $6)
	`, r.ID.String(), r.Total, r.OK, r.Bad, string(failures), created)
	if err != nil {
		return fmt.Errorf("store: record run: %w", err)
	}
	return nil
}

func (db *Postgres) LatestRun(ctx context.Context) (Run, error) {
	var (
		r        Run
		id       string
		failures []byte
	)
	err := db.pool.QueryRow(ctx, `
		SELECT id::text, total, ok, bad, failures, created_at
		  FROM validation_runs
		 ORDER BY created_at DESC
		 LIMIT 1
	`).Scan(&id, &r.Total, &r.OK, &r.Bad, &failures, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("store: latest run: %w", err)
	}
	return finishRun(r, id, failures)
}

// decodeDoc never fails: a document that is not JSON comes back as a spot
// carrying only its row id and the decode error, so it fails validation
// instead of aborting the listing.
func decodeDoc(id string, doc []byte) *spot.Spot {
	var s spot.Spot
	if err := json.Unmarshal(doc, &s); err != nil {
		return &spot.Spot{ID: id, Defects: []string{"undecodable document: " + err.Error()}}
	}
	return &s
}

func nonNilFailures(f []Failure) []Failure {
	if f == nil {
		return []Failure{}
	}
	return f
}

func finishRun(r Run, id string, failures []byte) (Run, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return Run{}, fmt.Errorf("store: run id: %w", err)
	}
	r.ID = u
	if err := json.Unmarshal(failures, &r.Failures); err != nil {
		return Run{}, fmt.Errorf("store: decode failures: %w", err)
	}
	return r, nil
}
