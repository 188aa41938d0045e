package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"spotforge/server/spot"
)

const sqliteTime = "2006-01-02T15:04:05.000000000Z07:00"

// SQLite keeps spots in a single-file database.
type SQLite struct {
	db  *sql.DB
	log *zap.Logger
}

func OpenSQLite(path string, log *zap.Logger) (*SQLite, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	// one connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping sqlite: %w", err)
	}
	log.Info("sqlite store ready", zap.String("path", path))
	return &SQLite{db: db, log: log}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Migrate(ctx context.Context) error {
	b, err := schema.ReadFile("sqlite.sql")
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, string(b)); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

func (s *SQLite) List(ctx context.Context) ([]*spot.Spot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, doc FROM spots ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()
	out := []*spot.Spot{}
	for rows.Next() {
		var doc string
		var id string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("store: list: %w", err)
		}
		out = append(out, decodeDoc(id, []byte(doc)))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	return out, nil
}

func (s *SQLite) Get(ctx context.Context, id string) (*spot.Spot, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM spots WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", id, err)
	}
	return decodeDoc(id, []byte(doc)), nil
}

func (s *SQLite) Replace(ctx context.Context, spots []*spot.Spot) error {
	if _, err := byID(spots); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(sqliteTime)
	for _, sp := range spots {
		if sp == nil {
			continue
		}
		doc, err := json.Marshal(sp)
		if err != nil {
			return fmt.Errorf("store: encode %s: %w", sp.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO spots(id, doc, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE
			   SET doc = excluded.doc,
			       updated_at = excluded.updated_at
		`, sp.ID, string(doc), now); err != nil {
			return fmt.Errorf("store: upsert %s: %w", sp.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	s.log.Debug("spots upserted", zap.Int("count", len(spots)))
	return nil
}

func (s *SQLite) RecordRun(ctx context.Context, r Run) error {
	failures, err := json.Marshal(nonNilFailures(r.Failures))
	if err != nil {
		return fmt.Errorf("store: encode failures: %w", err)
	}
	created := r.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO validation_runs(id, total, ok, bad, failures, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.ID.String(), r.Total, r.OK, r.Bad, string(failures), created.UTC().Format(sqliteTime))
	if err != nil {
		return fmt.Errorf("store: record run: %w", err)
	}
	return nil
}

func (s *SQLite) LatestRun(ctx context.Context) (Run, error) {
	var (
		r                Run
		id, fails, stamp string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, total, ok, bad, failures, created_at
		  FROM validation_runs
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT 1
	`).Scan(&id, &r.Total, &r.OK, &r.Bad, &fails, &stamp)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("store: latest run: %w", err)
	}
	r.CreatedAt, err = time.Parse(sqliteTime, stamp)
	if err != nil {
		return Run{}, fmt.Errorf("store: run time: %w", err)
	}
	return finishRun(r, id, []byte(fails))
}
