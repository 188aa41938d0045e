// Package store persists spots as structured documents: a JSON/JSONL file,
// a Postgres table or a SQLite table.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"spotforge/server/spot"
)

// ErrNotFound is returned by Get when no spot has the id.
var ErrNotFound = errors.New("store: spot not found")

// ErrUnreadable is returned by a file store write when the file holds a
// record that is not JSON; rewriting would drop it.
var ErrUnreadable = errors.New("record is not valid JSON")

// Store is a spot collection. Replace upserts by id and keeps the order of
// existing records; new ids are appended.
type Store interface {
	List(ctx context.Context) ([]*spot.Spot, error)
	Get(ctx context.Context, id string) (*spot.Spot, error)
	Replace(ctx context.Context, spots []*spot.Spot) error
	Close() error
}

// Migrator is implemented by the SQL stores.
type Migrator interface {
	Migrate(ctx context.Context) error
}

// RunRecorder is implemented by stores that keep validation run history.
type RunRecorder interface {
	RecordRun(ctx context.Context, r Run) error
	LatestRun(ctx context.Context) (Run, error)
}

// Run is one persisted batch validation.
type Run struct {
	ID        uuid.UUID `json:"id"`
	Total     int       `json:"total"`
	OK        int       `json:"ok"`
	Bad       int       `json:"bad"`
	Failures  []Failure `json:"failures"`
	CreatedAt time.Time `json:"createdAt"`
}

// Failure is one failing spot inside a Run.
type Failure struct {
	ID     string   `json:"id"`
	Errors []string `json:"errors"`
}

// Options selects and configures a backend. DatabaseURL wins over
// SQLitePath, which wins over FilePath.
type Options struct {
	DatabaseURL string
	SQLitePath  string
	FilePath    string
	AutoMigrate bool
	Logger      *zap.Logger
}

// Open returns the backend chosen by opts.
func Open(ctx context.Context, opts Options) (Store, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	var (
		s   Store
		err error
	)
	switch {
	case strings.TrimSpace(opts.DatabaseURL) != "":
		s, err = OpenPostgres(ctx, opts.DatabaseURL, log)
	case strings.TrimSpace(opts.SQLitePath) != "":
		s, err = OpenSQLite(opts.SQLitePath, log)
	case strings.TrimSpace(opts.FilePath) != "":
		return OpenFile(opts.FilePath, log), nil
	default:
		return nil, errors.New("store: no backend configured")
	}
	if err != nil {
		return nil, err
	}
	if m, ok := s.(Migrator); ok && opts.AutoMigrate {
		if err := m.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// byID indexes spots, skipping nil entries.
func byID(spots []*spot.Spot) (map[string]*spot.Spot, error) {
	m := make(map[string]*spot.Spot, len(spots))
	for i, s := range spots {
		if s == nil {
			continue
		}
		if s.ID == "" {
			return nil, fmt.Errorf("store: spot %d has no id", i)
		}
		m[s.ID] = s
	}
	return m, nil
}
