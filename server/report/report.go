// Package report runs the validator over a spot collection and summarizes
// the outcome.
package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"spotforge/server/engine"
	"spotforge/server/spot"
	"spotforge/server/store"
)

// DefaultWorkers bounds concurrent validation when Runner.Workers is unset.
const DefaultWorkers = 8

var meter = otel.Meter("spotforge/report")

// Validator is satisfied by *engine.Validator.
type Validator interface {
	Validate(s *spot.Spot) engine.Result
}

type Failure struct {
	ID     string   `json:"id"`
	Errors []string `json:"errors"`
}

// Report is the outcome of one batch run. Failures follow input order.
type Report struct {
	RunID     uuid.UUID `json:"runId"`
	Total     int       `json:"total"`
	OK        int       `json:"ok"`
	Bad       int       `json:"bad"`
	Failures  []Failure `json:"failures"`
	StartedAt time.Time `json:"startedAt"`
}

// Failed reports whether any spot failed validation.
func (r Report) Failed() bool { return r.Bad > 0 }

// Run converts the report into its persisted form.
func (r Report) Run() store.Run {
	run := store.Run{ID: r.RunID, Total: r.Total, OK: r.OK, Bad: r.Bad, CreatedAt: r.StartedAt}
	for _, f := range r.Failures {
		run.Failures = append(run.Failures, store.Failure{ID: f.ID, Errors: f.Errors})
	}
	return run
}

// FromRun rebuilds a report from a persisted run.
func FromRun(run store.Run) Report {
	r := Report{RunID: run.ID, Total: run.Total, OK: run.OK, Bad: run.Bad, StartedAt: run.CreatedAt, Failures: []Failure{}}
	for _, f := range run.Failures {
		r.Failures = append(r.Failures, Failure{ID: f.ID, Errors: f.Errors})
	}
	return r
}

// WriteText prints one line per error followed by the totals.
func (r Report) WriteText(w io.Writer) error {
	for _, f := range r.Failures {
		for _, e := range f.Errors {
			if _, err := fmt.Fprintf(w, "%s: %s\n", f.ID, e); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintf(w, "total=%d ok=%d bad=%d\n", r.Total, r.OK, r.Bad)
	return err
}

type Runner struct {
	Validator Validator
	Workers   int
	Logger    *zap.Logger
}

// Run validates every spot with at most Workers in flight. A cancelled
// context aborts the run and returns the context error.
func (rn *Runner) Run(ctx context.Context, spots []*spot.Spot) (Report, error) {
	log := rn.Logger
	if log == nil {
		log = zap.NewNop()
	}
	workers := rn.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	rep := Report{RunID: uuid.New(), Total: len(spots), Failures: []Failure{}, StartedAt: time.Now().UTC()}
	log = log.With(zap.String("run_id", rep.RunID.String()))

	results := make([]engine.Result, len(spots))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range spots {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = rn.Validator.Validate(spots[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	for i, res := range results {
		if res.OK {
			rep.OK++
			continue
		}
		rep.Bad++
		id := ""
		if spots[i] != nil {
			id = spots[i].ID
		}
		rep.Failures = append(rep.Failures, Failure{ID: id, Errors: res.Errors})
		log.Debug("spot failed validation", zap.String("id", id), zap.Strings("errors", res.Errors))
	}

	record(ctx, "spotforge.spots.validated", rep.Total)
	record(ctx, "spotforge.spots.failed", rep.Bad)
	log.Info("validation finished", zap.Int("total", rep.Total), zap.Int("ok", rep.OK), zap.Int("bad", rep.Bad))
	return rep, nil
}

// CountRepairs records spots rewritten by the repair engine.
func CountRepairs(ctx context.Context, source string, n int) {
	record(ctx, "spotforge.spots.repaired", n, attribute.String("source", source))
}

func record(ctx context.Context, name string, n int, attrs ...attribute.KeyValue) {
	if n <= 0 {
		return
	}
	if counter, err := meter.Int64Counter(name); err == nil {
		counter.Add(ctx, int64(n), otelmetric.WithAttributes(attrs...))
	}
}
