package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"spotforge/server/classify"
	"spotforge/server/engine"
	"spotforge/server/report"
	"spotforge/server/spot"
	"spotforge/server/store"
)

const (
	maxBody    = 1 << 20
	maxOptions = 32
)

func Router(d *deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(d.log))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		})

		r.Post("/validate", func(w http.ResponseWriter, r *http.Request) {
			s, ok := decodeSpot(w, r)
			if !ok {
				return
			}
			writeJSON(w, http.StatusOK, d.validator.Validate(s))
		})

		r.Post("/repair", func(w http.ResponseWriter, r *http.Request) {
			s, ok := decodeSpot(w, r)
			if !ok {
				return
			}
			fixed := engine.Repair(s)
			changed := !cmp.Equal(s, fixed)
			if changed {
				report.CountRepairs(r.Context(), "http", 1)
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"spot":    fixed,
				"result":  d.validator.Validate(fixed),
				"changed": changed,
			})
		})

		r.Get("/freq", func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			hand := classify.HandIntent(q.Get("hand"))
			node := classify.NodeIntent(q.Get("node"))
			turn := classify.TurnType(q.Get("turn"))
			if turn == "" {
				turn = classify.BlankTurn
			}
			if err := checkIntents(hand, turn, node); err != nil {
				httpError(w, http.StatusBadRequest, err.Error())
				return
			}
			n, err := strconv.Atoi(q.Get("n"))
			if err != nil || n < 0 || n > maxOptions {
				httpError(w, http.StatusBadRequest, "n must be an integer in 0.."+strconv.Itoa(maxOptions))
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"hand": hand, "turn": turn, "node": node,
				"freq": d.table.Lookup(hand, turn, node, n),
			})
		})

		r.Get("/spots/{id}", func(w http.ResponseWriter, r *http.Request) {
			s, err := d.store.Get(r.Context(), chi.URLParam(r, "id"))
			if errors.Is(err, store.ErrNotFound) {
				httpError(w, http.StatusNotFound, err.Error())
				return
			}
			if err != nil {
				d.log.Error("get spot", zap.Error(err))
				httpError(w, http.StatusInternalServerError, "store error")
				return
			}
			writeJSON(w, http.StatusOK, s)
		})

		r.Get("/report", func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			spots, err := d.store.List(ctx)
			if err != nil {
				d.log.Error("list spots", zap.Error(err))
				httpError(w, http.StatusInternalServerError, "store error")
				return
			}
			rep, err := d.runner().Run(ctx, spots)
			if err != nil {
				httpError(w, http.StatusServiceUnavailable, err.Error())
				return
			}
			writeJSON(w, http.StatusOK, rep)
		})

		r.Get("/report/latest", func(w http.ResponseWriter, r *http.Request) {
			rr, ok := d.store.(store.RunRecorder)
			if !ok {
				httpError(w, http.StatusNotFound, "store does not keep run history")
				return
			}
			run, err := rr.LatestRun(r.Context())
			if errors.Is(err, store.ErrNotFound) {
				httpError(w, http.StatusNotFound, "no recorded runs")
				return
			}
			if err != nil {
				d.log.Error("latest run", zap.Error(err))
				httpError(w, http.StatusInternalServerError, "store error")
				return
			}
			writeJSON(w, http.StatusOK, report.FromRun(run))
		})
	})
	return r
}

func decodeSpot(w http.ResponseWriter, r *http.Request) (*spot.Spot, bool) {
	var s spot.Spot
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(&s); err != nil {
		httpError(w, http.StatusBadRequest, "invalid spot JSON: "+err.Error())
		return nil, false
	}
	return &s, true
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func httpError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
