package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"spotforge/server/classify"
	"spotforge/server/engine"
	"spotforge/server/freq"
	"spotforge/server/report"
	"spotforge/server/spot"
	"spotforge/server/spot/spottest"
	"spotforge/server/store"
)

func driftedSpot() *spot.Spot {
	s := spottest.TurnSpot()
	s.ID = "s1002"
	s.Data.Pot = 10
	s.Data.Options[1][2] = 3.3
	return s
}

func newTestDeps(t *testing.T) *deps {
	t.Helper()
	log := zaptest.NewLogger(t)
	st := store.OpenFile(filepath.Join(t.TempDir(), "spots.jsonl"), log)
	require.NoError(t, st.Replace(context.Background(), []*spot.Spot{spottest.TurnSpot(), driftedSpot()}))
	return &deps{
		log:        log,
		store:      st,
		classifier: classify.Default{},
		validator:  engine.NewValidator(classify.Default{}),
		table:      freq.Default(),
		workers:    2,
	}
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, Router(newTestDeps(t)), http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestValidateEndpoint(t *testing.T) {
	h := Router(newTestDeps(t))

	rec := do(t, h, http.MethodPost, "/api/validate", spottest.TurnSpot())
	require.Equal(t, http.StatusOK, rec.Code)
	var res engine.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.OK, "%v", res.Errors)

	rec = do(t, h, http.MethodPost, "/api/validate", driftedSpot())
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.False(t, res.OK)
	assert.Contains(t, res.Errors[0], "pot mismatch")

	// mistyped fields still produce a result
	rec = do(t, h, http.MethodPost, "/api/validate", `{"id":"s7","difficulty":"4","data":{"pot":"13"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	res = engine.Result{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.False(t, res.OK)
	assert.Contains(t, res.Errors, "difficulty: expected integer, got string")
	assert.Contains(t, res.Errors, "pot: expected number, got string")
	assert.Contains(t, res.Errors, "missing meta")

	rec = do(t, h, http.MethodPost, "/api/validate", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/validate", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRepairEndpoint(t *testing.T) {
	h := Router(newTestDeps(t))
	rec := do(t, h, http.MethodPost, "/api/repair", driftedSpot())
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Spot    spot.Spot     `json:"spot"`
		Result  engine.Result `json:"result"`
		Changed bool          `json:"changed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out.Changed)
	assert.True(t, out.Result.OK, "%v", out.Result.Errors)
	assert.Equal(t, 13.0, out.Spot.Data.Pot)
	assert.Equal(t, 4.29, out.Spot.Data.Options[1][2])

	rec = do(t, h, http.MethodPost, "/api/repair", spottest.TurnSpot())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.False(t, out.Changed)
}

func TestFreqEndpoint(t *testing.T) {
	h := Router(newTestDeps(t))

	rec := do(t, h, http.MethodGet, "/api/freq?hand=made_value&node=value&n=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Turn string    `json:"turn"`
		Freq []float64 `json:"freq"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "blank_turn", out.Turn)
	assert.Equal(t, []float64{0.15, 0.35, 0.5}, out.Freq)

	rec = do(t, h, http.MethodGet, "/api/freq?hand=give_up&turn=overcard&node=bluffcatch&n=1", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, []float64{1.0}, out.Freq)

	for _, q := range []string{
		"hand=monster&node=value&n=3",
		"hand=draw&node=value&turn=river&n=3",
		"hand=draw&node=value&n=abc",
		"hand=draw&node=value&n=99",
		"hand=draw&n=3",
	} {
		rec = do(t, h, http.MethodGet, "/api/freq?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestSpotEndpoint(t *testing.T) {
	h := Router(newTestDeps(t))

	rec := do(t, h, http.MethodGet, "/api/spots/s1001", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var s spot.Spot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.Equal(t, spottest.TurnSpot(), &s)

	rec = do(t, h, http.MethodGet, "/api/spots/s404", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReportEndpoints(t *testing.T) {
	d := newTestDeps(t)
	h := Router(d)

	rec := do(t, h, http.MethodGet, "/api/report", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rep report.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Equal(t, 2, rep.Total)
	assert.Equal(t, 1, rep.Bad)
	require.Len(t, rep.Failures, 1)
	assert.Equal(t, "s1002", rep.Failures[0].ID)

	// file stores keep no run history
	rec = do(t, h, http.MethodGet, "/api/report/latest", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLatestReportFromSQLite(t *testing.T) {
	d := newTestDeps(t)
	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "spots.db"), d.log)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))
	require.NoError(t, st.Replace(ctx, []*spot.Spot{driftedSpot()}))
	d.store = st

	rep, err := d.runner().Run(ctx, []*spot.Spot{driftedSpot()})
	require.NoError(t, err)
	require.NoError(t, st.RecordRun(ctx, rep.Run()))

	rec := do(t, Router(d), http.MethodGet, "/api/report/latest", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got report.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, rep.RunID, got.RunID)
	assert.Equal(t, rep.Failures, got.Failures)
}
