package spot_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotforge/server/spot"
	"spotforge/server/spot/spottest"
)

func TestSpotJSONKeepsTupleShape(t *testing.T) {
	in := spottest.TurnSpot()
	raw, err := json.Marshal(in)
	require.NoError(t, err)

	var out spot.Spot
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, &out)

	// arity and null survive
	call := out.Data.History[2]
	require.Len(t, call, 4)
	assert.Nil(t, call[2])
	assert.Len(t, out.Data.History[1], 2)
	assert.Len(t, out.Data.Options[0], 1)

	again, err := json.Marshal(&out)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(again))
}

func TestWireFieldNames(t *testing.T) {
	raw, err := json.Marshal(spottest.TurnSpot())
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	data := m["data"].(map[string]any)
	for _, k := range []string{"effectiveStack", "hero", "villains", "board", "pot", "hist", "options", "sol", "meta"} {
		assert.Contains(t, data, k)
	}
	sol := data["sol"].(map[string]any)
	assert.Contains(t, sol, "bestIndex")
	assert.Contains(t, sol, "ev")
}

func TestTupleAccessors(t *testing.T) {
	a := spot.Act("BTN", spot.Bet, 50, 3.25)
	code, ok := a.Code(false)
	require.True(t, ok)
	assert.Equal(t, "b", code)
	pct, ok := a.Percent(2)
	require.True(t, ok)
	assert.Equal(t, 50.0, pct)
	ex, ok := a.Exact(3)
	require.True(t, ok)
	assert.Equal(t, 3.25, ex)
	assert.False(t, a.IsMarker())

	m := spot.Marker(spot.MarkTurn)
	assert.True(t, m.IsMarker())
	assert.Equal(t, `["-","t"]`, m.String())

	o := spot.Opt(spot.Bet, "pot", 13)
	code, ok = o.Code(true)
	require.True(t, ok)
	assert.Equal(t, "b", code)
	_, ok = o.Percent(1)
	assert.False(t, ok)
	_, ok = o.Exact(7)
	assert.False(t, ok)

	ref, ok := o.SizeRef(true)
	require.True(t, ok)
	assert.Equal(t, "pot", ref)
	ref, ok = spot.Act("BB", spot.Call, nil, 2).SizeRef(false)
	require.True(t, ok)
	assert.Nil(t, ref)
	_, ok = spot.Opt(spot.Check, nil, 0).SizeRef(true)
	assert.False(t, ok)
}

func TestMarkerOrder(t *testing.T) {
	assert.Less(t, spot.MarkerOrder("p"), spot.MarkerOrder("f"))
	assert.Less(t, spot.MarkerOrder("f"), spot.MarkerOrder("t"))
	assert.Less(t, spot.MarkerOrder("t"), spot.MarkerOrder("r"))
	assert.Equal(t, -1, spot.MarkerOrder("x"))
}

func TestCloneIsDeep(t *testing.T) {
	in := spottest.TurnSpot()
	cp := in.Clone()
	cp.Data.History[5][3] = 99.0
	cp.Data.Options[1][2] = 1.0
	cp.Tags[0] = "changed"
	cp.Data.Solution.EV[0] = -1

	assert.Equal(t, 3.25, in.Data.History[5][3])
	assert.Equal(t, 4.29, in.Data.Options[1][2])
	assert.Equal(t, "srp", in.Tags[0])
	assert.Equal(t, 0.8, in.Data.Solution.EV[0])
}

func TestClampTags(t *testing.T) {
	got := spot.ClampTags([]string{" turn", "srp", "turn", "", "a", "b", "c", "d", "e"})
	assert.Equal(t, []string{"turn", "srp", "a", "b", "c", "d"}, got)
}

func TestClampConceptsDropsUnknown(t *testing.T) {
	got := spot.ClampConcepts([]string{"blockers", "vibes", "blockers", "overbet"}, nil)
	assert.Equal(t, []string{"blockers", "overbet"}, got)

	got = spot.ClampConcepts([]string{"a", "b"}, []string{"b"})
	assert.Equal(t, []string{"b"}, got)
}

// mutate round-trips the turn fixture through a generic map so tests can
// break single fields the way a bad producer would.
func mutate(t *testing.T, edit func(top, data map[string]any)) *spot.Spot {
	t.Helper()
	raw, err := json.Marshal(spottest.TurnSpot())
	require.NoError(t, err)
	var top map[string]any
	require.NoError(t, json.Unmarshal(raw, &top))
	edit(top, top["data"].(map[string]any))
	raw, err = json.Marshal(top)
	require.NoError(t, err)
	var s spot.Spot
	require.NoError(t, json.Unmarshal(raw, &s))
	return &s
}

func TestDecodeRecordsDefects(t *testing.T) {
	tests := []struct {
		name string
		edit func(top, data map[string]any)
		want []string
	}{
		{"difficulty string", func(top, _ map[string]any) { top["difficulty"] = "4" },
			[]string{"difficulty: expected integer, got string"}},
		{"difficulty fraction", func(top, _ map[string]any) { top["difficulty"] = 4.5 },
			[]string{"difficulty: expected integer, got number 4.5"}},
		{"pot string", func(_, d map[string]any) { d["pot"] = "13" },
			[]string{"pot: expected number, got string"}},
		{"hero string", func(_, d map[string]any) { d["hero"] = "BB" },
			[]string{"hero: expected object, got string"}},
		{"pot missing", func(_, d map[string]any) { delete(d, "pot") },
			[]string{"missing pot"}},
		{"meta missing", func(_, d map[string]any) { delete(d, "meta") },
			[]string{"missing meta"}},
		{"id null", func(top, _ map[string]any) { top["id"] = nil },
			[]string{"missing id"}},
		{"ev strings", func(_, d map[string]any) { d["sol"].(map[string]any)["ev"] = []any{"a"} },
			[]string{"sol.ev: expected array of numbers, got string"}},
		{"freq object", func(_, d map[string]any) { d["meta"].(map[string]any)["freq"] = map[string]any{} },
			[]string{"meta.freq: expected array of numbers, got object"}},
		{"hist string", func(_, d map[string]any) { d["hist"] = "oops" },
			[]string{"hist: expected array, got string"}},
		{"tags null", func(top, _ map[string]any) { top["tags"] = nil }, nil},
		{"unknown key", func(top, _ map[string]any) { top["extra"] = true }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mutate(t, tt.edit).Defects)
		})
	}
}

func TestDecodeKeepsGoodFieldsAroundDefects(t *testing.T) {
	s := mutate(t, func(_, d map[string]any) {
		d["pot"] = "13"
		d["hist"].([]any)[1] = "oops"
	})
	assert.Equal(t, "s1001", s.ID)
	assert.Equal(t, 4, s.Difficulty)
	assert.Equal(t, 0.0, s.Data.Pot)
	require.Len(t, s.Data.History, 8)
	assert.Nil(t, s.Data.History[1])
	assert.Equal(t, spot.Tuple{"BB", "c", nil, 2.0}, s.Data.History[2])
}

func TestDecodeNonObject(t *testing.T) {
	var s spot.Spot
	require.NoError(t, json.Unmarshal([]byte(`[1,2]`), &s))
	assert.Equal(t, []string{"spot: expected object, got array"}, s.Defects)
	assert.Nil(t, s.Data)

	// syntax errors are still errors
	assert.Error(t, json.Unmarshal([]byte(`{"id":`), &s))
}
