// Package freq assigns fallback action frequencies to a spot's option menu
// when no solver output exists.
package freq

import (
	"sort"

	"spotforge/server/classify"
)

// Table is a sparse hand intent -> turn type -> node intent -> vector
// mapping. Each hand intent carries a node priority list that decides which
// entry a partial match falls back to.
type Table struct {
	hands map[classify.HandIntent]*handEntry
}

type handEntry struct {
	priority []classify.NodeIntent
	turns    map[classify.TurnType]map[classify.NodeIntent][]float64
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{hands: map[classify.HandIntent]*handEntry{}}
}

func (t *Table) entry(h classify.HandIntent) *handEntry {
	e, ok := t.hands[h]
	if !ok {
		e = &handEntry{turns: map[classify.TurnType]map[classify.NodeIntent][]float64{}}
		t.hands[h] = e
	}
	return e
}

// Set stores vec for the triple. Empty vectors are ignored.
func (t *Table) Set(h classify.HandIntent, tt classify.TurnType, n classify.NodeIntent, vec []float64) {
	if len(vec) == 0 {
		return
	}
	e := t.entry(h)
	nodes, ok := e.turns[tt]
	if !ok {
		nodes = map[classify.NodeIntent][]float64{}
		e.turns[tt] = nodes
	}
	nodes[n] = append([]float64(nil), vec...)
}

// SetPriority sets the node order used when the requested node is missing.
func (t *Table) SetPriority(h classify.HandIntent, order []classify.NodeIntent) {
	t.entry(h).priority = append([]classify.NodeIntent(nil), order...)
}

// Priority returns the effective node order for h: the explicit list
// followed by any other node intent in declaration order.
func (t *Table) Priority(h classify.HandIntent) []classify.NodeIntent {
	var explicit []classify.NodeIntent
	if e, ok := t.hands[h]; ok {
		explicit = e.priority
	}
	out := append([]classify.NodeIntent(nil), explicit...)
	seen := map[classify.NodeIntent]bool{}
	for _, n := range explicit {
		seen[n] = true
	}
	for _, n := range classify.NodeIntents {
		if !seen[n] {
			out = append(out, n)
			seen[n] = true
		}
	}
	return out
}

func (t *Table) get(h classify.HandIntent, tt classify.TurnType, n classify.NodeIntent) ([]float64, bool) {
	e, ok := t.hands[h]
	if !ok {
		return nil, false
	}
	v, ok := e.turns[tt][n]
	return v, ok
}

// first returns the highest priority entry stored under (h, tt). Nodes
// outside the known enumeration are tried last, sorted by name.
func (t *Table) first(h classify.HandIntent, tt classify.TurnType) ([]float64, bool) {
	e, ok := t.hands[h]
	if !ok {
		return nil, false
	}
	nodes := e.turns[tt]
	if len(nodes) == 0 {
		return nil, false
	}
	for _, n := range t.Priority(h) {
		if v, ok := nodes[n]; ok {
			return v, true
		}
	}
	rest := make([]string, 0, len(nodes))
	for n := range nodes {
		rest = append(rest, string(n))
	}
	sort.Strings(rest)
	return nodes[classify.NodeIntent(rest[0])], true
}

// Lookup returns an n-slot frequency vector aligned with the option menu.
// The chain is: exact triple, same turn with the first node by priority,
// blank turn with the requested node, blank turn with the first node by
// priority, and finally uniform.
func (t *Table) Lookup(h classify.HandIntent, tt classify.TurnType, n classify.NodeIntent, size int) []float64 {
	if size <= 0 {
		return []float64{}
	}
	if size == 1 {
		return []float64{1.0}
	}
	if t != nil {
		if v, ok := t.resolve(h, tt, n); ok {
			return Resize(v, size)
		}
	}
	return Uniform(size)
}

func (t *Table) resolve(h classify.HandIntent, tt classify.TurnType, n classify.NodeIntent) ([]float64, bool) {
	if v, ok := t.get(h, tt, n); ok {
		return v, true
	}
	if v, ok := t.first(h, tt); ok {
		return v, true
	}
	if v, ok := t.get(h, classify.BlankTurn, n); ok {
		return v, true
	}
	return t.first(h, classify.BlankTurn)
}

// Len returns the number of stored vectors.
func (t *Table) Len() int {
	n := 0
	for _, e := range t.hands {
		for _, nodes := range e.turns {
			n += len(nodes)
		}
	}
	return n
}

// Default returns the built-in table. Vectors run passive first, then
// ascending aggression, and are sized for a check / small / large menu
// unless the node only makes sense with two options.
func Default() *Table {
	t := NewTable()
	for h, order := range defaultPriority {
		t.SetPriority(h, order)
	}
	for _, r := range defaultRows {
		t.Set(r.hand, r.turn, r.node, r.vec)
	}
	return t
}

var defaultPriority = map[classify.HandIntent][]classify.NodeIntent{
	classify.MadeValue: {classify.NodeValue, classify.NodePressure, classify.NodeSemiBluff, classify.NodeBluffcatch},
	classify.ThinValue: {classify.NodeValue, classify.NodeBluffcatch, classify.NodeSemiBluff, classify.NodePressure},
	classify.ComboDraw: {classify.NodeSemiBluff, classify.NodePressure, classify.NodeValue, classify.NodeBluffcatch},
	classify.Draw:      {classify.NodeSemiBluff, classify.NodePressure, classify.NodeBluffcatch, classify.NodeValue},
	classify.PureBluff: {classify.NodePressure, classify.NodeSemiBluff, classify.NodeBluffcatch, classify.NodeValue},
	classify.GiveUp:    {classify.NodeBluffcatch, classify.NodePressure, classify.NodeSemiBluff, classify.NodeValue},
}

var defaultRows = []struct {
	hand classify.HandIntent
	turn classify.TurnType
	node classify.NodeIntent
	vec  []float64
}{
	{classify.MadeValue, classify.BlankTurn, classify.NodeValue, []float64{0.15, 0.35, 0.50}},
	{classify.MadeValue, classify.BlankTurn, classify.NodePressure, []float64{0.10, 0.30, 0.60}},
	{classify.MadeValue, classify.OvercardTurn, classify.NodeValue, []float64{0.30, 0.40, 0.30}},
	{classify.MadeValue, classify.FlushCompleter, classify.NodeValue, []float64{0.45, 0.40, 0.15}},
	{classify.MadeValue, classify.StraightCompleter, classify.NodeValue, []float64{0.45, 0.40, 0.15}},
	{classify.MadeValue, classify.PairedTurn, classify.NodeValue, []float64{0.25, 0.45, 0.30}},

	{classify.ThinValue, classify.BlankTurn, classify.NodeValue, []float64{0.40, 0.50, 0.10}},
	{classify.ThinValue, classify.BlankTurn, classify.NodeSemiBluff, []float64{0.45, 0.55}},
	{classify.ThinValue, classify.OvercardTurn, classify.NodeValue, []float64{0.55, 0.40, 0.05}},
	{classify.ThinValue, classify.PairedTurn, classify.NodeValue, []float64{0.50, 0.45, 0.05}},

	{classify.ComboDraw, classify.BlankTurn, classify.NodeSemiBluff, []float64{0.25, 0.30, 0.45}},
	{classify.ComboDraw, classify.BlankTurn, classify.NodePressure, []float64{0.20, 0.30, 0.50}},
	{classify.ComboDraw, classify.FlushCompleter, classify.NodeSemiBluff, []float64{0.40, 0.35, 0.25}},

	{classify.Draw, classify.BlankTurn, classify.NodeSemiBluff, []float64{0.45, 0.35, 0.20}},
	{classify.Draw, classify.OvercardTurn, classify.NodeSemiBluff, []float64{0.50, 0.35, 0.15}},

	{classify.PureBluff, classify.BlankTurn, classify.NodePressure, []float64{0.70, 0.10, 0.20}},
	{classify.PureBluff, classify.OvercardTurn, classify.NodePressure, []float64{0.55, 0.15, 0.30}},

	{classify.GiveUp, classify.BlankTurn, classify.NodeBluffcatch, []float64{0.35, 0.65}},
	{classify.GiveUp, classify.OvercardTurn, classify.NodeBluffcatch, []float64{0.50, 0.50}},
}
