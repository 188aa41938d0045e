package freq

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"spotforge/server/classify"
	"spotforge/server/spot"
)

// tableFile is the YAML layout of a table override:
//
//	hands:
//	  - intent: made_value
//	    priority: [value, pressure]
//	    turns:
//	      blank_turn:
//	        value: [0.15, 0.35, 0.50]
type tableFile struct {
	Hands []struct {
		Intent   string                          `yaml:"intent"`
		Priority []string                        `yaml:"priority"`
		Turns    map[string]map[string][]float64 `yaml:"turns"`
	} `yaml:"hands"`
}

// LoadTable reads a YAML table from path.
func LoadTable(path string) (*Table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("freq: read table: %w", err)
	}
	t, err := ParseTable(b)
	if err != nil {
		return nil, fmt.Errorf("freq: %s: %w", path, err)
	}
	return t, nil
}

// ParseTable decodes a YAML table, rejecting unknown intents and vectors
// that are empty, negative or all zero.
func ParseTable(b []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decode table: %w", err)
	}
	t := NewTable()
	for i, h := range f.Hands {
		hand := classify.HandIntent(h.Intent)
		if !hand.Valid() {
			return nil, fmt.Errorf("hands[%d]: unknown hand intent %q", i, h.Intent)
		}
		order := make([]classify.NodeIntent, 0, len(h.Priority))
		for _, p := range h.Priority {
			n := classify.NodeIntent(p)
			if !n.Valid() {
				return nil, fmt.Errorf("hands[%d]: unknown node intent %q in priority", i, p)
			}
			order = append(order, n)
		}
		t.SetPriority(hand, order)
		for turn, nodes := range h.Turns {
			tt := classify.TurnType(turn)
			if !tt.Valid() {
				return nil, fmt.Errorf("hands[%d]: unknown turn type %q", i, turn)
			}
			for node, vec := range nodes {
				n := classify.NodeIntent(node)
				if !n.Valid() {
					return nil, fmt.Errorf("hands[%d].%s: unknown node intent %q", i, turn, node)
				}
				if err := checkVector(vec); err != nil {
					return nil, fmt.Errorf("hands[%d].%s.%s: %w", i, turn, node, err)
				}
				t.Set(hand, tt, n, vec)
			}
		}
	}
	return t, nil
}

func checkVector(v []float64) error {
	if len(v) == 0 {
		return fmt.Errorf("empty vector")
	}
	sum := 0.0
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) || x < 0 {
			return fmt.Errorf("invalid frequency %v", x)
		}
		sum += x
	}
	if sum == 0 {
		return fmt.Errorf("vector sums to zero")
	}
	return nil
}

// Backfill fills an empty meta.freq from the table using the spot's derived
// intents. Spots the classifier cannot read get a uniform vector. It returns
// a copy and whether anything changed.
func Backfill(s *spot.Spot, c classify.Classifier, t *Table) (*spot.Spot, bool) {
	out := s.Clone()
	if out == nil || out.Data == nil || len(out.Data.Meta.Freq) > 0 || len(out.Data.Options) == 0 {
		return out, false
	}
	in, _ := classify.Derive(c, out)
	out.Data.Meta.Freq = t.Lookup(in.Hand, in.Turn, in.Node, len(out.Data.Options))
	return out, true
}
