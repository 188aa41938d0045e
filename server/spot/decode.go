package spot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// UnmarshalJSON decodes a spot leniently. A field that is missing or has
// the wrong JSON type is left at its zero value and described in Defects,
// so one malformed record still reaches validation. Only syntactically
// invalid JSON is an error.
func (s *Spot) UnmarshalJSON(b []byte) error {
	*s = Spot{}
	top, ok := object(b, "spot", &s.Defects)
	if !ok {
		return nil
	}
	f := fields{raw: top, defects: &s.Defects}
	s.ID = field[string](f, "id", "string", required)
	s.Format = field[string](f, "format", "string", required)
	s.Street = Street(field[string](f, "street", "string", required))
	s.Difficulty = field[int](f, "difficulty", "integer", required)
	s.Tags = field[[]string](f, "tags", "array of strings", keyed)
	if raw, ok := f.lookup("data", required); ok {
		s.Data = decodeData(raw, &s.Defects)
	}
	return nil
}

func decodeData(b json.RawMessage, defects *[]string) *Data {
	m, ok := object(b, "data", defects)
	if !ok {
		return nil
	}
	f := fields{raw: m, defects: defects}
	d := &Data{
		EffectiveStack: field[float64](f, "effectiveStack", "number", required),
		Villains:       field[[]string](f, "villains", "array of strings", keyed),
		Board:          field[[]string](f, "board", "array of strings", keyed),
		Pot:            field[float64](f, "pot", "number", required),
		History:        tuples(f, "hist"),
		Options:        tuples(f, "options"),
	}
	if h, ok := f.object("hero"); ok {
		hf := fields{raw: h, prefix: "hero.", defects: defects}
		d.Hero.Position = field[string](hf, "position", "string", required)
		d.Hero.Hand = field[[]string](hf, "hand", "array of strings", required)
	}
	if sol, ok := f.object("sol"); ok {
		sf := fields{raw: sol, prefix: "sol.", defects: defects}
		d.Solution = &Solution{
			BestIndex: field[int](sf, "bestIndex", "integer", required),
			EV:        field[[]float64](sf, "ev", "array of numbers", required),
		}
	}
	if meta, ok := f.object("meta"); ok {
		mf := fields{raw: meta, prefix: "meta.", defects: defects}
		d.Meta.Concepts = field[[]string](mf, "concepts", "array of strings", keyed)
		d.Meta.Summary = field[string](mf, "summary", "string", required)
		d.Meta.SolverNotes = field[[]string](mf, "solverNotes", "array of strings", optional)
		d.Meta.Freq = field[[]float64](mf, "freq", "array of numbers", optional)
	}
	return d
}

type presence int

const (
	optional presence = iota // may be absent or null
	required                 // present and not null
	keyed                    // present, null allowed
)

type fields struct {
	raw     map[string]json.RawMessage
	prefix  string
	defects *[]string
}

func (f fields) addf(format string, args ...any) {
	*f.defects = append(*f.defects, fmt.Sprintf(format, args...))
}

// lookup returns the raw value of name when there is something to decode,
// recording a defect when the presence rule is broken.
func (f fields) lookup(name string, p presence) (json.RawMessage, bool) {
	raw, ok := f.raw[name]
	if !ok {
		if p != optional {
			f.addf("missing %s%s", f.prefix, name)
		}
		return nil, false
	}
	if kind(raw) == "null" {
		if p == required {
			f.addf("missing %s%s", f.prefix, name)
		}
		return nil, false
	}
	return raw, true
}

func (f fields) object(name string) (map[string]json.RawMessage, bool) {
	raw, ok := f.lookup(name, required)
	if !ok {
		return nil, false
	}
	return object(raw, f.prefix+name, f.defects)
}

func field[T any](f fields, name, want string, p presence) T {
	var v T
	raw, ok := f.lookup(name, p)
	if !ok {
		return v
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		f.addf("%s%s: expected %s, got %s", f.prefix, name, want, got(raw, err))
		var zero T
		return zero
	}
	return v
}

// tuples decodes an array of entries one by one. An entry that is not an
// array stays nil in its slot so later indexes keep their positions.
func tuples(f fields, name string) []Tuple {
	raws := field[[]json.RawMessage](f, name, "array", required)
	if raws == nil {
		return nil
	}
	out := make([]Tuple, len(raws))
	for i, r := range raws {
		var t Tuple
		if err := json.Unmarshal(r, &t); err == nil {
			out[i] = t
		}
	}
	return out
}

func object(b []byte, name string, defects *[]string) (map[string]json.RawMessage, bool) {
	var m map[string]json.RawMessage
	if kind(b) != "object" || json.Unmarshal(b, &m) != nil {
		*defects = append(*defects, fmt.Sprintf("%s: expected object, got %s", name, kind(b)))
		return nil, false
	}
	return m, true
}

func got(raw json.RawMessage, err error) string {
	var te *json.UnmarshalTypeError
	if errors.As(err, &te) && te.Value != "" {
		return te.Value
	}
	return kind(raw)
}

func kind(raw []byte) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "nothing"
	}
	switch raw[0] {
	case '{':
		return "object"
	case '[':
		return "array"
	case '"':
		return "string"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	}
	return "number"
}
