package spot

import (
	"encoding/json"
	"fmt"
	"math"
)

// Tuple is one history or option entry exactly as it appears on the wire:
// a JSON array whose elements are strings, numbers or null. Arity matters,
// so it is kept as a plain slice rather than a struct.
type Tuple []any

// Act builds a history action. Checks and folds drop sizeRef and exact.
func Act(actor, code string, sizeRef any, exact float64) Tuple {
	if code == Check || code == Fold {
		return Tuple{actor, code}
	}
	return Tuple{actor, code, normalize(sizeRef), exact}
}

// Marker builds a street marker ["-", code].
func Marker(code string) Tuple { return Tuple{MarkTo, code} }

// Opt builds an option entry.
func Opt(code string, sizeRef any, exact float64) Tuple {
	if code == Check || code == Fold {
		return Tuple{code}
	}
	return Tuple{code, normalize(sizeRef), exact}
}

// normalize widens Go integer literals so constructed tuples compare equal
// to decoded ones (encoding/json always yields float64).
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	}
	return v
}

// IsMarker reports whether t is shaped like a street marker.
func (t Tuple) IsMarker() bool {
	if len(t) == 0 {
		return false
	}
	s, ok := t[0].(string)
	return ok && s == MarkTo
}

// Code returns the action code: element 1 of an action or marker,
// element 0 of an option. ok is false when it is missing or not a string.
func (t Tuple) Code(option bool) (string, bool) {
	i := 1
	if option {
		i = 0
	}
	if len(t) <= i {
		return "", false
	}
	s, ok := t[i].(string)
	return s, ok
}

// SizeRef returns the raw sizeRef element: index 2 of an action, index 1 of
// an option. ok is false when the tuple is too short to carry one.
func (t Tuple) SizeRef(option bool) (any, bool) {
	i := 2
	if option {
		i = 1
	}
	if len(t) <= i {
		return nil, false
	}
	return t[i], true
}

// Exact returns the contributed amount at index i when it is a finite number.
func (t Tuple) Exact(i int) (float64, bool) {
	if i < 0 || i >= len(t) {
		return 0, false
	}
	return Number(t[i])
}

// Percent returns the numeric sizeRef at index i, if any.
func (t Tuple) Percent(i int) (float64, bool) {
	if i < 0 || i >= len(t) {
		return 0, false
	}
	return Number(t[i])
}

// Number extracts a finite float64 from a decoded JSON value.
func Number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		x, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = x
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// String renders the tuple in its JSON form for error messages.
func (t Tuple) String() string {
	b, err := json.Marshal([]any(t))
	if err != nil {
		return fmt.Sprintf("%v", []any(t))
	}
	return string(b)
}
