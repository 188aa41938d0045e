package spot

// Blinds in big-blind units. Every pot starts from these.
const (
	SB = 0.5
	BB = 1.0
)

type Street string

const (
	Preflop Street = "preflop"
	Flop    Street = "flop"
	Turn    Street = "turn"
	River   Street = "river"
)

// Action and option codes.
const (
	Check  = "x"
	Fold   = "f"
	Call   = "c"
	Bet    = "b"
	Raise  = "r"
	AllIn  = "a"
	MarkTo = "-" // first element of a street marker
)

// Street marker codes in canonical order.
const (
	MarkPreflop = "p"
	MarkFlop    = "f"
	MarkTurn    = "t"
	MarkRiver   = "r"
)

// MarkerOrder returns the position of a marker code in p < f < t < r, or -1.
func MarkerOrder(code string) int {
	switch code {
	case MarkPreflop:
		return 0
	case MarkFlop:
		return 1
	case MarkTurn:
		return 2
	case MarkRiver:
		return 3
	}
	return -1
}

// Spot is one recorded decision point.
type Spot struct {
	ID         string   `json:"id"`
	Format     string   `json:"format"`
	Street     Street   `json:"street"`
	Difficulty int      `json:"difficulty"`
	Tags       []string `json:"tags"`
	Data       *Data    `json:"data"`

	// Defects lists fields that were missing or mistyped on decode.
	Defects []string `json:"-"`
}

type Data struct {
	EffectiveStack float64   `json:"effectiveStack"`
	Hero           Hero      `json:"hero"`
	Villains       []string  `json:"villains"`
	Board          []string  `json:"board"`
	Pot            float64   `json:"pot"`
	History        []Tuple   `json:"hist"`
	Options        []Tuple   `json:"options"`
	Solution       *Solution `json:"sol"`
	Meta           Meta      `json:"meta"`
}

type Hero struct {
	Position string   `json:"position"`
	Hand     []string `json:"hand"`
}

type Solution struct {
	BestIndex int       `json:"bestIndex"`
	EV        []float64 `json:"ev"`
}

type Meta struct {
	Concepts    []string  `json:"concepts"`
	Summary     string    `json:"summary"`
	SolverNotes []string  `json:"solverNotes,omitempty"`
	Freq        []float64 `json:"freq,omitempty"`
}

// HasTag reports whether the spot carries tag t.
func (s *Spot) HasTag(t string) bool {
	for _, x := range s.Tags {
		if x == t {
			return true
		}
	}
	return false
}

// Clone returns a deep copy. Tuples are copied element-wise; their
// elements are immutable scalars so a shallow element copy is enough.
func (s *Spot) Clone() *Spot {
	if s == nil {
		return nil
	}
	out := *s
	out.Tags = cloneStrings(s.Tags)
	out.Defects = cloneStrings(s.Defects)
	if s.Data != nil {
		d := *s.Data
		d.Hero.Hand = cloneStrings(s.Data.Hero.Hand)
		d.Villains = cloneStrings(s.Data.Villains)
		d.Board = cloneStrings(s.Data.Board)
		d.History = cloneTuples(s.Data.History)
		d.Options = cloneTuples(s.Data.Options)
		if s.Data.Solution != nil {
			sol := *s.Data.Solution
			sol.EV = cloneFloats(s.Data.Solution.EV)
			d.Solution = &sol
		}
		d.Meta.Concepts = cloneStrings(s.Data.Meta.Concepts)
		d.Meta.SolverNotes = cloneStrings(s.Data.Meta.SolverNotes)
		d.Meta.Freq = cloneFloats(s.Data.Meta.Freq)
		out.Data = &d
	}
	return &out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneFloats(in []float64) []float64 {
	if in == nil {
		return nil
	}
	return append([]float64(nil), in...)
}

func cloneTuples(in []Tuple) []Tuple {
	if in == nil {
		return nil
	}
	out := make([]Tuple, len(in))
	for i, t := range in {
		if t != nil {
			out[i] = append(Tuple(nil), t...)
		}
	}
	return out
}
