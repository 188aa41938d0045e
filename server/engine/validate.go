package engine

import (
	"fmt"
	"math"
	"regexp"

	"spotforge/server/spot"
)

// Result is the outcome of validating one spot. Errors accumulate; OK is
// true iff there are none.
type Result struct {
	OK     bool     `json:"ok"`
	Errors []string `json:"errors"`
}

var spotID = regexp.MustCompile(`^s\d+$`)

// boardCards is the board size each street is decided on.
var boardCards = map[spot.Street]int{spot.Preflop: 0, spot.Flop: 3, spot.Turn: 4, spot.River: 5}

type checker struct {
	errs []string
	seen map[string]bool
}

// addf records an error once; decode defects and the shape checks can
// describe the same missing field.
func (c *checker) addf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if c.seen[msg] {
		return
	}
	if c.seen == nil {
		c.seen = map[string]bool{}
	}
	c.seen[msg] = true
	c.errs = append(c.errs, msg)
}

func (c *checker) result() Result {
	if c.errs == nil {
		c.errs = []string{}
	}
	return Result{OK: len(c.errs) == 0, Errors: c.errs}
}

// Validate checks shape, tuple grammar, street order, pot arithmetic and
// percent sizings. It never panics and reports every defect it finds.
func Validate(s *spot.Spot) Result {
	var c checker
	if s == nil {
		c.addf("spot is nil")
		return c.result()
	}
	for _, d := range s.Defects {
		c.addf("%s", d)
	}
	c.top(s)
	if s.Data == nil {
		c.addf("missing data")
		return c.result()
	}
	d := s.Data
	c.data(d)
	c.board(s.Street, d.Board)
	c.history(d.History)
	c.options(d.Options)
	c.arithmetic(d)
	c.solution(d)
	c.meta(d)
	return c.result()
}

func (c *checker) top(s *spot.Spot) {
	if s.ID == "" {
		c.addf("missing id")
	} else if !spotID.MatchString(s.ID) {
		c.addf("id %q does not match s<digits>", s.ID)
	}
	if s.Format == "" {
		c.addf("missing format")
	}
	switch s.Street {
	case spot.Preflop, spot.Flop, spot.Turn, spot.River:
	default:
		c.addf("invalid street %q", s.Street)
	}
	if s.Difficulty < 1 || s.Difficulty > 10 {
		c.addf("difficulty %d out of range 1-10", s.Difficulty)
	}
	if len(s.Tags) > spot.MaxTags {
		c.addf("too many tags: %d > %d", len(s.Tags), spot.MaxTags)
	}
	first := make(map[string]int, len(s.Tags))
	for i, t := range s.Tags {
		if t == "" {
			c.addf("tags[%d] is empty", i)
			continue
		}
		if j, dup := first[t]; dup {
			c.addf("tags[%d]: duplicate of tags[%d] %q", i, j, t)
			continue
		}
		first[t] = i
	}
}

func (c *checker) data(d *spot.Data) {
	if !finite(d.EffectiveStack) || d.EffectiveStack <= 0 {
		c.addf("effectiveStack must be a positive number, got %v", d.EffectiveStack)
	}
	if d.Hero.Position == "" {
		c.addf("missing hero.position")
	}
	if len(d.Hero.Hand) != 2 {
		c.addf("hero.hand must have 2 cards, got %d", len(d.Hero.Hand))
	}
	for i, card := range d.Hero.Hand {
		if card == "" {
			c.addf("hero.hand[%d] is empty", i)
		}
	}
	if len(d.Villains) == 0 {
		c.addf("villains must be non-empty")
	}
	for i, v := range d.Villains {
		if v == "" {
			c.addf("villains[%d] is empty", i)
		}
	}
	if len(d.Board) > 5 {
		c.addf("board has %d cards, max 5", len(d.Board))
	}
	for i, card := range d.Board {
		if card == "" {
			c.addf("board[%d] is empty", i)
		}
	}
	if !finite(d.Pot) || d.Pot < 0 {
		c.addf("pot must be a non-negative number, got %v", d.Pot)
	}
	if d.History == nil {
		c.addf("missing hist")
	}
	if len(d.Options) == 0 {
		c.addf("options must be non-empty")
	}
}

func (c *checker) board(st spot.Street, board []string) {
	want, ok := boardCards[st]
	if !ok || len(board) > 5 {
		return
	}
	if len(board) != want {
		c.addf("%s spot needs %d board cards, got %d", st, want, len(board))
	}
}

func (c *checker) history(hist []spot.Tuple) {
	highest := -1
	for i, e := range hist {
		if e == nil {
			c.addf("hist[%d]: entry must be an array", i)
			continue
		}
		if len(e) == 0 {
			c.addf("hist[%d]: empty entry", i)
			continue
		}
		if e.IsMarker() {
			if len(e) != 2 {
				c.addf("hist[%d]: street marker must have 2 elements: %s", i, e)
				continue
			}
			code, _ := e[1].(string)
			ord := spot.MarkerOrder(code)
			if ord < 0 {
				c.addf("hist[%d]: unknown street marker %q in %s", i, code, e)
				continue
			}
			if ord < highest {
				c.addf("hist[%d]: street marker %q out of order in %s", i, code, e)
				continue
			}
			highest = ord
			continue
		}
		if actor, ok := e[0].(string); !ok || actor == "" {
			c.addf("hist[%d]: actor must be a non-empty string: %s", i, e)
		}
		code, ok := e.Code(false)
		if !ok {
			c.addf("hist[%d]: missing action code: %s", i, e)
			continue
		}
		c.entry(fmt.Sprintf("hist[%d]", i), code, e[1:], e)
	}
}

func (c *checker) options(opts []spot.Tuple) {
	for i, o := range opts {
		if o == nil {
			c.addf("options[%d]: entry must be an array", i)
			continue
		}
		if len(o) == 0 {
			c.addf("options[%d]: empty entry", i)
			continue
		}
		code, ok := o.Code(true)
		if !ok {
			c.addf("options[%d]: missing option code: %s", i, o)
			continue
		}
		c.entry(fmt.Sprintf("options[%d]", i), code, o, o)
	}
}

// entry validates the actor-less form [code, sizeRef?, exact?] shared by
// actions and options. full is the original tuple for messages.
func (c *checker) entry(at, code string, t, full spot.Tuple) {
	switch code {
	case spot.Check, spot.Fold:
		if len(t) != 1 {
			c.addf("%s: %q takes no sizing: %s", at, code, full)
		}
		return
	case spot.Call, spot.Bet, spot.Raise, spot.AllIn:
	default:
		c.addf("%s: unknown code %q in %s", at, code, full)
		return
	}
	if len(t) != 3 {
		c.addf("%s: %q must have sizeRef and exact amount: %s", at, code, full)
		return
	}
	ref := t[1]
	switch code {
	case spot.Call:
		if ref != nil {
			c.addf("%s: call sizeRef must be null: %s", at, full)
		}
	case spot.Bet:
		if s, ok := ref.(string); ok {
			if s != "pot" {
				c.addf("%s: bet sizeRef string must be \"pot\": %s", at, full)
			}
		} else if pct, ok := spot.Number(ref); !ok || pct <= 0 {
			c.addf("%s: bet sizeRef must be a positive percent or \"pot\": %s", at, full)
		}
	case spot.Raise:
		if s, ok := ref.(string); !ok || s == "" {
			c.addf("%s: raise sizeRef must be a non-empty string: %s", at, full)
		}
	case spot.AllIn:
		if s, ok := ref.(string); ref != nil && (!ok || s != "AI") {
			c.addf("%s: all-in sizeRef must be \"AI\" or null: %s", at, full)
		}
	}
	if amt, ok := spot.Number(t[2]); !ok || amt < 0 {
		c.addf("%s: exact amount must be a finite non-negative number: %s", at, full)
	}
}

func (c *checker) arithmetic(d *spot.Data) {
	// exact sums and repaired (rounded) pots are both consistent
	sum := PotFromHist(d.History)
	want := Round4(sum)
	if math.Abs(sum-d.Pot) > PotTolerance && math.Abs(want-d.Pot) > PotTolerance {
		c.addf("pot mismatch: stored %v, history gives %v", d.Pot, want)
	}
	for i, o := range d.Options {
		code, _ := o.Code(true)
		if code != spot.Bet || len(o) != 3 {
			continue
		}
		pct, ok := spot.Number(o[1])
		if !ok || pct <= 0 {
			continue
		}
		exact, ok := spot.Number(o[2])
		if !ok {
			continue
		}
		expect := pct / 100 * d.Pot
		if math.Abs(exact-expect) > SizingTolerance {
			c.addf("options[%d]: bet %v%% of pot %v should be %.4f, got %v", i, pct, d.Pot, expect, exact)
		}
	}
}

func (c *checker) solution(d *spot.Data) {
	sol := d.Solution
	if sol == nil {
		c.addf("missing sol")
		return
	}
	if sol.BestIndex < 0 || sol.BestIndex >= len(d.Options) {
		c.addf("sol.bestIndex %d out of range for %d options", sol.BestIndex, len(d.Options))
	}
	if len(sol.EV) != len(d.Options) {
		c.addf("sol.ev has %d values for %d options", len(sol.EV), len(d.Options))
	}
	for i, ev := range sol.EV {
		if !finite(ev) {
			c.addf("sol.ev[%d] is not a finite number", i)
		}
	}
}

func (c *checker) meta(d *spot.Data) {
	m := d.Meta
	if len(m.Concepts) > spot.MaxTags {
		c.addf("meta.concepts has %d entries, max %d", len(m.Concepts), spot.MaxTags)
	}
	for i, x := range m.Concepts {
		if x == "" {
			c.addf("meta.concepts[%d] is empty", i)
		}
	}
	if m.SolverNotes != nil && (len(m.SolverNotes) < 2 || len(m.SolverNotes) > 4) {
		c.addf("meta.solverNotes must have 2-4 entries, got %d", len(m.SolverNotes))
	}
	if len(m.Freq) > 0 && len(m.Freq) != len(d.Options) {
		c.addf("meta.freq has %d values for %d options", len(m.Freq), len(d.Options))
	}
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
