package classify

import (
	"fmt"
	"sort"
	"strings"

	poker "github.com/paulhankin/poker"
)

// Card is a parsed card string such as "As" (rank 14, suit 's').
type Card struct {
	Rank int
	Suit byte
}

func (c Card) String() string {
	ranks := "  23456789TJQKA"
	return fmt.Sprintf("%c%c", ranks[c.Rank], c.Suit)
}

// ParseCard accepts rank+suit strings ("Kh", "Td", "2c").
func ParseCard(s string) (Card, error) {
	if len(s) != 2 {
		return Card{}, fmt.Errorf("bad card %q", s)
	}
	var rank int
	switch r := s[0]; r {
	case 'A', 'a':
		rank = 14
	case 'K', 'k':
		rank = 13
	case 'Q', 'q':
		rank = 12
	case 'J', 'j':
		rank = 11
	case 'T', 't':
		rank = 10
	default:
		if r >= '2' && r <= '9' {
			rank = int(r - '0')
		}
	}
	if rank == 0 {
		return Card{}, fmt.Errorf("bad card rank %q", s)
	}
	suit := s[1]
	switch suit {
	case 'c', 'd', 'h', 's':
	default:
		return Card{}, fmt.Errorf("bad card suit %q", s)
	}
	c := Card{Rank: rank, Suit: suit}
	if _, err := toPH(c); err != nil {
		return Card{}, fmt.Errorf("bad card %q: %w", s, err)
	}
	return c, nil
}

func parseAll(ss []string) ([]Card, error) {
	out := make([]Card, 0, len(ss))
	seen := make(map[Card]bool, len(ss))
	for _, s := range ss {
		c, err := ParseCard(s)
		if err != nil {
			return nil, err
		}
		if seen[c] {
			return nil, fmt.Errorf("duplicate card %s", c)
		}
		seen[c] = true
		out = append(out, c)
	}
	return out, nil
}

// toPH converts to the library card. Our ranks: 2..14 (Ace=14). Library: 1..13 (Ace=1).
func toPH(c Card) (poker.Card, error) {
	var s poker.Suit
	switch c.Suit {
	case 'c':
		s = poker.Club
	case 'd':
		s = poker.Diamond
	case 'h':
		s = poker.Heart
	default:
		s = poker.Spade
	}
	r := poker.Rank(c.Rank)
	if c.Rank == 14 {
		r = poker.Rank(1)
	}
	return poker.MakeCard(s, r)
}

// describe returns the library's text description of the best hand, or ""
// when the card count is one it cannot describe.
func describe(cards []Card) string {
	if n := len(cards); n != 5 && n != 7 {
		return ""
	}
	pcs := make([]poker.Card, 0, len(cards))
	for _, c := range cards {
		pc, err := toPH(c)
		if err != nil {
			return ""
		}
		pcs = append(pcs, pc)
	}
	d, err := poker.Describe(pcs)
	if err != nil {
		return ""
	}
	return d
}

// classFloors pairs each made-hand class, strongest first, with the
// library score of its weakest five-card hand.
var classFloors = func() []struct {
	class HeroClass
	score int16
} {
	weakest := []struct {
		class HeroClass
		hand  []string
	}{
		{StraightFlush, []string{"5h", "4h", "3h", "2h", "Ah"}},
		{Quads, []string{"2c", "2d", "2h", "2s", "3c"}},
		{FullHouse, []string{"2c", "2d", "2h", "3s", "3c"}},
		{Flush, []string{"7h", "5h", "4h", "3h", "2h"}},
		{Straight, []string{"5c", "4d", "3h", "2s", "Ac"}},
		{Trips, []string{"2c", "2d", "2h", "3s", "4c"}},
		{TwoPair, []string{"3c", "3d", "2h", "2s", "4c"}},
		{OnePair, []string{"2c", "2d", "3h", "4s", "5c"}},
	}
	out := make([]struct {
		class HeroClass
		score int16
	}, len(weakest))
	for i, w := range weakest {
		cards, err := parseAll(w.hand)
		if err != nil {
			panic(err)
		}
		score, ok := bestScore(cards)
		if !ok {
			panic("classify: cannot score " + strings.Join(w.hand, " "))
		}
		out[i].class, out[i].score = w.class, score
	}
	return out
}()

// madeClass classifies the best made hand in cards using the library
// evaluator. Fewer than five cards cannot make straights or flushes, so
// those are classified by rank counts alone.
func madeClass(cards []Card) HeroClass {
	score, ok := bestScore(cards)
	if !ok {
		return countClass(cards)
	}
	for _, f := range classFloors {
		if score >= f.score {
			return f.class
		}
	}
	return HighCard
}

// bestScore returns the library score of the best five-card hand in 5 to 7
// distinct cards. Higher is stronger.
func bestScore(cards []Card) (int16, bool) {
	n := len(cards)
	if n < 5 || n > 7 {
		return 0, false
	}
	pcs := make([]poker.Card, n)
	seen := map[poker.Card]bool{}
	for i, c := range cards {
		pc, err := toPH(c)
		if err != nil || seen[pc] {
			return 0, false
		}
		seen[pc] = true
		pcs[i] = pc
	}
	switch n {
	case 5:
		var a5 [5]poker.Card
		copy(a5[:], pcs)
		return poker.Eval5(&a5), true
	case 7:
		var a7 [7]poker.Card
		copy(a7[:], pcs)
		return poker.Eval7(&a7), true
	}
	// six cards: best of the six hands that leave one out
	var best int16
	var a5 [5]poker.Card
	for skip := range pcs {
		k := 0
		for i, pc := range pcs {
			if i != skip {
				a5[k] = pc
				k++
			}
		}
		if score := poker.Eval5(&a5); score > best {
			best = score
		}
	}
	return best, true
}

func countClass(cards []Card) HeroClass {
	ranks := map[int]int{}
	for _, c := range cards {
		ranks[c.Rank]++
	}
	pairs, trips := 0, 0
	for _, cnt := range ranks {
		switch {
		case cnt >= 4:
			return Quads
		case cnt == 3:
			trips++
		case cnt == 2:
			pairs++
		}
	}
	switch {
	case trips > 0 && (pairs > 0 || trips > 1):
		return FullHouse
	case trips > 0:
		return Trips
	case pairs >= 2:
		return TwoPair
	case pairs == 1:
		return OnePair
	}
	return HighCard
}

type straightState struct{ made, openEnd, gutshot bool }

// straightInfo looks at the distinct ranks present (Ace also plays low).
func straightInfo(uniq map[int]bool) straightState {
	var st straightState
	for low := 1; low <= 10; low++ {
		have := 0
		for r := low; r < low+5; r++ {
			if hasRank(uniq, r) {
				have++
			}
		}
		switch have {
		case 5:
			st.made = true
		case 4:
			st.gutshot = true
		}
	}
	// four in a row with a live card on both ends
	for low := 2; low <= 10; low++ {
		if hasRank(uniq, low) && hasRank(uniq, low+1) && hasRank(uniq, low+2) && hasRank(uniq, low+3) {
			st.openEnd = true
		}
	}
	if st.made {
		st.openEnd, st.gutshot = false, false
	}
	if st.openEnd {
		st.gutshot = false
	}
	return st
}

func hasRank(uniq map[int]bool, r int) bool {
	if r == 1 {
		return uniq[14]
	}
	return uniq[r]
}

func rankSet(cards []Card) map[int]bool {
	out := make(map[int]bool, len(cards))
	for _, c := range cards {
		out[c.Rank] = true
	}
	return out
}

// boardRanksDesc returns distinct board ranks, highest first.
func boardRanksDesc(board []Card) []int {
	set := rankSet(board)
	out := make([]int, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}
