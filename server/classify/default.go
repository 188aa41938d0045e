package classify

import (
	"fmt"

	"spotforge/server/spot"
)

// Default is a card-based classifier. It is stateless; the zero value is ready.
type Default struct{}

var _ Classifier = Default{}

// ClassifyTurn labels how the turn card changes the flop texture.
// Precedence: paired > flush completer > straight completer > overcard > blank.
func (Default) ClassifyTurn(flop [3]string, turn string) (TurnType, error) {
	fc, err := parseAll(flop[:])
	if err != nil {
		return "", err
	}
	tc, err := ParseCard(turn)
	if err != nil {
		return "", err
	}
	for _, c := range fc {
		if c == tc {
			return "", fmt.Errorf("duplicate card %s", tc)
		}
	}

	topFlop := 0
	suited := 0
	for _, c := range fc {
		if c.Rank == tc.Rank {
			return PairedTurn, nil
		}
		if c.Rank > topFlop {
			topFlop = c.Rank
		}
		if c.Suit == tc.Suit {
			suited++
		}
	}
	if suited >= 2 {
		return FlushCompleter, nil
	}
	if completesStraight(rankSet(fc), tc.Rank) {
		return StraightCompleter, nil
	}
	if tc.Rank > topFlop {
		return OvercardTurn, nil
	}
	return BlankTurn, nil
}

// completesStraight: after the turn some five-rank window holds three board
// ranks, one of them the turn, where the flop alone held fewer than three.
func completesStraight(flop map[int]bool, turn int) bool {
	after := make(map[int]bool, len(flop)+1)
	for r := range flop {
		after[r] = true
	}
	after[turn] = true
	for low := 1; low <= 10; low++ {
		before, now, hit := 0, 0, false
		for r := low; r < low+5; r++ {
			if hasRank(flop, r) {
				before++
			}
			if hasRank(after, r) {
				now++
			}
			if r == turn || (r == 1 && turn == 14) {
				hit = true
			}
		}
		if hit && now >= 3 && before < 3 {
			return true
		}
	}
	return false
}

// PairQuality ranks hero's pair against the board.
func (Default) PairQuality(hand [2]string, board []string) (PairQuality, error) {
	hc, err := parseAll(hand[:])
	if err != nil {
		return "", err
	}
	bc, err := parseAll(board)
	if err != nil {
		return "", err
	}
	if len(bc) < 3 {
		return "", fmt.Errorf("board has %d cards, need at least 3", len(bc))
	}
	ranks := boardRanksDesc(bc)
	pos := func(r int) int {
		for i, br := range ranks {
			if br == r {
				return i
			}
		}
		return -1
	}
	byPos := func(i int) PairQuality {
		switch {
		case i == 0:
			return TopPair
		case i == 1:
			return SecondPair
		case i == len(ranks)-1:
			return BottomPair
		}
		return MiddlePair
	}

	if hc[0].Rank == hc[1].Rank {
		r := hc[0].Rank
		switch {
		case r > ranks[0]:
			return Overpair, nil
		case r < ranks[len(ranks)-1]:
			return Underpair, nil
		case pos(r) >= 0:
			return byPos(pos(r)), nil
		}
		return MiddlePair, nil
	}

	best := -1
	for _, c := range hc {
		if p := pos(c.Rank); p >= 0 && (best < 0 || p < best) {
			best = p
		}
	}
	if best >= 0 {
		return byPos(best), nil
	}
	if len(ranks) < len(bc) {
		return BoardPairOnly, nil
	}
	return NoPair, nil
}

// Describe returns hero's made-hand class and draw features.
func (Default) Describe(hand [2]string, board []string) (HeroClass, HandFeatures, error) {
	hc, err := parseAll(append(append([]string{}, hand[:]...), board...))
	if err != nil {
		return "", HandFeatures{}, err
	}
	bc := hc[2:]
	hole := hc[:2]

	class := madeClass(hc)
	f := HandFeatures{Description: describe(hc)}

	top := 0
	for _, c := range bc {
		if c.Rank > top {
			top = c.Rank
		}
	}
	for _, c := range hole {
		if c.Rank > top {
			f.Overcards++
		}
		if c.Rank > f.Kicker {
			f.Kicker = c.Rank
		}
	}
	// kicker is the unpaired hole card when one card pairs the board
	bs := rankSet(bc)
	if bs[hole[0].Rank] != bs[hole[1].Rank] {
		if bs[hole[0].Rank] {
			f.Kicker = hole[1].Rank
		} else {
			f.Kicker = hole[0].Rank
		}
	}

	if len(bc) < 5 {
		suits := map[byte]int{}
		for _, c := range hc {
			suits[c.Suit]++
		}
		for _, c := range hole {
			if suits[c.Suit] == 4 {
				f.FlushDraw = true
			}
		}
		all := straightInfo(rankSet(hc))
		onBoard := straightInfo(bs)
		f.OpenEnded = all.openEnd && !onBoard.openEnd
		f.Gutshot = all.gutshot && !onBoard.gutshot && !onBoard.openEnd
	}
	if class == Flush || class == StraightFlush || class == Straight {
		f.FlushDraw, f.OpenEnded, f.Gutshot = false, false, false
	}
	return class, f, nil
}

// ClassifyHandIntent maps hand strength and texture to a betting purpose.
func (Default) ClassifyHandIntent(class HeroClass, f HandFeatures, pq PairQuality, tt TurnType) HandIntent {
	scary := tt == FlushCompleter || tt == StraightCompleter
	strongDraw := f.FlushDraw || f.OpenEnded
	switch {
	case class.Strong() && pq != BoardPairOnly && pq != NoPair:
		return MadeValue
	case class.Strong() && (class == Straight || class == Flush || class == StraightFlush):
		return MadeValue
	}
	switch pq {
	case Overpair:
		if scary {
			return ThinValue
		}
		return MadeValue
	case TopPair:
		if strongDraw {
			return ComboDraw
		}
		if scary || f.Kicker < 10 {
			return ThinValue
		}
		return MadeValue
	}
	switch {
	case f.FlushDraw && (f.OpenEnded || f.Gutshot):
		return ComboDraw
	case strongDraw && pq != NoPair && pq != BoardPairOnly:
		return ComboDraw
	case strongDraw:
		return Draw
	case f.Gutshot && f.Overcards > 0:
		return Draw
	}
	switch pq {
	case SecondPair, MiddlePair:
		if tt == BlankTurn || tt == PairedTurn {
			return ThinValue
		}
		return GiveUp
	case BottomPair, Underpair, BoardPairOnly:
		return GiveUp
	}
	return PureBluff
}

// intentTags maps explicit spot tags to node intents, checked in order.
var intentTags = []struct {
	tag  string
	node NodeIntent
}{
	{"bluffcatch", NodeBluffcatch},
	{"bluff_catch", NodeBluffcatch},
	{"semi_bluff", NodeSemiBluff},
	{"draw", NodeSemiBluff},
	{"value", NodeValue},
	{"thin_value", NodeValue},
	{"pressure", NodePressure},
	{"barrel", NodePressure},
	{"bluff", NodePressure},
}

// InferNodeIntent reads what the option menu is for. Explicit intent tags
// win; otherwise a menu facing a bet is a bluffcatch, a menu offering a
// size of at least 75% pot is pressure, and anything else is value.
func (Default) InferNodeIntent(s *spot.Spot) NodeIntent {
	if s == nil {
		return NodeBluffcatch
	}
	for _, it := range intentTags {
		if s.HasTag(it.tag) {
			return it.node
		}
	}
	if s.Data == nil {
		return NodeBluffcatch
	}
	bets := 0
	large := false
	for _, o := range s.Data.Options {
		code, ok := o.Code(true)
		if !ok {
			continue
		}
		switch code {
		case spot.Call, spot.Fold:
			return NodeBluffcatch
		case spot.Bet:
			bets++
			if pct, ok := BetPercent(o); ok && pct >= 75 {
				large = true
			}
		}
	}
	switch {
	case bets == 0:
		return NodeBluffcatch
	case large:
		return NodePressure
	}
	return NodeValue
}

// BetPercent returns a bet option's size as percent of pot. The "pot"
// literal counts as 100.
func BetPercent(o spot.Tuple) (float64, bool) {
	ref, ok := o.SizeRef(true)
	if !ok {
		return 0, false
	}
	if s, ok := ref.(string); ok && s == "pot" {
		return 100, true
	}
	pct, ok := spot.Number(ref)
	if !ok || pct <= 0 {
		return 0, false
	}
	return pct, true
}
