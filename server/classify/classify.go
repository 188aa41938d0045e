// Package classify is the hand/board classification boundary consumed by the
// intent-policy checker and the frequency fallback table.
package classify

import "spotforge/server/spot"

type TurnType string

const (
	BlankTurn         TurnType = "blank_turn"
	OvercardTurn      TurnType = "overcard"
	StraightCompleter TurnType = "straight_completer"
	FlushCompleter    TurnType = "flush_completer"
	PairedTurn        TurnType = "paired_turn"
)

type HandIntent string

const (
	MadeValue HandIntent = "made_value"
	ThinValue HandIntent = "thin_value"
	ComboDraw HandIntent = "combo_draw"
	Draw      HandIntent = "draw"
	PureBluff HandIntent = "pure_bluff"
	GiveUp    HandIntent = "give_up"
)

type NodeIntent string

const (
	NodeValue      NodeIntent = "value"
	NodeSemiBluff  NodeIntent = "semi_bluff"
	NodePressure   NodeIntent = "pressure"
	NodeBluffcatch NodeIntent = "bluffcatch"
)

type PairQuality string

const (
	Overpair      PairQuality = "overpair"
	TopPair       PairQuality = "top_pair"
	SecondPair    PairQuality = "second_pair"
	MiddlePair    PairQuality = "middle_pair"
	BottomPair    PairQuality = "bottom_pair"
	Underpair     PairQuality = "underpair"
	BoardPairOnly PairQuality = "board_pair_only"
	NoPair        PairQuality = "no_pair"
)

// Enumerations in declaration order.
var (
	TurnTypes   = []TurnType{BlankTurn, OvercardTurn, StraightCompleter, FlushCompleter, PairedTurn}
	HandIntents = []HandIntent{MadeValue, ThinValue, ComboDraw, Draw, PureBluff, GiveUp}
	NodeIntents = []NodeIntent{NodeValue, NodeSemiBluff, NodePressure, NodeBluffcatch}
)

func (t TurnType) Valid() bool {
	for _, x := range TurnTypes {
		if x == t {
			return true
		}
	}
	return false
}

func (h HandIntent) Valid() bool {
	for _, x := range HandIntents {
		if x == h {
			return true
		}
	}
	return false
}

func (n NodeIntent) Valid() bool {
	for _, x := range NodeIntents {
		if x == n {
			return true
		}
	}
	return false
}

// HeroClass is the made-hand category of hero's best hand.
type HeroClass string

const (
	HighCard      HeroClass = "high_card"
	OnePair       HeroClass = "pair"
	TwoPair       HeroClass = "two_pair"
	Trips         HeroClass = "trips"
	Straight      HeroClass = "straight"
	Flush         HeroClass = "flush"
	FullHouse     HeroClass = "full_house"
	Quads         HeroClass = "quads"
	StraightFlush HeroClass = "straight_flush"
)

// Strong reports whether c beats one pair.
func (c HeroClass) Strong() bool {
	switch c {
	case TwoPair, Trips, Straight, Flush, FullHouse, Quads, StraightFlush:
		return true
	}
	return false
}

// HandFeatures are the draw and kicker facts the intent classifier needs.
type HandFeatures struct {
	FlushDraw   bool   `json:"flushDraw"`
	OpenEnded   bool   `json:"openEnded"`
	Gutshot     bool   `json:"gutshot"`
	Overcards   int    `json:"overcards"`
	Kicker      int    `json:"kicker"`
	Description string `json:"description,omitempty"`
}

// Classifier is everything the policy checker needs from hand/board
// classification. Errors mean "cannot classify"; callers degrade rather
// than fail.
type Classifier interface {
	ClassifyTurn(flop [3]string, turn string) (TurnType, error)
	PairQuality(hand [2]string, board []string) (PairQuality, error)
	Describe(hand [2]string, board []string) (HeroClass, HandFeatures, error)
	ClassifyHandIntent(class HeroClass, f HandFeatures, pq PairQuality, tt TurnType) HandIntent
	InferNodeIntent(s *spot.Spot) NodeIntent
}

// Intents bundles the three labels derived for one spot.
type Intents struct {
	Turn TurnType
	Hand HandIntent
	Node NodeIntent
	Pair PairQuality
}

// Derive runs the full classification chain for a spot that has a turn card.
// ok is false when the board is too short or the classifier rejects the cards.
func Derive(c Classifier, s *spot.Spot) (Intents, bool) {
	if c == nil || s == nil || s.Data == nil {
		return Intents{}, false
	}
	d := s.Data
	if len(d.Board) < 4 || len(d.Hero.Hand) != 2 {
		return Intents{}, false
	}
	flop := [3]string{d.Board[0], d.Board[1], d.Board[2]}
	hand := [2]string{d.Hero.Hand[0], d.Hero.Hand[1]}
	tt, err := c.ClassifyTurn(flop, d.Board[3])
	if err != nil {
		return Intents{}, false
	}
	pq, err := c.PairQuality(hand, d.Board)
	if err != nil {
		return Intents{}, false
	}
	class, f, err := c.Describe(hand, d.Board)
	if err != nil {
		return Intents{}, false
	}
	return Intents{
		Turn: tt,
		Pair: pq,
		Hand: c.ClassifyHandIntent(class, f, pq, tt),
		Node: c.InferNodeIntent(s),
	}, true
}
