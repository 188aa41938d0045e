// Package spottest holds shared spot fixtures for tests.
package spottest

import "spotforge/server/spot"

// TurnSpot returns a fully consistent single-raised-pot turn spot:
// BTN opens 3bb, BB calls, BB checks flop, BTN bets half pot, BB calls.
// The decision pot is 13.0 and the menu is check / 33% / 75%.
func TurnSpot() *spot.Spot {
	return &spot.Spot{
		ID:         "s1001",
		Format:     "cash_6max_100bb",
		Street:     spot.Turn,
		Difficulty: 4,
		Tags:       []string{"srp", "turn", "value"},
		Data: &spot.Data{
			EffectiveStack: 100,
			Hero:           spot.Hero{Position: "BB", Hand: []string{"Kh", "Qd"}},
			Villains:       []string{"BTN"},
			Board:          []string{"Kc", "7d", "2s", "4h"},
			Pot:            13.0,
			History: []spot.Tuple{
				spot.Act("BTN", spot.Raise, "3x", 3),
				spot.Act("SB", spot.Fold, nil, 0),
				spot.Act("BB", spot.Call, nil, 2),
				spot.Marker(spot.MarkFlop),
				spot.Act("BB", spot.Check, nil, 0),
				spot.Act("BTN", spot.Bet, 50, 3.25),
				spot.Act("BB", spot.Call, nil, 3.25),
				spot.Marker(spot.MarkTurn),
			},
			Options: []spot.Tuple{
				spot.Opt(spot.Check, nil, 0),
				spot.Opt(spot.Bet, 33, 4.29),
				spot.Opt(spot.Bet, 75, 9.75),
			},
			Solution: &spot.Solution{BestIndex: 1, EV: []float64{0.8, 1.1, 0.9}},
			Meta: spot.Meta{
				Concepts:    []string{"thin_value", "board_texture"},
				Summary:     "Top pair good kicker on a blank turn prefers a small lead.",
				SolverNotes: []string{"Small sizing keeps worse kings in.", "Large sizing folds out most bluffs."},
				Freq:        []float64{0.4, 0.5, 0.1},
			},
		},
	}
}
