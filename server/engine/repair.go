package engine

import "spotforge/server/spot"

// Repair rewrites pot and percent-sized exacts so the arithmetic checks
// hold. It only touches numbers: positions, codes and tuple counts are left
// alone. The input is not modified; a full replacement is returned.
//
// Two passes reach the fixed point: a percent bet depends only on the pot
// before it, and the decision pot depends only on completed history.
func Repair(s *spot.Spot) *spot.Spot {
	out := s.Clone()
	if out == nil || out.Data == nil {
		return out
	}
	d := out.Data

	d.Pot = Round4(PotFromHist(d.History))
	resizeOptions(d.Options, d.Pot)

	rewriteHistory(d.History)

	d.Pot = Round4(PotFromHist(d.History))
	resizeOptions(d.Options, d.Pot)
	return out
}

// resizeOptions sets every numeric-percent bet option's exact to pct% of pot.
func resizeOptions(opts []spot.Tuple, pot float64) {
	for _, o := range opts {
		code, _ := o.Code(true)
		if code != spot.Bet || len(o) != 3 {
			continue
		}
		pct, ok := spot.Number(o[1])
		if !ok || pct <= 0 {
			continue
		}
		o[2] = Round4(pct / 100 * pot)
	}
}

// rewriteHistory walks hist with a running pot and resets each percent bet
// to pct% of the pot before it. Calls, raises, all-ins and "pot" bets keep
// their stored amounts.
func rewriteHistory(hist []spot.Tuple) {
	running := spot.SB + spot.BB
	for _, e := range hist {
		if e.IsMarker() {
			continue
		}
		code, _ := e.Code(false)
		if !contributes(code) {
			continue
		}
		if code == spot.Bet && len(e) == 4 {
			if pct, ok := spot.Number(e[2]); ok && pct > 0 {
				amt := Round4(pct / 100 * running)
				e[3] = amt
				running += amt
				continue
			}
		}
		if amt, ok := e.Exact(3); ok {
			running += amt
		}
	}
}
