// Package engine is the spot integrity engine: grammar and arithmetic
// validation, pot reconciliation, drift repair and the intent-policy check.
// Everything here is pure; nothing logs, blocks or returns an error.
package engine

import (
	"math"

	"spotforge/server/spot"
)

// Tolerances for arithmetic checks.
const (
	PotTolerance    = 1e-6
	SizingTolerance = 1e-3
)

// PotFromHist returns the blinds plus every c/b/r/a contribution in hist.
// Malformed entries contribute 0. No rounding happens here.
func PotFromHist(hist []spot.Tuple) float64 {
	pot := spot.SB + spot.BB
	for _, e := range hist {
		if e.IsMarker() {
			continue
		}
		code, _ := e.Code(false)
		if !contributes(code) {
			continue
		}
		if amt, ok := e.Exact(3); ok {
			pot += amt
		}
	}
	return pot
}

func contributes(code string) bool {
	switch code {
	case spot.Call, spot.Bet, spot.Raise, spot.AllIn:
		return true
	}
	return false
}

// Round4 rounds to 4 decimals, the precision pots and exacts are stored at.
func Round4(x float64) float64 {
	return math.Round(x*1e4) / 1e4
}
