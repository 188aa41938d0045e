package engine

import (
	"fmt"

	"spotforge/server/classify"
	"spotforge/server/spot"
)

// Sizing buckets for the policy table, in percent of pot.
const (
	largeBet = 75.0
	smallBet = 50.0
)

// IntentChecker cross-checks the hero's hand intent against the shape of
// the option menu.
type IntentChecker struct {
	c classify.Classifier
}

// NewIntentChecker returns a checker backed by c. A nil classifier yields a
// checker that never reports anything.
func NewIntentChecker(c classify.Classifier) *IntentChecker {
	return &IntentChecker{c: c}
}

// Check returns policy violations for s. Spots without a turn card, and
// spots the classifier cannot read, produce no errors.
func (ic *IntentChecker) Check(s *spot.Spot) []string {
	if ic == nil || ic.c == nil {
		return nil
	}
	in, ok := classify.Derive(ic.c, s)
	if !ok {
		return nil
	}
	return Policy(in.Hand, in.Node, SizingOf(s.Data.Options), s.HasTag("barrel"))
}

// Sizing summarizes the bet sizes a menu offers.
type Sizing struct {
	HasLarge bool // some bet >= 75% pot
	HasSmall bool // some bet in (0, 50]% pot
	HasMid   bool // some bet in (50, 75)% pot
}

// SmallOnly reports a menu whose every bet is at most half pot.
func (z Sizing) SmallOnly() bool { return z.HasSmall && !z.HasLarge && !z.HasMid }

// SizingOf buckets the bet options of a menu.
func SizingOf(opts []spot.Tuple) Sizing {
	var z Sizing
	for _, o := range opts {
		code, _ := o.Code(true)
		if code != spot.Bet {
			continue
		}
		pct, ok := classify.BetPercent(o)
		if !ok {
			continue
		}
		switch {
		case pct >= largeBet:
			z.HasLarge = true
		case pct <= smallBet:
			z.HasSmall = true
		default:
			z.HasMid = true
		}
	}
	return z
}

// Policy applies the intent table. Each violated row yields its own message.
func Policy(hand classify.HandIntent, node classify.NodeIntent, z Sizing, barrelTag bool) []string {
	var errs []string
	if hand == classify.GiveUp && node != classify.NodeBluffcatch {
		errs = append(errs, fmt.Sprintf("give_up hand only belongs in a bluffcatch node, got %s", node))
	}
	if node == classify.NodeValue && hand != classify.MadeValue && hand != classify.ThinValue {
		errs = append(errs, fmt.Sprintf("value node requires made_value or thin_value hand, got %s", hand))
	}
	if node == classify.NodeSemiBluff {
		draw := hand == classify.ComboDraw || hand == classify.Draw
		thin := hand == classify.ThinValue && z.SmallOnly() && !barrelTag
		if !draw && !thin {
			errs = append(errs, fmt.Sprintf("semi_bluff node requires combo_draw or draw hand (or small-only thin_value without barrel tag), got %s", hand))
		}
	}
	if node == classify.NodePressure {
		switch hand {
		case classify.ThinValue:
			if z.HasLarge {
				errs = append(errs, "large barrel options with thin_value hand")
			}
		case classify.PureBluff:
			if z.HasLarge {
				errs = append(errs, "large barrel options with pure_bluff hand")
			}
			if z.SmallOnly() {
				errs = append(errs, "small-only barrel options with pure_bluff hand; checking dominates")
			}
		}
	}
	return errs
}
