package spot

import "strings"

// MaxTags caps both tags and meta.concepts.
const MaxTags = 6

// DefaultConcepts is the closed set of concept tags a producer may persist.
var DefaultConcepts = []string{
	"range_advantage",
	"nut_advantage",
	"polarization",
	"merged_range",
	"blockers",
	"pot_odds",
	"equity_realization",
	"protection",
	"thin_value",
	"bluff_catching",
	"semi_bluff",
	"overbet",
	"small_bet",
	"board_texture",
	"turn_barrel",
	"delayed_cbet",
	"probe",
	"check_raise",
	"pot_control",
	"showdown_value",
	"spr",
	"give_up",
}

// ClampTags trims, drops empties, de-duplicates keeping first occurrence
// and caps the result at MaxTags.
func ClampTags(tags []string) []string {
	return clamp(tags, nil)
}

// ClampConcepts is ClampTags restricted to allowed. A nil allowed list
// means DefaultConcepts.
func ClampConcepts(concepts, allowed []string) []string {
	if allowed == nil {
		allowed = DefaultConcepts
	}
	set := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		set[a] = struct{}{}
	}
	return clamp(concepts, set)
}

func clamp(in []string, allowed map[string]struct{}) []string {
	out := make([]string, 0, MaxTags)
	seen := make(map[string]struct{}, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if allowed != nil {
			if _, ok := allowed[t]; !ok {
				continue
			}
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
		if len(out) == MaxTags {
			break
		}
	}
	return out
}
