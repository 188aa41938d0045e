package engine

import (
	"spotforge/server/classify"
	"spotforge/server/spot"
)

// Validator runs the grammar pass followed by the intent-policy pass.
type Validator struct {
	intent *IntentChecker
}

// NewValidator returns a Validator. With a nil classifier only the grammar
// pass runs.
func NewValidator(c classify.Classifier) *Validator {
	return &Validator{intent: NewIntentChecker(c)}
}

// Validate appends policy errors to the grammar result. Policy is only
// consulted once the record is well-formed enough to classify.
func (v *Validator) Validate(s *spot.Spot) Result {
	res := Validate(s)
	if s == nil || s.Data == nil || v == nil {
		return res
	}
	if errs := v.intent.Check(s); len(errs) > 0 {
		res.Errors = append(res.Errors, errs...)
		res.OK = false
	}
	return res
}
