// Package policy decides what happens when suspicious activity is
// observed: escalate through a fixed warning budget, then terminate the
// session exactly once.
//
// The reducer is pure. Detector heuristics and focus-loss events are
// observed but never penalized - only hiding the interview surface
// counts, and even that threshold is configurable because "tab hidden"
// conflates tab switches with ordinary OS focus churn.
package policy

import "fmt"

// DefaultMaxWarnings is the default warning budget before termination.
const DefaultMaxWarnings = 2

// Action is the outcome of evaluating one event.
type Action int

const (
	// ActionNone means the event is logged but not penalized.
	ActionNone Action = iota
	// ActionWarn means the violation consumed warning budget.
	ActionWarn
	// ActionTerminate means the budget is exhausted and the session
	// must be completed.
	ActionTerminate
)

func (a Action) String() string {
	switch a {
	case ActionWarn:
		return "warn"
	case ActionTerminate:
		return "terminate"
	default:
		return "none"
	}
}

// Violation is the subset of an activity event the reducer cares
// about.
type Violation interface {
	// Hidden reports whether the event is a visibility change into the
	// hidden state.
	Hidden() bool
}

// Rules is the warning policy configuration.
type Rules struct {
	// MaxWarnings is how many violations produce a warning before the
	// next one terminates.
	MaxWarnings int
}

// DefaultRules returns the standard two-warning budget.
func DefaultRules() Rules {
	return Rules{MaxWarnings: DefaultMaxWarnings}
}

// Decision is the reducer output.
type Decision struct {
	Action Action
	// Count is the violation count after this event.
	Count int
	// Message is the candidate-facing warning text, set for
	// ActionWarn.
	Message string
}

// Evaluate folds one event into the violation count. It is pure: the
// caller owns the count and applies the returned value.
func (r Rules) Evaluate(count int, ev Violation) Decision {
	if !ev.Hidden() {
		return Decision{Action: ActionNone, Count: count}
	}

	max := r.MaxWarnings
	if max <= 0 {
		max = DefaultMaxWarnings
	}

	next := count + 1
	if next <= max {
		return Decision{
			Action:  ActionWarn,
			Count:   next,
			Message: fmt.Sprintf("Warning %d/%d: leaving the interview tab is not allowed. The interview ends after %d violations.", next, max, max+1),
		}
	}

	return Decision{Action: ActionTerminate, Count: next}
}
