// Package visit contains the pure business logic for the supervision
// visit wizard: step gating, draft state, anomaly flags and the closure
// summary. This is part of the Functional Core - no I/O, only pure functions.
package visit

import "fmt"

// Step identifies one wizard stage. Steps only ever advance forward;
// a watermark (MaxReachedStep) allows revisiting completed steps.
type Step int

const (
	StepCheckIn    Step = 1
	StepEvaluation Step = 2
	StepChecklist  Step = 3
	StepEvidence   Step = 4
	StepClosure    Step = 5
)

// String returns the short human name of a step.
func (s Step) String() string {
	switch s {
	case StepCheckIn:
		return "check-in"
	case StepEvaluation:
		return "evaluation"
	case StepChecklist:
		return "checklist"
	case StepEvidence:
		return "evidence"
	case StepClosure:
		return "closure"
	}
	return fmt.Sprintf("step-%d", int(s))
}

// Valid reports whether s is one of the five wizard steps.
func (s Step) Valid() bool {
	return s >= StepCheckIn && s <= StepClosure
}

// Visit status values.
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string // Human-readable reason (populated when not allowed)
}

// Error returns the guard result as an error if not allowed, nil otherwise.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%s", r.Reason)
}

// CanNavigateTo evaluates backward/within-watermark navigation.
// Rules:
// - A closed visit cannot be navigated
// - Target must be a valid step at or below the watermark
// Forward movement past the watermark goes through the per-step advance
// guards, never through navigation.
func CanNavigateTo(status string, target, maxReached Step) GuardResult {
	if status == StatusClosed {
		return GuardResult{
			Allowed: false,
			Reason:  "visit is closed - no further navigation is possible",
		}
	}
	if !target.Valid() {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("unknown wizard step %d", int(target)),
		}
	}
	if target > maxReached {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("step %s not reached yet - complete %s first", target, maxReached),
		}
	}
	return GuardResult{Allowed: true}
}
