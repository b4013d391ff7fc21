package visit

import (
	"fmt"

	"github.com/example/ronda/internal/core/evidence"
)

// CheckInContext provides context for the step 1 -> 2 admission guard.
// InsideGeofence is nil while no coordinate is available.
type CheckInContext struct {
	HasCoordinate         bool
	InstallationSelected  bool
	InsideGeofence        *bool
	OverrideReason        string
}

// CanCheckIn evaluates the step 1 -> 2 transition.
// Rules:
// - A fresh coordinate must have been obtained
// - An installation must be selected
// - The coordinate must be inside the geofence, or an override reason given
// All of this is evaluated locally, before any network call.
func CanCheckIn(ctx CheckInContext) GuardResult {
	if !ctx.HasCoordinate {
		return GuardResult{
			Allowed: false,
			Reason:  "no location fix - check-in requires a fresh coordinate",
		}
	}
	if !ctx.InstallationSelected {
		return GuardResult{
			Allowed: false,
			Reason:  "no installation selected",
		}
	}
	inside := ctx.InsideGeofence != nil && *ctx.InsideGeofence
	if !inside && ctx.OverrideReason == "" {
		return GuardResult{
			Allowed: false,
			Reason:  "outside the installation geofence - an override reason is required to check in",
		}
	}
	return GuardResult{Allowed: true}
}

// CanAdvanceEvaluation evaluates the step 2 -> 3 transition. There is no
// hard gate here; unanswered scores only matter for the closure summary.
func CanAdvanceEvaluation(d *Draft) GuardResult {
	return GuardResult{Allowed: true}
}

// CanAdvanceChecklist evaluates the step 3 -> 4 transition.
// Rules:
// - The logbook question must be answered
// - A logbook that is not up to date needs non-empty notes
func CanAdvanceChecklist(d *Draft) GuardResult {
	if d.Book.UpToDate == nil {
		return GuardResult{
			Allowed: false,
			Reason:  "answer whether the site logbook is up to date",
		}
	}
	if !*d.Book.UpToDate && d.Book.Notes == "" {
		return GuardResult{
			Allowed: false,
			Reason:  "logbook is not up to date - notes describing the gap are required",
		}
	}
	return GuardResult{Allowed: true}
}

// CanAdvanceEvidence evaluates the step 4 -> 5 transition: every mandatory
// photo category needs at least one captured photo.
func CanAdvanceEvidence(d *Draft) GuardResult {
	result := evidence.CanAdvance(d.PhotoCategories, d.Photos)
	return GuardResult{Allowed: result.Allowed, Reason: result.Reason}
}

// CanCheckout evaluates the step 5 -> closed transition. Closure is always
// permitted once step 5 is reached; the only local requirement is that the
// session actually is at step 5 of an open visit.
func CanCheckout(d *Draft) GuardResult {
	if d.Status == StatusClosed {
		return GuardResult{
			Allowed: false,
			Reason:  "visit is already closed",
		}
	}
	if d.MaxReachedStep < StepClosure {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("closure not reached yet - the session is at %s", d.MaxReachedStep),
		}
	}
	return GuardResult{Allowed: true}
}

// AdvanceGuard returns the admission guard outcome for leaving the given
// step. Enabling or disabling the "next" action is derivable purely from
// draft state; network state never participates.
func AdvanceGuard(d *Draft, from Step, checkIn CheckInContext) GuardResult {
	switch from {
	case StepCheckIn:
		return CanCheckIn(checkIn)
	case StepEvaluation:
		return CanAdvanceEvaluation(d)
	case StepChecklist:
		return CanAdvanceChecklist(d)
	case StepEvidence:
		return CanAdvanceEvidence(d)
	case StepClosure:
		return CanCheckout(d)
	}
	return GuardResult{Allowed: false, Reason: fmt.Sprintf("unknown wizard step %d", int(from))}
}
