package visit

import (
	"testing"

	"github.com/example/ronda/internal/core/evidence"
)

func boolPtr(v bool) *bool { return &v }

func intPtr(v int) *int { return &v }

func TestCanCheckIn(t *testing.T) {
	tests := []struct {
		name        string
		ctx         CheckInContext
		wantAllowed bool
		wantReason  string
	}{
		{
			name: "allowed inside geofence",
			ctx: CheckInContext{
				HasCoordinate:        true,
				InstallationSelected: true,
				InsideGeofence:       boolPtr(true),
			},
			wantAllowed: true,
		},
		{
			name:        "blocked without a coordinate",
			ctx:         CheckInContext{InstallationSelected: true},
			wantAllowed: false,
			wantReason:  "no location fix - check-in requires a fresh coordinate",
		},
		{
			name:        "blocked without an installation",
			ctx:         CheckInContext{HasCoordinate: true},
			wantAllowed: false,
			wantReason:  "no installation selected",
		},
		{
			name: "blocked outside geofence without override reason",
			ctx: CheckInContext{
				HasCoordinate:        true,
				InstallationSelected: true,
				InsideGeofence:       boolPtr(false),
			},
			wantAllowed: false,
			wantReason:  "outside the installation geofence - an override reason is required to check in",
		},
		{
			name: "allowed outside geofence with override reason",
			ctx: CheckInContext{
				HasCoordinate:        true,
				InstallationSelected: true,
				InsideGeofence:       boolPtr(false),
				OverrideReason:       "gate blocked",
			},
			wantAllowed: true,
		},
		{
			name: "unknown geofence state treated as not inside",
			ctx: CheckInContext{
				HasCoordinate:        true,
				InstallationSelected: true,
				InsideGeofence:       nil,
			},
			wantAllowed: false,
			wantReason:  "outside the installation geofence - an override reason is required to check in",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CanCheckIn(tt.ctx)
			if result.Allowed != tt.wantAllowed {
				t.Errorf("Allowed = %v, want %v", result.Allowed, tt.wantAllowed)
			}
			if !tt.wantAllowed && result.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", result.Reason, tt.wantReason)
			}
		})
	}
}

func TestCanAdvanceChecklist(t *testing.T) {
	tests := []struct {
		name        string
		book        Logbook
		wantAllowed bool
	}{
		{
			name:        "blocked while logbook question unanswered",
			book:        Logbook{},
			wantAllowed: false,
		},
		{
			name:        "allowed when logbook up to date",
			book:        Logbook{UpToDate: boolPtr(true)},
			wantAllowed: true,
		},
		{
			name:        "blocked when logbook behind without notes",
			book:        Logbook{UpToDate: boolPtr(false)},
			wantAllowed: false,
		},
		{
			name:        "allowed when logbook behind with notes",
			book:        Logbook{UpToDate: boolPtr(false), Notes: "last entry missing since Tuesday"},
			wantAllowed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDraft()
			d.Book = tt.book
			result := CanAdvanceChecklist(d)
			if result.Allowed != tt.wantAllowed {
				t.Errorf("Allowed = %v, want %v (%s)", result.Allowed, tt.wantAllowed, result.Reason)
			}
		})
	}
}

func TestCanAdvanceEvidence(t *testing.T) {
	d := NewDraft()
	d.PhotoCategories = []evidence.Category{
		{ID: "CAT-A", Name: "Access control", Mandatory: true},
		{ID: "CAT-B", Name: "Perimeter", Mandatory: true},
	}

	if result := CanAdvanceEvidence(d); result.Allowed {
		t.Fatalf("evidence step should be blocked with no photos")
	}

	d.Photos = append(d.Photos, evidence.Photo{
		LocalID:    "p1",
		CategoryID: "CAT-A",
		Local:      &evidence.LocalFile{Path: "/tmp/p1.jpg"},
	})
	if result := CanAdvanceEvidence(d); result.Allowed {
		t.Fatalf("evidence step should stay blocked with one of two mandatory categories")
	}

	d.Photos = append(d.Photos, evidence.Photo{
		LocalID:    "p2",
		CategoryID: "CAT-B",
		Local:      &evidence.LocalFile{Path: "/tmp/p2.jpg"},
	})
	if result := CanAdvanceEvidence(d); !result.Allowed {
		t.Fatalf("evidence step should unblock once the second category is covered: %s", result.Reason)
	}
}

func TestCanCheckout(t *testing.T) {
	d := NewDraft()
	d.MaxReachedStep = StepEvidence
	if result := CanCheckout(d); result.Allowed {
		t.Errorf("checkout should be blocked before reaching closure")
	}

	d.MaxReachedStep = StepClosure
	if result := CanCheckout(d); !result.Allowed {
		t.Errorf("checkout should be allowed once closure is reached: %s", result.Reason)
	}

	d.Status = StatusClosed
	if result := CanCheckout(d); result.Allowed {
		t.Errorf("checkout should be rejected on a closed visit")
	}
}

func TestCanNavigateTo(t *testing.T) {
	tests := []struct {
		name        string
		status      string
		target      Step
		maxReached  Step
		wantAllowed bool
	}{
		{name: "revisit completed step", status: StatusOpen, target: StepEvaluation, maxReached: StepEvidence, wantAllowed: true},
		{name: "stay on watermark step", status: StatusOpen, target: StepEvidence, maxReached: StepEvidence, wantAllowed: true},
		{name: "cannot skip ahead of watermark", status: StatusOpen, target: StepClosure, maxReached: StepChecklist, wantAllowed: false},
		{name: "cannot navigate a closed visit", status: StatusClosed, target: StepCheckIn, maxReached: StepClosure, wantAllowed: false},
		{name: "invalid step rejected", status: StatusOpen, target: Step(9), maxReached: StepClosure, wantAllowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CanNavigateTo(tt.status, tt.target, tt.maxReached)
			if result.Allowed != tt.wantAllowed {
				t.Errorf("Allowed = %v, want %v (%s)", result.Allowed, tt.wantAllowed, result.Reason)
			}
		})
	}
}

func TestAdvanceRaisesWatermark(t *testing.T) {
	d := NewDraft()

	d.Advance()
	if d.CurrentStep != StepEvaluation || d.MaxReachedStep != StepEvaluation {
		t.Fatalf("after first advance: current=%s max=%s", d.CurrentStep, d.MaxReachedStep)
	}

	d.Advance()
	d.Advance()
	d.Advance()
	if d.CurrentStep != StepClosure || d.MaxReachedStep != StepClosure {
		t.Fatalf("after four advances: current=%s max=%s", d.CurrentStep, d.MaxReachedStep)
	}

	// Advancing at closure is a no-op; checkout closes the visit instead.
	d.Advance()
	if d.CurrentStep != StepClosure {
		t.Errorf("advance past closure should not move the step")
	}

	// Going back never lowers the watermark.
	d.CurrentStep = StepEvaluation
	d.Advance()
	if d.CurrentStep != StepChecklist || d.MaxReachedStep != StepClosure {
		t.Errorf("re-advancing a revisited step must keep the watermark at closure")
	}
}
