// Package primary defines the primary ports (driving adapters) for the
// application: the interfaces the CLI calls into.
package primary

import (
	"context"
	"time"
)

// VisitSessionService defines the primary port for the five-step
// supervision visit wizard. One open session is advanced at a time;
// every operation that fails leaves the draft unchanged and re-triable.
type VisitSessionService interface {
	// Nearby ranks the operator's assigned installations. With
	// useLocation it obtains a fresh fix and annotates distance and
	// geofence flag; without it the plain assigned list is returned.
	Nearby(ctx context.Context, useLocation bool) ([]*NearbySite, error)

	// CheckIn performs the step 1 -> 2 transition: admission guard,
	// fresh fix, visit creation, dotation freeze.
	CheckIn(ctx context.Context, req CheckInRequest) (*SessionState, error)

	// Resume reloads the open draft after a process restart.
	Resume(ctx context.Context) (*SessionState, error)

	// Status reports the session's progress, anomalies and summary.
	Status(ctx context.Context) (*SessionStatus, error)

	// GoToStep navigates to a previously completed step.
	GoToStep(ctx context.Context, step int) (*SessionState, error)

	// RateGuard updates one roster member's scores in the draft.
	RateGuard(ctx context.Context, req RateGuardRequest) error

	// SetInstallationState records the observed installation state and
	// general comments in the draft.
	SetInstallationState(ctx context.Context, state, comments string) error

	// AdvanceEvaluation performs the step 2 -> 3 transition.
	AdvanceEvaluation(ctx context.Context) (*SessionState, error)

	// SetLogbook records the step-3 logbook review in the draft.
	SetLogbook(ctx context.Context, req LogbookRequest) error

	// MarkChecklistItem toggles one checklist item in the draft.
	MarkChecklistItem(ctx context.Context, itemID string, checked bool) error

	// AnswerDocument records the tri-state document review. present nil
	// resets the answer to unanswered.
	AnswerDocument(ctx context.Context, code string, present *bool) error

	// AdvanceChecklist performs the step 3 -> 4 transition.
	AdvanceChecklist(ctx context.Context) (*SessionState, error)

	// AddPhoto compresses and queues a captured photo in the draft.
	AddPhoto(ctx context.Context, req AddPhotoRequest) (*PhotoInfo, error)

	// RemovePhoto drops a not-yet-uploaded photo and releases its preview.
	RemovePhoto(ctx context.Context, localID string) error

	// AdvanceEvidence performs the step 4 -> 5 transition, flushing the
	// upload queue first.
	AdvanceEvidence(ctx context.Context) (*SessionState, error)

	// SetSurvey records the closing client survey in the draft.
	SetSurvey(ctx context.Context, req SurveyRequest) error

	// Checkout performs the terminal transition: second fix, derived
	// satisfaction, atomic closure. A failure leaves the visit open and
	// re-enterable at step 5.
	Checkout(ctx context.Context, req CheckoutRequest) (*SessionState, error)
}

// NearbySite is one ranked installation. DistanceM and InsideGeofence
// are nil when no coordinate was used.
type NearbySite struct {
	InstallationID string
	Name           string
	Address        string
	GeoRadiusM     float64
	DistanceM      *float64
	InsideGeofence *bool
	Nearest        bool
}

// CheckInRequest carries the operator's step-1 input.
type CheckInRequest struct {
	InstallationID string
	GuardsFound    int
	OverrideReason string // required when outside the geofence
}

// RateGuardRequest updates one guard evaluation. Index addresses the
// roster position; nil scores leave the previous value in place.
type RateGuardRequest struct {
	Index        int
	Presentation *int
	Order        *int
	Protocol     *int
	Observation  string
}

// LogbookRequest carries the step-3 logbook review.
type LogbookRequest struct {
	UpToDate      *bool
	LastEntryDate string
	Notes         string
	PhotoPath     string // optional logbook photo to attach
}

// AddPhotoRequest queues one captured photo.
type AddPhotoRequest struct {
	Path         string
	CategoryID   string
	CategoryName string
}

// PhotoInfo describes one queued or uploaded photo.
type PhotoInfo struct {
	LocalID      string
	CategoryID   string
	CategoryName string
	Uploaded     bool
	ServerID     string
	URL          string
}

// SurveyRequest carries the closing client survey. Sub-scores are 1-5
// or nil for unanswered.
type SurveyRequest struct {
	Contacted      bool
	ContactName    string
	SubScores      [4]*int
	Comment        string
	ValidationPath string // optional signature/photo validation image
}

// CheckoutRequest carries the operator's final input for the closure.
type CheckoutRequest struct {
	GeneralComments string
}

// SessionState is the session position after an operation.
type SessionState struct {
	VisitID        string
	InstallationID string
	Status         string
	CurrentStep    int
	MaxReachedStep int
}

// StepRow is one progress-indicator line.
type StepRow struct {
	Step  int
	Name  string
	State string // 'completed', 'current', 'reachable', 'locked'
}

// AnomalyFlags are the non-blocking attention flags.
type AnomalyFlags struct {
	StaffingMismatch bool
	LowGuardRating   bool
	LowCompliance    bool
}

// GuardRow is one roster member with current scores.
type GuardRow struct {
	Index         int
	GuardID       string
	Name          string
	Reinforcement bool
	Presentation  *int
	Order         *int
	Protocol      *int
	Average       *float64
	Observation   string
}

// SessionStatus is the full session digest for the status view.
type SessionStatus struct {
	State              SessionState
	Progress           []StepRow
	Anomalies          AnomalyFlags
	Guards             []GuardRow
	Photos             []PhotoInfo
	PendingUploads     int
	Duration           time.Duration
	AverageGuardRating *float64
	ComplianceRatio    *float64
	ClientSatisfaction *float64
	GuardsExpected     int
	GuardsFound        int
	FindingsOpened     int
	ChecklistChecked   int
	ChecklistTotal     int
}
