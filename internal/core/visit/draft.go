package visit

import (
	"time"

	"github.com/example/ronda/internal/core/checklist"
	"github.com/example/ronda/internal/core/dotation"
	"github.com/example/ronda/internal/core/evidence"
	"github.com/example/ronda/internal/core/finding"
)

// Installation state values reported in step 2.
const (
	StateNormal     = "normal"
	StateIncidencia = "incidencia"
	StateCritico    = "critico"
)

// GuardEvaluation is one roster member's scoring captured in step 2.
// Scores are nil until rated; each is an independent 1-5 integer.
type GuardEvaluation struct {
	GuardID       string // empty for an unresolved reinforcement slot
	Name          string
	Reinforcement bool
	Presentation  *int
	Order         *int
	Protocol      *int
	Observation   string
}

// AverageScore is the mean of the rated scores, nil when none are rated.
func (e GuardEvaluation) AverageScore() *float64 {
	sum, n := 0, 0
	for _, s := range []*int{e.Presentation, e.Order, e.Protocol} {
		if s != nil {
			sum += *s
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := float64(sum) / float64(n)
	return &avg
}

// Logbook captures the step-3 site logbook review.
type Logbook struct {
	UpToDate      *bool // nil until answered
	LastEntryDate string
	Notes         string
	PhotoLocalID  string // links to a Draft photo when a logbook photo was taken
}

// ClientSurvey captures the step-5 closing survey. Sub-scores are nil
// until answered; the derived satisfaction excludes nil entries.
type ClientSurvey struct {
	Contacted        bool
	ContactName      string
	SubScores        [4]*int // independent 1-5 survey answers
	Comment          string
	ValidationLocal  string // local path of a signature/photo validation image
	ValidationURL    string // server URL once uploaded
}

// Draft is the in-memory working state of one visit session. It is the
// single source the step guards read; persistence happens on step
// advancement and never mutates a committed field back.
type Draft struct {
	VisitID        string // assigned by the server at check-in
	InstallationID string
	Status         string
	CurrentStep    Step
	MaxReachedStep Step

	// Step 1 - check-in
	CheckInAt      time.Time
	CheckInLat     float64
	CheckInLng     float64
	OverrideReason string // non-empty when check-in happened outside the geofence
	GuardsExpected int    // frozen at check-in, never recomputed
	GuardsFound    int    // operator-entered, mutable until checkout

	// Step 2 - evaluation
	Roster            dotation.Roster
	Evaluations       []GuardEvaluation
	InstallationState string
	GeneralComments   string

	// Step 3 - checklist
	ChecklistItems  []checklist.Item
	ChecklistMarks  map[string]bool
	FindingLinks    map[string]string // checklist item id -> finding id
	DocumentTypes   []checklist.DocumentType
	DocumentAnswers map[string]checklist.DocAnswer
	Book            Logbook

	// Step 4 - evidence
	PhotoCategories []evidence.Category
	Photos          []evidence.Photo

	// Step 5 - closure
	Survey ClientSurvey

	// Findings recorded in this visit plus still-open ones from prior visits.
	Findings     []finding.Finding
	OpenFindings []finding.Finding

	// Last coordinate seen by the session, used to tag uploads.
	LastKnownLat *float64
	LastKnownLng *float64

	CheckOutAt  time.Time
	CheckOutLat float64
	CheckOutLng float64
}

// NewDraft returns an empty draft positioned at the check-in step.
func NewDraft() *Draft {
	return &Draft{
		Status:          StatusOpen,
		CurrentStep:     StepCheckIn,
		MaxReachedStep:  StepCheckIn,
		ChecklistMarks:  map[string]bool{},
		FindingLinks:    map[string]string{},
		DocumentAnswers: map[string]checklist.DocAnswer{},
	}
}

// Advance moves the draft one step forward and raises the watermark.
// Callers must have evaluated the step's admission guard first.
func (d *Draft) Advance() {
	if d.CurrentStep < StepClosure {
		d.CurrentStep++
		if d.CurrentStep > d.MaxReachedStep {
			d.MaxReachedStep = d.CurrentStep
		}
	}
}

// SeedEvaluations builds one evaluation per roster entry. Existing
// evaluations are kept; seeding is only done on first entry to step 2.
func (d *Draft) SeedEvaluations() {
	if len(d.Evaluations) > 0 {
		return
	}
	for _, e := range d.Roster.All() {
		d.Evaluations = append(d.Evaluations, GuardEvaluation{
			GuardID:       e.GuardID,
			Name:          e.Name,
			Reinforcement: e.Reinforcement,
		})
	}
}

// ComplianceRatio is the step-3 ratio over this draft's checklist and
// documents; nil when the installation has neither configured.
func (d *Draft) ComplianceRatio() *float64 {
	return checklist.ComplianceRatio(d.ChecklistItems, d.ChecklistMarks, d.DocumentTypes, d.DocumentAnswers)
}
