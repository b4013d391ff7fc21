package visit

import (
	"time"

	"github.com/example/ronda/internal/core/checklist"
	"github.com/example/ronda/internal/core/evidence"
)

// Summary is the read-only end-of-visit digest consumed by the closure
// step and the status view. All derived, nothing here is persisted.
type Summary struct {
	Duration           time.Duration
	AverageGuardRating *float64 // mean of per-guard averages, nil when unrated
	ComplianceRatio    *float64 // nil when the installation has no items/documents
	ClientSatisfaction *float64
	GuardsExpected     int
	GuardsFound        int
	PhotosCaptured     int
	PhotosUploaded     int
	FindingsOpened     int
	ChecklistChecked   int
	ChecklistTotal     int
	Anomalies          Anomalies
}

// ComputeSummary derives the closure summary from the accumulated draft.
// The duration runs from check-in to now while the visit is open, and to
// checkout once closed.
func ComputeSummary(d *Draft, now time.Time) Summary {
	s := Summary{
		ComplianceRatio:    d.ComplianceRatio(),
		ClientSatisfaction: ClientSatisfaction(d.Survey),
		GuardsExpected:     d.GuardsExpected,
		GuardsFound:        d.GuardsFound,
		PhotosCaptured:     len(d.Photos),
		FindingsOpened:     len(d.Findings),
		Anomalies:          ComputeAnomalies(d),
	}

	if !d.CheckInAt.IsZero() {
		end := now
		if d.Status == StatusClosed && !d.CheckOutAt.IsZero() {
			end = d.CheckOutAt
		}
		s.Duration = end.Sub(d.CheckInAt)
	}

	sum, n := 0.0, 0
	for _, e := range d.Evaluations {
		if avg := e.AverageScore(); avg != nil {
			sum += *avg
			n++
		}
	}
	if n > 0 {
		mean := sum / float64(n)
		s.AverageGuardRating = &mean
	}

	s.PhotosUploaded = len(d.Photos) - len(evidence.Pending(d.Photos))

	s.ChecklistTotal = len(d.ChecklistItems) + len(d.DocumentTypes)
	for _, it := range d.ChecklistItems {
		if d.ChecklistMarks[it.ID] {
			s.ChecklistChecked++
		}
	}
	for _, doc := range d.DocumentTypes {
		if d.DocumentAnswers[doc.Code] == checklist.DocPresent {
			s.ChecklistChecked++
		}
	}

	return s
}
