package visit

// Anomaly thresholds. These flags draw attention on the progress and
// summary views; they never block a transition.
const (
	lowRatingThreshold     = 3.0
	lowComplianceThreshold = 0.8
)

// Anomalies are the non-blocking attention flags surfaced alongside the
// wizard progress.
type Anomalies struct {
	StaffingMismatch bool // guards expected != guards found
	LowGuardRating   bool // some guard's average score < 3
	LowCompliance    bool // compliance ratio < 0.8
}

// Any reports whether at least one flag is raised.
func (a Anomalies) Any() bool {
	return a.StaffingMismatch || a.LowGuardRating || a.LowCompliance
}

// ComputeAnomalies derives the attention flags from the current draft.
func ComputeAnomalies(d *Draft) Anomalies {
	var a Anomalies

	a.StaffingMismatch = d.GuardsExpected != d.GuardsFound

	for _, e := range d.Evaluations {
		if avg := e.AverageScore(); avg != nil && *avg < lowRatingThreshold {
			a.LowGuardRating = true
			break
		}
	}

	if ratio := d.ComplianceRatio(); ratio != nil && *ratio < lowComplianceThreshold {
		a.LowCompliance = true
	}

	return a
}
