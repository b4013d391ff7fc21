package visit

import "math"

// ClientSatisfaction derives the visit-level satisfaction score from the
// closing survey: the arithmetic mean of the answered sub-scores, rounded
// to 2 decimals. Nil sub-scores are excluded from the mean, not treated
// as zero. Returns nil when the client was not contacted or nothing was
// answered. This is the single canonical formula; the closure summary
// reads the same value.
func ClientSatisfaction(s ClientSurvey) *float64 {
	if !s.Contacted {
		return nil
	}
	sum, n := 0, 0
	for _, score := range s.SubScores {
		if score != nil {
			sum += *score
			n++
		}
	}
	if n == 0 {
		return nil
	}
	mean := float64(sum) / float64(n)
	rounded := math.Round(mean*100) / 100
	return &rounded
}
