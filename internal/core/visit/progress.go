package visit

// StepState is the presentation state of one wizard step.
type StepState string

const (
	StepStateCompleted StepState = "completed"
	StepStateCurrent   StepState = "current"
	StepStateReachable StepState = "reachable" // completed earlier, re-visitable
	StepStateLocked    StepState = "locked"
)

// StepInfo is one row of the progress indicator.
type StepInfo struct {
	Step  Step
	State StepState
}

// Progress derives the progress-indicator rows from the draft. Pure
// presentation input; no business logic beyond watermark comparison.
func Progress(d *Draft) []StepInfo {
	out := make([]StepInfo, 0, 5)
	for s := StepCheckIn; s <= StepClosure; s++ {
		info := StepInfo{Step: s}
		switch {
		case d.Status == StatusClosed:
			info.State = StepStateCompleted
		case s == d.CurrentStep:
			info.State = StepStateCurrent
		case s < d.CurrentStep:
			info.State = StepStateCompleted
		case s <= d.MaxReachedStep:
			info.State = StepStateReachable
		default:
			info.State = StepStateLocked
		}
		out = append(out, info)
	}
	return out
}
