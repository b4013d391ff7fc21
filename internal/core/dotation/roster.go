// Package dotation contains the pure business logic for the expected
// guard roster at an installation for a shift window.
// This is part of the Functional Core - no I/O, only pure functions.
package dotation

// Entry is one expected guard slot. GuardID may be empty for a
// reinforcement slot without a resolved identity.
type Entry struct {
	GuardID       string
	Name          string
	Reinforcement bool
}

// Roster is the expected staffing at an installation for a shift window.
// Regular entries come from the standing shift assignment; reinforcement
// entries are ad hoc additions for that date only.
type Roster struct {
	Regular       []Entry
	Reinforcement []Entry
}

// TotalExpected is the count of all roster entries, not a capacity figure.
func (r Roster) TotalExpected() int {
	return len(r.Regular) + len(r.Reinforcement)
}

// All returns regular entries followed by reinforcement entries, with the
// reinforcement flag normalized on each.
func (r Roster) All() []Entry {
	out := make([]Entry, 0, r.TotalExpected())
	for _, e := range r.Regular {
		e.Reinforcement = false
		out = append(out, e)
	}
	for _, e := range r.Reinforcement {
		e.Reinforcement = true
		out = append(out, e)
	}
	return out
}
