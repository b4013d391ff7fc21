// Package finding contains the pure business logic for compliance findings.
// This is part of the Functional Core - no I/O, only pure functions.
package finding

import (
	"fmt"
	"time"
)

// Category classifies what a finding is about.
type Category string

const (
	CategoryPersonal       Category = "personal"
	CategoryInfrastructure Category = "infrastructure"
	CategoryDocumentation  Category = "documentation"
	CategoryOperational    Category = "operational"
)

// Severity grades how serious a finding is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
)

// Status tracks a finding through its remediation lifecycle.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusVerified   Status = "verified"
)

// statusRank orders the lifecycle; transitions may only move forward.
var statusRank = map[Status]int{
	StatusOpen:       0,
	StatusInProgress: 1,
	StatusVerified:   2,
}

// Finding is a recorded compliance defect. It back-references the visit
// that opened it and, once remediation is confirmed, the visit that
// verified it - two independent ids, no ownership between the visits.
type Finding struct {
	ID                string
	Category          Category
	Severity          Severity
	Description       string
	Status            Status
	GuardID           string // optional guard linkage
	PhotoURL          string // optional photo evidence
	OpenedInVisitID   string
	VerifiedInVisitID string // set when a later visit confirms remediation
	CreatedAt         time.Time
}

// ValidCategory reports whether c is a known finding category.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryPersonal, CategoryInfrastructure, CategoryDocumentation, CategoryOperational:
		return true
	}
	return false
}

// ValidSeverity reports whether s is a known finding severity.
func ValidSeverity(s Severity) bool {
	switch s {
	case SeverityCritical, SeverityMajor, SeverityMinor:
		return true
	}
	return false
}

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

// CreateContext provides context for finding creation guards.
type CreateContext struct {
	VisitID     string
	Category    Category
	Severity    Severity
	Description string
}

// CanCreate evaluates whether a finding can be recorded.
// Rules:
// - An active visit is required
// - Category and severity must come from the closed enumerations
// - Description must not be empty
func CanCreate(ctx CreateContext) GuardResult {
	if ctx.VisitID == "" {
		return GuardResult{
			Allowed: false,
			Reason:  "no active visit - findings can only be recorded during a visit",
		}
	}
	if !ValidCategory(ctx.Category) {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("unknown finding category %q (must be personal, infrastructure, documentation or operational)", ctx.Category),
		}
	}
	if !ValidSeverity(ctx.Severity) {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("unknown finding severity %q (must be critical, major or minor)", ctx.Severity),
		}
	}
	if ctx.Description == "" {
		return GuardResult{
			Allowed: false,
			Reason:  "finding description must not be empty",
		}
	}
	return GuardResult{Allowed: true}
}

// ResolveContext provides context for finding resolution guards.
type ResolveContext struct {
	FindingID        string
	CurrentStatus    Status
	TargetStatus     Status
	OpenedInVisitID  string
	ResolvingVisitID string
}

// CanResolve evaluates whether a finding may move to a new status.
// Rules:
// - Status only moves forward in {open, in_progress, verified}
// - The resolving visit id must be supplied (audit linkage)
// - A visit never resolves findings it opened itself
func CanResolve(ctx ResolveContext) GuardResult {
	fromRank, ok := statusRank[ctx.CurrentStatus]
	if !ok {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("finding %s has unknown status %q", ctx.FindingID, ctx.CurrentStatus),
		}
	}
	toRank, ok := statusRank[ctx.TargetStatus]
	if !ok {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("unknown target status %q (must be open, in_progress or verified)", ctx.TargetStatus),
		}
	}
	if toRank < fromRank {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("finding %s cannot move backward from %s to %s", ctx.FindingID, ctx.CurrentStatus, ctx.TargetStatus),
		}
	}
	if ctx.ResolvingVisitID == "" {
		return GuardResult{
			Allowed: false,
			Reason:  "resolving visit id is required to update a finding status",
		}
	}
	if ctx.ResolvingVisitID == ctx.OpenedInVisitID {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("finding %s was opened in visit %s and cannot be resolved from the same visit", ctx.FindingID, ctx.OpenedInVisitID),
		}
	}
	return GuardResult{Allowed: true}
}
