package primary

import "context"

// FindingService defines the primary port for the compliance finding
// ledger: recording findings during a visit and resolving findings
// opened in earlier visits.
type FindingService interface {
	// RecordFinding appends a finding to the active visit.
	RecordFinding(ctx context.Context, req RecordFindingRequest) (*Finding, error)

	// ListOpenFindings lists the still-open findings at an installation.
	ListOpenFindings(ctx context.Context, installationID string) ([]*Finding, error)

	// ResolveFinding moves a prior-visit finding forward, recording the
	// active visit as the verifying visit.
	ResolveFinding(ctx context.Context, req ResolveFindingRequest) error
}

// Finding represents a finding at the port boundary.
type Finding struct {
	ID                string
	Category          string // 'personal', 'infrastructure', 'documentation', 'operational'
	Severity          string // 'critical', 'major', 'minor'
	Description       string
	Status            string // 'open', 'in_progress', 'verified'
	GuardID           string // may be empty
	PhotoURL          string // may be empty
	OpenedInVisitID   string
	VerifiedInVisitID string // may be empty
	CreatedAt         string
}

// RecordFindingRequest carries a new finding. ChecklistItemID links the
// finding back to the unchecked item that prompted it, when there is one.
type RecordFindingRequest struct {
	Category        string
	Severity        string
	Description     string
	GuardID         string
	PhotoPath       string // optional photo evidence
	ChecklistItemID string
}

// ResolveFindingRequest moves a finding forward.
type ResolveFindingRequest struct {
	FindingID string
	Status    string
}
