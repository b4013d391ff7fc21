package secondary

import "context"

// OverrideRecord is one locally retained geofence override: a check-in
// performed outside the installation radius with a supervisor-supplied
// reason. Kept client-side for review with ronda doctor.
type OverrideRecord struct {
	ID             string
	VisitID        string
	InstallationID string
	DistanceM      *float64 // nil when the distance could not be computed
	RadiusM        float64
	Reason         string
	CreatedAt      string
}

// OverrideAuditRepository defines the secondary port for the local
// override audit trail.
type OverrideAuditRepository interface {
	// Record appends one override entry.
	Record(ctx context.Context, record *OverrideRecord) error

	// ListByVisit returns the overrides recorded for a visit.
	ListByVisit(ctx context.Context, visitID string) ([]*OverrideRecord, error)

	// ListRecent returns the newest entries, most recent first.
	ListRecent(ctx context.Context, limit int) ([]*OverrideRecord, error)
}
