package secondary

import "context"

// DraftRecord is a persisted snapshot of the in-memory visit draft.
// Key fields are denormalized for querying; the full draft state travels
// as an opaque JSON payload. The server stays the source of truth for
// committed steps - the local store only bridges process restarts.
type DraftRecord struct {
	LocalID        string // client-generated, stable across the session
	VisitID        string // empty until check-in succeeds
	InstallationID string
	Status         string
	CurrentStep    int
	MaxReachedStep int
	UpdatedAt      string
	Payload        []byte
}

// DraftRepository defines the secondary port for local draft persistence.
type DraftRepository interface {
	// Save upserts a draft snapshot by its local id.
	Save(ctx context.Context, record *DraftRecord) error

	// GetOpen returns the most recently updated open draft, or nil when
	// there is none.
	GetOpen(ctx context.Context) (*DraftRecord, error)

	// GetByVisitID returns the draft for a server-assigned visit id.
	GetByVisitID(ctx context.Context, visitID string) (*DraftRecord, error)

	// Delete removes a draft snapshot.
	Delete(ctx context.Context, localID string) error
}
