// Package secondary defines the secondary ports (driven adapters) for the
// application. These are the interfaces through which the wizard drives
// external systems: the back-office API, the device location capability
// and the local draft store.
package secondary

import "context"

// BackOfficeAPI defines the secondary port for the server operations the
// wizard depends on. Transport is HTTP+JSON; only the operation contracts
// matter here. A non-2xx response surfaces as an error and the caller
// leaves its step unchanged.
type BackOfficeAPI interface {
	// CreateVisit opens a visit at check-in. The server assigns the id
	// and sets status=open, wizardStep=1.
	CreateVisit(ctx context.Context, req CreateVisitRequest) (*VisitRecord, error)

	// UpdateVisit patches the given fields; used after every step to
	// persist wizardStep plus that step's fields.
	UpdateVisit(ctx context.Context, visitID string, patch VisitPatch) (*VisitRecord, error)

	// ListAssignedInstallations returns the operator's installations
	// without distance information.
	ListAssignedInstallations(ctx context.Context) ([]*InstallationRecord, error)

	// NearbyInstallations returns assigned installations with distance
	// and geofence flag, nearest first.
	NearbyInstallations(ctx context.Context, lat, lng, maxDistanceM float64) ([]*InstallationRecord, error)

	// Dotation returns the expected roster for an installation at a
	// date and time.
	Dotation(ctx context.Context, installationID, date, tm string) (*DotationRecord, error)

	// Checklist returns the checklist items and document types
	// configured for an installation.
	Checklist(ctx context.Context, installationID string) (*ChecklistRecord, error)

	// PhotoCategories returns the photo categories configured for an
	// installation.
	PhotoCategories(ctx context.Context, installationID string) ([]*PhotoCategoryRecord, error)

	// OpenFindings returns the still-open findings from prior visits.
	OpenFindings(ctx context.Context, installationID string) ([]*FindingRecord, error)

	// CreateFinding records a new finding against a visit.
	CreateFinding(ctx context.Context, visitID string, req CreateFindingRequest) (*FindingRecord, error)

	// UpdateFindingStatus moves a finding forward, recording the
	// verifying visit.
	UpdateFindingStatus(ctx context.Context, installationID string, req UpdateFindingStatusRequest) error

	// SaveChecklistResults persists the operator's checklist marks.
	SaveChecklistResults(ctx context.Context, visitID string, results []ChecklistResultRecord) error

	// UploadPhoto uploads one evidence photo to the primary store.
	UploadPhoto(ctx context.Context, visitID string, up PhotoUpload) (*PhotoUploadResult, error)

	// UploadPhotoLegacy duplicates the file into the legacy store with
	// just a caption, kept for backward compatibility.
	UploadPhotoLegacy(ctx context.Context, visitID string, fileName string, data []byte, caption string) error

	// Checkout submits the atomic closure payload and seals the visit.
	Checkout(ctx context.Context, visitID string, req CheckoutRequest) error
}

// InstallationRecord represents an installation at the port boundary.
// DistanceM and InsideGeofence are nil when the listing was requested
// without a coordinate.
type InstallationRecord struct {
	ID             string
	Name           string
	Address        string
	Lat            float64
	Lng            float64
	GeoRadiusM     float64
	DistanceM      *float64
	InsideGeofence *bool
}

// VisitRecord represents a visit as returned by the server.
type VisitRecord struct {
	ID             string
	InstallationID string
	Status         string // 'open', 'closed'
	WizardStep     int
	CheckInAt      string // RFC3339
	CheckInLat     float64
	CheckInLng     float64
	GuardsExpected int
	GuardsFound    int
}

// CreateVisitRequest carries the check-in payload.
type CreateVisitRequest struct {
	InstallationID string
	Lat            float64
	Lng            float64
	StartedVia     string
	OverrideReason string // non-empty when checking in outside the geofence
}

// GuardEvaluationRecord is one guard's scores as persisted with the visit.
type GuardEvaluationRecord struct {
	GuardID       string
	Name          string
	Reinforcement bool
	Presentation  *int
	Order         *int
	Protocol      *int
	Observation   string
}

// VisitPatch lists the patchable visit fields. Nil fields are omitted
// from the request.
type VisitPatch struct {
	WizardStep        *int
	GuardsExpected    *int
	GuardsFound       *int
	InstallationState *string
	GeneralComments   *string
	BookUpToDate      *bool
	BookLastEntryDate *string
	BookNotes         *string
	BookPhotoURL      *string
	DocumentChecklist map[string]bool
	GuardEvaluations  []GuardEvaluationRecord
}

// DotationEntryRecord is one expected guard slot.
type DotationEntryRecord struct {
	GuardID string // empty for an unresolved reinforcement slot
	Name    string
}

// DotationRecord is the expected roster for a shift window.
type DotationRecord struct {
	Regular       []DotationEntryRecord
	Reinforcement []DotationEntryRecord
	TotalExpected int
}

// ChecklistItemRecord is one configurable checklist entry.
type ChecklistItemRecord struct {
	ID        string
	Label     string
	Mandatory bool
}

// DocumentTypeRecord is one document kind to verify on site.
type DocumentTypeRecord struct {
	Code      string
	Name      string
	Mandatory bool
}

// ChecklistRecord bundles an installation's checklist configuration.
type ChecklistRecord struct {
	Items         []ChecklistItemRecord
	DocumentTypes []DocumentTypeRecord
}

// PhotoCategoryRecord is one photo category configured for an installation.
type PhotoCategoryRecord struct {
	ID        string
	Name      string
	Mandatory bool
}

// FindingRecord represents a finding as stored server-side.
type FindingRecord struct {
	ID                string
	Category          string
	Severity          string
	Description       string
	Status            string // 'open', 'in_progress', 'verified'
	GuardID           string // may be empty
	PhotoURL          string // may be empty
	VisitID           string // visit that opened the finding
	VerifiedInVisitID string // may be empty
	CreatedAt         string
}

// CreateFindingRequest carries a new finding.
type CreateFindingRequest struct {
	GuardID     string // optional guard linkage
	Category    string
	Severity    string
	Description string
}

// UpdateFindingStatusRequest moves a finding forward with audit linkage.
type UpdateFindingStatusRequest struct {
	FindingID         string
	Status            string
	VerifiedInVisitID string
}

// ChecklistResultRecord is one persisted checklist mark.
type ChecklistResultRecord struct {
	ItemID    string
	Checked   bool
	FindingID string // may be empty
}

// PhotoUpload is one evidence photo bound for the primary store.
type PhotoUpload struct {
	FileName     string
	Data         []byte
	CategoryID   string // may be empty for ad hoc captures
	CategoryName string
	GpsLat       *float64
	GpsLng       *float64
}

// PhotoUploadResult is the server identity of an uploaded photo.
type PhotoUploadResult struct {
	ID       string
	PhotoURL string
}

// CheckoutRequest is the atomic closure payload.
type CheckoutRequest struct {
	Lat                 float64
	Lng                 float64
	CompletedVia        string
	GeneralComments     string
	InstallationState   string
	GuardsExpected      int
	GuardsFound         int
	BookUpToDate        *bool
	BookLastEntryDate   string
	BookNotes           string
	ClientContacted     bool
	ClientContactName   string
	ClientSatisfaction  *float64
	ClientComment       string
	ClientValidationURL string // may be empty
}
