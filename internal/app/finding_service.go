package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/example/ronda/internal/core/finding"
	"github.com/example/ronda/internal/core/visit"
	"github.com/example/ronda/internal/ports/primary"
	"github.com/example/ronda/internal/ports/secondary"
)

// FindingServiceImpl implements the FindingService interface. Findings
// are appended during steps 2-3 of the active visit; findings opened in
// earlier visits are resolved with the active visit recorded as the
// verifying visit.
type FindingServiceImpl struct {
	api   secondary.BackOfficeAPI
	store *sessionStore
}

// NewFindingService creates a new FindingService with injected dependencies.
func NewFindingService(api secondary.BackOfficeAPI, drafts secondary.DraftRepository) *FindingServiceImpl {
	return &FindingServiceImpl{
		api:   api,
		store: &sessionStore{drafts: drafts, now: time.Now},
	}
}

// RecordFinding appends a finding to the active visit.
func (s *FindingServiceImpl) RecordFinding(ctx context.Context, req primary.RecordFindingRequest) (*primary.Finding, error) {
	sess, err := s.store.loadOpen(ctx)
	if err != nil {
		return nil, err
	}
	d := sess.draft

	// Findings belong to steps 2-3 of the wizard.
	if d.MaxReachedStep < visit.StepEvaluation {
		return nil, fmt.Errorf("findings can be recorded from the evaluation step on (session is at %s)", d.CurrentStep)
	}

	guard := finding.CanCreate(finding.CreateContext{
		VisitID:     d.VisitID,
		Category:    finding.Category(req.Category),
		Severity:    finding.Severity(req.Severity),
		Description: req.Description,
	})
	if !guard.Allowed {
		return nil, guard.Error()
	}

	record, err := s.api.CreateFinding(ctx, d.VisitID, secondary.CreateFindingRequest{
		GuardID:     req.GuardID,
		Category:    req.Category,
		Severity:    req.Severity,
		Description: req.Description,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create finding: %w", err)
	}

	if req.PhotoPath != "" {
		data, err := os.ReadFile(req.PhotoPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read finding photo: %w", err)
		}
		result, err := s.api.UploadPhoto(ctx, d.VisitID, secondary.PhotoUpload{
			FileName:     filepath.Base(req.PhotoPath),
			Data:         data,
			CategoryName: "finding-" + record.ID,
			GpsLat:       d.LastKnownLat,
			GpsLng:       d.LastKnownLng,
		})
		if err != nil {
			// The finding exists server-side; the photo stays attachable
			// from the evidence step. Surface the partial outcome.
			return nil, fmt.Errorf("finding %s created, but its photo failed to upload: %w", record.ID, err)
		}
		record.PhotoURL = result.PhotoURL
	}

	f := recordToCoreFinding(record)
	d.Findings = append(d.Findings, f)
	if req.ChecklistItemID != "" {
		d.FindingLinks[req.ChecklistItemID] = record.ID
		d.ChecklistMarks[req.ChecklistItemID] = false
	}
	if err := s.store.save(ctx, sess); err != nil {
		return nil, err
	}
	return coreFindingToPrimary(f), nil
}

// ListOpenFindings lists the still-open findings at an installation.
// With an empty installationID the active session's installation is used.
func (s *FindingServiceImpl) ListOpenFindings(ctx context.Context, installationID string) ([]*primary.Finding, error) {
	if installationID == "" {
		sess, err := s.store.loadOpen(ctx)
		if err != nil {
			return nil, err
		}
		installationID = sess.draft.InstallationID
	}
	records, err := s.api.OpenFindings(ctx, installationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list open findings: %w", err)
	}
	out := make([]*primary.Finding, len(records))
	for i, r := range records {
		f := recordToCoreFinding(r)
		out[i] = coreFindingToPrimary(f)
	}
	return out, nil
}

// ResolveFinding moves a prior-visit finding forward, recording the
// active visit as the verifying visit.
func (s *FindingServiceImpl) ResolveFinding(ctx context.Context, req primary.ResolveFindingRequest) error {
	sess, err := s.store.loadOpen(ctx)
	if err != nil {
		return err
	}
	d := sess.draft

	var target *finding.Finding
	for i := range d.OpenFindings {
		if d.OpenFindings[i].ID == req.FindingID {
			target = &d.OpenFindings[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("finding %s is not among the open findings at installation %s", req.FindingID, d.InstallationID)
	}

	guard := finding.CanResolve(finding.ResolveContext{
		FindingID:        target.ID,
		CurrentStatus:    target.Status,
		TargetStatus:     finding.Status(req.Status),
		OpenedInVisitID:  target.OpenedInVisitID,
		ResolvingVisitID: d.VisitID,
	})
	if !guard.Allowed {
		return guard.Error()
	}

	if err := s.api.UpdateFindingStatus(ctx, d.InstallationID, secondary.UpdateFindingStatusRequest{
		FindingID:         req.FindingID,
		Status:            req.Status,
		VerifiedInVisitID: d.VisitID,
	}); err != nil {
		return fmt.Errorf("failed to update finding status: %w", err)
	}

	target.Status = finding.Status(req.Status)
	target.VerifiedInVisitID = d.VisitID
	return s.store.save(ctx, sess)
}

// Helper methods

func recordToCoreFinding(r *secondary.FindingRecord) finding.Finding {
	created, _ := time.Parse(time.RFC3339, r.CreatedAt)
	return finding.Finding{
		ID:                r.ID,
		Category:          finding.Category(r.Category),
		Severity:          finding.Severity(r.Severity),
		Description:       r.Description,
		Status:            finding.Status(r.Status),
		GuardID:           r.GuardID,
		PhotoURL:          r.PhotoURL,
		OpenedInVisitID:   r.VisitID,
		VerifiedInVisitID: r.VerifiedInVisitID,
		CreatedAt:         created,
	}
}

func coreFindingToPrimary(f finding.Finding) *primary.Finding {
	created := ""
	if !f.CreatedAt.IsZero() {
		created = f.CreatedAt.Format(time.RFC3339)
	}
	return &primary.Finding{
		ID:                f.ID,
		Category:          string(f.Category),
		Severity:          string(f.Severity),
		Description:       f.Description,
		Status:            string(f.Status),
		GuardID:           f.GuardID,
		PhotoURL:          f.PhotoURL,
		OpenedInVisitID:   f.OpenedInVisitID,
		VerifiedInVisitID: f.VerifiedInVisitID,
		CreatedAt:         created,
	}
}

var _ primary.FindingService = (*FindingServiceImpl)(nil)
