package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/example/ronda/internal/core/checklist"
	"github.com/example/ronda/internal/core/dotation"
	"github.com/example/ronda/internal/core/evidence"
	"github.com/example/ronda/internal/core/finding"
	"github.com/example/ronda/internal/core/geo"
	"github.com/example/ronda/internal/core/visit"
	"github.com/example/ronda/internal/imgcompress"
	"github.com/example/ronda/internal/ports/primary"
	"github.com/example/ronda/internal/ports/secondary"
)

const (
	// sessionVia identifies this client in startedVia/completedVia.
	sessionVia = "ronda-cli"

	// defaultNearbyRadiusM bounds the nearby-installations query.
	defaultNearbyRadiusM = 50000
)

// VisitSessionServiceImpl implements the VisitSessionService interface.
// It owns the wizard state machine: guards are evaluated locally on the
// draft before any network call, persistence happens on step advancement,
// and any failed call leaves the draft unchanged and re-triable.
type VisitSessionServiceImpl struct {
	api         secondary.BackOfficeAPI
	location    secondary.LocationProvider
	store       *sessionStore
	audit       secondary.OverrideAuditRepository
	evidenceDir string
	compress    imgcompress.Options
	now         func() time.Time
}

// NewVisitSessionService creates a new VisitSessionService with injected
// dependencies. evidenceDir is where compressed captures are staged until
// their upload succeeds.
func NewVisitSessionService(
	api secondary.BackOfficeAPI,
	location secondary.LocationProvider,
	drafts secondary.DraftRepository,
	audit secondary.OverrideAuditRepository,
	evidenceDir string,
) *VisitSessionServiceImpl {
	return &VisitSessionServiceImpl{
		api:         api,
		location:    location,
		store:       &sessionStore{drafts: drafts, now: time.Now},
		audit:       audit,
		evidenceDir: evidenceDir,
		compress:    imgcompress.DefaultOptions(),
		now:         time.Now,
	}
}

// Nearby ranks the operator's assigned installations.
func (s *VisitSessionServiceImpl) Nearby(ctx context.Context, useLocation bool) ([]*primary.NearbySite, error) {
	if !useLocation {
		records, err := s.api.ListAssignedInstallations(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list assigned installations: %w", err)
		}
		out := make([]*primary.NearbySite, len(records))
		for i, r := range records {
			out[i] = recordToNearbySite(r)
		}
		return out, nil
	}

	fix, err := s.location.CurrentLocation(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain a location fix: %w", err)
	}
	records, err := s.api.NearbyInstallations(ctx, fix.Lat, fix.Lng, defaultNearbyRadiusM)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve nearby installations: %w", err)
	}

	// Distance, geofence flag and ordering are established locally from
	// the fresh fix; the server's ordering is not trusted.
	byID := make(map[string]*secondary.InstallationRecord, len(records))
	sites := make([]geo.Site, len(records))
	for i, r := range records {
		byID[r.ID] = r
		sites[i] = geo.Site{
			ID:         r.ID,
			Name:       r.Name,
			Location:   geo.Point{Lat: r.Lat, Lng: r.Lng},
			GeoRadiusM: r.GeoRadiusM,
		}
	}
	ranked := geo.Rank(&geo.Point{Lat: fix.Lat, Lng: fix.Lng}, sites)
	nearest := geo.Nearest(ranked)

	out := make([]*primary.NearbySite, len(ranked))
	for i, rs := range ranked {
		out[i] = &primary.NearbySite{
			InstallationID: rs.Site.ID,
			Name:           rs.Site.Name,
			Address:        byID[rs.Site.ID].Address,
			GeoRadiusM:     rs.Site.GeoRadiusM,
			DistanceM:      rs.DistanceM,
			InsideGeofence: rs.InsideGeofence,
			Nearest:        nearest != nil && rs.Site.ID == nearest.Site.ID,
		}
	}
	return out, nil
}

// CheckIn performs the step 1 -> 2 transition.
func (s *VisitSessionServiceImpl) CheckIn(ctx context.Context, req primary.CheckInRequest) (*primary.SessionState, error) {
	sess, err := s.store.loadOpen(ctx)
	if err != nil && err != ErrNoSession {
		return nil, err
	}
	if sess != nil && sess.draft.CurrentStep > visit.StepCheckIn {
		return nil, fmt.Errorf("visit %s is already in progress at %s - resume it with: ronda visit resume",
			sess.draft.VisitID, sess.draft.CurrentStep)
	}
	if sess != nil && sess.draft.InstallationID != req.InstallationID {
		// A pending check-in is tied to the visit already created at its
		// installation; retrying it must not re-point that visit elsewhere.
		return nil, fmt.Errorf("a check-in at installation %s is still pending (visit %s) - retry it there first",
			sess.draft.InstallationID, sess.draft.VisitID)
	}

	fix, err := s.location.CurrentLocation(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain a location fix: %w", err)
	}

	site, err := s.findInstallation(ctx, req.InstallationID)
	if err != nil {
		return nil, err
	}

	// Geofence evaluation is local: distance from the fresh fix to the
	// installation coordinate against its configured radius.
	dist := geo.DistanceMeters(geo.Point{Lat: fix.Lat, Lng: fix.Lng}, geo.Point{Lat: site.Lat, Lng: site.Lng})
	inside := dist <= site.GeoRadiusM

	guard := visit.CanCheckIn(visit.CheckInContext{
		HasCoordinate:        true,
		InstallationSelected: true,
		InsideGeofence:       &inside,
		OverrideReason:       req.OverrideReason,
	})
	if !guard.Allowed {
		return nil, guard.Error()
	}

	now := s.now()

	if sess == nil {
		// The expected roster is resolved exactly once, here. Later
		// shift changes never alter this visit's expectation.
		dot, err := s.api.Dotation(ctx, req.InstallationID, now.Format("2006-01-02"), now.Format("15:04"))
		if err != nil {
			return nil, fmt.Errorf("failed to resolve dotation: %w", err)
		}

		visitRec, err := s.api.CreateVisit(ctx, secondary.CreateVisitRequest{
			InstallationID: req.InstallationID,
			Lat:            fix.Lat,
			Lng:            fix.Lng,
			StartedVia:     sessionVia,
			OverrideReason: req.OverrideReason,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create visit: %w", err)
		}

		if req.OverrideReason != "" && s.audit != nil {
			// Local audit trail only; a write failure never blocks the
			// check-in already accepted by the server.
			_ = s.audit.Record(ctx, &secondary.OverrideRecord{
				ID:             uuid.NewString(),
				VisitID:        visitRec.ID,
				InstallationID: req.InstallationID,
				DistanceM:      &dist,
				RadiusM:        site.GeoRadiusM,
				Reason:         req.OverrideReason,
				CreatedAt:      now.UTC().Format(time.RFC3339),
			})
		}

		d := visit.NewDraft()
		d.VisitID = visitRec.ID
		d.InstallationID = req.InstallationID
		d.CheckInAt = now
		d.CheckInLat = fix.Lat
		d.CheckInLng = fix.Lng
		d.OverrideReason = req.OverrideReason
		d.GuardsExpected = dot.TotalExpected
		d.GuardsFound = req.GuardsFound
		d.Roster = recordToRoster(dot)
		d.LastKnownLat = &fix.Lat
		d.LastKnownLng = &fix.Lng
		sess = &session{localID: uuid.NewString(), draft: d}

		// Snapshot before the step patch: if the patch fails the visit
		// already exists server-side and a retry must not re-create it.
		if err := s.store.save(ctx, sess); err != nil {
			return nil, err
		}
	} else {
		// Re-entry after a failed step patch: the visit exists, only the
		// advancement is pending.
		sess.draft.GuardsFound = req.GuardsFound
	}

	d := sess.draft
	step := int(visit.StepEvaluation)
	if _, err := s.api.UpdateVisit(ctx, d.VisitID, secondary.VisitPatch{
		WizardStep:     &step,
		GuardsExpected: &d.GuardsExpected,
		GuardsFound:    &d.GuardsFound,
	}); err != nil {
		// Keep the snapshot so the operator can retry without a second
		// visit being created.
		_ = s.store.save(ctx, sess)
		return nil, fmt.Errorf("failed to persist check-in: %w", err)
	}

	d.Advance()
	d.SeedEvaluations()
	if err := s.store.save(ctx, sess); err != nil {
		return nil, err
	}
	return sessionState(d), nil
}

// Resume reloads the open draft after a process restart.
func (s *VisitSessionServiceImpl) Resume(ctx context.Context) (*primary.SessionState, error) {
	sess, err := s.store.loadOpen(ctx)
	if err != nil {
		return nil, err
	}
	return sessionState(sess.draft), nil
}

// GoToStep navigates to a previously completed step. Pure draft
// mutation; the watermark never moves.
func (s *VisitSessionServiceImpl) GoToStep(ctx context.Context, step int) (*primary.SessionState, error) {
	sess, err := s.store.loadOpen(ctx)
	if err != nil {
		return nil, err
	}
	d := sess.draft
	guard := visit.CanNavigateTo(d.Status, visit.Step(step), d.MaxReachedStep)
	if !guard.Allowed {
		return nil, guard.Error()
	}
	d.CurrentStep = visit.Step(step)
	if err := s.store.save(ctx, sess); err != nil {
		return nil, err
	}
	return sessionState(d), nil
}

// RateGuard updates one roster member's scores in the draft.
func (s *VisitSessionServiceImpl) RateGuard(ctx context.Context, req primary.RateGuardRequest) error {
	sess, err := s.requireStep(ctx, visit.StepEvaluation)
	if err != nil {
		return err
	}
	d := sess.draft
	if req.Index < 0 || req.Index >= len(d.Evaluations) {
		return fmt.Errorf("no roster entry %d (roster has %d entries)", req.Index, len(d.Evaluations))
	}
	for _, score := range []*int{req.Presentation, req.Order, req.Protocol} {
		if score != nil && (*score < 1 || *score > 5) {
			return fmt.Errorf("scores must be between 1 and 5, got %d", *score)
		}
	}
	e := &d.Evaluations[req.Index]
	if req.Presentation != nil {
		e.Presentation = req.Presentation
	}
	if req.Order != nil {
		e.Order = req.Order
	}
	if req.Protocol != nil {
		e.Protocol = req.Protocol
	}
	if req.Observation != "" {
		e.Observation = req.Observation
	}
	return s.store.save(ctx, sess)
}

// SetInstallationState records the observed installation state.
func (s *VisitSessionServiceImpl) SetInstallationState(ctx context.Context, state, comments string) error {
	sess, err := s.requireStep(ctx, visit.StepEvaluation)
	if err != nil {
		return err
	}
	switch state {
	case visit.StateNormal, visit.StateIncidencia, visit.StateCritico:
	default:
		return fmt.Errorf("unknown installation state %q (must be normal, incidencia or critico)", state)
	}
	sess.draft.InstallationState = state
	if comments != "" {
		sess.draft.GeneralComments = comments
	}
	return s.store.save(ctx, sess)
}

// AdvanceEvaluation performs the step 2 -> 3 transition: upsert the
// evaluations, persist the installation state, seed the checklist.
func (s *VisitSessionServiceImpl) AdvanceEvaluation(ctx context.Context) (*primary.SessionState, error) {
	sess, err := s.atStep(ctx, visit.StepEvaluation)
	if err != nil {
		return nil, err
	}
	d := sess.draft
	if guard := visit.CanAdvanceEvaluation(d); !guard.Allowed {
		return nil, guard.Error()
	}

	// Seed step 3 before committing the transition, so a fetch failure
	// leaves the session on step 2.
	if len(d.ChecklistItems) == 0 && len(d.DocumentTypes) == 0 {
		bundle, err := s.api.Checklist(ctx, d.InstallationID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve checklist: %w", err)
		}
		d.ChecklistItems = recordToItems(bundle.Items)
		d.DocumentTypes = recordToDocumentTypes(bundle.DocumentTypes)

		open, err := s.api.OpenFindings(ctx, d.InstallationID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve open findings: %w", err)
		}
		d.OpenFindings = recordsToFindings(open)
	}

	step := wizardStepAfter(d)
	state := d.InstallationState
	comments := d.GeneralComments
	if _, err := s.api.UpdateVisit(ctx, d.VisitID, secondary.VisitPatch{
		WizardStep:        &step,
		InstallationState: &state,
		GeneralComments:   &comments,
		GuardEvaluations:  evaluationsToRecords(d.Evaluations),
	}); err != nil {
		return nil, fmt.Errorf("failed to persist evaluation: %w", err)
	}

	d.Advance()
	if err := s.store.save(ctx, sess); err != nil {
		return nil, err
	}
	return sessionState(d), nil
}

// SetLogbook records the step-3 logbook review. An attached photo is
// compressed and queued; it uploads when the step advances.
func (s *VisitSessionServiceImpl) SetLogbook(ctx context.Context, req primary.LogbookRequest) error {
	sess, err := s.requireStep(ctx, visit.StepChecklist)
	if err != nil {
		return err
	}
	d := sess.draft
	if req.UpToDate != nil {
		d.Book.UpToDate = req.UpToDate
	}
	if req.LastEntryDate != "" {
		d.Book.LastEntryDate = req.LastEntryDate
	}
	if req.Notes != "" {
		d.Book.Notes = req.Notes
	}
	if req.PhotoPath != "" {
		photo, err := s.stagePhoto(req.PhotoPath, "", "logbook", d)
		if err != nil {
			return err
		}
		d.Photos = append(d.Photos, *photo)
		d.Book.PhotoLocalID = photo.LocalID
	}
	return s.store.save(ctx, sess)
}

// MarkChecklistItem toggles one checklist item in the draft.
func (s *VisitSessionServiceImpl) MarkChecklistItem(ctx context.Context, itemID string, checked bool) error {
	sess, err := s.requireStep(ctx, visit.StepChecklist)
	if err != nil {
		return err
	}
	d := sess.draft
	known := false
	for _, it := range d.ChecklistItems {
		if it.ID == itemID {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("checklist item %s not found for installation %s", itemID, d.InstallationID)
	}
	d.ChecklistMarks[itemID] = checked
	return s.store.save(ctx, sess)
}

// AnswerDocument records the tri-state document review.
func (s *VisitSessionServiceImpl) AnswerDocument(ctx context.Context, code string, present *bool) error {
	sess, err := s.requireStep(ctx, visit.StepChecklist)
	if err != nil {
		return err
	}
	d := sess.draft
	known := false
	for _, doc := range d.DocumentTypes {
		if doc.Code == code {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("document type %s not found for installation %s", code, d.InstallationID)
	}
	switch {
	case present == nil:
		delete(d.DocumentAnswers, code)
	case *present:
		d.DocumentAnswers[code] = checklist.DocPresent
	default:
		d.DocumentAnswers[code] = checklist.DocMissing
	}
	return s.store.save(ctx, sess)
}

// AdvanceChecklist performs the step 3 -> 4 transition: logbook photo
// upload, checklist results, book fields, photo category seeding.
func (s *VisitSessionServiceImpl) AdvanceChecklist(ctx context.Context) (*primary.SessionState, error) {
	sess, err := s.atStep(ctx, visit.StepChecklist)
	if err != nil {
		return nil, err
	}
	d := sess.draft
	if guard := visit.CanAdvanceChecklist(d); !guard.Allowed {
		return nil, guard.Error()
	}

	// Seed step 4 before committing the transition.
	if len(d.PhotoCategories) == 0 {
		categories, err := s.api.PhotoCategories(ctx, d.InstallationID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve photo categories: %w", err)
		}
		d.PhotoCategories = recordsToCategories(categories)
	}

	var bookPhotoURL *string
	if d.Book.PhotoLocalID != "" {
		photo := findPhoto(d, d.Book.PhotoLocalID)
		if photo != nil && !photo.Settled() {
			if err := s.uploadPhoto(ctx, d, photo); err != nil {
				// Snapshot anyway: a primary upload that got through must
				// not be re-sent on the retry.
				_ = s.store.save(ctx, sess)
				return nil, err
			}
			if err := s.store.save(ctx, sess); err != nil {
				return nil, err
			}
		}
		if photo != nil && photo.Uploaded() {
			bookPhotoURL = &photo.Remote.URL
		}
	}

	if results := checklist.Results(d.ChecklistItems, d.ChecklistMarks, d.FindingLinks); len(results) > 0 {
		if err := s.api.SaveChecklistResults(ctx, d.VisitID, resultsToRecords(results)); err != nil {
			return nil, fmt.Errorf("failed to save checklist results: %w", err)
		}
	}

	step := wizardStepAfter(d)
	notes := d.Book.Notes
	lastEntry := d.Book.LastEntryDate
	if _, err := s.api.UpdateVisit(ctx, d.VisitID, secondary.VisitPatch{
		WizardStep:        &step,
		BookUpToDate:      d.Book.UpToDate,
		BookLastEntryDate: &lastEntry,
		BookNotes:         &notes,
		BookPhotoURL:      bookPhotoURL,
		DocumentChecklist: checklist.DocumentMap(d.DocumentTypes, d.DocumentAnswers),
	}); err != nil {
		return nil, fmt.Errorf("failed to persist checklist step: %w", err)
	}

	d.Advance()
	if err := s.store.save(ctx, sess); err != nil {
		return nil, err
	}
	return sessionState(d), nil
}

// AddPhoto compresses and queues a captured photo. The capture is not
// part of the visit record until its upload succeeds.
func (s *VisitSessionServiceImpl) AddPhoto(ctx context.Context, req primary.AddPhotoRequest) (*primary.PhotoInfo, error) {
	sess, err := s.requireStep(ctx, visit.StepEvidence)
	if err != nil {
		return nil, err
	}
	d := sess.draft

	categoryName := req.CategoryName
	if req.CategoryID != "" {
		found := false
		for _, c := range d.PhotoCategories {
			if c.ID == req.CategoryID {
				categoryName = c.Name
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("photo category %s not found for installation %s", req.CategoryID, d.InstallationID)
		}
	}

	photo, err := s.stagePhoto(req.Path, req.CategoryID, categoryName, d)
	if err != nil {
		return nil, err
	}
	d.Photos = append(d.Photos, *photo)
	if err := s.store.save(ctx, sess); err != nil {
		return nil, err
	}
	return photoInfo(photo), nil
}

// RemovePhoto drops a not-yet-uploaded photo and releases its staged file.
func (s *VisitSessionServiceImpl) RemovePhoto(ctx context.Context, localID string) error {
	sess, err := s.requireStep(ctx, visit.StepEvidence)
	if err != nil {
		return err
	}
	d := sess.draft
	for i := range d.Photos {
		p := &d.Photos[i]
		if p.LocalID != localID {
			continue
		}
		if p.Uploaded() {
			return fmt.Errorf("photo %s is already uploaded and part of the visit record", localID)
		}
		// Release the staged file; previews must not accumulate across
		// a long visit.
		if p.Local != nil && p.Local.Path != "" {
			_ = os.Remove(p.Local.Path)
		}
		if d.Book.PhotoLocalID == localID {
			d.Book.PhotoLocalID = ""
		}
		d.Photos = append(d.Photos[:i], d.Photos[i+1:]...)
		return s.store.save(ctx, sess)
	}
	return fmt.Errorf("photo %s not found in the draft", localID)
}

// AdvanceEvidence performs the step 4 -> 5 transition: flush the upload
// queue in capture order, then commit the step.
func (s *VisitSessionServiceImpl) AdvanceEvidence(ctx context.Context) (*primary.SessionState, error) {
	sess, err := s.atStep(ctx, visit.StepEvidence)
	if err != nil {
		return nil, err
	}
	d := sess.draft
	if guard := visit.CanAdvanceEvidence(d); !guard.Allowed {
		return nil, guard.Error()
	}

	// Strictly sequential: one upload at a time, snapshot after each, so
	// a partial failure resumes from the first unsent item.
	for _, photo := range evidence.Pending(d.Photos) {
		if err := s.uploadPhoto(ctx, d, photo); err != nil {
			_ = s.store.save(ctx, sess)
			return nil, err
		}
		if err := s.store.save(ctx, sess); err != nil {
			return nil, err
		}
	}

	step := wizardStepAfter(d)
	if _, err := s.api.UpdateVisit(ctx, d.VisitID, secondary.VisitPatch{WizardStep: &step}); err != nil {
		return nil, fmt.Errorf("failed to persist evidence step: %w", err)
	}

	d.Advance()
	if err := s.store.save(ctx, sess); err != nil {
		return nil, err
	}
	return sessionState(d), nil
}

// SetSurvey records the closing client survey in the draft.
func (s *VisitSessionServiceImpl) SetSurvey(ctx context.Context, req primary.SurveyRequest) error {
	sess, err := s.requireStep(ctx, visit.StepClosure)
	if err != nil {
		return err
	}
	d := sess.draft
	for _, score := range req.SubScores {
		if score != nil && (*score < 1 || *score > 5) {
			return fmt.Errorf("survey scores must be between 1 and 5, got %d", *score)
		}
	}
	d.Survey.Contacted = req.Contacted
	d.Survey.ContactName = req.ContactName
	d.Survey.SubScores = req.SubScores
	d.Survey.Comment = req.Comment
	if req.ValidationPath != "" {
		staged, err := s.stageFile(req.ValidationPath)
		if err != nil {
			return err
		}
		d.Survey.ValidationLocal = staged
	}
	return s.store.save(ctx, sess)
}

// Checkout performs the terminal transition. Any failure leaves the
// visit open and re-enterable at step 5 - no partial seal.
func (s *VisitSessionServiceImpl) Checkout(ctx context.Context, req primary.CheckoutRequest) (*primary.SessionState, error) {
	sess, err := s.store.loadOpen(ctx)
	if err != nil {
		return nil, err
	}
	d := sess.draft
	if guard := visit.CanCheckout(d); !guard.Allowed {
		return nil, guard.Error()
	}

	// The checkout coordinate is an independent second fix.
	fix, err := s.location.CurrentLocation(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain a location fix: %w", err)
	}
	d.LastKnownLat = &fix.Lat
	d.LastKnownLng = &fix.Lng

	if req.GeneralComments != "" {
		d.GeneralComments = req.GeneralComments
	}

	if d.Survey.ValidationLocal != "" && d.Survey.ValidationURL == "" {
		data, err := os.ReadFile(d.Survey.ValidationLocal)
		if err != nil {
			return nil, fmt.Errorf("failed to read validation image: %w", err)
		}
		result, err := s.api.UploadPhoto(ctx, d.VisitID, secondary.PhotoUpload{
			FileName:     filepath.Base(d.Survey.ValidationLocal),
			Data:         data,
			CategoryName: "client-validation",
			GpsLat:       d.LastKnownLat,
			GpsLng:       d.LastKnownLng,
		})
		if err != nil {
			_ = s.store.save(ctx, sess)
			return nil, fmt.Errorf("failed to upload validation image: %w", err)
		}
		d.Survey.ValidationURL = result.PhotoURL
		if err := s.store.save(ctx, sess); err != nil {
			return nil, err
		}
	}

	if err := s.api.Checkout(ctx, d.VisitID, secondary.CheckoutRequest{
		Lat:                 fix.Lat,
		Lng:                 fix.Lng,
		CompletedVia:        sessionVia,
		GeneralComments:     d.GeneralComments,
		InstallationState:   d.InstallationState,
		GuardsExpected:      d.GuardsExpected,
		GuardsFound:         d.GuardsFound,
		BookUpToDate:        d.Book.UpToDate,
		BookLastEntryDate:   d.Book.LastEntryDate,
		BookNotes:           d.Book.Notes,
		ClientContacted:     d.Survey.Contacted,
		ClientContactName:   d.Survey.ContactName,
		ClientSatisfaction:  visit.ClientSatisfaction(d.Survey),
		ClientComment:       d.Survey.Comment,
		ClientValidationURL: d.Survey.ValidationURL,
	}); err != nil {
		_ = s.store.save(ctx, sess)
		return nil, fmt.Errorf("failed to check out: %w", err)
	}

	d.Status = visit.StatusClosed
	d.CheckOutAt = s.now()
	d.CheckOutLat = fix.Lat
	d.CheckOutLng = fix.Lng

	// The visit is sealed server-side and that outcome stands regardless
	// of local cleanup. Snapshot the closed state first so a failed
	// delete can never leave a resumable open draft for a closed visit.
	_ = s.store.save(ctx, sess)
	_ = s.store.drafts.Delete(ctx, sess.localID)
	return sessionState(d), nil
}

// Status reports the session's progress, anomalies and summary.
func (s *VisitSessionServiceImpl) Status(ctx context.Context) (*primary.SessionStatus, error) {
	sess, err := s.store.loadOpen(ctx)
	if err != nil {
		return nil, err
	}
	d := sess.draft
	summary := visit.ComputeSummary(d, s.now())

	status := &primary.SessionStatus{
		State:              *sessionState(d),
		Anomalies:          primary.AnomalyFlags(summary.Anomalies),
		PendingUploads:     len(evidence.Pending(d.Photos)),
		Duration:           summary.Duration,
		AverageGuardRating: summary.AverageGuardRating,
		ComplianceRatio:    summary.ComplianceRatio,
		ClientSatisfaction: summary.ClientSatisfaction,
		GuardsExpected:     summary.GuardsExpected,
		GuardsFound:        summary.GuardsFound,
		FindingsOpened:     summary.FindingsOpened,
		ChecklistChecked:   summary.ChecklistChecked,
		ChecklistTotal:     summary.ChecklistTotal,
	}

	for _, row := range visit.Progress(d) {
		status.Progress = append(status.Progress, primary.StepRow{
			Step:  int(row.Step),
			Name:  row.Step.String(),
			State: string(row.State),
		})
	}
	for i, e := range d.Evaluations {
		status.Guards = append(status.Guards, primary.GuardRow{
			Index:         i,
			GuardID:       e.GuardID,
			Name:          e.Name,
			Reinforcement: e.Reinforcement,
			Presentation:  e.Presentation,
			Order:         e.Order,
			Protocol:      e.Protocol,
			Average:       e.AverageScore(),
			Observation:   e.Observation,
		})
	}
	for i := range d.Photos {
		status.Photos = append(status.Photos, *photoInfo(&d.Photos[i]))
	}
	return status, nil
}

// Helper methods

// atStep loads the open session and requires the wizard to currently be
// on the given step.
func (s *VisitSessionServiceImpl) atStep(ctx context.Context, step visit.Step) (*session, error) {
	sess, err := s.store.loadOpen(ctx)
	if err != nil {
		return nil, err
	}
	if sess.draft.CurrentStep != step {
		return nil, fmt.Errorf("session is at %s - this operation applies to the %s step (navigate with: ronda visit goto %d)",
			sess.draft.CurrentStep, step, int(step))
	}
	return sess, nil
}

// requireStep loads the open session and requires the given step to be
// reached; completed steps stay editable up to the watermark.
func (s *VisitSessionServiceImpl) requireStep(ctx context.Context, step visit.Step) (*session, error) {
	sess, err := s.store.loadOpen(ctx)
	if err != nil {
		return nil, err
	}
	if sess.draft.MaxReachedStep < step {
		return nil, fmt.Errorf("the %s step has not been reached yet (session is at %s)",
			step, sess.draft.CurrentStep)
	}
	return sess, nil
}

// stagePhoto compresses a capture into the evidence directory and builds
// its queue entry, tagged with the most recent known coordinate.
func (s *VisitSessionServiceImpl) stagePhoto(path, categoryID, categoryName string, d *visit.Draft) (*evidence.Photo, error) {
	staged, err := s.stageFile(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(staged)
	if err != nil {
		return nil, fmt.Errorf("failed to stat staged photo: %w", err)
	}
	return &evidence.Photo{
		LocalID:      uuid.NewString(),
		CategoryID:   categoryID,
		CategoryName: categoryName,
		TakenAt:      s.now(),
		TakenLat:     d.LastKnownLat,
		TakenLng:     d.LastKnownLng,
		Local: &evidence.LocalFile{
			Path:      staged,
			SizeBytes: info.Size(),
		},
	}, nil
}

// stageFile compresses an image file into the evidence directory and
// returns the staged path.
func (s *VisitSessionServiceImpl) stageFile(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open image %s: %w", path, err)
	}
	defer src.Close()

	data, _, err := imgcompress.Compress(src, s.compress)
	if err != nil {
		return "", fmt.Errorf("failed to compress image %s: %w", path, err)
	}

	if err := os.MkdirAll(s.evidenceDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create evidence directory: %w", err)
	}
	staged := filepath.Join(s.evidenceDir, uuid.NewString()+".jpg")
	if err := os.WriteFile(staged, data, 0644); err != nil {
		return "", fmt.Errorf("failed to stage compressed image: %w", err)
	}
	return staged, nil
}

// uploadPhoto sends one queued photo to the primary store and the legacy
// duplicate store. The primary identity is recorded as soon as that
// store accepts it, so a legacy failure replays only the legacy send -
// the primary upload is never duplicated. The caller filters with
// evidence.Pending and snapshots after every outcome.
func (s *VisitSessionServiceImpl) uploadPhoto(ctx context.Context, d *visit.Draft, photo *evidence.Photo) error {
	data, err := os.ReadFile(photo.Local.Path)
	if err != nil {
		return fmt.Errorf("failed to read staged photo %s: %w", photo.LocalID, err)
	}
	fileName := filepath.Base(photo.Local.Path)

	if !photo.Uploaded() {
		result, err := s.api.UploadPhoto(ctx, d.VisitID, secondary.PhotoUpload{
			FileName:     fileName,
			Data:         data,
			CategoryID:   photo.CategoryID,
			CategoryName: photo.CategoryName,
			GpsLat:       photo.TakenLat,
			GpsLng:       photo.TakenLng,
		})
		if err != nil {
			return fmt.Errorf("failed to upload photo %s (%s): %w", photo.LocalID, photo.CategoryName, err)
		}
		photo.MarkPrimaryUploaded(evidence.RemoteRef{ID: result.ID, URL: result.PhotoURL})
	}

	if err := s.api.UploadPhotoLegacy(ctx, d.VisitID, fileName, data, photo.CategoryName); err != nil {
		return fmt.Errorf("failed to duplicate photo %s to the legacy store: %w", photo.LocalID, err)
	}

	stagedPath := photo.Local.Path
	photo.MarkLegacySent()
	_ = os.Remove(stagedPath)
	return nil
}

// findInstallation resolves one assigned installation by id.
func (s *VisitSessionServiceImpl) findInstallation(ctx context.Context, installationID string) (*secondary.InstallationRecord, error) {
	records, err := s.api.ListAssignedInstallations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list assigned installations: %w", err)
	}
	for _, r := range records {
		if r.ID == installationID {
			return r, nil
		}
	}
	return nil, fmt.Errorf("installation %s is not assigned to this supervisor", installationID)
}

// wizardStepAfter is the server-side wizardStep value once the current
// step commits: one past the current step, never below the watermark.
func wizardStepAfter(d *visit.Draft) int {
	next := d.CurrentStep + 1
	if d.MaxReachedStep > next {
		next = d.MaxReachedStep
	}
	return int(next)
}

func findPhoto(d *visit.Draft, localID string) *evidence.Photo {
	for i := range d.Photos {
		if d.Photos[i].LocalID == localID {
			return &d.Photos[i]
		}
	}
	return nil
}

func sessionState(d *visit.Draft) *primary.SessionState {
	return &primary.SessionState{
		VisitID:        d.VisitID,
		InstallationID: d.InstallationID,
		Status:         d.Status,
		CurrentStep:    int(d.CurrentStep),
		MaxReachedStep: int(d.MaxReachedStep),
	}
}

func photoInfo(p *evidence.Photo) *primary.PhotoInfo {
	info := &primary.PhotoInfo{
		LocalID:      p.LocalID,
		CategoryID:   p.CategoryID,
		CategoryName: p.CategoryName,
		Uploaded:     p.Uploaded(),
	}
	if p.Remote != nil {
		info.ServerID = p.Remote.ID
		info.URL = p.Remote.URL
	}
	return info
}

func recordToNearbySite(r *secondary.InstallationRecord) *primary.NearbySite {
	return &primary.NearbySite{
		InstallationID: r.ID,
		Name:           r.Name,
		Address:        r.Address,
		GeoRadiusM:     r.GeoRadiusM,
		DistanceM:      r.DistanceM,
		InsideGeofence: r.InsideGeofence,
	}
}

func recordToRoster(r *secondary.DotationRecord) dotation.Roster {
	roster := dotation.Roster{}
	for _, e := range r.Regular {
		roster.Regular = append(roster.Regular, dotation.Entry{GuardID: e.GuardID, Name: e.Name})
	}
	for _, e := range r.Reinforcement {
		roster.Reinforcement = append(roster.Reinforcement, dotation.Entry{GuardID: e.GuardID, Name: e.Name, Reinforcement: true})
	}
	return roster
}

func recordToItems(records []secondary.ChecklistItemRecord) []checklist.Item {
	out := make([]checklist.Item, len(records))
	for i, r := range records {
		out[i] = checklist.Item{ID: r.ID, Label: r.Label, Mandatory: r.Mandatory}
	}
	return out
}

func recordToDocumentTypes(records []secondary.DocumentTypeRecord) []checklist.DocumentType {
	out := make([]checklist.DocumentType, len(records))
	for i, r := range records {
		out[i] = checklist.DocumentType{Code: r.Code, Name: r.Name, Mandatory: r.Mandatory}
	}
	return out
}

func recordsToCategories(records []*secondary.PhotoCategoryRecord) []evidence.Category {
	out := make([]evidence.Category, len(records))
	for i, r := range records {
		out[i] = evidence.Category{ID: r.ID, Name: r.Name, Mandatory: r.Mandatory}
	}
	return out
}

func recordsToFindings(records []*secondary.FindingRecord) []finding.Finding {
	out := make([]finding.Finding, len(records))
	for i, r := range records {
		out[i] = recordToCoreFinding(r)
	}
	return out
}

func evaluationsToRecords(evals []visit.GuardEvaluation) []secondary.GuardEvaluationRecord {
	out := make([]secondary.GuardEvaluationRecord, len(evals))
	for i, e := range evals {
		out[i] = secondary.GuardEvaluationRecord{
			GuardID:       e.GuardID,
			Name:          e.Name,
			Reinforcement: e.Reinforcement,
			Presentation:  e.Presentation,
			Order:         e.Order,
			Protocol:      e.Protocol,
			Observation:   e.Observation,
		}
	}
	return out
}

func resultsToRecords(results []checklist.Result) []secondary.ChecklistResultRecord {
	out := make([]secondary.ChecklistResultRecord, len(results))
	for i, r := range results {
		out[i] = secondary.ChecklistResultRecord{ItemID: r.ItemID, Checked: r.Checked, FindingID: r.FindingID}
	}
	return out
}

var _ primary.VisitSessionService = (*VisitSessionServiceImpl)(nil)
