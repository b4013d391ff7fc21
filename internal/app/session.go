// Package app contains the application services that drive the visit
// wizard: they evaluate the core guards, perform the persistence side
// effects and keep the local draft snapshot current.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/ronda/internal/core/visit"
	"github.com/example/ronda/internal/ports/secondary"
)

// ErrNoSession is returned when an operation needs an open visit session
// and none exists on this device.
var ErrNoSession = errors.New("no visit in progress - start one with: ronda visit checkin")

// session pairs the live draft with its local snapshot identity.
type session struct {
	localID string
	draft   *visit.Draft
}

// sessionStore loads and saves draft snapshots through the draft
// repository. Shared by the visit and finding services.
type sessionStore struct {
	drafts secondary.DraftRepository
	now    func() time.Time
}

// loadOpen returns the open session, or ErrNoSession.
func (s *sessionStore) loadOpen(ctx context.Context) (*session, error) {
	record, err := s.drafts.GetOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load visit draft: %w", err)
	}
	if record == nil {
		return nil, ErrNoSession
	}
	draft := visit.NewDraft()
	if err := json.Unmarshal(record.Payload, draft); err != nil {
		return nil, fmt.Errorf("failed to decode visit draft %s: %w", record.LocalID, err)
	}
	return &session{localID: record.LocalID, draft: draft}, nil
}

// save snapshots the draft. Called after every draft mutation so a
// process restart resumes exactly where the operator stopped.
func (s *sessionStore) save(ctx context.Context, sess *session) error {
	payload, err := json.Marshal(sess.draft)
	if err != nil {
		return fmt.Errorf("failed to encode visit draft: %w", err)
	}
	record := &secondary.DraftRecord{
		LocalID:        sess.localID,
		VisitID:        sess.draft.VisitID,
		InstallationID: sess.draft.InstallationID,
		Status:         sess.draft.Status,
		CurrentStep:    int(sess.draft.CurrentStep),
		MaxReachedStep: int(sess.draft.MaxReachedStep),
		UpdatedAt:      s.now().UTC().Format(time.RFC3339),
		Payload:        payload,
	}
	if err := s.drafts.Save(ctx, record); err != nil {
		return fmt.Errorf("failed to save visit draft: %w", err)
	}
	return nil
}
