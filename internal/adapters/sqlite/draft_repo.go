// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/ronda/internal/ports/secondary"
)

// DraftRepository implements secondary.DraftRepository with SQLite.
type DraftRepository struct {
	db *sql.DB
}

// NewDraftRepository creates a new SQLite draft repository.
func NewDraftRepository(db *sql.DB) *DraftRepository {
	return &DraftRepository{db: db}
}

// Save upserts a draft snapshot by its local id.
func (r *DraftRepository) Save(ctx context.Context, record *secondary.DraftRecord) error {
	updatedAt := record.UpdatedAt
	if updatedAt == "" {
		updatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO drafts (local_id, visit_id, installation_id, status, current_step, max_reached_step, updated_at, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(local_id) DO UPDATE SET
			visit_id = excluded.visit_id,
			installation_id = excluded.installation_id,
			status = excluded.status,
			current_step = excluded.current_step,
			max_reached_step = excluded.max_reached_step,
			updated_at = excluded.updated_at,
			payload = excluded.payload`,
		record.LocalID,
		record.VisitID,
		record.InstallationID,
		record.Status,
		record.CurrentStep,
		record.MaxReachedStep,
		updatedAt,
		string(record.Payload),
	)
	if err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}

	return nil
}

// GetOpen returns the most recently updated open draft, or nil when
// there is none.
func (r *DraftRepository) GetOpen(ctx context.Context) (*secondary.DraftRecord, error) {
	record, err := r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT local_id, visit_id, installation_id, status, current_step, max_reached_step, updated_at, payload
		 FROM drafts WHERE status = 'open' ORDER BY updated_at DESC LIMIT 1`,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get open draft: %w", err)
	}
	return record, nil
}

// GetByVisitID returns the draft for a server-assigned visit id.
func (r *DraftRepository) GetByVisitID(ctx context.Context, visitID string) (*secondary.DraftRecord, error) {
	record, err := r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT local_id, visit_id, installation_id, status, current_step, max_reached_step, updated_at, payload
		 FROM drafts WHERE visit_id = ?`,
		visitID,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("draft for visit %s not found", visitID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}
	return record, nil
}

// Delete removes a draft snapshot.
func (r *DraftRepository) Delete(ctx context.Context, localID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM drafts WHERE local_id = ?", localID)
	if err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}

func (r *DraftRepository) scanOne(row *sql.Row) (*secondary.DraftRecord, error) {
	var payload string
	record := &secondary.DraftRecord{}
	err := row.Scan(
		&record.LocalID,
		&record.VisitID,
		&record.InstallationID,
		&record.Status,
		&record.CurrentStep,
		&record.MaxReachedStep,
		&record.UpdatedAt,
		&payload,
	)
	if err != nil {
		return nil, err
	}
	record.Payload = []byte(payload)
	return record, nil
}

// Ensure DraftRepository implements the interface
var _ secondary.DraftRepository = (*DraftRepository)(nil)
