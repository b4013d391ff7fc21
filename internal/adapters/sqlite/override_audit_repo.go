package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/ronda/internal/ports/secondary"
)

// OverrideAuditRepository implements secondary.OverrideAuditRepository
// with SQLite.
type OverrideAuditRepository struct {
	db *sql.DB
}

// NewOverrideAuditRepository creates a new SQLite override audit repository.
func NewOverrideAuditRepository(db *sql.DB) *OverrideAuditRepository {
	return &OverrideAuditRepository{db: db}
}

// Record appends one override entry.
func (r *OverrideAuditRepository) Record(ctx context.Context, record *secondary.OverrideRecord) error {
	var distance sql.NullFloat64
	if record.DistanceM != nil {
		distance = sql.NullFloat64{Float64: *record.DistanceM, Valid: true}
	}
	createdAt := record.CreatedAt
	if createdAt == "" {
		createdAt = time.Now().UTC().Format(time.RFC3339)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO override_audit (id, visit_id, installation_id, distance_m, radius_m, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.VisitID,
		record.InstallationID,
		distance,
		record.RadiusM,
		record.Reason,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record override: %w", err)
	}

	return nil
}

// ListByVisit returns the overrides recorded for a visit.
func (r *OverrideAuditRepository) ListByVisit(ctx context.Context, visitID string) ([]*secondary.OverrideRecord, error) {
	return r.list(ctx,
		`SELECT id, visit_id, installation_id, distance_m, radius_m, reason, created_at
		 FROM override_audit WHERE visit_id = ? ORDER BY created_at DESC`,
		visitID,
	)
}

// ListRecent returns the newest entries, most recent first.
func (r *OverrideAuditRepository) ListRecent(ctx context.Context, limit int) ([]*secondary.OverrideRecord, error) {
	return r.list(ctx,
		`SELECT id, visit_id, installation_id, distance_m, radius_m, reason, created_at
		 FROM override_audit ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
}

func (r *OverrideAuditRepository) list(ctx context.Context, query string, args ...any) ([]*secondary.OverrideRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list overrides: %w", err)
	}
	defer rows.Close()

	var records []*secondary.OverrideRecord
	for rows.Next() {
		var distance sql.NullFloat64
		record := &secondary.OverrideRecord{}
		err := rows.Scan(
			&record.ID,
			&record.VisitID,
			&record.InstallationID,
			&distance,
			&record.RadiusM,
			&record.Reason,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan override: %w", err)
		}
		if distance.Valid {
			record.DistanceM = &distance.Float64
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Ensure OverrideAuditRepository implements the interface
var _ secondary.OverrideAuditRepository = (*OverrideAuditRepository)(nil)
