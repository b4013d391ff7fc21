package sqlite_test

import (
	"context"
	"testing"

	"github.com/example/ronda/internal/adapters/sqlite"
	"github.com/example/ronda/internal/ports/secondary"
)

func TestOverrideAuditRepository_RecordAndList(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewOverrideAuditRepository(db)
	ctx := context.Background()

	distance := 143.7
	err := repo.Record(ctx, &secondary.OverrideRecord{
		ID:             "OVR-001",
		VisitID:        "VIS-001",
		InstallationID: "INST-001",
		DistanceM:      &distance,
		RadiusM:        100,
		Reason:         "gate blocked, checked in from the street",
		CreatedAt:      "2026-03-10T09:00:00Z",
	})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	got, err := repo.ListByVisit(ctx, "VIS-001")
	if err != nil {
		t.Fatalf("ListByVisit failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("ListByVisit returned %d records, want 1", len(got))
	}
	if got[0].Reason != "gate blocked, checked in from the street" {
		t.Errorf("Reason = %q", got[0].Reason)
	}
	if got[0].DistanceM == nil || *got[0].DistanceM != 143.7 {
		t.Errorf("DistanceM = %v, want 143.7", got[0].DistanceM)
	}
}

func TestOverrideAuditRepository_NullDistance(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewOverrideAuditRepository(db)
	ctx := context.Background()

	err := repo.Record(ctx, &secondary.OverrideRecord{
		ID:             "OVR-001",
		VisitID:        "VIS-001",
		InstallationID: "INST-001",
		RadiusM:        100,
		Reason:         "no GPS signal inside the basement",
	})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	got, err := repo.ListByVisit(ctx, "VIS-001")
	if err != nil {
		t.Fatalf("ListByVisit failed: %v", err)
	}
	if got[0].DistanceM != nil {
		t.Errorf("DistanceM = %v, want nil", got[0].DistanceM)
	}
}

func TestOverrideAuditRepository_ListRecent(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewOverrideAuditRepository(db)
	ctx := context.Background()

	times := []string{"2026-03-08T09:00:00Z", "2026-03-09T09:00:00Z", "2026-03-10T09:00:00Z"}
	for i, ts := range times {
		repo.Record(ctx, &secondary.OverrideRecord{
			ID:             "OVR-00" + string(rune('1'+i)),
			VisitID:        "VIS-00" + string(rune('1'+i)),
			InstallationID: "INST-001",
			RadiusM:        100,
			Reason:         "x",
			CreatedAt:      ts,
		})
	}

	got, err := repo.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListRecent returned %d records, want 2", len(got))
	}
	if got[0].VisitID != "VIS-003" || got[1].VisitID != "VIS-002" {
		t.Errorf("order = %s, %s, want newest first", got[0].VisitID, got[1].VisitID)
	}
}
