package db

// SchemaSQL is the complete schema for fresh ronda installs.
// This schema reflects the current state after all migrations.
//
// This is the SINGLE SOURCE OF TRUTH for the local database schema. All
// tests use this schema via GetSchemaSQL() so that repository code which
// references a column missing here fails immediately with "no such
// column" instead of drifting.
//
// When adding new columns or tables:
//  1. Add a migration in internal/db/migrations.go
//  2. Update SchemaSQL here
const SchemaSQL = `
-- Visit drafts (one open wizard session snapshot per device)
CREATE TABLE IF NOT EXISTS drafts (
	local_id TEXT PRIMARY KEY,
	visit_id TEXT NOT NULL,
	installation_id TEXT NOT NULL,
	status TEXT NOT NULL CHECK(status IN ('open', 'closed')) DEFAULT 'open',
	current_step INTEGER NOT NULL DEFAULT 1,
	max_reached_step INTEGER NOT NULL DEFAULT 1,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	payload TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_drafts_status ON drafts(status);
CREATE INDEX IF NOT EXISTS idx_drafts_visit ON drafts(visit_id);

-- Geofence override audit (check-ins performed outside the radius)
CREATE TABLE IF NOT EXISTS override_audit (
	id TEXT PRIMARY KEY,
	visit_id TEXT NOT NULL,
	installation_id TEXT NOT NULL,
	distance_m REAL,
	radius_m REAL,
	reason TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_override_audit_visit ON override_audit(visit_id);
`

// InitSchema ensures the schema exists and is up to date.
func InitSchema() error {
	db, err := GetDB()
	if err != nil {
		return err
	}

	// Check if schema_version table exists to determine if this is a fresh install
	var tableCount int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableCount)
	if err != nil {
		return err
	}

	if tableCount == 0 {
		// Completely fresh install - create the modern schema directly
		// and mark all migrations as applied so they never re-run.
		_, err = db.Exec(SchemaSQL)
		if err != nil {
			return err
		}
		_, err = db.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (
				version INTEGER PRIMARY KEY,
				applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)
		`)
		if err != nil {
			return err
		}
		for i := 1; i <= len(migrations); i++ {
			_, err = db.Exec("INSERT INTO schema_version (version) VALUES (?)", i)
			if err != nil {
				return err
			}
		}
		return nil
	}

	// schema_version table exists - run any pending migrations
	return RunMigrations()
}

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
// Tests should use this instead of hardcoding their own schema to prevent drift.
func GetSchemaSQL() string {
	return SchemaSQL
}
