package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/ronda/internal/adapters/location"
	"github.com/example/ronda/internal/adapters/sqlite"
	"github.com/example/ronda/internal/config"
	"github.com/example/ronda/internal/db"
)

// CheckResult represents the outcome of a single check
type CheckResult struct {
	Name    string
	Status  string // "✓", "⚠", "✗"
	Details string // Only shown if Status != "✓"
}

// DoctorCmd returns the doctor command for environment validation
func DoctorCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Validate the ronda environment",
		Long: `Environment health check for ronda.

Validates:
- Configuration (~/.ronda/config.json)
- Local database and schema
- Evidence directory
- Location source (runs the configured command)

Also lists the most recent geofence overrides.

Examples:
  ronda doctor            # Run full health check
  ronda doctor --quiet    # Exit code only (0=healthy, 1=issues)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			results := []CheckResult{}
			hasErrors := false

			results = append(results, checkConfig())
			results = append(results, checkDatabase())
			results = append(results, checkEvidenceDir())
			results = append(results, checkLocationSource())

			for _, r := range results {
				if r.Status == "✗" {
					hasErrors = true
					break
				}
			}

			if !quiet {
				fmt.Println()
				fmt.Println("Check              Status")
				fmt.Println("─────────────────────────")
				for _, r := range results {
					fmt.Printf("%-18s %s\n", r.Name, r.Status)
				}
				fmt.Println()

				hasDetails := false
				for _, r := range results {
					if r.Status != "✓" && r.Details != "" {
						if !hasDetails {
							fmt.Println("Details:")
							hasDetails = true
						}
						fmt.Printf("\n%s:\n%s\n", r.Name, r.Details)
					}
				}

				printRecentOverrides()

				if hasErrors {
					fmt.Println("\n⚠ Issues found. Run 'ronda init' to (re)configure.")
				} else {
					fmt.Println("All checks passed.")
				}
			}

			if hasErrors {
				return fmt.Errorf("environment validation failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode - exit code only")

	return cmd
}

// checkConfig validates that the config loads and passes validation
func checkConfig() CheckResult {
	cfg, err := config.LoadConfig()
	if err != nil {
		return CheckResult{Name: "Configuration", Status: "✗", Details: fmt.Sprintf("  %v\n  Run: ronda init", err)}
	}
	if err := cfg.Validate(); err != nil {
		return CheckResult{Name: "Configuration", Status: "✗", Details: fmt.Sprintf("  %v", err)}
	}
	return CheckResult{Name: "Configuration", Status: "✓"}
}

// checkDatabase validates that the local database opens and has a schema
func checkDatabase() CheckResult {
	dbPath, err := db.GetDBPath()
	if err != nil {
		return CheckResult{Name: "Database", Status: "✗", Details: fmt.Sprintf("  %v", err)}
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return CheckResult{Name: "Database", Status: "✗", Details: fmt.Sprintf("  %s does not exist\n  Run: ronda init", dbPath)}
	}

	conn, err := db.GetDB()
	if err != nil {
		return CheckResult{Name: "Database", Status: "✗", Details: fmt.Sprintf("  %v", err)}
	}

	var count int
	err = conn.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='drafts'").Scan(&count)
	if err != nil || count == 0 {
		return CheckResult{Name: "Database", Status: "✗", Details: "  drafts table missing\n  Run: ronda init"}
	}
	return CheckResult{Name: "Database", Status: "✓"}
}

// checkEvidenceDir validates that the staged-photo directory is writable
func checkEvidenceDir() CheckResult {
	dir, err := db.GetEvidenceDir()
	if err != nil {
		return CheckResult{Name: "Evidence dir", Status: "✗", Details: fmt.Sprintf("  %v", err)}
	}

	probe := filepath.Join(dir, ".doctor-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		return CheckResult{Name: "Evidence dir", Status: "✗", Details: fmt.Sprintf("  %s is not writable", dir)}
	}
	os.Remove(probe)
	return CheckResult{Name: "Evidence dir", Status: "✓"}
}

// checkLocationSource obtains one fix from the configured source
func checkLocationSource() CheckResult {
	cfg, err := config.LoadConfig()
	if err != nil {
		return CheckResult{Name: "Location", Status: "⚠", Details: "  No config; location source unchecked"}
	}

	if cfg.LocationCmd == "" {
		if cfg.StaticLat == 0 && cfg.StaticLng == 0 {
			return CheckResult{Name: "Location", Status: "✗", Details: "  No location source configured"}
		}
		return CheckResult{Name: "Location", Status: "✓"}
	}

	provider := location.NewCommandProvider(cfg.LocationCmd, zap.NewNop())
	fix, err := provider.CurrentLocation(NewContext())
	if err != nil {
		return CheckResult{Name: "Location", Status: "✗", Details: fmt.Sprintf("  location command failed: %v", err)}
	}
	return CheckResult{Name: "Location", Status: "✓", Details: fmt.Sprintf("  fix: %.5f, %.5f", fix.Lat, fix.Lng)}
}

// printRecentOverrides lists the newest geofence overrides, if any
func printRecentOverrides() {
	conn, err := db.GetDB()
	if err != nil {
		return
	}
	records, err := sqlite.NewOverrideAuditRepository(conn).ListRecent(NewContext(), 5)
	if err != nil || len(records) == 0 {
		return
	}

	fmt.Println("Recent geofence overrides:")
	for _, r := range records {
		distance := "?"
		if r.DistanceM != nil {
			distance = fmt.Sprintf("%.0f m", *r.DistanceM)
		}
		fmt.Printf("  %s  visit %s at %s (%s outside %v m): %s\n",
			r.CreatedAt, r.VisitID, r.InstallationID, distance, r.RadiusM, r.Reason)
	}
	fmt.Println()
}
