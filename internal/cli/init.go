package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/ronda/internal/config"
	"github.com/example/ronda/internal/db"
)

// InitCmd returns the init command
func InitCmd() *cobra.Command {
	var (
		apiURL       string
		apiToken     string
		supervisorID string
		deviceID     string
		locationCmd  string
		staticLat    float64
		staticLng    float64
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the ronda configuration and database",
		Long: `Initialize ~/.ronda/: write config.json, create the local database
and the evidence directory.

A location source is required: either --location-cmd (a shell command
printing {"lat":..,"lng":..} on stdout) or a pinned --lat/--lng pair.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := &config.Config{
				Version:      "1",
				APIBaseURL:   apiURL,
				APIToken:     apiToken,
				SupervisorID: supervisorID,
				DeviceID:     deviceID,
				LocationCmd:  locationCmd,
				StaticLat:    staticLat,
				StaticLng:    staticLng,
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			if path, err := config.ConfigPath(); err == nil {
				if _, err := os.Stat(path); err == nil {
					overwrite, _ := cmd.Flags().GetBool("force")
					if !overwrite {
						return fmt.Errorf("config already exists at %s - pass --force to overwrite", path)
					}
				}
			}

			if err := config.SaveConfig(cfg); err != nil {
				return err
			}
			fmt.Println("✓ Configuration written to ~/.ronda/config.json")

			if err := db.InitSchema(); err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			dbPath, _ := db.GetDBPath()
			fmt.Printf("✓ Database initialized at %s\n", dbPath)

			if _, err := db.GetEvidenceDir(); err != nil {
				return fmt.Errorf("failed to create evidence directory: %w", err)
			}
			fmt.Println("✓ Evidence directory created at ~/.ronda/evidence")

			fmt.Println()
			fmt.Println("Next steps:")
			fmt.Println("  ronda visit nearby")
			fmt.Println("  ronda visit checkin <installation-id> --guards 2")

			return nil
		},
	}

	cmd.Flags().StringVar(&apiURL, "api-url", "", "Back-office base URL (required)")
	cmd.Flags().StringVar(&apiToken, "token", "", "API bearer token")
	cmd.Flags().StringVar(&supervisorID, "supervisor", "", "Supervisor id")
	cmd.Flags().StringVar(&deviceID, "device", "", "Device id reported on checkout")
	cmd.Flags().StringVar(&locationCmd, "location-cmd", "", "Shell command that prints a location fix")
	cmd.Flags().Float64Var(&staticLat, "lat", 0, "Pinned latitude (no location command)")
	cmd.Flags().Float64Var(&staticLng, "lng", 0, "Pinned longitude (no location command)")
	cmd.Flags().Bool("force", false, "Overwrite an existing config")

	return cmd
}
