package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/ronda/internal/ports/primary"
	"github.com/example/ronda/internal/wire"
)

var findingCmd = &cobra.Command{
	Use:   "finding",
	Short: "Record and resolve compliance findings",
	Long: `Findings are the persistent ledger behind the wizard: a finding
opened during one visit stays attached to the installation until a later
visit verifies it. Recording needs an open visit at the evaluation step
or beyond.`,
}

var findingRecordCmd = &cobra.Command{
	Use:   "record [description]",
	Short: "Record a new finding on the active visit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := primary.RecordFindingRequest{Description: args[0]}
		req.Category, _ = cmd.Flags().GetString("category")
		req.Severity, _ = cmd.Flags().GetString("severity")
		req.GuardID, _ = cmd.Flags().GetString("guard")
		req.PhotoPath, _ = cmd.Flags().GetString("photo")
		req.ChecklistItemID, _ = cmd.Flags().GetString("item")

		finding, err := wire.FindingService().RecordFinding(NewContext(), req)
		if err != nil {
			return err
		}
		fmt.Printf("%s Finding %s recorded (%s/%s)\n",
			color.GreenString("✓"), finding.ID, finding.Category, finding.Severity)
		return nil
	},
}

var findingListCmd = &cobra.Command{
	Use:   "list [installation-id]",
	Short: "List open findings at an installation",
	Long: `List the findings still awaiting verification. Without an argument
the active visit's installation is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		installationID := ""
		if len(args) == 1 {
			installationID = args[0]
		}

		findings, err := wire.FindingService().ListOpenFindings(NewContext(), installationID)
		if err != nil {
			return err
		}
		if len(findings) == 0 {
			fmt.Println("No open findings.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCATEGORY\tSEVERITY\tSTATUS\tDESCRIPTION")
		fmt.Fprintln(w, "--\t--------\t--------\t------\t-----------")
		for _, f := range findings {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				f.ID, f.Category, severityCell(f.Severity), f.Status, truncate(f.Description, 60))
		}
		w.Flush()
		return nil
	},
}

var findingResolveCmd = &cobra.Command{
	Use:   "resolve [finding-id]",
	Short: "Move a prior-visit finding forward",
	Long: `Move a finding to in_progress or verified. The active visit is
recorded as the verifying visit; a finding cannot be resolved in the
visit that opened it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		err := wire.FindingService().ResolveFinding(NewContext(), primary.ResolveFindingRequest{
			FindingID: args[0],
			Status:    status,
		})
		if err != nil {
			return err
		}
		fmt.Printf("%s Finding %s is now %s\n", color.GreenString("✓"), args[0], status)
		return nil
	},
}

func severityCell(severity string) string {
	switch severity {
	case "critical":
		return color.RedString(severity)
	case "major":
		return color.YellowString(severity)
	}
	return severity
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func init() {
	findingRecordCmd.Flags().StringP("category", "c", "", "Category: personal, infrastructure, documentation, operational")
	findingRecordCmd.Flags().StringP("severity", "s", "", "Severity: critical, major, minor")
	findingRecordCmd.Flags().String("guard", "", "Guard id the finding concerns")
	findingRecordCmd.Flags().String("photo", "", "Path to photo evidence")
	findingRecordCmd.Flags().String("item", "", "Checklist item id that prompted the finding")

	findingResolveCmd.Flags().String("status", "verified", "New status: in_progress or verified")

	findingCmd.AddCommand(findingRecordCmd)
	findingCmd.AddCommand(findingListCmd)
	findingCmd.AddCommand(findingResolveCmd)
}

// FindingCmd returns the finding command
func FindingCmd() *cobra.Command {
	return findingCmd
}
