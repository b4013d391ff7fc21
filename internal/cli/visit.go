package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/ronda/internal/ports/primary"
	"github.com/example/ronda/internal/wire"
)

var visitCmd = &cobra.Command{
	Use:   "visit",
	Short: "Run the supervision visit wizard",
	Long: `Drive a supervision visit through its five steps:

  1. check-in        geofenced arrival at the installation
  2. evaluation      guard roster scoring and installation state
  3. checklist       compliance items, documents and the logbook
  4. evidence        categorized photo captures
  5. closure         client survey and checkout

One visit is open at a time; every completed step is persisted, so the
session survives restarts (ronda visit resume).`,
}

var visitNearbyCmd = &cobra.Command{
	Use:   "nearby",
	Short: "List assigned installations, nearest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := NewContext()
		noLocation, _ := cmd.Flags().GetBool("no-location")

		sites, err := wire.VisitService().Nearby(ctx, !noLocation)
		if err != nil {
			return err
		}
		if len(sites) == 0 {
			fmt.Println("No installations assigned.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tDISTANCE\tGEOFENCE")
		fmt.Fprintln(w, "--\t----\t--------\t--------")
		for _, s := range sites {
			distance := "-"
			if s.DistanceM != nil {
				distance = fmt.Sprintf("%.0f m", *s.DistanceM)
			}
			fence := "-"
			if s.InsideGeofence != nil {
				if *s.InsideGeofence {
					fence = color.GreenString("inside")
				} else {
					fence = color.YellowString("outside")
				}
			}
			name := s.Name
			if s.Nearest {
				name += color.HiMagentaString(" ←")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.InstallationID, name, distance, fence)
		}
		w.Flush()
		return nil
	},
}

var visitCheckinCmd = &cobra.Command{
	Use:   "checkin [installation-id]",
	Short: "Check in at an installation (step 1)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := NewContext()
		guards, _ := cmd.Flags().GetInt("guards")
		override, _ := cmd.Flags().GetString("override")

		state, err := wire.VisitService().CheckIn(ctx, primary.CheckInRequest{
			InstallationID: args[0],
			GuardsFound:    guards,
			OverrideReason: override,
		})
		if err != nil {
			return err
		}

		fmt.Printf("%s Checked in at %s (visit %s)\n", color.GreenString("✓"), state.InstallationID, state.VisitID)
		if override != "" {
			fmt.Printf("  %s checked in outside the geofence: %s\n", color.YellowString("⚠"), override)
		}
		fmt.Printf("  Now on step %d: evaluation\n", state.CurrentStep)
		return nil
	},
}

var visitResumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume the open visit session",
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := wire.VisitService().Resume(NewContext())
		if err != nil {
			return err
		}
		fmt.Printf("%s Resumed visit %s at step %d (%s)\n",
			color.GreenString("✓"), state.VisitID, state.CurrentStep, stepName(state.CurrentStep))
		return nil
	},
}

var visitGotoCmd = &cobra.Command{
	Use:   "goto [step]",
	Short: "Navigate to a previously completed step",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		step, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("step must be a number between 1 and 5")
		}
		state, err := wire.VisitService().GoToStep(NewContext(), step)
		if err != nil {
			return err
		}
		fmt.Printf("%s Now on step %d: %s\n", color.GreenString("✓"), state.CurrentStep, stepName(state.CurrentStep))
		return nil
	},
}

var visitRateCmd = &cobra.Command{
	Use:   "rate [roster-index]",
	Short: "Score one guard on the roster (step 2)",
	Long: `Score one roster member on the three 1-5 axes. Indexes come from
ronda visit status. Omitted axes keep their previous value.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("roster index must be a number")
		}

		req := primary.RateGuardRequest{Index: index}
		req.Observation, _ = cmd.Flags().GetString("obs")
		if cmd.Flags().Changed("presentation") {
			v, _ := cmd.Flags().GetInt("presentation")
			req.Presentation = &v
		}
		if cmd.Flags().Changed("order") {
			v, _ := cmd.Flags().GetInt("order")
			req.Order = &v
		}
		if cmd.Flags().Changed("protocol") {
			v, _ := cmd.Flags().GetInt("protocol")
			req.Protocol = &v
		}

		if err := wire.VisitService().RateGuard(NewContext(), req); err != nil {
			return err
		}
		fmt.Printf("%s Guard %d rated\n", color.GreenString("✓"), index)
		return nil
	},
}

var visitStateCmd = &cobra.Command{
	Use:   "state [normal|incidencia|critico]",
	Short: "Record the observed installation state (step 2)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		comments, _ := cmd.Flags().GetString("comments")
		if err := wire.VisitService().SetInstallationState(NewContext(), args[0], comments); err != nil {
			return err
		}
		fmt.Printf("%s Installation state: %s\n", color.GreenString("✓"), args[0])
		return nil
	},
}

var visitBookCmd = &cobra.Command{
	Use:   "book",
	Short: "Record the logbook review (step 3)",
	Long: `Answer the logbook question. --behind requires --notes explaining
what is missing; an optional --photo attaches a capture of the book.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := primary.LogbookRequest{}
		upToDate, _ := cmd.Flags().GetBool("up-to-date")
		behind, _ := cmd.Flags().GetBool("behind")
		if upToDate && behind {
			return fmt.Errorf("--up-to-date and --behind are mutually exclusive")
		}
		if upToDate || behind {
			v := upToDate
			req.UpToDate = &v
		}
		req.LastEntryDate, _ = cmd.Flags().GetString("last-entry")
		req.Notes, _ = cmd.Flags().GetString("notes")
		req.PhotoPath, _ = cmd.Flags().GetString("photo")

		if err := wire.VisitService().SetLogbook(NewContext(), req); err != nil {
			return err
		}
		fmt.Printf("%s Logbook recorded\n", color.GreenString("✓"))
		return nil
	},
}

var visitCheckCmd = &cobra.Command{
	Use:   "check [item-id]",
	Short: "Mark a checklist item (step 3)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		uncheck, _ := cmd.Flags().GetBool("uncheck")
		if err := wire.VisitService().MarkChecklistItem(NewContext(), args[0], !uncheck); err != nil {
			return err
		}
		mark := "compliant"
		if uncheck {
			mark = "non-compliant"
		}
		fmt.Printf("%s %s: %s\n", color.GreenString("✓"), args[0], mark)
		return nil
	},
}

var visitDocCmd = &cobra.Command{
	Use:   "doc [document-code]",
	Short: "Answer a document review (step 3)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		present, _ := cmd.Flags().GetBool("present")
		missing, _ := cmd.Flags().GetBool("missing")
		clear, _ := cmd.Flags().GetBool("clear")

		var answer *bool
		switch {
		case clear:
			answer = nil
		case present && !missing:
			v := true
			answer = &v
		case missing && !present:
			v := false
			answer = &v
		default:
			return fmt.Errorf("pass exactly one of --present, --missing or --clear")
		}

		if err := wire.VisitService().AnswerDocument(NewContext(), args[0], answer); err != nil {
			return err
		}
		fmt.Printf("%s Document %s recorded\n", color.GreenString("✓"), args[0])
		return nil
	},
}

var visitPhotoCmd = &cobra.Command{
	Use:   "photo",
	Short: "Manage evidence photos (step 4)",
}

var visitPhotoAddCmd = &cobra.Command{
	Use:   "add [path]",
	Short: "Compress and queue a captured photo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		categoryID, _ := cmd.Flags().GetString("category")
		categoryName, _ := cmd.Flags().GetString("category-name")

		info, err := wire.VisitService().AddPhoto(NewContext(), primary.AddPhotoRequest{
			Path:         args[0],
			CategoryID:   categoryID,
			CategoryName: categoryName,
		})
		if err != nil {
			return err
		}
		fmt.Printf("%s Photo queued as %s (%s)\n", color.GreenString("✓"), info.LocalID, info.CategoryName)
		return nil
	},
}

var visitPhotoRemoveCmd = &cobra.Command{
	Use:   "remove [local-id]",
	Short: "Drop a not-yet-uploaded photo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := wire.VisitService().RemovePhoto(NewContext(), args[0]); err != nil {
			return err
		}
		fmt.Printf("%s Photo %s removed\n", color.GreenString("✓"), args[0])
		return nil
	},
}

var visitPhotoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued and uploaded photos",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := wire.VisitService().Status(NewContext())
		if err != nil {
			return err
		}
		if len(status.Photos) == 0 {
			fmt.Println("No photos captured yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "LOCAL ID\tCATEGORY\tSTATE")
		fmt.Fprintln(w, "--------\t--------\t-----")
		for _, p := range status.Photos {
			state := color.YellowString("queued")
			if p.Uploaded {
				state = color.GreenString("uploaded")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", p.LocalID, p.CategoryName, state)
		}
		w.Flush()
		return nil
	},
}

var visitNextCmd = &cobra.Command{
	Use:   "next",
	Short: "Complete the current step and advance",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := NewContext()
		current, err := wire.VisitService().Resume(ctx)
		if err != nil {
			return err
		}

		var state *primary.SessionState
		switch current.CurrentStep {
		case 2:
			state, err = wire.VisitService().AdvanceEvaluation(ctx)
		case 3:
			state, err = wire.VisitService().AdvanceChecklist(ctx)
		case 4:
			state, err = wire.VisitService().AdvanceEvidence(ctx)
		case 5:
			return fmt.Errorf("step 5 closes with: ronda visit checkout")
		default:
			return fmt.Errorf("nothing to advance from step %d", current.CurrentStep)
		}
		if err != nil {
			return err
		}
		fmt.Printf("%s Step %d complete - now on step %d: %s\n",
			color.GreenString("✓"), current.CurrentStep, state.CurrentStep, stepName(state.CurrentStep))
		return nil
	},
}

var visitSurveyCmd = &cobra.Command{
	Use:   "survey",
	Short: "Record the closing client survey (step 5)",
	Long: `Record the client contact and the four 1-5 sub-scores:
security, punctuality, communication, overall. Unanswered sub-scores
are written as "-" (e.g. --scores 4,5,-,3).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := primary.SurveyRequest{}
		req.Contacted, _ = cmd.Flags().GetBool("contacted")
		req.ContactName, _ = cmd.Flags().GetString("contact")
		req.Comment, _ = cmd.Flags().GetString("comment")
		req.ValidationPath, _ = cmd.Flags().GetString("validation")

		if scores, _ := cmd.Flags().GetString("scores"); scores != "" {
			parsed, err := parseSubScores(scores)
			if err != nil {
				return err
			}
			req.SubScores = parsed
		}

		if err := wire.VisitService().SetSurvey(NewContext(), req); err != nil {
			return err
		}
		fmt.Printf("%s Survey recorded\n", color.GreenString("✓"))
		return nil
	},
}

var visitCheckoutCmd = &cobra.Command{
	Use:   "checkout",
	Short: "Close the visit (step 5)",
	RunE: func(cmd *cobra.Command, args []string) error {
		comments, _ := cmd.Flags().GetString("comments")
		state, err := wire.VisitService().Checkout(NewContext(), primary.CheckoutRequest{
			GeneralComments: comments,
		})
		if err != nil {
			return err
		}
		fmt.Printf("%s Visit %s closed\n", color.GreenString("✓"), state.VisitID)
		return nil
	},
}

var visitStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the open session's progress and summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := wire.VisitService().Status(NewContext())
		if err != nil {
			return err
		}
		printStatus(status)
		return nil
	},
}

func printStatus(status *primary.SessionStatus) {
	fmt.Printf("Visit %s at %s (%s)\n", status.State.VisitID, status.State.InstallationID, status.State.Status)
	fmt.Printf("Duration: %s\n\n", status.Duration.Round(time.Second))

	for _, row := range status.Progress {
		marker := "  "
		label := row.Name
		switch row.State {
		case "completed":
			marker = color.GreenString("✓ ")
		case "current":
			marker = color.HiMagentaString("→ ")
			label = color.HiMagentaString(row.Name)
		case "locked":
			label = color.New(color.Faint).Sprint(row.Name)
		}
		fmt.Printf("  %s%d. %s\n", marker, row.Step, label)
	}
	fmt.Println()

	if len(status.Guards) > 0 {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "#\tGUARD\tPRES\tORD\tPROT\tAVG")
		for _, g := range status.Guards {
			name := g.Name
			if g.Reinforcement {
				name += " (reinforcement)"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
				g.Index, name, scoreCell(g.Presentation), scoreCell(g.Order), scoreCell(g.Protocol), avgCell(g.Average))
		}
		w.Flush()
		fmt.Println()
	}

	fmt.Printf("Guards: %d expected, %d found\n", status.GuardsExpected, status.GuardsFound)
	fmt.Printf("Checklist: %d/%d checked\n", status.ChecklistChecked, status.ChecklistTotal)
	if status.ComplianceRatio != nil {
		fmt.Printf("Compliance: %.0f%%\n", *status.ComplianceRatio*100)
	}
	fmt.Printf("Photos: %d captured, %d pending upload\n", len(status.Photos), status.PendingUploads)
	if status.FindingsOpened > 0 {
		fmt.Printf("Findings opened this visit: %d\n", status.FindingsOpened)
	}
	if status.ClientSatisfaction != nil {
		fmt.Printf("Client satisfaction: %.2f\n", *status.ClientSatisfaction)
	}

	if status.Anomalies.StaffingMismatch {
		fmt.Printf("%s staffing differs from the expected roster\n", color.YellowString("⚠"))
	}
	if status.Anomalies.LowGuardRating {
		fmt.Printf("%s average guard rating below 3\n", color.YellowString("⚠"))
	}
	if status.Anomalies.LowCompliance {
		fmt.Printf("%s checklist compliance below 80%%\n", color.YellowString("⚠"))
	}
}

func scoreCell(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func avgCell(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *v)
}

func stepName(step int) string {
	switch step {
	case 1:
		return "check-in"
	case 2:
		return "evaluation"
	case 3:
		return "checklist"
	case 4:
		return "evidence"
	case 5:
		return "closure"
	}
	return "unknown"
}

// parseSubScores parses "4,5,-,3" into the four survey sub-scores.
func parseSubScores(s string) ([4]*int, error) {
	var out [4]*int
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return out, fmt.Errorf("--scores needs four comma-separated values (1-5 or -), got %d", len(parts))
	}
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "-" || part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil || v < 1 || v > 5 {
			return out, fmt.Errorf("sub-score %q must be 1-5 or -", part)
		}
		out[i] = &v
	}
	return out, nil
}

func init() {
	visitNearbyCmd.Flags().Bool("no-location", false, "Skip the location fix; list without distances")

	visitCheckinCmd.Flags().IntP("guards", "g", 0, "Number of guards found on site")
	visitCheckinCmd.Flags().StringP("override", "o", "", "Reason for checking in outside the geofence")

	visitRateCmd.Flags().Int("presentation", 0, "Presentation score (1-5)")
	visitRateCmd.Flags().Int("order", 0, "Order score (1-5)")
	visitRateCmd.Flags().Int("protocol", 0, "Protocol score (1-5)")
	visitRateCmd.Flags().String("obs", "", "Free-text observation")

	visitStateCmd.Flags().StringP("comments", "c", "", "General comments")

	visitBookCmd.Flags().Bool("up-to-date", false, "The logbook is up to date")
	visitBookCmd.Flags().Bool("behind", false, "The logbook is behind")
	visitBookCmd.Flags().String("last-entry", "", "Date of the last logbook entry")
	visitBookCmd.Flags().String("notes", "", "Notes (required when behind)")
	visitBookCmd.Flags().String("photo", "", "Path to a logbook photo")

	visitCheckCmd.Flags().Bool("uncheck", false, "Mark the item non-compliant")

	visitDocCmd.Flags().Bool("present", false, "The document is present")
	visitDocCmd.Flags().Bool("missing", false, "The document is missing")
	visitDocCmd.Flags().Bool("clear", false, "Reset the answer to unanswered")

	visitPhotoAddCmd.Flags().StringP("category", "c", "", "Photo category id")
	visitPhotoAddCmd.Flags().String("category-name", "", "Ad hoc category name")
	visitPhotoCmd.AddCommand(visitPhotoAddCmd)
	visitPhotoCmd.AddCommand(visitPhotoRemoveCmd)
	visitPhotoCmd.AddCommand(visitPhotoListCmd)

	visitSurveyCmd.Flags().Bool("contacted", false, "A client representative was contacted")
	visitSurveyCmd.Flags().String("contact", "", "Contact name")
	visitSurveyCmd.Flags().String("scores", "", "Four sub-scores, e.g. 4,5,-,3")
	visitSurveyCmd.Flags().String("comment", "", "Client comment")
	visitSurveyCmd.Flags().String("validation", "", "Path to a validation image")

	visitCheckoutCmd.Flags().StringP("comments", "c", "", "Final general comments")

	visitCmd.AddCommand(visitNearbyCmd)
	visitCmd.AddCommand(visitCheckinCmd)
	visitCmd.AddCommand(visitResumeCmd)
	visitCmd.AddCommand(visitGotoCmd)
	visitCmd.AddCommand(visitRateCmd)
	visitCmd.AddCommand(visitStateCmd)
	visitCmd.AddCommand(visitBookCmd)
	visitCmd.AddCommand(visitCheckCmd)
	visitCmd.AddCommand(visitDocCmd)
	visitCmd.AddCommand(visitPhotoCmd)
	visitCmd.AddCommand(visitNextCmd)
	visitCmd.AddCommand(visitSurveyCmd)
	visitCmd.AddCommand(visitCheckoutCmd)
	visitCmd.AddCommand(visitStatusCmd)
}

// VisitCmd returns the visit command
func VisitCmd() *cobra.Command {
	return visitCmd
}
