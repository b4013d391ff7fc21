package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/ronda/internal/cli"
	"github.com/example/ronda/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "ronda",
		Short:   "ronda - supervision visit client for field operators",
		Version: version.String(),
		Long: `ronda is the field client for supervision visits: a five-step wizard
(check-in, guard evaluation, compliance checklist, photo evidence,
closure) backed by the back-office API, with a local draft so an
interrupted visit resumes where it left off.`,
	}

	// Add subcommands
	rootCmd.AddCommand(cli.InitCmd())
	rootCmd.AddCommand(cli.DoctorCmd())
	rootCmd.AddCommand(cli.VisitCmd())
	rootCmd.AddCommand(cli.FindingCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
