package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/maykaila/memora/internal/health"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the backend, your session and picture storage",
	Long: `Run diagnostics against everything Memora depends on.

Checks include:
  • Backend API reachability (api.base_url)
  • Identity provider configuration and whether your session still refreshes
  • Profile picture bucket and credentials

Examples:
  memora doctor
  memora doctor --format json
`,
	Args: cobra.NoArgs,
	RunE: withApp(runDoctor),
}

// doctorReport is the structured output of doctor.
type doctorReport struct {
	Status health.Status    `json:"status" yaml:"status"`
	Checks []*health.Result `json:"checks" yaml:"checks"`
}

func init() {
	doctorCmd.Flags().Duration("timeout", 5*time.Second, "Timeout for each check")
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string, a *app) error {
	timeout, _ := cmd.Flags().GetDuration("timeout")

	m := health.NewManager().WithTimeout(timeout)
	m.AddChecker(health.NewBackendChecker(a.api, a.cfg.API.BaseURL))
	m.AddChecker(health.NewIdentityChecker(a.cfg.Identity.APIKey, a.auth))
	m.AddChecker(health.NewStorageChecker(a.cfg.Storage.Bucket, a.cfg.Storage.CredentialsFile))

	results := m.Check(cmd.Context())
	report := doctorReport{Status: health.OverallStatus(results), Checks: results}
	for _, r := range results {
		a.logger.Debug("health check", "name", r.Name, "status", r.Status, "latency", r.Latency)
	}

	if err := a.out.value(report, func(w io.Writer) { printReport(w, report) }); err != nil {
		return err
	}
	if report.Status == health.StatusUnhealthy {
		return NewErrorWithSuggestions("system health check failed", nil, "Fix the checks marked ✗ above")
	}
	return nil
}

func printReport(w io.Writer, report doctorReport) {
	fmt.Fprintln(w, "System Diagnostics")
	fmt.Fprintln(w)
	for _, r := range report.Checks {
		icon := "✓"
		switch r.Status {
		case health.StatusDegraded:
			icon = "⚠"
		case health.StatusUnhealthy:
			icon = "✗"
		}
		fmt.Fprintf(w, "  %s %s: %s (%s)\n", icon, r.Name, r.Message, r.Latency.Round(time.Millisecond))
		if r.Suggestion != "" {
			fmt.Fprintf(w, "      → %s\n", r.Suggestion)
		}
	}
	fmt.Fprintln(w)
	switch report.Status {
	case health.StatusHealthy:
		fmt.Fprintln(w, "✅ Memora is ready to use")
	case health.StatusDegraded:
		fmt.Fprintln(w, "⚠️  Memora works, with the warnings above")
	default:
		fmt.Fprintln(w, "❌ Memora has problems that need attention")
	}
}
