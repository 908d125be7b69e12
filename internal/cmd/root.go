package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "memora",
	Short: "Flashcards for students and teachers",
	Long: `memora is the terminal client for the Memora flashcard service.

Students build decks of term/definition cards, sort them into folders, join
classes and study. Teachers run classes, assign decks and track students.
Every command acts as the signed-in account; run 'memora auth login' first.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx, which commands use for
// cancellation on interrupt.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default is $HOME/.memora/config.yaml)")
	flags.String("api-url", "", "backend base URL (overrides api.base_url)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: text or json")
	flags.String("log-file", "", "log file, '-' for stderr (default is $HOME/.memora/memora.log)")
	flags.String("metrics-file", "", "write Prometheus metrics to this file on exit")
	flags.BoolP("yes", "y", false, "skip confirmation prompts")
	flags.StringP("format", "o", "text", "output format: text, json or yaml")
}
