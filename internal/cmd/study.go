package cmd

import (
	"github.com/spf13/cobra"

	"github.com/maykaila/memora/internal/session"
	"github.com/maykaila/memora/internal/tui"
)

var studyCmd = &cobra.Command{
	Use:   "study <deck-id>",
	Short: "Study a deck with flip cards",
	Long: `Open a deck in the terminal and flip through its cards.

Keys: space flips, n/p move, k marks a card as known, x shuffles, esc quits.`,
	Args: cobra.ExactArgs(1),
	RunE: signedIn(runStudy),
}

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Open the full-screen terminal app",
	Long: `Open the interactive app on the dashboard for your role. Students see their
streak, decks, folders and classes; teachers see their classes and decks.
Lists refresh in the background while open.`,
	Args: cobra.NoArgs,
	RunE: withApp(runUI),
}

// runProgram starts the terminal UI. Tests replace it.
var runProgram = tui.Run

func init() {
	rootCmd.AddCommand(studyCmd)
	rootCmd.AddCommand(uiCmd)
}

func runStudy(cmd *cobra.Command, args []string, a *app) error {
	snap, err := a.awaitSession(cmd.Context())
	if err != nil {
		return err
	}
	if snap.Status != session.StatusResolved {
		// Let the study screen show the failure with its retry prompt.
		snap.Role = session.RoleStudent
	}
	return runProgram(cmd.Context(), a.tuiDeps(), tui.Options{StudyDeck: args[0], Role: snap.Role})
}

func runUI(cmd *cobra.Command, args []string, a *app) error {
	if err := a.startSession(cmd.Context()); err != nil {
		return err
	}
	return runProgram(cmd.Context(), a.tuiDeps(), tui.Options{})
}
