package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/maykaila/memora/internal/api"
)

var decksCmd = &cobra.Command{
	Use:     "decks",
	Aliases: []string{"deck"},
	Short:   "Manage flashcard decks and their cards",
	Long: `List, create, edit and delete your flashcard decks and the cards in them.

Examples:
  memora decks list --watch
  memora decks create --title "Spanish verbs" --public
  memora decks add-card <deck-id> --term hablar --definition "to speak"
  memora decks delete <deck-id>`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var decksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your decks",
	Long: `List your decks. With --watch the list is refreshed until interrupted,
printing it again whenever it changes.`,
	Args: cobra.NoArgs,
	RunE: signedIn(runDecksList),
}

var decksShowCmd = &cobra.Command{
	Use:   "show <deck-id>",
	Short: "Show a deck and its cards",
	Args:  cobra.ExactArgs(1),
	RunE:  signedIn(runDecksShow),
}

var decksCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a deck",
	Args:  cobra.NoArgs,
	RunE:  signedIn(runDecksCreate),
}

var decksUpdateCmd = &cobra.Command{
	Use:   "update <deck-id>",
	Short: "Change a deck's title, description or visibility",
	Args:  cobra.ExactArgs(1),
	RunE:  signedIn(runDecksUpdate),
}

var decksDeleteCmd = &cobra.Command{
	Use:   "delete <deck-id>",
	Short: "Delete a deck",
	Args:  cobra.ExactArgs(1),
	RunE:  signedIn(runDecksDelete),
}

var decksCardsCmd = &cobra.Command{
	Use:   "cards <deck-id>",
	Short: "List the cards in a deck",
	Args:  cobra.ExactArgs(1),
	RunE:  signedIn(runDecksCards),
}

var decksAddCardCmd = &cobra.Command{
	Use:   "add-card <deck-id>",
	Short: "Add a card to a deck",
	Args:  cobra.ExactArgs(1),
	RunE:  signedIn(runDecksAddCard),
}

var decksDeleteCardCmd = &cobra.Command{
	Use:   "delete-card <deck-id> <card-id>",
	Short: "Delete a card from a deck",
	Args:  cobra.ExactArgs(2),
	RunE:  signedIn(runDecksDeleteCard),
}

var deckListing = listing[api.Deck]{
	resource: "deck",
	headers:  []string{"ID", "TITLE", "CARDS", "VISIBILITY"},
	row: func(d api.Deck) []string {
		return []string{d.ID, d.Title, strconv.Itoa(d.CardCount), visibility(d.IsPublic)}
	},
	empty: "No decks yet. Create one with 'memora decks create --title <title>'.",
}

var cardListing = listing[api.Card]{
	resource: "card",
	headers:  []string{"ID", "TERM", "DEFINITION"},
	row: func(c api.Card) []string {
		return []string{c.ID, c.Term, c.Definition}
	},
	empty: "This deck has no cards.",
}

func init() {
	decksListCmd.Flags().Bool("watch", false, "keep refreshing the list")
	decksListCmd.Flags().Duration("interval", 0, "refresh interval for --watch (default poll.interval)")

	for _, c := range []*cobra.Command{decksCreateCmd, decksUpdateCmd} {
		c.Flags().String("title", "", "Deck title")
		c.Flags().String("description", "", "Deck description")
		c.Flags().Bool("public", false, "Make the deck visible to everyone")
	}
	_ = decksCreateCmd.MarkFlagRequired("title")

	decksAddCardCmd.Flags().String("term", "", "Card term (required)")
	decksAddCardCmd.Flags().String("definition", "", "Card definition (required)")
	_ = decksAddCardCmd.MarkFlagRequired("term")
	_ = decksAddCardCmd.MarkFlagRequired("definition")

	decksCmd.AddCommand(decksListCmd)
	decksCmd.AddCommand(decksShowCmd)
	decksCmd.AddCommand(decksCreateCmd)
	decksCmd.AddCommand(decksUpdateCmd)
	decksCmd.AddCommand(decksDeleteCmd)
	decksCmd.AddCommand(decksCardsCmd)
	decksCmd.AddCommand(decksAddCardCmd)
	decksCmd.AddCommand(decksDeleteCardCmd)

	rootCmd.AddCommand(decksCmd)
}

func runDecksList(cmd *cobra.Command, args []string, a *app) error {
	watch, _ := cmd.Flags().GetBool("watch")
	interval, _ := cmd.Flags().GetDuration("interval")
	return deckListing.show(cmd.Context(), a, a.api.ListDecks, watch, interval)
}

// deckDetail is a deck with its cards.
type deckDetail struct {
	api.Deck `yaml:",inline"`
	Cards    []api.Card `json:"cards" yaml:"cards"`
}

func runDecksShow(cmd *cobra.Command, args []string, a *app) error {
	ctx := cmd.Context()
	deck, err := a.api.GetDeck(ctx, args[0])
	if err != nil {
		return api.Coded(err)
	}
	cards, err := a.api.ListCards(ctx, deck.ID)
	if err != nil {
		return api.Coded(err)
	}
	if cards == nil {
		cards = []api.Card{}
	}
	return a.out.value(deckDetail{Deck: *deck, Cards: cards}, func(w io.Writer) {
		fmt.Fprintf(w, "%s (%s)\n", deck.Title, visibility(deck.IsPublic))
		if deck.Description != "" {
			fmt.Fprintf(w, "%s\n", deck.Description)
		}
		fmt.Fprintf(w, "\n%d cards\n", len(cards))
		for i, c := range cards {
			fmt.Fprintf(w, "  %2d. %s: %s\n", i+1, c.Term, c.Definition)
		}
	})
}

func runDecksCreate(cmd *cobra.Command, args []string, a *app) error {
	req := api.DeckRequest{}
	req.Title, _ = cmd.Flags().GetString("title")
	req.Description, _ = cmd.Flags().GetString("description")
	req.IsPublic, _ = cmd.Flags().GetBool("public")

	deck, err := a.api.CreateDeck(cmd.Context(), req)
	if err != nil {
		return api.Coded(err)
	}
	a.logger.Info("deck created", "id", deck.ID)
	return a.out.value(deck, func(w io.Writer) {
		fmt.Fprintf(w, "Created deck %q (%s)\n", deck.Title, deck.ID)
	})
}

func runDecksUpdate(cmd *cobra.Command, args []string, a *app) error {
	ctx := cmd.Context()
	deck, err := a.api.GetDeck(ctx, args[0])
	if err != nil {
		return api.Coded(err)
	}

	req := api.DeckRequest{Title: deck.Title, Description: deck.Description, IsPublic: deck.IsPublic}
	flags := cmd.Flags()
	if flags.Changed("title") {
		req.Title, _ = flags.GetString("title")
	}
	if flags.Changed("description") {
		req.Description, _ = flags.GetString("description")
	}
	if flags.Changed("public") {
		req.IsPublic, _ = flags.GetBool("public")
	}

	if err := a.api.UpdateDeck(ctx, deck.ID, req); err != nil {
		return api.Coded(err)
	}
	return a.out.message(fmt.Sprintf("Updated deck %s.", deck.ID), map[string]any{"id": deck.ID})
}

func runDecksDelete(cmd *cobra.Command, args []string, a *app) error {
	return deleteFrom[api.Deck](cmd.Context(), a, "deck", a.api.ListDecks, args[0], a.api.DeleteDeck)
}

func runDecksCards(cmd *cobra.Command, args []string, a *app) error {
	deckID := args[0]
	return cardListing.show(cmd.Context(), a, func(ctx context.Context) ([]api.Card, error) {
		return a.api.ListCards(ctx, deckID)
	}, false, 0)
}

func runDecksAddCard(cmd *cobra.Command, args []string, a *app) error {
	req := api.CardRequest{}
	req.Term, _ = cmd.Flags().GetString("term")
	req.Definition, _ = cmd.Flags().GetString("definition")

	card, err := a.api.AddCard(cmd.Context(), args[0], req)
	if err != nil {
		return api.Coded(err)
	}
	return a.out.value(card, func(w io.Writer) {
		fmt.Fprintf(w, "Added card %s to deck %s\n", card.ID, args[0])
	})
}

func runDecksDeleteCard(cmd *cobra.Command, args []string, a *app) error {
	deckID := args[0]
	return deleteFrom[api.Card](cmd.Context(), a, "card",
		func(ctx context.Context) ([]api.Card, error) { return a.api.ListCards(ctx, deckID) },
		args[1],
		func(ctx context.Context, cardID string) error { return a.api.DeleteCard(ctx, deckID, cardID) },
	)
}
