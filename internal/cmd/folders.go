package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/maykaila/memora/internal/api"
)

var foldersCmd = &cobra.Command{
	Use:     "folders",
	Aliases: []string{"folder"},
	Short:   "Organise decks into folders",
	Long: `List, create, edit and delete folders, and add decks to them.

Examples:
  memora folders create --name "Semester 1"
  memora folders add-deck <folder-id> <deck-id>
  memora folders decks <folder-id>`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var foldersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your folders",
	Args:  cobra.NoArgs,
	RunE:  signedIn(runFoldersList),
}

var foldersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a folder",
	Args:  cobra.NoArgs,
	RunE:  signedIn(runFoldersCreate),
}

var foldersUpdateCmd = &cobra.Command{
	Use:   "update <folder-id>",
	Short: "Rename a folder or change its description",
	Args:  cobra.ExactArgs(1),
	RunE:  signedIn(runFoldersUpdate),
}

var foldersDeleteCmd = &cobra.Command{
	Use:   "delete <folder-id>",
	Short: "Delete a folder (its decks are kept)",
	Args:  cobra.ExactArgs(1),
	RunE:  signedIn(runFoldersDelete),
}

var foldersDecksCmd = &cobra.Command{
	Use:   "decks <folder-id>",
	Short: "List the decks in a folder",
	Args:  cobra.ExactArgs(1),
	RunE:  signedIn(runFoldersDecks),
}

var foldersAddDeckCmd = &cobra.Command{
	Use:   "add-deck <folder-id> <deck-id>",
	Short: "Add a deck to a folder",
	Args:  cobra.ExactArgs(2),
	RunE:  signedIn(runFoldersAddDeck),
}

var folderListing = listing[api.Folder]{
	resource: "folder",
	headers:  []string{"ID", "NAME", "DECKS"},
	row: func(f api.Folder) []string {
		return []string{f.ID, f.Name, strconv.Itoa(len(f.DeckIDs))}
	},
	empty: "No folders yet. Create one with 'memora folders create --name <name>'.",
}

func init() {
	foldersListCmd.Flags().Bool("watch", false, "keep refreshing the list")
	foldersListCmd.Flags().Duration("interval", 0, "refresh interval for --watch (default poll.interval)")

	for _, c := range []*cobra.Command{foldersCreateCmd, foldersUpdateCmd} {
		c.Flags().String("name", "", "Folder name")
		c.Flags().String("description", "", "Folder description")
	}
	_ = foldersCreateCmd.MarkFlagRequired("name")

	foldersCmd.AddCommand(foldersListCmd)
	foldersCmd.AddCommand(foldersCreateCmd)
	foldersCmd.AddCommand(foldersUpdateCmd)
	foldersCmd.AddCommand(foldersDeleteCmd)
	foldersCmd.AddCommand(foldersDecksCmd)
	foldersCmd.AddCommand(foldersAddDeckCmd)

	rootCmd.AddCommand(foldersCmd)
}

func runFoldersList(cmd *cobra.Command, args []string, a *app) error {
	watch, _ := cmd.Flags().GetBool("watch")
	interval, _ := cmd.Flags().GetDuration("interval")
	return folderListing.show(cmd.Context(), a, a.api.ListFolders, watch, interval)
}

func runFoldersCreate(cmd *cobra.Command, args []string, a *app) error {
	req := api.FolderRequest{}
	req.Name, _ = cmd.Flags().GetString("name")
	req.Description, _ = cmd.Flags().GetString("description")

	folder, err := a.api.CreateFolder(cmd.Context(), req)
	if err != nil {
		return api.Coded(err)
	}
	return a.out.value(folder, func(w io.Writer) {
		fmt.Fprintf(w, "Created folder %q (%s)\n", folder.Name, folder.ID)
	})
}

func runFoldersUpdate(cmd *cobra.Command, args []string, a *app) error {
	ctx := cmd.Context()
	folder, err := a.api.GetFolder(ctx, args[0])
	if err != nil {
		return api.Coded(err)
	}

	req := api.FolderRequest{Name: folder.Name, Description: folder.Description}
	if cmd.Flags().Changed("name") {
		req.Name, _ = cmd.Flags().GetString("name")
	}
	if cmd.Flags().Changed("description") {
		req.Description, _ = cmd.Flags().GetString("description")
	}
	if err := a.api.UpdateFolder(ctx, folder.ID, req); err != nil {
		return api.Coded(err)
	}
	return a.out.message(fmt.Sprintf("Updated folder %s.", folder.ID), map[string]any{"id": folder.ID})
}

func runFoldersDelete(cmd *cobra.Command, args []string, a *app) error {
	return deleteFrom[api.Folder](cmd.Context(), a, "folder", a.api.ListFolders, args[0], a.api.DeleteFolder)
}

func runFoldersDecks(cmd *cobra.Command, args []string, a *app) error {
	folderID := args[0]
	return deckListing.show(cmd.Context(), a, func(ctx context.Context) ([]api.Deck, error) {
		return a.api.ListFolderDecks(ctx, folderID)
	}, false, 0)
}

func runFoldersAddDeck(cmd *cobra.Command, args []string, a *app) error {
	if err := a.api.AddDeckToFolder(cmd.Context(), args[0], args[1]); err != nil {
		return api.Coded(err)
	}
	return a.out.message(
		fmt.Sprintf("Added deck %s to folder %s.", args[1], args[0]),
		map[string]any{"folder": args[0], "deck": args[1]},
	)
}
