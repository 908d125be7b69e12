package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/maykaila/memora/internal/api"
	"github.com/maykaila/memora/internal/session"
)

func describeDeck(d api.Deck) (string, string) {
	desc := fmt.Sprintf("%d cards", d.CardCount)
	if d.IsPublic {
		desc += " · public"
	}
	if d.Description != "" {
		desc += " · " + d.Description
	}
	return d.Title, desc
}

// newLibrary lists the user's decks.
func newLibrary(e *env, role session.Role) *collection[api.Deck] {
	return newCollection(e, collectionSpec[api.Deck]{
		title:    "Library",
		resource: "deck",
		key:      api.Deck.Key,
		describe: describeDeck,
		fetch:    e.backend.ListDecks,
		remove:   e.backend.DeleteDeck,
		open: func(d api.Deck) Screen {
			return e.guarded(role, newDeck(e, role, d))
		},
		reorder: true,
		poll:    true,
		empty:   "No decks yet. Create one with 'memora decks create'.",
	})
}

// newFolders lists the user's folders.
func newFolders(e *env, role session.Role) *collection[api.Folder] {
	return newCollection(e, collectionSpec[api.Folder]{
		title:    "Folders",
		resource: "folder",
		key:      api.Folder.Key,
		describe: func(f api.Folder) (string, string) {
			desc := fmt.Sprintf("%d decks", len(f.DeckIDs))
			if f.Description != "" {
				desc += " · " + f.Description
			}
			return f.Name, desc
		},
		fetch:  e.backend.ListFolders,
		remove: e.backend.DeleteFolder,
		open: func(f api.Folder) Screen {
			return e.guarded(role, newFolderDecks(e, role, f))
		},
		reorder: true,
		poll:    true,
		empty:   "No folders yet.",
	})
}

func newFolderDecks(e *env, role session.Role, f api.Folder) *collection[api.Deck] {
	return newCollection(e, collectionSpec[api.Deck]{
		title:    "Folder: " + f.Name,
		resource: "deck",
		key:      api.Deck.Key,
		describe: describeDeck,
		fetch: func(ctx context.Context) ([]api.Deck, error) {
			return e.backend.ListFolderDecks(ctx, f.ID)
		},
		open: func(d api.Deck) Screen {
			return e.guarded(role, newDeck(e, role, d))
		},
		reorder: true,
		empty:   "This folder is empty.",
	})
}

// newDeck lists the cards of a deck. "s" starts studying them.
func newDeck(e *env, role session.Role, d api.Deck) *collection[api.Card] {
	return newCollection(e, collectionSpec[api.Card]{
		title:    "Deck: " + d.Title,
		resource: "card",
		key:      api.Card.Key,
		describe: func(c api.Card) (string, string) { return c.Term, c.Definition },
		fetch: func(ctx context.Context) ([]api.Card, error) {
			return e.backend.ListCards(ctx, d.ID)
		},
		remove: func(ctx context.Context, cardID string) error {
			return e.backend.DeleteCard(ctx, d.ID, cardID)
		},
		reorder: true,
		poll:    true,
		actions: []keyAction[api.Card]{{
			key:  "s",
			help: "study",
			run: func(c *collection[api.Card]) tea.Cmd {
				cards := c.items.Items()
				if len(cards) == 0 {
					return nil
				}
				return push(e.guarded(role, newStudy(e, d.Title, cards)))
			},
		}},
		empty: "No cards in this deck yet.",
	})
}
