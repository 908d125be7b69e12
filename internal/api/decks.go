package api

import (
	"context"
	"net/http"
)

// DeckRequest creates or updates a deck.
type DeckRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	IsPublic    bool   `json:"isPublic"`
}

// CardRequest creates or updates a card.
type CardRequest struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// ListDecks returns the signed-in user's decks.
func (c *Client) ListDecks(ctx context.Context) ([]Deck, error) {
	return callList[Deck](ctx, c, "/flashcardsets")
}

// GetDeck returns a single deck.
func (c *Client) GetDeck(ctx context.Context, id string) (*Deck, error) {
	deck, err := call[Deck](ctx, c, http.MethodGet, "/flashcardsets/{id}", []string{id}, nil)
	if err != nil {
		return nil, err
	}
	return &deck, nil
}

// CreateDeck creates a deck and returns it with its new ID.
func (c *Client) CreateDeck(ctx context.Context, req DeckRequest) (*Deck, error) {
	deck, err := call[Deck](ctx, c, http.MethodPost, "/flashcardsets", nil, req)
	if err != nil {
		return nil, err
	}
	if deck.Title == "" {
		deck.Title = req.Title
	}
	return &deck, nil
}

// UpdateDeck replaces a deck's metadata.
func (c *Client) UpdateDeck(ctx context.Context, id string, req DeckRequest) error {
	return c.exec(ctx, http.MethodPut, "/flashcardsets/{id}", []string{id}, req)
}

// DeleteDeck deletes a deck and its cards.
func (c *Client) DeleteDeck(ctx context.Context, id string) error {
	return c.exec(ctx, http.MethodDelete, "/flashcardsets/{id}", []string{id}, nil)
}

// ListCards returns the cards of a deck.
func (c *Client) ListCards(ctx context.Context, deckID string) ([]Card, error) {
	return callList[Card](ctx, c, "/flashcardsets/{id}/cards", deckID)
}

// AddCard appends a card to a deck.
func (c *Client) AddCard(ctx context.Context, deckID string, req CardRequest) (*Card, error) {
	card, err := call[Card](ctx, c, http.MethodPost, "/flashcardsets/{id}/cards", []string{deckID}, req)
	if err != nil {
		return nil, err
	}
	if card.Term == "" && card.Definition == "" {
		card.Term, card.Definition = req.Term, req.Definition
	}
	return &card, nil
}

// UpdateCard replaces a card's content.
func (c *Client) UpdateCard(ctx context.Context, deckID, cardID string, req CardRequest) error {
	return c.exec(ctx, http.MethodPut, "/flashcardsets/{id}/cards/{cardId}", []string{deckID, cardID}, req)
}

// DeleteCard removes a card from a deck.
func (c *Client) DeleteCard(ctx context.Context, deckID, cardID string) error {
	return c.exec(ctx, http.MethodDelete, "/flashcardsets/{id}/cards/{cardId}", []string{deckID, cardID}, nil)
}
