package api

import (
	"context"
	"net/http"
)

// FolderRequest creates or updates a folder.
type FolderRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ListFolders returns the signed-in user's folders.
func (c *Client) ListFolders(ctx context.Context) ([]Folder, error) {
	return callList[Folder](ctx, c, "/folders")
}

// GetFolder returns a single folder.
func (c *Client) GetFolder(ctx context.Context, id string) (*Folder, error) {
	folder, err := call[Folder](ctx, c, http.MethodGet, "/folders/{id}", []string{id}, nil)
	if err != nil {
		return nil, err
	}
	return &folder, nil
}

// CreateFolder creates a folder.
func (c *Client) CreateFolder(ctx context.Context, req FolderRequest) (*Folder, error) {
	folder, err := call[Folder](ctx, c, http.MethodPost, "/folders", nil, req)
	if err != nil {
		return nil, err
	}
	if folder.Name == "" {
		folder.Name = req.Name
	}
	return &folder, nil
}

// UpdateFolder renames or re-describes a folder.
func (c *Client) UpdateFolder(ctx context.Context, id string, req FolderRequest) error {
	return c.exec(ctx, http.MethodPut, "/folders/{id}", []string{id}, req)
}

// DeleteFolder deletes a folder. Its decks are kept.
func (c *Client) DeleteFolder(ctx context.Context, id string) error {
	return c.exec(ctx, http.MethodDelete, "/folders/{id}", []string{id}, nil)
}

// ListFolderDecks returns the decks filed in a folder.
func (c *Client) ListFolderDecks(ctx context.Context, id string) ([]Deck, error) {
	return callList[Deck](ctx, c, "/folders/{id}/decks", id)
}

// AddDeckToFolder files a deck into a folder.
func (c *Client) AddDeckToFolder(ctx context.Context, folderID, deckID string) error {
	return c.exec(ctx, http.MethodPost, "/folders/{id}/add-set/{deckId}", []string{folderID, deckID}, nil)
}
