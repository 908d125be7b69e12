package api

import (
	"context"
	"net/http"
)

// ClassRequest creates or updates a class.
type ClassRequest struct {
	Name        string `json:"className"`
	Description string `json:"description,omitempty"`
}

// ListClasses returns classes taught (teacher) or joined (student).
func (c *Client) ListClasses(ctx context.Context) ([]Class, error) {
	return callList[Class](ctx, c, "/classes")
}

// GetClass returns a single class.
func (c *Client) GetClass(ctx context.Context, id string) (*Class, error) {
	class, err := call[Class](ctx, c, http.MethodGet, "/classes/{id}", []string{id}, nil)
	if err != nil {
		return nil, err
	}
	return &class, nil
}

// CreateClass creates a class; the backend assigns its join code.
func (c *Client) CreateClass(ctx context.Context, req ClassRequest) (*Class, error) {
	class, err := call[Class](ctx, c, http.MethodPost, "/classes", nil, req)
	if err != nil {
		return nil, err
	}
	if class.Name == "" {
		class.Name = req.Name
	}
	return &class, nil
}

// UpdateClass changes class metadata.
func (c *Client) UpdateClass(ctx context.Context, id string, req ClassRequest) error {
	return c.exec(ctx, http.MethodPut, "/classes/{id}", []string{id}, req)
}

// DeleteClass deletes a class.
func (c *Client) DeleteClass(ctx context.Context, id string) error {
	return c.exec(ctx, http.MethodDelete, "/classes/{id}", []string{id}, nil)
}

// JoinClass enrolls the signed-in student using a class code.
func (c *Client) JoinClass(ctx context.Context, code string) error {
	return c.exec(ctx, http.MethodPost, "/classes/join/{code}", []string{code}, nil)
}

// AssignDeck assigns a deck to a class.
func (c *Client) AssignDeck(ctx context.Context, classID, deckID string) error {
	return c.exec(ctx, http.MethodPost, "/classes/{id}/assign/{deckId}", []string{classID, deckID}, nil)
}

// ListStudents returns the members of a class.
func (c *Client) ListStudents(ctx context.Context, classID string) ([]Student, error) {
	return callList[Student](ctx, c, "/classes/{id}/students", classID)
}
