package api

import (
	"context"
	"net/http"
)

// CreateUserRequest registers the backend profile for a new identity.
type CreateUserRequest struct {
	UID      string `json:"uid"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// UpdateProfileRequest changes profile fields of the signed-in user. Empty fields are left alone.
type UpdateProfileRequest struct {
	Username       string `json:"username,omitempty"`
	Bio            string `json:"bio,omitempty"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

// GetUser fetches a user profile, including its role.
func (c *Client) GetUser(ctx context.Context, uid string) (*User, error) {
	user, err := call[User](ctx, c, http.MethodGet, "/users/{uid}", []string{uid}, nil)
	if err != nil {
		return nil, err
	}
	if user.UID == "" {
		user.UID = uid
	}
	return &user, nil
}

// CreateUser creates the backend profile after identity sign-up.
func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest) error {
	return c.exec(ctx, http.MethodPost, "/users/create", nil, req)
}

// UpdateProfile updates the signed-in user's profile.
func (c *Client) UpdateProfile(ctx context.Context, req UpdateProfileRequest) error {
	return c.exec(ctx, http.MethodPut, "/users/update-profile", nil, req)
}

// DeleteUser deletes the account's backend data.
func (c *Client) DeleteUser(ctx context.Context, uid string) error {
	return c.exec(ctx, http.MethodDelete, "/users/{uid}", []string{uid}, nil)
}
