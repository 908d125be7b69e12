package cmd

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maykaila/memora/internal/errors"
)

type memStore struct {
	uploads map[string]string
	closed  bool
}

func (s *memStore) Upload(_ context.Context, path string, r io.Reader, contentType string) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	s.uploads[path] = contentType
	return "https://cdn.example.com/" + path, nil
}

func (s *memStore) Delete(_ context.Context, path string) error {
	delete(s.uploads, path)
	return nil
}

func (s *memStore) Close() error {
	s.closed = true
	return nil
}

func useStore(t *testing.T) *memStore {
	store := &memStore{uploads: map[string]string{}}
	prev := uploaderFactory
	uploaderFactory = func(context.Context, *app) (pictureStore, error) { return store, nil }
	t.Cleanup(func() { uploaderFactory = prev })
	return store
}

func TestProfileShow(t *testing.T) {
	h := newHarness(t)
	h.signIn("STUDENT")

	out, err := h.run("profile", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "ada <ada@example.com>")
	assert.Contains(t, out, "Streak:  3 days")

	out, err = h.run("profile", "show", "-o", "json")
	require.NoError(t, err)
	var user map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &user))
	assert.Equal(t, "u1", user["uid"])
}

func TestProfileUpdate(t *testing.T) {
	h := newHarness(t)
	h.signIn("STUDENT")

	_, err := h.run("profile", "update")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to update")
	assert.False(t, h.backend.sent("PUT /users/update-profile"))

	out, err := h.run("profile", "update", "--bio", "Learning Japanese")
	require.NoError(t, err)
	assert.Contains(t, out, "Profile updated.")
	h.backend.with(func() {
		assert.Equal(t, "Learning Japanese", h.backend.profile.Bio)
		assert.Empty(t, h.backend.profile.Username)
	})
}

func TestProfileAvatar(t *testing.T) {
	h := newHarness(t)
	h.signIn("STUDENT")
	store := useStore(t)

	file := filepath.Join(t.TempDir(), "me.png")
	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
	require.NoError(t, os.WriteFile(file, png, 0o600))

	out, err := h.run("profile", "avatar", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Profile picture updated.")
	assert.True(t, store.closed)

	require.Len(t, store.uploads, 1)
	for path, contentType := range store.uploads {
		assert.True(t, strings.HasPrefix(path, "profilePictures/u1/"), path)
		assert.Equal(t, "image/png", contentType)
	}
	h.backend.with(func() {
		assert.True(t, strings.HasPrefix(h.backend.profile.ProfilePicture, "https://cdn.example.com/profilePictures/u1/"))
	})
}

func TestProfileAvatar_NotAnImage(t *testing.T) {
	h := newHarness(t)
	h.signIn("STUDENT")
	store := useStore(t)

	file := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(file, []byte("just some text"), 0o600))

	_, err := h.run("profile", "avatar", file)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeStorageUpload))
	assert.Empty(t, store.uploads)
	assert.False(t, h.backend.sent("PUT /users/update-profile"))
}

func TestProfileAvatar_StorageNotConfigured(t *testing.T) {
	h := newHarness(t)
	h.signIn("STUDENT")

	_, err := h.run("profile", "avatar", "me.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage is not configured")
}

func TestProfileDelete(t *testing.T) {
	h := newHarness(t)
	h.signIn("STUDENT")

	_, err := h.run("profile", "delete")
	require.Error(t, err, "deleting an account needs confirmation")
	assert.False(t, h.backend.sent("DELETE /users/u1"))

	out, err := h.run("profile", "delete", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted account data of ada@example.com and signed out.")
	assert.True(t, h.backend.sent("DELETE /users/u1"))
	assert.Equal(t, 1, h.auth.signOuts)
	assert.Nil(t, h.auth.Current())
}
