package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maykaila/memora/internal/errors"
	"github.com/maykaila/memora/internal/session"
	"github.com/maykaila/memora/internal/tui"
)

type programCall struct {
	deps tui.Deps
	opts tui.Options
}

func captureProgram(t *testing.T) *[]programCall {
	var calls []programCall
	prev := runProgram
	runProgram = func(_ context.Context, deps tui.Deps, opts tui.Options) error {
		calls = append(calls, programCall{deps, opts})
		return nil
	}
	t.Cleanup(func() { runProgram = prev })
	return &calls
}

func TestStudy(t *testing.T) {
	h := newHarness(t)
	h.signIn("TEACHER")
	calls := captureProgram(t)

	_, err := h.run("study", "d1")
	require.NoError(t, err)
	require.Len(t, *calls, 1)

	call := (*calls)[0]
	assert.Equal(t, tui.Options{StudyDeck: "d1", Role: session.RoleTeacher}, call.opts)
	assert.Same(t, h.auth, call.deps.Auth)
	assert.Equal(t, h.cfg.Poll.Interval, call.deps.PollInterval)
}

func TestStudy_RoleLookupFailed(t *testing.T) {
	h := newHarness(t)
	h.auth.Publish(principal("u1", "ada@example.com"))
	calls := captureProgram(t)

	_, err := h.run("study", "d1")
	require.NoError(t, err)
	require.Len(t, *calls, 1)
	assert.Equal(t, session.RoleStudent, (*calls)[0].opts.Role)
}

func TestStudy_NotSignedIn(t *testing.T) {
	h := newHarness(t)
	calls := captureProgram(t)

	_, err := h.run("study", "d1")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeAuthNotSignedIn))
	assert.Empty(t, *calls)
}

func TestUI(t *testing.T) {
	h := newHarness(t)
	calls := captureProgram(t)

	_, err := h.run("ui")
	require.NoError(t, err, "the app opens on the sign-in screen when signed out")
	require.Len(t, *calls, 1)
	assert.Equal(t, tui.Options{}, (*calls)[0].opts)
	assert.NotNil(t, (*calls)[0].deps.Session)
}
