package cmd

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/maykaila/memora/internal/api"
	"github.com/maykaila/memora/internal/errors"
)

func seedDecks(h *harness) {
	h.backend.with(func() {
		h.backend.decks = []api.Deck{
			{ID: "d1", Title: "Spanish verbs", IsPublic: true, CardCount: 12},
			{ID: "d2", Title: "Kanji N5", CardCount: 80},
		}
		h.backend.cards["d1"] = []api.Card{
			{ID: "c1", Term: "hablar", Definition: "to speak"},
			{ID: "c2", Term: "comer", Definition: "to eat"},
		}
	})
}

func TestDecksList(t *testing.T) {
	h := newHarness(t)
	h.signIn("STUDENT")
	seedDecks(h)

	out, err := h.run("decks", "list")
	require.NoError(t, err)

	rows := lines(out)
	require.Len(t, rows, 3)
	assert.Contains(t, rows[0], "TITLE")
	assert.Contains(t, rows[1], "Spanish verbs")
	assert.Contains(t, rows[1], "public")
	assert.Contains(t, rows[2], "Kanji N5")
	assert.Contains(t, rows[2], "private")
}

func TestDecksList_Structured(t *testing.T) {
	h := newHarness(t)
	h.signIn("STUDENT")
	seedDecks(h)

	out, err := h.run("decks", "list", "--format", "json")
	require.NoError(t, err)
	var decks []api.Deck
	require.NoError(t, json.Unmarshal([]byte(out), &decks))
	require.Len(t, decks, 2)
	assert.Equal(t, "d1", decks[0].ID)

	out, err = h.run("decks", "list", "-o", "yaml")
	require.NoError(t, err)
	var raw []map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &raw))
	require.Len(t, raw, 2)
	assert.Equal(t, "Kanji N5", raw[1]["title"])
}

func TestDecksList_Empty(t *testing.T) {
	h := newHarness(t)
	h.signIn("STUDENT")

	out, err := h.run("decks", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No decks yet")

	out, err = h.run("decks", "list", "--format", "json")
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(out))
}

func TestDecksList_NotSignedIn(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("decks", "list")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeAuthNotSignedIn))
	assert.False(t, h.backend.sent("GET /flashcardsets"))
}

func TestDecksShow(t *testing.T) {
	h := newHarness(t)
	h.signIn("STUDENT")
	seedDecks(h)

	out, err := h.run("decks", "show", "d1")
	require.NoError(t, err)
	assert.Contains(t, out, "Spanish verbs (public)")
	assert.Contains(t, out, "2 cards")
	assert.Contains(t, out, "hablar: to speak")

	out, err = h.run("decks", "show", "d1", "--format", "json")
	require.NoError(t, err)
	var detail map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &detail))
	assert.Equal(t, "d1", detail["setId"])
	assert.Len(t, detail["cards"], 2)
}

func TestDecksShow_NotFound(t *testing.T) {
	h := newHarness(t)
	h.signIn("STUDENT")

	_, err := h.run("decks", "show", "missing")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeAPINotFound))
}

func TestDecksCreateAndUpdate(t *testing.T) {
	h := newHarness(t)
	h.signIn("STUDENT")

	out, err := h.run("decks", "create", "--title", "Biology", "--public")
	require.NoError(t, err)
	assert.Contains(t, out, `Created deck "Biology" (new-deck)`)

	_, err = h.run("decks", "update", "new-deck", "--description", "cells")
	require.NoError(t, err)

	h.backend.with(func() {
		require.Len(t, h.backend.decks, 1)
		d := h.backend.decks[0]
		assert.Equal(t, "Biology", d.Title, "unchanged fields are kept")
		assert.Equal(t, "cells", d.Description)
		assert.True(t, d.IsPublic)
	})
}

func TestDecksCreate_RequiresTitle(t *testing.T) {
	h := newHarness(t)
	h.signIn("STUDENT")

	_, err := h.run("decks", "create")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestDecksCards(t *testing.T) {
	h := newHarness(t)
	h.signIn("STUDENT")
	seedDecks(h)

	out, err := h.run("decks", "add-card", "d1", "--term", "vivir", "--definition", "to live")
	require.NoError(t, err)
	assert.Contains(t, out, "Added card new-card to deck d1")

	out, err = h.run("decks", "cards", "d1")
	require.NoError(t, err)
	assert.Len(t, lines(out), 4)
	assert.Contains(t, out, "vivir")
}

func TestDecksDelete(t *testing.T) {
	h := newHarness(t)
	h.signIn("STUDENT")
	seedDecks(h)

	out, err := h.run("decks", "delete", "d1", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted deck d1 (1 left)")
	assert.True(t, h.backend.sent("DELETE /flashcardsets/d1"))
	h.backend.with(func() {
		require.Len(t, h.backend.decks, 1)
		assert.Equal(t, "d2", h.backend.decks[0].ID)
	})
}

func TestDecksDelete_RequiresConfirmation(t *testing.T) {
	h := newHarness(t)
	h.signIn("STUDENT")
	seedDecks(h)

	_, err := h.run("decks", "delete", "d1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
	assert.False(t, h.backend.sent("DELETE /flashcardsets/d1"))
}

func TestDecksDelete_Prompt(t *testing.T) {
	h := newHarness(t)
	h.signIn("STUDENT")
	seedDecks(h)

	answer := false
	var asked string
	shouldPrompt = func() bool { return true }
	confirm = func(msg string, def bool) (bool, error) {
		asked = msg
		assert.False(t, def, "deletes default to no")
		return answer, nil
	}

	out, err := h.run("decks", "delete", "d1")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled.")
	assert.Contains(t, asked, "delete deck d1")
	assert.False(t, h.backend.sent("DELETE /flashcardsets/d1"))

	answer = true
	out, err = h.run("decks", "delete", "d1")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted deck d1")
}

func TestDecksDelete_Rollback(t *testing.T) {
	h := newHarness(t)
	h.signIn("STUDENT")
	seedDecks(h)
	h.backend.with(func() { h.backend.deleteCode = http.StatusInternalServerError })

	_, err := h.run("decks", "delete", "d1", "--yes")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeAPIRollback))
	assert.Contains(t, err.Error(), "delete rejected")
	h.backend.with(func() {
		assert.Len(t, h.backend.decks, 2)
	})
}

func TestDecksDelete_Unknown(t *testing.T) {
	h := newHarness(t)
	h.signIn("STUDENT")
	seedDecks(h)

	out, err := h.run("decks", "delete", "nope", "--yes", "--format", "json")
	require.NoError(t, err)

	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, false, res["deleted"])
	assert.False(t, h.backend.sent("DELETE /flashcardsets/nope"))
}

func TestDecksDeleteCard(t *testing.T) {
	h := newHarness(t)
	h.signIn("STUDENT")
	seedDecks(h)

	out, err := h.run("decks", "delete-card", "d1", "c2", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted card c2 (1 left)")
	assert.True(t, h.backend.sent("DELETE /flashcardsets/d1/cards/c2"))
}

func TestDecksList_Watch(t *testing.T) {
	h := newHarness(t)
	h.signIn("STUDENT")
	seedDecks(h)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(60 * time.Millisecond)
		h.backend.with(func() {
			h.backend.decks = append(h.backend.decks, api.Deck{ID: "d3", Title: "Chemistry"})
		})
		time.Sleep(120 * time.Millisecond)
		cancel()
	}()

	out, err := h.runContext(ctx, "decks", "list", "--watch", "--interval", "10ms")
	require.NoError(t, err, "interrupting a watch is not an error")

	assert.Equal(t, 2, strings.Count(out, "TITLE"), "printed once initially and once after the change")
	assert.Contains(t, out, "(2 decks)")
	assert.Contains(t, out, "(3 decks)")
	assert.Contains(t, out, "Chemistry")
}

func TestMetricsFile(t *testing.T) {
	h := newHarness(t)
	h.signIn("STUDENT")
	seedDecks(h)
	path := t.TempDir() + "/metrics.prom"

	_, err := h.run("decks", "delete", "d2", "--yes", "--metrics-file", path)
	require.NoError(t, err)

	data, err := readFile(path)
	require.NoError(t, err)
	assert.Contains(t, data, `memora_api_requests_total{endpoint="/flashcardsets/{id}",method="DELETE",status="200"} 1`)
	assert.Contains(t, data, `memora_list_mutations_total{op="delete",result="committed"} 1`)
}
