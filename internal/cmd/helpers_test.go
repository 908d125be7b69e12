package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/oauth2"

	"github.com/maykaila/memora/internal/api"
	"github.com/maykaila/memora/internal/config"
	"github.com/maykaila/memora/internal/identity"
	"github.com/maykaila/memora/internal/log"
)

// fakeAuth is an identity provider that signs in without a network.
type fakeAuth struct {
	identity.Hub

	mu       sync.Mutex
	uid      string
	err      error
	signIns  []string
	signUps  []string
	resets   []string
	signOuts int
}

func principal(uid, email string) *identity.Principal {
	return identity.NewPrincipal(uid, email, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "token-" + uid}))
}

func (f *fakeAuth) SignIn(_ context.Context, email, _ string) (*identity.Principal, error) {
	f.mu.Lock()
	f.signIns = append(f.signIns, email)
	err, uid := f.err, f.uid
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	p := principal(uid, email)
	f.Publish(p)
	return p, nil
}

func (f *fakeAuth) SignUp(_ context.Context, email, _ string) (*identity.Principal, error) {
	f.mu.Lock()
	f.signUps = append(f.signUps, email)
	err, uid := f.err, f.uid
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	p := principal(uid, email)
	f.Publish(p)
	return p, nil
}

func (f *fakeAuth) SendPasswordReset(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, email)
	return f.err
}

func (f *fakeAuth) SignOut(context.Context) error {
	f.mu.Lock()
	f.signOuts++
	f.mu.Unlock()
	f.Publish(nil)
	return nil
}

// backend is an in-memory Memora API.
type backend struct {
	mu         sync.Mutex
	users      map[string]api.User
	decks      []api.Deck
	cards      map[string][]api.Card
	folders    []api.Folder
	classes    []api.Class
	students   []api.Student
	deleteCode int
	requests   []string
	profile    api.UpdateProfileRequest
	created    []api.CreateUserRequest
	joined     []string
	assigned   []string
}

func newBackend() *backend {
	return &backend{
		users: map[string]api.User{},
		cards: map[string][]api.Card{},
	}
}

func (b *backend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/{uid}", func(w http.ResponseWriter, r *http.Request) {
		u, ok := b.users[r.PathValue("uid")]
		if !ok {
			writeStatus(w, http.StatusNotFound, "user not found")
			return
		}
		writeJSON(w, u)
	})
	mux.HandleFunc("POST /users/create", func(w http.ResponseWriter, r *http.Request) {
		var req api.CreateUserRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.created = append(b.created, req)
		b.users[req.UID] = api.User{UID: req.UID, Email: req.Email, Username: req.Username, Role: req.Role}
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("PUT /users/update-profile", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&b.profile)
	})
	mux.HandleFunc("DELETE /users/{uid}", func(w http.ResponseWriter, r *http.Request) {
		delete(b.users, r.PathValue("uid"))
	})

	mux.HandleFunc("GET /flashcardsets", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, b.decks)
	})
	mux.HandleFunc("POST /flashcardsets", func(w http.ResponseWriter, r *http.Request) {
		var req api.DeckRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		d := api.Deck{ID: "new-deck", Title: req.Title, Description: req.Description, IsPublic: req.IsPublic}
		b.decks = append(b.decks, d)
		writeJSON(w, d)
	})
	mux.HandleFunc("GET /flashcardsets/{id}", func(w http.ResponseWriter, r *http.Request) {
		for _, d := range b.decks {
			if d.ID == r.PathValue("id") {
				writeJSON(w, d)
				return
			}
		}
		writeStatus(w, http.StatusNotFound, "deck not found")
	})
	mux.HandleFunc("PUT /flashcardsets/{id}", func(w http.ResponseWriter, r *http.Request) {
		var req api.DeckRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		for i, d := range b.decks {
			if d.ID == r.PathValue("id") {
				b.decks[i].Title, b.decks[i].Description, b.decks[i].IsPublic = req.Title, req.Description, req.IsPublic
			}
		}
	})
	mux.HandleFunc("DELETE /flashcardsets/{id}", func(w http.ResponseWriter, r *http.Request) {
		if b.deleteCode != 0 {
			writeStatus(w, b.deleteCode, "delete rejected")
			return
		}
		b.decks = slices.DeleteFunc(b.decks, func(d api.Deck) bool { return d.ID == r.PathValue("id") })
	})
	mux.HandleFunc("GET /flashcardsets/{id}/cards", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, b.cards[r.PathValue("id")])
	})
	mux.HandleFunc("POST /flashcardsets/{id}/cards", func(w http.ResponseWriter, r *http.Request) {
		var req api.CardRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		c := api.Card{ID: "new-card", Term: req.Term, Definition: req.Definition}
		b.cards[r.PathValue("id")] = append(b.cards[r.PathValue("id")], c)
		writeJSON(w, c)
	})
	mux.HandleFunc("DELETE /flashcardsets/{id}/cards/{cardId}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		b.cards[id] = slices.DeleteFunc(b.cards[id], func(c api.Card) bool { return c.ID == r.PathValue("cardId") })
	})

	mux.HandleFunc("GET /folders", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, b.folders)
	})
	mux.HandleFunc("DELETE /folders/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.folders = slices.DeleteFunc(b.folders, func(f api.Folder) bool { return f.ID == r.PathValue("id") })
	})
	mux.HandleFunc("POST /folders/{id}/add-set/{deckId}", func(w http.ResponseWriter, r *http.Request) {
		for i, f := range b.folders {
			if f.ID == r.PathValue("id") {
				b.folders[i].DeckIDs = append(b.folders[i].DeckIDs, r.PathValue("deckId"))
			}
		}
	})

	mux.HandleFunc("GET /classes", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, b.classes)
	})
	mux.HandleFunc("POST /classes", func(w http.ResponseWriter, r *http.Request) {
		var req api.ClassRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		c := api.Class{ID: "new-class", Name: req.Name, Code: "JOIN42"}
		b.classes = append(b.classes, c)
		writeJSON(w, c)
	})
	mux.HandleFunc("POST /classes/join/{code}", func(w http.ResponseWriter, r *http.Request) {
		b.joined = append(b.joined, r.PathValue("code"))
	})
	mux.HandleFunc("POST /classes/{id}/assign/{deckId}", func(w http.ResponseWriter, r *http.Request) {
		b.assigned = append(b.assigned, r.PathValue("id")+"/"+r.PathValue("deckId"))
	})
	mux.HandleFunc("GET /classes/{id}/students", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, b.students)
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.requests = append(b.requests, r.Method+" "+r.URL.Path)
		mux.ServeHTTP(w, r)
	})
}

// with runs fn while no request is being served.
func (b *backend) with(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn()
}

func (b *backend) sent(req string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Contains(b.requests, req)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeStatus(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(api.ErrorResponse{Message: msg})
}

// harness runs commands against a fake backend and identity provider.
type harness struct {
	t       *testing.T
	backend *backend
	auth    *fakeAuth
	cfg     *config.Config
	out     *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	b := newBackend()
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)

	h := &harness{
		t:       t,
		backend: b,
		auth:    &fakeAuth{uid: "u1"},
		out:     &bytes.Buffer{},
		cfg: &config.Config{
			Home: t.TempDir(),
			API:  config.APIConfig{BaseURL: srv.URL, Timeout: 5 * time.Second},
			Session: config.SessionConfig{
				RoleRetryMax:         2,
				RoleRetryInitial:     time.Millisecond,
				RoleRetryMaxInterval: 2 * time.Millisecond,
			},
			Poll: config.PollConfig{Interval: 20 * time.Millisecond},
		},
	}

	prevFactory, prevShould, prevConfirm := appFactory, shouldPrompt, confirm
	appFactory = func(cmd *cobra.Command) (*app, error) {
		cc, err := NewCommandContext(cmd)
		if err != nil {
			return nil, err
		}
		return assemble(cmd, cc, h.cfg, h.auth, log.Discard()), nil
	}
	shouldPrompt = func() bool { return false }
	t.Cleanup(func() {
		appFactory, shouldPrompt, confirm = prevFactory, prevShould, prevConfirm
	})
	return h
}

// signIn publishes a principal whose backend profile has role.
func (h *harness) signIn(role string) {
	h.backend.with(func() {
		h.backend.users["u1"] = api.User{UID: "u1", Email: "ada@example.com", Username: "ada", Role: role, Streak: 3}
	})
	h.auth.Publish(principal("u1", "ada@example.com"))
}

func (h *harness) run(args ...string) (string, error) {
	return h.runContext(context.Background(), args...)
}

func (h *harness) runContext(ctx context.Context, args ...string) (string, error) {
	h.t.Helper()
	resetCommands(rootCmd, ctx)
	h.out.Reset()
	rootCmd.SetOut(h.out)
	rootCmd.SetErr(h.out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	return h.out.String(), err
}

// resetCommands undoes flag values and contexts left over from an earlier
// run of the shared command tree.
func resetCommands(cmd *cobra.Command, ctx context.Context) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	cmd.SetContext(ctx)
	for _, c := range cmd.Commands() {
		resetCommands(c, ctx)
	}
}

func findCommand(t *testing.T, parent *cobra.Command, name string) *cobra.Command {
	t.Helper()
	for _, c := range parent.Commands() {
		if c.Name() == name {
			return c
		}
	}
	t.Fatalf("subcommand %q not found in %s", name, parent.Name())
	return nil
}

func lines(s string) []string {
	return strings.Split(strings.TrimSpace(s), "\n")
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	return string(data), err
}
