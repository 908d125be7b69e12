// Package identity talks to the identity provider that owns email/password
// sign-in, token issuance and the signed-in principal.
package identity

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/oauth2"
)

// Provider is the identity provider surface the rest of the client depends on.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*Principal, error)
	SignUp(ctx context.Context, email, password string) (*Principal, error)
	SendPasswordReset(ctx context.Context, email string) error
	SignOut(ctx context.Context) error
	Current() *Principal
	OnPrincipalChanged(fn func(*Principal)) (unsubscribe func())
}

// Principal is a signed-in identity. Its bearer token is short-lived and
// refreshed on demand.
type Principal struct {
	UID   string
	Email string

	mu     sync.Mutex
	base   oauth2.TokenSource
	cached oauth2.TokenSource
}

// NewPrincipal wraps src in a caching token source.
func NewPrincipal(uid, email string, src oauth2.TokenSource) *Principal {
	return newPrincipal(uid, email, nil, src)
}

func newPrincipal(uid, email string, current *oauth2.Token, src oauth2.TokenSource) *Principal {
	return &Principal{
		UID:    uid,
		Email:  email,
		base:   src,
		cached: oauth2.ReuseTokenSource(current, src),
	}
}

// BearerToken returns a valid ID token, refreshing over the network when the
// cached one has expired or forceRefresh is set.
func (p *Principal) BearerToken(ctx context.Context, forceRefresh bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p.mu.Lock()
	if forceRefresh {
		p.cached = oauth2.ReuseTokenSource(nil, p.base)
	}
	src := p.cached
	p.mu.Unlock()

	type result struct {
		tok *oauth2.Token
		err error
	}
	ch := make(chan result, 1)
	go func() {
		tok, err := src.Token()
		ch <- result{tok, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return "", r.err
		}
		if r.tok.AccessToken == "" {
			return "", fmt.Errorf("identity provider returned an empty token")
		}
		return r.tok.AccessToken, nil
	}
}

// Hub fans principal changes out to subscribers. Deliveries are serial and in
// publish order; a new subscriber first receives the current principal.
// Callbacks must not subscribe or publish on the same Hub.
type Hub struct {
	deliver sync.Mutex

	mu      sync.Mutex
	current *Principal
	nextID  int
	subs    map[int]func(*Principal)
}

// Current returns the last published principal, nil when signed out.
func (h *Hub) Current() *Principal {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// OnPrincipalChanged registers fn and invokes it immediately with the current principal.
func (h *Hub) OnPrincipalChanged(fn func(*Principal)) func() {
	h.deliver.Lock()
	defer h.deliver.Unlock()

	h.mu.Lock()
	if h.subs == nil {
		h.subs = make(map[int]func(*Principal))
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	cur := h.current
	h.mu.Unlock()

	fn(cur)

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Publish replaces the current principal and notifies subscribers.
func (h *Hub) Publish(p *Principal) {
	h.deliver.Lock()
	defer h.deliver.Unlock()

	h.mu.Lock()
	h.current = p
	ids := make([]int, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(*Principal), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, h.subs[id])
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(p)
	}
}
