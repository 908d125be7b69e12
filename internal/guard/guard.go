// Package guard protects role-specific screens. A Guard observes the
// published session and never triggers role lookups itself.
package guard

import (
	"context"
	"sync"

	"github.com/maykaila/memora/internal/errors"
	"github.com/maykaila/memora/internal/log"
	"github.com/maykaila/memora/internal/metrics"
	"github.com/maykaila/memora/internal/session"
)

// State of a guard.
type State int

const (
	StateUnknown State = iota
	StateLoading
	StateAuthorized
	StateRedirectedUnauthenticated
	StateRedirectedWrongRole
	// StateFailed means the role could not be resolved. It never authorizes.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthorized:
		return "authorized"
	case StateRedirectedUnauthenticated:
		return "redirected_unauthenticated"
	case StateRedirectedWrongRole:
		return "redirected_wrong_role"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Settled reports whether the guard reached a decision.
func (s State) Settled() bool {
	return s != StateUnknown && s != StateLoading
}

// Result is what a protected screen renders from.
type Result struct {
	IsLoading    bool
	IsAuthorized bool
	State        State
	// Redirect is set in the redirected states.
	Redirect Route
	Err      error
	Session  session.Snapshot
}

// Source publishes sessions. *session.Resolver implements it.
type Source interface {
	Subscribe(fn func(session.Snapshot)) (unsubscribe func())
	Retry()
}

// Option configures a Guard.
type Option func(*Guard)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(g *Guard) { g.logger = l }
}

// WithMetrics records state transitions.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Guard) { g.metrics = m }
}

// Guard gates a screen tree on requiredRole.
type Guard struct {
	required  session.Role
	source    Source
	navigator Navigator
	logger    *log.Logger
	metrics   *metrics.Metrics

	mu          sync.Mutex
	result      Result
	unsubscribe func()
	listeners   map[int]func(Result)
	nextID      int
}

// New creates an unmounted guard.
func New(required session.Role, source Source, navigator Navigator, opts ...Option) *Guard {
	g := &Guard{
		required:  required,
		source:    source,
		navigator: navigator,
		result:    Result{IsLoading: true, State: StateUnknown},
		listeners: make(map[int]func(Result)),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = log.OrDefault(g.logger).With("component", "guard", "required_role", string(required))
	return g
}

// Mount starts observing the session. Mounting an already mounted guard does nothing.
func (g *Guard) Mount() {
	g.mu.Lock()
	if g.unsubscribe != nil {
		g.mu.Unlock()
		return
	}
	g.unsubscribe = func() {}
	g.mu.Unlock()

	unsubscribe := g.source.Subscribe(g.observe)

	g.mu.Lock()
	g.unsubscribe = unsubscribe
	g.mu.Unlock()
}

// Unmount stops observing. Later session changes are ignored.
func (g *Guard) Unmount() {
	g.mu.Lock()
	unsubscribe := g.unsubscribe
	g.unsubscribe = nil
	g.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// Result returns the current decision.
func (g *Guard) Result() Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.result
}

// OnChange registers fn for every state change.
func (g *Guard) OnChange(fn func(Result)) (remove func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextID
	g.nextID++
	g.listeners[id] = fn
	return func() {
		g.mu.Lock()
		delete(g.listeners, id)
		g.mu.Unlock()
	}
}

// Retry asks the session source to repeat a failed role lookup.
func (g *Guard) Retry() {
	g.source.Retry()
}

func (g *Guard) decide(s session.Snapshot) Result {
	switch s.Status {
	case session.StatusSignedOut:
		return Result{State: StateRedirectedUnauthenticated, Redirect: RouteLogin, Session: s}
	case session.StatusResolved:
		if s.Role.Is(g.required) {
			return Result{State: StateAuthorized, IsAuthorized: true, Session: s}
		}
		return Result{State: StateRedirectedWrongRole, Redirect: LandingRoute(s.Role), Session: s}
	case session.StatusFailed:
		return Result{State: StateFailed, Err: s.Err, Session: s}
	default:
		return Result{State: StateLoading, IsLoading: true, Session: s}
	}
}

func (g *Guard) observe(s session.Snapshot) {
	next := g.decide(s)

	g.mu.Lock()
	if g.unsubscribe == nil {
		g.mu.Unlock()
		return
	}
	prev := g.result
	g.result = next
	changed := prev.State != next.State || prev.Redirect != next.Redirect
	var fns []func(Result)
	if changed {
		for id := 0; id < g.nextID; id++ {
			if fn, ok := g.listeners[id]; ok {
				fns = append(fns, fn)
			}
		}
	}
	g.mu.Unlock()

	if !changed {
		return
	}

	g.metrics.GuardDecision(next.State.String())
	switch next.State {
	case StateRedirectedUnauthenticated:
		g.logger.Info("not signed in, redirecting", "to", string(next.Redirect))
	case StateRedirectedWrongRole:
		g.logger.Info("wrong role, redirecting", "uid", s.UID, "role", string(s.Role), "to", string(next.Redirect))
	case StateFailed:
		g.logger.WithError(next.Err).Warn("role unresolved, access denied", "uid", s.UID)
	}

	if next.Redirect != "" && g.navigator != nil {
		g.navigator.Navigate(next.Redirect)
	}
	for _, fn := range fns {
		fn(next)
	}
}

// Require blocks until the session settles for role and returns it, or an
// error naming where the caller should go instead. It suits one-shot commands.
func Require(ctx context.Context, source Source, role session.Role, opts ...Option) (session.Snapshot, error) {
	wake := make(chan struct{}, 1)
	g := New(role, source, nil, opts...)
	remove := g.OnChange(func(Result) {
		select {
		case wake <- struct{}{}:
		default:
		}
	})
	defer remove()

	g.Mount()
	defer g.Unmount()

	for {
		res := g.Result()
		if res.State.Settled() {
			return res.Session, resultError(role, res)
		}
		select {
		case <-ctx.Done():
			return res.Session, ctx.Err()
		case <-wake:
		}
	}
}

func resultError(required session.Role, res Result) error {
	switch res.State {
	case StateAuthorized:
		return nil
	case StateRedirectedUnauthenticated:
		return errors.NewNotSignedInError()
	case StateRedirectedWrongRole:
		return errors.NewRoleMismatchError(string(required), string(res.Session.Role), res.Session.Role.LandingName())
	case StateFailed:
		if res.Err != nil {
			return res.Err
		}
		return errors.NewRoleUnresolvedError(nil)
	}
	return nil
}
