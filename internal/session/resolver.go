package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/singleflight"

	"github.com/maykaila/memora/internal/api"
	"github.com/maykaila/memora/internal/errors"
	"github.com/maykaila/memora/internal/identity"
	"github.com/maykaila/memora/internal/log"
	"github.com/maykaila/memora/internal/metrics"
)

// Status is where the resolver is for the current principal.
type Status int

const (
	StatusUnknown Status = iota
	StatusSignedOut
	StatusResolving
	StatusResolved
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSignedOut:
		return "signed_out"
	case StatusResolving:
		return "resolving"
	case StatusResolved:
		return "resolved"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further change is pending without a new event.
func (s Status) Terminal() bool {
	return s == StatusSignedOut || s == StatusResolved || s == StatusFailed
}

// Snapshot is the published session. Role is empty unless Status is StatusResolved.
type Snapshot struct {
	Status     Status
	UID        string
	Email      string
	Token      string
	Role       Role
	Err        error
	Generation uint64
}

// SignedIn reports whether a principal is present.
func (s Snapshot) SignedIn() bool {
	return s.Status == StatusResolving || s.Status == StatusResolved || s.Status == StatusFailed
}

// PrincipalSource is the part of identity.Provider the resolver needs.
type PrincipalSource interface {
	OnPrincipalChanged(fn func(*identity.Principal)) (unsubscribe func())
}

// Config configures a Resolver.
type Config struct {
	Source PrincipalSource
	Lookup RoleLookup

	// RetryMax bounds role lookup attempts, RetryInitial and RetryMaxInterval shape the backoff.
	RetryMax         int
	RetryInitial     time.Duration
	RetryMaxInterval time.Duration

	Logger  *log.Logger
	Metrics *metrics.Metrics
}

// Resolver turns principal changes into role-resolved sessions.
// Each principal event supersedes the previous one; a lookup result is only
// published if its generation is still current and the uid still matches.
type Resolver struct {
	source  PrincipalSource
	lookup  RoleLookup
	cfg     Config
	logger  *log.Logger
	metrics *metrics.Metrics
	group   singleflight.Group

	// deliver serialises state changes with their notifications.
	deliver sync.Mutex

	mu           sync.Mutex
	snap         Snapshot
	principal    *identity.Principal
	generation   uint64
	subs         map[int]func(Snapshot)
	nextSub      int
	ctx          context.Context
	cancel       context.CancelFunc
	cancelLookup context.CancelFunc
	unsubscribe  func()
	wg           sync.WaitGroup
}

// NewResolver creates a resolver. Nothing happens until Start.
func NewResolver(cfg Config) *Resolver {
	if cfg.RetryMax < 1 {
		cfg.RetryMax = 4
	}
	if cfg.RetryInitial <= 0 {
		cfg.RetryInitial = 250 * time.Millisecond
	}
	if cfg.RetryMaxInterval < cfg.RetryInitial {
		cfg.RetryMaxInterval = 5 * time.Second
	}
	return &Resolver{
		source:  cfg.Source,
		lookup:  cfg.Lookup,
		cfg:     cfg,
		logger:  log.OrDefault(cfg.Logger).With("component", "session"),
		metrics: cfg.Metrics,
		subs:    make(map[int]func(Snapshot)),
	}
}

// Start subscribes to the principal source. The source fires immediately, so
// the first snapshot is published before Start returns.
func (r *Resolver) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.unsubscribe != nil {
		r.mu.Unlock()
		return fmt.Errorf("session resolver already started")
	}
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.unsubscribe = func() {}
	r.mu.Unlock()

	unsubscribe := r.source.OnPrincipalChanged(r.onPrincipal)

	r.mu.Lock()
	r.unsubscribe = unsubscribe
	r.mu.Unlock()
	return nil
}

// Stop unsubscribes and waits for in-flight lookups to finish. Their results are dropped.
func (r *Resolver) Stop() {
	r.mu.Lock()
	unsubscribe, cancel := r.unsubscribe, r.cancel
	r.unsubscribe, r.cancel = nil, nil
	r.generation++
	r.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

// Snapshot returns the current session.
func (r *Resolver) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap
}

// Subscribe registers fn and calls it immediately with the current snapshot.
// Notifications are serial and in order. fn must not call back into the resolver.
func (r *Resolver) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	r.deliver.Lock()
	defer r.deliver.Unlock()

	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	snap := r.snap
	r.mu.Unlock()

	fn(snap)

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
		})
	}
}

// Retry re-runs the role lookup for the current principal. It is a no-op when
// signed out or stopped.
func (r *Resolver) Retry() {
	r.mu.Lock()
	p, running := r.principal, r.ctx != nil && r.cancel != nil
	r.mu.Unlock()
	if p == nil || !running {
		return
	}
	r.logger.Debug("retrying role lookup", "uid", p.UID)
	r.begin(p)
}

func (r *Resolver) onPrincipal(p *identity.Principal) {
	if p == nil {
		r.update(func() (Snapshot, bool) {
			r.generation++
			r.principal = nil
			r.abortLookupLocked()
			return Snapshot{Status: StatusSignedOut, Generation: r.generation}, true
		})
		return
	}
	r.begin(p)
}

// begin supersedes any pending lookup and starts one for p.
func (r *Resolver) begin(p *identity.Principal) {
	r.update(func() (Snapshot, bool) {
		if r.ctx == nil || r.cancel == nil {
			return Snapshot{}, false
		}
		r.generation++
		r.principal = p
		r.abortLookupLocked()

		gen := r.generation
		base := r.ctx
		ctx, cancel := context.WithCancel(base)
		r.cancelLookup = cancel

		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			defer cancel()
			r.resolve(base, ctx, gen, p)
		}()

		return Snapshot{Status: StatusResolving, UID: p.UID, Email: p.Email, Generation: gen}, true
	})
}

func (r *Resolver) abortLookupLocked() {
	if r.cancelLookup != nil {
		r.cancelLookup()
		r.cancelLookup = nil
	}
}

type lookupResult struct {
	role  Role
	token string
}

// resolve waits for the role of p. The lookup itself runs on the resolver's
// lifetime context so a superseded waiter does not cancel work another
// waiter for the same uid has joined.
func (r *Resolver) resolve(base, ctx context.Context, gen uint64, p *identity.Principal) {
	ch := r.group.DoChan(p.UID, func() (any, error) {
		return r.lookupWithRetry(base, p)
	})

	var res lookupResult
	var err error
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case out := <-ch:
		err = out.Err
		if err == nil {
			res = out.Val.(lookupResult)
		}
	}

	r.update(func() (Snapshot, bool) {
		if gen != r.generation || r.principal == nil || r.principal.UID != p.UID {
			r.metrics.RoleLookup("stale")
			r.logger.Debug("dropping stale role lookup", "uid", p.UID, "generation", gen)
			return Snapshot{}, false
		}
		if err != nil {
			r.metrics.RoleLookup("failed")
			r.logger.WithError(err).Warn("role lookup failed", "uid", p.UID)
			return Snapshot{
				Status:     StatusFailed,
				UID:        p.UID,
				Email:      p.Email,
				Err:        errors.NewRoleUnresolvedError(err),
				Generation: gen,
			}, true
		}
		r.metrics.RoleLookup("resolved")
		r.logger.Debug("role resolved", "uid", p.UID, "role", res.role)
		return Snapshot{
			Status:     StatusResolved,
			UID:        p.UID,
			Email:      p.Email,
			Token:      res.token,
			Role:       res.role,
			Generation: gen,
		}, true
	})
}

func (r *Resolver) lookupWithRetry(ctx context.Context, p *identity.Principal) (lookupResult, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.RetryInitial
	b.MaxInterval = r.cfg.RetryMaxInterval

	op := func() (lookupResult, error) {
		token, err := p.BearerToken(ctx, false)
		if err != nil {
			var idErr *identity.Error
			if stderrors.As(err, &idErr) {
				return lookupResult{}, backoff.Permanent(identity.Coded(err))
			}
			return lookupResult{}, err
		}
		role, err := r.lookup.LookupRole(ctx, p.UID, token)
		if err != nil {
			if !api.IsRetryable(err) {
				return lookupResult{}, backoff.Permanent(err)
			}
			return lookupResult{}, err
		}
		return lookupResult{role: role, token: token}, nil
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(r.cfg.RetryMax)),
		backoff.WithNotify(func(err error, next time.Duration) {
			r.logger.Debug("role lookup attempt failed", "uid", p.UID, "retry_in", next, "error", err)
		}),
	)
}

// update applies fn under the state lock and, if it reports a change,
// publishes the new snapshot to subscribers in order.
func (r *Resolver) update(fn func() (Snapshot, bool)) {
	r.deliver.Lock()
	defer r.deliver.Unlock()

	r.mu.Lock()
	snap, changed := fn()
	if !changed {
		r.mu.Unlock()
		return
	}
	r.snap = snap
	subs := make([]func(Snapshot), 0, len(r.subs))
	for id := 0; id < r.nextSub; id++ {
		if fn, ok := r.subs[id]; ok {
			subs = append(subs, fn)
		}
	}
	r.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}
