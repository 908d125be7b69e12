// Package listsync keeps a client-side list in step with the backend:
// optimistic deletes with exact rollback, visual reordering and polling refresh.
package listsync

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"
	"sync"

	"github.com/maykaila/memora/internal/errors"
	"github.com/maykaila/memora/internal/log"
	"github.com/maykaila/memora/internal/metrics"
)

// ErrIndexOutOfRange is returned by Move for indices outside the list.
var ErrIndexOutOfRange = stderrors.New("index out of range")

// ErrClosed is returned when mutating a list whose screen has been torn down.
var ErrClosed = stderrors.New("list closed")

// KeyFunc returns the identity of an item.
type KeyFunc[T any] func(T) string

// DeleteFunc deletes key on the backend.
type DeleteFunc func(ctx context.Context, key string) error

// RollbackError reports a delete the backend rejected. The list is back to
// what it was before the delete.
type RollbackError struct {
	Resource string
	Key      string
	Cause    error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("failed to delete %s %s: %v", e.Resource, e.Key, e.Cause)
}

func (e *RollbackError) Unwrap() error { return e.Cause }

// Coded returns the user-facing coded form.
func (e *RollbackError) Coded() *errors.MemoraError {
	return errors.NewRollbackError(e.Resource, e.Cause)
}

// Options configures a ManagedList.
type Options struct {
	// Resource names the items in messages, e.g. "deck".
	Resource string
	Logger   *log.Logger
	Metrics  *metrics.Metrics
}

// ManagedList is an ordered client copy of a backend collection.
type ManagedList[T any] struct {
	key      KeyFunc[T]
	resource string
	logger   *log.Logger
	metrics  *metrics.Metrics

	deliver sync.Mutex

	mu      sync.Mutex
	items   []T
	closed  bool
	pending map[string]struct{}
	// tombstones maps a deleted key to the fetch sequence current when the
	// delete committed. Fetches begun at or before it cannot re-add the key.
	tombstones map[string]uint64
	fetchSeq   uint64
	// inflight holds fetches begun but neither applied nor discarded.
	inflight map[uint64]struct{}
	subs     map[int]func([]T)
	nextSub  int
}

// New creates a list holding a copy of items.
func New[T any](key KeyFunc[T], items []T, opts Options) *ManagedList[T] {
	if opts.Resource == "" {
		opts.Resource = "item"
	}
	return &ManagedList[T]{
		key:        key,
		resource:   opts.Resource,
		logger:     log.OrDefault(opts.Logger).With("component", "listsync", "resource", opts.Resource),
		metrics:    opts.Metrics,
		items:      slices.Clone(items),
		pending:    make(map[string]struct{}),
		tombstones: make(map[string]uint64),
		inflight:   make(map[uint64]struct{}),
		subs:       make(map[int]func([]T)),
	}
}

// Items returns a copy of the visible list.
func (l *ManagedList[T]) Items() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.items)
}

// Len returns the number of visible items.
func (l *ManagedList[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Subscribe calls fn with the current items and after every visible change.
// fn must not mutate the list.
func (l *ManagedList[T]) Subscribe(fn func([]T)) (unsubscribe func()) {
	l.deliver.Lock()
	defer l.deliver.Unlock()

	l.mu.Lock()
	id := l.nextSub
	l.nextSub++
	l.subs[id] = fn
	items := slices.Clone(l.items)
	l.mu.Unlock()

	fn(items)
	return func() {
		l.mu.Lock()
		delete(l.subs, id)
		l.mu.Unlock()
	}
}

// Close marks the list torn down. Results of pending operations are ignored
// and no further notifications are sent.
func (l *ManagedList[T]) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.subs = make(map[int]func([]T))
}

// Closed reports whether Close was called.
func (l *ManagedList[T]) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// mutate runs fn under the lock and publishes the result if fn reports a change.
func (l *ManagedList[T]) mutate(fn func() bool) {
	l.deliver.Lock()
	defer l.deliver.Unlock()

	l.mu.Lock()
	if l.closed || !fn() {
		l.mu.Unlock()
		return
	}
	items := slices.Clone(l.items)
	subs := make([]func([]T), 0, len(l.subs))
	for id := 0; id < l.nextSub; id++ {
		if fn, ok := l.subs[id]; ok {
			subs = append(subs, fn)
		}
	}
	l.mu.Unlock()

	for _, fn := range subs {
		fn(items)
	}
}

func (l *ManagedList[T]) indexOf(key string) int {
	return slices.IndexFunc(l.items, func(it T) bool { return l.key(it) == key })
}

// PendingDelete is an optimistic removal awaiting the backend.
type PendingDelete[T any] struct {
	list     *ManagedList[T]
	key      string
	snapshot []T
}

// Key is the item being deleted.
func (p *PendingDelete[T]) Key() string { return p.key }

// BeginDelete removes key from the visible list immediately. It returns
// false when key is absent or already being deleted, which makes a second
// delete of the same item a no-op.
func (l *ManagedList[T]) BeginDelete(key string) (*PendingDelete[T], bool) {
	var pd *PendingDelete[T]
	l.mutate(func() bool {
		if _, busy := l.pending[key]; busy {
			return false
		}
		i := l.indexOf(key)
		if i < 0 {
			return false
		}
		pd = &PendingDelete[T]{list: l, key: key, snapshot: slices.Clone(l.items)}
		l.pending[key] = struct{}{}
		l.items = slices.Delete(slices.Clone(l.items), i, i+1)
		return true
	})
	if pd == nil {
		l.metrics.ListMutation("delete", "noop")
		return nil, false
	}
	return pd, true
}

// Commit calls del and reconciles. On failure the list is restored to the
// snapshot taken by BeginDelete and a *RollbackError is returned. If the list
// was closed meanwhile the outcome is returned but the list is left alone.
func (p *PendingDelete[T]) Commit(ctx context.Context, del DeleteFunc) error {
	l := p.list
	err := del(ctx, p.key)

	var rollback *RollbackError
	l.mutate(func() bool {
		delete(l.pending, p.key)
		if err == nil {
			l.tombstones[p.key] = l.fetchSeq
			return false
		}
		l.items = l.restore(p.snapshot)
		return true
	})

	if l.Closed() {
		l.logger.Debug("ignoring delete result for closed list", "key", p.key)
		if err != nil {
			return &RollbackError{Resource: l.resource, Key: p.key, Cause: err}
		}
		return nil
	}

	if err == nil {
		l.metrics.ListMutation("delete", "committed")
		return nil
	}
	rollback = &RollbackError{Resource: l.resource, Key: p.key, Cause: err}
	l.metrics.ListMutation("delete", "rolled_back")
	l.logger.WithError(err).Warn("delete failed, rolled back", "key", p.key)
	return rollback
}

// restore returns snapshot minus keys that another delete has since committed
// or is still deleting. With a single delete in flight this is the snapshot itself.
func (l *ManagedList[T]) restore(snapshot []T) []T {
	out := make([]T, 0, len(snapshot))
	for _, it := range snapshot {
		k := l.key(it)
		if _, gone := l.tombstones[k]; gone {
			continue
		}
		if _, busy := l.pending[k]; busy {
			continue
		}
		out = append(out, it)
	}
	return out
}

// Delete is BeginDelete followed by Commit. deleted is false for a no-op.
func (l *ManagedList[T]) Delete(ctx context.Context, key string, del DeleteFunc) (deleted bool, err error) {
	if l.Closed() {
		return false, ErrClosed
	}
	pd, ok := l.BeginDelete(key)
	if !ok {
		return false, nil
	}
	if err := pd.Commit(ctx, del); err != nil {
		return false, err
	}
	return true, nil
}

// Move removes the item at from and inserts it at to. Order is visual only.
func (l *ManagedList[T]) Move(from, to int) error {
	var err error
	l.mutate(func() bool {
		n := len(l.items)
		if from < 0 || from >= n || to < 0 || to >= n {
			err = fmt.Errorf("move %d -> %d in list of %d: %w", from, to, n, ErrIndexOutOfRange)
			return false
		}
		if from == to {
			return false
		}
		l.items = move(l.items, from, to)
		return true
	})
	if err == nil && l.Closed() {
		return ErrClosed
	}
	if err == nil {
		l.metrics.ListMutation("move", "applied")
	}
	return err
}

func move[T any](items []T, from, to int) []T {
	out := slices.Clone(items)
	it := out[from]
	out = slices.Delete(out, from, from+1)
	return slices.Insert(out, to, it)
}

// Fetch is a refresh started at a point in time.
type Fetch[T any] struct {
	list *ManagedList[T]
	seq  uint64
}

// BeginFetch must be called before the network request so that deletes
// committed while it is in flight are respected.
func (l *ManagedList[T]) BeginFetch() *Fetch[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fetchSeq++
	l.inflight[l.fetchSeq] = struct{}{}
	return &Fetch[T]{list: l, seq: l.fetchSeq}
}

// Discard ends a fetch that produced no items, e.g. because the request
// failed. Applying or discarding a fetch twice is harmless.
func (f *Fetch[T]) Discard() {
	l := f.list
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inflight, f.seq)
	l.pruneTombstones()
}

// pruneTombstones drops tombstones no in-flight fetch or pending rollback
// can still resurrect. Callers hold l.mu.
func (l *ManagedList[T]) pruneTombstones() {
	if len(l.pending) > 0 {
		return
	}
	oldest := uint64(0)
	for seq := range l.inflight {
		if oldest == 0 || seq < oldest {
			oldest = seq
		}
	}
	for k, committedAt := range l.tombstones {
		if oldest == 0 || oldest > committedAt {
			delete(l.tombstones, k)
		}
	}
}

// Apply replaces the visible list with the fetched items, last write wins.
// Items being deleted, or deleted before this fetch began, are left out.
// It reports false if the list was closed.
func (f *Fetch[T]) Apply(items []T) bool {
	l := f.list
	applied := false
	l.mutate(func() bool {
		applied = true
		delete(l.inflight, f.seq)
		next := make([]T, 0, len(items))
		for _, it := range items {
			k := l.key(it)
			if _, busy := l.pending[k]; busy {
				continue
			}
			if committedAt, gone := l.tombstones[k]; gone && f.seq <= committedAt {
				continue
			}
			next = append(next, it)
		}
		l.pruneTombstones()
		l.items = next
		return true
	})
	return applied
}
