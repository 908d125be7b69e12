package listsync

import (
	"context"
	"time"

	"github.com/maykaila/memora/internal/log"
	"github.com/maykaila/memora/internal/metrics"
)

// DefaultPollInterval is used when an IntervalPoller has no interval set.
const DefaultPollInterval = 5 * time.Second

// Poller keeps a list refreshed until ctx is done or the list is closed.
// A push-based implementation can replace IntervalPoller without touching
// the list.
type Poller[T any] interface {
	Run(ctx context.Context, list *ManagedList[T]) error
}

// FetchFunc loads the current backend collection.
type FetchFunc[T any] func(ctx context.Context) ([]T, error)

// IntervalPoller refetches on a fixed interval. Each response replaces the
// list as it arrives.
type IntervalPoller[T any] struct {
	Interval time.Duration
	Fetch    FetchFunc[T]
	// Immediate fetches once before the first tick.
	Immediate bool
	// OnError is called for failed fetches. Polling continues.
	OnError func(error)
	// OnApply is called after a fetch was applied.
	OnApply func([]T)
	Logger  *log.Logger
	Metrics *metrics.Metrics
}

// Run polls until ctx is cancelled, returning ctx.Err(), or until the list
// is closed, returning nil.
func (p *IntervalPoller[T]) Run(ctx context.Context, list *ManagedList[T]) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	logger := log.OrDefault(p.Logger).With("component", "poller")

	if p.Immediate {
		if !p.tick(ctx, list, logger) {
			return nil
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !p.tick(ctx, list, logger) {
				return nil
			}
		}
	}
}

// tick reports false once the list is closed.
func (p *IntervalPoller[T]) tick(ctx context.Context, list *ManagedList[T], logger *log.Logger) bool {
	if list.Closed() {
		return false
	}
	f := list.BeginFetch()
	items, err := p.Fetch(ctx)
	if err != nil {
		f.Discard()
		if ctx.Err() != nil {
			return true
		}
		p.Metrics.PollTick("error")
		logger.WithError(err).Debug("poll failed")
		if p.OnError != nil {
			p.OnError(err)
		}
		return !list.Closed()
	}
	if !f.Apply(items) {
		return false
	}
	p.Metrics.PollTick("applied")
	if p.OnApply != nil {
		p.OnApply(list.Items())
	}
	return true
}
