package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"
	"time"

	"github.com/maykaila/memora/internal/api"
	"github.com/maykaila/memora/internal/listsync"
)

// listing describes how a collection command prints its rows.
type listing[T interface{ Key() string }] struct {
	resource string
	headers  []string
	row      func(T) []string
	empty    string
}

func (l listing[T]) print(a *app, items []T) error {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, l.row(it))
	}
	if items == nil {
		items = []T{}
	}
	return a.out.table(items, l.headers, rows, l.empty)
}

// show fetches once and prints, or keeps the listing refreshed until
// interrupted when watch is set.
func (l listing[T]) show(ctx context.Context, a *app, fetch listsync.FetchFunc[T], watch bool, interval time.Duration) error {
	if !watch {
		items, err := fetch(ctx)
		if err != nil {
			return api.Coded(err)
		}
		return l.print(a, items)
	}
	return l.watch(ctx, a, fetch, interval)
}

func (l listing[T]) watch(ctx context.Context, a *app, fetch listsync.FetchFunc[T], interval time.Duration) error {
	if interval <= 0 {
		interval = a.cfg.Poll.Interval
	}
	list := listsync.New(func(t T) string { return t.Key() }, nil, listsync.Options{
		Resource: l.resource,
		Logger:   a.logger,
		Metrics:  a.metrics,
	})
	defer list.Close()

	var last [][]string
	var printErr error
	poller := &listsync.IntervalPoller[T]{
		Interval:  interval,
		Fetch:     fetch,
		Immediate: true,
		Logger:    a.logger,
		Metrics:   a.metrics,
		OnError: func(err error) {
			fmt.Fprintf(a.out.w, "refresh failed: %v\n", api.Coded(err))
		},
		OnApply: func(items []T) {
			rows := make([][]string, 0, len(items))
			for _, it := range items {
				rows = append(rows, l.row(it))
			}
			if last != nil && slices.EqualFunc(rows, last, slices.Equal[[]string]) {
				return
			}
			last = rows
			if !a.out.structured() {
				fmt.Fprintf(a.out.w, "\n%s  (%d %ss)\n", time.Now().Format(time.TimeOnly), len(items), l.resource)
			}
			if err := l.print(a, items); err != nil {
				printErr = err
				list.Close()
			}
		},
	}

	err := poller.Run(ctx, list)
	if printErr != nil {
		return printErr
	}
	if stderrors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
