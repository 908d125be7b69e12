package listsync

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maykaila/memora/internal/errors"
	"github.com/maykaila/memora/internal/log"
	"github.com/maykaila/memora/internal/metrics"
)

func ident(s string) string { return s }

func newList(items ...string) (*ManagedList[string], *metrics.Metrics) {
	_, m := metrics.NewRegistry()
	return New(ident, items, Options{Resource: "deck", Logger: log.Discard(), Metrics: m}), m
}

func succeed(context.Context, string) error { return nil }

func TestDeleteSuccess(t *testing.T) {
	l, m := newList("A", "B", "C")

	deleted, err := l.Delete(context.Background(), "B", succeed)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, []string{"A", "C"}, l.Items())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ListMutations.WithLabelValues("delete", "committed")))
}

func TestDeleteRemovesBeforeBackendResponds(t *testing.T) {
	l, _ := newList("A", "B", "C")

	var during []string
	_, err := l.Delete(context.Background(), "B", func(context.Context, string) error {
		during = l.Items()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, during)
}

func TestDeleteFailureRollsBackExactly(t *testing.T) {
	l, m := newList("A", "B", "C")
	cause := stderrors.New("status 500")

	deleted, err := l.Delete(context.Background(), "B", func(context.Context, string) error { return cause })
	assert.False(t, deleted)

	var rb *RollbackError
	require.ErrorAs(t, err, &rb)
	assert.Equal(t, "B", rb.Key)
	assert.ErrorIs(t, err, cause)
	assert.True(t, errors.HasCode(rb.Coded(), errors.ErrCodeAPIRollback))
	assert.Equal(t, []string{"A", "B", "C"}, l.Items())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ListMutations.WithLabelValues("delete", "rolled_back")))
}

func TestDeleteRollbackKeepsOtherCommittedDelete(t *testing.T) {
	l, _ := newList("A", "B", "C")

	slow, ok := l.BeginDelete("B")
	require.True(t, ok)
	_, err := l.Delete(context.Background(), "C", succeed)
	require.NoError(t, err)

	err = slow.Commit(context.Background(), func(context.Context, string) error { return stderrors.New("boom") })
	require.Error(t, err)
	assert.Equal(t, []string{"A", "B"}, l.Items())
}

func TestDoubleDeleteIsNoop(t *testing.T) {
	l, m := newList("A", "B", "C")

	pd, ok := l.BeginDelete("B")
	require.True(t, ok)

	calls := 0
	deleted, err := l.Delete(context.Background(), "B", func(context.Context, string) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Zero(t, calls)

	require.NoError(t, pd.Commit(context.Background(), succeed))

	deleted, err = l.Delete(context.Background(), "B", succeed)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Equal(t, []string{"A", "C"}, l.Items())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ListMutations.WithLabelValues("delete", "noop")))
}

func TestResultsAfterCloseAreIgnored(t *testing.T) {
	l, _ := newList("A", "B", "C")

	var notified [][]string
	l.Subscribe(func(items []string) { notified = append(notified, items) })

	pd, ok := l.BeginDelete("B")
	require.True(t, ok)
	l.Close()

	err := pd.Commit(context.Background(), func(context.Context, string) error { return stderrors.New("late") })
	var rb *RollbackError
	assert.ErrorAs(t, err, &rb)
	assert.Equal(t, []string{"A", "C"}, l.Items(), "closed list is not rolled back")
	assert.Len(t, notified, 2)

	_, err = l.Delete(context.Background(), "A", succeed)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, l.Move(0, 1), ErrClosed)
	assert.False(t, l.BeginFetch().Apply([]string{"X"}))
}

func TestMove(t *testing.T) {
	tests := []struct {
		name     string
		items    []string
		from, to int
		want     []string
	}{
		{"move up", []string{"A", "B", "C", "D"}, 3, 1, []string{"A", "D", "B", "C"}},
		{"move down", []string{"A", "B", "C", "D"}, 0, 2, []string{"B", "C", "A", "D"}},
		{"same index", []string{"A", "B", "C", "D"}, 2, 2, []string{"A", "B", "C", "D"}},
		{"to end", []string{"A", "B", "C"}, 0, 2, []string{"B", "C", "A"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _ := newList(tt.items...)
			require.NoError(t, l.Move(tt.from, tt.to))
			assert.Equal(t, tt.want, l.Items())
		})
	}
}

func TestMoveOutOfRange(t *testing.T) {
	l, _ := newList("A", "B")
	for _, idx := range [][2]int{{-1, 0}, {0, 2}, {2, 0}, {0, -1}} {
		err := l.Move(idx[0], idx[1])
		assert.ErrorIs(t, err, ErrIndexOutOfRange, "move %v", idx)
	}
	assert.Equal(t, []string{"A", "B"}, l.Items())

	empty, _ := newList()
	assert.ErrorIs(t, empty.Move(0, 0), ErrIndexOutOfRange)
}

func TestMoveNoopDoesNotNotify(t *testing.T) {
	l, _ := newList("A", "B")
	count := 0
	l.Subscribe(func([]string) { count++ })
	require.NoError(t, l.Move(1, 1))
	assert.Equal(t, 1, count)
}

func TestFetchBegunBeforeDeleteDoesNotResurrect(t *testing.T) {
	l, _ := newList("A", "B", "C")

	stale := l.BeginFetch()
	_, err := l.Delete(context.Background(), "B", succeed)
	require.NoError(t, err)

	// Response computed before the backend processed the delete.
	require.True(t, stale.Apply([]string{"A", "B", "C"}))
	assert.Equal(t, []string{"A", "C"}, l.Items())

	fresh := l.BeginFetch()
	require.True(t, fresh.Apply([]string{"A", "C", "D"}))
	assert.Equal(t, []string{"A", "C", "D"}, l.Items())

	// The tombstone is gone, so a genuine re-creation shows up.
	require.True(t, l.BeginFetch().Apply([]string{"A", "B"}))
	assert.Equal(t, []string{"A", "B"}, l.Items())
}

func TestOverlappingFetchesDoNotResurrect(t *testing.T) {
	l, _ := newList("A", "B", "C")

	old := l.BeginFetch()
	_, err := l.Delete(context.Background(), "B", succeed)
	require.NoError(t, err)

	// A manual refresh starts and finishes while the older poll is in flight.
	newer := l.BeginFetch()
	require.True(t, newer.Apply([]string{"A", "C"}))
	assert.Equal(t, []string{"A", "C"}, l.Items())

	require.True(t, old.Apply([]string{"A", "B", "C"}))
	assert.Equal(t, []string{"A", "C"}, l.Items())

	// Both fetches are settled, so a re-created B shows up again.
	require.True(t, l.BeginFetch().Apply([]string{"A", "B", "C"}))
	assert.Equal(t, []string{"A", "B", "C"}, l.Items())
}

func TestDiscardedFetchReleasesTombstone(t *testing.T) {
	l, _ := newList("A", "B", "C")

	failed := l.BeginFetch()
	_, err := l.Delete(context.Background(), "B", succeed)
	require.NoError(t, err)

	newer := l.BeginFetch()
	require.True(t, newer.Apply([]string{"A", "C"}))
	// The older request errored and never applies.
	failed.Discard()

	require.True(t, l.BeginFetch().Apply([]string{"A", "B"}))
	assert.Equal(t, []string{"A", "B"}, l.Items())
}

func TestFetchDuringPendingDeleteSkipsKey(t *testing.T) {
	l, _ := newList("A", "B", "C")

	pd, ok := l.BeginDelete("B")
	require.True(t, ok)
	require.True(t, l.BeginFetch().Apply([]string{"A", "B", "C", "D"}))
	assert.Equal(t, []string{"A", "C", "D"}, l.Items())

	require.NoError(t, pd.Commit(context.Background(), succeed))
	assert.Equal(t, []string{"A", "C", "D"}, l.Items())
}

func TestFetchLastResponseWins(t *testing.T) {
	l, _ := newList("A")

	first := l.BeginFetch()
	second := l.BeginFetch()
	second.Apply([]string{"B"})
	first.Apply([]string{"C"})
	assert.Equal(t, []string{"C"}, l.Items())
}

func TestSubscribeOrdering(t *testing.T) {
	l, _ := newList("A", "B", "C")

	var got [][]string
	unsub := l.Subscribe(func(items []string) { got = append(got, items) })

	_, err := l.Delete(context.Background(), "A", func(context.Context, string) error { return stderrors.New("no") })
	require.Error(t, err)
	require.NoError(t, l.Move(0, 2))
	unsub()
	require.NoError(t, l.Move(0, 1))

	assert.Equal(t, [][]string{
		{"A", "B", "C"},
		{"B", "C"},
		{"A", "B", "C"},
		{"B", "C", "A"},
	}, got)
}

func TestItemsIsACopy(t *testing.T) {
	src := []string{"A", "B"}
	l, _ := newList(src...)
	src[0] = "Z"
	items := l.Items()
	items[1] = "Y"
	assert.Equal(t, []string{"A", "B"}, l.Items())
}

func TestConcurrentDeletes(t *testing.T) {
	keys := make([]string, 50)
	for i := range keys {
		keys[i] = fmt.Sprintf("k%02d", i)
	}
	l, _ := newList(keys...)

	var wg sync.WaitGroup
	for i, k := range keys {
		wg.Add(1)
		go func(i int, k string) {
			defer wg.Done()
			_, _ = l.Delete(context.Background(), k, func(context.Context, string) error {
				if i%2 == 0 {
					return nil
				}
				return stderrors.New("odd")
			})
		}(i, k)
	}
	wg.Wait()

	items := l.Items()
	assert.Len(t, items, 25)
	for _, it := range items {
		var n int
		_, err := fmt.Sscanf(it, "k%02d", &n)
		require.NoError(t, err)
		assert.Equal(t, 1, n%2, "committed delete %s resurfaced", it)
	}
}
