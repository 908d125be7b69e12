package listsync

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"
	"testing"

	"pgregory.net/rapid"
)

func genKeys() *rapid.Generator[[]string] {
	return rapid.Custom(func(t *rapid.T) []string {
		n := rapid.IntRange(1, 12).Draw(t, "n")
		keys := make([]string, n)
		for i := range keys {
			keys[i] = fmt.Sprintf("k%d", i)
		}
		return keys
	})
}

func TestMoveIsAPermutationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		keys := genKeys().Draw(t, "keys")
		from := rapid.IntRange(0, len(keys)-1).Draw(t, "from")
		to := rapid.IntRange(0, len(keys)-1).Draw(t, "to")

		l, _ := newList(keys...)
		if err := l.Move(from, to); err != nil {
			t.Fatalf("Move(%d, %d): %v", from, to, err)
		}
		got := l.Items()
		if got[to] != keys[from] {
			t.Fatalf("item at %d = %s, want %s", to, got[to], keys[from])
		}
		sorted := slices.Clone(got)
		slices.Sort(sorted)
		want := slices.Clone(keys)
		slices.Sort(want)
		if !slices.Equal(sorted, want) {
			t.Fatalf("move lost items: %v", got)
		}
	})
}

func TestFailedDeleteRestoresSnapshotProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		keys := genKeys().Draw(t, "keys")
		l, _ := newList(keys...)

		moves := rapid.IntRange(0, 5).Draw(t, "moves")
		for i := 0; i < moves; i++ {
			from := rapid.IntRange(0, len(keys)-1).Draw(t, "from")
			to := rapid.IntRange(0, len(keys)-1).Draw(t, "to")
			_ = l.Move(from, to)
		}

		before := l.Items()
		victim := rapid.SampledFrom(before).Draw(t, "victim")
		_, err := l.Delete(context.Background(), victim, func(context.Context, string) error {
			return stderrors.New("rejected")
		})
		if err == nil {
			t.Fatal("expected rollback error")
		}
		if got := l.Items(); !slices.Equal(got, before) {
			t.Fatalf("after rollback %v, want %v", got, before)
		}
	})
}

func TestCommittedDeleteNeverReappearsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		keys := genKeys().Draw(t, "keys")
		l, _ := newList(keys...)

		stale := l.BeginFetch()
		victim := rapid.SampledFrom(keys).Draw(t, "victim")
		if _, err := l.Delete(context.Background(), victim, succeed); err != nil {
			t.Fatal(err)
		}
		for i := rapid.IntRange(0, 3).Draw(t, "newer"); i > 0; i-- {
			l.BeginFetch().Apply(slices.DeleteFunc(slices.Clone(keys), func(k string) bool { return k == victim }))
		}
		stale.Apply(keys)
		if slices.Contains(l.Items(), victim) {
			t.Fatalf("%s reappeared after stale fetch", victim)
		}
	})
}
