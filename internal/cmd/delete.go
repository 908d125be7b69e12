package cmd

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/maykaila/memora/internal/api"
	"github.com/maykaila/memora/internal/listsync"
)

// deleteFrom deletes id from a freshly fetched collection through a managed
// list. The delete is confirmed first unless --yes. An id that is not in the
// collection is reported and nothing is sent.
func deleteFrom[T interface{ Key() string }](ctx context.Context, a *app, resource string, fetch listsync.FetchFunc[T], id string, del listsync.DeleteFunc) error {
	items, err := fetch(ctx)
	if err != nil {
		return api.Coded(err)
	}

	list := listsync.New(func(t T) string { return t.Key() }, items, listsync.Options{
		Resource: resource,
		Logger:   a.logger,
		Metrics:  a.metrics,
	})
	defer list.Close()

	if !contains(list.Items(), id) {
		return a.out.message(fmt.Sprintf("No %s with id %s, nothing deleted.", resource, id), map[string]any{"id": id, "deleted": false})
	}

	ok, err := a.confirmed(fmt.Sprintf("delete %s %s", resource, id))
	if err != nil {
		return err
	}
	if !ok {
		return a.out.message("Cancelled.", map[string]any{"id": id, "deleted": false})
	}

	deleted, err := list.Delete(ctx, id, del)
	if err != nil {
		var rb *listsync.RollbackError
		if stderrors.As(err, &rb) {
			return rb.Coded()
		}
		return err
	}
	if !deleted {
		return a.out.message(fmt.Sprintf("%s %s is already being deleted.", resource, id), map[string]any{"id": id, "deleted": false})
	}
	remaining := list.Len()
	return a.out.message(
		fmt.Sprintf("Deleted %s %s (%d left).", resource, id, remaining),
		map[string]any{"id": id, "deleted": true, "remaining": remaining},
	)
}

func contains[T interface{ Key() string }](items []T, id string) bool {
	for _, it := range items {
		if it.Key() == id {
			return true
		}
	}
	return false
}
