package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/maykaila/memora/internal/api"
	"github.com/maykaila/memora/internal/listsync"
)

// keyAction is a screen specific key binding.
type keyAction[T any] struct {
	key  string
	help string
	run  func(c *collection[T]) tea.Cmd
}

// collectionSpec describes one backend collection shown as a list.
type collectionSpec[T any] struct {
	title    string
	resource string
	key      func(T) string
	describe func(T) (title, desc string)
	fetch    func(ctx context.Context) ([]T, error)
	// remove enables "d". nil means read-only.
	remove listsync.DeleteFunc
	// open enables "enter".
	open    func(T) Screen
	reorder bool
	poll    bool
	actions []keyAction[T]
	empty   string
}

type fetchedMsg[T any] struct {
	to    screenID
	gen   int
	fetch *listsync.Fetch[T]
	items []T
	err   error
}

func (m fetchedMsg[T]) target() screenID { return m.to }

type pollTickMsg struct {
	to  screenID
	gen int
}

func (m pollTickMsg) target() screenID { return m.to }

type deletedMsg struct {
	to    screenID
	key   string
	title string
	err   error
}

func (m deletedMsg) target() screenID { return m.to }

// listItem adapts an item for the bubbles list.
type listItem struct {
	key   string
	title string
	desc  string
}

func (i listItem) Title() string       { return i.title }
func (i listItem) Description() string { return i.desc }
func (i listItem) FilterValue() string { return i.title }

// collection is a list screen over a listsync.ManagedList. Deletes are
// optimistic, reorders are local and polling keeps it fresh.
type collection[T any] struct {
	id      screenID
	env     *env
	spec    collectionSpec[T]
	items   *listsync.ManagedList[T]
	list    list.Model
	gen     int
	loaded  bool
	loadErr error

	confirming string
	status     string
	statusErr  error
}

func newCollection[T any](e *env, spec collectionSpec[T]) *collection[T] {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	l.SetStatusBarItemName(spec.resource, spec.resource+"s")

	return &collection[T]{
		id:    e.nextID(),
		env:   e,
		spec:  spec,
		items: listsync.New(spec.key, nil, listsync.Options{Resource: spec.resource, Logger: e.logger, Metrics: e.metrics}),
		list:  l,
	}
}

func (c *collection[T]) ID() screenID { return c.id }

func (c *collection[T]) Init() tea.Cmd {
	return c.refresh()
}

// refresh starts a fetch and a new poll chain.
func (c *collection[T]) refresh() tea.Cmd {
	c.gen++
	return c.fetch(c.gen)
}

func (c *collection[T]) fetch(gen int) tea.Cmd {
	f := c.items.BeginFetch()
	ctx, fetch, id := c.env.ctx, c.spec.fetch, c.id
	return func() tea.Msg {
		items, err := fetch(ctx)
		return fetchedMsg[T]{to: id, gen: gen, fetch: f, items: items, err: api.Coded(err)}
	}
}

func (c *collection[T]) scheduleTick(gen int) tea.Cmd {
	if !c.spec.poll {
		return nil
	}
	id := c.id
	return tea.Tick(c.env.poll, func(time.Time) tea.Msg { return pollTickMsg{to: id, gen: gen} })
}

func (c *collection[T]) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case fetchedMsg[T]:
		if msg.err != nil {
			msg.fetch.Discard()
			if !c.loaded {
				c.loadErr = msg.err
			} else {
				c.env.metrics.PollTick("error")
				c.statusErr = msg.err
			}
		} else if msg.fetch.Apply(msg.items) {
			c.loaded = true
			c.loadErr = nil
			if c.statusErr != nil && msg.gen == c.gen {
				c.statusErr = nil
			}
			c.env.metrics.PollTick("applied")
			c.sync()
		}
		if msg.gen == c.gen {
			return c.scheduleTick(msg.gen)
		}
		return nil

	case pollTickMsg:
		if msg.gen != c.gen || c.items.Closed() {
			return nil
		}
		return c.fetch(msg.gen)

	case deletedMsg:
		if msg.err != nil {
			c.status = ""
			c.statusErr = msg.err
		} else {
			c.status = fmt.Sprintf("Deleted %s", msg.title)
			c.statusErr = nil
		}
		c.sync()
		return nil

	case resumeMsg:
		return c.refresh()

	case tea.WindowSizeMsg:
		c.list.SetSize(msg.Width, max(msg.Height-8, 3))
		return nil

	case tea.KeyMsg:
		return c.handleKey(msg)
	}

	var cmd tea.Cmd
	c.list, cmd = c.list.Update(msg)
	return cmd
}

func (c *collection[T]) handleKey(msg tea.KeyMsg) tea.Cmd {
	k := msg.String()

	if c.confirming != "" {
		switch k {
		case "y", "Y":
			return c.deleteConfirmed()
		case "n", "N", "esc":
			c.confirming = ""
		}
		return nil
	}

	switch k {
	case "esc", "q":
		return pop
	case "r":
		c.statusErr = nil
		c.status = ""
		if !c.loaded {
			c.loadErr = nil
		}
		return c.refresh()
	}

	if !c.loaded {
		return nil
	}

	for _, a := range c.spec.actions {
		if a.key == k {
			return a.run(c)
		}
	}

	switch k {
	case "enter":
		if it, ok := c.selected(); ok && c.spec.open != nil {
			return push(c.spec.open(it))
		}
		return nil
	case "d":
		if _, ok := c.selected(); ok && c.spec.remove != nil {
			c.confirming = c.list.SelectedItem().(listItem).key
			c.status = ""
		}
		return nil
	case "K", "shift+up":
		return c.move(-1)
	case "J", "shift+down":
		return c.move(1)
	}

	var cmd tea.Cmd
	c.list, cmd = c.list.Update(msg)
	return cmd
}

func (c *collection[T]) deleteConfirmed() tea.Cmd {
	key := c.confirming
	c.confirming = ""

	title := key
	if it, ok := c.lookup(key); ok {
		title, _ = c.spec.describe(it)
	}
	pd, ok := c.items.BeginDelete(key)
	if !ok {
		return nil
	}
	c.sync()

	ctx, remove, id := c.env.ctx, c.spec.remove, c.id
	return func() tea.Msg {
		err := pd.Commit(ctx, remove)
		if rb, ok := err.(*listsync.RollbackError); ok {
			err = rb.Coded()
		}
		return deletedMsg{to: id, key: key, title: title, err: err}
	}
}

func (c *collection[T]) move(delta int) tea.Cmd {
	if !c.spec.reorder {
		return nil
	}
	from := c.list.Index()
	to := from + delta
	if to < 0 || to >= c.items.Len() {
		return nil
	}
	if err := c.items.Move(from, to); err != nil {
		c.statusErr = err
		return nil
	}
	c.sync()
	c.list.Select(to)
	return nil
}

func (c *collection[T]) selected() (T, bool) {
	var zero T
	sel, ok := c.list.SelectedItem().(listItem)
	if !ok {
		return zero, false
	}
	return c.lookup(sel.key)
}

func (c *collection[T]) lookup(key string) (T, bool) {
	for _, it := range c.items.Items() {
		if c.spec.key(it) == key {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// sync copies the managed list into the bubbles list.
func (c *collection[T]) sync() {
	items := c.items.Items()
	out := make([]list.Item, len(items))
	for i, it := range items {
		title, desc := c.spec.describe(it)
		out[i] = listItem{key: c.spec.key(it), title: title, desc: truncate(desc, 72)}
	}
	c.list.SetItems(out)
}

func (c *collection[T]) View() string {
	s := c.env.styles
	var b strings.Builder
	b.WriteString(s.Title.Render(c.spec.title))
	b.WriteString("\n")

	switch {
	case c.loadErr != nil:
		b.WriteString(s.errorBox(c.loadErr, "Press r to try again."))
		b.WriteString("\n")
		b.WriteString(s.helpLine("r", "retry", "esc", "back"))
		return b.String()
	case !c.loaded:
		b.WriteString(s.Muted.Render("Loading..."))
		return b.String()
	case c.items.Len() == 0:
		b.WriteString(s.Muted.Render(c.spec.empty))
		b.WriteString("\n")
	default:
		b.WriteString(c.list.View())
		b.WriteString("\n")
	}

	switch {
	case c.confirming != "":
		name := c.confirming
		if it, ok := c.lookup(name); ok {
			name, _ = c.spec.describe(it)
		}
		b.WriteString(s.Warning.Render(fmt.Sprintf("Delete %s %q? ", c.spec.resource, name)))
		b.WriteString(s.helpLine("y", "yes", "n", "no"))
		return b.String()
	case c.statusErr != nil:
		b.WriteString(s.Error.Render(errorText(c.statusErr)))
		b.WriteString("\n")
	case c.status != "":
		b.WriteString(s.Success.Render(c.status))
		b.WriteString("\n")
	}

	b.WriteString(s.helpLine(c.helpPairs()...))
	return b.String()
}

func (c *collection[T]) helpPairs() []string {
	var pairs []string
	if c.spec.open != nil {
		pairs = append(pairs, "enter", "open")
	}
	if c.spec.remove != nil {
		pairs = append(pairs, "d", "delete")
	}
	if c.spec.reorder {
		pairs = append(pairs, "K/J", "move")
	}
	for _, a := range c.spec.actions {
		pairs = append(pairs, a.key, a.help)
	}
	return append(pairs, "r", "refresh", "esc", "back")
}

func (c *collection[T]) Close() {
	c.items.Close()
}
