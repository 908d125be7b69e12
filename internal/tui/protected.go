package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/maykaila/memora/internal/guard"
	"github.com/maykaila/memora/internal/session"
)

// protected renders inner only while its guard authorizes the session.
type protected struct {
	id      screenID
	env     *env
	guard   *guard.Guard
	inner   Screen
	result  guard.Result
	started bool
	ticking bool
	spinner spinner.Model
	remove  func()
}

func (e *env) guarded(role session.Role, inner Screen) *protected {
	return &protected{
		id:      e.nextID(),
		env:     e,
		guard:   guard.New(role, e.session, e.nav, guard.WithLogger(e.logger), guard.WithMetrics(e.metrics)),
		inner:   inner,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(e.styles.Status)),
	}
}

func (p *protected) ID() screenID { return p.id }

func (p *protected) route() guard.Route {
	if r, ok := p.inner.(routed); ok {
		return r.route()
	}
	return ""
}

func (p *protected) Init() tea.Cmd {
	p.remove = p.guard.OnChange(func(res guard.Result) {
		p.env.emit(guardMsg{to: p.id, result: res})
	})
	p.guard.Mount()
	return p.apply(p.guard.Result())
}

// apply starts the inner screen on the first authorization.
func (p *protected) apply(res guard.Result) tea.Cmd {
	p.result = res
	if res.IsAuthorized && !p.started {
		p.started = true
		return p.inner.Init()
	}
	if res.IsLoading && !p.ticking {
		p.ticking = true
		return p.spinner.Tick
	}
	return nil
}

func (p *protected) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case guardMsg:
		if msg.to == p.id {
			return p.apply(msg.result)
		}
	case spinner.TickMsg:
		if msg.ID != p.spinner.ID() {
			break
		}
		if p.result.IsLoading {
			var cmd tea.Cmd
			p.spinner, cmd = p.spinner.Update(msg)
			return cmd
		}
		p.ticking = false
		return nil
	case tea.KeyMsg:
		if p.result.State == guard.StateFailed {
			switch msg.String() {
			case "r":
				g := p.guard
				return func() tea.Msg {
					g.Retry()
					return nil
				}
			case "q":
				return func() tea.Msg { return quitMsg{} }
			}
			return nil
		}
		if !p.result.IsAuthorized {
			return nil
		}
	}
	if p.started {
		return p.inner.Update(msg)
	}
	return nil
}

func (p *protected) View() string {
	s := p.env.styles
	switch {
	case p.result.IsAuthorized:
		return p.inner.View()
	case p.result.State == guard.StateFailed:
		return s.errorBox(p.result.Err, "We could not load your account.") + "\n" +
			s.helpLine("r", "retry", "q", "quit")
	case p.result.IsLoading:
		return p.spinner.View() + " " + s.Muted.Render("Loading your account...")
	default:
		return s.Muted.Render("Redirecting...")
	}
}

func (p *protected) Close() {
	if p.remove != nil {
		p.remove()
	}
	p.guard.Unmount()
	p.inner.Close()
}
