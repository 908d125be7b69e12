// Package tui is the interactive terminal client. Screens behind a
// guard.Guard only render once the session resolves to the right role.
package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/maykaila/memora/internal/api"
	"github.com/maykaila/memora/internal/guard"
	"github.com/maykaila/memora/internal/identity"
	"github.com/maykaila/memora/internal/log"
	"github.com/maykaila/memora/internal/metrics"
	"github.com/maykaila/memora/internal/session"
)

// eventBuffer bounds callbacks queued between the session and the program.
const eventBuffer = 64

// Backend is the part of the API client the screens use.
type Backend interface {
	GetUser(ctx context.Context, uid string) (*api.User, error)
	CreateUser(ctx context.Context, req api.CreateUserRequest) error
	ListDecks(ctx context.Context) ([]api.Deck, error)
	GetDeck(ctx context.Context, id string) (*api.Deck, error)
	DeleteDeck(ctx context.Context, id string) error
	ListCards(ctx context.Context, deckID string) ([]api.Card, error)
	DeleteCard(ctx context.Context, deckID, cardID string) error
	ListFolders(ctx context.Context) ([]api.Folder, error)
	DeleteFolder(ctx context.Context, id string) error
	ListFolderDecks(ctx context.Context, id string) ([]api.Deck, error)
	ListClasses(ctx context.Context) ([]api.Class, error)
	DeleteClass(ctx context.Context, id string) error
	JoinClass(ctx context.Context, code string) error
	ListStudents(ctx context.Context, classID string) ([]api.Student, error)
}

// SessionSource is what the app needs from the session resolver.
type SessionSource interface {
	guard.Source
	Snapshot() session.Snapshot
}

// Deps are the services the app runs against.
type Deps struct {
	Auth         identity.Provider
	Session      SessionSource
	Backend      Backend
	Logger       *log.Logger
	Metrics      *metrics.Metrics
	PollInterval time.Duration
}

// Options select the first screen.
type Options struct {
	// StudyDeck opens the study screen for this deck instead of a dashboard.
	StudyDeck string
	// Role guards the study screen.
	Role session.Role
}

// screenID addresses async results to the screen that started them.
type screenID int

// Screen is one page of the app. Screens are pointers and update in place.
type Screen interface {
	ID() screenID
	Init() tea.Cmd
	Update(msg tea.Msg) tea.Cmd
	View() string
	// Close releases subscriptions. Results arriving later are dropped.
	Close()
}

// addressed messages go to one screen only.
type addressed interface {
	target() screenID
}

// env is shared by all screens of one app.
type env struct {
	ctx     context.Context
	auth    identity.Provider
	session SessionSource
	backend Backend
	logger  *log.Logger
	metrics *metrics.Metrics
	styles  Styles
	poll    time.Duration
	emit    func(tea.Msg)
	nav     guard.Navigator
	ids     *screenID
}

func (e *env) nextID() screenID {
	*e.ids++
	return *e.ids
}

// Model is the root bubbletea model holding the screen stack.
type Model struct {
	env         *env
	opts        Options
	events      chan tea.Msg
	stack       []Screen
	snapshot    session.Snapshot
	unsubscribe func()
	width       int
	height      int
	ready       bool
	quitting    bool
}

// NewModel creates the app. Call Close after the program exits.
func NewModel(ctx context.Context, deps Deps, opts Options) *Model {
	m := &Model{
		opts:   opts,
		events: make(chan tea.Msg, eventBuffer),
	}
	poll := deps.PollInterval
	if poll <= 0 {
		poll = 5 * time.Second
	}
	var ids screenID
	m.env = &env{
		ctx:     ctx,
		auth:    deps.Auth,
		session: deps.Session,
		backend: deps.Backend,
		logger:  log.OrDefault(deps.Logger).With("component", "tui"),
		metrics: deps.Metrics,
		styles:  DefaultStyles(),
		poll:    poll,
		emit:    m.emit,
		nav:     guard.NavigatorFunc(func(to guard.Route) { m.emit(navigateMsg{to: to}) }),
		ids:     &ids,
	}
	return m
}

// Run starts the program and blocks until the user quits or ctx is done.
func Run(ctx context.Context, deps Deps, opts Options) error {
	m := NewModel(ctx, deps, opts)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("terminal UI failed: %w", err)
	}
	return nil
}

// emit queues msg for the program. It never blocks the caller, which may be
// running inside a session or guard callback.
func (m *Model) emit(msg tea.Msg) {
	select {
	case m.events <- msg:
	default:
		go func() { m.events <- msg }()
	}
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-m.events:
			return eventMsg{msg: msg}
		case <-m.env.ctx.Done():
			return nil
		}
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	m.unsubscribe = m.env.session.Subscribe(func(s session.Snapshot) {
		m.emit(sessionMsg{snapshot: s})
	})
	m.snapshot = m.env.session.Snapshot()
	return tea.Batch(m.waitForEvent(), m.push(m.firstScreen()))
}

func (m *Model) firstScreen() Screen {
	if m.opts.StudyDeck != "" {
		return m.env.guarded(m.opts.Role, newStudyLoader(m.env, m.opts.StudyDeck))
	}
	if m.snapshot.Status == session.StatusSignedOut {
		return newLogin(m.env)
	}
	if m.snapshot.Status == session.StatusResolved {
		return m.screenFor(guard.LandingRoute(m.snapshot.Role))
	}
	// The guard redirects teachers once the role is known.
	return m.screenFor(guard.RouteStudentDashboard)
}

func (m *Model) screenFor(route guard.Route) Screen {
	switch route {
	case guard.RouteTeacherDashboard:
		return m.env.guarded(session.RoleTeacher, newDashboard(m.env, session.RoleTeacher))
	case guard.RouteStudentDashboard:
		return m.env.guarded(session.RoleStudent, newDashboard(m.env, session.RoleStudent))
	default:
		return newLogin(m.env)
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		return m, tea.Batch(m.waitForEvent(), m.handle(msg.msg))
	}
	return m, m.handle(msg)
}

func (m *Model) handle(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return tea.Quit
		}
		return m.top().Update(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m.broadcast(msg)

	case sessionMsg:
		m.snapshot = msg.snapshot
		return nil

	case navigateMsg:
		return m.navigate(msg.to)

	case pushMsg:
		return m.push(msg.screen)

	case popMsg:
		return m.pop()

	case quitMsg:
		m.quitting = true
		return tea.Quit

	case addressed:
		if s := m.find(msg.target()); s != nil {
			return s.Update(msg)
		}
		return nil
	}
	return m.broadcast(msg)
}

// navigate replaces the stack with the screen for route. Several guards may
// redirect to the same route; the repeats do nothing.
func (m *Model) navigate(to guard.Route) tea.Cmd {
	if len(m.stack) == 1 {
		if cur, ok := m.stack[0].(routed); ok && cur.route() == to {
			return nil
		}
	}
	m.env.logger.Debug("navigate", "to", string(to))
	for len(m.stack) > 0 {
		m.closeTop()
	}
	return m.push(m.screenFor(to))
}

func (m *Model) push(s Screen) tea.Cmd {
	m.stack = append(m.stack, s)
	cmds := []tea.Cmd{s.Init()}
	if m.ready {
		size := tea.WindowSizeMsg{Width: m.width, Height: m.height}
		cmds = append(cmds, s.Update(size))
	}
	return tea.Batch(cmds...)
}

func (m *Model) pop() tea.Cmd {
	if len(m.stack) <= 1 {
		return nil
	}
	m.closeTop()
	return m.top().Update(resumeMsg{})
}

func (m *Model) closeTop() {
	top := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	top.Close()
}

func (m *Model) top() Screen {
	return m.stack[len(m.stack)-1]
}

func (m *Model) find(id screenID) Screen {
	for _, s := range m.stack {
		if s.ID() == id {
			return s
		}
		if w, ok := s.(*protected); ok && w.inner.ID() == id {
			return w
		}
	}
	return nil
}

func (m *Model) broadcast(msg tea.Msg) tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(m.stack))
	for _, s := range m.stack {
		cmds = append(cmds, s.Update(msg))
	}
	return tea.Batch(cmds...)
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready || len(m.stack) == 0 {
		return "Initializing..."
	}
	return m.renderHeader() + "\n\n" + m.top().View()
}

// Close tears down every screen and the session subscription.
func (m *Model) Close() {
	for len(m.stack) > 0 {
		m.closeTop()
	}
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}
