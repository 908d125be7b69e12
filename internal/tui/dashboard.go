package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/maykaila/memora/internal/api"
	"github.com/maykaila/memora/internal/guard"
	"github.com/maykaila/memora/internal/session"
)

type dashboardLoadedMsg struct {
	to      screenID
	user    *api.User
	decks   []api.Deck
	folders []api.Folder
	classes []api.Class
	err     error
}

func (m dashboardLoadedMsg) target() screenID { return m.to }

type signedOutMsg struct {
	to  screenID
	err error
}

func (m signedOutMsg) target() screenID { return m.to }

// dashboard is the landing page of a role.
type dashboard struct {
	id   screenID
	env  *env
	role session.Role

	loading bool
	err     error
	user    *api.User
	decks   []api.Deck
	folders []api.Folder
	classes []api.Class
}

func newDashboard(e *env, role session.Role) *dashboard {
	return &dashboard{id: e.nextID(), env: e, role: role}
}

func (d *dashboard) ID() screenID { return d.id }

func (d *dashboard) route() guard.Route { return guard.LandingRoute(d.role) }

func (d *dashboard) Init() tea.Cmd { return d.load() }

// load fetches the profile and the collections summarized on the page.
func (d *dashboard) load() tea.Cmd {
	d.loading = true
	e, id, uid := d.env, d.id, d.env.session.Snapshot().UID
	teacher := d.role.Is(session.RoleTeacher)

	return func() tea.Msg {
		msg := dashboardLoadedMsg{to: id}
		g, ctx := errgroup.WithContext(e.ctx)
		g.Go(func() (err error) {
			msg.user, err = e.backend.GetUser(ctx, uid)
			return err
		})
		g.Go(func() (err error) {
			msg.decks, err = e.backend.ListDecks(ctx)
			return err
		})
		g.Go(func() (err error) {
			msg.classes, err = e.backend.ListClasses(ctx)
			return err
		})
		if !teacher {
			g.Go(func() (err error) {
				msg.folders, err = e.backend.ListFolders(ctx)
				return err
			})
		}
		msg.err = api.Coded(g.Wait())
		return msg
	}
}

func (d *dashboard) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case dashboardLoadedMsg:
		d.loading = false
		d.err = msg.err
		if msg.err == nil {
			d.user, d.decks, d.folders, d.classes = msg.user, msg.decks, msg.folders, msg.classes
		}
		return nil

	case signedOutMsg:
		d.err = msg.err
		return nil

	case resumeMsg:
		return d.load()

	case tea.KeyMsg:
		switch msg.String() {
		case "q":
			return func() tea.Msg { return quitMsg{} }
		case "r":
			return d.load()
		case "L":
			return d.signOut()
		case "l":
			return push(d.env.guarded(d.role, newLibrary(d.env, d.role)))
		case "f":
			if !d.role.Is(session.RoleTeacher) {
				return push(d.env.guarded(d.role, newFolders(d.env, d.role)))
			}
		case "c":
			return push(d.env.guarded(d.role, newClasses(d.env, d.role)))
		}
	}
	return nil
}

// signOut clears the principal. Every mounted guard then redirects to login.
func (d *dashboard) signOut() tea.Cmd {
	e, id := d.env, d.id
	return func() tea.Msg {
		if err := e.auth.SignOut(e.ctx); err != nil {
			return signedOutMsg{to: id, err: err}
		}
		return nil
	}
}

func (d *dashboard) View() string {
	s := d.env.styles
	var b strings.Builder

	title := "Student dashboard"
	if d.role.Is(session.RoleTeacher) {
		title = "Teacher dashboard"
	}
	b.WriteString(s.Title.Render(title))
	b.WriteString("\n")

	switch {
	case d.err != nil:
		b.WriteString(s.errorBox(d.err, "Press r to try again."))
		b.WriteString("\n")
	case d.loading && d.user == nil:
		b.WriteString(s.Muted.Render("Loading..."))
		b.WriteString("\n")
	case d.user != nil:
		b.WriteString(s.Border.Render(d.summary()))
		b.WriteString("\n")
	}

	pairs := []string{"l", "library"}
	if !d.role.Is(session.RoleTeacher) {
		pairs = append(pairs, "f", "folders", "c", "my classes")
	} else {
		pairs = append(pairs, "c", "classes")
	}
	pairs = append(pairs, "r", "refresh", "L", "sign out", "q", "quit")
	b.WriteString(s.helpLine(pairs...))
	return b.String()
}

func (d *dashboard) summary() string {
	s := d.env.styles
	name := d.user.Username
	if name == "" {
		name = d.user.Email
	}
	lines := []string{s.Status.Render("Hello, " + name)}
	if d.user.Bio != "" {
		lines = append(lines, s.Muted.Render(d.user.Bio))
	}
	lines = append(lines, "")

	if d.role.Is(session.RoleTeacher) {
		students := 0
		for _, c := range d.classes {
			students += len(c.StudentIDs)
		}
		lines = append(lines,
			fmt.Sprintf("Classes:  %d", len(d.classes)),
			fmt.Sprintf("Students: %d", students),
			fmt.Sprintf("Decks:    %d", len(d.decks)),
		)
	} else {
		lines = append(lines,
			fmt.Sprintf("Streak:  %s", s.Warning.Render(fmt.Sprintf("%d days", d.user.Streak))),
			fmt.Sprintf("Decks:   %d", len(d.decks)),
			fmt.Sprintf("Folders: %d", len(d.folders)),
			fmt.Sprintf("Classes: %d", len(d.classes)),
		)
	}
	return strings.Join(lines, "\n")
}

func (d *dashboard) Close() {}
