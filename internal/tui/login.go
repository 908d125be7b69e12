package tui

import (
	"fmt"
	"net/mail"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/maykaila/memora/internal/api"
	"github.com/maykaila/memora/internal/guard"
	"github.com/maykaila/memora/internal/identity"
	"github.com/maykaila/memora/internal/session"
)

type loginMode string

const (
	modeSignIn loginMode = "Sign in"
	modeSignUp loginMode = "Create account"
	modeReset  loginMode = "Reset password"
)

type loginSubmitMsg struct{ to screenID }

func (m loginSubmitMsg) target() screenID { return m.to }

type loginDoneMsg struct {
	to     screenID
	mode   loginMode
	notice string
	err    error
}

func (m loginDoneMsg) target() screenID { return m.to }

// login is the only screen reachable while signed out.
type login struct {
	id   screenID
	env  *env
	form *huh.Form

	mode     loginMode
	email    string
	password string
	username string
	role     string

	busy   bool
	notice string
	err    error
}

func newLogin(e *env) *login {
	l := &login{id: e.nextID(), env: e, mode: modeSignIn, role: string(session.RoleStudent)}
	l.form = l.buildForm()
	return l
}

func (l *login) ID() screenID       { return l.id }
func (l *login) route() guard.Route { return guard.RouteLogin }

func (l *login) buildForm() *huh.Form {
	l.password = ""
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[loginMode]().
				Title("Welcome to Memora").
				Options(
					huh.NewOption(string(modeSignIn), modeSignIn),
					huh.NewOption(string(modeSignUp), modeSignUp),
					huh.NewOption(string(modeReset), modeReset),
				).
				Value(&l.mode),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Value(&l.email).
				Validate(validateEmail),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&l.password).
				Validate(func(s string) error {
					if l.mode == modeSignUp && len(s) < 6 {
						return fmt.Errorf("at least 6 characters")
					}
					if s == "" {
						return fmt.Errorf("required")
					}
					return nil
				}),
		).WithHideFunc(func() bool { return l.mode == modeReset }),
		huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Value(&l.username).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("required")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("I am a").
				Options(
					huh.NewOption("Student", string(session.RoleStudent)),
					huh.NewOption("Teacher", string(session.RoleTeacher)),
				).
				Value(&l.role),
		).WithHideFunc(func() bool { return l.mode != modeSignUp }),
	).WithTheme(huh.ThemeCharm()).WithShowHelp(true)

	id := l.id
	form.SubmitCmd = func() tea.Msg { return loginSubmitMsg{to: id} }
	form.CancelCmd = func() tea.Msg { return quitMsg{} }
	return form
}

func validateEmail(s string) error {
	if _, err := mail.ParseAddress(strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("enter a valid email address")
	}
	return nil
}

func (l *login) Init() tea.Cmd {
	return l.form.Init()
}

func (l *login) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case loginSubmitMsg:
		l.busy = true
		l.err = nil
		l.notice = ""
		return l.submit()

	case loginDoneMsg:
		l.busy = false
		if msg.err != nil {
			l.err = msg.err
			l.form = l.buildForm()
			return l.form.Init()
		}
		if msg.mode == modeReset {
			l.notice = msg.notice
			l.mode = modeSignIn
			l.form = l.buildForm()
			return l.form.Init()
		}
		// The dashboard guard sends teachers on to their landing page.
		to := guard.RouteStudentDashboard
		if session.Role(l.role).Is(session.RoleTeacher) && msg.mode == modeSignUp {
			to = guard.RouteTeacherDashboard
		}
		return func() tea.Msg { return navigateMsg{to: to} }
	}

	if l.busy {
		return nil
	}
	model, cmd := l.form.Update(msg)
	if f, ok := model.(*huh.Form); ok {
		l.form = f
	}
	return cmd
}

// submit runs the selected action off the update loop.
func (l *login) submit() tea.Cmd {
	e := l.env
	id, mode := l.id, l.mode
	email := strings.TrimSpace(l.email)
	password, username, role := l.password, strings.TrimSpace(l.username), l.role

	return func() tea.Msg {
		done := loginDoneMsg{to: id, mode: mode}
		switch mode {
		case modeReset:
			if err := e.auth.SendPasswordReset(e.ctx, email); err != nil {
				done.err = identity.Coded(err)
				return done
			}
			done.notice = "Password reset email sent to " + email
		case modeSignUp:
			p, err := e.auth.SignUp(e.ctx, email, password)
			if err != nil {
				done.err = identity.Coded(err)
				return done
			}
			err = e.backend.CreateUser(e.ctx, api.CreateUserRequest{
				UID:      p.UID,
				Email:    email,
				Username: username,
				Role:     strings.ToUpper(role),
			})
			if err != nil {
				done.err = api.Coded(err)
				return done
			}
			// The first lookup may have run before the profile existed.
			e.session.Retry()
		default:
			if _, err := e.auth.SignIn(e.ctx, email, password); err != nil {
				done.err = identity.Coded(err)
			}
		}
		return done
	}
}

func (l *login) View() string {
	s := l.env.styles
	var b strings.Builder
	if l.notice != "" {
		b.WriteString(s.Success.Render(l.notice) + "\n\n")
	}
	if l.err != nil {
		b.WriteString(s.errorBox(l.err, "") + "\n\n")
	}
	if l.busy {
		b.WriteString(s.Muted.Render("Contacting the server..."))
		return b.String()
	}
	b.WriteString(l.form.View())
	return b.String()
}

func (l *login) Close() {}
