package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/maykaila/memora/internal/api"
	"github.com/maykaila/memora/internal/session"
)

func describeClass(c api.Class) (string, string) {
	desc := fmt.Sprintf("%d students · %d decks", len(c.StudentIDs), len(c.DeckIDs))
	if c.Code != "" {
		desc += " · code " + c.Code
	}
	if c.Description != "" {
		desc += " · " + c.Description
	}
	return c.Name, desc
}

// newClasses lists classes. Teachers manage their own, students see the ones
// they joined and can join more.
func newClasses(e *env, role session.Role) *collection[api.Class] {
	spec := collectionSpec[api.Class]{
		title:    "Classes",
		resource: "class",
		key:      api.Class.Key,
		describe: describeClass,
		fetch:    e.backend.ListClasses,
		poll:     true,
		empty:    "No classes yet.",
	}
	if role.Is(session.RoleTeacher) {
		spec.remove = e.backend.DeleteClass
		spec.open = func(c api.Class) Screen {
			return e.guarded(role, newStudents(e, c))
		}
		spec.reorder = true
		spec.empty = "No classes yet. Create one with 'memora classes create'."
	} else {
		spec.title = "My classes"
		spec.actions = []keyAction[api.Class]{{
			key:  "j",
			help: "join",
			run: func(*collection[api.Class]) tea.Cmd {
				return push(e.guarded(role, newJoinClass(e)))
			},
		}}
		spec.empty = "You have not joined a class. Press j to join one with a code."
	}
	return newCollection(e, spec)
}

func newStudents(e *env, c api.Class) *collection[api.Student] {
	return newCollection(e, collectionSpec[api.Student]{
		title:    "Students in " + c.Name,
		resource: "student",
		key:      api.Student.Key,
		describe: func(s api.Student) (string, string) {
			name := s.Username
			if name == "" {
				name = s.UID
			}
			return name, s.Email
		},
		fetch: func(ctx context.Context) ([]api.Student, error) {
			return e.backend.ListStudents(ctx, c.ID)
		},
		poll:  true,
		empty: "No students have joined yet. Share the class code " + c.Code + ".",
	})
}

type joinedMsg struct {
	to  screenID
	err error
}

func (m joinedMsg) target() screenID { return m.to }

// joinClass asks for a class code.
type joinClass struct {
	id    screenID
	env   *env
	input textinput.Model
	busy  bool
	err   error
}

func newJoinClass(e *env) *joinClass {
	in := textinput.New()
	in.Placeholder = "class code"
	in.CharLimit = 32
	return &joinClass{id: e.nextID(), env: e, input: in}
}

func (j *joinClass) ID() screenID { return j.id }

func (j *joinClass) Init() tea.Cmd {
	return tea.Batch(j.input.Focus(), textinput.Blink)
}

func (j *joinClass) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case joinedMsg:
		j.busy = false
		if msg.err != nil {
			j.err = msg.err
			return nil
		}
		return pop
	case tea.KeyMsg:
		if j.busy {
			return nil
		}
		switch msg.String() {
		case "esc":
			return pop
		case "enter":
			code := strings.TrimSpace(j.input.Value())
			if code == "" {
				return nil
			}
			j.busy = true
			j.err = nil
			e, id := j.env, j.id
			return func() tea.Msg {
				return joinedMsg{to: id, err: api.Coded(e.backend.JoinClass(e.ctx, code))}
			}
		}
	}
	var cmd tea.Cmd
	j.input, cmd = j.input.Update(msg)
	return cmd
}

func (j *joinClass) View() string {
	s := j.env.styles
	var b strings.Builder
	b.WriteString(s.Title.Render("Join a class"))
	b.WriteString("\n")
	b.WriteString(j.input.View())
	b.WriteString("\n\n")
	if j.busy {
		b.WriteString(s.Muted.Render("Joining..."))
		b.WriteString("\n")
	}
	if j.err != nil {
		b.WriteString(s.errorBox(j.err, ""))
		b.WriteString("\n")
	}
	b.WriteString(s.helpLine("enter", "join", "esc", "back"))
	return b.String()
}

func (j *joinClass) Close() {}
