package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/maykaila/memora/internal/guard"
	"github.com/maykaila/memora/internal/session"
)

// eventMsg wraps a message that arrived through the event channel.
type eventMsg struct{ msg tea.Msg }

// sessionMsg carries a published session snapshot.
type sessionMsg struct{ snapshot session.Snapshot }

// navigateMsg replaces the stack, sent by guard redirects.
type navigateMsg struct{ to guard.Route }

type pushMsg struct{ screen Screen }

type popMsg struct{}

type quitMsg struct{}

// resumeMsg is sent to a screen that becomes the top again.
type resumeMsg struct{}

// guardMsg carries a guard decision to its protected screen.
type guardMsg struct {
	to     screenID
	result guard.Result
}

func (m guardMsg) target() screenID { return m.to }

// routed screens are navigation targets.
type routed interface {
	route() guard.Route
}

func push(s Screen) tea.Cmd {
	return func() tea.Msg { return pushMsg{screen: s} }
}

func pop() tea.Msg { return popMsg{} }
