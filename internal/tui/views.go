package tui

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/maykaila/memora/internal/errors"
	"github.com/maykaila/memora/internal/session"
)

// renderHeader renders the title bar with the signed-in account.
func (m *Model) renderHeader() string {
	s := m.env.styles
	title := s.Title.UnsetMarginBottom().Render("Memora")

	var who string
	switch m.snapshot.Status {
	case session.StatusSignedOut:
		who = s.Muted.Render("not signed in")
	case session.StatusResolved:
		who = s.Subtitle.Render(fmt.Sprintf("%s (%s)", m.snapshot.Email, m.snapshot.Role))
	case session.StatusFailed:
		who = s.Subtitle.Render(m.snapshot.Email) + " " + s.Error.Render("role unknown")
	default:
		who = s.Subtitle.Render(m.snapshot.Email) + " " + s.Muted.Render("...")
	}
	return title + "  " + who
}

// errorText is the one-line form of err for the screen.
func errorText(err error) string {
	if err == nil {
		return ""
	}
	var memErr *errors.MemoraError
	if stderrors.As(err, &memErr) {
		msg := fmt.Sprintf("[%s] %s", memErr.Code, memErr.Message)
		if memErr.Cause != nil {
			msg += ": " + firstLine(memErr.Cause.Error())
		}
		return msg
	}
	return firstLine(err.Error())
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// truncate shortens s to n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
