package tui

import (
	"fmt"
	"math/rand/v2"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/maykaila/memora/internal/api"
)

// study flips through cards one at a time.
type study struct {
	id      screenID
	env     *env
	title   string
	cards   []api.Card
	index   int
	flipped bool
	known   map[string]bool
}

func newStudy(e *env, title string, cards []api.Card) *study {
	return &study{
		id:    e.nextID(),
		env:   e,
		title: title,
		cards: cards,
		known: make(map[string]bool),
	}
}

func (s *study) ID() screenID  { return s.id }
func (s *study) Init() tea.Cmd { return nil }

func (s *study) Update(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if !ok || len(s.cards) == 0 {
		if ok && (key.String() == "esc" || key.String() == "q") {
			return pop
		}
		return nil
	}
	switch key.String() {
	case " ", "enter", "f":
		s.flipped = !s.flipped
	case "right", "n", "l":
		s.step(1)
	case "left", "p", "h":
		s.step(-1)
	case "k":
		s.known[s.cards[s.index].ID] = true
		s.step(1)
	case "x":
		rand.Shuffle(len(s.cards), func(i, j int) { s.cards[i], s.cards[j] = s.cards[j], s.cards[i] })
		s.index = 0
		s.flipped = false
	case "esc", "q":
		return pop
	}
	return nil
}

func (s *study) step(delta int) {
	s.index = (s.index + delta + len(s.cards)) % len(s.cards)
	s.flipped = false
}

func (s *study) View() string {
	st := s.env.styles
	var b strings.Builder
	b.WriteString(st.Title.Render("Study: " + s.title))
	b.WriteString("\n")

	if len(s.cards) == 0 {
		b.WriteString(st.Muted.Render("This deck has no cards."))
		b.WriteString("\n")
		b.WriteString(st.helpLine("esc", "back"))
		return b.String()
	}

	card := s.cards[s.index]
	face, label := card.Term, "term"
	if s.flipped {
		face, label = card.Definition, "definition"
	}
	b.WriteString(st.Muted.Render(fmt.Sprintf("Card %d of %d · %s · %d known", s.index+1, len(s.cards), label, len(s.known))))
	b.WriteString("\n")
	b.WriteString(st.Card.Render(face))
	b.WriteString("\n")
	b.WriteString(st.helpLine("space", "flip", "←/→", "prev/next", "k", "known", "x", "shuffle", "esc", "back"))
	return b.String()
}

func (s *study) Close() {}

type studyLoadedMsg struct {
	to    screenID
	title string
	cards []api.Card
	err   error
}

func (m studyLoadedMsg) target() screenID { return m.to }

// studyLoader fetches a deck by id and then behaves like study.
type studyLoader struct {
	id     screenID
	env    *env
	deckID string
	study  *study
	err    error
}

func newStudyLoader(e *env, deckID string) *studyLoader {
	return &studyLoader{id: e.nextID(), env: e, deckID: deckID}
}

func (l *studyLoader) ID() screenID { return l.id }

func (l *studyLoader) Init() tea.Cmd {
	e, id, deckID := l.env, l.id, l.deckID
	return func() tea.Msg {
		deck, err := e.backend.GetDeck(e.ctx, deckID)
		if err != nil {
			return studyLoadedMsg{to: id, err: api.Coded(err)}
		}
		cards, err := e.backend.ListCards(e.ctx, deckID)
		return studyLoadedMsg{to: id, title: deck.Title, cards: cards, err: api.Coded(err)}
	}
}

func (l *studyLoader) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case studyLoadedMsg:
		l.err = msg.err
		if msg.err == nil {
			l.study = newStudy(l.env, msg.title, msg.cards)
		}
		return nil
	case tea.KeyMsg:
		if l.study != nil {
			if s := msg.String(); s == "esc" || s == "q" {
				return func() tea.Msg { return quitMsg{} }
			}
			return l.study.Update(msg)
		}
		switch msg.String() {
		case "r":
			l.err = nil
			return l.Init()
		case "esc", "q":
			return func() tea.Msg { return quitMsg{} }
		}
	}
	return nil
}

func (l *studyLoader) View() string {
	s := l.env.styles
	switch {
	case l.err != nil:
		return s.errorBox(l.err, "Press r to try again.") + "\n" + s.helpLine("r", "retry", "q", "quit")
	case l.study == nil:
		return s.Muted.Render("Loading cards...")
	default:
		return l.study.View()
	}
}

func (l *studyLoader) Close() {}
