package companion

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	DefaultSelectionDebounce = 300 * time.Millisecond
	DefaultSelectionMinLen   = 3
)

// Anchor is where a selection ends on screen; the tooltip goes just below.
type Anchor struct {
	Line int
	Col  int
}

// SelectionMsg is a debounced selection change settling.
type SelectionMsg struct {
	Epoch uint64
}

// SelectionTooltip offers to explain selected study text.
type SelectionTooltip struct {
	Debounce time.Duration
	MinLen   int

	epoch   uint64
	pending string
	at      Anchor
	visible bool
}

func NewSelectionTooltip(debounce time.Duration, minLen int) *SelectionTooltip {
	if debounce <= 0 {
		debounce = DefaultSelectionDebounce
	}
	if minLen < 1 {
		minLen = DefaultSelectionMinLen
	}
	return &SelectionTooltip{Debounce: debounce, MinLen: minLen}
}

// Changed records a new selection, hides the tooltip and starts the
// debounce.
func (s *SelectionTooltip) Changed(text string, at Anchor) tea.Cmd {
	s.epoch++
	s.pending = text
	s.at = at
	s.visible = false
	epoch := s.epoch
	return tea.Tick(s.Debounce, func(time.Time) tea.Msg {
		return SelectionMsg{Epoch: epoch}
	})
}

// Settle shows the tooltip if msg is the latest change, the selection is
// long enough and no request is in flight.
func (s *SelectionTooltip) Settle(msg SelectionMsg, busy bool) bool {
	if msg.Epoch != s.epoch || busy {
		return false
	}
	s.visible = utf8.RuneCountInString(strings.TrimSpace(s.pending)) > s.MinLen
	return s.visible
}

// Hide dismisses the tooltip and forgets the selection.
func (s *SelectionTooltip) Hide() {
	s.epoch++
	s.visible = false
	s.pending = ""
}

func (s *SelectionTooltip) Visible() bool { return s.visible }

func (s *SelectionTooltip) Anchor() Anchor { return s.at }

func (s *SelectionTooltip) Text() string { return strings.TrimSpace(s.pending) }

// Activate hides the tooltip and returns the selected text. ok is false when
// no tooltip was showing.
func (s *SelectionTooltip) Activate() (string, bool) {
	if !s.visible {
		return "", false
	}
	text := s.Text()
	s.Hide()
	return text, true
}

// SelectionQuery wraps app-authored text so the model treats it as course
// material rather than the user's own writing.
func SelectionQuery(text string) (display, context string) {
	display = fmt.Sprintf("Explain: %q", text)
	context = "The following passage was selected from the study application's own instructional text. " +
		"It was written by the course authors, not by the user, so do not critique or mock its wording. " +
		"Explain what it means in the context of EMG and nerve conduction studies.\n\n" +
		"Passage: \"" + text + "\""
	return display, context
}
