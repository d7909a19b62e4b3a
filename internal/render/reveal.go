package render

import (
	"strings"
	"time"
	"unicode"

	tea "github.com/charmbracelet/bubbletea"
)

// DefaultRevealDelay is the pause between typewriter steps.
const DefaultRevealDelay = 18 * time.Millisecond

// RevealMsg schedules one typewriter step. Steps carrying a generation
// older than the Reveal's current one are stale and ignored.
type RevealMsg struct {
	Gen uint64
}

// Reveal discloses a token sequence one step at a time. Only one reveal is
// live; starting another, cancelling or flushing bumps the generation so
// any step already scheduled becomes a no-op.
type Reveal struct {
	Delay time.Duration

	gen    uint64
	target int
	tokens []Token
	pos    int
	shown  strings.Builder
	active bool
}

func NewReveal(delay time.Duration) *Reveal {
	if delay <= 0 {
		delay = DefaultRevealDelay
	}
	return &Reveal{Delay: delay}
}

// Start begins revealing tokens into target, cancelling any reveal in
// progress.
func (r *Reveal) Start(target int, tokens []Token) tea.Cmd {
	r.gen++
	r.target = target
	r.tokens = tokens
	r.pos = 0
	r.shown.Reset()
	r.active = len(tokens) > 0
	if !r.active {
		return nil
	}
	return r.schedule()
}

func (r *Reveal) schedule() tea.Cmd {
	gen := r.gen
	return tea.Tick(r.Delay, func(time.Time) tea.Msg {
		return RevealMsg{Gen: gen}
	})
}

// Step applies msg. ok is false for stale messages.
func (r *Reveal) Step(msg RevealMsg) (cmd tea.Cmd, ok bool) {
	if !r.active || msg.Gen != r.gen {
		return nil, false
	}
	r.advance()
	if r.pos >= len(r.tokens) {
		r.active = false
		return nil, true
	}
	return r.schedule(), true
}

// advance appends any leading tags and then one visible token. A
// whitespace token takes the following word with it.
func (r *Reveal) advance() {
	for r.pos < len(r.tokens) && r.tokens[r.pos].IsTag {
		r.shown.WriteString(r.tokens[r.pos].Text)
		r.pos++
	}
	if r.pos >= len(r.tokens) {
		return
	}
	tok := r.tokens[r.pos]
	r.shown.WriteString(tok.Text)
	r.pos++
	if isBlank(tok.Text) && r.pos < len(r.tokens) && !r.tokens[r.pos].IsTag {
		r.shown.WriteString(r.tokens[r.pos].Text)
		r.pos++
	}
	for r.pos < len(r.tokens) && r.tokens[r.pos].IsTag && isClosing(r.tokens[r.pos].Text) {
		r.shown.WriteString(r.tokens[r.pos].Text)
		r.pos++
	}
}

// Cancel abandons the current reveal, leaving Text as it is.
func (r *Reveal) Cancel() {
	r.gen++
	r.active = false
}

// Flush completes the current reveal immediately and returns the full text.
func (r *Reveal) Flush() string {
	for ; r.pos < len(r.tokens); r.pos++ {
		r.shown.WriteString(r.tokens[r.pos].Text)
	}
	r.Cancel()
	return r.shown.String()
}

// Text is everything revealed so far.
func (r *Reveal) Text() string { return r.shown.String() }

// Target is the id passed to Start.
func (r *Reveal) Target() int { return r.target }

// Active reports whether steps are still pending.
func (r *Reveal) Active() bool { return r.active }

// Gen is the current generation.
func (r *Reveal) Gen() uint64 { return r.gen }

func isBlank(s string) bool {
	return strings.TrimFunc(s, unicode.IsSpace) == ""
}

func isClosing(tag string) bool {
	return strings.HasPrefix(tag, "</") || tag == "\x1b[0m" || tag == "\x1b[m"
}
