package ui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"learnemg/internal/companion"
	"learnemg/internal/config"
	"learnemg/internal/content"
	"learnemg/internal/gemini"
	"learnemg/internal/logging"
	"learnemg/internal/models"
	"learnemg/internal/persona"
	"learnemg/internal/render"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGen struct {
	model string
	calls []gemini.Request
}

func (g *stubGen) Generate(_ context.Context, req gemini.Request) (string, error) {
	g.calls = append(g.calls, req)
	return "The **median nerve** is compressed.", nil
}

func (g *stubGen) DiscoverWorkingModel(context.Context) (string, error) { return "", nil }

func (g *stubGen) SetModel(id string) error {
	g.model = id
	return nil
}

func (g *stubGen) Model() string { return g.model }

func (g *stubGen) HasCredential() bool { return true }

func (g *stubGen) SetAPIKey(string) error { return nil }

func newTestModel(t *testing.T) (*Model, *stubGen) {
	t.Helper()
	lib, err := content.Load("")
	require.NoError(t, err)

	settings := config.Default().Companion
	settings.SelectionDebounce = config.Duration{Duration: time.Millisecond}
	settings.RevealDelay = config.Duration{Duration: time.Millisecond}
	settings.IdleTimeout = config.Duration{Duration: time.Millisecond}
	settings.LoadingInterval = config.Duration{Duration: time.Millisecond}

	gen := &stubGen{model: "gemini-2.0-flash"}
	m := New(Options{
		Library:  lib,
		Personas: persona.NewManager(),
		Deps:     companion.Deps{Generator: gen},
		Settings: settings,
		Log:      logging.Discard(),
	})
	t.Cleanup(m.Close)

	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m, gen
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// run executes cmd and every command it batches, returning the messages
// that are not batches.
func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, run(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func TestPageLoadsOnResize(t *testing.T) {
	m, _ := newTestModel(t)

	require.NotEmpty(t, m.Page.Lines)
	assert.Contains(t, m.VisibleText(), "Nerve Conduction Basics")
	assert.Contains(t, m.View(), "1/3")

	m.Update(key("]"))
	assert.Equal(t, 1, m.ModuleIdx)
	assert.Contains(t, m.VisibleText(), "Carpal Tunnel Syndrome")
}

func TestSelectionTooltipAsksCompanion(t *testing.T) {
	m, gen := newTestModel(t)

	m.Update(key("v"))
	var last tea.Cmd
	for i := 0; i < 4; i++ {
		_, last = m.Update(key("j"))
	}
	require.True(t, m.Sel.active)

	for _, msg := range run(last) {
		if sel, ok := msg.(companion.SelectionMsg); ok {
			m.Update(sel)
		}
	}
	require.True(t, m.Engine.Selection.Visible())
	assert.Contains(t, m.View(), "Explain this")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, m.CompanionOpen)
	assert.True(t, m.Engine.PanelOpen())
	assert.False(t, m.Sel.active)

	entries := m.Engine.Conv.Entries()
	require.NotEmpty(t, entries)
	assert.True(t, strings.HasPrefix(entries[0].Text, "Explain: "))

	for _, msg := range run(cmd) {
		m.Update(msg)
	}
	require.Len(t, gen.calls, 1)
	assert.Contains(t, gen.calls[0].History[0].ContextText, "not by the user")
}

func TestCompanionToggleAndFocus(t *testing.T) {
	m, _ := newTestModel(t)

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlO})
	assert.True(t, m.CompanionOpen)
	assert.Equal(t, focusChat, m.Focus)
	assert.Contains(t, m.View(), "is on call")

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, focusPage, m.Focus)

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlO})
	assert.False(t, m.CompanionOpen)
	assert.False(t, m.Engine.PanelOpen())
}

func TestChatFollowsNewBubblesButNotRevealSteps(t *testing.T) {
	m, _ := newTestModel(t)
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlO})
	for i := 0; i < 12; i++ {
		m.Engine.Conv.Add(models.RoleUser, "", strings.Repeat("nerve conduction ", 20), "")
	}
	entry := m.Engine.Conv.Add(models.RoleAssistant, persona.MentorID, "", "")
	m.Engine.Reveal.Start(entry.ID, render.TokenizeANSI(strings.Repeat("latency ", 300)))
	m.refreshChat()
	require.True(t, m.ChatView.AtBottom())
	require.Greater(t, m.ChatView.YOffset, FollowSlack)

	m.ChatView.SetYOffset(0)
	m.Update(render.RevealMsg{Gen: m.Engine.Reveal.Gen()})
	assert.Zero(t, m.ChatView.YOffset, "a reveal step leaves a scrolled-up reader in place")

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlP})
	assert.True(t, m.ChatView.AtBottom(), "a new bubble scrolls to the bottom")
}

func TestPersonaSwitchRethemes(t *testing.T) {
	m, _ := newTestModel(t)
	before := m.Personas.Active()

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlP})
	after := m.Personas.Active()
	assert.NotEqual(t, before.ID, after.ID)
	assert.Contains(t, m.RenderBottomBar(), after.DisplayName)
}

func TestShowSanitizesPanel(t *testing.T) {
	m, _ := newTestModel(t)
	m.Show("Connect", "<p>Paste your key</p><script>alert(1)</script>")

	assert.True(t, m.Panel.open)
	view := m.View()
	assert.Contains(t, view, "Paste your key")
	assert.NotContains(t, view, "alert")

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.Panel.open)
}

func TestTranscriptMarkdown(t *testing.T) {
	md := TranscriptMarkdown(
		models.ChatListItem{PersonaID: persona.GrumpID},
		[]models.DBMessage{
			{Role: models.RoleUser, DisplayText: "why 60Hz"},
			{Role: models.RoleAssistant, DisplayText: "Ground your patient."},
		},
	)
	assert.Equal(t, "### You\nwhy 60Hz\n\n### Dr. Grimsby\nGround your patient.", md)
}

func TestExtractImageMention(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "scan.png")
	require.NoError(t, os.WriteFile(img, append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...), 0o644))

	clean, path := ExtractImageMention("what is this @" + img + " waveform")
	assert.Equal(t, "what is this waveform", clean)
	assert.Equal(t, img, path)

	clean, path = ExtractImageMention("email me @someone")
	assert.Equal(t, "email me @someone", clean)
	assert.Empty(t, path)

	att, err := LoadAttachment(img)
	require.NoError(t, err)
	assert.Equal(t, "image/png", att.MIMEType)

	txt := filepath.Join(dir, "notes.png")
	require.NoError(t, os.WriteFile(txt, []byte("plain words"), 0o644))
	_, err = LoadAttachment(txt)
	assert.ErrorContains(t, err, "not an image")
}

func TestImageSuggestions(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "scans"), 0o755))
	for _, name := range []string{"scans/median.png", "scans/ulnar.jpg", "notes.md", "wave.gif"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	assert.Equal(t, []string{"wave.gif", "scans/median.png"}, GetImageSuggestions(dir, "e"))
	assert.Equal(t, []string{"scans/ulnar.jpg"}, GetImageSuggestions(dir, "scans/u"))
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, 1, WrappedLineCount("", 10))
	assert.Equal(t, 3, WrappedLineCount("abcdefghijk\nx", 10))
	assert.Equal(t, "abc…", TruncateRunes("abcdef", 4))
	assert.Equal(t, "a b c", PromptPreview("  a\n b\r\n c "))

	prefix, start, ok := GetAtPosition("see @sca", 8)
	require.True(t, ok)
	assert.Equal(t, "sca", prefix)
	assert.Equal(t, 4, start)
	_, _, ok = GetAtPosition("see sca", 7)
	assert.False(t, ok)

	row, col := TextareaCursorFromIndex("ab\ncdé", 5)
	assert.Equal(t, 1, row)
	assert.Equal(t, 2, col)

	assert.Equal(t, "just now", relativeTime(10*time.Second))
	assert.Equal(t, "1 min ago", relativeTime(time.Minute))
	assert.Equal(t, "3 hrs ago", relativeTime(3*time.Hour))
	assert.Equal(t, "2 weeks ago", relativeTime(15*24*time.Hour))
}
