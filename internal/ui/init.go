package ui

import (
	"log/slog"

	"learnemg/internal/companion"
	"learnemg/internal/models"
	"learnemg/internal/persona"
	"learnemg/internal/styles"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

func New(opts Options) *Model {
	if opts.Personas == nil {
		opts.Personas = persona.NewManager()
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}

	ti := textarea.New()
	ti.Placeholder = "Ask about the page, or /help"
	ti.Prompt = "❯ "
	ti.ShowLineNumbers = false
	ti.CharLimit = 0
	ti.MaxHeight = 6
	ti.SetHeight(2)
	ti.SetWidth(60)
	ti.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(styles.HintColor)
	ti.BlurredStyle.Placeholder = lipgloss.NewStyle().Foreground(styles.HintColor)
	ti.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ti.BlurredStyle.CursorLine = lipgloss.NewStyle()
	ti.Blur()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := &Model{
		Personas:      opts.Personas,
		Library:       opts.Library,
		Watcher:       opts.Watcher,
		Gen:           opts.Deps.Generator,
		Lister:        opts.Lister,
		DB:            opts.DB,
		DBErr:         opts.DBErr,
		log:           opts.Log.With("component", "ui"),
		PageView:      viewport.New(80, 20),
		ChatView:      viewport.New(50, 20),
		ModelViewport: viewport.New(ModalWidth-4, 15),
		TextInput:     ti,
		Spinner:       sp,
		Panel:         panel{view: viewport.New(ModalWidth-4, 15)},
		pageStyle:     styles.CurrentTheme.PageStyle,
	}

	deps := opts.Deps
	deps.Personas = opts.Personas
	deps.Panel = m
	deps.Content = m
	if deps.Log == nil {
		deps.Log = opts.Log
	}
	m.Engine = companion.New(deps, opts.Settings)

	m.unsubscribe = opts.Personas.Subscribe(m.applyPersona)
	return m
}

// applyPersona re-themes everything tinted by the active persona.
func (m *Model) applyPersona(p models.Persona) {
	styles.ApplyPersona(p)
	accent := lipgloss.NewStyle().Foreground(lipgloss.Color(p.ThemeColor)).Bold(true)
	m.TextInput.FocusedStyle.Prompt = accent
	m.TextInput.BlurredStyle.Prompt = accent
	m.Spinner.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(p.ThemeColor))
	if m.WindowWidth > 0 {
		m.refreshChat()
	}
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.Spinner.Tick}
	if m.Watcher != nil {
		cmds = append(cmds, m.Watcher.Next())
	}
	return tea.Batch(cmds...)
}

// Close releases the persona subscription and the module watcher.
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	if m.Watcher != nil {
		m.Watcher.Close()
	}
}

func NewProgram(m *Model) *tea.Program {
	return tea.NewProgram(m, tea.WithAltScreen())
}
