package ui

import (
	"strings"

	"learnemg/internal/models"
	"learnemg/internal/persona"
	"learnemg/internal/render"
	"learnemg/internal/styles"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// refreshChat redraws the conversation. A new bubble always scrolls to the
// bottom; a reply that is still revealing is followed only while the reader
// sits near the bottom.
func (m *Model) refreshChat() {
	v := &m.ChatView
	follow := v.TotalLineCount()-(v.YOffset+v.Height) <= FollowSlack
	tail := 0
	if entries := m.Engine.Conv.Entries(); len(entries) > 0 {
		tail = entries[len(entries)-1].ID
	}
	if tail != m.chatTail {
		m.chatTail = tail
		follow = true
	}
	v.SetContent(m.chatContent())
	if follow {
		v.GotoBottom()
	}
}

func (m *Model) chatContent() string {
	entries := m.Engine.Conv.Entries()
	if len(entries) == 0 {
		return m.welcome()
	}

	reveal := m.Engine.Reveal
	width := m.ChatView.Width
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Role == models.RoleUser {
			parts = append(parts, FormatUserMessage(e.Text, width))
			continue
		}
		p, ok := persona.Lookup(e.PersonaID)
		if !ok {
			p = m.Personas.Active()
		}
		var body string
		switch {
		case e.Loading:
			body = m.Spinner.View() + " " + styles.LoadingStyle.Render(e.Text)
		case e.Notice:
			parts = append(parts, styles.NoticeStyle.Width(max(width-2, 10)).Render(e.Text))
			continue
		case reveal.Active() && reveal.Target() == e.ID:
			body = reveal.Text()
		default:
			body = m.Engine.RenderEntry(e)
		}
		parts = append(parts, FormatAIMessage(p, body))
	}
	return strings.Join(parts, "\n\n")
}

func (m *Model) welcome() string {
	p := m.Personas.Active()
	name := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(p.ThemeColor)).Render(p.Glyph + " " + p.DisplayName)
	hint := lipgloss.NewStyle().Foreground(styles.HintColor).Width(max(m.ChatView.Width-4, 10)).Align(lipgloss.Center).
		Render("Mark lines on the page with v and press enter on the tooltip, or ask anything below. /help lists commands.")
	content := lipgloss.JoinVertical(lipgloss.Center, name+" is on call.", "", hint)
	return lipgloss.Place(m.ChatView.Width, m.ChatView.Height, lipgloss.Center, lipgloss.Center, content)
}

// setCompanionOpen shows or hides the companion column and moves focus.
func (m *Model) setCompanionOpen(open bool) tea.Cmd {
	m.CompanionOpen = open
	if open {
		m.setFocus(focusChat)
	} else {
		m.setFocus(focusPage)
	}
	m.updateLayout()
	return m.Engine.SetPanelOpen(open)
}

func (m *Model) setFocus(f focus) {
	m.Focus = f
	if f == focusChat {
		m.TextInput.Focus()
	} else {
		m.TextInput.Blur()
		m.FileSuggestOpen = false
	}
	m.refreshPage()
}

// submitInput sends the chat box to the companion.
func (m *Model) submitInput() tea.Cmd {
	input := m.TextInput.Value()
	if strings.TrimSpace(input) == "" {
		return nil
	}
	if m.Engine.Busy() && !strings.HasPrefix(strings.TrimSpace(input), "/") {
		m.Status = "Still waiting on the last answer."
		return nil
	}

	text, imagePath := ExtractImageMention(input)
	var image *models.Attachment
	if imagePath != "" {
		att, err := LoadAttachment(imagePath)
		if err != nil {
			m.Status = err.Error()
			return nil
		}
		image = att
	}

	m.Status = ""
	m.TextInput.Reset()
	m.FileSuggestOpen = false
	m.updateLayout()
	cmd := m.Engine.Submit(text, image)
	m.refreshChat()
	m.ChatView.GotoBottom()
	return cmd
}

// updateLayout sizes the page, chat and input for the window.
func (m *Model) updateLayout() {
	if m.WindowWidth == 0 || m.WindowHeight == 0 {
		return
	}
	const titleHeight, barHeight = 1, 2
	bodyHeight := max(m.WindowHeight-titleHeight-barHeight, 5)

	pageWidth := m.WindowWidth
	chatWidth := 0
	if m.CompanionOpen {
		if m.WindowWidth < CompactWidthThresh {
			pageWidth = 0
			chatWidth = m.WindowWidth
		} else {
			pageWidth = m.WindowWidth * 55 / 100
			chatWidth = m.WindowWidth - pageWidth - 1
		}
	}

	if pageWidth > 0 {
		m.PageView.Width = pageWidth - 2
		m.PageView.Height = bodyHeight
		m.resizePages(pageWidth - 6)
	}

	if chatWidth > 0 {
		inputWidth := max(chatWidth-6, 20)
		lineCount := min(max(WrappedLineCount(m.TextInput.Value(), inputWidth-2), 1), 6)
		m.TextInput.SetWidth(inputWidth)
		m.TextInput.SetHeight(lineCount)

		m.ChatView.Width = chatWidth - 2
		m.ChatView.Height = max(bodyHeight-(lineCount+2)-1, 3)

		width := m.ChatView.Width - 4
		m.Engine.SetRenderer(func(text string, p models.Persona) string {
			return render.Terminal(render.Parse(text), width, render.DefaultTermStyles(p.ThemeColor))
		})
		m.refreshChat()
	}

	ModalWidth = min(max(m.WindowWidth-10, 30), 72)
	styles.SetContentWidth(ModalWidth - 6)
	m.ModelViewport.Width = styles.ContentWidth
	m.ModelViewport.Height = min(max(m.WindowHeight-15, 5), 20)
	m.Panel.view.Width = styles.ContentWidth
	m.Panel.view.Height = max(m.WindowHeight-12, 5)
}
