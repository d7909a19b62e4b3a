package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"learnemg/internal/styles"

	"github.com/charmbracelet/lipgloss"
)

func (m *Model) RenderHistorySelector() string {
	totalPages := max((m.HistoryChatCount+HistoryPageSize-1)/HistoryPageSize, 1)
	title := styles.ModalTitleStyle.Render(fmt.Sprintf("Past Sessions (%d) - Page %d/%d", m.HistoryChatCount, m.HistoryPage+1, totalPages))

	var body string
	if m.HistoryErr != nil {
		body = lipgloss.NewStyle().Width(styles.ContentWidth).Render(styles.ErrorStyle.Render(fmt.Sprintf("Error: %v", m.HistoryErr)))
	} else if len(m.HistoryChats) == 0 {
		body = styles.ModalItemStyle.Render(lipgloss.NewStyle().Foreground(styles.HintColor).Render("No sessions yet"))
	} else {
		items := make([]string, 0, len(m.HistoryChats))
		for i, chat := range m.HistoryChats {
			isSelected := i == m.HistorySelectedIdx
			cursor := "  "
			if isSelected {
				cursor = "> "
			}
			timeStr := RelativeTime(time.Unix(chat.UpdatedAtUnix, 0))
			prompt := PromptPreview(chat.LastUserPrompt)
			if prompt == "" {
				prompt = "(no prompt)"
			}
			prompt = TruncateRunes(prompt, styles.ContentWidth-2-len(cursor)-1-len(timeStr))

			item := fmt.Sprintf("%s%s %s", cursor, prompt, lipgloss.NewStyle().Foreground(styles.HintColor).Render(timeStr))
			if isSelected {
				items = append(items, styles.ModalSelectedStyle.Render(item))
			} else {
				items = append(items, styles.ModalItemStyle.Render(item))
			}
		}
		body = lipgloss.JoinVertical(lipgloss.Left, items...)
	}

	return lipgloss.JoinVertical(lipgloss.Left, title, body, modalHint("↑/↓: navigate • ←/→: page • Enter: open • d: delete • Esc: close"))
}

func (m *Model) RenderModelSelector() string {
	title := styles.ModalTitleStyle.Render("Select Gemini Model")
	return lipgloss.JoinVertical(lipgloss.Left, title, m.ModelViewport.View(), modalHint("↑/↓: navigate • Enter: select • Esc: close"))
}

func (m *Model) RenderPanel() string {
	title := styles.ModalTitleStyle.Render(m.Panel.title)
	return lipgloss.JoinVertical(lipgloss.Left, title, m.Panel.view.View(), modalHint("↑/↓: scroll • Esc: close"))
}

func (m *Model) RenderShortcutsModal() string {
	title := styles.ModalTitleStyle.Render("Keyboard Shortcuts")

	shortcuts := []struct {
		key  string
		desc string
	}{
		{"Ctrl+O", "Open / close the companion"},
		{"Tab", "Switch between page and chat"},
		{"↑/↓ j/k", "Move the page cursor"},
		{"←/→ [/]", "Previous / next module"},
		{"v", "Start or drop a line selection"},
		{"Enter", "Explain the selection (tooltip)"},
		{"s", "Summarize the visible page"},
		{"Ctrl+P", "Switch persona"},
		{"Ctrl+N", "Fresh conversation"},
		{"Ctrl+B", "Select model"},
		{"Ctrl+H", "Past sessions"},
		{"@", "Attach an image (in chat)"},
		{"Ctrl+C", "Quit"},
	}

	keyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFCC80")).
		Bold(true).
		Width(12)
	descStyle := lipgloss.NewStyle().
		Foreground(styles.CurrentTheme.TextPrimary)

	items := make([]string, 0, len(shortcuts))
	for _, s := range shortcuts {
		items = append(items, styles.ModalItemStyle.Render(keyStyle.Render(s.key)+" "+descStyle.Render(s.desc)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, items...), modalHint("Esc/Enter: close"))
}

func modalHint(text string) string {
	return lipgloss.NewStyle().
		Foreground(styles.HintColor).
		Width(styles.ContentWidth).
		PaddingTop(1).
		Render(text)
}

func (m *Model) RenderBottomBar() string {
	p := m.Personas.Active()
	badge := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color(p.ThemeColor)).
		Padding(0, 1).
		Render(p.Glyph + " " + p.DisplayName)

	module := ""
	if m.Library != nil && m.Library.Len() > 0 {
		mod := m.Library.At(m.ModuleIdx)
		module = fmt.Sprintf("%d/%d %s", m.ModuleIdx+1, m.Library.Len(), TruncateRunes(mod.Title, 30))
	}
	moduleInfo := lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Render(module)

	model := lipgloss.NewStyle().Foreground(lipgloss.Color(p.ThemeColor)).Render(TruncateRunes(m.currentModel(), 25))

	leftSide := lipgloss.JoinHorizontal(lipgloss.Center, badge, "  ", moduleInfo, "  ", model)

	var right []string
	if m.Status != "" {
		right = append(right, styles.ErrorStyle.Render(TruncateRunes(m.Status, 40)))
	}
	if m.Engine.Busy() {
		right = append(right, lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Render(m.Engine.State().String()))
	}
	right = append(right, lipgloss.NewStyle().Foreground(lipgloss.Color("#555555")).Render("Help: ^S"))
	rightSide := strings.Join(right, "  ")

	spacer := strings.Repeat(" ", max(m.WindowWidth-lipgloss.Width(leftSide)-lipgloss.Width(rightSide)-2, 0))
	bar := lipgloss.JoinHorizontal(lipgloss.Center, leftSide, spacer, rightSide)

	return lipgloss.NewStyle().
		Width(m.WindowWidth).
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.CurrentTheme.Border).
		Padding(0, 1).
		Render(bar)
}

func (m *Model) RenderPendingImage() string {
	if m.PendingImage == "" {
		return ""
	}
	chip := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color(m.Personas.Active().ThemeColor)).
		Padding(0, 1).
		Render("🖼 " + filepath.Base(m.PendingImage))
	return lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Render("Attached: ") + chip
}

func (m *Model) RenderFileSuggestions() string {
	if !m.FileSuggestOpen || len(m.FileSuggestions) == 0 {
		return ""
	}

	accent := lipgloss.Color(m.Personas.Active().ThemeColor)
	suggestionStyle := lipgloss.NewStyle().Padding(0, 1)
	selectedStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(accent).
		Padding(0, 1)

	lines := []string{lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		Italic(true).
		Render("  Images (↑↓ to select, Tab/Enter to insert)")}
	for i, s := range m.FileSuggestions {
		if i == m.FileSuggestIdx {
			lines = append(lines, selectedStyle.Render("▸ "+s))
		} else {
			lines = append(lines, suggestionStyle.Render("  "+s))
		}
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
}

func (m *Model) renderPageColumn(width int) string {
	title := "Study"
	if m.Library != nil && m.Library.Len() > 0 {
		title = m.Library.At(m.ModuleIdx).Title
	}
	head := styles.TitleStyle.Render(TruncateRunes(title, max(width-4, 8)))
	return lipgloss.NewStyle().Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, head, m.PageView.View()))
}

func (m *Model) renderChatColumn(width int) string {
	var parts []string
	parts = append(parts, m.ChatView.View())
	if s := m.RenderPendingImage(); s != "" {
		parts = append(parts, s)
	}
	if s := m.RenderFileSuggestions(); s != "" {
		parts = append(parts, s)
	}
	parts = append(parts, styles.InputBoxStyle.Width(width-4).Render(m.TextInput.View()))

	head := styles.TitleStyle.Render(m.Personas.Active().DisplayName)
	col := lipgloss.JoinVertical(lipgloss.Left, append([]string{head}, parts...)...)
	return lipgloss.NewStyle().
		Width(width).
		BorderLeft(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.CurrentTheme.Border).
		Render(col)
}

func (m *Model) View() string {
	if m.WindowWidth == 0 {
		return ""
	}

	var body string
	switch {
	case !m.CompanionOpen:
		body = m.renderPageColumn(m.WindowWidth)
	case m.WindowWidth < CompactWidthThresh:
		body = m.renderChatColumn(m.WindowWidth - 1)
	default:
		pageWidth := m.WindowWidth * 55 / 100
		body = lipgloss.JoinHorizontal(lipgloss.Top,
			m.renderPageColumn(pageWidth),
			m.renderChatColumn(m.WindowWidth-pageWidth-1),
		)
	}
	content := lipgloss.JoinVertical(lipgloss.Left, body, m.RenderBottomBar())

	var modal string
	switch {
	case m.Panel.open:
		modal = m.RenderPanel()
	case m.HistoryOpen:
		modal = m.RenderHistorySelector()
	case m.ModelSelectorOpen:
		modal = m.RenderModelSelector()
	case m.ShortcutsOpen:
		modal = m.RenderShortcutsModal()
	default:
		return content
	}
	modal = styles.ModalStyle.Width(ModalWidth).Render(modal)
	return lipgloss.Place(m.WindowWidth, m.WindowHeight, lipgloss.Center, lipgloss.Center, modal)
}
