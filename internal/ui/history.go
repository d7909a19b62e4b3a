package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"learnemg/internal/db"
	"learnemg/internal/models"
	"learnemg/internal/persona"
	"learnemg/internal/render"
	"learnemg/internal/styles"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

func (m *Model) RefreshHistoryFromDB() {
	m.HistoryErr = nil
	m.HistoryChats = nil
	m.HistorySelectedIdx = 0

	if m.DBErr != nil {
		m.HistoryErr = m.DBErr
		return
	}
	if m.DB == nil {
		m.HistoryErr = fmt.Errorf("history database not initialized")
		return
	}

	count, chats, err := db.GetRecentChats(m.DB, HistoryPageSize, m.HistoryPage*HistoryPageSize)
	if err != nil {
		m.HistoryErr = err
		return
	}
	m.HistoryChatCount = count
	m.HistoryChats = chats
}

// TranscriptMarkdown formats a stored chat for the document panel.
func TranscriptMarkdown(chat models.ChatListItem, msgs []models.DBMessage) string {
	p, ok := persona.Lookup(chat.PersonaID)
	if !ok {
		p = persona.Registry[0]
	}
	var b strings.Builder
	for _, msg := range msgs {
		who := "You"
		if msg.Role == models.RoleAssistant {
			who = p.DisplayName
		}
		fmt.Fprintf(&b, "### %s\n%s\n\n", who, msg.DisplayText)
	}
	return strings.TrimSpace(b.String())
}

// openTranscript shows a past chat read-only in the document panel.
func (m *Model) openTranscript(chat models.ChatListItem) error {
	if m.DB == nil {
		return fmt.Errorf("history database not initialized")
	}
	msgs, err := db.GetChatMessages(m.DB, chat.ID)
	if err != nil {
		return err
	}
	title := fmt.Sprintf("Transcript · %s · %s", chat.ModelID, RelativeTime(time.Unix(chat.UpdatedAtUnix, 0)))
	m.Show(title, render.Render(TranscriptMarkdown(chat, msgs)))
	return nil
}

func (m *Model) deleteSelectedChat() {
	if m.DB == nil || len(m.HistoryChats) == 0 {
		return
	}
	chat := m.HistoryChats[m.HistorySelectedIdx]
	if err := db.DeleteChat(m.DB, chat.ID); err != nil {
		m.HistoryErr = err
		return
	}
	m.log.Info("chat deleted", "chat", chat.ID)
	m.RefreshHistoryFromDB()
	if len(m.HistoryChats) == 0 && m.HistoryPage > 0 {
		m.HistoryPage--
		m.RefreshHistoryFromDB()
	}
}

func (m *Model) openModelSelector() tea.Cmd {
	m.ModelSelectorOpen = true
	m.HistoryOpen = false
	m.ShortcutsOpen = false
	m.ModelsErr = nil
	if m.Lister == nil {
		m.ModelsErr = fmt.Errorf("model listing unavailable")
		return nil
	}
	m.ModelsLoading = true
	m.UpdateModelSelectorContent()
	lister := m.Lister
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		list, err := lister.ListModels(ctx)
		return modelsListedMsg{models: list, err: err}
	}
}

func (m *Model) currentModel() string {
	if m.Gen == nil {
		return ""
	}
	return m.Gen.Model()
}

func (m *Model) applyModelList(msg modelsListedMsg) {
	m.ModelsLoading = false
	m.ModelsErr = msg.err
	m.AvailableModels = msg.models
	m.SelectedModelIndex = 0
	for i, mdl := range msg.models {
		if mdl.ID == m.currentModel() {
			m.SelectedModelIndex = i
		}
	}
	m.UpdateModelSelectorContent()
	m.SyncModelViewportScroll()
}

func (m *Model) UpdateModelSelectorContent() {
	switch {
	case m.ModelsLoading:
		m.ModelViewport.SetContent(m.Spinner.View() + " Asking Gemini which models this key can use...")
		return
	case m.ModelsErr != nil:
		m.ModelViewport.SetContent(styles.ErrorStyle.Render("Error: " + m.ModelsErr.Error()))
		return
	case len(m.AvailableModels) == 0:
		m.ModelViewport.SetContent(lipgloss.NewStyle().Foreground(styles.HintColor).Render("No models available"))
		return
	}

	current := m.currentModel()
	items := make([]string, 0, len(m.AvailableModels))
	for i, mdl := range m.AvailableModels {
		name := mdl.Name
		if name == "" {
			name = mdl.ID
		}
		if mdl.ID == current {
			name = "● " + name
		} else {
			name = "  " + name
		}
		name = TruncateRunes(name, styles.ContentWidth-2)

		if i == m.SelectedModelIndex {
			items = append(items, styles.ModalSelectedStyle.Render(name))
			continue
		}
		style := styles.ModalItemStyle
		if mdl.ID == current {
			style = style.Foreground(lipgloss.Color(m.Personas.Active().ThemeColor))
		}
		items = append(items, style.Render(name))
	}
	m.ModelViewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, items...))
}

// SyncModelViewportScroll keeps the selected model row on screen.
func (m *Model) SyncModelViewportScroll() {
	y := m.SelectedModelIndex
	if y < m.ModelViewport.YOffset {
		m.ModelViewport.SetYOffset(y)
	}
	if y >= m.ModelViewport.YOffset+m.ModelViewport.Height {
		m.ModelViewport.SetYOffset(y - m.ModelViewport.Height + 1)
	}
}
