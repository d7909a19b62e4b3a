package ui

import (
	"os"
	"strings"

	"learnemg/internal/content"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if cmd, ok := m.Engine.Update(msg); ok {
		m.refreshChat()
		m.refreshPage()
		return m, cmd
	}

	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		if m.Engine.Conv.Loading() {
			m.refreshChat()
		}
		if m.ModelsLoading {
			m.UpdateModelSelectorContent()
		}
		return m, cmd

	case tea.KeyMsg:
		cmd := m.handleKey(msg)
		return m, tea.Batch(cmd, m.Engine.Touch())

	case tea.WindowSizeMsg:
		m.WindowWidth = msg.Width
		m.WindowHeight = msg.Height
		m.updateLayout()
		m.refreshChat()
		return m, nil

	case modelsListedMsg:
		m.applyModelList(msg)
		return m, nil

	case content.ChangedMsg:
		if m.Library == nil || m.Watcher == nil {
			return m, nil
		}
		m.log.Info("study modules changed", "path", msg.Path)
		return m, tea.Batch(reloadLibrary(m.Library.Dir()), m.Watcher.Next())

	case libraryReloadedMsg:
		if msg.err != nil {
			m.Status = "Reload failed: " + msg.err.Error()
			m.log.Warn("reload modules", "error", msg.err)
			return m, nil
		}
		m.applyLibrary(msg.lib)
		return m, nil
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()
	if key == "ctrl+c" {
		return tea.Quit
	}

	switch {
	case m.Panel.open:
		return m.handlePanelKey(msg)
	case m.HistoryOpen:
		return m.handleHistoryKey(key)
	case m.ModelSelectorOpen:
		return m.handleModelKey(key)
	case m.ShortcutsOpen:
		switch key {
		case "esc", "enter", "?", "ctrl+s":
			m.ShortcutsOpen = false
		}
		return nil
	}

	switch key {
	case "ctrl+o":
		return m.setCompanionOpen(!m.CompanionOpen)
	case "tab":
		if m.CompanionOpen && m.WindowWidth >= CompactWidthThresh {
			if m.Focus == focusChat {
				m.setFocus(focusPage)
			} else {
				m.setFocus(focusChat)
			}
		}
		return nil
	case "ctrl+p":
		cmd := m.Engine.Submit("/persona", nil)
		m.refreshChat()
		m.refreshPage()
		return cmd
	case "ctrl+n":
		m.Engine.Clear()
		m.refreshChat()
		return nil
	case "ctrl+h":
		m.HistoryOpen = true
		m.ModelSelectorOpen = false
		m.ShortcutsOpen = false
		m.HistoryPage = 0
		m.RefreshHistoryFromDB()
		return nil
	case "ctrl+b":
		return m.openModelSelector()
	case "ctrl+s":
		m.ShortcutsOpen = true
		m.HistoryOpen = false
		m.ModelSelectorOpen = false
		return nil
	}

	if m.Focus == focusChat && m.CompanionOpen {
		return m.handleChatKey(msg)
	}
	return m.handlePageKey(key)
}

func (m *Model) handlePageKey(key string) tea.Cmd {
	switch key {
	case "q":
		return tea.Quit
	case "?":
		m.ShortcutsOpen = true
	case "up", "k":
		return m.moveCursor(-1)
	case "down", "j":
		return m.moveCursor(1)
	case "pgup", "ctrl+u":
		return m.moveCursor(-max(m.PageView.Height/2, 1))
	case "pgdown", "ctrl+d":
		return m.moveCursor(max(m.PageView.Height/2, 1))
	case "g", "home":
		return m.moveCursor(-len(m.Page.Lines))
	case "G", "end":
		return m.moveCursor(len(m.Page.Lines))
	case "left", "h", "[":
		m.gotoModule(m.ModuleIdx - 1)
	case "right", "l", "]":
		m.gotoModule(m.ModuleIdx + 1)
	case "v":
		return m.toggleMark()
	case "esc":
		if m.Sel.active {
			m.clearSelection()
			m.refreshPage()
		}
	case "enter":
		return m.activateSelection()
	case "s":
		var cmds []tea.Cmd
		if !m.CompanionOpen {
			cmds = append(cmds, m.setCompanionOpen(true))
		}
		cmds = append(cmds, m.Engine.SummarizePage())
		m.refreshChat()
		m.ChatView.GotoBottom()
		return tea.Batch(cmds...)
	}
	return nil
}

func (m *Model) handleChatKey(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()

	if isNewlineShortcut(msg) {
		m.TextInput.InsertString("\n")
		m.FileSuggestOpen = false
		m.updateLayout()
		return nil
	}

	if m.FileSuggestOpen {
		switch key {
		case "esc":
			m.FileSuggestOpen = false
			return nil
		case "up":
			if len(m.FileSuggestions) > 0 {
				m.FileSuggestIdx = (m.FileSuggestIdx - 1 + len(m.FileSuggestions)) % len(m.FileSuggestions)
			}
			return nil
		case "down":
			if len(m.FileSuggestions) > 0 {
				m.FileSuggestIdx = (m.FileSuggestIdx + 1) % len(m.FileSuggestions)
			}
			return nil
		case "tab", "enter":
			m.acceptSuggestion()
			return nil
		}
	}

	switch key {
	case "esc":
		if m.WindowWidth < CompactWidthThresh {
			return m.setCompanionOpen(false)
		}
		m.setFocus(focusPage)
		return nil
	case "enter":
		return m.submitInput()
	case "pgup":
		m.ChatView.HalfPageUp()
		return nil
	case "pgdown":
		m.ChatView.HalfPageDown()
		return nil
	}

	var cmd tea.Cmd
	m.TextInput, cmd = m.TextInput.Update(msg)

	// Terminal background queries sometimes leak into the input.
	val := m.TextInput.Value()
	if strings.Contains(val, "]11;rgb:") || strings.Contains(val, "[1;1R") {
		m.TextInput.Reset()
		val = ""
	}
	m.updateLayout()

	if prefix, _, found := GetAtPosition(val, TextareaCursorIndex(m.TextInput)); found {
		cwd, _ := os.Getwd()
		m.FileSuggestions = GetImageSuggestions(cwd, prefix)
		m.FileSuggestOpen = len(m.FileSuggestions) > 0
		m.FileSuggestIdx = 0
	} else {
		m.FileSuggestOpen = false
	}
	_, m.PendingImage = ExtractImageMention(val)
	return cmd
}

// acceptSuggestion replaces the @prefix under the cursor with the chosen
// path.
func (m *Model) acceptSuggestion() {
	if len(m.FileSuggestions) == 0 || m.FileSuggestIdx >= len(m.FileSuggestions) {
		m.FileSuggestOpen = false
		return
	}
	selected := m.FileSuggestions[m.FileSuggestIdx]
	val := m.TextInput.Value()
	prefix, start, found := GetAtPosition(val, TextareaCursorIndex(m.TextInput))
	if found {
		newVal := val[:start] + "@" + selected + " " + val[start+1+len(prefix):]
		m.TextInput.SetValue(newVal)
		row, col := TextareaCursorFromIndex(newVal, start+len(selected)+2)
		SetTextareaCursor(&m.TextInput, row, col)
		_, m.PendingImage = ExtractImageMention(newVal)
	}
	m.FileSuggestOpen = false
}

func (m *Model) handlePanelKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc", "q", "enter":
		m.Panel.open = false
		return nil
	}
	var cmd tea.Cmd
	m.Panel.view, cmd = m.Panel.view.Update(msg)
	return cmd
}

func (m *Model) handleHistoryKey(key string) tea.Cmd {
	switch key {
	case "esc", "ctrl+h":
		m.HistoryOpen = false
		m.HistoryErr = nil
	case "up", "k":
		if n := len(m.HistoryChats); n > 0 {
			m.HistorySelectedIdx = (m.HistorySelectedIdx - 1 + n) % n
		}
	case "down", "j":
		if n := len(m.HistoryChats); n > 0 {
			m.HistorySelectedIdx = (m.HistorySelectedIdx + 1) % n
		}
	case "enter":
		if len(m.HistoryChats) == 0 {
			return nil
		}
		if err := m.openTranscript(m.HistoryChats[m.HistorySelectedIdx]); err != nil {
			m.HistoryErr = err
			return nil
		}
		m.HistoryOpen = false
	case "d":
		m.deleteSelectedChat()
	case "left", "h":
		if m.HistoryPage > 0 {
			m.HistoryPage--
			m.RefreshHistoryFromDB()
		}
	case "right", "l":
		totalPages := (m.HistoryChatCount + HistoryPageSize - 1) / HistoryPageSize
		if m.HistoryPage < totalPages-1 {
			m.HistoryPage++
			m.RefreshHistoryFromDB()
		}
	}
	return nil
}

func (m *Model) handleModelKey(key string) tea.Cmd {
	n := len(m.AvailableModels)
	switch key {
	case "esc", "ctrl+b":
		m.ModelSelectorOpen = false
	case "up", "k":
		if n > 0 {
			m.SelectedModelIndex = (m.SelectedModelIndex - 1 + n) % n
			m.SyncModelViewportScroll()
			m.UpdateModelSelectorContent()
		}
	case "down", "j":
		if n > 0 {
			m.SelectedModelIndex = (m.SelectedModelIndex + 1) % n
			m.SyncModelViewportScroll()
			m.UpdateModelSelectorContent()
		}
	case "enter":
		if n == 0 {
			return nil
		}
		m.ModelSelectorOpen = false
		cmd := m.Engine.Submit("/model "+m.AvailableModels[m.SelectedModelIndex].ID, nil)
		m.refreshChat()
		return cmd
	}
	return nil
}

func isNewlineShortcut(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "shift+enter", "shift+return", "ctrl+j", "ctrl+enter", "alt+enter":
		return true
	default:
		return false
	}
}
