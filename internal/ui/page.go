package ui

import (
	"strings"

	"learnemg/internal/companion"
	"learnemg/internal/content"
	"learnemg/internal/render"
	"learnemg/internal/styles"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const tooltipLabel = "✦ Explain this · enter"

// VisibleText is the study text currently on screen.
func (m *Model) VisibleText() string {
	from := m.PageView.YOffset
	return m.Page.Plain(from, from+m.PageView.Height)
}

// Show opens the document panel. The body is HTML and is sanitized before
// it is flattened for the terminal.
func (m *Model) Show(title, html string) {
	m.Panel.open = true
	m.Panel.title = title
	body := render.PanelText(render.Sanitize(html))
	m.Panel.view.SetContent(lipgloss.NewStyle().Width(m.Panel.view.Width).Render(body))
	m.Panel.view.GotoTop()
}

// loadPage renders the current module at the page width.
func (m *Model) loadPage() {
	if m.Library == nil || m.Pages == nil {
		return
	}
	mod := m.Library.At(m.ModuleIdx)
	page, err := m.Pages.Page(mod)
	m.PageErr = err
	if err != nil {
		m.log.Error("render module", "module", mod.ID, "error", err)
		return
	}
	m.Page = page
	if m.CursorLine >= len(page.Lines) {
		m.CursorLine = len(page.Lines) - 1
	}
	if m.CursorLine < 0 {
		m.CursorLine = 0
	}
	m.refreshPage()
}

// gotoModule switches modules and drops any selection.
func (m *Model) gotoModule(i int) {
	if m.Library == nil {
		return
	}
	if i < 0 || i >= m.Library.Len() || i == m.ModuleIdx {
		return
	}
	m.ModuleIdx = i
	m.CursorLine = 0
	m.clearSelection()
	m.PageView.GotoTop()
	m.loadPage()
}

func (m *Model) refreshPage() {
	m.PageView.SetContent(strings.Join(m.pageLines(), "\n"))
	m.keepCursorVisible()
}

func (m *Model) pageLines() []string {
	if m.PageErr != nil {
		return []string{styles.ErrorStyle.Render("Couldn't render this module: " + m.PageErr.Error())}
	}
	from, to := -1, -1
	if m.Sel.active {
		from, to = m.Sel.bounds()
	}
	tip := m.Engine.Selection
	cursor := lipgloss.NewStyle().Foreground(lipgloss.Color(m.Personas.Active().ThemeColor))

	out := make([]string, 0, len(m.Page.Lines)+1)
	for i, line := range m.Page.Lines {
		gutter := "  "
		if i == m.CursorLine && m.Focus == focusPage {
			gutter = cursor.Render("▌") + " "
		}
		if i >= from && i <= to {
			line = styles.MarkStyle.Render(strings.TrimRight(ansi.Strip(line), " "))
		}
		out = append(out, gutter+line)
		if tip.Visible() && i == tip.Anchor().Line {
			out = append(out, tooltipLine(tip.Anchor().Col))
		}
	}
	return out
}

// tooltipLine places the tooltip under the end of the selection.
func tooltipLine(col int) string {
	pad := col - ansi.StringWidth(tooltipLabel)
	if pad < 2 {
		pad = 2
	}
	return strings.Repeat(" ", pad) + styles.TooltipStyle.Render(tooltipLabel)
}

func (m *Model) keepCursorVisible() {
	target := m.CursorLine
	tip := m.Engine.Selection
	if tip.Visible() && tip.Anchor().Line <= m.CursorLine {
		target++
	}
	if target < m.PageView.YOffset {
		m.PageView.SetYOffset(target)
	}
	if target >= m.PageView.YOffset+m.PageView.Height {
		m.PageView.SetYOffset(target - m.PageView.Height + 1)
	}
}

// moveCursor moves the page cursor by delta, extending the selection when
// marking.
func (m *Model) moveCursor(delta int) tea.Cmd {
	if len(m.Page.Lines) == 0 {
		return nil
	}
	next := m.CursorLine + delta
	if next < 0 {
		next = 0
	}
	if next >= len(m.Page.Lines) {
		next = len(m.Page.Lines) - 1
	}
	if next == m.CursorLine {
		return nil
	}
	m.CursorLine = next
	var cmd tea.Cmd
	if m.Sel.active {
		m.Sel.cursor = next
		cmd = m.selectionChanged()
	}
	m.refreshPage()
	return cmd
}

// toggleMark starts or drops a line selection at the cursor.
func (m *Model) toggleMark() tea.Cmd {
	if m.Sel.active {
		m.clearSelection()
		m.refreshPage()
		return nil
	}
	m.Sel = selection{active: true, anchor: m.CursorLine, cursor: m.CursorLine}
	cmd := m.selectionChanged()
	m.refreshPage()
	return cmd
}

func (m *Model) selectionChanged() tea.Cmd {
	from, to := m.Sel.bounds()
	text := m.Page.Selection(from, to)
	at := companion.Anchor{Line: to, Col: 2 + ansi.StringWidth(strings.TrimRight(ansi.Strip(m.Page.Lines[to]), " "))}
	return m.Engine.SelectionChanged(text, at)
}

func (m *Model) clearSelection() {
	m.Sel = selection{}
	m.Engine.Selection.Hide()
}

// activateSelection asks the companion about the marked text, opening the
// companion if needed.
func (m *Model) activateSelection() tea.Cmd {
	if !m.Engine.Selection.Visible() {
		return nil
	}
	var cmds []tea.Cmd
	if !m.CompanionOpen {
		cmds = append(cmds, m.setCompanionOpen(true))
	}
	cmds = append(cmds, m.Engine.ActivateSelection())
	m.Sel = selection{}
	m.refreshPage()
	m.refreshChat()
	m.ChatView.GotoBottom()
	return tea.Batch(cmds...)
}

// reloadLibrary re-reads the module directory after a change on disk.
func reloadLibrary(dir string) tea.Cmd {
	return func() tea.Msg {
		lib, err := content.Load(dir)
		return libraryReloadedMsg{lib: lib, err: err}
	}
}

func (m *Model) applyLibrary(lib *content.Library) {
	current := ""
	if m.Library != nil && m.Library.Len() > 0 {
		current = m.Library.At(m.ModuleIdx).ID
	}
	m.Library = lib
	if i, ok := lib.Index(current); ok {
		m.ModuleIdx = i
	} else {
		m.ModuleIdx = 0
		m.CursorLine = 0
		m.clearSelection()
	}
	m.loadPage()
}

// resizePages rebuilds the glamour renderer when the wrap width changes.
func (m *Model) resizePages(width int) {
	if m.Pages != nil && width == m.pageWidth {
		return
	}
	r, err := content.NewRenderer(width, m.pageStyle)
	if err != nil {
		m.PageErr = err
		m.log.Error("page renderer", "error", err)
		return
	}
	m.Pages = r
	m.pageWidth = width
	m.loadPage()
}
