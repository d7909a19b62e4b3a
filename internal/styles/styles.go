package styles

import (
	"learnemg/internal/models"

	"github.com/charmbracelet/lipgloss"
)

// ContentWidth is the inner width of modal rows.
var ContentWidth = 54

const (
	defaultAccent = lipgloss.Color("#90CAF9")
	defaultInk    = lipgloss.Color("#0F1B2D")
	userAccent    = lipgloss.Color("#5C6BC0")
	selectedBg    = lipgloss.Color("#5C5C7A")
	white         = lipgloss.Color("#FFFFFF")
)

// accent and ink are the active persona's colors; ink is drawn on accent.
var (
	accent = defaultAccent
	ink    = defaultInk
)

var (
	TitleStyle     lipgloss.Style
	InfoStyle      func(...string) string
	UserLabelStyle lipgloss.Style
	UserMsgStyle   lipgloss.Style
	AiLabelStyle   lipgloss.Style
	AiMsgStyle     lipgloss.Style
	NoticeStyle    lipgloss.Style
	LoadingStyle   lipgloss.Style
	ErrorStyle     lipgloss.Style
	InputBoxStyle  lipgloss.Style
	PageStyle      lipgloss.Style
	MarkStyle      lipgloss.Style
	TooltipStyle   lipgloss.Style

	ModalStyle         lipgloss.Style
	ModalTitleStyle    lipgloss.Style
	ModalItemStyle     lipgloss.Style
	ModalHeaderStyle   lipgloss.Style
	ModalSelectedStyle lipgloss.Style
	DescStyle          lipgloss.Style

	HintColor lipgloss.Color
)

func init() { rebuild() }

func badge(bg, fg lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Padding(0, 1).Background(bg).Foreground(fg)
}

func leftRule(c lipgloss.Color, pad int) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(CurrentTheme.TextPrimary).
		PaddingLeft(pad).
		Border(lipgloss.ThickBorder(), false, false, false, true).
		BorderForeground(c)
}

func row() lipgloss.Style {
	return lipgloss.NewStyle().Width(ContentWidth)
}

// rebuild derives every style from CurrentTheme, the persona colors and
// ContentWidth.
func rebuild() {
	t := CurrentTheme
	muted := lipgloss.NewStyle().Foreground(t.TextSecondary).Italic(true)

	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(accent).Padding(0, 1)
	InfoStyle = lipgloss.NewStyle().Foreground(t.TextMuted).Render
	UserLabelStyle = badge(userAccent, white).MarginRight(1)
	UserMsgStyle = leftRule(userAccent, 2)
	AiLabelStyle = badge(accent, ink).MarginRight(1)
	AiMsgStyle = leftRule(accent, 1)
	NoticeStyle = muted.PaddingLeft(2)
	LoadingStyle = muted
	ErrorStyle = lipgloss.NewStyle().Bold(true).Foreground(t.Error)
	InputBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accent).Padding(0, 1)
	PageStyle = lipgloss.NewStyle().Padding(0, 1)
	MarkStyle = lipgloss.NewStyle().Reverse(true)
	TooltipStyle = badge(accent, ink)

	ModalStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accent).Padding(1, 2)
	ModalTitleStyle = row().Bold(true).Foreground(accent).MarginBottom(1)
	ModalItemStyle = row().Padding(0, 1)
	ModalHeaderStyle = row().Bold(true).PaddingLeft(1)
	ModalSelectedStyle = row().Padding(0, 1).Background(selectedBg).Foreground(white)
	DescStyle = lipgloss.NewStyle().Foreground(t.TextSecondary).Width(ContentWidth - 4)

	HintColor = t.TextMuted
}

// ApplyPersona re-themes every persona-tinted style. Called from the persona
// subscription so the whole UI follows a switch.
func ApplyPersona(p models.Persona) {
	accent = lipgloss.Color(p.ThemeColor)
	ink = defaultInk
	if p.BackgroundColor != "" {
		ink = lipgloss.Color(p.BackgroundColor)
	}
	rebuild()
}

// SetContentWidth resizes the width-bound modal styles.
func SetContentWidth(w int) {
	ContentWidth = max(w, 20)
	rebuild()
}
