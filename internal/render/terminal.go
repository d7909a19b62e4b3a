package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// TermStyles controls how Terminal renders a Document.
type TermStyles struct {
	Heading lipgloss.Style
	Bold    lipgloss.Style
	Italic  lipgloss.Style
	Code    lipgloss.Style
	Border  lipgloss.Style
	Bullet  lipgloss.Style
}

// DefaultTermStyles derives styles from a persona accent colour.
func DefaultTermStyles(accent string) TermStyles {
	c := lipgloss.Color(accent)
	return TermStyles{
		Heading: lipgloss.NewStyle().Bold(true).Foreground(c),
		Bold:    lipgloss.NewStyle().Bold(true),
		Italic:  lipgloss.NewStyle().Italic(true),
		Code:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FFCC80")),
		Border:  lipgloss.NewStyle().Foreground(c),
		Bullet:  lipgloss.NewStyle().Foreground(c),
	}
}

// Terminal renders doc for a terminal of the given width (0 = no wrapping).
func Terminal(doc Document, width int, st TermStyles) string {
	lines := make([]string, 0, len(doc.Blocks))
	wrap := lipgloss.NewStyle()
	if width > 0 {
		wrap = wrap.Width(width)
	}
	for _, blk := range doc.Blocks {
		switch blk.Kind {
		case BlockBlank:
			lines = append(lines, "")
		case BlockHeading:
			lines = append(lines, wrap.Render(st.Heading.Render(PlainText(scripted(blk.Spans)))))
		case BlockBullet:
			bullet := st.Bullet.Render("•") + " "
			body := spansTerminal(blk.Spans, st)
			if width > 2 {
				body = lipgloss.NewStyle().Width(width - 2).Render(body)
			}
			lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, bullet, body))
		case BlockTable:
			lines = append(lines, tableTerminal(blk, st))
		default:
			lines = append(lines, wrap.Render(spansTerminal(blk.Spans, st)))
		}
	}
	return strings.Join(lines, "\n")
}

func tableTerminal(blk Block, st TermStyles) string {
	headers := make([]string, len(blk.Header))
	for i, cell := range blk.Header {
		headers[i] = spansTerminal(cell, st)
	}
	rows := make([][]string, len(blk.Rows))
	for r, row := range blk.Rows {
		rows[r] = make([]string, len(row))
		for c, cell := range row {
			rows[r][c] = spansTerminal(cell, st)
		}
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(st.Border).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return s.Bold(true)
			}
			return s
		}).
		Headers(headers...).
		Rows(rows...)
	return t.Render()
}

func spansTerminal(spans []Span, st TermStyles) string {
	var b strings.Builder
	for _, s := range spans {
		switch s.Kind {
		case SpanBold:
			b.WriteString(st.Bold.Render(s.Text))
		case SpanItalic:
			b.WriteString(st.Italic.Render(s.Text))
		case SpanCode:
			b.WriteString(st.Code.Render(s.Text))
		case SpanSub:
			b.WriteString(toScript(s.Text, subscripts, "_"))
		case SpanSup:
			b.WriteString(toScript(s.Text, superscripts, "^"))
		default:
			b.WriteString(s.Text)
		}
	}
	return b.String()
}

// scripted converts sub/superscript spans to text so headings can be
// styled as a single run.
func scripted(spans []Span) []Span {
	out := make([]Span, len(spans))
	for i, s := range spans {
		switch s.Kind {
		case SpanSub:
			out[i] = Span{Text: toScript(s.Text, subscripts, "_")}
		case SpanSup:
			out[i] = Span{Text: toScript(s.Text, superscripts, "^")}
		default:
			out[i] = Span{Text: s.Text}
		}
	}
	return out
}

var subscripts = map[rune]rune{
	'0': '₀', '1': '₁', '2': '₂', '3': '₃', '4': '₄', '5': '₅', '6': '₆', '7': '₇', '8': '₈', '9': '₉',
	'+': '₊', '-': '₋', '=': '₌', '(': '₍', ')': '₎',
	'a': 'ₐ', 'e': 'ₑ', 'h': 'ₕ', 'i': 'ᵢ', 'k': 'ₖ', 'l': 'ₗ', 'm': 'ₘ', 'n': 'ₙ',
	'o': 'ₒ', 'p': 'ₚ', 'r': 'ᵣ', 's': 'ₛ', 't': 'ₜ', 'u': 'ᵤ', 'v': 'ᵥ', 'x': 'ₓ',
}

var superscripts = map[rune]rune{
	'0': '⁰', '1': '¹', '2': '²', '3': '³', '4': '⁴', '5': '⁵', '6': '⁶', '7': '⁷', '8': '⁸', '9': '⁹',
	'+': '⁺', '-': '⁻', '=': '⁼', '(': '⁽', ')': '⁾', 'n': 'ⁿ', 'i': 'ⁱ',
}

// toScript maps every rune through glyphs, falling back to marker{text}
// when any rune has no unicode form.
func toScript(text string, glyphs map[rune]rune, marker string) string {
	out := make([]rune, 0, len(text))
	for _, r := range text {
		m, ok := glyphs[r]
		if !ok {
			return marker + "{" + text + "}"
		}
		out = append(out, m)
	}
	return string(out)
}
