package content

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/x/ansi"
)

// Renderer turns module markdown into terminal text.
type Renderer struct {
	tr *glamour.TermRenderer
}

// NewRenderer wraps at width using the named glamour style ("dark",
// "light", "notty").
func NewRenderer(width int, style string) (*Renderer, error) {
	if width < 20 {
		width = 20
	}
	if style == "" {
		style = "dark"
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	return &Renderer{tr: tr}, nil
}

// Page is a rendered module split into screen lines.
type Page struct {
	Module Module
	Lines  []string
}

func (r *Renderer) Page(m Module) (Page, error) {
	out, err := r.tr.Render(m.Markdown)
	if err != nil {
		return Page{}, err
	}
	out = strings.Trim(out, "\n")
	return Page{Module: m, Lines: strings.Split(out, "\n")}, nil
}

// Plain returns lines [from, to) with styling removed and trailing padding
// trimmed.
func (p Page) Plain(from, to int) string {
	if from < 0 {
		from = 0
	}
	if to > len(p.Lines) {
		to = len(p.Lines)
	}
	if from >= to {
		return ""
	}
	out := make([]string, 0, to-from)
	for _, line := range p.Lines[from:to] {
		out = append(out, strings.TrimRight(ansi.Strip(line), " "))
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// Selection returns the plain text of lines [from, to], with runs of
// whitespace collapsed so wrapped prose reads as one passage.
func (p Page) Selection(from, to int) string {
	if from > to {
		from, to = to, from
	}
	return strings.Join(strings.Fields(p.Plain(from, to+1)), " ")
}

func (p Page) String() string {
	return strings.Join(p.Lines, "\n")
}
