package render

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Render parses text and renders it as HTML.
func Render(text string) string {
	return HTML(Parse(text))
}

// HTML renders doc. Every piece of source text is escaped, so markup in a
// reply is shown, never interpreted. Lines are separated by <br> except
// around headings and tables, which are block elements.
func HTML(doc Document) string {
	var b strings.Builder
	prevInline := false
	for _, blk := range doc.Blocks {
		inline := blk.Kind != BlockHeading && blk.Kind != BlockTable
		if inline && prevInline {
			b.WriteString("<br>")
		}
		writeBlockHTML(&b, blk)
		prevInline = inline
	}
	return b.String()
}

func writeBlockHTML(b *strings.Builder, blk Block) {
	switch blk.Kind {
	case BlockHeading:
		tag := "h3"
		if blk.Level == 4 {
			tag = "h4"
		}
		b.WriteString("<" + tag + ">")
		writeSpansHTML(b, blk.Spans)
		b.WriteString("</" + tag + ">")
	case BlockBullet:
		b.WriteString("• ")
		writeSpansHTML(b, blk.Spans)
	case BlockTable:
		b.WriteString("<table><thead><tr>")
		for _, cell := range blk.Header {
			b.WriteString("<th>")
			writeSpansHTML(b, cell)
			b.WriteString("</th>")
		}
		b.WriteString("</tr></thead><tbody>")
		for _, row := range blk.Rows {
			b.WriteString("<tr>")
			for _, cell := range row {
				b.WriteString("<td>")
				writeSpansHTML(b, cell)
				b.WriteString("</td>")
			}
			b.WriteString("</tr>")
		}
		b.WriteString("</tbody></table>")
	case BlockParagraph:
		writeSpansHTML(b, blk.Spans)
	}
}

var spanTags = map[SpanKind]string{
	SpanBold:   "strong",
	SpanItalic: "em",
	SpanCode:   "code",
	SpanSub:    "sub",
	SpanSup:    "sup",
}

func writeSpansHTML(b *strings.Builder, spans []Span) {
	for _, s := range spans {
		tag, ok := spanTags[s.Kind]
		if !ok {
			b.WriteString(escaper.Replace(s.Text))
			continue
		}
		b.WriteString("<" + tag + ">")
		b.WriteString(escaper.Replace(s.Text))
		b.WriteString("</" + tag + ">")
	}
}

var (
	strictPolicy  = bluemonday.StrictPolicy()
	panelPolicy   = newPanelPolicy()
	breakReplacer = strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n", "</p>", "\n", "</h3>", "\n", "</h4>", "\n", "</tr>", "\n", "</li>", "\n")
)

func newPanelPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("h3", "h4", "p", "br", "strong", "em", "code", "sub", "sup",
		"ul", "ol", "li", "table", "thead", "tbody", "tr", "th", "td")
	return p
}

// Sanitize restricts collaborator-supplied HTML to the formatting tags the
// companion itself produces.
func Sanitize(body string) string {
	return panelPolicy.Sanitize(body)
}

// PanelText converts an HTML panel body to plain text for the terminal.
func PanelText(body string) string {
	text := strictPolicy.Sanitize(breakReplacer.Replace(body))
	return strings.TrimSpace(html.UnescapeString(text))
}
