package render

import (
	"regexp"
	"strings"
)

var (
	fracRE    = regexp.MustCompile(`\\frac\{([^{}]*)\}\{([^{}]*)\}`)
	textCmdRE = regexp.MustCompile(`\\(?:text|mathrm|mathbf)\{([^{}]*)\}`)
	dollarRE  = regexp.MustCompile(`\$([^$\n]+)\$`)
)

// mathReplacer maps LaTeX-ish commands to literal symbols. Longer commands
// sharing a prefix come first.
var mathReplacer = strings.NewReplacer(
	`\rightarrow`, "→",
	`\leftarrow`, "←",
	`\left`, "",
	`\right`, "",
	`\approx`, "≈",
	`\times`, "×",
	`\degree`, "°",
	`^\circ`, "°",
	`\Delta`, "Δ",
	`\delta`, "δ",
	`\alpha`, "α",
	`\beta`, "β",
	`\gamma`, "γ",
	`\lambda`, "λ",
	`\sigma`, "σ",
	`\Omega`, "Ω",
	`\mu`, "µ",
	`\pi`, "π",
	`\pm`, "±",
	`\leq`, "≤",
	`\geq`, "≥",
	`\le`, "≤",
	`\ge`, "≥",
	`\neq`, "≠",
	`\sim`, "~",
	`\cdot`, "·",
	`\to`, "→",
	`\%`, "%",
)

// substituteMath rewrites math notation in one line to plain text.
func substituteMath(line string) string {
	if !strings.ContainsAny(line, `\$`) {
		return line
	}
	line = dollarRE.ReplaceAllStringFunc(line, unwrapMath)
	line = fracRE.ReplaceAllString(line, "($1 / $2)")
	line = textCmdRE.ReplaceAllString(line, "$1")
	return mathReplacer.Replace(line)
}

// unwrapMath strips the dollars around m when its body looks like math.
// Prices such as "$5 or $10" stay as written.
func unwrapMath(m string) string {
	body := m[1 : len(m)-1]
	if !strings.ContainsAny(body, `\_^`) {
		return m
	}
	return body
}

// Parse reads text line by line into a Document.
func Parse(text string) Document {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = substituteMath(lines[i])
	}

	var doc Document
	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if strings.Contains(line, "|") && i+1 < len(lines) && isSeparatorRow(lines[i+1]) {
			tbl, consumed := parseTable(lines[i:])
			doc.Blocks = append(doc.Blocks, tbl)
			i += consumed - 1
			continue
		}

		doc.Blocks = append(doc.Blocks, parseLine(line))
	}
	return doc
}

func parseLine(line string) Block {
	trimmed := strings.TrimLeft(line, " \t")
	switch {
	case strings.TrimSpace(line) == "":
		return Block{Kind: BlockBlank}
	case strings.HasPrefix(trimmed, "### "):
		return Block{Kind: BlockHeading, Level: 3, Spans: parseInline(strings.TrimSpace(trimmed[4:]))}
	case strings.HasPrefix(trimmed, "## "):
		return Block{Kind: BlockHeading, Level: 4, Spans: parseInline(strings.TrimSpace(trimmed[3:]))}
	case strings.HasPrefix(trimmed, "* "), strings.HasPrefix(trimmed, "- "):
		return Block{Kind: BlockBullet, Spans: parseInline(trimmed[2:])}
	case strings.HasPrefix(trimmed, "• "):
		return Block{Kind: BlockBullet, Spans: parseInline(strings.TrimPrefix(trimmed, "• "))}
	}
	return Block{Kind: BlockParagraph, Spans: parseInline(line)}
}

// isSeparatorRow reports whether line is a markdown table rule such as
// "---|:---:".
func isSeparatorRow(line string) bool {
	t := strings.TrimSpace(line)
	if !strings.Contains(t, "|") || !strings.Contains(t, "-") {
		return false
	}
	for _, r := range t {
		switch r {
		case '|', '-', ':', ' ', '\t':
		default:
			return false
		}
	}
	return true
}

// parseTable consumes a header, its separator and every following pipe
// row. It returns the block and the number of lines used.
func parseTable(lines []string) (Block, int) {
	header := splitRow(lines[0])
	blk := Block{Kind: BlockTable}
	for _, cell := range header {
		blk.Header = append(blk.Header, parseInline(cell))
	}

	n := 2
	for ; n < len(lines); n++ {
		line := lines[n]
		if strings.TrimSpace(line) == "" || !strings.Contains(line, "|") {
			break
		}
		cells := splitRow(line)
		row := make([][]Span, len(header))
		for c := range row {
			if c < len(cells) {
				row[c] = parseInline(cells[c])
			}
		}
		blk.Rows = append(blk.Rows, row)
	}
	return blk, n
}

func splitRow(line string) []string {
	t := strings.TrimSpace(line)
	t = strings.TrimPrefix(t, "|")
	t = strings.TrimSuffix(t, "|")
	parts := strings.Split(t, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// parseInline splits a line into formatted spans. Formatting does not nest.
func parseInline(s string) []Span {
	var (
		spans []Span
		text  strings.Builder
	)
	flush := func() {
		if text.Len() > 0 {
			spans = append(spans, Span{Kind: SpanText, Text: text.String()})
			text.Reset()
		}
	}
	emit := func(kind SpanKind, v string) {
		flush()
		spans = append(spans, Span{Kind: kind, Text: v})
	}

	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '*' && strings.HasPrefix(s[i:], "**"):
			if end := strings.Index(s[i+2:], "**"); end > 0 {
				emit(SpanBold, s[i+2:i+2+end])
				i += end + 4
				continue
			}
		case c == '*':
			if i+1 < len(s) && s[i+1] != ' ' {
				if end := strings.IndexByte(s[i+1:], '*'); end > 0 {
					emit(SpanItalic, s[i+1:i+1+end])
					i += end + 2
					continue
				}
			}
		case c == '`':
			if end := strings.IndexByte(s[i+1:], '`'); end > 0 {
				emit(SpanCode, s[i+1:i+1+end])
				i += end + 2
				continue
			}
		case c == '_' || c == '^':
			if v, width, ok := scriptAt(s, i); ok {
				kind := SpanSub
				if c == '^' {
					kind = SpanSup
				}
				emit(kind, v)
				i += width
				continue
			}
		}
		text.WriteByte(c)
		i++
	}
	flush()
	return spans
}

// scriptAt recognises _x, ^x, _{...} and ^{...} at s[i]. The marker must
// follow a word character, and the single-character form must end the word
// so identifiers like snake_case are left alone.
func scriptAt(s string, i int) (string, int, bool) {
	if i == 0 || !isWordByte(s[i-1]) || i+1 >= len(s) {
		return "", 0, false
	}
	if s[i+1] == '{' {
		end := strings.IndexByte(s[i+2:], '}')
		if end <= 0 {
			return "", 0, false
		}
		return s[i+2 : i+2+end], end + 3, true
	}
	if !isAlnum(s[i+1]) {
		return "", 0, false
	}
	if i+2 < len(s) && isAlnum(s[i+2]) {
		return "", 0, false
	}
	return s[i+1 : i+2], 2, true
}

func isAlnum(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func isWordByte(c byte) bool {
	return isAlnum(c) || c == ')' || c >= 0x80
}
