// Package render turns model replies into display markup.
//
// Text is parsed once into a Document (blocks of inline spans); separate
// renderers then produce HTML or styled terminal output from it. Rendered
// output is tokenized so a typewriter Reveal can disclose it piece by piece
// without ever splitting a tag or escape sequence.
package render

// SpanKind is the inline formatting of a Span.
type SpanKind int

const (
	SpanText SpanKind = iota
	SpanBold
	SpanItalic
	SpanCode
	SpanSub
	SpanSup
)

// Span is a run of text with one formatting.
type Span struct {
	Kind SpanKind
	Text string
}

// BlockKind is the kind of a line-level Block.
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockBullet
	BlockTable
	BlockBlank
)

// Block is one line-level element. Tables carry Header and Rows, every row
// having len(Header) cells.
type Block struct {
	Kind   BlockKind
	Level  int // 3 or 4 for headings
	Spans  []Span
	Header [][]Span
	Rows   [][][]Span
}

// Document is the parsed form of a reply.
type Document struct {
	Blocks []Block
}

// PlainText flattens spans back to text.
func PlainText(spans []Span) string {
	n := 0
	for _, s := range spans {
		n += len(s.Text)
	}
	b := make([]byte, 0, n)
	for _, s := range spans {
		b = append(b, s.Text...)
	}
	return string(b)
}
