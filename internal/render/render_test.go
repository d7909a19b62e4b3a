package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPlainTextIsEscapedVerbatim(t *testing.T) {
	in := "Latency is 3.5 ms & amplitude < 10 mV > baseline"
	assert.Equal(t, "Latency is 3.5 ms &amp; amplitude &lt; 10 mV &gt; baseline", Render(in))

	assert.Equal(t, "line one<br>line two", Render("line one\nline two"))
	assert.Equal(t, "a<br><br>b", Render("a\n\nb"))
}

func TestRenderNeverEmitsModelMarkup(t *testing.T) {
	out := Render("<script>alert(1)</script><b>x</b>")
	assert.Equal(t, "&lt;script&gt;alert(1)&lt;/script&gt;&lt;b&gt;x&lt;/b&gt;", out)
}

func TestParseTable(t *testing.T) {
	doc := Parse("A | B\n---|---\n1 | 2")
	require.Len(t, doc.Blocks, 1)

	tbl := doc.Blocks[0]
	require.Equal(t, BlockTable, tbl.Kind)
	require.Len(t, tbl.Header, 2)
	require.Len(t, tbl.Rows, 1)
	assert.Len(t, tbl.Rows[0], 2)
	assert.Equal(t, "A", PlainText(tbl.Header[0]))
	assert.Equal(t, "2", PlainText(tbl.Rows[0][1]))

	assert.Equal(t,
		"<table><thead><tr><th>A</th><th>B</th></tr></thead><tbody><tr><td>1</td><td>2</td></tr></tbody></table>",
		HTML(doc))
}

func TestTableRowsMatchHeaderWidth(t *testing.T) {
	doc := Parse("| Nerve | Latency | Amp |\n|:---|:---:|---:|\n| Median | 3.6 |\n| Ulnar | 2.9 | 10 | extra |\nNormal study.")
	require.Len(t, doc.Blocks, 2)

	tbl := doc.Blocks[0]
	require.Len(t, tbl.Header, 3)
	require.Len(t, tbl.Rows, 2)
	for _, row := range tbl.Rows {
		assert.Len(t, row, 3)
	}
	assert.Empty(t, PlainText(tbl.Rows[0][2]))
	assert.Equal(t, BlockParagraph, doc.Blocks[1].Kind)
	assert.True(t, strings.HasSuffix(HTML(doc), "</table>Normal study."))
}

func TestPipeWithoutSeparatorIsText(t *testing.T) {
	doc := Parse("either | or\nnothing else")
	require.Len(t, doc.Blocks, 2)
	assert.Equal(t, BlockParagraph, doc.Blocks[0].Kind)
	assert.Equal(t, "either | or<br>nothing else", HTML(doc))
}

func TestMathSubstitution(t *testing.T) {
	assert.Equal(t, "Δ t ≈ 2 µ s", Render(`\Delta t \approx 2 \mu s`))
	assert.Equal(t, "(1 / 2) × 10", Render(`\frac{1}{2} \times 10`))
	assert.Equal(t, "x ≤ 5 ± 1", Render(`$x \leq 5 \pm 1$`))
	assert.Equal(t, "37 ° C", Render(`37 \degree C`))
}

func TestDollarsOnlyUnwrapMath(t *testing.T) {
	assert.Equal(t, "The fee is $5 or $10 per study", Render("The fee is $5 or $10 per study"))
	assert.Equal(t, "(a + b) → c", Render(`$\left(a + b\right) \rightarrow c$`))
	assert.Equal(t, "≤ 4.4 ms", Render(`$\le 4.4$ ms`))
}

func TestSubAndSuperscript(t *testing.T) {
	assert.Equal(t, "V<sub>max</sub> and 10<sup>3</sup>", Render("V_{max} and 10^3"))
	assert.Equal(t, "snake_case stays", Render("snake_case stays"))
}

func TestInlineMarkdown(t *testing.T) {
	in := "### Title\n## Sub\n**bold** and *it* and `code`\n* item\n- item2\n• item3"
	want := "<h3>Title</h3><h4>Sub</h4><strong>bold</strong> and <em>it</em> and <code>code</code>" +
		"<br>• item<br>• item2<br>• item3"
	assert.Equal(t, want, Render(in))
}

func TestArithmeticStarsAreNotItalic(t *testing.T) {
	assert.Equal(t, "2 * 3 * 4", Render("2 * 3 * 4"))
}

func TestTokenizeKeepsTagsWhole(t *testing.T) {
	html := Render("**Median** nerve: `3.6 ms` latency\nA | B\n---|---\n1 | 2")
	tokens := Tokenize(html)
	require.NotEmpty(t, tokens)
	assert.Equal(t, html, Join(tokens))

	for _, tok := range tokens {
		if tok.IsTag {
			assert.True(t, strings.HasPrefix(tok.Text, "<") && strings.HasSuffix(tok.Text, ">"), tok.Text)
			assert.Equal(t, 1, strings.Count(tok.Text, "<"))
		} else {
			assert.NotContains(t, tok.Text, "<")
		}
	}
}

func TestTokenizeSplitsWhitespace(t *testing.T) {
	got := Tokenize("<strong>hi there</strong>")
	assert.Equal(t, []Token{
		{Text: "<strong>", IsTag: true},
		{Text: "hi"},
		{Text: " "},
		{Text: "there"},
		{Text: "</strong>", IsTag: true},
	}, got)
}

func TestTokenizeANSI(t *testing.T) {
	got := TokenizeANSI("\x1b[1mbold\x1b[0m text")
	assert.Equal(t, []Token{
		{Text: "\x1b[1m", IsTag: true},
		{Text: "bold"},
		{Text: "\x1b[0m", IsTag: true},
		{Text: " "},
		{Text: "text"},
	}, got)
}

func TestRevealRunsToCompletion(t *testing.T) {
	r := NewReveal(0)
	tokens := Tokenize("<strong>hi there</strong> friend")
	require.NotNil(t, r.Start(7, tokens))
	assert.Equal(t, 7, r.Target())

	steps := 0
	for r.Active() {
		_, ok := r.Step(RevealMsg{Gen: r.Gen()})
		require.True(t, ok)
		steps++
		assert.True(t, strings.HasPrefix(Join(tokens), r.Text()))
		assert.Equal(t, strings.Count(r.Text(), "<"), strings.Count(r.Text(), ">"), "tags are never split")
		require.Less(t, steps, 20)
	}
	assert.Equal(t, Join(tokens), r.Text())
	assert.Greater(t, steps, 1)
}

func TestRevealIgnoresStaleSteps(t *testing.T) {
	r := NewReveal(0)
	r.Start(1, Tokenize("one two three"))
	stale := r.Gen()

	r.Start(2, Tokenize("four five"))
	cmd, ok := r.Step(RevealMsg{Gen: stale})
	assert.False(t, ok)
	assert.Nil(t, cmd)
	assert.Empty(t, r.Text())

	_, ok = r.Step(RevealMsg{Gen: r.Gen()})
	assert.True(t, ok)
	assert.Equal(t, "four", r.Text())
}

func TestRevealCancelAndFlush(t *testing.T) {
	r := NewReveal(0)
	r.Start(1, Tokenize("one two three"))
	gen := r.Gen()

	assert.Equal(t, "one two three", r.Flush())
	assert.False(t, r.Active())
	_, ok := r.Step(RevealMsg{Gen: gen})
	assert.False(t, ok)

	r.Start(2, Tokenize("a b"))
	r.Cancel()
	assert.False(t, r.Active())
	assert.Nil(t, r.Start(3, nil))
}

func TestPanelTextAndSanitize(t *testing.T) {
	body := "<h3>Setup</h3><p>Run <code>learnemg key set</code></p>"
	assert.Equal(t, "Setup\nRun learnemg key set", PanelText(body))

	assert.Equal(t, "<p>hi</p>", Sanitize(`<p onclick="x()">hi</p><script>bad()</script>`))
}

func TestTerminalRendersTableAndBullets(t *testing.T) {
	out := Terminal(Parse("A | B\n---|---\n1 | 2\n* item"), 0, DefaultTermStyles("#90CAF9"))
	for _, want := range []string{"A", "B", "1", "2", "•", "item"} {
		assert.Contains(t, out, want)
	}
	assert.Equal(t, "10³ and Vₘₐₓ", Terminal(Parse("10^3 and V_{max}"), 0, DefaultTermStyles("#fff")))
}
