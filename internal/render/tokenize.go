package render

import (
	"strings"
	"unicode"

	"github.com/charmbracelet/x/ansi"
)

// Token is one unit of a typewriter reveal. Tags are always whole.
type Token struct {
	Text  string
	IsTag bool
}

// Tokenize splits rendered HTML into tag tokens and word/whitespace tokens.
func Tokenize(html string) []Token {
	var out []Token
	for len(html) > 0 {
		if html[0] == '<' {
			if end := strings.IndexByte(html, '>'); end >= 0 {
				out = append(out, Token{Text: html[:end+1], IsTag: true})
				html = html[end+1:]
				continue
			}
		}
		next := strings.IndexByte(html[1:], '<')
		run := html
		if next >= 0 {
			run = html[:next+1]
		}
		out = appendWords(out, run)
		html = html[len(run):]
	}
	return out
}

// TokenizeANSI splits styled terminal text the same way, treating escape
// sequences as tags.
func TokenizeANSI(s string) []Token {
	var (
		out   []Token
		run   strings.Builder
		state byte
	)
	for len(s) > 0 {
		seq, width, n, next := ansi.DecodeSequence(s, state, nil)
		state = next
		if width == 0 && (seq[0] == ansi.ESC || seq[0] == ansi.CSI) {
			out = appendWords(out, run.String())
			run.Reset()
			out = append(out, Token{Text: seq, IsTag: true})
		} else {
			run.WriteString(seq)
		}
		s = s[n:]
	}
	return appendWords(out, run.String())
}

// appendWords splits run into alternating word and whitespace tokens.
func appendWords(out []Token, run string) []Token {
	start := 0
	inSpace := false
	for i, r := range run {
		space := unicode.IsSpace(r)
		if i == start {
			inSpace = space
			continue
		}
		if space != inSpace {
			out = append(out, Token{Text: run[start:i]})
			start = i
			inSpace = space
		}
	}
	if start < len(run) {
		out = append(out, Token{Text: run[start:]})
	}
	return out
}

// Join concatenates tokens.
func Join(tokens []Token) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(t.Text)
	}
	return b.String()
}
