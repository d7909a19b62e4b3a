package ui

import (
	"cmp"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"learnemg/internal/models"
	"learnemg/internal/styles"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/mattn/go-runewidth"
)

// MaxImageBytes caps attachments; Gemini rejects inline data much above this.
const MaxImageBytes = 15 << 20

const maxSuggestions = 10

var (
	mentionRE    = regexp.MustCompile(`@("([^"]+)"|([^\s]+))`)
	whitespaceRE = regexp.MustCompile(`\s+`)
	imageExts    = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".webp": true, ".gif": true}
	skipDirs     = map[string]bool{"node_modules": true, "vendor": true}
)

func isImage(name string) bool {
	return imageExts[strings.ToLower(filepath.Ext(name))]
}

type suggestion struct {
	path  string
	isDir bool
}

// GetImageSuggestions returns images and directories under dir matching a
// prefix typed after @. A prefix containing a slash lists that directory;
// anything else searches image names recursively.
func GetImageSuggestions(dir, prefix string) []string {
	var found []suggestion
	if strings.Contains(prefix, "/") {
		found = listDir(os.DirFS(dir), prefix)
	} else {
		found = searchImages(os.DirFS(dir), prefix)
	}

	slices.SortFunc(found, func(a, b suggestion) int {
		if a.isDir != b.isDir {
			if a.isDir {
				return -1
			}
			return 1
		}
		if c := cmp.Compare(strings.Count(a.path, "/"), strings.Count(b.path, "/")); c != 0 {
			return c
		}
		return cmp.Compare(strings.ToLower(a.path), strings.ToLower(b.path))
	})

	out := make([]string, 0, min(len(found), maxSuggestions))
	for _, s := range found[:min(len(found), maxSuggestions)] {
		out = append(out, s.path)
	}
	return out
}

func listDir(fsys fs.FS, prefix string) []suggestion {
	dir, base := path.Split(prefix)
	entries, err := fs.ReadDir(fsys, cmp.Or(strings.TrimSuffix(dir, "/"), "."))
	if err != nil {
		return nil
	}
	base = strings.ToLower(base)
	var out []suggestion
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(base, ".") {
			continue
		}
		if (e.IsDir() || isImage(name)) && strings.HasPrefix(strings.ToLower(name), base) {
			out = append(out, suggestion{path: dir + name, isDir: e.IsDir()})
		}
	}
	return out
}

func searchImages(fsys fs.FS, prefix string) []suggestion {
	needle := strings.ToLower(prefix)
	var out []suggestion
	_ = fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return nil
		case d.IsDir():
			if p != "." && (strings.HasPrefix(d.Name(), ".") || skipDirs[d.Name()]) {
				return fs.SkipDir
			}
			return nil
		case !isImage(d.Name()) || !strings.Contains(strings.ToLower(d.Name()), needle):
			return nil
		}
		out = append(out, suggestion{path: p})
		if len(out) >= 2*maxSuggestions {
			return fs.SkipAll
		}
		return nil
	})
	return out
}

// ExtractImageMention pulls the first @image mention out of input. Mentions
// of anything that isn't an existing image file are left in the text.
func ExtractImageMention(input string) (clean string, image string) {
	clean = mentionRE.ReplaceAllStringFunc(input, func(m string) string {
		sub := mentionRE.FindStringSubmatch(m)
		name := cmp.Or(sub[2], sub[3])
		if image != "" || !isImage(name) {
			return m
		}
		if info, err := os.Stat(name); err != nil || info.IsDir() {
			return m
		}
		image = name
		return ""
	})
	clean = whitespaceRE.ReplaceAllString(strings.TrimSpace(clean), " ")
	return clean, image
}

// LoadAttachment reads an image for inline upload.
func LoadAttachment(path string) (*models.Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > MaxImageBytes {
		return nil, fmt.Errorf("%s is too large (%d MB max)", filepath.Base(path), MaxImageBytes>>20)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return nil, fmt.Errorf("%s is not an image", filepath.Base(path))
	}
	return &models.Attachment{MIMEType: mime, Data: data}, nil
}

// GetAtPosition reports the partial @mention ending at byte offset cursor.
func GetAtPosition(input string, cursor int) (prefix string, start int, found bool) {
	cursor = min(max(cursor, 0), len(input))
	at := strings.LastIndexAny(input[:cursor], "@ \t\n")
	if at < 0 || input[at] != '@' {
		return "", 0, false
	}
	return input[at+1 : cursor], at, true
}

// TextareaCursorIndex is the cursor's byte offset into t.Value().
func TextareaCursorIndex(t textarea.Model) int {
	lines := strings.Split(t.Value(), "\n")
	row := min(t.Line(), len(lines)-1)
	offset := 0
	for _, l := range lines[:row] {
		offset += len(l) + 1
	}
	li := t.LineInfo()
	return offset + runeOffset(lines[row], li.StartColumn+li.ColumnOffset)
}

// runeOffset is the byte offset of rune column col in s.
func runeOffset(s string, col int) int {
	for i := range s {
		if col <= 0 {
			return i
		}
		col--
	}
	return len(s)
}

// TextareaCursorFromIndex converts a byte offset into value to a row and a
// rune column.
func TextareaCursorFromIndex(value string, index int) (row int, col int) {
	index = min(max(index, 0), len(value))
	for index > 0 && index < len(value) && !utf8.RuneStart(value[index]) {
		index--
	}
	before := value[:index]
	lineStart := strings.LastIndexByte(before, '\n') + 1
	return strings.Count(before, "\n"), utf8.RuneCountInString(before[lineStart:])
}

// SetTextareaCursor moves the cursor to row and column col.
func SetTextareaCursor(t *textarea.Model, row int, col int) {
	if t.LineCount() == 0 {
		t.SetCursor(0)
		return
	}
	row = min(max(row, 0), t.LineCount()-1)
	// Soft-wrapped rows take several moves per logical line.
	for steps := 0; t.Line() != row && steps < 4096; steps++ {
		if t.Line() > row {
			t.CursorUp()
		} else {
			t.CursorDown()
		}
	}
	t.SetCursor(col)
}

// WrappedLineCount is the number of rows value occupies at width.
func WrappedLineCount(value string, width int) int {
	if width <= 0 {
		return 1
	}
	rows := 0
	for _, line := range strings.Split(value, "\n") {
		rows += max(1, (runewidth.StringWidth(line)+width-1)/width)
	}
	return rows
}

// PromptPreview collapses whitespace and caps s for list rows.
func PromptPreview(s string) string {
	return truncate(strings.Join(strings.Fields(s), " "), 500, "")
}

// TruncateRunes shortens s to n runes, ending in an ellipsis when cut.
func TruncateRunes(s string, n int) string {
	return truncate(s, n, "…")
}

func truncate(s string, n int, tail string) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	keep := n - utf8.RuneCountInString(tail)
	if keep <= 0 {
		return tail
	}
	return string([]rune(s)[:keep]) + tail
}

func RelativeTime(t time.Time) string {
	return relativeTime(time.Since(t))
}

var ageUnits = []struct {
	limit time.Duration
	size  time.Duration
	unit  string
}{
	{time.Hour, time.Minute, "min"},
	{24 * time.Hour, time.Hour, "hr"},
	{14 * 24 * time.Hour, 24 * time.Hour, "day"},
	{1<<63 - 1, 7 * 24 * time.Hour, "week"},
}

func relativeTime(d time.Duration) string {
	d = max(d, -d)
	if d < time.Minute {
		return "just now"
	}
	for _, u := range ageUnits {
		if d >= u.limit {
			continue
		}
		n := int(d / u.size)
		if n == 1 {
			return "1 " + u.unit + " ago"
		}
		return fmt.Sprintf("%d %ss ago", n, u.unit)
	}
	return "long ago"
}

func FormatUserMessage(content string, width int) string {
	label := styles.UserLabelStyle.Render("YOU")
	return label + "\n" + styles.UserMsgStyle.Width(max(width-4, 10)).Render(content)
}

func FormatAIMessage(p models.Persona, content string) string {
	label := styles.AiLabelStyle.Render(p.Glyph + " " + strings.ToUpper(p.DisplayName))
	return label + "\n" + styles.AiMsgStyle.Render(content)
}
