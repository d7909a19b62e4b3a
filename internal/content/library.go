// Package content loads the markdown study modules shown beside the
// companion and keeps them fresh when the files change.
package content

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

//go:embed modules/*.md
var builtin embed.FS

// Module is one study page.
type Module struct {
	ID       string // file name without extension
	Title    string
	Markdown string
}

// Library is an ordered set of modules.
type Library struct {
	dir     string
	modules []Module
}

// Load reads every *.md file in dir, sorted by name. An empty dir loads the
// built-in modules.
func Load(dir string) (*Library, error) {
	var fsys fs.FS = builtin
	root := "modules"
	if dir != "" {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("content dir: %w", err)
		}
		fsys = os.DirFS(dir)
		root = "."
	}

	mods, err := readModules(fsys, root)
	if err != nil {
		return nil, err
	}
	if len(mods) == 0 {
		return nil, errors.New("no study modules found in " + describe(dir))
	}
	return &Library{dir: dir, modules: mods}, nil
}

func describe(dir string) string {
	if dir == "" {
		return "built-in set"
	}
	return dir
}

func readModules(fsys fs.FS, root string) ([]Module, error) {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("read modules: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".md") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	mods := make([]Module, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, path.Join(root, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		id := strings.TrimSuffix(name, filepath.Ext(name))
		mods = append(mods, Module{ID: id, Title: titleOf(string(data), id), Markdown: string(data)})
	}
	return mods, nil
}

// titleOf returns the first heading, falling back to the id.
func titleOf(md, id string) string {
	for _, line := range strings.Split(md, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			if t := strings.TrimSpace(strings.TrimLeft(line, "#")); t != "" {
				return t
			}
		}
	}
	return id
}

func (l *Library) Dir() string { return l.dir }

func (l *Library) Len() int { return len(l.modules) }

// Modules returns a copy of the module list.
func (l *Library) Modules() []Module {
	out := make([]Module, len(l.modules))
	copy(out, l.modules)
	return out
}

// At returns module i, clamped into range.
func (l *Library) At(i int) Module {
	if i < 0 {
		i = 0
	}
	if i >= len(l.modules) {
		i = len(l.modules) - 1
	}
	return l.modules[i]
}

// Index finds a module by id.
func (l *Library) Index(id string) (int, bool) {
	for i, m := range l.modules {
		if m.ID == id {
			return i, true
		}
	}
	return 0, false
}
