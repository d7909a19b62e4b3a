package content

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
)

// ChangedMsg tells the UI the module directory changed on disk.
type ChangedMsg struct {
	Path string
}

// Watcher reports edits to *.md files in a module directory. Bursts of
// events (editors write several times per save) collapse into one.
type Watcher struct {
	fw      *fsnotify.Watcher
	changes chan string
	done    chan struct{}
	log     *slog.Logger

	mu      sync.Mutex
	stopped bool
}

const debounceInterval = 150 * time.Millisecond

// Watch starts watching dir.
func Watch(dir string, log *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}
	w := &Watcher{
		fw:      fw,
		changes: make(chan string, 1),
		done:    make(chan struct{}),
		log:     log,
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	var (
		timer   *time.Timer
		pending string
		fire    <-chan time.Time
	)
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !strings.EqualFold(filepath.Ext(ev.Name), ".md") {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
				!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			pending = ev.Name
			if timer == nil {
				timer = time.NewTimer(debounceInterval)
			} else {
				timer.Reset(debounceInterval)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			select {
			case w.changes <- pending:
			default:
				// a change is already queued; the reload will pick this up too
			}

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			if w.log != nil {
				w.log.Warn("module watcher error", "error", err)
			}

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// Next blocks until the next change and returns it as a ChangedMsg. The UI
// re-issues it after each change.
func (w *Watcher) Next() tea.Cmd {
	return func() tea.Msg {
		select {
		case p := <-w.changes:
			return ChangedMsg{Path: p}
		case <-w.done:
			return nil
		}
	}
}

// Close stops the watcher. Safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.done)
	return w.fw.Close()
}
