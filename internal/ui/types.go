package ui

import (
	"context"
	"database/sql"
	"log/slog"

	"learnemg/internal/companion"
	"learnemg/internal/config"
	"learnemg/internal/content"
	"learnemg/internal/models"
	"learnemg/internal/persona"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
)

const (
	HistoryPageSize = 10

	// Below this width the companion covers the page instead of sitting
	// beside it.
	CompactWidthThresh = 100

	// Auto-scroll only follows a reveal when the reader is this close to
	// the bottom of the chat.
	FollowSlack = 3
)

var ModalWidth = 60

// ModelLister fetches the models the configured key can use.
type ModelLister interface {
	ListModels(ctx context.Context) ([]models.AIModel, error)
}

// Options carries everything the UI needs from main.
type Options struct {
	Library  *content.Library
	Watcher  *content.Watcher // nil when using the built-in modules
	Personas *persona.Manager
	Deps     companion.Deps
	Settings config.CompanionConfig
	Lister   ModelLister
	DB       *sql.DB
	DBErr    error
	Log      *slog.Logger
}

type focus int

const (
	focusPage focus = iota
	focusChat
)

type (
	modelsListedMsg struct {
		models []models.AIModel
		err    error
	}
	libraryReloadedMsg struct {
		lib *content.Library
		err error
	}
)

// panel is the read-only document overlay used for setup instructions and
// past transcripts.
type panel struct {
	open  bool
	title string
	view  viewport.Model
}

// selection is the marked range of page lines.
type selection struct {
	active bool
	anchor int
	cursor int
}

func (s selection) bounds() (int, int) {
	if s.anchor <= s.cursor {
		return s.anchor, s.cursor
	}
	return s.cursor, s.anchor
}

type Model struct {
	Engine   *companion.Engine
	Gen      companion.Generator
	Personas *persona.Manager
	Library  *content.Library
	Watcher  *content.Watcher
	Pages    *content.Renderer
	Lister   ModelLister
	DB       *sql.DB
	DBErr    error
	log      *slog.Logger

	PageView  viewport.Model
	ChatView  viewport.Model
	TextInput textarea.Model
	Spinner   spinner.Model
	chatTail  int // id of the newest bubble drawn

	ModuleIdx  int
	Page       content.Page
	PageErr    error
	CursorLine int
	Sel        selection
	pageStyle  string
	pageWidth  int

	Focus         focus
	CompanionOpen bool
	Panel         panel
	Status        string

	WindowWidth  int
	WindowHeight int

	HistoryOpen        bool
	HistorySelectedIdx int
	HistoryChatCount   int
	HistoryChats       []models.ChatListItem
	HistoryErr         error
	HistoryPage        int

	ModelSelectorOpen  bool
	ModelViewport      viewport.Model
	AvailableModels    []models.AIModel
	SelectedModelIndex int
	ModelsErr          error
	ModelsLoading      bool

	ShortcutsOpen bool

	// Image attachment autocomplete
	FileSuggestOpen bool
	FileSuggestions []string
	FileSuggestIdx  int
	PendingImage    string

	unsubscribe func()
}
