// Package companion runs the study companion: it owns the conversation,
// decides between reflexes and network calls, recovers from a stale model
// once, and turns every failure into a chat bubble.
//
// The Engine is driven from a Bubble Tea Update loop. Network work happens
// in tea.Cmd goroutines; all state changes happen in Update.
package companion

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"learnemg/internal/config"
	"learnemg/internal/gemini"
	"learnemg/internal/models"
	"learnemg/internal/persona"
	"learnemg/internal/reflex"
	"learnemg/internal/render"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
)

// Generator is the slice of the API client the engine needs.
type Generator interface {
	Generate(ctx context.Context, req gemini.Request) (string, error)
	DiscoverWorkingModel(ctx context.Context) (string, error)
	SetModel(id string) error
	Model() string
	HasCredential() bool
	SetAPIKey(key string) error
}

// Panel shows a titled HTML document outside the chat.
type Panel interface {
	Show(title, html string)
}

// ContentSource exposes the study page currently on screen.
type ContentSource interface {
	VisibleText() string
}

// Recorder keeps a transcript of upstream turns.
type Recorder interface {
	Record(personaID, modelID string, msg models.ConversationMessage) error
	Reset()
}

// State is the lifecycle of the current query.
type State int

const (
	StateIdle State = iota
	StateAwaiting
	StateRendering
	StateRecovering
)

func (s State) String() string {
	switch s {
	case StateAwaiting:
		return "awaiting"
	case StateRendering:
		return "rendering"
	case StateRecovering:
		return "recovering"
	default:
		return "idle"
	}
}

// RenderFunc turns a reply into the string the log displays.
type RenderFunc func(text string, p models.Persona) string

type Deps struct {
	Personas  *persona.Manager
	Reflex    *reflex.Matcher
	Generator Generator
	Panel     Panel
	Content   ContentSource
	Recorder  Recorder
	Log       *slog.Logger
}

type query struct {
	id      string
	text    string
	image   *models.Attachment
	model   string
	attempt int
	cause   error
}

type replyMsg struct {
	queryID string
	text    string
	err     error
}

type discoveredMsg struct {
	queryID string
	model   string
	err     error
}

type reflexMsg struct {
	epoch     uint64
	personaID string
	text      string
}

type loadingMsg struct {
	epoch uint64
}

// Engine is the companion's state machine.
type Engine struct {
	deps     Deps
	cfg      config.CompanionConfig
	log      *slog.Logger
	timeout  time.Duration
	renderFn RenderFunc

	Conv      *Conversation
	Reveal    *render.Reveal
	Idle      *IdleMonitor
	Selection *SelectionTooltip

	state        State
	panelOpen    bool
	inflight     *query
	loadingEpoch uint64
	convEpoch    uint64 // bumped whenever the conversation is reset
}

func New(deps Deps, cfg config.CompanionConfig) *Engine {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	if deps.Personas == nil {
		deps.Personas = persona.NewManager()
	}
	if deps.Reflex == nil {
		deps.Reflex = reflex.NewMatcher(reflex.DefaultRules)
	}
	return &Engine{
		deps:      deps,
		cfg:       cfg,
		log:       deps.Log.With("component", "companion"),
		timeout:   2 * time.Minute,
		renderFn:  defaultRender,
		Conv:      NewConversation(cfg.HistoryLimit),
		Reveal:    render.NewReveal(cfg.RevealDelay.Duration),
		Idle:      NewIdleMonitor(cfg.IdleTimeout.Duration),
		Selection: NewSelectionTooltip(cfg.SelectionDebounce.Duration, cfg.SelectionMinLen),
	}
}

func defaultRender(text string, p models.Persona) string {
	return render.Terminal(render.Parse(text), 72, render.DefaultTermStyles(p.ThemeColor))
}

// SetRenderer replaces the reply renderer, e.g. when the panel is resized.
func (e *Engine) SetRenderer(fn RenderFunc) {
	if fn != nil {
		e.renderFn = fn
	}
}

// RenderEntry renders a finished bubble the same way replies are revealed.
func (e *Engine) RenderEntry(entry Entry) string {
	p, ok := persona.Lookup(entry.PersonaID)
	if !ok {
		p = e.deps.Personas.Active()
	}
	return e.renderFn(entry.Text, p)
}

func (e *Engine) State() State { return e.state }

// Busy reports whether a request is in flight. A paced reflex line counts
// until it lands.
func (e *Engine) Busy() bool { return e.state == StateAwaiting || e.state == StateRecovering }

func (e *Engine) PanelOpen() bool { return e.panelOpen }

func (e *Engine) Persona() models.Persona { return e.deps.Personas.Active() }

// SetPanelOpen shows or hides the chat panel. Idle remarks only run while
// it is open.
func (e *Engine) SetPanelOpen(open bool) tea.Cmd {
	e.panelOpen = open
	return e.Idle.Touch(open)
}

// Touch records user activity.
func (e *Engine) Touch() tea.Cmd {
	return e.Idle.Touch(e.panelOpen)
}

// SwitchPersona toggles the persona. History is kept.
func (e *Engine) SwitchPersona() models.Persona {
	p := e.deps.Personas.Switch()
	e.log.Info("persona switched", "persona", p.ID)
	return p
}

// SelectionChanged forwards a page selection to the tooltip.
func (e *Engine) SelectionChanged(text string, at Anchor) tea.Cmd {
	return e.Selection.Changed(text, at)
}

// Submit handles text typed into the chat box.
func (e *Engine) Submit(text string, image *models.Attachment) tea.Cmd {
	text = strings.TrimSpace(text)
	if text == "" && image == nil {
		return nil
	}
	if strings.HasPrefix(text, "/") {
		return e.command(text)
	}
	if text == "" {
		text = "What does this image show?"
	}
	if e.Busy() {
		e.log.Debug("submission rejected while busy")
		return nil
	}
	e.finishReveal()

	p := e.deps.Personas.Active()
	if image == nil {
		if line, ok := e.deps.Reflex.Match(text, p.ID); ok {
			e.addUser(text, text)
			e.state = StateAwaiting
			e.log.Info("reflex matched", "persona", p.ID)
			epoch := e.convEpoch
			return tea.Tick(e.cfg.ReflexDelay.Duration, func(time.Time) tea.Msg {
				return reflexMsg{epoch: epoch, personaID: p.ID, text: line}
			})
		}
	}
	return e.ask(text, text, image)
}

// ActivateSelection consumes the tooltip and asks about the selected text in
// a fresh conversation.
func (e *Engine) ActivateSelection() tea.Cmd {
	if e.Busy() {
		return nil
	}
	text, ok := e.Selection.Activate()
	if !ok {
		return nil
	}
	return e.SubmitContextual(text)
}

// SubmitContextual clears the conversation and asks about text taken from
// the page. Reflexes never answer these.
func (e *Engine) SubmitContextual(text string) tea.Cmd {
	text = strings.TrimSpace(text)
	if text == "" || e.Busy() {
		return nil
	}
	e.reset()
	display, prompt := SelectionQuery(text)
	return e.ask(display, prompt, nil)
}

// SummarizePage asks for a summary of the visible study page.
func (e *Engine) SummarizePage() tea.Cmd {
	if e.Busy() {
		return nil
	}
	e.finishReveal()
	text := ""
	if e.deps.Content != nil {
		text = strings.TrimSpace(e.deps.Content.VisibleText())
	}
	if text == "" {
		e.notice("There's no study page open to summarize.")
		return nil
	}
	return e.ask("Summarize this page", summarizePrompt+text, nil)
}

// Clear starts a fresh conversation. A reply still in flight is dropped
// when it arrives.
func (e *Engine) Clear() {
	e.reset()
	e.inflight = nil
	e.state = StateIdle
}

func (e *Engine) reset() {
	e.convEpoch++
	e.Reveal.Cancel()
	e.Conv.Clear()
	if e.deps.Recorder != nil {
		e.deps.Recorder.Reset()
	}
}

func (e *Engine) addUser(display, prompt string) {
	e.Conv.Add(models.RoleUser, "", display, prompt)
	e.record(models.ConversationMessage{Role: models.RoleUser, DisplayText: display, ContextText: prompt})
}

func (e *Engine) record(msg models.ConversationMessage) {
	if e.deps.Recorder == nil {
		return
	}
	model := ""
	if e.deps.Generator != nil {
		model = e.deps.Generator.Model()
	}
	if err := e.deps.Recorder.Record(e.deps.Personas.Active().ID, model, msg); err != nil {
		e.log.Warn("transcript write failed", "error", err)
	}
}

func (e *Engine) notice(text string) {
	e.Conv.AddLocal(models.RoleAssistant, e.deps.Personas.Active().ID, text, true)
}

// ask appends the user turn and issues the request.
func (e *Engine) ask(display, prompt string, image *models.Attachment) tea.Cmd {
	e.addUser(display, prompt)
	p := e.deps.Personas.Active()

	if e.deps.Generator == nil || !e.deps.Generator.HasCredential() {
		if e.deps.Panel != nil {
			e.deps.Panel.Show("Connect the companion", render.Render(setupInstructions))
		}
		return e.reply(p, Message(KindMissingCredential, p, gemini.ErrMissingCredential))
	}

	q := &query{id: uuid.NewString(), text: prompt, image: image}
	e.inflight = q
	e.state = StateAwaiting
	e.Conv.ShowLoading(p.ID, pick(thinkingLines[p.ID]))
	e.loadingEpoch++
	e.log.Info("query sent", "query", q.id, "persona", p.ID, "model", e.deps.Generator.Model())

	return tea.Batch(e.generate(q), e.loadingTick())
}

func (e *Engine) generate(q *query) tea.Cmd {
	req := gemini.Request{
		Query:        q.text,
		SystemPrompt: e.deps.Personas.Active().SystemPrompt,
		History:      e.Conv.History(),
		Model:        q.model,
		Image:        q.image,
	}
	gen, timeout, id := e.deps.Generator, e.timeout, q.id
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		text, err := gen.Generate(ctx, req)
		return replyMsg{queryID: id, text: text, err: err}
	}
}

func (e *Engine) discover(q *query) tea.Cmd {
	gen, timeout, id := e.deps.Generator, e.timeout, q.id
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		model, err := gen.DiscoverWorkingModel(ctx)
		return discoveredMsg{queryID: id, model: model, err: err}
	}
}

func (e *Engine) loadingTick() tea.Cmd {
	epoch := e.loadingEpoch
	return tea.Tick(e.cfg.LoadingInterval.Duration, func(time.Time) tea.Msg {
		return loadingMsg{epoch: epoch}
	})
}

// reply posts an assistant bubble, which also becomes the model turn in
// history, and starts revealing it.
func (e *Engine) reply(p models.Persona, text string) tea.Cmd {
	e.Conv.RemoveLoading()
	entry := e.Conv.Add(models.RoleAssistant, p.ID, text, "")
	e.record(models.ConversationMessage{Role: models.RoleAssistant, DisplayText: text, ContextText: text})
	cmd := e.Reveal.Start(entry.ID, render.TokenizeANSI(e.renderFn(text, p)))
	if cmd == nil {
		e.state = StateIdle
		return nil
	}
	e.state = StateRendering
	return cmd
}

// finishReveal completes any reveal in progress so a new bubble can start.
func (e *Engine) finishReveal() {
	if e.Reveal.Active() {
		e.Reveal.Flush()
	}
	if e.state == StateRendering {
		e.state = StateIdle
	}
}

func (e *Engine) fail(kind Kind, err error) tea.Cmd {
	p := e.deps.Personas.Active()
	e.inflight = nil
	e.log.Warn("query failed", "kind", kind.String(), "error", err)
	return e.reply(p, Message(kind, p, err))
}

// Update applies engine messages. handled is false for messages the engine
// doesn't own.
func (e *Engine) Update(msg tea.Msg) (cmd tea.Cmd, handled bool) {
	switch msg := msg.(type) {
	case replyMsg:
		return e.onReply(msg), true

	case discoveredMsg:
		return e.onDiscovered(msg), true

	case reflexMsg:
		if msg.epoch != e.convEpoch || e.inflight != nil {
			e.log.Debug("stale reflex dropped")
			return nil, true
		}
		e.finishReveal()
		p, ok := persona.Lookup(msg.personaID)
		if !ok {
			p = e.deps.Personas.Active()
		}
		return e.reply(p, msg.text), true

	case loadingMsg:
		if msg.epoch != e.loadingEpoch || !e.Busy() {
			return nil, true
		}
		p := e.deps.Personas.Active()
		if !e.Conv.SetLoadingText(p.ID, pick(thinkingLines[p.ID])) {
			return nil, true
		}
		return e.loadingTick(), true

	case render.RevealMsg:
		next, ok := e.Reveal.Step(msg)
		if ok && !e.Reveal.Active() && e.state == StateRendering {
			e.state = StateIdle
		}
		return next, true

	case IdleMsg:
		p := e.deps.Personas.Active()
		if !e.Idle.Fire(msg, e.panelOpen, e.Busy(), p.Hostile) {
			return nil, true
		}
		lines := idleLines[p.ID]
		if len(lines) == 0 {
			return nil, true
		}
		e.finishReveal()
		e.log.Debug("idle remark", "persona", p.ID)
		return e.reply(p, pick(lines)), true

	case SelectionMsg:
		e.Selection.Settle(msg, e.Busy())
		return nil, true
	}
	return nil, false
}

func (e *Engine) onReply(msg replyMsg) tea.Cmd {
	q := e.inflight
	if q == nil || q.id != msg.queryID {
		e.log.Debug("stale reply dropped", "query", msg.queryID)
		return nil
	}
	if msg.err == nil {
		e.inflight = nil
		e.log.Info("reply received", "query", q.id, "attempt", q.attempt, "chars", len(msg.text))
		return e.reply(e.deps.Personas.Active(), msg.text)
	}

	kind := Classify(msg.err)
	if kind.Retryable() && q.attempt == 0 {
		e.state = StateRecovering
		q.cause = msg.err
		e.log.Info("model not found, discovering", "query", q.id, "model", e.deps.Generator.Model())
		return e.discover(q)
	}
	return e.fail(kind, msg.err)
}

func (e *Engine) onDiscovered(msg discoveredMsg) tea.Cmd {
	q := e.inflight
	if q == nil || q.id != msg.queryID {
		return nil
	}
	if msg.err != nil || msg.model == "" {
		cause := msg.err
		if cause == nil {
			cause = fmt.Errorf("no usable model: %w", q.cause)
		}
		return e.fail(KindModelNotFound, cause)
	}
	if err := e.deps.Generator.SetModel(msg.model); err != nil {
		e.log.Warn("could not persist model", "model", msg.model, "error", err)
	}
	q.attempt++
	q.model = msg.model
	e.state = StateAwaiting
	e.log.Info("retrying with discovered model", "query", q.id, "model", msg.model)
	return e.generate(q)
}

func (e *Engine) command(line string) tea.Cmd {
	name, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "clear":
		e.Clear()
		e.notice("Fresh start.")
	case "key":
		if arg == "" {
			e.notice("Usage: /key YOUR_GEMINI_API_KEY")
			return nil
		}
		if e.deps.Generator == nil {
			return nil
		}
		if err := e.deps.Generator.SetAPIKey(arg); err != nil {
			e.log.Error("save api key", "error", err)
			e.notice("Couldn't save the key: " + err.Error())
			return nil
		}
		e.notice("API key saved.")
	case "model":
		if e.deps.Generator == nil {
			return nil
		}
		if arg == "" {
			e.notice("Current model: " + e.deps.Generator.Model())
			return nil
		}
		if err := e.deps.Generator.SetModel(arg); err != nil {
			e.notice("Couldn't save the model: " + err.Error())
			return nil
		}
		e.notice("Model set to " + arg + ".")
	case "persona":
		p := e.SwitchPersona()
		e.notice(p.DisplayName + " is now on call.")
	case "summarize":
		return e.SummarizePage()
	case "help":
		e.notice(helpText)
	default:
		e.notice("Unknown command /" + name + ". Try /help.")
	}
	return nil
}

func pick(pool []string) string {
	if len(pool) == 0 {
		return "..."
	}
	return pool[rand.IntN(len(pool))]
}
