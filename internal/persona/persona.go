// Package persona holds the two companion personas and tracks which one is
// active. Theme-bound UI subscribes to switches instead of hunting for
// elements to rewrite.
package persona

import (
	"fmt"
	"sync"

	"learnemg/internal/models"
)

const (
	MentorID = "mentor"
	GrumpID  = "grump"
)

const mentorPrompt = `You are Dr. Lumen, a patient and encouraging electrodiagnostic medicine attending who teaches residents EMG and nerve conduction studies.
Explain clearly, define abbreviations the first time you use them, and tie answers back to clinical reasoning.
Prefer short paragraphs, bullet lists and small markdown tables for reference values. Use plain unicode for units (µV, ms, m/s).
If a question is outside electrodiagnosis, answer briefly and steer back to the study material.`

const grumpPrompt = `You are Dr. Grimsby, a brilliant but perpetually unimpressed EMG attending. You are sarcastic, impatient and theatrical, but every answer you give is medically accurate and genuinely useful.
You may mock sloppy wording in the resident's own questions. Never mock text the resident quotes from the study application itself.
Keep answers tight. Use bullet lists and small markdown tables for reference values. Use plain unicode for units (µV, ms, m/s).`

// Registry is the fixed table of personas.
var Registry = [2]models.Persona{
	{
		ID:              MentorID,
		DisplayName:     "Dr. Lumen",
		AvatarRef:       "lumen_avatar.png",
		Glyph:           "◉",
		ThemeColor:      "#90CAF9",
		BackgroundColor: "#0F1B2D",
		SystemPrompt:    mentorPrompt,
	},
	{
		ID:              GrumpID,
		DisplayName:     "Dr. Grimsby",
		AvatarRef:       "grimsby_avatar.png",
		Glyph:           "◈",
		ThemeColor:      "#EF9A9A",
		BackgroundColor: "#2A1215",
		SystemPrompt:    grumpPrompt,
		Hostile:         true,
	},
}

// Lookup returns the persona with the given id.
func Lookup(id string) (models.Persona, bool) {
	for _, p := range Registry {
		if p.ID == id {
			return p, true
		}
	}
	return models.Persona{}, false
}

// Manager owns the active persona and notifies subscribers on change.
type Manager struct {
	mu     sync.Mutex
	active int
	nextID int
	subs   map[int]func(models.Persona)
}

func NewManager() *Manager {
	return &Manager{subs: make(map[int]func(models.Persona))}
}

// Active returns the active persona.
func (m *Manager) Active() models.Persona {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Registry[m.active]
}

// Switch toggles to the other persona and returns it.
func (m *Manager) Switch() models.Persona {
	m.mu.Lock()
	m.active = 1 - m.active
	p := Registry[m.active]
	subs := m.snapshot()
	m.mu.Unlock()

	for _, fn := range subs {
		fn(p)
	}
	return p
}

// SetActive selects a persona by id. Subscribers are notified only when the
// active persona actually changes.
func (m *Manager) SetActive(id string) (models.Persona, error) {
	m.mu.Lock()
	idx := -1
	for i, p := range Registry {
		if p.ID == id {
			idx = i
		}
	}
	if idx < 0 {
		m.mu.Unlock()
		return models.Persona{}, fmt.Errorf("unknown persona %q", id)
	}
	changed := idx != m.active
	m.active = idx
	p := Registry[idx]
	subs := m.snapshot()
	m.mu.Unlock()

	if changed {
		for _, fn := range subs {
			fn(p)
		}
	}
	return p, nil
}

// Subscribe registers fn for persona changes and calls it once with the
// current persona. The returned func removes the subscription.
func (m *Manager) Subscribe(fn func(models.Persona)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	p := Registry[m.active]
	m.mu.Unlock()

	fn(p)
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// snapshot must be called with mu held.
func (m *Manager) snapshot() []func(models.Persona) {
	out := make([]func(models.Persona), 0, len(m.subs))
	for i := 0; i < m.nextID; i++ {
		if fn, ok := m.subs[i]; ok {
			out = append(out, fn)
		}
	}
	return out
}
