package companion

import "learnemg/internal/models"

// DefaultHistoryLimit caps the turns sent upstream.
const DefaultHistoryLimit = 20

// Entry is one bubble in the visible log.
type Entry struct {
	ID        int
	Role      models.Role
	Text      string
	PersonaID string // author persona for assistant entries
	Loading   bool
	Notice    bool // local feedback such as command output; never sent upstream
}

// Conversation is the visible log plus the bounded history that goes
// upstream with each request.
type Conversation struct {
	limit   int
	nextID  int
	entries []Entry
	history []models.ConversationMessage
}

func NewConversation(limit int) *Conversation {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &Conversation{limit: limit}
}

func (c *Conversation) push(e Entry) Entry {
	c.nextID++
	e.ID = c.nextID
	c.entries = append(c.entries, e)
	return e
}

// Add appends a bubble and records the turn in history. An empty
// contextText means the display text is sent as is.
func (c *Conversation) Add(role models.Role, personaID, displayText, contextText string) Entry {
	if contextText == "" {
		contextText = displayText
	}
	c.history = append(c.history, models.ConversationMessage{
		Role:        role,
		DisplayText: displayText,
		ContextText: contextText,
	})
	if over := len(c.history) - c.limit; over > 0 {
		c.history = append(c.history[:0:0], c.history[over:]...)
	}
	return c.push(Entry{Role: role, PersonaID: personaID, Text: displayText})
}

// AddLocal appends a bubble that stays out of history.
func (c *Conversation) AddLocal(role models.Role, personaID, text string, notice bool) Entry {
	return c.push(Entry{Role: role, PersonaID: personaID, Text: text, Notice: notice})
}

// ShowLoading inserts the loading bubble, replacing any existing one.
func (c *Conversation) ShowLoading(personaID, text string) Entry {
	c.RemoveLoading()
	return c.push(Entry{Role: models.RoleAssistant, PersonaID: personaID, Text: text, Loading: true})
}

// SetLoadingText rewrites the loading bubble. It reports false when there is
// none.
func (c *Conversation) SetLoadingText(personaID, text string) bool {
	for i := range c.entries {
		if c.entries[i].Loading {
			c.entries[i].Text = text
			c.entries[i].PersonaID = personaID
			return true
		}
	}
	return false
}

func (c *Conversation) RemoveLoading() {
	for i, e := range c.entries {
		if e.Loading {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return
		}
	}
}

func (c *Conversation) Loading() bool {
	for _, e := range c.entries {
		if e.Loading {
			return true
		}
	}
	return false
}

// Clear empties the log and the history.
func (c *Conversation) Clear() {
	c.entries = nil
	c.history = nil
}

// History returns a copy of the upstream turns, oldest first.
func (c *Conversation) History() []models.ConversationMessage {
	out := make([]models.ConversationMessage, len(c.history))
	copy(out, c.history)
	return out
}

// Entries returns a copy of the visible log.
func (c *Conversation) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Entry looks up a bubble by id.
func (c *Conversation) Entry(id int) (Entry, bool) {
	for _, e := range c.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

func (c *Conversation) Limit() int { return c.limit }
