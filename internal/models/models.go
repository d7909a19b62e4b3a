package models

// Role identifies who authored a conversation turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Persona is a behavioral profile the companion can speak as.
// Personas are immutable once constructed.
type Persona struct {
	ID              string
	DisplayName     string
	AvatarRef       string // portrait linked from exported transcripts
	Glyph           string // terminal stand-in for the avatar
	ThemeColor      string
	BackgroundColor string // optional
	SystemPrompt    string
	Hostile         bool // enables unprompted idle remarks
}

// ConversationMessage is one turn of history. DisplayText is what the log
// shows; ContextText is what goes upstream for this turn.
type ConversationMessage struct {
	Role        Role
	DisplayText string
	ContextText string
}

// Attachment is an inline binary payload sent with a user turn.
type Attachment struct {
	MIMEType string
	Data     []byte
}

type AIModel struct {
	ID          string
	Name        string
	Description string
}

type ChatListItem struct {
	ID             int64
	UpdatedAtUnix  int64
	LastUserPrompt string
	ModelID        string
	PersonaID      string
}

type DBMessage struct {
	Role        Role
	DisplayText string
	ContextText string
}
