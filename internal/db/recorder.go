package db

import (
	"database/sql"
	"time"

	"learnemg/internal/models"
)

// Recorder appends the companion's turns to the transcript tables. A chat
// row is created lazily on the first turn after Reset.
type Recorder struct {
	db     *sql.DB
	chatID int64
	now    func() time.Time
}

func NewRecorder(db *sql.DB) *Recorder {
	return &Recorder{db: db, now: time.Now}
}

func (r *Recorder) Record(personaID, modelID string, msg models.ConversationMessage) error {
	now := r.now().Unix()
	if r.chatID == 0 {
		id, err := CreateChat(r.db, now, modelID, personaID)
		if err != nil {
			return err
		}
		r.chatID = id
	}
	if err := InsertMessage(r.db, r.chatID, msg, now); err != nil {
		return err
	}
	if msg.Role == models.RoleUser {
		return UpdateChatOnUser(r.db, r.chatID, now, modelID, personaID, msg.DisplayText)
	}
	return TouchChat(r.db, r.chatID, now)
}

// Reset makes the next turn start a new chat.
func (r *Recorder) Reset() {
	r.chatID = 0
}

// ChatID is the chat currently being written, or 0.
func (r *Recorder) ChatID() int64 { return r.chatID }
