// Package db keeps companion transcripts in sqlite. Functions take the
// *sql.DB returned by Open.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"learnemg/internal/models"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a chat id does not exist.
var ErrNotFound = errors.New("chat not found")

// Pragmas go in the DSN so every pooled connection gets them.
const pragmas = "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS chats (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		model_id TEXT NOT NULL,
		persona_id TEXT NOT NULL,
		last_user_prompt TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		chat_id INTEGER NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
		role TEXT NOT NULL,
		display_text TEXT NOT NULL,
		context_text TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_chats_updated_at ON chats(updated_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_chat_id ON messages(chat_id, id)`,
}

const chatColumns = "id, updated_at, last_user_prompt, model_id, persona_id"

// Open opens the transcript database at path, creating the schema if needed.
func Open(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("transcript dir: %w", err)
	}
	db, err := sql.Open("sqlite", path+pragmas)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate %s: %w", path, err)
		}
	}
	return db, nil
}

// CreateChat starts an empty chat and returns its id.
func CreateChat(db *sql.DB, nowUnix int64, modelID, personaID string) (int64, error) {
	res, err := db.Exec(
		"INSERT INTO chats(created_at, updated_at, model_id, persona_id) VALUES(?, ?, ?, ?)",
		nowUnix, nowUnix, modelID, personaID,
	)
	if err != nil {
		return 0, fmt.Errorf("create chat: %w", err)
	}
	return res.LastInsertId()
}

func InsertMessage(db *sql.DB, chatID int64, msg models.ConversationMessage, nowUnix int64) error {
	_, err := db.Exec(
		"INSERT INTO messages(chat_id, role, display_text, context_text, created_at) VALUES(?, ?, ?, ?, ?)",
		chatID, string(msg.Role), msg.DisplayText, msg.ContextText, nowUnix,
	)
	if err != nil {
		return fmt.Errorf("insert message into chat %d: %w", chatID, err)
	}
	return nil
}

// UpdateChatOnUser records a user turn on the chat row: timestamp, the
// model and persona in use, and the prompt shown in the history list.
func UpdateChatOnUser(db *sql.DB, chatID int64, nowUnix int64, modelID, personaID, lastUserPrompt string) error {
	return updateChat(db, chatID,
		"UPDATE chats SET updated_at = ?, model_id = ?, persona_id = ?, last_user_prompt = ? WHERE id = ?",
		nowUnix, modelID, personaID, lastUserPrompt, chatID)
}

func TouchChat(db *sql.DB, chatID int64, nowUnix int64) error {
	return updateChat(db, chatID, "UPDATE chats SET updated_at = ? WHERE id = ?", nowUnix, chatID)
}

func updateChat(db *sql.DB, chatID int64, query string, args ...any) error {
	if _, err := db.Exec(query, args...); err != nil {
		return fmt.Errorf("update chat %d: %w", chatID, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanChat(s scanner) (models.ChatListItem, error) {
	var c models.ChatListItem
	err := s.Scan(&c.ID, &c.UpdatedAtUnix, &c.LastUserPrompt, &c.ModelID, &c.PersonaID)
	return c, err
}

// GetChat loads one chat row.
func GetChat(db *sql.DB, chatID int64) (models.ChatListItem, error) {
	c, err := scanChat(db.QueryRow("SELECT "+chatColumns+" FROM chats WHERE id = ?", chatID))
	if errors.Is(err, sql.ErrNoRows) {
		return c, fmt.Errorf("%w: %d", ErrNotFound, chatID)
	}
	return c, err
}

// GetRecentChats returns the total chat count and one page of chats, newest
// first.
func GetRecentChats(db *sql.DB, limit, offset int) (int, []models.ChatListItem, error) {
	var total int
	if err := db.QueryRow("SELECT COUNT(*) FROM chats").Scan(&total); err != nil {
		return 0, nil, fmt.Errorf("count chats: %w", err)
	}

	rows, err := db.Query(
		"SELECT "+chatColumns+" FROM chats ORDER BY updated_at DESC, id DESC LIMIT ? OFFSET ?",
		limit, offset,
	)
	if err != nil {
		return 0, nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	page := make([]models.ChatListItem, 0, limit)
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return 0, nil, err
		}
		page = append(page, c)
	}
	return total, page, rows.Err()
}

// GetChatMessages returns a chat's messages in insertion order.
func GetChatMessages(db *sql.DB, chatID int64) ([]models.DBMessage, error) {
	rows, err := db.Query(
		"SELECT role, display_text, context_text FROM messages WHERE chat_id = ? ORDER BY id",
		chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("load chat %d: %w", chatID, err)
	}
	defer rows.Close()

	msgs := []models.DBMessage{}
	for rows.Next() {
		var m models.DBMessage
		if err := rows.Scan(&m.Role, &m.DisplayText, &m.ContextText); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// DeleteChat removes a chat; its messages go with it.
func DeleteChat(db *sql.DB, chatID int64) error {
	if _, err := db.Exec("DELETE FROM chats WHERE id = ?", chatID); err != nil {
		return fmt.Errorf("delete chat %d: %w", chatID, err)
	}
	return nil
}
