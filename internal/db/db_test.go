package db

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"learnemg/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := Open(filepath.Join(t.TempDir(), "data", "learnemg.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestChatRoundTrip(t *testing.T) {
	conn := openTestDB(t)

	id, err := CreateChat(conn, 100, "gemini-2.0-flash", "mentor")
	require.NoError(t, err)

	require.NoError(t, InsertMessage(conn, id, models.ConversationMessage{
		Role: models.RoleUser, DisplayText: "Explain: \"F-wave\"", ContextText: "Explain this text: \"F-wave\"",
	}, 101))
	require.NoError(t, InsertMessage(conn, id, models.ConversationMessage{
		Role: models.RoleAssistant, DisplayText: "A late response.", ContextText: "A late response.",
	}, 102))
	require.NoError(t, UpdateChatOnUser(conn, id, 101, "gemini-1.5-flash", "grump", "Explain: \"F-wave\""))

	msgs, err := GetChatMessages(conn, id)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, models.RoleUser, msgs[0].Role)
	assert.Equal(t, "Explain this text: \"F-wave\"", msgs[0].ContextText)
	assert.Equal(t, "A late response.", msgs[1].DisplayText)

	count, items, err := GetRecentChats(conn, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, items, 1)
	assert.Equal(t, "grump", items[0].PersonaID)
	assert.Equal(t, "gemini-1.5-flash", items[0].ModelID)
}

func TestRecentChatsPagination(t *testing.T) {
	conn := openTestDB(t)
	for i := int64(1); i <= 5; i++ {
		_, err := CreateChat(conn, i, "m", "mentor")
		require.NoError(t, err)
	}

	count, page, err := GetRecentChats(conn, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
	require.Len(t, page, 2)
	assert.Equal(t, int64(3), page[0].UpdatedAtUnix)
	assert.Equal(t, int64(2), page[1].UpdatedAtUnix)
}

func TestTouchAndDelete(t *testing.T) {
	conn := openTestDB(t)
	first, err := CreateChat(conn, 1, "m", "mentor")
	require.NoError(t, err)
	_, err = CreateChat(conn, 2, "m", "mentor")
	require.NoError(t, err)

	require.NoError(t, TouchChat(conn, first, 50))
	_, items, err := GetRecentChats(conn, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, first, items[0].ID)

	require.NoError(t, InsertMessage(conn, first, models.ConversationMessage{Role: models.RoleUser, DisplayText: "x", ContextText: "x"}, 3))
	require.NoError(t, DeleteChat(conn, first))

	msgs, err := GetChatMessages(conn, first)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestRecorderStartsChatLazily(t *testing.T) {
	conn := openTestDB(t)
	rec := NewRecorder(conn)
	clock := int64(1000)
	rec.now = func() time.Time {
		clock++
		return time.Unix(clock, 0)
	}

	assert.Zero(t, rec.ChatID())
	require.NoError(t, rec.Record("grump", "gemini-2.0-flash", models.ConversationMessage{Role: models.RoleUser, DisplayText: "why 60Hz", ContextText: "why 60Hz"}))
	require.NoError(t, rec.Record("grump", "gemini-2.0-flash", models.ConversationMessage{Role: models.RoleAssistant, DisplayText: "ground", ContextText: "ground"}))
	first := rec.ChatID()
	require.NotZero(t, first)

	rec.Reset()
	require.NoError(t, rec.Record("mentor", "gemini-2.0-flash", models.ConversationMessage{Role: models.RoleUser, DisplayText: "next", ContextText: "next"}))
	assert.NotEqual(t, first, rec.ChatID())

	count, items, err := GetRecentChats(conn, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, "next", items[0].LastUserPrompt)
	assert.Equal(t, "why 60Hz", items[1].LastUserPrompt)

	msgs, err := GetChatMessages(conn, first)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestGetChat(t *testing.T) {
	conn := openTestDB(t)
	id, err := CreateChat(conn, 7, "gemini-2.0-flash", "grump")
	require.NoError(t, err)

	c, err := GetChat(conn, id)
	require.NoError(t, err)
	assert.Equal(t, id, c.ID)
	assert.Equal(t, "grump", c.PersonaID)
	assert.Equal(t, int64(7), c.UpdatedAtUnix)

	_, err = GetChat(conn, id+1)
	assert.ErrorIs(t, err, ErrNotFound)
}
