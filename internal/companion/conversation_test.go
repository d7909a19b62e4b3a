package companion

import (
	"fmt"
	"testing"

	"learnemg/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryEvictsOldestPastLimit(t *testing.T) {
	c := NewConversation(20)
	for i := 1; i <= 20; i++ {
		c.Add(models.RoleUser, "", fmt.Sprintf("msg %d", i), "")
	}
	require.Len(t, c.History(), 20)

	c.Add(models.RoleAssistant, "mentor", "msg 21", "")
	hist := c.History()
	require.Len(t, hist, 20)
	assert.Equal(t, "msg 2", hist[0].ContextText)
	assert.Equal(t, "msg 21", hist[19].ContextText)
	assert.Len(t, c.Entries(), 21, "the visible log is not capped")
}

func TestContextTextDefaultsToDisplay(t *testing.T) {
	c := NewConversation(0)
	c.Add(models.RoleUser, "", "shown", "")
	c.Add(models.RoleUser, "", "shown", "sent")

	hist := c.History()
	assert.Equal(t, "shown", hist[0].ContextText)
	assert.Equal(t, "sent", hist[1].ContextText)
	assert.Equal(t, DefaultHistoryLimit, c.Limit())
}

func TestLoadingEntryIsSingleAndTransient(t *testing.T) {
	c := NewConversation(20)
	c.Add(models.RoleUser, "", "question", "")
	c.ShowLoading("mentor", "Thinking...")
	c.ShowLoading("mentor", "Still thinking...")

	entries := c.Entries()
	require.Len(t, entries, 2)
	assert.True(t, entries[1].Loading)
	assert.Equal(t, "Still thinking...", entries[1].Text)
	assert.Len(t, c.History(), 1)

	assert.True(t, c.SetLoadingText("grump", "Sighing..."))
	c.RemoveLoading()
	assert.False(t, c.Loading())
	assert.False(t, c.SetLoadingText("grump", "x"))
	assert.Len(t, c.Entries(), 1)
}

func TestLocalEntriesAndClear(t *testing.T) {
	c := NewConversation(20)
	e := c.AddLocal(models.RoleAssistant, "mentor", "API key saved.", true)
	assert.True(t, e.Notice)
	assert.Empty(t, c.History())

	got, ok := c.Entry(e.ID)
	require.True(t, ok)
	assert.Equal(t, "API key saved.", got.Text)

	c.Add(models.RoleUser, "", "q", "")
	c.Clear()
	assert.Empty(t, c.Entries())
	assert.Empty(t, c.History())
}

func TestHistoryIsACopy(t *testing.T) {
	c := NewConversation(20)
	c.Add(models.RoleUser, "", "q", "")
	hist := c.History()
	hist[0].ContextText = "mutated"
	assert.Equal(t, "q", c.History()[0].ContextText)
}
