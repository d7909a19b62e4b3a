package persona

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnemg/internal/models"
)

func TestSwitchTwiceRestoresPersona(t *testing.T) {
	m := NewManager()
	start := m.Active()

	first := m.Switch()
	assert.NotEqual(t, start.ID, first.ID)
	assert.Equal(t, first, m.Active())

	second := m.Switch()
	assert.Equal(t, start, second)
	assert.Equal(t, start, m.Active())
}

func TestExactlyOneHostilePersona(t *testing.T) {
	hostile := 0
	for _, p := range Registry {
		if p.Hostile {
			hostile++
		}
		assert.NotEmpty(t, p.SystemPrompt)
		assert.NotEmpty(t, p.AvatarRef)
	}
	assert.Equal(t, 1, hostile)
}

func TestSubscribersFollowActivePersona(t *testing.T) {
	m := NewManager()

	var seen []string
	unsubscribe := m.Subscribe(func(p models.Persona) { seen = append(seen, p.ID) })
	require.Equal(t, []string{MentorID}, seen)

	m.Switch()
	m.Switch()
	assert.Equal(t, []string{MentorID, GrumpID, MentorID}, seen)

	unsubscribe()
	m.Switch()
	assert.Len(t, seen, 3)
}

func TestSetActive(t *testing.T) {
	m := NewManager()
	calls := 0
	m.Subscribe(func(models.Persona) { calls++ })

	p, err := m.SetActive(GrumpID)
	require.NoError(t, err)
	assert.Equal(t, GrumpID, p.ID)
	assert.Equal(t, 2, calls)

	_, err = m.SetActive(GrumpID)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "no notification when nothing changes")

	_, err = m.SetActive("nobody")
	assert.Error(t, err)
	assert.Equal(t, GrumpID, m.Active().ID)
}

func TestLookup(t *testing.T) {
	p, ok := Lookup(GrumpID)
	require.True(t, ok)
	assert.Equal(t, "Dr. Grimsby", p.DisplayName)

	_, ok = Lookup("")
	assert.False(t, ok)
}
