package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveConversationIDSymmetric(t *testing.T) {
	pairs := [][2]string{{"a", "b"}, {"zed", "Alpha"}, {"u_1", "u_0"}, {"", "x"}}
	for _, p := range pairs {
		assert.Equal(t, DeriveConversationID(p[0], p[1]), DeriveConversationID(p[1], p[0]))
	}
	assert.Equal(t, "a_b", DeriveConversationID("b", "a"))
}

func TestNewConversation(t *testing.T) {
	c, err := NewConversation("u2", "u1", time.UnixMilli(5))
	require.NoError(t, err)
	assert.Equal(t, "u1_u2", c.ID)
	assert.Equal(t, []string{"u1", "u2"}, c.Participants)
	assert.True(t, c.HasParticipant("u2"))
	assert.False(t, c.HasParticipant("u3"))
	assert.Equal(t, "u1", c.Peer("u2"))

	_, err = NewConversation("u1", "u1", time.Now())
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestPinUnpin(t *testing.T) {
	c, _ := NewConversation("u1", "u2", time.Now())
	assert.True(t, c.Pin("m1"))
	assert.False(t, c.Pin("m1"))
	assert.True(t, c.Unpin("m1"))
	assert.False(t, c.Unpin("m1"))
	assert.Empty(t, c.PinnedMessages)
}

func TestSortByActivity(t *testing.T) {
	convs := []*Conversation{{ID: "a", LastActivity: 1}, {ID: "b", LastActivity: 3}, {ID: "c", LastActivity: 2}}
	SortByActivity(convs)
	assert.Equal(t, "b", convs[0].ID)
	assert.Equal(t, "c", convs[1].ID)
	assert.Equal(t, "a", convs[2].ID)
}

func TestMatchBlockedWordCaseInsensitive(t *testing.T) {
	u := &User{BlockedWords: []string{"Spoiler"}}
	w, ok := u.MatchBlockedWord("no SPOILERS please")
	assert.True(t, ok)
	assert.Equal(t, "Spoiler", w)

	_, ok = u.MatchBlockedWord("fine")
	assert.False(t, ok)
}

func TestNormalizeBlockedWords(t *testing.T) {
	assert.Equal(t, []string{"a", "B"}, NormalizeBlockedWords([]string{" a ", "A", "", "B"}))
}
