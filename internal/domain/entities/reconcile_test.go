package entities

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msg(id string, ts int64, committed bool) *Message {
	return &Message{ID: id, ConversationID: "u1_u2", SenderID: "u1", ReceiverID: "u2", Timestamp: ts, Committed: committed, Content: id}
}

func TestReconcileCommittedWins(t *testing.T) {
	committed := []*Message{msg("a", 10, true)}
	stale := msg("a", 10, false)
	stale.Content = "stale"
	pending := []*Message{stale, msg("b", 5, false)}

	out := Reconcile(committed, pending)

	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].ID)
	assert.False(t, out[0].Committed)
	assert.Equal(t, "a", out[1].ID)
	assert.True(t, out[1].Committed)
	assert.Equal(t, "a", out[1].Content)
}

func TestReconcileTieBreaksByID(t *testing.T) {
	out := Reconcile([]*Message{msg("c", 1, true), msg("a", 1, true)}, []*Message{msg("b", 1, false)})
	ids := []string{out[0].ID, out[1].ID, out[2].ID}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestReconcileDoesNotMutateInputs(t *testing.T) {
	committed := []*Message{msg("z", 3, true), msg("y", 1, true)}
	Reconcile(committed, nil)
	assert.Equal(t, "z", committed[0].ID)
}

func TestReconcileRandomizedMerges(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for round := 0; round < 200; round++ {
		var committed, pending []*Message
		for i := 0; i < r.Intn(20); i++ {
			committed = append(committed, msg(fmt.Sprintf("m%d", r.Intn(15)), int64(r.Intn(5)), true))
		}
		for i := 0; i < r.Intn(20); i++ {
			pending = append(pending, msg(fmt.Sprintf("m%d", r.Intn(15)), int64(r.Intn(5)), false))
		}
		committedIDs := map[string]bool{}
		for _, m := range committed {
			committedIDs[m.ID] = true
		}

		out := Reconcile(committed, pending)

		seen := map[string]bool{}
		for i, m := range out {
			require.False(t, seen[m.ID], "duplicate id %s", m.ID)
			seen[m.ID] = true
			if committedIDs[m.ID] {
				require.True(t, m.Committed, "id %s reverted to pending", m.ID)
			}
			if i > 0 {
				prev := out[i-1]
				require.True(t, prev.Timestamp < m.Timestamp || (prev.Timestamp == m.Timestamp && prev.ID < m.ID))
			}
		}
	}
}

func TestUnionByIDLastWriteWins(t *testing.T) {
	first := msg("a", 1, true)
	second := msg("a", 1, true)
	second.Content = "edited"
	out := UnionByID([]*Message{first, msg("b", 2, true)}, []*Message{second})
	require.Len(t, out, 2)
	assert.Equal(t, "edited", out[0].Content)
}

func TestFilterConversation(t *testing.T) {
	other := msg("x", 1, true)
	other.ConversationID = "u1_u3"
	out := FilterConversation([]*Message{msg("a", 1, true), other}, "u1_u2")
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].ID)
}
