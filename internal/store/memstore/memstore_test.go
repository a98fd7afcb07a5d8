package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/GabrielFerreiraTelles/comu/internal/application/ports"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/valueobjects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMsg(id, from, to string, ts int64) *entities.Message {
	m := entities.NewMessage(entities.DeriveConversationID(from, to), from, to, valueobjects.ContentKindText, "hi", "")
	m.ID = id
	m.Timestamp = ts
	return m
}

func TestCreateIfAbsentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New().Messages()
	m := newMsg("m1", "u1", "u2", 1)
	m.Commit(time.UnixMilli(2))

	created, err := s.CreateIfAbsent(ctx, m)
	require.NoError(t, err)
	assert.True(t, created)

	m.Content = "other"
	created, err = s.CreateIfAbsent(ctx, m)
	require.NoError(t, err)
	assert.False(t, created)

	got, err := s.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "hi", got.Content)
}

func TestMessageFeedSnapshotsAndChanges(t *testing.T) {
	ctx := context.Background()
	st := New()
	var snaps []ports.MessageSnapshot
	sub, err := st.Feed().SubscribeMessages(ctx, ports.FieldReceiver, "u2", func(s ports.MessageSnapshot) {
		snaps = append(snaps, s)
	})
	require.NoError(t, err)
	require.Len(t, snaps, 1, "initial full set is pushed even when empty")
	assert.Empty(t, snaps[0].Messages)

	_, _ = st.Messages().CreateIfAbsent(ctx, newMsg("m1", "u1", "u2", 1))
	_, _ = st.Messages().CreateIfAbsent(ctx, newMsg("m2", "u2", "u1", 2)) // 不匹配 receiver=u2
	require.NoError(t, st.Messages().UpdateContent(ctx, "m1", "edited", 3))
	require.NoError(t, st.Messages().Delete(ctx, "m1"))

	require.Len(t, snaps, 4)
	assert.Equal(t, []ports.Change{{Type: ports.ChangeAdded, ID: "m1"}}, snaps[1].Changes)
	assert.Equal(t, []ports.Change{{Type: ports.ChangeModified, ID: "m1"}}, snaps[2].Changes)
	assert.Equal(t, "edited", snaps[2].Messages[0].Content)
	assert.Equal(t, []ports.Change{{Type: ports.ChangeRemoved, ID: "m1"}}, snaps[3].Changes)
	assert.Empty(t, snaps[3].Messages)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	_, _ = st.Messages().CreateIfAbsent(ctx, newMsg("m3", "u1", "u2", 4))
	assert.Len(t, snaps, 4, "no callbacks after close")
}

func TestConversationFeedSortedByActivity(t *testing.T) {
	ctx := context.Background()
	st := New()
	convs := st.Conversations()
	a, _ := entities.NewConversation("u1", "u2", time.UnixMilli(10))
	b, _ := entities.NewConversation("u1", "u3", time.UnixMilli(20))
	require.NoError(t, convs.Upsert(ctx, a))
	require.NoError(t, convs.Upsert(ctx, b))

	var last ports.ConversationSnapshot
	sub, err := st.Feed().SubscribeConversations(ctx, "u1", func(s ports.ConversationSnapshot) { last = s })
	require.NoError(t, err)
	defer sub.Close()

	require.Len(t, last.Conversations, 2)
	assert.Equal(t, b.ID, last.Conversations[0].ID)

	require.NoError(t, convs.UpdateLastMessage(ctx, a.ID, newMsg("m", "u1", "u2", 30), 30))
	assert.Equal(t, a.ID, last.Conversations[0].ID)
	assert.Equal(t, "m", last.Conversations[0].LastMessage.ID)
}

func TestUpsertKeepsSnapshotAndPins(t *testing.T) {
	ctx := context.Background()
	st := New()
	c, _ := entities.NewConversation("u1", "u2", time.UnixMilli(1))
	require.NoError(t, st.Conversations().Upsert(ctx, c))
	_, _ = st.Messages().CreateIfAbsent(ctx, newMsg("m1", "u1", "u2", 1))
	require.NoError(t, st.Conversations().SetPinned(ctx, c.ID, "m1", true))
	require.NoError(t, st.Conversations().UpdateLastMessage(ctx, c.ID, newMsg("m1", "u1", "u2", 1), 5))

	fresh, _ := entities.NewConversation("u2", "u1", time.UnixMilli(2))
	require.NoError(t, st.Conversations().Upsert(ctx, fresh))

	got, err := st.Conversations().Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, got.PinnedMessages)
	assert.Equal(t, int64(5), got.LastActivity)
	require.NotNil(t, got.LastMessage)

	msg, _ := st.Messages().Get(ctx, "m1")
	assert.True(t, msg.Pinned)
}

func TestPendingPartitionedBySender(t *testing.T) {
	ctx := context.Background()
	p := New().Pending()
	require.NoError(t, p.Put(ctx, newMsg("a", "u1", "u2", 1)))
	require.NoError(t, p.Put(ctx, newMsg("b", "u1", "u3", 2)))
	require.NoError(t, p.Put(ctx, newMsg("c", "u2", "u1", 3)))

	list, err := p.ListBySender(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, p.Remove(ctx, "a"))
	require.NoError(t, p.Remove(ctx, "a"))
	require.NoError(t, p.ClearAll(ctx, "u1"))

	list, _ = p.ListBySender(ctx, "u1")
	assert.Empty(t, list)
	list, _ = p.ListBySender(ctx, "u2")
	assert.Len(t, list, 1)
}

func TestTypingExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(100, 0)
	tr := NewTyping(3*time.Second, func() time.Time { return now })
	require.NoError(t, tr.SetTyping(ctx, "c", "u1", true))
	require.NoError(t, tr.SetTyping(ctx, "c", "u2", true))
	require.NoError(t, tr.SetTyping(ctx, "c", "u2", false))

	users, _ := tr.TypingUsers(ctx, "c")
	assert.Equal(t, []string{"u1"}, users)

	now = now.Add(3 * time.Second)
	users, _ = tr.TypingUsers(ctx, "c")
	assert.Empty(t, users)
}
