package usecases

import (
	"sync"
	"testing"

	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	calls [][]*entities.Message
}

func (r *recorder) push(msgs []*entities.Message) {
	r.mu.Lock()
	r.calls = append(r.calls, msgs)
	r.mu.Unlock()
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *recorder) last() []*entities.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return nil
	}
	return r.calls[len(r.calls)-1]
}

func TestWatchConversationMergesPendingAndCommitted(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "ALICE001")
	bob := f.user(t, "bob", "BOB00001")
	conv, err := f.convs.FindOrCreate(f.ctx, alice, "bob")
	require.NoError(t, err)

	rec := &recorder{}
	unsub, err := f.feed.WatchConversation(f.ctx, alice, conv.ID, rec.push)
	require.NoError(t, err)
	require.Equal(t, 1, rec.count())
	assert.Empty(t, rec.last())

	mine := f.send(t, alice, "bob", "hello")
	view := rec.last()
	require.Len(t, view, 1)
	assert.Equal(t, mine.ID, view[0].ID)
	assert.False(t, view[0].Committed)

	_, err = f.pump.Drain(f.ctx, alice)
	require.NoError(t, err)
	view = rec.last()
	require.Len(t, view, 1)
	assert.True(t, view[0].Committed)

	reply := f.send(t, bob, "alice", "hey")
	_, err = f.pump.Drain(f.ctx, bob)
	require.NoError(t, err)
	view = rec.last()
	require.Len(t, view, 2)
	assert.Equal(t, []string{mine.ID, reply.ID}, []string{view[0].ID, view[1].ID})

	unsub()
	unsub()
	before := rec.count()
	f.send(t, alice, "bob", "after close")
	_, err = f.pump.Drain(f.ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, before, rec.count())
}

func TestWatchConversationsSortedByActivity(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "ALICE001")
	f.user(t, "bob", "BOB00001")
	f.user(t, "carol", "CAROL001")
	withBob, err := f.convs.FindOrCreate(f.ctx, alice, "bob")
	require.NoError(t, err)
	withCarol, err := f.convs.FindOrCreate(f.ctx, alice, "carol")
	require.NoError(t, err)

	var mu sync.Mutex
	var last []*entities.Conversation
	unsub, err := f.feed.WatchConversations(f.ctx, alice, func(list []*entities.Conversation) {
		mu.Lock()
		last = list
		mu.Unlock()
	})
	require.NoError(t, err)
	defer unsub()

	f.send(t, alice, "carol", "first")
	f.send(t, alice, "bob", "second")
	_, err = f.pump.Drain(f.ctx, alice)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, last, 2)
	ids := []string{last[0].ID, last[1].ID}
	assert.ElementsMatch(t, []string{withBob.ID, withCarol.ID}, ids)
	assert.GreaterOrEqual(t, last[0].LastActivity, last[1].LastActivity)
}

func TestWatchRequiresSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.feed.WatchConversation(f.ctx, nil, "a_b", func([]*entities.Message) {})
	assert.ErrorIs(t, err, entities.ErrUnauthenticated)
	_, err = f.feed.WatchConversations(f.ctx, nil, func([]*entities.Conversation) {})
	assert.ErrorIs(t, err, entities.ErrUnauthenticated)
}
