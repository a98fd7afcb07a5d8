package usecases

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/GabrielFerreiraTelles/comu/internal/auth"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
	"github.com/GabrielFerreiraTelles/comu/internal/store/memstore"

	"github.com/stretchr/testify/require"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	ctx      context.Context
	clock    *clock
	store    *memstore.Store
	unread   *memstore.Unread
	typing   *memstore.Typing
	queue    *PendingQueue
	mod      *Moderation
	outbox   *Outbox
	view     *MessageView
	pump     *DeliveryPump
	editor   *MessageEditor
	feed     *LiveFeed
	convs    *Conversations
	receipts *Receipts
	pins     *Pins
	react    *Reactions
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	c := &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	s := memstore.New()
	unread := memstore.NewUnread()
	typing := memstore.NewTyping(3*time.Second, c.Now)
	queue := NewPendingQueue(s.Pending())
	mod := NewModeration(s.Users(), s.Blocks(), s.Attempts())
	mod.now = c.Now
	f := &fixture{
		ctx:    context.Background(),
		clock:  c,
		store:  s,
		unread: unread,
		typing: typing,
		queue:  queue,
		mod:    mod,
		outbox: NewOutbox(queue, mod).WithFactory(entities.Factory{
			Now:   c.Now,
			NewID: entities.DefaultFactory.NewID,
		}),
		view:     NewMessageView(s.Messages(), queue),
		pump:     NewDeliveryPump(queue, s.Messages(), s.Conversations(), unread).WithClock(c.Now),
		editor:   NewMessageEditor(queue, s.Messages(), s.Conversations()).WithClock(c.Now),
		feed:     NewLiveFeed(s.Feed(), queue, typing),
		convs:    NewConversations(s.Conversations(), s.Users(), typing, unread),
		receipts: NewReceipts(s.Messages(), s.Conversations(), unread),
		pins:     NewPins(s.Conversations(), s.Messages()),
		react:    NewReactions(s.Messages()),
	}
	f.convs.now = c.Now
	f.receipts.now = c.Now
	f.react.now = c.Now
	return f
}

func (f *fixture) user(t *testing.T, id, code string) *auth.Session {
	t.Helper()
	u, err := entities.NewUser(id, id+"@example.com", "hash", id, code, f.clock.Now())
	require.NoError(t, err)
	require.NoError(t, f.store.Users().Create(f.ctx, u))
	return auth.NewSession(id, "tok-"+id, time.Time{})
}

func (f *fixture) send(t *testing.T, sess *auth.Session, to, text string) *entities.Message {
	t.Helper()
	m, err := f.outbox.Compose(f.ctx, sess, ComposeRequest{ReceiverID: to, Content: text})
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	return m
}

func (f *fixture) pendingIDs(t *testing.T, uid string) []string {
	t.Helper()
	list, err := f.queue.ListBySender(f.ctx, uid)
	require.NoError(t, err)
	ids := make([]string, 0, len(list))
	for _, m := range list {
		ids = append(ids, m.ID)
	}
	return ids
}
