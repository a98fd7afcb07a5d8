package memstore

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GabrielFerreiraTelles/comu/internal/application/ports"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
)

// Feed 实现 ports.ChangeFeed。推送在写操作的 goroutine 中同步完成；
// 回调内不得关闭自身订阅，也不得写入会触发同一订阅的集合。
type Feed struct{ hub *feedHub }

var _ ports.ChangeFeed = (*Feed)(nil)

type feedHub struct {
	s        *Store
	mu       sync.Mutex
	next     int
	msgSubs  map[int]*msgSub
	convSubs map[int]*convSub
}

func newFeedHub(s *Store) *feedHub {
	return &feedHub{s: s, msgSubs: map[int]*msgSub{}, convSubs: map[int]*convSub{}}
}

type subBase struct {
	mu     sync.Mutex
	closed atomic.Bool
	seen   map[string]uint64
	cancel func()
}

func (b *subBase) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	b.cancel()
	// 等待进行中的推送结束
	b.mu.Lock()
	b.mu.Unlock()
	return nil
}

// diff 对比上次推送，返回增量并更新 seen；调用方持有 b.mu
func (b *subBase) diff(current map[string]uint64) []ports.Change {
	var changes []ports.Change
	for id, v := range current {
		old, ok := b.seen[id]
		switch {
		case !ok:
			changes = append(changes, ports.Change{Type: ports.ChangeAdded, ID: id})
		case old != v:
			changes = append(changes, ports.Change{Type: ports.ChangeModified, ID: id})
		}
	}
	for id := range b.seen {
		if _, ok := current[id]; !ok {
			changes = append(changes, ports.Change{Type: ports.ChangeRemoved, ID: id})
		}
	}
	b.seen = current
	return changes
}

type msgSub struct {
	subBase
	hub    *feedHub
	field  ports.MessageField
	userID string
	fn     func(ports.MessageSnapshot)
}

func (sub *msgSub) deliver(initial bool) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed.Load() {
		return
	}
	s := sub.hub.s
	s.mu.RLock()
	msgs := s.matchMessages(sub.field, sub.userID)
	versions := make(map[string]uint64, len(msgs))
	for _, m := range msgs {
		versions[m.ID] = s.version[msgKey(m.ID)]
	}
	s.mu.RUnlock()

	changes := sub.diff(versions)
	if len(changes) == 0 && !initial {
		return
	}
	sub.fn(ports.MessageSnapshot{Messages: msgs, Changes: changes})
}

type convSub struct {
	subBase
	hub    *feedHub
	userID string
	fn     func(ports.ConversationSnapshot)
}

func (sub *convSub) deliver(initial bool) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed.Load() {
		return
	}
	s := sub.hub.s
	s.mu.RLock()
	convs := s.matchConversations(sub.userID)
	versions := make(map[string]uint64, len(convs))
	for _, c := range convs {
		versions[c.ID] = s.version[convKey(c.ID)]
	}
	s.mu.RUnlock()

	changes := sub.diff(versions)
	if len(changes) == 0 && !initial {
		return
	}
	entities.SortByActivity(convs)
	sub.fn(ports.ConversationSnapshot{Conversations: convs, Changes: changes})
}

func (f *Feed) SubscribeMessages(_ context.Context, field ports.MessageField, userID string, fn func(ports.MessageSnapshot)) (ports.Subscription, error) {
	h := f.hub
	sub := &msgSub{hub: h, field: field, userID: userID, fn: fn}
	h.mu.Lock()
	id := h.next
	h.next++
	h.msgSubs[id] = sub
	h.mu.Unlock()
	sub.cancel = func() {
		h.mu.Lock()
		delete(h.msgSubs, id)
		h.mu.Unlock()
	}
	sub.deliver(true)
	return sub, nil
}

func (f *Feed) SubscribeConversations(_ context.Context, userID string, fn func(ports.ConversationSnapshot)) (ports.Subscription, error) {
	h := f.hub
	sub := &convSub{hub: h, userID: userID, fn: fn}
	h.mu.Lock()
	id := h.next
	h.next++
	h.convSubs[id] = sub
	h.mu.Unlock()
	sub.cancel = func() {
		h.mu.Lock()
		delete(h.convSubs, id)
		h.mu.Unlock()
	}
	sub.deliver(true)
	return sub, nil
}

func (h *feedHub) publishMessages() {
	h.mu.Lock()
	subs := make([]*msgSub, 0, len(h.msgSubs))
	for _, s := range h.msgSubs {
		subs = append(subs, s)
	}
	h.mu.Unlock()
	for _, s := range subs {
		s.deliver(false)
	}
}

func (h *feedHub) publishConversations() {
	h.mu.Lock()
	subs := make([]*convSub, 0, len(h.convSubs))
	for _, s := range h.convSubs {
		subs = append(subs, s)
	}
	h.mu.Unlock()
	for _, s := range subs {
		s.deliver(false)
	}
}

func timeFromMillis(ms int64) time.Time { return time.UnixMilli(ms) }
