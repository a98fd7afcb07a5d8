package usecases

import (
	"context"
	"sync"

	"github.com/GabrielFerreiraTelles/comu/internal/application/ports"
	"github.com/GabrielFerreiraTelles/comu/internal/auth"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
	"github.com/GabrielFerreiraTelles/comu/internal/logger"
	"github.com/GabrielFerreiraTelles/comu/internal/metrics"

	"go.uber.org/zap"
)

// Unsubscribe 取消订阅：幂等，返回后不再回调。不可在回调内调用。
type Unsubscribe func()

// LiveFeed 实时订阅：会话消息流与会话列表流
type LiveFeed struct {
	feed    ports.ChangeFeed
	pending *PendingQueue
	typing  ports.TypingTracker // 可为空
}

func NewLiveFeed(feed ports.ChangeFeed, pending *PendingQueue, typing ports.TypingTracker) *LiveFeed {
	return &LiveFeed{feed: feed, pending: pending, typing: typing}
}

type conversationWatch struct {
	mu       sync.Mutex
	closed   bool
	ctx      context.Context
	uid      string
	convID   string
	sent     []*entities.Message
	received []*entities.Message
	gotSent  bool
	gotRecv  bool
	pending  []*entities.Message
	queue    *PendingQueue
	fn       func([]*entities.Message)
}

// push 在持锁状态下合并并回调；两路首帧到齐前不推送
func (w *conversationWatch) push() {
	if w.closed || !w.gotSent || !w.gotRecv {
		return
	}
	committed := entities.FilterConversation(entities.UnionByID(w.sent, w.received), w.convID)
	w.fn(entities.Reconcile(committed, entities.FilterConversation(w.pending, w.convID)))
}

func (w *conversationWatch) reloadPending() {
	list, err := w.queue.ListBySender(w.ctx, w.uid)
	if err != nil {
		logger.L().Warn("feed.pending reload failed", zap.String("uid", w.uid), zap.Error(err))
		return
	}
	w.pending = list
}

// WatchConversation 订阅一个会话的合并消息序列。
// 两路订阅（发送方=我、接收方=我）各自推送完整匹配集合，按 ID 合并后与本地待发送消息重新对齐。
func (f *LiveFeed) WatchConversation(ctx context.Context, sess *auth.Session, convID string, fn func([]*entities.Message)) (Unsubscribe, error) {
	uid, err := sess.Principal()
	if err != nil {
		return nil, err
	}
	w := &conversationWatch{ctx: ctx, uid: uid, convID: convID, queue: f.pending, fn: fn}
	w.mu.Lock()
	w.reloadPending()
	w.mu.Unlock()

	sentSub, err := f.feed.SubscribeMessages(ctx, ports.FieldSender, uid, func(s ports.MessageSnapshot) {
		w.mu.Lock()
		defer w.mu.Unlock()
		w.sent, w.gotSent = s.Messages, true
		w.push()
	})
	if err != nil {
		return nil, entities.Transient("subscribe sent", err)
	}
	recvSub, err := f.feed.SubscribeMessages(ctx, ports.FieldReceiver, uid, func(s ports.MessageSnapshot) {
		w.mu.Lock()
		defer w.mu.Unlock()
		w.received, w.gotRecv = s.Messages, true
		w.push()
	})
	if err != nil {
		_ = sentSub.Close()
		return nil, entities.Transient("subscribe received", err)
	}
	stopPending := f.pending.Watch(uid, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.closed {
			return
		}
		w.reloadPending()
		w.push()
	})
	metrics.ActiveFeeds.Inc()

	var once sync.Once
	return func() {
		once.Do(func() {
			stopPending()
			_ = sentSub.Close()
			_ = recvSub.Close()
			w.mu.Lock()
			w.closed = true
			w.mu.Unlock()
			metrics.ActiveFeeds.Dec()
		})
	}, nil
}

// WatchConversations 订阅当前用户的会话列表，按最后活跃时间倒序
func (f *LiveFeed) WatchConversations(ctx context.Context, sess *auth.Session, fn func([]*entities.Conversation)) (Unsubscribe, error) {
	uid, err := sess.Principal()
	if err != nil {
		return nil, err
	}
	var mu sync.Mutex
	closed := false
	sub, err := f.feed.SubscribeConversations(ctx, uid, func(s ports.ConversationSnapshot) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		list := make([]*entities.Conversation, 0, len(s.Conversations))
		for _, c := range s.Conversations {
			c = c.Clone()
			if f.typing != nil {
				if users, err := f.typing.TypingUsers(ctx, c.ID); err == nil {
					c.TypingUsers = users
				}
			}
			list = append(list, c)
		}
		entities.SortByActivity(list)
		fn(list)
	})
	if err != nil {
		return nil, entities.Transient("subscribe conversations", err)
	}
	metrics.ActiveFeeds.Inc()
	var once sync.Once
	return func() {
		once.Do(func() {
			_ = sub.Close()
			mu.Lock()
			closed = true
			mu.Unlock()
			metrics.ActiveFeeds.Dec()
		})
	}, nil
}
