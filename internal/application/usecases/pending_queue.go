package usecases

import (
	"context"
	"errors"
	"sync"

	"github.com/GabrielFerreiraTelles/comu/internal/application/ports"
	"github.com/GabrielFerreiraTelles/comu/internal/auth"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
	"github.com/GabrielFerreiraTelles/comu/internal/logger"
	"github.com/GabrielFerreiraTelles/comu/internal/metrics"

	"go.uber.org/zap"
)

// PendingQueue 按发送方分区的待发送队列。
// 所有变更都经由这里，以便实时订阅在本地队列变化时重新合并。
type PendingQueue struct {
	store ports.PendingStore

	mu       sync.Mutex
	nextID   int
	watchers map[string]map[int]func()
}

func NewPendingQueue(store ports.PendingStore) *PendingQueue {
	return &PendingQueue{store: store, watchers: map[string]map[int]func(){}}
}

// Enqueue 持久化待发送消息，发送方强制设为当前身份
func (q *PendingQueue) Enqueue(ctx context.Context, sess *auth.Session, m *entities.Message) (*entities.Message, error) {
	uid, err := sess.Principal()
	if err != nil {
		return nil, err
	}
	rec := m.Clone()
	if rec.SenderID != uid {
		logger.L().Warn("pending.enqueue sender overridden",
			zap.String("msgId", rec.ID), zap.String("given", rec.SenderID), zap.String("principal", uid))
		rec.SenderID = uid
	}
	rec.Committed = false
	rec.Normalize()
	if err := q.store.Put(ctx, rec); err != nil {
		return nil, entities.Transient("enqueue", err)
	}
	metrics.PendingEnqueued.Inc()
	q.notify(uid)
	return rec, nil
}

// ListBySender 顺序不保证，调用方自行排序
func (q *PendingQueue) ListBySender(ctx context.Context, senderID string) ([]*entities.Message, error) {
	list, err := q.store.ListBySender(ctx, senderID)
	if err != nil {
		return nil, entities.Transient("list pending", err)
	}
	return list, nil
}

// Get 读取单条待发送消息
func (q *PendingQueue) Get(ctx context.Context, id string) (*entities.Message, error) {
	m, err := q.store.Get(ctx, id)
	if err != nil {
		return nil, entities.Transient("get pending", err)
	}
	return m, nil
}

// Replace 原地覆盖（编辑待发送消息）
func (q *PendingQueue) Replace(ctx context.Context, m *entities.Message) error {
	if err := q.store.Put(ctx, m); err != nil {
		return entities.Transient("update pending", err)
	}
	q.notify(m.SenderID)
	return nil
}

// Remove 幂等删除
func (q *PendingQueue) Remove(ctx context.Context, id string) error {
	m, err := q.store.Get(ctx, id)
	if errors.Is(err, entities.ErrNotFound) {
		return nil
	}
	if err != nil {
		return entities.Transient("remove pending", err)
	}
	if err := q.store.Remove(ctx, id); err != nil {
		return entities.Transient("remove pending", err)
	}
	q.notify(m.SenderID)
	return nil
}

// ClearAll 清空该发送方的队列
func (q *PendingQueue) ClearAll(ctx context.Context, senderID string) error {
	if err := q.store.ClearAll(ctx, senderID); err != nil {
		return entities.Transient("clear pending", err)
	}
	q.notify(senderID)
	return nil
}

// Watch 监听某发送方队列变化，返回取消函数
func (q *PendingQueue) Watch(senderID string, fn func()) func() {
	q.mu.Lock()
	id := q.nextID
	q.nextID++
	if q.watchers[senderID] == nil {
		q.watchers[senderID] = map[int]func(){}
	}
	q.watchers[senderID][id] = fn
	q.mu.Unlock()
	return func() {
		q.mu.Lock()
		delete(q.watchers[senderID], id)
		if len(q.watchers[senderID]) == 0 {
			delete(q.watchers, senderID)
		}
		q.mu.Unlock()
	}
}

func (q *PendingQueue) notify(senderID string) {
	q.mu.Lock()
	fns := make([]func(), 0, len(q.watchers[senderID]))
	for _, fn := range q.watchers[senderID] {
		fns = append(fns, fn)
	}
	q.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
