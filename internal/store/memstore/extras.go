package memstore

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/GabrielFerreiraTelles/comu/internal/application/ports"
)

// Typing 内存版正在输入状态
type Typing struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]map[string]time.Time // conv -> user -> 过期时间
}

var _ ports.TypingTracker = (*Typing)(nil)

func NewTyping(ttl time.Duration, now func() time.Time) *Typing {
	if now == nil {
		now = time.Now
	}
	return &Typing{ttl: ttl, now: now, entries: map[string]map[string]time.Time{}}
}

func (t *Typing) SetTyping(_ context.Context, convID, userID string, typing bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	users := t.entries[convID]
	if users == nil {
		users = map[string]time.Time{}
		t.entries[convID] = users
	}
	if typing {
		users[userID] = t.now().Add(t.ttl)
	} else {
		delete(users, userID)
	}
	return nil
}

func (t *Typing) TypingUsers(_ context.Context, convID string) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	out := []string{}
	for uid, exp := range t.entries[convID] {
		if now.Before(exp) {
			out = append(out, uid)
		} else {
			delete(t.entries[convID], uid)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Unread 内存版未读计数，同时实现 EventPublisher（直接累加）
type Unread struct {
	mu     sync.Mutex
	counts map[string]map[string]int64
}

var (
	_ ports.UnreadCounter  = (*Unread)(nil)
	_ ports.EventPublisher = (*Unread)(nil)
)

func NewUnread() *Unread { return &Unread{counts: map[string]map[string]int64{}} }

func (u *Unread) Increment(_ context.Context, userID, convID string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.counts[userID] == nil {
		u.counts[userID] = map[string]int64{}
	}
	u.counts[userID][convID]++
	return nil
}

func (u *Unread) Reset(_ context.Context, userID, convID string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.counts[userID], convID)
	return nil
}

func (u *Unread) Counts(_ context.Context, userID string, convIDs []string) (map[string]int64, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make(map[string]int64, len(convIDs))
	for _, id := range convIDs {
		out[id] = u.counts[userID][id]
	}
	return out, nil
}

func (u *Unread) PublishCommitted(ctx context.Context, evt ports.CommitEvent) error {
	return u.Increment(ctx, evt.ReceiverID, evt.ConversationID)
}

// Objects 内存对象存储
type Objects struct {
	mu      sync.Mutex
	BaseURL string
	Data    map[string][]byte
}

var _ ports.ObjectStore = (*Objects)(nil)

func NewObjects(baseURL string) *Objects {
	return &Objects{BaseURL: baseURL, Data: map[string][]byte{}}
}

func (o *Objects) Put(_ context.Context, key, _ string, r io.Reader, _ int64) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	o.mu.Lock()
	o.Data[key] = buf.Bytes()
	o.mu.Unlock()
	return o.BaseURL + "/" + key, nil
}

// Revoker 内存版令牌吊销
type Revoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

var _ ports.SessionRevoker = (*Revoker)(nil)

func NewRevoker() *Revoker { return &Revoker{revoked: map[string]time.Time{}} }

func (r *Revoker) Revoke(_ context.Context, tokenID string, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[tokenID] = until
	return nil
}

func (r *Revoker) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.revoked[tokenID]
	return ok, nil
}
