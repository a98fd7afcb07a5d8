package auth

import "sync"

// EventType 身份状态变化类型
type EventType string

const (
	SignedIn  EventType = "signed_in"
	SignedOut EventType = "signed_out"
)

// Event 身份状态变化事件
type Event struct {
	Type    EventType
	UserID  string
	TokenID string
}

// Broker 进程内身份事件分发
type Broker struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(Event)
}

func NewBroker() *Broker {
	return &Broker{subs: map[int]func(Event){}}
}

// Subscribe 注册监听，返回取消函数
func (b *Broker) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish 同步通知所有监听者
func (b *Broker) Publish(e Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	fns := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(e)
	}
}
