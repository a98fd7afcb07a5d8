// Package memstore 是所有存储端口的内存实现，带同步推送的变更订阅。
// 用于测试与单机演示；语义与 Mongo 实现保持一致。
package memstore

import (
	"sync"
	"time"

	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
)

// Store 内存文档库，多个集合共享一把锁，以支持原子批量写
type Store struct {
	mu       sync.RWMutex
	messages map[string]*entities.Message
	pending  map[string]*entities.Message
	convs    map[string]*entities.Conversation
	users    map[string]*entities.User
	blocks   map[string]*entities.BlockedUser
	attempts map[string]*entities.BlockedAttempt
	version  map[string]uint64
	seq      uint64

	faultMu sync.RWMutex
	faults  map[string]func(id string) error

	feed *feedHub
	now  func() time.Time
}

func New() *Store {
	s := &Store{
		messages: map[string]*entities.Message{},
		pending:  map[string]*entities.Message{},
		convs:    map[string]*entities.Conversation{},
		users:    map[string]*entities.User{},
		blocks:   map[string]*entities.BlockedUser{},
		attempts: map[string]*entities.BlockedAttempt{},
		version:  map[string]uint64{},
		faults:   map[string]func(string) error{},
		now:      time.Now,
	}
	s.feed = newFeedHub(s)
	return s
}

// Fault 为某个操作注入错误，fn 返回 nil 表示放行；传 nil 清除
func (s *Store) Fault(op string, fn func(id string) error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	if fn == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = fn
}

func (s *Store) fault(op, id string) error {
	s.faultMu.RLock()
	fn := s.faults[op]
	s.faultMu.RUnlock()
	if fn == nil {
		return nil
	}
	return fn(id)
}

// bump 记录文档版本，订阅据此计算增量；调用方持有写锁
func (s *Store) bump(key string) {
	s.seq++
	s.version[key] = s.seq
}

func msgKey(id string) string  { return "m/" + id }
func convKey(id string) string { return "c/" + id }

func (s *Store) Messages() *Messages           { return &Messages{s: s} }
func (s *Store) Pending() *Pending             { return &Pending{s: s} }
func (s *Store) Conversations() *Conversations { return &Conversations{s: s} }
func (s *Store) Users() *Users                 { return &Users{s: s} }
func (s *Store) Blocks() *Blocks               { return &Blocks{s: s} }
func (s *Store) Attempts() *Attempts           { return &Attempts{s: s} }
func (s *Store) Feed() *Feed                   { return &Feed{hub: s.feed} }
