package memstore

import (
	"context"

	"github.com/GabrielFerreiraTelles/comu/internal/application/ports"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
)

// Messages 实现 ports.MessageStore
type Messages struct{ s *Store }

var _ ports.MessageStore = (*Messages)(nil)

func (r *Messages) CreateIfAbsent(_ context.Context, m *entities.Message) (bool, error) {
	if err := r.s.fault("messages.create", m.ID); err != nil {
		return false, err
	}
	r.s.mu.Lock()
	if _, ok := r.s.messages[m.ID]; ok {
		r.s.mu.Unlock()
		return false, nil
	}
	r.s.messages[m.ID] = m.Clone()
	r.s.bump(msgKey(m.ID))
	r.s.mu.Unlock()
	r.s.feed.publishMessages()
	return true, nil
}

func (r *Messages) Get(_ context.Context, id string) (*entities.Message, error) {
	if err := r.s.fault("messages.get", id); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.messages[id]
	if !ok {
		return nil, entities.ErrNotFound
	}
	return m.Clone(), nil
}

func (r *Messages) ListByField(_ context.Context, field ports.MessageField, userID string) ([]*entities.Message, error) {
	if err := r.s.fault("messages.list", userID); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.matchMessages(field, userID), nil
}

// matchMessages 调用方持有读锁
func (s *Store) matchMessages(field ports.MessageField, userID string) []*entities.Message {
	var out []*entities.Message
	for _, m := range s.messages {
		if (field == ports.FieldSender && m.SenderID == userID) || (field == ports.FieldReceiver && m.ReceiverID == userID) {
			out = append(out, m.Clone())
		}
	}
	return out
}

func (r *Messages) ListByConversation(_ context.Context, convID string) ([]*entities.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entities.Message
	for _, m := range r.s.messages {
		if m.ConversationID == convID && m.Committed {
			out = append(out, m.Clone())
		}
	}
	return out, nil
}

// update 在写锁内修改单条消息并推送
func (r *Messages) update(op, id string, fn func(m *entities.Message)) error {
	if err := r.s.fault(op, id); err != nil {
		return err
	}
	r.s.mu.Lock()
	m, ok := r.s.messages[id]
	if !ok {
		r.s.mu.Unlock()
		return entities.ErrNotFound
	}
	fn(m)
	r.s.bump(msgKey(id))
	r.s.mu.Unlock()
	r.s.feed.publishMessages()
	return nil
}

func (r *Messages) MarkCommitted(_ context.Context, id string, committedAt int64) error {
	return r.update("messages.commit", id, func(m *entities.Message) {
		m.Committed = true
		m.CommittedAt = committedAt
	})
}

func (r *Messages) UpdateContent(_ context.Context, id, content string, editedAt int64) error {
	return r.update("messages.edit", id, func(m *entities.Message) {
		m.Content = content
		m.Edited = true
		m.EditedAt = editedAt
	})
}

func (r *Messages) SetReactions(_ context.Context, id string, reactions []entities.Reaction) error {
	return r.update("messages.react", id, func(m *entities.Message) {
		m.Reactions = append([]entities.Reaction{}, reactions...)
	})
}

func (r *Messages) Delete(_ context.Context, id string) error {
	if err := r.s.fault("messages.delete", id); err != nil {
		return err
	}
	r.s.mu.Lock()
	if _, ok := r.s.messages[id]; !ok {
		r.s.mu.Unlock()
		return nil
	}
	delete(r.s.messages, id)
	delete(r.s.version, msgKey(id))
	r.s.mu.Unlock()
	r.s.feed.publishMessages()
	return nil
}

func (r *Messages) MarkRead(_ context.Context, ids []string, readerID string, readAt int64) error {
	if err := r.s.fault("messages.read", readerID); err != nil {
		return err
	}
	r.s.mu.Lock()
	changed := false
	for _, id := range ids {
		m, ok := r.s.messages[id]
		if !ok {
			continue
		}
		if m.MarkReadBy(readerID, timeFromMillis(readAt)) {
			r.s.bump(msgKey(id))
			changed = true
		}
	}
	r.s.mu.Unlock()
	if changed {
		r.s.feed.publishMessages()
	}
	return nil
}
