package memstore

import (
	"context"

	"github.com/GabrielFerreiraTelles/comu/internal/application/ports"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
)

// Conversations 实现 ports.ConversationStore
type Conversations struct{ s *Store }

var _ ports.ConversationStore = (*Conversations)(nil)

func (r *Conversations) Get(_ context.Context, id string) (*entities.Conversation, error) {
	if err := r.s.fault("conversations.get", id); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.convs[id]
	if !ok {
		return nil, entities.ErrNotFound
	}
	return c.Clone(), nil
}

func (r *Conversations) Upsert(_ context.Context, c *entities.Conversation) error {
	if err := r.s.fault("conversations.upsert", c.ID); err != nil {
		return err
	}
	r.s.mu.Lock()
	cur, ok := r.s.convs[c.ID]
	if !ok {
		cp := c.Clone()
		if cp.PinnedMessages == nil {
			cp.PinnedMessages = []string{}
		}
		r.s.convs[c.ID] = cp
		r.s.bump(convKey(c.ID))
		r.s.mu.Unlock()
		r.s.feed.publishConversations()
		return nil
	}
	changed := false
	for _, p := range c.Participants {
		if !cur.HasParticipant(p) {
			cur.Participants = append(cur.Participants, p)
			changed = true
		}
	}
	if changed {
		r.s.bump(convKey(c.ID))
	}
	r.s.mu.Unlock()
	if changed {
		r.s.feed.publishConversations()
	}
	return nil
}

func (r *Conversations) ListByParticipant(_ context.Context, userID string) ([]*entities.Conversation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.matchConversations(userID), nil
}

func (s *Store) matchConversations(userID string) []*entities.Conversation {
	var out []*entities.Conversation
	for _, c := range s.convs {
		if c.HasParticipant(userID) {
			out = append(out, c.Clone())
		}
	}
	return out
}

func (r *Conversations) UpdateLastMessage(_ context.Context, convID string, last *entities.Message, lastActivity int64) error {
	if err := r.s.fault("conversations.touch", convID); err != nil {
		return err
	}
	r.s.mu.Lock()
	c, ok := r.s.convs[convID]
	if !ok {
		r.s.mu.Unlock()
		return entities.ErrNotFound
	}
	c.LastMessage = last.Clone()
	if lastActivity > c.LastActivity {
		c.LastActivity = lastActivity
	}
	r.s.bump(convKey(convID))
	r.s.mu.Unlock()
	r.s.feed.publishConversations()
	return nil
}

func (r *Conversations) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	if _, ok := r.s.convs[id]; !ok {
		r.s.mu.Unlock()
		return nil
	}
	delete(r.s.convs, id)
	delete(r.s.version, convKey(id))
	r.s.mu.Unlock()
	r.s.feed.publishConversations()
	return nil
}

func (r *Conversations) SetPinned(_ context.Context, convID, msgID string, pinned bool) error {
	r.s.mu.Lock()
	c, ok := r.s.convs[convID]
	if !ok {
		r.s.mu.Unlock()
		return entities.ErrNotFound
	}
	if pinned {
		c.Pin(msgID)
	} else {
		c.Unpin(msgID)
	}
	r.s.bump(convKey(convID))
	msgChanged := false
	if m, ok := r.s.messages[msgID]; ok && m.Pinned != pinned {
		m.Pinned = pinned
		r.s.bump(msgKey(msgID))
		msgChanged = true
	}
	r.s.mu.Unlock()
	r.s.feed.publishConversations()
	if msgChanged {
		r.s.feed.publishMessages()
	}
	return nil
}
