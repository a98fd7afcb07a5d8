package memstore

import (
	"context"

	"github.com/GabrielFerreiraTelles/comu/internal/application/ports"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
)

// Pending 实现 ports.PendingStore
type Pending struct{ s *Store }

var _ ports.PendingStore = (*Pending)(nil)

func (p *Pending) Put(_ context.Context, m *entities.Message) error {
	if err := p.s.fault("pending.put", m.ID); err != nil {
		return err
	}
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	p.s.pending[m.ID] = m.Clone()
	return nil
}

func (p *Pending) Get(_ context.Context, id string) (*entities.Message, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	m, ok := p.s.pending[id]
	if !ok {
		return nil, entities.ErrNotFound
	}
	return m.Clone(), nil
}

func (p *Pending) ListBySender(_ context.Context, senderID string) ([]*entities.Message, error) {
	if err := p.s.fault("pending.list", senderID); err != nil {
		return nil, err
	}
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	var out []*entities.Message
	for _, m := range p.s.pending {
		if m.SenderID == senderID {
			out = append(out, m.Clone())
		}
	}
	return out, nil
}

func (p *Pending) Remove(_ context.Context, id string) error {
	if err := p.s.fault("pending.remove", id); err != nil {
		return err
	}
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	delete(p.s.pending, id)
	return nil
}

func (p *Pending) ClearAll(_ context.Context, senderID string) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	for id, m := range p.s.pending {
		if m.SenderID == senderID {
			delete(p.s.pending, id)
		}
	}
	return nil
}
