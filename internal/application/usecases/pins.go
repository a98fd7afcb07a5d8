package usecases

import (
	"context"
	"fmt"

	"github.com/GabrielFerreiraTelles/comu/internal/application/ports"
	"github.com/GabrielFerreiraTelles/comu/internal/auth"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
)

// Pins 会话置顶消息
type Pins struct {
	convs    ports.ConversationStore
	messages ports.MessageStore
}

func NewPins(convs ports.ConversationStore, messages ports.MessageStore) *Pins {
	return &Pins{convs: convs, messages: messages}
}

func (p *Pins) set(ctx context.Context, sess *auth.Session, convID, msgID string, pinned bool) error {
	uid, err := sess.Principal()
	if err != nil {
		return err
	}
	conv, err := p.convs.Get(ctx, convID)
	if err != nil {
		return entities.Transient("load conversation", err)
	}
	if !conv.HasParticipant(uid) {
		return fmt.Errorf("%w: not a participant of %s", entities.ErrPermissionDenied, convID)
	}
	if pinned {
		m, err := p.messages.Get(ctx, msgID)
		if err != nil {
			return entities.Transient("load message", err)
		}
		if m.ConversationID != convID || !m.Committed {
			return fmt.Errorf("%w: message %s is not a committed message of %s", entities.ErrInvalidArgument, msgID, convID)
		}
	}
	return entities.Transient("set pinned", p.convs.SetPinned(ctx, convID, msgID, pinned))
}

// Pin 置顶，会话列表与消息标志在同一批次内更新
func (p *Pins) Pin(ctx context.Context, sess *auth.Session, convID, msgID string) error {
	return p.set(ctx, sess, convID, msgID, true)
}

// Unpin 取消置顶，幂等
func (p *Pins) Unpin(ctx context.Context, sess *auth.Session, convID, msgID string) error {
	return p.set(ctx, sess, convID, msgID, false)
}

// List 置顶消息 ID，按置顶顺序
func (p *Pins) List(ctx context.Context, sess *auth.Session, convID string) ([]string, error) {
	uid, err := sess.Principal()
	if err != nil {
		return nil, err
	}
	conv, err := p.convs.Get(ctx, convID)
	if err != nil {
		return nil, entities.Transient("load conversation", err)
	}
	if !conv.HasParticipant(uid) {
		return nil, fmt.Errorf("%w: not a participant of %s", entities.ErrPermissionDenied, convID)
	}
	return append([]string{}, conv.PinnedMessages...), nil
}
