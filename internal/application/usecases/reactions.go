package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/GabrielFerreiraTelles/comu/internal/application/ports"
	"github.com/GabrielFerreiraTelles/comu/internal/auth"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
)

// Reactions 表情回应，每人每条消息最多一个
type Reactions struct {
	messages ports.MessageStore
	now      func() time.Time
}

func NewReactions(messages ports.MessageStore) *Reactions {
	return &Reactions{messages: messages, now: time.Now}
}

func (r *Reactions) load(ctx context.Context, uid, msgID string) (*entities.Message, error) {
	m, err := r.messages.Get(ctx, msgID)
	if err != nil {
		return nil, entities.Transient("load message", err)
	}
	if !m.IsParticipant(uid) {
		return nil, fmt.Errorf("%w: not a participant of message %s", entities.ErrPermissionDenied, msgID)
	}
	return m, nil
}

// Add 添加或替换当前用户的回应
func (r *Reactions) Add(ctx context.Context, sess *auth.Session, msgID, emoji string) (*entities.Message, error) {
	uid, err := sess.Principal()
	if err != nil {
		return nil, err
	}
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return nil, fmt.Errorf("%w: emoji is required", entities.ErrInvalidArgument)
	}
	m, err := r.load(ctx, uid, msgID)
	if err != nil {
		return nil, err
	}
	m.SetReaction(entities.Reaction{Emoji: emoji, UserID: uid, Timestamp: r.now().UnixMilli()})
	if err := r.messages.SetReactions(ctx, msgID, m.Reactions); err != nil {
		return nil, entities.Transient("set reactions", err)
	}
	return m, nil
}

// Remove 删除当前用户的回应，没有时不做写入
func (r *Reactions) Remove(ctx context.Context, sess *auth.Session, msgID string) (*entities.Message, error) {
	uid, err := sess.Principal()
	if err != nil {
		return nil, err
	}
	m, err := r.load(ctx, uid, msgID)
	if err != nil {
		return nil, err
	}
	if !m.RemoveReaction(uid) {
		return m, nil
	}
	if err := r.messages.SetReactions(ctx, msgID, m.Reactions); err != nil {
		return nil, entities.Transient("set reactions", err)
	}
	return m, nil
}
