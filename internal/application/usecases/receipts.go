package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/GabrielFerreiraTelles/comu/internal/application/ports"
	"github.com/GabrielFerreiraTelles/comu/internal/auth"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
	"github.com/GabrielFerreiraTelles/comu/internal/logger"

	"go.uber.org/zap"
)

// Receipts 已读回执
type Receipts struct {
	messages ports.MessageStore
	convs    ports.ConversationStore
	unread   ports.UnreadCounter // 可为空
	now      func() time.Time
}

func NewReceipts(messages ports.MessageStore, convs ports.ConversationStore, unread ports.UnreadCounter) *Receipts {
	return &Receipts{messages: messages, convs: convs, unread: unread, now: time.Now}
}

// MarkRead 标记单条消息已读；自己发的消息不做处理
func (r *Receipts) MarkRead(ctx context.Context, sess *auth.Session, msgID string) error {
	uid, err := sess.Principal()
	if err != nil {
		return err
	}
	m, err := r.messages.Get(ctx, msgID)
	if err != nil {
		return entities.Transient("load message", err)
	}
	if !m.IsParticipant(uid) {
		return fmt.Errorf("%w: not a participant of message %s", entities.ErrPermissionDenied, msgID)
	}
	if m.SenderID == uid || !m.MarkReadBy(uid, r.now()) {
		return nil
	}
	return entities.Transient("mark read", r.messages.MarkRead(ctx, []string{msgID}, uid, m.ReadAt))
}

// MarkConversationRead 把会话内对方发来、尚未读的消息一次性标记已读，返回标记条数
func (r *Receipts) MarkConversationRead(ctx context.Context, sess *auth.Session, convID string) (int, error) {
	uid, err := sess.Principal()
	if err != nil {
		return 0, err
	}
	conv, err := r.convs.Get(ctx, convID)
	if err != nil {
		return 0, entities.Transient("load conversation", err)
	}
	if !conv.HasParticipant(uid) {
		return 0, fmt.Errorf("%w: not a participant of %s", entities.ErrPermissionDenied, convID)
	}
	msgs, err := r.messages.ListByConversation(ctx, convID)
	if err != nil {
		return 0, entities.Transient("list messages", err)
	}
	now := r.now()
	var ids []string
	for _, m := range msgs {
		if m.SenderID == uid || m.ReceiverID != uid {
			continue
		}
		if m.MarkReadBy(uid, now) {
			ids = append(ids, m.ID)
		}
	}
	if len(ids) > 0 {
		if err := r.messages.MarkRead(ctx, ids, uid, now.UnixMilli()); err != nil {
			return 0, entities.Transient("mark read", err)
		}
	}
	if r.unread != nil {
		if err := r.unread.Reset(ctx, uid, convID); err != nil {
			logger.L().Warn("receipts.unread reset failed", zap.String("convId", convID), zap.Error(err))
		}
	}
	return len(ids), nil
}
