package usecases

import (
	"context"

	"github.com/GabrielFerreiraTelles/comu/internal/application/ports"
	"github.com/GabrielFerreiraTelles/comu/internal/auth"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"

	"golang.org/x/sync/errgroup"
)

// MessageView 会话的合并视图：已提交消息 + 本人待发送消息
type MessageView struct {
	messages ports.MessageStore
	pending  *PendingQueue
}

func NewMessageView(messages ports.MessageStore, pending *PendingQueue) *MessageView {
	return &MessageView{messages: messages, pending: pending}
}

// Conversation 返回按时间升序、ID 不重复的消息序列。
// 存储只允许按发送方/接收方等值查询，所以查两次再按会话过滤。
func (v *MessageView) Conversation(ctx context.Context, sess *auth.Session, convID string) ([]*entities.Message, error) {
	uid, err := sess.Principal()
	if err != nil {
		return nil, err
	}
	var sent, received, pending []*entities.Message
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := v.messages.ListByField(gctx, ports.FieldSender, uid)
		sent = list
		return err
	})
	g.Go(func() error {
		list, err := v.messages.ListByField(gctx, ports.FieldReceiver, uid)
		received = list
		return err
	})
	g.Go(func() error {
		list, err := v.pending.ListBySender(gctx, uid)
		pending = list
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, entities.Transient("load conversation", err)
	}
	committed := entities.FilterConversation(entities.UnionByID(sent, received), convID)
	return entities.Reconcile(committed, entities.FilterConversation(pending, convID)), nil
}
