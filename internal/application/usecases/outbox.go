package usecases

import (
	"context"
	"fmt"
	"strings"

	"github.com/GabrielFerreiraTelles/comu/internal/auth"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/valueobjects"
)

// ComposeRequest 用户发送意图
type ComposeRequest struct {
	ReceiverID string `json:"receiverId"`
	Kind       string `json:"kind"`
	Content    string `json:"content"`
	ReplyToID  string `json:"replyToId,omitempty"`
}

// Outbox 组装消息并放入待发送队列；入队只依赖本地队列，可离线完成
type Outbox struct {
	queue      *PendingQueue
	moderation *Moderation // 可为空
	factory    entities.Factory
}

func NewOutbox(queue *PendingQueue, moderation *Moderation) *Outbox {
	return &Outbox{queue: queue, moderation: moderation, factory: entities.DefaultFactory}
}

// WithFactory 替换消息工厂（测试用）
func (o *Outbox) WithFactory(f entities.Factory) *Outbox {
	o.factory = f
	return o
}

// Compose 校验意图 -> 屏蔽检查 -> 构造消息 -> 入队
func (o *Outbox) Compose(ctx context.Context, sess *auth.Session, req ComposeRequest) (*entities.Message, error) {
	uid, err := sess.Principal()
	if err != nil {
		return nil, err
	}
	kind, err := valueobjects.NewContentKind(req.Kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrInvalidArgument, err)
	}
	if req.ReceiverID == "" || req.ReceiverID == uid {
		return nil, fmt.Errorf("%w: receiver must be another user", entities.ErrInvalidArgument)
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, fmt.Errorf("%w: content is empty", entities.ErrInvalidArgument)
	}
	convID := entities.DeriveConversationID(uid, req.ReceiverID)
	if o.moderation != nil && kind == valueobjects.ContentKindText {
		if err := o.moderation.CheckOutgoing(ctx, uid, req.ReceiverID, convID, req.Content); err != nil {
			return nil, err
		}
	} else if o.moderation != nil {
		if err := o.moderation.CheckNotBlocked(ctx, uid, req.ReceiverID); err != nil {
			return nil, err
		}
	}
	m := o.factory.New(convID, uid, req.ReceiverID, kind, req.Content, req.ReplyToID)
	return o.queue.Enqueue(ctx, sess, m)
}
