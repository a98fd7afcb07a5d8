package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/GabrielFerreiraTelles/comu/internal/application/ports"
	"github.com/GabrielFerreiraTelles/comu/internal/auth"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
	"github.com/GabrielFerreiraTelles/comu/internal/logger"

	"go.uber.org/zap"
)

// ConversationSummary 会话列表项，附带当前用户的未读数
type ConversationSummary struct {
	*entities.Conversation
	Unread int64 `json:"unread"`
}

// Conversations 一对一会话管理
type Conversations struct {
	convs  ports.ConversationStore
	users  ports.UserDirectory
	typing ports.TypingTracker // 可为空
	unread ports.UnreadCounter // 可为空
	now    func() time.Time
}

func NewConversations(convs ports.ConversationStore, users ports.UserDirectory, typing ports.TypingTracker, unread ports.UnreadCounter) *Conversations {
	return &Conversations{convs: convs, users: users, typing: typing, unread: unread, now: time.Now}
}

// FindOrCreate 与 otherID 的会话，不存在则创建
func (c *Conversations) FindOrCreate(ctx context.Context, sess *auth.Session, otherID string) (*entities.Conversation, error) {
	uid, err := sess.Principal()
	if err != nil {
		return nil, err
	}
	if otherID == uid {
		return nil, fmt.Errorf("%w: cannot start a conversation with yourself", entities.ErrInvalidArgument)
	}
	if _, err := c.users.GetByID(ctx, otherID); err != nil {
		return nil, entities.Transient("find user", err)
	}
	id := entities.DeriveConversationID(uid, otherID)
	conv, err := c.convs.Get(ctx, id)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, entities.ErrNotFound) {
		return nil, entities.Transient("load conversation", err)
	}
	conv, err = entities.NewConversation(uid, otherID, c.now())
	if err != nil {
		return nil, err
	}
	if err := c.convs.Upsert(ctx, conv); err != nil {
		return nil, entities.Transient("create conversation", err)
	}
	logger.L().Info("conversation.created", zap.String("convId", conv.ID))
	return conv, nil
}

// FindOrCreateByCode 通过用户码发起会话
func (c *Conversations) FindOrCreateByCode(ctx context.Context, sess *auth.Session, code string) (*entities.Conversation, error) {
	if _, err := sess.Principal(); err != nil {
		return nil, err
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != entities.UserCodeLength {
		return nil, fmt.Errorf("%w: user code must be %d characters", entities.ErrInvalidArgument, entities.UserCodeLength)
	}
	other, err := c.users.GetByCode(ctx, code)
	if err != nil {
		return nil, entities.Transient("find user by code", err)
	}
	return c.FindOrCreate(ctx, sess, other.ID)
}

// Get 读取会话并附上正在输入的用户
func (c *Conversations) Get(ctx context.Context, sess *auth.Session, convID string) (*entities.Conversation, error) {
	uid, err := sess.Principal()
	if err != nil {
		return nil, err
	}
	conv, err := c.load(ctx, uid, convID)
	if err != nil {
		return nil, err
	}
	c.attachTyping(ctx, conv)
	return conv, nil
}

func (c *Conversations) load(ctx context.Context, uid, convID string) (*entities.Conversation, error) {
	conv, err := c.convs.Get(ctx, convID)
	if err != nil {
		return nil, entities.Transient("load conversation", err)
	}
	if !conv.HasParticipant(uid) {
		return nil, fmt.Errorf("%w: not a participant of %s", entities.ErrPermissionDenied, convID)
	}
	return conv, nil
}

func (c *Conversations) attachTyping(ctx context.Context, conv *entities.Conversation) {
	if c.typing == nil {
		return
	}
	users, err := c.typing.TypingUsers(ctx, conv.ID)
	if err != nil {
		logger.L().Debug("conversation.typing lookup failed", zap.String("convId", conv.ID), zap.Error(err))
		return
	}
	conv.TypingUsers = users
}

// List 当前用户的会话，按最后活跃时间倒序
func (c *Conversations) List(ctx context.Context, sess *auth.Session) ([]ConversationSummary, error) {
	uid, err := sess.Principal()
	if err != nil {
		return nil, err
	}
	convs, err := c.convs.ListByParticipant(ctx, uid)
	if err != nil {
		return nil, entities.Transient("list conversations", err)
	}
	entities.SortByActivity(convs)
	counts := map[string]int64{}
	if c.unread != nil && len(convs) > 0 {
		ids := make([]string, 0, len(convs))
		for _, conv := range convs {
			ids = append(ids, conv.ID)
		}
		if counts, err = c.unread.Counts(ctx, uid, ids); err != nil {
			logger.L().Warn("conversation.unread lookup failed", zap.String("uid", uid), zap.Error(err))
			counts = map[string]int64{}
		}
	}
	out := make([]ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		c.attachTyping(ctx, conv)
		out = append(out, ConversationSummary{Conversation: conv, Unread: counts[conv.ID]})
	}
	return out, nil
}

// Delete 只删除会话本身，消息保留
func (c *Conversations) Delete(ctx context.Context, sess *auth.Session, convID string) error {
	uid, err := sess.Principal()
	if err != nil {
		return err
	}
	if _, err := c.load(ctx, uid, convID); err != nil {
		return err
	}
	if err := c.convs.Delete(ctx, convID); err != nil {
		return entities.Transient("delete conversation", err)
	}
	if c.unread != nil {
		_ = c.unread.Reset(ctx, uid, convID)
	}
	return nil
}
