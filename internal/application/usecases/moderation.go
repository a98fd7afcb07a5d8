package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GabrielFerreiraTelles/comu/internal/application/ports"
	"github.com/GabrielFerreiraTelles/comu/internal/auth"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/valueobjects"
	"github.com/GabrielFerreiraTelles/comu/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Moderation 屏蔽词与拉黑
type Moderation struct {
	users    ports.UserDirectory
	blocks   ports.BlockList
	attempts ports.AttemptStore
	now      func() time.Time
}

func NewModeration(users ports.UserDirectory, blocks ports.BlockList, attempts ports.AttemptStore) *Moderation {
	return &Moderation{users: users, blocks: blocks, attempts: attempts, now: time.Now}
}

// CheckNotBlocked 接收方拉黑了发送方时返回 ErrUserBlocked。
// 目录不可达时放行，保证离线也能入队。
func (m *Moderation) CheckNotBlocked(ctx context.Context, senderID, receiverID string) error {
	blocked, err := m.blocks.IsBlocked(ctx, receiverID, senderID)
	if err != nil {
		logger.L().Warn("moderation.block_check skipped", zap.String("receiver", receiverID), zap.Error(err))
		return nil
	}
	if blocked {
		return entities.ErrUserBlocked
	}
	return nil
}

// CheckOutgoing 拉黑检查 + 接收方屏蔽词检查，命中时记录拦截
func (m *Moderation) CheckOutgoing(ctx context.Context, senderID, receiverID, convID, content string) error {
	if err := m.CheckNotBlocked(ctx, senderID, receiverID); err != nil {
		return err
	}
	receiver, err := m.users.GetByID(ctx, receiverID)
	if errors.Is(err, entities.ErrNotFound) {
		return fmt.Errorf("%w: receiver %s", entities.ErrNotFound, receiverID)
	}
	if err != nil {
		logger.L().Warn("moderation.word_check skipped", zap.String("receiver", receiverID), zap.Error(err))
		return nil
	}
	word, hit := receiver.MatchBlockedWord(content)
	if !hit {
		return nil
	}
	attempt := &entities.BlockedAttempt{
		ID:             uuid.NewString(),
		ConversationID: convID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		BlockedWord:    word,
		Content:        content,
		Timestamp:      m.now().UnixMilli(),
	}
	if err := m.attempts.Add(ctx, attempt); err != nil {
		logger.L().Warn("moderation.attempt_record failed", zap.String("attemptId", attempt.ID), zap.Error(err))
	}
	return fmt.Errorf("%w (%q)", entities.ErrBlockedWord, word)
}

// SetBlockedWords 覆盖当前用户的屏蔽词
func (m *Moderation) SetBlockedWords(ctx context.Context, sess *auth.Session, words []string) ([]string, error) {
	uid, err := sess.Principal()
	if err != nil {
		return nil, err
	}
	words = entities.NormalizeBlockedWords(words)
	if err := m.users.UpdateBlockedWords(ctx, uid, words); err != nil {
		return nil, entities.Transient("set blocked words", err)
	}
	return words, nil
}

// Block 拉黑
func (m *Moderation) Block(ctx context.Context, sess *auth.Session, otherID string) error {
	uid, err := sess.Principal()
	if err != nil {
		return err
	}
	if otherID == "" || otherID == uid {
		return fmt.Errorf("%w: cannot block yourself", entities.ErrInvalidArgument)
	}
	b := &entities.BlockedUser{UserID: uid, BlockedUserID: otherID, BlockedAt: m.now().UnixMilli()}
	return entities.Transient("block user", m.blocks.Block(ctx, b))
}

// Unblock 取消拉黑，幂等
func (m *Moderation) Unblock(ctx context.Context, sess *auth.Session, otherID string) error {
	uid, err := sess.Principal()
	if err != nil {
		return err
	}
	return entities.Transient("unblock user", m.blocks.Unblock(ctx, uid, otherID))
}

// Blocked 当前用户的拉黑列表
func (m *Moderation) Blocked(ctx context.Context, sess *auth.Session) ([]*entities.BlockedUser, error) {
	uid, err := sess.Principal()
	if err != nil {
		return nil, err
	}
	list, err := m.blocks.List(ctx, uid)
	if err != nil {
		return nil, entities.Transient("list blocks", err)
	}
	return list, nil
}

// PendingAttempts 发给当前用户、尚未处理的拦截记录
func (m *Moderation) PendingAttempts(ctx context.Context, sess *auth.Session) ([]*entities.BlockedAttempt, error) {
	uid, err := sess.Principal()
	if err != nil {
		return nil, err
	}
	list, err := m.attempts.ListUnresolved(ctx, uid)
	if err != nil {
		return nil, entities.Transient("list attempts", err)
	}
	return list, nil
}

// Resolve 接收方处理拦截：blocked 会同时拉黑发送方
func (m *Moderation) Resolve(ctx context.Context, sess *auth.Session, attemptID, action string) error {
	uid, err := sess.Principal()
	if err != nil {
		return err
	}
	act, err := valueobjects.NewAttemptAction(action)
	if err != nil {
		return fmt.Errorf("%w: action must be blocked or ignored", entities.ErrInvalidArgument)
	}
	a, err := m.attempts.Get(ctx, attemptID)
	if err != nil {
		return entities.Transient("get attempt", err)
	}
	if a.ReceiverID != uid {
		return fmt.Errorf("%w: attempt %s belongs to another user", entities.ErrPermissionDenied, attemptID)
	}
	if act == valueobjects.AttemptActionBlocked {
		if err := m.Block(ctx, sess, a.SenderID); err != nil {
			return err
		}
	}
	return entities.Transient("resolve attempt", m.attempts.SetAction(ctx, attemptID, string(act)))
}
