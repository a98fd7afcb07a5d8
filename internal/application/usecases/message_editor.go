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
	"github.com/GabrielFerreiraTelles/comu/internal/domain/valueobjects"
	"github.com/GabrielFerreiraTelles/comu/internal/logger"

	"go.uber.org/zap"
)

// MessageEditor 编辑与删除。
// 待发送消息可随意修改；已提交消息只允许发送方在宽限期内修改。
type MessageEditor struct {
	pending  *PendingQueue
	messages ports.MessageStore
	convs    ports.ConversationStore
	window   time.Duration
	now      func() time.Time
}

func NewMessageEditor(pending *PendingQueue, messages ports.MessageStore, convs ports.ConversationStore) *MessageEditor {
	return &MessageEditor{pending: pending, messages: messages, convs: convs, window: entities.EditWindow, now: time.Now}
}

// WithWindow 覆盖宽限期
func (e *MessageEditor) WithWindow(d time.Duration) *MessageEditor {
	if d > 0 {
		e.window = d
	}
	return e
}

// WithClock 替换时钟（测试用）
func (e *MessageEditor) WithClock(now func() time.Time) *MessageEditor {
	e.now = now
	return e
}

type located struct {
	pending *entities.Message // 本地待发送副本
	durable *entities.Message // 持久库记录
}

// locate 先看持久库是否已提交，再看本地队列。
// 持久库不可达但本地有副本时，按待发送处理以便离线编辑。
func (e *MessageEditor) locate(ctx context.Context, id string) (located, error) {
	var loc located
	pm, perr := e.pending.Get(ctx, id)
	if perr == nil {
		loc.pending = pm
	}
	dm, derr := e.messages.Get(ctx, id)
	if derr == nil {
		loc.durable = dm
	}
	switch {
	case loc.durable != nil || loc.pending != nil:
		if derr != nil && !errors.Is(derr, entities.ErrNotFound) {
			logger.L().Warn("editor.durable lookup failed, using pending copy", zap.String("msgId", id), zap.Error(derr))
		}
		return loc, nil
	case errors.Is(perr, entities.ErrNotFound) && errors.Is(derr, entities.ErrNotFound):
		return loc, fmt.Errorf("message %s: %w", id, entities.ErrNotFound)
	case !errors.Is(derr, entities.ErrNotFound):
		return loc, entities.Transient("load message", derr)
	default:
		return loc, perr
	}
}

// Edit 修改文本内容
func (e *MessageEditor) Edit(ctx context.Context, sess *auth.Session, id, content string) (*entities.Message, error) {
	uid, err := sess.Principal()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content is empty", entities.ErrInvalidArgument)
	}
	loc, err := e.locate(ctx, id)
	if err != nil {
		return nil, err
	}
	now := e.now()

	if d := loc.durable; d != nil && (d.Committed || loc.pending == nil) {
		if err := d.CheckModifiable(uid, now, e.window); err != nil {
			return nil, err
		}
		if d.Kind != valueobjects.ContentKindText {
			return nil, fmt.Errorf("%w: only text messages can be edited", entities.ErrInvalidArgument)
		}
		if err := e.messages.UpdateContent(ctx, id, content, now.UnixMilli()); err != nil {
			return nil, entities.Transient("edit message", err)
		}
		d.Content, d.Edited, d.EditedAt = content, true, now.UnixMilli()
		e.refreshSnapshot(ctx, d)
		return d, nil
	}

	p := loc.pending
	if p.SenderID != uid {
		return nil, entities.ErrPermissionDenied
	}
	if p.Kind != valueobjects.ContentKindText {
		return nil, fmt.Errorf("%w: only text messages can be edited", entities.ErrInvalidArgument)
	}
	p.Content, p.Edited, p.EditedAt = content, true, now.UnixMilli()
	if err := e.pending.Replace(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete 硬删除；已提交消息同时清理置顶与会话快照
func (e *MessageEditor) Delete(ctx context.Context, sess *auth.Session, id string) error {
	uid, err := sess.Principal()
	if err != nil {
		return err
	}
	loc, err := e.locate(ctx, id)
	if err != nil {
		return err
	}
	now := e.now()

	if d := loc.durable; d != nil && (d.Committed || loc.pending == nil) {
		if err := d.CheckModifiable(uid, now, e.window); err != nil {
			return err
		}
		if err := e.messages.Delete(ctx, id); err != nil {
			return entities.Transient("delete message", err)
		}
		if loc.pending != nil {
			_ = e.pending.Remove(ctx, id)
		}
		e.recomputeSnapshot(ctx, d.ConversationID, id)
		return nil
	}

	if loc.pending.SenderID != uid {
		return entities.ErrPermissionDenied
	}
	return e.pending.Remove(ctx, id)
}

// refreshSnapshot 编辑的若是会话最后一条消息，同步快照内容
func (e *MessageEditor) refreshSnapshot(ctx context.Context, m *entities.Message) {
	conv, err := e.convs.Get(ctx, m.ConversationID)
	if err != nil || conv.LastMessage == nil || conv.LastMessage.ID != m.ID {
		return
	}
	if err := e.convs.UpdateLastMessage(ctx, conv.ID, m, conv.LastActivity); err != nil {
		logger.L().Warn("editor.snapshot failed", zap.String("convId", conv.ID), zap.Error(err))
	}
}

// recomputeSnapshot 从置顶中移除；删除的若是最后一条消息，改用剩余的最新消息
func (e *MessageEditor) recomputeSnapshot(ctx context.Context, convID, deletedID string) {
	conv, err := e.convs.Get(ctx, convID)
	if err != nil {
		return
	}
	if conv.Unpin(deletedID) {
		if err := e.convs.SetPinned(ctx, convID, deletedID, false); err != nil {
			logger.L().Warn("editor.unpin failed", zap.String("convId", convID), zap.Error(err))
		}
	}
	if conv.LastMessage == nil || conv.LastMessage.ID != deletedID {
		return
	}
	rest, err := e.messages.ListByConversation(ctx, convID)
	if err != nil {
		logger.L().Warn("editor.snapshot recompute failed", zap.String("convId", convID), zap.Error(err))
		return
	}
	var latest *entities.Message
	if len(rest) > 0 {
		entities.SortMessages(rest)
		latest = rest[len(rest)-1]
	}
	if err := e.convs.UpdateLastMessage(ctx, convID, latest, conv.LastActivity); err != nil {
		logger.L().Warn("editor.snapshot failed", zap.String("convId", convID), zap.Error(err))
	}
}
