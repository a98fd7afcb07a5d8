package usecases

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GabrielFerreiraTelles/comu/internal/application/ports"
	"github.com/GabrielFerreiraTelles/comu/internal/auth"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
	"github.com/GabrielFerreiraTelles/comu/internal/logger"
	"github.com/GabrielFerreiraTelles/comu/internal/metrics"

	"go.uber.org/zap"
)

// MessageError 单条消息投递失败
type MessageError struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
	Err            error  `json:"-"`
}

func (e MessageError) Error() string {
	return fmt.Sprintf("message %s (conversation %s): %v", e.MessageID, e.ConversationID, e.Err)
}

func (e MessageError) Unwrap() error { return e.Err }

// PumpReport 一次投递批次的结果。
// AlreadyCommitted 记录此前已提交、本次只做清理的消息，不计入成功或失败。
type PumpReport struct {
	SuccessCount     int            `json:"successCount"`
	FailureCount     int            `json:"failureCount"`
	AlreadyCommitted int            `json:"alreadyCommitted"`
	Errors           []MessageError `json:"errors"`
	Committed        []string       `json:"committed"`
}

func (r *PumpReport) fail(m *entities.Message, err error) {
	r.FailureCount++
	r.Errors = append(r.Errors, MessageError{MessageID: m.ID, ConversationID: m.ConversationID, Err: err})
	metrics.PumpOutcomes.WithLabelValues("failure").Inc()
}

// DeliveryPump 把当前身份的待发送消息提交到持久库
type DeliveryPump struct {
	pending  *PendingQueue
	messages ports.MessageStore
	convs    ports.ConversationStore
	events   ports.EventPublisher // 可为空
	now      func() time.Time

	locks sync.Map // senderID -> *sync.Mutex
}

func NewDeliveryPump(pending *PendingQueue, messages ports.MessageStore, convs ports.ConversationStore, events ports.EventPublisher) *DeliveryPump {
	return &DeliveryPump{pending: pending, messages: messages, convs: convs, events: events, now: time.Now}
}

// WithClock 替换时钟（测试用）
func (p *DeliveryPump) WithClock(now func() time.Time) *DeliveryPump {
	p.now = now
	return p
}

func (p *DeliveryPump) senderLock(uid string) *sync.Mutex {
	l, _ := p.locks.LoadOrStore(uid, &sync.Mutex{})
	return l.(*sync.Mutex)
}

// Drain 逐条投递，单条失败不影响其余消息；只有确认成功（或此前已提交）的消息会移出队列。
// 没有有效会话时直接返回 ErrUnauthenticated。
func (p *DeliveryPump) Drain(ctx context.Context, sess *auth.Session) (*PumpReport, error) {
	uid, err := sess.Principal()
	if err != nil {
		return nil, err
	}
	mu := p.senderLock(uid)
	mu.Lock()
	defer mu.Unlock()

	start := time.Now()
	defer func() { metrics.PumpDuration.Observe(float64(time.Since(start).Milliseconds())) }()

	batch, err := p.pending.ListBySender(ctx, uid)
	if err != nil {
		return nil, err
	}
	entities.SortMessages(batch)

	report := &PumpReport{Errors: []MessageError{}, Committed: []string{}}
	var done []string
	for i, m := range batch {
		if _, err := sess.Principal(); err != nil {
			for _, rest := range batch[i:] {
				report.fail(rest, err)
			}
			break
		}
		if err := ctx.Err(); err != nil {
			for _, rest := range batch[i:] {
				report.fail(rest, entities.Transient("deliver", err))
			}
			break
		}
		committed, err := p.deliver(ctx, uid, m)
		switch {
		case err != nil:
			report.fail(m, err)
			logger.L().Warn("pump.deliver failed", zap.String("msgId", m.ID),
				zap.String("convId", m.ConversationID), zap.Error(err))
		case committed:
			report.SuccessCount++
			report.Committed = append(report.Committed, m.ID)
			done = append(done, m.ID)
			metrics.PumpOutcomes.WithLabelValues("success").Inc()
		default:
			report.AlreadyCommitted++
			done = append(done, m.ID)
			metrics.PumpOutcomes.WithLabelValues("already_committed").Inc()
		}
	}

	for _, id := range done {
		if err := p.pending.Remove(ctx, id); err != nil {
			// 下次批次会识别为已提交并再次清理
			logger.L().Warn("pump.remove_pending failed", zap.String("msgId", id), zap.Error(err))
		}
	}
	logger.L().Info("pump.drain",
		zap.String("uid", uid), zap.Int("success", report.SuccessCount),
		zap.Int("failure", report.FailureCount), zap.Int("alreadyCommitted", report.AlreadyCommitted))
	return report, nil
}

// deliver 投递单条消息；返回 false 表示该消息此前已被提交
func (p *DeliveryPump) deliver(ctx context.Context, uid string, pm *entities.Message) (bool, error) {
	m := pm.Clone()
	conv, err := p.convs.Get(ctx, m.ConversationID)
	if errors.Is(err, entities.ErrNotFound) {
		return false, fmt.Errorf("conversation %s: %w", m.ConversationID, entities.ErrNotFound)
	}
	if err != nil {
		return false, entities.Transient("load conversation", err)
	}
	if !conv.HasParticipant(uid) {
		return false, fmt.Errorf("%w: %s is not a participant of %s", entities.ErrPermissionDenied, uid, conv.ID)
	}
	if m.SenderID != uid {
		logger.L().Warn("pump.sender corrected",
			zap.String("msgId", m.ID), zap.String("given", m.SenderID), zap.String("principal", uid))
		m.SenderID = uid
	}
	if err := p.convs.Upsert(ctx, &entities.Conversation{ID: conv.ID, Participants: conv.Participants}); err != nil {
		return false, entities.Transient("persist conversation", err)
	}

	now := p.now()
	existing, err := p.messages.Get(ctx, m.ID)
	switch {
	case err == nil && existing.Committed:
		return false, nil
	case err == nil:
		if err := p.messages.MarkCommitted(ctx, m.ID, now.UnixMilli()); err != nil {
			return false, entities.Transient("commit message", err)
		}
		m = existing
		m.Commit(now)
	case errors.Is(err, entities.ErrNotFound):
		m.Commit(now)
		m.Normalize()
		created, err := p.messages.CreateIfAbsent(ctx, m)
		if err != nil {
			return false, entities.Transient("create message", err)
		}
		if !created {
			// 另一个批次抢先创建
			return false, nil
		}
	default:
		return false, entities.Transient("load message", err)
	}

	p.afterCommit(ctx, conv, m, now)
	return true, nil
}

// afterCommit 更新会话快照并发布提交事件；失败只记日志，消息已提交
func (p *DeliveryPump) afterCommit(ctx context.Context, conv *entities.Conversation, m *entities.Message, now time.Time) {
	if conv.LastMessage == nil || conv.LastMessage.Timestamp <= m.Timestamp {
		activity := now.UnixMilli()
		if conv.LastActivity > activity {
			activity = conv.LastActivity
		}
		if err := p.convs.UpdateLastMessage(ctx, conv.ID, m, activity); err != nil {
			logger.L().Warn("pump.snapshot failed", zap.String("convId", conv.ID), zap.Error(err))
		} else {
			conv.LastMessage = m.Clone()
			conv.LastActivity = activity
		}
	}
	if p.events == nil {
		return
	}
	evt := ports.CommitEvent{
		MessageID:      m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		CommittedAt:    m.CommittedAt,
	}
	if err := p.events.PublishCommitted(ctx, evt); err != nil {
		logger.L().Warn("pump.publish failed", zap.String("msgId", m.ID), zap.Error(err))
	}
}
