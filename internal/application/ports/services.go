package ports

import (
	"context"
	"io"
	"time"

	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
)

// ChangeType 变更类型
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeRemoved  ChangeType = "removed"
)

// Change 单条文档变更
type Change struct {
	Type ChangeType `json:"type"`
	ID   string     `json:"id"`
}

// MessageSnapshot 一次推送：当前完整匹配集合 + 本次增量
type MessageSnapshot struct {
	Messages []*entities.Message
	Changes  []Change
}

// ConversationSnapshot 会话列表推送
type ConversationSnapshot struct {
	Conversations []*entities.Conversation
	Changes       []Change
}

// Subscription 订阅句柄，Close 幂等，返回后不再回调
type Subscription interface {
	Close() error
}

// ChangeFeed 实时订阅端口：首次推送完整匹配集合，之后每次变更再推送
type ChangeFeed interface {
	SubscribeMessages(ctx context.Context, field MessageField, userID string, fn func(MessageSnapshot)) (Subscription, error)
	SubscribeConversations(ctx context.Context, userID string, fn func(ConversationSnapshot)) (Subscription, error)
}

// TypingTracker 正在输入状态，条目在 ttl 后自动过期
type TypingTracker interface {
	SetTyping(ctx context.Context, convID, userID string, typing bool) error
	TypingUsers(ctx context.Context, convID string) ([]string, error)
}

// UnreadCounter 未读计数
type UnreadCounter interface {
	Increment(ctx context.Context, userID, convID string) error
	Reset(ctx context.Context, userID, convID string) error
	Counts(ctx context.Context, userID string, convIDs []string) (map[string]int64, error)
}

// CommitEvent 消息提交事件
type CommitEvent struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
	SenderID       string `json:"senderId"`
	ReceiverID     string `json:"receiverId"`
	CommittedAt    int64  `json:"committedAt"`
}

// EventPublisher 提交事件发布端口
type EventPublisher interface {
	PublishCommitted(ctx context.Context, evt CommitEvent) error
}

// ObjectStore 不透明对象存储：按 key 上传字节，返回访问 URL
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, r io.Reader, size int64) (string, error)
}

// SessionRevoker 令牌吊销
type SessionRevoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// PasswordService 密码服务端口
type PasswordService interface {
	HashPassword(password string) (string, error)
	VerifyPassword(hashedPassword, password string) bool
}

// IDGenerator ID 生成器端口
type IDGenerator interface {
	GenerateUserID() string
	GenerateMessageID() string
	// GenerateUserCode 8 位 A-Z0-9
	GenerateUserCode() string
}
