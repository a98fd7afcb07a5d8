package ports

import (
	"context"

	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
)

// MessageField 消息可按其等值查询/订阅的用户字段
type MessageField string

const (
	FieldSender   MessageField = "sender"
	FieldReceiver MessageField = "receiver"
)

// MessageStore 持久消息库端口。
// 权限按字段划分，因此只提供按发送方/接收方的等值查询，会话过滤由调用方完成。
// 缺失记录统一返回 entities.ErrNotFound。
type MessageStore interface {
	// CreateIfAbsent 不存在时创建；已存在返回 (false, nil)，重复创建视为无害
	CreateIfAbsent(ctx context.Context, m *entities.Message) (bool, error)
	// Get 按 ID 读取
	Get(ctx context.Context, id string) (*entities.Message, error)
	// ListByField 按发送方或接收方等值查询
	ListByField(ctx context.Context, field MessageField, userID string) ([]*entities.Message, error)
	// ListByConversation 按会话查询已提交消息（已读批处理使用）
	ListByConversation(ctx context.Context, convID string) ([]*entities.Message, error)
	// MarkCommitted 只更新 committed/committedAt
	MarkCommitted(ctx context.Context, id string, committedAt int64) error
	// UpdateContent 编辑内容并打上编辑标记
	UpdateContent(ctx context.Context, id, content string, editedAt int64) error
	// Delete 硬删除
	Delete(ctx context.Context, id string) error
	// SetReactions 覆盖回应列表
	SetReactions(ctx context.Context, id string, reactions []entities.Reaction) error
	// MarkRead 原子批量：把 readerID 加入多条消息的 readBy
	MarkRead(ctx context.Context, ids []string, readerID string, readAt int64) error
}

// PendingStore 待发送队列端口，按发送方分区
type PendingStore interface {
	// Put 写入或覆盖
	Put(ctx context.Context, m *entities.Message) error
	// Get 按 ID 读取
	Get(ctx context.Context, id string) (*entities.Message, error)
	// ListBySender 该发送方的全部待发送消息，顺序不保证
	ListBySender(ctx context.Context, senderID string) ([]*entities.Message, error)
	// Remove 幂等删除
	Remove(ctx context.Context, id string) error
	// ClearAll 清空该发送方队列
	ClearAll(ctx context.Context, senderID string) error
}

// ConversationStore 会话存储端口
type ConversationStore interface {
	// Get 按 ID 读取
	Get(ctx context.Context, id string) (*entities.Conversation, error)
	// Upsert 幂等写入：不存在则创建，存在则只补全参与者，不覆盖快照与置顶
	Upsert(ctx context.Context, c *entities.Conversation) error
	// ListByParticipant 用户参与的全部会话
	ListByParticipant(ctx context.Context, userID string) ([]*entities.Conversation, error)
	// UpdateLastMessage 更新最后消息快照与活跃时间；last 为 nil 时清空快照
	UpdateLastMessage(ctx context.Context, convID string, last *entities.Message, lastActivity int64) error
	// Delete 删除会话本身，消息保留
	Delete(ctx context.Context, id string) error
	// SetPinned 原子批量：会话置顶列表与消息 pinned 标志一起更新
	SetPinned(ctx context.Context, convID, msgID string, pinned bool) error
}

// UserDirectory 用户目录端口
type UserDirectory interface {
	Create(ctx context.Context, u *entities.User) error
	GetByID(ctx context.Context, id string) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	GetByCode(ctx context.Context, code string) (*entities.User, error)
	// CodeExists 用户码是否已占用
	CodeExists(ctx context.Context, code string) (bool, error)
	UpdateBlockedWords(ctx context.Context, id string, words []string) error
}

// BlockList 拉黑关系端口
type BlockList interface {
	Block(ctx context.Context, b *entities.BlockedUser) error
	Unblock(ctx context.Context, userID, blockedID string) error
	// IsBlocked userID 是否拉黑了 otherID
	IsBlocked(ctx context.Context, userID, otherID string) (bool, error)
	List(ctx context.Context, userID string) ([]*entities.BlockedUser, error)
}

// AttemptStore 屏蔽词拦截记录端口
type AttemptStore interface {
	Add(ctx context.Context, a *entities.BlockedAttempt) error
	Get(ctx context.Context, id string) (*entities.BlockedAttempt, error)
	// ListUnresolved 接收方尚未处理的记录
	ListUnresolved(ctx context.Context, receiverID string) ([]*entities.BlockedAttempt, error)
	SetAction(ctx context.Context, id string, action string) error
}
