package entities

import (
	"sort"
	"time"

	"github.com/GabrielFerreiraTelles/comu/internal/domain/valueobjects"

	"github.com/google/uuid"
)

// EditWindow 已提交消息允许编辑/删除的宽限期（自提交时间起算）
const EditWindow = 3 * time.Minute

// Reaction 表情回应，每个用户最多一条
type Reaction struct {
	Emoji     string `json:"emoji"`
	UserID    string `json:"userId"`
	Timestamp int64  `json:"timestamp"`
}

// Message 消息实体。ID 由客户端生成，是待发送队列与持久库之间的去重键。
// 时间字段均为毫秒时间戳，0 表示不存在。
type Message struct {
	ID             string                   `json:"id"`
	ConversationID string                   `json:"conversationId"`
	SenderID       string                   `json:"senderId"`
	ReceiverID     string                   `json:"receiverId"`
	Kind           valueobjects.ContentKind `json:"kind"`
	Content        string                   `json:"content"`
	Timestamp      int64                    `json:"timestamp"`
	Committed      bool                     `json:"committed"`
	CommittedAt    int64                    `json:"committedAt,omitempty"`
	Edited         bool                     `json:"edited,omitempty"`
	EditedAt       int64                    `json:"editedAt,omitempty"`
	ReplyToID      string                   `json:"replyToId,omitempty"`
	Reactions      []Reaction               `json:"reactions"`
	ReadBy         []string                 `json:"readBy"`
	ReadAt         int64                    `json:"readAt,omitempty"`
	Pinned         bool                     `json:"pinned,omitempty"`
}

// Factory 构造消息；时钟与 ID 源可替换，便于测试。
type Factory struct {
	Now   func() time.Time
	NewID func() string
}

// DefaultFactory 使用系统时钟与 UUIDv4
var DefaultFactory = Factory{Now: time.Now, NewID: uuid.NewString}

// New 根据用户意图构造一条未提交消息，不做任何 I/O 与业务校验。
func (f Factory) New(convID, senderID, receiverID string, kind valueobjects.ContentKind, content, replyToID string) *Message {
	now, newID := f.Now, f.NewID
	if now == nil {
		now = time.Now
	}
	if newID == nil {
		newID = uuid.NewString
	}
	if kind == "" {
		kind = valueobjects.ContentKindText
	}
	return &Message{
		ID:             newID(),
		ConversationID: convID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Kind:           kind,
		Content:        content,
		Timestamp:      now().UnixMilli(),
		ReplyToID:      replyToID,
		Reactions:      []Reaction{},
		ReadBy:         []string{},
	}
}

// NewMessage 使用默认工厂构造消息
func NewMessage(convID, senderID, receiverID string, kind valueobjects.ContentKind, content, replyToID string) *Message {
	return DefaultFactory.New(convID, senderID, receiverID, kind, content, replyToID)
}

// Clone 深拷贝
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	c := *m
	c.Reactions = append([]Reaction{}, m.Reactions...)
	c.ReadBy = append([]string{}, m.ReadBy...)
	return &c
}

// Normalize 将缺省数组补为空数组，写入持久库前调用
func (m *Message) Normalize() {
	if m.Reactions == nil {
		m.Reactions = []Reaction{}
	}
	if m.ReadBy == nil {
		m.ReadBy = []string{}
	}
	if m.Kind == "" {
		m.Kind = valueobjects.ContentKindText
	}
	if !m.Committed {
		m.CommittedAt = 0
	}
}

// Commit 标记为已提交
func (m *Message) Commit(at time.Time) {
	m.Committed = true
	m.CommittedAt = at.UnixMilli()
}

// CommitTime 提交时间；未提交返回零值
func (m *Message) CommitTime() time.Time {
	if m.CommittedAt == 0 {
		return time.Time{}
	}
	return time.UnixMilli(m.CommittedAt)
}

// WithinEditWindow 未提交消息总是可改；已提交消息在宽限期内（含边界）可改。
func (m *Message) WithinEditWindow(now time.Time, window time.Duration) bool {
	if !m.Committed {
		return true
	}
	return now.Sub(m.CommitTime()) <= window
}

// CheckModifiable 校验 principal 能否编辑/删除该消息
func (m *Message) CheckModifiable(principal string, now time.Time, window time.Duration) error {
	if m.SenderID != principal {
		return ErrPermissionDenied
	}
	if !m.WithinEditWindow(now, window) {
		return ErrEditWindowExpired
	}
	return nil
}

// IsParticipant 发送方或接收方
func (m *Message) IsParticipant(uid string) bool {
	return uid != "" && (m.SenderID == uid || m.ReceiverID == uid)
}

// SetReaction 替换该用户已有的回应（后写覆盖）
func (m *Message) SetReaction(r Reaction) {
	m.RemoveReaction(r.UserID)
	m.Reactions = append(m.Reactions, r)
}

// RemoveReaction 删除该用户的回应，返回是否存在
func (m *Message) RemoveReaction(userID string) bool {
	out := make([]Reaction, 0, len(m.Reactions))
	found := false
	for _, r := range m.Reactions {
		if r.UserID == userID {
			found = true
			continue
		}
		out = append(out, r)
	}
	m.Reactions = out
	return found
}

// MarkReadBy 记录已读，已读过返回 false
func (m *Message) MarkReadBy(userID string, at time.Time) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return false
		}
	}
	m.ReadBy = append(m.ReadBy, userID)
	m.ReadAt = at.UnixMilli()
	return true
}

// SortMessages 按时间戳升序，时间相同按 ID 排序
func SortMessages(msgs []*Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].Timestamp != msgs[j].Timestamp {
			return msgs[i].Timestamp < msgs[j].Timestamp
		}
		return msgs[i].ID < msgs[j].ID
	})
}
