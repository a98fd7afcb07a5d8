package entities

import (
	"sort"
	"strings"
	"time"
)

// Conversation 两个用户之间的单聊会话，ID 由双方 ID 排序后拼接得到，
// 因此无需查询即可定位，且每对用户只有一个会话。
type Conversation struct {
	ID             string   `json:"id"`
	Participants   []string `json:"participants"`
	LastMessage    *Message `json:"lastMessage,omitempty"`
	LastActivity   int64    `json:"lastActivity"`
	PinnedMessages []string `json:"pinnedMessages"`
	TypingUsers    []string `json:"typingUsers"`
}

// DeriveConversationID sort(a, b).join("_")
func DeriveConversationID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, "_")
}

// NewConversation 创建会话；参与者必须是两个不同的非空 ID
func NewConversation(a, b string, now time.Time) (*Conversation, error) {
	if a == "" || b == "" || a == b {
		return nil, ErrInvalidArgument
	}
	ids := []string{a, b}
	sort.Strings(ids)
	return &Conversation{
		ID:             strings.Join(ids, "_"),
		Participants:   ids,
		LastActivity:   now.UnixMilli(),
		PinnedMessages: []string{},
		TypingUsers:    []string{},
	}, nil
}

// HasParticipant 用户是否在会话中
func (c *Conversation) HasParticipant(uid string) bool {
	if uid == "" {
		return false
	}
	for _, p := range c.Participants {
		if p == uid {
			return true
		}
	}
	return false
}

// Peer 返回对端用户 ID
func (c *Conversation) Peer(uid string) string {
	for _, p := range c.Participants {
		if p != uid {
			return p
		}
	}
	return ""
}

// Pin / Unpin 维护置顶列表，返回列表是否变化
func (c *Conversation) Pin(msgID string) bool {
	for _, id := range c.PinnedMessages {
		if id == msgID {
			return false
		}
	}
	c.PinnedMessages = append(c.PinnedMessages, msgID)
	return true
}

func (c *Conversation) Unpin(msgID string) bool {
	out := make([]string, 0, len(c.PinnedMessages))
	changed := false
	for _, id := range c.PinnedMessages {
		if id == msgID {
			changed = true
			continue
		}
		out = append(out, id)
	}
	c.PinnedMessages = out
	return changed
}

// Touch 更新最后一条消息快照与活跃时间
func (c *Conversation) Touch(last *Message, at time.Time) {
	c.LastMessage = last.Clone()
	if ms := at.UnixMilli(); ms > c.LastActivity {
		c.LastActivity = ms
	}
}

// Clone 深拷贝
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Participants = append([]string{}, c.Participants...)
	cp.PinnedMessages = append([]string{}, c.PinnedMessages...)
	cp.TypingUsers = append([]string{}, c.TypingUsers...)
	cp.LastMessage = c.LastMessage.Clone()
	return &cp
}

// SortByActivity 按最后活跃时间倒序
func SortByActivity(convs []*Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		if convs[i].LastActivity != convs[j].LastActivity {
			return convs[i].LastActivity > convs[j].LastActivity
		}
		return convs[i].ID < convs[j].ID
	})
}
