package entities

import (
	"github.com/GabrielFerreiraTelles/comu/internal/domain/valueobjects"
)

// BlockedAttempt 因命中接收方屏蔽词而被拦截的发送记录
type BlockedAttempt struct {
	ID             string                     `json:"id"`
	ConversationID string                     `json:"conversationId"`
	SenderID       string                     `json:"senderId"`
	ReceiverID     string                     `json:"receiverId"`
	BlockedWord    string                     `json:"blockedWord"`
	Content        string                     `json:"content"`
	Timestamp      int64                      `json:"timestamp"`
	Action         valueobjects.AttemptAction `json:"action,omitempty"`
}

// BlockedUser 拉黑关系
type BlockedUser struct {
	UserID        string `json:"userId"`
	BlockedUserID string `json:"blockedUserId"`
	BlockedAt     int64  `json:"blockedAt"`
}

// BlockKey 拉黑关系的文档键：me_other
func BlockKey(userID, blockedID string) string {
	return userID + "_" + blockedID
}
