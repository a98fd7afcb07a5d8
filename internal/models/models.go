// Package models HTTP 与 WebSocket 的线上载荷。
// 领域实体本身带 json 标签，可直接下发；这里只放请求体、响应包装与推送帧。
package models

import (
	"encoding/json"

	"github.com/GabrielFerreiraTelles/comu/internal/application/usecases"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
)

// 账户
type CreateAccountRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Nickname string `json:"nickname"`
}

type SignInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type SessionResponse struct {
	Token     string         `json:"token"`
	ExpiresAt int64          `json:"expiresAt"`
	User      *entities.User `json:"user"`
}

// 会话：otherId 与 code 二选一
type StartConversationRequest struct {
	OtherID string `json:"otherId"`
	Code    string `json:"code"`
}

type EditRequest struct {
	Content string `json:"content" binding:"required"`
}

type ReactionRequest struct {
	Emoji string `json:"emoji" binding:"required"`
}

type TypingRequest struct {
	Typing bool `json:"typing"`
}

type BlockedWordsRequest struct {
	Words []string `json:"words"`
}

type ResolveAttemptRequest struct {
	Action string `json:"action" binding:"required"`
}

type UploadResponse struct {
	URL string `json:"url"`
}

// ErrorBody 统一错误响应
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ReportError 单条投递失败
type ReportError struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
	Code           string `json:"code"`
	Error          string `json:"error"`
}

// PumpReport 冲刷结果
type PumpReport struct {
	SuccessCount     int           `json:"successCount"`
	FailureCount     int           `json:"failureCount"`
	AlreadyCommitted int           `json:"alreadyCommitted"`
	Committed        []string      `json:"committed"`
	Errors           []ReportError `json:"errors"`
}

// FromReport 把逐条错误展开为字符串，code 由调用方的错误映射给出
func FromReport(r *usecases.PumpReport, code func(error) string) PumpReport {
	out := PumpReport{
		SuccessCount:     r.SuccessCount,
		FailureCount:     r.FailureCount,
		AlreadyCommitted: r.AlreadyCommitted,
		Committed:        r.Committed,
		Errors:           make([]ReportError, 0, len(r.Errors)),
	}
	if out.Committed == nil {
		out.Committed = []string{}
	}
	for _, e := range r.Errors {
		out.Errors = append(out.Errors, ReportError{
			MessageID:      e.MessageID,
			ConversationID: e.ConversationID,
			Code:           code(e.Err),
			Error:          e.Err.Error(),
		})
	}
	return out
}

// WebSocket 上行动作
const (
	ActionWatchConversation   = "watch_conversation"
	ActionUnwatchConversation = "unwatch_conversation"
	ActionWatchConversations  = "watch_conversations"
	ActionTyping              = "typing"
)

// WebSocket 下行帧类型
const (
	FrameMessages      = "messages"
	FrameConversations = "conversations"
	FrameError         = "error"
)

// WSMessage 统一封装上行的动作与数据载荷
type WSMessage struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

type WatchPayload struct {
	ConversationID string `json:"conversationId"`
}

type TypingPayload struct {
	ConversationID string `json:"conversationId"`
	Typing         bool   `json:"typing"`
}

// Frame 下行帧
type Frame struct {
	Type           string                   `json:"type"`
	ConversationID string                   `json:"conversationId,omitempty"`
	Messages       []*entities.Message      `json:"messages,omitempty"`
	Conversations  []*entities.Conversation `json:"conversations,omitempty"`
	Error          string                   `json:"error,omitempty"`
	Code           string                   `json:"code,omitempty"`
}
