package auth

import (
	"sync/atomic"
	"time"

	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
)

// Session 一次请求解析出的已认证身份，显式传入每个需要身份的操作。
// Principal 每次调用都会重新检查有效性，调用方不应缓存其结果。
type Session struct {
	UserID    string
	TokenID   string
	ExpiresAt time.Time

	revoked atomic.Bool
	now     func() time.Time
}

// NewSession 创建会话
func NewSession(userID, tokenID string, expiresAt time.Time) *Session {
	return &Session{UserID: userID, TokenID: tokenID, ExpiresAt: expiresAt, now: time.Now}
}

// WithClock 替换时钟（测试用）
func (s *Session) WithClock(now func() time.Time) *Session {
	s.now = now
	return s
}

// Live 会话是否仍有效
func (s *Session) Live() bool {
	if s == nil || s.UserID == "" || s.revoked.Load() {
		return false
	}
	if s.ExpiresAt.IsZero() {
		return true
	}
	now := s.now
	if now == nil {
		now = time.Now
	}
	return now().Before(s.ExpiresAt)
}

// Principal 返回当前身份 ID，会话无效时返回 ErrUnauthenticated
func (s *Session) Principal() (string, error) {
	if !s.Live() {
		return "", entities.ErrUnauthenticated
	}
	return s.UserID, nil
}

// Revoke 使会话立即失效
func (s *Session) Revoke() {
	if s != nil {
		s.revoked.Store(true)
	}
}
