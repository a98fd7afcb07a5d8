package entities

import (
	"errors"
	"strings"
	"time"
)

// UserCodeLength 用户码长度，字符集 A-Z0-9
const UserCodeLength = 8

// User 用户实体。Code 为用于发起会话的唯一短码。
type User struct {
	ID           string   `json:"id"`
	Email        string   `json:"email"`
	Nickname     string   `json:"nickname"`
	Code         string   `json:"code"`
	PasswordHash string   `json:"-"`
	Bio          string   `json:"bio,omitempty"`
	BlockedWords []string `json:"blockedWords"`
	CreatedAt    int64    `json:"createdAt"`
}

// NewUser 创建用户实体
func NewUser(id, email, passwordHash, nickname, code string, now time.Time) (*User, error) {
	if id == "" {
		return nil, errors.New("user id is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, errors.New("a valid email is required")
	}
	if passwordHash == "" {
		return nil, errors.New("password is required")
	}
	if len(code) != UserCodeLength {
		return nil, errors.New("user code must be 8 characters")
	}
	return &User{
		ID:           id,
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Nickname:     nickname,
		Code:         code,
		PasswordHash: passwordHash,
		BlockedWords: []string{},
		CreatedAt:    now.UnixMilli(),
	}, nil
}

// MatchBlockedWord 不区分大小写的子串匹配，返回命中的屏蔽词
func (u *User) MatchBlockedWord(content string) (string, bool) {
	lower := strings.ToLower(content)
	for _, w := range u.BlockedWords {
		if w == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(w)) {
			return w, true
		}
	}
	return "", false
}

// NormalizeBlockedWords 去空白、去空串、大小写不敏感去重
func NormalizeBlockedWords(words []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		k := strings.ToLower(w)
		if w == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, w)
	}
	return out
}
