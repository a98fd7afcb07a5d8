package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/GabrielFerreiraTelles/comu/internal/application/ports"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
)

// TokenResolver 将 bearer 令牌解析为 Session
type TokenResolver struct {
	Secret  string
	TTL     time.Duration
	Revoker ports.SessionRevoker // 可为空
}

// Issue 为用户签发令牌并返回对应会话
func (r *TokenResolver) Issue(userID string) (string, *Session, error) {
	ttl := r.TTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	tok, cl, err := signClaims(r.Secret, userID, ttl, time.Now())
	if err != nil {
		return "", nil, err
	}
	return tok, NewSession(cl.UserID, cl.ID, cl.ExpiresAt.Time), nil
}

// Resolve 校验令牌并检查吊销
func (r *TokenResolver) Resolve(ctx context.Context, token string) (*Session, error) {
	cl, err := ParseJWT(r.Secret, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrUnauthenticated, err)
	}
	if r.Revoker != nil && cl.ID != "" {
		revoked, err := r.Revoker.IsRevoked(ctx, cl.ID)
		if err != nil {
			return nil, entities.Transient("check revocation", err)
		}
		if revoked {
			return nil, fmt.Errorf("%w: session signed out", entities.ErrUnauthenticated)
		}
	}
	var exp time.Time
	if cl.ExpiresAt != nil {
		exp = cl.ExpiresAt.Time
	}
	return NewSession(cl.UserID, cl.ID, exp), nil
}
