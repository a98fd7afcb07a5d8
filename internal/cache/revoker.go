package cache

import (
	"context"
	"time"

	"github.com/GabrielFerreiraTelles/comu/internal/application/ports"

	"github.com/redis/go-redis/v9"
)

// SessionRevoker 已登出的令牌 ID，保留到令牌自身过期
type SessionRevoker struct {
	client *redis.Client
	now    func() time.Time
}

var _ ports.SessionRevoker = (*SessionRevoker)(nil)

func NewSessionRevoker(c *redis.Client) *SessionRevoker {
	return &SessionRevoker{client: c, now: time.Now}
}

func (r *SessionRevoker) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(r.now())
	if ttl <= 0 {
		// 令牌已过期，无需记录
		return nil
	}
	return r.client.Set(ctx, RevokedKey(tokenID), "1", ttl).Err()
}

func (r *SessionRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, RevokedKey(tokenID)).Result()
	return n > 0, err
}
