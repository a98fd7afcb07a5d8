package cache

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/GabrielFerreiraTelles/comu/internal/application/ports"

	"github.com/redis/go-redis/v9"
)

// TypingTracker 正在输入状态。成员 score 为过期时间，读取时先裁掉过期成员。
type TypingTracker struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

var _ ports.TypingTracker = (*TypingTracker)(nil)

func NewTypingTracker(c *redis.Client, ttl time.Duration) *TypingTracker {
	if ttl <= 0 {
		ttl = 3 * time.Second
	}
	return &TypingTracker{client: c, ttl: ttl, now: time.Now}
}

// WithClock 替换时钟（测试用）
func (t *TypingTracker) WithClock(now func() time.Time) *TypingTracker {
	t.now = now
	return t
}

func (t *TypingTracker) SetTyping(ctx context.Context, convID, userID string, typing bool) error {
	key := TypingKey(convID)
	if !typing {
		return t.client.ZRem(ctx, key, userID).Err()
	}
	expireAt := t.now().Add(t.ttl).UnixMilli()
	pipe := t.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(expireAt), Member: userID})
	// 整个集合在无人输入后自行消失
	pipe.PExpire(ctx, key, 2*t.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (t *TypingTracker) TypingUsers(ctx context.Context, convID string) ([]string, error) {
	key := TypingKey(convID)
	now := strconv.FormatInt(t.now().UnixMilli(), 10)
	pipe := t.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", now)
	live := pipe.ZRangeByScore(ctx, key, &redis.ZRangeBy{Min: "(" + now, Max: "+inf"})
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}
	users := live.Val()
	if users == nil {
		users = []string{}
	}
	sort.Strings(users)
	return users, nil
}
