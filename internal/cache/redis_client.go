// Package cache 封装 Redis 上的短期状态：
// - 正在输入：comu:typing:<convId>（ZSET，score 为过期毫秒时间）
// - 未读计数：comu:unread:<userId>（HASH，field 为会话 ID）
// - 令牌吊销：comu:revoked:<tokenId>（带 PX 过期的字符串）
// - 提交通知：comu:deliver:<userId>（Pub/Sub 通道）
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewClient 创建 Redis 客户端
func NewClient(addr, pass string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: pass,
		DB:       db,
	})
}

// Ping 启动时探活
func Ping(ctx context.Context, c *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return c.Ping(ctx).Err()
}

func TypingKey(convID string) string      { return fmt.Sprintf("comu:typing:%s", convID) }
func UnreadKey(userID string) string      { return fmt.Sprintf("comu:unread:%s", userID) }
func RevokedKey(tokenID string) string    { return fmt.Sprintf("comu:revoked:%s", tokenID) }
func DeliverChannel(userID string) string { return fmt.Sprintf("comu:deliver:%s", userID) }
