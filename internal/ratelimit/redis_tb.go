// Package ratelimit 基于 Redis 的令牌桶，用于限制发送与冲刷频率。
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenBucketLimiter 基于 Redis 的令牌桶限流：
// - 两个键：tokensKey（令牌数）、tsKey（上次补充时间）
// - Lua 原子脚本：计算补充、扣减与过期
// - Allow 出错时放行，Redis 故障不影响离线发送
type TokenBucketLimiter struct {
	client *redis.Client
	now    func() time.Time
}

func NewTokenBucketLimiter(c *redis.Client) *TokenBucketLimiter {
	return &TokenBucketLimiter{client: c, now: time.Now}
}

// WithClock 替换时钟（测试用）
func (l *TokenBucketLimiter) WithClock(now func() time.Time) *TokenBucketLimiter {
	l.now = now
	return l
}

// Key 限流维度：用户 + 动作
func Key(userID, action string) string {
	return fmt.Sprintf("comu:rl:%s:%s", userID, action)
}

var luaScript = redis.NewScript(`
local tokens_key = KEYS[1]
local ts_key = KEYS[2]
local rate = tonumber(ARGV[1])        -- 每秒新增令牌
local burst = tonumber(ARGV[2])       -- 桶容量
local now_ms = tonumber(ARGV[3])      -- 当前时间毫秒
local ttl_ms = tonumber(ARGV[4])      -- 桶满所需时间

local tokens = tonumber(redis.call('GET', tokens_key))
if tokens == nil then tokens = burst end
local ts = tonumber(redis.call('GET', ts_key))
if ts == nil then ts = now_ms end

-- 补充令牌
local delta = math.max(0, now_ms - ts) / 1000.0
local add = delta * rate
local new_tokens = math.min(burst, tokens + add)

local allowed = 0
if new_tokens >= 1 then
  allowed = 1
  new_tokens = new_tokens - 1
end

redis.call('SET', tokens_key, new_tokens)
redis.call('SET', ts_key, now_ms)
redis.call('PEXPIRE', tokens_key, ttl_ms)
redis.call('PEXPIRE', ts_key, ttl_ms)

return {allowed, math.floor(new_tokens)}
`)

// Allow 尝试消耗一个令牌，返回 (allowed, remainingTokens)。
// ratePerSec 或 burst 非正时不限流。
func (l *TokenBucketLimiter) Allow(ctx context.Context, key string, ratePerSec, burst int) (bool, int64, error) {
	if ratePerSec <= 0 || burst <= 0 {
		return true, int64(burst), nil
	}
	// 键在桶重新装满后过期，空闲用户不占内存
	ttl := int64(math.Ceil(float64(burst)/float64(ratePerSec)*1000)) + 1000
	vals, err := luaScript.Run(ctx, l.client, []string{key + ":t", key + ":ts"}, ratePerSec, burst, l.now().UnixMilli(), ttl).Result()
	if err != nil {
		return true, 0, err // 出错时默认放行
	}
	arr := vals.([]interface{})
	allowed := arr[0].(int64) == 1
	rem := int64(0)
	switch v := arr[1].(type) {
	case int64:
		rem = v
	case float64:
		rem = int64(v)
	}
	return allowed, rem, nil
}
