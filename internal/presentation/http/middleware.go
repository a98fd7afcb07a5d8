package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/GabrielFerreiraTelles/comu/internal/auth"
	"github.com/GabrielFerreiraTelles/comu/internal/logger"
	"github.com/GabrielFerreiraTelles/comu/internal/metrics"
	"github.com/GabrielFerreiraTelles/comu/internal/models"
	"github.com/GabrielFerreiraTelles/comu/internal/ratelimit"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const sessionKey = "session"

// Limiter 令牌桶限流，ratelimit.TokenBucketLimiter 满足此接口
type Limiter interface {
	Allow(ctx context.Context, key string, ratePerSec, burst int) (bool, int64, error)
}

// BearerToken 从 Authorization 头或 token 查询参数取令牌
func BearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return c.Query("token")
}

// Authn 解析令牌为会话并放入上下文
func Authn(tokens *auth.TokenResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := tokens.Resolve(c.Request.Context(), BearerToken(c))
		if err != nil {
			fail(c, err)
			return
		}
		c.Set(sessionKey, sess)
		c.Next()
	}
}

// SessionFrom 取出 Authn 放入的会话，未认证时返回 nil
func SessionFrom(c *gin.Context) *auth.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*auth.Session)
	return sess
}

// RateLimit 按用户 + 动作限流，限流器出错时放行
func RateLimit(l Limiter, action string, qps, burst int) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := SessionFrom(c)
		if l == nil || sess == nil {
			c.Next()
			return
		}
		ok, _, err := l.Allow(c.Request.Context(), ratelimit.Key(sess.UserID, action), qps, burst)
		if err != nil {
			logger.L().Warn("rate limiter unavailable", zap.Error(err))
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorBody{Error: "too many requests", Code: "rate_limited"})
			return
		}
		c.Next()
	}
}

// ZapLogger 访问日志与请求计数
func ZapLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		logger.L().Info("http",
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
