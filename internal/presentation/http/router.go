// Package http gin 路由与处理器，JSON 接口，bearer JWT 认证。
package http

import (
	"net/http"

	"github.com/GabrielFerreiraTelles/comu/internal/application/usecases"
	"github.com/GabrielFerreiraTelles/comu/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers 路由依赖的用例集合
type Handlers struct {
	Tokens        *auth.TokenResolver
	Accounts      *usecases.Accounts
	Identity      *usecases.IdentityResolver
	Queue         *usecases.PendingQueue
	Outbox        *usecases.Outbox
	View          *usecases.MessageView
	Pump          *usecases.DeliveryPump
	Editor        *usecases.MessageEditor
	Conversations *usecases.Conversations
	Receipts      *usecases.Receipts
	Pins          *usecases.Pins
	Reactions     *usecases.Reactions
	Typing        *usecases.Typing
	Moderation    *usecases.Moderation
	Media         *usecases.Media

	Limiter   Limiter // 可为空
	SendQPS   int
	SendBurst int
}

// Options 路由选项
type Options struct {
	EnableMetrics bool
	MediaDir      string // 非空时在 /media 下提供本地媒体文件
}

// NewRouter 注册全部路由
func NewRouter(h *Handlers, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), ZapLogger())

	// 健康/指标
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	if opts.EnableMetrics {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	if opts.MediaDir != "" {
		r.Static("/media", opts.MediaDir)
	}

	api := r.Group("/api")
	api.POST("/accounts", h.createAccount)
	api.POST("/sessions", h.signIn)

	authed := api.Group("", Authn(h.Tokens))
	send := RateLimit(h.Limiter, "send", h.SendQPS, h.SendBurst)

	authed.DELETE("/sessions", h.signOut)
	authed.GET("/me", h.me)
	authed.PUT("/me/blocked-words", h.setBlockedWords)

	authed.POST("/conversations", h.startConversation)
	authed.GET("/conversations", h.listConversations)
	authed.GET("/conversations/:id", h.getConversation)
	authed.DELETE("/conversations/:id", h.deleteConversation)
	authed.GET("/conversations/:id/messages", h.conversationMessages)
	authed.POST("/conversations/:id/read", h.markConversationRead)
	authed.GET("/conversations/:id/pins", h.listPins)
	authed.POST("/conversations/:id/pins/:msgId", h.pin)
	authed.DELETE("/conversations/:id/pins/:msgId", h.unpin)
	authed.POST("/conversations/:id/typing", h.setTyping)

	authed.POST("/pending", send, h.compose)
	authed.GET("/pending", h.listPending)
	authed.DELETE("/pending/:id", h.cancelPending)
	authed.POST("/pending/flush", RateLimit(h.Limiter, "flush", h.SendQPS, h.SendBurst), h.flush)

	authed.PATCH("/messages/:id", h.editMessage)
	authed.DELETE("/messages/:id", h.deleteMessage)
	authed.PUT("/messages/:id/reactions", h.addReaction)
	authed.DELETE("/messages/:id/reactions", h.removeReaction)
	authed.POST("/messages/:id/read", h.markRead)

	authed.POST("/media", send, h.upload)

	authed.GET("/blocks", h.listBlocks)
	authed.POST("/blocks/:userId", h.block)
	authed.DELETE("/blocks/:userId", h.unblock)
	authed.GET("/blocked-attempts", h.listAttempts)
	authed.POST("/blocked-attempts/:id", h.resolveAttempt)

	return r
}
