// Package ws 提供 WebSocket 实时推送网关：认证、连接生命周期、上行动作（订阅/退订/正在输入）与下行帧。
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/GabrielFerreiraTelles/comu/internal/application/usecases"
	"github.com/GabrielFerreiraTelles/comu/internal/auth"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
	"github.com/GabrielFerreiraTelles/comu/internal/logger"
	"github.com/GabrielFerreiraTelles/comu/internal/metrics"
	"github.com/GabrielFerreiraTelles/comu/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

// Server 是 WebSocket 网关服务。
// - 每个连接使用单独的写锁，订阅回调与上行应答可能并发写
// - 登出事件到达时关闭持有该令牌的全部连接
type Server struct {
	Tokens *auth.TokenResolver
	Feed   *usecases.LiveFeed
	Typing *usecases.Typing

	mu    sync.Mutex
	conns map[*client]struct{}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func NewServer(tokens *auth.TokenResolver, feed *usecases.LiveFeed, typing *usecases.Typing) *Server {
	return &Server{Tokens: tokens, Feed: feed, Typing: typing, conns: map[*client]struct{}{}}
}

// Attach 订阅身份事件，返回取消函数
func (s *Server) Attach(b *auth.Broker) func() {
	return b.Subscribe(func(e auth.Event) {
		if e.Type == auth.SignedOut {
			s.closeSessions(e.UserID, e.TokenID)
		}
	})
}

type client struct {
	conn    *websocket.Conn
	sess    *auth.Session
	writeMu sync.Mutex

	mu      sync.Mutex
	watches map[string]usecases.Unsubscribe // convID -> 取消
	list    usecases.Unsubscribe
}

func (cl *client) write(f models.Frame) {
	cl.writeMu.Lock()
	defer cl.writeMu.Unlock()
	_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := cl.conn.WriteJSON(f); err != nil {
		logger.L().Debug("ws write failed", zap.String("uid", cl.sess.UserID), zap.Error(err))
	}
}

func (cl *client) writeError(err error, code string) {
	cl.write(models.Frame{Type: models.FrameError, Error: err.Error(), Code: code})
}

// 关闭全部订阅，连接退出时调用
func (cl *client) stopAll() {
	cl.mu.Lock()
	watches, list := cl.watches, cl.list
	cl.watches, cl.list = map[string]usecases.Unsubscribe{}, nil
	cl.mu.Unlock()
	for _, stop := range watches {
		stop()
	}
	if list != nil {
		list()
	}
}

// Handle 处理 HTTP 升级为 WebSocket，以及该连接的读循环。
// 认证：支持 URL 查询参数 token 或 Authorization: Bearer
func (s *Server) Handle(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		if h := c.GetHeader("Authorization"); len(h) > 7 && h[:7] == "Bearer " {
			token = h[7:]
		}
	}
	sess, err := s.Tokens.Resolve(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorBody{Error: err.Error(), Code: "unauthenticated"})
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	cl := &client{conn: conn, sess: sess, watches: map[string]usecases.Unsubscribe{}}
	s.register(cl)
	logger.L().Info("ws connected", zap.String("uid", sess.UserID))
	defer func() {
		cancel()
		s.unregister(cl)
		cl.stopAll()
		conn.Close()
		logger.L().Info("ws disconnected", zap.String("uid", sess.UserID))
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		var m models.WSMessage
		if err := json.Unmarshal(data, &m); err != nil {
			cl.writeError(err, "invalid_argument")
			continue
		}
		metrics.WSMessagesTotal.WithLabelValues(m.Action).Inc()
		if !sess.Live() {
			cl.writeError(entities.ErrUnauthenticated, "unauthenticated")
			return
		}
		s.handleInbound(ctx, cl, &m)
	}
}

// handleInbound 上行动作分发：
// - watch_conversation / unwatch_conversation：单个会话的合并消息流
// - watch_conversations：会话列表流
// - typing：正在输入
func (s *Server) handleInbound(ctx context.Context, cl *client, m *models.WSMessage) {
	switch m.Action {
	case models.ActionWatchConversation:
		var p models.WatchPayload
		if err := json.Unmarshal(m.Data, &p); err != nil || p.ConversationID == "" {
			cl.writeError(entities.ErrInvalidArgument, "invalid_argument")
			return
		}
		cl.mu.Lock()
		_, exists := cl.watches[p.ConversationID]
		cl.mu.Unlock()
		if exists {
			return
		}
		convID := p.ConversationID
		stop, err := s.Feed.WatchConversation(ctx, cl.sess, convID, func(msgs []*entities.Message) {
			cl.write(models.Frame{Type: models.FrameMessages, ConversationID: convID, Messages: msgs})
		})
		if err != nil {
			cl.writeError(err, "unavailable")
			return
		}
		cl.mu.Lock()
		cl.watches[convID] = stop
		cl.mu.Unlock()
	case models.ActionUnwatchConversation:
		var p models.WatchPayload
		if err := json.Unmarshal(m.Data, &p); err != nil {
			cl.writeError(entities.ErrInvalidArgument, "invalid_argument")
			return
		}
		cl.mu.Lock()
		stop := cl.watches[p.ConversationID]
		delete(cl.watches, p.ConversationID)
		cl.mu.Unlock()
		if stop != nil {
			stop()
		}
	case models.ActionWatchConversations:
		cl.mu.Lock()
		exists := cl.list != nil
		cl.mu.Unlock()
		if exists {
			return
		}
		stop, err := s.Feed.WatchConversations(ctx, cl.sess, func(list []*entities.Conversation) {
			cl.write(models.Frame{Type: models.FrameConversations, Conversations: list})
		})
		if err != nil {
			cl.writeError(err, "unavailable")
			return
		}
		cl.mu.Lock()
		cl.list = stop
		cl.mu.Unlock()
	case models.ActionTyping:
		var p models.TypingPayload
		if err := json.Unmarshal(m.Data, &p); err != nil {
			cl.writeError(entities.ErrInvalidArgument, "invalid_argument")
			return
		}
		if err := s.Typing.Set(ctx, cl.sess, p.ConversationID, p.Typing); err != nil {
			cl.writeError(err, "permission_denied")
		}
	default:
		cl.writeError(entities.ErrInvalidArgument, "unknown_action")
	}
}

func (s *Server) register(cl *client) {
	s.mu.Lock()
	s.conns[cl] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) unregister(cl *client) {
	s.mu.Lock()
	delete(s.conns, cl)
	s.mu.Unlock()
}

// closeSessions 关闭已登出令牌的连接；tokenID 为空时关闭该用户全部连接
func (s *Server) closeSessions(userID, tokenID string) {
	s.mu.Lock()
	var targets []*client
	for cl := range s.conns {
		if cl.sess.UserID == userID && (tokenID == "" || cl.sess.TokenID == tokenID) {
			targets = append(targets, cl)
		}
	}
	s.mu.Unlock()
	for _, cl := range targets {
		cl.sess.Revoke()
		cl.writeMu.Lock()
		_ = cl.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "signed out"), time.Now().Add(time.Second))
		cl.writeMu.Unlock()
		// 读循环随之退出并清理订阅
		cl.conn.Close()
	}
}
