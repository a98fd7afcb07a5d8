package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/GabrielFerreiraTelles/comu/internal/application/usecases"
	"github.com/GabrielFerreiraTelles/comu/internal/auth"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
	"github.com/GabrielFerreiraTelles/comu/internal/models"
	"github.com/GabrielFerreiraTelles/comu/internal/store/memstore"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	ctx    context.Context
	store  *memstore.Store
	tokens *auth.TokenResolver
	broker *auth.Broker
	outbox *usecases.Outbox
	url    string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s := memstore.New()
	typing := memstore.NewTyping(3*time.Second, nil)
	queue := usecases.NewPendingQueue(s.Pending())
	tokens := &auth.TokenResolver{Secret: "ws-secret", TTL: time.Hour}
	broker := auth.NewBroker()

	srv := NewServer(tokens, usecases.NewLiveFeed(s.Feed(), queue, typing), usecases.NewTyping(typing, s.Conversations()))
	t.Cleanup(srv.Attach(broker))
	r := gin.New()
	r.GET("/ws", srv.Handle)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)

	return &env{
		ctx:    context.Background(),
		store:  s,
		tokens: tokens,
		broker: broker,
		outbox: usecases.NewOutbox(queue, usecases.NewModeration(s.Users(), s.Blocks(), s.Attempts())),
		url:    "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws",
	}
}

func (e *env) user(t *testing.T, id, code string) (string, *auth.Session) {
	t.Helper()
	u, err := entities.NewUser(id, id+"@example.com", "hash", id, code, time.Now())
	require.NoError(t, err)
	require.NoError(t, e.store.Users().Create(e.ctx, u))
	tok, sess, err := e.tokens.Issue(id)
	require.NoError(t, err)
	return tok, sess
}

func dial(t *testing.T, url, token string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url+"?token="+token, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) models.Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var f models.Frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestWatchConversationPushesPendingAndSignOutCloses(t *testing.T) {
	e := newEnv(t)
	tok, sess := e.user(t, "alice", "ALICE001")
	e.user(t, "bob", "BOB00001")
	convID := entities.DeriveConversationID("alice", "bob")

	conn := dial(t, e.url, tok)
	require.NoError(t, conn.WriteJSON(map[string]any{
		"action": models.ActionWatchConversation,
		"data":   models.WatchPayload{ConversationID: convID},
	}))
	first := readFrame(t, conn)
	assert.Equal(t, models.FrameMessages, first.Type)
	assert.Empty(t, first.Messages)

	m, err := e.outbox.Compose(e.ctx, sess, usecases.ComposeRequest{ReceiverID: "bob", Content: "hi"})
	require.NoError(t, err)
	next := readFrame(t, conn)
	require.Len(t, next.Messages, 1)
	assert.Equal(t, m.ID, next.Messages[0].ID)
	assert.False(t, next.Messages[0].Committed)

	e.broker.Publish(auth.Event{Type: auth.SignedOut, UserID: "alice", TokenID: sess.TokenID})
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)
}

func TestUnknownActionAndBadToken(t *testing.T) {
	e := newEnv(t)
	tok, _ := e.user(t, "carol", "CAROL001")

	_, resp, err := websocket.DefaultDialer.Dial(e.url+"?token=nope", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)

	conn := dial(t, e.url, tok)
	require.NoError(t, conn.WriteJSON(map[string]any{"action": "dance"}))
	f := readFrame(t, conn)
	assert.Equal(t, models.FrameError, f.Type)
	assert.Equal(t, "unknown_action", f.Code)
}

func TestWatchConversationsList(t *testing.T) {
	e := newEnv(t)
	tok, _ := e.user(t, "dave", "DAVE0001")
	require.NoError(t, e.store.Conversations().Upsert(e.ctx, &entities.Conversation{
		ID:           entities.DeriveConversationID("dave", "erin"),
		Participants: []string{"dave", "erin"},
		LastActivity: 10,
	}))

	conn := dial(t, e.url, tok)
	require.NoError(t, conn.WriteJSON(map[string]any{"action": models.ActionWatchConversations}))
	f := readFrame(t, conn)
	assert.Equal(t, models.FrameConversations, f.Type)
	require.Len(t, f.Conversations, 1)
	assert.Equal(t, "dave_erin", f.Conversations[0].ID)
}
