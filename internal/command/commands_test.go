package command

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/GabrielFerreiraTelles/comu/internal/bootstrap"
	"github.com/GabrielFerreiraTelles/comu/internal/config"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
	"github.com/GabrielFerreiraTelles/comu/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	app   *bootstrap.App
	token string
	bobID string
	conv  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	cfg := config.Defaults()
	cfg.DocumentStore = "memory"
	cfg.PendingStore = "memory"
	cfg.MediaDir = t.TempDir()
	app, err := bootstrap.Build(ctx, cfg)
	require.NoError(t, err)

	_, err = app.Accounts.CreateAccount(ctx, "alice@example.com", "secret-pw", "Alice")
	require.NoError(t, err)
	bob, err := app.Accounts.CreateAccount(ctx, "bob@example.com", "secret-pw", "Bob")
	require.NoError(t, err)
	token, sess, _, err := app.Accounts.SignIn(ctx, "alice@example.com", "secret-pw")
	require.NoError(t, err)
	conv, err := app.Conversations.FindOrCreate(ctx, sess, bob.ID)
	require.NoError(t, err)
	return &fixture{app: app, token: token, bobID: bob.ID, conv: conv.ID}
}

// run 执行一次 chatctl，共享同一个内存应用
func (f *fixture) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCmd(func(context.Context, *config.Config) (*bootstrap.App, error) {
		return f.app, nil
	})
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestLoginPrintsToken(t *testing.T) {
	f := newFixture(t)

	out, _, err := f.run(t, "login", "alice@example.com", "secret-pw")
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(out))

	out, _, err = f.run(t, "login", "--json", "alice@example.com", "secret-pw")
	require.NoError(t, err)
	var resp models.SessionResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "alice@example.com", resp.User.Email)

	_, errOut, err := f.run(t, "login", "alice@example.com", "wrong")
	require.Error(t, err)
	assert.Contains(t, errOut, "Error:")
}

func TestSendFlushHistory(t *testing.T) {
	f := newFixture(t)

	out, _, err := f.run(t, "send", "--token", f.token, f.bobID, "hello", "bob")
	require.NoError(t, err)
	assert.Contains(t, out, "Queued ")

	out, _, err = f.run(t, "pending", "--token", f.token)
	require.NoError(t, err)
	assert.Contains(t, out, "hello bob")
	assert.Contains(t, out, "[pending]")

	out, _, err = f.run(t, "flush", "--token", f.token, "--json")
	require.NoError(t, err)
	var report models.PumpReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.SuccessCount)
	assert.Equal(t, 0, report.FailureCount)

	out, _, err = f.run(t, "pending", "--token", f.token)
	require.NoError(t, err)
	assert.Contains(t, out, "No messages")

	out, _, err = f.run(t, "history", "--token", f.token, "--json", f.conv)
	require.NoError(t, err)
	var msgs []*entities.Message
	require.NoError(t, json.Unmarshal([]byte(out), &msgs))
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Committed)

	out, _, err = f.run(t, "edit", "--token", f.token, msgs[0].ID, "hello", "again")
	require.NoError(t, err)
	assert.Contains(t, out, "hello again")
	assert.Contains(t, out, "[edited]")

	out, _, err = f.run(t, "conversations", "--token", f.token)
	require.NoError(t, err)
	assert.Contains(t, out, f.conv)

	_, _, err = f.run(t, "delete", "--token", f.token, msgs[0].ID)
	require.NoError(t, err)
	out, _, err = f.run(t, "history", "--token", f.token, f.conv)
	require.NoError(t, err)
	assert.Contains(t, out, "No messages")
}

func TestFlushReportsPerMessageFailures(t *testing.T) {
	f := newFixture(t)

	// 对方没有会话，投递逐条失败，消息留在队列
	ctx := context.Background()
	carol, err := f.app.Accounts.CreateAccount(ctx, "carol@example.com", "secret-pw", "Carol")
	require.NoError(t, err)
	_, _, err = f.run(t, "send", "--token", f.token, carol.ID, "hi")
	require.NoError(t, err)

	out, _, err := f.run(t, "flush", "--token", f.token)
	require.Error(t, err)
	assert.Contains(t, out, "failed 1")

	out, _, err = f.run(t, "pending", "--token", f.token)
	require.NoError(t, err)
	assert.Contains(t, out, "hi")
}

func TestWatchPrintsInitialSnapshot(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.run(t, "send", "--token", f.token, f.bobID, "queued")
	require.NoError(t, err)

	out, _, err := f.run(t, "watch", "--token", f.token, "--count", "1", f.conv)
	require.NoError(t, err)
	assert.Contains(t, out, "queued")
	assert.Contains(t, out, "[pending]")
}

func TestCommandsRequireSession(t *testing.T) {
	f := newFixture(t)
	t.Setenv("COMU_TOKEN", "")

	_, errOut, err := f.run(t, "pending")
	require.ErrorIs(t, err, entities.ErrUnauthenticated)
	assert.Contains(t, errOut, "chatctl login")

	t.Setenv("COMU_TOKEN", f.token)
	_, _, err = f.run(t, "pending")
	require.NoError(t, err)
}
