package bootstrap

import (
	"context"
	"testing"

	"github.com/GabrielFerreiraTelles/comu/internal/application/usecases"
	"github.com/GabrielFerreiraTelles/comu/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig(t *testing.T) *config.Config {
	cfg := config.Defaults()
	cfg.DocumentStore = "memory"
	cfg.PendingStore = "pebble"
	cfg.OutboxDir = t.TempDir()
	cfg.MediaDir = t.TempDir()
	return cfg
}

func TestBuildInMemoryWithPebbleOutbox(t *testing.T) {
	ctx := context.Background()
	app, err := Build(ctx, memoryConfig(t))
	require.NoError(t, err)
	defer app.Close()

	_, err = app.Accounts.CreateAccount(ctx, "alice@example.com", "secret-pw", "Alice")
	require.NoError(t, err)
	bob, err := app.Accounts.CreateAccount(ctx, "bob@example.com", "secret-pw", "Bob")
	require.NoError(t, err)
	_, sess, _, err := app.Accounts.SignIn(ctx, "alice@example.com", "secret-pw")
	require.NoError(t, err)

	conv, err := app.Conversations.FindOrCreate(ctx, sess, bob.ID)
	require.NoError(t, err)
	_, err = app.Outbox.Compose(ctx, sess, usecases.ComposeRequest{ReceiverID: bob.ID, Content: "hello"})
	require.NoError(t, err)

	report, err := app.Pump.Drain(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, 1, report.SuccessCount)

	msgs, err := app.View.Conversation(ctx, sess, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Committed)

	h := app.Handlers()
	assert.Nil(t, h.Limiter)
	assert.Equal(t, 20, h.SendQPS)
	require.NoError(t, app.Close())
	require.NoError(t, app.Close())
}

func TestBuildRejectsUnknownStores(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.PendingStore = "floppy"
	_, err := Build(context.Background(), cfg)
	assert.Error(t, err)

	cfg = memoryConfig(t)
	cfg.PendingStore = "mongodb"
	_, err = Build(context.Background(), cfg)
	assert.Error(t, err)
}

