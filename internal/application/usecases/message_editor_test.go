package usecases

import (
	"testing"
	"time"

	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEditPendingAndCommitted(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "ALICE001")
	bob := f.user(t, "bob", "BOB00001")
	_, err := f.convs.FindOrCreate(f.ctx, alice, "bob")
	require.NoError(t, err)

	pending := f.send(t, alice, "bob", "draft")
	got, err := f.editor.Edit(f.ctx, alice, pending.ID, "draft v2")
	require.NoError(t, err)
	assert.True(t, got.Edited)
	stored, err := f.queue.Get(f.ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, "draft v2", stored.Content)

	_, err = f.pump.Drain(f.ctx, alice)
	require.NoError(t, err)

	tests := []struct {
		name    string
		advance time.Duration
		wantErr error
	}{
		{"inside window", 179 * time.Second, nil},
		{"after window", 2 * time.Second, entities.ErrEditWindowExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.clock.Advance(tt.advance)
			_, err := f.editor.Edit(f.ctx, alice, pending.ID, "final "+tt.name)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, entities.ErrPermissionDenied)
		})
	}

	_, err = f.editor.Edit(f.ctx, bob, pending.ID, "not yours")
	assert.ErrorIs(t, err, entities.ErrPermissionDenied)

	msg, err := f.store.Messages().Get(f.ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, "final inside window", msg.Content)
	assert.True(t, msg.Edited)
}

func TestEditUnknownMessage(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "ALICE001")
	_, err := f.editor.Edit(f.ctx, alice, "nope", "x")
	assert.ErrorIs(t, err, entities.ErrNotFound)
	assert.ErrorIs(t, f.editor.Delete(f.ctx, alice, "nope"), entities.ErrNotFound)
	_, err = f.editor.Edit(f.ctx, alice, "nope", "  ")
	assert.ErrorIs(t, err, entities.ErrInvalidArgument)
}

func TestDeletePendingMessage(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "ALICE001")
	bob := f.user(t, "bob", "BOB00001")
	m := f.send(t, alice, "bob", "oops")

	assert.ErrorIs(t, f.editor.Delete(f.ctx, bob, m.ID), entities.ErrPermissionDenied)
	require.NoError(t, f.editor.Delete(f.ctx, alice, m.ID))
	assert.Empty(t, f.pendingIDs(t, "alice"))
}

func TestDeleteCommittedRecomputesSnapshotAndPins(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "ALICE001")
	f.user(t, "bob", "BOB00001")
	conv, err := f.convs.FindOrCreate(f.ctx, alice, "bob")
	require.NoError(t, err)
	first := f.send(t, alice, "bob", "first")
	last := f.send(t, alice, "bob", "last")
	_, err = f.pump.Drain(f.ctx, alice)
	require.NoError(t, err)
	require.NoError(t, f.pins.Pin(f.ctx, alice, conv.ID, last.ID))

	require.NoError(t, f.editor.Delete(f.ctx, alice, last.ID))

	_, err = f.store.Messages().Get(f.ctx, last.ID)
	assert.ErrorIs(t, err, entities.ErrNotFound)
	stored, err := f.store.Conversations().Get(f.ctx, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.PinnedMessages)
	require.NotNil(t, stored.LastMessage)
	assert.Equal(t, first.ID, stored.LastMessage.ID)

	f.clock.Advance(entities.EditWindow + time.Second)
	assert.ErrorIs(t, f.editor.Delete(f.ctx, alice, first.ID), entities.ErrEditWindowExpired)
}
