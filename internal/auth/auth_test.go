package auth

import (
	"context"
	"testing"
	"time"

	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRevoker struct{ revoked map[string]bool }

func (f *fakeRevoker) Revoke(_ context.Context, id string, _ time.Time) error {
	f.revoked[id] = true
	return nil
}

func (f *fakeRevoker) IsRevoked(_ context.Context, id string) (bool, error) {
	return f.revoked[id], nil
}

func TestSignAndParseJWT(t *testing.T) {
	tok, err := SignJWT("secret", "u1", time.Hour)
	require.NoError(t, err)

	cl, err := ParseJWT("secret", tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", cl.UserID)
	assert.NotEmpty(t, cl.ID)

	_, err = ParseJWT("other", tok)
	require.Error(t, err)
}

func TestParseExpiredJWT(t *testing.T) {
	tok, _, err := signClaims("secret", "u1", time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	_, err = ParseJWT("secret", tok)
	require.Error(t, err)
}

func TestSessionPrincipal(t *testing.T) {
	var nilSession *Session
	_, err := nilSession.Principal()
	require.ErrorIs(t, err, entities.ErrUnauthenticated)

	now := time.Unix(1000, 0)
	s := NewSession("u1", "t1", now.Add(time.Minute)).WithClock(func() time.Time { return now })
	id, err := s.Principal()
	require.NoError(t, err)
	assert.Equal(t, "u1", id)

	now = now.Add(2 * time.Minute)
	_, err = s.Principal()
	require.ErrorIs(t, err, entities.ErrUnauthenticated)
}

func TestSessionRevoke(t *testing.T) {
	s := NewSession("u1", "t1", time.Time{})
	require.True(t, s.Live())
	s.Revoke()
	_, err := s.Principal()
	require.ErrorIs(t, err, entities.ErrUnauthenticated)
}

func TestResolverHonoursRevocation(t *testing.T) {
	rev := &fakeRevoker{revoked: map[string]bool{}}
	r := &TokenResolver{Secret: "s", TTL: time.Hour, Revoker: rev}

	tok, sess, err := r.Issue("u1")
	require.NoError(t, err)

	got, err := r.Resolve(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, sess.TokenID, got.TokenID)

	require.NoError(t, rev.Revoke(context.Background(), sess.TokenID, sess.ExpiresAt))
	_, err = r.Resolve(context.Background(), tok)
	require.ErrorIs(t, err, entities.ErrUnauthenticated)
}

func TestBroker(t *testing.T) {
	b := NewBroker()
	var got []Event
	cancel := b.Subscribe(func(e Event) { got = append(got, e) })
	b.Publish(Event{Type: SignedIn, UserID: "u1"})
	cancel()
	b.Publish(Event{Type: SignedOut, UserID: "u1"})
	require.Len(t, got, 1)
	assert.Equal(t, SignedIn, got[0].Type)
}
