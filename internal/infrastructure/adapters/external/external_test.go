package external

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestUserCodeAlphabet(t *testing.T) {
	g := NewIDGeneratorAdapter()
	re := regexp.MustCompile(`^[A-Z0-9]{8}$`)
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		code := g.GenerateUserCode()
		require.Regexp(t, re, code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 190)
	assert.NotEqual(t, g.GenerateMessageID(), g.GenerateMessageID())
}

func TestPasswordRoundTrip(t *testing.T) {
	p := NewPasswordServiceWithCost(bcrypt.MinCost)
	hash, err := p.HashPassword("s3cret!")
	require.NoError(t, err)
	assert.True(t, p.VerifyPassword(hash, "s3cret!"))
	assert.False(t, p.VerifyPassword(hash, "wrong"))
}
