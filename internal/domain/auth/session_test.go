package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := NewSession(CreateSessionParams{UserID: "u1", TTL: time.Hour})
	assert.ErrorIs(t, err, ErrTokenRequired)
	_, err = NewSession(CreateSessionParams{Token: "t", TTL: time.Hour})
	assert.ErrorIs(t, err, ErrUserRequired)
	_, err = NewSession(CreateSessionParams{Token: "t", UserID: "u1"})
	assert.ErrorIs(t, err, ErrTTLInvalid)

	session, err := NewSession(CreateSessionParams{Token: " t ", UserID: "u1", TTL: time.Hour, Now: now})
	require.NoError(t, err)
	assert.Equal(t, Token("t"), session.Token)
	assert.Equal(t, now.Add(time.Hour), session.ExpiresAt)
	assert.False(t, session.Expired(now.Add(59*time.Minute)))
	assert.True(t, session.Expired(now.Add(time.Hour)))
	assert.Equal(t, 30*time.Minute, session.TTL(now.Add(30*time.Minute)))
	assert.Zero(t, session.TTL(now.Add(2*time.Hour)))
}
