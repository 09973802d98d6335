package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndParse(t *testing.T) {
	s, err := NewSigner("secret", time.Hour)
	require.NoError(t, err)
	now := time.Now().UTC().Truncate(time.Second)
	s.now = func() time.Time { return now }

	tok, err := s.Sign("agent-a", "biz-1")
	require.NoError(t, err)

	claims, err := s.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "agent-a", claims.AgentID)
	assert.Equal(t, "biz-1", claims.BusinessID)
	assert.Equal(t, now.Add(time.Hour), claims.ExpiresAt)
}

func TestParseRejects(t *testing.T) {
	s, err := NewSigner("secret", time.Hour)
	require.NoError(t, err)
	other, err := NewSigner("another-secret", time.Hour)
	require.NoError(t, err)

	foreign, err := other.Sign("agent-a", "biz-1")
	require.NoError(t, err)
	_, err = s.Parse(foreign)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)

	expired, err := NewSigner("secret", time.Minute)
	require.NoError(t, err)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, err := expired.Sign("agent-a", "biz-1")
	require.NoError(t, err)
	_, err = s.Parse(old)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"agent_id": "a", "business_id": "b"})
	raw, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = s.Parse(raw)
	assert.Error(t, err)

	missing := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"agent_id": "a", "exp": time.Now().Add(time.Hour).Unix()})
	raw, err = missing.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = s.Parse(raw)
	assert.Error(t, err)

	_, err = s.Parse("garbage")
	assert.Error(t, err)
}

func TestSignerValidation(t *testing.T) {
	_, err := NewSigner("", time.Hour)
	assert.Error(t, err)

	s, err := NewSigner("secret", 0)
	require.NoError(t, err)
	assert.Equal(t, 12*time.Hour, s.ttl)

	_, err = s.Sign("", "biz")
	assert.Error(t, err)
}
