package hmac

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerify(t *testing.T) {
	r, err := Sign("secret", WithPayload("user-1:stamp-a"))
	require.NoError(t, err)
	assert.NoError(t, Verify("secret", r.Signature, r.Timestamp, WithPayload("user-1:stamp-a")))
	assert.ErrorIs(t, Verify("secret", r.Signature, r.Timestamp, WithPayload("user-1:stamp-b")), ErrSignatureInvalid)
	assert.ErrorIs(t, Verify("other", r.Signature, r.Timestamp, WithPayload("user-1:stamp-a")), ErrSignatureInvalid)
}

func TestEmptySecret(t *testing.T) {
	_, err := Sign("")
	assert.ErrorIs(t, err, ErrEmptySecret)
	assert.ErrorIs(t, Verify("", "ab", 1), ErrEmptySecret)
}

func TestExpiration(t *testing.T) {
	now := time.Now()
	r, err := Sign("secret", WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	later := func() time.Time { return now.Add(25 * time.Hour) }
	assert.ErrorIs(t, Verify("secret", r.Signature, r.Timestamp, WithExpiration(24*time.Hour), WithClock(later)), ErrExpired)

	earlier := func() time.Time { return now.Add(-time.Minute) }
	assert.ErrorIs(t, Verify("secret", r.Signature, r.Timestamp, WithClock(earlier)), ErrFutureTimestamp)

	within := func() time.Time { return now.Add(23 * time.Hour) }
	assert.NoError(t, Verify("secret", r.Signature, r.Timestamp, WithExpiration(24*time.Hour), WithClock(within)))
}

func TestToken(t *testing.T) {
	r, err := Sign("secret", WithPayload("p"))
	require.NoError(t, err)

	token := r.Token()
	assert.NotContains(t, token, "=")
	assert.NotContains(t, token, "+")

	parsed, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, r, parsed)
	assert.NoError(t, VerifyToken("secret", token, WithPayload("p")))

	for _, bad := range []string{"", "!!!", "bm9kb3Q", "MC5hYg"} {
		_, err := ParseToken(bad)
		assert.ErrorIs(t, err, ErrMalformedToken, bad)
	}
	assert.ErrorIs(t, VerifyToken("secret", "zz", WithPayload("p")), ErrMalformedToken)
}
