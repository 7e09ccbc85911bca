package id

import (
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	a, b := Generate(), Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestHex(t *testing.T) {
	h := Hex()
	assert.Len(t, h, 32)
	_, err := hex.DecodeString(h)
	assert.NoError(t, err)
	assert.NotEqual(t, h, Hex())
}

func TestToken(t *testing.T) {
	tok, err := Token(64)
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(tok)
	require.NoError(t, err)
	assert.Len(t, raw, 64)

	other, err := Token(64)
	require.NoError(t, err)
	assert.NotEqual(t, tok, other)
}
