package auth

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenGenerator_RandomToken(t *testing.T) {
	g := NewTokenGenerator(nil)

	token, err := g.RandomToken(SessionTokenBytes)
	require.NoError(t, err)
	assert.Len(t, token, 64)

	_, err = hex.DecodeString(token)
	assert.NoError(t, err)

	csrf, err := g.RandomToken(CSRFTokenBytes)
	require.NoError(t, err)
	assert.Len(t, csrf, 32)
}

func TestTokenGenerator_Digest(t *testing.T) {
	g := NewTokenGenerator(nil)

	assert.Equal(t,
		"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		g.Digest("abc"))
	assert.Equal(t, g.Digest("token"), g.Digest("token"))
	assert.NotEqual(t, g.Digest("token"), g.Digest("token2"))
}

func TestTokenGenerator_EntropyFailure(t *testing.T) {
	g := NewTokenGenerator(failingReader{})

	_, err := g.RandomToken(SessionTokenBytes)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEntropySource)
}
