package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)

	token, expiresAt, err := signer.Generate("grid-abc.pdf")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	path, _, err := signer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "grid-abc.pdf", path)
}

func TestSignedURLRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)

	token, _, err := signer.Generate("grid-abc.pdf")
	require.NoError(t, err)

	_, _, err = signer.Parse(token + "x")
	assert.Error(t, err)

	other := NewSignedURLSigner("other-secret", time.Minute)
	_, _, err = other.Parse(token)
	assert.Error(t, err)
}

func TestSignedURLExpires(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	signer.ttl = -time.Minute

	token, _, err := signer.Generate("grid-abc.csv")
	require.NoError(t, err)

	_, _, err = signer.Parse(token)
	assert.Error(t, err)
}
