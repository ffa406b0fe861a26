package cryptoutil_test

import (
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/pollverse/connect/internal/cryptoutil"
	"github.com/stretchr/testify/require"
)

func TestRandomToken(t *testing.T) {
	t.Run("is URL-safe base64 of 32 bytes", func(t *testing.T) {
		token, err := cryptoutil.RandomToken()
		require.NoError(t, err)

		decoded, err := base64.RawURLEncoding.DecodeString(token)
		require.NoError(t, err)
		require.Len(t, decoded, 32)
	})

	t.Run("does not repeat", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 100; i++ {
			token, err := cryptoutil.RandomToken()
			require.NoError(t, err)
			require.False(t, seen[token])
			seen[token] = true
		}
	})
}

func TestHashToken(t *testing.T) {
	t.Run("hex-encoded sha256", func(t *testing.T) {
		// echo -n "hello" | sha256sum
		require.Equal(t,
			"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
			cryptoutil.HashToken("hello"))
	})

	t.Run("deterministic and decodable", func(t *testing.T) {
		h := cryptoutil.HashToken("some token")
		require.Equal(t, h, cryptoutil.HashToken("some token"))

		raw, err := hex.DecodeString(h)
		require.NoError(t, err)
		require.Len(t, raw, 32)
	})
}

func TestS256Challenge(t *testing.T) {
	t.Run("RFC 7636 appendix B vector", func(t *testing.T) {
		challenge := cryptoutil.S256Challenge("dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk")
		require.Equal(t, "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM", challenge)
	})

	t.Run("single-character change alters the challenge", func(t *testing.T) {
		require.NotEqual(t,
			cryptoutil.S256Challenge("dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"),
			cryptoutil.S256Challenge("dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXl"))
	})
}
