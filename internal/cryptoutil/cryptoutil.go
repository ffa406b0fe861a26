package cryptoutil

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"

	"github.com/pkg/errors"
)

// tokenByteLength is the entropy of every secret this service mints:
// authorization codes, access tokens and refresh tokens.
const tokenByteLength = 32

// RandomToken returns a URL-safe random string carrying tokenByteLength
// bytes of entropy.
func RandomToken() (string, error) {
	bytes := make([]byte, tokenByteLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", errors.Wrap(err, "[RandomToken] rand.Read")
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// HashToken returns the hex-encoded SHA-256 digest of a token. Only this
// digest is ever persisted, so a store compromise yields nothing usable.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// S256Challenge applies the PKCE S256 transform to a code verifier:
// SHA-256 followed by unpadded base64url encoding (RFC 7636).
func S256Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
