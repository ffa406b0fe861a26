package token

import (
	"context"
	"time"
)

// Pair is a persisted access/refresh token pair. Both tokens are opaque
// random strings; only their SHA-256 hashes are stored, and each hash is
// unique across all records.
type Pair struct {
	ID               string
	ClientID         string
	UserID           string
	Scope            string
	AccessTokenHash  string
	RefreshTokenHash string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	RevokedAt        *time.Time
	CreatedAt        time.Time
}

// Repo is the persistence boundary for token pairs.
type Repo interface {
	Insert(ctx context.Context, pair *Pair) error
	GetByRefreshHash(ctx context.Context, refreshHash string) (*Pair, error)

	// RotateAccessToken replaces the access token hash and expiry in place on
	// an existing record. The refresh token hash is left untouched.
	RotateAccessToken(ctx context.Context, id, accessHash string, accessExpiresAt time.Time) error

	// Revoke marks a pair unusable. Called by the account-management flow in
	// the main application, not by this service's endpoints.
	Revoke(ctx context.Context, id string, revokedAt time.Time) error
}
