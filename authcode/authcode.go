package authcode

import (
	"context"
	"time"
)

// Code is a persisted authorization code record. The plaintext code is never
// stored; CodeHash is its SHA-256 digest and the only lookup key.
type Code struct {
	ID                  string
	CodeHash            string
	ClientID            string
	UserID              string
	RedirectURI         string
	Scope               string
	CodeChallenge       string
	CodeChallengeMethod string
	ExpiresAt           time.Time
	UsedAt              *time.Time
	CreatedAt           time.Time
}

// Repo is the persistence boundary for authorization codes.
type Repo interface {
	Insert(ctx context.Context, code *Code) error
	GetByHash(ctx context.Context, codeHash string) (*Code, error)

	// MarkUsed sets used_at on a code that has not been used yet and reports
	// whether this call won. The conditional write is the single-use
	// enforcement point: of N concurrent redemptions of one code exactly one
	// sees true.
	MarkUsed(ctx context.Context, codeHash string, usedAt time.Time) (bool, error)

	Delete(ctx context.Context, codeHash string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
