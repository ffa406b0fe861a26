package repofake

import (
	"context"
	"sync"
	"time"

	"github.com/pollverse/connect/token"
)

// FakeTokenRepo is a thread-safe in-memory implementation of token.Repo for
// tests.
type FakeTokenRepo struct {
	mu    sync.Mutex
	pairs map[string]*token.Pair // keyed by record id

	// InsertErr, when set, is returned by Insert to simulate a persistence
	// failure.
	InsertErr error
}

func NewFakeTokenRepo() *FakeTokenRepo {
	return &FakeTokenRepo{pairs: make(map[string]*token.Pair)}
}

func (f *FakeTokenRepo) Insert(ctx context.Context, pair *token.Pair) error {
	if f.InsertErr != nil {
		return f.InsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *pair
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	f.pairs[pair.ID] = &stored
	return nil
}

func (f *FakeTokenRepo) GetByRefreshHash(ctx context.Context, refreshHash string) (*token.Pair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, stored := range f.pairs {
		if stored.RefreshTokenHash == refreshHash {
			pair := *stored
			if stored.RevokedAt != nil {
				revokedAt := *stored.RevokedAt
				pair.RevokedAt = &revokedAt
			}
			return &pair, nil
		}
	}
	return nil, token.PairNotFoundErr
}

func (f *FakeTokenRepo) RotateAccessToken(ctx context.Context, id, accessHash string, accessExpiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.pairs[id]
	if !ok || stored.RevokedAt != nil {
		return token.PairNotFoundErr
	}
	stored.AccessTokenHash = accessHash
	stored.AccessExpiresAt = accessExpiresAt
	return nil
}

func (f *FakeTokenRepo) Revoke(ctx context.Context, id string, revokedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.pairs[id]
	if !ok || stored.RevokedAt != nil {
		return token.PairNotFoundErr
	}
	stored.RevokedAt = &revokedAt
	return nil
}

// Get returns a copy of a stored pair by record id, for test assertions.
func (f *FakeTokenRepo) Get(id string) (*token.Pair, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.pairs[id]
	if !ok {
		return nil, false
	}
	pair := *stored
	return &pair, true
}

// All returns copies of every stored pair.
func (f *FakeTokenRepo) All() []*token.Pair {
	f.mu.Lock()
	defer f.mu.Unlock()
	pairs := make([]*token.Pair, 0, len(f.pairs))
	for _, stored := range f.pairs {
		pair := *stored
		pairs = append(pairs, &pair)
	}
	return pairs
}
