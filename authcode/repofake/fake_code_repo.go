package repofake

import (
	"context"
	"sync"
	"time"

	"github.com/pollverse/connect/authcode"
)

// FakeCodeRepo is a thread-safe in-memory implementation of authcode.Repo
// for tests. The single mutex gives MarkUsed the same check-and-set
// atomicity the Postgres repository gets from its conditional UPDATE.
type FakeCodeRepo struct {
	mu    sync.Mutex
	codes map[string]*authcode.Code

	// InsertErr, when set, is returned by Insert to simulate a persistence
	// failure.
	InsertErr error
}

func NewFakeCodeRepo() *FakeCodeRepo {
	return &FakeCodeRepo{codes: make(map[string]*authcode.Code)}
}

func (f *FakeCodeRepo) Insert(ctx context.Context, code *authcode.Code) error {
	if f.InsertErr != nil {
		return f.InsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *code
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	f.codes[code.CodeHash] = &stored
	return nil
}

func (f *FakeCodeRepo) GetByHash(ctx context.Context, codeHash string) (*authcode.Code, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.codes[codeHash]
	if !ok {
		return nil, authcode.CodeNotFoundErr
	}
	code := *stored
	if stored.UsedAt != nil {
		usedAt := *stored.UsedAt
		code.UsedAt = &usedAt
	}
	return &code, nil
}

func (f *FakeCodeRepo) MarkUsed(ctx context.Context, codeHash string, usedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.codes[codeHash]
	if !ok || stored.UsedAt != nil {
		return false, nil
	}
	stored.UsedAt = &usedAt
	return true, nil
}

func (f *FakeCodeRepo) Delete(ctx context.Context, codeHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.codes, codeHash)
	return nil
}

func (f *FakeCodeRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for hash, stored := range f.codes {
		if stored.ExpiresAt.Before(now) {
			delete(f.codes, hash)
			deleted++
		}
	}
	return deleted, nil
}

// Len reports how many code records are currently stored.
func (f *FakeCodeRepo) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.codes)
}
