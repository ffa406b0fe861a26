package repofake

import (
	"context"
	"sync"

	"github.com/pollverse/connect/sessions"
)

// FakeSessionRepo is a thread-safe in-memory implementation of
// sessions.Repo for tests.
type FakeSessionRepo struct {
	mu    sync.RWMutex
	users map[string]string // sessionID -> userID
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{users: make(map[string]string)}
}

// Add registers a logged-in session.
func (f *FakeSessionRepo) Add(sessionID, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[sessionID] = userID
}

func (f *FakeSessionRepo) UserID(ctx context.Context, sessionID string) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	userID, ok := f.users[sessionID]
	if !ok {
		return "", sessions.SessionNotFoundErr
	}
	return userID, nil
}
