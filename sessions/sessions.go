package sessions

import "context"

// Repo resolves the Pollverse session cookie to a user identity. Logins and
// the session lifecycle belong to the main application; this service only
// reads the store that application writes.
type Repo interface {
	// UserID returns the user a session belongs to, or SessionNotFoundErr
	// when the session is unknown or expired.
	UserID(ctx context.Context, sessionID string) (string, error)
}
