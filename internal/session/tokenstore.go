package session

import (
	"context"
	"errors"

	"ucontents-console/internal/auth"
)

// PersistedToken is the only durable per-session state: the opaque
// platform token plus the method it was obtained with. It is read at
// initialize and written/cleared only by login, token adoption, and
// logout.
type PersistedToken struct {
	Token  string
	Method auth.AuthMethod
}

var ErrNoToken = errors.New("session: no persisted token")

// TokenStore is the durable storage contract for persisted tokens,
// keyed by the gateway session ID.
type TokenStore interface {
	Load(ctx context.Context, sessionID string) (PersistedToken, error)
	Save(ctx context.Context, sessionID string, t PersistedToken) error
	Clear(ctx context.Context, sessionID string) error
}
