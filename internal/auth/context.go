package auth

import (
	"context"
	"errors"

	"ucontents-console/internal/platform"
)

type ctxKey int

const (
	ctxSessionID ctxKey = iota
	ctxUser
)

func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, ctxSessionID, sessionID)
}

func WithCurrentUser(ctx context.Context, u platform.User) context.Context {
	return context.WithValue(ctx, ctxUser, u)
}

func SessionID(ctx context.Context) (string, error) {
	v := ctx.Value(ctxSessionID)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("session_id not in context")
}

func CurrentUser(ctx context.Context) (platform.User, error) {
	v := ctx.Value(ctxUser)
	if u, ok := v.(platform.User); ok && u.ID != "" {
		return u, nil
	}
	return platform.User{}, errors.New("user not in context")
}
