package platform

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized covers 401s and success=false on token validation;
	// callers must treat the persisted token as dead.
	ErrUnauthorized = errors.New("platform: unauthorized")
)

// APIError is a non-success envelope or unexpected HTTP status from the
// platform. Message is safe to surface to the console user.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("platform: %s (status %d)", e.Message, e.Status)
	}
	return fmt.Sprintf("platform: request failed (status %d)", e.Status)
}

// Reason extracts a user-presentable failure message from an exchange or
// login error. Transport errors collapse to a generic message so internal
// details never reach the browser.
func Reason(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, ErrUnauthorized) {
		return "session is no longer valid"
	}
	return "request to the platform failed"
}
