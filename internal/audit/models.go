package audit

import "time"

// Event is an immutable, append-only auth audit record.
//
// Invariants:
// - Events are never updated or deleted.
// - Actor, session and ip capture are best-effort; never block an auth
//   flow on audit failures.
//
// Storage (Postgres): table auth_events with an INSERT-only policy.

type Event struct {
	ID string `json:"id" db:"id"`

	// Type indicates the auth flow that produced the record.
	Type EventType `json:"type" db:"type"`

	// ActorUserID is the platform user involved, when known.
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`

	// SessionID is the gateway session the event belongs to.
	SessionID string `json:"session_id,omitempty" db:"session_id"`

	// IPAddress should capture the original client IP when available.
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	// Provider is set for social-link events (tiktok, google, meta).
	Provider string `json:"provider,omitempty" db:"provider"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeLoginSuccess    EventType = "login_success"
	EventTypeLoginFailure    EventType = "login_failure"
	EventTypeSecondFactor    EventType = "second_factor_challenge"
	EventTypeLogout          EventType = "logout"
	EventTypeSocialLink      EventType = "social_link"
	EventTypeSocialLinkError EventType = "social_link_error"
	EventTypeAccessDenied    EventType = "access_denied"
)
