package auth

import "github.com/golang-jwt/jwt/v5"

// AuthMethod records how the session was established; persisted next to
// the platform token and echoed into the cookie claims.
type AuthMethod string

const (
	MethodPassword AuthMethod = "password"
	MethodSocial   AuthMethod = "social"
)

// Claims are the only supported cookie claims shape for the gateway.
// The cookie carries just a session handle; the opaque platform token
// and the user snapshot live server-side in the session store.
type Claims struct {
	jwt.RegisteredClaims

	SessionID  string     `json:"session_id"`
	AuthMethod AuthMethod `json:"auth_method"`
}
