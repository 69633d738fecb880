package platform

import "time"

// Role is the coarse principal category assigned by the platform.
// It determines the default console landing page and the blanket
// permission override for super admins.
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

func IsSuperAdmin(role Role) bool { return role == RoleSuperAdmin }

func ValidRole(role Role) bool {
	switch role {
	case RoleCustomer, RoleAdmin, RoleSuperAdmin:
		return true
	default:
		return false
	}
}

// User is the authenticated principal as reported by GET /auth/me.
// Permissions arrive flattened (role + overrides); the console treats
// them as opaque strings and never assumes a closed catalog.
type User struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Role            Role       `json:"role"`
	Permissions     []string   `json:"permissions"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
}

func (u User) EmailVerified() bool { return u.EmailVerifiedAt != nil }

// Credentials are forwarded verbatim to POST /auth/login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is the outcome of a credential exchange. Either Token and
// User are set, or TwoFactorRequired is true and ChallengeToken carries
// the temporary second-factor handle.
type LoginResult struct {
	Token             string `json:"token"`
	User              User   `json:"user"`
	TwoFactorRequired bool   `json:"two_factor_required"`
	ChallengeToken    string `json:"challenge_token"`
}

// SocialExchange is the one-shot OAuth code exchange request.
type SocialExchange struct {
	Provider    string `json:"provider"`
	Code        string `json:"code"`
	State       string `json:"state"`
	RedirectURI string `json:"redirect_uri"`
}

// SocialExchangeResult carries the follow-up redirect target on success.
type SocialExchangeResult struct {
	RedirectURL string `json:"redirect_url"`
}

// Settings is the console-relevant slice of platform settings.
type Settings struct {
	RequireEmailVerification bool `json:"require_email_verification"`
}

// NotificationSummary is an idempotent snapshot of server-side
// notification state; concurrent refreshes are last-response-wins.
type NotificationSummary struct {
	Unread    int       `json:"unread"`
	FetchedAt time.Time `json:"fetched_at"`
}
