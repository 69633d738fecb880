// Package guard gates console routes on the resolved session.
//
// The access decision is a pure function returning Allow or a redirect
// target; the middleware performs the actual navigation. Authorization
// failures are redirects, never rendered errors: unauthenticated
// visitors go to the login surface with the original path preserved,
// wrong-role visitors go to their role's landing page.
package guard

import (
	"net/url"

	"ucontents-console/internal/platform"
	"ucontents-console/internal/session"
)

const LoginPath = "/login"

// Decision is the tagged outcome of an access check: Allow, or a deny
// expressed as the redirect target. A zero Decision (deny without a
// target) means the session is still loading and nothing may be
// rendered or redirected yet.
type Decision struct {
	Allow      bool
	RedirectTo string
}

func Decide(sess session.Session, allowed []platform.Role, requestedPath string) Decision {
	if sess.Loading {
		return Decision{}
	}
	if !sess.Authenticated {
		return Decision{RedirectTo: LoginRedirect(requestedPath)}
	}
	for _, r := range allowed {
		if sess.User.Role == r {
			return Decision{Allow: true}
		}
	}
	// Wrong role: send to that role's own landing page, not to login.
	return Decision{RedirectTo: LandingPath(sess.User.Role)}
}

// LoginRedirect builds the login target carrying the originally
// requested path for post-login return.
func LoginRedirect(requestedPath string) string {
	if requestedPath == "" || requestedPath == LoginPath {
		return LoginPath
	}
	return LoginPath + "?redirect=" + url.QueryEscape(requestedPath)
}

// LandingPath is the role-appropriate default console page.
func LandingPath(role platform.Role) string {
	switch role {
	case platform.RoleAdmin, platform.RoleSuperAdmin:
		return "/admin"
	case platform.RoleCustomer:
		return "/dashboard"
	default:
		return LoginPath
	}
}
