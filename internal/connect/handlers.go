package connect

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ucontents-console/internal/audit"
	"ucontents-console/internal/auth"
	"ucontents-console/internal/guard"
	"ucontents-console/internal/platform"
	"ucontents-console/internal/session"
	"ucontents-console/pkg/logger"

	"github.com/gin-gonic/gin"
)

// State is the callback page lifecycle: loading until the exchange
// resolves, then done or error, both terminal. Cancelled marks a
// request whose client went away mid-exchange; its result is discarded.
type State string

const (
	StateDone      State = "done"
	StateError     State = "error"
	StateCancelled State = "cancelled"
)

const (
	msgMissingParams = "Missing code or state from OAuth redirect"
	msgInvalidPath   = "Invalid callback path"
)

// Result is the terminal outcome of one callback exchange.
type Result struct {
	State       State
	RedirectURL string
	Message     string
}

type Handlers struct {
	sessions *session.Manager
	cookies  *auth.Manager
	api      platform.API
	audit    *audit.Service

	cookieName   string
	cookieTTL    time.Duration
	cookieSecure bool
}

func NewHandlers(sessions *session.Manager, cookies *auth.Manager, api platform.API, auditSvc *audit.Service, cookieName string, cookieTTL time.Duration, cookieSecure bool) *Handlers {
	return &Handlers{
		sessions:     sessions,
		cookies:      cookies,
		api:          api,
		audit:        auditSvc,
		cookieName:   cookieName,
		cookieTTL:    cookieTTL,
		cookieSecure: cookieSecure,
	}
}

// exchange runs the callback state machine. Input errors (missing
// parameters, unmapped path) resolve locally with zero backend calls.
func (h *Handlers) exchange(ctx context.Context, token, path, code, state, redirectURI string) Result {
	if code == "" || state == "" {
		return Result{State: StateError, Message: msgMissingParams}
	}
	provider, ok := ProviderForPath(path)
	if !ok {
		return Result{State: StateError, Message: msgInvalidPath}
	}

	res, err := h.api.ExchangeSocial(ctx, token, platform.SocialExchange{
		Provider:    provider,
		Code:        code,
		State:       state,
		RedirectURI: redirectURI,
	})
	if ctx.Err() != nil {
		// The page is gone; no terminal state may be acted on.
		return Result{State: StateCancelled}
	}
	if err != nil {
		return Result{State: StateError, Message: platform.Reason(err)}
	}
	if res.RedirectURL == "" {
		return Result{State: StateError, Message: "exchange response missing redirect target"}
	}
	return Result{State: StateDone, RedirectURL: res.RedirectURL}
}

// Callback handles GET /connect/callback/*path: the code-exchange
// variant of the OAuth redirect.
func (h *Handlers) Callback(c *gin.Context) {
	snap := guard.SnapshotFromGin(c)
	if !snap.Authenticated {
		c.Redirect(http.StatusFound, guard.LoginRedirect(c.Request.URL.RequestURI()))
		return
	}

	sid, _ := auth.SessionID(c.Request.Context())
	path := c.Param("path")
	provider, _ := ProviderForPath(path)
	res := h.exchange(
		c.Request.Context(),
		snap.Token,
		path,
		c.Query("code"),
		c.Query("state"),
		h.redirectURI(c, path),
	)

	switch res.State {
	case StateCancelled:
		return
	case StateDone:
		// Linking may have changed permissions out of band; refresh the
		// snapshot before leaving the console.
		if st, ok := guard.StoreFromGin(c); ok {
			if err := st.RefreshUser(c.Request.Context()); err != nil {
				logger.FromGin(c).Warn("user refresh after link failed", "err", err)
			}
		}
		if err := h.audit.LogSocial(c.Request.Context(), audit.EventTypeSocialLink, sid, snap.User.ID, provider, c.ClientIP(), "social account linked"); err != nil {
			logger.FromGin(c).Warn("audit append failed", "err", err)
		}
		// External redirect: the target is the platform's own consent
		// completion and need not be same-origin.
		c.Redirect(http.StatusFound, res.RedirectURL)
	case StateError:
		if err := h.audit.LogSocial(c.Request.Context(), audit.EventTypeSocialLinkError, sid, snap.User.ID, provider, c.ClientIP(), res.Message); err != nil {
			logger.FromGin(c).Warn("audit append failed", "err", err)
		}
		c.JSON(http.StatusBadGateway, gin.H{"state": string(StateError), "message": res.Message})
	}
}

// Authorized handles GET /connect/authorized: the token variant of the
// callback, where the platform completed the OAuth flow server-side and
// hands the console an already-issued session token.
func (h *Handlers) Authorized(c *gin.Context) {
	if errParam := c.Query("error"); errParam != "" {
		c.Redirect(http.StatusFound, loginWithError(errParam))
		return
	}
	token := c.Query("token")
	if token == "" {
		c.Redirect(http.StatusFound, loginWithError("Missing token from OAuth redirect"))
		return
	}

	sessionID := session.NewSessionID()
	st := h.sessions.Get(sessionID)
	user, err := st.AdoptToken(c.Request.Context(), token, auth.MethodSocial)
	if err != nil {
		h.sessions.Dispose(sessionID)
		c.Redirect(http.StatusFound, loginWithError(platform.Reason(err)))
		return
	}

	cookie, err := h.cookies.Issue(time.Now(), sessionID, auth.MethodSocial)
	if err != nil {
		st.Logout(c.Request.Context())
		h.sessions.Dispose(sessionID)
		c.Redirect(http.StatusFound, loginWithError("could not establish session"))
		return
	}

	if err := h.audit.LogLogin(c.Request.Context(), audit.EventTypeLoginSuccess, sessionID, user.ID, string(user.Role), c.ClientIP(), "social sign-in"); err != nil {
		logger.FromGin(c).Warn("audit append failed", "err", err)
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, cookie, int(h.cookieTTL.Seconds()), "/", "", h.cookieSecure, true)
	c.Redirect(http.StatusFound, guard.LandingPath(user.Role))
}

func (h *Handlers) redirectURI(c *gin.Context, path string) string {
	scheme := "https"
	if c.Request.TLS == nil && !h.cookieSecure {
		scheme = "http"
	}
	return scheme + "://" + c.Request.Host + "/connect/callback/" + strings.Trim(path, "/")
}

func loginWithError(msg string) string {
	return guard.LoginPath + "?error=" + url.QueryEscape(msg)
}
