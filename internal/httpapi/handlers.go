package httpapi

import (
	"net/http"
	"time"

	"ucontents-console/internal/audit"
	"ucontents-console/internal/auth"
	"ucontents-console/internal/config"
	"ucontents-console/internal/guard"
	"ucontents-console/internal/notify"
	"ucontents-console/internal/platform"
	"ucontents-console/internal/session"
	"ucontents-console/internal/settings"
	"ucontents-console/pkg/logger"
	"ucontents-console/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Sessions *session.Manager
	Cookies  *auth.Manager
	Settings *settings.Service
	Notify   *notify.Service
	Audit    *audit.Service
	Redis    *redis.Client

	CookieCfg   config.CookieConfig
	ThrottleCfg config.ThrottleConfig
}

// --- Auth ---

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials with the platform and, on success,
// issues the signed gateway cookie. The JSON body tells the browser
// where to land; email verification may override the role landing page.
func (h Handlers) Login(c *gin.Context) {
	log := logger.FromGin(c)

	if h.Redis != nil && h.ThrottleCfg.LoginLimit > 0 {
		key := "uconsole:throttle:login:" + c.ClientIP()
		ok, err := utils.ThrottleAllow(c.Request.Context(), h.Redis, key, h.ThrottleCfg.LoginLimit, h.ThrottleCfg.LoginWindow)
		if err != nil {
			// Redis trouble should not lock everyone out.
			log.Warn("login throttle check failed", "err", err)
		} else if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many login attempts, try again later"})
			return
		}
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Email == "" || req.Password == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "email and password required"})
		return
	}

	sessionID := session.NewSessionID()
	st := h.Sessions.Get(sessionID)

	outcome, err := st.Login(c.Request.Context(), platform.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		h.Sessions.Dispose(sessionID)
		if auditErr := h.Audit.LogLogin(c.Request.Context(), audit.EventTypeLoginFailure, sessionID, "", "", c.ClientIP(), platform.Reason(err)); auditErr != nil {
			log.Warn("audit append failed", "err", auditErr)
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": platform.Reason(err)})
		return
	}

	if outcome.TwoFactorRequired {
		// Session stays unauthenticated; the browser presents the
		// second-factor form and retries with the challenge token.
		h.Sessions.Dispose(sessionID)
		if auditErr := h.Audit.LogLogin(c.Request.Context(), audit.EventTypeSecondFactor, sessionID, "", "", c.ClientIP(), "second factor required"); auditErr != nil {
			log.Warn("audit append failed", "err", auditErr)
		}
		c.JSON(http.StatusOK, gin.H{"two_factor_required": true, "challenge_token": outcome.ChallengeToken})
		return
	}

	cookie, err := h.Cookies.Issue(time.Now(), sessionID, auth.MethodPassword)
	if err != nil {
		st.Logout(c.Request.Context())
		h.Sessions.Dispose(sessionID)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "could not establish session"})
		return
	}

	if auditErr := h.Audit.LogLogin(c.Request.Context(), audit.EventTypeLoginSuccess, sessionID, outcome.User.ID, string(outcome.User.Role), c.ClientIP(), "password sign-in"); auditErr != nil {
		log.Warn("audit append failed", "err", auditErr)
	}

	redirect := guard.LandingPath(outcome.User.Role)
	if !outcome.User.EmailVerified() && h.Settings.EmailVerificationRequired(c.Request.Context()) {
		redirect = "/verify-email"
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.CookieCfg.Name, cookie, int(h.CookieCfg.TTL.Seconds()), "/", "", h.CookieCfg.Secure, true)
	c.JSON(http.StatusOK, gin.H{"user": outcome.User, "redirect": redirect})
}

// Logout tears down the gateway session. It never fails from the
// browser's point of view: the cookie is cleared even when the
// platform-side invalidation does not go through.
func (h Handlers) Logout(c *gin.Context) {
	if st, ok := guard.StoreFromGin(c); ok {
		snap := st.Snapshot()
		st.Logout(c.Request.Context())
		h.Sessions.Dispose(st.ID())
		if auditErr := h.Audit.LogLogin(c.Request.Context(), audit.EventTypeLogout, st.ID(), snap.User.ID, string(snap.User.Role), c.ClientIP(), "sign-out"); auditErr != nil {
			logger.FromGin(c).Warn("audit append failed", "err", auditErr)
		}
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.CookieCfg.Name, "", -1, "/", "", h.CookieCfg.Secure, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Me returns the resolved session user. Runs behind RequireAuthenticated.
func (h Handlers) Me(c *gin.Context) {
	snap := guard.SnapshotFromGin(c)
	c.JSON(http.StatusOK, gin.H{"user": snap.User, "auth_method": snap.Method})
}

// Notifications returns the unread summary for the session, served
// from the poller cache when fresh.
func (h Handlers) Notifications(c *gin.Context) {
	st, ok := guard.StoreFromGin(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	sum, err := h.Notify.Unread(c.Request.Context(), st)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": platform.Reason(err)})
		return
	}
	c.JSON(http.StatusOK, sum)
}
