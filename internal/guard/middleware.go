package guard

import (
	"net/http"
	"time"

	"ucontents-console/internal/audit"
	"ucontents-console/internal/auth"
	"ucontents-console/internal/platform"
	"ucontents-console/internal/session"
	"ucontents-console/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	ctxStoreKey    = "session_store"
	ctxSnapshotKey = "session_snapshot"
)

// ResolveSession verifies the gateway cookie, initializes the matching
// session store and attaches the resolved snapshot to the request.
// It never denies by itself; RequireRoles and the API middleware decide.
//
// Because resolution happens on every request, a session cleared by
// logout denies the very next request on an open console page.
func ResolveSession(sessions *session.Manager, cookies *auth.Manager, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(cookieName)
		if err != nil || raw == "" {
			c.Set(ctxSnapshotKey, session.Session{})
			c.Next()
			return
		}

		claims, err := cookies.Verify(raw, time.Now())
		if err != nil {
			// Broken or expired cookie: treat as anonymous.
			c.Set(ctxSnapshotKey, session.Session{})
			c.Next()
			return
		}

		st := sessions.Get(claims.SessionID)
		if err := st.Initialize(c.Request.Context()); err != nil {
			// Client went away mid-validation; nothing to render.
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		snap := st.Snapshot()

		c.Set(ctxStoreKey, st)
		c.Set(ctxSnapshotKey, snap)

		if snap.Authenticated {
			ctx := auth.WithSessionID(c.Request.Context(), claims.SessionID)
			ctx = auth.WithCurrentUser(ctx, snap.User)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

// RequireRoles applies the guard decision to a console page route.
// Denied authenticated principals are recorded best-effort; auditSvc
// may be nil.
func RequireRoles(auditSvc *audit.Service, allowed ...platform.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := SnapshotFromGin(c)
		d := Decide(snap, allowed, c.Request.URL.RequestURI())
		if d.Allow {
			c.Next()
			return
		}
		if d.RedirectTo == "" {
			// Still loading; never content, never a redirect.
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		if auditSvc != nil && snap.Authenticated {
			sid, _ := auth.SessionID(c.Request.Context())
			if err := auditSvc.LogAccessDenied(c.Request.Context(), sid, snap.User.ID, string(snap.User.Role), c.ClientIP(), c.Request.URL.Path); err != nil {
				logger.FromGin(c).Warn("audit append failed", "err", err)
			}
		}
		c.Redirect(http.StatusFound, d.RedirectTo)
		c.Abort()
	}
}

// RequireAuthenticated is the JSON variant for API routes.
func RequireAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !SnapshotFromGin(c).Authenticated {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// SnapshotFromGin returns the resolved session snapshot, or a zero
// (anonymous, resolved) session when resolution never ran.
func SnapshotFromGin(c *gin.Context) session.Session {
	if v, ok := c.Get(ctxSnapshotKey); ok {
		if s, ok := v.(session.Session); ok {
			return s
		}
	}
	return session.Session{}
}

// StoreFromGin returns the session store for handlers that mutate the
// session (logout, refresh, token adoption).
func StoreFromGin(c *gin.Context) (*session.Store, bool) {
	if v, ok := c.Get(ctxStoreKey); ok {
		if st, ok := v.(*session.Store); ok && st != nil {
			return st, true
		}
	}
	return nil, false
}
