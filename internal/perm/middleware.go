package perm

import (
	"net/http"

	"ucontents-console/internal/audit"
	"ucontents-console/internal/auth"
	"ucontents-console/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Middleware variants mirror the evaluator functions for API routes.
// Denial is a 403 JSON body; console page routes use the guard's
// redirect semantics instead. Denials are recorded best-effort;
// auditSvc may be nil.

func RequirePermission(auditSvc *audit.Service, required string) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := auth.CurrentUser(c.Request.Context())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if !HasPermission(u, required) {
			deny(c, auditSvc)
			return
		}
		c.Next()
	}
}

func RequireAnyPermission(auditSvc *audit.Service, required ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := auth.CurrentUser(c.Request.Context())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if !HasAnyPermission(u, required) {
			deny(c, auditSvc)
			return
		}
		c.Next()
	}
}

func RequireAllPermissions(auditSvc *audit.Service, required ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := auth.CurrentUser(c.Request.Context())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if !HasAllPermissions(u, required) {
			deny(c, auditSvc)
			return
		}
		c.Next()
	}
}

func deny(c *gin.Context, auditSvc *audit.Service) {
	if auditSvc != nil {
		u, _ := auth.CurrentUser(c.Request.Context())
		sid, _ := auth.SessionID(c.Request.Context())
		if err := auditSvc.LogAccessDenied(c.Request.Context(), sid, u.ID, string(u.Role), c.ClientIP(), c.Request.URL.Path); err != nil {
			logger.FromGin(c).Warn("audit append failed", "err", err)
		}
	}
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
}
