package main

import (
	"ucontents-console/internal/auth"
	"ucontents-console/internal/connect"
	"ucontents-console/internal/guard"
	"ucontents-console/internal/httpapi"
	"ucontents-console/internal/platform"
	"ucontents-console/internal/session"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, oauth *connect.Handlers, sessions *session.Manager, cookies *auth.Manager, cookieName string) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Every other route resolves the gateway cookie first; anonymous
	// requests pass through with an empty snapshot and the guards decide.
	r.Use(guard.ResolveSession(sessions, cookies, cookieName))

	// JSON API
	api := r.Group("/api")
	{
		api.POST("/login", h.Login)
		api.POST("/logout", h.Logout)
		api.GET("/me", guard.RequireAuthenticated(), h.Me)
		api.GET("/notifications", guard.RequireAuthenticated(), h.Notifications)
	}

	// OAuth account-linking callbacks. The wildcard carries the
	// provider path the platform redirected back with.
	r.GET("/connect/callback/*path", oauth.Callback)
	r.GET("/connect/authorized", oauth.Authorized)

	// Console surfaces
	r.GET("/login", h.LoginPage)
	r.GET("/verify-email", h.VerifyEmailPage)

	dashboard := r.Group("/dashboard")
	dashboard.Use(guard.RequireRoles(h.Audit, platform.RoleCustomer, platform.RoleAdmin, platform.RoleSuperAdmin))
	{
		dashboard.GET("", h.DashboardPage)
	}

	admin := r.Group("/admin")
	admin.Use(guard.RequireRoles(h.Audit, platform.RoleAdmin, platform.RoleSuperAdmin))
	{
		admin.GET("", h.AdminPage)
	}
}
