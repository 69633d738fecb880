package httpapi

import (
	"net/http"

	"ucontents-console/internal/guard"

	"github.com/gin-gonic/gin"
)

// Console surfaces. The gateway does not render HTML; these endpoints
// describe the surface the single-page client should mount, so the
// guard redirects have concrete targets during development and tests.

func (h Handlers) LoginPage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"page":     "login",
		"redirect": c.Query("redirect"),
		"error":    c.Query("error"),
	})
}

func (h Handlers) DashboardPage(c *gin.Context) {
	snap := guard.SnapshotFromGin(c)
	c.JSON(http.StatusOK, gin.H{"page": "dashboard", "user": snap.User})
}

func (h Handlers) AdminPage(c *gin.Context) {
	snap := guard.SnapshotFromGin(c)
	c.JSON(http.StatusOK, gin.H{"page": "admin", "user": snap.User})
}

func (h Handlers) VerifyEmailPage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"page": "verify-email"})
}
