package guard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ucontents-console/internal/audit"
	"ucontents-console/internal/auth"
	"ucontents-console/internal/config"
	"ucontents-console/internal/platform"
	"ucontents-console/internal/session"

	"github.com/gin-gonic/gin"
)

func authed(role platform.Role) session.Session {
	return session.Session{
		Authenticated: true,
		User:          platform.User{ID: "u1", Role: role},
		Token:         "tok",
	}
}

func TestDecide_LoadingNeitherRendersNorRedirects(t *testing.T) {
	d := Decide(session.Session{Loading: true}, []platform.Role{platform.RoleCustomer}, "/dashboard")
	if d.Allow || d.RedirectTo != "" {
		t.Fatalf("expected zero decision while loading, got %+v", d)
	}
}

func TestDecide_UnauthenticatedRedirectsToLoginWithReturnPath(t *testing.T) {
	d := Decide(session.Session{}, []platform.Role{platform.RoleCustomer}, "/dashboard/media?page=2")
	if d.Allow {
		t.Fatalf("expected deny")
	}
	want := "/login?redirect=%2Fdashboard%2Fmedia%3Fpage%3D2"
	if d.RedirectTo != want {
		t.Fatalf("redirect = %q, want %q", d.RedirectTo, want)
	}
}

func TestDecide_WrongRoleRedirectsToLandingNotLogin(t *testing.T) {
	d := Decide(authed(platform.RoleCustomer), []platform.Role{platform.RoleAdmin, platform.RoleSuperAdmin}, "/admin")
	if d.Allow {
		t.Fatalf("expected deny")
	}
	if d.RedirectTo != "/dashboard" {
		t.Fatalf("expected customer landing page, got %q", d.RedirectTo)
	}

	d = Decide(authed(platform.RoleAdmin), []platform.Role{platform.RoleCustomer}, "/dashboard")
	if d.RedirectTo != "/admin" {
		t.Fatalf("expected admin landing page, got %q", d.RedirectTo)
	}
}

func TestDecide_AllowedRoleRenders(t *testing.T) {
	for _, role := range []platform.Role{platform.RoleAdmin, platform.RoleSuperAdmin} {
		d := Decide(authed(role), []platform.Role{platform.RoleAdmin, platform.RoleSuperAdmin}, "/admin")
		if !d.Allow {
			t.Fatalf("expected allow for %s", role)
		}
	}
}

func TestRequireRoles_RedirectsThroughMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/admin", func(c *gin.Context) {
		c.Set(ctxSnapshotKey, authed(platform.RoleCustomer))
		c.Next()
	}, RequireRoles(nil, platform.RoleAdmin, platform.RoleSuperAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/dashboard" {
		t.Fatalf("expected landing redirect, got %q", loc)
	}
}

func TestRequireRoles_DenialIsAudited(t *testing.T) {
	gin.SetMode(gin.TestMode)

	repo := audit.NewMemoryRepo()
	r := gin.New()
	r.GET("/admin", func(c *gin.Context) {
		c.Set(ctxSnapshotKey, authed(platform.RoleCustomer))
		c.Next()
	}, RequireRoles(audit.NewService(repo), platform.RoleAdmin, platform.RoleSuperAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	events := repo.Events()
	if len(events) != 1 || events[0].Type != audit.EventTypeAccessDenied {
		t.Fatalf("events = %+v, want one access_denied", events)
	}
	if events[0].ActorUserID != "u1" || events[0].ActorRole != string(platform.RoleCustomer) {
		t.Fatalf("unexpected actor on event: %+v", events[0])
	}
}

func TestRequireRoles_AnonymousGoesToLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/dashboard", RequireRoles(nil, platform.RoleCustomer), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/login?redirect=%2Fdashboard" {
		t.Fatalf("unexpected location %q", loc)
	}
}

type fakeAPI struct {
	user platform.User
}

func (f *fakeAPI) Login(ctx context.Context, creds platform.Credentials) (platform.LoginResult, error) {
	return platform.LoginResult{}, errors.New("not implemented")
}

func (f *fakeAPI) CurrentUser(ctx context.Context, token string) (platform.User, error) {
	if err := ctx.Err(); err != nil {
		return platform.User{}, err
	}
	return f.user, nil
}

func (f *fakeAPI) Logout(ctx context.Context, token string) error { return nil }

func (f *fakeAPI) ExchangeSocial(ctx context.Context, token string, req platform.SocialExchange) (platform.SocialExchangeResult, error) {
	return platform.SocialExchangeResult{}, errors.New("not implemented")
}

func (f *fakeAPI) ConsoleSettings(ctx context.Context) (platform.Settings, error) {
	return platform.Settings{}, errors.New("not implemented")
}

func (f *fakeAPI) UnreadNotifications(ctx context.Context, token string) (platform.NotificationSummary, error) {
	return platform.NotificationSummary{}, errors.New("not implemented")
}

func TestResolveSession_AbortedRequestDoesNotPoisonSession(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cookies, err := auth.NewManager(config.CookieConfig{Secret: "secret", TTL: time.Hour})
	if err != nil {
		t.Fatalf("cookie manager: %v", err)
	}
	tokens := session.NewMemoryTokenStore()
	if err := tokens.Save(context.Background(), "s1", session.PersistedToken{Token: "tok-1", Method: auth.MethodPassword}); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	sessions := session.NewManager(tokens, &fakeAPI{user: platform.User{ID: "u1", Role: platform.RoleCustomer}}, nil)

	r := gin.New()
	r.Use(ResolveSession(sessions, cookies, "uconsole_session"))
	r.GET("/api/me", RequireAuthenticated(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	cookie, err := cookies.Issue(time.Now(), "s1", auth.MethodPassword)
	if err != nil {
		t.Fatalf("issue cookie: %v", err)
	}

	// First request arrives already aborted by the client.
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil).WithContext(cancelled)
	req.AddCookie(&http.Cookie{Name: "uconsole_session", Value: cookie})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for aborted resolve, got %d", w.Code)
	}
	if _, err := tokens.Load(context.Background(), "s1"); err != nil {
		t.Fatalf("expected persisted token to survive the abort, got %v", err)
	}

	// The same session authenticates normally on the next request.
	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: "uconsole_session", Value: cookie})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 after retry, got %d", w.Code)
	}
}

func TestRequireAuthenticated_JSONDeny(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/api/me", RequireAuthenticated(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
