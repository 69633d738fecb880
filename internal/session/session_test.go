package session

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"ucontents-console/internal/auth"
	"ucontents-console/internal/platform"
)

// fakeAPI implements platform.API with programmable results and call
// counting, so tests can assert on exactly how many backend calls a
// flow issues.
type fakeAPI struct {
	mu sync.Mutex

	loginResult platform.LoginResult
	loginErr    error
	user        platform.User
	userErr     error
	logoutErr   error

	loginCalls  atomic.Int64
	userCalls   atomic.Int64
	logoutCalls atomic.Int64

	// userGate, when set, blocks CurrentUser until released.
	userGate chan struct{}
}

func (f *fakeAPI) Login(ctx context.Context, creds platform.Credentials) (platform.LoginResult, error) {
	f.loginCalls.Add(1)
	return f.loginResult, f.loginErr
}

func (f *fakeAPI) CurrentUser(ctx context.Context, token string) (platform.User, error) {
	f.userCalls.Add(1)
	if f.userGate != nil {
		select {
		case <-f.userGate:
		case <-ctx.Done():
			return platform.User{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user, f.userErr
}

func (f *fakeAPI) Logout(ctx context.Context, token string) error {
	f.logoutCalls.Add(1)
	return f.logoutErr
}

func (f *fakeAPI) ExchangeSocial(ctx context.Context, token string, req platform.SocialExchange) (platform.SocialExchangeResult, error) {
	return platform.SocialExchangeResult{}, errors.New("not implemented")
}

func (f *fakeAPI) ConsoleSettings(ctx context.Context) (platform.Settings, error) {
	return platform.Settings{}, errors.New("not implemented")
}

func (f *fakeAPI) UnreadNotifications(ctx context.Context, token string) (platform.NotificationSummary, error) {
	return platform.NotificationSummary{}, errors.New("not implemented")
}

func testUser() platform.User {
	return platform.User{ID: "u1", Name: "Ada", Email: "ada@x.test", Role: platform.RoleCustomer, Permissions: []string{"media.view"}}
}

func TestInitialize_NoPersistedToken(t *testing.T) {
	api := &fakeAPI{}
	st := NewStore("s1", NewMemoryTokenStore(), api, nil)

	if !st.Snapshot().Loading {
		t.Fatalf("expected loading before initialize")
	}
	if err := st.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	snap := st.Snapshot()
	if snap.Loading || snap.Authenticated {
		t.Fatalf("expected resolved unauthenticated, got %+v", snap)
	}
	if api.userCalls.Load() != 0 {
		t.Fatalf("expected zero backend calls, got %d", api.userCalls.Load())
	}
}

func TestInitialize_ValidTokenAuthenticates(t *testing.T) {
	api := &fakeAPI{user: testUser()}
	tokens := NewMemoryTokenStore()
	_ = tokens.Save(context.Background(), "s1", PersistedToken{Token: "tok-1", Method: auth.MethodPassword})

	st := NewStore("s1", tokens, api, nil)
	if err := st.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	snap := st.Snapshot()
	if !snap.Authenticated || snap.User.ID != "u1" || snap.Token != "tok-1" {
		t.Fatalf("expected authenticated session, got %+v", snap)
	}
	if snap.Method != auth.MethodPassword {
		t.Fatalf("expected auth method preserved, got %q", snap.Method)
	}
}

func TestInitialize_RejectedTokenIsCleared(t *testing.T) {
	api := &fakeAPI{userErr: platform.ErrUnauthorized}
	tokens := NewMemoryTokenStore()
	_ = tokens.Save(context.Background(), "s1", PersistedToken{Token: "dead", Method: auth.MethodPassword})

	st := NewStore("s1", tokens, api, nil)
	if err := st.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	if st.Snapshot().Authenticated {
		t.Fatalf("expected unauthenticated session")
	}
	if _, err := tokens.Load(context.Background(), "s1"); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected persisted token cleared, got %v", err)
	}
}

func TestInitialize_CancelledRequestKeepsTokenAndSession(t *testing.T) {
	gate := make(chan struct{})
	api := &fakeAPI{user: testUser(), userGate: gate}
	tokens := NewMemoryTokenStore()
	_ = tokens.Save(context.Background(), "s1", PersistedToken{Token: "tok-1", Method: auth.MethodPassword})

	st := NewStore("s1", tokens, api, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- st.Initialize(ctx) }()

	// Abort the request while validation is still in flight.
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("initialize: got %v, want context.Canceled", err)
	}

	if !st.Snapshot().Loading {
		t.Fatalf("expected session to stay loading after a cancelled initialize")
	}
	if _, err := tokens.Load(context.Background(), "s1"); err != nil {
		t.Fatalf("expected persisted token to survive cancellation, got %v", err)
	}

	// The next request resolves normally.
	close(gate)
	if err := st.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize retry: %v", err)
	}
	snap := st.Snapshot()
	if !snap.Authenticated || snap.User.ID != "u1" {
		t.Fatalf("expected authenticated session after retry, got %+v", snap)
	}
}

func TestInitialize_WaiterRetriesAfterCancelledResolver(t *testing.T) {
	gate := make(chan struct{})
	api := &fakeAPI{user: testUser(), userGate: gate}
	tokens := NewMemoryTokenStore()
	_ = tokens.Save(context.Background(), "s1", PersistedToken{Token: "tok-1", Method: auth.MethodPassword})

	st := NewStore("s1", tokens, api, nil)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() { first <- st.Initialize(ctx) }()

	// Second caller with a live context piles onto the in-flight channel.
	second := make(chan error, 1)
	go func() { second <- st.Initialize(context.Background()) }()

	cancel()
	if err := <-first; !errors.Is(err, context.Canceled) {
		t.Fatalf("first initialize: got %v, want context.Canceled", err)
	}

	close(gate)
	if err := <-second; err != nil {
		t.Fatalf("second initialize: %v", err)
	}
	if !st.Snapshot().Authenticated {
		t.Fatalf("expected the surviving caller to resolve the session")
	}
}

func TestInitialize_ConcurrentCallsShareOneValidation(t *testing.T) {
	gate := make(chan struct{})
	api := &fakeAPI{user: testUser(), userGate: gate}
	tokens := NewMemoryTokenStore()
	_ = tokens.Save(context.Background(), "s1", PersistedToken{Token: "tok-1", Method: auth.MethodPassword})

	st := NewStore("s1", tokens, api, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = st.Initialize(context.Background())
		}()
	}

	// Let the goroutines pile up on the in-flight channel, then release.
	close(gate)
	wg.Wait()

	if got := api.userCalls.Load(); got != 1 {
		t.Fatalf("expected exactly one validation call, got %d", got)
	}
	if !st.Snapshot().Authenticated {
		t.Fatalf("expected authenticated session")
	}
}

func TestLogin_SuccessPersistsToken(t *testing.T) {
	api := &fakeAPI{loginResult: platform.LoginResult{Token: "tok-9", User: testUser()}}
	tokens := NewMemoryTokenStore()
	st := NewStore("s1", tokens, api, nil)

	out, err := st.Login(context.Background(), platform.Credentials{Email: "ada@x.test", Password: "pw"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if out.TwoFactorRequired {
		t.Fatalf("unexpected challenge")
	}

	snap := st.Snapshot()
	if !snap.Authenticated || snap.Token != "tok-9" || snap.Method != auth.MethodPassword {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	persisted, err := tokens.Load(context.Background(), "s1")
	if err != nil || persisted.Token != "tok-9" {
		t.Fatalf("expected persisted token, got %+v err %v", persisted, err)
	}
}

func TestLogin_FailureLeavesStateUntouched(t *testing.T) {
	api := &fakeAPI{loginErr: &platform.APIError{Status: 422, Message: "invalid credentials"}}
	tokens := NewMemoryTokenStore()
	st := NewStore("s1", tokens, api, nil)
	_ = st.Initialize(context.Background())
	before := st.Snapshot()

	if _, err := st.Login(context.Background(), platform.Credentials{}); err == nil {
		t.Fatalf("expected error")
	}
	if !reflect.DeepEqual(st.Snapshot(), before) {
		t.Fatalf("expected state untouched on failure")
	}
	if _, err := tokens.Load(context.Background(), "s1"); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected no persisted token")
	}
}

func TestLogin_SecondFactorChallenge(t *testing.T) {
	api := &fakeAPI{loginResult: platform.LoginResult{TwoFactorRequired: true, ChallengeToken: "ch-1"}}
	st := NewStore("s1", NewMemoryTokenStore(), api, nil)

	out, err := st.Login(context.Background(), platform.Credentials{})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !out.TwoFactorRequired || out.ChallengeToken != "ch-1" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if st.Snapshot().Authenticated {
		t.Fatalf("expected unauthenticated session during challenge")
	}
}

func TestRefreshUser_ReplacesSnapshotWholesale(t *testing.T) {
	api := &fakeAPI{loginResult: platform.LoginResult{Token: "tok-1", User: testUser()}}
	st := NewStore("s1", NewMemoryTokenStore(), api, nil)
	if _, err := st.Login(context.Background(), platform.Credentials{}); err != nil {
		t.Fatalf("login: %v", err)
	}

	api.mu.Lock()
	api.user = platform.User{ID: "u1", Name: "Ada", Role: platform.RoleAdmin, Permissions: []string{"media.view", "accounts.link"}}
	api.mu.Unlock()

	if err := st.RefreshUser(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	snap := st.Snapshot()
	if snap.User.Role != platform.RoleAdmin || len(snap.User.Permissions) != 2 {
		t.Fatalf("expected replaced user, got %+v", snap.User)
	}
	if snap.Token != "tok-1" {
		t.Fatalf("expected token untouched")
	}
}

func TestRefreshUser_FailureRollsBack(t *testing.T) {
	api := &fakeAPI{loginResult: platform.LoginResult{Token: "tok-1", User: testUser()}}
	st := NewStore("s1", NewMemoryTokenStore(), api, nil)
	if _, err := st.Login(context.Background(), platform.Credentials{}); err != nil {
		t.Fatalf("login: %v", err)
	}
	before := st.Snapshot()

	api.mu.Lock()
	api.userErr = errors.New("network down")
	api.mu.Unlock()

	if err := st.RefreshUser(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if !reflect.DeepEqual(st.Snapshot(), before) {
		t.Fatalf("expected pre-call state retained")
	}
}

func TestLogout_IsIdempotentAndBestEffort(t *testing.T) {
	api := &fakeAPI{
		loginResult: platform.LoginResult{Token: "tok-1", User: testUser()},
		logoutErr:   errors.New("platform down"),
	}
	tokens := NewMemoryTokenStore()
	st := NewStore("s1", tokens, api, nil)
	if _, err := st.Login(context.Background(), platform.Credentials{}); err != nil {
		t.Fatalf("login: %v", err)
	}

	st.Logout(context.Background())
	after := st.Snapshot()
	if after.Authenticated || after.Token != "" || after.User.ID != "" {
		t.Fatalf("expected cleared session, got %+v", after)
	}
	if _, err := tokens.Load(context.Background(), "s1"); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected persisted token cleared despite platform failure")
	}

	st.Logout(context.Background())
	if !reflect.DeepEqual(st.Snapshot(), after) {
		t.Fatalf("expected logout to be idempotent")
	}
}

func TestManager_ReusesAndDisposesStores(t *testing.T) {
	m := NewManager(NewMemoryTokenStore(), &fakeAPI{}, nil)

	a := m.Get("s1")
	if m.Get("s1") != a {
		t.Fatalf("expected same store per session id")
	}
	m.Dispose("s1")
	if m.Get("s1") == a {
		t.Fatalf("expected fresh store after dispose")
	}
}
