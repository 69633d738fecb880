// Package session owns the authentication state of one browser session.
//
// A Store is the single source of truth for that state. All mutation
// goes through Initialize, Login, AdoptToken, RefreshUser and Logout;
// other packages only read snapshots. The durable token store is the
// only persisted resource; it is read at initialize and written or
// cleared only by the mutation surface.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"ucontents-console/internal/auth"
	"ucontents-console/internal/platform"
)

// Session is an immutable snapshot of authentication state.
//
// Invariant: Authenticated implies User.ID and Token are non-empty.
// Loading is true from store creation until the first Initialize
// resolves; readers must not treat Authenticated as final before then.
type Session struct {
	Authenticated bool
	Loading       bool
	User          platform.User
	Token         string
	Method        auth.AuthMethod
}

type Store struct {
	id     string
	tokens TokenStore
	api    platform.API
	log    *slog.Logger

	mu  sync.Mutex
	cur Session

	// inflight is non-nil while an Initialize is running; concurrent
	// callers wait on it instead of issuing a second validation.
	inflight chan struct{}
}

func NewStore(id string, tokens TokenStore, api platform.API, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		id:     id,
		tokens: tokens,
		api:    api,
		log:    log.With("session_id", id),
		cur:    Session{Loading: true},
	}
}

func (s *Store) ID() string { return s.id }

// Snapshot returns the current session state by value.
func (s *Store) Snapshot() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// Initialize resolves the persisted token into an authenticated session.
//
// No persisted token: the session resolves unauthenticated with zero
// backend calls. A persisted token is validated via /auth/me; any
// failure (network, 401, malformed response) clears the persisted
// token and resolves unauthenticated. Loading is false once resolved.
// Concurrent callers share a single in-flight validation.
//
// Cancellation discards the attempt entirely: the persisted token is
// kept, the session stays Loading, and the next caller re-resolves.
func (s *Store) Initialize(ctx context.Context) error {
	for {
		s.mu.Lock()
		if !s.cur.Loading {
			s.mu.Unlock()
			return nil
		}
		if s.inflight != nil {
			ch := s.inflight
			s.mu.Unlock()
			select {
			case <-ch:
				// The resolver may have been cancelled; re-check.
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		break
	}
	ch := make(chan struct{})
	s.inflight = ch
	s.mu.Unlock()

	next, err := s.resolve(ctx)

	s.mu.Lock()
	if err == nil {
		s.cur = next
	}
	s.inflight = nil
	close(ch)
	s.mu.Unlock()
	return err
}

// resolve returns a non-nil error only when the attempt was cancelled;
// the caller must then discard the result and leave all state untouched.
func (s *Store) resolve(ctx context.Context) (Session, error) {
	persisted, err := s.tokens.Load(ctx, s.id)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Session{}, ctxErr
		}
		if !errors.Is(err, ErrNoToken) {
			s.log.Warn("token load failed", "err", err)
		}
		return Session{}, nil
	}

	user, err := s.api.CurrentUser(ctx, persisted.Token)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			// Client went away; the token was never actually rejected.
			return Session{}, ctxErr
		}
		s.log.Info("persisted token rejected", "err", err)
		if clearErr := s.tokens.Clear(ctx, s.id); clearErr != nil {
			s.log.Warn("token clear failed", "err", clearErr)
		}
		return Session{}, nil
	}

	return Session{
		Authenticated: true,
		User:          user,
		Token:         persisted.Token,
		Method:        persisted.Method,
	}, nil
}

// LoginOutcome distinguishes a completed login from a pending second
// factor. On a challenge the session stays unauthenticated and the
// caller forwards ChallengeToken to the next step.
type LoginOutcome struct {
	TwoFactorRequired bool
	ChallengeToken    string
	User              platform.User
}

// Login exchanges credentials with the platform. On failure the session
// state is left untouched.
func (s *Store) Login(ctx context.Context, creds platform.Credentials) (LoginOutcome, error) {
	res, err := s.api.Login(ctx, creds)
	if err != nil {
		return LoginOutcome{}, err
	}

	if res.TwoFactorRequired {
		return LoginOutcome{TwoFactorRequired: true, ChallengeToken: res.ChallengeToken}, nil
	}
	if res.Token == "" || res.User.ID == "" {
		return LoginOutcome{}, errors.New("session: login response missing token or user")
	}

	if err := s.tokens.Save(ctx, s.id, PersistedToken{Token: res.Token, Method: auth.MethodPassword}); err != nil {
		return LoginOutcome{}, err
	}

	s.mu.Lock()
	s.cur = Session{
		Authenticated: true,
		User:          res.User,
		Token:         res.Token,
		Method:        auth.MethodPassword,
	}
	s.mu.Unlock()

	return LoginOutcome{User: res.User}, nil
}

// AdoptToken installs an already-issued platform token (the token
// variant of the OAuth callback) and fetches the user it belongs to.
func (s *Store) AdoptToken(ctx context.Context, token string, method auth.AuthMethod) (platform.User, error) {
	if token == "" {
		return platform.User{}, errors.New("session: empty token")
	}
	if err := s.tokens.Save(ctx, s.id, PersistedToken{Token: token, Method: method}); err != nil {
		return platform.User{}, err
	}

	user, err := s.api.CurrentUser(ctx, token)
	if err != nil {
		if clearErr := s.tokens.Clear(ctx, s.id); clearErr != nil {
			s.log.Warn("token clear failed", "err", clearErr)
		}
		return platform.User{}, err
	}

	s.mu.Lock()
	s.cur = Session{
		Authenticated: true,
		User:          user,
		Token:         token,
		Method:        method,
	}
	s.mu.Unlock()
	return user, nil
}

// RefreshUser re-fetches the current user and replaces the snapshot
// wholesale, leaving the token untouched. Used after flows that change
// role, permissions or verification status out of band.
func (s *Store) RefreshUser(ctx context.Context) error {
	s.mu.Lock()
	cur := s.cur
	s.mu.Unlock()

	if !cur.Authenticated {
		return errors.New("session: not authenticated")
	}

	user, err := s.api.CurrentUser(ctx, cur.Token)
	if err != nil {
		// Session state rolls back to its pre-call value; the caller
		// decides whether to surface or retry.
		return err
	}

	s.mu.Lock()
	if s.cur.Token == cur.Token {
		s.cur.User = user
	}
	s.mu.Unlock()
	return nil
}

// Logout clears the persisted token and the in-memory state. It is
// idempotent and proceeds even when the platform invalidation call
// fails.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	cur := s.cur
	s.mu.Unlock()

	if cur.Token != "" {
		if err := s.api.Logout(ctx, cur.Token); err != nil {
			s.log.Info("platform logout failed", "err", err)
		}
	}

	if err := s.tokens.Clear(ctx, s.id); err != nil {
		s.log.Warn("token clear failed", "err", err)
	}

	s.mu.Lock()
	s.cur = Session{}
	s.mu.Unlock()
}
