// Package notify keeps per-session unread notification counts warm.
//
// A cron job refreshes the counts for every materialized session on a
// fixed interval; the API handler serves the cached snapshot and falls
// back to a direct fetch on a cache miss. Poll and on-demand refreshes
// may race; last-response-wins is fine because both are idempotent
// snapshots of server state.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"ucontents-console/internal/platform"
	"ucontents-console/internal/session"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
)

type Service struct {
	api      platform.API
	rdb      *redis.Client
	sessions *session.Manager
	log      *slog.Logger
	interval time.Duration

	cron *cron.Cron
}

func NewService(api platform.API, rdb *redis.Client, sessions *session.Manager, interval time.Duration, log *slog.Logger) *Service {
	if interval <= 0 {
		interval = time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		api:      api,
		rdb:      rdb,
		sessions: sessions,
		log:      log,
		interval: interval,
		cron:     cron.New(),
	}
}

func (s *Service) Start() error {
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, s.refreshAll); err != nil {
		return fmt.Errorf("notify: schedule refresh: %w", err)
	}
	s.cron.Start()
	return nil
}

func (s *Service) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Service) refreshAll() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	for _, st := range s.sessions.ActiveSessions() {
		snap := st.Snapshot()
		if !snap.Authenticated {
			continue
		}
		sum, err := s.api.UnreadNotifications(ctx, snap.Token)
		if err != nil {
			s.log.Debug("notification refresh failed", "session_id", st.ID(), "err", err)
			continue
		}
		s.cache(ctx, st.ID(), sum)
	}
}

// Unread serves the cached count for a session, fetching directly on a
// cache miss.
func (s *Service) Unread(ctx context.Context, st *session.Store) (platform.NotificationSummary, error) {
	if cached, ok := s.cached(ctx, st.ID()); ok {
		return cached, nil
	}

	snap := st.Snapshot()
	if !snap.Authenticated {
		return platform.NotificationSummary{}, fmt.Errorf("notify: session not authenticated")
	}
	sum, err := s.api.UnreadNotifications(ctx, snap.Token)
	if err != nil {
		return platform.NotificationSummary{}, err
	}
	s.cache(ctx, st.ID(), sum)
	return sum, nil
}

func cacheKey(sessionID string) string {
	return "uconsole:notify:" + sessionID
}

func (s *Service) cached(ctx context.Context, sessionID string) (platform.NotificationSummary, bool) {
	if s.rdb == nil {
		return platform.NotificationSummary{}, false
	}
	raw, err := s.rdb.Get(ctx, cacheKey(sessionID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.log.Warn("notification cache read failed", "err", err)
		}
		return platform.NotificationSummary{}, false
	}
	var sum platform.NotificationSummary
	if err := json.Unmarshal(raw, &sum); err != nil {
		return platform.NotificationSummary{}, false
	}
	return sum, true
}

func (s *Service) cache(ctx context.Context, sessionID string, sum platform.NotificationSummary) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(sum)
	if err != nil {
		return
	}
	// Keep entries a few polls beyond the interval so a slow cycle does
	// not leave readers with nothing.
	if err := s.rdb.Set(ctx, cacheKey(sessionID), raw, 5*s.interval).Err(); err != nil {
		s.log.Warn("notification cache write failed", "err", err)
	}
}
