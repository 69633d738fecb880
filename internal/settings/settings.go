// Package settings caches the console-relevant platform settings.
package settings

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"ucontents-console/internal/platform"

	"github.com/redis/go-redis/v9"
)

const cacheKey = "uconsole:settings:console"

// Service reads platform settings through a Redis cache. The cache is
// shared by all gateway instances; a nil client disables caching.
type Service struct {
	api platform.API
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

func NewService(api platform.API, rdb *redis.Client, ttl time.Duration, log *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{api: api, rdb: rdb, ttl: ttl, log: log}
}

func (s *Service) Console(ctx context.Context) (platform.Settings, error) {
	if s.rdb != nil {
		raw, err := s.rdb.Get(ctx, cacheKey).Bytes()
		if err == nil {
			var cached platform.Settings
			if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
				return cached, nil
			}
			// Poisoned cache entry; fall through to a fresh fetch.
		} else if err != redis.Nil {
			s.log.Warn("settings cache read failed", "err", err)
		}
	}

	fresh, err := s.api.ConsoleSettings(ctx)
	if err != nil {
		return platform.Settings{}, err
	}

	if s.rdb != nil {
		if raw, jsonErr := json.Marshal(fresh); jsonErr == nil {
			if err := s.rdb.Set(ctx, cacheKey, raw, s.ttl).Err(); err != nil {
				s.log.Warn("settings cache write failed", "err", err)
			}
		}
	}
	return fresh, nil
}

// EmailVerificationRequired reports whether unverified users must be
// sent to the verification notice page.
//
// Deliberately fail-open: when the settings fetch fails, verification
// is treated as not required, so a transient platform hiccup never
// locks a legitimate user out.
func (s *Service) EmailVerificationRequired(ctx context.Context) bool {
	st, err := s.Console(ctx)
	if err != nil {
		s.log.Warn("verification policy fetch failed, treating as not required", "err", err)
		return false
	}
	return st.RequireEmailVerification
}
