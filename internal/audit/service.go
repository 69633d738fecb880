package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
//
// Audit is internal-only; records are never exposed to console users.
// Callers should treat audit logging as best-effort.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s == nil || s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogLogin records a credential exchange outcome.
func (s *Service) LogLogin(ctx context.Context, t EventType, sessionID, userID, role, ip, message string) error {
	return s.Append(ctx, Event{
		Type:        t,
		ActorUserID: userID,
		ActorRole:   role,
		SessionID:   sessionID,
		IPAddress:   ip,
		Message:     message,
	})
}

// LogSocial records a social account link attempt.
func (s *Service) LogSocial(ctx context.Context, t EventType, sessionID, userID, provider, ip, message string) error {
	return s.Append(ctx, Event{
		Type:        t,
		ActorUserID: userID,
		SessionID:   sessionID,
		IPAddress:   ip,
		Provider:    provider,
		Message:     message,
	})
}

// LogAccessDenied records an authenticated principal being turned away
// from a guarded surface.
func (s *Service) LogAccessDenied(ctx context.Context, sessionID, userID, role, ip, path string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeAccessDenied,
		ActorUserID: userID,
		ActorRole:   role,
		SessionID:   sessionID,
		IPAddress:   ip,
		Message:     "denied access to " + path,
	})
}
