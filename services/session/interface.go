package session

import (
	"context"
	"time"

	"innkeeper/models"
	"innkeeper/services/cache"

	"go.uber.org/zap"
)

const sessionKeyPrefix = "session:"

// Service makes conversational state durable despite transient failures of
// the session store. Reads never propagate store failures; writes retry a
// bounded number of times.
type Service interface {
	GetOrCreate(ctx context.Context, userID, canal, tenantID string) (*models.GuestSession, error)
	Update(ctx context.Context, userID string, record *models.GuestSession, tenantID string) error

	// Sweep scans every session key, purges records that fail to parse or
	// miss a required field, and republishes the active-session gauge.
	Sweep(ctx context.Context) (purged int, active int, err error)
}

// DefaultSessionService implements Service on top of the cache store.
type DefaultSessionService struct {
	Cache       cache.Store
	TTL         time.Duration
	MaxRetries  int
	BackoffBase time.Duration
	Logger      *zap.Logger

	// Sleep suspends between retry attempts; injectable so tests run without
	// real delays. Defaults to a context-aware timer sleep.
	Sleep func(ctx context.Context, d time.Duration) error
	// Now is the clock used for activity timestamps. Defaults to time.Now.
	Now func() time.Time
}

func sessionKey(tenantID, userID string) string {
	if tenantID == "" {
		return sessionKeyPrefix + userID
	}
	return sessionKeyPrefix + tenantID + ":" + userID
}

func (s *DefaultSessionService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *DefaultSessionService) sleep(ctx context.Context, d time.Duration) error {
	if s.Sleep != nil {
		return s.Sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
