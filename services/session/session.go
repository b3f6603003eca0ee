package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"syscall"
	"time"

	"innkeeper/models"
	"innkeeper/services/cache"
	"innkeeper/utils"

	"go.uber.org/zap"
)

// GetOrCreate loads the guest's session, creating a fresh one when the record
// is absent, corrupt, or the store read fails. Read failures never propagate.
func (s *DefaultSessionService) GetOrCreate(ctx context.Context, userID, canal, tenantID string) (*models.GuestSession, error) {
	key := sessionKey(tenantID, userID)

	raw, err := s.Cache.Get(ctx, key)
	switch {
	case errors.Is(err, cache.ErrCacheMiss):
		// first contact
	case err != nil:
		s.Logger.Warn("session read failed, starting fresh",
			zap.String("key", key), zap.Error(err))
	default:
		var record models.GuestSession
		if jerr := json.Unmarshal([]byte(raw), &record); jerr == nil && record.Valid() {
			record.LastActivity = s.now()
			if perr := s.persist(ctx, key, &record); perr != nil {
				s.Logger.Warn("failed to refresh session record",
					zap.String("key", key), zap.Error(perr))
			}
			return &record, nil
		}
		// Corrupt records are purged, never served.
		s.Logger.Warn("purging corrupt session record", zap.String("key", key))
		if derr := s.Cache.Delete(ctx, key); derr != nil {
			s.Logger.Warn("failed to purge corrupt session record",
				zap.String("key", key), zap.Error(derr))
		}
	}

	record := &models.GuestSession{
		UserID:    userID,
		TenantID:  tenantID,
		Canal:     canal,
		State:     "new",
		Context:   map[string]any{},
		CreatedAt: s.now(),
	}
	if perr := s.persist(ctx, key, record); perr != nil {
		s.Logger.Warn("failed to persist new session record",
			zap.String("key", key), zap.Error(perr))
	}
	return record, nil
}

// Update persists the record with bounded retry. Transient store failures are
// retried with exponential backoff; anything else fails immediately.
func (s *DefaultSessionService) Update(ctx context.Context, userID string, record *models.GuestSession, tenantID string) error {
	if record == nil {
		return fmt.Errorf("session record is nil")
	}
	record.UserID = userID
	record.TenantID = tenantID
	if !record.Valid() {
		return fmt.Errorf("session record for user %s is missing required fields", userID)
	}
	return s.persist(ctx, sessionKey(tenantID, userID), record)
}

// persist writes the record, retrying transient failures up to MaxRetries
// attempts. LastActivity is refreshed before every attempt so a late success
// reflects the true time of persistence.
func (s *DefaultSessionService) persist(ctx context.Context, key string, record *models.GuestSession) error {
	var lastErr error
	for attempt := 1; attempt <= s.MaxRetries; attempt++ {
		record.LastActivity = s.now()
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal session record: %w", err)
		}

		lastErr = s.Cache.Set(ctx, key, string(data), s.TTL)
		if lastErr == nil {
			utils.SessionWriteRetries.WithLabelValues("success").Inc()
			return nil
		}
		if !isTransient(lastErr) {
			utils.SessionWriteRetries.WithLabelValues("failure").Inc()
			return fmt.Errorf("session write failed: %w", lastErr)
		}

		utils.SessionWriteRetries.WithLabelValues("retry").Inc()
		if attempt == s.MaxRetries {
			break
		}
		delay := s.backoff(attempt)
		s.Logger.Debug("retrying session write",
			zap.String("key", key), zap.Int("attempt", attempt), zap.Duration("delay", delay))
		if serr := s.sleep(ctx, delay); serr != nil {
			return serr
		}
	}

	utils.SessionWriteRetries.WithLabelValues("failure").Inc()
	return fmt.Errorf("session write failed after %d attempts: %w", s.MaxRetries, lastErr)
}

// backoff returns base * 2^(attempt-1) plus a small jitter.
func (s *DefaultSessionService) backoff(attempt int) time.Duration {
	delay := s.BackoffBase << (attempt - 1)
	jitter := time.Duration(rand.Int63n(int64(s.BackoffBase)/4 + 1))
	return delay + jitter
}

// Sweep walks all session keys page by page, deleting entries that fail to
// parse or are missing a required field, and republishes the active-session
// gauge over valid entries only.
func (s *DefaultSessionService) Sweep(ctx context.Context) (int, int, error) {
	var (
		cursor uint64
		purged int
		active int
	)
	for {
		keys, next, err := s.Cache.Scan(ctx, sessionKeyPrefix+"*", cursor, 100)
		if err != nil {
			return purged, active, fmt.Errorf("session sweep scan failed: %w", err)
		}

		for _, key := range keys {
			raw, gerr := s.Cache.Get(ctx, key)
			if errors.Is(gerr, cache.ErrCacheMiss) {
				continue // expired between scan and read
			}
			if gerr != nil {
				s.Logger.Warn("session sweep read failed", zap.String("key", key), zap.Error(gerr))
				continue
			}

			var record models.GuestSession
			if jerr := json.Unmarshal([]byte(raw), &record); jerr != nil || !record.Valid() {
				if derr := s.Cache.Delete(ctx, key); derr != nil {
					s.Logger.Warn("failed to purge invalid session record",
						zap.String("key", key), zap.Error(derr))
					continue
				}
				purged++
				continue
			}
			active++
		}

		if next == 0 {
			break
		}
		cursor = next
	}

	utils.ActiveSessions.Set(float64(active))
	if purged > 0 {
		s.Logger.Info("session sweep purged invalid records",
			zap.Int("purged", purged), zap.Int("active", active))
	}
	return purged, active, nil
}

// isTransient classifies connection/timeout class failures worth retrying.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED)
}
