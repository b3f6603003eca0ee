package reslock

import (
	"context"
	"fmt"
	"time"

	"innkeeper/models"
	"innkeeper/utils"

	"go.uber.org/zap"
)

// Acquire computes the lock key and attempts a single atomic
// check-and-set against the store. The interval is half-open: an existing
// lock ending exactly when the new one starts is not a conflict.
func (s *DefaultLockService) Acquire(ctx context.Context, roomID string, checkIn, checkOut time.Time, sessionID, userID string, ttl time.Duration) (string, error) {
	checkIn = normalizeDate(checkIn)
	checkOut = normalizeDate(checkOut)
	if !checkOut.After(checkIn) {
		return "", fmt.Errorf("invalid date range: checkout %s is not after checkin %s",
			checkOut.Format(dateLayout), checkIn.Format(dateLayout))
	}

	key := LockKey(roomID, checkIn, checkOut)
	lock := models.ReservationLock{
		LockKey:      key,
		RoomID:       roomID,
		CheckIn:      checkIn,
		CheckOut:     checkOut,
		CheckInUnix:  checkIn.Unix(),
		CheckOutUnix: checkOut.Unix(),
		SessionID:    sessionID,
		UserID:       userID,
		TTLSeconds:   int(ttl / time.Second),
		AcquiredAt:   time.Now(),
	}

	acquired, err := s.Store.AcquireIfFree(ctx, lock, ttl)
	if err != nil {
		return "", fmt.Errorf("failed to acquire reservation lock: %w", err)
	}
	if !acquired {
		utils.LockEvents.WithLabelValues(models.LockEventConflict).Inc()
		s.audit(ctx, models.LockEventConflict, key,
			fmt.Sprintf("room %s already locked for an overlapping range (session %s)", roomID, sessionID))
		return "", nil
	}

	utils.LockEvents.WithLabelValues(models.LockEventAcquired).Inc()
	s.audit(ctx, models.LockEventAcquired, key,
		fmt.Sprintf("room %s locked %s to %s by session %s",
			roomID, checkIn.Format(dateLayout), checkOut.Format(dateLayout), sessionID))
	return key, nil
}

// Extend refreshes the TTL and bumps the extension counter, up to the cap.
func (s *DefaultLockService) Extend(ctx context.Context, lockKey string) (bool, error) {
	lock, err := s.Store.Get(ctx, lockKey)
	if err != nil {
		return false, fmt.Errorf("failed to load reservation lock: %w", err)
	}
	if lock == nil {
		return false, nil
	}
	if lock.ExtensionCount >= s.MaxExtensions {
		s.Logger.Debug("reservation lock extension cap reached",
			zap.String("lockKey", lockKey), zap.Int("extensions", lock.ExtensionCount))
		return false, nil
	}

	lock.ExtensionCount++
	ttl := time.Duration(lock.TTLSeconds) * time.Second
	if err := s.Store.Save(ctx, *lock, ttl); err != nil {
		return false, fmt.Errorf("failed to extend reservation lock: %w", err)
	}

	utils.LockEvents.WithLabelValues(models.LockEventExtended).Inc()
	s.audit(ctx, models.LockEventExtended, lockKey,
		fmt.Sprintf("extension %d of %d", lock.ExtensionCount, s.MaxExtensions))
	return true, nil
}

// Release deletes the lock. The first release wins; later ones return false.
func (s *DefaultLockService) Release(ctx context.Context, lockKey string) (bool, error) {
	existed, err := s.Store.Delete(ctx, lockKey)
	if err != nil {
		return false, fmt.Errorf("failed to release reservation lock: %w", err)
	}
	if !existed {
		return false, nil
	}

	utils.LockEvents.WithLabelValues(models.LockEventReleased).Inc()
	s.audit(ctx, models.LockEventReleased, lockKey, "released explicitly")
	return true, nil
}

// audit records a lifecycle transition best-effort: a failed audit write is
// logged and swallowed, never rolled into the primary result.
func (s *DefaultLockService) audit(ctx context.Context, eventType, lockKey, details string) {
	entry := models.LockAuditEntry{
		EventType: eventType,
		LockKey:   lockKey,
		Details:   details,
		Timestamp: time.Now(),
	}
	if err := s.Audit.Record(ctx, entry); err != nil {
		s.Logger.Warn("failed to persist lock audit entry",
			zap.String("event", eventType), zap.String("lockKey", lockKey), zap.Error(err))
	}
}
