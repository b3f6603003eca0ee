package reslock

import (
	"context"
	"fmt"
	"time"

	auditRepo "innkeeper/database/repository/audit"
	"innkeeper/models"

	"go.uber.org/zap"
)

const lockKeyPrefix = "resvlock:"

const dateLayout = "2006-01-02"

// Service guards in-flight reservation attempts: at most one live lock per
// room for any pair of overlapping [checkIn, checkOut) intervals.
type Service interface {
	// Acquire returns the lock key on success and "" when a conflicting lock
	// already exists. The error is reserved for store failures.
	Acquire(ctx context.Context, roomID string, checkIn, checkOut time.Time, sessionID, userID string, ttl time.Duration) (string, error)

	// Extend refreshes the lock's TTL. It returns false once the extension
	// cap is reached or the lock no longer exists; the lock is never removed.
	Extend(ctx context.Context, lockKey string) (bool, error)

	// Release deletes the lock. It returns true exactly once; releasing an
	// already-released or unknown key returns false.
	Release(ctx context.Context, lockKey string) (bool, error)
}

// LockStore is the shared-store port the service drives. AcquireIfFree must be
// atomic: two concurrent calls for overlapping intervals on the same room may
// never both succeed.
type LockStore interface {
	AcquireIfFree(ctx context.Context, lock models.ReservationLock, ttl time.Duration) (bool, error)
	Get(ctx context.Context, lockKey string) (*models.ReservationLock, error)
	Save(ctx context.Context, lock models.ReservationLock, ttl time.Duration) error
	Delete(ctx context.Context, lockKey string) (bool, error)
}

// DefaultLockService implements Service.
type DefaultLockService struct {
	Store         LockStore
	Audit         auditRepo.Recorder
	MaxExtensions int
	Logger        *zap.Logger
}

// LockKey derives the canonical lock key from the room and normalized dates.
func LockKey(roomID string, checkIn, checkOut time.Time) string {
	return fmt.Sprintf("%s%s:%s:%s",
		lockKeyPrefix, roomID, checkIn.Format(dateLayout), checkOut.Format(dateLayout))
}

// normalizeDate truncates a timestamp to its calendar day in UTC.
func normalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
