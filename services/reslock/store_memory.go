package reslock

import (
	"context"
	"sync"
	"time"

	"innkeeper/models"
)

type memoryLock struct {
	lock      models.ReservationLock
	expiresAt time.Time
}

// MemoryLockStore is an in-process LockStore for tests and local development.
// It mirrors the Redis store's semantics: the overlap check and the write
// happen under one mutex hold.
type MemoryLockStore struct {
	mu    sync.Mutex
	locks map[string]memoryLock
}

// NewMemoryLockStore returns an empty in-memory LockStore.
func NewMemoryLockStore() *MemoryLockStore {
	return &MemoryLockStore{locks: make(map[string]memoryLock)}
}

func (s *MemoryLockStore) AcquireIfFree(ctx context.Context, lock models.ReservationLock, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpired()

	for _, existing := range s.locks {
		if existing.lock.RoomID != lock.RoomID {
			continue
		}
		if existing.lock.CheckInUnix < lock.CheckOutUnix && lock.CheckInUnix < existing.lock.CheckOutUnix {
			return false, nil
		}
	}

	s.locks[lock.LockKey] = memoryLock{lock: lock, expiresAt: time.Now().Add(ttl)}
	return true, nil
}

func (s *MemoryLockStore) Get(ctx context.Context, lockKey string) (*models.ReservationLock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpired()

	entry, ok := s.locks[lockKey]
	if !ok {
		return nil, nil
	}
	lock := entry.lock
	return &lock, nil
}

func (s *MemoryLockStore) Save(ctx context.Context, lock models.ReservationLock, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locks[lock.LockKey] = memoryLock{lock: lock, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *MemoryLockStore) Delete(ctx context.Context, lockKey string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpired()

	_, ok := s.locks[lockKey]
	delete(s.locks, lockKey)
	return ok, nil
}

// purgeExpired drops locks past their deadline. Callers must hold the mutex.
func (s *MemoryLockStore) purgeExpired() {
	now := time.Now()
	for key, entry := range s.locks {
		if now.After(entry.expiresAt) {
			delete(s.locks, key)
		}
	}
}
