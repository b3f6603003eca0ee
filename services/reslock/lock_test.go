package reslock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"innkeeper/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingAudit captures audit entries in memory for assertions.
type recordingAudit struct {
	mu      sync.Mutex
	entries []models.LockAuditEntry
	fail    bool
}

func (r *recordingAudit) Record(ctx context.Context, entry models.LockAuditEntry) error {
	if r.fail {
		return errors.New("audit store down")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *recordingAudit) ByLockKey(ctx context.Context, lockKey string) ([]models.LockAuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.LockAuditEntry
	for _, e := range r.entries {
		if e.LockKey == lockKey {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *recordingAudit) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var types []string
	for _, e := range r.entries {
		types = append(types, e.EventType)
	}
	return types
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestService(audit *recordingAudit) *DefaultLockService {
	return &DefaultLockService{
		Store:         NewMemoryLockStore(),
		Audit:         audit,
		MaxExtensions: 2,
		Logger:        zap.NewNop(),
	}
}

func TestAcquireAndConflict(t *testing.T) {
	audit := &recordingAudit{}
	svc := newTestService(audit)
	ctx := context.Background()

	key, err := svc.Acquire(ctx, "room-5", date(2025, 6, 1), date(2025, 6, 3), "sess-1", "guest-1", time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, key)

	// Overlapping range on the same room is rejected.
	conflictKey, err := svc.Acquire(ctx, "room-5", date(2025, 6, 2), date(2025, 6, 4), "sess-2", "guest-2", time.Minute)
	require.NoError(t, err)
	assert.Empty(t, conflictKey)

	// Same range on another room is fine.
	otherKey, err := svc.Acquire(ctx, "room-6", date(2025, 6, 1), date(2025, 6, 3), "sess-3", "guest-3", time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, otherKey)

	assert.Equal(t, []string{
		models.LockEventAcquired,
		models.LockEventConflict,
		models.LockEventAcquired,
	}, audit.eventTypes())
}

func TestBackToBackRangesDoNotConflict(t *testing.T) {
	svc := newTestService(&recordingAudit{})
	ctx := context.Background()

	first, err := svc.Acquire(ctx, "room-5", date(2025, 6, 1), date(2025, 6, 3), "sess-1", "guest-1", time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	// Checkout day equals the next checkin day: half-open intervals do not overlap.
	second, err := svc.Acquire(ctx, "room-5", date(2025, 6, 3), date(2025, 6, 5), "sess-2", "guest-2", time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, second)
}

func TestIdenticalRangeConflicts(t *testing.T) {
	svc := newTestService(&recordingAudit{})
	ctx := context.Background()

	first, err := svc.Acquire(ctx, "room-5", date(2025, 6, 1), date(2025, 6, 3), "sess-1", "guest-1", time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	dup, err := svc.Acquire(ctx, "room-5", date(2025, 6, 1), date(2025, 6, 3), "sess-2", "guest-2", time.Minute)
	require.NoError(t, err)
	assert.Empty(t, dup)
}

func TestInvalidRangeRejected(t *testing.T) {
	svc := newTestService(&recordingAudit{})

	_, err := svc.Acquire(context.Background(), "room-5", date(2025, 6, 3), date(2025, 6, 3), "sess-1", "guest-1", time.Minute)
	assert.Error(t, err)
}

func TestConcurrentAcquireExactlyOneWinner(t *testing.T) {
	audit := &recordingAudit{}
	svc := newTestService(audit)
	ctx := context.Background()

	results := make(chan string, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key, err := svc.Acquire(ctx, "room-5", date(2025, 6, 1), date(2025, 6, 3), "sess", "guest", time.Minute)
			assert.NoError(t, err)
			results <- key
		}(i)
	}
	wg.Wait()
	close(results)

	var winners, losers int
	for key := range results {
		if key == "" {
			losers++
		} else {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, 1, losers)

	types := audit.eventTypes()
	assert.Contains(t, types, models.LockEventConflict)
}

func TestExtendUpToCap(t *testing.T) {
	svc := newTestService(&recordingAudit{})
	ctx := context.Background()

	key, err := svc.Acquire(ctx, "room-5", date(2025, 6, 1), date(2025, 6, 3), "sess-1", "guest-1", time.Minute)
	require.NoError(t, err)

	for i := 0; i < svc.MaxExtensions; i++ {
		ok, err := svc.Extend(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok, "extension %d should succeed", i+1)
	}

	ok, err := svc.Extend(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok, "extension past the cap must fail")

	// The lock is still held after a refused extension.
	lock, err := svc.Store.Get(ctx, key)
	require.NoError(t, err)
	assert.NotNil(t, lock)
}

func TestExtendUnknownKey(t *testing.T) {
	svc := newTestService(&recordingAudit{})

	ok, err := svc.Extend(context.Background(), "resvlock:room-9:2025-01-01:2025-01-02")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReleaseIsIdempotentFalse(t *testing.T) {
	audit := &recordingAudit{}
	svc := newTestService(audit)
	ctx := context.Background()

	key, err := svc.Acquire(ctx, "room-5", date(2025, 6, 1), date(2025, 6, 3), "sess-1", "guest-1", time.Minute)
	require.NoError(t, err)

	ok, err := svc.Release(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Release(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok, "second release must return false")

	// Released range can be re-acquired.
	again, err := svc.Acquire(ctx, "room-5", date(2025, 6, 1), date(2025, 6, 3), "sess-2", "guest-2", time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, again)
}

func TestAuditFailureNeverBlocksLockOperations(t *testing.T) {
	svc := newTestService(&recordingAudit{fail: true})
	ctx := context.Background()

	key, err := svc.Acquire(ctx, "room-5", date(2025, 6, 1), date(2025, 6, 3), "sess-1", "guest-1", time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, key)

	ok, err := svc.Extend(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Release(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
}
