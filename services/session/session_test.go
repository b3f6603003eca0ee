package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"syscall"
	"testing"
	"time"

	"innkeeper/models"
	"innkeeper/services/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// flakyStore fails a scripted number of writes before succeeding.
type flakyStore struct {
	*cache.MemoryStore
	failures int
	failWith error
	setCalls int
}

func (f *flakyStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	f.setCalls++
	if f.failures > 0 {
		f.failures--
		return f.failWith
	}
	return f.MemoryStore.Set(ctx, key, value, ttl)
}

var errTransient = fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED)

func newTestService(store cache.Store) (*DefaultSessionService, *[]time.Duration) {
	sleeps := &[]time.Duration{}
	clock := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	svc := &DefaultSessionService{
		Cache:       store,
		TTL:         30 * time.Minute,
		MaxRetries:  3,
		BackoffBase: 100 * time.Millisecond,
		Logger:      zap.NewNop(),
		Sleep: func(ctx context.Context, d time.Duration) error {
			*sleeps = append(*sleeps, d)
			return nil
		},
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
	}
	return svc, sleeps
}

func TestUpdateRetriesTransientFailures(t *testing.T) {
	store := &flakyStore{MemoryStore: cache.NewMemoryStore(), failures: 2, failWith: errTransient}
	svc, sleeps := newTestService(store)

	record := &models.GuestSession{UserID: "guest-1", Canal: "whatsapp", State: "browsing"}
	err := svc.Update(context.Background(), "guest-1", record, "")
	require.NoError(t, err)
	assert.Equal(t, 3, store.setCalls)

	// Backoff delays strictly increase.
	require.Len(t, *sleeps, 2)
	assert.Less(t, (*sleeps)[0], (*sleeps)[1])
	assert.GreaterOrEqual(t, (*sleeps)[0], 100*time.Millisecond)
	assert.GreaterOrEqual(t, (*sleeps)[1], 200*time.Millisecond)
}

func TestUpdateRefreshesLastActivityEachAttempt(t *testing.T) {
	store := &flakyStore{MemoryStore: cache.NewMemoryStore(), failures: 2, failWith: errTransient}
	svc, _ := newTestService(store)

	record := &models.GuestSession{UserID: "guest-1", Canal: "whatsapp", State: "browsing"}
	start := svc.now()
	require.NoError(t, svc.Update(context.Background(), "guest-1", record, ""))

	// The persisted timestamp reflects the successful attempt, not the first.
	assert.True(t, record.LastActivity.After(start.Add(2*time.Second)),
		"late success must carry the true persistence time")
}

func TestUpdateExhaustsRetries(t *testing.T) {
	store := &flakyStore{MemoryStore: cache.NewMemoryStore(), failures: 100, failWith: errTransient}
	svc, sleeps := newTestService(store)

	record := &models.GuestSession{UserID: "guest-1", Canal: "sms", State: "browsing"}
	err := svc.Update(context.Background(), "guest-1", record, "")
	require.Error(t, err)
	assert.Equal(t, svc.MaxRetries, store.setCalls)
	assert.Len(t, *sleeps, svc.MaxRetries-1)
}

func TestUpdateFailsImmediatelyOnNonTransientError(t *testing.T) {
	store := &flakyStore{MemoryStore: cache.NewMemoryStore(), failures: 100, failWith: errors.New("WRONGTYPE operation")}
	svc, sleeps := newTestService(store)

	record := &models.GuestSession{UserID: "guest-1", Canal: "sms", State: "browsing"}
	err := svc.Update(context.Background(), "guest-1", record, "")
	require.Error(t, err)
	assert.Equal(t, 1, store.setCalls, "non-transient failures must not be retried")
	assert.Empty(t, *sleeps)
}

func TestGetOrCreateFirstContact(t *testing.T) {
	svc, _ := newTestService(cache.NewMemoryStore())

	record, err := svc.GetOrCreate(context.Background(), "guest-1", "whatsapp", "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, "guest-1", record.UserID)
	assert.Equal(t, "whatsapp", record.Canal)
	assert.Equal(t, "new", record.State)
	assert.False(t, record.LastActivity.IsZero())
}

func TestGetOrCreateReturnsExisting(t *testing.T) {
	store := cache.NewMemoryStore()
	svc, _ := newTestService(store)
	ctx := context.Background()

	first, err := svc.GetOrCreate(ctx, "guest-1", "whatsapp", "")
	require.NoError(t, err)
	first.State = "selecting_room"
	require.NoError(t, svc.Update(ctx, "guest-1", first, ""))

	again, err := svc.GetOrCreate(ctx, "guest-1", "whatsapp", "")
	require.NoError(t, err)
	assert.Equal(t, "selecting_room", again.State)
}

func TestGetOrCreatePurgesCorruptRecord(t *testing.T) {
	store := cache.NewMemoryStore()
	svc, _ := newTestService(store)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "session:guest-1", "{not-json", time.Hour))

	record, err := svc.GetOrCreate(ctx, "guest-1", "whatsapp", "")
	require.NoError(t, err)
	assert.Equal(t, "new", record.State, "corrupt record must be replaced, never served")

	raw, err := store.Get(ctx, "session:guest-1")
	require.NoError(t, err)
	var stored models.GuestSession
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.True(t, stored.Valid())
}

func TestGetOrCreatePurgesRecordMissingRequiredFields(t *testing.T) {
	store := cache.NewMemoryStore()
	svc, _ := newTestService(store)
	ctx := context.Background()

	partial, _ := json.Marshal(map[string]string{"userId": "guest-1"})
	require.NoError(t, store.Set(ctx, "session:guest-1", string(partial), time.Hour))

	record, err := svc.GetOrCreate(ctx, "guest-1", "telegram", "")
	require.NoError(t, err)
	assert.Equal(t, "telegram", record.Canal)
	assert.True(t, record.Valid())
}

func TestGetOrCreateToleratesReadFailure(t *testing.T) {
	store := &flakyStore{MemoryStore: cache.NewMemoryStore()}
	svc, _ := newTestService(&readFailingStore{Store: store})

	record, err := svc.GetOrCreate(context.Background(), "guest-1", "whatsapp", "")
	require.NoError(t, err, "read failures must never propagate")
	assert.Equal(t, "guest-1", record.UserID)
}

// readFailingStore fails every Get with a transient error.
type readFailingStore struct {
	cache.Store
}

func (r *readFailingStore) Get(ctx context.Context, key string) (string, error) {
	return "", errTransient
}

func TestSweepPurgesInvalidRecords(t *testing.T) {
	store := cache.NewMemoryStore()
	svc, _ := newTestService(store)
	ctx := context.Background()

	valid, _ := json.Marshal(models.GuestSession{UserID: "guest-1", Canal: "whatsapp", State: "browsing"})
	require.NoError(t, store.Set(ctx, "session:guest-1", string(valid), time.Hour))
	require.NoError(t, store.Set(ctx, "session:guest-2", "{broken", time.Hour))
	partial, _ := json.Marshal(map[string]string{"userId": "guest-3"})
	require.NoError(t, store.Set(ctx, "session:guest-3", string(partial), time.Hour))
	// Non-session keys are left alone.
	require.NoError(t, store.Set(ctx, "availability:2025-06-01:2025-06-03:2:any", "[]", time.Hour))

	purged, active, err := svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, purged)
	assert.Equal(t, 1, active)

	_, err = store.Get(ctx, "session:guest-1")
	assert.NoError(t, err)
	_, err = store.Get(ctx, "session:guest-2")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
	_, err = store.Get(ctx, "availability:2025-06-01:2025-06-03:2:any")
	assert.NoError(t, err)
}

func TestSweepHandlesManyPages(t *testing.T) {
	store := cache.NewMemoryStore()
	svc, _ := newTestService(store)
	ctx := context.Background()

	for i := 0; i < 250; i++ {
		record, _ := json.Marshal(models.GuestSession{
			UserID: fmt.Sprintf("guest-%d", i), Canal: "whatsapp", State: "browsing",
		})
		require.NoError(t, store.Set(ctx, fmt.Sprintf("session:guest-%d", i), string(record), time.Hour))
	}

	purged, active, err := svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, purged)
	assert.Equal(t, 250, active)
}
