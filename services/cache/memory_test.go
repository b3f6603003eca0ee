package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreGetSetDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, store.Set(ctx, "k1", "v1", time.Hour))
	val, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "v1", val)

	require.NoError(t, store.Delete(ctx, "k1"))
	_, err = store.Get(ctx, "k1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "short", "v", time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, err := store.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestScanPaginates(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		require.NoError(t, store.Set(ctx, fmt.Sprintf("availability:%02d", i), "[]", time.Hour))
	}
	require.NoError(t, store.Set(ctx, "session:guest-1", "{}", time.Hour))

	var (
		cursor uint64
		seen   []string
		pages  int
	)
	for {
		keys, next, err := store.Scan(ctx, "availability:*", cursor, 10)
		require.NoError(t, err)
		seen = append(seen, keys...)
		pages++
		if next == 0 {
			break
		}
		cursor = next
	}

	assert.Len(t, seen, 25)
	assert.Equal(t, 3, pages)
}

func TestDeletePatternWalksAllPages(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 250; i++ {
		require.NoError(t, store.Set(ctx, fmt.Sprintf("availability:%03d", i), "[]", time.Hour))
	}
	require.NoError(t, store.Set(ctx, "resvlock:room-5:a:b", "{}", time.Hour))

	deleted, err := store.DeletePattern(ctx, "availability:*")
	require.NoError(t, err)
	assert.Equal(t, 250, deleted)

	keys := store.Keys()
	assert.Equal(t, []string{"resvlock:room-5:a:b"}, keys)
}
