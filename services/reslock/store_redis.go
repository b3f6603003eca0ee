package reslock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"innkeeper/models"

	"github.com/go-redis/redis/v8"
)

// acquireScript performs the conflict check and the write in one atomic Redis
// call. It walks every lock for the room, compares half-open intervals, and
// only writes when nothing overlaps.
var acquireScript = redis.NewScript(`
local pattern = ARGV[1]
local newIn = tonumber(ARGV[2])
local newOut = tonumber(ARGV[3])
local cursor = "0"
repeat
  local res = redis.call("SCAN", cursor, "MATCH", pattern, "COUNT", 100)
  cursor = res[1]
  for _, key in ipairs(res[2]) do
    local raw = redis.call("GET", key)
    if raw then
      local ok, lock = pcall(cjson.decode, raw)
      if ok and lock.checkInUnix < newOut and newIn < lock.checkOutUnix then
        return 0
      end
    end
  end
until cursor == "0"
redis.call("SET", KEYS[1], ARGV[4], "PX", ARGV[5])
return 1
`)

type redisLockStore struct {
	client *redis.Client
}

// NewRedisLockStore wraps a Redis client as a LockStore.
func NewRedisLockStore(client *redis.Client) LockStore {
	return &redisLockStore{client: client}
}

func (s *redisLockStore) AcquireIfFree(ctx context.Context, lock models.ReservationLock, ttl time.Duration) (bool, error) {
	payload, err := json.Marshal(lock)
	if err != nil {
		return false, fmt.Errorf("failed to marshal reservation lock: %w", err)
	}

	pattern := lockKeyPrefix + lock.RoomID + ":*"
	res, err := acquireScript.Run(ctx, s.client,
		[]string{lock.LockKey},
		pattern, lock.CheckInUnix, lock.CheckOutUnix, string(payload), ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func (s *redisLockStore) Get(ctx context.Context, lockKey string) (*models.ReservationLock, error) {
	raw, err := s.client.Get(ctx, lockKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var lock models.ReservationLock
	if err := json.Unmarshal([]byte(raw), &lock); err != nil {
		return nil, fmt.Errorf("failed to parse reservation lock: %w", err)
	}
	return &lock, nil
}

func (s *redisLockStore) Save(ctx context.Context, lock models.ReservationLock, ttl time.Duration) error {
	payload, err := json.Marshal(lock)
	if err != nil {
		return fmt.Errorf("failed to marshal reservation lock: %w", err)
	}
	return s.client.Set(ctx, lock.LockKey, payload, ttl).Err()
}

func (s *redisLockStore) Delete(ctx context.Context, lockKey string) (bool, error) {
	n, err := s.client.Del(ctx, lockKey).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
