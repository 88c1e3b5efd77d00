package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireLoginLock attempts to acquire the login lock for a conductor.
// Serializes logins racing in from multiple devices; the database
// transaction remains the authority on the exclusive-active invariant.
// Returns true if the lock was acquired, false if already held.
func (s *LockStore) AcquireLoginLock(ctx context.Context, conductorID string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:login:%s", conductorID)

	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// ReleaseLoginLock releases the login lock for the given conductor.
func (s *LockStore) ReleaseLoginLock(ctx context.Context, conductorID string) error {
	key := fmt.Sprintf("lock:login:%s", conductorID)

	return s.client.Del(ctx, key).Err()
}
