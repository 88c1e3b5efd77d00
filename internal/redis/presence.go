package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	presenceKeyPrefix = "conductors:presence:"
	presenceTTL       = 5 * time.Minute
)

// ConductorPresence is the fast-path view of a conductor's last reported
// position. The session row in the database stays authoritative; this is
// a best-effort live view for dashboards.
type ConductorPresence struct {
	ConductorID string
	Location    string
	PingTime    time.Time
}

// PresenceStore keeps conductor presence in Redis.
type PresenceStore struct {
	client *redis.Client
}

// NewPresenceStore creates a new PresenceStore.
func NewPresenceStore(client *redis.Client) *PresenceStore {
	return &PresenceStore{client: client}
}

// Update records the conductor's location and ping time. The entry
// expires on its own if pings stop.
func (s *PresenceStore) Update(ctx context.Context, conductorID, location string, at time.Time) error {
	key := presenceKeyPrefix + conductorID

	if err := s.client.HSet(ctx, key, map[string]any{
		"location":  location,
		"ping_time": at.Format(time.RFC3339),
	}).Err(); err != nil {
		return err
	}

	return s.client.Expire(ctx, key, presenceTTL).Err()
}

// Get retrieves the presence entry for a conductor, or nil if absent.
func (s *PresenceStore) Get(ctx context.Context, conductorID string) (*ConductorPresence, error) {
	key := presenceKeyPrefix + conductorID

	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}

	presence := &ConductorPresence{
		ConductorID: conductorID,
		Location:    fields["location"],
	}
	if raw, ok := fields["ping_time"]; ok {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			presence.PingTime = t
		}
	}

	return presence, nil
}

// Remove deletes the presence entry, used on logout.
func (s *PresenceStore) Remove(ctx context.Context, conductorID string) error {
	return s.client.Del(ctx, presenceKeyPrefix+conductorID).Err()
}
