package redis

import (
	"context"
	"time"
)

// PresenceStoreInterface defines the interface for conductor presence operations.
type PresenceStoreInterface interface {
	Update(ctx context.Context, conductorID, location string, at time.Time) error
	Get(ctx context.Context, conductorID string) (*ConductorPresence, error)
	Remove(ctx context.Context, conductorID string) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireLoginLock(ctx context.Context, conductorID string, ttl time.Duration) (bool, error)
	ReleaseLoginLock(ctx context.Context, conductorID string) error
}

// CacheStoreInterface defines the interface for entity snapshot caching.
type CacheStoreInterface interface {
	GetTicket(ctx context.Context, ticketCode string) (*CachedTicket, error)
	SetTicket(ctx context.Context, ticket *CachedTicket) error
	InvalidateTicket(ctx context.Context, ticketCode string) error
	GetSession(ctx context.Context, conductorID string) (*CachedSession, error)
	SetSession(ctx context.Context, session *CachedSession) error
	InvalidateSession(ctx context.Context, conductorID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ PresenceStoreInterface = (*PresenceStore)(nil)
	_ LockStoreInterface     = (*LockStore)(nil)
	_ CacheStoreInterface    = (*CacheStore)(nil)
)
