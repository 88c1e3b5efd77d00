package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheStore handles entity caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// Cache TTL constants
const (
	TicketCacheTTL  = 15 * time.Second // ticket state changes on every verification action
	SessionCacheTTL = 30 * time.Second // sessions change on login/logout only
)

// Key prefixes
const (
	ticketCachePrefix  = "cache:ticket:"
	sessionCachePrefix = "cache:session:"
)

// CachedTicket is the full ticket snapshot kept for fast re-scans. It
// carries every field a scan response needs so a cache hit never touches
// the database.
type CachedTicket struct {
	TicketCode             string    `json:"ticket_code"`
	RouteID                string    `json:"route_id"`
	PassengerID            string    `json:"passenger_id"`
	PassengerName          string    `json:"passenger_name"`
	IntendedStationID      string    `json:"intended_station_id"`
	ActualDropoffStationID string    `json:"actual_dropoff_station_id"`
	TotalFare              float64   `json:"total_fare"`
	Currency               string    `json:"currency"`
	PaymentStatus          string    `json:"payment_status"`
	BoardingConfirmed      bool      `json:"boarding_confirmed"`
	BoardingTime           time.Time `json:"boarding_time"`
	DropoffConfirmed       bool      `json:"dropoff_confirmed"`
	DropoffTime            time.Time `json:"dropoff_time"`
	VerifyingConductorID   string    `json:"verifying_conductor_id"`
	Notes                  string    `json:"notes"`
	IssuedAt               time.Time `json:"issued_at"`
}

// CachedSession is the active-session snapshot keyed by conductor ID.
type CachedSession struct {
	SessionID   string `json:"session_id"`
	ConductorID string `json:"conductor_id"`
	RouteID     string `json:"route_id"`
	BusID       string `json:"bus_id"`
}

// GetTicket retrieves a ticket snapshot from cache.
func (s *CacheStore) GetTicket(ctx context.Context, ticketCode string) (*CachedTicket, error) {
	key := ticketCachePrefix + ticketCode
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var ticket CachedTicket
	if err := json.Unmarshal(data, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// SetTicket stores a ticket snapshot in cache.
func (s *CacheStore) SetTicket(ctx context.Context, ticket *CachedTicket) error {
	key := ticketCachePrefix + ticket.TicketCode
	data, err := json.Marshal(ticket)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, TicketCacheTTL).Err()
}

// InvalidateTicket removes a ticket snapshot from cache. Called after
// every mutation so a re-scan reads the authoritative row.
func (s *CacheStore) InvalidateTicket(ctx context.Context, ticketCode string) error {
	key := ticketCachePrefix + ticketCode
	return s.client.Del(ctx, key).Err()
}

// GetSession retrieves the cached active session for a conductor.
func (s *CacheStore) GetSession(ctx context.Context, conductorID string) (*CachedSession, error) {
	key := sessionCachePrefix + conductorID
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var session CachedSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// SetSession stores the active session snapshot for a conductor.
func (s *CacheStore) SetSession(ctx context.Context, session *CachedSession) error {
	key := sessionCachePrefix + session.ConductorID
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, SessionCacheTTL).Err()
}

// InvalidateSession removes the session snapshot for a conductor.
func (s *CacheStore) InvalidateSession(ctx context.Context, conductorID string) error {
	key := sessionCachePrefix + conductorID
	return s.client.Del(ctx, key).Err()
}
