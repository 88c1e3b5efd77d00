package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"faregate/internal/domain"
	"faregate/internal/redis"
	"faregate/internal/repository"
)

const loginLockTTL = 5 * time.Second

// CredentialVerifier checks conductor credentials. Credential issuance and
// storage belong to an external identity collaborator; this service only
// asks for a verdict.
type CredentialVerifier interface {
	Verify(ctx context.Context, conductorID, pin string) (bool, error)
}

// MockCredentialVerifier accepts any non-empty PIN. Stands in for the
// external identity collaborator.
type MockCredentialVerifier struct{}

// NewMockCredentialVerifier creates a new mock credential verifier.
func NewMockCredentialVerifier() *MockCredentialVerifier {
	return &MockCredentialVerifier{}
}

// Verify accepts any non-empty PIN.
func (v *MockCredentialVerifier) Verify(ctx context.Context, conductorID, pin string) (bool, error) {
	return pin != "", nil
}

// SessionService manages conductor duty sessions. It enforces the
// exclusive-active invariant: at most one active session per conductor.
type SessionService struct {
	sessionRepo   repository.SessionRepository
	conductorRepo repository.ConductorRepository
	credentials   CredentialVerifier
	lockStore     redis.LockStoreInterface
	presenceStore redis.PresenceStoreInterface
	cacheStore    redis.CacheStoreInterface
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	sessionRepo repository.SessionRepository,
	conductorRepo repository.ConductorRepository,
	credentials CredentialVerifier,
	lockStore redis.LockStoreInterface,
	presenceStore redis.PresenceStoreInterface,
	cacheStore redis.CacheStoreInterface,
) *SessionService {
	return &SessionService{
		sessionRepo:   sessionRepo,
		conductorRepo: conductorRepo,
		credentials:   credentials,
		lockStore:     lockStore,
		presenceStore: presenceStore,
		cacheStore:    cacheStore,
	}
}

// LoginRequest contains the parameters for opening a duty session.
type LoginRequest struct {
	ConductorID string
	PIN         string
	RouteID     string // optional; conductor's default route when empty
	BusID       string // optional; conductor's default bus when empty
}

// Login validates credentials and opens a new duty session, superseding
// any session already active for the conductor. Deactivation of the old
// session and creation of the new one commit together.
func (s *SessionService) Login(ctx context.Context, req LoginRequest) (*domain.ConductorSession, error) {
	if req.ConductorID == "" {
		return nil, ErrInvalidConductorID
	}

	if req.PIN == "" {
		return nil, ErrInvalidPIN
	}

	ok, err := s.credentials.Verify(ctx, req.ConductorID, req.PIN)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	conductor, err := s.conductorRepo.GetByID(ctx, req.ConductorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	routeID := req.RouteID
	if routeID == "" {
		routeID = conductor.DefaultRouteID
	}
	busID := req.BusID
	if busID == "" {
		busID = conductor.DefaultBusID
	}

	// Serialize concurrent logins from multiple devices. The transaction
	// below keeps the invariant correct either way; the lock just turns a
	// doomed race into a clean conflict response.
	if s.lockStore != nil {
		acquired, err := s.lockStore.AcquireLoginLock(ctx, req.ConductorID, loginLockTTL)
		if err == nil && !acquired {
			return nil, ErrLoginInProgress
		}
		if err == nil {
			defer func() { _ = s.lockStore.ReleaseLoginLock(ctx, req.ConductorID) }()
		}
	}

	now := time.Now()
	session := &domain.ConductorSession{
		SessionID:     uuid.New().String(),
		ConductorID:   conductor.ID,
		ConductorName: conductor.Name,
		RouteID:       routeID,
		BusID:         busID,
		IsActive:      true,
		LoginTime:     now,
		LastPingTime:  now,
	}

	if err := s.sessionRepo.Login(ctx, session); err != nil {
		return nil, err
	}

	if s.cacheStore != nil {
		_ = s.cacheStore.SetSession(ctx, &redis.CachedSession{
			SessionID:   session.SessionID,
			ConductorID: session.ConductorID,
			RouteID:     session.RouteID,
			BusID:       session.BusID,
		})
	}

	return session, nil
}

// GetActiveSession returns the conductor's active session. When the Redis
// presence view holds a ping fresher than the session row, its location
// and ping time are overlaid on the result.
func (s *SessionService) GetActiveSession(ctx context.Context, conductorID string) (*domain.ConductorSession, error) {
	if conductorID == "" {
		return nil, ErrInvalidConductorID
	}

	session, err := s.sessionRepo.GetActiveByConductorID(ctx, conductorID)
	if err != nil {
		return nil, err
	}

	if s.presenceStore != nil {
		if presence, perr := s.presenceStore.Get(ctx, conductorID); perr == nil && presence != nil && presence.PingTime.After(session.LastPingTime) {
			session.CurrentLocation = presence.Location
			session.LastPingTime = presence.PingTime
		}
	}

	return session, nil
}

// Logout deactivates the conductor's active session. Idempotent: logging
// out with no active session is a no-op success.
func (s *SessionService) Logout(ctx context.Context, conductorID string) error {
	if conductorID == "" {
		return ErrInvalidConductorID
	}

	if _, err := s.sessionRepo.Deactivate(ctx, conductorID, time.Now()); err != nil {
		return err
	}

	if s.cacheStore != nil {
		_ = s.cacheStore.InvalidateSession(ctx, conductorID)
	}
	if s.presenceStore != nil {
		_ = s.presenceStore.Remove(ctx, conductorID)
	}

	return nil
}

// UpdatePing records the conductor's reported location on the active
// session and refreshes the Redis presence view. The location string is
// opaque; it is persisted, never validated.
func (s *SessionService) UpdatePing(ctx context.Context, conductorID, location string) error {
	if conductorID == "" {
		return ErrInvalidConductorID
	}

	if location == "" {
		return ErrInvalidLocation
	}

	now := time.Now()
	if err := s.sessionRepo.UpdatePing(ctx, conductorID, location, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNoActiveSession
		}
		return err
	}

	if s.presenceStore != nil {
		_ = s.presenceStore.Update(ctx, conductorID, location, now)
	}

	return nil
}
