package tests

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"faregate/internal/domain"
	"faregate/internal/fare"
	"faregate/internal/redis"
	"faregate/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK TICKET REPOSITORY
// ──────────────────────────────────────────────

// MockTicketRepository is a mock implementation of TicketRepository.
// Mutations check their precondition and apply under one mutex hold,
// mirroring the conditional-update semantics of the real store.
type MockTicketRepository struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket

	// Counters for verification
	FindCallCount            int32
	ConfirmBoardingCallCount int32
	ConfirmDropoffCallCount  int32
	ChangeDropoffCallCount   int32

	// Error injection
	FindError   error
	MutateError error
}

// NewMockTicketRepository creates a new mock ticket repository.
func NewMockTicketRepository() *MockTicketRepository {
	return &MockTicketRepository{
		tickets: make(map[string]*domain.Ticket),
	}
}

// AddTicket adds a ticket to the mock repository.
func (m *MockTicketRepository) AddTicket(ticket *domain.Ticket) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets[ticket.TicketCode] = ticket
}

func (m *MockTicketRepository) FindByCode(ctx context.Context, ticketCode string) (*domain.Ticket, error) {
	atomic.AddInt32(&m.FindCallCount, 1)
	if m.FindError != nil {
		return nil, m.FindError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ticket, ok := m.tickets[ticketCode]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *ticket
	return &copy, nil
}

func (m *MockTicketRepository) ConfirmBoarding(ctx context.Context, ticketCode, conductorID string, now time.Time) (*domain.Ticket, error) {
	atomic.AddInt32(&m.ConfirmBoardingCallCount, 1)
	if m.MutateError != nil {
		return nil, m.MutateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ticket, ok := m.tickets[ticketCode]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if ticket.BoardingConfirmed {
		return nil, repository.ErrAlreadyBoarded
	}
	ticket.BoardingConfirmed = true
	ticket.BoardingTime = now
	ticket.VerifyingConductorID = conductorID
	copy := *ticket
	return &copy, nil
}

func (m *MockTicketRepository) ConfirmDropoff(ctx context.Context, ticketCode, stationID, notes string, now time.Time) (*domain.Ticket, error) {
	atomic.AddInt32(&m.ConfirmDropoffCallCount, 1)
	if m.MutateError != nil {
		return nil, m.MutateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ticket, ok := m.tickets[ticketCode]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if ticket.DropoffConfirmed {
		return nil, repository.ErrAlreadyDroppedOff
	}
	if !ticket.BoardingConfirmed {
		return nil, repository.ErrNotYetBoarded
	}
	ticket.ActualDropoffStationID = stationID
	ticket.DropoffConfirmed = true
	ticket.DropoffTime = now
	if notes != "" {
		ticket.Notes = notes
	}
	copy := *ticket
	return &copy, nil
}

func (m *MockTicketRepository) ChangeDropoff(ctx context.Context, ticketCode, newStationID, notes string, additionalFare float64) (*domain.Ticket, error) {
	atomic.AddInt32(&m.ChangeDropoffCallCount, 1)
	if m.MutateError != nil {
		return nil, m.MutateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ticket, ok := m.tickets[ticketCode]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if ticket.DropoffConfirmed {
		return nil, repository.ErrDropoffAlreadyConfirmed
	}
	ticket.ActualDropoffStationID = newStationID
	ticket.TotalFare += additionalFare
	if notes != "" {
		ticket.Notes = notes
	}
	copy := *ticket
	return &copy, nil
}

func (m *MockTicketRepository) ListBoardedByRoute(ctx context.Context, routeID string, from, to time.Time) ([]*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.Ticket
	for _, t := range m.tickets {
		if t.RouteID != routeID {
			continue
		}
		if t.PaymentStatus != domain.PaymentStatusPaid {
			continue
		}
		if !t.BoardingConfirmed || t.DropoffConfirmed {
			continue
		}
		if t.IssuedAt.Before(from) || !t.IssuedAt.Before(to) {
			continue
		}
		copy := *t
		result = append(result, &copy)
	}
	// Ascending boarding time, matching the store's ORDER BY.
	for i := 1; i < len(result); i++ {
		for j := i; j > 0 && result[j].BoardingTime.Before(result[j-1].BoardingTime); j-- {
			result[j], result[j-1] = result[j-1], result[j]
		}
	}
	return result, nil
}

// GetTicket returns the ticket by code (for test assertions).
func (m *MockTicketRepository) GetTicket(code string) *domain.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tickets[code]
}

// ──────────────────────────────────────────────
// MOCK SESSION REPOSITORY
// ──────────────────────────────────────────────

// MockSessionRepository is a mock implementation of SessionRepository.
// Login deactivates and creates under a single mutex hold, like the real
// repository's transaction.
type MockSessionRepository struct {
	mu       sync.Mutex
	sessions map[string]*domain.ConductorSession // by session ID

	// Counters
	LoginCallCount      int32
	GetActiveCallCount  int32
	DeactivateCallCount int32

	// Error injection
	LoginError error
	PingError  error
}

// NewMockSessionRepository creates a new mock session repository.
func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{
		sessions: make(map[string]*domain.ConductorSession),
	}
}

// AddSession adds a session to the mock repository.
func (m *MockSessionRepository) AddSession(session *domain.ConductorSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.SessionID] = session
}

func (m *MockSessionRepository) Login(ctx context.Context, session *domain.ConductorSession) error {
	atomic.AddInt32(&m.LoginCallCount, 1)
	if m.LoginError != nil {
		return m.LoginError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.ConductorID == session.ConductorID && s.IsActive {
			s.IsActive = false
			s.ShiftEndTime = session.LoginTime
		}
	}
	copy := *session
	m.sessions[session.SessionID] = &copy
	return nil
}

func (m *MockSessionRepository) GetActiveByConductorID(ctx context.Context, conductorID string) (*domain.ConductorSession, error) {
	atomic.AddInt32(&m.GetActiveCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.ConductorID == conductorID && s.IsActive {
			copy := *s
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockSessionRepository) Deactivate(ctx context.Context, conductorID string, now time.Time) (int64, error) {
	atomic.AddInt32(&m.DeactivateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, s := range m.sessions {
		if s.ConductorID == conductorID && s.IsActive {
			s.IsActive = false
			s.ShiftEndTime = now
			count++
		}
	}
	return count, nil
}

func (m *MockSessionRepository) UpdatePing(ctx context.Context, conductorID, location string, now time.Time) error {
	if m.PingError != nil {
		return m.PingError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.ConductorID == conductorID && s.IsActive {
			s.CurrentLocation = location
			s.LastPingTime = now
			return nil
		}
	}
	return repository.ErrNotFound
}

// CountActiveSessions counts active sessions for a conductor.
func (m *MockSessionRepository) CountActiveSessions(conductorID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, s := range m.sessions {
		if s.ConductorID == conductorID && s.IsActive {
			count++
		}
	}
	return count
}

// GetSession returns a session by ID (for test assertions).
func (m *MockSessionRepository) GetSession(sessionID string) *domain.ConductorSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[sessionID]
}

// ──────────────────────────────────────────────
// MOCK CONDUCTOR REPOSITORY
// ──────────────────────────────────────────────

// MockConductorRepository is a mock implementation of ConductorRepository.
type MockConductorRepository struct {
	mu         sync.RWMutex
	conductors map[string]*domain.Conductor
}

// NewMockConductorRepository creates a new mock conductor repository.
func NewMockConductorRepository() *MockConductorRepository {
	return &MockConductorRepository{
		conductors: make(map[string]*domain.Conductor),
	}
}

// AddConductor adds a conductor to the mock repository.
func (m *MockConductorRepository) AddConductor(conductor *domain.Conductor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conductors[conductor.ID] = conductor
}

func (m *MockConductorRepository) GetByID(ctx context.Context, id string) (*domain.Conductor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conductor, ok := m.conductors[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *conductor
	return &copy, nil
}

// ──────────────────────────────────────────────
// MOCK CATALOG REPOSITORY
// ──────────────────────────────────────────────

// MockCatalogRepository is a mock implementation of CatalogRepository.
type MockCatalogRepository struct {
	mu       sync.RWMutex
	routes   map[string]*domain.Route
	stations map[string]*domain.Station
	rules    map[string][]fare.SurchargeRule
}

// NewMockCatalogRepository creates a new mock catalogue repository.
func NewMockCatalogRepository() *MockCatalogRepository {
	return &MockCatalogRepository{
		routes:   make(map[string]*domain.Route),
		stations: make(map[string]*domain.Station),
		rules:    make(map[string][]fare.SurchargeRule),
	}
}

// AddRoute adds a route to the mock catalogue.
func (m *MockCatalogRepository) AddRoute(route *domain.Route) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[route.RouteID] = route
}

// AddStation adds a station to the mock catalogue.
func (m *MockCatalogRepository) AddStation(station *domain.Station) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stations[station.StationID] = station
}

// SetSurchargeRules sets the surcharge rules for a route.
func (m *MockCatalogRepository) SetSurchargeRules(routeID string, rules []fare.SurchargeRule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[routeID] = rules
}

func (m *MockCatalogRepository) GetRoute(ctx context.Context, routeID string) (*domain.Route, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	route, ok := m.routes[routeID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *route
	return &copy, nil
}

func (m *MockCatalogRepository) GetStation(ctx context.Context, stationID string) (*domain.Station, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	station, ok := m.stations[stationID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *station
	return &copy, nil
}

func (m *MockCatalogRepository) ListStationsByRoute(ctx context.Context, routeID string) ([]*domain.Station, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Station
	for _, s := range m.stations {
		if s.RouteID == routeID {
			copy := *s
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockCatalogRepository) GetSurchargeRules(ctx context.Context, routeID string) ([]fare.SurchargeRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rules[routeID], nil
}

// ──────────────────────────────────────────────
// MOCK CREDENTIAL VERIFIER
// ──────────────────────────────────────────────

// MockCredentialVerifier is a configurable credential verifier.
type MockCredentialVerifier struct {
	mu sync.Mutex

	// Control behavior
	Reject      bool
	VerifyError error

	// Counters
	VerifyCallCount int32
}

// NewMockCredentialVerifier creates a verifier that accepts everything.
func NewMockCredentialVerifier() *MockCredentialVerifier {
	return &MockCredentialVerifier{}
}

func (m *MockCredentialVerifier) Verify(ctx context.Context, conductorID, pin string) (bool, error) {
	atomic.AddInt32(&m.VerifyCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.VerifyError != nil {
		return false, m.VerifyError
	}
	return !m.Reject, nil
}

// ──────────────────────────────────────────────
// MOCK WALLET LEDGER
// ──────────────────────────────────────────────

// MockWalletLedger records debit/credit calls.
type MockWalletLedger struct {
	mu sync.Mutex

	// Control behavior
	DebitError error

	// Counters and captured arguments
	DebitCallCount int32
	LastDebitID    string
	LastDebit      float64
}

// NewMockWalletLedger creates a new mock wallet ledger.
func NewMockWalletLedger() *MockWalletLedger {
	return &MockWalletLedger{}
}

func (m *MockWalletLedger) Debit(ctx context.Context, passengerID string, amount float64, currency string) error {
	atomic.AddInt32(&m.DebitCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DebitError != nil {
		return m.DebitError
	}
	m.LastDebitID = passengerID
	m.LastDebit = amount
	return nil
}

func (m *MockWalletLedger) Credit(ctx context.Context, passengerID string, amount float64, currency string) error {
	return nil
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStore.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]time.Time

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Force lock failure
	ForceAcquireFailure bool
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]time.Time),
	}
}

func (m *MockLockStore) AcquireLoginLock(ctx context.Context, conductorID string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.ForceAcquireFailure {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := "lock:login:" + conductorID
	if expiry, exists := m.locks[key]; exists {
		if time.Now().Before(expiry) {
			return false, nil // Lock still held.
		}
	}

	m.locks[key] = time.Now().Add(ttl)
	return true, nil
}

func (m *MockLockStore) ReleaseLoginLock(ctx context.Context, conductorID string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, "lock:login:"+conductorID)
	return nil
}

// ──────────────────────────────────────────────
// MOCK CACHE STORE
// ──────────────────────────────────────────────

// MockCacheStore is a mock implementation of CacheStore.
type MockCacheStore struct {
	mu       sync.Mutex
	tickets  map[string]*redis.CachedTicket
	sessions map[string]*redis.CachedSession

	// Counters
	SetTicketCallCount  int32
	SetSessionCallCount int32
}

// NewMockCacheStore creates a new mock cache store.
func NewMockCacheStore() *MockCacheStore {
	return &MockCacheStore{
		tickets:  make(map[string]*redis.CachedTicket),
		sessions: make(map[string]*redis.CachedSession),
	}
}

func (m *MockCacheStore) GetTicket(ctx context.Context, ticketCode string) (*redis.CachedTicket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ticket, ok := m.tickets[ticketCode]
	if !ok {
		return nil, nil
	}
	copy := *ticket
	return &copy, nil
}

func (m *MockCacheStore) SetTicket(ctx context.Context, ticket *redis.CachedTicket) error {
	atomic.AddInt32(&m.SetTicketCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *ticket
	m.tickets[ticket.TicketCode] = &copy
	return nil
}

func (m *MockCacheStore) InvalidateTicket(ctx context.Context, ticketCode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tickets, ticketCode)
	return nil
}

func (m *MockCacheStore) GetSession(ctx context.Context, conductorID string) (*redis.CachedSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[conductorID]
	if !ok {
		return nil, nil
	}
	copy := *session
	return &copy, nil
}

func (m *MockCacheStore) SetSession(ctx context.Context, session *redis.CachedSession) error {
	atomic.AddInt32(&m.SetSessionCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *session
	m.sessions[session.ConductorID] = &copy
	return nil
}

func (m *MockCacheStore) InvalidateSession(ctx context.Context, conductorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, conductorID)
	return nil
}

// HasTicket checks if a ticket snapshot is cached (for test assertions).
func (m *MockCacheStore) HasTicket(ticketCode string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tickets[ticketCode]
	return ok
}

// HasSession checks if a session snapshot is cached (for test assertions).
func (m *MockCacheStore) HasSession(conductorID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[conductorID]
	return ok
}

// ──────────────────────────────────────────────
// MOCK PRESENCE STORE
// ──────────────────────────────────────────────

// MockPresenceStore is a mock implementation of PresenceStore.
type MockPresenceStore struct {
	mu       sync.Mutex
	presence map[string]*redis.ConductorPresence

	// Counters
	UpdateCallCount int32
	RemoveCallCount int32
}

// NewMockPresenceStore creates a new mock presence store.
func NewMockPresenceStore() *MockPresenceStore {
	return &MockPresenceStore{
		presence: make(map[string]*redis.ConductorPresence),
	}
}

func (m *MockPresenceStore) Update(ctx context.Context, conductorID, location string, at time.Time) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.presence[conductorID] = &redis.ConductorPresence{
		ConductorID: conductorID,
		Location:    location,
		PingTime:    at,
	}
	return nil
}

func (m *MockPresenceStore) Get(ctx context.Context, conductorID string) (*redis.ConductorPresence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.presence[conductorID], nil
}

func (m *MockPresenceStore) Remove(ctx context.Context, conductorID string) error {
	atomic.AddInt32(&m.RemoveCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.presence, conductorID)
	return nil
}

// HasPresence checks if a presence entry exists (for test assertions).
func (m *MockPresenceStore) HasPresence(conductorID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.presence[conductorID]
	return ok
}
