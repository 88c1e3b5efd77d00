package service

import (
	"context"
	"errors"
	"time"

	"faregate/internal/domain"
	"faregate/internal/fare"
	"faregate/internal/redis"
	"faregate/internal/repository"
)

// VerificationAction is a conductor action against a scanned ticket.
type VerificationAction string

const (
	ActionScan            VerificationAction = "SCAN"
	ActionConfirmBoarding VerificationAction = "CONFIRM_BOARDING"
	ActionConfirmDropoff  VerificationAction = "CONFIRM_DROPOFF"
	ActionChangeDropoff   VerificationAction = "CHANGE_DROPOFF"
)

// FareDeltaPolicy decides the fare adjustment applied on a drop-off
// change. The verifier never computes the delta itself; swapping the
// policy swaps the pricing behavior.
type FareDeltaPolicy interface {
	Delta(ctx context.Context, ticket *domain.Ticket, newStation *domain.Station, requested float64, at time.Time) (float64, error)
}

// CallerSuppliedDelta trusts the client-provided additional fare. This is
// the observed production behavior. Negative deltas are rejected; the
// fare only ever increases on a destination change.
type CallerSuppliedDelta struct{}

// Delta returns the requested amount unchanged.
func (CallerSuppliedDelta) Delta(ctx context.Context, ticket *domain.Ticket, newStation *domain.Station, requested float64, at time.Time) (float64, error) {
	if requested < 0 {
		return 0, ErrInvalidFareDelta
	}
	return requested, nil
}

// RecomputedDelta derives the additional fare server-side from the
// station delta and the route's surcharge rules, ignoring the requested
// amount. Substitutable for CallerSuppliedDelta once the client-supplied
// delta is no longer trusted.
type RecomputedDelta struct {
	catalog     repository.CatalogRepository
	perStopFare float64
}

// NewRecomputedDelta creates a RecomputedDelta with the given per-stop
// distance rate.
func NewRecomputedDelta(catalog repository.CatalogRepository, perStopFare float64) *RecomputedDelta {
	return &RecomputedDelta{catalog: catalog, perStopFare: perStopFare}
}

// Delta prices the stretch between the current and new drop-off stations
// under the rules active at the change time.
func (p *RecomputedDelta) Delta(ctx context.Context, ticket *domain.Ticket, newStation *domain.Station, requested float64, at time.Time) (float64, error) {
	currentStationID := ticket.ActualDropoffStationID
	if currentStationID == "" {
		currentStationID = ticket.IntendedStationID
	}

	stations, err := p.catalog.ListStationsByRoute(ctx, ticket.RouteID)
	if err != nil {
		return 0, err
	}

	currentOrder := 0
	for _, station := range stations {
		if station.StationID == currentStationID {
			currentOrder = station.OrderOnRoute
			break
		}
	}
	if currentOrder == 0 {
		return 0, ErrStationNotOnRoute
	}

	extraStops := newStation.OrderOnRoute - currentOrder
	if extraStops <= 0 {
		// Moving closer never reduces the fare; no refund logic exists.
		return 0, nil
	}

	rules, err := p.catalog.GetSurchargeRules(ctx, ticket.RouteID)
	if err != nil {
		return 0, err
	}

	calc := fare.NewCalculator(rules)
	// Base fare was already paid; only the extra distance is priced.
	return calc.Compute(0, float64(extraStops)*p.perStopFare, at)
}

// VerifierService is the boarding verification state machine. Every
// action requires an active conductor session on the ticket's route.
type VerifierService struct {
	ticketRepo  repository.TicketRepository
	sessionRepo repository.SessionRepository
	catalogRepo repository.CatalogRepository
	wallet      WalletLedger
	fareDelta   FareDeltaPolicy
	cacheStore  redis.CacheStoreInterface
}

// NewVerifierService creates a new VerifierService.
func NewVerifierService(
	ticketRepo repository.TicketRepository,
	sessionRepo repository.SessionRepository,
	catalogRepo repository.CatalogRepository,
	wallet WalletLedger,
	fareDelta FareDeltaPolicy,
	cacheStore redis.CacheStoreInterface,
) *VerifierService {
	return &VerifierService{
		ticketRepo:  ticketRepo,
		sessionRepo: sessionRepo,
		catalogRepo: catalogRepo,
		wallet:      wallet,
		fareDelta:   fareDelta,
		cacheStore:  cacheStore,
	}
}

// VerifyTicketRequest contains the parameters for a verification action.
type VerifyTicketRequest struct {
	ConductorID    string
	TicketCode     string
	Action         VerificationAction
	NewStationID   string  // CONFIRM_DROPOFF override / CHANGE_DROPOFF target
	AdditionalFare float64 // CHANGE_DROPOFF only
	Notes          string
}

// VerifyTicket runs one verification action. Precondition violations
// surface as typed errors; nothing is retried - the conductor client is
// expected to re-scan and resubmit.
func (s *VerifierService) VerifyTicket(ctx context.Context, req VerifyTicketRequest) (*domain.Ticket, error) {
	if req.ConductorID == "" {
		return nil, ErrInvalidConductorID
	}

	if req.TicketCode == "" {
		return nil, ErrInvalidTicketCode
	}

	session, err := s.activeSession(ctx, req.ConductorID)
	if err != nil {
		return nil, err
	}

	// Re-scans are served from the snapshot cache; every other action
	// reads the authoritative row.
	if req.Action == ActionScan && s.cacheStore != nil {
		if cached, cerr := s.cacheStore.GetTicket(ctx, req.TicketCode); cerr == nil && cached != nil {
			if session.RouteID != cached.RouteID {
				return nil, ErrWrongRoute
			}
			return ticketFromCached(cached), nil
		}
	}

	ticket, err := s.ticketRepo.FindByCode(ctx, req.TicketCode)
	if err != nil {
		return nil, err
	}

	// A conductor may only verify tickets on the route they are on duty
	// for. Checked before any mutation.
	if session.RouteID != ticket.RouteID {
		return nil, ErrWrongRoute
	}

	switch req.Action {
	case ActionScan:
		return s.scan(ctx, ticket)
	case ActionConfirmBoarding:
		return s.confirmBoarding(ctx, req, session)
	case ActionConfirmDropoff:
		return s.confirmDropoff(ctx, req, ticket)
	case ActionChangeDropoff:
		return s.changeDropoff(ctx, req, ticket)
	default:
		return nil, ErrUnknownAction
	}
}

// activeSession resolves the conductor's active session, preferring the
// cached snapshot so repeated scans skip the session query. A cache hit
// carries only the fields the verification guards use; the repository row
// backfills the cache on a miss.
func (s *VerifierService) activeSession(ctx context.Context, conductorID string) (*domain.ConductorSession, error) {
	if s.cacheStore != nil {
		if cached, err := s.cacheStore.GetSession(ctx, conductorID); err == nil && cached != nil {
			return &domain.ConductorSession{
				SessionID:   cached.SessionID,
				ConductorID: cached.ConductorID,
				RouteID:     cached.RouteID,
				BusID:       cached.BusID,
				IsActive:    true,
			}, nil
		}
	}

	session, err := s.sessionRepo.GetActiveByConductorID(ctx, conductorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoActiveSession
		}
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

// scan is read-only: no state change, the ticket snapshot is cached so the
// next scan of the same code is served without touching the database.
func (s *VerifierService) scan(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	if s.cacheStore != nil {
		_ = s.cacheStore.SetTicket(ctx, cachedFromTicket(ticket))
	}

	return ticket, nil
}

func (s *VerifierService) confirmBoarding(ctx context.Context, req VerifyTicketRequest, session *domain.ConductorSession) (*domain.Ticket, error) {
	ticket, err := s.ticketRepo.ConfirmBoarding(ctx, req.TicketCode, session.ConductorID, time.Now())
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, req.TicketCode)
	return ticket, nil
}

func (s *VerifierService) confirmDropoff(ctx context.Context, req VerifyTicketRequest, ticket *domain.Ticket) (*domain.Ticket, error) {
	stationID := req.NewStationID
	if stationID == "" {
		// Default to the ticket's planned drop-off.
		stationID = ticket.ActualDropoffStationID
		if stationID == "" {
			stationID = ticket.IntendedStationID
		}
	} else {
		if _, err := s.stationOnRoute(ctx, stationID, ticket.RouteID); err != nil {
			return nil, err
		}
	}

	updated, err := s.ticketRepo.ConfirmDropoff(ctx, req.TicketCode, stationID, req.Notes, time.Now())
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, req.TicketCode)
	return updated, nil
}

func (s *VerifierService) changeDropoff(ctx context.Context, req VerifyTicketRequest, ticket *domain.Ticket) (*domain.Ticket, error) {
	if req.NewStationID == "" {
		return nil, ErrInvalidStationID
	}

	// Reject the change up front once the drop-off is confirmed; the
	// conditional update below still guards against races.
	if ticket.DropoffConfirmed {
		return nil, repository.ErrDropoffAlreadyConfirmed
	}

	station, err := s.stationOnRoute(ctx, req.NewStationID, ticket.RouteID)
	if err != nil {
		return nil, err
	}

	delta, err := s.fareDelta.Delta(ctx, ticket, station, req.AdditionalFare, time.Now())
	if err != nil {
		return nil, err
	}

	updated, err := s.ticketRepo.ChangeDropoff(ctx, req.TicketCode, req.NewStationID, req.Notes, delta)
	if err != nil {
		return nil, err
	}

	// Charge the extra stretch to the passenger wallet. A failed debit
	// does not roll back the change; collection is retried out of band.
	if s.wallet != nil && delta > 0 && updated.PaymentStatus == domain.PaymentStatusPaid && updated.PassengerID != "" {
		_ = s.wallet.Debit(ctx, updated.PassengerID, delta, updated.Currency)
	}

	s.invalidate(ctx, req.TicketCode)
	return updated, nil
}

// stationOnRoute resolves a station and checks it belongs to the route.
func (s *VerifierService) stationOnRoute(ctx context.Context, stationID, routeID string) (*domain.Station, error) {
	station, err := s.catalogRepo.GetStation(ctx, stationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrStationNotOnRoute
		}
		return nil, err
	}

	if station.RouteID != routeID {
		return nil, ErrStationNotOnRoute
	}

	return station, nil
}

func (s *VerifierService) invalidate(ctx context.Context, ticketCode string) {
	if s.cacheStore != nil {
		_ = s.cacheStore.InvalidateTicket(ctx, ticketCode)
	}
}

func cachedFromTicket(t *domain.Ticket) *redis.CachedTicket {
	return &redis.CachedTicket{
		TicketCode:             t.TicketCode,
		RouteID:                t.RouteID,
		PassengerID:            t.PassengerID,
		PassengerName:          t.PassengerName,
		IntendedStationID:      t.IntendedStationID,
		ActualDropoffStationID: t.ActualDropoffStationID,
		TotalFare:              t.TotalFare,
		Currency:               t.Currency,
		PaymentStatus:          string(t.PaymentStatus),
		BoardingConfirmed:      t.BoardingConfirmed,
		BoardingTime:           t.BoardingTime,
		DropoffConfirmed:       t.DropoffConfirmed,
		DropoffTime:            t.DropoffTime,
		VerifyingConductorID:   t.VerifyingConductorID,
		Notes:                  t.Notes,
		IssuedAt:               t.IssuedAt,
	}
}

func ticketFromCached(c *redis.CachedTicket) *domain.Ticket {
	return &domain.Ticket{
		TicketCode:             c.TicketCode,
		RouteID:                c.RouteID,
		PassengerID:            c.PassengerID,
		PassengerName:          c.PassengerName,
		IntendedStationID:      c.IntendedStationID,
		ActualDropoffStationID: c.ActualDropoffStationID,
		TotalFare:              c.TotalFare,
		Currency:               c.Currency,
		PaymentStatus:          domain.PaymentStatus(c.PaymentStatus),
		BoardingConfirmed:      c.BoardingConfirmed,
		BoardingTime:           c.BoardingTime,
		DropoffConfirmed:       c.DropoffConfirmed,
		DropoffTime:            c.DropoffTime,
		VerifyingConductorID:   c.VerifyingConductorID,
		Notes:                  c.Notes,
		IssuedAt:               c.IssuedAt,
	}
}
