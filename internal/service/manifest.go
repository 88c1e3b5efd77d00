package service

import (
	"context"
	"errors"
	"time"

	"faregate/internal/domain"
	"faregate/internal/repository"
)

// ManifestService derives the live passenger roster for a route: paid
// tickets, boarded today, not yet dropped off. A read model; it never
// mutates ticket state.
type ManifestService struct {
	ticketRepo  repository.TicketRepository
	sessionRepo repository.SessionRepository
	catalogRepo repository.CatalogRepository
}

// NewManifestService creates a new ManifestService.
func NewManifestService(ticketRepo repository.TicketRepository, sessionRepo repository.SessionRepository, catalogRepo repository.CatalogRepository) *ManifestService {
	return &ManifestService{
		ticketRepo:  ticketRepo,
		sessionRepo: sessionRepo,
		catalogRepo: catalogRepo,
	}
}

// Manifest is the live roster for a route.
type Manifest struct {
	RouteID    string
	AsOfDate   time.Time
	Passengers []*domain.Ticket
}

// BuildManifest returns the roster for the given route as of the given
// date. The manifest is a same-day view only: tickets issued on a prior
// day never appear, regardless of state. Ordered by boarding time
// ascending.
func (s *ManifestService) BuildManifest(ctx context.Context, routeID string, asOf time.Time) (*Manifest, error) {
	// An unknown route is an error, not an empty roster.
	if _, err := s.catalogRepo.GetRoute(ctx, routeID); err != nil {
		return nil, err
	}

	dayStart := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, asOf.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	tickets, err := s.ticketRepo.ListBoardedByRoute(ctx, routeID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	return &Manifest{
		RouteID:    routeID,
		AsOfDate:   dayStart,
		Passengers: tickets,
	}, nil
}

// BuildManifestForConductor resolves the conductor's active session and
// builds the manifest for their route.
func (s *ManifestService) BuildManifestForConductor(ctx context.Context, conductorID string, asOf time.Time) (*Manifest, error) {
	if conductorID == "" {
		return nil, ErrInvalidConductorID
	}

	session, err := s.sessionRepo.GetActiveByConductorID(ctx, conductorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoActiveSession
		}
		return nil, err
	}

	return s.BuildManifest(ctx, session.RouteID, asOf)
}
