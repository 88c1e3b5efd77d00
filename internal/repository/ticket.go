package repository

import (
	"context"
	"time"

	"faregate/internal/domain"
)

// TicketRepository is the authoritative record of ticket lifecycles.
//
// Every mutation is a single atomic conditional write: the update applies
// only if its precondition still holds at write time. Two concurrent scans
// of the same code must never both confirm boarding.
type TicketRepository interface {
	FindByCode(ctx context.Context, ticketCode string) (*domain.Ticket, error)

	// ConfirmBoarding flips boardingConfirmed false->true, stamping the
	// boarding time and verifying conductor. Fails with ErrAlreadyBoarded
	// if boarding was already confirmed.
	ConfirmBoarding(ctx context.Context, ticketCode, conductorID string, now time.Time) (*domain.Ticket, error)

	// ConfirmDropoff records the drop-off at stationID. Fails with
	// ErrNotYetBoarded if boarding is unconfirmed, ErrAlreadyDroppedOff
	// if drop-off was already confirmed.
	ConfirmDropoff(ctx context.Context, ticketCode, stationID, notes string, now time.Time) (*domain.Ticket, error)

	// ChangeDropoff moves the planned drop-off to newStationID and adds
	// additionalFare to the total. The fare only ever increases by this
	// path; there is no refund logic. Fails with ErrDropoffAlreadyConfirmed
	// once drop-off is confirmed.
	ChangeDropoff(ctx context.Context, ticketCode, newStationID, notes string, additionalFare float64) (*domain.Ticket, error)

	// ListBoardedByRoute returns tickets that are PAID, boarded, not yet
	// dropped off, and issued within [from, to), ordered by boarding time
	// ascending. Read-only.
	ListBoardedByRoute(ctx context.Context, routeID string, from, to time.Time) ([]*domain.Ticket, error)
}
