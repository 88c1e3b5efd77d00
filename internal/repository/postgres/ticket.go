package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"faregate/internal/domain"
	"faregate/internal/repository"
)

// TicketRepository is a PostgreSQL implementation of repository.TicketRepository.
//
// Mutations are single conditional UPDATE statements so that concurrent
// scans of the same ticket code race safely: the precondition is part of
// the WHERE clause, not a prior read.
type TicketRepository struct {
	q Querier
}

// NewTicketRepository creates a new PostgreSQL ticket repository.
func NewTicketRepository(db *sql.DB) *TicketRepository {
	return &TicketRepository{q: db}
}

// NewTicketRepositoryWithTx creates a ticket repository using a transaction.
func NewTicketRepositoryWithTx(tx *sql.Tx) *TicketRepository {
	return &TicketRepository{q: tx}
}

const ticketColumns = `ticket_code, route_id, passenger_id, COALESCE(passenger_name, ''), intended_station_id,
	actual_dropoff_station_id, total_fare, currency, payment_status,
	boarding_confirmed, boarding_time, dropoff_confirmed, dropoff_time,
	verifying_conductor_id, COALESCE(notes, ''), issued_at`

// FindByCode retrieves a ticket by its QR code.
func (r *TicketRepository) FindByCode(ctx context.Context, ticketCode string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE ticket_code = $1`

	ticket, err := scanTicket(r.q.QueryRowContext(ctx, query, ticketCode))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return ticket, nil
}

// ConfirmBoarding marks the ticket as boarded. The boarding_confirmed
// guard in the WHERE clause makes the false->true transition atomic:
// of two concurrent confirmations exactly one updates a row.
func (r *TicketRepository) ConfirmBoarding(ctx context.Context, ticketCode, conductorID string, now time.Time) (*domain.Ticket, error) {
	query := `
		UPDATE tickets
		SET boarding_confirmed = TRUE, boarding_time = $2, verifying_conductor_id = $3
		WHERE ticket_code = $1 AND boarding_confirmed = FALSE
	`

	result, err := r.q.ExecContext(ctx, query, ticketCode, now, conductorID)
	if err != nil {
		return nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}

	if rowsAffected == 0 {
		// Either the ticket does not exist or it was already boarded.
		ticket, err := r.FindByCode(ctx, ticketCode)
		if err != nil {
			return nil, err
		}
		if ticket.BoardingConfirmed {
			return nil, repository.ErrAlreadyBoarded
		}
		return nil, repository.ErrNotFound
	}

	return r.FindByCode(ctx, ticketCode)
}

// ConfirmDropoff records the drop-off at stationID. Requires the ticket
// to be boarded and not yet dropped off, enforced in the WHERE clause.
func (r *TicketRepository) ConfirmDropoff(ctx context.Context, ticketCode, stationID, notes string, now time.Time) (*domain.Ticket, error) {
	query := `
		UPDATE tickets
		SET actual_dropoff_station_id = $2, dropoff_confirmed = TRUE, dropoff_time = $3,
			notes = CASE WHEN $4 <> '' THEN $4 ELSE notes END
		WHERE ticket_code = $1 AND boarding_confirmed = TRUE AND dropoff_confirmed = FALSE
	`

	result, err := r.q.ExecContext(ctx, query, ticketCode, stationID, now, notes)
	if err != nil {
		return nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}

	if rowsAffected == 0 {
		ticket, err := r.FindByCode(ctx, ticketCode)
		if err != nil {
			return nil, err
		}
		if ticket.DropoffConfirmed {
			return nil, repository.ErrAlreadyDroppedOff
		}
		if !ticket.BoardingConfirmed {
			return nil, repository.ErrNotYetBoarded
		}
		return nil, repository.ErrNotFound
	}

	return r.FindByCode(ctx, ticketCode)
}

// ChangeDropoff moves the planned drop-off and adds the fare delta to the
// total in the same statement. The destination is mutable only while the
// drop-off is unconfirmed.
func (r *TicketRepository) ChangeDropoff(ctx context.Context, ticketCode, newStationID, notes string, additionalFare float64) (*domain.Ticket, error) {
	query := `
		UPDATE tickets
		SET actual_dropoff_station_id = $2, total_fare = total_fare + $3,
			notes = CASE WHEN $4 <> '' THEN $4 ELSE notes END
		WHERE ticket_code = $1 AND dropoff_confirmed = FALSE
	`

	result, err := r.q.ExecContext(ctx, query, ticketCode, newStationID, additionalFare, notes)
	if err != nil {
		return nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}

	if rowsAffected == 0 {
		ticket, err := r.FindByCode(ctx, ticketCode)
		if err != nil {
			return nil, err
		}
		if ticket.DropoffConfirmed {
			return nil, repository.ErrDropoffAlreadyConfirmed
		}
		return nil, repository.ErrNotFound
	}

	return r.FindByCode(ctx, ticketCode)
}

// ListBoardedByRoute returns the tickets eligible for the live manifest:
// paid, boarded, not dropped off, issued within [from, to), ordered by
// boarding time ascending.
func (r *TicketRepository) ListBoardedByRoute(ctx context.Context, routeID string, from, to time.Time) ([]*domain.Ticket, error) {
	query := `
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE route_id = $1
			AND payment_status = $2
			AND boarding_confirmed = TRUE
			AND dropoff_confirmed = FALSE
			AND issued_at >= $3 AND issued_at < $4
		ORDER BY boarding_time ASC
	`

	rows, err := r.q.QueryContext(ctx, query, routeID, domain.PaymentStatusPaid, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []*domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}

	return tickets, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	var ticket domain.Ticket
	var actualDropoffStationID sql.NullString
	var boardingTime sql.NullTime
	var dropoffTime sql.NullTime
	var verifyingConductorID sql.NullString

	err := row.Scan(
		&ticket.TicketCode,
		&ticket.RouteID,
		&ticket.PassengerID,
		&ticket.PassengerName,
		&ticket.IntendedStationID,
		&actualDropoffStationID,
		&ticket.TotalFare,
		&ticket.Currency,
		&ticket.PaymentStatus,
		&ticket.BoardingConfirmed,
		&boardingTime,
		&ticket.DropoffConfirmed,
		&dropoffTime,
		&verifyingConductorID,
		&ticket.Notes,
		&ticket.IssuedAt,
	)
	if err != nil {
		return nil, err
	}

	if actualDropoffStationID.Valid {
		ticket.ActualDropoffStationID = actualDropoffStationID.String
	}
	if boardingTime.Valid {
		ticket.BoardingTime = boardingTime.Time
	}
	if dropoffTime.Valid {
		ticket.DropoffTime = dropoffTime.Time
	}
	if verifyingConductorID.Valid {
		ticket.VerifyingConductorID = verifyingConductorID.String
	}

	return &ticket, nil
}

// Ensure TicketRepository implements repository.TicketRepository.
var _ repository.TicketRepository = (*TicketRepository)(nil)
