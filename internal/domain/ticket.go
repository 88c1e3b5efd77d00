package domain

import "time"

// TicketStatus represents the lifecycle stage of a ticket.
type TicketStatus string

const (
	TicketStatusIssued     TicketStatus = "ISSUED"
	TicketStatusBoarded    TicketStatus = "BOARDED"
	TicketStatusDroppedOff TicketStatus = "DROPPED_OFF"
)

// PaymentStatus represents whether a ticket has been paid for.
type PaymentStatus string

const (
	PaymentStatusPaid   PaymentStatus = "PAID"
	PaymentStatusUnpaid PaymentStatus = "UNPAID"
)

// Ticket represents one purchased fare, identified by the code embedded
// in its QR. Created by the payment flow; mutated only through verification.
// Never deleted - ended tickets are retained as audit records.
type Ticket struct {
	TicketCode             string
	RouteID                string
	PassengerID            string
	PassengerName          string
	IntendedStationID      string
	ActualDropoffStationID string // empty until changed or confirmed
	TotalFare              float64
	Currency               string
	PaymentStatus          PaymentStatus
	BoardingConfirmed      bool
	BoardingTime           time.Time
	DropoffConfirmed       bool
	DropoffTime            time.Time
	VerifyingConductorID   string
	Notes                  string
	IssuedAt               time.Time
}

// Status derives the lifecycle stage from the confirmation flags.
// DropoffConfirmed implies BoardingConfirmed.
func (t *Ticket) Status() TicketStatus {
	switch {
	case t.DropoffConfirmed:
		return TicketStatusDroppedOff
	case t.BoardingConfirmed:
		return TicketStatusBoarded
	default:
		return TicketStatusIssued
	}
}
