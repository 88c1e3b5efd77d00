package service

import "errors"

var (
	// ErrInvalidCredentials is returned when the conductor ID or PIN is rejected.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNoActiveSession is returned when an operation requires an active
	// duty session and the conductor has none.
	ErrNoActiveSession = errors.New("no active session")

	// ErrWrongRoute is returned when a conductor verifies a ticket that
	// belongs to a different route than their session.
	ErrWrongRoute = errors.New("ticket belongs to a different route")

	// ErrStationNotOnRoute is returned when a drop-off change targets a
	// station outside the ticket's route.
	ErrStationNotOnRoute = errors.New("station not on ticket route")

	// ErrLoginInProgress is returned when a concurrent login for the same
	// conductor holds the login lock.
	ErrLoginInProgress = errors.New("login already in progress")

	// ErrInvalidConductorID is returned when conductor ID is empty.
	ErrInvalidConductorID = errors.New("invalid conductor id")

	// ErrInvalidPIN is returned when the PIN is empty.
	ErrInvalidPIN = errors.New("invalid pin")

	// ErrInvalidTicketCode is returned when the ticket code is empty.
	ErrInvalidTicketCode = errors.New("invalid ticket code")

	// ErrInvalidStationID is returned when a required station ID is empty.
	ErrInvalidStationID = errors.New("invalid station id")

	// ErrInvalidFareDelta is returned when the additional fare is negative.
	// Fares only ever increase on a destination change; refunds do not
	// flow through verification.
	ErrInvalidFareDelta = errors.New("invalid additional fare")

	// ErrInvalidLocation is returned when a location update carries no location.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrUnknownAction is returned for an unrecognized verification action.
	ErrUnknownAction = errors.New("unknown verification action")
)
