package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrAlreadyBoarded is returned when boarding is confirmed for a
	// ticket whose boarding was already confirmed.
	ErrAlreadyBoarded = errors.New("boarding already confirmed")

	// ErrNotYetBoarded is returned when drop-off is confirmed for a
	// ticket that has not boarded.
	ErrNotYetBoarded = errors.New("ticket not yet boarded")

	// ErrAlreadyDroppedOff is returned when drop-off is confirmed twice.
	ErrAlreadyDroppedOff = errors.New("drop-off already confirmed")

	// ErrDropoffAlreadyConfirmed is returned when the drop-off station is
	// changed after drop-off was confirmed.
	ErrDropoffAlreadyConfirmed = errors.New("drop-off already confirmed, destination locked")
)
