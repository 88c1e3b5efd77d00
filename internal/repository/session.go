package repository

import (
	"context"
	"time"

	"faregate/internal/domain"
)

// SessionRepository persists conductor duty sessions.
type SessionRepository interface {
	// Login atomically deactivates any active session for the conductor
	// and persists the new one. The two writes are observed consistently;
	// there is never a window with two active sessions.
	Login(ctx context.Context, session *domain.ConductorSession) error

	// GetActiveByConductorID returns the active session for a conductor,
	// or ErrNotFound if none is active.
	GetActiveByConductorID(ctx context.Context, conductorID string) (*domain.ConductorSession, error)

	// Deactivate ends the active session, stamping shiftEndTime. Returns
	// the number of sessions deactivated; zero is not an error.
	Deactivate(ctx context.Context, conductorID string, now time.Time) (int64, error)

	// UpdatePing records the conductor's reported location on the active
	// session. Returns ErrNotFound if no session is active.
	UpdatePing(ctx context.Context, conductorID, location string, now time.Time) error
}
