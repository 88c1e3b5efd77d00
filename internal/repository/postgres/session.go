package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"faregate/internal/domain"
	"faregate/internal/repository"
)

// SessionRepository is a PostgreSQL implementation of repository.SessionRepository.
type SessionRepository struct {
	db *sql.DB
	q  Querier
}

// NewSessionRepository creates a new PostgreSQL session repository.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db, q: db}
}

// NewSessionRepositoryWithTx creates a session repository using a transaction.
func NewSessionRepositoryWithTx(tx *sql.Tx) *SessionRepository {
	return &SessionRepository{q: tx}
}

const sessionColumns = `session_id, conductor_id, COALESCE(conductor_name, ''), route_id, COALESCE(bus_id, ''),
	is_active, login_time, shift_end_time, COALESCE(current_location, ''), last_ping_time`

// Login deactivates any active session for the conductor and inserts the
// new one inside a single transaction, so the exclusive-active invariant
// holds at every observable point.
func (r *SessionRepository) Login(ctx context.Context, session *domain.ConductorSession) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	txRepo := NewSessionRepositoryWithTx(tx)

	if _, err = txRepo.Deactivate(ctx, session.ConductorID, session.LoginTime); err != nil {
		return err
	}

	if err = txRepo.create(ctx, session); err != nil {
		return err
	}

	return tx.Commit()
}

// create inserts a session row.
func (r *SessionRepository) create(ctx context.Context, session *domain.ConductorSession) error {
	query := `
		INSERT INTO conductor_sessions (session_id, conductor_id, conductor_name, route_id, bus_id, is_active, login_time, current_location, last_ping_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.q.ExecContext(ctx, query,
		session.SessionID,
		session.ConductorID,
		session.ConductorName,
		session.RouteID,
		session.BusID,
		session.IsActive,
		session.LoginTime,
		session.CurrentLocation,
		session.LastPingTime,
	)

	return err
}

// GetActiveByConductorID retrieves the active session for a conductor.
func (r *SessionRepository) GetActiveByConductorID(ctx context.Context, conductorID string) (*domain.ConductorSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM conductor_sessions WHERE conductor_id = $1 AND is_active = TRUE LIMIT 1`

	session, err := scanSession(r.q.QueryRowContext(ctx, query, conductorID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return session, nil
}

// Deactivate ends the active session for a conductor, stamping the shift
// end time. Zero rows affected is a valid outcome (idempotent logout).
func (r *SessionRepository) Deactivate(ctx context.Context, conductorID string, now time.Time) (int64, error) {
	query := `
		UPDATE conductor_sessions
		SET is_active = FALSE, shift_end_time = $2
		WHERE conductor_id = $1 AND is_active = TRUE
	`

	result, err := r.q.ExecContext(ctx, query, conductorID, now)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// UpdatePing records the reported location on the active session. The
// is_active guard keeps the update conditional; a stale device pinging
// after logout affects nothing.
func (r *SessionRepository) UpdatePing(ctx context.Context, conductorID, location string, now time.Time) error {
	query := `
		UPDATE conductor_sessions
		SET current_location = $2, last_ping_time = $3
		WHERE conductor_id = $1 AND is_active = TRUE
	`

	result, err := r.q.ExecContext(ctx, query, conductorID, location, now)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func scanSession(row rowScanner) (*domain.ConductorSession, error) {
	var session domain.ConductorSession
	var shiftEndTime sql.NullTime
	var lastPingTime sql.NullTime

	err := row.Scan(
		&session.SessionID,
		&session.ConductorID,
		&session.ConductorName,
		&session.RouteID,
		&session.BusID,
		&session.IsActive,
		&session.LoginTime,
		&shiftEndTime,
		&session.CurrentLocation,
		&lastPingTime,
	)
	if err != nil {
		return nil, err
	}

	if shiftEndTime.Valid {
		session.ShiftEndTime = shiftEndTime.Time
	}
	if lastPingTime.Valid {
		session.LastPingTime = lastPingTime.Time
	}

	return &session, nil
}

// Ensure SessionRepository implements repository.SessionRepository.
var _ repository.SessionRepository = (*SessionRepository)(nil)
