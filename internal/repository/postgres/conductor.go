package postgres

import (
	"context"
	"database/sql"
	"errors"

	"faregate/internal/domain"
	"faregate/internal/repository"
)

// ConductorRepository is a PostgreSQL implementation of repository.ConductorRepository.
type ConductorRepository struct {
	q Querier
}

// NewConductorRepository creates a new PostgreSQL conductor repository.
func NewConductorRepository(db *sql.DB) *ConductorRepository {
	return &ConductorRepository{q: db}
}

// GetByID retrieves a conductor by ID.
func (r *ConductorRepository) GetByID(ctx context.Context, id string) (*domain.Conductor, error) {
	query := `SELECT id, COALESCE(name, ''), COALESCE(phone, ''), COALESCE(default_route_id, ''), COALESCE(default_bus_id, '') FROM conductors WHERE id = $1`

	var conductor domain.Conductor
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&conductor.ID,
		&conductor.Name,
		&conductor.Phone,
		&conductor.DefaultRouteID,
		&conductor.DefaultBusID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &conductor, nil
}

// Ensure ConductorRepository implements repository.ConductorRepository.
var _ repository.ConductorRepository = (*ConductorRepository)(nil)
