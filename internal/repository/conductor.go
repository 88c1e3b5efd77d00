package repository

import (
	"context"

	"faregate/internal/domain"
)

// ConductorRepository reads conductor records.
type ConductorRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Conductor, error)
}
