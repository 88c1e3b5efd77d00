package repository

import (
	"context"

	"faregate/internal/domain"
	"faregate/internal/fare"
)

// CatalogRepository reads the static route/station reference catalogue.
// Read-only to this service; the catalogue is owned externally.
type CatalogRepository interface {
	GetRoute(ctx context.Context, routeID string) (*domain.Route, error)
	GetStation(ctx context.Context, stationID string) (*domain.Station, error)
	ListStationsByRoute(ctx context.Context, routeID string) ([]*domain.Station, error)

	// GetSurchargeRules returns the named, time-boxed surcharge rules for
	// a route. An empty slice means the route has no rules of its own and
	// the defaults apply.
	GetSurchargeRules(ctx context.Context, routeID string) ([]fare.SurchargeRule, error)
}
