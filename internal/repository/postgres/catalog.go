package postgres

import (
	"context"
	"database/sql"
	"errors"

	"faregate/internal/domain"
	"faregate/internal/fare"
	"faregate/internal/repository"
)

// CatalogRepository reads the static route/station catalogue from
// PostgreSQL. The catalogue tables are maintained externally; this
// repository never writes to them.
type CatalogRepository struct {
	q Querier
}

// NewCatalogRepository creates a new PostgreSQL catalogue repository.
func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{q: db}
}

// GetRoute retrieves a route by ID.
func (r *CatalogRepository) GetRoute(ctx context.Context, routeID string) (*domain.Route, error) {
	query := `SELECT route_id, name, base_fare, currency FROM routes WHERE route_id = $1`

	var route domain.Route
	err := r.q.QueryRowContext(ctx, query, routeID).Scan(
		&route.RouteID,
		&route.Name,
		&route.BaseFare,
		&route.Currency,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &route, nil
}

// GetStation retrieves a station by ID.
func (r *CatalogRepository) GetStation(ctx context.Context, stationID string) (*domain.Station, error) {
	query := `SELECT station_id, route_id, name, order_on_route FROM stations WHERE station_id = $1`

	var station domain.Station
	err := r.q.QueryRowContext(ctx, query, stationID).Scan(
		&station.StationID,
		&station.RouteID,
		&station.Name,
		&station.OrderOnRoute,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &station, nil
}

// ListStationsByRoute retrieves the ordered station list for a route.
func (r *CatalogRepository) ListStationsByRoute(ctx context.Context, routeID string) ([]*domain.Station, error) {
	query := `SELECT station_id, route_id, name, order_on_route FROM stations WHERE route_id = $1 ORDER BY order_on_route ASC`

	rows, err := r.q.QueryContext(ctx, query, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stations []*domain.Station
	for rows.Next() {
		var station domain.Station
		if err := rows.Scan(&station.StationID, &station.RouteID, &station.Name, &station.OrderOnRoute); err != nil {
			return nil, err
		}
		stations = append(stations, &station)
	}

	return stations, rows.Err()
}

// GetSurchargeRules retrieves the surcharge rules configured for a route,
// ordered by window start. An empty result means the defaults apply.
func (r *CatalogRepository) GetSurchargeRules(ctx context.Context, routeID string) ([]fare.SurchargeRule, error) {
	query := `SELECT name, start_minute, end_minute, rate FROM fare_rules WHERE route_id = $1 ORDER BY start_minute ASC`

	rows, err := r.q.QueryContext(ctx, query, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []fare.SurchargeRule
	for rows.Next() {
		var rule fare.SurchargeRule
		if err := rows.Scan(&rule.Name, &rule.StartMinute, &rule.EndMinute, &rule.Rate); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	return rules, rows.Err()
}

// Ensure CatalogRepository implements repository.CatalogRepository.
var _ repository.CatalogRepository = (*CatalogRepository)(nil)
