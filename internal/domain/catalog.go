package domain

// Route is read-only reference data describing one transit line.
type Route struct {
	RouteID  string
	Name     string
	BaseFare float64
	Currency string
}

// Station is read-only reference data. OrderOnRoute defines the station
// sequencing used for distance and fare reasoning.
type Station struct {
	StationID    string
	RouteID      string
	Name         string
	OrderOnRoute int
}
