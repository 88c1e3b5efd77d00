package domain

// Conductor represents a conductor on record. Credentials are held and
// checked by an external identity collaborator, not stored here.
type Conductor struct {
	ID             string
	Name           string
	Phone          string
	DefaultRouteID string
	DefaultBusID   string
}
