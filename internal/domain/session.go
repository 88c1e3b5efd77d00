package domain

import "time"

// ConductorSession represents one duty shift binding a conductor to a
// route and bus. At most one session per conductor is active at a time;
// a new login supersedes any prior active session.
type ConductorSession struct {
	SessionID       string
	ConductorID     string
	ConductorName   string
	RouteID         string
	BusID           string
	IsActive        bool
	LoginTime       time.Time
	ShiftEndTime    time.Time // zero until the session is deactivated
	CurrentLocation string    // opaque, client-reported; never validated
	LastPingTime    time.Time
}
