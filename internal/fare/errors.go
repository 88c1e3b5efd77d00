package fare

import "errors"

var (
	// ErrInvalidDistance is returned when the distance fare component is
	// negative. The caller must not pass invalid distances; they are not
	// silently clamped.
	ErrInvalidDistance = errors.New("invalid distance fare component")
)
