package secondary

import (
	"context"
	"errors"
)

// ErrLocationUnavailable is returned when no fresh fix could be obtained:
// timeout, permission denial or hardware error. Callers must not
// substitute a stale or default coordinate.
var ErrLocationUnavailable = errors.New("location unavailable")

// Coordinate is a WGS84 position reported by the device.
type Coordinate struct {
	Lat float64
	Lng float64
}

// LocationProvider defines the secondary port for the device positioning
// capability. One call produces one best-effort fresh fix; providers must
// bound the wait (around 15s) and never serve a cached reading.
type LocationProvider interface {
	// CurrentLocation requests a single high-accuracy fix.
	CurrentLocation(ctx context.Context) (Coordinate, error)
}
