// Package geo contains the pure business logic for geolocation admission.
// This is part of the Functional Core - no I/O, only pure functions.
package geo

import (
	"math"
	"sort"
)

// earthRadiusM is the mean Earth radius used for great-circle distance.
const earthRadiusM = 6371000.0

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64
	Lng float64
}

// Site describes an installation's geofence configuration.
type Site struct {
	ID         string
	Name       string
	Location   Point
	GeoRadiusM float64
}

// RankedSite is a site annotated with its distance from a reference point.
// DistanceM and InsideGeofence are nil when no reference coordinate was
// available: unknown, not false.
type RankedSite struct {
	Site           Site
	DistanceM      *float64
	InsideGeofence *bool
}

// DistanceMeters returns the haversine great-circle distance between two points.
func DistanceMeters(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusM * math.Asin(math.Sqrt(h))
}

// Rank annotates sites with distance from origin and sorts them nearest first.
// With a nil origin the sites are returned in input order with nil distance
// and nil geofence flag.
func Rank(origin *Point, sites []Site) []RankedSite {
	ranked := make([]RankedSite, len(sites))
	for i, s := range sites {
		ranked[i] = RankedSite{Site: s}
		if origin == nil {
			continue
		}
		d := DistanceMeters(*origin, s.Location)
		inside := d <= s.GeoRadiusM
		ranked[i].DistanceM = &d
		ranked[i].InsideGeofence = &inside
	}

	if origin != nil {
		sort.SliceStable(ranked, func(i, j int) bool {
			return *ranked[i].DistanceM < *ranked[j].DistanceM
		})
	}
	return ranked
}

// Nearest returns the first ranked site, or nil for an empty slice.
// Used as the default selection when a coordinate is available; the
// operator may still override it.
func Nearest(ranked []RankedSite) *RankedSite {
	if len(ranked) == 0 {
		return nil
	}
	return &ranked[0]
}
