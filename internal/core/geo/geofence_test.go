package geo

import (
	"math"
	"testing"
)

func TestDistanceMeters(t *testing.T) {
	tests := []struct {
		name string
		a    Point
		b    Point
		want float64
		tol  float64
	}{
		{
			name: "zero distance for identical points",
			a:    Point{Lat: 40.4168, Lng: -3.7038},
			b:    Point{Lat: 40.4168, Lng: -3.7038},
			want: 0,
			tol:  0.001,
		},
		{
			name: "roughly 111km per degree of latitude",
			a:    Point{Lat: 40.0, Lng: -3.7},
			b:    Point{Lat: 41.0, Lng: -3.7},
			want: 111195,
			tol:  200,
		},
		{
			name: "short urban hop",
			a:    Point{Lat: 40.4168, Lng: -3.7038},
			b:    Point{Lat: 40.4178, Lng: -3.7038},
			want: 111.2,
			tol:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceMeters(tt.a, tt.b)
			if math.Abs(got-tt.want) > tt.tol {
				t.Errorf("DistanceMeters() = %f, want %f (±%f)", got, tt.want, tt.tol)
			}
		})
	}
}

func TestRankWithOrigin(t *testing.T) {
	origin := &Point{Lat: 40.4168, Lng: -3.7038}
	sites := []Site{
		{ID: "INST-002", Location: Point{Lat: 40.43, Lng: -3.70}, GeoRadiusM: 100},
		{ID: "INST-001", Location: Point{Lat: 40.4172, Lng: -3.7038}, GeoRadiusM: 100},
		{ID: "INST-003", Location: Point{Lat: 41.0, Lng: -3.70}, GeoRadiusM: 500},
	}

	ranked := Rank(origin, sites)

	if len(ranked) != 3 {
		t.Fatalf("expected 3 ranked sites, got %d", len(ranked))
	}
	if ranked[0].Site.ID != "INST-001" {
		t.Errorf("nearest site = %s, want INST-001", ranked[0].Site.ID)
	}
	for i := 1; i < len(ranked); i++ {
		if *ranked[i-1].DistanceM > *ranked[i].DistanceM {
			t.Errorf("ranked sites not sorted ascending at index %d", i)
		}
	}

	// insideGeofence must equal (distance <= radius) for every entry.
	for _, r := range ranked {
		if r.DistanceM == nil || r.InsideGeofence == nil {
			t.Fatalf("site %s: expected non-nil distance and flag with origin", r.Site.ID)
		}
		want := *r.DistanceM <= r.Site.GeoRadiusM
		if *r.InsideGeofence != want {
			t.Errorf("site %s: InsideGeofence = %v, want %v (dist %f, radius %f)",
				r.Site.ID, *r.InsideGeofence, want, *r.DistanceM, r.Site.GeoRadiusM)
		}
	}

	// INST-001 is ~44m away with a 100m radius: inside.
	if !*ranked[0].InsideGeofence {
		t.Errorf("INST-001 should be inside its geofence (dist %f)", *ranked[0].DistanceM)
	}
	// INST-003 is ~65km away: outside.
	last := ranked[len(ranked)-1]
	if last.Site.ID != "INST-003" || *last.InsideGeofence {
		t.Errorf("INST-003 should be ranked last and outside its geofence")
	}
}

func TestRankOutsideRadius(t *testing.T) {
	// Operator ~150m from a site with a 100m radius.
	origin := &Point{Lat: 40.41680, Lng: -3.70380}
	sites := []Site{
		{ID: "INST-010", Location: Point{Lat: 40.41815, Lng: -3.70380}, GeoRadiusM: 100},
	}

	ranked := Rank(origin, sites)
	d := *ranked[0].DistanceM
	if d < 140 || d > 160 {
		t.Fatalf("expected ~150m distance, got %f", d)
	}
	if *ranked[0].InsideGeofence {
		t.Errorf("InsideGeofence = true, want false at %fm with 100m radius", d)
	}
}

func TestRankWithoutOrigin(t *testing.T) {
	sites := []Site{
		{ID: "INST-002", GeoRadiusM: 100},
		{ID: "INST-001", GeoRadiusM: 100},
	}

	ranked := Rank(nil, sites)

	// Input order preserved, distance and flag unknown (nil), not false.
	if ranked[0].Site.ID != "INST-002" || ranked[1].Site.ID != "INST-001" {
		t.Errorf("expected input order preserved without origin")
	}
	for _, r := range ranked {
		if r.DistanceM != nil {
			t.Errorf("site %s: DistanceM = %v, want nil", r.Site.ID, *r.DistanceM)
		}
		if r.InsideGeofence != nil {
			t.Errorf("site %s: InsideGeofence = %v, want nil", r.Site.ID, *r.InsideGeofence)
		}
	}
}

func TestNearest(t *testing.T) {
	if Nearest(nil) != nil {
		t.Errorf("Nearest(nil) should be nil")
	}
	d := 5.0
	ranked := []RankedSite{{Site: Site{ID: "INST-001"}, DistanceM: &d}}
	got := Nearest(ranked)
	if got == nil || got.Site.ID != "INST-001" {
		t.Errorf("Nearest() = %v, want INST-001", got)
	}
}
