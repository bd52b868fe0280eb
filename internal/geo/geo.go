// Package geo contains pure geographic computation helpers.
package geo

import (
	"math"

	"carpool/internal/domain"
)

const (
	earthRadiusMeters = 6371000.0

	// defaultSpeedKmh is the assumed speed for provisional travel-time
	// estimates made before the authoritative distance-service call.
	defaultSpeedKmh = 30.0
)

// Distance returns the great-circle distance in meters between two points
// (haversine formula).
func Distance(a, b domain.Point) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	rLat1 := degreesToRadians(a.Lat)
	rLat2 := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}

// WithinRadius reports whether b lies within radiusMeters of a.
func WithinRadius(a, b domain.Point, radiusMeters float64) bool {
	return Distance(a, b) <= radiusMeters
}

// EstimateTravelSeconds converts a distance into a provisional travel time
// at the assumed urban speed. Used only for scheduling estimates.
func EstimateTravelSeconds(distanceMeters float64) int64 {
	metersPerSecond := defaultSpeedKmh * 1000 / 3600
	return int64(math.Round(distanceMeters / metersPerSecond))
}

// Valid reports whether p holds plausible WGS84 coordinates. The zero point
// is treated as unset rather than a real location.
func Valid(p domain.Point) bool {
	if p.Lat == 0 && p.Lng == 0 {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
