package tour

import (
	"fmt"
	"math"
	"time"
)

const earthRadiusMeters = 6371000.0

// Position is a single WGS84 location fix.
type Position struct {
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	AccuracyM  float64   `json:"accuracy_m,omitempty"`
	RecordedAt time.Time `json:"recorded_at,omitempty"`
}

// Valid reports whether the coordinates are inside WGS84 bounds.
func (p Position) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

func (p Position) String() string {
	return fmt.Sprintf("(%.6f,%.6f)", p.Lat, p.Lon)
}

// DistanceMeters returns the great-circle (haversine) distance between a and b.
// Every proximity and nearest-stop decision goes through this one formula.
func DistanceMeters(a, b Position) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLon := degreesToRadians(b.Lon - a.Lon)

	lat1 := degreesToRadians(a.Lat)
	lat2 := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1)*math.Cos(lat2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// NearbyStops returns the stops whose trigger radius contains pos, in route order.
func NearbyStops(stops []Stop, pos Position) []Stop {
	var out []Stop
	for _, s := range SortedByOrder(stops) {
		if s.Contains(pos) {
			out = append(out, s)
		}
	}
	return out
}
