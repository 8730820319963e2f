package tour

import "time"

// DefaultWalkingSpeedKmh is the pace used to estimate walking time between stops.
const DefaultWalkingSpeedKmh = 4.5

// RouteSpecification is a value object describing the walk through a route's stops in order.
type RouteSpecification struct {
	StopCount         int     `json:"stop_count"`
	DistanceKm        float64 `json:"distance_km"`
	EstimatedWalkMin  int     `json:"estimated_walk_min"`
	NarrationMin      int     `json:"narration_min"`
	EstimatedTotalMin int     `json:"estimated_total_min"`
}

// Specify computes the straight-line leg distances between consecutive stops
// and estimates walking time at speedKmh. A non-positive speed uses DefaultWalkingSpeedKmh.
func Specify(stops []Stop, speedKmh float64) RouteSpecification {
	if speedKmh <= 0 {
		speedKmh = DefaultWalkingSpeedKmh
	}
	spec := RouteSpecification{StopCount: len(stops)}
	var meters float64
	var narration time.Duration
	for i, s := range stops {
		narration += s.Duration
		if i > 0 {
			meters += DistanceMeters(stops[i-1].Position, s.Position)
		}
	}
	spec.DistanceKm = meters / 1000
	spec.EstimatedWalkMin = ceilMinutes(spec.DistanceKm / speedKmh * 60)
	spec.NarrationMin = ceilMinutes(narration.Minutes())
	spec.EstimatedTotalMin = spec.EstimatedWalkMin + spec.NarrationMin
	return spec
}

// Specification returns the RouteSpecification of the route in its stored order.
func (r *Route) Specification() RouteSpecification {
	return Specify(r.Stops, DefaultWalkingSpeedKmh)
}

func ceilMinutes(m float64) int {
	n := int(m)
	if float64(n) < m {
		n++
	}
	return n
}
