package tour

// NearestStopReorder suggests entering the route at the stop nearest to pos.
//
// The nearest stop is found by straight-line (haversine) distance. If it is
// already first in order, changed is false and the input order is returned.
// Otherwise the list is rotated circularly so the nearest stop comes first,
// keeping the original relative order of the rest, and orders are renumbered
// from 1. It is advisory; callers decide whether to apply the result.
func NearestStopReorder(stops []Stop, pos Position) (reordered []Stop, changed bool) {
	sorted := SortedByOrder(stops)
	if len(sorted) < 2 {
		return sorted, false
	}

	nearest := 0
	best := DistanceMeters(pos, sorted[0].Position)
	for i := 1; i < len(sorted); i++ {
		d := DistanceMeters(pos, sorted[i].Position)
		// Strict comparison keeps the lower order on ties.
		if d < best {
			best = d
			nearest = i
		}
	}

	if nearest == 0 {
		return sorted, false
	}

	reordered = make([]Stop, 0, len(sorted))
	reordered = append(reordered, sorted[nearest:]...)
	reordered = append(reordered, sorted[:nearest]...)
	for i := range reordered {
		reordered[i].Order = i + 1
	}
	return reordered, true
}
