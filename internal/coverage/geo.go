package coverage

import "math"

const (
	earthRadiusKm = 6371.0

	// simplifyEpsilonKm drops points closer than ~15m to the last kept one.
	simplifyEpsilonKm = 0.015

	// maxRoutePoints caps entry size so the shared index stays small even
	// for very long sessions.
	maxRoutePoints = 100
)

// haversineKm returns the great-circle distance between two lat/lng points.
func haversineKm(a, b [2]float64) float64 {
	lat1 := a[0] * math.Pi / 180
	lat2 := b[0] * math.Pi / 180
	dLat := (b[0] - a[0]) * math.Pi / 180
	dLng := (b[1] - a[1]) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// routeDistanceKm sums segment distances over the full-resolution route.
func routeDistanceKm(points [][2]float64) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += haversineKm(points[i-1], points[i])
	}
	return total
}

// simplifyRoute thins a route by radial distance: a point is kept only when
// it is at least epsilon away from the last kept point. Endpoints are always
// kept. When the result still exceeds maxPoints it is decimated evenly.
func simplifyRoute(points [][2]float64, epsilonKm float64, maxPoints int) [][2]float64 {
	if len(points) <= 2 {
		return points
	}

	kept := make([][2]float64, 0, len(points))
	kept = append(kept, points[0])
	for i := 1; i < len(points)-1; i++ {
		if haversineKm(kept[len(kept)-1], points[i]) >= epsilonKm {
			kept = append(kept, points[i])
		}
	}
	kept = append(kept, points[len(points)-1])

	if maxPoints > 1 && len(kept) > maxPoints {
		stride := float64(len(kept)-1) / float64(maxPoints-1)
		decimated := make([][2]float64, 0, maxPoints)
		for i := 0; i < maxPoints; i++ {
			decimated = append(decimated, kept[int(float64(i)*stride+0.5)])
		}
		decimated[maxPoints-1] = kept[len(kept)-1]
		kept = decimated
	}
	return kept
}
