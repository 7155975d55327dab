// Package geo provides the geospatial primitives used by the discovery
// pipeline: haversine distances, radius predicates and coordinate handling.
package geo

import "math"

// earthRadiusM is the mean Earth radius in meters.
const earthRadiusM = 6371000.0

// DistanceM returns the haversine distance between two points in meters.
func DistanceM(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := radians(lat1)
	phi2 := radians(lat2)
	dPhi := radians(lat2 - lat1)
	dLambda := radians(lng2 - lng1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusM * c
}

// DistanceKm returns the haversine distance between two points in kilometers.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	return DistanceM(lat1, lng1, lat2, lng2) / 1000.0
}

// WithinRadius reports whether two points lie within radiusM meters.
func WithinRadius(lat1, lng1, lat2, lng2, radiusM float64) bool {
	return DistanceM(lat1, lng1, lat2, lng2) <= radiusM
}

// NormalizeCoordinates clamps latitude to [-90, 90] and wraps longitude
// into [-180, 180].
func NormalizeCoordinates(lat, lng float64) (float64, float64) {
	lat = math.Max(-90, math.Min(90, lat))
	lng = math.Mod(lng+180, 360)
	if lng < 0 {
		lng += 360
	}
	return lat, lng - 180
}

// BoundingBox returns (minLat, minLng, maxLat, maxLng) of the square
// enclosing the circle of radiusM meters around a point. Near the poles the
// longitude window degenerates to the full [-180, 180] range.
func BoundingBox(lat, lng, radiusM float64) (minLat, minLng, maxLat, maxLng float64) {
	angular := radiusM / earthRadiusM
	latRad := radians(lat)
	lngRad := radians(lng)

	minLatRad := latRad - angular
	maxLatRad := latRad + angular

	var minLngRad, maxLngRad float64
	if minLatRad > -math.Pi/2 && maxLatRad < math.Pi/2 {
		dLng := math.Asin(math.Sin(angular) / math.Cos(latRad))
		minLngRad = lngRad - dLng
		maxLngRad = lngRad + dLng
	} else {
		minLatRad = math.Max(minLatRad, -math.Pi/2)
		maxLatRad = math.Min(maxLatRad, math.Pi/2)
		minLngRad = -math.Pi
		maxLngRad = math.Pi
	}

	return degrees(minLatRad), degrees(minLngRad), degrees(maxLatRad), degrees(maxLngRad)
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }
