// Package geo holds the shared coordinate math: great-circle distance and
// the polar-offset conversion used for location fuzzing. Every component
// that needs a distance goes through Haversine; there is deliberately a
// single implementation of the formula in the codebase.
package geo

import "math"

const (
	// earthRadiusMeters is the mean Earth radius used by the spherical
	// distance approximation.
	earthRadiusMeters = 6371000.0

	// metersPerDegreeLat is the equirectangular conversion factor between
	// meters and degrees of latitude (and of longitude at the equator).
	metersPerDegreeLat = 111320.0
)

// Haversine returns the great-circle distance in meters between two
// latitude/longitude pairs given in decimal degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := toRadians(lat1)
	lat2Rad := toRadians(lat2)
	deltaLat := toRadians(lat2 - lat1)
	deltaLon := toRadians(lon2 - lon1)

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// OffsetByPolar shifts a coordinate by a polar offset: distanceMeters along
// the bearing angleRad (radians, measured from east). The conversion is
// equirectangular, which is adequate at city scale and degrades toward the
// poles where cos(lat) approaches zero.
func OffsetByPolar(lat, lon, distanceMeters, angleRad float64) (float64, float64) {
	dLat := (distanceMeters * math.Sin(angleRad)) / metersPerDegreeLat
	dLon := (distanceMeters * math.Cos(angleRad)) / (metersPerDegreeLat * math.Cos(toRadians(lat)))
	return lat + dLat, lon + dLon
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180.0
}
