package geo

import (
	"fmt"
	"math"

	"github.com/tidwall/geodesic"

	"shop-dedup/internal/models"
)

const earthRadiusKm = 6371.0

// DistanceFunc returns the great-circle distance between two points in km.
type DistanceFunc func(a, b models.Coordinate) float64

// Geodesic computes the distance on the WGS-84 ellipsoid.
func Geodesic(a, b models.Coordinate) float64 {
	if a == b {
		return 0
	}
	var meters float64
	geodesic.WGS84.Inverse(a.Lat, a.Lon, b.Lat, b.Lon, &meters, nil, nil)
	return meters / 1000.0
}

// Haversine computes the distance on a sphere of mean earth radius.
func Haversine(a, b models.Coordinate) float64 {
	if a == b {
		return 0
	}
	lat1Rad := toRadians(a.Lat)
	lat2Rad := toRadians(b.Lat)

	dLat := lat2Rad - lat1Rad
	dLon := toRadians(b.Lon) - toRadians(a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// DistanceByName resolves a configured method name.
func DistanceByName(name string) (DistanceFunc, error) {
	switch name {
	case "", "geodesic":
		return Geodesic, nil
	case "haversine":
		return Haversine, nil
	default:
		return nil, fmt.Errorf("unknown distance method %q", name)
	}
}

// RoundKm rounds a distance to metre precision.
func RoundKm(km float64) float64 {
	return math.Round(km*1000) / 1000
}
