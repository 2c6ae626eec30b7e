package geo

import (
	"math"

	"shop-dedup/internal/models"
)

// Projected is an equirectangular approximation of a coordinate, scaled so
// that a degree of longitude covers roughly the same ground as a degree of
// latitude near the point. It is an index key only: Euclidean distances
// between projected points rank candidates but are never reported or
// compared against kilometre thresholds.
type Projected struct {
	X float64 // latitude, unchanged
	Y float64 // longitude * cos(latitude)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func Project(c models.Coordinate) Projected {
	return Projected{
		X: c.Lat,
		Y: c.Lon * math.Cos(toRadians(c.Lat)),
	}
}

// ProjectAll projects every shop location, preserving order.
func ProjectAll(shops []models.Shop) []Projected {
	out := make([]Projected, len(shops))
	for i, s := range shops {
		out[i] = Project(s.Loc)
	}
	return out
}
