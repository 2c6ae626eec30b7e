package calculator

import (
	"math"

	"shop-dedup/internal/geo"
	"shop-dedup/internal/models"
	"shop-dedup/internal/spatial"
)

// Candidate is a resolved match with its unrounded distance.
type Candidate struct {
	Pos        int
	DistanceKm float64
}

// Resolver finds the nearest shop of a fixed set, using the spatial index
// for a shortlist and the exact distance to pick among it.
type Resolver struct {
	shops    []models.Shop
	index    *spatial.Index
	distance geo.DistanceFunc
}

func NewResolver(shops []models.Shop, distance geo.DistanceFunc, opts spatial.Options) *Resolver {
	if distance == nil {
		distance = geo.Geodesic
	}
	return &Resolver{
		shops:    shops,
		index:    spatial.Build(geo.ProjectAll(shops), opts),
		distance: distance,
	}
}

func (r *Resolver) Len() int {
	return len(r.shops)
}

func (r *Resolver) Shop(pos int) models.Shop {
	return r.shops[pos]
}

func (r *Resolver) IndexKind() spatial.Kind {
	return r.index.Kind()
}

// Nearest resolves the closest shop to c among the top k candidates.
// It reports false when the set is empty.
func (r *Resolver) Nearest(c models.Coordinate, k int) (Candidate, bool) {
	return r.resolve(c, k, -1)
}

// NearestOther resolves the closest shop to the shop at pos, never
// returning pos itself. It reports false when no other shop is viable.
func (r *Resolver) NearestOther(pos, k int) (Candidate, bool) {
	return r.resolve(r.shops[pos].Loc, k, pos)
}

func (r *Resolver) resolve(c models.Coordinate, k, self int) (Candidate, bool) {
	best := Candidate{Pos: -1, DistanceKm: math.Inf(1)}
	for _, n := range r.index.Nearest(geo.Project(c), k) {
		if n.Pos == self {
			continue
		}
		d := r.distance(c, r.shops[n.Pos].Loc)
		// Strict comparison keeps the first candidate on ties.
		if d < best.DistanceKm {
			best = Candidate{Pos: n.Pos, DistanceKm: d}
		}
	}
	if best.Pos < 0 {
		return Candidate{}, false
	}
	return best, true
}

func (r *Resolver) match(c Candidate) *models.Match {
	return &models.Match{
		Shop:       r.shops[c.Pos],
		DistanceKm: geo.RoundKm(c.DistanceKm),
	}
}
