// Package spatial answers k-nearest-neighbour queries over projected points.
//
// Points are indexed by their position in the slice given to Build, and
// queries return those positions. Ordering is by Euclidean distance in
// projected space, which is an approximation of ground distance: callers
// re-rank the shortlist with an exact distance before trusting it.
package spatial

import (
	"sort"

	"github.com/dhconnelly/rtreego"

	"shop-dedup/internal/geo"
)

const (
	// DefaultLinearScanBelow is the size under which a brute-force scan is
	// used instead of the tree.
	DefaultLinearScanBelow = 16

	minChildren = 25
	maxChildren = 50

	// Half-width of the degenerate rectangle stored for each point, in
	// degrees. Small enough not to affect ranking.
	pointTolerance = 1e-9
)

type Kind string

const (
	KindEmpty  Kind = "empty"
	KindLinear Kind = "linear"
	KindRTree  Kind = "rtree"
)

type Options struct {
	LinearScanBelow int
}

// Neighbor is a query result: the position of the point in the build slice.
type Neighbor struct {
	Pos int
}

type item struct {
	rect rtreego.Rect
	pos  int
}

func (it *item) Bounds() rtreego.Rect {
	return it.rect
}

// Index is read-only once built.
type Index struct {
	points []geo.Projected
	tree   *rtreego.Rtree
}

// Build indexes points. Building from zero points yields a nil index, which
// answers every query with no candidates.
func Build(points []geo.Projected, opts Options) *Index {
	if len(points) == 0 {
		return nil
	}
	threshold := opts.LinearScanBelow
	if threshold <= 0 {
		threshold = DefaultLinearScanBelow
	}

	idx := &Index{points: points}
	if len(points) < threshold {
		return idx
	}

	objs := make([]rtreego.Spatial, len(points))
	for i, p := range points {
		objs[i] = &item{rect: toPoint(p).ToRect(pointTolerance), pos: i}
	}
	idx.tree = rtreego.NewTree(2, minChildren, maxChildren, objs...)
	return idx
}

func toPoint(p geo.Projected) rtreego.Point {
	return rtreego.Point{p.X, p.Y}
}

// Len returns the number of indexed points.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.points)
}

func (idx *Index) Kind() Kind {
	switch {
	case idx == nil:
		return KindEmpty
	case idx.tree == nil:
		return KindLinear
	default:
		return KindRTree
	}
}

// Nearest returns up to k neighbours of p, closest first. Fewer than k are
// returned when the index holds fewer than k points.
func (idx *Index) Nearest(p geo.Projected, k int) []Neighbor {
	if idx == nil || k < 1 {
		return nil
	}
	if k > len(idx.points) {
		k = len(idx.points)
	}
	if idx.tree == nil {
		return idx.scan(p, k)
	}

	found := idx.tree.NearestNeighbors(k, toPoint(p))
	out := make([]Neighbor, 0, len(found))
	for _, s := range found {
		it, ok := s.(*item)
		if !ok || it == nil {
			continue
		}
		out = append(out, Neighbor{Pos: it.pos})
	}
	return out
}

func (idx *Index) scan(p geo.Projected, k int) []Neighbor {
	type ranked struct {
		pos  int
		dist float64
	}
	all := make([]ranked, len(idx.points))
	for i, q := range idx.points {
		dx, dy := q.X-p.X, q.Y-p.Y
		all[i] = ranked{pos: i, dist: dx*dx + dy*dy}
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].dist < all[j].dist
	})

	out := make([]Neighbor, k)
	for i := 0; i < k; i++ {
		out[i] = Neighbor{Pos: all[i].pos}
	}
	return out
}
