package calculator

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"shop-dedup/internal/geo"
	"shop-dedup/internal/models"
	"shop-dedup/internal/spatial"
)

const (
	DefaultDuplicateThresholdKm = 0.1
	DefaultCrossK               = 5
	DefaultSelfK                = 2
)

type ProgressCallback func(current, total int, msg string)

var ErrInvalidOptions = errors.New("invalid matching options")

// Options carries every tunable of a run. The shortlist sizes are the knob
// that trades speed for confidence that the true nearest shop is among the
// candidates: the projection can misorder candidates far from the equator or
// over long distances.
type Options struct {
	DuplicateThresholdKm float64
	CrossK               int
	SelfK                int
	// SecuredRangeKm, when positive, ignores secured matches farther away
	// than this when deciding the recommendation.
	SecuredRangeKm  float64
	Distance        geo.DistanceFunc
	Names           NameMatcher
	LinearScanBelow int

	OnProgress ProgressCallback
	Logger     *zap.Logger
}

func DefaultOptions() Options {
	return Options{
		DuplicateThresholdKm: DefaultDuplicateThresholdKm,
		CrossK:               DefaultCrossK,
		SelfK:                DefaultSelfK,
		Distance:             geo.Geodesic,
		LinearScanBelow:      spatial.DefaultLinearScanBelow,
	}
}

func (o Options) validate() error {
	switch {
	case o.CrossK < 1:
		return fmt.Errorf("%w: cross k must be at least 1, got %d", ErrInvalidOptions, o.CrossK)
	case o.SelfK < 2:
		return fmt.Errorf("%w: self k must be at least 2, got %d", ErrInvalidOptions, o.SelfK)
	case o.DuplicateThresholdKm < 0 || math.IsNaN(o.DuplicateThresholdKm):
		return fmt.Errorf("%w: duplicate threshold must be non-negative", ErrInvalidOptions)
	case o.SecuredRangeKm < 0 || math.IsNaN(o.SecuredRangeKm):
		return fmt.Errorf("%w: secured range must be non-negative", ErrInvalidOptions)
	}
	return nil
}

func (o Options) withDefaults() Options {
	if o.Distance == nil {
		o.Distance = geo.Geodesic
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

func (o Options) progress(current, total int) {
	if o.OnProgress != nil {
		o.OnProgress(current, total, "")
	}
}

// InvalidShopError reports a record that reached the engine with a
// coordinate it cannot work with.
type InvalidShopError struct {
	ID  string
	Row int
	Loc models.Coordinate
}

func (e *InvalidShopError) Error() string {
	return fmt.Sprintf("shop %q (row %d): invalid coordinate (%v, %v)", e.ID, e.Row, e.Loc.Lat, e.Loc.Lon)
}

// Validate checks that every shop has finite, in-range coordinates.
func Validate(shops []models.Shop) error {
	for _, s := range shops {
		lat, lon := s.Loc.Lat, s.Loc.Lon
		if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) ||
			lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			return &InvalidShopError{ID: s.ID, Row: s.Row, Loc: s.Loc}
		}
	}
	return nil
}

// Split partitions shops into secured and unsecured sets, keeping order.
func Split(shops []models.Shop) (secured, unsecured []models.Shop) {
	for _, s := range shops {
		if s.Secured() {
			secured = append(secured, s)
		} else {
			unsecured = append(unsecured, s)
		}
	}
	return secured, unsecured
}
