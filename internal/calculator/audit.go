package calculator

import (
	"fmt"

	"go.uber.org/zap"

	"shop-dedup/internal/models"
	"shop-dedup/internal/spatial"
)

// AuditSecured looks for near-duplicate pairs within the secured set and
// returns only the suspicious ones, in input order. Each shop contributes at
// most one pair (itself and its nearest other shop), so a mutual pair is
// reported twice, once per direction.
func AuditSecured(secured []models.Shop, opts Options) ([]models.DuplicatePair, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	if err := Validate(secured); err != nil {
		return nil, fmt.Errorf("secured set: %w", err)
	}

	log := opts.Logger
	if len(secured) < 2 {
		log.Warn("not enough secured shops to compare", zap.Int("secured", len(secured)))
		return nil, nil
	}

	r := NewResolver(secured, opts.Distance, spatial.Options{LinearScanBelow: opts.LinearScanBelow})
	log.Info("auditing secured shops",
		zap.Int("secured", len(secured)),
		zap.String("index", string(r.IndexKind())),
	)

	var pairs []models.DuplicatePair
	total := len(secured)
	for i := range secured {
		if pair, ok := auditOne(r, i, opts); ok {
			pairs = append(pairs, pair)
		}

		if (i+1)%progressEvery == 0 {
			opts.progress(i+1, total)
		}
	}
	opts.progress(total, total)

	log.Info("audit completed", zap.Int("suspicious_pairs", len(pairs)))
	return pairs, nil
}

// auditOne pairs the shop at pos with its nearest other shop when the two
// look like duplicates.
func auditOne(r *Resolver, pos int, opts Options) (models.DuplicatePair, bool) {
	other, ok := r.NearestOther(pos, opts.SelfK)
	if !ok {
		return models.DuplicatePair{}, false
	}
	a, b := r.Shop(pos), r.Shop(other.Pos)
	similar := opts.Names.Similar(a.Name, b.Name)
	if !IsDuplicate(other.DistanceKm, opts.DuplicateThresholdKm, similar) {
		return models.DuplicatePair{}, false
	}
	return models.DuplicatePair{
		A:            a,
		B:            b,
		DistanceKm:   r.match(other).DistanceKm,
		NamesSimilar: similar,
		Suspicious:   true,
	}, true
}
