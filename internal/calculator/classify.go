package calculator

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"shop-dedup/internal/models"
	"shop-dedup/internal/spatial"
)

const progressEvery = 500

// IsDuplicate is the joint condition for a self-set duplicate: close enough
// and similarly named. A distance equal to the threshold qualifies.
func IsDuplicate(distanceKm, thresholdKm float64, namesSimilar bool) bool {
	return distanceKm <= thresholdKm && namesSimilar
}

// ClassifyUnsecured produces one result per unsecured shop, in input order.
// It matches each shop against the secured set, then against the other
// unsecured shops; a duplicate found in the second pass overrides the
// recommendation of the first.
func ClassifyUnsecured(secured, unsecured []models.Shop, opts Options) ([]models.MatchResult, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	if err := Validate(secured); err != nil {
		return nil, fmt.Errorf("secured set: %w", err)
	}
	if err := Validate(unsecured); err != nil {
		return nil, fmt.Errorf("unsecured set: %w", err)
	}

	log := opts.Logger
	log.Info("classifying unsecured shops",
		zap.Int("secured", len(secured)),
		zap.Int("unsecured", len(unsecured)),
	)

	if len(unsecured) == 0 {
		return nil, nil
	}

	var securedIdx, unsecuredIdx *Resolver
	indexOpts := spatial.Options{LinearScanBelow: opts.LinearScanBelow}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		securedIdx = NewResolver(secured, opts.Distance, indexOpts)
	}()
	go func() {
		defer wg.Done()
		unsecuredIdx = NewResolver(unsecured, opts.Distance, indexOpts)
	}()
	wg.Wait()

	log.Debug("indexes built",
		zap.String("secured_index", string(securedIdx.IndexKind())),
		zap.String("unsecured_index", string(unsecuredIdx.IndexKind())),
	)

	total := len(unsecured)
	results := make([]models.MatchResult, total)
	for i, shop := range unsecured {
		results[i] = classifyAgainstSecured(shop, securedIdx, opts)
		markDuplicate(&results[i], i, unsecuredIdx, opts)

		if (i+1)%progressEvery == 0 {
			opts.progress(i+1, total)
		}
	}
	opts.progress(total, total)

	counts := CountRecommendations(results)
	log.Info("classification completed",
		zap.Int(string(models.RecommendAssignCode), counts[models.RecommendAssignCode]),
		zap.Int(string(models.RecommendFlagSuspicious), counts[models.RecommendFlagSuspicious]),
		zap.Int(string(models.RecommendUnsecuredDuplicate), counts[models.RecommendUnsecuredDuplicate]),
		zap.Int(string(models.RecommendNoSecured), counts[models.RecommendNoSecured]),
	)
	return results, nil
}

func classifyAgainstSecured(shop models.Shop, secured *Resolver, opts Options) models.MatchResult {
	res := models.MatchResult{Shop: shop}
	if secured.Len() == 0 {
		res.Recommendation = models.RecommendNoSecured
		return res
	}

	best, ok := secured.Nearest(shop.Loc, opts.CrossK)
	if !ok {
		res.Recommendation = models.RecommendNoSecured
		return res
	}
	res.ClosestSecured = secured.match(best)
	res.NameSimilar = opts.Names.Similar(shop.Name, res.ClosestSecured.Shop.Name)

	inRange := opts.SecuredRangeKm <= 0 || best.DistanceKm <= opts.SecuredRangeKm
	if res.NameSimilar && inRange {
		res.Recommendation = models.RecommendFlagSuspicious
	} else {
		res.Recommendation = models.RecommendAssignCode
	}
	return res
}

func markDuplicate(res *models.MatchResult, pos int, unsecured *Resolver, opts Options) {
	if unsecured.Len() < 2 {
		return
	}
	other, ok := unsecured.NearestOther(pos, opts.SelfK)
	if !ok {
		opts.Logger.Debug("no nearest unsecured shop", zap.String("id", res.Shop.ID))
		return
	}
	res.NearestUnsecured = unsecured.match(other)
	similar := opts.Names.Similar(res.Shop.Name, res.NearestUnsecured.Shop.Name)
	res.IsUnsecuredDuplicate = IsDuplicate(other.DistanceKm, opts.DuplicateThresholdKm, similar)
	if res.IsUnsecuredDuplicate {
		res.Recommendation = models.RecommendUnsecuredDuplicate
	}
}

// CountRecommendations tallies the final labels.
func CountRecommendations(results []models.MatchResult) map[models.Recommendation]int {
	counts := make(map[models.Recommendation]int)
	for _, r := range results {
		counts[r.Recommendation]++
	}
	return counts
}
