package calculator

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"shop-dedup/internal/models"
)

func securedShop(id, name string, lat, lon float64) models.Shop {
	s := shop(id, name, lat, lon)
	s.ProspectCode = "P-" + id
	return s
}

func TestIsDuplicate(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		similar  bool
		expected bool
	}{
		{"close and similar", 0.05, true, true},
		{"exactly at threshold", 0.1, true, true},
		{"just beyond threshold", 0.1000001, true, false},
		{"close but different names", 0.05, false, false},
		{"far and different", 3, false, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, IsDuplicate(tc.distance, 0.1, tc.similar))
		})
	}
}

func TestSplit(t *testing.T) {
	shops := []models.Shop{
		securedShop("1", "a", 0, 0),
		shop("2", "b", 0, 0),
		{ID: "3", ProspectCode: "   "},
		securedShop("4", "d", 0, 0),
	}
	secured, unsecured := Split(shops)
	require.Len(t, secured, 2)
	require.Len(t, unsecured, 2)
	assert.Equal(t, "1", secured[0].ID)
	assert.Equal(t, "4", secured[1].ID)
	assert.Equal(t, "2", unsecured[0].ID)
	assert.Equal(t, "3", unsecured[1].ID)
}

func TestClassifyEndToEnd(t *testing.T) {
	secured := []models.Shop{securedShop("S1", "Alpha Shop", 10.0, 10.0)}
	unsecured := []models.Shop{
		shop("U1", "Alpha Shop", 10.0009, 10.0),
		shop("U2", "Beta Shop", 20.0, 20.0),
	}

	opts := DefaultOptions()
	opts.Logger = zaptest.NewLogger(t)
	results, err := ClassifyUnsecured(secured, unsecured, opts)
	require.NoError(t, err)
	require.Len(t, results, 2)

	u1 := results[0]
	assert.Equal(t, "U1", u1.Shop.ID)
	require.NotNil(t, u1.ClosestSecured)
	assert.Equal(t, "S1", u1.ClosestSecured.Shop.ID)
	assert.InDelta(t, 0.1, u1.ClosestSecured.DistanceKm, 0.001)
	assert.True(t, u1.NameSimilar)
	assert.Equal(t, models.RecommendFlagSuspicious, u1.Recommendation)
	require.NotNil(t, u1.NearestUnsecured)
	assert.Equal(t, "U2", u1.NearestUnsecured.Shop.ID)
	assert.False(t, u1.IsUnsecuredDuplicate)

	u2 := results[1]
	assert.Equal(t, "U2", u2.Shop.ID)
	require.NotNil(t, u2.ClosestSecured)
	assert.Equal(t, "S1", u2.ClosestSecured.Shop.ID)
	assert.Greater(t, u2.ClosestSecured.DistanceKm, 1000.0)
	assert.False(t, u2.NameSimilar)
	assert.Equal(t, models.RecommendAssignCode, u2.Recommendation)
	assert.False(t, u2.IsUnsecuredDuplicate)
}

func TestClassifyNoSecuredShops(t *testing.T) {
	unsecured := []models.Shop{
		shop("U1", "Alpha", 1, 1),
		shop("U2", "Beta", 2, 2),
		shop("U3", "Gamma", 3, 3),
	}
	results, err := ClassifyUnsecured(nil, unsecured, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, models.RecommendNoSecured, r.Recommendation, r.Shop.ID)
		assert.Nil(t, r.ClosestSecured, r.Shop.ID)
		assert.False(t, r.NameSimilar)
	}
}

func TestClassifyDuplicateOverridesAssignCode(t *testing.T) {
	secured := []models.Shop{securedShop("S1", "Omega Market", 0, 0)}
	unsecured := []models.Shop{
		shop("U1", "Gamma Kiosk", 10.0, 10.0),
		shop("U2", "gamma kiosk ", 10.00045, 10.0), // about 50 m north
	}

	results, err := ClassifyUnsecured(secured, unsecured, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, results, 2)

	for i, r := range results {
		assert.False(t, r.NameSimilar, "secured name differs")
		assert.True(t, r.IsUnsecuredDuplicate)
		assert.Equal(t, models.RecommendUnsecuredDuplicate, r.Recommendation)
		require.NotNil(t, r.NearestUnsecured)
		// both directions are reported
		assert.Equal(t, unsecured[1-i].ID, r.NearestUnsecured.Shop.ID)
		assert.InDelta(t, 0.05, r.NearestUnsecured.DistanceKm, 0.001)
	}
}

func TestClassifyDuplicateOverridesSuspicious(t *testing.T) {
	secured := []models.Shop{securedShop("S1", "Gamma Kiosk", 10.001, 10.0)}
	unsecured := []models.Shop{
		shop("U1", "Gamma Kiosk", 10.0, 10.0),
		shop("U2", "Gamma Kiosk", 10.0002, 10.0),
	}

	results, err := ClassifyUnsecured(secured, unsecured, DefaultOptions())
	require.NoError(t, err)
	for _, r := range results {
		assert.True(t, r.NameSimilar)
		assert.Equal(t, models.RecommendUnsecuredDuplicate, r.Recommendation)
	}
}

func TestClassifyDuplicateThresholdBoundary(t *testing.T) {
	unsecured := []models.Shop{
		shop("U1", "Gamma", 10, 10),
		shop("U2", "Gamma", 11, 11),
	}

	tests := []struct {
		name     string
		distance float64
		expected bool
	}{
		{"equal to threshold", 0.1, true},
		{"above threshold", math.Nextafter(0.1, 1), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.Distance = func(_, _ models.Coordinate) float64 { return tc.distance }
			results, err := ClassifyUnsecured(nil, unsecured, opts)
			require.NoError(t, err)
			for _, r := range results {
				assert.Equal(t, tc.expected, r.IsUnsecuredDuplicate)
			}
		})
	}
}

func TestClassifyDuplicateNeedsSimilarNames(t *testing.T) {
	unsecured := []models.Shop{
		shop("U1", "Gamma", 10, 10),
		shop("U2", "Delta", 10.0001, 10),
	}
	results, err := ClassifyUnsecured(nil, unsecured, DefaultOptions())
	require.NoError(t, err)
	for _, r := range results {
		assert.False(t, r.IsUnsecuredDuplicate)
		assert.Equal(t, models.RecommendNoSecured, r.Recommendation)
	}
}

func TestClassifySingleUnsecured(t *testing.T) {
	secured := []models.Shop{securedShop("S1", "Alpha", 0, 0)}
	results, err := ClassifyUnsecured(secured, []models.Shop{shop("U1", "Beta", 0.5, 0.5)}, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Nil(t, results[0].NearestUnsecured)
	assert.False(t, results[0].IsUnsecuredDuplicate)
	assert.Equal(t, models.RecommendAssignCode, results[0].Recommendation)
}

func TestClassifyNoUnsecured(t *testing.T) {
	results, err := ClassifyUnsecured([]models.Shop{securedShop("S1", "Alpha", 0, 0)}, nil, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestClassifySecuredRange(t *testing.T) {
	secured := []models.Shop{securedShop("S1", "Alpha", 10, 10)}
	unsecured := []models.Shop{shop("U1", "Alpha", 10.1, 10)} // about 11 km

	opts := DefaultOptions()
	results, err := ClassifyUnsecured(secured, unsecured, opts)
	require.NoError(t, err)
	assert.Equal(t, models.RecommendFlagSuspicious, results[0].Recommendation)

	opts.SecuredRangeKm = 5
	results, err = ClassifyUnsecured(secured, unsecured, opts)
	require.NoError(t, err)
	assert.True(t, results[0].NameSimilar)
	assert.Equal(t, models.RecommendAssignCode, results[0].Recommendation)
	require.NotNil(t, results[0].ClosestSecured)
	assert.InDelta(t, 11.06, results[0].ClosestSecured.DistanceKm, 0.05)
}

func TestClassifyPicksTrueNearestSecured(t *testing.T) {
	var secured []models.Shop
	for i := 0; i < 60; i++ {
		secured = append(secured, securedShop(string(rune('A'+i%26))+string(rune('a'+i/26)), "Other", 40+float64(i)*0.01, 29))
	}
	unsecured := []models.Shop{shop("U1", "Mine", 40.203, 29)}

	results, err := ClassifyUnsecured(secured, unsecured, DefaultOptions())
	require.NoError(t, err)
	require.NotNil(t, results[0].ClosestSecured)
	assert.Equal(t, secured[20].ID, results[0].ClosestSecured.Shop.ID)
}

func TestClassifyProgress(t *testing.T) {
	var calls [][2]int
	opts := DefaultOptions()
	opts.OnProgress = func(current, total int, _ string) {
		calls = append(calls, [2]int{current, total})
	}
	_, err := ClassifyUnsecured(nil, meridian(3), opts)
	require.NoError(t, err)
	require.NotEmpty(t, calls)
	assert.Equal(t, [2]int{3, 3}, calls[len(calls)-1])
}

func TestClassifyInvalidOptions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"cross k", func(o *Options) { o.CrossK = 0 }},
		{"self k", func(o *Options) { o.SelfK = 1 }},
		{"threshold", func(o *Options) { o.DuplicateThresholdKm = -1 }},
		{"secured range", func(o *Options) { o.SecuredRangeKm = -1 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts := DefaultOptions()
			tc.mutate(&opts)
			_, err := ClassifyUnsecured(nil, meridian(2), opts)
			assert.ErrorIs(t, err, ErrInvalidOptions)
			_, err = AuditSecured(meridian(2), opts)
			assert.ErrorIs(t, err, ErrInvalidOptions)
		})
	}
}

func TestClassifyRejectsInvalidCoordinates(t *testing.T) {
	tests := []models.Coordinate{
		{Lat: math.NaN(), Lon: 0},
		{Lat: 0, Lon: math.Inf(1)},
		{Lat: 91, Lon: 0},
		{Lat: 0, Lon: -181},
	}
	for _, c := range tests {
		bad := models.Shop{ID: "bad", Row: 7, Loc: c}
		_, err := ClassifyUnsecured(nil, []models.Shop{shop("ok", "", 1, 1), bad}, DefaultOptions())
		var invalid *InvalidShopError
		require.True(t, errors.As(err, &invalid), "%v", c)
		assert.Equal(t, "bad", invalid.ID)
		assert.Equal(t, 7, invalid.Row)
	}
}

func TestCountRecommendations(t *testing.T) {
	counts := CountRecommendations([]models.MatchResult{
		{Recommendation: models.RecommendAssignCode},
		{Recommendation: models.RecommendAssignCode},
		{Recommendation: models.RecommendFlagSuspicious},
	})
	assert.Equal(t, 2, counts[models.RecommendAssignCode])
	assert.Equal(t, 1, counts[models.RecommendFlagSuspicious])
	assert.Equal(t, 0, counts[models.RecommendUnsecuredDuplicate])
}
