package fusion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aroundme/aroundme/pkg/models"
)

func fusedPlace(id, name string, rating float64, reviews int, distanceKm float64) models.FusedPlace {
	rep := models.ProviderPlace{
		Provider:    models.ProviderGoogle,
		ProviderID:  id,
		Name:        name,
		Lat:         37.7749,
		Lng:         -122.4194,
		Rating:      floatPtr(rating),
		ReviewCount: intPtr(reviews),
		DistanceKm:  distanceKm,
	}
	return models.FusedPlace{ID: id, Representative: rep, Members: []models.ProviderPlace{rep}}
}

func TestPresetFor(t *testing.T) {
	balanced := PresetFor(models.PresetBalanced)
	assert.Equal(t, PresetPoints{Rating: 55, Reviews: 30, Distance: 15}, balanced)

	nearby := PresetFor(models.PresetNearby)
	assert.Equal(t, 45.0, nearby.Distance)

	reviewHeavy := PresetFor(models.PresetReviewHeavy)
	assert.Equal(t, 50.0, reviewHeavy.Reviews)

	assert.Equal(t, balanced, PresetFor("unknown"), "unknown presets fall back to balanced")
}

func TestRanker_BalancedOrdering(t *testing.T) {
	// S3: A (4.8, 500 reviews, 0.5km), B (4.0, 100, 5km), C (3.5, 50, 0.8km)
	a := fusedPlace("a", "A", 4.8, 500, 0.5)
	b := fusedPlace("b", "B", 4.0, 100, 5)
	c := fusedPlace("c", "C", 3.5, 50, 0.8)

	r := NewRanker(models.PresetBalanced, nil, nil, nil)
	scored := r.Rank(context.Background(), []models.FusedPlace{b, c, a})

	require.Len(t, scored, 3)
	assert.Equal(t, "a", scored[0].Fused.ID)
	assert.Equal(t, "c", scored[1].Fused.ID)
	assert.Equal(t, "b", scored[2].Fused.ID)
	assert.Greater(t, scored[0].Score, scored[1].Score)
	assert.Greater(t, scored[1].Score, scored[2].Score)
}

func TestRanker_NearbyPresetSwaps(t *testing.T) {
	// S4: X (4.8, 500 reviews, 8km) vs Y (3.8, 100 reviews, 0.3km)
	x := fusedPlace("x", "X", 4.8, 500, 8)
	y := fusedPlace("y", "Y", 3.8, 100, 0.3)

	r := NewRanker(models.PresetNearby, nil, nil, nil)
	scored := r.Rank(context.Background(), []models.FusedPlace{x, y})

	require.Len(t, scored, 2)
	assert.Equal(t, "y", scored[0].Fused.ID)
}

func TestRanker_RatingMonotonicity(t *testing.T) {
	lower := fusedPlace("lo", "Same", 4.0, 200, 1.0)
	higher := fusedPlace("hi", "Same", 4.6, 200, 1.0)

	r := NewRanker(models.PresetBalanced, nil, nil, nil)
	scored := r.Rank(context.Background(), []models.FusedPlace{lower, higher})

	require.Len(t, scored, 2)
	assert.Equal(t, "hi", scored[0].Fused.ID)
	assert.GreaterOrEqual(t, scored[0].Score, scored[1].Score)
}

func TestRanker_MissingSignals(t *testing.T) {
	rep := models.ProviderPlace{
		Provider:   models.ProviderYelp,
		ProviderID: "bare",
		Name:       "Bare",
		DistanceKm: 2,
	}
	fp := models.FusedPlace{ID: "bare", Representative: rep}

	r := NewRanker(models.PresetBalanced, nil, nil, nil)
	scored := r.Rank(context.Background(), []models.FusedPlace{fp})

	require.Len(t, scored, 1)
	assert.Equal(t, 0.0, scored[0].Evidence["rating"])
	assert.Equal(t, 0.0, scored[0].Evidence["reviews"])
	assert.Greater(t, scored[0].Evidence["distance"], 0.0)
}

func TestRanker_ZeroReviewCountPresent(t *testing.T) {
	fp := fusedPlace("z", "Zero", 4.0, 0, 1.0)

	r := NewRanker(models.PresetBalanced, nil, nil, nil)
	scored := r.Rank(context.Background(), []models.FusedPlace{fp})

	assert.Equal(t, 0.0, scored[0].Evidence["reviews"], "ln(1+0)=0 yields no review points")
}

func TestRanker_PriceFit(t *testing.T) {
	filters := &models.SearchFilters{Price: &models.PriceRange{Min: 1, Max: 2}}

	t.Run("bonus inside the window", func(t *testing.T) {
		fp := fusedPlace("p", "Priced", 4.0, 100, 1.0)
		fp.Representative.PriceLevel = intPtr(2)
		fp.Members[0].PriceLevel = intPtr(2)

		r := NewRanker(models.PresetBalanced, filters, nil, nil)
		scored := r.Rank(context.Background(), []models.FusedPlace{fp})
		assert.Equal(t, priceFitBonus, scored[0].Evidence["price_fit"])
	})

	t.Run("no bonus outside the window", func(t *testing.T) {
		fp := fusedPlace("p", "Priced", 4.0, 100, 1.0)
		fp.Representative.PriceLevel = intPtr(4)

		r := NewRanker(models.PresetBalanced, filters, nil, nil)
		scored := r.Rank(context.Background(), []models.FusedPlace{fp})
		assert.Equal(t, 0.0, scored[0].Evidence["price_fit"])
	})

	t.Run("no entry without a price level", func(t *testing.T) {
		fp := fusedPlace("p", "Unpriced", 4.0, 100, 1.0)

		r := NewRanker(models.PresetBalanced, filters, nil, nil)
		scored := r.Rank(context.Background(), []models.FusedPlace{fp})
		_, present := scored[0].Evidence["price_fit"]
		assert.False(t, present)
	})
}

func TestRanker_RequirementBonuses(t *testing.T) {
	reqs := []models.Requirement{
		{Name: "WiFi", Category: models.RequirementFeature, Keywords: []string{"wifi", "internet", "wireless"}, Importance: models.ImportanceHigh},
		{Name: "Rooftop Pool", Category: models.RequirementFeature, Keywords: []string{"rooftop pool"}, Importance: models.ImportanceLow},
	}
	matcher := NewMatcher(nil, 0.75)

	fp := fusedPlace("w", "Worker Cafe", 4.2, 150, 0.7)
	fp.Representative.Amenities.WiFi = true

	r := NewRanker(models.PresetBalanced, nil, reqs, matcher)
	scored := r.Rank(context.Background(), []models.FusedPlace{fp})

	require.Len(t, scored, 1)
	sp := scored[0]

	// S5: structured wifi match at full confidence.
	require.Len(t, sp.RequirementMatches, 2)
	wifi := sp.RequirementMatches[0]
	assert.True(t, wifi.Matched)
	assert.Equal(t, models.MatchMethodStructured, wifi.Method)
	assert.Equal(t, 1.0, wifi.Confidence)
	assert.Equal(t, 10.0, wifi.BonusPoints)
	assert.Contains(t, wifi.Evidence, "wifi")

	pool := sp.RequirementMatches[1]
	assert.False(t, pool.Matched)
	assert.Equal(t, models.MatchMethodNone, pool.Method)
	assert.Equal(t, 0.0, pool.BonusPoints)

	assert.Equal(t, 120.0, sp.MaxPossibleScore)
	assert.Equal(t, 50.0, sp.MatchPercentage)
	assert.LessOrEqual(t, sp.Score, sp.MaxPossibleScore)
}

func TestRanker_MatchPercentageBounds(t *testing.T) {
	fp := fusedPlace("m", "M", 4.0, 10, 1.0)

	t.Run("100 with no requirements", func(t *testing.T) {
		r := NewRanker(models.PresetBalanced, nil, nil, nil)
		scored := r.Rank(context.Background(), []models.FusedPlace{fp})
		assert.Equal(t, 100.0, scored[0].MatchPercentage)
		assert.Equal(t, 100.0, scored[0].MaxPossibleScore)
	})

	t.Run("score never exceeds max possible", func(t *testing.T) {
		reqs := []models.Requirement{{Name: "WiFi", Keywords: []string{"wifi"}}}
		wired := fusedPlace("m2", "M2", 5.0, 100000, 0)
		wired.Representative.Amenities.WiFi = true

		r := NewRanker(models.PresetBalanced, nil, reqs, NewMatcher(nil, 0.75))
		scored := r.Rank(context.Background(), []models.FusedPlace{wired})
		assert.LessOrEqual(t, scored[0].Score, scored[0].MaxPossibleScore)
		assert.GreaterOrEqual(t, scored[0].MatchPercentage, 0.0)
		assert.LessOrEqual(t, scored[0].MatchPercentage, 100.0)
	})
}

func TestRanker_PreferenceBoost(t *testing.T) {
	fp := fusedPlace("c", "Cafe", 4.0, 100, 1.0)
	fp.Representative.Category = "cafe"
	fp.Representative.Types = []string{"cafe", "food"}

	base := NewRanker(models.PresetBalanced, nil, nil, nil)
	baseline := base.Rank(context.Background(), []models.FusedPlace{fp})[0].Score

	t.Run("category and type matches add capped points", func(t *testing.T) {
		r := NewRanker(models.PresetBalanced, nil, nil, nil)
		r.Preferences = []Preference{
			{Key: "category", Value: "cafe", Weight: 1.0},
			{Key: "type", Value: "food", Weight: 1.0},
		}
		r.MaxPreferenceBoost = 15

		scored := r.Rank(context.Background(), []models.FusedPlace{fp})
		assert.InDelta(t, baseline+9, scored[0].Score, 1e-9)
		assert.Equal(t, 9.0, scored[0].Evidence["preferences"])
	})

	t.Run("boost is capped", func(t *testing.T) {
		r := NewRanker(models.PresetBalanced, nil, nil, nil)
		r.Preferences = []Preference{
			{Key: "category", Value: "cafe", Weight: 10},
		}
		r.MaxPreferenceBoost = 15

		scored := r.Rank(context.Background(), []models.FusedPlace{fp})
		assert.Equal(t, 15.0, scored[0].Evidence["preferences"])
	})

	t.Run("no profile, no boost", func(t *testing.T) {
		scored := base.Rank(context.Background(), []models.FusedPlace{fp})
		_, present := scored[0].Evidence["preferences"]
		assert.False(t, present)
	})
}
