package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aroundme/aroundme/pkg/models"
)

func TestDeterministic_ParseIntent(t *testing.T) {
	d := NewDeterministic()
	intent, err := d.ParseIntent(context.Background(), "tacos with a view")
	require.NoError(t, err)
	assert.Equal(t, models.IntentSimple, intent.Type)
	assert.Equal(t, "tacos with a view", intent.Query)
	assert.Empty(t, intent.Category)
}

func TestDeterministic_ExtractRequirements(t *testing.T) {
	d := NewDeterministic()
	reqs, err := d.ExtractRequirements(context.Background(), "cozy cafe with wifi")
	require.NoError(t, err)
	assert.Empty(t, reqs)
}

func TestDeterministic_ParseFollowup(t *testing.T) {
	d := NewDeterministic()
	ctx := context.Background()

	parse := func(utterance string, radius int) models.FollowupIntent {
		intent, err := d.ParseFollowup(ctx, utterance, "coffee", radius)
		require.NoError(t, err)
		return intent
	}

	t.Run("distance word table", func(t *testing.T) {
		tests := []struct {
			utterance  string
			radius     int
			wantRadius int
		}{
			{"show me closer options", 3000, 1500},
			{"anything nearby?", 3000, 1000},
			{"within walking distance please", 3000, 800},
			{"within 2 miles", 3000, 3218},
			{"within 3 km", 3000, 3000},
			{"within 1.5 km", 3000, 1500},
		}
		for _, tt := range tests {
			t.Run(tt.utterance, func(t *testing.T) {
				intent := parse(tt.utterance, tt.radius)
				require.NotNil(t, intent.AdjustRadiusM)
				assert.Equal(t, tt.wantRadius, *intent.AdjustRadiusM)
			})
		}
	})

	t.Run("price words", func(t *testing.T) {
		cheap := parse("cheaper options", 3000)
		require.NotNil(t, cheap.PriceMin)
		assert.Equal(t, 1, *cheap.PriceMin)
		assert.Equal(t, 2, *cheap.PriceMax)

		fancy := parse("something fancy", 3000)
		assert.Equal(t, 3, *fancy.PriceMin)
		assert.Equal(t, 4, *fancy.PriceMax)
	})

	t.Run("features and rating", func(t *testing.T) {
		intent := parse("with wifi and outdoor seating, top rated, open now", 3000)
		assert.Equal(t, []string{"wifi", "outdoor_seating"}, intent.RequiredFeatures)
		require.NotNil(t, intent.MinRating)
		assert.Equal(t, 4.0, *intent.MinRating)
		require.NotNil(t, intent.OpenNow)
		assert.True(t, *intent.OpenNow)
	})

	t.Run("sort orders", func(t *testing.T) {
		assert.Equal(t, models.SortByDistance, parse("closest first", 3000).SortBy)
		assert.Equal(t, models.SortByRating, parse("highest rated first", 3000).SortBy)
		assert.Equal(t, models.SortByPrice, parse("cheapest first", 3000).SortBy)
	})

	t.Run("never a new search", func(t *testing.T) {
		intent := parse("pizza places instead", 3000)
		assert.False(t, intent.IsNewSearch)
	})

	t.Run("plain utterance yields empty delta", func(t *testing.T) {
		intent := parse("hmm", 3000)
		assert.Nil(t, intent.AdjustRadiusM)
		assert.Nil(t, intent.PriceMin)
		assert.Empty(t, intent.RequiredFeatures)
		assert.Equal(t, models.SortOrder(""), intent.SortBy)
	})
}

func TestResponder_Fallback(t *testing.T) {
	r := NewResponder(nil)

	places := []models.Place{{Name: "Blue Bottle Coffee"}, {Name: "Philz"}}
	got := r.Summarize(context.Background(), "cheaper", places)
	assert.Contains(t, got, "2 places")
	assert.Contains(t, got, "Blue Bottle Coffee")

	empty := r.Summarize(context.Background(), "cheaper", nil)
	assert.Contains(t, empty, "No places")
}
