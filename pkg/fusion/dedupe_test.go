package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aroundme/aroundme/pkg/models"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func place(provider models.Provider, id, name string, lat, lng float64) models.ProviderPlace {
	return models.ProviderPlace{
		Provider:   provider,
		ProviderID: id,
		Name:       name,
		Lat:        lat,
		Lng:        lng,
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Blue Bottle Coffee, Inc.", "blue bottle coffee"},
		{"Starbucks Coffee", "starbucks coffee"},
		{"Joe's Café!!!", "joes café"},
		{"  Multiple   Spaces  ", "multiple spaces"},
		{"Acme LLC.", "acme"},
		{"Widgets Corp.", "widgets"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.in))
		})
	}
}

func TestDeduper_AreDuplicates(t *testing.T) {
	d := NewDeduper(82, 120)

	t.Run("same place across providers", func(t *testing.T) {
		a := place(models.ProviderGoogle, "1", "Blue Bottle Coffee", 37.7749, -122.4194)
		b := place(models.ProviderYelp, "2", "Blue Bottle Coffee", 37.7750, -122.4195)
		assert.True(t, d.areDuplicates(a, b))
		assert.True(t, d.areDuplicates(b, a), "relation must be symmetric")
		assert.True(t, d.areDuplicates(a, a), "relation must be reflexive")
	})

	t.Run("different names nearby", func(t *testing.T) {
		a := place(models.ProviderGoogle, "1", "Blue Bottle Coffee", 37.7749, -122.4194)
		b := place(models.ProviderYelp, "2", "Philz Coffee", 37.7749, -122.4194)
		assert.False(t, d.areDuplicates(a, b))
	})

	t.Run("same name far apart", func(t *testing.T) {
		a := place(models.ProviderGoogle, "1", "Starbucks", 37.7749, -122.4194)
		b := place(models.ProviderYelp, "2", "Starbucks", 37.8749, -122.4194)
		assert.False(t, d.areDuplicates(a, b), "11km apart exceeds the geo threshold")
	})
}

func TestDeduper_Cluster(t *testing.T) {
	d := NewDeduper(82, 120)

	t.Run("cross-provider dedupe", func(t *testing.T) {
		a := place(models.ProviderGoogle, "g1", "Blue Bottle Coffee", 37.7749, -122.4194)
		a.ReviewCount = intPtr(100)
		a.Rating = floatPtr(4.5)
		b := place(models.ProviderYelp, "y1", "Blue Bottle Coffee", 37.77500, -122.41950)
		b.ReviewCount = intPtr(80)
		b.Rating = floatPtr(4.3)
		c := place(models.ProviderGoogle, "g2", "Starbucks", 37.7800, -122.4200)

		fused, stats := d.Cluster([]models.ProviderPlace{a, b, c})

		require.Len(t, fused, 2)
		assert.Equal(t, 3, stats.InputCount)
		assert.Equal(t, 2, stats.OutputCount)
		assert.Equal(t, 1, stats.DuplicatesRemoved)

		blueBottle := fused[0]
		require.Len(t, blueBottle.Members, 2)
		assert.Equal(t, models.ProviderGoogle, blueBottle.Representative.Provider,
			"representative should come from the member with more reviews")
		assert.Equal(t, "Starbucks", fused[1].Representative.Name)
	})

	t.Run("partition invariant", func(t *testing.T) {
		places := []models.ProviderPlace{
			place(models.ProviderGoogle, "1", "Blue Bottle Coffee", 37.7749, -122.4194),
			place(models.ProviderYelp, "2", "Blue Bottle Coffee", 37.7750, -122.4195),
			place(models.ProviderGoogle, "3", "Philz Coffee", 37.7800, -122.4200),
			place(models.ProviderYelp, "4", "Tartine Bakery", 37.7614, -122.4241),
		}

		fused, _ := d.Cluster(places)

		total := 0
		for _, fp := range fused {
			total += len(fp.Members)
			// representative must be a member of its own cluster
			found := false
			for _, m := range fp.Members {
				if m.ProviderID == fp.Representative.ProviderID && m.Provider == fp.Representative.Provider {
					found = true
				}
			}
			assert.True(t, found, "representative must belong to its cluster")
			assert.Len(t, fp.Provenance, len(fp.Members))
		}
		assert.Equal(t, len(places), total, "every input record lands in exactly one cluster")
	})

	t.Run("identical coordinates and names collapse", func(t *testing.T) {
		a := place(models.ProviderGoogle, "1", "Cafe X", 37.0, -122.0)
		b := place(models.ProviderYelp, "2", "Cafe X", 37.0, -122.0)
		fused, _ := d.Cluster([]models.ProviderPlace{a, b})
		require.Len(t, fused, 1)
		assert.Len(t, fused[0].Members, 2)
	})

	t.Run("empty input", func(t *testing.T) {
		fused, stats := d.Cluster(nil)
		assert.Empty(t, fused)
		assert.Equal(t, 0, stats.InputCount)
	})

	t.Run("deterministic given input order", func(t *testing.T) {
		places := []models.ProviderPlace{
			place(models.ProviderGoogle, "1", "Alpha", 37.0, -122.0),
			place(models.ProviderYelp, "2", "Beta", 37.1, -122.1),
			place(models.ProviderYelp, "3", "Alpha", 37.0, -122.0),
		}
		first, _ := d.Cluster(places)
		second, _ := d.Cluster(places)
		require.Equal(t, len(first), len(second))
		for i := range first {
			assert.Equal(t, first[i].Representative.ProviderID, second[i].Representative.ProviderID)
			assert.Equal(t, len(first[i].Members), len(second[i].Members))
		}
	})
}

func TestSelectRepresentative(t *testing.T) {
	t.Run("prefers review count over rating", func(t *testing.T) {
		low := place(models.ProviderYelp, "1", "Coffee Shop", 37.0, -122.0)
		low.Rating = floatPtr(4.9)
		low.ReviewCount = intPtr(50)
		high := place(models.ProviderGoogle, "2", "Coffee Shop", 37.0, -122.0)
		high.Rating = floatPtr(4.5)
		high.ReviewCount = intPtr(100)

		rep := selectRepresentative([]models.ProviderPlace{low, high})
		assert.Equal(t, "2", rep.ProviderID)
	})

	t.Run("provider preference breaks full ties", func(t *testing.T) {
		yelp := place(models.ProviderYelp, "y", "Coffee Shop", 37.0, -122.0)
		google := place(models.ProviderGoogle, "g", "Coffee Shop", 37.0, -122.0)

		rep := selectRepresentative([]models.ProviderPlace{yelp, google})
		assert.Equal(t, models.ProviderGoogle, rep.Provider)
	})
}

func TestBuildProvenance(t *testing.T) {
	rep := place(models.ProviderGoogle, "g1", "Blue Bottle Coffee", 37.7749, -122.4194)
	other := place(models.ProviderYelp, "y1", "Blue Bottle", 37.7750, -122.4195)

	entries := buildProvenance([]models.ProviderPlace{rep, other}, rep)

	require.Len(t, entries, 2)
	assert.Equal(t, 1.0, entries[0].NameSimilarity)
	assert.Equal(t, 0.0, entries[0].GeoOffsetM)
	assert.Equal(t, models.ProviderYelp, entries[1].Provider)
	assert.GreaterOrEqual(t, entries[1].NameSimilarity, 0.8)
	assert.Greater(t, entries[1].GeoOffsetM, 0.0)
}
