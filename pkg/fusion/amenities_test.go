package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aroundme/aroundme/pkg/models"
)

func TestCanonicalAmenity(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"wifi", "wifi"},
		{"Wi-Fi", "wifi"},
		{"wireless", "wifi"},
		{"patio", "outdoor_seating"},
		{"changing table", "changing_station"},
		{"dog friendly", "pet_friendly"},
		{"Family Friendly", "family_friendly"},
		{"family_friendly", "family_friendly"},
		{"laser tag", "laser_tag"}, // outside the vocabulary, snake-cased as-is
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalAmenity(tt.in))
		})
	}
}

func TestAmenityText(t *testing.T) {
	var a models.Amenities
	a.WiFi = true
	a.OutdoorSeating = true
	a.Parking = map[string]bool{"free_parking_lot": true, "valet": false}
	a.EditorialSummary = "A neighborhood favorite."

	text := AmenityText(a)

	assert.Contains(t, text, "wifi")
	assert.Contains(t, text, "outdoor seating")
	assert.Contains(t, text, "free parking lot")
	assert.NotContains(t, text, "valet")
	assert.Contains(t, text, "a neighborhood favorite")
}

func TestHasAmenity(t *testing.T) {
	t.Run("structured flag wins", func(t *testing.T) {
		p := models.ProviderPlace{Name: "Some Cafe"}
		p.Amenities.WiFi = true
		assert.True(t, HasAmenity(p, "wifi"))
	})

	t.Run("alias in name", func(t *testing.T) {
		p := models.ProviderPlace{Name: "The Playground Bar"}
		assert.True(t, HasAmenity(p, "playground"))
	})

	t.Run("alias in editorial summary", func(t *testing.T) {
		p := models.ProviderPlace{Name: "Chez Marie"}
		p.Amenities.EditorialSummary = "Lovely terrace overlooking the garden."
		assert.True(t, HasAmenity(p, "outdoor_seating"))
	})

	t.Run("absent amenity", func(t *testing.T) {
		p := models.ProviderPlace{Name: "Basement Bar", Address: "1 Main St"}
		assert.False(t, HasAmenity(p, "outdoor_seating"))
	})

	t.Run("unknown amenity matches literal text", func(t *testing.T) {
		p := models.ProviderPlace{Name: "Neon Laser Tag Arena"}
		assert.True(t, HasAmenity(p, "laser tag"))
	})
}

func TestMatchedMustHaves(t *testing.T) {
	p := models.ProviderPlace{Name: "Sunny Park Cafe"}
	p.Amenities.WiFi = true
	p.Amenities.EditorialSummary = "Shaded patio with a play area for kids."

	matched := MatchedMustHaves(p, []string{"wifi", "playground", "dolby"})

	assert.Equal(t, []string{"wifi", "playground"}, matched)
}

func TestSearchText(t *testing.T) {
	p := models.ProviderPlace{
		Name:     "Blue Bottle Coffee",
		Category: "Cafe",
		Address:  "66 Mint St",
		Types:    []string{"cafe", "coffee_shop"},
	}
	p.Amenities.Takeout = true

	text := SearchText(p)

	assert.Contains(t, text, "blue bottle coffee")
	assert.Contains(t, text, "cafe")
	assert.Contains(t, text, "66 mint st")
	assert.Contains(t, text, "coffee_shop")
	assert.Contains(t, text, "takeout")
}
