// Package fusion implements the deterministic core of the discovery
// pipeline: cross-provider deduplication, amenity normalization,
// requirement matching, constraint joining and ranking.
package fusion

import (
	"strings"

	"github.com/aroundme/aroundme/pkg/models"
)

// amenityAliases maps each canonical amenity to the spellings users and
// providers use for it. Order matters only for evidence text.
var amenityAliases = map[string][]string{
	// Family
	"changing_station": {"changing station", "changing table", "baby changing", "diaper changing"},
	"stroller_parking": {"stroller parking", "stroller friendly", "pram parking"},
	"playground":       {"playground", "play area", "kids play", "children playground"},
	"family_friendly":  {"family friendly", "family-friendly", "kid friendly", "kids welcome", "children welcome"},

	// Cinema
	"recliners": {"recliners", "recliner seats", "luxury seating"},
	"dolby":     {"dolby", "dolby atmos", "dolby cinema", "dolby sound"},

	// Outdoor
	"shade":           {"shade", "shaded area", "covered seating", "umbrella"},
	"outdoor_seating": {"outdoor seating", "patio", "terrace", "outdoor dining", "garden seating"},

	// Connectivity
	"wifi": {"wifi", "wi-fi", "wireless", "internet", "free wifi"},

	// Accessibility
	"wheelchair_accessible": {"wheelchair accessible", "wheelchair", "accessible", "ada compliant"},

	// Parking
	"parking": {"parking", "parking lot", "valet parking", "free parking"},

	// Pets
	"pet_friendly": {"pet friendly", "dog friendly", "pets allowed", "dogs allowed"},

	// Food
	"vegetarian":  {"vegetarian", "veggie options", "vegetarian friendly"},
	"vegan":       {"vegan", "vegan options", "plant based"},
	"gluten_free": {"gluten free", "gluten-free", "gf options"},

	// Service
	"takeout":      {"takeout", "take out", "to go"},
	"delivery":     {"delivery", "food delivery"},
	"reservations": {"reservations", "booking", "table booking", "reservable"},

	// Atmosphere
	"quiet":      {"quiet", "peaceful", "calm", "relaxing"},
	"live_music": {"live music", "entertainment"},
}

// structuredFields maps canonical amenities to the structured amenity field
// that can confirm them directly. Amenities without a structured counterpart
// fall through to the text-based checks.
var structuredFields = map[string]string{
	"outdoor_seating":       "outdoor_seating",
	"family_friendly":       "good_for_children",
	"wifi":                  "wifi",
	"wheelchair_accessible": "wheelchair_accessible",
	"parking":               "parking",
	"pet_friendly":          "allows_dogs",
	"vegetarian":            "serves_vegetarian_food",
	"vegan":                 "serves_vegetarian_food",
	"takeout":               "takeout",
	"delivery":              "delivery",
	"reservations":          "reservable",
}

// CanonicalAmenity resolves free text to its canonical amenity name.
// Unknown text is normalized to snake case and returned as-is.
func CanonicalAmenity(text string) string {
	needle := strings.ToLower(strings.TrimSpace(text))
	needle = strings.ReplaceAll(needle, "_", " ")
	for canonical, aliases := range amenityAliases {
		if needle == strings.ReplaceAll(canonical, "_", " ") {
			return canonical
		}
		for _, alias := range aliases {
			if needle == alias {
				return canonical
			}
		}
	}
	return strings.ReplaceAll(needle, " ", "_")
}

// AmenityText renders a place's structured amenities as human-readable
// lowercase text, editorial summary included. The keyword matcher and the
// must-have checks search this blob.
func AmenityText(a models.Amenities) string {
	var parts []string
	for _, name := range a.FieldNames() {
		if name == "parking" || name == "payment" {
			continue
		}
		if v, _ := a.Flag(name); v {
			parts = append(parts, humanize(name))
		}
	}
	for k, v := range a.Parking {
		if v {
			parts = append(parts, humanize(k))
		}
	}
	for k, v := range a.Payment {
		if v {
			parts = append(parts, humanize(k))
		}
	}
	if a.EditorialSummary != "" {
		parts = append(parts, strings.ToLower(a.EditorialSummary))
	}
	return strings.Join(parts, ". ")
}

// SearchText builds the lowercase haystack for text matching: name,
// category, address, type tags, then amenity text.
func SearchText(p models.ProviderPlace) string {
	parts := []string{p.Name, p.Category, p.Address}
	parts = append(parts, p.Types...)
	blob := strings.ToLower(strings.Join(parts, " "))
	if amenities := AmenityText(p.Amenities); amenities != "" {
		blob += " " + amenities
	}
	return blob
}

// HasAmenity reports whether a place satisfies a must-have amenity: either a
// structured flag confirms it, or any textual field contains a known alias.
func HasAmenity(p models.ProviderPlace, mustHave string) bool {
	canonical := CanonicalAmenity(mustHave)

	if field, ok := structuredFields[canonical]; ok {
		if v, known := p.Amenities.Flag(field); known && v {
			return true
		}
	}

	haystack := SearchText(p)
	aliases := amenityAliases[canonical]
	if len(aliases) == 0 {
		aliases = []string{strings.ReplaceAll(canonical, "_", " ")}
	}
	for _, alias := range aliases {
		if strings.Contains(haystack, alias) {
			return true
		}
	}
	return false
}

// MatchedMustHaves returns the subset of mustHaves a place satisfies.
func MatchedMustHaves(p models.ProviderPlace, mustHaves []string) []string {
	var matched []string
	for _, mh := range mustHaves {
		if HasAmenity(p, mh) {
			matched = append(matched, mh)
		}
	}
	return matched
}

func humanize(field string) string {
	return strings.ReplaceAll(strings.ToLower(field), "_", " ")
}

// featureFlagAliases maps canonical amenities to the structured feature
// flags that satisfy them on an already-formatted place.
var featureFlagAliases = map[string][]string{
	"wifi":                  {"wifi"},
	"outdoor_seating":       {"outdoor_seating"},
	"family_friendly":       {"good_for_children"},
	"pet_friendly":          {"allows_dogs"},
	"wheelchair_accessible": {"wheelchair_accessible"},
	"reservations":          {"reservable"},
	"takeout":               {"takeout"},
	"delivery":              {"delivery"},
	"vegetarian":            {"serves_vegetarian_food"},
	"vegan":                 {"serves_vegetarian_food"},
}

// FeatureSatisfied reports whether a required feature is present and true
// in a place's feature flags. Used by the follow-up refiner, which only has
// the formatted place.
func FeatureSatisfied(flags []string, required string) bool {
	canonical := CanonicalAmenity(required)
	accepted := featureFlagAliases[canonical]
	if len(accepted) == 0 {
		accepted = []string{canonical}
	}
	for _, flag := range flags {
		if canonical == "parking" && strings.Contains(flag, "parking") {
			return true
		}
		for _, a := range accepted {
			if flag == a {
				return true
			}
		}
	}
	return false
}
