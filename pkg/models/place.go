// Package models defines the domain types shared across the discovery pipeline.
package models

import "sort"

// Provider identifies an upstream place catalog.
type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderYelp   Provider = "yelp"
)

// Amenities is the closed set of structured amenity signals a provider can
// report for a place. Unknown upstream fields are dropped at the adapter
// boundary; nothing raw survives past normalization.
type Amenities struct {
	OutdoorSeating       bool `json:"outdoor_seating,omitempty"`
	GoodForChildren      bool `json:"good_for_children,omitempty"`
	GoodForGroups        bool `json:"good_for_groups,omitempty"`
	AllowsDogs           bool `json:"allows_dogs,omitempty"`
	Reservable           bool `json:"reservable,omitempty"`
	ServesBeer           bool `json:"serves_beer,omitempty"`
	ServesBreakfast      bool `json:"serves_breakfast,omitempty"`
	ServesBrunch         bool `json:"serves_brunch,omitempty"`
	ServesDinner         bool `json:"serves_dinner,omitempty"`
	ServesLunch          bool `json:"serves_lunch,omitempty"`
	ServesVegetarianFood bool `json:"serves_vegetarian_food,omitempty"`
	ServesWine           bool `json:"serves_wine,omitempty"`
	Takeout              bool `json:"takeout,omitempty"`
	Delivery             bool `json:"delivery,omitempty"`
	DineIn               bool `json:"dine_in,omitempty"`
	WheelchairAccessible bool `json:"wheelchair_accessible,omitempty"`
	WiFi                 bool `json:"wifi,omitempty"`

	// Nested sub-maps with provider-specific detail keys
	// (e.g. "free_parking_lot", "accepts_credit_cards").
	Parking map[string]bool `json:"parking,omitempty"`
	Payment map[string]bool `json:"payment,omitempty"`

	// Free-text description from the provider, used by the keyword,
	// semantic and editorial matchers.
	EditorialSummary string `json:"editorial_summary,omitempty"`
}

// Flag reports the value of a named structured amenity field. The second
// return value is false for names outside the fixed vocabulary.
func (a Amenities) Flag(name string) (value, known bool) {
	switch name {
	case "outdoor_seating":
		return a.OutdoorSeating, true
	case "good_for_children":
		return a.GoodForChildren, true
	case "good_for_groups":
		return a.GoodForGroups, true
	case "allows_dogs":
		return a.AllowsDogs, true
	case "reservable":
		return a.Reservable, true
	case "serves_beer":
		return a.ServesBeer, true
	case "serves_breakfast":
		return a.ServesBreakfast, true
	case "serves_brunch":
		return a.ServesBrunch, true
	case "serves_dinner":
		return a.ServesDinner, true
	case "serves_lunch":
		return a.ServesLunch, true
	case "serves_vegetarian_food":
		return a.ServesVegetarianFood, true
	case "serves_wine":
		return a.ServesWine, true
	case "takeout":
		return a.Takeout, true
	case "delivery":
		return a.Delivery, true
	case "dine_in":
		return a.DineIn, true
	case "wheelchair_accessible":
		return a.WheelchairAccessible, true
	case "wifi":
		return a.WiFi, true
	case "parking":
		return anyTrue(a.Parking), true
	case "payment":
		return anyTrue(a.Payment), true
	}
	return false, false
}

// FieldNames lists the structured amenity vocabulary in declaration order.
func (Amenities) FieldNames() []string {
	return []string{
		"outdoor_seating", "good_for_children", "good_for_groups",
		"allows_dogs", "reservable", "serves_beer", "serves_breakfast",
		"serves_brunch", "serves_dinner", "serves_lunch",
		"serves_vegetarian_food", "serves_wine", "takeout", "delivery",
		"dine_in", "wheelchair_accessible", "wifi", "parking", "payment",
	}
}

// TrueFlags returns the names of all amenity fields currently set, nested
// sub-map keys included. Used for the API "features" surface.
func (a Amenities) TrueFlags() []string {
	var out []string
	for _, name := range a.FieldNames() {
		if name == "parking" || name == "payment" {
			continue
		}
		if v, _ := a.Flag(name); v {
			out = append(out, name)
		}
	}
	for _, k := range sortedKeys(a.Parking) {
		if a.Parking[k] {
			out = append(out, k)
		}
	}
	for _, k := range sortedKeys(a.Payment) {
		if a.Payment[k] {
			out = append(out, k)
		}
	}
	return out
}

func anyTrue(m map[string]bool) bool {
	for _, v := range m {
		if v {
			return true
		}
	}
	return false
}

// ProviderPlace is the normalized record every provider adapter emits.
// (provider, provider_id) is unique within one provider response.
type ProviderPlace struct {
	Provider    Provider  `json:"provider"`
	ProviderID  string    `json:"provider_id"`
	Name        string    `json:"name"`
	Category    string    `json:"category,omitempty"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	Rating      *float64  `json:"rating,omitempty"`       // [0,5]
	ReviewCount *int      `json:"review_count,omitempty"` // >= 0
	PriceLevel  *int      `json:"price_level,omitempty"`  // {0..4}
	Phone       string    `json:"phone,omitempty"`
	Website     string    `json:"website,omitempty"`
	MapsURL     string    `json:"maps_url,omitempty"`
	Address     string    `json:"address,omitempty"`
	DistanceKm  float64   `json:"distance_km"`
	Types       []string  `json:"types,omitempty"`
	Amenities   Amenities `json:"amenities"`
}

// RatingValue returns the rating or 0 when absent.
func (p ProviderPlace) RatingValue() float64 {
	if p.Rating == nil {
		return 0
	}
	return *p.Rating
}

// ReviewCountValue returns the review count or 0 when absent.
func (p ProviderPlace) ReviewCountValue() int {
	if p.ReviewCount == nil {
		return 0
	}
	return *p.ReviewCount
}

// ProvenanceEntry records how a cluster member relates to its representative.
type ProvenanceEntry struct {
	Provider       Provider `json:"provider"`
	ProviderID     string   `json:"provider_id"`
	Name           string   `json:"name"`
	NameSimilarity float64  `json:"name_similarity"` // [0,1] vs representative
	GeoOffsetM     float64  `json:"geo_offset_m"`    // meters from representative
	Rating         *float64 `json:"rating,omitempty"`
	ReviewCount    *int     `json:"review_count,omitempty"`
}

// FusedPlace is one dedupe cluster with its chosen representative.
type FusedPlace struct {
	ID             string            `json:"id"`
	Representative ProviderPlace     `json:"representative"`
	Members        []ProviderPlace   `json:"members"`
	Provenance     []ProvenanceEntry `json:"provenance"`
}

// MatchMethod names the requirement-matching method that produced a match.
type MatchMethod string

const (
	MatchMethodStructured MatchMethod = "structured"
	MatchMethodKeyword    MatchMethod = "keyword"
	MatchMethodSemantic   MatchMethod = "semantic"
	MatchMethodEditorial  MatchMethod = "editorial"
	MatchMethodNone       MatchMethod = "none"
)

// MatchedRequirement is the per-(place, requirement) matcher outcome.
type MatchedRequirement struct {
	Requirement string      `json:"requirement"`
	Matched     bool        `json:"matched"`
	Method      MatchMethod `json:"method"`
	Confidence  float64     `json:"confidence"` // [0,1]
	BonusPoints float64     `json:"bonus_points"`
	Evidence    string      `json:"evidence,omitempty"`
}

// MatchedPartner is a partner place that satisfied a multi-entity relation.
type MatchedPartner struct {
	Kind             string   `json:"kind"`
	Name             string   `json:"name"`
	DistanceM        float64  `json:"distance_m"`
	MatchedMustHaves []string `json:"matched_must_haves"`
	Lat              float64  `json:"lat"`
	Lng              float64  `json:"lng"`
}

// ScoredPlace is a fused place with its ranking outcome attached.
type ScoredPlace struct {
	Fused              FusedPlace           `json:"fused"`
	Score              float64              `json:"score"`
	Evidence           map[string]float64   `json:"evidence"`
	RequirementMatches []MatchedRequirement `json:"requirement_matches"`
	MaxPossibleScore   float64              `json:"max_possible_score"`
	MatchPercentage    float64              `json:"match_percentage"`
	MatchedPartners    []MatchedPartner     `json:"matched_partners,omitempty"`
}

func sortedKeys(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
