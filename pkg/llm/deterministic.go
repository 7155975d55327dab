package llm

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/aroundme/aroundme/pkg/models"
)

// Deterministic is the rule-based extractor used as the fallback for every
// LLM path and as the whole extractor in deterministic agent mode.
type Deterministic struct{}

// NewDeterministic builds the rule-based extractor.
func NewDeterministic() *Deterministic { return &Deterministic{} }

// ParseIntent always yields a simple intent carrying the raw query.
func (d *Deterministic) ParseIntent(_ context.Context, query string) (models.Intent, error) {
	return models.SimpleIntent(query), nil
}

// ExtractRequirements yields no requirements: without a model there is
// nothing trustworthy to score against.
func (d *Deterministic) ExtractRequirements(_ context.Context, _ string) ([]models.Requirement, error) {
	return nil, nil
}

var (
	milesPattern = regexp.MustCompile(`within\s+(\d+(?:\.\d+)?)\s*miles?`)
	kmPattern    = regexp.MustCompile(`within\s+(\d+(?:\.\d+)?)\s*(?:km|kilometers?)`)
)

// followupFeatureRules maps utterance fragments to required feature names.
var followupFeatureRules = []struct {
	needles []string
	feature string
}{
	{[]string{"wifi", "internet"}, "wifi"},
	{[]string{"outdoor seating", "patio", "outside"}, "outdoor_seating"},
	{[]string{"parking"}, "parking"},
	{[]string{"family friendly", "family-friendly", "kids"}, "family_friendly"},
	{[]string{"dog friendly", "pet friendly"}, "pet_friendly"},
	{[]string{"wheelchair"}, "wheelchair_accessible"},
}

// ParseFollowup applies the distance-word table and the filter keyword rules
// to a follow-up utterance. It never classifies the utterance as a new
// search; only the model can make that call.
func (d *Deterministic) ParseFollowup(_ context.Context, utterance, _ string, currentRadiusM int) (models.FollowupIntent, error) {
	text := strings.ToLower(utterance)
	intent := models.FollowupIntent{}

	// Distance words, most specific first.
	switch {
	case milesPattern.MatchString(text):
		m := milesPattern.FindStringSubmatch(text)
		if miles, err := strconv.ParseFloat(m[1], 64); err == nil {
			radius := int(miles * 1609)
			intent.AdjustRadiusM = &radius
		}
	case kmPattern.MatchString(text):
		m := kmPattern.FindStringSubmatch(text)
		if km, err := strconv.ParseFloat(m[1], 64); err == nil {
			radius := int(km * 1000)
			intent.AdjustRadiusM = &radius
		}
	case strings.Contains(text, "walking distance"):
		radius := 800
		intent.AdjustRadiusM = &radius
	case strings.Contains(text, "closer"):
		radius := currentRadiusM / 2
		intent.AdjustRadiusM = &radius
	case strings.Contains(text, "nearby"):
		radius := 1000
		intent.AdjustRadiusM = &radius
	}

	// Price words.
	switch {
	case containsAny(text, "cheap", "cheaper", "affordable", "budget", "inexpensive"):
		intent.PriceMin, intent.PriceMax = intPtr(1), intPtr(2)
	case containsAny(text, "moderate", "mid-range", "mid range"):
		intent.PriceMin, intent.PriceMax = intPtr(2), intPtr(3)
	case containsAny(text, "expensive", "fancy", "upscale"):
		intent.PriceMin, intent.PriceMax = intPtr(3), intPtr(4)
	}

	for _, rule := range followupFeatureRules {
		if containsAny(text, rule.needles...) {
			intent.RequiredFeatures = append(intent.RequiredFeatures, rule.feature)
		}
	}

	if strings.Contains(text, "open now") {
		open := true
		intent.OpenNow = &open
	}
	if containsAny(text, "highly rated", "top rated", "best rated") {
		rating := 4.0
		intent.MinRating = &rating
	}

	switch {
	case containsAny(text, "highest rated first", "best first"):
		intent.SortBy = models.SortByRating
	case containsAny(text, "closest first", "nearest first", "nearest"):
		intent.SortBy = models.SortByDistance
	case containsAny(text, "cheapest first"):
		intent.SortBy = models.SortByPrice
	}

	return intent, nil
}

func containsAny(haystack string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func intPtr(v int) *int { return &v }
