package fusion

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"github.com/aroundme/aroundme/pkg/models"
)

// PresetPoints is a named weighting of the base signals. Points sum to 100.
type PresetPoints struct {
	Rating   float64
	Reviews  float64
	Distance float64
}

var presets = map[models.RankingPresetName]PresetPoints{
	models.PresetBalanced:    {Rating: 55, Reviews: 30, Distance: 15},
	models.PresetNearby:      {Rating: 35, Reviews: 20, Distance: 45},
	models.PresetReviewHeavy: {Rating: 45, Reviews: 50, Distance: 5},
}

// PresetFor resolves a preset name, falling back to balanced.
func PresetFor(name models.RankingPresetName) PresetPoints {
	if p, ok := presets[name]; ok {
		return p
	}
	return presets[models.PresetBalanced]
}

const (
	// basePoints is the ceiling of the base signals per place.
	basePoints = 100.0

	// priceFitBonus is added when the place's price level falls inside the
	// requested window.
	priceFitBonus = 5.0

	// maxDistanceKm is where the distance contribution bottoms out.
	maxDistanceKm = 10.0

	// reviewLogDivisor normalizes ln(1+reviews) into [0,1].
	reviewLogDivisor = 8.0
)

// Preference is one weighted profile preference used for personalization.
type Preference struct {
	Key    string  `json:"key"`
	Value  string  `json:"value"`
	Weight float64 `json:"weight"`
}

// Ranker combines base signals, requirement bonuses and personalization
// into a total, deterministic ordering.
type Ranker struct {
	Preset       models.RankingPresetName
	Filters      *models.SearchFilters
	Requirements []models.Requirement
	Matcher      *Matcher

	// Preferences and MaxPreferenceBoost drive the optional
	// personalization bonus; both zero-valued disable it.
	Preferences        []Preference
	MaxPreferenceBoost float64

	logger *slog.Logger
}

// NewRanker builds a Ranker for one request.
func NewRanker(preset models.RankingPresetName, filters *models.SearchFilters, reqs []models.Requirement, matcher *Matcher) *Ranker {
	return &Ranker{
		Preset:       preset,
		Filters:      filters,
		Requirements: reqs,
		Matcher:      matcher,
		logger:       slog.With("component", "ranker"),
	}
}

// Rank scores every fused place and returns them ordered by score
// descending, ties broken by rating, review count, then distance.
func (r *Ranker) Rank(ctx context.Context, fused []models.FusedPlace) []models.ScoredPlace {
	points := PresetFor(r.Preset)
	maxPossible := basePoints + bonusPerConfidence*float64(len(r.Requirements))

	scored := make([]models.ScoredPlace, 0, len(fused))
	for _, fp := range fused {
		sp := r.scoreOne(ctx, fp, points)
		sp.MaxPossibleScore = maxPossible
		// Price-fit and preference bonuses must not push a perfect base
		// score past the ceiling.
		if sp.Score > maxPossible {
			sp.Score = maxPossible
		}
		scored = append(scored, sp)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		ra, rb := a.Fused.Representative, b.Fused.Representative
		if ra.RatingValue() != rb.RatingValue() {
			return ra.RatingValue() > rb.RatingValue()
		}
		if ra.ReviewCountValue() != rb.ReviewCountValue() {
			return ra.ReviewCountValue() > rb.ReviewCountValue()
		}
		return ra.DistanceKm < rb.DistanceKm
	})

	if len(scored) > 0 {
		r.logger.Info("ranking complete",
			"preset", r.Preset,
			"count", len(scored),
			"top_score", roundTo(scored[0].Score, 2))
	}
	return scored
}

func (r *Ranker) scoreOne(ctx context.Context, fp models.FusedPlace, points PresetPoints) models.ScoredPlace {
	rep := fp.Representative
	evidence := make(map[string]float64)

	var ratingPts float64
	if rep.Rating != nil {
		ratingPts = (*rep.Rating / 5.0) * points.Rating
	}
	evidence["rating"] = roundTo(ratingPts, 4)

	var reviewPts float64
	if rep.ReviewCount != nil {
		reviewPts = math.Min(1, math.Log1p(float64(*rep.ReviewCount))/reviewLogDivisor) * points.Reviews
	}
	evidence["reviews"] = roundTo(reviewPts, 4)

	distancePts := math.Max(0, 1-math.Min(rep.DistanceKm, maxDistanceKm)/maxDistanceKm) * points.Distance
	evidence["distance"] = roundTo(distancePts, 4)

	score := ratingPts + reviewPts + distancePts

	if r.Filters != nil && r.Filters.Price != nil && rep.PriceLevel != nil {
		if r.Filters.Price.Contains(*rep.PriceLevel) {
			score += priceFitBonus
			evidence["price_fit"] = priceFitBonus
		} else {
			evidence["price_fit"] = 0
		}
	}

	var matches []models.MatchedRequirement
	if len(r.Requirements) > 0 && r.Matcher != nil {
		matches = r.Matcher.MatchAll(ctx, r.Requirements, rep)
		var bonus float64
		for _, m := range matches {
			bonus += m.BonusPoints
		}
		score += bonus
		evidence["requirements"] = roundTo(bonus, 4)
	}

	if boost := r.preferenceBoost(rep); boost > 0 {
		score += boost
		evidence["preferences"] = roundTo(boost, 4)
	}

	return models.ScoredPlace{
		Fused:              fp,
		Score:              score,
		Evidence:           evidence,
		RequirementMatches: matches,
		MatchPercentage:    matchPercentage(matches, len(r.Requirements)),
	}
}

// preferenceBoost adds points for profile preferences that match the place's
// category or type tags, capped at MaxPreferenceBoost.
func (r *Ranker) preferenceBoost(rep models.ProviderPlace) float64 {
	if len(r.Preferences) == 0 || r.MaxPreferenceBoost <= 0 {
		return 0
	}
	var boost float64
	for _, pref := range r.Preferences {
		switch pref.Key {
		case "category":
			if rep.Category != "" && rep.Category == pref.Value {
				boost += 5 * pref.Weight
			}
		case "type":
			for _, tag := range rep.Types {
				if tag == pref.Value {
					boost += 4 * pref.Weight
					break
				}
			}
		}
	}
	return math.Min(boost, r.MaxPreferenceBoost)
}

func matchPercentage(matches []models.MatchedRequirement, total int) float64 {
	if total == 0 {
		return 100
	}
	matched := 0
	for _, m := range matches {
		if m.Matched {
			matched++
		}
	}
	return float64(matched) / float64(total) * 100
}

func roundTo(v float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(v*pow) / pow
}
