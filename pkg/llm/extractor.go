package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aroundme/aroundme/pkg/models"
)

// distanceStopwords are proximity words that must never become scored
// requirements; they belong to the radius, not to the place.
var distanceStopwords = map[string]bool{
	"nearby": true, "close": true, "close by": true, "closest": true,
	"near": true, "nearest": true, "around": true,
	"walking distance": true, "within walking distance": true,
	"in the area": true, "around here": true, "by me": true, "near me": true,
}

// genericPlaceNouns never carry requirement signal on their own.
var genericPlaceNouns = map[string]bool{
	"restaurant": true, "restaurants": true, "food": true, "cafe": true,
	"bar": true, "place": true, "places": true, "spot": true, "spots": true,
	"venue": true,
}

// Extractor is the LLM-assisted intent extractor. Every method falls back to
// the Deterministic extractor when the model is unavailable or returns
// something unparseable.
type Extractor struct {
	completer TextCompleter
	fallback  *Deterministic
	logger    *slog.Logger
}

// NewExtractor builds an Extractor over a completion client.
func NewExtractor(completer TextCompleter) *Extractor {
	return &Extractor{
		completer: completer,
		fallback:  NewDeterministic(),
		logger:    slog.With("component", "intent-extractor"),
	}
}

// wireIntent mirrors the JSON shape the model is prompted to emit.
type wireIntent struct {
	Type     string `json:"type"`
	Query    string `json:"query"`
	Category string `json:"category"`
	Entities []struct {
		Kind      string   `json:"kind"`
		MustHaves []string `json:"must_haves"`
	} `json:"entities"`
	Relations []struct {
		Left      int     `json:"left"`
		Right     int     `json:"right"`
		Relation  string  `json:"relation"`
		DistanceM float64 `json:"distance_m"`
	} `json:"relations"`
}

// ParseIntent asks the model to structure the query, strictly parsing its
// output and falling back to a simple intent on any failure.
func (e *Extractor) ParseIntent(ctx context.Context, query string) (models.Intent, error) {
	raw, err := e.completer.CompleteJSON(ctx, parseIntentSystem, "Query: "+query, 0.1)
	if err != nil {
		e.logger.Warn("intent parse failed, using deterministic fallback", "error", err)
		return e.fallback.ParseIntent(ctx, query)
	}

	var wire wireIntent
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		e.logger.Warn("intent parse returned malformed JSON, using deterministic fallback", "error", err)
		return e.fallback.ParseIntent(ctx, query)
	}

	intent, err := wire.toIntent(query)
	if err != nil {
		e.logger.Warn("intent parse returned invalid intent, using deterministic fallback", "error", err)
		return e.fallback.ParseIntent(ctx, query)
	}
	return intent, nil
}

func (w wireIntent) toIntent(originalQuery string) (models.Intent, error) {
	switch w.Type {
	case "simple", "":
		q := w.Query
		if q == "" {
			q = originalQuery
		}
		return models.Intent{Type: models.IntentSimple, Query: q, Category: w.Category}, nil

	case "multi_entity":
		intent := models.Intent{Type: models.IntentMultiEntity}
		for _, ent := range w.Entities {
			intent.Entities = append(intent.Entities, models.EntitySpec{
				Kind:      ent.Kind,
				MustHaves: ent.MustHaves,
			})
		}
		for _, rel := range w.Relations {
			predicate := models.RelationPredicate(strings.ToUpper(rel.Relation))
			if predicate != models.RelationNear && predicate != models.RelationWithinDistance {
				predicate = models.RelationNear
			}
			intent.Relations = append(intent.Relations, models.Relation{
				Left:      rel.Left,
				Right:     rel.Right,
				Predicate: predicate,
				DistanceM: rel.DistanceM,
			})
		}
		if err := intent.Validate(); err != nil {
			return models.Intent{}, err
		}
		return intent, nil

	default:
		return models.Intent{}, fmt.Errorf("unknown intent type %q", w.Type)
	}
}

type wireRequirements struct {
	NormalizedRequirements []struct {
		Requirement string   `json:"requirement"`
		Category    string   `json:"category"`
		Keywords    []string `json:"keywords"`
		Importance  string   `json:"importance"`
	} `json:"normalized_requirements"`
}

// ExtractRequirements extracts ranked requirements from the query. Distance
// words and generic place nouns are rejected post-hoc so a chatty model
// cannot smuggle them into the scorer.
func (e *Extractor) ExtractRequirements(ctx context.Context, query string) ([]models.Requirement, error) {
	trimmed := strings.TrimSpace(query)
	if len(trimmed) < 3 || genericPlaceNouns[strings.ToLower(trimmed)] {
		return nil, nil
	}

	raw, err := e.completer.CompleteJSON(ctx, extractRequirementsSystem, "Query: "+query, 0.1)
	if err != nil {
		e.logger.Warn("requirement extraction failed, continuing without requirements", "error", err)
		return e.fallback.ExtractRequirements(ctx, query)
	}

	var wire wireRequirements
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		e.logger.Warn("requirement extraction returned malformed JSON", "error", err)
		return e.fallback.ExtractRequirements(ctx, query)
	}

	reqs := make([]models.Requirement, 0, len(wire.NormalizedRequirements))
	for _, r := range wire.NormalizedRequirements {
		name := strings.TrimSpace(r.Requirement)
		if name == "" || isStopword(name) {
			continue
		}

		keywords := make([]string, 0, len(r.Keywords))
		for _, kw := range r.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" || isStopword(kw) {
				continue
			}
			keywords = append(keywords, kw)
		}
		if len(keywords) == 0 {
			continue
		}

		reqs = append(reqs, models.Requirement{
			Name:       name,
			Category:   parseCategory(r.Category),
			Keywords:   keywords,
			Importance: parseImportance(r.Importance),
		})
	}

	e.logger.Info("requirements extracted", "query", query, "count", len(reqs))
	return reqs, nil
}

func isStopword(word string) bool {
	w := strings.ToLower(strings.TrimSpace(word))
	return distanceStopwords[w] || genericPlaceNouns[w]
}

func parseCategory(raw string) models.RequirementCategory {
	if models.RequirementCategory(raw) == models.RequirementQuality {
		return models.RequirementQuality
	}
	return models.RequirementFeature
}

func parseImportance(raw string) models.Importance {
	switch models.Importance(raw) {
	case models.ImportanceMedium:
		return models.ImportanceMedium
	case models.ImportanceLow:
		return models.ImportanceLow
	default:
		return models.ImportanceHigh
	}
}

// ParseFollowup classifies a follow-up utterance. Out-of-range numbers and
// unknown sort orders in the model output are dropped by clampFollowup; on
// failure the rule-based parser takes over entirely.
func (e *Extractor) ParseFollowup(ctx context.Context, utterance, originalQuery string, currentRadiusM int) (models.FollowupIntent, error) {
	system := fmt.Sprintf(parseFollowupSystemTemplate, originalQuery, currentRadiusM, currentRadiusM/2)

	raw, err := e.completer.CompleteJSON(ctx, system, "Follow-up: "+utterance, 0.3)
	if err != nil {
		e.logger.Warn("followup parse failed, using deterministic fallback", "error", err)
		return e.fallback.ParseFollowup(ctx, utterance, originalQuery, currentRadiusM)
	}

	var intent models.FollowupIntent
	if err := json.Unmarshal([]byte(raw), &intent); err != nil {
		e.logger.Warn("followup parse returned malformed JSON, using deterministic fallback", "error", err)
		return e.fallback.ParseFollowup(ctx, utterance, originalQuery, currentRadiusM)
	}

	clampFollowup(&intent)
	return intent, nil
}

// clampFollowup keeps model-supplied numbers inside the contract's ranges.
func clampFollowup(intent *models.FollowupIntent) {
	if intent.PriceMin != nil && (*intent.PriceMin < 0 || *intent.PriceMin > 4) {
		intent.PriceMin = nil
	}
	if intent.PriceMax != nil && (*intent.PriceMax < 0 || *intent.PriceMax > 4) {
		intent.PriceMax = nil
	}
	if intent.MinRating != nil && (*intent.MinRating < 0 || *intent.MinRating > 5) {
		intent.MinRating = nil
	}
	if intent.AdjustRadiusM != nil && *intent.AdjustRadiusM <= 0 {
		intent.AdjustRadiusM = nil
	}
	switch intent.SortBy {
	case models.SortByScore, models.SortByDistance, models.SortByRating, models.SortByPrice, "":
	default:
		intent.SortBy = ""
	}
	for i, f := range intent.RequiredFeatures {
		intent.RequiredFeatures[i] = strings.ToLower(strings.TrimSpace(f))
	}
}
