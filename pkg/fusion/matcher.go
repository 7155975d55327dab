package fusion

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/aroundme/aroundme/pkg/models"
)

// Embedder produces vector embeddings for short texts. It is an optional
// collaborator: a nil Embedder disables the semantic method and the matcher
// degrades to its synchronous methods.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Method confidences. Structured data is trusted fully; each fallback method
// is trusted a little less.
const (
	confidenceStructured = 1.00
	confidenceKeyword    = 0.80
	confidenceEditorial  = 0.70

	// bonusPerConfidence converts a match confidence into score points.
	bonusPerConfidence = 10.0

	// editorialWindow is the evidence excerpt size around an editorial hit.
	editorialWindow = 60
)

// keywordToStructuredField routes requirement keywords to the structured
// amenity field that can confirm them without any text scanning.
var keywordToStructuredField = map[string]string{
	"wifi":       "wifi",
	"wi-fi":      "wifi",
	"internet":   "wifi",
	"wireless":   "wifi",
	"outdoor":    "outdoor_seating",
	"patio":      "outdoor_seating",
	"terrace":    "outdoor_seating",
	"outside":    "outdoor_seating",
	"pet":        "allows_dogs",
	"pets":       "allows_dogs",
	"dog":        "allows_dogs",
	"dogs":       "allows_dogs",
	"family":     "good_for_children",
	"kids":       "good_for_children",
	"children":   "good_for_children",
	"group":      "good_for_groups",
	"groups":     "good_for_groups",
	"vegetarian": "serves_vegetarian_food",
	"vegan":      "serves_vegetarian_food",
	"takeout":    "takeout",
	"delivery":   "delivery",
	"wheelchair":   "wheelchair_accessible",
	"accessible":   "wheelchair_accessible",
	"parking":      "parking",
	"valet":        "parking",
	"garage":       "parking",
	"reservation":  "reservable",
	"reservations": "reservable",
	"booking":      "reservable",
	"wine":         "serves_wine",
	"beer":         "serves_beer",
	"breakfast":    "serves_breakfast",
	"brunch":       "serves_brunch",
	"lunch":        "serves_lunch",
	"dinner":       "serves_dinner",
	"card":         "payment",
	"cards":        "payment",
}

// match is the outcome of one method attempt.
type match struct {
	confidence float64
	evidence   string
}

// Matcher evaluates requirements against places with four ordered methods,
// stopping at the first that matches. The chain order and confidence table
// are data; each method is a pure function of its inputs.
type Matcher struct {
	embedder          Embedder
	semanticThreshold float64
	logger            *slog.Logger
}

// NewMatcher builds a Matcher. embedder may be nil.
func NewMatcher(embedder Embedder, semanticThreshold float64) *Matcher {
	return &Matcher{
		embedder:          embedder,
		semanticThreshold: semanticThreshold,
		logger:            slog.With("component", "matcher"),
	}
}

// Match runs the method chain for one (place, requirement) pair. Exactly one
// method is recorded; bonus points are 10 x confidence iff matched.
func (m *Matcher) Match(ctx context.Context, req models.Requirement, p models.ProviderPlace) models.MatchedRequirement {
	type step struct {
		method models.MatchMethod
		run    func() *match
	}
	chain := []step{
		{models.MatchMethodStructured, func() *match { return matchStructured(req, p) }},
		{models.MatchMethodKeyword, func() *match { return matchKeyword(req, p) }},
		{models.MatchMethodSemantic, func() *match { return m.matchSemantic(ctx, req, p) }},
		{models.MatchMethodEditorial, func() *match { return matchEditorial(req, p) }},
	}

	for _, s := range chain {
		if hit := s.run(); hit != nil {
			return models.MatchedRequirement{
				Requirement: req.Name,
				Matched:     true,
				Method:      s.method,
				Confidence:  hit.confidence,
				BonusPoints: bonusPerConfidence * hit.confidence,
				Evidence:    hit.evidence,
			}
		}
	}

	return models.MatchedRequirement{
		Requirement: req.Name,
		Method:      models.MatchMethodNone,
	}
}

// MatchAll evaluates every requirement against a place.
func (m *Matcher) MatchAll(ctx context.Context, reqs []models.Requirement, p models.ProviderPlace) []models.MatchedRequirement {
	out := make([]models.MatchedRequirement, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, m.Match(ctx, req, p))
	}
	return out
}

// matchStructured confirms a requirement from structured amenity fields.
func matchStructured(req models.Requirement, p models.ProviderPlace) *match {
	for _, kw := range req.Keywords {
		field, ok := keywordToStructuredField[strings.ToLower(kw)]
		if !ok {
			continue
		}
		if v, known := p.Amenities.Flag(field); known && v {
			return &match{
				confidence: confidenceStructured,
				evidence:   fmt.Sprintf("structured amenity %q is set", field),
			}
		}
	}
	return nil
}

// matchKeyword scans the place's full search text for any keyword.
func matchKeyword(req models.Requirement, p models.ProviderPlace) *match {
	haystack := SearchText(p)
	for _, kw := range req.Keywords {
		needle := strings.ToLower(kw)
		if needle == "" {
			continue
		}
		if strings.Contains(haystack, needle) {
			return &match{
				confidence: confidenceKeyword,
				evidence:   fmt.Sprintf("keyword %q found in place details", needle),
			}
		}
	}
	return nil
}

// matchSemantic embeds the requirement name and the place's text fields and
// accepts the best cosine similarity above the threshold. Unavailable or
// failing embedders disable the method rather than the request.
func (m *Matcher) matchSemantic(ctx context.Context, req models.Requirement, p models.ProviderPlace) *match {
	if m.embedder == nil {
		return nil
	}

	reqVec, err := m.embedder.Embed(ctx, req.Name)
	if err != nil || len(reqVec) == 0 {
		if err != nil {
			m.logger.Warn("embedding failed, skipping semantic match", "requirement", req.Name, "error", err)
		}
		return nil
	}

	fields := []string{p.Name, p.Category, p.Address, p.Amenities.EditorialSummary}
	best := 0.0
	bestField := ""
	for _, field := range fields {
		if strings.TrimSpace(field) == "" {
			continue
		}
		vec, err := m.embedder.Embed(ctx, field)
		if err != nil || len(vec) == 0 {
			continue
		}
		if sim := cosineSimilarity(reqVec, vec); sim > best {
			best = sim
			bestField = field
		}
	}

	if best < m.semanticThreshold {
		return nil
	}
	return &match{
		confidence: best,
		evidence:   fmt.Sprintf("semantically similar to %q (%.2f)", bestField, best),
	}
}

// matchEditorial scans only the editorial summary, quoting a window around
// the first keyword occurrence as evidence.
func matchEditorial(req models.Requirement, p models.ProviderPlace) *match {
	summary := strings.ToLower(p.Amenities.EditorialSummary)
	if summary == "" {
		return nil
	}
	for _, kw := range req.Keywords {
		needle := strings.ToLower(kw)
		if needle == "" {
			continue
		}
		idx := strings.Index(summary, needle)
		if idx < 0 {
			continue
		}
		start := idx - editorialWindow/2
		if start < 0 {
			start = 0
		}
		end := idx + len(needle) + editorialWindow/2
		if end > len(summary) {
			end = len(summary)
		}
		return &match{
			confidence: confidenceEditorial,
			evidence:   fmt.Sprintf("editorial summary mentions %q: ...%s...", needle, summary[start:end]),
		}
	}
	return nil
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched or zero-length vectors yield 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
