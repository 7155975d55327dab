package models

import (
	"fmt"
	"time"
)

// Request bounds from the external contract.
const (
	MinRadiusM = 100
	MaxRadiusM = 50000
	MinTopK    = 1
	MaxTopK    = 100

	DefaultRadiusM = 3000
	DefaultTopK    = 30
)

// FieldError is a request-schema violation tied to a field.
type FieldError struct {
	Field   string
	Message string
	Index   int
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// PriceRange is an inclusive [Min, Max] price-level window, both in {0..4}.
type PriceRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Contains reports whether a price level falls inside the window.
func (r PriceRange) Contains(level int) bool {
	return r.Min <= level && level <= r.Max
}

// SearchFilters are the hard filters a request can carry.
type SearchFilters struct {
	Price    *PriceRange `json:"price,omitempty"`
	OpenNow  *bool       `json:"open_now,omitempty"`
	Category string      `json:"category,omitempty"`
}

// RankingPresetName selects the base-point weighting in the ranker.
type RankingPresetName string

const (
	PresetBalanced    RankingPresetName = "balanced"
	PresetNearby      RankingPresetName = "nearby"
	PresetReviewHeavy RankingPresetName = "review-heavy"
)

// AgentMode selects between LLM-assisted and deterministic extraction.
type AgentMode string

const (
	AgentModeFull          AgentMode = "full"
	AgentModeDeterministic AgentMode = "deterministic"
)

// SearchContext carries conversation state for follow-ups plus per-request
// pipeline switches.
type SearchContext struct {
	ConversationID string            `json:"conversation_id,omitempty"`
	ResultSetID    string            `json:"result_set_id,omitempty"`
	FollowUp       bool              `json:"follow_up,omitempty"`
	OriginalQuery  string            `json:"original_query,omitempty"`
	UserID         string            `json:"user_id,omitempty"`
	AgentMode      AgentMode         `json:"agent_mode,omitempty"`
	RankingPreset  RankingPresetName `json:"ranking_preset,omitempty"`
}

// MultiEntityRequest is the explicit multi-entity block a caller may supply
// instead of relying on intent parsing.
type MultiEntityRequest struct {
	Entities  []EntitySpec `json:"entities"`
	Relations []Relation   `json:"relations,omitempty"`
}

// SearchRequest is the external search contract.
type SearchRequest struct {
	Query       string              `json:"query,omitempty"`
	Lat         float64             `json:"lat"`
	Lng         float64             `json:"lng"`
	RadiusM     int                 `json:"radius_m"`
	Filters     *SearchFilters      `json:"filters,omitempty"`
	MultiEntity *MultiEntityRequest `json:"multi_entity,omitempty"`
	Context     *SearchContext      `json:"context,omitempty"`
	TopK        int                 `json:"top_k"`
}

// ApplyDefaults fills zero-valued optional fields.
func (r *SearchRequest) ApplyDefaults() {
	if r.RadiusM == 0 {
		r.RadiusM = DefaultRadiusM
	}
	if r.TopK == 0 {
		r.TopK = DefaultTopK
	}
}

// Validate enforces the range constraints of the external contract.
func (r *SearchRequest) Validate() error {
	if r.Lat < -90 || r.Lat > 90 {
		return &FieldError{Field: "lat", Message: "must be within [-90, 90]"}
	}
	if r.Lng < -180 || r.Lng > 180 {
		return &FieldError{Field: "lng", Message: "must be within [-180, 180]"}
	}
	if r.RadiusM < MinRadiusM || r.RadiusM > MaxRadiusM {
		return &FieldError{Field: "radius_m", Message: fmt.Sprintf("must be within [%d, %d]", MinRadiusM, MaxRadiusM)}
	}
	if r.TopK < MinTopK || r.TopK > MaxTopK {
		return &FieldError{Field: "top_k", Message: fmt.Sprintf("must be within [%d, %d]", MinTopK, MaxTopK)}
	}
	if r.Filters != nil && r.Filters.Price != nil {
		p := r.Filters.Price
		if p.Min < 0 || p.Max > 4 || p.Min > p.Max {
			return &FieldError{Field: "filters.price", Message: "min and max must be within [0, 4] with min <= max"}
		}
	}
	if r.MultiEntity != nil {
		in := Intent{Type: IntentMultiEntity, Entities: r.MultiEntity.Entities, Relations: r.MultiEntity.Relations}
		if err := in.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Place is the flattened, API-facing view of a scored place.
type Place struct {
	ID                  string               `json:"id"`
	Name                string               `json:"name"`
	Category            string               `json:"category,omitempty"`
	Lat                 float64              `json:"lat"`
	Lng                 float64              `json:"lng"`
	Rating              *float64             `json:"rating,omitempty"`
	ReviewCount         *int                 `json:"review_count,omitempty"`
	PriceLevel          *int                 `json:"price_level,omitempty"`
	Phone               string               `json:"phone,omitempty"`
	Website             string               `json:"website,omitempty"`
	MapsURL             string               `json:"map_url,omitempty"`
	Address             string               `json:"address,omitempty"`
	DistanceKm          float64              `json:"distance_km"`
	Features            []string             `json:"features,omitempty"`
	Score               float64              `json:"score"`
	MaxPossibleScore    float64              `json:"max_possible_score"`
	Evidence            map[string]float64   `json:"evidence"`
	UserRequirements    []string             `json:"user_requirements,omitempty"`
	RequirementsMatched []MatchedRequirement `json:"requirements_matched,omitempty"`
	MatchPercentage     float64              `json:"match_percentage"`
	Provenance          []ProvenanceEntry    `json:"provenance"`
	MatchedPartners     []MatchedPartner     `json:"matched_partners,omitempty"`
}

// PlaceFromScored flattens a ScoredPlace into the API shape.
func PlaceFromScored(sp ScoredPlace, requirements []Requirement) Place {
	rep := sp.Fused.Representative
	reqNames := make([]string, 0, len(requirements))
	for _, r := range requirements {
		reqNames = append(reqNames, r.Name)
	}
	return Place{
		ID:                  sp.Fused.ID,
		Name:                rep.Name,
		Category:            rep.Category,
		Lat:                 rep.Lat,
		Lng:                 rep.Lng,
		Rating:              rep.Rating,
		ReviewCount:         rep.ReviewCount,
		PriceLevel:          rep.PriceLevel,
		Phone:               rep.Phone,
		Website:             rep.Website,
		MapsURL:             rep.MapsURL,
		Address:             rep.Address,
		DistanceKm:          rep.DistanceKm,
		Features:            rep.Amenities.TrueFlags(),
		Score:               sp.Score,
		MaxPossibleScore:    sp.MaxPossibleScore,
		Evidence:            sp.Evidence,
		UserRequirements:    reqNames,
		RequirementsMatched: sp.RequirementMatches,
		MatchPercentage:     sp.MatchPercentage,
		Provenance:          sp.Fused.Provenance,
		MatchedPartners:     sp.MatchedPartners,
	}
}

// SearchDebug carries per-request observability surfaced to the caller.
type SearchDebug struct {
	Timings           map[string]float64 `json:"timings"`
	CacheHit          bool               `json:"cache_hit"`
	TraceID           string             `json:"trace_id"`
	CountsBeforeAfter map[string]int     `json:"counts_before_after"`
	RankingPreset     RankingPresetName  `json:"ranking_preset"`
	AgentMode         AgentMode          `json:"agent_mode"`
	ExpandSearch      bool               `json:"expand_search,omitempty"`
	RelationsSkipped  int                `json:"relations_skipped,omitempty"`
}

// SearchResponse is the external search result contract.
type SearchResponse struct {
	Places      []Place     `json:"places"`
	Debug       SearchDebug `json:"debug"`
	ResultSetID string      `json:"result_set_id"`
}

// ResultSet is the stored form of a response, re-referenced by follow-ups.
type ResultSet struct {
	ResultSetID    string    `json:"result_set_id"`
	Places         []Place   `json:"places"`
	CreatedAt      time.Time `json:"created_at"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Query          string    `json:"query,omitempty"`
	RadiusM        int       `json:"radius_m,omitempty"`
}
